package core

// Invocation is a replayable clippy-driver command line recovered from cargo's verbose log.
type Invocation struct {
	// Env holds the NAME=value assignments that precede the executable, space-joined verbatim.
	Env string `json:"env"`
	// Command is the clippy-driver path and its arguments, minus the JSON diagnostic flags.
	Command string `json:"command"`
	// Dir is the clippy project root the binaries were built in.
	Dir string `json:"dir"`
	// LibDir is the rustc target libdir needed on LD_LIBRARY_PATH.
	LibDir string `json:"lib_dir"`
}

// CommandLine returns the environment prefix and command joined as one shell line.
func (i Invocation) CommandLine() string {
	if i.Env == "" {
		return i.Command
	}
	return i.Env + " " + i.Command
}
