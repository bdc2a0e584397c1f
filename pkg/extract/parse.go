package extract

import "strings"

const (
	// runningPrefix marks a subprocess traced by `cargo -vv`.
	runningPrefix = "Running "
	// pkgNameVar distinguishes the target crate's rustc call from its dependencies'.
	pkgNameVar = "CARGO_PKG_NAME"
	// driverSuffix identifies the clippy-driver executable token.
	driverSuffix = "clippy-driver"
)

// DiagnosticFlags are the machine-readable output flags cargo passes to rustc.
// If cargo ever changes its defaults, StripDiagnosticFlags silently stops removing anything.
const DiagnosticFlags = "--error-format=json --json=diagnostic-rendered-ansi,artifacts,future-incompat"

// ParseLine recognises the `Running` line cargo prints for pkgName's clippy-driver call.
// It returns the leading environment assignments and the executable with its arguments.
func ParseLine(line, pkgName string) (envs, cmd string, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(line), runningPrefix)
	if !found {
		return "", "", false
	}

	tokens := strings.Split(rest, " ")
	if !hasPackageMarker(tokens, pkgName) {
		return "", "", false
	}

	exe := -1
	for i, tok := range tokens {
		if strings.HasSuffix(tok, driverSuffix) {
			exe = i
			break
		}
	}
	if exe < 0 {
		return "", "", false
	}

	envs = trimQuoting(joinTokens(tokens[:exe]))
	cmd = trimQuoting(joinTokens(tokens[exe:]))
	return envs, StripDiagnosticFlags(cmd), true
}

func hasPackageMarker(tokens []string, pkgName string) bool {
	for _, tok := range tokens {
		name, value, ok := strings.Cut(strings.Trim(tok, "`"), "=")
		if ok && name == pkgNameVar && value == pkgName {
			return true
		}
	}
	return false
}

// joinTokens prepends a space to every token, including the first.
func joinTokens(tokens []string) string {
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteByte(' ')
		b.WriteString(tok)
	}
	return b.String()
}

// trimQuoting removes the leading join space (with cargo's opening backtick, if any)
// and a trailing backtick or space. Inner whitespace is left alone.
func trimQuoting(s string) string {
	if t, ok := strings.CutPrefix(s, " `"); ok {
		s = t
	} else {
		s = strings.TrimPrefix(s, " ")
	}
	if t, ok := strings.CutSuffix(s, "`"); ok {
		s = t
	} else {
		s = strings.TrimSuffix(s, " ")
	}
	return s
}

// StripDiagnosticFlags removes every occurrence of DiagnosticFlags from cmd.
func StripDiagnosticFlags(cmd string) string {
	for strings.Contains(cmd, DiagnosticFlags) {
		cmd = strings.ReplaceAll(cmd, DiagnosticFlags, "")
	}
	return cmd
}
