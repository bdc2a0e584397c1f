package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProcessFailed            = errors.New("process failed")
	ErrBuildFailed              = errors.New("building clippy failed")
	ErrManifestRead             = errors.New("reading manifest failed")
	ErrPackageNameMissing       = errors.New("missing `package` section")
	ErrDebugPolicy              = errors.New("release profile must set `debug = true`")
	ErrToolchainQuery           = errors.New("querying the toolchain libdir failed")
	ErrTargetInvocationNotFound = errors.New("target clippy-driver invocation not found in cargo output")
	ErrUnknownProfile           = errors.New("unknown profile")
	ErrWorkingDirectoryMismatch = errors.New("not inside the clippy repository")
	ErrProfilerRun              = errors.New("profiler run failed")
)

// ProcessError reports a child process that could not be started or exited non-zero.
// It matches ErrProcessFailed under errors.Is.
type ProcessError struct {
	Name     string
	Args     []string
	ExitCode int // -1 if the process never ran to completion
	Err      error
}

func (e *ProcessError) Error() string {
	cmdline := strings.TrimSpace(e.Name + " " + strings.Join(e.Args, " "))
	if e.ExitCode >= 0 {
		return fmt.Sprintf("%s: exit status %d", cmdline, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", cmdline, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

func (e *ProcessError) Is(target error) bool { return target == ErrProcessFailed }
