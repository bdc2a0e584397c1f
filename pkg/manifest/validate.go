package manifest

import (
	"fmt"

	"github.com/modoterra/clippyd/pkg/core"
)

// VerifyReleaseDebug checks that [profile.release] turns full debug info on.
// Without it, perf and gdb see stripped frames.
func VerifyReleaseDebug(s Summary) error {
	if s.ReleaseDebug == nil {
		return fmt.Errorf("%w: missing `debug = true` in `profile.release`", core.ErrDebugPolicy)
	}
	if !*s.ReleaseDebug {
		return fmt.Errorf("%w: `profile.release.debug` does not enable full debug info", core.ErrDebugPolicy)
	}
	return nil
}

// debugEnabled reports whether a cargo `debug` value means full debug info.
func debugEnabled(v any) bool {
	switch d := v.(type) {
	case bool:
		return d
	case int64:
		return d == 2
	case string:
		return d == "full"
	default:
		return false
	}
}

// CheckWorkspace verifies that root is the project named want.
func CheckWorkspace(root, want string) error {
	s, err := LoadSummary(root)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrWorkingDirectoryMismatch, err)
	}
	if s.PackageName != want {
		return fmt.Errorf("%w: package in %s is %q, want %q", core.ErrWorkingDirectoryMismatch, root, s.PackageName, want)
	}
	return nil
}
