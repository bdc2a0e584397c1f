// Package toolchain queries rustc for paths needed to run freshly built clippy binaries.
package toolchain

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modoterra/clippyd/pkg/core"
	"github.com/modoterra/clippyd/pkg/runner"
)

// LibDir returns `rustc --print target-libdir`, the directory holding librustc_driver.
func LibDir(ctx context.Context, r *runner.Runner, rustc string) (string, error) {
	out, err := r.Output(ctx, runner.Cmd{Name: rustc, Args: []string{"--print", "target-libdir"}})
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrToolchainQuery, err)
	}

	dir := strings.TrimRight(out, " \t\r\n")
	if dir == "" {
		return "", fmt.Errorf("%w: %s printed nothing", core.ErrToolchainQuery, rustc)
	}
	if !filepath.IsAbs(dir) {
		return "", fmt.Errorf("%w: libdir %q is not absolute", core.ErrToolchainQuery, dir)
	}
	return dir, nil
}
