// Package replay turns an extracted invocation into something runnable.
package replay

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/modoterra/clippyd/pkg/core"
	"github.com/modoterra/clippyd/pkg/runner"
)

// Display writes the invocation as one shell line.
func Display(w io.Writer, inv *core.Invocation) error {
	_, err := fmt.Fprintln(w, inv.CommandLine())
	return err
}

// Recording configures a `perf record` run.
type Recording struct {
	Perf   string   // perf binary
	Shell  string   // shell used to run the assembled line
	Output string   // perf.data path
	Args   []string // passed through to `perf record`
	Target string   // crate directory to run in
}

// CommandLine prefixes the invocation's command with `perf record -o <output> <args...>`.
func (rec Recording) CommandLine(inv *core.Invocation) string {
	parts := []string{rec.Perf, "record", "-o", rec.Output}
	parts = append(parts, rec.Args...)
	parts = append(parts, inv.Command)
	line := strings.Join(parts, " ")
	if inv.Env != "" {
		line = inv.Env + " " + line
	}
	return line
}

// Record runs clippy-driver under perf through the shell, with the toolchain
// libdir on LD_LIBRARY_PATH.
func Record(ctx context.Context, r *runner.Runner, inv *core.Invocation, rec Recording) error {
	_, err := r.Output(ctx, runner.Cmd{
		Name: rec.Shell,
		Args: []string{"-c", rec.CommandLine(inv)},
		Dir:  rec.Target,
		Env:  map[string]string{"LD_LIBRARY_PATH": inv.LibDir},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrProfilerRun, err)
	}
	return nil
}
