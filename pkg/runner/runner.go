// Package runner executes external tools (cargo, rustc, git, perf) on behalf of clippyd.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/modoterra/clippyd/pkg/core"
)

// Cmd describes a process to run.
type Cmd struct {
	Name string
	Args []string
	Dir  string
	Env  map[string]string // added on top of the parent environment
}

// Runner spawns processes. Child stderr goes to Stderr unmodified.
type Runner struct {
	Stderr io.Writer
	logger *slog.Logger
}

// New creates a runner that passes child stderr through to os.Stderr.
func New(logger *slog.Logger) *Runner {
	return &Runner{
		Stderr: os.Stderr,
		logger: logger,
	}
}

func (r *Runner) command(ctx context.Context, c Cmd) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	cmd.Env = os.Environ()
	if c.Dir != "" {
		cmd.Env = append(cmd.Env, "PWD="+c.Dir)
	}
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	r.logger.Debug("spawn", "name", c.Name, "args", c.Args, "dir", c.Dir, "env", c.Env)
	return cmd
}

// Output runs c to completion and returns its stdout.
// A non-zero exit yields a *core.ProcessError.
func (r *Runner) Output(ctx context.Context, c Cmd) (string, error) {
	cmd := r.command(ctx, c)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = r.Stderr

	if err := cmd.Run(); err != nil {
		return "", processError(c, err)
	}
	return stdout.String(), nil
}

// Start launches c with stdout discarded and stderr piped back to the caller.
// The returned Process must be closed.
func (r *Runner) Start(ctx context.Context, c Cmd) (*Process, error) {
	cmd := r.command(ctx, c)
	cmd.Stdout = nil

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, processError(c, err)
	}

	r.logger.Debug("process started", "name", c.Name, "pid", cmd.Process.Pid)
	return &Process{c: c, cmd: cmd, stderr: stderr, logger: r.logger}, nil
}

// Process is a running child whose stderr is being consumed.
type Process struct {
	c      Cmd
	cmd    *exec.Cmd
	stderr io.ReadCloser
	logger *slog.Logger

	once     sync.Once
	closeErr error
}

// Stderr returns the live stderr stream of the child.
func (p *Process) Stderr() io.Reader { return p.stderr }

// Close kills the child's process group and reaps it. Being killed here is not
// reported as a failure; a non-zero exit the child reached on its own is.
func (p *Process) Close() error {
	p.once.Do(func() {
		pid := p.cmd.Process.Pid
		if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			p.logger.Warn("kill process group", "pid", pid, "err", err)
		}

		err := p.cmd.Wait()
		p.logger.Debug("process reaped", "name", p.c.Name, "pid", pid, "err", err)
		if err != nil && !killed(p.cmd) {
			p.closeErr = processError(p.c, err)
		}
	})
	return p.closeErr
}

func killed(cmd *exec.Cmd) bool {
	if cmd.ProcessState == nil {
		return false
	}
	ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus)
	return ok && ws.Signaled() && ws.Signal() == syscall.SIGKILL
}

func processError(c Cmd, err error) error {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &core.ProcessError{Name: c.Name, Args: c.Args, ExitCode: code, Err: err}
}
