// Package checkout fetches a contributor's branch from their rust-clippy fork.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modoterra/clippyd/pkg/config"
	"github.com/modoterra/clippyd/pkg/runner"
)

// Ref names a branch on a user's fork, written as user:branch.
type Ref struct {
	User   string
	Branch string
}

// ParseRef splits s at its first colon. Both halves must be non-empty.
func ParseRef(s string) (Ref, error) {
	user, branch, ok := strings.Cut(s, ":")
	if !ok {
		return Ref{}, fmt.Errorf("missing : in git ref %q (expected user:branch)", s)
	}
	if user == "" || branch == "" {
		return Ref{}, fmt.Errorf("invalid git ref %q (expected user:branch)", s)
	}
	return Ref{User: user, Branch: branch}, nil
}

func (r Ref) String() string { return r.User + ":" + r.Branch }

// Checkout fetches ref into FETCH_HEAD and checks it out in root.
func Checkout(ctx context.Context, r *runner.Runner, cfg config.Config, root string, ref Ref, logger *slog.Logger) error {
	remote := cfg.RemoteURL(ref.User)

	logger.Info("fetching remote", "remote", remote, "branch", ref.Branch)
	if _, err := r.Output(ctx, runner.Cmd{Name: cfg.Git, Args: []string{"fetch", remote, ref.Branch}, Dir: root}); err != nil {
		return fmt.Errorf("git fetch: %w", err)
	}

	logger.Info("checking out branch", "ref", ref)
	if _, err := r.Output(ctx, runner.Cmd{Name: cfg.Git, Args: []string{"checkout", "FETCH_HEAD"}, Dir: root}); err != nil {
		return fmt.Errorf("git checkout: %w", err)
	}
	return nil
}
