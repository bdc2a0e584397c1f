// Package extract recovers the exact clippy-driver command cargo runs for a crate.
//
// It builds clippy, runs cargo-clippy against the target with `-vvv`, and scans
// cargo's stderr for the `Running` line of the target crate. That line carries
// every environment variable and flag, so the command can be replayed under a
// profiler or debugger without cargo in the way.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/modoterra/clippyd/pkg/config"
	"github.com/modoterra/clippyd/pkg/core"
	"github.com/modoterra/clippyd/pkg/manifest"
	"github.com/modoterra/clippyd/pkg/runner"
	"github.com/modoterra/clippyd/pkg/toolchain"
)

// Extractor drives the build and log scan for one clippy checkout.
type Extractor struct {
	runner *runner.Runner
	cfg    config.Config
	root   string // clippy project root
	logger *slog.Logger
}

// New creates an extractor for the clippy checkout at root.
func New(r *runner.Runner, cfg config.Config, root string, logger *slog.Logger) *Extractor {
	return &Extractor{
		runner: r,
		cfg:    cfg,
		root:   root,
		logger: logger,
	}
}

// Extract returns the clippy-driver invocation that lints the crate at target.
// Progress is logged at Info when verbose is set.
func (e *Extractor) Extract(ctx context.Context, target string, profile core.Profile, verbose bool) (*core.Invocation, error) {
	progress := e.logger
	if !verbose {
		progress = slog.New(slog.DiscardHandler)
	}

	target, err := filepath.Abs(target)
	if err != nil {
		return nil, err
	}

	progress.Info("building cargo-clippy and clippy-driver (this may take a while)", "profile", profile)
	if _, err := e.runner.Output(ctx, runner.Cmd{Name: e.cfg.Cargo, Args: profile.BuildArgs(), Dir: e.root}); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrBuildFailed, err)
	}

	if err := e.checkManifest(profile); err != nil {
		return nil, err
	}

	libdir, err := toolchain.LibDir(ctx, e.runner, e.cfg.Rustc)
	if err != nil {
		return nil, err
	}

	targetManifest, err := manifest.LoadSummary(target)
	if err != nil {
		return nil, fmt.Errorf("target crate: %w", err)
	}
	pkgName := targetManifest.PackageName

	progress.Info("building crate dependencies and getting clippy-driver command", "crate", pkgName, "path", target)
	m, err := e.scanTarget(ctx, target, profile, libdir, pkgName)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("found target invocation", "crate", pkgName, "line", m.Line)

	return &core.Invocation{
		Env:     m.Envs,
		Command: m.Command,
		Dir:     e.root,
		LibDir:  libdir,
	}, nil
}

func (e *Extractor) checkManifest(profile core.Profile) error {
	summary, err := manifest.LoadSummary(e.root)
	if err != nil {
		return err
	}
	if profile != core.ProfileRelease {
		return nil
	}
	if e.cfg.IgnoreManifestChecks {
		e.logger.Warn("skipping Cargo.toml checks; results might be inaccurate", "env", config.IgnoreManifestChecksEnv)
		return nil
	}
	if err := manifest.VerifyReleaseDebug(summary); err != nil {
		return fmt.Errorf("rust-clippy/Cargo.toml checks failed; consider fixing them or set `%s` to skip them (results might be inaccurate): %w",
			config.IgnoreManifestChecksEnv, err)
	}
	return nil
}

// scanTarget runs cargo-clippy on target and returns the first matching `Running` line.
// The child is killed and reaped on every path; it only exists to print that line.
func (e *Extractor) scanTarget(ctx context.Context, target string, profile core.Profile, libdir, pkgName string) (Match, error) {
	cargoClippy := filepath.Join(e.root, "target", profile.TargetDir(), "cargo-clippy")
	proc, err := e.runner.Start(ctx, runner.Cmd{
		Name: cargoClippy,
		Args: []string{"--", "-vvv"},
		Dir:  target,
		Env: map[string]string{
			"LD_LIBRARY_PATH":   libdir,
			"CARGO_INCREMENTAL": "0",
		},
	})
	if err != nil {
		return Match{}, fmt.Errorf("cargo-clippy: %w", err)
	}

	m, scanErr := Scan(proc.Stderr(), pkgName)
	closeErr := proc.Close()
	if scanErr != nil {
		if closeErr != nil {
			return Match{}, fmt.Errorf("%w (cargo-clippy: %v)", scanErr, closeErr)
		}
		return Match{}, scanErr
	}
	return m, nil
}
