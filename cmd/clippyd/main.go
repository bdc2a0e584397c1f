package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/modoterra/clippyd/internal/buildinfo"
	"github.com/modoterra/clippyd/pkg/checkout"
	"github.com/modoterra/clippyd/pkg/config"
	"github.com/modoterra/clippyd/pkg/core"
	"github.com/modoterra/clippyd/pkg/extract"
	"github.com/modoterra/clippyd/pkg/manifest"
	"github.com/modoterra/clippyd/pkg/replay"
	"github.com/modoterra/clippyd/pkg/runner"
)

var logLevel string

func main() {
	// Children run in their own process groups and never see the terminal's
	// SIGINT; cancelling the context kills them through runner's Cmd.Cancel.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "clippyd",
	Short:             "Developer helper for working on rust-clippy",
	Long:              "clippyd checks out contributor branches and extracts the exact clippy-driver command cargo runs for a crate, so it can be replayed under perf or gdb.",
	SilenceUsage:      true,
	PersistentPreRunE: openSession,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(commandCmd)
	rootCmd.AddCommand(versionCmd)

	// help, like version, works outside the clippy repository.
	rootCmd.InitDefaultHelpCmd()
	for _, c := range rootCmd.Commands() {
		if c.Name() == "help" {
			c.PersistentPreRun = func(*cobra.Command, []string) {}
		}
	}
}

// --- Session ---

// session is the validated state every subcommand runs with.
type session struct {
	root   string // rust-clippy checkout, the working directory
	cfg    config.Config
	logger *slog.Logger
	runner *runner.Runner
}

type sessionKey struct{}

// openSession refuses to continue unless the working directory is the clippy repository.
func openSession(cmd *cobra.Command, _ []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	root, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if err := manifest.CheckWorkspace(root, cfg.Project); err != nil {
		return fmt.Errorf("failed clippy working directory check! make sure that you are running this from within the clippy repository: %w", err)
	}

	s := &session{root: root, cfg: cfg, logger: logger, runner: runner.New(logger)}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, sessionKey{}, s))
	return nil
}

func sessionFrom(cmd *cobra.Command) *session {
	if s, ok := cmd.Context().Value(sessionKey{}).(*session); ok {
		return s
	}
	panic("clippyd: session missing from command context")
}

func (s *session) extractor() *extract.Extractor {
	return extract.New(s.runner, s.cfg, s.root, s.logger)
}

// --- Checkout ---

var checkoutCmd = &cobra.Command{
	Use:   "checkout <user:branch>",
	Short: "Check out a remote branch on someone else's fork of rust-clippy",
	Long:  "The ref is the fork owner and branch separated by a colon, e.g. y21:branch1. On a GitHub PR page the user:branch pair under the title can be copied as-is.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := checkout.ParseRef(args[0])
		if err != nil {
			return err
		}
		s := sessionFrom(cmd)
		if err := checkout.Checkout(cmd.Context(), s.runner, s.cfg, s.root, ref, s.logger); err != nil {
			return err
		}
		done(cmd.ErrOrStderr(), "checked out %s", ref)
		return nil
	},
}

// --- Profile ---

var profileBuild string

var profileCmd = &cobra.Command{
	Use:   "profile <crate-path> [perf-args...]",
	Short: "Profile clippy on a crate with perf record",
	Long:  "Builds clippy, extracts the clippy-driver command for the crate and runs it under `perf record`, writing perf.data in the clippy directory. Arguments after the crate path are passed to `perf record`. Requires perf.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := core.ParseProfile(profileBuild)
		if err != nil {
			return err
		}
		target, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		s := sessionFrom(cmd)
		inv, err := s.extractor().Extract(cmd.Context(), target, profile, true)
		if err != nil {
			return err
		}

		rec := replay.Recording{
			Perf:   s.cfg.Perf,
			Shell:  s.cfg.Shell,
			Output: s.cfg.PerfOutputPath(s.root),
			Args:   args[1:],
			Target: target,
		}
		step(cmd.ErrOrStderr(), "running perf")
		if err := replay.Record(cmd.Context(), s.runner, inv, rec); err != nil {
			return err
		}
		done(cmd.ErrOrStderr(), "wrote %s", rec.Output)
		hint(cmd.ErrOrStderr(), "inspect it with `perf report -i %s`", rec.Output)
		return nil
	},
}

func init() {
	profileCmd.Flags().StringVar(&profileBuild, "build-profile", "release", "cargo profile for clippy (dev, debug, release)")
	// Everything after the crate path belongs to perf.
	profileCmd.Flags().SetInterspersed(false)
}

// --- Command ---

var commandJSON bool

var commandCmd = &cobra.Command{
	Use:   "command <crate-path> <profile>",
	Short: "Print the clippy-driver command that lints a crate",
	Long:  "Prints a finalised clippy-driver command with everything needed to lint the crate, dependencies included. Use it with gdb to find where clippy overflowed its stack, with perf or samply for profiling, or to benchmark clippy without cargo overhead. Profile is dev, debug, or release.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := core.ParseProfile(args[1])
		if err != nil {
			return err
		}

		s := sessionFrom(cmd)
		inv, err := s.extractor().Extract(cmd.Context(), args[0], profile, true)
		if err != nil {
			return err
		}
		return printInvocation(cmd.OutOrStdout(), inv)
	},
}

func init() {
	commandCmd.Flags().BoolVar(&commandJSON, "json", false, "output as JSON")
}

func printInvocation(w io.Writer, inv *core.Invocation) error {
	if commandJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(inv)
	}
	return replay.Display(w, inv)
}

// --- Version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// Works outside the clippy repository.
	PersistentPreRun: func(*cobra.Command, []string) {},
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "clippyd %s (%s) built %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
	},
}
