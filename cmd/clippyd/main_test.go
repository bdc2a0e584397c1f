package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/modoterra/clippyd/pkg/core"
)

// runMainEnv makes the test binary act as clippyd, so signal handling in main
// can be exercised in a real process.
const runMainEnv = "CLIPPYD_TEST_RUN_MAIN"

func TestMain(m *testing.M) {
	if args, ok := os.LookupEnv(runMainEnv); ok {
		os.Args = append([]string{"clippyd"}, strings.Fields(args)...)
		main()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func writeFile(t *testing.T, path, contents string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), mode); err != nil {
		t.Fatal(err)
	}
}

// clippyRepo creates a fake rust-clippy checkout, makes it the working
// directory, and points cargo at a script that leaves a marker when run.
func clippyRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Cargo.toml"), "[package]\nname = \"clippy\"\n\n[profile.release]\ndebug = true\n", 0o644)

	cargo := filepath.Join(root, "bin", "cargo")
	writeFile(t, cargo, "#!/bin/sh\ntouch '"+filepath.Join(root, "cargo.ran")+"'\n", 0o755)
	t.Setenv("CLIPPYD_CARGO", cargo)

	t.Chdir(root)
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), err
}

func TestCommandUnknownProfile(t *testing.T) {
	root := clippyRepo(t)

	_, err := execute(t, "command", t.TempDir(), "staging")
	if !errors.Is(err, core.ErrUnknownProfile) {
		t.Fatalf("expected ErrUnknownProfile, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "cargo.ran")); !os.IsNotExist(err) {
		t.Error("cargo ran before the profile name was validated")
	}
}

func TestProfileUnknownBuildProfile(t *testing.T) {
	root := clippyRepo(t)

	_, err := execute(t, "profile", "--build-profile", "staging", t.TempDir())
	if !errors.Is(err, core.ErrUnknownProfile) {
		t.Fatalf("expected ErrUnknownProfile, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "cargo.ran")); !os.IsNotExist(err) {
		t.Error("cargo ran before the profile name was validated")
	}
	profileBuild = "release"
}

func TestWorkingDirectoryCheck(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Cargo.toml"), "[package]\nname = \"serde\"\n", 0o644)
	t.Chdir(dir)

	_, err := execute(t, "command", dir, "dev")
	if !errors.Is(err, core.ErrWorkingDirectoryMismatch) {
		t.Fatalf("expected ErrWorkingDirectoryMismatch, got %v", err)
	}

	t.Chdir(t.TempDir())
	_, err = execute(t, "checkout", "y21:branch1")
	if !errors.Is(err, core.ErrWorkingDirectoryMismatch) {
		t.Fatalf("no Cargo.toml: expected ErrWorkingDirectoryMismatch, got %v", err)
	}
}

func TestCheckoutBadRef(t *testing.T) {
	clippyRepo(t)
	_, err := execute(t, "checkout", "no-colon")
	if err == nil || !strings.Contains(err.Error(), "missing :") {
		t.Fatalf("expected missing colon error, got %v", err)
	}
}

func TestCommandJSON(t *testing.T) {
	root := clippyRepo(t)
	target := t.TempDir()
	writeFile(t, filepath.Join(target, "Cargo.toml"), "[package]\nname = \"demo\"\n", 0o644)

	rustc := filepath.Join(root, "bin", "rustc")
	writeFile(t, rustc, "#!/bin/sh\necho /opt/rust/lib\n", 0o755)
	t.Setenv("CLIPPYD_RUSTC", rustc)

	log := filepath.Join(root, "clippy.log")
	writeFile(t, log, "     Running `CARGO_PKG_NAME=demo "+root+"/target/debug/clippy-driver /rustc --crate-name demo src/lib.rs`\n", 0o644)
	writeFile(t, filepath.Join(root, "target", "debug", "cargo-clippy"), "#!/bin/sh\ncat '"+log+"' >&2\n", 0o755)

	out, err := execute(t, "--log-level", "error", "command", "--json", target, "debug")
	commandJSON = false
	if err != nil {
		t.Fatal(err)
	}

	var inv core.Invocation
	if err := json.Unmarshal([]byte(out), &inv); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if inv.Env != "CARGO_PKG_NAME=demo" {
		t.Errorf("env: got %q", inv.Env)
	}
	if inv.Command != root+"/target/debug/clippy-driver /rustc --crate-name demo src/lib.rs" {
		t.Errorf("command: got %q", inv.Command)
	}
	if inv.LibDir != "/opt/rust/lib" {
		t.Errorf("libdir: got %q", inv.LibDir)
	}
}

func TestVersionCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "clippyd ") {
		t.Errorf("got %q", out)
	}
}

func TestHelpOutsideRepo(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := execute(t, "help", "profile")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "perf") {
		t.Errorf("help output missing profile description: %q", out)
	}
}

func TestInterruptKillsChildren(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a process and waits for a slow child")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Cargo.toml"), "[package]\nname = \"clippy\"\n", 0o644)
	started := filepath.Join(root, "started")
	survived := filepath.Join(root, "survived")
	git := filepath.Join(root, "bin", "git")
	writeFile(t, git, "#!/bin/sh\ntouch '"+started+"'\nsleep 2\ntouch '"+survived+"'\n", 0o755)

	exe, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command(exe)
	cmd.Dir = root
	cmd.Env = append(os.Environ(), runMainEnv+"=checkout y21:branch1", "CLIPPYD_GIT="+git)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		if _, err := os.Stat(started); err == nil {
			break
		}
		if time.Now().After(deadline) {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			_ = cmd.Wait()
			t.Fatal("git was never started")
		}
		time.Sleep(20 * time.Millisecond)
	}

	// Ctrl-C reaches the terminal's foreground group, which is clippyd's.
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGINT); err != nil {
		t.Fatal(err)
	}
	err = cmd.Wait()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Fatalf("expected clippyd to exit with status 1, got %v", err)
	}

	time.Sleep(3 * time.Second)
	if _, err := os.Stat(survived); !os.IsNotExist(err) {
		t.Error("git outlived the interrupted clippyd")
	}
}
