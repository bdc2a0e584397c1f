// Package config holds clippyd settings: tool binaries, the git remote template,
// and the manifest-check escape hatch.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the optional settings file read from the clippy project root.
const FileName = ".clippyd.yaml"

// IgnoreManifestChecksEnv disables the release debug-info check when set to any value.
const IgnoreManifestChecksEnv = "CLIPPYD_IGNORE_MANIFEST_CHECKS"

// Config is the resolved configuration.
type Config struct {
	Cargo string `yaml:"cargo"`
	Rustc string `yaml:"rustc"`
	Git   string `yaml:"git"`
	Perf  string `yaml:"perf"`
	Shell string `yaml:"shell"`

	// Project is the package name the working directory must declare.
	Project string `yaml:"project"`
	// Remote is the fork URL; {user} is replaced with the fork owner.
	Remote string `yaml:"remote"`
	// PerfOutput is the perf.data path, relative to the clippy root unless absolute.
	PerfOutput string `yaml:"perf_output"`

	IgnoreManifestChecks bool `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Cargo:      "cargo",
		Rustc:      "rustc",
		Git:        "git",
		Perf:       "perf",
		Shell:      "sh",
		Project:    "clippy",
		Remote:     "https://github.com/{user}/rust-clippy",
		PerfOutput: "perf.data",
	}
}

// Load reads root/.clippyd.yaml over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(root string) (Config, error) {
	cfg := Default()

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := map[string]*string{
		"CLIPPYD_CARGO": &c.Cargo,
		"CLIPPYD_RUSTC": &c.Rustc,
		"CLIPPYD_GIT":   &c.Git,
		"CLIPPYD_PERF":  &c.Perf,
	}
	for key, field := range overrides {
		if v, ok := lookup(key); ok && v != "" {
			*field = v
		}
	}
	if _, ok := lookup(IgnoreManifestChecksEnv); ok {
		c.IgnoreManifestChecks = true
	}
}

// RemoteURL expands the remote template for user.
func (c Config) RemoteURL(user string) string {
	return strings.ReplaceAll(c.Remote, "{user}", user)
}

// PerfOutputPath resolves PerfOutput against the clippy root.
func (c Config) PerfOutputPath(root string) string {
	if filepath.IsAbs(c.PerfOutput) {
		return c.PerfOutput
	}
	return filepath.Join(root, c.PerfOutput)
}
