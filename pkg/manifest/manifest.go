// Package manifest reads the parts of a Cargo.toml that clippyd cares about.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/modoterra/clippyd/pkg/core"
)

// FileName is the project descriptor looked up in a project root.
const FileName = "Cargo.toml"

// Manifest is a partial Cargo.toml.
type Manifest struct {
	Package *Package  `toml:"package"`
	Profile *Profiles `toml:"profile"`
}

// Package is the [package] table.
type Package struct {
	Name string `toml:"name"`
}

// Profiles is the [profile] table.
type Profiles struct {
	Release *ProfileSettings `toml:"release"`
}

// ProfileSettings is a [profile.<name>] table. Debug is a bool, integer, or string in cargo.
type ProfileSettings struct {
	Debug any `toml:"debug"`
}

// Summary is what the extractor needs from a manifest.
type Summary struct {
	PackageName string
	// ReleaseDebug is nil when [profile.release] or its debug key is absent.
	ReleaseDebug *bool
}

// Parse decodes Cargo.toml contents.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrManifestRead, err)
	}
	return &m, nil
}

// Load reads and parses the Cargo.toml in root.
func Load(root string) (*Manifest, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrManifestRead, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// PackageName returns [package].name.
func (m *Manifest) PackageName() (string, error) {
	if m.Package == nil || m.Package.Name == "" {
		return "", core.ErrPackageNameMissing
	}
	return m.Package.Name, nil
}

// Summary extracts the package name and the release debug-info setting.
func (m *Manifest) Summary() (Summary, error) {
	name, err := m.PackageName()
	if err != nil {
		return Summary{}, err
	}
	s := Summary{PackageName: name}
	if m.Profile != nil && m.Profile.Release != nil && m.Profile.Release.Debug != nil {
		enabled := debugEnabled(m.Profile.Release.Debug)
		s.ReleaseDebug = &enabled
	}
	return s, nil
}

// LoadSummary reads the Cargo.toml in root and summarizes it. Nothing is cached.
func LoadSummary(root string) (Summary, error) {
	m, err := Load(root)
	if err != nil {
		return Summary{}, err
	}
	s, err := m.Summary()
	if err != nil {
		return Summary{}, fmt.Errorf("%s: %w", filepath.Join(root, FileName), err)
	}
	return s, nil
}
