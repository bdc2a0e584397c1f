package core

import "fmt"

// Profile selects the cargo build profile used for the clippy binaries.
type Profile int

const (
	ProfileDev Profile = iota
	ProfileRelease
)

// ParseProfile maps a user-supplied profile name to a Profile.
// Accepted names: dev, debug, release.
func ParseProfile(name string) (Profile, error) {
	switch name {
	case "dev", "debug":
		return ProfileDev, nil
	case "release":
		return ProfileRelease, nil
	default:
		return 0, fmt.Errorf("%w: %q (expected dev, debug, or release)", ErrUnknownProfile, name)
	}
}

func (p Profile) String() string {
	switch p {
	case ProfileDev:
		return "dev"
	case ProfileRelease:
		return "release"
	default:
		return fmt.Sprintf("Profile(%d)", int(p))
	}
}

// TargetDir is the directory under target/ that cargo writes this profile's binaries to.
func (p Profile) TargetDir() string {
	if p == ProfileRelease {
		return "release"
	}
	return "debug"
}

// BuildArgs returns the cargo arguments that build cargo-clippy and clippy-driver.
func (p Profile) BuildArgs() []string {
	args := []string{"build", "--bin", "cargo-clippy", "--bin", "clippy-driver"}
	if p == ProfileRelease {
		args = append(args, "--release")
	}
	return args
}
