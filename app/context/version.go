package context

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// VersionInfo describes the build of the running binary.
type VersionInfo struct {
	Semantic string
	Commit   string
	Dirty    bool
}

// GetVersion returns the version information embedded by the Go toolchain.
func GetVersion() (*VersionInfo, error) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, errors.New("failed reading build information")
	}

	vi := &VersionInfo{Semantic: bi.Main.Version}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			vi.Commit = s.Value
		case "vcs.modified":
			vi.Dirty = s.Value == "true"
		}
	}
	if vi.Semantic == "" {
		vi.Semantic = "(devel)"
	}

	return vi, nil
}

// String returns the version in a human readable form.
func (vi *VersionInfo) String() string {
	if vi.Commit == "" {
		return vi.Semantic
	}

	commit := vi.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if vi.Dirty {
		commit += "-dirty"
	}

	return fmt.Sprintf("%s (%s)", vi.Semantic, commit)
}
