// Package forge defines the module metadata provider consumed by the
// resolver, and implements it against a Forge-style module registry
// and raw VCS repository metadata.
package forge

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a module or repository doesn't exist.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection
	// errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// Dependency is one declared dependency edge in release or repository
// metadata: a module name plus the version requirement imposed on it.
type Dependency struct {
	Name               string `json:"name"`
	VersionRequirement string `json:"version_requirement,omitempty"`
}

// Release is one published version of a module together with its
// declared dependencies. A nil or empty Dependencies list is valid.
type Release struct {
	Version      string       `json:"version"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// Module is the registry's view of one module.
type Module struct {
	Name              string    `json:"name"`               // normalized slug, e.g. "puppetlabs-stdlib"
	AvailableVersions []string  `json:"available_versions"` // registry ordering preserved
	Releases          []Release `json:"releases"`
	Current           *Release  `json:"current,omitempty"` // the registry's default/current release
}

// Release returns the release with the given version, or nil.
func (m *Module) Release(version string) *Release {
	for i := range m.Releases {
		if m.Releases[i].Version == version {
			return &m.Releases[i]
		}
	}
	return nil
}

// VCSMetadata is the dependency metadata read from a version-control
// repository at a particular ref.
type VCSMetadata struct {
	Name         string       `json:"name"`
	Version      string       `json:"version,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// Provider supplies module metadata to the resolver and analyzer.
// Both operations may fail or report not-found; callers must treat
// either outcome as non-fatal.
type Provider interface {
	// ResolveModule fetches registry metadata by normalized module name.
	ResolveModule(ctx context.Context, name string) (*Module, error)
	// ResolveVCS fetches dependency metadata from a repository URL at
	// the given ref ("" means the repository default).
	ResolveVCS(ctx context.Context, repoURL, ref string) (*VCSMetadata, error)
}

// NormalizeName converts a declared module name to its canonical
// registry slug by substituting the single owner/name separator:
// "puppetlabs/stdlib" and "puppetlabs-stdlib" collapse to the same
// key. Names with more than two segments are passed through with only
// the first separator substituted; that ambiguity is a known
// limitation of the two-part naming scheme.
func NormalizeName(name string) string {
	return strings.Replace(strings.TrimSpace(name), "/", "-", 1)
}
