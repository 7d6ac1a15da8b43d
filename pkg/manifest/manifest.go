// Package manifest models Puppetfile module declarations and parses
// manifest text into them.
//
// A manifest is a flat list of named module references. Each reference
// is either pinned against the Forge registry ("forge" source) or
// sourced from a version-control repository ("git" source) with an
// optional ref or tag. Line-level parse failures are collected as
// non-fatal errors alongside the declarations that did parse.
package manifest

import "fmt"

// SourceKind identifies where a declared module is resolved from.
type SourceKind string

const (
	// SourceForge marks a module resolved by name/version against the
	// module registry.
	SourceForge SourceKind = "forge"
	// SourceGit marks a module resolved from a version-control
	// repository URL plus an optional ref or tag.
	SourceGit SourceKind = "git"
)

// Declaration is one parsed module reference. It is immutable once
// produced by the parser.
type Declaration struct {
	Name    string     // declared module name, e.g. "puppetlabs/stdlib"
	Version string     // exact pinned version, empty when unpinned
	Source  SourceKind // forge or git
	RepoURL string     // git source: repository URL
	Ref     string     // git source: branch or commit ref
	Tag     string     // git source: release tag
	Line    int        // 1-based manifest line, for host tooling
}

// Pinned reports whether the declaration carries an exact registry
// version.
func (d Declaration) Pinned() bool {
	return d.Source == SourceForge && d.Version != ""
}

// ParseError describes a manifest line that could not be parsed.
// Parse errors never block processing of the declarations that did
// parse successfully.
type ParseError struct {
	Line    int
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// File is the parsed form of one manifest.
type File struct {
	Forge        string // forge base URL from the "forge" directive, if any
	Declarations []Declaration
	Errors       []ParseError
}
