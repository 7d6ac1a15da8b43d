// Package resolver expands a manifest's module declarations into an
// annotated dependency tree.
//
// Resolution walks each declaration depth-first through registry and
// VCS metadata, bounded by depth and per-path cycle detection, while
// recording every requirement imposed on a module into a ledger keyed
// by normalized module name. The ledger is then analyzed: the
// requirements on each module are intersected and checked against the
// module's available versions, producing conflict verdicts and
// suggested fixes that are finally copied back onto the tree nodes.
package resolver

import (
	"github.com/mfriedrich/forgedeps/pkg/manifest"
	"github.com/mfriedrich/forgedeps/pkg/version"
)

// Requirement is one ledger entry: a version constraint imposed on a
// module by one of its consumers, with the provenance path from a
// resolution root to the module.
type Requirement struct {
	Constraint string   `json:"constraint"`
	ImposedBy  string   `json:"imposed_by"`
	Path       []string `json:"path"`
	Direct     bool     `json:"direct"` // true only for manifest-pinned exact versions
}

// DependencyInfo aggregates everything learned about one module
// during resolution and analysis.
type DependencyInfo struct {
	Requirements []Requirement  `json:"requirements"`
	Range        *version.Range `json:"-"`
	MergedRange  string         `json:"merged_range,omitempty"`
	Satisfying   []string       `json:"satisfying_versions,omitempty"`
	Conflict     *Conflict      `json:"conflict,omitempty"`

	available []string // availability list captured during expansion
}

// ConflictType classifies why a module's requirements cannot be met.
type ConflictType string

const (
	// ConflictNoIntersection: the imposed requirements contradict each
	// other and no version can satisfy all of them.
	ConflictNoIntersection ConflictType = "no-intersection"
	// ConflictNoAvailableVersion: the merged requirement is coherent
	// but no published version falls inside it.
	ConflictNoAvailableVersion ConflictType = "no-available-version"
	// ConflictCircular: the module depends on itself along one
	// resolution path.
	ConflictCircular ConflictType = "circular"
)

// Fix is a suggested change that would resolve a conflict.
type Fix struct {
	Module           string `json:"module"`
	CurrentVersion   string `json:"current_version,omitempty"`
	SuggestedVersion string `json:"suggested_version,omitempty"`
	Reason           string `json:"reason"`
}

// Conflict is a first-class resolution verdict attached to data,
// never raised as an error.
type Conflict struct {
	Type    ConflictType `json:"type"`
	Details string       `json:"details"`
	Fixes   []Fix        `json:"fixes,omitempty"`
}

// Node is one vertex of the resolved dependency tree. The same module
// may appear as multiple independent nodes; children are owned
// exclusively by their parent.
type Node struct {
	Name               string              `json:"name"` // normalized module name
	Version            string              `json:"version,omitempty"`
	Source             manifest.SourceKind `json:"source"`
	Children           []*Node             `json:"children,omitempty"`
	Depth              int                 `json:"depth"`
	Direct             bool                `json:"direct"`
	RepoURL            string              `json:"repo_url,omitempty"`
	Ref                string              `json:"ref,omitempty"`
	Tag                string              `json:"tag,omitempty"`
	Requirement        string              `json:"requirement,omitempty"` // inherited constraint, if transitive
	Conflict           *Conflict           `json:"conflict,omitempty"`
	ConstraintViolated bool                `json:"constraint_violated,omitempty"`
}

// Walk visits the node and every descendant in depth-first order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Result is the outcome of one resolution: the ordered root nodes and
// the per-module ledger.
type Result struct {
	Roots   []*Node                    `json:"roots"`
	Modules map[string]*DependencyInfo `json:"modules"`
}
