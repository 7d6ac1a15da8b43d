package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mfriedrich/forgedeps/pkg/forge"
	"github.com/mfriedrich/forgedeps/pkg/manifest"
	"github.com/mfriedrich/forgedeps/pkg/observability"
	"github.com/mfriedrich/forgedeps/pkg/version"
)

// manifestImposer names the manifest itself as the imposer of pinned
// root requirements in the ledger.
const manifestImposer = "Puppetfile"

// Resolver expands manifest declarations into dependency trees using
// a metadata provider.
//
// A Resolver holds no per-invocation state and is safe for concurrent
// use; each Resolve call builds its own ledger and path stack.
type Resolver struct {
	provider forge.Provider
	opts     Options
}

// New creates a Resolver backed by the given metadata provider.
func New(provider forge.Provider, opts Options) *Resolver {
	return &Resolver{provider: provider, opts: opts.WithDefaults()}
}

// resolution is the state of one Resolve invocation: the requirement
// ledger plus the active DFS path used for cycle detection. It must
// never be shared across concurrent invocations.
type resolution struct {
	ledger map[string]*DependencyInfo
	path   []string
	pinned map[string]bool // modules whose manifest pin is already recorded
}

func newResolution() *resolution {
	return &resolution{
		ledger: make(map[string]*DependencyInfo),
		pinned: make(map[string]bool),
	}
}

func (rs *resolution) push(name string) {
	rs.path = append(rs.path, name)
}

func (rs *resolution) pop() {
	rs.path = rs.path[:len(rs.path)-1]
}

// onPath reports whether name is on the active path. A linear scan is
// fine here: the path never grows beyond the depth bound.
func (rs *resolution) onPath(name string) bool {
	for _, p := range rs.path {
		if p == name {
			return true
		}
	}
	return false
}

func (rs *resolution) info(name string) *DependencyInfo {
	info := rs.ledger[name]
	if info == nil {
		info = &DependencyInfo{}
		rs.ledger[name] = info
	}
	return info
}

// record appends a requirement for name, with a snapshot of the
// current path as provenance.
func (rs *resolution) record(name string, req Requirement) {
	req.Path = append([]string(nil), rs.path...)
	info := rs.info(name)
	info.Requirements = append(info.Requirements, req)
}

// edge describes one pending expansion: either a root declaration or
// a dependency edge discovered in release metadata.
type edge struct {
	name        string // normalized module name
	parent      string // imposing module, empty for roots
	requirement string // inherited constraint string, empty for roots
	pinned      string // manifest-pinned exact version
	source      manifest.SourceKind
	repoURL     string
	ref         string
	tag         string
	direct      bool
}

// Resolve expands every declaration into a dependency tree, analyzes
// the merged requirements, and annotates the tree with conflicts.
//
// Cancellation is all-or-nothing: if ctx is cancelled at any of the
// checked points, the partial tree is discarded and the context error
// returned. Provider failures never abort resolution; the affected
// node is simply left childless.
func (r *Resolver) Resolve(ctx context.Context, decls []manifest.Declaration) (*Result, error) {
	start := time.Now()
	observability.Resolver().OnResolveStart(ctx, len(decls))

	rs := newResolution()
	roots := make([]*Node, 0, len(decls))
	for _, d := range decls {
		if err := ctx.Err(); err != nil {
			observability.Resolver().OnResolveComplete(ctx, 0, 0, time.Since(start), err)
			return nil, err
		}
		roots = append(roots, r.expandRoot(ctx, rs, d))
	}

	if err := ctx.Err(); err != nil {
		observability.Resolver().OnResolveComplete(ctx, 0, 0, time.Since(start), err)
		return nil, err
	}
	r.analyze(ctx, rs)

	if err := ctx.Err(); err != nil {
		observability.Resolver().OnResolveComplete(ctx, 0, 0, time.Since(start), err)
		return nil, err
	}
	result := &Result{Roots: roots, Modules: rs.ledger}
	annotate(result)

	observability.Resolver().OnResolveComplete(ctx, len(rs.ledger), len(result.Conflicts()), time.Since(start), nil)
	return result, nil
}

func (r *Resolver) expandRoot(ctx context.Context, rs *resolution, d manifest.Declaration) *Node {
	name := forge.NormalizeName(d.Name)
	if d.Pinned() && !rs.pinned[name] {
		// The manifest pin is itself a requirement, recorded once.
		rs.pinned[name] = true
		info := rs.info(name)
		info.Requirements = append(info.Requirements, Requirement{
			Constraint: "= " + d.Version,
			ImposedBy:  manifestImposer,
			Path:       []string{name},
			Direct:     true,
		})
	}
	return r.expand(ctx, rs, edge{
		name:    name,
		pinned:  d.Version,
		source:  d.Source,
		repoURL: d.RepoURL,
		ref:     d.Ref,
		tag:     d.Tag,
		direct:  true,
	}, 0)
}

// expand builds the node for one edge and recurses into its declared
// dependencies. It always returns a node; failures only prune the
// subtree below it.
func (r *Resolver) expand(ctx context.Context, rs *resolution, e edge, depth int) *Node {
	n := &Node{
		Name:        e.name,
		Source:      e.source,
		Depth:       depth,
		Direct:      e.direct,
		RepoURL:     e.repoURL,
		Ref:         e.ref,
		Tag:         e.tag,
		Requirement: e.requirement,
	}

	// A repeat of a name on the active path is a cycle; the same name
	// in a sibling subtree is not. A module depending directly on
	// itself is degenerate rather than circular and runs into the
	// depth bound instead.
	if e.name != e.parent && rs.onPath(e.name) {
		n.Conflict = circularConflict(rs.path, e)
		return n
	}
	if depth >= r.opts.MaxDepth {
		return n
	}

	rs.push(e.name)
	defer rs.pop()

	if e.requirement != "" {
		rs.record(e.name, Requirement{
			Constraint: e.requirement,
			ImposedBy:  e.parent,
		})
	} else if e.parent != "" {
		// Unconstrained transitive edge: make sure the module still
		// appears in the ledger for annotation lookups.
		rs.info(e.name)
	}

	switch e.source {
	case manifest.SourceGit:
		r.expandVCS(ctx, rs, n, e, depth)
	default:
		r.expandRegistry(ctx, rs, n, e, depth)
	}
	return n
}

func (r *Resolver) expandRegistry(ctx context.Context, rs *resolution, n *Node, e edge, depth int) {
	mod, err := r.provider.ResolveModule(ctx, e.name)
	observability.Resolver().OnModuleFetch(ctx, e.name, depth, err)
	if err != nil {
		// Provider failures never abort the build; the node stays
		// childless and siblings continue.
		r.opts.Logger("metadata fetch failed: %s: %v", e.name, err)
		if e.pinned != "" {
			n.Version = e.pinned
		}
		return
	}
	rs.info(e.name).available = mod.AvailableVersions

	// A manifest pin is the displayed version even when the registry
	// has no matching release to expand.
	if e.pinned != "" {
		n.Version = e.pinned
	}

	rel := r.selectRelease(mod, e)
	if rel == nil {
		return
	}
	if n.Version == "" {
		n.Version = rel.Version
	}

	r.expandChildren(ctx, rs, n, rel.Dependencies, depth)
}

// selectRelease picks which release's dependency list to expand: the
// pinned release for manifest pins, otherwise the highest available
// version satisfying the inherited requirement, falling back to the
// registry's current release.
func (r *Resolver) selectRelease(mod *forge.Module, e edge) *forge.Release {
	if e.pinned != "" {
		if rel := mod.Release(e.pinned); rel != nil {
			return rel
		}
		return mod.Current
	}
	if e.requirement != "" {
		// A malformed requirement degrades to "unconstrained" instead
		// of failing the node.
		if reqs, err := version.Parse(e.requirement); err == nil {
			if best, ok := version.MaxSatisfying(mod.AvailableVersions, reqs); ok {
				if rel := mod.Release(best); rel != nil {
					return rel
				}
				return &forge.Release{Version: best}
			}
		}
	}
	return mod.Current
}

func (r *Resolver) expandVCS(ctx context.Context, rs *resolution, n *Node, e edge, depth int) {
	meta, err := r.provider.ResolveVCS(ctx, e.repoURL, forge.RefPreference(e.tag, e.ref))
	observability.Resolver().OnModuleFetch(ctx, e.name, depth, err)
	if err != nil {
		r.opts.Logger("vcs metadata fetch failed: %s: %v", e.repoURL, err)
		return
	}
	switch {
	case meta.Version != "":
		n.Version = meta.Version
	case e.tag != "":
		n.Version = e.tag
	case e.ref != "":
		n.Version = e.ref
	}

	// Dependencies declared in repository metadata resolve against the
	// registry from here on.
	r.expandChildren(ctx, rs, n, meta.Dependencies, depth)
}

func (r *Resolver) expandChildren(ctx context.Context, rs *resolution, n *Node, deps []forge.Dependency, depth int) {
	for _, dep := range deps {
		if ctx.Err() != nil {
			return
		}
		n.Children = append(n.Children, r.expand(ctx, rs, edge{
			name:        forge.NormalizeName(dep.Name),
			parent:      n.Name,
			requirement: dep.VersionRequirement,
			source:      manifest.SourceForge,
		}, depth+1))
	}
}

// circularConflict builds the verdict for a module that repeats on
// its own resolution path, e.g. "A -> B -> A".
func circularConflict(path []string, e edge) *Conflict {
	first := 0
	for i, name := range path {
		if name == e.name {
			first = i
			break
		}
	}
	chain := append(append([]string(nil), path[first:]...), e.name)

	return &Conflict{
		Type:    ConflictCircular,
		Details: "circular dependency detected: " + strings.Join(chain, " -> "),
		Fixes: []Fix{{
			Module: e.parent,
			Reason: fmt.Sprintf("remove the dependency of %s on %s to break the cycle", e.parent, e.name),
		}},
	}
}
