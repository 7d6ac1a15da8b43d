package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mfriedrich/forgedeps/pkg/forge"
	"github.com/mfriedrich/forgedeps/pkg/manifest"
)

type fakeProvider struct {
	modules map[string]*forge.Module
	vcs     map[string]*forge.VCSMetadata
	fail    map[string]error
	fetches []string
}

func (f *fakeProvider) ResolveModule(_ context.Context, name string) (*forge.Module, error) {
	f.fetches = append(f.fetches, name)
	if err, ok := f.fail[name]; ok {
		return nil, err
	}
	mod, ok := f.modules[name]
	if !ok {
		return nil, forge.ErrNotFound
	}
	return mod, nil
}

func (f *fakeProvider) ResolveVCS(_ context.Context, repoURL, ref string) (*forge.VCSMetadata, error) {
	meta, ok := f.vcs[repoURL+"@"+ref]
	if !ok {
		return nil, forge.ErrNotFound
	}
	return meta, nil
}

// mod builds a registry module whose current release is the last one
// given.
func mod(name string, releases ...forge.Release) *forge.Module {
	m := &forge.Module{Name: name, Releases: releases}
	for _, rel := range releases {
		m.AvailableVersions = append(m.AvailableVersions, rel.Version)
	}
	if len(releases) > 0 {
		m.Current = &m.Releases[len(m.Releases)-1]
	}
	return m
}

func forgeDecl(name, version string) manifest.Declaration {
	return manifest.Declaration{Name: name, Version: version, Source: manifest.SourceForge}
}

func TestResolvePinnedRoot(t *testing.T) {
	p := &fakeProvider{modules: map[string]*forge.Module{
		"acme-app": mod("acme-app",
			forge.Release{Version: "1.0.0"},
			forge.Release{Version: "2.0.0"},
		),
	}}
	r := New(p, Options{})

	result, err := r.Resolve(context.Background(), []manifest.Declaration{forgeDecl("acme/app", "1.0.0")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(result.Roots) != 1 {
		t.Fatalf("roots = %d, want 1", len(result.Roots))
	}

	root := result.Roots[0]
	if root.Name != "acme-app" || root.Version != "1.0.0" || !root.Direct {
		t.Errorf("root = %q@%q direct=%v, want acme-app@1.0.0 direct=true", root.Name, root.Version, root.Direct)
	}

	info := result.Modules["acme-app"]
	if info == nil || len(info.Requirements) != 1 {
		t.Fatalf("ledger entry = %+v, want one requirement", info)
	}
	req := info.Requirements[0]
	if req.Constraint != "= 1.0.0" || req.ImposedBy != "Puppetfile" || !req.Direct {
		t.Errorf("pin requirement = %+v", req)
	}
	if len(req.Path) != 1 || req.Path[0] != "acme-app" {
		t.Errorf("pin path = %v, want [acme-app]", req.Path)
	}
}

func TestResolveSatisfyingVersions(t *testing.T) {
	concat := mod("acme-concat",
		forge.Release{Version: "4.0.0"},
		forge.Release{Version: "5.0.0"},
		forge.Release{Version: "6.0.0"},
		forge.Release{Version: "7.0.0"},
		forge.Release{Version: "8.0.0"},
		forge.Release{Version: "8.5.0"},
		forge.Release{Version: "9.0.0"},
		forge.Release{Version: "10.0.0"},
	)
	p := &fakeProvider{modules: map[string]*forge.Module{
		"acme-concat": concat,
		"acme-a": mod("acme-a", forge.Release{Version: "1.0.0", Dependencies: []forge.Dependency{
			{Name: "acme/concat", VersionRequirement: ">= 4.0.0 < 9.0.0"},
		}}),
		"acme-b": mod("acme-b", forge.Release{Version: "1.0.0", Dependencies: []forge.Dependency{
			{Name: "acme/concat", VersionRequirement: ">= 8.0.0"},
		}}),
	}}
	r := New(p, Options{})

	result, err := r.Resolve(context.Background(), []manifest.Declaration{
		forgeDecl("acme/a", "1.0.0"),
		forgeDecl("acme/b", "1.0.0"),
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	info := result.Modules["acme-concat"]
	if info == nil {
		t.Fatal("no ledger entry for acme-concat")
	}
	if info.Conflict != nil {
		t.Fatalf("unexpected conflict: %+v", info.Conflict)
	}
	want := []string{"8.0.0", "8.5.0"}
	if len(info.Satisfying) != len(want) {
		t.Fatalf("satisfying = %v, want %v", info.Satisfying, want)
	}
	for i := range want {
		if info.Satisfying[i] != want[i] {
			t.Fatalf("satisfying = %v, want %v", info.Satisfying, want)
		}
	}
	if info.MergedRange != ">= 8.0.0 < 9.0.0" {
		t.Errorf("merged range = %q", info.MergedRange)
	}

	// Both imposing paths survive in the ledger.
	if len(info.Requirements) != 2 {
		t.Fatalf("requirements = %+v, want 2", info.Requirements)
	}
	if info.Requirements[0].ImposedBy != "acme-a" || info.Requirements[1].ImposedBy != "acme-b" {
		t.Errorf("imposers = %q, %q", info.Requirements[0].ImposedBy, info.Requirements[1].ImposedBy)
	}
	path := info.Requirements[0].Path
	if len(path) != 2 || path[0] != "acme-a" || path[1] != "acme-concat" {
		t.Errorf("requirement path = %v", path)
	}
}

func TestResolveNoIntersection(t *testing.T) {
	p := &fakeProvider{modules: map[string]*forge.Module{
		"acme-concat": mod("acme-concat",
			forge.Release{Version: "6.5.0"},
			forge.Release{Version: "7.0.0"},
		),
		"acme-a": mod("acme-a", forge.Release{Version: "1.0.0", Dependencies: []forge.Dependency{
			{Name: "acme/concat", VersionRequirement: ">= 6.0.0 < 7.0.0"},
		}}),
		"acme-b": mod("acme-b", forge.Release{Version: "1.0.0", Dependencies: []forge.Dependency{
			{Name: "acme/concat", VersionRequirement: ">= 7.0.0"},
		}}),
	}}
	r := New(p, Options{})

	result, err := r.Resolve(context.Background(), []manifest.Declaration{
		forgeDecl("acme/a", "1.0.0"),
		forgeDecl("acme/b", "1.0.0"),
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	info := result.Modules["acme-concat"]
	if info == nil || info.Conflict == nil {
		t.Fatalf("expected conflict, got %+v", info)
	}
	c := info.Conflict
	if c.Type != ConflictNoIntersection {
		t.Errorf("conflict type = %q", c.Type)
	}
	for _, imposer := range []string{"acme-a", "acme-b"} {
		if !strings.Contains(c.Details, imposer) {
			t.Errorf("details %q missing imposer %s", c.Details, imposer)
		}
	}
	if len(c.Fixes) != 1 {
		t.Fatalf("fixes = %+v, want 1", c.Fixes)
	}
	if c.Fixes[0].Module != "acme-a" {
		t.Errorf("fix targets %q, want the first transitive imposer", c.Fixes[0].Module)
	}
}

func TestResolveNoAvailableVersion(t *testing.T) {
	p := &fakeProvider{modules: map[string]*forge.Module{
		"acme-concat": mod("acme-concat",
			forge.Release{Version: "1.0.0"},
			forge.Release{Version: "2.0.0"},
		),
		"acme-a": mod("acme-a", forge.Release{Version: "1.0.0", Dependencies: []forge.Dependency{
			{Name: "acme/concat", VersionRequirement: ">= 9.0.0"},
		}}),
	}}
	r := New(p, Options{})

	result, err := r.Resolve(context.Background(), []manifest.Declaration{forgeDecl("acme/a", "1.0.0")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	c := result.Modules["acme-concat"].Conflict
	if c == nil || c.Type != ConflictNoAvailableVersion {
		t.Fatalf("conflict = %+v, want no-available-version", c)
	}
	if !strings.Contains(c.Details, ">= 9.0.0") || !strings.Contains(c.Details, "latest: 2.0.0") {
		t.Errorf("details = %q", c.Details)
	}
	if len(c.Fixes) != 1 || c.Fixes[0].Module != "acme-a" {
		t.Fatalf("fixes = %+v", c.Fixes)
	}
	if c.Fixes[0].SuggestedVersion != "<= 2.0.0" {
		t.Errorf("suggested = %q", c.Fixes[0].SuggestedVersion)
	}
}

func TestResolveCircular(t *testing.T) {
	p := &fakeProvider{modules: map[string]*forge.Module{
		"acme-a": mod("acme-a", forge.Release{Version: "1.0.0", Dependencies: []forge.Dependency{
			{Name: "acme/b", VersionRequirement: ">= 1.0.0"},
		}}),
		"acme-b": mod("acme-b", forge.Release{Version: "1.0.0", Dependencies: []forge.Dependency{
			{Name: "acme/a", VersionRequirement: ">= 1.0.0"},
		}}),
	}}
	r := New(p, Options{})

	result, err := r.Resolve(context.Background(), []manifest.Declaration{forgeDecl("acme/a", "1.0.0")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// root a -> b -> a(circular leaf)
	b := result.Roots[0].Children[0]
	if b.Name != "acme-b" || len(b.Children) != 1 {
		t.Fatalf("unexpected tree shape: %+v", b)
	}
	leaf := b.Children[0]
	if leaf.Conflict == nil || leaf.Conflict.Type != ConflictCircular {
		t.Fatalf("leaf conflict = %+v", leaf.Conflict)
	}
	if !strings.Contains(leaf.Conflict.Details, "acme-a -> acme-b -> acme-a") {
		t.Errorf("details = %q", leaf.Conflict.Details)
	}
	if len(leaf.Children) != 0 {
		t.Errorf("circular leaf must not expand further")
	}

	found := false
	for _, c := range result.Conflicts() {
		if c.Type == ConflictCircular {
			found = true
		}
	}
	if !found {
		t.Error("circular conflict missing from Conflicts()")
	}
}

func TestResolveSelfDependencyDepthBound(t *testing.T) {
	p := &fakeProvider{modules: map[string]*forge.Module{
		"acme-loop": mod("acme-loop", forge.Release{Version: "1.0.0", Dependencies: []forge.Dependency{
			{Name: "acme/loop", VersionRequirement: ">= 1.0.0"},
		}}),
	}}
	r := New(p, Options{})

	result, err := r.Resolve(context.Background(), []manifest.Declaration{forgeDecl("acme/loop", "1.0.0")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	n := result.Roots[0]
	depth := 0
	for len(n.Children) == 1 {
		n = n.Children[0]
		depth++
	}
	if depth != DefaultMaxDepth {
		t.Errorf("chain depth = %d, want %d", depth, DefaultMaxDepth)
	}
	if n.Depth != DefaultMaxDepth {
		t.Errorf("leaf depth = %d", n.Depth)
	}
	if n.Conflict != nil {
		t.Errorf("depth-bound leaf flagged as conflict: %+v", n.Conflict)
	}
}

func TestResolveProviderFailure(t *testing.T) {
	p := &fakeProvider{
		modules: map[string]*forge.Module{},
		fail:    map[string]error{"acme-app": errors.New("connection refused")},
	}
	r := New(p, Options{})

	result, err := r.Resolve(context.Background(), []manifest.Declaration{forgeDecl("acme/app", "1.2.3")})
	if err != nil {
		t.Fatalf("fetch failures must not abort resolution: %v", err)
	}

	root := result.Roots[0]
	if len(root.Children) != 0 {
		t.Errorf("failed node must stay childless")
	}
	if root.Version != "1.2.3" {
		t.Errorf("pinned version still displayed, got %q", root.Version)
	}
}

func TestResolvePinnedReleaseMissingFromRegistry(t *testing.T) {
	// The registry knows the module but has neither the pinned release
	// nor a current one.
	p := &fakeProvider{modules: map[string]*forge.Module{
		"acme-app": {Name: "acme-app"},
	}}
	r := New(p, Options{})

	result, err := r.Resolve(context.Background(), []manifest.Declaration{forgeDecl("acme/app", "3.1.4")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	root := result.Roots[0]
	if root.Version != "3.1.4" {
		t.Errorf("version = %q, want the manifest pin 3.1.4", root.Version)
	}
	if len(root.Children) != 0 {
		t.Errorf("node without an expandable release must stay childless")
	}
	if root.Conflict != nil {
		t.Errorf("unexpected conflict: %+v", root.Conflict)
	}
}

func TestResolveCancelled(t *testing.T) {
	p := &fakeProvider{modules: map[string]*forge.Module{
		"acme-app": mod("acme-app", forge.Release{Version: "1.0.0"}),
	}}
	r := New(p, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := r.Resolve(ctx, []manifest.Declaration{forgeDecl("acme/app", "1.0.0")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if result != nil {
		t.Error("cancellation must discard the partial tree")
	}
}

func TestResolveVCS(t *testing.T) {
	p := &fakeProvider{
		modules: map[string]*forge.Module{
			"acme-stdlib": mod("acme-stdlib", forge.Release{Version: "9.0.0"}),
		},
		vcs: map[string]*forge.VCSMetadata{
			"https://github.com/acme/custom@v2.1.0": {
				Name:    "acme-custom",
				Version: "2.1.0",
				Dependencies: []forge.Dependency{
					{Name: "acme/stdlib", VersionRequirement: ">= 9.0.0"},
				},
			},
		},
	}
	r := New(p, Options{})

	result, err := r.Resolve(context.Background(), []manifest.Declaration{{
		Name:    "acme/custom",
		Source:  manifest.SourceGit,
		RepoURL: "https://github.com/acme/custom",
		Tag:     "v2.1.0",
	}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	root := result.Roots[0]
	if root.Source != manifest.SourceGit || root.Version != "2.1.0" {
		t.Errorf("root = %+v", root)
	}
	if len(root.Children) != 1 || root.Children[0].Name != "acme-stdlib" {
		t.Fatalf("vcs dependencies must expand against the registry: %+v", root.Children)
	}
	if root.Children[0].Source != manifest.SourceForge {
		t.Errorf("child source = %q", root.Children[0].Source)
	}
}

func TestResolveAnnotation(t *testing.T) {
	p := &fakeProvider{modules: map[string]*forge.Module{
		"acme-concat": mod("acme-concat", forge.Release{Version: "6.5.0"}),
		"acme-a": mod("acme-a", forge.Release{Version: "1.0.0", Dependencies: []forge.Dependency{
			{Name: "acme/concat", VersionRequirement: ">= 6.0.0 < 7.0.0"},
		}}),
		"acme-b": mod("acme-b", forge.Release{Version: "1.0.0", Dependencies: []forge.Dependency{
			{Name: "acme/concat", VersionRequirement: ">= 7.0.0"},
		}}),
	}}
	r := New(p, Options{})

	result, err := r.Resolve(context.Background(), []manifest.Declaration{
		forgeDecl("acme/a", "1.0.0"),
		forgeDecl("acme/b", "1.0.0"),
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	var marked []*Node
	for _, root := range result.Roots {
		root.Walk(func(n *Node) {
			if n.Name == "acme-concat" {
				marked = append(marked, n)
			}
		})
	}
	if len(marked) != 2 {
		t.Fatalf("expected concat under both roots, got %d", len(marked))
	}
	for _, n := range marked {
		if n.Conflict == nil || !n.ConstraintViolated {
			t.Errorf("node %s@depth %d not annotated", n.Name, n.Depth)
		}
	}

	summary := result.Summary()
	if len(summary) == 0 || !strings.Contains(summary[0], "acme-concat") {
		t.Errorf("summary = %v", summary)
	}
}
