package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mfriedrich/forgedeps/pkg/version"
)

// analyze merges every module's collected requirements into a single
// range, checks it against the versions the registry actually offers,
// and attaches a conflict verdict where the requirements cannot be
// met. Circular conflicts are produced during expansion and never
// reach this pass.
func (r *Resolver) analyze(ctx context.Context, rs *resolution) {
	names := make([]string, 0, len(rs.ledger))
	for name := range rs.ledger {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		r.analyzeModule(name, rs.ledger[name])
	}
}

func (r *Resolver) analyzeModule(name string, info *DependencyInfo) {
	if len(info.Requirements) == 0 {
		return
	}

	// Malformed constraint strings degrade to "unconstrained" here,
	// the same way they do during expansion.
	var atoms []version.Requirement
	var parsed []Requirement
	for _, req := range info.Requirements {
		a, err := version.Parse(req.Constraint)
		if err != nil {
			r.opts.Logger("skipping malformed constraint %q on %s from %s", req.Constraint, name, req.ImposedBy)
			continue
		}
		atoms = append(atoms, a...)
		parsed = append(parsed, req)
	}
	if len(parsed) == 0 {
		return
	}

	rng := version.Intersect(atoms)
	if rng == nil {
		info.Conflict = noIntersectionConflict(name, parsed)
		return
	}
	info.Range = rng
	info.MergedRange = rng.String()

	// Without a fetched version list there is nothing to check the
	// merged range against.
	if len(info.available) == 0 {
		return
	}

	satisfying := version.SatisfyingVersions(info.available, atoms)
	if len(satisfying) == 0 {
		info.Conflict = noAvailableConflict(name, rng, parsed, info.available)
		return
	}
	info.Satisfying = satisfying
}

// noIntersectionConflict reports contradictory requirements, listing
// every imposer with the constraint it brought in.
func noIntersectionConflict(name string, reqs []Requirement) *Conflict {
	pairs := make([]string, 0, len(reqs))
	for _, req := range reqs {
		pairs = append(pairs, fmt.Sprintf("%s requires %s", req.ImposedBy, req.Constraint))
	}

	c := &Conflict{
		Type:    ConflictNoIntersection,
		Details: fmt.Sprintf("incompatible requirements for %s: %s", name, strings.Join(pairs, "; ")),
	}

	// With exactly two constraint camps there is an actionable
	// suggestion: move a transitive imposer toward the other camp.
	// Direct declarations and manifest pins are never the side asked
	// to move.
	groups := groupByConstraint(reqs)
	if len(groups) == 2 {
		for i, g := range groups {
			other := groups[1-i]
			if imp := transitiveImposer(g); imp != nil {
				c.Fixes = append(c.Fixes, Fix{
					Module:           imp.ImposedBy,
					CurrentVersion:   imp.Constraint,
					SuggestedVersion: other[0].Constraint,
					Reason: fmt.Sprintf("update %s to a release whose requirement on %s is compatible with %s (required by %s)",
						imp.ImposedBy, name, other[0].Constraint, other[0].ImposedBy),
				})
				break
			}
		}
	}
	return c
}

// noAvailableConflict reports a satisfiable range that no published
// version falls into.
func noAvailableConflict(name string, rng *version.Range, reqs []Requirement, available []string) *Conflict {
	latest := available[0]
	for _, v := range available[1:] {
		if version.Compare(v, latest) > 0 {
			latest = v
		}
	}
	samples := available
	if len(samples) > 3 {
		samples = samples[:3]
	}

	c := &Conflict{
		Type: ConflictNoAvailableVersion,
		Details: fmt.Sprintf("no available version of %s satisfies %s; available: %s (latest: %s)",
			name, rng.String(), strings.Join(samples, ", "), latest),
	}

	// When even the newest release cannot reach the required floor,
	// the only way out is loosening whichever requirement set it.
	if rng.Min != nil && version.Compare(latest, rng.Min.Version) < 0 {
		if imp := lowerBoundImposer(reqs, rng.Min.Version); imp != nil {
			c.Fixes = append(c.Fixes, Fix{
				Module:           imp.ImposedBy,
				CurrentVersion:   imp.Constraint,
				SuggestedVersion: "<= " + latest,
				Reason: fmt.Sprintf("downgrade the requirement of %s on %s: the latest published version %s is below the required floor %s",
					imp.ImposedBy, name, latest, rng.Min.Version),
			})
		}
	}
	return c
}

// groupByConstraint partitions requirements by their literal
// constraint string, preserving first-seen order.
func groupByConstraint(reqs []Requirement) [][]Requirement {
	index := make(map[string]int)
	var groups [][]Requirement
	for _, req := range reqs {
		i, ok := index[req.Constraint]
		if !ok {
			i = len(groups)
			index[req.Constraint] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], req)
	}
	return groups
}

// transitiveImposer returns the first requirement in the group not
// declared directly in the manifest, or nil if the whole group is
// direct.
func transitiveImposer(group []Requirement) *Requirement {
	for i := range group {
		if !group[i].Direct && group[i].ImposedBy != manifestImposer {
			return &group[i]
		}
	}
	return nil
}

// lowerBoundImposer finds a requirement whose constraint established
// the merged range's floor.
func lowerBoundImposer(reqs []Requirement, floor string) *Requirement {
	for i := range reqs {
		atoms, err := version.Parse(reqs[i].Constraint)
		if err != nil {
			continue
		}
		for _, a := range atoms {
			switch a.Op {
			case version.OpGreaterEq, version.OpGreater:
				if version.Compare(a.Version, floor) == 0 {
					return &reqs[i]
				}
			case version.OpPessimistic:
				if lo, _ := version.PessimisticBounds(a.Version); version.Compare(lo, floor) == 0 {
					return &reqs[i]
				}
			}
		}
	}
	return nil
}
