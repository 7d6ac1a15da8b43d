package resolver

import "sort"

// annotate copies ledger conflicts onto every tree node whose name
// carries one. Circular conflicts were already attached to their node
// during expansion and are left in place.
func annotate(result *Result) {
	for _, root := range result.Roots {
		root.Walk(func(n *Node) {
			info := result.Modules[n.Name]
			if info == nil || info.Conflict == nil {
				return
			}
			if n.Conflict == nil {
				n.Conflict = info.Conflict
			}
			n.ConstraintViolated = true
		})
	}
}

// Conflicts returns every distinct conflict in the result: one per
// ledger module plus the circular conflicts that only live on nodes.
func (r *Result) Conflicts() []*Conflict {
	seen := make(map[*Conflict]bool)
	var out []*Conflict
	add := func(c *Conflict) {
		if c != nil && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	for _, root := range r.Roots {
		root.Walk(func(n *Node) { add(n.Conflict) })
	}
	names := make([]string, 0, len(r.Modules))
	for name := range r.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		add(r.Modules[name].Conflict)
	}
	return out
}

// Summary flattens the result's conflicts into printable lines:
// details first, then each suggested fix.
func (r *Result) Summary() []string {
	var out []string
	for _, c := range r.Conflicts() {
		out = append(out, c.Details)
		for _, f := range c.Fixes {
			out = append(out, "  fix: "+f.Reason)
		}
	}
	return out
}
