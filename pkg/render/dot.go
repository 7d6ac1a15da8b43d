package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/mfriedrich/forgedeps/pkg/resolver"
)

// DOTOptions configures Graphviz DOT export.
type DOTOptions struct {
	// Detailed includes the inherited requirement on edge labels.
	Detailed bool
}

// ToDOT converts a resolution result to Graphviz DOT format. Modules
// appearing under several parents become a single graph node, so the
// output is the dependency graph rather than the expanded tree.
// The resulting DOT string can be rendered with [RenderSVG] or
// [RenderPNG].
func ToDOT(result *resolver.Result, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	nodes := make(map[string]*resolver.Node)
	type edge struct{ from, to, label string }
	var edges []edge
	seenEdge := make(map[string]bool)

	for _, root := range result.Roots {
		root.Walk(func(n *resolver.Node) {
			if prev, ok := nodes[n.Name]; !ok || (prev.Conflict == nil && n.Conflict != nil) {
				nodes[n.Name] = n
			}
			for _, c := range n.Children {
				key := n.Name + "->" + c.Name + "/" + c.Requirement
				if seenEdge[key] {
					continue
				}
				seenEdge[key] = true
				e := edge{from: n.Name, to: c.Name}
				if opts.Detailed {
					e.label = c.Requirement
				}
				edges = append(edges, e)
			}
		})
	}

	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		n := nodes[name]
		attrs := []string{fmt.Sprintf("label=%q", dotLabel(n))}
		switch {
		case n.Conflict != nil:
			attrs = append(attrs, "fillcolor=mistyrose", "color=red")
		case n.ConstraintViolated:
			attrs = append(attrs, "fillcolor=lightyellow")
		case n.Direct:
			attrs = append(attrs, "fillcolor=lightcyan")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", name, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range edges {
		if e.label != "" {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q, fontsize=10];\n", e.from, e.to, e.label)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.from, e.to)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func dotLabel(n *resolver.Node) string {
	if n.Version == "" {
		return n.Name
	}
	return n.Name + "\n" + n.Version
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.SVG)
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.PNG)
}

func renderFormat(dot string, format graphviz.Format) ([]byte, error) {
	gv := graphviz.New()
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
