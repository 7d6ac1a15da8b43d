package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mfriedrich/forgedeps/pkg/manifest"
	"github.com/mfriedrich/forgedeps/pkg/resolver"
)

var (
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorDim    = lipgloss.Color("240")
	colorCyan   = lipgloss.Color("36")

	styleModule   = lipgloss.NewStyle().Bold(true)
	styleVersion  = lipgloss.NewStyle().Foreground(colorGreen)
	styleConflict = lipgloss.NewStyle().Foreground(colorRed)
	styleWarning  = lipgloss.NewStyle().Foreground(colorYellow)
	styleDim      = lipgloss.NewStyle().Foreground(colorDim)
	styleGit      = lipgloss.NewStyle().Foreground(colorCyan)
)

// TreeOptions configures terminal tree rendering.
type TreeOptions struct {
	// Color enables ANSI styling. When false the tree is plain text.
	Color bool
	// Requirements shows the inherited version requirement next to
	// each transitive dependency.
	Requirements bool
}

// Tree renders the resolved dependency forest as an indented tree
// with box-drawing connectors, one root per manifest declaration.
func Tree(result *resolver.Result, opts TreeOptions) string {
	var b strings.Builder
	for i, root := range result.Roots {
		if i > 0 {
			b.WriteString("\n")
		}
		writeNode(&b, root, "", true, true, opts)
	}
	return b.String()
}

func writeNode(b *strings.Builder, n *resolver.Node, prefix string, last, root bool, opts TreeOptions) {
	if !root {
		connector := "├── "
		if last {
			connector = "└── "
		}
		b.WriteString(prefix + connector)
	}
	b.WriteString(nodeLine(n, opts))
	b.WriteString("\n")

	childPrefix := prefix
	if !root {
		if last {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
	}
	for i, c := range n.Children {
		writeNode(b, c, childPrefix, i == len(n.Children)-1, false, opts)
	}
}

func nodeLine(n *resolver.Node, opts TreeOptions) string {
	name := n.Name
	version := n.Version
	var extras []string

	if n.Source == manifest.SourceGit {
		ref := n.Tag
		if ref == "" {
			ref = n.Ref
		}
		git := "git: " + n.RepoURL
		if ref != "" {
			git += " @" + ref
		}
		if opts.Color {
			git = styleGit.Render(git)
		}
		extras = append(extras, git)
	}

	if opts.Requirements && n.Requirement != "" {
		req := "wants " + n.Requirement
		if opts.Color {
			req = styleDim.Render(req)
		}
		extras = append(extras, req)
	}

	if n.Conflict != nil {
		marker := "✗ " + string(n.Conflict.Type)
		if opts.Color {
			marker = styleConflict.Render(marker)
		}
		extras = append(extras, marker)
	} else if n.ConstraintViolated {
		marker := "! constrained"
		if opts.Color {
			marker = styleWarning.Render(marker)
		}
		extras = append(extras, marker)
	}

	if opts.Color {
		name = styleModule.Render(name)
		if version != "" {
			version = styleVersion.Render(version)
		}
	}

	line := name
	if version != "" {
		line += " " + version
	}
	if len(extras) > 0 {
		line += " (" + strings.Join(extras, ", ") + ")"
	}
	return line
}

// Report renders a flat conflict summary: one block per conflict with
// its details and any suggested fixes. An empty string means the
// resolution is clean.
func Report(result *resolver.Result, color bool) string {
	conflicts := result.Conflicts()
	if len(conflicts) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d conflict(s) found\n\n", len(conflicts))
	for _, c := range conflicts {
		details := c.Details
		if color {
			details = styleConflict.Render(details)
		}
		b.WriteString(details + "\n")
		for _, f := range c.Fixes {
			reason := "  fix: " + f.Reason
			if color {
				reason = styleDim.Render(reason)
			}
			b.WriteString(reason + "\n")
		}
	}
	return b.String()
}
