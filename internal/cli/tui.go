package cli

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mfriedrich/forgedeps/pkg/resolver"
)

// errBrowserQuit is returned when the user leaves the conflict
// browser without selecting anything; callers treat it as success.
var errBrowserQuit = errors.New("conflict browser closed")

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	conflictTypeStyle = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
)

// runConflictBrowser opens an interactive list of conflicts with
// their provenance and suggested fixes.
func runConflictBrowser(result *resolver.Result) error {
	m := newConflictModel(result)
	p := tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(conflictModel); ok && fm.quit {
		return errBrowserQuit
	}
	return nil
}

// conflictModel is the bubbletea model for conflict browsing: a
// cursor over the conflict list with a detail pane for the selection.
type conflictModel struct {
	conflicts []*resolver.Conflict
	modules   map[string]*resolver.DependencyInfo
	cursor    int
	height    int
	offset    int
	quit      bool
}

func newConflictModel(result *resolver.Result) conflictModel {
	return conflictModel{
		conflicts: result.Conflicts(),
		modules:   result.Modules,
		height:    10,
	}
}

func (m conflictModel) Init() tea.Cmd {
	return nil
}

func (m conflictModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quit = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.conflicts)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 10
		if m.height < 3 {
			m.height = 3
		}
	}
	return m, nil
}

func (m conflictModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Dependency Conflicts"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.conflicts) {
		end = len(m.conflicts)
	}

	for i := m.offset; i < end; i++ {
		c := m.conflicts[i]
		line := fmt.Sprintf("[%s] %s", c.Type, firstLine(c.Details))
		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render("▸ " + line))
		} else {
			b.WriteString(listNormalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	if m.cursor < len(m.conflicts) {
		b.WriteString("\n")
		b.WriteString(m.detailView(m.conflicts[m.cursor]))
	}

	return b.String()
}

// detailView renders the selected conflict's full details, the paths
// that imposed the clashing requirements, and suggested fixes.
func (m conflictModel) detailView(c *resolver.Conflict) string {
	var b strings.Builder

	b.WriteString(conflictTypeStyle.Render(string(c.Type)))
	b.WriteString("\n")
	b.WriteString(c.Details)
	b.WriteString("\n")

	if name := conflictModule(m.modules, c); name != "" {
		info := m.modules[name]
		for _, req := range info.Requirements {
			b.WriteString(listDimStyle.Render(fmt.Sprintf("  %s  via %s", req.Constraint, strings.Join(req.Path, " → "))))
			b.WriteString("\n")
		}
	}

	for _, f := range c.Fixes {
		b.WriteString(StyleWarning.Render("  fix: " + f.Reason))
		b.WriteString("\n")
	}
	return b.String()
}

// conflictModule finds the ledger module carrying this conflict.
func conflictModule(modules map[string]*resolver.DependencyInfo, c *resolver.Conflict) string {
	for name, info := range modules {
		if info.Conflict == c {
			return name
		}
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
