package cli

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/RalXYZ/cc99/pkg/render/nodelink"
	"github.com/RalXYZ/cc99/pkg/vistree"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorTeal)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listRootStyle     = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
	listUnknownStyle  = StyleWarning
)

// =============================================================================
// TreeModel - Interactive tree browser
// =============================================================================

// treeRow is one visible line of the browser.
type treeRow struct {
	node  *vistree.Node
	depth int
}

// TreeModel is the bubbletea model for browsing a visualization tree.
type TreeModel struct {
	Root     *vistree.Node
	Expanded map[string]bool
	Cursor   int
	Height   int
	Offset   int

	rows    []treeRow
	parents map[string]*vistree.Node
}

// NewTreeModel creates a browser with the root and its children visible.
func NewTreeModel(root *vistree.Node) TreeModel {
	m := TreeModel{
		Root:     root,
		Expanded: map[string]bool{},
		Height:   20,
		parents:  map[string]*vistree.Node{},
	}
	vistree.Walk(root, func(n *vistree.Node, _ int) bool {
		for _, c := range n.Children {
			m.parents[c.ID] = n
		}
		return true
	})
	if root != nil {
		m.Expanded[root.ID] = true
	}
	m.rebuild()
	return m
}

// rebuild recomputes the visible rows from the expanded set.
func (m *TreeModel) rebuild() {
	m.rows = m.rows[:0]
	vistree.Walk(m.Root, func(n *vistree.Node, depth int) bool {
		m.rows = append(m.rows, treeRow{node: n, depth: depth})
		return m.Expanded[n.ID]
	})
	if m.Cursor >= len(m.rows) {
		m.Cursor = max(len(m.rows)-1, 0)
	}
}

// Selected returns the node under the cursor.
func (m TreeModel) Selected() *vistree.Node {
	if m.Cursor < len(m.rows) {
		return m.rows[m.Cursor].node
	}
	return nil
}

func (m TreeModel) Init() tea.Cmd {
	return nil
}

func (m TreeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.rows)-1 {
				m.Cursor++
			}
		case "right", "l", "enter":
			if n := m.Selected(); n != nil && len(n.Children) > 0 {
				m.Expanded[n.ID] = true
				m.rebuild()
			}
		case "left", "h":
			n := m.Selected()
			if n == nil {
				break
			}
			if m.Expanded[n.ID] && len(n.Children) > 0 {
				delete(m.Expanded, n.ID)
				m.rebuild()
			} else if p := m.parents[n.ID]; p != nil {
				m.moveTo(p.ID)
			}
		case "e":
			vistree.Walk(m.Root, func(n *vistree.Node, _ int) bool {
				if len(n.Children) > 0 {
					m.Expanded[n.ID] = true
				}
				return true
			})
			m.rebuild()
		case "c":
			sel := m.Selected()
			m.Expanded = map[string]bool{m.Root.ID: true}
			m.rebuild()
			if sel != nil {
				m.reveal(sel.ID)
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	m.scroll()
	return m, nil
}

// moveTo places the cursor on the visible row with id.
func (m *TreeModel) moveTo(id string) {
	for i, r := range m.rows {
		if r.node.ID == id {
			m.Cursor = i
			return
		}
	}
}

// reveal moves the cursor to id's closest visible ancestor.
func (m *TreeModel) reveal(id string) {
	for n := vistree.Find(m.Root, id); n != nil; n = m.parents[n.ID] {
		for i, r := range m.rows {
			if r.node == n {
				m.Cursor = i
				return
			}
		}
	}
}

func (m *TreeModel) scroll() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m TreeModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Visualization Tree"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  →/← expand/collapse  e expand all  c collapse  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.rows))
	for i := m.Offset; i < end; i++ {
		r := m.rows[i]
		b.WriteString(m.renderRow(r, i == m.Cursor))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if n := m.Selected(); n != nil {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d] #%s", m.Cursor+1, len(m.rows), n.ID)))
		b.WriteString("\n")
		for _, line := range attrLines(n) {
			b.WriteString("  " + StyleValue.Render(line) + "\n")
		}
	}
	return b.String()
}

func (m TreeModel) renderRow(r treeRow, current bool) string {
	cursor := "  "
	if current {
		cursor = "▸ "
	}
	marker := "  "
	if len(r.node.Children) > 0 {
		marker = "+ "
		if m.Expanded[r.node.ID] {
			marker = "- "
		}
	}

	label := r.node.Label
	style := listNormalStyle
	switch {
	case label == "":
		label = "(blank)"
		style = listUnknownStyle
	case strings.HasPrefix(label, "<unknown:"):
		style = listUnknownStyle
	case r.node.IsRoot():
		style = listRootStyle
	}
	if current {
		style = listSelectedStyle
	}

	line := cursor + strings.Repeat("  ", r.depth) + marker + style.Render(label)
	if summary := nodelink.Summary(r.node); summary != "" {
		line += " " + listDimStyle.Render(summary)
	}
	return line
}

// attrLines renders a node's attributes as sorted "key: value" lines.
func attrLines(n *vistree.Node) []string {
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, nodelink.Describe(n.Attrs[k])))
	}
	return lines
}
