// ABOUTME: Renders the thread graph: message, pending, and thread columns with assignment edges.
// ABOUTME: Tracks the selected message for the scorecard detail panel.
package tui

import (
	"fmt"
	"strings"

	"github.com/IriaiSan/Ene-sub001/graph"
)

// GraphPanelModel renders a graph snapshot and owns message selection.
type GraphPanelModel struct {
	snap     graph.Snapshot
	selected int
	width    int
	height   int
	focused  bool
}

// NewGraphPanelModel creates an empty graph panel.
func NewGraphPanelModel() GraphPanelModel {
	return GraphPanelModel{}
}

// SetSnapshot replaces the rendered snapshot, clamping the selection.
func (m *GraphPanelModel) SetSnapshot(snap graph.Snapshot) {
	m.snap = snap
	if m.selected >= len(snap.Messages) {
		m.selected = len(snap.Messages) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// SetSize sets the available dimensions.
func (m *GraphPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused sets whether this panel accepts keyboard input.
func (m *GraphPanelModel) SetFocused(focused bool) {
	m.focused = focused
}

// MoveUp moves the selection toward older messages.
func (m *GraphPanelModel) MoveUp() {
	if m.selected > 0 {
		m.selected--
	}
}

// MoveDown moves the selection toward newer messages.
func (m *GraphPanelModel) MoveDown() {
	if m.selected < len(m.snap.Messages)-1 {
		m.selected++
	}
}

// SelectedMsgID returns the selected message's id, or "" when empty.
func (m GraphPanelModel) SelectedMsgID() string {
	if len(m.snap.Messages) == 0 {
		return ""
	}
	return m.snap.Messages[m.selected].ID
}

// View renders the panel.
func (m GraphPanelModel) View() string {
	title := "THREAD GRAPH"
	if m.focused {
		title = "THREAD GRAPH (focused)"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")

	edges := make(map[string]graph.Edge, len(m.snap.Edges))
	for _, e := range m.snap.Edges {
		edges[e.MsgID] = e
	}

	for i, msg := range m.snap.Messages {
		marker := "  "
		if i == m.selected && m.focused {
			marker = "> "
		}
		line := fmt.Sprintf("%s%s %s: %s", marker, msg.ID, msg.Author, msg.ContentPreview)
		if edge, ok := edges[msg.ID]; ok {
			line += " " + renderEdge(edge)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(m.snap.Pending) > 0 {
		b.WriteString(TitleStyle.Render("PENDING"))
		b.WriteString("\n")
		for _, p := range m.snap.Pending {
			line := fmt.Sprintf("  %s (%s)", p.MsgID, p.Author)
			if p.ContentPreview != "" {
				line += ": " + p.ContentPreview
			}
			b.WriteString(PendingStyle.Render(line))
			b.WriteString("\n")
		}
	}

	if len(m.snap.Threads) > 0 {
		b.WriteString(TitleStyle.Render("THREADS"))
		b.WriteString("\n")
		for _, t := range m.snap.Threads {
			b.WriteString(renderThread(t))
			b.WriteString("\n")
		}
	}

	for _, s := range m.snap.Structural {
		b.WriteString(ThreadStyle.Render(fmt.Sprintf("  %s split-> %s (%s)", s.ParentID, s.ChildID, s.Reason)))
		b.WriteString("\n")
	}

	return BorderStyle.
		Width(max(m.width-2, 1)).
		Height(max(m.height-2, 1)).
		Render(b.String())
}

func renderEdge(e graph.Edge) string {
	switch {
	case e.Outcome == "pending":
		return PendingStyle.Render("~ pending")
	case e.Outcome == "expired":
		return PendingStyle.Render("~ expired")
	case e.Fast:
		return fmt.Sprintf("-> %s [fast]", e.ThreadID)
	case e.HasScore:
		return fmt.Sprintf("-> %s (%.2f %s)", e.ThreadID, e.Score, e.Outcome)
	default:
		return fmt.Sprintf("-> %s (%s)", e.ThreadID, e.Outcome)
	}
}

func renderThread(t graph.ThreadNode) string {
	style := ThreadStyle
	if t.State != graph.ThreadActive {
		style = ResolvedStyle
	}
	line := fmt.Sprintf("  %s [%s] %d msgs", t.ID, t.State, t.MsgCount)
	if len(t.Keywords) > 0 {
		line += " " + strings.Join(t.Keywords, ",")
	}
	return style.Render(line)
}
