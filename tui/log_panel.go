// ABOUTME: Implements a scrollable raw event log panel using the bubbles viewport component.
// ABOUTME: Displays stream events with color-coded formatting based on event type.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// logEntry is one recorded stream event.
type logEntry struct {
	at     time.Time
	stream string
	name   string
	data   string
}

// LogPanelModel is a scrollable log of raw stream events.
type LogPanelModel struct {
	entries  []logEntry
	max      int
	viewport viewport.Model
	focused  bool
	width    int
	height   int
}

// NewLogPanelModel creates a new log panel with a maximum number of entries.
// If maxEntries is <= 0, it defaults to 200.
func NewLogPanelModel(maxEntries int) LogPanelModel {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	vp := viewport.New(80, 10)
	return LogPanelModel{
		entries:  make([]logEntry, 0, maxEntries),
		max:      maxEntries,
		viewport: vp,
	}
}

// Append adds an event to the log, evicting the oldest entry if at capacity.
func (m *LogPanelModel) Append(stream, name string, data []byte) {
	if len(m.entries) >= m.max {
		m.entries = m.entries[1:]
	}
	m.entries = append(m.entries, logEntry{
		at:     time.Now(),
		stream: stream,
		name:   name,
		data:   truncate(string(data), 120),
	})
	m.syncViewport()
}

// Len returns the number of entries in the log.
func (m LogPanelModel) Len() int {
	return len(m.entries)
}

// SetFocused sets whether this panel accepts keyboard input.
func (m *LogPanelModel) SetFocused(focused bool) {
	m.focused = focused
}

// Scroll forwards a scroll delta to the viewport when focused.
func (m *LogPanelModel) Scroll(lines int) {
	if lines < 0 {
		m.viewport.LineUp(-lines)
	} else {
		m.viewport.LineDown(lines)
	}
}

// SetSize sets the available dimensions and updates the viewport.
func (m *LogPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	// Reserve space for the border and title line.
	vpWidth := w - 2
	vpHeight := h - 3
	if vpWidth < 1 {
		vpWidth = 1
	}
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
	m.syncViewport()
}

// View renders the log panel.
func (m LogPanelModel) View() string {
	title := "EVENT LOG"
	if m.focused {
		title = "EVENT LOG (focused)"
	}

	var content string
	if len(m.entries) == 0 {
		content = "No events yet"
	} else {
		content = m.viewport.View()
	}

	rendered := TitleStyle.Render(title) + "\n" + content

	return BorderStyle.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(rendered)
}

// syncViewport rebuilds the viewport content from entries and scrolls to the bottom.
func (m *LogPanelModel) syncViewport() {
	if len(m.entries) == 0 {
		m.viewport.SetContent("")
		return
	}
	var lines []string
	for _, entry := range m.entries {
		lines = append(lines, formatEntry(entry))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

// formatEntry formats a single stream event as a log line.
func formatEntry(entry logEntry) string {
	ts := LogTimestampStyle.Render(entry.at.Format("15:04:05"))
	name := eventStyle(entry.name).Render(entry.name)
	return fmt.Sprintf("%s %s [%s] %s", ts, name, entry.stream, entry.data)
}

// eventStyle returns the appropriate lipgloss style for a given event type.
func eventStyle(name string) lipgloss.Style {
	switch name {
	case "response_sent", "loop_break":
		return LogSuccessStyle
	case "hard_reset", "brain_paused":
		return LogErrorStyle
	default:
		return LogEventStyle
	}
}

// truncate shortens s to at most limit runes, never splitting a multi-byte
// sequence.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
