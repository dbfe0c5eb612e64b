// ABOUTME: Implements a single-line status bar showing per-stream connection badges and the brain state.
// ABOUTME: Surfaces the last failed control action until the next one succeeds.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/IriaiSan/Ene-sub001/stream"
)

// StatusBarModel displays connection and control status in a single line.
type StatusBarModel struct {
	conns       map[string]stream.ConnState
	brain       string
	model       string
	controlErr  string
	width       int
	streamOrder []string
}

// NewStatusBarModel creates a status bar tracking the given streams.
func NewStatusBarModel(streams []string) StatusBarModel {
	conns := make(map[string]stream.ConnState, len(streams))
	for _, s := range streams {
		conns[s] = stream.StateConnecting
	}
	return StatusBarModel{
		conns:       conns,
		brain:       "active",
		streamOrder: append([]string(nil), streams...),
	}
}

// SetConnState records a stream's connection state.
func (m *StatusBarModel) SetConnState(stream string, state stream.ConnState) {
	m.conns[stream] = state
}

// SetBrain records the brain status shown in the bar.
func (m *StatusBarModel) SetBrain(status string) {
	m.brain = status
}

// SetModel records the active model slot.
func (m *StatusBarModel) SetModel(model string) {
	m.model = model
}

// SetControlError records a failed control action. An empty string clears it.
func (m *StatusBarModel) SetControlError(msg string) {
	m.controlErr = msg
}

// SetWidth sets the bar width for rendering.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single styled line.
func (m StatusBarModel) View() string {
	var badges []string
	for _, name := range m.streamOrder {
		state := m.conns[name]
		badges = append(badges, fmt.Sprintf("%s:%s", name, StyleForConnState(state).Render(state.String())))
	}

	content := fmt.Sprintf("%s | brain: %s", strings.Join(badges, " "), m.brain)
	if m.model != "" {
		content += " | model: " + m.model
	}
	if m.controlErr != "" {
		content += " | " + OfflineStyle.Render("control failed: "+m.controlErr)
	}

	style := StatusBarStyle.Width(m.width)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, style.Render(content))
}
