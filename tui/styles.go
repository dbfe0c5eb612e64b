// ABOUTME: Defines lipgloss style constants for the dashboard panels, freshness badges, and connection states.
// ABOUTME: Provides StyleForFreshness and StyleForConnState to map engine enums to display styles.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/IriaiSan/Ene-sub001/pipeline"
	"github.com/IriaiSan/Ene-sub001/stream"
)

var (
	// Panel borders
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	// Title styling
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Freshness badges
	FreshStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	WarmStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	StaleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Connection badges
	LiveStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	ConnectingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	OfflineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	// Dimmed overlay for lurk/paused cycles
	DimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	DimBannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)

	// Log event colors
	LogTimestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	LogEventStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	LogErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	LogSuccessStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	// Detail panel labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(12)
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// Graph columns
	ThreadStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	PendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	ResolvedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	BestStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

// StyleForFreshness returns the badge style for a section freshness level.
func StyleForFreshness(f pipeline.Freshness) lipgloss.Style {
	switch f {
	case pipeline.Fresh:
		return FreshStyle
	case pipeline.Warm:
		return WarmStyle
	default:
		return StaleStyle
	}
}

// StyleForConnState returns the badge style for a stream connection state.
func StyleForConnState(s stream.ConnState) lipgloss.Style {
	switch s {
	case stream.StateLive:
		return LiveStyle
	case stream.StateConnecting:
		return ConnectingStyle
	default:
		return OfflineStyle
	}
}
