// ABOUTME: Renders the scorecard detail for the selected message.
// ABOUTME: Shows per-candidate score decompositions, threshold pass/fail, and any graph anomalies.
package tui

import (
	"fmt"
	"strings"

	"github.com/IriaiSan/Ene-sub001/graph"
)

// DetailPanelModel renders the selected message's assignment scorecard.
type DetailPanelModel struct {
	card      graph.Scorecard
	hasCard   bool
	anomalies []string
	width     int
	height    int
}

// NewDetailPanelModel creates an empty detail panel.
func NewDetailPanelModel() DetailPanelModel {
	return DetailPanelModel{}
}

// SetScorecard sets the card to render.
func (m *DetailPanelModel) SetScorecard(card graph.Scorecard) {
	m.card = card
	m.hasCard = true
}

// Clear removes the current card.
func (m *DetailPanelModel) Clear() {
	m.card = graph.Scorecard{}
	m.hasCard = false
}

// SetAnomalies sets the anomaly list shown below the card.
func (m *DetailPanelModel) SetAnomalies(anomalies []string) {
	m.anomalies = anomalies
}

// SetSize sets the available dimensions.
func (m *DetailPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// View renders the panel.
func (m DetailPanelModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("SCORECARD"))
	b.WriteString("\n")

	if !m.hasCard {
		b.WriteString(StaleStyle.Render("No decision selected"))
		b.WriteString("\n")
	} else {
		b.WriteString(renderLine("Message", m.card.MsgID))
		outcome := m.card.Outcome
		if m.card.AssignedTo != "" {
			outcome += " -> " + m.card.AssignedTo
		}
		if m.card.FastPath {
			outcome += " [fast]"
		}
		b.WriteString(renderLine("Outcome", outcome))
		b.WriteString(renderLine("Threshold", fmt.Sprintf("%.2f", m.card.Threshold)))

		for _, c := range m.card.Candidates {
			b.WriteString(renderCandidate(c))
		}
	}

	for _, a := range m.anomalies {
		b.WriteString(LogErrorStyle.Render("! " + a))
		b.WriteString("\n")
	}

	return BorderStyle.
		Width(max(m.width-2, 1)).
		Height(max(m.height-2, 1)).
		Render(b.String())
}

func renderCandidate(c graph.ScoreCandidate) string {
	verdict := "fail"
	style := StaleStyle
	if c.Pass {
		verdict = "pass"
		style = FreshStyle
	}
	name := c.ThreadID
	if c.Best {
		name = BestStyle.Render(name + " *")
	}

	sb := c.Breakdown
	detail := fmt.Sprintf("reply=%.2f mention=%.2f temporal=%.2f speaker=%.2f lexical=%.2f",
		sb.ReplyChain, sb.Mention, sb.Temporal, sb.Speaker, sb.Lexical)

	return fmt.Sprintf("  %s %.2f %s\n    %s\n",
		name, sb.Total, style.Render(verdict), StaleStyle.Render(detail))
}
