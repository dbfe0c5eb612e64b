// ABOUTME: Renders the per-cycle pipeline state: phase, section freshness, verdicts, tool cards, and response stats.
// ABOUTME: Applies the dimmed overlay banner when the machine is lurking or the brain is paused.
package tui

import (
	"fmt"
	"strings"

	"github.com/IriaiSan/Ene-sub001/pipeline"
)

// PipelinePanelModel renders a pipeline snapshot. It owns no engine state;
// the app hands it a fresh snapshot after every dispatch.
type PipelinePanelModel struct {
	snap   pipeline.Snapshot
	width  int
	height int
}

// NewPipelinePanelModel creates an empty pipeline panel.
func NewPipelinePanelModel() PipelinePanelModel {
	return PipelinePanelModel{}
}

// SetSnapshot replaces the rendered snapshot.
func (m *PipelinePanelModel) SetSnapshot(snap pipeline.Snapshot) {
	m.snap = snap
}

// SetSize sets the available dimensions.
func (m *PipelinePanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// View renders the panel.
func (m PipelinePanelModel) View() string {
	var b strings.Builder

	title := "PIPELINE"
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")

	if m.snap.Dimmed {
		b.WriteString(DimBannerStyle.Render(m.snap.DimReason))
		b.WriteString("\n")
	}
	b.WriteString(renderLine("Phase", m.snap.Phase.String()))

	b.WriteString(m.renderSections())
	b.WriteString(m.renderIntake())
	b.WriteString(m.renderDaemon())
	b.WriteString(m.renderClassify())
	b.WriteString(m.renderLLM())
	b.WriteString(m.renderResponse())
	b.WriteString(m.renderProfile())

	body := b.String()
	if m.snap.Dimmed {
		body = DimStyle.Render(body)
	}

	return BorderStyle.
		Width(max(m.width-2, 1)).
		Height(max(m.height-2, 1)).
		Render(body)
}

func (m PipelinePanelModel) renderSections() string {
	var parts []string
	for _, sec := range pipeline.Sections {
		state := m.snap.Sections[sec]
		badge := StyleForFreshness(state.Freshness).Render(state.Freshness.String())
		parts = append(parts, fmt.Sprintf("%s:%s", sec, badge))
	}
	return renderLine("Sections", strings.Join(parts, " "))
}

func (m PipelinePanelModel) renderIntake() string {
	var b strings.Builder
	if m.snap.Buffering.BufferSize > 0 || m.snap.Buffering.BatchSize > 0 {
		b.WriteString(renderLine("Buffering",
			fmt.Sprintf("buffer=%d batch=%d", m.snap.Buffering.BufferSize, m.snap.Buffering.BatchSize)))
	}
	if m.snap.Status != nil {
		s := m.snap.Status
		b.WriteString(renderLine("Queues",
			fmt.Sprintf("buffers=%d queues=%d processing=%d muted=%d", s.Buffers, s.Queues, s.Processing, s.MutedCount)))
	}
	return b.String()
}

func (m PipelinePanelModel) renderDaemon() string {
	if m.snap.Daemon == nil {
		return ""
	}
	d := m.snap.Daemon
	verdict := fmt.Sprintf("%s (%.2f) via %s, %dms", d.Classification, d.Confidence, d.Model, d.LatencyMs)
	if d.Rich {
		verdict += " [rich]"
	}
	if d.Fallback {
		verdict += " [fallback]"
	}
	var b strings.Builder
	b.WriteString(renderLine("Daemon", verdict))
	if len(d.SecurityFlags) > 0 {
		b.WriteString(renderLine("Flags", LogErrorStyle.Render(strings.Join(d.SecurityFlags, ", "))))
	}
	return b.String()
}

func (m PipelinePanelModel) renderClassify() string {
	var b strings.Builder
	for _, row := range m.snap.Rows {
		line := fmt.Sprintf("%s -> %s (%s)", row.Sender, row.Result, row.Source)
		if row.Override {
			line += " [override]"
		}
		b.WriteString(renderLine("Classify", line))
	}
	if m.snap.Merge != nil {
		b.WriteString(renderLine("Merge",
			fmt.Sprintf("respond=%d context=%d dropped=%d",
				m.snap.Merge.Respond, m.snap.Merge.Context, m.snap.Merge.Dropped)))
	}
	if m.snap.Respond != nil {
		decision := "lurk"
		if m.snap.Respond.Decision {
			decision = "respond"
		}
		b.WriteString(renderLine("Decision", fmt.Sprintf("%s: %s", decision, m.snap.Respond.Reason)))
	}
	return b.String()
}

func (m PipelinePanelModel) renderLLM() string {
	var b strings.Builder
	if m.snap.LLMIteration > 0 {
		b.WriteString(renderLine("LLM",
			fmt.Sprintf("iter=%d model=%s msgs=%d tools=%d latency=%dms",
				m.snap.LLMIteration, m.snap.LLMModel, m.snap.LLMMessageCount,
				m.snap.LLMToolCount, m.snap.LLMTotalLatencyMs)))
	}
	for _, tool := range m.snap.Tools {
		b.WriteString(renderLine("Tool",
			fmt.Sprintf("%s %dms %s => %s", tool.Name, tool.LatencyMs, tool.ArgsPreview, tool.ResultPreview)))
	}
	if m.snap.LLMSummary != nil {
		b.WriteString(renderLine("Loop",
			fmt.Sprintf("%d iterations, %s, tools: %s",
				m.snap.LLMSummary.Iterations, m.snap.LLMSummary.Reason,
				strings.Join(m.snap.LLMSummary.ToolsUsed, ","))))
	}
	return b.String()
}

func (m PipelinePanelModel) renderResponse() string {
	if m.snap.Response == nil {
		return ""
	}
	r := m.snap.Response
	line := fmt.Sprintf("delta=%d", r.CharDelta)
	if r.Blocked {
		line = LogErrorStyle.Render("BLOCKED") + " " + line
	}
	if r.Truncated {
		line += " [truncated]"
	}
	var b strings.Builder
	b.WriteString(renderLine("Clean", line))
	if r.ContentPreview != "" {
		b.WriteString(renderLine("Sent", fmt.Sprintf("%q -> %s", r.ContentPreview, r.ReplyTo)))
	}
	return b.String()
}

func (m PipelinePanelModel) renderProfile() string {
	var b strings.Builder
	if m.snap.Person != nil {
		p := m.snap.Person
		b.WriteString(renderLine("Person",
			fmt.Sprintf("%s (%s), %d msgs", p.Name, p.Relationship, p.MsgCount)))
	}
	if m.snap.Memory != nil {
		mem := m.snap.Memory
		b.WriteString(renderLine("Memory",
			fmt.Sprintf("core=%d recall=%d tokens=%d/%d",
				mem.CoreCount, mem.RecallCount, mem.UsedTokens, mem.BudgetTokens)))
	}
	return b.String()
}

func renderLine(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value) + "\n"
}
