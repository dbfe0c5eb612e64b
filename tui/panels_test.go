// ABOUTME: Tests for the individual dashboard panels.
// ABOUTME: Renders each panel against fixed snapshots and checks the visible content.
package tui

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/IriaiSan/Ene-sub001/graph"
	"github.com/IriaiSan/Ene-sub001/pipeline"
	"github.com/IriaiSan/Ene-sub001/stream"
)

func pipelineSnapshot(t *testing.T, payloads ...pipeline.Payload) pipeline.Snapshot {
	t.Helper()
	m := pipeline.NewMachine()
	for i, p := range payloads {
		m.Apply(pipeline.Event{ID: uint64(i + 1), Type: p.EventType(), TS: time.Now(), Payload: p})
	}
	return m.Snapshot()
}

func TestPipelinePanelShowsCycleState(t *testing.T) {
	snap := pipelineSnapshot(t,
		pipeline.MsgArrivedPayload{Sender: "alice", ContentPreview: "hi"},
		pipeline.DaemonResultPayload{Classification: "respond", Confidence: 0.8, Model: "d1", LatencyMs: 30},
		pipeline.ClassificationPayload{Sender: "alice", Result: "respond", Source: "daemon"},
		pipeline.MergeCompletePayload{RespondCount: 1},
		pipeline.ToolExecPayload{ToolName: "search", LatencyMs: 50},
	)

	panel := NewPipelinePanelModel()
	panel.SetSnapshot(snap)
	panel.SetSize(100, 30)
	view := panel.View()

	for _, want := range []string{"classifying", "respond (0.80)", "alice -> respond", "respond=1", "search 50ms"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestPipelinePanelShowsDimBanner(t *testing.T) {
	snap := pipelineSnapshot(t,
		pipeline.MsgArrivedPayload{Sender: "alice"},
		pipeline.ShouldRespondPayload{Decision: false, Reason: "quiet hours"},
	)

	panel := NewPipelinePanelModel()
	panel.SetSnapshot(snap)
	panel.SetSize(100, 30)

	if !strings.Contains(panel.View(), "Lurking") {
		t.Error("dim banner missing for lurking cycle")
	}
}

func TestGraphPanelSelection(t *testing.T) {
	model := graph.NewModel()
	model.ApplyAssignment(graph.AssignmentPayload{MsgID: "m1", Author: "alice", Outcome: "assigned", AssignedTo: "t1",
		ThreadScores: map[string]graph.ScoreBreakdown{"t1": {Total: 0.7}}})
	model.ApplyAssignment(graph.AssignmentPayload{MsgID: "m2", Author: "bob", ContentPreview: "lunch?", Outcome: "pending"})

	panel := NewGraphPanelModel()
	panel.SetFocused(true)
	panel.SetSnapshot(model.Snapshot())
	panel.SetSize(100, 30)

	if got := panel.SelectedMsgID(); got != "m1" {
		t.Errorf("initial selection = %q", got)
	}
	panel.MoveDown()
	if got := panel.SelectedMsgID(); got != "m2" {
		t.Errorf("selection after MoveDown = %q", got)
	}
	panel.MoveDown()
	if got := panel.SelectedMsgID(); got != "m2" {
		t.Errorf("selection moved past last message: %q", got)
	}

	view := panel.View()
	for _, want := range []string{"m1", "t1", "PENDING", "m2 (bob): lunch?"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestDetailPanelRendersScorecard(t *testing.T) {
	model := graph.NewModel()
	model.ApplyAssignment(graph.AssignmentPayload{
		MsgID: "m1", Author: "alice", Outcome: "assigned", AssignedTo: "t1", Threshold: 0.5,
		ThreadScores: map[string]graph.ScoreBreakdown{
			"t1": {Total: 0.8, ReplyChain: 0.5},
			"t2": {Total: 0.2},
		},
	})
	card, ok := model.Scorecard("m1")
	if !ok {
		t.Fatal("no scorecard")
	}

	panel := NewDetailPanelModel()
	panel.SetScorecard(card)
	panel.SetSize(100, 30)
	view := panel.View()

	for _, want := range []string{"m1", "assigned -> t1", "0.50", "t1 *", "pass", "fail"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestLogPanelEviction(t *testing.T) {
	panel := NewLogPanelModel(3)
	for i := 0; i < 5; i++ {
		panel.Append(StreamEvents, "event", []byte(`{}`))
	}
	if panel.Len() != 3 {
		t.Errorf("len = %d, want capped at 3", panel.Len())
	}
}

func TestLogTruncationIsRuneSafe(t *testing.T) {
	panel := NewLogPanelModel(10)
	panel.Append(StreamEvents, "event", []byte("x"+strings.Repeat("あ", 199)))

	entry := panel.entries[0].data
	if !utf8.ValidString(entry) {
		t.Errorf("truncated entry is not valid UTF-8: %q", entry)
	}
	if !strings.HasSuffix(entry, "...") {
		t.Errorf("entry = %q, want truncation marker", entry)
	}
	if got := utf8.RuneCountInString(strings.TrimSuffix(entry, "...")); got != 120 {
		t.Errorf("kept runes = %d, want 120", got)
	}
}

func TestStatusBarBadges(t *testing.T) {
	bar := NewStatusBarModel([]string{StreamEvents, StreamGraph})
	bar.SetConnState(StreamEvents, stream.StateLive)
	bar.SetConnState(StreamGraph, stream.StateOffline)
	bar.SetBrain("active")
	bar.SetModel("ene-large")
	bar.SetWidth(120)

	view := bar.View()
	for _, want := range []string{"events:live", "graph:offline", "brain: active", "model: ene-large"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
