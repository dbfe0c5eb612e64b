// ABOUTME: Tests for the incremental thread-graph model.
// ABOUTME: Covers node idempotence, pending lifecycle, edge exclusivity, layout stability, scorecards, and poll reconciliation.
package graph

import (
	"testing"
	"time"
)

func decode(t *testing.T, data string) Event {
	t.Helper()
	ev, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return ev
}

func TestAddMessageIdempotent(t *testing.T) {
	m := NewModel()
	first := m.AddMessage("m1", "alice", "hello")
	second := m.AddMessage("m1", "bob", "other text")

	if first != second {
		t.Error("re-adding m1 created a second node")
	}
	if second.Author != "alice" || second.ContentPreview != "hello" {
		t.Errorf("first-seen content lost: %+v", second)
	}

	snap := m.Snapshot()
	if len(snap.Messages) != 1 {
		t.Errorf("messages = %d, want 1", len(snap.Messages))
	}
	if got := snap.Messages[0].Position; got != (Position{Column: ClassMessage, Row: 0}) {
		t.Errorf("position = %+v", got)
	}
}

func TestEnsureThreadMergesNonEmptyOnly(t *testing.T) {
	m := NewModel()
	m.EnsureThread("t1", ThreadFields{MsgCount: 4, Keywords: []string{"deploy"}})
	node := m.EnsureThread("t1", ThreadFields{State: ThreadResolved})

	if node.MsgCount != 4 {
		t.Errorf("MsgCount = %d, want 4 (empty update must not clear)", node.MsgCount)
	}
	if len(node.Keywords) != 1 || node.Keywords[0] != "deploy" {
		t.Errorf("Keywords = %v", node.Keywords)
	}
	if node.State != ThreadResolved {
		t.Errorf("State = %q, want RESOLVED", node.State)
	}
	if len(m.Snapshot().Threads) != 1 {
		t.Error("upsert created a duplicate thread")
	}
}

func TestPendingThenPromoted(t *testing.T) {
	m := NewModel()
	m.Apply(decode(t, `{"id":1,"type":"thread_assignment","msg_id":"m1","author":"alice","content_preview":"hi","outcome":"pending"}`))

	snap := m.Snapshot()
	if len(snap.Pending) != 1 || snap.Pending[0].MsgID != "m1" {
		t.Fatalf("pending = %+v, want one entry for m1", snap.Pending)
	}
	if len(snap.Edges) != 1 || snap.Edges[0].Outcome != "pending" {
		t.Fatalf("edges = %+v", snap.Edges)
	}

	m.Apply(decode(t, `{"id":2,"type":"thread_assignment","msg_id":"m1","author":"alice","outcome":"promoted","assigned_to":"t1","threshold":0.5,"thread_scores":{"t1":{"total":0.9,"msg_count":3}}}`))

	snap = m.Snapshot()
	if len(snap.Pending) != 0 {
		t.Errorf("pending = %+v, want none after promotion", snap.Pending)
	}
	if len(snap.Threads) != 1 || snap.Threads[0].ID != "t1" {
		t.Fatalf("threads = %+v, want one node t1", snap.Threads)
	}
	if snap.Threads[0].MsgCount != 3 {
		t.Errorf("t1 MsgCount = %d, want 3 from the winning breakdown", snap.Threads[0].MsgCount)
	}
	if len(snap.Edges) != 1 {
		t.Fatalf("edges = %+v, want exactly one", snap.Edges)
	}
	edge := snap.Edges[0]
	if edge.MsgID != "m1" || edge.ThreadID != "t1" || edge.Outcome != "promoted" {
		t.Errorf("edge = %+v, want m1 -> t1 promoted", edge)
	}
	if !edge.HasScore || edge.Score != 0.9 {
		t.Errorf("edge score = %+v, want 0.9", edge)
	}
}

func TestPendingRemovalExactlyOnce(t *testing.T) {
	m := NewModel()
	m.ApplyAssignment(AssignmentPayload{MsgID: "m1", Author: "alice", Outcome: "pending"})
	m.ApplyAssignment(AssignmentPayload{MsgID: "m1", Author: "alice", Outcome: "promoted", AssignedTo: "t1"})

	// Duplicate promotion and a late expiry must both be harmless no-ops.
	m.ApplyAssignment(AssignmentPayload{MsgID: "m1", Author: "alice", Outcome: "promoted", AssignedTo: "t1"})
	m.ApplyPendingExpired("m1", "alice")

	snap := m.Snapshot()
	if len(snap.Pending) != 0 {
		t.Errorf("pending = %+v", snap.Pending)
	}
	if len(snap.Edges) != 1 {
		t.Errorf("edges = %+v, want one edge for m1", snap.Edges)
	}
}

func TestEdgeExclusivity(t *testing.T) {
	m := NewModel()
	m.ApplyAssignment(AssignmentPayload{MsgID: "m1", Author: "alice", Outcome: "assigned", AssignedTo: "t1", ThreadScores: map[string]ScoreBreakdown{"t1": {Total: 0.6}}})
	m.ApplyAssignment(AssignmentPayload{MsgID: "m1", Author: "alice", Outcome: "assigned", AssignedTo: "t2", ThreadScores: map[string]ScoreBreakdown{"t2": {Total: 0.8}}})

	snap := m.Snapshot()
	if len(snap.Edges) != 1 {
		t.Fatalf("edges = %+v, want one outgoing edge per message", snap.Edges)
	}
	if snap.Edges[0].ThreadID != "t2" || snap.Edges[0].Score != 0.8 {
		t.Errorf("edge = %+v, want latest decision t2", snap.Edges[0])
	}
	if len(snap.Threads) != 2 {
		t.Errorf("threads = %d, want both t1 and t2 retained", len(snap.Threads))
	}
}

func TestFastPathEdgeHasNoScore(t *testing.T) {
	m := NewModel()
	m.ApplyAssignment(AssignmentPayload{MsgID: "m1", Author: "alice", Outcome: "assigned", AssignedTo: "t1", FastPath: true})

	edge := m.Snapshot().Edges[0]
	if !edge.Fast || edge.HasScore {
		t.Errorf("edge = %+v, want fast sentinel without score", edge)
	}
}

func TestLifecycleTerminalSticks(t *testing.T) {
	m := NewModel()
	m.Apply(decode(t, `{"id":1,"type":"thread_lifecycle","thread_id":"t1","state":"ACTIVE"}`))
	m.Apply(decode(t, `{"id":2,"type":"thread_resolved","thread_id":"t1"}`))
	m.Apply(decode(t, `{"id":3,"type":"thread_lifecycle","thread_id":"t1","state":"ACTIVE"}`))

	snap := m.Snapshot()
	if snap.Threads[0].State != ThreadResolved {
		t.Errorf("state = %q, want RESOLVED to stick", snap.Threads[0].State)
	}
	if len(snap.Anomalies) != 1 {
		t.Errorf("anomalies = %v, want the regression surfaced", snap.Anomalies)
	}
}

func TestSplitAddsStructuralEdge(t *testing.T) {
	m := NewModel()
	m.Apply(decode(t, `{"id":1,"type":"thread_split","parent_id":"t1","child_id":"t2","reason":"topic drift"}`))

	snap := m.Snapshot()
	if len(snap.Threads) != 2 {
		t.Fatalf("threads = %d, want parent and child", len(snap.Threads))
	}
	if len(snap.Structural) != 1 || snap.Structural[0].ParentID != "t1" || snap.Structural[0].ChildID != "t2" {
		t.Errorf("structural = %+v", snap.Structural)
	}
	if len(snap.Edges) != 0 {
		t.Errorf("edges = %+v, split must not create assignment edges", snap.Edges)
	}
}

func TestPendingExpiredMatchesByAuthor(t *testing.T) {
	m := NewModel()
	m.ApplyAssignment(AssignmentPayload{MsgID: "m1", Author: "alice", Outcome: "pending"})
	m.ApplyAssignment(AssignmentPayload{MsgID: "m2", Author: "alice", Outcome: "pending"})
	m.ApplyAssignment(AssignmentPayload{MsgID: "m3", Author: "bob", Outcome: "pending"})

	m.Apply(decode(t, `{"id":4,"type":"pending_expired","author":"alice"}`))

	snap := m.Snapshot()
	if len(snap.Pending) != 2 {
		t.Fatalf("pending = %+v, want oldest alice entry removed", snap.Pending)
	}
	if snap.Pending[0].MsgID != "m2" || snap.Pending[1].MsgID != "m3" {
		t.Errorf("pending = %+v", snap.Pending)
	}

	// Unknown author is tolerated.
	m.ApplyPendingExpired("", "carol")
	if got := len(m.Snapshot().Pending); got != 2 {
		t.Errorf("pending = %d after no-op expiry", got)
	}
}

func TestRowsNeverReused(t *testing.T) {
	m := NewModel()
	m.ApplyAssignment(AssignmentPayload{MsgID: "m1", Author: "alice", Outcome: "pending"})
	m.ApplyAssignment(AssignmentPayload{MsgID: "m1", Author: "alice", Outcome: "promoted", AssignedTo: "t1"})
	m.ApplyAssignment(AssignmentPayload{MsgID: "m2", Author: "bob", Outcome: "pending"})

	snap := m.Snapshot()
	if len(snap.Pending) != 1 {
		t.Fatalf("pending = %+v", snap.Pending)
	}
	if snap.Pending[0].Position.Row != 1 {
		t.Errorf("row = %d, want 1 (row 0 stays retired)", snap.Pending[0].Position.Row)
	}
}

func TestScorecard(t *testing.T) {
	m := NewModel()
	m.ApplyAssignment(AssignmentPayload{
		MsgID:      "m1",
		Author:     "alice",
		Outcome:    "assigned",
		AssignedTo: "t2",
		Threshold:  0.5,
		ThreadScores: map[string]ScoreBreakdown{
			"t1": {Total: 0.3, Lexical: 0.3},
			"t2": {Total: 0.7, ReplyChain: 0.4, Temporal: 0.3},
		},
	})

	card, ok := m.Scorecard("m1")
	if !ok {
		t.Fatal("Scorecard returned no card")
	}
	if card.Outcome != "assigned" || card.AssignedTo != "t2" {
		t.Errorf("card = %+v", card)
	}
	if len(card.Candidates) != 2 {
		t.Fatalf("candidates = %+v", card.Candidates)
	}
	best := card.Candidates[0]
	if best.ThreadID != "t2" || !best.Best || !best.Pass {
		t.Errorf("best candidate = %+v", best)
	}
	loser := card.Candidates[1]
	if loser.ThreadID != "t1" || loser.Best || loser.Pass {
		t.Errorf("losing candidate = %+v", loser)
	}

	if _, ok := m.Scorecard("unknown"); ok {
		t.Error("unknown message produced a scorecard")
	}
}

func TestApplyThreadListLastWriteWins(t *testing.T) {
	m := NewModel()
	newer := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Minute)

	m.EnsureThread("t1", ThreadFields{MsgCount: 5, UpdatedAt: newer})
	m.ApplyThreadList([]ThreadPollEntry{
		{ID: "t1", ThreadFields: ThreadFields{MsgCount: 2, UpdatedAt: older}},
		{ID: "t2", ThreadFields: ThreadFields{State: ThreadActive, MsgCount: 1, UpdatedAt: older}},
	})

	snap := m.Snapshot()
	if len(snap.Threads) != 2 {
		t.Fatalf("threads = %+v", snap.Threads)
	}
	if snap.Threads[0].MsgCount != 5 {
		t.Errorf("t1 MsgCount = %d, stale poll must not overwrite", snap.Threads[0].MsgCount)
	}
	if snap.Threads[1].ID != "t2" || snap.Threads[1].MsgCount != 1 {
		t.Errorf("t2 = %+v, want created from poll", snap.Threads[1])
	}
}

func TestApplyPendingListIsAddOnly(t *testing.T) {
	m := NewModel()
	m.ApplyAssignment(AssignmentPayload{MsgID: "m1", Author: "alice", Outcome: "pending"})
	m.ApplyAssignment(AssignmentPayload{MsgID: "m2", Author: "bob", Outcome: "pending"})
	m.ApplyAssignment(AssignmentPayload{MsgID: "m2", Author: "bob", Outcome: "promoted", AssignedTo: "t1"})

	// Stale poll still lists m2 and omits m1; neither may regress the model.
	m.ApplyPendingList([]PendingNode{
		{MsgID: "m2", Author: "bob"},
		{MsgID: "m3", Author: "carol"},
	})

	snap := m.Snapshot()
	if len(snap.Pending) != 2 {
		t.Fatalf("pending = %+v", snap.Pending)
	}
	if snap.Pending[0].MsgID != "m1" || snap.Pending[1].MsgID != "m3" {
		t.Errorf("pending = %+v, want m1 kept, m2 resolved, m3 added", snap.Pending)
	}
}

func TestExpiredPendingNotResurrectedByStalePoll(t *testing.T) {
	m := NewModel()
	m.ApplyAssignment(AssignmentPayload{MsgID: "m1", Author: "alice", ContentPreview: "hi", Outcome: "pending"})
	m.Apply(decode(t, `{"id":2,"type":"pending_expired","msg_id":"m1","author":"alice"}`))

	// The /pending poll lags the stream; several rounds may still list m1.
	for i := 0; i < 3; i++ {
		m.ApplyPendingList([]PendingNode{{MsgID: "m1", Author: "alice"}})
	}

	snap := m.Snapshot()
	if len(snap.Pending) != 0 {
		t.Fatalf("pending = %+v, stale poll resurrected an expired node", snap.Pending)
	}
	if len(snap.Edges) != 1 || snap.Edges[0].Outcome != "expired" {
		t.Errorf("edges = %+v, want the pending edge retagged as expired", snap.Edges)
	}
}

func TestReparkedPendingRendersOnce(t *testing.T) {
	m := NewModel()
	m.ApplyAssignment(AssignmentPayload{MsgID: "m1", Author: "alice", Outcome: "pending"})
	m.ApplyPendingExpired("m1", "alice")
	m.ApplyAssignment(AssignmentPayload{MsgID: "m1", Author: "alice", Outcome: "pending"})

	snap := m.Snapshot()
	if len(snap.Pending) != 1 {
		t.Fatalf("pending = %+v, want exactly one row for m1", snap.Pending)
	}
	if snap.Pending[0].Position.Row != 1 {
		t.Errorf("row = %d, want a fresh row after expiry", snap.Pending[0].Position.Row)
	}
	if snap.Edges[0].Outcome != "pending" {
		t.Errorf("edge = %+v, want pending again after re-park", snap.Edges[0])
	}
}

func TestPendingCarriesContentPreview(t *testing.T) {
	m := NewModel()
	m.ApplyAssignment(AssignmentPayload{MsgID: "m1", Author: "alice", ContentPreview: "about the deploy", Outcome: "pending"})
	m.ApplyPendingList([]PendingNode{{MsgID: "m2", Author: "bob", ContentPreview: "lunch plans"}})

	snap := m.Snapshot()
	if len(snap.Pending) != 2 {
		t.Fatalf("pending = %+v", snap.Pending)
	}
	if snap.Pending[0].ContentPreview != "about the deploy" {
		t.Errorf("stream preview = %q", snap.Pending[0].ContentPreview)
	}
	if snap.Pending[1].ContentPreview != "lunch plans" {
		t.Errorf("poll preview = %q", snap.Pending[1].ContentPreview)
	}
}

func TestUnknownGraphEventIsNoOp(t *testing.T) {
	m := NewModel()
	m.Apply(decode(t, `{"id":1,"type":"graph_rebalance","factor":2}`))
	snap := m.Snapshot()
	if len(snap.Messages)+len(snap.Threads)+len(snap.Pending) != 0 {
		t.Errorf("unknown event mutated the model: %+v", snap)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	m := NewModel()
	m.ApplyAssignment(AssignmentPayload{
		MsgID: "m1", Author: "alice", Outcome: "assigned", AssignedTo: "t1",
		ThreadScores: map[string]ScoreBreakdown{"t1": {Total: 0.9, Keywords: []string{"deploy"}}},
	})

	snap := m.Snapshot()
	snap.Threads[0].Keywords[0] = "mutated"
	snap.Edges[0].Outcome = "mutated"
	snap.Messages[0].Assignment.Outcome = "mutated"

	clean := m.Snapshot()
	if clean.Threads[0].Keywords[0] != "deploy" {
		t.Error("thread keywords leaked through snapshot")
	}
	if clean.Edges[0].Outcome != "assigned" {
		t.Error("edge leaked through snapshot")
	}
	if clean.Messages[0].Assignment.Outcome != "assigned" {
		t.Error("assignment record leaked through snapshot")
	}
}
