// ABOUTME: Incremental thread-graph model: message, thread, and pending nodes plus scored assignment edges.
// ABOUTME: Applies push events and poll snapshots; column layout is append-only and rows are never reused.
package graph

import (
	"fmt"
	"time"
)

// NodeClass selects the layout column a node lives in.
type NodeClass int

const (
	ClassMessage NodeClass = iota
	ClassThread
	ClassPending
	nodeClassCount
)

func (c NodeClass) String() string {
	switch c {
	case ClassMessage:
		return "message"
	case ClassThread:
		return "thread"
	case ClassPending:
		return "pending"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Position is a node's slot in the column layout. Rows are allocated
// monotonically per column and never compacted, so a node's position is stable
// for its whole lifetime.
type Position struct {
	Column NodeClass
	Row    int
}

// Thread lifecycle states, as reported by the server. RESOLVED and DEAD are
// terminal.
const (
	ThreadActive   = "ACTIVE"
	ThreadResolved = "RESOLVED"
	ThreadDead     = "DEAD"
)

// MessageNode is one observed message. The node keeps its first-seen author
// and preview; later sightings of the same id are no-ops.
type MessageNode struct {
	ID             string
	Author         string
	ContentPreview string
	Position       Position

	// Assignment is the last assignment decision seen for this message, kept
	// for the scorecard detail view. Nil until the first thread_assignment.
	Assignment *AssignmentPayload
}

// ThreadNode is one conversation thread.
type ThreadNode struct {
	ID           string
	State        string
	MsgCount     int
	Keywords     []string
	Participants []string
	Position     Position
	UpdatedAt    time.Time
}

// PendingNode is a message waiting for a thread decision. It is removed
// exactly once, on promotion or expiry.
type PendingNode struct {
	MsgID          string
	Author         string
	ContentPreview string
	Position       Position
}

// Edge is a message's assignment edge. A message has at most one; a later
// decision for the same message replaces the earlier edge.
type Edge struct {
	MsgID    string
	ThreadID string // empty while the message is pending
	Outcome  string

	// Score is the winning candidate's total. Fast-path decisions carry no
	// score; Fast is the sentinel the renderer shows instead.
	Score    float64
	HasScore bool
	Fast     bool
}

// StructuralEdge links a parent thread to a child split off from it. These
// are not assignment edges and never count against edge exclusivity.
type StructuralEdge struct {
	ParentID string
	ChildID  string
	Reason   string
}

// ThreadFields carries the mergeable subset of a thread's attributes. Zero
// values mean "no information" and never overwrite existing state.
type ThreadFields struct {
	State        string
	MsgCount     int
	Keywords     []string
	Participants []string
	UpdatedAt    time.Time
}

// Model is the derived thread graph. Not safe for concurrent use; the caller
// serializes all mutation on one goroutine.
type Model struct {
	messages     map[string]*MessageNode
	messageOrder []string

	threads     map[string]*ThreadNode
	threadOrder []string

	pending      map[string]*PendingNode
	pendingOrder []string

	// retiredPending holds ids whose pending node was removed by the stream
	// (promotion or expiry). The poll reconciler consults it so a stale
	// /pending snapshot can never resurrect a removed node.
	retiredPending map[string]bool

	edges      map[string]*Edge
	structural []StructuralEdge

	nextRow [nodeClassCount]int

	anomalies []string
}

// NewModel returns an empty graph.
func NewModel() *Model {
	return &Model{
		messages:       make(map[string]*MessageNode),
		threads:        make(map[string]*ThreadNode),
		pending:        make(map[string]*PendingNode),
		retiredPending: make(map[string]bool),
		edges:          make(map[string]*Edge),
	}
}

// Apply routes one decoded graph-stream event into the model. Unknown payloads
// are ignored.
func (m *Model) Apply(ev Event) {
	switch p := ev.Payload.(type) {
	case AssignmentPayload:
		m.ApplyAssignment(p)
	case SplitPayload:
		m.ApplySplit(p.ParentID, p.ChildID, p.Reason)
	case ResolvedPayload:
		m.ApplyLifecycle(p.ThreadID, ThreadResolved)
	case LifecyclePayload:
		m.ApplyLifecycle(p.ThreadID, p.State)
	case PendingExpiredPayload:
		m.ApplyPendingExpired(p.MsgID, p.Author)
	}
}

func (m *Model) allocRow(c NodeClass) Position {
	row := m.nextRow[c]
	m.nextRow[c]++
	return Position{Column: c, Row: row}
}

// AddMessage creates a message node if it does not exist. Re-adding an
// existing id is a no-op: the first-seen content and position win.
func (m *Model) AddMessage(id, author, preview string) *MessageNode {
	if node, ok := m.messages[id]; ok {
		return node
	}
	node := &MessageNode{
		ID:             id,
		Author:         author,
		ContentPreview: preview,
		Position:       m.allocRow(ClassMessage),
	}
	m.messages[id] = node
	m.messageOrder = append(m.messageOrder, id)
	return node
}

// EnsureThread upserts a thread node, merging only the non-empty fields of
// the update into whatever is already known.
func (m *Model) EnsureThread(id string, fields ThreadFields) *ThreadNode {
	node, ok := m.threads[id]
	if !ok {
		node = &ThreadNode{
			ID:       id,
			State:    ThreadActive,
			Position: m.allocRow(ClassThread),
		}
		m.threads[id] = node
		m.threadOrder = append(m.threadOrder, id)
	}
	if fields.State != "" {
		node.State = fields.State
	}
	if fields.MsgCount > 0 {
		node.MsgCount = fields.MsgCount
	}
	if len(fields.Keywords) > 0 {
		node.Keywords = append([]string(nil), fields.Keywords...)
	}
	if len(fields.Participants) > 0 {
		node.Participants = append([]string(nil), fields.Participants...)
	}
	if !fields.UpdatedAt.IsZero() && fields.UpdatedAt.After(node.UpdatedAt) {
		node.UpdatedAt = fields.UpdatedAt
	}
	return node
}

// ApplyAssignment folds one assignment decision into the graph. A pending
// outcome parks the message in the pending column; any other outcome points
// the message's single edge at the target thread, and a promotion also
// removes the pending node, exactly once.
func (m *Model) ApplyAssignment(p AssignmentPayload) {
	msg := m.AddMessage(p.MsgID, p.Author, p.ContentPreview)
	assignment := p
	msg.Assignment = &assignment

	if p.Outcome == "pending" {
		m.addPending(p.MsgID, p.Author, p.ContentPreview)
		m.edges[p.MsgID] = &Edge{MsgID: p.MsgID, Outcome: "pending"}
		return
	}

	fields := ThreadFields{}
	if sb, ok := p.ThreadScores[p.AssignedTo]; ok {
		fields.MsgCount = sb.MsgCount
		fields.Keywords = sb.Keywords
	}
	m.EnsureThread(p.AssignedTo, fields)

	edge := &Edge{MsgID: p.MsgID, ThreadID: p.AssignedTo, Outcome: p.Outcome}
	if p.FastPath || p.Outcome == "fast" {
		edge.Fast = true
	} else if sb, ok := p.ThreadScores[p.AssignedTo]; ok {
		edge.Score = sb.Total
		edge.HasScore = true
	}
	m.edges[p.MsgID] = edge

	if p.Outcome == "promoted" {
		m.removePending(p.MsgID)
	}
}

// addPending creates a pending node if absent. An id re-parked after an
// earlier removal gets a fresh row but keeps its single pendingOrder slot.
func (m *Model) addPending(msgID, author, preview string) {
	if _, ok := m.pending[msgID]; ok {
		return
	}
	m.pending[msgID] = &PendingNode{
		MsgID:          msgID,
		Author:         author,
		ContentPreview: preview,
		Position:       m.allocRow(ClassPending),
	}
	if !m.retiredPending[msgID] {
		m.pendingOrder = append(m.pendingOrder, msgID)
	}
	delete(m.retiredPending, msgID)
}

// removePending deletes a pending node if present and marks the id retired.
// Absent ids are a no-op so that duplicate promotions and expiry races stay
// harmless.
func (m *Model) removePending(msgID string) bool {
	if _, ok := m.pending[msgID]; !ok {
		return false
	}
	delete(m.pending, msgID)
	m.retiredPending[msgID] = true
	return true
}

// ApplyLifecycle transitions a thread's state. Terminal states stick; a
// regression back to ACTIVE is recorded as an anomaly instead of applied.
func (m *Model) ApplyLifecycle(threadID, state string) {
	node := m.EnsureThread(threadID, ThreadFields{})
	if isTerminal(node.State) && state == ThreadActive {
		m.anomalies = append(m.anomalies,
			fmt.Sprintf("thread %s: %s -> ACTIVE rejected", threadID, node.State))
		return
	}
	if state != "" {
		node.State = state
	}
}

func isTerminal(state string) bool {
	return state == ThreadResolved || state == ThreadDead
}

// ApplySplit records a parent thread splitting off a child. The child thread
// node is created if unseen.
func (m *Model) ApplySplit(parentID, childID, reason string) {
	m.EnsureThread(parentID, ThreadFields{})
	m.EnsureThread(childID, ThreadFields{})
	m.structural = append(m.structural, StructuralEdge{
		ParentID: parentID,
		ChildID:  childID,
		Reason:   reason,
	})
}

// ApplyPendingExpired removes one pending node. Matches by message id when
// present, otherwise by the oldest pending entry from the same author.
// Already-gone entries are tolerated.
func (m *Model) ApplyPendingExpired(msgID, author string) {
	if msgID != "" {
		m.expirePending(msgID)
		return
	}
	for _, id := range m.pendingOrder {
		node, ok := m.pending[id]
		if ok && node.Author == author {
			m.expirePending(id)
			return
		}
	}
}

// expirePending removes one pending node and retags its pending edge so the
// message no longer renders as awaiting a decision.
func (m *Model) expirePending(msgID string) {
	if !m.removePending(msgID) {
		return
	}
	if edge, ok := m.edges[msgID]; ok && edge.Outcome == "pending" {
		edge.Outcome = "expired"
	}
}

// ThreadPollEntry is one thread row from the polling endpoint.
type ThreadPollEntry struct {
	ID string
	ThreadFields
}

// ApplyThreadList reconciles a polled thread snapshot into the model,
// last write wins per thread on UpdatedAt. Threads absent from the poll are
// kept; the push stream remains authoritative for removal-like transitions.
func (m *Model) ApplyThreadList(entries []ThreadPollEntry) {
	for _, entry := range entries {
		if node, ok := m.threads[entry.ID]; ok && !entry.UpdatedAt.IsZero() &&
			!entry.UpdatedAt.After(node.UpdatedAt) {
			continue
		}
		m.EnsureThread(entry.ID, entry.ThreadFields)
	}
}

// ApplyPendingList adds pending nodes from a polled snapshot that the stream
// has not delivered yet. The poll never removes pending nodes, and it never
// re-creates one the stream already removed; only promotion or expiry does
// removal.
func (m *Model) ApplyPendingList(entries []PendingNode) {
	for _, entry := range entries {
		if _, ok := m.pending[entry.MsgID]; ok {
			continue
		}
		if m.retiredPending[entry.MsgID] {
			// The stream already promoted or expired this message; the poll
			// is stale.
			continue
		}
		if edge, ok := m.edges[entry.MsgID]; ok && edge.Outcome != "pending" {
			// The stream already resolved this message; the poll is stale.
			continue
		}
		m.AddMessage(entry.MsgID, entry.Author, entry.ContentPreview)
		m.addPending(entry.MsgID, entry.Author, entry.ContentPreview)
		if _, ok := m.edges[entry.MsgID]; !ok {
			m.edges[entry.MsgID] = &Edge{MsgID: entry.MsgID, Outcome: "pending"}
		}
	}
}

// Anomalies returns the data irregularities observed so far, oldest first.
func (m *Model) Anomalies() []string {
	return append([]string(nil), m.anomalies...)
}
