// ABOUTME: Tagged-union event variants for the assignment/graph stream.
// ABOUTME: Decodes thread_assignment, thread_split, thread_resolved, thread_lifecycle, and pending_expired; unknown types are no-ops.
package graph

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is one decoded graph-stream event. Same flat wire format as the
// pipeline stream: envelope fields alongside type-specific fields.
type Event struct {
	ID      uint64
	Type    string
	TS      time.Time
	Payload Payload
}

// Payload is the closed set of graph-stream variants the model consumes.
type Payload interface {
	EventType() string
	payloadSeal()
}

// ScoreBreakdown is the server-computed per-candidate score decomposition.
// The dashboard only projects these numbers; it never rescores anything.
type ScoreBreakdown struct {
	Total      float64  `json:"total"`
	ReplyChain float64  `json:"reply_chain"`
	Mention    float64  `json:"mention"`
	Temporal   float64  `json:"temporal"`
	Speaker    float64  `json:"speaker"`
	Lexical    float64  `json:"lexical"`
	MsgCount   int      `json:"msg_count"`
	Keywords   []string `json:"keywords"`
}

// AssignmentPayload is a thread_assignment decision for one message.
type AssignmentPayload struct {
	MsgID          string                    `json:"msg_id"`
	Author         string                    `json:"author"`
	ContentPreview string                    `json:"content_preview"`
	Outcome        string                    `json:"outcome"`
	AssignedTo     string                    `json:"assigned_to"`
	FastPath       bool                      `json:"fast_path"`
	Threshold      float64                   `json:"threshold"`
	ThreadScores   map[string]ScoreBreakdown `json:"thread_scores"`
}

func (p AssignmentPayload) EventType() string { return "thread_assignment" }
func (p AssignmentPayload) payloadSeal()      {}

// SplitPayload reports a thread splitting off a child thread.
type SplitPayload struct {
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
	Reason   string `json:"reason"`
}

func (p SplitPayload) EventType() string { return "thread_split" }
func (p SplitPayload) payloadSeal()      {}

// ResolvedPayload reports a thread reaching the RESOLVED terminal state.
type ResolvedPayload struct {
	ThreadID string `json:"thread_id"`
}

func (p ResolvedPayload) EventType() string { return "thread_resolved" }
func (p ResolvedPayload) payloadSeal()      {}

// LifecyclePayload reports a thread state transition.
type LifecyclePayload struct {
	ThreadID string `json:"thread_id"`
	State    string `json:"state"`
}

func (p LifecyclePayload) EventType() string { return "thread_lifecycle" }
func (p LifecyclePayload) payloadSeal()      {}

// PendingExpiredPayload reports a pending message aging out. Expiry events may
// lack the message id, so the model matches by author, best effort.
type PendingExpiredPayload struct {
	MsgID  string `json:"msg_id"`
	Author string `json:"author"`
}

func (p PendingExpiredPayload) EventType() string { return "pending_expired" }
func (p PendingExpiredPayload) payloadSeal()      {}

// UnknownPayload preserves forward compatibility for graph-stream types this
// build does not know.
type UnknownPayload struct {
	Type string
}

func (p UnknownPayload) EventType() string { return p.Type }
func (p UnknownPayload) payloadSeal()      {}

type envelope struct {
	ID   uint64    `json:"id"`
	Type string    `json:"type"`
	TS   time.Time `json:"ts"`
}

// IsGraphType reports whether a wire event type belongs to the graph model.
// The graph stream multiplexes pipeline types (classification, msg_arrived,
// hard_reset) that the dispatcher routes elsewhere.
func IsGraphType(eventType string) bool {
	switch eventType {
	case "thread_assignment", "thread_split", "thread_resolved",
		"thread_lifecycle", "pending_expired":
		return true
	default:
		return false
	}
}

// Decode parses one graph-stream event from its wire form.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("decode graph event envelope: %w", err)
	}

	payload, err := decodePayload(env.Type, data)
	if err != nil {
		return Event{}, err
	}

	return Event{ID: env.ID, Type: env.Type, TS: env.TS, Payload: payload}, nil
}

func decodeAs[P Payload](eventType string, data []byte) (Payload, error) {
	var p P
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
	}
	return p, nil
}

func decodePayload(eventType string, data []byte) (Payload, error) {
	switch eventType {
	case "thread_assignment":
		return decodeAs[AssignmentPayload](eventType, data)
	case "thread_split":
		return decodeAs[SplitPayload](eventType, data)
	case "thread_resolved":
		return decodeAs[ResolvedPayload](eventType, data)
	case "thread_lifecycle":
		return decodeAs[LifecyclePayload](eventType, data)
	case "pending_expired":
		return decodeAs[PendingExpiredPayload](eventType, data)
	default:
		return UnknownPayload{Type: eventType}, nil
	}
}
