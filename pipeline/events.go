// ABOUTME: Event is the envelope for daemon pipeline activity, wrapping Payload variants.
// ABOUTME: Tagged union with a "type" discriminator; unknown types decode to UnknownPayload so new daemon events are provable no-ops.
package pipeline

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is one decoded pipeline event. The wire format is flat: the envelope
// fields (id, type, ts) sit alongside the type-specific fields in the same
// JSON object. Ids are monotonic per stream; the "state" snapshot event
// carries no id.
type Event struct {
	ID      uint64
	Type    string
	TS      time.Time
	Payload Payload
}

// Payload is the closed set of event variants the pipeline machine consumes.
type Payload interface {
	EventType() string
	payloadSeal()
}

// MsgArrivedPayload signals a new inbound message entering the pipeline.
// Starts a new processing cycle and triggers a person lookup intent.
type MsgArrivedPayload struct {
	Sender         string `json:"sender"`
	ContentPreview string `json:"content_preview"`
	Channel        string `json:"channel"`
}

func (p MsgArrivedPayload) EventType() string { return "msg_arrived" }
func (p MsgArrivedPayload) payloadSeal()      {}

// DebounceAddPayload reports a message buffered into the debounce window.
type DebounceAddPayload struct {
	BufferSize int `json:"buffer_size"`
}

func (p DebounceAddPayload) EventType() string { return "debounce_add" }
func (p DebounceAddPayload) payloadSeal()      {}

// DebounceFlushPayload reports the debounce window flushing a batch. This is
// the authoritative cycle boundary for batched arrivals.
type DebounceFlushPayload struct {
	BatchSize int `json:"batch_size"`
}

func (p DebounceFlushPayload) EventType() string { return "debounce_flush" }
func (p DebounceFlushPayload) payloadSeal()      {}

// DaemonResultPayload is the lean classifier verdict for the current cycle.
type DaemonResultPayload struct {
	Classification string   `json:"classification"`
	Confidence     float64  `json:"confidence"`
	Model          string   `json:"model"`
	LatencyMs      int      `json:"latency_ms"`
	Reason         string   `json:"reason"`
	Topic          string   `json:"topic"`
	Tone           string   `json:"tone"`
	SecurityFlags  []string `json:"security_flags"`
	Fallback       bool     `json:"fallback"`
}

func (p DaemonResultPayload) EventType() string { return "daemon_result" }
func (p DaemonResultPayload) payloadSeal()      {}

// PromptDaemonPayload carries the full classifier prompt (prompts stream).
type PromptDaemonPayload struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

func (p PromptDaemonPayload) EventType() string { return "prompt_daemon" }
func (p PromptDaemonPayload) payloadSeal()      {}

// PromptDaemonResponsePayload is the rich classifier verdict (prompts stream).
// It populates the same logical fields as DaemonResultPayload with a fuller
// payload; precedence between the two is a Machine configuration decision.
type PromptDaemonResponsePayload struct {
	Classification string   `json:"classification"`
	Confidence     float64  `json:"confidence"`
	Model          string   `json:"model"`
	LatencyMs      int      `json:"latency_ms"`
	Reason         string   `json:"reason"`
	Topic          string   `json:"topic"`
	Tone           string   `json:"tone"`
	SecurityFlags  []string `json:"security_flags"`
	Fallback       bool     `json:"fallback"`
	RawResponse    string   `json:"raw_response"`
}

func (p PromptDaemonResponsePayload) EventType() string { return "prompt_daemon_response" }
func (p PromptDaemonResponsePayload) payloadSeal()      {}

// PromptEnePayload carries the responder prompt (prompts stream, display only).
type PromptEnePayload struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

func (p PromptEnePayload) EventType() string { return "prompt_ene" }
func (p PromptEnePayload) payloadSeal()      {}

// PromptEneResponsePayload carries the responder output (prompts stream).
type PromptEneResponsePayload struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

func (p PromptEneResponsePayload) EventType() string { return "prompt_ene_response" }
func (p PromptEneResponsePayload) payloadSeal()      {}

// ClassificationPayload appends one per-message classification row.
type ClassificationPayload struct {
	Sender   string `json:"sender"`
	Result   string `json:"result"`
	Source   string `json:"source"`
	Override bool   `json:"override"`
}

func (p ClassificationPayload) EventType() string { return "classification" }
func (p ClassificationPayload) payloadSeal()      {}

// DadPromotionPayload reports N context messages promoted to respond-worthy.
type DadPromotionPayload struct {
	Count  int    `json:"count"`
	Reason string `json:"reason"`
}

func (p DadPromotionPayload) EventType() string { return "dad_promotion" }
func (p DadPromotionPayload) payloadSeal()      {}

// MergeCompletePayload sets the cycle's merge summary. Last value wins.
type MergeCompletePayload struct {
	RespondCount int `json:"respond_count"`
	ContextCount int `json:"context_count"`
	DroppedCount int `json:"dropped_count"`
}

func (p MergeCompletePayload) EventType() string { return "merge_complete" }
func (p MergeCompletePayload) payloadSeal()      {}

// ShouldRespondPayload records the respond decision. A false decision dims
// the dashboard behind a one-shot latch; a true decision triggers a memory
// fetch intent.
type ShouldRespondPayload struct {
	Decision bool   `json:"decision"`
	Reason   string `json:"reason"`
}

func (p ShouldRespondPayload) EventType() string { return "should_respond" }
func (p ShouldRespondPayload) payloadSeal()      {}

// LLMCallPayload reports an LLM iteration starting.
type LLMCallPayload struct {
	Iteration    int    `json:"iteration"`
	Model        string `json:"model"`
	MessageCount int    `json:"message_count"`
	ToolCount    int    `json:"tool_count"`
}

func (p LLMCallPayload) EventType() string { return "llm_call" }
func (p LLMCallPayload) payloadSeal()      {}

// ToolExecPayload appends one tool-execution card.
type ToolExecPayload struct {
	ToolName      string `json:"tool_name"`
	LatencyMs     int    `json:"latency_ms"`
	ArgsPreview   string `json:"args_preview"`
	ResultPreview string `json:"result_preview"`
}

func (p ToolExecPayload) EventType() string { return "tool_exec" }
func (p ToolExecPayload) payloadSeal()      {}

// LLMResponsePayload accumulates latency and overwrites the iteration number
// (iteration is caller-supplied, not incremented locally).
type LLMResponsePayload struct {
	Iteration int `json:"iteration"`
	LatencyMs int `json:"latency_ms"`
}

func (p LLMResponsePayload) EventType() string { return "llm_response" }
func (p LLMResponsePayload) payloadSeal()      {}

// LoopBreakPayload finalizes the LLM cycle summary.
type LoopBreakPayload struct {
	Iterations     int      `json:"iterations"`
	TotalLatencyMs int      `json:"total_latency_ms"`
	Reason         string   `json:"reason"`
	ToolsUsed      []string `json:"tools_used"`
}

func (p LoopBreakPayload) EventType() string { return "loop_break" }
func (p LoopBreakPayload) payloadSeal()      {}

// ResponseCleanPayload records post-processing stats.
type ResponseCleanPayload struct {
	Blocked   bool `json:"blocked"`
	Truncated bool `json:"truncated"`
	CharDelta int  `json:"char_delta"`
}

func (p ResponseCleanPayload) EventType() string { return "response_clean" }
func (p ResponseCleanPayload) payloadSeal()      {}

// ResponseSentPayload records the outbound reply.
type ResponseSentPayload struct {
	ContentPreview string `json:"content_preview"`
	ReplyTo        string `json:"reply_to"`
}

func (p ResponseSentPayload) EventType() string { return "response_sent" }
func (p ResponseSentPayload) payloadSeal()      {}

// BrainPausedPayload forces the dimmed overlay, independent of the lurk latch.
type BrainPausedPayload struct{}

func (p BrainPausedPayload) EventType() string { return "brain_paused" }
func (p BrainPausedPayload) payloadSeal()      {}

// BrainStatusChangedPayload reports a brain status transition.
type BrainStatusChangedPayload struct {
	Status string `json:"status"`
}

func (p BrainStatusChangedPayload) EventType() string { return "brain_status_changed" }
func (p BrainStatusChangedPayload) payloadSeal()      {}

// HardResetPayload clears all timers, accumulators, and the dimmed latch.
// The only event that takes effect while dimmed.
type HardResetPayload struct{}

func (p HardResetPayload) EventType() string { return "hard_reset" }
func (p HardResetPayload) payloadSeal()      {}

// StateSnapshotPayload is the periodic full-state snapshot delivered on the
// "state" named event. It has no id and never advances the cursor.
type StateSnapshotPayload struct {
	Buffers      int    `json:"buffers"`
	Queues       int    `json:"queues"`
	Processing   int    `json:"processing"`
	MutedCount   int    `json:"muted_count"`
	BrainEnabled bool   `json:"brain_enabled"`
	CurrentModel string `json:"current_model"`
	ActiveBatch  int    `json:"active_batch"`
}

func (p StateSnapshotPayload) EventType() string { return "state" }
func (p StateSnapshotPayload) payloadSeal()      {}

// UnknownPayload preserves forward compatibility: event types this build does
// not know are decoded, logged by the caller, and ignored by the machine.
type UnknownPayload struct {
	Type string
}

func (p UnknownPayload) EventType() string { return p.Type }
func (p UnknownPayload) payloadSeal()      {}

// envelope is the shared wire header of every event.
type envelope struct {
	ID   uint64    `json:"id"`
	Type string    `json:"type"`
	TS   time.Time `json:"ts"`
}

// Decode parses one event from its wire form. Unknown types succeed and carry
// an UnknownPayload; only malformed JSON fails.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("decode event envelope: %w", err)
	}

	payload, err := decodePayload(env.Type, data)
	if err != nil {
		return Event{}, err
	}

	return Event{
		ID:      env.ID,
		Type:    env.Type,
		TS:      env.TS,
		Payload: payload,
	}, nil
}

// DecodeState parses a "state" named event, which carries no envelope id.
func DecodeState(data []byte) (Event, error) {
	var p StateSnapshotPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Event{}, fmt.Errorf("decode state snapshot: %w", err)
	}
	return Event{Type: "state", Payload: p}, nil
}

// decodeAs unmarshals data into a fresh variant of type P.
func decodeAs[P Payload](eventType string, data []byte) (Payload, error) {
	var p P
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
	}
	return p, nil
}

func decodePayload(eventType string, data []byte) (Payload, error) {
	switch eventType {
	case "msg_arrived":
		return decodeAs[MsgArrivedPayload](eventType, data)
	case "debounce_add":
		return decodeAs[DebounceAddPayload](eventType, data)
	case "debounce_flush":
		return decodeAs[DebounceFlushPayload](eventType, data)
	case "daemon_result":
		return decodeAs[DaemonResultPayload](eventType, data)
	case "prompt_daemon":
		return decodeAs[PromptDaemonPayload](eventType, data)
	case "prompt_daemon_response":
		return decodeAs[PromptDaemonResponsePayload](eventType, data)
	case "prompt_ene":
		return decodeAs[PromptEnePayload](eventType, data)
	case "prompt_ene_response":
		return decodeAs[PromptEneResponsePayload](eventType, data)
	case "classification":
		return decodeAs[ClassificationPayload](eventType, data)
	case "dad_promotion":
		return decodeAs[DadPromotionPayload](eventType, data)
	case "merge_complete":
		return decodeAs[MergeCompletePayload](eventType, data)
	case "should_respond":
		return decodeAs[ShouldRespondPayload](eventType, data)
	case "llm_call":
		return decodeAs[LLMCallPayload](eventType, data)
	case "tool_exec":
		return decodeAs[ToolExecPayload](eventType, data)
	case "llm_response":
		return decodeAs[LLMResponsePayload](eventType, data)
	case "loop_break":
		return decodeAs[LoopBreakPayload](eventType, data)
	case "response_clean":
		return decodeAs[ResponseCleanPayload](eventType, data)
	case "response_sent":
		return decodeAs[ResponseSentPayload](eventType, data)
	case "brain_paused":
		return BrainPausedPayload{}, nil
	case "brain_status_changed":
		return decodeAs[BrainStatusChangedPayload](eventType, data)
	case "hard_reset":
		return HardResetPayload{}, nil
	case "state":
		return decodeAs[StateSnapshotPayload](eventType, data)
	default:
		return UnknownPayload{Type: eventType}, nil
	}
}
