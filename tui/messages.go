// ABOUTME: Bubble Tea message types used in the dashboard message loop.
// ABOUTME: Each type wraps a stream event, connection change, poll result, or async lookup for the tea.Msg interface.
package tui

import (
	"time"

	"github.com/IriaiSan/Ene-sub001/graph"
	"github.com/IriaiSan/Ene-sub001/pipeline"
	"github.com/IriaiSan/Ene-sub001/stream"
)

// Stream labels used across messages and the status bar. They match the
// server's SSE endpoints: /events, /prompts, and /graph.
const (
	StreamEvents  = "events"
	StreamPrompts = "prompts"
	StreamGraph   = "graph"
)

// StreamEventMsg wraps one raw SSE event for the message loop. Decoding
// happens in Update so every state mutation stays on the TUI goroutine.
type StreamEventMsg struct {
	Stream string
	Name   string
	Data   []byte
}

// ConnStateMsg reports a connection state change on one stream.
type ConnStateMsg struct {
	Stream string
	State  stream.ConnState
}

// PersonResultMsg carries a finished person lookup back into the loop.
type PersonResultMsg struct {
	Generation uint64
	Person     pipeline.PersonInfo
	Err        error
}

// MemoryResultMsg carries a finished memory fetch back into the loop.
type MemoryResultMsg struct {
	Generation uint64
	Memory     pipeline.MemoryInfo
	Err        error
}

// PollResultMsg carries one round of the thread/pending fallback poll.
type PollResultMsg struct {
	Threads []graph.ThreadPollEntry
	Pending []graph.PendingNode
	Err     error
}

// ControlResultMsg reports the outcome of an operator control action.
type ControlResultMsg struct {
	Action string
	Err    error
}

// TickMsg is sent periodically to refresh freshness badges and elapsed times.
type TickMsg struct {
	Time time.Time
}
