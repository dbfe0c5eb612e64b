// ABOUTME: Bridge connecting the SSE subscriptions and HTTP client to the Bubble Tea message loop.
// ABOUTME: Provides stream forwarding, generation-tagged async lookups, poll commands, and control-action commands.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/IriaiSan/Ene-sub001/api"
	"github.com/IriaiSan/Ene-sub001/stream"
)

// Bridge forwards out-of-loop work into the message loop via a send function,
// typically program.Send. Stream callbacks run on subscription goroutines;
// everything they produce crosses into Update as a tea.Msg.
type Bridge struct {
	send   func(msg tea.Msg)
	client *api.Client
}

// NewBridge creates a Bridge around the given send function and API client.
func NewBridge(send func(msg tea.Msg), client *api.Client) *Bridge {
	return &Bridge{send: send, client: client}
}

// StreamConfig builds a stream.Config that forwards one stream's events and
// connection changes into the loop.
func (b *Bridge) StreamConfig(label, url string, eventNames []string, retry time.Duration) stream.Config {
	return stream.Config{
		URL:        url,
		EventNames: eventNames,
		RetryDelay: retry,
		OnEvent: func(name string, data []byte) {
			b.send(StreamEventMsg{Stream: label, Name: name, Data: append([]byte(nil), data...)})
		},
		OnConnState: func(s stream.ConnState) {
			b.send(ConnStateMsg{Stream: label, State: s})
		},
	}
}

// LookupPerson implements pipeline.Effects. The result carries the generation
// it was requested under so stale lookups are dropped after a cycle boundary.
func (b *Bridge) LookupPerson(generation uint64, sender string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		person, err := b.client.Person(ctx, sender)
		b.send(PersonResultMsg{Generation: generation, Person: person, Err: err})
	}()
}

// FetchMemory implements pipeline.Effects.
func (b *Bridge) FetchMemory(generation uint64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		memory, err := b.client.Memory(ctx)
		b.send(MemoryResultMsg{Generation: generation, Memory: memory, Err: err})
	}()
}

// PollCmd returns a tea.Cmd that fetches the thread and pending fallback
// polls in one round.
func PollCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		threads, err := client.Threads(ctx)
		if err != nil {
			return PollResultMsg{Err: err}
		}
		pending, err := client.Pending(ctx)
		if err != nil {
			return PollResultMsg{Err: err}
		}
		return PollResultMsg{Threads: threads, Pending: pending}
	}
}

// ControlCmd returns a tea.Cmd that runs one control action and reports its
// outcome for the status bar.
func ControlCmd(action string, run func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return ControlResultMsg{Action: action, Err: run(ctx)}
	}
}

// TickCmd returns a tea.Cmd that sends a TickMsg after the given interval.
// Used for freshness badge refresh and elapsed-time displays.
func TickCmd(interval time.Duration) tea.Cmd {
	return func() tea.Msg {
		time.Sleep(interval)
		return TickMsg{Time: time.Now()}
	}
}
