// ABOUTME: Tests for the resumable SSE client using httptest servers.
// ABOUTME: Covers dispatch, event-name filtering, malformed-payload skip, last_id resume, and state transitions.
package stream

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// sseWrite emits one SSE event with the given name and data payload.
func sseWrite(w http.ResponseWriter, name, data string) {
	if name != "" {
		fmt.Fprintf(w, "event: %s\n", name)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// collectEvents subscribes to url and returns the first n dispatched events.
func collectEvents(t *testing.T, url string, names []string, n int) []string {
	t.Helper()

	got := make(chan string, n+8)
	client, err := Subscribe(Config{
		URL:        url,
		EventNames: names,
		RetryDelay: 10 * time.Millisecond,
		OnEvent: func(name string, data []byte) {
			got <- name + ":" + string(data)
		},
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer client.Close()

	var events []string
	for len(events) < n {
		select {
		case e := <-got:
			events = append(events, e)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d/%d events: %v", len(events), n, events)
		}
	}
	return events
}

func TestClientDispatchesNamedEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		sseWrite(w, "event", `{"id":1,"type":"msg_arrived"}`)
		sseWrite(w, "state", `{"brain_enabled":true}`)
		sseWrite(w, "other", `{"ignored":true}`)
		sseWrite(w, "event", `{"id":2,"type":"classification"}`)
		<-r.Context().Done()
	}))
	defer srv.Close()

	events := collectEvents(t, srv.URL, []string{"event", "state"}, 3)

	want := []string{
		`event:{"id":1,"type":"msg_arrived"}`,
		`state:{"brain_enabled":true}`,
		`event:{"id":2,"type":"classification"}`,
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestClientSkipsMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		sseWrite(w, "event", `{"id":1,"type":"msg_arrived"}`)
		sseWrite(w, "event", `{not json`)
		sseWrite(w, "event", `{"id":2,"type":"classification"}`)
		<-r.Context().Done()
	}))
	defer srv.Close()

	events := collectEvents(t, srv.URL, []string{"event"}, 2)

	if events[0] != `event:{"id":1,"type":"msg_arrived"}` {
		t.Errorf("first event = %q", events[0])
	}
	if events[1] != `event:{"id":2,"type":"classification"}` {
		t.Errorf("second event = %q; malformed payload should have been skipped", events[1])
	}
}

func TestClientResumesWithLastID(t *testing.T) {
	var mu sync.Mutex
	var lastIDs []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		lastIDs = append(lastIDs, r.URL.Query().Get("last_id"))
		conn := len(lastIDs)
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		if conn == 1 {
			// First connection delivers two events, then drops.
			sseWrite(w, "event", `{"id":7,"type":"msg_arrived"}`)
			sseWrite(w, "event", `{"id":9,"type":"classification"}`)
			return
		}
		sseWrite(w, "event", `{"id":10,"type":"merge_complete"}`)
		<-r.Context().Done()
	}))
	defer srv.Close()

	events := collectEvents(t, srv.URL, []string{"event"}, 3)

	if events[2] != `event:{"id":10,"type":"merge_complete"}` {
		t.Errorf("post-reconnect event = %q", events[2])
	}

	mu.Lock()
	defer mu.Unlock()
	if len(lastIDs) < 2 {
		t.Fatalf("expected at least 2 connections, got %d", len(lastIDs))
	}
	if lastIDs[0] != "" {
		t.Errorf("first connection sent last_id=%q, want none", lastIDs[0])
	}
	if lastIDs[1] != "9" {
		t.Errorf("reconnect sent last_id=%q, want \"9\"", lastIDs[1])
	}
}

func TestClientConnStateTransitions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		sseWrite(w, "event", `{"id":1,"type":"msg_arrived"}`)
		// Drop the connection to force an offline transition.
	}))
	defer srv.Close()

	states := make(chan ConnState, 16)
	client, err := Subscribe(Config{
		URL:        srv.URL,
		RetryDelay: 20 * time.Millisecond,
		OnEvent:    func(string, []byte) {},
		OnConnState: func(s ConnState) {
			states <- s
		},
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer client.Close()

	var seen []ConnState
	deadline := time.After(2 * time.Second)
	for len(seen) < 3 {
		select {
		case s := <-states:
			seen = append(seen, s)
		case <-deadline:
			t.Fatalf("timed out waiting for state transitions, saw %v", seen)
		}
	}

	want := []ConnState{StateConnecting, StateLive, StateOffline}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestClientCloseStopsReconnecting(t *testing.T) {
	var mu sync.Mutex
	conns := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		conns++
		mu.Unlock()
		w.Header().Set("Content-Type", "text/event-stream")
	}))
	defer srv.Close()

	client, err := Subscribe(Config{
		URL:        srv.URL,
		RetryDelay: 10 * time.Millisecond,
		OnEvent:    func(string, []byte) {},
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	client.Close()

	mu.Lock()
	after := conns
	mu.Unlock()

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	final := conns
	mu.Unlock()

	if final != after {
		t.Errorf("connections grew from %d to %d after Close", after, final)
	}
}

func TestSubscribeValidatesConfig(t *testing.T) {
	if _, err := Subscribe(Config{OnEvent: func(string, []byte) {}}); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := Subscribe(Config{URL: "http://localhost:1"}); err == nil {
		t.Error("expected error for missing OnEvent")
	}
}
