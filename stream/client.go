// ABOUTME: Client owns one resumable SSE subscription with cursor-based replay and fixed-delay reconnect.
// ABOUTME: Parses event:/data: framed messages, dispatches them via callback, and surfaces connection state changes.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ConnState is the connection state of a subscription, surfaced to the caller
// whenever it changes.
type ConnState int

const (
	StateConnecting ConnState = iota // dialing or waiting for the first open
	StateLive                        // stream open and delivering events
	StateOffline                     // transport error; reconnect pending
)

// String returns the lowercase name of the connection state.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	case StateOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// DefaultRetryDelay is the reconnect delay for live event streams. Summary-only
// streams use a longer delay; see Config.RetryDelay.
const DefaultRetryDelay = 3 * time.Second

// Config describes one subscription.
type Config struct {
	// URL of the SSE endpoint. The client appends last_id=N from its cursor
	// on every (re)connect once at least one event has been seen.
	URL string

	// EventNames filters which SSE named events are dispatched. Empty means
	// dispatch everything.
	EventNames []string

	// RetryDelay is the fixed reconnect delay after any transport error.
	// There is no backoff growth and no retry cap: the dashboard is
	// always-on, not a finite job. Zero means DefaultRetryDelay.
	RetryDelay time.Duration

	// OnEvent receives each dispatched event: the SSE event name and the raw
	// data payload. Called from the subscription goroutine.
	OnEvent func(name string, data []byte)

	// OnConnState receives connection state transitions. Optional.
	OnConnState func(ConnState)

	// HTTPClient overrides the default http.Client. Optional.
	HTTPClient *http.Client
}

// Client is one resumable subscription. Create with Subscribe, stop with Close.
type Client struct {
	cfg    Config
	cursor Cursor
	names  map[string]bool
	cancel context.CancelFunc
	done   chan struct{}
}

// Subscribe opens a resumable subscription and starts its read loop in a
// goroutine. The subscription reconnects forever after a fixed delay until
// Close is called.
func Subscribe(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("stream: empty URL")
	}
	if cfg.OnEvent == nil {
		return nil, fmt.Errorf("stream: OnEvent callback is required")
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	var names map[string]bool
	if len(cfg.EventNames) > 0 {
		names = make(map[string]bool, len(cfg.EventNames))
		for _, n := range cfg.EventNames {
			names[n] = true
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:    cfg,
		names:  names,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go c.run(ctx)
	return c, nil
}

// Close tears down the subscription, cancelling any pending reconnect timer
// and the in-flight request. It does not wait for in-flight dispatches from
// other subscriptions; each Client is independent.
func (c *Client) Close() {
	c.cancel()
	<-c.done
}

// run is the subscription loop: connect, consume, report offline, wait, retry.
func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	for {
		c.setState(StateConnecting)
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			streamLogf("stream %s: %v", c.cfg.URL, err)
		}
		c.setState(StateOffline)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.RetryDelay):
		}
	}
}

// consume opens one connection and reads events until the transport fails or
// the context is cancelled.
func (c *Client) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resumeURL(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("connect: status %d", resp.StatusCode)
	}

	c.setState(StateLive)
	streamLogf("stream %s: live", c.cfg.URL)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	eventName := ""
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(dataLines) > 0 {
				c.dispatch(eventName, strings.Join(dataLines, "\n"))
				dataLines = dataLines[:0]
			}
			eventName = ""
			continue
		}
		switch {
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(line[len("data:"):]))
		}
		// Comment lines (":heartbeat") and unknown fields are ignored.
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return nil
}

// dispatch delivers one event and advances the cursor. A malformed payload is
// logged and skipped; it never terminates the subscription.
func (c *Client) dispatch(name, payload string) {
	if name == "" {
		name = "message"
	}
	if c.names != nil && !c.names[name] {
		return
	}

	data := []byte(payload)
	if !json.Valid(data) {
		streamLogf("stream %s: skipping malformed %s event: %q", c.cfg.URL, name, truncate(payload, 120))
		return
	}

	c.cfg.OnEvent(name, data)

	// The cursor only moves after a successful dispatch, and only when the
	// payload carries an id. Gaps are tolerated silently; the transport may
	// drop or coalesce.
	var envelope struct {
		ID *uint64 `json:"id"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.ID != nil {
		c.cursor.Advance(*envelope.ID)
	}
}

// resumeURL composes the subscription URL with last_id from the cursor. The
// server is authoritative for what "since" means; the client never requests id
// ranges it cannot justify, so a fresh cursor sends no last_id at all.
func (c *Client) resumeURL() string {
	last, ok := c.cursor.Last()
	if !ok {
		return c.cfg.URL
	}
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return c.cfg.URL
	}
	q := u.Query()
	q.Set("last_id", fmt.Sprintf("%d", last))
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) setState(s ConnState) {
	if c.cfg.OnConnState != nil {
		c.cfg.OnConnState(s)
	}
}

// truncate shortens s to at most n runes for log output.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
