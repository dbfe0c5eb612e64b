// ABOUTME: HTTP client for the Ene server's polling and control endpoints.
// ABOUTME: Tags every request with an X-Request-Id and decodes typed responses for the engine.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/IriaiSan/Ene-sub001/graph"
	"github.com/IriaiSan/Ene-sub001/pipeline"
)

// Client talks to the Ene server's REST surface: the poll fallbacks used
// while a stream is offline and the operator control actions.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given server root. timeout bounds each
// individual request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Health is the server's liveness report.
type Health struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

type threadEntry struct {
	ID           string    `json:"id"`
	State        string    `json:"state"`
	MsgCount     int       `json:"msg_count"`
	Keywords     []string  `json:"keywords"`
	Participants []string  `json:"participants"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type pendingEntry struct {
	MsgID          string `json:"msg_id"`
	Author         string `json:"author"`
	ContentPreview string `json:"content_preview"`
}

type memoryEntry struct {
	CoreCount    int `json:"core_count"`
	RecallCount  int `json:"recall_count"`
	BudgetTokens int `json:"budget_tokens"`
	UsedTokens   int `json:"used_tokens"`
}

type personEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	MsgCount     int    `json:"msg_count"`
}

// Health fetches the server liveness report.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.getJSON(ctx, "/health", &out)
	return out, err
}

// Threads fetches the polled thread list for graph reconciliation.
func (c *Client) Threads(ctx context.Context) ([]graph.ThreadPollEntry, error) {
	var raw []threadEntry
	if err := c.getJSON(ctx, "/threads", &raw); err != nil {
		return nil, err
	}
	entries := make([]graph.ThreadPollEntry, 0, len(raw))
	for _, t := range raw {
		entries = append(entries, graph.ThreadPollEntry{
			ID: t.ID,
			ThreadFields: graph.ThreadFields{
				State:        t.State,
				MsgCount:     t.MsgCount,
				Keywords:     t.Keywords,
				Participants: t.Participants,
				UpdatedAt:    t.UpdatedAt,
			},
		})
	}
	return entries, nil
}

// Pending fetches the polled pending list.
func (c *Client) Pending(ctx context.Context) ([]graph.PendingNode, error) {
	var raw []pendingEntry
	if err := c.getJSON(ctx, "/pending", &raw); err != nil {
		return nil, err
	}
	nodes := make([]graph.PendingNode, 0, len(raw))
	for _, p := range raw {
		nodes = append(nodes, graph.PendingNode{
			MsgID:          p.MsgID,
			Author:         p.Author,
			ContentPreview: p.ContentPreview,
		})
	}
	return nodes, nil
}

// Memory fetches the memory budget display data.
func (c *Client) Memory(ctx context.Context) (pipeline.MemoryInfo, error) {
	var raw memoryEntry
	if err := c.getJSON(ctx, "/memory", &raw); err != nil {
		return pipeline.MemoryInfo{}, err
	}
	return pipeline.MemoryInfo{
		CoreCount:    raw.CoreCount,
		RecallCount:  raw.RecallCount,
		BudgetTokens: raw.BudgetTokens,
		UsedTokens:   raw.UsedTokens,
	}, nil
}

// Person fetches one sender's profile.
func (c *Client) Person(ctx context.Context, id string) (pipeline.PersonInfo, error) {
	var raw personEntry
	if err := c.getJSON(ctx, "/person/"+id, &raw); err != nil {
		return pipeline.PersonInfo{}, err
	}
	return pipeline.PersonInfo{
		ID:           raw.ID,
		Name:         raw.Name,
		Relationship: raw.Relationship,
		MsgCount:     raw.MsgCount,
	}, nil
}

// Reset asks the server to hard-reset the pipeline.
func (c *Client) Reset(ctx context.Context) error {
	return c.postJSON(ctx, "/control/reset", nil)
}

// SetBrainPaused pauses or resumes the brain.
func (c *Client) SetBrainPaused(ctx context.Context, paused bool) error {
	return c.postJSON(ctx, "/control/brain", map[string]bool{"paused": paused})
}

// SetModel switches the active model slot.
func (c *Client) SetModel(ctx context.Context, slot string) error {
	return c.postJSON(ctx, "/control/model", map[string]string{"slot": slot})
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("POST %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}
