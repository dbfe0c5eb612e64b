// ABOUTME: Scripted scenario driver that emits realistic event cycles onto the journal.
// ABOUTME: Walks a message through the whole pipeline and thread graph, mutating the world as it goes.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

var roster = []Person{
	{ID: "alice", Name: "Alice", Relationship: "friend"},
	{ID: "bob", Name: "Bob", Relationship: "coworker"},
	{ID: "carol", Name: "Carol", Relationship: "stranger"},
}

var topics = []string{"deploy window", "lunch plans", "incident followup", "weekend trip"}

// Scenario emits synthetic traffic. Each step is one full pipeline cycle plus
// its graph-side assignment, so a dashboard pointed at the simulator sees the
// same shapes the real server produces.
type Scenario struct {
	journal *Journal
	world   *World
	rng     *rand.Rand

	cycle int
}

// NewScenario builds a driver over the given journal and world. seed fixes
// the traffic pattern for reproducible demos.
func NewScenario(journal *Journal, world *World, seed int64) *Scenario {
	sc := &Scenario{
		journal: journal,
		world:   world,
		rng:     rand.New(rand.NewSource(seed)),
	}
	world.mu.Lock()
	for _, p := range roster {
		world.persons[p.ID] = p
	}
	world.mu.Unlock()
	return sc
}

// Run emits one cycle per interval until the context is cancelled. Cycles are
// skipped while the brain is paused.
func (sc *Scenario) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sc.world.mu.Lock()
			paused := sc.world.paused
			sc.world.mu.Unlock()
			if paused {
				continue
			}
			if err := sc.Step(); err != nil {
				return
			}
		}
	}
}

// Step emits one complete cycle: pipeline events, the graph assignment, and a
// summary snapshot.
func (sc *Scenario) Step() error {
	sc.cycle++
	person := roster[sc.rng.Intn(len(roster))]
	topic := topics[sc.rng.Intn(len(topics))]
	msgID := ulid.Make().String()
	preview := fmt.Sprintf("about the %s", topic)

	pipe := func(eventType string, fields map[string]any) error {
		_, err := sc.journal.Append(StreamEvents, eventType, fields)
		return err
	}

	steps := []func() error{
		func() error {
			return pipe("msg_arrived", map[string]any{
				"sender": person.ID, "content_preview": preview, "channel": "general",
			})
		},
		func() error { return pipe("debounce_add", map[string]any{"buffer_size": 1}) },
		func() error { return pipe("debounce_flush", map[string]any{"batch_size": 1}) },
		func() error {
			return pipe("daemon_result", map[string]any{
				"classification": "respond",
				"confidence":     0.6 + sc.rng.Float64()*0.35,
				"model":          "daemon-lean",
				"latency_ms":     20 + sc.rng.Intn(60),
				"topic":          topic,
			})
		},
		func() error {
			return pipe("classification", map[string]any{
				"sender": person.ID, "result": "respond", "source": "daemon",
			})
		},
		func() error {
			return pipe("merge_complete", map[string]any{
				"respond_count": 1, "context_count": 0, "dropped_count": 0,
			})
		},
		func() error {
			return pipe("should_respond", map[string]any{
				"decision": true, "reason": "direct question",
			})
		},
		func() error {
			return pipe("llm_call", map[string]any{
				"iteration": 1, "model": sc.currentModel(), "message_count": 6, "tool_count": 2,
			})
		},
		func() error {
			return pipe("tool_exec", map[string]any{
				"tool_name": "memory_recall", "latency_ms": 40 + sc.rng.Intn(80),
				"args_preview": `{"query":"` + topic + `"}`, "result_preview": "3 memories",
			})
		},
		func() error {
			return pipe("llm_response", map[string]any{
				"iteration": 1, "latency_ms": 400 + sc.rng.Intn(600),
			})
		},
		func() error {
			return pipe("loop_break", map[string]any{
				"iterations": 1, "total_latency_ms": 500 + sc.rng.Intn(700),
				"reason": "final_answer", "tools_used": []string{"memory_recall"},
			})
		},
		func() error {
			return pipe("response_clean", map[string]any{
				"blocked": false, "truncated": false, "char_delta": -sc.rng.Intn(20),
			})
		},
		func() error {
			return pipe("response_sent", map[string]any{
				"content_preview": "sure, let me check", "reply_to": person.ID,
			})
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	if err := sc.emitPrompts(topic); err != nil {
		return err
	}
	if err := sc.emitAssignment(msgID, person.ID, preview, topic); err != nil {
		return err
	}
	if err := sc.emitGraphExtras(topic); err != nil {
		return err
	}
	if err := sc.emitSummary(); err != nil {
		return err
	}

	sc.world.mu.Lock()
	person.MsgCount = sc.world.persons[person.ID].MsgCount + 1
	sc.world.persons[person.ID] = person
	sc.world.memory.RecallCount++
	sc.world.memory.UsedTokens += 50 + sc.rng.Intn(150)
	sc.world.mu.Unlock()

	return nil
}

// emitPrompts mirrors the cycle on the prompts stream: the classifier prompt
// and its rich verdict, then the responder prompt and output.
func (sc *Scenario) emitPrompts(topic string) error {
	model := sc.currentModel()
	prompts := []struct {
		eventType string
		fields    map[string]any
	}{
		{"prompt_daemon", map[string]any{
			"model": "daemon-rich", "prompt": "classify: " + topic,
		}},
		{"prompt_daemon_response", map[string]any{
			"classification": "respond",
			"confidence":     0.7 + sc.rng.Float64()*0.25,
			"model":          "daemon-rich",
			"latency_ms":     120 + sc.rng.Intn(200),
			"reason":         "direct question",
			"topic":          topic,
			"tone":           "casual",
			"raw_response":   "{}",
		}},
		{"prompt_ene", map[string]any{
			"model": model, "prompt": "reply about " + topic,
		}},
		{"prompt_ene_response", map[string]any{
			"model": model, "response": "sure, let me check",
		}},
	}
	for _, p := range prompts {
		if _, err := sc.journal.Append(StreamPrompts, p.eventType, p.fields); err != nil {
			return err
		}
	}
	return nil
}

// emitAssignment parks roughly a third of messages as pending before
// promoting them into a thread; the rest are assigned directly.
func (sc *Scenario) emitAssignment(msgID, author, preview, topic string) error {
	threadID := fmt.Sprintf("t-%s", topic[:4])
	scores := map[string]any{
		threadID: map[string]any{
			"total": 0.55 + sc.rng.Float64()*0.4, "temporal": 0.2,
			"speaker": 0.15, "lexical": 0.2, "msg_count": sc.cycle,
			"keywords": []string{topic},
		},
	}

	outcome := "assigned"
	if sc.rng.Intn(3) == 0 {
		if _, err := sc.journal.Append(StreamGraph, "thread_assignment", map[string]any{
			"msg_id": msgID, "author": author, "content_preview": preview,
			"outcome": "pending",
		}); err != nil {
			return err
		}
		sc.world.mu.Lock()
		sc.world.pending = append(sc.world.pending, Pending{MsgID: msgID, Author: author, ContentPreview: preview})
		sc.world.mu.Unlock()
		outcome = "promoted"
	}

	if _, err := sc.journal.Append(StreamGraph, "thread_assignment", map[string]any{
		"msg_id": msgID, "author": author, "content_preview": preview,
		"outcome": outcome, "assigned_to": threadID,
		"threshold": 0.5, "thread_scores": scores,
	}); err != nil {
		return err
	}

	sc.world.mu.Lock()
	if outcome == "promoted" {
		filtered := sc.world.pending[:0]
		for _, p := range sc.world.pending {
			if p.MsgID != msgID {
				filtered = append(filtered, p)
			}
		}
		sc.world.pending = filtered
	}
	t, ok := sc.world.threads[threadID]
	if !ok {
		t = &Thread{ID: threadID, State: "ACTIVE", Keywords: []string{topic}}
		sc.world.threads[threadID] = t
	}
	t.MsgCount++
	t.Participants = appendUnique(t.Participants, author)
	t.UpdatedAt = time.Now().UTC()
	sc.world.mu.Unlock()

	return nil
}

// emitGraphExtras sprinkles the slower graph events over the cycle cadence:
// an occasional split, resolution, or pending expiry.
func (sc *Scenario) emitGraphExtras(topic string) error {
	if sc.cycle%7 == 0 {
		parentID := fmt.Sprintf("t-%s", topic[:4])
		childID := fmt.Sprintf("%s-%d", parentID, sc.cycle)
		if _, err := sc.journal.Append(StreamGraph, "thread_split", map[string]any{
			"parent_id": parentID, "child_id": childID, "reason": "topic drift",
		}); err != nil {
			return err
		}
		sc.world.mu.Lock()
		if _, ok := sc.world.threads[childID]; !ok {
			sc.world.threads[childID] = &Thread{ID: childID, State: "ACTIVE", Keywords: []string{topic}}
		}
		sc.world.mu.Unlock()
	}

	if sc.cycle%5 == 0 {
		sc.world.mu.Lock()
		var oldest *Thread
		for _, t := range sc.world.threads {
			if t.State != "ACTIVE" {
				continue
			}
			if oldest == nil || t.UpdatedAt.Before(oldest.UpdatedAt) {
				oldest = t
			}
		}
		var resolvedID string
		if oldest != nil {
			oldest.State = "RESOLVED"
			resolvedID = oldest.ID
		}
		sc.world.mu.Unlock()
		if resolvedID != "" {
			if _, err := sc.journal.Append(StreamGraph, "thread_resolved", map[string]any{
				"thread_id": resolvedID,
			}); err != nil {
				return err
			}
		}
	}

	sc.world.mu.Lock()
	var expired *Pending
	if len(sc.world.pending) > 1 && sc.rng.Intn(4) == 0 {
		p := sc.world.pending[0]
		sc.world.pending = sc.world.pending[1:]
		expired = &p
	}
	sc.world.mu.Unlock()
	if expired != nil {
		if _, err := sc.journal.Append(StreamGraph, "pending_expired", map[string]any{
			"msg_id": expired.MsgID, "author": expired.Author,
		}); err != nil {
			return err
		}
	}

	return nil
}

func (sc *Scenario) emitSummary() error {
	sc.world.mu.Lock()
	fields := map[string]any{
		"buffers": 0, "queues": 0, "processing": 0,
		"muted_count":   0,
		"brain_enabled": !sc.world.paused,
		"current_model": sc.world.model,
		"active_batch":  sc.cycle,
	}
	sc.world.mu.Unlock()
	_, err := sc.journal.Append(StreamEvents, "state", fields)
	return err
}

func (sc *Scenario) currentModel() string {
	sc.world.mu.Lock()
	defer sc.world.mu.Unlock()
	return sc.world.model
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
