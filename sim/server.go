// ABOUTME: Simulated Ene server: SSE streams with last_id replay, poll endpoints, and control actions.
// ABOUTME: Backs a chi router with the sqlite journal and an in-memory world the scenario driver mutates.
package sim

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Thread is one simulated conversation thread, served by the /threads poll.
type Thread struct {
	ID           string    `json:"id"`
	State        string    `json:"state"`
	MsgCount     int       `json:"msg_count"`
	Keywords     []string  `json:"keywords"`
	Participants []string  `json:"participants"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Pending is one simulated undecided message, served by the /pending poll.
type Pending struct {
	MsgID          string `json:"msg_id"`
	Author         string `json:"author"`
	ContentPreview string `json:"content_preview"`
}

// Person is one simulated sender profile.
type Person struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	MsgCount     int    `json:"msg_count"`
}

// Memory is the simulated memory budget report.
type Memory struct {
	CoreCount    int `json:"core_count"`
	RecallCount  int `json:"recall_count"`
	BudgetTokens int `json:"budget_tokens"`
	UsedTokens   int `json:"used_tokens"`
}

// World is the simulator's mutable state behind the poll endpoints. The
// scenario driver and control handlers mutate it under the lock.
type World struct {
	mu      sync.Mutex
	threads map[string]*Thread
	pending []Pending
	persons map[string]Person
	memory  Memory
	paused  bool
	model   string
	started time.Time
}

// NewWorld returns an empty world with the brain running.
func NewWorld() *World {
	return &World{
		threads: make(map[string]*Thread),
		persons: make(map[string]Person),
		memory:  Memory{CoreCount: 3, RecallCount: 0, BudgetTokens: 4000},
		model:   "ene-large",
		started: time.Now(),
	}
}

// Server serves the simulated Ene API.
type Server struct {
	journal *Journal
	world   *World
	router  chi.Router
}

// NewServer wires the journal and world into a chi router.
func NewServer(journal *Journal, world *World) *Server {
	s := &Server{journal: journal, world: world}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/events", s.handleStream(StreamEvents))
	r.Get("/prompts", s.handleStream(StreamPrompts))
	r.Get("/graph", s.handleStream(StreamGraph))

	r.Get("/health", s.handleHealth)
	r.Get("/threads", s.handleThreads)
	r.Get("/pending", s.handlePending)
	r.Get("/memory", s.handleMemory)
	r.Get("/person/{personID}", s.handlePerson)

	r.Post("/control/reset", s.handleReset)
	r.Post("/control/brain", s.handleBrain)
	r.Post("/control/model", s.handleModel)

	s.router = r
	return s
}

// ServeHTTP delegates to the internal router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleStream serves one SSE stream. A last_id query parameter replays the
// journal from that cursor before tailing live appends.
func (s *Server) handleStream(stream string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		var cursor uint64
		if raw := r.URL.Query().Get("last_id"); raw != "" {
			parsed, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				http.Error(w, "bad last_id", http.StatusBadRequest)
				return
			}
			cursor = parsed
		}

		flusher.Flush()

		for {
			wait := s.journal.Wait(stream)

			events, err := s.journal.After(stream, cursor)
			if err != nil {
				return
			}
			for _, ev := range events {
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sseName(stream, ev.Type), ev.Data)
				cursor = ev.ID
			}
			if len(events) > 0 {
				flusher.Flush()
			}

			select {
			case <-r.Context().Done():
				return
			case <-wait:
			}
		}
	}
}

// sseName maps a stored event to its SSE event name: "prompt" on the prompts
// stream, "state" for full-state snapshots, "event" for everything else.
func sseName(stream, eventType string) string {
	if stream == StreamPrompts {
		return "prompt"
	}
	if eventType == "state" {
		return "state"
	}
	return "event"
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.world.mu.Lock()
	uptime := time.Since(s.world.started).Round(time.Second).String()
	s.world.mu.Unlock()
	writeJSON(w, map[string]string{"status": "ok", "uptime": uptime})
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	s.world.mu.Lock()
	threads := make([]Thread, 0, len(s.world.threads))
	for _, t := range s.world.threads {
		threads = append(threads, *t)
	}
	s.world.mu.Unlock()
	writeJSON(w, threads)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	s.world.mu.Lock()
	pending := append([]Pending(nil), s.world.pending...)
	s.world.mu.Unlock()
	writeJSON(w, pending)
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	s.world.mu.Lock()
	memory := s.world.memory
	s.world.mu.Unlock()
	writeJSON(w, memory)
}

func (s *Server) handlePerson(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "personID")
	s.world.mu.Lock()
	person, ok := s.world.persons[id]
	s.world.mu.Unlock()
	if !ok {
		http.Error(w, "unknown person", http.StatusNotFound)
		return
	}
	writeJSON(w, person)
}

// handleReset emits a hard_reset on both live streams, mirroring how the real
// server broadcasts operator resets.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if _, err := s.journal.Append(StreamEvents, "hard_reset", nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if _, err := s.journal.Append(StreamGraph, "hard_reset", nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBrain(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Paused bool `json:"paused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	s.world.mu.Lock()
	s.world.paused = body.Paused
	s.world.mu.Unlock()

	status := "active"
	if body.Paused {
		status = "paused"
	}
	if _, err := s.journal.Append(StreamEvents, "brain_status_changed", map[string]any{"status": status}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Slot string `json:"slot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Slot == "" {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	s.world.mu.Lock()
	s.world.model = body.Slot
	paused := s.world.paused
	s.world.mu.Unlock()

	// The dashboard only trusts the stream, so the slot change must surface
	// as a state snapshot even while the scenario is paused.
	if _, err := s.journal.Append(StreamEvents, "state", map[string]any{
		"brain_enabled": !paused,
		"current_model": body.Slot,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
