// ABOUTME: SQLite-backed event journal with per-stream monotonic ids.
// ABOUTME: Supports append, cursor replay for last_id resume, and live-tail notification for SSE handlers.
package sim

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Stream names served by the simulator. Each is one SSE endpoint with its own
// id space.
const (
	StreamEvents  = "events"
	StreamPrompts = "prompts"
	StreamGraph   = "graph"
)

// JournalEvent is one stored event, ready to write to an SSE connection.
type JournalEvent struct {
	ID   uint64
	Type string
	Data []byte
}

// Journal persists emitted events so reconnecting clients can replay from a
// cursor. Ids are monotonic per stream, starting at 1.
type Journal struct {
	db *sql.DB

	mu     sync.Mutex
	nextID map[string]uint64
	notify map[string]chan struct{}
}

// OpenJournal opens or creates the journal database at path. Use ":memory:"
// for throwaway runs.
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS events (
			stream TEXT NOT NULL,
			id INTEGER NOT NULL,
			type TEXT NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (stream, id)
		);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	j := &Journal{
		db:     db,
		nextID: make(map[string]uint64),
		notify: make(map[string]chan struct{}),
	}
	for _, stream := range []string{StreamEvents, StreamPrompts, StreamGraph} {
		last, err := j.lastID(stream)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		j.nextID[stream] = last + 1
		j.notify[stream] = make(chan struct{})
	}
	return j, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) lastID(stream string) (uint64, error) {
	var last sql.NullInt64
	row := j.db.QueryRow(`SELECT MAX(id) FROM events WHERE stream = ?`, stream)
	if err := row.Scan(&last); err != nil {
		return 0, fmt.Errorf("query last id: %w", err)
	}
	return uint64(last.Int64), nil
}

// Append stores one event on a stream. The envelope fields (id, type, ts) are
// injected into the payload fields before marshaling, so the stored data is
// the exact flat JSON delivered on the wire.
func (j *Journal) Append(stream, eventType string, fields map[string]any) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	id := j.nextID[stream]

	wire := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		wire[k] = v
	}
	wire["id"] = id
	wire["type"] = eventType
	wire["ts"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(wire)
	if err != nil {
		return 0, fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	if _, err := j.db.Exec(
		`INSERT INTO events (stream, id, type, data) VALUES (?, ?, ?, ?)`,
		stream, id, eventType, string(data),
	); err != nil {
		return 0, fmt.Errorf("append %s event: %w", eventType, err)
	}

	j.nextID[stream] = id + 1

	// Wake every live tail; each gets a fresh channel to wait on next time.
	close(j.notify[stream])
	j.notify[stream] = make(chan struct{})

	return id, nil
}

// After returns all events on a stream with id > cursor, in id order.
func (j *Journal) After(stream string, cursor uint64) ([]JournalEvent, error) {
	rows, err := j.db.Query(
		`SELECT id, type, data FROM events WHERE stream = ? AND id > ? ORDER BY id`,
		stream, cursor,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []JournalEvent
	for rows.Next() {
		var ev JournalEvent
		var data string
		if err := rows.Scan(&ev.ID, &ev.Type, &data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Data = []byte(data)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Wait returns a channel that is closed the next time an event is appended to
// the stream.
func (j *Journal) Wait(stream string) <-chan struct{} {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.notify[stream]
}
