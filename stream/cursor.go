// ABOUTME: Cursor tracks the last-seen monotonic event id for one logical stream.
// ABOUTME: Used to compose ?last_id= resume requests so reconnects replay only unseen events.
package stream

// Cursor remembers the highest event id successfully dispatched on one stream.
// Ids across different streams are independent, so each subscription owns its
// own Cursor. A Cursor is not safe for concurrent use; it belongs to the
// subscription goroutine that feeds it.
type Cursor struct {
	lastSeen uint64
	seenAny  bool
}

// Advance moves the cursor forward to id. Ids are monotonic but not
// necessarily contiguous, so any id >= the current position is accepted;
// a lower id is ignored and the cursor never decreases.
func (c *Cursor) Advance(id uint64) {
	if !c.seenAny || id >= c.lastSeen {
		c.lastSeen = id
		c.seenAny = true
	}
}

// Last returns the last-seen id and whether any id has been seen at all.
// A fresh cursor reports (0, false) and resume requests omit last_id.
func (c *Cursor) Last() (uint64, bool) {
	return c.lastSeen, c.seenAny
}
