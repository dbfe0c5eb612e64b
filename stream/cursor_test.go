// ABOUTME: Tests for Cursor monotonicity under arbitrary delivery orders.
// ABOUTME: Verifies the cursor equals the maximum id seen so far and never decreases.
package stream

import "testing"

func TestCursorFreshReportsNothingSeen(t *testing.T) {
	var c Cursor
	id, ok := c.Last()
	if ok {
		t.Error("fresh cursor reported seenAny = true")
	}
	if id != 0 {
		t.Errorf("fresh cursor id = %d, want 0", id)
	}
}

func TestCursorAdvanceMonotonic(t *testing.T) {
	tests := []struct {
		name string
		ids  []uint64
		want uint64
	}{
		{"ascending", []uint64{1, 2, 3}, 3},
		{"with gaps", []uint64{1, 5, 40}, 40},
		{"stale delivery ignored", []uint64{10, 4, 2}, 10},
		{"duplicate id accepted", []uint64{7, 7}, 7},
		{"zero id first", []uint64{0}, 0},
		{"interleaved", []uint64{3, 1, 9, 2, 9, 8}, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Cursor
			for _, id := range tt.ids {
				c.Advance(id)
			}
			got, ok := c.Last()
			if !ok {
				t.Fatal("cursor reported nothing seen after Advance calls")
			}
			if got != tt.want {
				t.Errorf("Last() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCursorNeverDecreases(t *testing.T) {
	var c Cursor
	max := uint64(0)
	for _, id := range []uint64{5, 3, 12, 1, 12, 30, 6} {
		c.Advance(id)
		if id > max {
			max = id
		}
		got, _ := c.Last()
		if got != max {
			t.Fatalf("after Advance(%d): Last() = %d, want running max %d", id, got, max)
		}
	}
}
