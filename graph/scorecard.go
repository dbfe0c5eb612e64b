// ABOUTME: Scorecard projection for the detail view of a message's assignment decision.
// ABOUTME: Sorts server-computed candidate scores and marks threshold pass/fail and the best candidate.
package graph

import "sort"

// ScoreCandidate is one thread's score row in a message's scorecard.
type ScoreCandidate struct {
	ThreadID  string
	Breakdown ScoreBreakdown
	Pass      bool // total met the decision threshold
	Best      bool // highest total among candidates
}

// Scorecard is the full decision record for one message.
type Scorecard struct {
	MsgID      string
	Outcome    string
	AssignedTo string
	FastPath   bool
	Threshold  float64
	Candidates []ScoreCandidate
}

// Scorecard projects the last assignment decision seen for a message into a
// renderable card. The second return is false when the message is unknown or
// has no decision yet.
func (m *Model) Scorecard(msgID string) (Scorecard, bool) {
	node, ok := m.messages[msgID]
	if !ok || node.Assignment == nil {
		return Scorecard{}, false
	}
	p := node.Assignment

	card := Scorecard{
		MsgID:      p.MsgID,
		Outcome:    p.Outcome,
		AssignedTo: p.AssignedTo,
		FastPath:   p.FastPath,
		Threshold:  p.Threshold,
	}

	for threadID, breakdown := range p.ThreadScores {
		card.Candidates = append(card.Candidates, ScoreCandidate{
			ThreadID:  threadID,
			Breakdown: breakdown,
			Pass:      breakdown.Total >= p.Threshold,
		})
	}
	sort.Slice(card.Candidates, func(i, j int) bool {
		a, b := card.Candidates[i], card.Candidates[j]
		if a.Breakdown.Total != b.Breakdown.Total {
			return a.Breakdown.Total > b.Breakdown.Total
		}
		return a.ThreadID < b.ThreadID
	})
	if len(card.Candidates) > 0 {
		card.Candidates[0].Best = true
	}

	return card, true
}
