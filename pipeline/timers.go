// ABOUTME: Section enum for pipeline stages and freshness classification of their last-update timers.
// ABOUTME: Freshness is fresh under 10s, warm under 60s, stale at 60s or when never updated.
package pipeline

import "time"

// Section identifies one pipeline stage with its own freshness timer.
type Section int

const (
	SectionIntake Section = iota
	SectionDaemon
	SectionClassify
	SectionPerson
	SectionMemory
	SectionContext
	SectionLLM
	SectionResponse
	SectionThreads
)

// Sections lists every section in display order.
var Sections = []Section{
	SectionIntake, SectionDaemon, SectionClassify, SectionPerson,
	SectionMemory, SectionContext, SectionLLM, SectionResponse, SectionThreads,
}

// String returns the lowercase name of the section.
func (s Section) String() string {
	switch s {
	case SectionIntake:
		return "intake"
	case SectionDaemon:
		return "daemon"
	case SectionClassify:
		return "classify"
	case SectionPerson:
		return "person"
	case SectionMemory:
		return "memory"
	case SectionContext:
		return "context"
	case SectionLLM:
		return "llm"
	case SectionResponse:
		return "response"
	case SectionThreads:
		return "threads"
	default:
		return "unknown"
	}
}

// Freshness classifies how recently a section was updated.
type Freshness int

const (
	Stale Freshness = iota // >= 60s ago, or never
	Warm                   // < 60s ago
	Fresh                  // < 10s ago
)

const (
	freshWindow = 10 * time.Second
	warmWindow  = 60 * time.Second
)

// String returns the lowercase name of the freshness class.
func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Warm:
		return "warm"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// ClassifyFreshness maps a last-updated timestamp to a freshness class at the
// given instant. A zero timestamp means the section was never updated.
func ClassifyFreshness(lastUpdated, now time.Time) Freshness {
	if lastUpdated.IsZero() {
		return Stale
	}
	age := now.Sub(lastUpdated)
	switch {
	case age < freshWindow:
		return Fresh
	case age < warmWindow:
		return Warm
	default:
		return Stale
	}
}
