// ABOUTME: Immutable snapshot of the pipeline machine for the renderer.
// ABOUTME: Deep-copies slices and pointed-to structs so the view can never mutate engine state.
package pipeline

import "time"

// SectionState is one section timer with its freshness classified at snapshot
// time.
type SectionState struct {
	LastUpdated time.Time
	Freshness   Freshness
}

// Snapshot is a point-in-time view of the machine. All slices and pointers are
// copies; the renderer holds no authoritative state.
type Snapshot struct {
	Phase      Phase
	Dimmed     bool
	DimReason  string
	Generation uint64

	Rows    []ClassificationRow
	Merge   *MergeSummary
	Respond *RespondDecision
	Tools   []ToolCard

	LLMIteration      int
	LLMModel          string
	LLMTotalLatencyMs int
	LLMMessageCount   int
	LLMToolCount      int
	LLMSummary        *LLMSummary

	Daemon       *DaemonVerdict
	DaemonPrompt string
	EnePrompt    string
	EneResponse  string

	Response  *ResponseStats
	Buffering Buffering
	Status    *StateSnapshotPayload
	Memory    *MemoryInfo
	Person    *PersonInfo

	Sections map[Section]SectionState
}

// Snapshot captures the machine's current state. Consumers only read between
// dispatch calls, so the copy is consistent by construction.
func (m *Machine) Snapshot() Snapshot {
	now := m.now()

	s := Snapshot{
		Phase:             m.phase,
		Dimmed:            m.dimmed,
		DimReason:         m.dimReason,
		Generation:        m.generation,
		Rows:              append([]ClassificationRow(nil), m.cycle.rows...),
		Tools:             append([]ToolCard(nil), m.cycle.tools...),
		LLMIteration:      m.cycle.llmIteration,
		LLMModel:          m.cycle.llmModel,
		LLMTotalLatencyMs: m.cycle.llmTotalLatencyMs,
		LLMMessageCount:   m.cycle.llmMessageCount,
		LLMToolCount:      m.cycle.llmToolCount,
		DaemonPrompt:      m.cycle.daemonPrompt,
		EnePrompt:         m.cycle.enePrompt,
		EneResponse:       m.cycle.eneResponse,
		Buffering:         m.buffering,
		Sections:          make(map[Section]SectionState, len(Sections)),
	}

	if m.cycle.merge != nil {
		merge := *m.cycle.merge
		s.Merge = &merge
	}
	if m.cycle.respond != nil {
		respond := *m.cycle.respond
		s.Respond = &respond
	}
	if m.cycle.llmSummary != nil {
		summary := *m.cycle.llmSummary
		summary.ToolsUsed = append([]string(nil), m.cycle.llmSummary.ToolsUsed...)
		s.LLMSummary = &summary
	}
	if m.cycle.daemon != nil {
		daemon := *m.cycle.daemon
		daemon.SecurityFlags = append([]string(nil), m.cycle.daemon.SecurityFlags...)
		s.Daemon = &daemon
	}
	if m.cycle.response != nil {
		response := *m.cycle.response
		s.Response = &response
	}
	if m.status != nil {
		status := *m.status
		s.Status = &status
	}
	if m.memory != nil {
		memory := *m.memory
		s.Memory = &memory
	}
	if m.person != nil {
		person := *m.person
		s.Person = &person
	}

	for _, sec := range Sections {
		last := m.sections[sec]
		s.Sections[sec] = SectionState{
			LastUpdated: last,
			Freshness:   ClassifyFreshness(last, now),
		}
	}

	return s
}
