// ABOUTME: Machine is the per-cycle pipeline state machine fed by dispatched daemon events.
// ABOUTME: Maintains cycle accumulators, section freshness timers, the dimmed overlay latch, and generation-tagged side-effect intents.
package pipeline

import (
	"strconv"
	"time"
)

// Phase is the coarse pipeline state shown in the dashboard header.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseIntake
	PhaseClassifying
	PhaseResponding
	PhaseLurking
)

// String returns the lowercase name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseIntake:
		return "intake"
	case PhaseClassifying:
		return "classifying"
	case PhaseResponding:
		return "responding"
	case PhaseLurking:
		return "lurking"
	default:
		return "unknown"
	}
}

// DaemonPrecedence decides how the lean daemon_result and the rich
// prompt_daemon_response interact when both streams race for the same cycle.
type DaemonPrecedence int

const (
	// PrecedenceRichWins keeps a rich verdict once seen; a later lean event
	// does not clobber it within the same cycle. The default.
	PrecedenceRichWins DaemonPrecedence = iota
	// PrecedenceTemporal is pure last-write-wins by dispatch order.
	PrecedenceTemporal
)

// Effects receives side-effect intents recorded by the machine. The machine
// only records the intent; the caller issues the actual fetch and routes the
// result back through ApplyPerson / ApplyMemory with the generation it was
// issued under. A nil Effects drops the intents.
type Effects interface {
	LookupPerson(generation uint64, sender string)
	FetchMemory(generation uint64)
}

// ClassificationRow is one per-message classifier verdict within a cycle.
type ClassificationRow struct {
	Sender   string
	Result   string
	Source   string
	Override bool
}

// ToolCard is one tool execution within the current LLM loop.
type ToolCard struct {
	Name          string
	LatencyMs     int
	ArgsPreview   string
	ResultPreview string
}

// MergeSummary is the cycle's merge outcome. Last value wins within a cycle.
type MergeSummary struct {
	Respond int
	Context int
	Dropped int
}

// RespondDecision is the daemon's decision whether to respond this cycle.
type RespondDecision struct {
	Decision bool
	Reason   string
}

// DaemonVerdict holds the classifier display fields. Rich marks whether the
// value came from the fuller prompt_daemon_response payload.
type DaemonVerdict struct {
	Classification string
	Confidence     float64
	Model          string
	LatencyMs      int
	Reason         string
	Topic          string
	Tone           string
	SecurityFlags  []string
	Fallback       bool
	Rich           bool
}

// LLMSummary is the finalized LLM loop summary set by loop_break.
type LLMSummary struct {
	Iterations     int
	TotalLatencyMs int
	Reason         string
	ToolsUsed      []string
}

// ResponseStats holds post-processing stats from response_clean/response_sent.
type ResponseStats struct {
	Blocked        bool
	Truncated      bool
	CharDelta      int
	ContentPreview string
	ReplyTo        string
	Sent           bool
}

// Buffering is the debounce-window progress indicator.
type Buffering struct {
	BufferSize int
	BatchSize  int
}

// MemoryInfo is the memory/budget display populated by the fetch triggered on
// a positive respond decision.
type MemoryInfo struct {
	CoreCount    int
	RecallCount  int
	BudgetTokens int
	UsedTokens   int
}

// PersonInfo is the profile display populated by the lookup triggered on
// message arrival.
type PersonInfo struct {
	ID           string
	Name         string
	Relationship string
	MsgCount     int
}

// cycle is the ephemeral per-cycle accumulator set. A new cycle begins on
// msg_arrived or debounce_flush; the old one is abandoned, never merged.
type cycle struct {
	rows              []ClassificationRow
	merge             *MergeSummary
	respond           *RespondDecision
	tools             []ToolCard
	llmIteration      int
	llmModel          string
	llmTotalLatencyMs int
	llmMessageCount   int
	llmToolCount      int
	llmSummary        *LLMSummary
	daemon            *DaemonVerdict
	response          *ResponseStats
	daemonPrompt      string
	enePrompt         string
	eneResponse       string
}

// Machine consumes dispatched pipeline events and exposes immutable snapshots.
// It is single-threaded by design: callers dispatch events and read snapshots
// from one goroutine (the TUI message loop); async fetch results re-enter
// through ApplyPerson/ApplyMemory on that same loop, guarded by generation.
type Machine struct {
	phase      Phase
	dimmed     bool
	dimReason  string
	lurkLatch  bool
	cycle      cycle
	buffering  Buffering
	sections   map[Section]time.Time
	status     *StateSnapshotPayload
	memory     *MemoryInfo
	person     *PersonInfo
	generation uint64
	precedence DaemonPrecedence
	effects    Effects
	now        func() time.Time
}

// Option configures optional Machine behavior.
type Option func(*Machine)

// WithEffects wires the side-effect intent receiver.
func WithEffects(e Effects) Option {
	return func(m *Machine) { m.effects = e }
}

// WithPrecedence sets the lean-vs-rich daemon verdict precedence.
func WithPrecedence(p DaemonPrecedence) Option {
	return func(m *Machine) { m.precedence = p }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// NewMachine creates a Machine in the Idle state.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		sections: make(map[Section]time.Time, len(Sections)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Generation returns the current cycle generation. Async lookups issued now
// must carry this value back into ApplyPerson/ApplyMemory.
func (m *Machine) Generation() uint64 {
	return m.generation
}

// Apply dispatches one event into the machine. Unknown event types are
// ignored. Apply never leaves the accumulators half-updated: it runs to
// completion before the caller can observe state.
func (m *Machine) Apply(ev Event) {
	switch p := ev.Payload.(type) {
	case MsgArrivedPayload:
		// Cycle reset happens even while dimmed; only the visible phase
		// transition is suppressed.
		m.startCycle()
		if !m.dimmed {
			m.phase = PhaseIntake
		}
		m.mark(SectionIntake)
		if m.effects != nil {
			m.effects.LookupPerson(m.generation, p.Sender)
		}

	case DebounceAddPayload:
		m.buffering.BufferSize = p.BufferSize
		m.mark(SectionIntake)

	case DebounceFlushPayload:
		m.startCycle()
		m.buffering.BatchSize = p.BatchSize
		m.buffering.BufferSize = 0
		if !m.dimmed {
			m.phase = PhaseClassifying
		}
		m.mark(SectionIntake)

	case DaemonResultPayload:
		m.applyVerdict(DaemonVerdict{
			Classification: p.Classification,
			Confidence:     p.Confidence,
			Model:          p.Model,
			LatencyMs:      p.LatencyMs,
			Reason:         p.Reason,
			Topic:          p.Topic,
			Tone:           p.Tone,
			SecurityFlags:  p.SecurityFlags,
			Fallback:       p.Fallback,
		})

	case PromptDaemonPayload:
		m.cycle.daemonPrompt = p.Prompt
		m.mark(SectionDaemon)

	case PromptDaemonResponsePayload:
		m.applyVerdict(DaemonVerdict{
			Classification: p.Classification,
			Confidence:     p.Confidence,
			Model:          p.Model,
			LatencyMs:      p.LatencyMs,
			Reason:         p.Reason,
			Topic:          p.Topic,
			Tone:           p.Tone,
			SecurityFlags:  p.SecurityFlags,
			Fallback:       p.Fallback,
			Rich:           true,
		})

	case PromptEnePayload:
		m.cycle.enePrompt = p.Prompt
		m.mark(SectionLLM)

	case PromptEneResponsePayload:
		m.cycle.eneResponse = p.Response
		m.mark(SectionLLM)

	case ClassificationPayload:
		m.cycle.rows = append(m.cycle.rows, ClassificationRow{
			Sender:   p.Sender,
			Result:   p.Result,
			Source:   p.Source,
			Override: p.Override,
		})
		if !m.dimmed {
			m.phase = PhaseClassifying
		}
		m.mark(SectionClassify)

	case DadPromotionPayload:
		m.cycle.rows = append(m.cycle.rows, ClassificationRow{
			Sender: promotionSender(p.Count),
			Result: "respond",
			Source: "dad_promotion",
		})
		m.mark(SectionClassify)

	case MergeCompletePayload:
		m.cycle.merge = &MergeSummary{
			Respond: p.RespondCount,
			Context: p.ContextCount,
			Dropped: p.DroppedCount,
		}
		m.mark(SectionClassify)

	case ShouldRespondPayload:
		m.cycle.respond = &RespondDecision{Decision: p.Decision, Reason: p.Reason}
		if p.Decision {
			if m.effects != nil {
				m.effects.FetchMemory(m.generation)
			}
		} else {
			m.lurk("Lurking — " + p.Reason)
		}

	case LLMCallPayload:
		m.cycle.llmIteration = p.Iteration
		m.cycle.llmModel = p.Model
		m.cycle.llmMessageCount = p.MessageCount
		m.cycle.llmToolCount = p.ToolCount
		if !m.dimmed {
			m.phase = PhaseResponding
		}
		m.mark(SectionLLM)

	case ToolExecPayload:
		m.cycle.tools = append(m.cycle.tools, ToolCard{
			Name:          p.ToolName,
			LatencyMs:     p.LatencyMs,
			ArgsPreview:   p.ArgsPreview,
			ResultPreview: p.ResultPreview,
		})
		m.mark(SectionLLM)

	case LLMResponsePayload:
		m.cycle.llmTotalLatencyMs += p.LatencyMs
		m.cycle.llmIteration = p.Iteration
		m.mark(SectionLLM)

	case LoopBreakPayload:
		m.cycle.llmSummary = &LLMSummary{
			Iterations:     p.Iterations,
			TotalLatencyMs: p.TotalLatencyMs,
			Reason:         p.Reason,
			ToolsUsed:      append([]string(nil), p.ToolsUsed...),
		}
		m.mark(SectionLLM)

	case ResponseCleanPayload:
		stats := m.ensureResponse()
		stats.Blocked = p.Blocked
		stats.Truncated = p.Truncated
		stats.CharDelta = p.CharDelta
		m.mark(SectionResponse)

	case ResponseSentPayload:
		stats := m.ensureResponse()
		stats.ContentPreview = p.ContentPreview
		stats.ReplyTo = p.ReplyTo
		stats.Sent = true
		if !m.dimmed {
			m.phase = PhaseIdle
		}
		m.mark(SectionResponse)

	case BrainPausedPayload:
		m.forceDim(brainOffReason)

	case BrainStatusChangedPayload:
		if p.Status == "paused" {
			m.forceDim(brainOffReason)
		} else {
			// Any other status means the brain came back; clear the overlay.
			m.ResetPipeline()
		}

	case HardResetPayload:
		m.HardReset()

	case StateSnapshotPayload:
		snap := p
		m.status = &snap

	case UnknownPayload:
		// Forward compatible: provably a no-op.
	}
}

// brainOffReason is the fixed dim reason used when the brain is paused,
// independent of the should_respond latch.
const brainOffReason = "Brain OFF — paused"

// promotionSender renders the synthetic sender label for a dad_promotion row.
func promotionSender(count int) string {
	if count == 1 {
		return "1 context message"
	}
	return strconv.Itoa(count) + " context messages"
}

// applyVerdict installs a daemon verdict, honoring the configured precedence:
// a rich verdict always lands; a lean one is dropped under PrecedenceRichWins
// when a rich verdict is already present for this cycle.
func (m *Machine) applyVerdict(v DaemonVerdict) {
	if !v.Rich && m.precedence == PrecedenceRichWins &&
		m.cycle.daemon != nil && m.cycle.daemon.Rich {
		m.mark(SectionDaemon)
		return
	}
	verdict := v
	verdict.SecurityFlags = append([]string(nil), v.SecurityFlags...)
	m.cycle.daemon = &verdict
	if !m.dimmed {
		m.phase = PhaseClassifying
	}
	m.mark(SectionDaemon)
}

// lurk enters the dimmed overlay behind the one-shot latch so repeated lurk
// signals do not re-trigger the transition.
func (m *Machine) lurk(reason string) {
	if m.lurkLatch {
		return
	}
	m.lurkLatch = true
	m.dimmed = true
	m.dimReason = reason
	m.phase = PhaseLurking
}

// forceDim enters the dimmed overlay unconditionally (brain paused). It does
// not consume the lurk latch; a later lurk signal after reset behaves normally.
func (m *Machine) forceDim(reason string) {
	m.dimmed = true
	m.dimReason = reason
	m.phase = PhaseLurking
}

// startCycle abandons the current cycle and begins a fresh one. Events from
// before the boundary must not influence the new accumulators, so the whole
// cycle struct is replaced and the generation is bumped to invalidate
// in-flight async lookups.
func (m *Machine) startCycle() {
	m.cycle = cycle{}
	m.generation++
}

// ensureResponse returns the cycle's response stats, allocating on first use.
func (m *Machine) ensureResponse() *ResponseStats {
	if m.cycle.response == nil {
		m.cycle.response = &ResponseStats{}
	}
	return m.cycle.response
}

// mark stamps a section's freshness timer with the current time.
func (m *Machine) mark(s Section) {
	m.sections[s] = m.now()
}

// MarkSection stamps a section timer from outside the event switch. The
// dispatcher uses this to keep the threads section fresh from graph-stream
// traffic, and tests use it to pin timers.
func (m *Machine) MarkSection(s Section) {
	m.mark(s)
}

// ResetPipeline clears the dimmed overlay and starts a fresh cycle. Calling it
// while already un-dimmed is a no-op. Narrower than HardReset: section timers
// and the daemon status snapshot survive.
func (m *Machine) ResetPipeline() {
	if !m.dimmed && !m.lurkLatch {
		return
	}
	m.dimmed = false
	m.dimReason = ""
	m.lurkLatch = false
	m.phase = PhaseIdle
	m.startCycle()
}

// HardReset clears all section timers, all cycle accumulators, and the dimmed
// latch, returning to Idle. The only mutation that takes effect while dimmed.
func (m *Machine) HardReset() {
	m.dimmed = false
	m.dimReason = ""
	m.lurkLatch = false
	m.phase = PhaseIdle
	m.buffering = Buffering{}
	m.memory = nil
	m.person = nil
	m.sections = make(map[Section]time.Time, len(Sections))
	m.startCycle()
}

// ApplyPerson installs a person lookup result if it still belongs to the
// current generation; stale results are dropped silently.
func (m *Machine) ApplyPerson(generation uint64, info PersonInfo) {
	if generation != m.generation {
		return
	}
	p := info
	m.person = &p
	m.mark(SectionPerson)
}

// ApplyMemory installs a memory fetch result if it still belongs to the
// current generation; stale results are dropped silently.
func (m *Machine) ApplyMemory(generation uint64, info MemoryInfo) {
	if generation != m.generation {
		return
	}
	mi := info
	m.memory = &mi
	m.mark(SectionMemory)
	m.mark(SectionContext)
}
