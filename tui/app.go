// ABOUTME: Top-level Bubble Tea AppModel that orchestrates the dashboard panels into a unified layout.
// ABOUTME: Routes stream events into the pipeline machine and thread graph, and keyboard input into control actions.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/IriaiSan/Ene-sub001/api"
	"github.com/IriaiSan/Ene-sub001/graph"
	"github.com/IriaiSan/Ene-sub001/pipeline"
)

// FocusTarget indicates which panel currently has keyboard focus.
type FocusTarget int

const (
	FocusGraph FocusTarget = iota
	FocusLog
)

// modelSlots are the slots the "m" key cycles through.
var modelSlots = []string{"large", "small"}

// pollTickMsg drives the fallback poll cadence.
type pollTickMsg struct{}

// AppModel is the top-level Bubble Tea model. The pipeline machine and thread
// graph are owned here; every mutation happens inside Update, so neither
// needs locking.
type AppModel struct {
	machine *pipeline.Machine
	threads *graph.Model

	pipeline  PipelinePanelModel
	graph     GraphPanelModel
	detail    DetailPanelModel
	log       LogPanelModel
	statusBar StatusBarModel

	client       *api.Client
	pollInterval time.Duration

	focus     FocusTarget
	slotIndex int
	paused    bool
	width     int
	height    int
}

// NewAppModel creates an AppModel around the given engine state and API
// client. The machine's effects must already be wired to a Bridge that sends
// into this model's program.
func NewAppModel(machine *pipeline.Machine, threads *graph.Model, client *api.Client, pollInterval time.Duration) AppModel {
	m := AppModel{
		machine:      machine,
		threads:      threads,
		pipeline:     NewPipelinePanelModel(),
		graph:        NewGraphPanelModel(),
		detail:       NewDetailPanelModel(),
		log:          NewLogPanelModel(200),
		statusBar:    NewStatusBarModel([]string{StreamEvents, StreamPrompts, StreamGraph}),
		client:       client,
		pollInterval: pollInterval,
		focus:        FocusGraph,
	}
	m.graph.SetFocused(true)
	m.refreshPipeline()
	m.refreshGraph()
	return m
}

// Init implements tea.Model.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		TickCmd(time.Second),
		pollTickCmd(m.pollInterval),
	)
}

// Update implements tea.Model.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case StreamEventMsg:
		return m.handleStreamEvent(msg)

	case ConnStateMsg:
		m.statusBar.SetConnState(msg.Stream, msg.State)
		return m, nil

	case PersonResultMsg:
		if msg.Err == nil {
			m.machine.ApplyPerson(msg.Generation, msg.Person)
			m.refreshPipeline()
		}
		return m, nil

	case MemoryResultMsg:
		if msg.Err == nil {
			m.machine.ApplyMemory(msg.Generation, msg.Memory)
			m.refreshPipeline()
		}
		return m, nil

	case PollResultMsg:
		if msg.Err == nil {
			m.threads.ApplyThreadList(msg.Threads)
			m.threads.ApplyPendingList(msg.Pending)
			m.refreshGraph()
		}
		return m, nil

	case ControlResultMsg:
		if msg.Err != nil {
			m.statusBar.SetControlError(fmt.Sprintf("%s: %v", msg.Action, msg.Err))
		} else {
			m.statusBar.SetControlError("")
		}
		return m, nil

	case pollTickMsg:
		return m, tea.Batch(PollCmd(m.client), pollTickCmd(m.pollInterval))

	case TickMsg:
		// Freshness badges decay with wall time even when no events arrive.
		m.refreshPipeline()
		return m, TickCmd(time.Second)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

// handleStreamEvent decodes and dispatches one raw SSE event.
func (m AppModel) handleStreamEvent(msg StreamEventMsg) (tea.Model, tea.Cmd) {
	m.log.Append(msg.Stream, msg.Name, msg.Data)

	switch {
	case msg.Name == "state":
		ev, err := pipeline.DecodeState(msg.Data)
		if err == nil {
			m.machine.Apply(ev)
			m.refreshPipeline()
		}

	case msg.Stream == StreamGraph:
		// The graph stream multiplexes pipeline event types (hard_reset and
		// friends), so routing goes by payload type, not SSE event name.
		ev, err := graph.Decode(msg.Data)
		if err == nil && graph.IsGraphType(ev.Type) {
			m.threads.Apply(ev)
			m.machine.MarkSection(pipeline.SectionThreads)
			m.refreshGraph()
			m.refreshPipeline()
			return m, nil
		}
		pev, err := pipeline.Decode(msg.Data)
		if err == nil {
			m.machine.Apply(pev)
			m.refreshPipeline()
		}

	default:
		ev, err := pipeline.Decode(msg.Data)
		if err == nil {
			m.machine.Apply(ev)
			m.refreshPipeline()
		}
	}

	return m, nil
}

// handleKeyMsg processes keyboard input.
func (m AppModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		m.focus = m.nextFocus()
		m.graph.SetFocused(m.focus == FocusGraph)
		m.log.SetFocused(m.focus == FocusLog)
		return m, nil

	case "up", "k":
		if m.focus == FocusGraph {
			m.graph.MoveUp()
			m.refreshDetail()
		} else {
			m.log.Scroll(-1)
		}
		return m, nil

	case "down", "j":
		if m.focus == FocusGraph {
			m.graph.MoveDown()
			m.refreshDetail()
		} else {
			m.log.Scroll(1)
		}
		return m, nil

	case "r":
		return m, ControlCmd("reset", m.client.Reset)

	case "b":
		m.paused = !m.paused
		paused := m.paused
		return m, ControlCmd("brain", func(ctx context.Context) error {
			return m.client.SetBrainPaused(ctx, paused)
		})

	case "m":
		m.slotIndex = (m.slotIndex + 1) % len(modelSlots)
		slot := modelSlots[m.slotIndex]
		return m, ControlCmd("model", func(ctx context.Context) error {
			return m.client.SetModel(ctx, slot)
		})
	}

	return m, nil
}

// nextFocus cycles the focus target between graph and log.
func (m AppModel) nextFocus() FocusTarget {
	if m.focus == FocusGraph {
		return FocusLog
	}
	return FocusGraph
}

// refreshPipeline re-snapshots the machine into the pipeline panel and the
// status bar fields derived from it.
func (m *AppModel) refreshPipeline() {
	snap := m.machine.Snapshot()
	m.pipeline.SetSnapshot(snap)

	if snap.Status != nil {
		m.statusBar.SetModel(snap.Status.CurrentModel)
	}
	if snap.Dimmed {
		m.statusBar.SetBrain(snap.DimReason)
	} else {
		m.statusBar.SetBrain("active")
	}
}

// refreshGraph re-snapshots the thread graph into the graph and detail panels.
func (m *AppModel) refreshGraph() {
	m.graph.SetSnapshot(m.threads.Snapshot())
	m.refreshDetail()
}

func (m *AppModel) refreshDetail() {
	m.detail.SetAnomalies(m.threads.Anomalies())
	id := m.graph.SelectedMsgID()
	if id == "" {
		m.detail.Clear()
		return
	}
	if card, ok := m.threads.Scorecard(id); ok {
		m.detail.SetScorecard(card)
	} else {
		m.detail.Clear()
	}
}

// View implements tea.Model.
func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.width < 40 || m.height < 10 {
		return fmt.Sprintf("Terminal too small (%dx%d). Minimum: 40x10.", m.width, m.height)
	}

	statusBarHeight := 1
	topHeight := (m.height - statusBarHeight) * 55 / 100
	if topHeight < 3 {
		topHeight = 3
	}
	bottomHeight := m.height - statusBarHeight - topHeight
	if bottomHeight < 3 {
		bottomHeight = 3
	}

	pipelineWidth := m.width * 45 / 100
	if pipelineWidth < 10 {
		pipelineWidth = 10
	}
	graphWidth := m.width - pipelineWidth
	if graphWidth < 10 {
		graphWidth = 10
	}

	detailWidth := m.width * 45 / 100
	if detailWidth < 10 {
		detailWidth = 10
	}
	logWidth := m.width - detailWidth
	if logWidth < 10 {
		logWidth = 10
	}

	m.pipeline.SetSize(pipelineWidth, topHeight)
	m.graph.SetSize(graphWidth, topHeight)
	m.detail.SetSize(detailWidth, bottomHeight)
	m.log.SetSize(logWidth, bottomHeight)
	m.statusBar.SetWidth(m.width)

	topView := lipgloss.JoinHorizontal(lipgloss.Top, m.pipeline.View(), m.graph.View())
	bottomView := lipgloss.JoinHorizontal(lipgloss.Top, m.detail.View(), m.log.View())

	var b strings.Builder
	b.WriteString(topView)
	b.WriteString("\n")
	b.WriteString(bottomView)
	b.WriteString("\n")
	b.WriteString(m.statusBar.View())

	return b.String()
}

func pollTickCmd(interval time.Duration) tea.Cmd {
	return func() tea.Msg {
		time.Sleep(interval)
		return pollTickMsg{}
	}
}
