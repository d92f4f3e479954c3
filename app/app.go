package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kastheco/discovery/config/auditlog"
	"github.com/kastheco/discovery/log"
	"github.com/kastheco/discovery/session"
	"github.com/kastheco/discovery/session/draft"
	"github.com/kastheco/discovery/ui"
	"github.com/kastheco/discovery/ui/overlay"
	zone "github.com/lrstanley/bubblezone"
)

// Options wires the home model to its collaborators.
type Options struct {
	Service session.Service
	// Engine configures the session engine. Its Drafts sink is replaced by
	// one that also clears the message input.
	Engine session.Options
	// Drafts persists the unsent message. Nil disables persistence.
	Drafts *draft.Cache
	// Audit is queried for the activity pane.
	Audit auditlog.Logger
	// Scope keys drafts and audit events to a session.
	Scope        func(session.Session) string
	PollInterval time.Duration
	Demo         bool
	Project      string
}

// Result describes how the TUI exited.
type Result struct {
	// Paused is set when the stakeholder paused the session.
	Paused bool
}

// Run is the main entrypoint into the application.
func Run(ctx context.Context, opts Options) (Result, error) {
	// Set the terminal's default background to the theme base color so every
	// ANSI reset and unstyled cell falls back to it instead of black.
	restore := ui.SetTerminalBackground(string(ui.ColorBase))
	defer restore()

	zone.NewGlobal()
	h := newHome(ctx, opts)
	p := tea.NewProgram(
		h,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return Result{Paused: h.paused}, err
}

type state int

const (
	stateDefault state = iota
	// stateRevision is the state when the feedback editor is open.
	stateRevision
	// stateConfirm is the state when a confirmation modal is displayed.
	stateConfirm
	// stateHelp is the state when the help screen is displayed.
	stateHelp
	// stateReport is the state when the final report is displayed.
	stateReport
)

// auditPaneWidth is the width of the activity pane when shown.
const auditPaneWidth = 40

type home struct {
	ctx context.Context

	engine *session.Engine
	drafts *draft.Cache
	audit  auditlog.Logger
	scope  func(session.Session) string

	demo         bool
	project      string
	pollInterval time.Duration

	// exec turns an engine operation into a command. Tests swap it for a
	// synchronous queue.
	exec func(op session.Op) tea.Cmd

	// -- State --

	state state
	// keySent is set while a highlighted key is being re-sent.
	keySent bool
	// draftBound is set once the draft cache is keyed to the loaded session.
	draftBound bool
	// reportRequested opens the report view when the fetch lands.
	reportRequested bool
	reportToastID   string
	paused          bool
	// pendingConfirmAction runs when the confirmation overlay is accepted.
	pendingConfirmAction func() tea.Cmd

	// -- UI Components --

	statusBar    *ui.StatusBar
	menu         *ui.Menu
	transcript   *ui.TranscriptView
	summaryCard  *ui.SummaryCard
	reportView   *ui.ReportView
	auditPane    *ui.AuditPane
	toastManager *overlay.ToastManager
	// global spinner instance. we plumb this down to where it's needed
	spinner             spinner.Model
	input               textarea.Model
	feedbackOverlay     *overlay.FeedbackOverlay
	confirmationOverlay *overlay.ConfirmationOverlay

	// Terminal dimensions for the global background fill.
	termWidth  int
	termHeight int
}

func newInput() textarea.Model {
	ta := textarea.New()
	ta.Placeholder = ui.InputPlaceholder
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	return ta
}

func newHome(ctx context.Context, opts Options) *home {
	h := &home{
		ctx:          ctx,
		drafts:       opts.Drafts,
		audit:        opts.Audit,
		scope:        opts.Scope,
		demo:         opts.Demo,
		project:      opts.Project,
		pollInterval: opts.PollInterval,
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		statusBar:    ui.NewStatusBar(),
		menu:         ui.NewMenu(),
		summaryCard:  ui.NewSummaryCard(),
		reportView:   ui.NewReportView(),
		auditPane:    ui.NewAuditPane(),
		input:        newInput(),
		state:        stateDefault,
	}
	if h.audit == nil {
		h.audit = auditlog.NopLogger()
	}
	if h.scope == nil {
		h.scope = func(s session.Session) string { return s.ID }
	}
	h.exec = h.runOp
	h.transcript = ui.NewTranscriptView(&h.spinner)
	h.toastManager = overlay.NewToastManager(&h.spinner)
	h.menu.SetDemo(opts.Demo)

	engineOpts := opts.Engine
	engineOpts.Drafts = inputDrafts{h}
	if engineOpts.Scope == nil {
		engineOpts.Scope = h.scope
	}
	h.engine = session.NewEngine(opts.Service, engineOpts)
	return h
}

// inputDrafts discards the unsent message once the service accepted it.
type inputDrafts struct{ h *home }

func (d inputDrafts) Clear() {
	d.h.input.Reset()
	if d.h.drafts != nil {
		d.h.drafts.Clear()
	}
}

// updateHandleWindowSizeEvent sets the sizes of the components.
func (m *home) updateHandleWindowSizeEvent(msg tea.WindowSizeMsg) {
	m.termWidth = msg.Width
	m.termHeight = msg.Height
	m.toastManager.SetSize(msg.Width, msg.Height)
	m.statusBar.SetSize(msg.Width)
	m.menu.SetSize(msg.Width, 1)
	if m.feedbackOverlay != nil {
		m.feedbackOverlay.SetSize(int(float32(msg.Width)*0.6), int(float32(msg.Height)*0.5))
	}
	m.layout()
}

func (m *home) Init() tea.Cmd {
	m.syncFromEngine()
	return tea.Batch(
		m.spinner.Tick,
		m.exec(m.engine.Load()),
		m.pollCmd(),
	)
}

func (m *home) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case outcomeMsg:
		return m, m.handleOutcome(msg.outcome)
	case pollTickMsg:
		return m, m.handlePoll()
	case auditEventsMsg:
		m.setAuditEvents(msg.events)
		return m, nil
	case clipboardMsg:
		if msg.err != nil {
			log.WarningLog.Printf("clipboard: %v", msg.err)
			m.toastManager.Error("Could not copy to clipboard")
		} else {
			m.toastManager.Success(msg.what + " copied")
		}
		return m, m.toastTickCmd()
	case overlay.ToastTickMsg:
		m.toastManager.Tick()
		if m.toastManager.HasActiveToasts() {
			return m, m.toastTickCmd()
		}
		return m, nil
	case keyupMsg:
		m.menu.ClearKeydown()
		return m, nil
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.updateHandleWindowSizeEvent(msg)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.transcript.Tick()
		return m, cmd
	}
	return m, nil
}

func (m *home) handleQuit() (tea.Model, tea.Cmd) {
	if m.drafts != nil {
		m.drafts.Stop()
	}
	return m, tea.Quit
}

func (m *home) View() string {
	var main string
	if m.state == stateReport {
		main = m.reportView.String()
	} else {
		main = zone.Mark(ui.ZoneTranscript, m.transcript.String())
		if m.auditPane.Visible() {
			main = lipgloss.JoinHorizontal(lipgloss.Top, main, m.auditPane.String())
		}
	}

	parts := []string{m.statusBar.String(), main}
	if banner := m.renderErrorBanner(); banner != "" {
		parts = append(parts, banner)
	}
	if m.state != stateReport {
		parts = append(parts, m.renderBottom())
	}
	parts = append(parts, m.menu.String())
	mainView := lipgloss.JoinVertical(lipgloss.Left, parts...)

	var result string
	switch {
	case m.state == stateRevision && m.feedbackOverlay != nil:
		result = overlay.PlaceOverlay(0, 0, m.feedbackOverlay.Render(), mainView, true, true)
	case m.state == stateConfirm && m.confirmationOverlay != nil:
		result = overlay.PlaceOverlay(0, 0, m.confirmationOverlay.Render(), mainView, true, true)
	case m.state == stateHelp:
		result = overlay.PlaceOverlay(0, 0, helpContent(m.demo), mainView, true, true)
	default:
		result = mainView
	}

	if toastView := m.toastManager.View(); toastView != "" {
		x, y := m.toastManager.GetPosition()
		result = overlay.PlaceOverlay(x, y, toastView, result, false, false)
	}

	// Process bubblezone markers before rendering is complete
	// (zone markers inflate lipgloss.Width if left in place).
	result = zone.Scan(result)

	return ui.FillBackground(result, m.termHeight)
}

// outcomeMsg carries the result of an engine operation back to Update.
type outcomeMsg struct {
	outcome session.Outcome
}

// pollTickMsg triggers a passive session refresh.
type pollTickMsg struct{}

// auditEventsMsg delivers the activity pane contents.
type auditEventsMsg struct {
	events []auditlog.Event
}

// clipboardMsg reports the result of a copy.
type clipboardMsg struct {
	what string
	err  error
}

type keyupMsg struct{}

// runOp runs op off the event loop and hands its outcome back as a message.
func (m *home) runOp(op session.Op) tea.Cmd {
	if op == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return outcomeMsg{outcome: op(ctx)}
	}
}

func (m *home) pollCmd() tea.Cmd {
	if m.pollInterval <= 0 {
		return nil
	}
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg { return pollTickMsg{} })
}

func (m *home) toastTickCmd() tea.Cmd {
	return tea.Tick(overlay.TickInterval, func(time.Time) tea.Msg {
		return overlay.ToastTickMsg{}
	})
}
