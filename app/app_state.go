package app

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kastheco/discovery/config/auditlog"
	"github.com/kastheco/discovery/session"
	"github.com/kastheco/discovery/session/opfsm"
	"github.com/kastheco/discovery/ui"
	"github.com/kastheco/discovery/ui/overlay"
	zone "github.com/lrstanley/bubblezone"
)

// auditPaneLimit caps the events shown in the activity pane.
const auditPaneLimit = 100

var (
	inputFocusedStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ui.ColorIris)
	inputDisabledStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ui.ColorOverlay).
				Foreground(ui.ColorMuted)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ui.ColorOverlay).
			Padding(0, 1)
	panelTextStyle   = lipgloss.NewStyle().Foreground(ui.ColorSubtle)
	panelTitleStyle  = lipgloss.NewStyle().Foreground(ui.ColorFoam).Bold(true)
	panelButton      = lipgloss.NewStyle().Foreground(ui.ColorBase).Background(ui.ColorFoam).Bold(true).Padding(0, 1)
	errorBannerStyle = lipgloss.NewStyle().
				Foreground(ui.ColorLove).
				Padding(0, 1)
	errorHintStyle = lipgloss.NewStyle().Foreground(ui.ColorMuted)
)

// reviewing reports whether the summary card holds focus.
func (m *home) reviewing() bool {
	return m.engine.Approval() == opfsm.ApprovalSummaryPending
}

// handleOutcome folds a finished operation into the engine and runs any
// follow-up it asks for.
func (m *home) handleOutcome(o session.Outcome) tea.Cmd {
	next := m.engine.Apply(o)

	var cmds []tea.Cmd
	if m.reportRequested && !m.engine.LoadingReport() {
		m.reportRequested = false
		if md, ok := m.engine.Report(); ok {
			m.toastManager.Resolve(m.reportToastID, overlay.ToastSuccess, "Report ready")
			m.reportView.SetContent(md)
			if m.state == stateDefault {
				m.state = stateReport
			}
		} else {
			m.toastManager.Resolve(m.reportToastID, overlay.ToastError, m.engine.Err())
		}
		m.reportToastID = ""
		cmds = append(cmds, m.toastTickCmd())
	}

	m.syncFromEngine()
	if m.auditPane.Visible() {
		cmds = append(cmds, m.loadAuditEvents())
	}
	cmds = append(cmds, m.exec(next))
	return tea.Batch(cmds...)
}

// handlePoll runs a passive refresh when nothing else is in flight and
// schedules the next one.
func (m *home) handlePoll() tea.Cmd {
	var op session.Op
	if m.engine.CanRefresh() && m.state != stateReport {
		op, _ = m.engine.Refresh(false)
	}
	return tea.Batch(m.exec(op), m.pollCmd())
}

// syncFromEngine pushes engine state into the components. It is the only
// place that decides which bottom panel and overlay are shown.
func (m *home) syncFromEngine() {
	s, loaded := m.engine.Session()

	if loaded && !m.draftBound && m.drafts != nil {
		m.draftBound = true
		if restored := m.drafts.Bind(m.scope(s)); restored != "" && m.input.Value() == "" {
			m.input.SetValue(restored)
		}
	}

	m.transcript.SetEntries(m.engine.Entries())
	switch m.engine.Operation() {
	case opfsm.OpSending:
		m.transcript.SetActivity(ui.ActivityThinking)
	case opfsm.OpEndingPhase:
		m.transcript.SetActivity(ui.ActivityEndingPhase)
	default:
		m.transcript.SetActivity(ui.ActivityIdle)
	}

	if summary, ok := m.engine.PendingSummary(); ok {
		m.summaryCard.SetSummary(m.engine.Phase(), summary)
	}
	m.summaryCard.SetSubmitting(m.engine.Operation() == opfsm.OpApproving)

	m.syncRevisionOverlay()

	if m.state == stateReport {
		if md, ok := m.engine.Report(); ok {
			m.reportView.SetContent(md)
		}
	}

	data := ui.StatusBarData{
		Project: m.project,
		Demo:    m.demo,
		Busy:    m.engine.Operation().Busy() || m.engine.Loading(),
	}
	if loaded {
		data.PhaseTitle = session.PhaseTitle(m.engine.Phase())
		data.Status = string(s.Status)
		if m.engine.Completed() {
			data.PhaseTitle = "Discovery complete"
		}
	}
	m.statusBar.SetData(data)

	m.menu.SetState(m.menuState())

	if m.engine.CanSend() && !m.engine.Approval().HasSummary() && !m.engine.AwaitingPhaseStart() && m.state == stateDefault {
		m.input.Focus()
	} else {
		m.input.Blur()
	}

	m.layout()
}

// syncRevisionOverlay opens the feedback editor when a revision starts and
// closes it once the engine leaves revision_requested.
func (m *home) syncRevisionOverlay() {
	revising := m.engine.Approval() == opfsm.ApprovalRevisionRequested
	switch {
	case revising && m.state == stateDefault:
		m.feedbackOverlay = overlay.NewFeedbackOverlay("Request changes", m.engine.Feedback())
		m.feedbackOverlay.SetSize(int(float32(m.termWidth)*0.6), int(float32(m.termHeight)*0.5))
		m.state = stateRevision
	case !revising && m.state == stateRevision:
		m.feedbackOverlay = nil
		m.state = stateDefault
	}
}

func (m *home) menuState() ui.MenuState {
	switch {
	case m.state == stateReport:
		return ui.StateReport
	case m.state == stateRevision:
		return ui.StateRevision
	case !m.engine.Loaded():
		return ui.StateLoading
	case m.engine.Operation().Busy():
		return ui.StateBusy
	case m.reviewing():
		return ui.StateReview
	case m.engine.Completed():
		return ui.StateCompleted
	case m.engine.AwaitingPhaseStart():
		return ui.StateAwaitingPhase
	}
	return ui.StateChat
}

// layout sizes the panes around the bottom panel, which varies by state.
func (m *home) layout() {
	if m.termWidth <= 0 || m.termHeight <= 0 {
		return
	}

	mainWidth := m.termWidth
	if m.auditPane.Visible() {
		mainWidth = max(m.termWidth-auditPaneWidth, 20)
	}

	m.input.SetWidth(m.termWidth - 2)
	m.summaryCard.SetSize(m.termWidth, max(m.termHeight/2, 8))

	used := 2 // status bar and menu
	if banner := m.renderErrorBanner(); banner != "" {
		used += lipgloss.Height(banner)
	}
	if m.state == stateReport {
		m.reportView.SetSize(m.termWidth, max(m.termHeight-used, 3))
		return
	}
	used += lipgloss.Height(m.renderBottom())

	mainHeight := max(m.termHeight-used, 3)
	m.transcript.SetSize(mainWidth, mainHeight)
	m.auditPane.SetSize(m.termWidth-mainWidth, mainHeight)
	m.reportView.SetSize(m.termWidth, max(m.termHeight-2, 3))
}

// renderBottom renders the panel under the conversation: the input, the
// summary card, or a prompt for the next step.
func (m *home) renderBottom() string {
	width := max(m.termWidth-2, 10)
	switch {
	case !m.engine.Loaded():
		text := "Loading session…"
		if !m.engine.Loading() {
			text = "Could not load the session. Press ctrl+r to retry."
		}
		return panelStyle.Width(width).Render(panelTextStyle.Render(text))
	case m.engine.Approval().HasSummary():
		return m.summaryCard.String()
	case m.engine.Completed():
		button := zone.Mark(ui.ZoneReport, panelButton.Render("↵ View report"))
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left,
			panelTitleStyle.Render("Discovery complete"),
			panelTextStyle.Render("All four phases are approved."),
			button))
	case m.engine.AwaitingPhaseStart():
		next := m.engine.Phase()
		button := zone.Mark(ui.ZoneBeginPhase, panelButton.Render("↵ Begin phase"))
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left,
			panelTitleStyle.Render(session.PhaseTitle(next)),
			panelTextStyle.Render("The previous phase is approved. Start the next one when you are ready."),
			button))
	}

	style := inputFocusedStyle
	if !m.engine.CanSend() {
		style = inputDisabledStyle
	}
	return style.Width(width).Render(m.input.View())
}

func (m *home) renderErrorBanner() string {
	msg := m.engine.Err()
	if msg == "" {
		return ""
	}
	line := errorBannerStyle.Width(max(m.termWidth-2, 10)).
		Render("✗ " + msg + "  " + errorHintStyle.Render("esc dismiss"))
	return zone.Mark(ui.ZoneErrorBanner, line)
}

func auditQuery(scope string) auditlog.QueryFilter {
	return auditlog.QueryFilter{Scope: scope, Limit: auditPaneLimit}
}

// setAuditEvents formats events for the activity pane.
func (m *home) setAuditEvents(events []auditlog.Event) {
	rows := make([]ui.AuditEventDisplay, 0, len(events))
	for _, e := range events {
		icon, color := ui.EventKindIcon(e.Kind.String())
		rows = append(rows, ui.AuditEventDisplay{
			Time:    e.Timestamp.Local().Format("15:04"),
			Kind:    e.Kind.String(),
			Icon:    icon,
			Message: e.Message,
			Color:   color,
			Level:   e.Level,
		})
	}
	m.auditPane.SetEvents(rows)
	m.auditPane.SetFilter("this session")
}
