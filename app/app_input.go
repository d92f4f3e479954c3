package app

import (
	"errors"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kastheco/discovery/keys"
	"github.com/kastheco/discovery/log"
	"github.com/kastheco/discovery/session"
	"github.com/kastheco/discovery/session/opfsm"
	"github.com/kastheco/discovery/ui"
	"github.com/kastheco/discovery/ui/overlay"
	zone "github.com/lrstanley/bubblezone"
)

func (m *home) handleMenuHighlighting(msg tea.KeyMsg) (cmd tea.Cmd, returnEarly bool) {
	// Handle menu highlighting when you press a button. We intercept it here and immediately return to
	// update the ui while re-sending the keypress. Then, on the next call to this, we actually handle the keypress.
	if m.keySent {
		m.keySent = false
		return nil, false
	}
	if m.state != stateDefault {
		return nil, false
	}
	name, ok := keys.GlobalKeyStringsMap[msg.String()]
	if !ok && m.reviewing() {
		name, ok = keys.ReviewKeyStringsMap[msg.String()]
	}
	if !ok {
		return nil, false
	}
	// Scrolling repeats quickly; flashing the menu on every step is noise.
	if name == keys.KeyScrollUp || name == keys.KeyScrollDown {
		return nil, false
	}

	m.keySent = true
	return tea.Batch(
		func() tea.Msg { return msg },
		m.keydownCallback(name)), true
}

func (m *home) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.state == stateReport {
		return m, m.reportView.Update(msg)
	}
	if m.state != stateDefault {
		return m, nil
	}

	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
		switch {
		case zone.Get(ui.ZoneApprove).InBounds(msg):
			return m, m.approve()
		case zone.Get(ui.ZoneRequestChanges).InBounds(msg):
			return m, m.requestChanges()
		case zone.Get(ui.ZoneBeginPhase).InBounds(msg):
			return m, m.beginPhase()
		case zone.Get(ui.ZoneReport).InBounds(msg):
			return m, m.openReport()
		case zone.Get(ui.ZoneErrorBanner).InBounds(msg):
			m.engine.DismissError()
			m.syncFromEngine()
			return m, nil
		}
		return m, nil
	}

	if zone.Get(ui.ZoneTranscript).InBounds(msg) {
		return m, m.transcript.Update(msg)
	}
	return m, nil
}

func (m *home) handleKeyPress(msg tea.KeyMsg) (mod tea.Model, cmd tea.Cmd) {
	cmd, returnEarly := m.handleMenuHighlighting(msg)
	if returnEarly {
		return m, cmd
	}

	switch m.state {
	case stateHelp:
		return m.handleHelpState(msg)
	case stateConfirm:
		return m.handleConfirmState(msg)
	case stateRevision:
		return m.handleRevisionState(msg)
	case stateReport:
		return m.handleReportState(msg)
	}

	if name, ok := keys.GlobalKeyStringsMap[msg.String()]; ok {
		return m.handleGlobalKey(name)
	}

	if msg.String() == "esc" {
		if m.engine.Err() != "" {
			m.engine.DismissError()
			m.syncFromEngine()
		}
		return m, nil
	}

	switch {
	case m.reviewing():
		if name, ok := keys.ReviewKeyStringsMap[msg.String()]; ok {
			return m.handleReviewKey(name)
		}
		return m, nil
	case m.engine.AwaitingPhaseStart():
		if msg.String() == "enter" {
			return m, m.beginPhase()
		}
		return m, nil
	case m.engine.Completed():
		if msg.String() == "enter" {
			return m, m.openReport()
		}
		return m, nil
	}
	return m.handleInputKey(msg)
}

func (m *home) handleGlobalKey(name keys.KeyName) (tea.Model, tea.Cmd) {
	switch name {
	case keys.KeyQuit:
		return m.handleQuit()
	case keys.KeyHelp:
		m.state = stateHelp
		return m, nil
	case keys.KeyScrollUp:
		m.transcript.ScrollUp()
		return m, nil
	case keys.KeyScrollDown:
		m.transcript.ScrollDown()
		return m, nil
	case keys.KeyRefresh:
		return m, m.refresh()
	case keys.KeyReport:
		return m, m.openReport()
	case keys.KeyCopy:
		return m, m.copyCmd()
	case keys.KeyToggleLog:
		m.auditPane.ToggleVisible()
		m.layout()
		if m.auditPane.Visible() {
			return m, m.loadAuditEvents()
		}
		return m, nil
	case keys.KeyPause:
		if !m.engine.Loaded() || m.engine.Completed() {
			return m, nil
		}
		m.paused = true
		return m.handleQuit()
	case keys.KeyEndPhase:
		return m, m.confirmEndPhase()
	}
	return m, nil
}

func (m *home) handleReviewKey(name keys.KeyName) (tea.Model, tea.Cmd) {
	switch name {
	case keys.KeyApprove:
		return m, m.approve()
	case keys.KeyRequestChanges:
		return m, m.requestChanges()
	case keys.KeyCopy:
		return m, m.copyCmd()
	case keys.KeyScrollUp:
		m.summaryCard.ScrollUp()
	case keys.KeyScrollDown:
		m.summaryCard.ScrollDown()
	}
	return m, nil
}

// handleInputKey routes keys to the message input.
func (m *home) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.engine.CanSend() {
		return m, nil
	}
	if msg.String() == "enter" {
		return m, m.send()
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before && m.drafts != nil {
		m.drafts.Update(after)
	}
	m.layout()
	return m, cmd
}

// handleRevisionState forwards keys to the feedback editor.
func (m *home) handleRevisionState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.handleQuit()
	}
	if m.feedbackOverlay == nil || m.engine.Operation() == opfsm.OpApproving {
		return m, nil
	}

	closed := m.feedbackOverlay.HandleKeyPress(msg)
	m.engine.SetFeedback(m.feedbackOverlay.Value())
	if !closed {
		return m, nil
	}

	switch {
	case m.feedbackOverlay.Canceled:
		m.feedbackOverlay.Canceled = false
		if err := m.engine.CancelRevision(); err != nil {
			return m, m.handleError(err)
		}
	case m.feedbackOverlay.Submitted:
		// The editor stays up until the service returns the revised summary.
		m.feedbackOverlay.Submitted = false
		op, err := m.engine.SubmitRevision()
		if err != nil {
			return m, m.handleError(err)
		}
		m.syncFromEngine()
		return m, m.exec(op)
	}
	m.syncFromEngine()
	return m, nil
}

func (m *home) handleConfirmState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmationOverlay == nil {
		m.state = stateDefault
		return m, nil
	}
	if !m.confirmationOverlay.HandleKeyPress(msg) {
		return m, nil
	}
	action := m.pendingConfirmAction
	confirmed := m.confirmationOverlay.Confirmed()
	m.confirmationOverlay = nil
	m.pendingConfirmAction = nil
	m.state = stateDefault
	m.syncFromEngine()
	if confirmed && action != nil {
		return m, action()
	}
	return m, nil
}

// handleHelpState closes the help screen on any key.
func (m *home) handleHelpState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.handleQuit()
	}
	m.state = stateDefault
	m.syncFromEngine()
	return m, nil
}

func (m *home) handleReportState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.handleQuit()
	case "esc", "q":
		m.state = stateDefault
		m.syncFromEngine()
		return m, nil
	case "ctrl+y", "y":
		return m, m.copyCmd()
	case "pgup":
		m.reportView.ScrollUp()
		return m, nil
	case "pgdown":
		m.reportView.ScrollDown()
		return m, nil
	}
	return m, m.reportView.Update(msg)
}

// -- Actions --

func (m *home) send() tea.Cmd {
	op, err := m.engine.SendText(m.input.Value())
	switch {
	case errors.Is(err, session.ErrEmptyMessage), errors.Is(err, session.ErrBusy):
		return nil
	case err != nil:
		return m.handleError(err)
	}
	m.syncFromEngine()
	return m.exec(op)
}

func (m *home) beginPhase() tea.Cmd {
	op, err := m.engine.BeginPhase()
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			return nil
		}
		return m.handleError(err)
	}
	m.syncFromEngine()
	return m.exec(op)
}

func (m *home) approve() tea.Cmd {
	op, err := m.engine.Approve()
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			return nil
		}
		return m.handleError(err)
	}
	m.syncFromEngine()
	return m.exec(op)
}

func (m *home) requestChanges() tea.Cmd {
	if err := m.engine.RequestChanges(); err != nil {
		if errors.Is(err, session.ErrBusy) {
			return nil
		}
		return m.handleError(err)
	}
	m.syncFromEngine()
	return nil
}

func (m *home) refresh() tea.Cmd {
	if !m.engine.Loaded() {
		if m.engine.Loading() {
			return nil
		}
		op := m.engine.Load()
		m.syncFromEngine()
		return m.exec(op)
	}
	op, err := m.engine.Refresh(true)
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			m.toastManager.Info("Waiting for the current request to finish")
			return m.toastTickCmd()
		}
		return m.handleError(err)
	}
	return m.exec(op)
}

// openReport shows the final report, fetching it first if needed.
func (m *home) openReport() tea.Cmd {
	if !m.engine.Completed() {
		return nil
	}
	if md, ok := m.engine.Report(); ok {
		m.reportView.SetContent(md)
		m.state = stateReport
		m.syncFromEngine()
		return nil
	}
	op, err := m.engine.LoadReport()
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			return nil
		}
		return m.handleError(err)
	}
	m.reportRequested = true
	m.reportToastID = m.toastManager.Loading("Loading report…")
	return tea.Batch(m.exec(op), m.toastTickCmd())
}

// confirmEndPhase asks before closing the phase. Demo sessions only.
func (m *home) confirmEndPhase() tea.Cmd {
	if !m.demo || !m.engine.CanSend() || m.reviewing() || m.engine.AwaitingPhaseStart() {
		return nil
	}
	return m.confirmAction("End this phase?",
		"The guide will summarize what you have covered so far.",
		func() tea.Cmd {
			op, err := m.engine.EndPhase()
			if err != nil {
				return m.handleError(err)
			}
			m.syncFromEngine()
			return m.exec(op)
		})
}

// copyCmd copies the most relevant text on screen: the report, the pending
// summary, or the guide's last message.
func (m *home) copyCmd() tea.Cmd {
	what, text := m.copyTarget()
	if text == "" {
		return nil
	}
	return func() tea.Msg {
		return clipboardMsg{what: what, err: clipboard.WriteAll(text)}
	}
}

func (m *home) copyTarget() (string, string) {
	if m.state == stateReport {
		return "Report", m.reportView.Markdown()
	}
	if s, ok := m.engine.PendingSummary(); ok {
		return "Summary", s.Text
	}
	entries := m.engine.Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Kind == session.EntryChat && e.Role == session.RoleAssistant {
			return "Message", e.Content
		}
	}
	return "", ""
}

func (m *home) loadAuditEvents() tea.Cmd {
	s, ok := m.engine.Session()
	if !ok {
		return nil
	}
	audit := m.audit
	scope := m.scope(s)
	return func() tea.Msg {
		events, err := audit.Query(auditQuery(scope))
		if err != nil {
			log.WarningLog.Printf("activity pane: %v", err)
			return nil
		}
		return auditEventsMsg{events: events}
	}
}

func (m *home) handleError(err error) tea.Cmd {
	log.ErrorLog.Printf("%v", err)
	m.toastManager.Error(err.Error())
	return m.toastTickCmd()
}

// confirmAction shows a confirmation modal and stores the action to execute on confirm.
// The action runs from Update, so any network work it starts is returned as a command.
func (m *home) confirmAction(title, description string, action func() tea.Cmd) tea.Cmd {
	m.state = stateConfirm
	m.pendingConfirmAction = action
	m.confirmationOverlay = overlay.NewConfirmationOverlay(title, description, 50)
	return nil
}

// keydownCallback clears the menu option highlighting after 500ms.
func (m *home) keydownCallback(name keys.KeyName) tea.Cmd {
	m.menu.Keydown(name)
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
		case <-time.After(500 * time.Millisecond):
		}

		return keyupMsg{}
	}
}
