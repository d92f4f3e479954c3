package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/kastheco/discovery/config/auditlog"
	"github.com/kastheco/discovery/log"
	"github.com/kastheco/discovery/session/opfsm"
)

type sendKind int

const (
	sendText sendKind = iota
	sendBeginSession
	sendBeginPhase
)

type loadOutcome struct {
	session Session
	err     error
	passive bool
	manual  bool
	epoch   uint64
}

type sendOutcome struct {
	kind  sendKind
	reply Reply
	err   error
}

type endPhaseOutcome struct {
	trigger Signal
	reply   Reply
	err     error
}

// refreshOutcome is the fetch that closes out an operation.
type refreshOutcome struct {
	session Session
	err     error
}

type approvalOutcome struct {
	action    ApprovalAction
	prevPhase int
	session   Session
	err       error
}

type reportOutcome struct {
	report Report
	err    error
}

func (loadOutcome) outcome()     {}
func (sendOutcome) outcome()     {}
func (endPhaseOutcome) outcome() {}
func (refreshOutcome) outcome()  {}
func (approvalOutcome) outcome() {}
func (reportOutcome) outcome()   {}

// Load fetches the session. It is called on mount and again to retry a
// failed initial fetch.
func (e *Engine) Load() Op {
	e.loading = true
	e.errMsg = ""
	return e.fetchOp(false, false)
}

// Refresh re-fetches the session outside of any operation. Manual refreshes
// surface failures; polls only log them.
func (e *Engine) Refresh(manual bool) (Op, error) {
	if !e.store.Loaded() {
		return nil, ErrNoSession
	}
	if e.op.Busy() {
		return nil, fmt.Errorf("%w: %s", ErrBusy, e.op)
	}
	return e.fetchOp(true, manual), nil
}

// SendText sends stakeholder input. The line is shown immediately and rolled
// back if the service rejects it.
func (e *Engine) SendText(text string) (Op, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyMessage
	}
	if err := e.requireActive(); err != nil {
		return nil, err
	}
	if err := e.begin(opfsm.StartSend); err != nil {
		return nil, err
	}
	e.transcript.Append(ChatEntry(RoleUser, trimmed))
	return e.sendOp(sendText, trimmed), nil
}

// BeginPhase asks the service for the opening turn of the phase that was
// just unlocked by an approval.
func (e *Engine) BeginPhase() (Op, error) {
	if err := e.requireActive(); err != nil {
		return nil, err
	}
	if !e.awaitingPhaseStart {
		return nil, ErrNotAwaitingPhase
	}
	if err := e.begin(opfsm.StartSend); err != nil {
		return nil, err
	}
	return e.sendOp(sendBeginPhase, TokenBeginPhase), nil
}

// EndPhase is the stakeholder's explicit request to close the phase.
func (e *Engine) EndPhase() (Op, error) {
	if err := e.requireActive(); err != nil {
		return nil, err
	}
	if e.approval.HasSummary() {
		return nil, fmt.Errorf("%w: summary awaiting approval", ErrBusy)
	}
	if err := e.begin(opfsm.StartEndPhase); err != nil {
		return nil, err
	}
	e.transcript.Append(ChatEntry(RoleUser, TokenNext))
	e.emit(auditlog.EventPhaseEndRequested, "phase end requested", auditlog.WithDetail(SignalUser.String()))
	return e.endPhaseOp(SignalUser), nil
}

// RequestChanges opens the feedback editor for the pending summary. No
// request is made until SubmitRevision.
func (e *Engine) RequestChanges() error {
	if e.op == opfsm.OpApproving {
		return ErrBusy
	}
	if !e.approval.HasSummary() {
		return ErrNoPendingSummary
	}
	if err := e.transitionApproval(opfsm.ChangesRequested); err != nil {
		return err
	}
	e.feedback = ""
	return nil
}

// CancelRevision closes the feedback editor and discards its text.
func (e *Engine) CancelRevision() error {
	if e.op == opfsm.OpApproving {
		return ErrBusy
	}
	if err := e.transitionApproval(opfsm.RevisionCancelled); err != nil {
		return err
	}
	e.feedback = ""
	return nil
}

// Approve accepts the pending summary.
func (e *Engine) Approve() (Op, error) {
	if !e.approval.HasSummary() {
		return nil, ErrNoPendingSummary
	}
	if err := e.begin(opfsm.StartApproval); err != nil {
		return nil, err
	}
	return e.approvalOp(ActionApprove, nil), nil
}

// SubmitRevision sends the feedback collected since RequestChanges. Empty
// feedback is allowed.
func (e *Engine) SubmitRevision() (Op, error) {
	if e.approval != opfsm.ApprovalRevisionRequested {
		return nil, fmt.Errorf("%w: no revision open", ErrNoPendingSummary)
	}
	if err := e.begin(opfsm.StartApproval); err != nil {
		return nil, err
	}
	feedback := e.feedback
	e.emit(auditlog.EventChangesRequested, "changes requested", auditlog.WithDetail(feedback))
	return e.approvalOp(ActionRequestChanges, &feedback), nil
}

// LoadReport fetches the final report of a completed session.
func (e *Engine) LoadReport() (Op, error) {
	if !e.Completed() {
		return nil, ErrReportUnavailable
	}
	if e.loadingReport {
		return nil, ErrBusy
	}
	e.loadingReport = true
	e.errMsg = ""
	svc := e.svc
	return func(ctx context.Context) Outcome {
		r, err := svc.FetchReport(ctx)
		return reportOutcome{report: r, err: err}
	}, nil
}

// Apply folds the result of an Op into the engine state. It may return a
// follow-up Op, which the caller must run the same way.
func (e *Engine) Apply(o Outcome) Op {
	switch o := o.(type) {
	case loadOutcome:
		return e.applyLoad(o)
	case sendOutcome:
		return e.applySend(o)
	case endPhaseOutcome:
		return e.applyEndPhase(o)
	case refreshOutcome:
		return e.applyRefresh(o)
	case approvalOutcome:
		return e.applyApproval(o)
	case reportOutcome:
		e.applyReport(o)
	}
	return nil
}

func (e *Engine) requireActive() error {
	if !e.store.Loaded() {
		return ErrNoSession
	}
	if e.Completed() {
		return ErrSessionCompleted
	}
	return nil
}

func (e *Engine) fetchOp(passive, manual bool) Op {
	svc, epoch := e.svc, e.epoch
	return func(ctx context.Context) Outcome {
		s, err := svc.FetchSession(ctx)
		return loadOutcome{session: s, err: err, passive: passive, manual: manual, epoch: epoch}
	}
}

func (e *Engine) sendOp(kind sendKind, text string) Op {
	svc := e.svc
	return func(ctx context.Context) Outcome {
		r, err := svc.SendMessage(ctx, text)
		return sendOutcome{kind: kind, reply: r, err: err}
	}
}

func (e *Engine) endPhaseOp(trigger Signal) Op {
	svc := e.svc
	return func(ctx context.Context) Outcome {
		r, err := svc.SendMessage(ctx, TokenNext)
		return endPhaseOutcome{trigger: trigger, reply: r, err: err}
	}
}

func (e *Engine) tailRefreshOp() Op {
	svc := e.svc
	return func(ctx context.Context) Outcome {
		s, err := svc.FetchSession(ctx)
		return refreshOutcome{session: s, err: err}
	}
}

func (e *Engine) approvalOp(action ApprovalAction, feedback *string) Op {
	svc, prev := e.svc, e.store.Phase()
	req := ApprovalRequest{Action: action, Feedback: feedback}
	return func(ctx context.Context) Outcome {
		s, err := svc.SubmitApproval(ctx, req)
		return approvalOutcome{action: action, prevPhase: prev, session: s, err: err}
	}
}

func (e *Engine) applyLoad(o loadOutcome) Op {
	if o.passive {
		if o.epoch != e.epoch || e.op.Busy() {
			log.InfoLog.Printf("dropping session refresh that overlapped %s", e.op)
			return nil
		}
	} else {
		e.loading = false
	}
	if o.err != nil {
		if o.passive && !o.manual {
			log.WarningLog.Printf("poll session: %v", o.err)
			return nil
		}
		e.fail("load session", o.err, MsgLoadFailed)
		return nil
	}
	return e.reconcile(o.session, true, true)
}

func (e *Engine) applySend(o sendOutcome) Op {
	if o.err != nil {
		switch o.kind {
		case sendText:
			e.transcript.RollbackLast()
			e.fail("send message", o.err, MsgSendFailed)
		case sendBeginSession:
			e.transcript.RollbackLast()
			e.bootstrapped = false
			e.fail("start session", o.err, MsgStartFailed)
		case sendBeginPhase:
			e.fail("begin phase", o.err, MsgBeginPhaseFailed)
		}
		e.finish(opfsm.Fail)
		return nil
	}

	e.transcript.Append(ChatEntry(RoleAssistant, o.reply.AssistantMessage))
	switch o.kind {
	case sendText:
		e.drafts.Clear()
		e.emit(auditlog.EventMessageSent, "message sent")
	case sendBeginSession:
		e.emit(auditlog.EventSessionStarted, "session started")
	case sendBeginPhase:
		e.awaitingPhaseStart = false
		e.emit(auditlog.EventPhaseStarted, "phase started")
	}

	if o.reply.HasSummary() {
		e.receiveSummary(o.reply.Summary)
		return e.tailRefreshOp()
	}
	if sig := e.detector.Evaluate(o.reply); sig != SignalNone && e.mayEndPhase() {
		next, err := opfsm.ApplyOp(e.op, opfsm.Escalate)
		if err == nil {
			e.op = next
			e.epoch++
			log.InfoLog.Printf("requesting phase summary (%s signal)", sig)
			e.emit(auditlog.EventPhaseEndRequested, "phase end requested", auditlog.WithDetail(sig.String()))
			return e.endPhaseOp(sig)
		}
	}
	return e.tailRefreshOp()
}

func (e *Engine) applyEndPhase(o endPhaseOutcome) Op {
	if o.err != nil {
		if o.trigger == SignalUser {
			e.transcript.RollbackLast()
		}
		e.fail("end phase", o.err, MsgEndPhaseFailed)
		e.finish(opfsm.Fail)
		return nil
	}
	if o.reply.AssistantMessage != "" {
		e.transcript.Append(ChatEntry(RoleAssistant, o.reply.AssistantMessage))
	}
	if o.reply.HasSummary() {
		e.receiveSummary(o.reply.Summary)
	}
	return e.tailRefreshOp()
}

func (e *Engine) applyRefresh(o refreshOutcome) Op {
	e.finish(opfsm.Finish)
	if o.err != nil {
		e.fail("refresh session", o.err, MsgLoadFailed)
		return nil
	}
	return e.reconcile(o.session, false, false)
}

func (e *Engine) applyApproval(o approvalOutcome) Op {
	if o.err != nil {
		e.fail("submit approval", o.err, MsgApprovalFailed)
		e.finish(opfsm.Fail)
		return nil
	}
	e.finish(opfsm.Finish)

	if o.action == ActionRequestChanges {
		if err := e.transitionApproval(opfsm.RevisionSubmitted); err != nil {
			log.WarningLog.Printf("approval state: %v", err)
		}
		text := o.session.PendingPhaseSummary
		if strings.TrimSpace(text) == "" && e.pending != nil {
			text = e.pending.Text
		}
		e.pending = &PendingSummary{Text: text, IsRevised: true}
		e.feedback = ""
		follow := e.reconcile(o.session, false, false)
		e.emit(auditlog.EventSummaryRevised, "revised summary received")
		return follow
	}

	if err := e.transitionApproval(opfsm.Approved); err != nil {
		log.WarningLog.Printf("approval state: %v", err)
		e.approval = opfsm.ApprovalIdle
	}
	e.pending = nil
	e.feedback = ""
	follow := e.reconcile(o.session, false, false)
	e.emit(auditlog.EventSummaryApproved, fmt.Sprintf("phase %d summary approved", o.prevPhase))

	switch {
	case o.session.IsCompleted():
		e.transcript.AddFixture(ChatEntry(RoleAssistant, CompletionNotice))
		e.awaitingPhaseStart = false
		e.emit(auditlog.EventSessionCompleted, "all phases approved")
	case o.session.CurrentPhase > o.prevPhase:
		e.transcript.AddFixture(DividerEntry(o.prevPhase))
		e.awaitingPhaseStart = true
		e.emit(auditlog.EventPhaseAdvanced, fmt.Sprintf("phase %d -> %d", o.prevPhase, o.session.CurrentPhase))
	}
	return follow
}

func (e *Engine) applyReport(o reportOutcome) {
	e.loadingReport = false
	if o.err != nil {
		e.fail("load report", o.err, MsgReportFailed)
		return
	}
	content := o.report.Content
	e.report = &content
	e.emit(auditlog.EventReportLoaded, "report loaded")
}

// reconcile installs a fetched session. observe runs the phrase detector over
// assistant output it has not seen yet; clearPending lets a fetch without a
// pending summary dismiss the one on screen.
func (e *Engine) reconcile(s Session, observe, clearPending bool) Op {
	first := !e.store.Loaded()
	if err := e.store.Replace(s); err != nil {
		log.WarningLog.Printf("%v", err)
		e.emit(auditlog.EventSessionRegressed, err.Error(), auditlog.WithLevel("warn"))
	}
	if first {
		e.emit(auditlog.EventSessionLoaded, fmt.Sprintf("session loaded (%s)", s.Status))
	}
	// An empty record only replaces the transcript once no optimistic line
	// is waiting for the server to confirm it.
	if len(s.Messages) > 0 || !e.transcript.HasProvisional() {
		e.transcript.Sync(s.Messages)
	}
	if s.IsCompleted() {
		e.awaitingPhaseStart = false
	}
	e.syncPending(s, clearPending)

	seen := e.observed
	e.observed = len(s.Messages)

	if op := e.maybeBootstrap(); op != nil {
		return op
	}
	if !observe {
		return nil
	}
	idx, content := s.LastAssistant()
	if idx < 0 || idx < seen || !e.detector.Matches(content) {
		return nil
	}
	if !e.mayEndPhase() || e.begin(opfsm.StartEndPhase) != nil {
		return nil
	}
	log.InfoLog.Printf("requesting phase summary (%s signal)", SignalHeuristic)
	e.emit(auditlog.EventPhaseEndRequested, "phase end requested", auditlog.WithDetail(SignalHeuristic.String()))
	return e.endPhaseOp(SignalHeuristic)
}

func (e *Engine) syncPending(s Session, clear bool) {
	text := s.PendingPhaseSummary
	switch {
	case strings.TrimSpace(text) != "" && e.pending == nil:
		e.receiveSummary(text)
	case strings.TrimSpace(text) != "":
		e.pending.Text = text
	case clear && e.approval.HasSummary():
		if err := e.transitionApproval(opfsm.Cleared); err != nil {
			log.WarningLog.Printf("approval state: %v", err)
		}
		e.pending = nil
		e.feedback = ""
	}
}

func (e *Engine) receiveSummary(text string) {
	if err := e.transitionApproval(opfsm.SummaryReceived); err != nil {
		log.WarningLog.Printf("approval state: %v", err)
		return
	}
	if e.pending != nil {
		e.pending.Text = text
	} else {
		e.pending = &PendingSummary{Text: text}
	}
	e.emit(auditlog.EventSummaryReceived, "phase summary received")
}

// mayEndPhase guards every automatic phase-end request.
func (e *Engine) mayEndPhase() bool {
	return e.store.Loaded() && !e.Completed() && !e.approval.HasSummary()
}

// maybeBootstrap sends BEGIN_SESSION for a fresh, empty session. The guard is
// set on the first evaluation and only reset when the start request fails.
func (e *Engine) maybeBootstrap() Op {
	if e.bootstrapped || !e.store.Loaded() {
		return nil
	}
	s, _ := e.store.Current()
	if s.Status != StatusNotStarted || len(s.Messages) > 0 {
		e.bootstrapped = true
		return nil
	}
	if e.begin(opfsm.StartSend) != nil {
		return nil
	}
	e.bootstrapped = true
	e.transcript.Append(ChatEntry(RoleUser, TokenBeginSession))
	log.InfoLog.Printf("starting new discovery session")
	return e.sendOp(sendBeginSession, TokenBeginSession)
}
