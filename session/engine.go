package session

import (
	"context"
	"fmt"

	"github.com/kastheco/discovery/config/auditlog"
	"github.com/kastheco/discovery/log"
	"github.com/kastheco/discovery/session/opfsm"
)

// Service is the remote conversation service that owns the session record.
type Service interface {
	FetchSession(ctx context.Context) (Session, error)
	SendMessage(ctx context.Context, text string) (Reply, error)
	SubmitApproval(ctx context.Context, req ApprovalRequest) (Session, error)
	FetchReport(ctx context.Context) (Report, error)
}

// DraftSink is told when the unsent input should be discarded.
type DraftSink interface {
	Clear()
}

type nopDrafts struct{}

func (nopDrafts) Clear() {}

// Op is deferred network work. The caller runs it off the event loop and
// hands the Outcome back to Engine.Apply on the event loop.
type Op func(ctx context.Context) Outcome

// Outcome is the result of an Op. Only Engine.Apply interprets it.
type Outcome interface {
	outcome()
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Detector *Detector
	Drafts   DraftSink
	Audit    auditlog.Logger
	// Scope derives the audit scope of a session.
	Scope func(Session) string
}

// Engine drives a discovery session. All methods must be called from a single
// goroutine; the network work they start is returned as an Op so the caller
// decides where it runs.
type Engine struct {
	svc        Service
	detector   *Detector
	drafts     DraftSink
	audit      auditlog.Logger
	scopeFn    func(Session) string
	store      *Store
	transcript *Transcript

	op       opfsm.Operation
	approval opfsm.Approval
	pending  *PendingSummary
	feedback string

	awaitingPhaseStart bool
	// bootstrapped is the once-per-mount guard for BEGIN_SESSION.
	bootstrapped bool
	// observed is how many server messages the detector has already seen.
	observed int
	// epoch increments whenever an operation starts; passive refreshes that
	// straddle one are discarded.
	epoch uint64

	loading       bool
	loadingReport bool
	report        *string
	errMsg        string
}

// NewEngine returns an engine over svc. No network work happens until Load.
func NewEngine(svc Service, opts Options) *Engine {
	e := &Engine{
		svc:        svc,
		detector:   opts.Detector,
		drafts:     opts.Drafts,
		audit:      opts.Audit,
		scopeFn:    opts.Scope,
		store:      NewStore(),
		transcript: NewTranscript(),
		op:         opfsm.OpIdle,
		approval:   opfsm.ApprovalIdle,
	}
	if e.detector == nil {
		e.detector = NewDetector(nil)
	}
	if e.drafts == nil {
		e.drafts = nopDrafts{}
	}
	if e.audit == nil {
		e.audit = auditlog.NopLogger()
	}
	if e.scopeFn == nil {
		e.scopeFn = func(s Session) string { return s.ID }
	}
	return e
}

// Session returns the last fetched session.
func (e *Engine) Session() (Session, bool) { return e.store.Current() }

// Loaded reports whether a session has been fetched.
func (e *Engine) Loaded() bool { return e.store.Loaded() }

// Loading reports whether the initial fetch is outstanding.
func (e *Engine) Loading() bool { return e.loading }

// Entries returns the transcript as displayed.
func (e *Engine) Entries() []Entry { return e.transcript.Entries() }

// Operation returns the in-flight operation.
func (e *Engine) Operation() opfsm.Operation { return e.op }

// Approval returns the summary review state.
func (e *Engine) Approval() opfsm.Approval { return e.approval }

// PendingSummary returns the summary awaiting a decision.
func (e *Engine) PendingSummary() (PendingSummary, bool) {
	if e.pending == nil {
		return PendingSummary{}, false
	}
	return *e.pending, true
}

// Feedback returns the revision feedback being composed.
func (e *Engine) Feedback() string { return e.feedback }

// SetFeedback updates the revision feedback. Ignored unless a revision is open.
func (e *Engine) SetFeedback(text string) {
	if e.approval == opfsm.ApprovalRevisionRequested {
		e.feedback = text
	}
}

// AwaitingPhaseStart reports whether the next phase must be begun explicitly.
func (e *Engine) AwaitingPhaseStart() bool { return e.awaitingPhaseStart }

// Completed reports whether the session has finished all phases.
func (e *Engine) Completed() bool { return e.store.Status() == StatusCompleted }

// Phase returns the current phase clamped to 1..MaxPhase.
func (e *Engine) Phase() int { return ClampPhase(e.store.Phase()) }

// Err returns the inline error message, if any.
func (e *Engine) Err() string { return e.errMsg }

// DismissError clears the inline error.
func (e *Engine) DismissError() { e.errMsg = "" }

// Report returns the loaded final report.
func (e *Engine) Report() (string, bool) {
	if e.report == nil {
		return "", false
	}
	return *e.report, true
}

// LoadingReport reports whether the report fetch is outstanding.
func (e *Engine) LoadingReport() bool { return e.loadingReport }

// CloseReport discards the loaded report.
func (e *Engine) CloseReport() { e.report = nil }

// CanSend reports whether user input would currently be accepted.
func (e *Engine) CanSend() bool {
	return e.store.Loaded() && !e.Completed() && !e.op.Busy()
}

// CanRefresh reports whether a passive refresh may start.
func (e *Engine) CanRefresh() bool {
	return e.store.Loaded() && !e.loading && !e.op.Busy()
}

// begin moves the operation state out of idle, or reports ErrBusy.
func (e *Engine) begin(ev opfsm.OpEvent) error {
	next, err := opfsm.ApplyOp(e.op, ev)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBusy, e.op)
	}
	e.op = next
	e.epoch++
	e.errMsg = ""
	return nil
}

// finish returns the operation state to idle.
func (e *Engine) finish(ev opfsm.OpEvent) {
	next, err := opfsm.ApplyOp(e.op, ev)
	if err != nil {
		log.WarningLog.Printf("operation state: %v", err)
		e.op = opfsm.OpIdle
		return
	}
	e.op = next
}

func (e *Engine) transitionApproval(ev opfsm.ApprovalEvent) error {
	next, err := opfsm.ApplyApproval(e.approval, ev)
	if err != nil {
		return err
	}
	e.approval = next
	return nil
}

// fail records an operation error for display and in the audit log.
func (e *Engine) fail(op string, err error, fallback string) {
	e.errMsg = DisplayError(err, fallback)
	log.ErrorLog.Printf("%s: %v", op, err)
	e.emit(auditlog.EventError, op+" failed",
		auditlog.WithDetail(err.Error()),
		auditlog.WithLevel("error"))
}

func (e *Engine) emit(kind auditlog.EventKind, msg string, opts ...auditlog.EventOption) {
	s, _ := e.store.Current()
	base := []auditlog.EventOption{
		auditlog.WithSession(s.ID),
		auditlog.WithPhase(s.CurrentPhase),
	}
	e.audit.Emit(auditlog.NewEvent(kind, e.scopeFn(s), msg, append(base, opts...)...))
}
