package session

import (
	"context"
	"errors"
	"testing"

	"github.com/kastheco/discovery/config/auditlog"
	"github.com/kastheco/discovery/session/opfsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService scripts the conversation service. Fetches pop from sessions and
// the last one repeats; sends are answered by send.
type fakeService struct {
	sessions []Session
	fetchErr error
	send     func(text string) (Reply, error)
	approve  func(req ApprovalRequest) (Session, error)
	report   Report

	sent      []string
	approvals []ApprovalRequest
	fetches   int
}

func (f *fakeService) FetchSession(context.Context) (Session, error) {
	f.fetches++
	if f.fetchErr != nil {
		return Session{}, f.fetchErr
	}
	s := f.sessions[0]
	if len(f.sessions) > 1 {
		f.sessions = f.sessions[1:]
	}
	return s, nil
}

func (f *fakeService) SendMessage(_ context.Context, text string) (Reply, error) {
	f.sent = append(f.sent, text)
	if f.send == nil {
		return Reply{AssistantMessage: "ok"}, nil
	}
	return f.send(text)
}

func (f *fakeService) SubmitApproval(_ context.Context, req ApprovalRequest) (Session, error) {
	f.approvals = append(f.approvals, req)
	return f.approve(req)
}

func (f *fakeService) FetchReport(context.Context) (Report, error) {
	return f.report, nil
}

type fakeDrafts struct{ cleared int }

func (d *fakeDrafts) Clear() { d.cleared++ }

type detailErr struct{ detail string }

func (e detailErr) Error() string  { return "http 400: " + e.detail }
func (e detailErr) Detail() string { return e.detail }

func newTestEngine(svc *fakeService) (*Engine, *fakeDrafts) {
	d := &fakeDrafts{}
	return NewEngine(svc, Options{Drafts: d}), d
}

// step runs op and applies its outcome, returning any follow-up.
func step(t *testing.T, e *Engine, op Op) Op {
	t.Helper()
	require.NotNil(t, op)
	return e.Apply(op(context.Background()))
}

// drain runs op and every follow-up until the engine settles.
func drain(t *testing.T, e *Engine, op Op) {
	t.Helper()
	for i := 0; op != nil; i++ {
		require.Less(t, i, 20, "engine did not settle")
		op = e.Apply(op(context.Background()))
	}
}

func msgs(pairs ...string) []Message {
	out := make([]Message, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Message{Role: Role(pairs[i]), Content: pairs[i+1]})
	}
	return out
}

func inProgress(phase int, m []Message) Session {
	return Session{ID: "s1", Status: StatusInProgress, CurrentPhase: phase, Messages: m}
}

// loaded returns an engine that has settled on s.
func loaded(t *testing.T, svc *fakeService, s Session) (*Engine, *fakeDrafts) {
	t.Helper()
	svc.sessions = append([]Session{s}, svc.sessions...)
	e, d := newTestEngine(svc)
	drain(t, e, e.Load())
	return e, d
}

func withSummary(t *testing.T, svc *fakeService, phase int, summary string) *Engine {
	t.Helper()
	s := inProgress(phase, msgs("assistant", "hello"))
	s.PendingPhaseSummary = summary
	e, _ := loaded(t, svc, s)
	require.Equal(t, opfsm.ApprovalSummaryPending, e.Approval())
	return e
}

func TestBootstrap_FreshSessionSendsBeginSession(t *testing.T) {
	svc := &fakeService{
		sessions: []Session{
			{ID: "s1", Status: StatusNotStarted, CurrentPhase: 1},
			inProgress(1, msgs("assistant", "Welcome to discovery.")),
		},
		send: func(string) (Reply, error) { return Reply{AssistantMessage: "Welcome to discovery."}, nil },
	}
	e, _ := newTestEngine(svc)

	follow := step(t, e, e.Load())
	require.NotNil(t, follow, "bootstrap should start immediately")
	assert.Equal(t, opfsm.OpSending, e.Operation())
	assert.Equal(t, []Entry{{Kind: EntryChat, Role: RoleUser, Content: TokenBeginSession, Local: true}}, e.Entries())

	follow = step(t, e, follow)
	entries := e.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, TokenBeginSession, entries[0].Content)
	assert.Equal(t, RoleAssistant, entries[1].Role)
	assert.Equal(t, "Welcome to discovery.", entries[1].Content)

	assert.Nil(t, step(t, e, follow))
	s, ok := e.Session()
	require.True(t, ok)
	assert.Equal(t, StatusInProgress, s.Status)
	assert.Equal(t, 1, s.CurrentPhase)
	assert.Equal(t, opfsm.OpIdle, e.Operation())
	assert.Equal(t, []string{TokenBeginSession}, svc.sent)
}

func TestBootstrap_RunsAtMostOnce(t *testing.T) {
	svc := &fakeService{sessions: []Session{{ID: "s1", Status: StatusNotStarted, CurrentPhase: 1}}}
	e, _ := newTestEngine(svc)
	drain(t, e, e.Load())

	op, err := e.Refresh(true)
	require.NoError(t, err)
	drain(t, e, op)

	assert.Equal(t, []string{TokenBeginSession}, svc.sent)
}

func TestBootstrap_CompletedSessionSendsNothing(t *testing.T) {
	svc := &fakeService{}
	s := Session{ID: "s1", Status: StatusCompleted, CurrentPhase: 4, Messages: msgs("assistant", "done")}
	e, _ := loaded(t, svc, s)

	assert.Empty(t, svc.sent)
	assert.True(t, e.Completed())
	_, err := e.SendText("hello")
	assert.ErrorIs(t, err, ErrSessionCompleted)
}

func TestBootstrap_NotStartedWithMessagesWaits(t *testing.T) {
	svc := &fakeService{}
	s := Session{ID: "s1", Status: StatusNotStarted, CurrentPhase: 1, Messages: msgs("assistant", "hi")}
	_, _ = loaded(t, svc, s)
	assert.Empty(t, svc.sent)
}

func TestBootstrap_FailureRollsBackAndRetries(t *testing.T) {
	calls := 0
	svc := &fakeService{
		sessions: []Session{{ID: "s1", Status: StatusNotStarted, CurrentPhase: 1}},
		send: func(string) (Reply, error) {
			calls++
			if calls == 1 {
				return Reply{}, errors.New("connection refused")
			}
			return Reply{AssistantMessage: "Welcome."}, nil
		},
	}
	e, _ := newTestEngine(svc)
	drain(t, e, e.Load())

	assert.Empty(t, e.Entries())
	assert.Equal(t, MsgStartFailed, e.Err())
	assert.Equal(t, opfsm.OpIdle, e.Operation())

	op, err := e.Refresh(false)
	require.NoError(t, err)
	drain(t, e, op)

	assert.Equal(t, []string{TokenBeginSession, TokenBeginSession}, svc.sent)
	assert.Equal(t, "Welcome.", e.Entries()[1].Content)
}

func TestLoad_FailureThenRetry(t *testing.T) {
	svc := &fakeService{fetchErr: detailErr{"Not authenticated"}}
	e, _ := newTestEngine(svc)
	drain(t, e, e.Load())

	assert.False(t, e.Loaded())
	assert.False(t, e.Loading())
	assert.Equal(t, "Not authenticated", e.Err())

	svc.fetchErr = nil
	svc.sessions = []Session{inProgress(2, msgs("assistant", "hi"))}
	drain(t, e, e.Load())
	assert.True(t, e.Loaded())
	assert.Empty(t, e.Err())
	assert.Equal(t, 2, e.Phase())
}

func TestSendText_Validation(t *testing.T) {
	svc := &fakeService{}
	e, _ := newTestEngine(svc)

	_, err := e.SendText("hello")
	assert.ErrorIs(t, err, ErrNoSession)

	e, _ = loaded(t, svc, inProgress(1, msgs("assistant", "hi")))
	_, err = e.SendText("   \n ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, svc.sent)
}

func TestSendText_SecondSubmitWhileInFlightIsRejected(t *testing.T) {
	svc := &fakeService{}
	e, _ := loaded(t, svc, inProgress(1, msgs("assistant", "hi")))

	op, err := e.SendText("first")
	require.NoError(t, err)
	before := e.Entries()

	_, err = e.SendText("second")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = e.EndPhase()
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, before, e.Entries())

	drain(t, e, op)
	assert.Equal(t, []string{"first"}, svc.sent)
}

func TestSendText_FailureRollsBack(t *testing.T) {
	svc := &fakeService{
		send: func(string) (Reply, error) { return Reply{}, detailErr{"Session is paused"} },
	}
	e, drafts := loaded(t, svc, inProgress(1, msgs("assistant", "hi")))
	before := e.Entries()

	op, err := e.SendText("  my answer ")
	require.NoError(t, err)
	assert.Len(t, e.Entries(), len(before)+1)
	assert.Equal(t, "my answer", e.Entries()[len(before)].Content)

	drain(t, e, op)
	assert.Equal(t, before, e.Entries())
	assert.Equal(t, "Session is paused", e.Err())
	assert.Equal(t, 0, drafts.cleared, "draft must survive a failed send")
	assert.Equal(t, opfsm.OpIdle, e.Operation())
	assert.True(t, e.CanSend())
}

func TestSendText_FailureWithoutDetailUsesFallback(t *testing.T) {
	svc := &fakeService{
		send: func(string) (Reply, error) { return Reply{}, errors.New("dial tcp: refused") },
	}
	e, _ := loaded(t, svc, inProgress(1, msgs("assistant", "hi")))
	op, err := e.SendText("hello")
	require.NoError(t, err)
	drain(t, e, op)
	assert.Equal(t, MsgSendFailed, e.Err())

	e.DismissError()
	assert.Empty(t, e.Err())
}

func TestSendText_SuccessClearsDraftAndRefreshes(t *testing.T) {
	svc := &fakeService{
		sessions: []Session{inProgress(1, msgs("assistant", "hi", "user", "answer", "assistant", "tell me more"))},
		send:     func(string) (Reply, error) { return Reply{AssistantMessage: "tell me more"}, nil },
	}
	e, drafts := loaded(t, svc, inProgress(1, msgs("assistant", "hi")))

	op, err := e.SendText("answer")
	require.NoError(t, err)
	follow := step(t, e, op)
	assert.Equal(t, 1, drafts.cleared)
	assert.Equal(t, opfsm.OpSending, e.Operation(), "still sending until the refresh lands")

	drain(t, e, follow)
	assert.Equal(t, opfsm.OpIdle, e.Operation())
	entries := e.Entries()
	require.Len(t, entries, 3)
	for _, entry := range entries {
		assert.False(t, entry.Local, "server record replaces optimistic lines")
	}
	assert.Equal(t, []string{"answer"}, svc.sent)
}

func TestSendText_ExplicitSignalRequestsSummary(t *testing.T) {
	svc := &fakeService{
		send: func(text string) (Reply, error) {
			if text == TokenNext {
				return Reply{AssistantMessage: "Here is your summary.", PhaseCompleted: true, Summary: "Phase 1 summary"}, nil
			}
			return Reply{AssistantMessage: "Thanks.", PhaseCompleteSuggested: true}, nil
		},
	}
	start := inProgress(1, msgs("assistant", "hi"))
	e, _ := loaded(t, svc, start)
	svc.sessions = []Session{{ID: "s1", Status: StatusInProgress, CurrentPhase: 1, Messages: start.Messages, PendingPhaseSummary: "Phase 1 summary"}}

	op, err := e.SendText("that's everything")
	require.NoError(t, err)
	follow := step(t, e, op)
	assert.Equal(t, opfsm.OpEndingPhase, e.Operation())

	drain(t, e, follow)
	assert.Equal(t, []string{"that's everything", TokenNext}, svc.sent)
	assert.Equal(t, opfsm.ApprovalSummaryPending, e.Approval())
	p, ok := e.PendingSummary()
	require.True(t, ok)
	assert.Equal(t, "Phase 1 summary", p.Text)
	assert.False(t, p.IsRevised)
	assert.Equal(t, 1, e.Phase())
}

func TestSendText_SummaryInReplySkipsNext(t *testing.T) {
	svc := &fakeService{
		send: func(string) (Reply, error) {
			return Reply{AssistantMessage: "I'll compile a summary.", PhaseCompleted: true, Summary: "S", PhaseCompleteSuggested: true}, nil
		},
	}
	e, _ := loaded(t, svc, inProgress(1, msgs("assistant", "hi")))
	op, err := e.SendText("done")
	require.NoError(t, err)
	drain(t, e, op)

	assert.Equal(t, []string{"done"}, svc.sent)
	assert.Equal(t, opfsm.ApprovalSummaryPending, e.Approval())
}

func TestSendText_AutoNextFailureKeepsConfirmedTurns(t *testing.T) {
	svc := &fakeService{
		send: func(text string) (Reply, error) {
			if text == TokenNext {
				return Reply{}, errors.New("timeout")
			}
			return Reply{AssistantMessage: "Thanks.", PhaseCompleteSuggested: true}, nil
		},
	}
	e, _ := loaded(t, svc, inProgress(1, msgs("assistant", "hi")))
	op, err := e.SendText("answer")
	require.NoError(t, err)
	drain(t, e, op)

	entries := e.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "answer", entries[1].Content)
	assert.Equal(t, "Thanks.", entries[2].Content)
	assert.Equal(t, MsgEndPhaseFailed, e.Err())
	assert.Equal(t, opfsm.OpIdle, e.Operation())
}

func TestHeuristic_PollTriggersSummary(t *testing.T) {
	svc := &fakeService{
		send: func(string) (Reply, error) {
			return Reply{AssistantMessage: "Summary below.", PhaseCompleted: true, Summary: "Phase 1 summary"}, nil
		},
	}
	e, _ := loaded(t, svc, inProgress(1, msgs("assistant", "hi")))

	polled := inProgress(1, msgs("assistant", "hi", "user", "ok", "assistant", "Great, I Have What I Need For This Phase."))
	svc.sessions = []Session{polled}
	op, err := e.Refresh(false)
	require.NoError(t, err)
	follow := step(t, e, op)
	require.NotNil(t, follow)
	assert.Equal(t, opfsm.OpEndingPhase, e.Operation())

	drain(t, e, follow)
	assert.Equal(t, []string{TokenNext}, svc.sent)
	assert.Equal(t, opfsm.ApprovalSummaryPending, e.Approval())
	assert.Equal(t, 1, e.Phase())
}

func TestHeuristic_NeverRefiresOnSameMessage(t *testing.T) {
	svc := &fakeService{
		send: func(string) (Reply, error) { return Reply{AssistantMessage: "Not quite yet."}, nil },
	}
	trigger := inProgress(1, msgs("assistant", "Let me compile a summary."))
	e, _ := loaded(t, svc, trigger)
	require.Equal(t, []string{TokenNext}, svc.sent, "resumed session with a trigger phrase asks once")

	svc.sessions = []Session{trigger}
	for i := 0; i < 3; i++ {
		op, err := e.Refresh(false)
		require.NoError(t, err)
		drain(t, e, op)
	}
	assert.Equal(t, []string{TokenNext}, svc.sent)
}

func TestHeuristic_SuppressedWhileSummaryPending(t *testing.T) {
	svc := &fakeService{}
	s := inProgress(1, msgs("assistant", "I will generate a summary for your review."))
	s.PendingPhaseSummary = "existing"
	_, _ = loaded(t, svc, s)
	assert.Empty(t, svc.sent)
}

func TestHeuristic_StaleRefreshDuringSendIsDropped(t *testing.T) {
	svc := &fakeService{}
	e, _ := loaded(t, svc, inProgress(1, msgs("assistant", "hi")))

	poll, err := e.Refresh(false)
	require.NoError(t, err)
	svc.sessions = []Session{inProgress(1, msgs("assistant", "hi", "assistant", "compile a summary"))}

	_, err = e.SendText("answer")
	require.NoError(t, err)

	assert.Nil(t, step(t, e, poll))
	assert.Equal(t, opfsm.OpSending, e.Operation())
	assert.Equal(t, "answer", e.Entries()[1].Content, "optimistic line survives the stale poll")
	assert.Empty(t, filter(svc.sent, TokenNext))
}

func filter(sent []string, token string) []string {
	out := []string{}
	for _, s := range sent {
		if s == token {
			out = append(out, s)
		}
	}
	return out
}

func TestApprove_AdvancesPhaseAndAwaitsBegin(t *testing.T) {
	svc := &fakeService{
		approve: func(ApprovalRequest) (Session, error) {
			return inProgress(2, msgs("assistant", "hello", "assistant", "Phase 1 approved. Take a break.")), nil
		},
		send: func(string) (Reply, error) { return Reply{AssistantMessage: "Welcome to phase 2."}, nil },
	}
	e := withSummary(t, svc, 1, "Phase 1 summary")

	op, err := e.Approve()
	require.NoError(t, err)
	assert.Equal(t, opfsm.OpApproving, e.Operation())
	drain(t, e, op)

	require.Len(t, svc.approvals, 1)
	assert.Equal(t, ActionApprove, svc.approvals[0].Action)
	assert.Nil(t, svc.approvals[0].Feedback)
	assert.Equal(t, opfsm.ApprovalIdle, e.Approval())
	_, ok := e.PendingSummary()
	assert.False(t, ok)
	assert.True(t, e.AwaitingPhaseStart())
	assert.Equal(t, 2, e.Phase())

	entries := e.Entries()
	last := entries[len(entries)-1]
	assert.Equal(t, EntryDivider, last.Kind)
	assert.Equal(t, 1, last.Phase)
	assert.Empty(t, svc.sent, "next phase must not start on its own")

	svc.sessions = []Session{inProgress(2, msgs("assistant", "hello", "assistant", "Phase 1 approved. Take a break.", "assistant", "Welcome to phase 2."))}
	op, err = e.BeginPhase()
	require.NoError(t, err)
	assert.Len(t, e.Entries(), len(entries), "BEGIN_PHASE adds no user line")
	drain(t, e, op)

	assert.Equal(t, []string{TokenBeginPhase}, svc.sent)
	assert.False(t, e.AwaitingPhaseStart())
	assert.Equal(t, 1, countDividers(e.Entries()))
	entries = e.Entries()
	assert.Equal(t, EntryDivider, entries[2].Kind, "divider stays anchored after its phase")
}

func countDividers(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if e.Kind == EntryDivider {
			n++
		}
	}
	return n
}

func TestApprove_FinalPhaseCompletes(t *testing.T) {
	svc := &fakeService{
		approve: func(ApprovalRequest) (Session, error) {
			s := inProgress(4, msgs("assistant", "hello"))
			s.Status = StatusCompleted
			return s, nil
		},
		report: Report{Content: "# Discovery report"},
	}
	e := withSummary(t, svc, 4, "Phase 4 summary")

	_, err := e.LoadReport()
	assert.ErrorIs(t, err, ErrReportUnavailable)

	op, err := e.Approve()
	require.NoError(t, err)
	drain(t, e, op)

	assert.True(t, e.Completed())
	assert.False(t, e.AwaitingPhaseStart())
	assert.Zero(t, countDividers(e.Entries()))
	entries := e.Entries()
	assert.Equal(t, CompletionNotice, entries[len(entries)-1].Content)

	op, err = e.LoadReport()
	require.NoError(t, err)
	assert.True(t, e.LoadingReport())
	drain(t, e, op)
	report, ok := e.Report()
	require.True(t, ok)
	assert.Equal(t, "# Discovery report", report)
	e.CloseReport()
	_, ok = e.Report()
	assert.False(t, ok)
}

func TestApprove_FailureLeavesStateUnchanged(t *testing.T) {
	svc := &fakeService{
		approve: func(ApprovalRequest) (Session, error) { return Session{}, errors.New("503") },
	}
	e := withSummary(t, svc, 1, "Phase 1 summary")
	before := e.Entries()

	op, err := e.Approve()
	require.NoError(t, err)
	drain(t, e, op)

	assert.Equal(t, opfsm.ApprovalSummaryPending, e.Approval())
	assert.Equal(t, MsgApprovalFailed, e.Err())
	assert.Equal(t, 1, e.Phase())
	assert.Equal(t, before, e.Entries())
	assert.False(t, e.AwaitingPhaseStart())
	p, ok := e.PendingSummary()
	require.True(t, ok)
	assert.Equal(t, "Phase 1 summary", p.Text)
}

func TestApprove_NothingPending(t *testing.T) {
	svc := &fakeService{}
	e, _ := loaded(t, svc, inProgress(1, msgs("assistant", "hi")))
	_, err := e.Approve()
	assert.ErrorIs(t, err, ErrNoPendingSummary)
	assert.ErrorIs(t, e.RequestChanges(), ErrNoPendingSummary)
}

func TestRequestChanges_SubmitsFeedbackAndShowsRevision(t *testing.T) {
	svc := &fakeService{
		approve: func(ApprovalRequest) (Session, error) {
			s := inProgress(1, msgs("assistant", "hello"))
			s.PendingPhaseSummary = "Phase 1 summary, with more detail"
			return s, nil
		},
	}
	e := withSummary(t, svc, 1, "Phase 1 summary")

	require.NoError(t, e.RequestChanges())
	assert.Equal(t, opfsm.ApprovalRevisionRequested, e.Approval())
	assert.Empty(t, svc.approvals, "opening the editor makes no request")

	e.SetFeedback("add more detail")
	op, err := e.SubmitRevision()
	require.NoError(t, err)
	drain(t, e, op)

	require.Len(t, svc.approvals, 1)
	assert.Equal(t, ActionRequestChanges, svc.approvals[0].Action)
	require.NotNil(t, svc.approvals[0].Feedback)
	assert.Equal(t, "add more detail", *svc.approvals[0].Feedback)

	assert.Equal(t, opfsm.ApprovalSummaryPending, e.Approval())
	p, ok := e.PendingSummary()
	require.True(t, ok)
	assert.True(t, p.IsRevised)
	assert.Equal(t, "Phase 1 summary, with more detail", p.Text)
	assert.Equal(t, 1, e.Phase())
	assert.Zero(t, countDividers(e.Entries()))
	assert.Empty(t, e.Feedback())
}

func TestRequestChanges_EmptyFeedbackKeepsOldSummary(t *testing.T) {
	svc := &fakeService{
		approve: func(ApprovalRequest) (Session, error) { return inProgress(1, msgs("assistant", "hello")), nil },
	}
	e := withSummary(t, svc, 1, "Phase 1 summary")
	require.NoError(t, e.RequestChanges())

	op, err := e.SubmitRevision()
	require.NoError(t, err)
	drain(t, e, op)

	require.NotNil(t, svc.approvals[0].Feedback)
	assert.Equal(t, "", *svc.approvals[0].Feedback)
	p, ok := e.PendingSummary()
	require.True(t, ok)
	assert.Equal(t, "Phase 1 summary", p.Text)
	assert.True(t, p.IsRevised)
}

func TestRequestChanges_FailureKeepsEditorOpen(t *testing.T) {
	svc := &fakeService{
		approve: func(ApprovalRequest) (Session, error) { return Session{}, detailErr{"Summary generation failed"} },
	}
	e := withSummary(t, svc, 1, "Phase 1 summary")
	require.NoError(t, e.RequestChanges())
	e.SetFeedback("shorter please")

	op, err := e.SubmitRevision()
	require.NoError(t, err)
	drain(t, e, op)

	assert.Equal(t, opfsm.ApprovalRevisionRequested, e.Approval())
	assert.Equal(t, "shorter please", e.Feedback())
	assert.Equal(t, "Summary generation failed", e.Err())
}

func TestCancelRevision_DiscardsFeedback(t *testing.T) {
	svc := &fakeService{}
	e := withSummary(t, svc, 1, "Phase 1 summary")
	require.NoError(t, e.RequestChanges())
	e.SetFeedback("draft feedback")

	require.NoError(t, e.CancelRevision())
	assert.Equal(t, opfsm.ApprovalSummaryPending, e.Approval())
	assert.Empty(t, e.Feedback())
	assert.Error(t, e.CancelRevision())
	assert.Empty(t, svc.approvals)
}

func TestMutualExclusion_DuringApproval(t *testing.T) {
	svc := &fakeService{
		approve: func(ApprovalRequest) (Session, error) { return inProgress(2, msgs("assistant", "hello")), nil },
	}
	e := withSummary(t, svc, 1, "Phase 1 summary")

	op, err := e.Approve()
	require.NoError(t, err)

	_, err = e.Approve()
	assert.ErrorIs(t, err, ErrBusy)
	_, err = e.SendText("hello")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = e.EndPhase()
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, e.RequestChanges(), ErrBusy)
	_, err = e.Refresh(true)
	assert.ErrorIs(t, err, ErrBusy)

	drain(t, e, op)
	assert.Len(t, svc.approvals, 1)
}

func TestEndPhase_RejectedWhileSummaryPending(t *testing.T) {
	svc := &fakeService{}
	e := withSummary(t, svc, 1, "Phase 1 summary")
	before := e.Entries()

	_, err := e.EndPhase()
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, opfsm.OpIdle, e.Operation())

	require.NoError(t, e.RequestChanges())
	_, err = e.EndPhase()
	assert.ErrorIs(t, err, ErrBusy)

	assert.Empty(t, svc.sent)
	assert.Equal(t, before, e.Entries())
}

func TestRefresh_EmptyRecordClearsTranscript(t *testing.T) {
	svc := &fakeService{sessions: []Session{inProgress(1, nil)}}
	e, _ := loaded(t, svc, inProgress(1, msgs("assistant", "hello", "user", "hi")))
	require.Len(t, e.Entries(), 2)

	op, err := e.Refresh(true)
	require.NoError(t, err)
	drain(t, e, op)
	assert.Empty(t, e.Entries())
}

func TestEndPhase_ExplicitAppendsNextAndRollsBack(t *testing.T) {
	svc := &fakeService{
		send: func(string) (Reply, error) { return Reply{}, errors.New("boom") },
	}
	e, _ := loaded(t, svc, inProgress(1, msgs("assistant", "hi")))
	before := e.Entries()

	op, err := e.EndPhase()
	require.NoError(t, err)
	entries := e.Entries()
	assert.Equal(t, TokenNext, entries[len(entries)-1].Content)
	assert.Equal(t, opfsm.OpEndingPhase, e.Operation())

	drain(t, e, op)
	assert.Equal(t, before, e.Entries())
	assert.Equal(t, MsgEndPhaseFailed, e.Err())
}

func TestRefresh_ClearsSummaryResolvedElsewhere(t *testing.T) {
	svc := &fakeService{}
	e := withSummary(t, svc, 1, "Phase 1 summary")

	svc.sessions = []Session{inProgress(2, msgs("assistant", "hello"))}
	op, err := e.Refresh(false)
	require.NoError(t, err)
	drain(t, e, op)

	assert.Equal(t, opfsm.ApprovalIdle, e.Approval())
	_, ok := e.PendingSummary()
	assert.False(t, ok)
}

func TestRefresh_PollFailureIsQuiet(t *testing.T) {
	svc := &fakeService{}
	e, _ := loaded(t, svc, inProgress(1, msgs("assistant", "hi")))
	svc.fetchErr = errors.New("offline")

	op, err := e.Refresh(false)
	require.NoError(t, err)
	drain(t, e, op)
	assert.Empty(t, e.Err())

	op, err = e.Refresh(true)
	require.NoError(t, err)
	drain(t, e, op)
	assert.Equal(t, MsgLoadFailed, e.Err())
}

func TestPhase_MonotonicAcrossSends(t *testing.T) {
	phase := 1
	svc := &fakeService{
		send: func(string) (Reply, error) { return Reply{AssistantMessage: "ok"}, nil },
	}
	e, _ := loaded(t, svc, inProgress(1, msgs("assistant", "hi")))

	prev := e.Phase()
	for i := 0; i < 6; i++ {
		if i%2 == 1 && phase < MaxPhase {
			phase++
		}
		svc.sessions = []Session{inProgress(phase, msgs("assistant", "hi"))}
		op, err := e.SendText("answer")
		require.NoError(t, err)
		drain(t, e, op)
		assert.GreaterOrEqual(t, e.Phase(), prev)
		prev = e.Phase()
	}
}

func TestAudit_RecordsPhaseAdvance(t *testing.T) {
	logger, err := auditlog.NewSQLiteLogger(":memory:")
	require.NoError(t, err)
	defer logger.Close()

	s := inProgress(1, msgs("assistant", "hello"))
	s.PendingPhaseSummary = "S"
	svc := &fakeService{
		sessions: []Session{s},
		approve: func(ApprovalRequest) (Session, error) {
			return inProgress(2, msgs("assistant", "hello")), nil
		},
	}
	e := NewEngine(svc, Options{Audit: logger, Scope: func(s Session) string { return "test|" + s.ID }})
	drain(t, e, e.Load())
	op, err := e.Approve()
	require.NoError(t, err)
	drain(t, e, op)

	events, err := logger.Query(auditlog.QueryFilter{Scope: "test|s1", Kinds: []auditlog.EventKind{auditlog.EventPhaseAdvanced}})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "s1", events[0].SessionID)
	assert.Equal(t, 2, events[0].Phase)
}
