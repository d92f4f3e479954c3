// Package opfsm holds the two small state machines that gate user actions in
// a discovery session: the in-flight operation and the summary approval flow.
package opfsm

import "fmt"

// Operation is the single in-flight network operation. Exactly one value is
// current at any time, so sending, ending a phase and approving can never
// overlap.
type Operation string

const (
	OpIdle        Operation = "idle"
	OpSending     Operation = "sending"
	OpEndingPhase Operation = "ending_phase"
	OpApproving   Operation = "approving"
)

// Busy reports whether any operation is in flight.
func (o Operation) Busy() bool { return o != OpIdle }

// OpEvent triggers an operation transition.
type OpEvent string

const (
	StartSend     OpEvent = "start_send"
	StartEndPhase OpEvent = "start_end_phase"
	StartApproval OpEvent = "start_approval"
	// Escalate turns a completed send into an end-phase request without
	// passing through idle.
	Escalate OpEvent = "escalate"
	Finish   OpEvent = "finish"
	Fail     OpEvent = "fail"
)

// opTable defines all valid operation transitions.
// Key: current operation → event → next operation.
var opTable = map[Operation]map[OpEvent]Operation{
	OpIdle: {
		StartSend:     OpSending,
		StartEndPhase: OpEndingPhase,
		StartApproval: OpApproving,
	},
	OpSending: {
		Escalate: OpEndingPhase,
		Finish:   OpIdle,
		Fail:     OpIdle,
	},
	OpEndingPhase: {
		Finish: OpIdle,
		Fail:   OpIdle,
	},
	OpApproving: {
		Finish: OpIdle,
		Fail:   OpIdle,
	},
}

// ApplyOp returns the operation that follows current under event.
func ApplyOp(current Operation, event OpEvent) (Operation, error) {
	events, ok := opTable[current]
	if !ok {
		return "", fmt.Errorf("no transitions defined for operation %q", current)
	}
	next, ok := events[event]
	if !ok {
		return "", fmt.Errorf("invalid transition: %q + %q", current, event)
	}
	return next, nil
}

// Approval is the state of the phase summary review.
type Approval string

const (
	ApprovalIdle              Approval = "idle"
	ApprovalSummaryPending    Approval = "summary_pending"
	ApprovalRevisionRequested Approval = "revision_requested"
)

// HasSummary reports whether a summary is on screen awaiting a decision.
func (a Approval) HasSummary() bool { return a != ApprovalIdle }

// ApprovalEvent triggers an approval transition.
type ApprovalEvent string

const (
	SummaryReceived   ApprovalEvent = "summary_received"
	Approved          ApprovalEvent = "approved"
	ChangesRequested  ApprovalEvent = "changes_requested"
	RevisionCancelled ApprovalEvent = "revision_cancelled"
	RevisionSubmitted ApprovalEvent = "revision_submitted"
	// Cleared fires when a reloaded session no longer carries a pending
	// summary, e.g. it was approved from another client.
	Cleared ApprovalEvent = "cleared"
)

var approvalTable = map[Approval]map[ApprovalEvent]Approval{
	ApprovalIdle: {
		SummaryReceived: ApprovalSummaryPending,
	},
	ApprovalSummaryPending: {
		SummaryReceived:  ApprovalSummaryPending,
		Approved:         ApprovalIdle,
		ChangesRequested: ApprovalRevisionRequested,
		Cleared:          ApprovalIdle,
	},
	ApprovalRevisionRequested: {
		SummaryReceived:   ApprovalRevisionRequested,
		Approved:          ApprovalIdle,
		RevisionCancelled: ApprovalSummaryPending,
		RevisionSubmitted: ApprovalSummaryPending,
		Cleared:           ApprovalIdle,
	},
}

// ApplyApproval returns the approval state that follows current under event.
func ApplyApproval(current Approval, event ApprovalEvent) (Approval, error) {
	events, ok := approvalTable[current]
	if !ok {
		return "", fmt.Errorf("no transitions defined for approval state %q", current)
	}
	next, ok := events[event]
	if !ok {
		return "", fmt.Errorf("invalid transition: %q + %q", current, event)
	}
	return next, nil
}
