package session

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyMessage is returned when the input is blank after trimming.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNoSession is returned when an action needs a session that has not loaded.
	ErrNoSession = errors.New("no session loaded")
	// ErrSessionCompleted is returned for conversational actions on a finished session.
	ErrSessionCompleted = errors.New("session is completed")
	// ErrBusy is returned when another send, end-phase or approval is in flight.
	ErrBusy = errors.New("another operation is in flight")
	// ErrNoPendingSummary is returned for approval actions with nothing to review.
	ErrNoPendingSummary = errors.New("no summary awaiting approval")
	// ErrNotAwaitingPhase is returned by BeginPhase when no phase is waiting to start.
	ErrNotAwaitingPhase = errors.New("no phase is waiting to start")
	// ErrReportUnavailable is returned when the report is requested before completion.
	ErrReportUnavailable = errors.New("report is available once all phases are approved")
	// ErrRegression marks a fetched session that moved backwards.
	ErrRegression = errors.New("session regressed")
)

// Fallback messages shown when the service gives no usable detail.
const (
	MsgLoadFailed       = "Failed to load session."
	MsgStartFailed      = "Failed to start session."
	MsgSendFailed       = "Failed to send. Please try again."
	MsgEndPhaseFailed   = "Failed to end phase."
	MsgApprovalFailed   = "Failed to submit."
	MsgReportFailed     = "Failed to load report."
	MsgBeginPhaseFailed = "Failed to start next phase."
)

// detailer is implemented by transport errors that carry a server-reported
// detail string.
type detailer interface {
	Detail() string
}

// DisplayError turns err into the inline message shown to the stakeholder.
// Server detail wins; anything else falls back to the operation's message.
func DisplayError(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var d detailer
	if errors.As(err, &d) {
		if detail := strings.TrimSpace(d.Detail()); detail != "" {
			return detail
		}
	}
	return fallback
}
