package auditlog

import "time"

// EventKind identifies the type of audit event.
type EventKind string

func (k EventKind) String() string {
	return string(k)
}

// Session lifecycle events.
const (
	EventSessionLoaded    EventKind = "session_loaded"
	EventSessionStarted   EventKind = "session_started"
	EventSessionRegressed EventKind = "session_regressed"
	EventSessionCompleted EventKind = "session_completed"
)

// Conversation events.
const (
	EventMessageSent       EventKind = "message_sent"
	EventPhaseEndRequested EventKind = "phase_end_requested"
	EventPhaseStarted      EventKind = "phase_started"
	EventReportLoaded      EventKind = "report_loaded"
)

// Summary review events.
const (
	EventSummaryReceived  EventKind = "summary_received"
	EventSummaryApproved  EventKind = "summary_approved"
	EventChangesRequested EventKind = "changes_requested"
	EventSummaryRevised   EventKind = "summary_revised"
	EventPhaseAdvanced    EventKind = "phase_advanced"
)

// EventError records a failed operation.
const EventError EventKind = "error"

// Event is a single audit log entry.
type Event struct {
	ID        int64
	Kind      EventKind
	Timestamp time.Time
	Scope     string // server, project and session the event belongs to
	SessionID string
	Phase     int
	Message   string
	Detail    string
	Level     string // info, warn, error
}
