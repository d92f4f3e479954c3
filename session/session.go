// Package session is the client-side phase progression engine for a guided
// discovery conversation. The server owns the authoritative record; this
// package keeps a full-replace projection of it, layers optimistic transcript
// entries on top, and decides when a phase should be closed out.
package session

import (
	"fmt"
	"strings"
)

// Status is the server-reported lifecycle of a discovery session.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// rank orders statuses along the only legal direction of travel.
func (s Status) rank() int {
	switch s {
	case StatusNotStarted:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	}
	return -1
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one server-recorded chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is the server-owned record as returned by the conversation service.
type Session struct {
	ID                  string    `json:"id,omitempty"`
	Status              Status    `json:"status"`
	CurrentPhase        int       `json:"current_phase"`
	StartedAt           string    `json:"started_at,omitempty"`
	CompletedAt         string    `json:"completed_at,omitempty"`
	PendingPhaseSummary string    `json:"pending_phase_summary,omitempty"`
	Messages            []Message `json:"all_messages"`
}

// IsCompleted reports whether all four phases have been approved.
func (s Session) IsCompleted() bool { return s.Status == StatusCompleted }

// LastAssistant returns the index and content of the final message when it
// was written by the assistant, or -1 otherwise.
func (s Session) LastAssistant() (int, string) {
	if len(s.Messages) == 0 {
		return -1, ""
	}
	last := s.Messages[len(s.Messages)-1]
	if last.Role != RoleAssistant {
		return -1, ""
	}
	return len(s.Messages) - 1, last.Content
}

// Control tokens are sent as ordinary message payloads and must match the
// service verbatim.
const (
	TokenBeginSession = "BEGIN_SESSION"
	TokenBeginPhase   = "BEGIN_PHASE"
	TokenNext         = "next"
)

// IsControlToken reports whether content is one of the control tokens.
func IsControlToken(content string) bool {
	switch content {
	case TokenBeginSession, TokenBeginPhase, TokenNext:
		return true
	}
	return false
}

// MaxPhase is the number of phases in a discovery session.
const MaxPhase = 4

var phaseNames = map[int]string{
	1: "Open Discovery",
	2: "Targeted Follow-ups",
	3: "Validation",
	4: "Future State",
}

// ClampPhase pins n into 1..MaxPhase.
func ClampPhase(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxPhase {
		return MaxPhase
	}
	return n
}

// PhaseName returns the display name of phase n.
func PhaseName(n int) string {
	if name, ok := phaseNames[n]; ok {
		return name
	}
	return "Discovery"
}

// PhaseTitle renders the header line, e.g. "Phase 2 of 4: Targeted Follow-ups".
func PhaseTitle(n int) string {
	n = ClampPhase(n)
	return fmt.Sprintf("Phase %d of %d: %s", n, MaxPhase, PhaseName(n))
}

// Reply is the service's answer to a sent message or control token.
type Reply struct {
	AssistantMessage       string `json:"assistant_message"`
	PhaseCompleted         bool   `json:"phase_completed"`
	Summary                string `json:"summary,omitempty"`
	Message                string `json:"message,omitempty"`
	PhaseCompleteSuggested bool   `json:"phase_complete_suggested"`
}

// HasSummary reports whether the reply closed the phase and carried its summary.
func (r Reply) HasSummary() bool {
	return r.PhaseCompleted && strings.TrimSpace(r.Summary) != ""
}

// ApprovalAction is the stakeholder's decision on a phase summary.
type ApprovalAction string

const (
	ActionApprove        ApprovalAction = "approve"
	ActionRequestChanges ApprovalAction = "request_changes"
)

// ApprovalRequest is the body of an approval submission. Feedback is only
// sent with request_changes, where an empty string is allowed.
type ApprovalRequest struct {
	Action   ApprovalAction `json:"action"`
	Feedback *string        `json:"feedback,omitempty"`
}

// Report is the final discovery report produced once the session completes.
type Report struct {
	Content string `json:"report_content"`
}

// PendingSummary is a phase summary awaiting the stakeholder's decision.
type PendingSummary struct {
	Text      string
	IsRevised bool
}

// CompletionNotice is appended to the transcript when the final phase is approved.
const CompletionNotice = "Discovery Complete! You've finished all four phases. You can view your discovery report below."
