package session

import "strings"

// CanonicalTriggerPhrases are the service's "ready to summarize" phrasings.
// Matching is case-insensitive substring containment.
var CanonicalTriggerPhrases = []string{
	"compile a summary",
	"generate a summary",
	"i have what i need for this phase",
	"summary for your review",
	"summary should be appearing",
	"compile a summary for your review",
	"generate a summary for your review",
	"presenting the summary for your review",
}

// Signal says why a phase end should be requested.
type Signal int

const (
	SignalNone Signal = iota
	// SignalExplicit: the reply set phase_complete_suggested.
	SignalExplicit
	// SignalHeuristic: the assistant text contained a trigger phrase.
	SignalHeuristic
	// SignalUser: the stakeholder asked to end the phase.
	SignalUser
)

func (s Signal) String() string {
	switch s {
	case SignalExplicit:
		return "explicit"
	case SignalHeuristic:
		return "heuristic"
	case SignalUser:
		return "user"
	}
	return "none"
}

// Detector decides whether assistant output means the phase is ready to be
// summarized. The phrase list is configuration; the structured flag on a
// reply always takes precedence over it.
type Detector struct {
	phrases []string
}

// NewDetector builds a detector over phrases, lower-cased and trimmed. An
// empty list falls back to CanonicalTriggerPhrases.
func NewDetector(phrases []string) *Detector {
	d := &Detector{}
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			d.phrases = append(d.phrases, p)
		}
	}
	if len(d.phrases) == 0 {
		d.phrases = append(d.phrases, CanonicalTriggerPhrases...)
	}
	return d
}

// Phrases returns the active phrase list.
func (d *Detector) Phrases() []string {
	return append([]string(nil), d.phrases...)
}

// Matches reports whether content contains any trigger phrase.
func (d *Detector) Matches(content string) bool {
	lower := strings.ToLower(content)
	for _, p := range d.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Evaluate inspects a send reply. A reply that already carries a summary
// never asks for another.
func (d *Detector) Evaluate(r Reply) Signal {
	if r.HasSummary() {
		return SignalNone
	}
	if r.PhaseCompleteSuggested {
		return SignalExplicit
	}
	if d.Matches(r.AssistantMessage) {
		return SignalHeuristic
	}
	return SignalNone
}
