package ui

// Copy shown in the conversation pane.
const (
	// PlaceholderText is the guide's bubble on an empty transcript.
	PlaceholderText  = "Start the conversation below. Share your context and we'll work through the discovery phases together."
	ThinkingText     = "Thinking…"
	EndingPhaseText  = "Preparing the phase summary…"
	InputPlaceholder = "Type your response…"

	userLabel      = "You"
	assistantLabel = "Guide"
)
