package keys

import (
	"github.com/charmbracelet/bubbles/key"
)

type KeyName int

const (
	KeySend    KeyName = iota
	KeyNewline         // Newline inserts a line break in the message input.

	// Summary review
	KeyApprove
	KeyRequestChanges
	KeySubmitFeedback // SubmitFeedback sends the revision feedback.
	KeyCancel

	KeyBeginPhase
	KeyEndPhase // EndPhase is only offered in demo mode.
	KeyPause    // Pause leaves the session, keeping the draft.

	KeyRefresh
	KeyReport
	KeyCopy
	KeyToggleLog // ToggleLog shows the session activity pane.
	KeyHelp
	KeyQuit

	KeyScrollUp
	KeyScrollDown
	KeyConfirm // Confirm accepts a confirmation prompt.
)

// GlobalKeyStringsMap maps the keys that work regardless of focus. Plain
// letters are absent because the message input owns them.
var GlobalKeyStringsMap = map[string]KeyName{
	"ctrl+e": KeyEndPhase,
	"ctrl+p": KeyPause,
	"ctrl+r": KeyRefresh,
	"ctrl+o": KeyReport,
	"ctrl+y": KeyCopy,
	"ctrl+l": KeyToggleLog,
	"f1":     KeyHelp,
	"ctrl+c": KeyQuit,
	"pgup":   KeyScrollUp,
	"pgdown": KeyScrollDown,
}

// ReviewKeyStringsMap maps keys while a summary card holds focus.
var ReviewKeyStringsMap = map[string]KeyName{
	"a":     KeyApprove,
	"c":     KeyRequestChanges,
	"y":     KeyCopy,
	"up":    KeyScrollUp,
	"k":     KeyScrollUp,
	"down":  KeyScrollDown,
	"j":     KeyScrollDown,
	"enter": KeyApprove,
}

// GlobalkeyBindings is a global, immutable map of KeyName to keybinding.
var GlobalkeyBindings = map[KeyName]key.Binding{
	KeySend: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("↵", "send"),
	),
	KeyNewline: key.NewBinding(
		key.WithKeys("alt+enter", "ctrl+j"),
		key.WithHelp("alt+↵", "newline"),
	),
	KeyApprove: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "approve"),
	),
	KeyRequestChanges: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "request changes"),
	),
	KeySubmitFeedback: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "submit feedback"),
	),
	KeyCancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	KeyBeginPhase: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("↵", "begin phase"),
	),
	KeyEndPhase: key.NewBinding(
		key.WithKeys("ctrl+e"),
		key.WithHelp("ctrl+e", "end phase"),
	),
	KeyPause: key.NewBinding(
		key.WithKeys("ctrl+p"),
		key.WithHelp("ctrl+p", "pause"),
	),
	KeyRefresh: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "refresh"),
	),
	KeyReport: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("ctrl+o", "report"),
	),
	KeyCopy: key.NewBinding(
		key.WithKeys("ctrl+y"),
		key.WithHelp("ctrl+y", "copy"),
	),
	KeyToggleLog: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "activity"),
	),
	KeyHelp: key.NewBinding(
		key.WithKeys("f1"),
		key.WithHelp("f1", "help"),
	),
	KeyQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	KeyScrollUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "scroll up"),
	),
	KeyScrollDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "scroll down"),
	),

	// -- Special keybindings --

	KeyConfirm: key.NewBinding(
		key.WithKeys("y", "enter"),
		key.WithHelp("y", "confirm"),
	),
}
