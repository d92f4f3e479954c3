package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kastheco/discovery/keys"
)

var keyStyle = lipgloss.NewStyle().Foreground(ColorSubtle)

var descStyle = lipgloss.NewStyle().Foreground(ColorMuted)

var sepStyle = lipgloss.NewStyle().Foreground(ColorOverlay)

var actionGroupStyle = lipgloss.NewStyle().Foreground(ColorRose)

var separator = " • "
var verticalSeparator = " │ "

var menuStyle = lipgloss.NewStyle().
	Foreground(ColorFoam)

// MenuState represents different states the menu can be in
type MenuState int

const (
	StateLoading MenuState = iota
	// StateChat: the message input has focus.
	StateChat
	// StateBusy: a send, phase end or approval is in flight.
	StateBusy
	// StateReview: a phase summary is waiting for a decision.
	StateReview
	// StateRevision: the feedback editor is open.
	StateRevision
	// StateAwaitingPhase: the next phase must be begun explicitly.
	StateAwaitingPhase
	// StateCompleted: every phase is approved.
	StateCompleted
	// StateReport: the final report is on screen.
	StateReport
)

type Menu struct {
	options       []keys.KeyName
	height, width int
	state         MenuState
	demo          bool

	// keyDown is the key which is pressed. The default is -1.
	keyDown keys.KeyName

	// systemGroupSize is the number of items in the trailing system group
	// (used for separator placement).
	systemGroupSize int
}

var systemGroup = []keys.KeyName{keys.KeyRefresh, keys.KeyHelp, keys.KeyQuit}

func NewMenu() *Menu {
	m := &Menu{
		state:   StateLoading,
		keyDown: -1,
	}
	m.updateOptions()
	return m
}

func (m *Menu) Keydown(name keys.KeyName) {
	m.keyDown = name
}

func (m *Menu) ClearKeydown() {
	m.keyDown = -1
}

// SetState updates the menu state and options accordingly
func (m *Menu) SetState(state MenuState) {
	m.state = state
	m.updateOptions()
}

// State returns the current menu state.
func (m *Menu) State() MenuState { return m.state }

// SetDemo shows the explicit end-phase control.
func (m *Menu) SetDemo(demo bool) {
	m.demo = demo
	m.updateOptions()
}

// updateOptions updates the menu options based on current state
func (m *Menu) updateOptions() {
	var actions []keys.KeyName
	system := systemGroup
	switch m.state {
	case StateLoading:
		actions = nil
		system = []keys.KeyName{keys.KeyQuit}
	case StateChat:
		actions = []keys.KeyName{keys.KeySend, keys.KeyNewline}
		if m.demo {
			actions = append(actions, keys.KeyEndPhase)
		}
		actions = append(actions, keys.KeyPause)
	case StateBusy:
		actions = []keys.KeyName{keys.KeyScrollUp, keys.KeyScrollDown}
		system = []keys.KeyName{keys.KeyHelp, keys.KeyQuit}
	case StateReview:
		actions = []keys.KeyName{keys.KeyApprove, keys.KeyRequestChanges, keys.KeyCopy}
	case StateRevision:
		actions = []keys.KeyName{keys.KeySubmitFeedback, keys.KeyCancel}
		system = []keys.KeyName{keys.KeyQuit}
	case StateAwaitingPhase:
		actions = []keys.KeyName{keys.KeyBeginPhase, keys.KeyPause}
	case StateCompleted:
		actions = []keys.KeyName{keys.KeyReport}
	case StateReport:
		actions = []keys.KeyName{keys.KeyScrollUp, keys.KeyScrollDown, keys.KeyCopy, keys.KeyCancel}
		system = []keys.KeyName{keys.KeyQuit}
	}
	m.options = append(append([]keys.KeyName{}, actions...), system...)
	m.systemGroupSize = len(system)
}

// Options returns the keys currently offered.
func (m *Menu) Options() []keys.KeyName {
	return append([]keys.KeyName(nil), m.options...)
}

// SetSize sets the width of the window. The menu will be centered horizontally within this width.
func (m *Menu) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Menu) String() string {
	var s strings.Builder

	actionEnd := len(m.options) - m.systemGroupSize

	for i, k := range m.options {
		binding := keys.GlobalkeyBindings[k]
		help := binding.Help()
		helpKey := help.Key
		helpDesc := help.Desc
		if k == keys.KeyCancel && m.state == StateReport {
			helpDesc = "close"
		}

		var (
			localActionStyle = actionGroupStyle
			localKeyStyle    = keyStyle
			localDescStyle   = descStyle
		)
		if m.keyDown == k {
			localActionStyle = localActionStyle.Underline(true)
			localKeyStyle = localKeyStyle.Underline(true)
			localDescStyle = localDescStyle.Underline(true)
		}

		if i < actionEnd {
			s.WriteString(localActionStyle.Render(helpKey + " " + helpDesc))
		} else {
			s.WriteString(localKeyStyle.Render(helpKey))
			s.WriteString(descStyle.Render(" "))
			s.WriteString(localDescStyle.Render(helpDesc))
		}

		if i != len(m.options)-1 {
			if i == actionEnd-1 {
				s.WriteString(sepStyle.Render(verticalSeparator))
			} else {
				s.WriteString(sepStyle.Render(separator))
			}
		}
	}

	centeredMenuText := menuStyle.Render(s.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, centeredMenuText)
}
