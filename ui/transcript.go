package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kastheco/discovery/session"
	muesliansi "github.com/muesli/ansi"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

// Activity is what the conversation pane shows below the last message.
type Activity int

const (
	ActivityIdle Activity = iota
	// ActivityThinking: a message or control token is awaiting its reply.
	ActivityThinking
	// ActivityEndingPhase: the phase summary has been requested.
	ActivityEndingPhase
)

var (
	userLabelStyle      = lipgloss.NewStyle().Foreground(ColorUser).Bold(true)
	assistantLabelStyle = lipgloss.NewStyle().Foreground(ColorAssistant).Bold(true)

	userBubbleStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Background(ColorOverlay).
			Padding(0, 1)
	assistantBubbleStyle = lipgloss.NewStyle().
				Foreground(ColorText).
				Border(lipgloss.ThickBorder(), false, false, false, true).
				BorderForeground(ColorAssistant).
				PaddingLeft(1)
	placeholderBubbleStyle = assistantBubbleStyle.
				Foreground(ColorSubtle).
				Italic(true)
	localMarkStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	controlLineStyle = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
	dividerStyle     = lipgloss.NewStyle().Foreground(ColorDivider).Bold(true)
	dividerRuleStyle = lipgloss.NewStyle().Foreground(ColorOverlay)
	activityStyle    = lipgloss.NewStyle().Foreground(ColorSubtle).Italic(true)
)

// TranscriptView renders the conversation into a scrollable viewport.
type TranscriptView struct {
	viewport viewport.Model
	spinner  *spinner.Model

	width, height int
	entries       []session.Entry
	activity      Activity
	// follow keeps the view pinned to the newest message until the
	// stakeholder scrolls away.
	follow bool
}

// NewTranscriptView creates a conversation pane that shares the app spinner.
func NewTranscriptView(s *spinner.Model) *TranscriptView {
	return &TranscriptView{
		viewport: viewport.New(0, 0),
		spinner:  s,
		follow:   true,
	}
}

// SetSize sets the pane dimensions.
func (t *TranscriptView) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.viewport.Width = width
	t.viewport.Height = height
	t.refresh()
}

// SetEntries replaces the displayed transcript.
func (t *TranscriptView) SetEntries(entries []session.Entry) {
	t.entries = entries
	t.refresh()
}

// SetActivity updates the in-flight indicator.
func (t *TranscriptView) SetActivity(a Activity) {
	t.activity = a
	t.refresh()
}

// Tick re-renders the activity row for a new spinner frame.
func (t *TranscriptView) Tick() {
	if t.activity != ActivityIdle {
		t.refresh()
	}
}

// ScrollUp scrolls towards older messages.
func (t *TranscriptView) ScrollUp() {
	t.viewport.HalfViewUp()
	t.follow = t.viewport.AtBottom()
}

// ScrollDown scrolls towards newer messages.
func (t *TranscriptView) ScrollDown() {
	t.viewport.HalfViewDown()
	t.follow = t.viewport.AtBottom()
}

// Update forwards mouse wheel events to the viewport.
func (t *TranscriptView) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	t.follow = t.viewport.AtBottom()
	return cmd
}

func (t *TranscriptView) String() string {
	if t.width <= 0 || t.height <= 0 {
		return ""
	}
	return t.viewport.View()
}

func (t *TranscriptView) refresh() {
	if t.width <= 0 {
		return
	}
	t.viewport.SetContent(t.Render())
	if t.follow {
		t.viewport.GotoBottom()
	}
}

// Render returns the full transcript without viewport clipping.
func (t *TranscriptView) Render() string {
	var blocks []string
	if len(t.entries) == 0 {
		blocks = append(blocks, t.renderPlaceholder())
	}
	for _, e := range t.entries {
		switch e.Kind {
		case session.EntryDivider:
			blocks = append(blocks, t.renderDivider(e.Phase))
		default:
			blocks = append(blocks, t.renderChat(e))
		}
	}
	if row := t.renderActivity(); row != "" {
		blocks = append(blocks, row)
	}
	return strings.Join(blocks, "\n\n")
}

func (t *TranscriptView) bubbleWidth() int {
	w := t.width * 3 / 4
	if w < 20 {
		w = t.width - 2
	}
	if w < 10 {
		w = 10
	}
	return w
}

// wrapText word-wraps text to width, hard-breaking words longer than a line.
func wrapText(text string, width int) string {
	return wrap.String(wordwrap.String(text, width), width)
}

func (t *TranscriptView) renderChat(e session.Entry) string {
	if e.Role == session.RoleUser && session.IsControlToken(e.Content) {
		return lipgloss.PlaceHorizontal(t.width, lipgloss.Center, controlLineStyle.Render(controlLabel(e.Content)))
	}

	inner := t.bubbleWidth() - 2
	body := wrapText(strings.TrimSpace(e.Content), inner)

	if e.Role == session.RoleUser {
		label := userLabelStyle.Render(userLabel)
		if e.Local {
			label += localMarkStyle.Render(" · sending")
		}
		bubble := userBubbleStyle.Width(blockWidth(body) + 2).Render(body)
		return lipgloss.PlaceHorizontal(t.width, lipgloss.Right,
			lipgloss.JoinVertical(lipgloss.Right, label, bubble))
	}

	label := assistantLabelStyle.Render(assistantLabel)
	return lipgloss.JoinVertical(lipgloss.Left, label, assistantBubbleStyle.Render(body))
}

func (t *TranscriptView) renderPlaceholder() string {
	body := wrapText(PlaceholderText, t.bubbleWidth()-2)
	return lipgloss.JoinVertical(lipgloss.Left,
		assistantLabelStyle.Render(assistantLabel),
		placeholderBubbleStyle.Render(body))
}

// DividerLabel is the text of the divider closing phase n.
func DividerLabel(phase int) string {
	return fmt.Sprintf("Phase %d Complete ✓ · %s", phase, session.PhaseName(phase))
}

func (t *TranscriptView) renderDivider(phase int) string {
	label := " " + DividerLabel(phase) + " "
	side := (t.width - muesliansi.PrintableRuneWidth(label)) / 2
	if side < 2 {
		return dividerStyle.Render(strings.TrimSpace(label))
	}
	rule := dividerRuleStyle.Render(strings.Repeat("─", side))
	return rule + dividerStyle.Render(label) + rule
}

func (t *TranscriptView) renderActivity() string {
	var text string
	switch t.activity {
	case ActivityThinking:
		text = ThinkingText
	case ActivityEndingPhase:
		text = EndingPhaseText
	default:
		return ""
	}
	frame := ""
	if t.spinner != nil {
		frame = t.spinner.View() + " "
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		assistantLabelStyle.Render(assistantLabel),
		activityStyle.Render(frame+text))
}

func controlLabel(token string) string {
	switch token {
	case session.TokenBeginSession:
		return "· session started ·"
	case session.TokenBeginPhase:
		return "· next phase started ·"
	case session.TokenNext:
		return "· phase summary requested ·"
	}
	return token
}

// blockWidth returns the printable width of the widest line in s.
func blockWidth(s string) int {
	w := 0
	for _, line := range strings.Split(s, "\n") {
		if lw := muesliansi.PrintableRuneWidth(line); lw > w {
			w = lw
		}
	}
	return w
}
