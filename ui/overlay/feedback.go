package overlay

import (
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// FeedbackOverlay is the multiline editor for summary revision feedback.
// Enter inserts a newline; ctrl+s, or enter on the focused button, submits.
type FeedbackOverlay struct {
	textarea   textarea.Model
	Title      string
	FocusIndex int // 0 for the editor, 1 for the submit button
	Submitted  bool
	Canceled   bool
	width      int
	height     int
}

// NewFeedbackOverlay creates an editor seeded with initialValue.
func NewFeedbackOverlay(title, initialValue string) *FeedbackOverlay {
	ti := textarea.New()
	ti.SetValue(initialValue)
	ti.Focus()
	ti.ShowLineNumbers = false
	ti.Prompt = ""
	ti.Placeholder = "What should change in this summary? (optional)"
	ti.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ti.CharLimit = 0
	ti.MaxHeight = 0

	return &FeedbackOverlay{
		textarea: ti,
		Title:    title,
	}
}

// SetSize sets the overlay dimensions.
func (f *FeedbackOverlay) SetSize(width, height int) {
	f.width = width
	f.height = height
	f.textarea.SetHeight(max(height-8, 3))
}

// HandleKeyPress processes a key press. It returns true when the overlay
// should close, after setting Submitted or Canceled.
func (f *FeedbackOverlay) HandleKeyPress(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "tab", "shift+tab":
		f.FocusIndex = (f.FocusIndex + 1) % 2
		if f.FocusIndex == 0 {
			f.textarea.Focus()
		} else {
			f.textarea.Blur()
		}
		return false
	case "esc":
		f.Canceled = true
		return true
	case "ctrl+s":
		f.Submitted = true
		return true
	case "enter":
		if f.FocusIndex == 1 {
			f.Submitted = true
			return true
		}
	}
	if f.FocusIndex == 0 {
		f.textarea, _ = f.textarea.Update(msg)
	}
	return false
}

// Value returns the feedback text.
func (f *FeedbackOverlay) Value() string {
	return f.textarea.Value()
}

// Render renders the overlay.
func (f *FeedbackOverlay) Render() string {
	style := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(colorGold).
		Padding(1, 2)

	titleStyle := lipgloss.NewStyle().
		Foreground(colorGold).
		Bold(true).
		MarginBottom(1)

	buttonStyle := lipgloss.NewStyle().
		Foreground(colorSubtle)

	focusedButtonStyle := buttonStyle.
		Background(colorIris).
		Foreground(colorBase)

	w := f.width
	if w < 40 {
		w = 40
	}
	f.textarea.SetWidth(w - 6)

	content := titleStyle.Render(f.Title) + "\n"
	content += f.textarea.View() + "\n\n"

	submit := " Submit "
	if f.FocusIndex == 1 {
		submit = focusedButtonStyle.Render(submit)
	} else {
		submit = buttonStyle.Render(submit)
	}
	content += submit + "  " + lipgloss.NewStyle().Foreground(colorMuted).Render("ctrl+s submit · esc cancel")

	return style.Render(content)
}
