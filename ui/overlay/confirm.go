package overlay

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// ConfirmationOverlay asks a yes/no question, backed by huh.Confirm.
type ConfirmationOverlay struct {
	form      *huh.Form
	confirmed bool
	title     string
	done      bool
	width     int
}

// NewConfirmationOverlay creates a confirmation with the negative answer
// preselected.
func NewConfirmationOverlay(title, description string, width int) *ConfirmationOverlay {
	c := &ConfirmationOverlay{title: title, width: width}

	formWidth := width - 6
	if formWidth < 34 {
		formWidth = 34
	}

	c.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&c.confirmed),
		),
	).
		WithTheme(FormTheme()).
		WithWidth(formWidth).
		WithShowHelp(false).
		WithShowErrors(false)

	_ = c.form.Init()
	return c
}

func (c *ConfirmationOverlay) updateForm(msg tea.Msg) {
	updated, _ := c.form.Update(msg)
	if form, ok := updated.(*huh.Form); ok {
		c.form = form
	}
}

// HandleKeyPress processes a key and returns true when the overlay should
// close. y and n answer directly; enter takes the highlighted answer.
func (c *ConfirmationOverlay) HandleKeyPress(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "esc", "n", "N":
		c.confirmed = false
		c.done = true
		return true
	case "y", "Y":
		c.confirmed = true
		c.done = true
		return true
	case "enter":
		c.done = true
		return true
	default:
		c.updateForm(msg)
		return false
	}
}

// Confirmed reports whether the answer was yes.
func (c *ConfirmationOverlay) Confirmed() bool {
	return c.done && c.confirmed
}

// Render returns the styled overlay string.
func (c *ConfirmationOverlay) Render() string {
	w := c.width
	if w < 40 {
		w = 40
	}

	hintStyle := lipgloss.NewStyle().
		Foreground(colorMuted).
		MarginTop(1)

	content := c.form.View() + "\n"
	content += hintStyle.Render("←→ choose · y/n answer · esc cancel")

	style := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(colorLove).
		Padding(1, 2).
		Width(w)

	return style.Render(content)
}
