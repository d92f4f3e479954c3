package overlay

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/kastheco/discovery/ui"
)

var (
	colorBase    = ui.ColorBase
	colorOverlay = ui.ColorOverlay
	colorMuted   = ui.ColorMuted
	colorSubtle  = ui.ColorSubtle
	colorText    = ui.ColorText
	colorLove    = ui.ColorLove
	colorGold    = ui.ColorGold
	colorFoam    = ui.ColorFoam
	colorIris    = ui.ColorIris
)

// FormTheme styles huh forms in the app palette. The setup form and the
// confirmation overlay share it.
func FormTheme() *huh.Theme {
	t := huh.ThemeBase()

	f := &t.Focused
	f.Base = f.Base.BorderForeground(colorIris)
	f.Card = f.Base
	f.Title = f.Title.Foreground(colorIris).Bold(true)
	f.NoteTitle = f.NoteTitle.Foreground(colorIris).Bold(true).MarginBottom(1)
	f.Description = f.Description.Foreground(colorMuted)
	f.ErrorIndicator = f.ErrorIndicator.Foreground(colorLove)
	f.ErrorMessage = f.ErrorMessage.Foreground(colorLove)

	// Selects: demo mode and telemetry toggles.
	f.SelectSelector = f.SelectSelector.Foreground(colorIris)
	f.NextIndicator = f.NextIndicator.Foreground(colorIris)
	f.PrevIndicator = f.PrevIndicator.Foreground(colorIris)
	f.Option = f.Option.Foreground(colorText)
	f.SelectedOption = f.SelectedOption.Foreground(colorFoam)

	// Yes/no buttons of the confirm fields.
	f.FocusedButton = f.FocusedButton.Foreground(colorBase).Background(colorIris).Bold(true)
	f.Next = f.FocusedButton
	f.BlurredButton = f.BlurredButton.Foreground(colorSubtle).Background(colorOverlay)

	// Server, token and interval inputs.
	f.TextInput.Cursor = f.TextInput.Cursor.Foreground(colorFoam)
	f.TextInput.Placeholder = f.TextInput.Placeholder.Foreground(colorMuted)
	f.TextInput.Prompt = f.TextInput.Prompt.Foreground(colorIris)
	f.TextInput.Text = f.TextInput.Text.Foreground(colorText)

	t.Blurred = t.Focused
	t.Blurred.Base = t.Blurred.Base.BorderStyle(lipgloss.HiddenBorder())
	t.Blurred.Card = t.Blurred.Base
	t.Blurred.NextIndicator = lipgloss.NewStyle()
	t.Blurred.PrevIndicator = lipgloss.NewStyle()

	t.Group.Title = t.Focused.Title
	t.Group.Description = t.Focused.Description

	t.Help.ShortKey = t.Help.ShortKey.Foreground(colorSubtle)
	t.Help.ShortDesc = t.Help.ShortDesc.Foreground(colorMuted)
	t.Help.ShortSeparator = t.Help.ShortSeparator.Foreground(colorOverlay)

	return t
}
