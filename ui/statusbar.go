package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// StatusBarData holds the contextual information displayed in the status bar.
type StatusBarData struct {
	PhaseTitle string // empty until the session loads
	Status     string // "not_started", "in_progress", "completed"
	Project    string // empty = no project scope
	Demo       bool
	Busy       bool
}

// StatusBar is the top status bar component.
type StatusBar struct {
	width int
	data  StatusBarData
}

// NewStatusBar creates a new StatusBar.
func NewStatusBar() *StatusBar {
	return &StatusBar{}
}

// SetSize sets the terminal width for the status bar.
func (s *StatusBar) SetSize(width int) {
	s.width = width
}

// SetData updates the status bar content.
func (s *StatusBar) SetData(data StatusBarData) {
	s.data = data
}

var statusBarStyle = lipgloss.NewStyle().
	Background(ColorSurface).
	Foreground(ColorText).
	Padding(0, 1)

var statusBarAppNameStyle = lipgloss.NewStyle().
	Foreground(ColorIris).
	Background(ColorSurface).
	Bold(true)

var statusBarSepStyle = lipgloss.NewStyle().
	Foreground(ColorOverlay).
	Background(ColorSurface)

var statusBarPhaseStyle = lipgloss.NewStyle().
	Foreground(ColorText).
	Background(ColorSurface)

var statusBarProjectStyle = lipgloss.NewStyle().
	Foreground(ColorSubtle).
	Background(ColorSurface)

var statusBarDemoStyle = lipgloss.NewStyle().
	Foreground(ColorBase).
	Background(ColorGold).
	Bold(true).
	Padding(0, 1)

func sessionStatusStyle(status string) string {
	var fg lipgloss.TerminalColor
	label := strings.ReplaceAll(status, "_", " ")
	switch status {
	case "in_progress":
		fg = ColorFoam
	case "completed":
		fg = ColorIris
	default:
		fg = ColorMuted
	}
	return lipgloss.NewStyle().Foreground(fg).Background(ColorSurface).Render(label)
}

const statusBarSep = " │ "

func (s *StatusBar) String() string {
	if s.width < 10 {
		return ""
	}

	parts := make([]string, 0, 5)
	parts = append(parts, statusBarAppNameStyle.Render("discovery"))

	if s.data.PhaseTitle != "" {
		parts = append(parts, statusBarPhaseStyle.Render(s.data.PhaseTitle))
	}
	if s.data.Status != "" {
		status := sessionStatusStyle(s.data.Status)
		if s.data.Busy {
			status += statusBarProjectStyle.Render(" ●")
		}
		parts = append(parts, status)
	}
	if s.data.Project != "" {
		parts = append(parts, statusBarProjectStyle.Render("project "+s.data.Project))
	}
	if s.data.Demo {
		parts = append(parts, statusBarDemoStyle.Render("DEMO"))
	}

	sep := statusBarSepStyle.Render(statusBarSep)
	content := strings.Join(parts, sep)
	// Padding takes two cells.
	content = ansi.Truncate(content, s.width-2, "…")

	return statusBarStyle.Width(s.width).Render(content)
}
