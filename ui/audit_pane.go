package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// AuditEventDisplay is a pre-formatted event for rendering in the audit pane.
type AuditEventDisplay struct {
	Time    string         // formatted as "HH:MM"
	Kind    string         // event kind string (e.g. "summary_received")
	Icon    string         // single-char icon
	Message string         // human-readable message
	Color   lipgloss.Color // icon color
	Level   string         // "info", "warn", "error"
}

// AuditPane renders a scrollable list of the session's recent events beside
// the conversation.
type AuditPane struct {
	events      []AuditEventDisplay
	viewport    viewport.Model
	width       int
	height      int
	visible     bool
	filterLabel string
}

// NewAuditPane creates a new AuditPane (hidden by default).
func NewAuditPane() *AuditPane {
	return &AuditPane{viewport: viewport.New(0, 0)}
}

// SetSize updates the pane dimensions and rebuilds the viewport content.
func (p *AuditPane) SetSize(w, h int) {
	p.width = w
	// Reserve 1 line for the header.
	bodyH := h - 1
	if bodyH < 0 {
		bodyH = 0
	}
	p.height = h
	p.viewport.Width = w
	p.viewport.Height = bodyH
	p.viewport.SetContent(p.renderBody())
}

// SetEvents replaces the event list and refreshes the viewport.
func (p *AuditPane) SetEvents(events []AuditEventDisplay) {
	p.events = events
	p.viewport.SetContent(p.renderBody())
	p.viewport.GotoTop()
}

// SetFilter updates the filter label shown in the header.
func (p *AuditPane) SetFilter(label string) {
	p.filterLabel = label
}

// ScrollDown scrolls the viewport down by n lines.
func (p *AuditPane) ScrollDown(n int) {
	p.viewport.LineDown(n)
}

// ScrollUp scrolls the viewport up by n lines.
func (p *AuditPane) ScrollUp(n int) {
	p.viewport.LineUp(n)
}

// Visible returns whether the pane is currently shown.
func (p *AuditPane) Visible() bool {
	return p.visible
}

// ToggleVisible flips the visibility state.
func (p *AuditPane) ToggleVisible() {
	p.visible = !p.visible
}

var (
	auditHeaderStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	auditTimeStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	auditMsgStyle    = lipgloss.NewStyle().Foreground(ColorText)
	auditEmptyStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
)

// String renders the audit pane: a 1-line header + scrollable body.
func (p *AuditPane) String() string {
	header := p.renderHeader()
	body := p.viewport.View()
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func (p *AuditPane) renderHeader() string {
	left := "── activity ──"
	right := p.filterLabel

	leftW := lipgloss.Width(left)
	rightW := lipgloss.Width(right)
	gap := p.width - leftW - rightW
	if gap < 1 {
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + right
	return auditHeaderStyle.Render(line)
}

func (p *AuditPane) renderBody() string {
	if len(p.events) == 0 {
		return auditEmptyStyle.Render("no events")
	}

	lines := make([]string, 0, len(p.events))
	for _, e := range p.events {
		icon := lipgloss.NewStyle().Foreground(e.Color).Render(e.Icon)
		time := auditTimeStyle.Render(e.Time)
		msg := auditMsgStyle.Render(e.Message)
		line := time + " " + icon + " " + msg
		lines = append(lines, lipgloss.NewStyle().MaxWidth(p.width).Render(line))
	}
	return strings.Join(lines, "\n")
}

// EventKindIcon returns the icon and color for a given event kind string.
// Used by the app layer when building AuditEventDisplay values.
func EventKindIcon(kind string) (icon string, color lipgloss.Color) {
	switch kind {
	case "session_loaded":
		return "◆", ColorMuted
	case "session_started":
		return "▶", ColorFoam
	case "session_regressed":
		return "↺", ColorGold
	case "session_completed":
		return "★", ColorIris
	case "message_sent":
		return "→", ColorFoam
	case "phase_end_requested":
		return "⏹", ColorGold
	case "phase_started":
		return "▶", ColorFoam
	case "summary_received":
		return "✦", ColorIris
	case "summary_approved":
		return "✓", ColorFoam
	case "changes_requested":
		return "✎", ColorGold
	case "summary_revised":
		return "⟳", ColorIris
	case "phase_advanced":
		return "⇒", ColorPine
	case "report_loaded":
		return "▤", ColorIris
	case "error":
		return "!", ColorLove
	default:
		return "·", ColorMuted
	}
}

// Height returns the pane's total height including the header.
func (p *AuditPane) Height() int {
	return p.height
}
