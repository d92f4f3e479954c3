package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/kastheco/discovery/log"
	"github.com/kastheco/discovery/session"
	zone "github.com/lrstanley/bubblezone"
)

var (
	summaryCardStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorIris).
				Padding(0, 1)
	summaryTitleStyle   = lipgloss.NewStyle().Foreground(ColorIris).Bold(true)
	summaryRevisedStyle = lipgloss.NewStyle().
				Foreground(ColorBase).
				Background(ColorGold).
				Padding(0, 1)
	summaryHintStyle = lipgloss.NewStyle().Foreground(ColorMuted)

	buttonStyle        = lipgloss.NewStyle().Foreground(ColorSubtle).Background(ColorOverlay).Padding(0, 1)
	primaryButtonStyle = lipgloss.NewStyle().Foreground(ColorBase).Background(ColorIris).Bold(true).Padding(0, 1)
)

// SummaryCard shows a phase summary awaiting the stakeholder's decision.
type SummaryCard struct {
	viewport      viewport.Model
	summary       session.PendingSummary
	phase         int
	submitting    bool
	width, height int
	rendered      string
}

// NewSummaryCard creates an empty card.
func NewSummaryCard() *SummaryCard {
	return &SummaryCard{viewport: viewport.New(0, 0)}
}

// SetSize sets the outer dimensions of the card.
func (c *SummaryCard) SetSize(width, height int) {
	if c.width == width && c.height == height {
		return
	}
	c.width = width
	c.height = height
	c.render()
}

// SetSummary replaces the summary on the card. The markdown is only
// re-rendered when the text changes.
func (c *SummaryCard) SetSummary(phase int, s session.PendingSummary) {
	changed := s.Text != c.summary.Text || phase != c.phase
	c.summary = s
	c.phase = phase
	if changed {
		c.render()
	}
}

// Summary returns the summary on the card.
func (c *SummaryCard) Summary() session.PendingSummary { return c.summary }

// SetSubmitting disables the buttons while a decision is in flight.
func (c *SummaryCard) SetSubmitting(submitting bool) {
	c.submitting = submitting
}

// ScrollUp scrolls the summary body.
func (c *SummaryCard) ScrollUp() { c.viewport.HalfViewUp() }

// ScrollDown scrolls the summary body.
func (c *SummaryCard) ScrollDown() { c.viewport.HalfViewDown() }

// chromeHeight is the rows taken by border, title, blank line and buttons.
const chromeHeight = 6

func (c *SummaryCard) render() {
	inner := c.width - 4
	if inner < minWordWrap {
		inner = minWordWrap
	}
	body, err := RenderMarkdown(c.summary.Text, "dark", inner)
	if err != nil {
		log.WarningLog.Printf("summary card: %v", err)
		body = wrapText(c.summary.Text, inner)
	}
	c.rendered = body
	c.viewport.Width = inner
	c.viewport.Height = min(max(c.height-chromeHeight, 1), lipgloss.Height(body))
	c.viewport.SetContent(body)
	c.viewport.GotoTop()
}

func (c *SummaryCard) String() string {
	if c.width <= 0 {
		return ""
	}
	title := summaryTitleStyle.Render(fmt.Sprintf("Phase %d Summary · %s", c.phase, session.PhaseName(c.phase)))
	if c.summary.IsRevised {
		title += " " + summaryRevisedStyle.Render("Revised")
	}

	var buttons string
	if c.submitting {
		buttons = summaryHintStyle.Render("Submitting…")
	} else {
		approve := zone.Mark(ZoneApprove, primaryButtonStyle.Render("a Approve"))
		changes := zone.Mark(ZoneRequestChanges, buttonStyle.Render("c Request changes"))
		buttons = approve + "  " + changes
		if !c.viewport.AtBottom() {
			buttons += "  " + summaryHintStyle.Render("↓ more")
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, "", c.viewport.View(), "", buttons)
	return summaryCardStyle.Width(c.width - 2).Render(content)
}
