package ui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kastheco/discovery/log"
)

var (
	reportTitleStyle = lipgloss.NewStyle().Foreground(ColorIris).Bold(true).Padding(0, 1)
	reportFrameStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder(), true, false, false, false).
				BorderForeground(ColorOverlay)
)

// ReportView shows the final discovery report.
type ReportView struct {
	viewport      viewport.Model
	markdown      string
	width, height int
}

// NewReportView creates an empty report pane.
func NewReportView() *ReportView {
	return &ReportView{viewport: viewport.New(0, 0)}
}

// SetSize sets the pane dimensions.
func (r *ReportView) SetSize(width, height int) {
	if r.width == width && r.height == height {
		return
	}
	r.width = width
	r.height = height
	r.viewport.Width = width
	r.viewport.Height = max(height-2, 1)
	r.render()
}

// SetContent replaces the report markdown.
func (r *ReportView) SetContent(md string) {
	if md == r.markdown {
		return
	}
	r.markdown = md
	r.render()
	r.viewport.GotoTop()
}

// Markdown returns the raw report.
func (r *ReportView) Markdown() string { return r.markdown }

func (r *ReportView) render() {
	if r.width <= 0 {
		return
	}
	out, err := RenderMarkdown(r.markdown, "dark", r.width-2)
	if err != nil {
		log.WarningLog.Printf("report view: %v", err)
		out = wrapText(r.markdown, r.width-2)
	}
	r.viewport.SetContent(out)
}

// ScrollUp scrolls towards the top of the report.
func (r *ReportView) ScrollUp() { r.viewport.HalfViewUp() }

// ScrollDown scrolls towards the end of the report.
func (r *ReportView) ScrollDown() { r.viewport.HalfViewDown() }

// Update forwards key and mouse events to the viewport.
func (r *ReportView) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	r.viewport, cmd = r.viewport.Update(msg)
	return cmd
}

func (r *ReportView) String() string {
	if r.width <= 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		reportTitleStyle.Render("Discovery Report"),
		reportFrameStyle.Width(r.width).Render(r.viewport.View()),
	)
}
