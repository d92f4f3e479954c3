package app

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/kastheco/discovery/ui"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(ui.ColorIris)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ui.ColorFoam)
	keyStyle    = lipgloss.NewStyle().Bold(true).Foreground(ui.ColorGold)
	descStyle   = lipgloss.NewStyle().Foreground(ui.ColorText)
	helpBox     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ui.ColorIris).
			Padding(1, 2)
)

// helpContent is the general help screen. End phase only exists in demo mode.
func helpContent(demo bool) string {
	conversation := []string{
		headerStyle.Render("conversation:"),
		keyStyle.Render("↵") + descStyle.Render("              - send message"),
		keyStyle.Render("alt+↵/ctrl+j") + descStyle.Render("   - new line"),
		keyStyle.Render("pgup/pgdown") + descStyle.Render("    - scroll the conversation"),
		keyStyle.Render("ctrl+p") + descStyle.Render("         - pause (your draft is kept)"),
	}
	if demo {
		conversation = append(conversation,
			keyStyle.Render("ctrl+e")+descStyle.Render("         - end the phase now"))
	}

	lines := []string{
		titleStyle.Render("discovery"),
		"",
		descStyle.Render("a guided conversation in four phases. when a phase wraps up the"),
		descStyle.Render("guide writes a summary for you to approve or revise."),
		"",
	}
	lines = append(lines, conversation...)
	lines = append(lines,
		"",
		headerStyle.Render("phase summary:"),
		keyStyle.Render("a/↵")+descStyle.Render("            - approve"),
		keyStyle.Render("c")+descStyle.Render("              - request changes"),
		keyStyle.Render("ctrl+s")+descStyle.Render("         - submit feedback"),
		keyStyle.Render("↑↓/jk")+descStyle.Render("          - scroll the summary"),
		"",
		headerStyle.Render("session:"),
		keyStyle.Render("↵")+descStyle.Render("              - begin the next phase"),
		keyStyle.Render("ctrl+o")+descStyle.Render("         - view report (when complete)"),
		keyStyle.Render("ctrl+y")+descStyle.Render("         - copy summary, report or last reply"),
		keyStyle.Render("ctrl+r")+descStyle.Render("         - refresh"),
		keyStyle.Render("ctrl+l")+descStyle.Render("         - activity log"),
		keyStyle.Render("esc")+descStyle.Render("            - dismiss error"),
		keyStyle.Render("ctrl+c")+descStyle.Render("         - quit"),
		"",
		descStyle.Foreground(ui.ColorMuted).Render("press any key to close"),
	)
	return helpBox.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
