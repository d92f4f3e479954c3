package overlay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var shadowStyle = lipgloss.NewStyle().Foreground(colorOverlay)

// PlaceOverlay draws fg on top of bg with its top-left corner at (x, y).
// When center is set the position is ignored and fg is centered on bg.
// shadow draws a one-cell drop shadow to the right and below.
func PlaceOverlay(x, y int, fg, bg string, shadow, center bool) string {
	fgLines := strings.Split(fg, "\n")
	bgLines := strings.Split(bg, "\n")
	fgWidth := 0
	for _, l := range fgLines {
		fgWidth = max(fgWidth, ansi.StringWidth(l))
	}
	bgWidth := 0
	for _, l := range bgLines {
		bgWidth = max(bgWidth, ansi.StringWidth(l))
	}

	if shadow {
		fgLines = addShadow(fgLines, fgWidth)
		fgWidth++
	}

	if center {
		x = (bgWidth - fgWidth) / 2
		y = (len(bgLines) - len(fgLines)) / 2
	}
	x = max(x, 0)
	y = max(y, 0)

	for i, line := range fgLines {
		row := y + i
		if row >= len(bgLines) {
			break
		}
		bgLines[row] = spliceLine(bgLines[row], line, x)
	}
	return strings.Join(bgLines, "\n")
}

// spliceLine replaces the cells of bg starting at column x with fg.
func spliceLine(bg, fg string, x int) string {
	bgWidth := ansi.StringWidth(bg)
	fgWidth := ansi.StringWidth(fg)

	left := ansi.Truncate(bg, x, "")
	if pad := x - ansi.StringWidth(left); pad > 0 {
		left += strings.Repeat(" ", pad)
	}
	var right string
	if x+fgWidth < bgWidth {
		right = ansi.TruncateLeft(bg, x+fgWidth, "")
	}
	return left + "\x1b[0m" + fg + "\x1b[0m" + right
}

func addShadow(lines []string, width int) []string {
	out := make([]string, 0, len(lines)+1)
	for i, l := range lines {
		pad := width - ansi.StringWidth(l)
		l += strings.Repeat(" ", max(pad, 0))
		if i > 0 {
			l += shadowStyle.Render("▐")
		} else {
			l += " "
		}
		out = append(out, l)
	}
	out = append(out, " "+shadowStyle.Render(strings.Repeat("▀", width)))
	return out
}
