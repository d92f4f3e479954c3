package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

const minWordWrap = 20

var (
	rendererMu sync.Mutex
	renderers  = map[string]*glamour.TermRenderer{}
)

// MarkdownStyle picks the glamour standard style for the terminal background.
// Inside the TUI the theme background is forced, so callers pass dark there.
func MarkdownStyle() string {
	if termenv.EnvColorProfile() == termenv.Ascii {
		return "notty"
	}
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// RenderMarkdown renders md with the given glamour style, wrapped at width.
// Renderers are cached per style and width.
func RenderMarkdown(md, style string, width int) (string, error) {
	if width < minWordWrap {
		width = minWordWrap
	}
	key := fmt.Sprintf("%s/%d", style, width)

	rendererMu.Lock()
	defer rendererMu.Unlock()
	r, ok := renderers[key]
	if !ok {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", fmt.Errorf("could not create markdown renderer: %w", err)
		}
		renderers[key] = r
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("could not render markdown: %w", err)
	}
	return strings.Trim(out, "\n"), nil
}
