// Package render formats run reports for terminal display.
package render

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

const defaultWrap = 100

// Options control markdown rendering.
type Options struct {
	NoColor bool   // return the content unchanged
	Width   int    // word wrap width, defaultWrap if zero
	Style   string // glamour style name ("dark", "light", "notty"), auto-detected if empty
}

// Markdown renders a markdown report for the terminal.
// With NoColor set the content is returned as is, so piped output stays plain markdown.
func Markdown(content string, opts Options) (string, error) {
	if opts.NoColor {
		return content, nil
	}

	width := opts.Width
	if width <= 0 {
		width = defaultWrap
	}

	styleOpt := glamour.WithAutoStyle()
	if opts.Style != "" {
		styleOpt = glamour.WithStandardStyle(opts.Style)
	}

	renderer, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}

	result, err := renderer.Render(content)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	return result, nil
}
