package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"reviewdesk/internal/types"
)

// markdownStyle picks the glamour style for a theme unless one is forced.
func markdownStyle(theme Theme, forced string) string {
	if forced != "" {
		return forced
	}
	if theme.IsDark {
		return "dark"
	}
	return "light"
}

func newMarkdownRenderer(style string, width int) *glamour.TermRenderer {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderMarkdown falls back to the raw text when rendering fails.
func renderMarkdown(r *glamour.TermRenderer, md string) string {
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// RenderNotification renders one notification as markdown for plain output.
// An empty style follows the detected terminal theme.
func RenderNotification(n types.Notification, style string, width int) string {
	return renderMarkdown(newMarkdownRenderer(markdownStyle(DetectTheme(), style), width), notificationMarkdown(n))
}
