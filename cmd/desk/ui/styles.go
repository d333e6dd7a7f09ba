// Package ui is the interactive review console: the claimed tasks of one
// queue under its dashboard, the notification feed and request usage.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"reviewdesk/internal/notify"
)

var (
	// Light mode
	LightForeground = lipgloss.Color("#1F2937")
	LightPrimary    = lipgloss.Color("#1D4ED8")
	LightAccent     = lipgloss.Color("#0EA5E9")
	LightMuted      = lipgloss.Color("#9CA3AF")
	LightBorder     = lipgloss.Color("#E5E7EB")
	LightCard       = lipgloss.Color("#FFFFFF")

	// Dark mode
	DarkForeground = lipgloss.Color("#F3F4F6")
	DarkPrimary    = lipgloss.Color("#60A5FA")
	DarkAccent     = lipgloss.Color("#38BDF8")
	DarkMuted      = lipgloss.Color("#6B7280")
	DarkBorder     = lipgloss.Color("#374151")
	DarkCard       = lipgloss.Color("#111827")

	// Semantic, same in both modes
	Destructive = lipgloss.Color("#DC2626")
	Success     = lipgloss.Color("#059669")
	Warning     = lipgloss.Color("#D97706")
	Info        = lipgloss.Color("#2563EB")
)

// Theme is a color scheme.
type Theme struct {
	Name       string
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

func LightTheme() Theme {
	return Theme{
		Name:       "light",
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
	}
}

func DarkTheme() Theme {
	return Theme{
		Name:       "dark",
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		IsDark:     true,
	}
}

// DetectTheme guesses from COLORFGBG and DESK_DARK_MODE. Light is the default.
func DetectTheme() Theme {
	if fgbg := os.Getenv("COLORFGBG"); fgbg != "" {
		parts := strings.Split(fgbg, ";")
		if len(parts) == 2 {
			// 0-6 and 8 are dark backgrounds
			if bg, err := strconv.Atoi(parts[1]); err == nil && ((bg >= 0 && bg <= 6) || bg == 8) {
				return DarkTheme()
			}
		}
	}
	if os.Getenv("DESK_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// ThemeByName resolves the ui.theme config value; anything but dark or
// light is detected.
func ThemeByName(name string) Theme {
	switch strings.ToLower(name) {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	default:
		return DetectTheme()
	}
}

// Styles holds the styled components.
type Styles struct {
	Theme Theme

	Header   lipgloss.Style
	Tab      lipgloss.Style
	TabOn    lipgloss.Style
	Footer   lipgloss.Style
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style
	Selected lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	Card    lipgloss.Style
	Spinner lipgloss.Style
	Divider lipgloss.Style
	Badge   lipgloss.Style
}

func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 2).
			Bold(true),
		Tab: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),
		TabOn: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Padding(0, 1).
			Bold(true).
			Underline(true),
		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),
		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),
		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),
		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),
		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Success: lipgloss.NewStyle().Foreground(Success).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(Destructive).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(Warning).Bold(true),
		Info:    lipgloss.NewStyle().Foreground(Info),

		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
		Spinner: lipgloss.NewStyle().Foreground(theme.Accent),
		Divider: lipgloss.NewStyle().Foreground(theme.Border),
		Badge: lipgloss.NewStyle().
			Background(Destructive).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1).
			Bold(true),
	}
}

// DefaultStyles uses the detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// ForLevel returns the style used for a notifier message.
func (s Styles) ForLevel(level notify.Level) lipgloss.Style {
	switch level {
	case notify.LevelError:
		return s.Error
	case notify.LevelWarning:
		return s.Warning
	case notify.LevelSuccess:
		return s.Success
	default:
		return s.Info
	}
}

func (s Styles) RenderDivider(width int) string {
	if width <= 0 {
		width = 1
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
