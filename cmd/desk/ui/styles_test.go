package ui

import (
	"strings"
	"testing"

	"reviewdesk/internal/notify"
)

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("DESK_DARK_MODE", "1")
	if !DetectTheme().IsDark {
		t.Fatalf("expected dark theme when DESK_DARK_MODE=1")
	}

	t.Setenv("DESK_DARK_MODE", "")
	if DetectTheme().IsDark {
		t.Fatalf("expected light theme when DESK_DARK_MODE is unset")
	}

	t.Setenv("COLORFGBG", "15;0")
	if !DetectTheme().IsDark {
		t.Fatalf("expected dark theme for a black background")
	}
}

func TestThemeByName(t *testing.T) {
	if !ThemeByName("dark").IsDark {
		t.Fatal("dark")
	}
	if ThemeByName("Light").IsDark {
		t.Fatal("light")
	}
}

func TestForLevel(t *testing.T) {
	s := NewStyles(LightTheme())
	if got := s.ForLevel(notify.LevelError).GetForeground(); got != Destructive {
		t.Fatalf("error style foreground = %v", got)
	}
	if got := s.ForLevel(notify.LevelInfo).GetForeground(); got != Info {
		t.Fatalf("info style foreground = %v", got)
	}
}

func TestSimpleTable(t *testing.T) {
	table := NewSimpleTable("Tags", "ID", "Name")
	table.AddRow("1", "spam")
	table.AddRow("22", "abuse", "ignored")
	table.AddRow("3")

	view := table.View(NewStyles(LightTheme()))
	if !strings.Contains(view, "Tags") || !strings.Contains(view, "spam") || !strings.Contains(view, "abuse") {
		t.Fatalf("table missing content:\n%s", view)
	}
	if strings.Contains(view, "ignored") {
		t.Fatalf("extra cells must be dropped:\n%s", view)
	}
	if NewSimpleTable("empty", "A").View(NewStyles(LightTheme())) != "" {
		t.Fatal("empty table should render nothing")
	}
}
