// Package notify displays user-facing messages. The CLI prints them, the
// review console shows them in its status line.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Level is the severity of a displayed message.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Message is one displayed notice.
type Message struct {
	Level Level
	Text  string
}

// Notifier shows messages to the reviewer.
type Notifier interface {
	Notify(level Level, text string)
}

// Error displays text at error level.
func Error(n Notifier, text string) { n.Notify(LevelError, text) }

// Warning displays text at warning level.
func Warning(n Notifier, text string) { n.Notify(LevelWarning, text) }

// Success displays text at success level.
func Success(n Notifier, text string) { n.Notify(LevelSuccess, text) }

// Info displays text at info level.
func Info(n Notifier, text string) { n.Notify(LevelInfo, text) }

// Console writes colored lines to w.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	styles map[Level]lipgloss.Style
}

// NewConsole creates a console notifier writing to w (usually stderr).
func NewConsole(w io.Writer) *Console {
	return &Console{
		w: w,
		styles: map[Level]lipgloss.Style{
			LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
			LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#059669")).Bold(true),
			LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#D97706")).Bold(true),
			LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true),
		},
	}
}

// Notify implements Notifier.
func (c *Console) Notify(level Level, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := c.styles[level].Render(fmt.Sprintf("[%s]", level))
	fmt.Fprintf(c.w, "%s %s\n", prefix, text)
}

// Func adapts a function to Notifier.
type Func func(level Level, text string)

// Notify implements Notifier.
func (f Func) Notify(level Level, text string) { f(level, text) }

// Discard drops every message.
var Discard Notifier = Func(func(Level, string) {})

// Recorder keeps every message; used by tests and by the smoke runner to
// attach displayed errors to failed checks.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Notify implements Notifier.
func (r *Recorder) Notify(level Level, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: level, Text: text})
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Reset clears recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.messages = nil
	r.mu.Unlock()
}
