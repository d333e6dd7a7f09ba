package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"reviewdesk/internal/notify"
)

// statusMsg carries one notifier message into the update loop.
type statusMsg notify.Message

// StatusNotifier is the console's notify.Notifier. Messages are queued and
// shown in the status line; when the queue is full the newest is dropped.
type StatusNotifier struct {
	ch chan statusMsg
}

func NewStatusNotifier() *StatusNotifier {
	return &StatusNotifier{ch: make(chan statusMsg, 32)}
}

// Notify implements notify.Notifier.
func (s *StatusNotifier) Notify(level notify.Level, text string) {
	select {
	case s.ch <- statusMsg{Level: level, Text: text}:
	default:
	}
}

func (s *StatusNotifier) wait() tea.Cmd {
	return func() tea.Msg { return <-s.ch }
}
