package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"reviewdesk/internal/format"
	"reviewdesk/internal/usage"
)

// UsagePageModel shows request statistics collected by the usage tracker.
type UsagePageModel struct {
	viewport viewport.Model
	tracker  *usage.Tracker
	styles   Styles
	width    int
	height   int
}

func NewUsagePageModel(tracker *usage.Tracker, styles Styles) UsagePageModel {
	return UsagePageModel{
		viewport: viewport.New(80, 20),
		tracker:  tracker,
		styles:   styles,
	}
}

func (m *UsagePageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.viewport.Height = h
	m.UpdateContent()
}

func (m *UsagePageModel) SetStyles(s Styles) {
	m.styles = s
	m.UpdateContent()
}

// UpdateContent re-reads the tracker.
func (m *UsagePageModel) UpdateContent() {
	m.viewport.SetContent(RenderUsage(m.tracker, m.styles, 0))
}

// RenderUsage formats tracker stats; limit caps the endpoint table (0 = all).
func RenderUsage(tracker *usage.Tracker, styles Styles, limit int) string {
	if tracker == nil {
		return "Usage tracking not available."
	}
	stats := tracker.Stats()

	var sb strings.Builder
	total := stats.Total
	sb.WriteString(styles.Title.Render("Request usage"))
	sb.WriteString(styles.Muted.Render(" since " + format.Time(tracker.Since())))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Requests:    %s\n", format.Number(total.Requests)))
	sb.WriteString(fmt.Sprintf("Errors:      %s (%s)\n", format.Number(total.Errors), format.Percent(total.ErrorRate())))
	sb.WriteString(fmt.Sprintf("Avg latency: %v\n", total.AvgLatency()))
	sb.WriteString(fmt.Sprintf("Max latency: %dms\n\n", total.MaxLatencyMS))

	endpoints := NewSimpleTable("By endpoint", "Endpoint", "Requests", "Errors", "Avg", "Max")
	for _, e := range tracker.TopEndpoints(limit) {
		endpoints.AddRow(e.Endpoint,
			format.Number(e.Requests),
			format.Number(e.Errors),
			e.AvgLatency().String(),
			fmt.Sprintf("%dms", e.MaxLatencyMS))
	}
	sb.WriteString(endpoints.View(styles))
	sb.WriteString("\n")

	classes := make([]string, 0, len(stats.ByStatusClass))
	for k := range stats.ByStatusClass {
		classes = append(classes, k)
	}
	sort.Strings(classes)
	byClass := NewSimpleTable("By status", "Status", "Requests")
	for _, k := range classes {
		byClass.AddRow(k, format.Number(stats.ByStatusClass[k].Requests))
	}
	sb.WriteString(byClass.View(styles))
	return sb.String()
}

func (m UsagePageModel) Update(msg tea.Msg) (UsagePageModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m UsagePageModel) View() string {
	return m.viewport.View()
}
