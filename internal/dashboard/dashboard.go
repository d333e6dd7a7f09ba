// Package dashboard describes the header of each review workbench: its
// title, claim button, empty-list text and the statistics it shows.
package dashboard

import (
	"math"

	"reviewdesk/internal/format"
)

// Formatter renders one statistic.
type Formatter func(v float64) string

// Stock formatters.
var (
	Percentage Formatter = format.Percentage
	Count      Formatter = func(v float64) string {
		if math.IsNaN(v) {
			v = 0
		}
		return format.Count(int64(v))
	}
	Duration Formatter = func(v float64) string { return format.Duration(int64(v)) }
)

// Stat is one statistic shown on the dashboard.
type Stat struct {
	Key   string
	Label string
	// Format is optional; nil renders the value as a count.
	Format Formatter
}

// NewStat builds a Stat. format may be nil.
func NewStat(key, label string, format Formatter) Stat {
	return Stat{Key: key, Label: label, Format: format}
}

// Config is a workbench dashboard.
type Config struct {
	Title           string
	ShowSearch      bool
	ShowBatchSubmit bool
	ClaimButtonText string
	EmptyText       string
	Stats           []Stat
}

// Option customizes a Config built by New.
type Option func(*Config)

// WithSearch toggles the search box.
func WithSearch(on bool) Option { return func(c *Config) { c.ShowSearch = on } }

// WithBatchSubmit toggles batch submission.
func WithBatchSubmit(on bool) Option { return func(c *Config) { c.ShowBatchSubmit = on } }

// WithClaimButtonText sets the claim action label.
func WithClaimButtonText(s string) Option { return func(c *Config) { c.ClaimButtonText = s } }

// WithEmptyText sets the text shown when no task is claimed.
func WithEmptyText(s string) Option { return func(c *Config) { c.EmptyText = s } }

// WithStats sets the statistics.
func WithStats(stats ...Stat) Option { return func(c *Config) { c.Stats = stats } }

// New builds a Config with the standard defaults.
func New(title string, opts ...Option) Config {
	c := Config{
		Title:           title,
		ShowSearch:      true,
		ShowBatchSubmit: true,
		ClaimButtonText: "Claim tasks",
		EmptyText:       "No tasks waiting, press claim to start",
		Stats:           []Stat{},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Row is one rendered statistic.
type Row struct {
	Label string
	Value string
}

// Render formats stats in the configured order. Missing keys render as "-".
func (c Config) Render(stats map[string]float64) []Row {
	rows := make([]Row, 0, len(c.Stats))
	for _, s := range c.Stats {
		v, ok := stats[s.Key]
		if !ok {
			rows = append(rows, Row{Label: s.Label, Value: "-"})
			continue
		}
		f := s.Format
		if f == nil {
			f = Count
		}
		rows = append(rows, Row{Label: s.Label, Value: f(v)})
	}
	return rows
}

// Predefined workbenches.
var (
	QualityCheck = New("Quality check workbench",
		WithClaimButtonText("Claim quality checks"),
		WithEmptyText("No quality checks waiting, press claim to start"),
		WithStats(
			NewStat("pending_tasks", "Pending checks", nil),
			NewStat("today_completed", "Completed today", nil),
			NewStat("total_completed", "Completed in total", nil),
			NewStat("pass_rate", "Pass rate", Percentage),
		),
	)

	SecondReview = New("Second review workbench",
		WithClaimButtonText("Claim second reviews"),
		WithEmptyText("No second reviews waiting, press claim to start"),
		WithStats(
			NewStat("pending_tasks", "Pending second reviews", nil),
			NewStat("today_completed", "Completed today", nil),
			NewStat("total_completed", "Completed in total", nil),
		),
	)

	VideoFirstReview = New("Short video first review workbench",
		WithClaimButtonText("Claim new tasks"),
		WithEmptyText("No videos waiting, press claim to start"),
		WithStats(
			NewStat("pending_tasks", "Pending videos", nil),
			NewStat("today_completed", "Completed today", nil),
		),
	)

	VideoSecondReview = New("Short video second review workbench",
		WithClaimButtonText("Claim second reviews"),
		WithEmptyText("No second reviews waiting, press claim to start"),
		WithStats(
			NewStat("pending_tasks", "Pending second reviews", nil),
			NewStat("today_completed", "Completed today", nil),
		),
	)
)

// VideoQueue is the workbench of one traffic pool.
func VideoQueue(pool string) Config {
	return New("Video queue "+pool,
		WithStats(
			NewStat("pending_tasks", "Pending", nil),
			NewStat("in_progress_tasks", "In progress", nil),
			NewStat("completed_tasks", "Completed", nil),
			NewStat("avg_process_time_seconds", "Avg handling time", Duration),
		),
	)
}

// ForKind returns the dashboard of a registered task kind name.
func ForKind(name string) Config {
	switch name {
	case "quality-check":
		return QualityCheck
	case "second-review":
		return SecondReview
	case "video-first-review":
		return VideoFirstReview
	case "video-second-review":
		return VideoSecondReview
	case "video-100k", "video-1m", "video-10m":
		return VideoQueue(name[len("video-"):])
	case "ai-human-diff":
		return New("AI/human diff workbench")
	default:
		return New("Comment review workbench")
	}
}
