// Package usage records per-endpoint request statistics and persists them
// to the workspace so `desk usage` can report them across runs.
package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"reviewdesk/internal/logging"
)

const autoSaveDelay = 5 * time.Second

// Tracker aggregates request statistics. It implements api.Observer.
type Tracker struct {
	mu       sync.Mutex
	data     UsageData
	filePath string
	dirty    bool
	timer    *time.Timer
	now      func() time.Time
}

// NewTracker creates a tracker persisting to filePath, loading what is
// already there.
func NewTracker(filePath string) (*Tracker, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create usage dir: %w", err)
	}

	t := &Tracker{filePath: filePath, now: time.Now}
	t.data = t.emptyData()

	if err := t.Load(); err != nil {
		logging.Get(logging.CategoryUsage).Warn("Ignoring unreadable usage file %s: %v", filePath, err)
		t.data = t.emptyData()
	}
	return t, nil
}

func (t *Tracker) emptyData() UsageData {
	return UsageData{
		Version: "1.0",
		Since:   t.now().UTC(),
		Aggregate: AggregatedStats{
			ByEndpoint:    make(map[string]RequestCounts),
			ByStatusClass: make(map[string]RequestCounts),
		},
	}
}

// Load reads the usage data from disk. A missing file is not an error.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &t.data); err != nil {
		return err
	}

	if t.data.Aggregate.ByEndpoint == nil {
		t.data.Aggregate.ByEndpoint = make(map[string]RequestCounts)
	}
	if t.data.Aggregate.ByStatusClass == nil {
		t.data.Aggregate.ByStatusClass = make(map[string]RequestCounts)
	}
	return nil
}

// Save writes the usage data to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	data, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(t.filePath, data, 0644); err != nil {
		return err
	}
	t.dirty = false
	return nil
}

// ObserveRequest records one completed request.
func (t *Tracker) ObserveRequest(method, path string, status int, elapsed time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	failed := err != nil || status >= 400
	key := method + " " + NormalizePath(path)

	t.data.Aggregate.Total.Add(elapsed, failed)
	addToMap(t.data.Aggregate.ByEndpoint, key, elapsed, failed)
	addToMap(t.data.Aggregate.ByStatusClass, statusClass(status), elapsed, failed)

	if !t.dirty {
		t.dirty = true
		t.timer = time.AfterFunc(autoSaveDelay, func() {
			if err := t.Save(); err != nil {
				logging.Get(logging.CategoryUsage).Warn("Usage autosave failed: %v", err)
			}
		})
	}
}

// Close stops the autosave timer and flushes pending changes.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if !t.dirty {
		return nil
	}
	return t.saveLocked()
}

// Reset clears all counters.
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = t.emptyData()
	return t.saveLocked()
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.ByEndpoint = copyCountsMap(stats.ByEndpoint)
	stats.ByStatusClass = copyCountsMap(stats.ByStatusClass)
	return stats
}

// Since returns when counting started.
func (t *Tracker) Since() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data.Since
}

// EndpointStat is one row of the endpoint report.
type EndpointStat struct {
	Endpoint string
	RequestCounts
}

// TopEndpoints lists endpoints by request count, busiest first.
func (t *Tracker) TopEndpoints(limit int) []EndpointStat {
	stats := t.Stats()
	out := make([]EndpointStat, 0, len(stats.ByEndpoint))
	for k, v := range stats.ByEndpoint {
		out = append(out, EndpointStat{Endpoint: k, RequestCounts: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Requests != out[j].Requests {
			return out[i].Requests > out[j].Requests
		}
		return out[i].Endpoint < out[j].Endpoint
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func copyCountsMap(src map[string]RequestCounts) map[string]RequestCounts {
	if src == nil {
		return nil
	}
	dst := make(map[string]RequestCounts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addToMap(m map[string]RequestCounts, key string, elapsed time.Duration, failed bool) {
	entry := m[key]
	entry.Add(elapsed, failed)
	m[key] = entry
}

// NormalizePath replaces numeric path segments with :id so that per-item
// endpoints aggregate together.
func NormalizePath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func statusClass(status int) string {
	if status <= 0 {
		return "transport"
	}
	return strconv.Itoa(status/100) + "xx"
}
