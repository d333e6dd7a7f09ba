package usage

import "time"

// UsageData is the root structure stored in usage.json.
type UsageData struct {
	Version   string          `json:"version"`
	Since     time.Time       `json:"since"`
	Aggregate AggregatedStats `json:"aggregate"`
}

// AggregatedStats holds request counters broken down by dimension.
type AggregatedStats struct {
	Total         RequestCounts            `json:"total"`
	ByEndpoint    map[string]RequestCounts `json:"by_endpoint"`     // "POST /tasks/quality-check/claim"
	ByStatusClass map[string]RequestCounts `json:"by_status_class"` // 2xx, 4xx, 5xx, transport
}

// RequestCounts sums requests, failures and latency.
type RequestCounts struct {
	Requests       int64 `json:"requests"`
	Errors         int64 `json:"errors"`
	TotalLatencyMS int64 `json:"total_latency_ms"`
	MaxLatencyMS   int64 `json:"max_latency_ms"`
}

func (rc *RequestCounts) Add(elapsed time.Duration, failed bool) {
	ms := elapsed.Milliseconds()
	rc.Requests++
	if failed {
		rc.Errors++
	}
	rc.TotalLatencyMS += ms
	if ms > rc.MaxLatencyMS {
		rc.MaxLatencyMS = ms
	}
}

// AvgLatency returns the mean latency.
func (rc RequestCounts) AvgLatency() time.Duration {
	if rc.Requests == 0 {
		return 0
	}
	return time.Duration(rc.TotalLatencyMS/rc.Requests) * time.Millisecond
}

// ErrorRate returns the failed share of requests, 0..1.
func (rc RequestCounts) ErrorRate() float64 {
	if rc.Requests == 0 {
		return 0
	}
	return float64(rc.Errors) / float64(rc.Requests)
}
