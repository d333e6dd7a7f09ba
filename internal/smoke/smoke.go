// Package smoke runs quick availability and latency checks against a live
// backend. Every check reports its status code and wall time; failures
// never abort the suite.
package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"reviewdesk/internal/logging"
	"reviewdesk/internal/trace"
)

// DefaultTimeout bounds every single check.
const DefaultTimeout = 20 * time.Second

// ErrMissingToken is returned when an authenticated check runs without a token.
var ErrMissingToken = errors.New("missing TOKEN for authenticated requests")

// Check is one request of a suite.
type Check struct {
	Name   string
	Method string
	Path   string
	Body   any
	// Auth sends the bearer token.
	Auth bool
}

// Result is the outcome of one check. Status is 0 when no response came back.
type Result struct {
	Name     string
	Status   int
	Duration time.Duration
	Err      error
	Body     string
}

// OK reports a 2xx answer.
func (r Result) OK() bool { return r.Err == nil && r.Status >= 200 && r.Status < 300 }

// Summary counts a run.
type Summary struct {
	Total  int
	Passed int
	Failed int
}

// Runner executes checks against baseURL.
type Runner struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	out         io.Writer
	concurrency int

	mu sync.Mutex // serializes output
}

// Option configures a Runner.
type Option func(*Runner)

// WithHTTPClient replaces the http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(r *Runner) { r.httpClient = hc } }

// WithOutput sets where report lines are written.
func WithOutput(w io.Writer) Option { return func(r *Runner) { r.out = w } }

// WithConcurrency runs n copies of the suite in parallel.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewRunner creates a runner. token may be empty if no check needs auth.
func NewRunner(baseURL, token string, opts ...Option) *Runner {
	r := &Runner{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		out:         io.Discard,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes checks in order, once per concurrent worker, then prints the
// summary. Results are grouped by worker.
func (r *Runner) Run(ctx context.Context, checks []Check) ([]Result, Summary) {
	results := make([][]Result, r.concurrency)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < r.concurrency; i++ {
		i := i
		g.Go(func() error {
			suite := make([]Result, 0, len(checks))
			for _, c := range checks {
				res := r.runOne(ctx, c)
				r.report(res)
				suite = append(suite, res)
			}
			results[i] = suite
			return nil
		})
	}
	_ = g.Wait()

	var all []Result
	var sum Summary
	for _, suite := range results {
		for _, res := range suite {
			all = append(all, res)
			sum.Total++
			if res.OK() {
				sum.Passed++
			} else {
				sum.Failed++
			}
		}
	}

	fmt.Fprintf(r.out, "\nTotal: %d  Passed: %d  Failed: %d\n", sum.Total, sum.Passed, sum.Failed)
	logging.Get(logging.CategorySmoke).Info("smoke run: total=%d passed=%d failed=%d", sum.Total, sum.Passed, sum.Failed)
	return all, sum
}

func (r *Runner) runOne(ctx context.Context, c Check) Result {
	res := Result{Name: c.Name}
	start := time.Now()

	if c.Auth && r.token == "" {
		res.Err = ErrMissingToken
		res.Duration = time.Since(start)
		return res
	}

	var body io.Reader
	if c.Body != nil {
		data, err := json.Marshal(c.Body)
		if err != nil {
			res.Err = fmt.Errorf("marshal body: %w", err)
			res.Duration = time.Since(start)
			return res
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, c.Method, r.baseURL+c.Path, body)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(trace.HeaderTraceID, trace.NewID())
	if c.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Auth {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	res.Status = resp.StatusCode
	res.Body = strings.TrimSpace(string(raw))
	res.Duration = time.Since(start)
	return res
}

func (r *Runner) report(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms := res.Duration.Milliseconds()
	switch {
	case res.Err != nil:
		fmt.Fprintf(r.out, "FAIL %s - error (%dms)\n", res.Name, ms)
		fmt.Fprintf(r.out, "  Error: %v\n", res.Err)
	case res.OK():
		fmt.Fprintf(r.out, "OK %s - %d (%dms)\n", res.Name, res.Status, ms)
	default:
		fmt.Fprintf(r.out, "FAIL %s - %d (%dms)\n", res.Name, res.Status, ms)
		if res.Body != "" {
			fmt.Fprintf(r.out, "  Response: %s\n", res.Body)
		}
	}
}

// VideoQueueChecks is the video queue smoke suite for pool.
func VideoQueueChecks(pool string, claimCount int) []Check {
	base := "/video/" + pool
	return []Check{
		{Name: "GET /queues", Method: http.MethodGet, Path: "/queues?page=1&page_size=20"},
		{Name: "GET " + base + "/tasks/my", Method: http.MethodGet, Path: base + "/tasks/my", Auth: true},
		{Name: "GET " + base + "/tags", Method: http.MethodGet, Path: base + "/tags", Auth: true},
		{Name: "POST " + base + "/tasks/claim", Method: http.MethodPost, Path: base + "/tasks/claim", Body: map[string]int{"count": claimCount}, Auth: true},
	}
}

// APIChecks is the read-only availability suite across the reviewer API.
func APIChecks() []Check {
	return []Check{
		{Name: "GET /queues", Method: http.MethodGet, Path: "/queues?page=1&page_size=20"},
		{Name: "GET /auth/profile", Method: http.MethodGet, Path: "/auth/profile", Auth: true},
		{Name: "GET /tags", Method: http.MethodGet, Path: "/tags", Auth: true},
		{Name: "GET /tasks/my", Method: http.MethodGet, Path: "/tasks/my", Auth: true},
		{Name: "GET /tasks/quality-check/my", Method: http.MethodGet, Path: "/tasks/quality-check/my", Auth: true},
		{Name: "GET /tasks/quality-check/stats", Method: http.MethodGet, Path: "/tasks/quality-check/stats", Auth: true},
		{Name: "GET /tasks/second-review/my", Method: http.MethodGet, Path: "/tasks/second-review/my", Auth: true},
		{Name: "GET /notifications/unread-count", Method: http.MethodGet, Path: "/notifications/unread-count", Auth: true},
	}
}
