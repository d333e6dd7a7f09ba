// Package workflow maps the claim, submit and return lifecycle shared by
// every review queue onto HTTP calls. One generic client serves every task
// kind; a QueueConfig says which endpoint family it talks to.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"reviewdesk/internal/config"
	"reviewdesk/internal/logging"
)

// Doer is the transport the workflow client needs. *api.Client satisfies it.
type Doer interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// QueueConfig identifies one task kind's endpoint family.
type QueueConfig struct {
	// BasePath is the endpoint prefix, e.g. /tasks/quality-check.
	BasePath string
	// TaskTypeName is used in log lines.
	TaskTypeName string
}

// TasksResponse is returned by claim and my.
type TasksResponse[T any] struct {
	Tasks []T `json:"tasks"`
	Count int `json:"count"`
}

// MessageResponse acknowledges a single submission.
type MessageResponse struct {
	Message string `json:"message"`
}

// MessageCountResponse acknowledges a batch submit or a return.
type MessageCountResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// UnmarshalJSON accepts the older batch shape that reported "submitted"
// instead of "count".
func (m *MessageCountResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Message   string `json:"message"`
		Count     *int   `json:"count"`
		Submitted *int   `json:"submitted"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Message = raw.Message
	switch {
	case raw.Count != nil:
		m.Count = *raw.Count
	case raw.Submitted != nil:
		m.Count = *raw.Submitted
	default:
		m.Count = 0
	}
	return nil
}

// ErrInvalidClaimCount is returned before any request when the claim count
// is outside the range the backend accepts.
var ErrInvalidClaimCount = errors.New("invalid claim count")

type claimRequest struct {
	Count int `json:"count"`
}

type returnRequest struct {
	TaskIDs []int64 `json:"task_ids"`
}

type batchRequest[R any] struct {
	Reviews []R `json:"reviews"`
}

// Client is the workflow client for task type T and review payload R.
// It holds no state besides its configuration; there is no retry and no
// caching.
type Client[T, R any] struct {
	doer Doer
	cfg  QueueConfig
}

// New creates a workflow client.
func New[T, R any](d Doer, cfg QueueConfig) *Client[T, R] {
	return &Client[T, R]{doer: d, cfg: cfg}
}

// Config returns the queue configuration.
func (c *Client[T, R]) Config() QueueConfig { return c.cfg }

// ClaimTasks asks for up to count unclaimed tasks. The server may return
// fewer than requested.
func (c *Client[T, R]) ClaimTasks(ctx context.Context, count int) (*TasksResponse[T], error) {
	if count < config.MinClaimCount || count > config.MaxClaimCount {
		return nil, fmt.Errorf("%w: must be between %d and %d, got %d",
			ErrInvalidClaimCount, config.MinClaimCount, config.MaxClaimCount, count)
	}

	var out TasksResponse[T]
	if err := c.doer.Post(ctx, c.cfg.BasePath+"/claim", claimRequest{Count: count}, &out); err != nil {
		return nil, err
	}
	normalize(&out)
	logging.Workflow("claimed %d/%d %s tasks", out.Count, count, c.cfg.TaskTypeName)
	return &out, nil
}

// GetMyTasks lists tasks claimed by the caller and not yet submitted.
func (c *Client[T, R]) GetMyTasks(ctx context.Context) (*TasksResponse[T], error) {
	var out TasksResponse[T]
	if err := c.doer.Get(ctx, c.cfg.BasePath+"/my", &out); err != nil {
		return nil, err
	}
	normalize(&out)
	logging.WorkflowDebug("%d %s tasks in hand", out.Count, c.cfg.TaskTypeName)
	return &out, nil
}

// SubmitReview submits the decision for one claimed task.
func (c *Client[T, R]) SubmitReview(ctx context.Context, review R) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.doer.Post(ctx, c.cfg.BasePath+"/submit", review, &out); err != nil {
		return nil, err
	}
	logging.Workflow("submitted %s review", c.cfg.TaskTypeName)
	return &out, nil
}

// SubmitBatchReviews submits several decisions in one request. An empty
// batch is valid and is sent as an empty list.
func (c *Client[T, R]) SubmitBatchReviews(ctx context.Context, reviews []R) (*MessageCountResponse, error) {
	if reviews == nil {
		reviews = []R{}
	}
	var out MessageCountResponse
	if err := c.doer.Post(ctx, c.cfg.BasePath+"/submit-batch", batchRequest[R]{Reviews: reviews}, &out); err != nil {
		return nil, err
	}
	logging.Workflow("batch submitted %d/%d %s reviews", out.Count, len(reviews), c.cfg.TaskTypeName)
	return &out, nil
}

// ReturnTasks releases claimed tasks back to the pool.
func (c *Client[T, R]) ReturnTasks(ctx context.Context, taskIDs []int64) (*MessageCountResponse, error) {
	if taskIDs == nil {
		taskIDs = []int64{}
	}
	var out MessageCountResponse
	if err := c.doer.Post(ctx, c.cfg.BasePath+"/return", returnRequest{TaskIDs: taskIDs}, &out); err != nil {
		return nil, err
	}
	logging.Workflow("returned %d %s tasks", out.Count, c.cfg.TaskTypeName)
	return &out, nil
}

// StatsClient is a Client whose queue also serves {basePath}/stats.
type StatsClient[T, R, S any] struct {
	*Client[T, R]
}

// NewWithStats creates a workflow client with stats support.
func NewWithStats[T, R, S any](d Doer, cfg QueueConfig) *StatsClient[T, R, S] {
	return &StatsClient[T, R, S]{Client: New[T, R](d, cfg)}
}

// GetStats fetches the queue's aggregate counters.
func (c *StatsClient[T, R, S]) GetStats(ctx context.Context) (*S, error) {
	var out S
	if err := c.doer.Get(ctx, c.cfg.BasePath+"/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func normalize[T any](r *TasksResponse[T]) {
	if r.Tasks == nil {
		r.Tasks = []T{}
	}
}
