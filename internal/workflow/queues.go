package workflow

import (
	"fmt"
	"sort"
	"sync"

	"reviewdesk/internal/types"
)

// Predefined queue configurations.
var (
	CommentReviewQueue     = QueueConfig{BasePath: "/tasks", TaskTypeName: "comment review"}
	QualityCheckQueue      = QueueConfig{BasePath: "/tasks/quality-check", TaskTypeName: "quality check"}
	SecondReviewQueue      = QueueConfig{BasePath: "/tasks/second-review", TaskTypeName: "second review"}
	VideoFirstReviewQueue  = QueueConfig{BasePath: "/tasks/video-first-review", TaskTypeName: "video first review"}
	VideoSecondReviewQueue = QueueConfig{BasePath: "/tasks/video-second-review", TaskTypeName: "video second review"}
	AIHumanDiffQueue       = QueueConfig{BasePath: "/tasks/ai-human-diff", TaskTypeName: "AI/human diff"}
)

// VideoQueue returns the configuration of one traffic pool.
func VideoQueue(pool types.Pool) QueueConfig {
	return QueueConfig{
		BasePath:     fmt.Sprintf("/video/%s/tasks", pool),
		TaskTypeName: fmt.Sprintf("video queue %s", pool),
	}
}

// NewCommentReview returns the first-review comment client.
func NewCommentReview(d Doer) *Client[types.Task, types.ReviewResult] {
	return New[types.Task, types.ReviewResult](d, CommentReviewQueue)
}

// NewQualityCheck returns the quality-check client.
func NewQualityCheck(d Doer) *StatsClient[types.QualityCheckTask, types.SubmitQCRequest, types.QCStats] {
	return NewWithStats[types.QualityCheckTask, types.SubmitQCRequest, types.QCStats](d, QualityCheckQueue)
}

// NewSecondReview returns the second-review client.
func NewSecondReview(d Doer) *Client[types.SecondReviewTask, types.SubmitSecondReviewRequest] {
	return New[types.SecondReviewTask, types.SubmitSecondReviewRequest](d, SecondReviewQueue)
}

// NewVideoFirstReview returns the video first-review client.
func NewVideoFirstReview(d Doer) *Client[types.VideoFirstReviewTask, types.SubmitVideoReviewRequest] {
	return New[types.VideoFirstReviewTask, types.SubmitVideoReviewRequest](d, VideoFirstReviewQueue)
}

// NewVideoSecondReview returns the video second-review client.
func NewVideoSecondReview(d Doer) *Client[types.VideoSecondReviewTask, types.SubmitVideoReviewRequest] {
	return New[types.VideoSecondReviewTask, types.SubmitVideoReviewRequest](d, VideoSecondReviewQueue)
}

// NewAIHumanDiff returns the AI/human diff arbitration client.
func NewAIHumanDiff(d Doer) *Client[types.AIHumanDiffTask, types.SubmitAIHumanDiffRequest] {
	return New[types.AIHumanDiffTask, types.SubmitAIHumanDiffRequest](d, AIHumanDiffQueue)
}

// NewVideoQueue returns the client for one traffic pool.
func NewVideoQueue(d Doer, pool types.Pool) *Client[types.VideoQueueTask, types.SubmitVideoQueueReviewRequest] {
	return New[types.VideoQueueTask, types.SubmitVideoQueueReviewRequest](d, VideoQueue(pool))
}

// Kind is a registered task kind.
type Kind struct {
	Name     string
	Config   QueueConfig
	HasStats bool
}

// Generic returns a kind-agnostic client for k.
func (k Kind) Generic(d Doer) *StatsClient[types.AnyTask, map[string]any, map[string]any] {
	return NewWithStats[types.AnyTask, map[string]any, map[string]any](d, k.Config)
}

// Registry resolves task kinds by name. Base paths are unique.
type Registry struct {
	mu     sync.RWMutex
	kinds  map[string]Kind
	byPath map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds:  make(map[string]Kind),
		byPath: make(map[string]string),
	}
}

// Register adds a kind. Names and base paths must not already be taken.
func (r *Registry) Register(k Kind) error {
	if k.Name == "" || k.Config.BasePath == "" {
		return fmt.Errorf("kind needs a name and a base path")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.kinds[k.Name]; ok {
		return fmt.Errorf("kind %q already registered", k.Name)
	}
	if other, ok := r.byPath[k.Config.BasePath]; ok {
		return fmt.Errorf("base path %s already used by %q", k.Config.BasePath, other)
	}
	r.kinds[k.Name] = k
	r.byPath[k.Config.BasePath] = k.Name
	return nil
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	if !ok {
		return Kind{}, fmt.Errorf("unknown task kind %q", name)
	}
	return k, nil
}

// Names lists registered kind names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry registers every predefined queue, including one kind per
// video pool named video-<pool>.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	kinds := []Kind{
		{Name: "comment", Config: CommentReviewQueue},
		{Name: "quality-check", Config: QualityCheckQueue, HasStats: true},
		{Name: "second-review", Config: SecondReviewQueue},
		{Name: "video-first-review", Config: VideoFirstReviewQueue},
		{Name: "video-second-review", Config: VideoSecondReviewQueue},
		{Name: "ai-human-diff", Config: AIHumanDiffQueue},
	}
	for _, pool := range types.Pools {
		kinds = append(kinds, Kind{Name: "video-" + string(pool), Config: VideoQueue(pool)})
	}
	for _, k := range kinds {
		if err := r.Register(k); err != nil {
			panic(err)
		}
	}
	return r
}
