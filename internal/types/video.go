package types

import "time"

// Pool is a video queue traffic tier.
type Pool string

const (
	Pool100K Pool = "100k"
	Pool1M   Pool = "1m"
	Pool10M  Pool = "10m"
)

// Pools lists every video queue pool in promotion order.
var Pools = []Pool{Pool100K, Pool1M, Pool10M}

// ReviewDecision is the outcome of a video queue review.
type ReviewDecision string

const (
	DecisionPushNextPool    ReviewDecision = "push_next_pool"
	DecisionNaturalPool     ReviewDecision = "natural_pool"
	DecisionRemoveViolation ReviewDecision = "remove_violation"
)

// Video is the uploaded short video under review.
type Video struct {
	ID           int64      `json:"id"`
	VideoKey     string     `json:"video_key"`
	Filename     string     `json:"filename"`
	FileSize     int64      `json:"file_size"`
	Duration     *int       `json:"duration"`
	UploadTime   *time.Time `json:"upload_time"`
	VideoURL     *string    `json:"video_url"`
	URLExpiresAt *time.Time `json:"url_expires_at"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// QualityDimension is one scored axis of a video review.
type QualityDimension struct {
	Score int      `json:"score"` // 1-10
	Tags  []string `json:"tags"`
}

// QualityDimensions groups the four scored axes.
type QualityDimensions struct {
	ContentQuality      QualityDimension `json:"content_quality"`
	TechnicalQuality    QualityDimension `json:"technical_quality"`
	Compliance          QualityDimension `json:"compliance"`
	EngagementPotential QualityDimension `json:"engagement_potential"`
}

// VideoFirstReviewTask is a first-pass video review.
type VideoFirstReviewTask struct {
	ID          int64      `json:"id"`
	VideoID     int64      `json:"video_id"`
	ReviewerID  *int64     `json:"reviewer_id"`
	Status      string     `json:"status"`
	ClaimedAt   *time.Time `json:"claimed_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	Video       *Video     `json:"video,omitempty"`
}

func (t VideoFirstReviewTask) TaskID() int64 { return t.ID }

// VideoFirstReviewResult is attached to second-review video tasks.
type VideoFirstReviewResult struct {
	ID                int64             `json:"id"`
	TaskID            int64             `json:"task_id"`
	ReviewerID        int64             `json:"reviewer_id"`
	IsApproved        bool              `json:"is_approved"`
	QualityDimensions QualityDimensions `json:"quality_dimensions"`
	OverallScore      int               `json:"overall_score"`
	TrafficPoolResult *string           `json:"traffic_pool_result"`
	Reason            *string           `json:"reason"`
	CreatedAt         time.Time         `json:"created_at"`
}

// VideoSecondReviewTask re-examines a first-pass video decision.
type VideoSecondReviewTask struct {
	ID                  int64                   `json:"id"`
	FirstReviewResultID int64                   `json:"first_review_result_id"`
	VideoID             int64                   `json:"video_id"`
	ReviewerID          *int64                  `json:"reviewer_id"`
	Status              string                  `json:"status"`
	ClaimedAt           *time.Time              `json:"claimed_at"`
	CompletedAt         *time.Time              `json:"completed_at"`
	CreatedAt           time.Time               `json:"created_at"`
	Video               *Video                  `json:"video,omitempty"`
	FirstReviewResult   *VideoFirstReviewResult `json:"first_review_result,omitempty"`
}

func (t VideoSecondReviewTask) TaskID() int64 { return t.ID }

// SubmitVideoReviewRequest is shared by video first and second review.
type SubmitVideoReviewRequest struct {
	TaskID            int64             `json:"task_id"`
	IsApproved        bool              `json:"is_approved"`
	QualityDimensions QualityDimensions `json:"quality_dimensions"`
	TrafficPoolResult *string           `json:"traffic_pool_result"`
	Reason            *string           `json:"reason"`
}

// VideoQueueTask is a task in one of the traffic pools.
type VideoQueueTask struct {
	ID          int64      `json:"id"`
	VideoID     int64      `json:"video_id"`
	Pool        Pool       `json:"pool"`
	ReviewerID  *int64     `json:"reviewer_id"`
	Status      string     `json:"status"`
	ClaimedAt   *time.Time `json:"claimed_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	Video       *Video     `json:"video,omitempty"`
}

func (t VideoQueueTask) TaskID() int64 { return t.ID }

// SubmitVideoQueueReviewRequest is a pool review decision.
type SubmitVideoQueueReviewRequest struct {
	TaskID         int64          `json:"task_id"`
	ReviewDecision ReviewDecision `json:"review_decision"`
	Reason         string         `json:"reason"`
	Tags           []string       `json:"tags"`
}

// VideoQueueTag is a pool-scoped label.
type VideoQueueTag struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"` // content, technical, compliance, engagement
	Scope       string    `json:"scope"`
	QueueID     *string   `json:"queue_id"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// VideoQueueTagsResponse wraps GET /video/{pool}/tags.
type VideoQueueTagsResponse struct {
	Tags []VideoQueueTag `json:"tags"`
}

// VideoQueuePoolStats is returned by the admin pool stats endpoint.
type VideoQueuePoolStats struct {
	Pool                  Pool    `json:"pool"`
	TotalTasks            int64   `json:"total_tasks"`
	CompletedTasks        int64   `json:"completed_tasks"`
	PendingTasks          int64   `json:"pending_tasks"`
	InProgressTasks       int64   `json:"in_progress_tasks"`
	AvgProcessTimeMinutes float64 `json:"avg_process_time_minutes"`
}

// Values flattens the counters for dashboard rendering.
func (s VideoQueuePoolStats) Values() map[string]float64 {
	return map[string]float64{
		"total_tasks":              float64(s.TotalTasks),
		"completed_tasks":          float64(s.CompletedTasks),
		"pending_tasks":            float64(s.PendingTasks),
		"in_progress_tasks":        float64(s.InProgressTasks),
		"avg_process_time_seconds": s.AvgProcessTimeMinutes * 60,
	}
}
