package types

import "time"

// Task statuses shared by every queue.
const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
)

// Comment is the content under review.
type Comment struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// Tag is a violation label from the global vocabulary.
type Tag struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// TagsResponse wraps GET /tags.
type TagsResponse struct {
	Tags []Tag `json:"tags"`
}

// Task is a first-review comment task.
type Task struct {
	ID          int64      `json:"id"`
	CommentID   int64      `json:"comment_id"`
	ReviewerID  *int64     `json:"reviewer_id"`
	Status      string     `json:"status"`
	ClaimedAt   *time.Time `json:"claimed_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	Comment     *Comment   `json:"comment,omitempty"`
}

func (t Task) TaskID() int64 { return t.ID }

// ReviewResult is the first-review decision.
type ReviewResult struct {
	TaskID     int64    `json:"task_id"`
	IsApproved bool     `json:"is_approved"`
	Tags       []string `json:"tags"`
	Reason     string   `json:"reason"`
}

// ReviewerRef is the reviewer summary joined onto review results.
type ReviewerRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// FirstReviewResult is the decision a second reviewer or QC inspector checks.
type FirstReviewResult struct {
	ID         int64        `json:"id"`
	TaskID     int64        `json:"task_id"`
	ReviewerID int64        `json:"reviewer_id"`
	IsApproved bool         `json:"is_approved"`
	Tags       []string     `json:"tags"`
	Reason     string       `json:"reason"`
	CreatedAt  time.Time    `json:"created_at"`
	Reviewer   *ReviewerRef `json:"reviewer,omitempty"`
}

// SecondReviewTask re-examines a first-review decision.
type SecondReviewTask struct {
	ID                  int64              `json:"id"`
	FirstReviewResultID int64              `json:"first_review_result_id"`
	CommentID           int64              `json:"comment_id"`
	ReviewerID          *int64             `json:"reviewer_id"`
	Status              string             `json:"status"`
	ClaimedAt           *time.Time         `json:"claimed_at"`
	CompletedAt         *time.Time         `json:"completed_at"`
	CreatedAt           time.Time          `json:"created_at"`
	Comment             *Comment           `json:"comment,omitempty"`
	FirstReviewResult   *FirstReviewResult `json:"first_review_result,omitempty"`
}

func (t SecondReviewTask) TaskID() int64 { return t.ID }

// SubmitSecondReviewRequest is the second-review decision.
type SubmitSecondReviewRequest struct {
	TaskID     int64    `json:"task_id"`
	IsApproved bool     `json:"is_approved"`
	Tags       []string `json:"tags"`
	Reason     string   `json:"reason"`
}

// QualityCheckTask samples a first-review decision for inspection.
type QualityCheckTask struct {
	ID                  int64              `json:"id"`
	FirstReviewResultID int64              `json:"first_review_result_id"`
	CommentID           int64              `json:"comment_id"`
	ReviewerID          *int64             `json:"reviewer_id"`
	Status              string             `json:"status"`
	ClaimedAt           *time.Time         `json:"claimed_at"`
	CompletedAt         *time.Time         `json:"completed_at"`
	CreatedAt           time.Time          `json:"created_at"`
	Comment             *Comment           `json:"comment,omitempty"`
	FirstReviewResult   *FirstReviewResult `json:"first_review_result,omitempty"`
}

func (t QualityCheckTask) TaskID() int64 { return t.ID }

// SubmitQCRequest is the quality-check verdict.
type SubmitQCRequest struct {
	TaskID    int64  `json:"task_id"`
	IsPassed  bool   `json:"is_passed"`
	ErrorType string `json:"error_type,omitempty"`
	QCComment string `json:"qc_comment,omitempty"`
}

// QCErrorTypeStat counts failed checks per error type.
type QCErrorTypeStat struct {
	ErrorType string `json:"error_type"`
	Count     int64  `json:"count"`
}

// QCStats is returned by GET /tasks/quality-check/stats.
type QCStats struct {
	TodayCompleted  int64             `json:"today_completed"`
	TotalCompleted  int64             `json:"total_completed"`
	PassRate        float64           `json:"pass_rate"`
	TotalTasks      int64             `json:"total_tasks"`
	PendingTasks    int64             `json:"pending_tasks"`
	InProgressTasks int64             `json:"in_progress_tasks"`
	ErrorTypeStats  []QCErrorTypeStat `json:"error_type_stats"`
}

// Values flattens the counters for dashboard rendering.
func (s QCStats) Values() map[string]float64 {
	return map[string]float64{
		"today_completed":   float64(s.TodayCompleted),
		"total_completed":   float64(s.TotalCompleted),
		"pass_rate":         s.PassRate,
		"total_tasks":       float64(s.TotalTasks),
		"pending_tasks":     float64(s.PendingTasks),
		"in_progress_tasks": float64(s.InProgressTasks),
	}
}

// AIReviewResult is the model's decision compared against a human one.
type AIReviewResult struct {
	ID         int64     `json:"id"`
	TaskID     int64     `json:"task_id"`
	IsApproved bool      `json:"is_approved"`
	Tags       []string  `json:"tags"`
	Reason     string    `json:"reason"`
	Confidence float64   `json:"confidence"`
	Model      *string   `json:"model,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AIHumanDiffTask arbitrates between a human and an AI decision.
type AIHumanDiffTask struct {
	ID                int64              `json:"id"`
	ReviewTaskID      int64              `json:"review_task_id"`
	CommentID         int64              `json:"comment_id"`
	ReviewResultID    int64              `json:"review_result_id"`
	AIReviewResultID  int64              `json:"ai_review_result_id"`
	ReviewerID        *int64             `json:"reviewer_id"`
	Status            string             `json:"status"`
	ClaimedAt         *time.Time         `json:"claimed_at"`
	CompletedAt       *time.Time         `json:"completed_at"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	Comment           *Comment           `json:"comment,omitempty"`
	HumanReviewResult *FirstReviewResult `json:"human_review_result,omitempty"`
	AIReviewResult    *AIReviewResult    `json:"ai_review_result,omitempty"`
}

func (t AIHumanDiffTask) TaskID() int64 { return t.ID }

// SubmitAIHumanDiffRequest is the arbitration decision.
type SubmitAIHumanDiffRequest struct {
	TaskID     int64    `json:"task_id"`
	IsApproved bool     `json:"is_approved"`
	Tags       []string `json:"tags"`
	Reason     string   `json:"reason"`
}

// TaskQueue describes a public review queue.
type TaskQueue struct {
	ID             int64     `json:"id"`
	QueueName      string    `json:"queue_name"`
	Description    string    `json:"description"`
	Priority       int       `json:"priority"`
	TotalTasks     int64     `json:"total_tasks"`
	CompletedTasks int64     `json:"completed_tasks"`
	PendingTasks   int64     `json:"pending_tasks"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// QueueListResponse is a page of public queues.
type QueueListResponse struct {
	Data       []TaskQueue `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}
