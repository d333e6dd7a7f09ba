package types

import (
	"encoding/json"
	"time"
)

// Notification kinds.
const (
	NotificationInfo         = "info"
	NotificationWarning      = "warning"
	NotificationSuccess      = "success"
	NotificationError        = "error"
	NotificationSystem       = "system"
	NotificationAnnouncement = "announcement"
	NotificationTaskUpdate   = "task_update"
)

// Notification is a feed entry as seen by the current user.
type Notification struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Type      string     `json:"type"`
	CreatedBy int64      `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	IsGlobal  bool       `json:"is_global"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// NotificationListResponse is returned by the unread and recent endpoints.
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	Count         int            `json:"count"`
	Total         int            `json:"total,omitempty"`
	Limit         int            `json:"limit,omitempty"`
	Offset        int            `json:"offset,omitempty"`
}

// CountResponse is returned by GET /notifications/unread-count.
type CountResponse struct {
	Count int `json:"count"`
}

// Push event types.
const (
	EventNotification = "notification"
	EventHeartbeat    = "heartbeat"
	EventConnection   = "connection"
)

// StreamEvent is one message on the notification stream.
// Data is decoded lazily since its shape depends on Type.
type StreamEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Notification decodes Data when Type is "notification".
func (e StreamEvent) Notification() (Notification, bool) {
	var n Notification
	if e.Type != EventNotification || len(e.Data) == 0 {
		return n, false
	}
	if err := json.Unmarshal(e.Data, &n); err != nil {
		return n, false
	}
	return n, true
}
