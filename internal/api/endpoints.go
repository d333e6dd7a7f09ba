package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"reviewdesk/internal/types"
)

// MessageResponse is the acknowledgement body most mutations return.
type MessageResponse struct {
	Message string `json:"message"`
}

// Verification code purposes accepted by SendCode.
const (
	PurposeLogin    = "login"
	PurposeRegister = "register"
)

// Login authenticates with username and password.
func (c *Client) Login(ctx context.Context, username, password string) (*types.LoginResponse, error) {
	var out types.LoginResponse
	body := map[string]string{"username": username, "password": password}
	if err := c.Post(ctx, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginWithCode authenticates with an emailed verification code.
func (c *Client) LoginWithCode(ctx context.Context, email, code string) (*types.LoginResponse, error) {
	var out types.LoginResponse
	body := map[string]string{"email": email, "code": code}
	if err := c.Post(ctx, "/auth/login-with-code", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendCode asks the backend to email a verification code.
func (c *Client) SendCode(ctx context.Context, email, purpose string) (*types.SendCodeResponse, error) {
	var out types.SendCodeResponse
	body := map[string]string{"email": email, "purpose": purpose}
	if err := c.Post(ctx, "/auth/send-code", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile fetches the current user and their permission keys.
func (c *Client) Profile(ctx context.Context) (*types.ProfileResponse, error) {
	var out types.ProfileResponse
	if err := c.Get(ctx, "/auth/profile", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tags lists the active review tags.
func (c *Client) Tags(ctx context.Context) ([]types.Tag, error) {
	var out types.TagsResponse
	if err := c.Get(ctx, "/tags", &out); err != nil {
		return nil, err
	}
	return out.Tags, nil
}

// Queues lists public task queues, one page at a time.
func (c *Client) Queues(ctx context.Context, page, pageSize int) (*types.QueueListResponse, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	var out types.QueueListResponse
	if err := c.Get(ctx, "/queues?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VideoQueueTags lists tags scoped to a video pool.
func (c *Client) VideoQueueTags(ctx context.Context, pool types.Pool) ([]types.VideoQueueTag, error) {
	var out types.VideoQueueTagsResponse
	if err := c.Get(ctx, fmt.Sprintf("/video/%s/tags", pool), &out); err != nil {
		return nil, err
	}
	return out.Tags, nil
}

// VideoQueuePoolStats fetches the admin counters for one pool.
func (c *Client) VideoQueuePoolStats(ctx context.Context, pool types.Pool) (*types.VideoQueuePoolStats, error) {
	var out types.VideoQueuePoolStats
	if err := c.Get(ctx, fmt.Sprintf("/admin/video-queue/%s/stats", pool), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnreadNotifications lists up to limit unread notifications.
func (c *Client) UnreadNotifications(ctx context.Context, limit int) (*types.NotificationListResponse, error) {
	var out types.NotificationListResponse
	if err := c.Get(ctx, "/notifications/unread?limit="+strconv.Itoa(limit), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnreadCount returns the number of unread notifications.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out types.CountResponse
	if err := c.Get(ctx, "/notifications/unread-count", &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// MarkNotificationRead marks one notification read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	return c.Put(ctx, "/notifications/"+strconv.FormatInt(id, 10)+"/read", nil, nil)
}

// RecentNotifications pages through read and unread notifications.
func (c *Client) RecentNotifications(ctx context.Context, limit, offset int) (*types.NotificationListResponse, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	var out types.NotificationListResponse
	if err := c.Get(ctx, "/notifications/recent?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
