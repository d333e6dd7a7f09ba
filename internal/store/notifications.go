package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"reviewdesk/internal/apierr"
	"reviewdesk/internal/logging"
	"reviewdesk/internal/notify"
	"reviewdesk/internal/stream"
	"reviewdesk/internal/types"
)

// Feed sizes.
const (
	DefaultUnreadLimit = 20
	DefaultRecentLimit = 20
	recentShown        = 10
)

// NotificationAPI is the part of the backend the notification store uses.
type NotificationAPI interface {
	UnreadNotifications(ctx context.Context, limit int) (*types.NotificationListResponse, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	RecentNotifications(ctx context.Context, limit, offset int) (*types.NotificationListResponse, error)
}

// PushChannel delivers notifications as they happen. *stream.Client
// satisfies it.
type PushChannel interface {
	OnMessage(h stream.Handler) (unsubscribe func())
	Connect(ctx context.Context) error
	Disconnect()
	Connected() bool
}

// NotificationStore holds the notification feed and the unread counter.
// It is fed by full refetches, paged refetches and single pushed updates.
type NotificationStore struct {
	mu      sync.RWMutex
	items   []types.Notification
	unread  int
	loading bool

	api      NotificationAPI
	push     PushChannel
	errs     *apierr.Handler
	notifier notify.Notifier
	now      func() time.Time

	unsubscribe func()
}

// NewNotificationStore creates the store. push and errs may be nil.
func NewNotificationStore(api NotificationAPI, push PushChannel, errs *apierr.Handler, n notify.Notifier) *NotificationStore {
	if n == nil {
		n = notify.Discard
	}
	if errs == nil {
		errs = apierr.NewHandler(n, nil, apierr.DefaultOptions())
	}
	return &NotificationStore{api: api, push: push, errs: errs, notifier: n, now: time.Now}
}

// FetchUnread replaces the feed with up to limit unread notifications.
func (s *NotificationStore) FetchUnread(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = DefaultUnreadLimit
	}
	s.setLoading(true)
	defer s.setLoading(false)

	res, err := s.api.UnreadNotifications(ctx, limit)
	if err != nil {
		s.errs.Handle(err, apierr.WithMessage("Failed to load unread notifications"))
		return err
	}
	s.mu.Lock()
	s.items = append([]types.Notification(nil), res.Notifications...)
	s.mu.Unlock()
	return nil
}

// FetchUnreadCount refreshes the unread counter. Failures are only logged.
func (s *NotificationStore) FetchUnreadCount(ctx context.Context) error {
	n, err := s.api.UnreadCount(ctx)
	if err != nil {
		logging.StoreWarn("Failed to fetch unread count: %v", err)
		return err
	}
	s.mu.Lock()
	s.unread = n
	s.mu.Unlock()
	return nil
}

// MarkAsRead marks one notification read on the server, then locally.
func (s *NotificationStore) MarkAsRead(ctx context.Context, id int64) error {
	if err := s.api.MarkNotificationRead(ctx, id); err != nil {
		s.errs.Handle(err, apierr.WithMessage("Failed to mark notification as read"))
		return err
	}

	now := s.now()
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].IsRead = true
			s.items[i].ReadAt = &now
			break
		}
	}
	s.unread = max(0, s.unread-1)
	s.mu.Unlock()

	notify.Success(s.notifier, "Marked as read")
	return nil
}

// FetchRecent loads a page of read and unread notifications. Offset 0
// replaces the feed; later pages append.
func (s *NotificationStore) FetchRecent(ctx context.Context, limit, offset int) (*types.NotificationListResponse, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	s.setLoading(true)
	defer s.setLoading(false)

	res, err := s.api.RecentNotifications(ctx, limit, offset)
	if err != nil {
		s.errs.Handle(err, apierr.WithMessage("Failed to load notification history"))
		return nil, err
	}

	s.mu.Lock()
	if offset == 0 {
		s.items = append([]types.Notification(nil), res.Notifications...)
	} else {
		s.items = append(s.items, res.Notifications...)
	}
	s.mu.Unlock()
	return res, nil
}

// Add upserts a pushed notification: an existing id is replaced in place,
// a new one is prepended. The unread counter only grows for new unread
// items. It reports whether the notification was new.
func (s *NotificationStore) Add(n types.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == n.ID {
			s.items[i] = n
			return false
		}
	}
	s.items = append([]types.Notification{n}, s.items...)
	if !n.IsRead {
		s.unread++
	}
	return true
}

// Init subscribes to the push channel, connects it, and loads the unread
// feed and counter concurrently. A missing token only skips the push
// channel.
func (s *NotificationStore) Init(ctx context.Context) error {
	if s.push != nil {
		s.mu.Lock()
		if s.unsubscribe == nil {
			s.unsubscribe = s.push.OnMessage(s.handleEvent)
		}
		s.mu.Unlock()

		if err := s.push.Connect(ctx); err != nil {
			if !errors.Is(err, stream.ErrNoToken) {
				return err
			}
			logging.StoreWarn("Notification stream not started: %v", err)
		}
	}

	// Each fetch runs to completion; a failed count must not cancel the list.
	var (
		g                 errgroup.Group
		listErr, countErr error
	)
	g.Go(func() error {
		listErr = s.FetchUnread(ctx, DefaultUnreadLimit)
		return nil
	})
	g.Go(func() error {
		countErr = s.FetchUnreadCount(ctx)
		return nil
	})
	_ = g.Wait()
	return errors.Join(listErr, countErr)
}

func (s *NotificationStore) handleEvent(ev types.StreamEvent) {
	if n, ok := ev.Notification(); ok {
		s.Add(n)
	}
}

// Close unsubscribes and disconnects the push channel.
func (s *NotificationStore) Close() {
	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if s.push != nil {
		s.push.Disconnect()
	}
}

// All returns the whole feed, newest first.
func (s *NotificationStore) All() []types.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Notification(nil), s.items...)
}

// Unread returns the unread entries of the feed.
func (s *NotificationStore) Unread() []types.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Notification
	for _, n := range s.items {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	return out
}

// Recent returns the first entries of the feed.
func (s *NotificationStore) Recent() []types.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := min(len(s.items), recentShown)
	return append([]types.Notification(nil), s.items[:n]...)
}

// UnreadCount returns the unread counter.
func (s *NotificationStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// Loading reports whether a feed fetch is in flight.
func (s *NotificationStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Connected reports whether the push channel is open.
func (s *NotificationStore) Connected() bool {
	return s.push != nil && s.push.Connected()
}

func (s *NotificationStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}
