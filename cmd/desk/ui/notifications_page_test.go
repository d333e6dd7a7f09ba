package ui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewdesk/internal/types"
)

type fakeFeed struct {
	mu        sync.Mutex
	items     []types.Notification
	connected bool
	marked    []int64
	offsets   []int
}

func (f *fakeFeed) All() []types.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Notification(nil), f.items...)
}

func (f *fakeFeed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, it := range f.items {
		if !it.IsRead {
			n++
		}
	}
	return n
}

func (f *fakeFeed) Connected() bool { return f.connected }

func (f *fakeFeed) MarkAsRead(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].IsRead = true
		}
	}
	return nil
}

func (f *fakeFeed) FetchRecent(ctx context.Context, limit, offset int) (*types.NotificationListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, offset)
	return &types.NotificationListResponse{}, nil
}

func newFeed() *fakeFeed {
	now := time.Now()
	return &fakeFeed{
		connected: true,
		items: []types.Notification{
			{ID: 1, Title: "Queue paused", Content: "The **1m** pool is paused.", Type: types.NotificationWarning, CreatedAt: now},
			{ID: 2, Title: "Welcome", Content: "Hello", Type: types.NotificationInfo, CreatedAt: now, IsRead: true},
		},
	}
}

func TestNotificationsPage_RendersFeed(t *testing.T) {
	page := NewNotificationsPageModel(context.Background(), newFeed(), NewStyles(LightTheme()), "notty")
	page.SetSize(80, 30)

	view := page.View()
	assert.Contains(t, view, "Queue paused")
	assert.Contains(t, view, "Welcome")
	assert.Contains(t, view, "live")
	assert.Contains(t, view, "1m")
}

func TestNotificationsPage_MoveAndMarkRead(t *testing.T) {
	feed := newFeed()
	page := NewNotificationsPageModel(context.Background(), feed, NewStyles(LightTheme()), "notty")
	page.SetSize(80, 30)

	// already read: nothing to do
	page, _ = page.Update(tea.KeyMsg{Type: tea.KeyDown})
	sel, ok := page.Selected()
	require.True(t, ok)
	assert.Equal(t, int64(2), sel.ID)
	_, cmd := page.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
	assert.Nil(t, cmd)

	page, _ = page.Update(tea.KeyMsg{Type: tea.KeyUp})
	page, cmd = page.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
	require.NotNil(t, cmd)
	page, _ = page.Update(cmd())

	assert.Equal(t, []int64{1}, feed.marked)
	assert.Equal(t, 0, feed.UnreadCount())
}

func TestNotificationsPage_LoadMoreUsesOffset(t *testing.T) {
	feed := newFeed()
	page := NewNotificationsPageModel(context.Background(), feed, NewStyles(LightTheme()), "notty")

	_, cmd := page.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []int{2}, feed.offsets)
}

func TestNotificationsPage_NilFeed(t *testing.T) {
	page := NewNotificationsPageModel(context.Background(), nil, NewStyles(LightTheme()), "notty")
	assert.Contains(t, page.View(), "Notifications not available.")
}
