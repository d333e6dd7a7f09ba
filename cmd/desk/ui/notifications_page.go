package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"reviewdesk/internal/format"
	"reviewdesk/internal/store"
	"reviewdesk/internal/types"
)

// NotificationFeed is what the page needs from the notification store.
type NotificationFeed interface {
	All() []types.Notification
	UnreadCount() int
	Connected() bool
	MarkAsRead(ctx context.Context, id int64) error
	FetchRecent(ctx context.Context, limit, offset int) (*types.NotificationListResponse, error)
}

var _ NotificationFeed = (*store.NotificationStore)(nil)

type notificationsChangedMsg struct{}

type notificationKeys struct {
	Up       key.Binding
	Down     key.Binding
	MarkRead key.Binding
	More     key.Binding
}

var defaultNotificationKeys = notificationKeys{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	MarkRead: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mark read")),
	More:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "load more")),
}

// NotificationsPageModel lists the feed with the selected entry rendered
// as markdown underneath.
type NotificationsPageModel struct {
	feed     NotificationFeed
	styles   Styles
	keys     notificationKeys
	renderer *glamour.TermRenderer
	style    string
	viewport viewport.Model
	cursor   int
	width    int
	height   int
	ctx      context.Context
}

func NewNotificationsPageModel(ctx context.Context, feed NotificationFeed, styles Styles, mdStyle string) NotificationsPageModel {
	return NotificationsPageModel{
		feed:     feed,
		styles:   styles,
		keys:     defaultNotificationKeys,
		style:    mdStyle,
		renderer: newMarkdownRenderer(mdStyle, 80),
		viewport: viewport.New(80, 10),
		ctx:      ctx,
	}
}

func (m *NotificationsPageModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.viewport.Width = w
	m.viewport.Height = h / 2
	m.renderer = newMarkdownRenderer(m.style, w-4)
	m.refreshDetail()
}

func (m *NotificationsPageModel) SetStyles(s Styles, mdStyle string) {
	m.styles = s
	m.style = mdStyle
	m.renderer = newMarkdownRenderer(mdStyle, m.width-4)
	m.refreshDetail()
}

func (m NotificationsPageModel) items() []types.Notification {
	if m.feed == nil {
		return nil
	}
	return m.feed.All()
}

func (m *NotificationsPageModel) clampCursor() {
	n := len(m.items())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *NotificationsPageModel) refreshDetail() {
	items := m.items()
	if len(items) == 0 {
		m.viewport.SetContent(m.styles.Muted.Render("No notifications."))
		return
	}
	m.clampCursor()
	m.viewport.SetContent(renderMarkdown(m.renderer, notificationMarkdown(items[m.cursor])))
	m.viewport.GotoTop()
}

func notificationMarkdown(n types.Notification) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n\n", n.Title)
	sb.WriteString(n.Content)
	fmt.Fprintf(&sb, "\n\n_%s · %s_\n", n.Type, format.Time(n.CreatedAt))
	return sb.String()
}

// Selected returns the notification under the cursor.
func (m NotificationsPageModel) Selected() (types.Notification, bool) {
	items := m.items()
	if m.cursor < 0 || m.cursor >= len(items) {
		return types.Notification{}, false
	}
	return items[m.cursor], true
}

func (m NotificationsPageModel) Update(msg tea.Msg) (NotificationsPageModel, tea.Cmd) {
	switch msg := msg.(type) {
	case notificationsChangedMsg:
		m.refreshDetail()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.refreshDetail()
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.items())-1 {
				m.cursor++
				m.refreshDetail()
			}
			return m, nil
		case key.Matches(msg, m.keys.MarkRead):
			n, ok := m.Selected()
			if !ok || n.IsRead {
				return m, nil
			}
			return m, m.markRead(n.ID)
		case key.Matches(msg, m.keys.More):
			return m, m.loadMore(len(m.items()))
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// The store displays its own errors, so these commands only signal a redraw.
func (m NotificationsPageModel) markRead(id int64) tea.Cmd {
	feed, ctx := m.feed, m.ctx
	return func() tea.Msg {
		_ = feed.MarkAsRead(ctx, id)
		return notificationsChangedMsg{}
	}
}

func (m NotificationsPageModel) loadMore(offset int) tea.Cmd {
	feed, ctx := m.feed, m.ctx
	return func() tea.Msg {
		_, _ = feed.FetchRecent(ctx, store.DefaultRecentLimit, offset)
		return notificationsChangedMsg{}
	}
}

func (m NotificationsPageModel) View() string {
	if m.feed == nil {
		return m.styles.Muted.Render("Notifications not available.")
	}

	var sb strings.Builder
	state := m.styles.Error.Render("offline")
	if m.feed.Connected() {
		state = m.styles.Success.Render("live")
	}
	fmt.Fprintf(&sb, "%s  %s unread  %s\n\n",
		m.styles.Title.Render("Notifications"),
		m.styles.Badge.Render(fmt.Sprint(m.feed.UnreadCount())),
		state)

	items := m.items()
	for i, n := range items {
		marker := "  "
		if !n.IsRead {
			marker = "● "
		}
		line := fmt.Sprintf("%s%s  %s", marker, n.Title, format.Ago(n.CreatedAt))
		if i == m.cursor {
			sb.WriteString(m.styles.Selected.Render("> " + line))
		} else {
			sb.WriteString(m.styles.Body.Render("  " + line))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.styles.RenderDivider(m.width))
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	return sb.String()
}
