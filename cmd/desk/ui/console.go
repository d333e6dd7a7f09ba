package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"reviewdesk/internal/apierr"
	"reviewdesk/internal/config"
	"reviewdesk/internal/dashboard"
	"reviewdesk/internal/logging"
	"reviewdesk/internal/notify"
	"reviewdesk/internal/store"
	"reviewdesk/internal/trace"
	"reviewdesk/internal/types"
	"reviewdesk/internal/usage"
	"reviewdesk/internal/workflow"
)

// TaskService is the kind-agnostic workflow client of one queue.
type TaskService interface {
	store.TaskSource[types.AnyTask]
	ClaimTasks(ctx context.Context, count int) (*workflow.TasksResponse[types.AnyTask], error)
	ReturnTasks(ctx context.Context, taskIDs []int64) (*workflow.MessageCountResponse, error)
}

// StatsFunc loads the dashboard statistics of the queue.
type StatsFunc func(ctx context.Context) (map[string]float64, error)

// Deps is everything the console talks to. Stats, Notifications and Usage
// are optional.
type Deps struct {
	Kind          string
	Tasks         TaskService
	Stats         StatsFunc
	Dashboard     dashboard.Config
	ClaimCount    int
	Notifications NotificationFeed
	Usage         *usage.Tracker
	Recorder      *trace.Recorder
	Errors        apierr.Handlers
	Status        *StatusNotifier
	Theme         string
	// MarkdownStyle forces a glamour style ("notty" in tests).
	MarkdownStyle string
	User          string
}

type page int

const (
	pageTasks page = iota
	pageNotifications
	pageUsage
	pageCount
)

func (p page) String() string {
	switch p {
	case pageTasks:
		return "Tasks"
	case pageNotifications:
		return "Notifications"
	case pageUsage:
		return "Usage"
	}
	return "?"
}

type keyMap struct {
	NextPage key.Binding
	PrevPage key.Binding
	Quit     key.Binding
	Claim    key.Binding
	Refresh  key.Binding
	Return   key.Binding
	Detail   key.Binding
	CopyAlt  key.Binding
	Confirm  key.Binding
	Cancel   key.Binding
}

var defaultKeys = keyMap{
	NextPage: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next page")),
	PrevPage: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev page")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Claim:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "claim")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Return:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "return task")),
	Detail:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	CopyAlt:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy trace id")),
	Confirm:  key.NewBinding(key.WithKeys("enter")),
	Cancel:   key.NewBinding(key.WithKeys("esc")),
}

// Messages produced by commands.
type (
	tasksLoadedMsg struct{ err error }
	claimedMsg     struct {
		claimed    int
		err        error
		refreshErr error
	}
	returnedMsg struct {
		id  int64
		err error
	}
	statsMsg struct {
		values map[string]float64
		err    error
	}
	// ReloadMsg applies a reloaded config while the console runs.
	ReloadMsg struct{ Config *config.Config }
)

type taskItem struct{ task types.AnyTask }

func (i taskItem) Title() string { return fmt.Sprintf("#%d", i.task.ID) }
func (i taskItem) Description() string {
	if i.task.Status == "" {
		return "in progress"
	}
	return i.task.Status
}
func (i taskItem) FilterValue() string { return string(i.task.Raw) }

// Model is the console's root bubbletea model.
type Model struct {
	ctx    context.Context
	deps   Deps
	styles Styles
	keys   keyMap
	page   page
	width  int
	height int

	tasks     *store.TaskStore[types.AnyTask]
	list      list.Model
	detail    viewport.Model
	showing   bool
	spinner   spinner.Model
	input     textinput.Model
	prompting bool
	busy      bool
	stats     []dashboard.Row

	notifications NotificationsPageModel
	usagePage     UsagePageModel

	renderer *glamour.TermRenderer
	mdStyle  string

	copyKey key.Binding
	copyFn  func() trace.CopyResult
	status  *notify.Message
}

// NewModel builds the console. ctx bounds every backend call.
func NewModel(ctx context.Context, deps Deps) Model {
	if deps.Status == nil {
		deps.Status = NewStatusNotifier()
	}
	if deps.ClaimCount < config.MinClaimCount || deps.ClaimCount > config.MaxClaimCount {
		deps.ClaimCount = config.MinClaimCount
	}
	if deps.Dashboard.Title == "" {
		deps.Dashboard = dashboard.ForKind(deps.Kind)
	}
	if deps.Recorder == nil {
		deps.Recorder = trace.NewRecorder()
	}
	if deps.Errors.Load == nil {
		deps.Errors = apierr.NewHandlers(deps.Status, deps.Recorder)
	}

	styles := NewStyles(ThemeByName(deps.Theme))
	mdStyle := markdownStyle(styles.Theme, deps.MarkdownStyle)

	l := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	l.Title = deps.Dashboard.Title
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(deps.Dashboard.ShowSearch)
	l.Styles.Title = styles.Title

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	ti := textinput.New()
	ti.Prompt = "Claim how many? "
	ti.CharLimit = 2
	ti.Width = 4

	m := Model{
		ctx:           ctx,
		deps:          deps,
		styles:        styles,
		keys:          defaultKeys,
		tasks:         store.NewTaskStore[types.AnyTask](deps.Tasks, nil),
		list:          l,
		detail:        viewport.New(80, 20),
		spinner:       sp,
		input:         ti,
		notifications: NewNotificationsPageModel(ctx, deps.Notifications, styles, mdStyle),
		usagePage:     NewUsagePageModel(deps.Usage, styles),
		renderer:      newMarkdownRenderer(mdStyle, 80),
		mdStyle:       mdStyle,
	}

	// The copy binding is process-wide; a second console in the same
	// process falls back to the alternate key only.
	deps.Recorder.InstallHotkey(func(b key.Binding, fn func() trace.CopyResult) {
		m.copyKey = b
		m.copyFn = fn
	})
	if m.copyFn == nil {
		m.copyFn = deps.Recorder.Copy
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.deps.Status.wait(), m.loadTasks()}
	if m.deps.Stats != nil {
		cmds = append(cmds, m.loadStats())
	}
	return tea.Batch(cmds...)
}

func (m Model) loadTasks() tea.Cmd {
	tasks, ctx := m.tasks, m.ctx
	return func() tea.Msg {
		_, err := tasks.FetchMyTasks(ctx)
		return tasksLoadedMsg{err: err}
	}
}

func (m Model) loadStats() tea.Cmd {
	stats, ctx := m.deps.Stats, m.ctx
	return func() tea.Msg {
		values, err := stats(ctx)
		return statsMsg{values: values, err: err}
	}
}

func (m Model) claim(count int) tea.Cmd {
	svc, tasks, ctx := m.deps.Tasks, m.tasks, m.ctx
	return func() tea.Msg {
		res, err := svc.ClaimTasks(ctx, count)
		if err != nil {
			return claimedMsg{err: err}
		}
		if _, err := tasks.FetchMyTasks(ctx); err != nil {
			return claimedMsg{claimed: res.Count, refreshErr: err}
		}
		return claimedMsg{claimed: res.Count}
	}
}

func (m Model) returnTask(id int64) tea.Cmd {
	svc, ctx := m.deps.Tasks, m.ctx
	return func() tea.Msg {
		_, err := svc.ReturnTasks(ctx, []int64{id})
		return returnedMsg{id: id, err: err}
	}
}

func (m *Model) syncList() tea.Cmd {
	tasks := m.tasks.Tasks()
	items := make([]list.Item, len(tasks))
	for i, t := range tasks {
		items[i] = taskItem{task: t}
	}
	return m.list.SetItems(items)
}

func (m *Model) setStatus(level notify.Level, text string) {
	m.status = &notify.Message{Level: level, Text: text}
}

func (m *Model) applyTheme(name string) {
	m.styles = NewStyles(ThemeByName(name))
	m.mdStyle = markdownStyle(m.styles.Theme, m.deps.MarkdownStyle)
	m.renderer = newMarkdownRenderer(m.mdStyle, m.width-4)
	m.spinner.Style = m.styles.Spinner
	m.list.Styles.Title = m.styles.Title
	m.notifications.SetStyles(m.styles, m.mdStyle)
	m.usagePage.SetStyles(m.styles)
}

func (m *Model) resize() {
	body := m.height - 8
	if body < 3 {
		body = 3
	}
	m.list.SetSize(m.width, body)
	m.detail.Width = m.width
	m.detail.Height = body
	m.renderer = newMarkdownRenderer(m.mdStyle, m.width-4)
	m.notifications.SetSize(m.width, body)
	m.usagePage.SetSize(m.width, body)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case statusMsg:
		m.setStatus(msg.Level, msg.Text)
		return m, m.deps.Status.wait()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ReloadMsg:
		if msg.Config != nil {
			m.applyTheme(msg.Config.UI.Theme)
			logging.SetLevel(msg.Config.Logging.Level)
			logging.UI("console: applied reloaded config (theme=%s)", msg.Config.UI.Theme)
		}
		return m, nil

	case tasksLoadedMsg:
		m.busy = false
		if msg.err != nil {
			m.deps.Errors.Load.Handle(msg.err)
			return m, nil
		}
		return m, m.syncList()

	case claimedMsg:
		m.busy = false
		if msg.err != nil {
			m.deps.Errors.Claim.Handle(msg.err)
			return m, m.syncList()
		}
		m.setStatus(notify.LevelSuccess, fmt.Sprintf("Claimed %d tasks", msg.claimed))
		if msg.refreshErr != nil {
			m.deps.Errors.Load.Handle(msg.refreshErr)
		}
		cmds := []tea.Cmd{m.syncList()}
		if m.deps.Stats != nil {
			cmds = append(cmds, m.loadStats())
		}
		return m, tea.Batch(cmds...)

	case returnedMsg:
		m.busy = false
		if msg.err != nil {
			m.deps.Errors.Return.Handle(msg.err)
			return m, nil
		}
		m.tasks.RemoveTask(msg.id)
		m.setStatus(notify.LevelSuccess, fmt.Sprintf("Returned task #%d", msg.id))
		return m, m.syncList()

	case statsMsg:
		if msg.err != nil {
			m.deps.Errors.Load.Handle(msg.err, apierr.Silent())
			return m, nil
		}
		m.stats = m.deps.Dashboard.Render(msg.values)
		return m, nil

	case notificationsChangedMsg:
		var cmd tea.Cmd
		m.notifications, cmd = m.notifications.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updatePage(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompting {
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.prompting = false
			m.input.Blur()
			return m, nil
		case key.Matches(msg, m.keys.Confirm):
			m.prompting = false
			m.input.Blur()
			n, err := strconv.Atoi(strings.TrimSpace(m.input.Value()))
			if err != nil || n < config.MinClaimCount || n > config.MaxClaimCount {
				m.setStatus(notify.LevelWarning, fmt.Sprintf("Claim count must be between %d and %d", config.MinClaimCount, config.MaxClaimCount))
				return m, nil
			}
			m.busy = true
			return m, m.claim(n)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	filtering := m.page == pageTasks && m.list.FilterState() == list.Filtering
	if filtering {
		return m.updatePage(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.copyKey), key.Matches(msg, m.keys.CopyAlt):
		res := m.copyFn()
		m.setStatus(copyLevel(res.Level), res.Message)
		return m, nil
	case key.Matches(msg, m.keys.NextPage):
		m.page = (m.page + 1) % pageCount
		m.onEnterPage()
		return m, nil
	case key.Matches(msg, m.keys.PrevPage):
		m.page = (m.page + pageCount - 1) % pageCount
		m.onEnterPage()
		return m, nil
	}

	if m.page == pageTasks {
		switch {
		case key.Matches(msg, m.keys.Claim):
			m.prompting = true
			m.input.SetValue(strconv.Itoa(m.deps.ClaimCount))
			m.input.CursorEnd()
			return m, m.input.Focus()
		case key.Matches(msg, m.keys.Refresh):
			m.busy = true
			cmds := []tea.Cmd{m.loadTasks()}
			if m.deps.Stats != nil {
				cmds = append(cmds, m.loadStats())
			}
			return m, tea.Batch(cmds...)
		case key.Matches(msg, m.keys.Return):
			if it, ok := m.list.SelectedItem().(taskItem); ok {
				m.busy = true
				return m, m.returnTask(it.task.ID)
			}
			return m, nil
		case key.Matches(msg, m.keys.Detail):
			if m.showing {
				m.showing = false
				return m, nil
			}
			if it, ok := m.list.SelectedItem().(taskItem); ok {
				m.detail.SetContent(renderMarkdown(m.renderer, taskMarkdown(it.task)))
				m.detail.GotoTop()
				m.showing = true
			}
			return m, nil
		}
	}

	return m.updatePage(msg)
}

func (m *Model) onEnterPage() {
	if m.page == pageUsage {
		m.usagePage.UpdateContent()
	}
}

func (m Model) updatePage(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.page {
	case pageTasks:
		if m.showing {
			m.detail, cmd = m.detail.Update(msg)
		} else {
			m.list, cmd = m.list.Update(msg)
		}
	case pageNotifications:
		m.notifications, cmd = m.notifications.Update(msg)
	case pageUsage:
		m.usagePage, cmd = m.usagePage.Update(msg)
	}
	return m, cmd
}

func copyLevel(l trace.CopyLevel) notify.Level {
	switch l {
	case trace.CopySuccess:
		return notify.LevelSuccess
	case trace.CopyWarning:
		return notify.LevelWarning
	default:
		return notify.LevelError
	}
}

func taskMarkdown(t types.AnyTask) string {
	var pretty any
	body := string(t.Raw)
	if json.Unmarshal(t.Raw, &pretty) == nil {
		if b, err := json.MarshalIndent(pretty, "", "  "); err == nil {
			body = string(b)
		}
	}
	return fmt.Sprintf("### Task #%d\n\n```json\n%s\n```\n", t.ID, body)
}

func (m Model) View() string {
	var sb strings.Builder

	header := m.styles.Header.Render("reviewdesk")
	if m.deps.User != "" {
		header += " " + m.styles.Muted.Render(m.deps.User)
	}
	sb.WriteString(header)
	sb.WriteString("\n")

	tabs := make([]string, 0, pageCount)
	for p := page(0); p < pageCount; p++ {
		label := p.String()
		if p == pageNotifications && m.deps.Notifications != nil {
			if n := m.deps.Notifications.UnreadCount(); n > 0 {
				label += fmt.Sprintf(" (%d)", n)
			}
		}
		if p == m.page {
			tabs = append(tabs, m.styles.TabOn.Render(label))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(label))
		}
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	sb.WriteString("\n\n")

	switch m.page {
	case pageTasks:
		sb.WriteString(m.tasksView())
	case pageNotifications:
		sb.WriteString(m.notifications.View())
	case pageUsage:
		sb.WriteString(m.usagePage.View())
	}

	sb.WriteString("\n")
	sb.WriteString(m.statusLine())
	sb.WriteString("\n")
	sb.WriteString(m.styles.Footer.Render(m.helpLine()))
	return sb.String()
}

func (m Model) tasksView() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(m.deps.Dashboard.Title))
	sb.WriteString("\n")

	if len(m.stats) > 0 {
		cells := make([]string, 0, len(m.stats))
		for _, row := range m.stats {
			cells = append(cells, m.styles.Card.Render(
				m.styles.Muted.Render(row.Label)+"\n"+m.styles.Bold.Render(row.Value)))
		}
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		sb.WriteString("\n")
	}

	if m.prompting {
		sb.WriteString(m.input.View())
		sb.WriteString("\n")
	}
	if m.busy || m.tasks.Loading() {
		sb.WriteString(m.spinner.View() + " Loading...\n")
	}

	switch {
	case m.showing:
		sb.WriteString(m.detail.View())
	case len(m.list.Items()) == 0:
		sb.WriteString(m.styles.Subtitle.Render(m.deps.Dashboard.EmptyText))
		sb.WriteString("\n")
	default:
		sb.WriteString(m.list.View())
	}
	return sb.String()
}

func (m Model) statusLine() string {
	if m.status == nil {
		return ""
	}
	return m.styles.ForLevel(m.status.Level).Render(m.status.Text)
}

func (m Model) helpLine() string {
	parts := []string{"tab: pages", trace.HotkeyLabel + "/y: copy trace id", "q: quit"}
	switch m.page {
	case pageTasks:
		claim := "c: " + strings.ToLower(m.deps.Dashboard.ClaimButtonText)
		parts = append([]string{claim, "r: refresh", "x: return", "enter: details"}, parts...)
	case pageNotifications:
		parts = append([]string{"m: mark read", "l: load more"}, parts...)
	}
	return strings.Join(parts, " · ")
}

// Run starts the console and blocks until the reviewer quits. subscribe, if
// set, is called with a func that redraws the notification page and returns
// an unsubscribe func. reload, if set, receives a func that pushes reloaded
// config into the running console.
func Run(ctx context.Context, deps Deps, subscribe func(changed func()) func(), reload func(apply func(*config.Config))) error {
	m := NewModel(ctx, deps)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if subscribe != nil {
		unsubscribe := subscribe(func() { p.Send(notificationsChangedMsg{}) })
		if unsubscribe != nil {
			defer unsubscribe()
		}
	}
	if reload != nil {
		reload(func(cfg *config.Config) { p.Send(ReloadMsg{Config: cfg}) })
	}

	logging.UI("console started for %s", deps.Kind)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
