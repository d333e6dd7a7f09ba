package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reviewdesk/cmd/desk/ui"
	"reviewdesk/internal/format"
	"reviewdesk/internal/store"
	"reviewdesk/internal/stream"
	"reviewdesk/internal/types"
)

var (
	notificationsAll    bool
	notificationsLimit  int
	notificationsOffset int
	watchStyle          string
)

// notificationsCmd groups the notification feed commands
var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	Short:   "Read and follow the notification feed",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List unread notifications (or the history with --all)",
	Args:  cobra.NoArgs,
	RunE:  runNotificationsList,
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <id>...",
	Short: "Mark notifications as read",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNotificationsRead,
}

var notificationsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print notifications as they are pushed",
	Long: `Connects to the notification stream and prints every pushed notification
until interrupted. The connection is retried after stream.reconnect_delay.`,
	Args: cobra.NoArgs,
	RunE: runNotificationsWatch,
}

func init() {
	notificationsListCmd.Flags().BoolVarP(&notificationsAll, "all", "a", false, "Include read notifications")
	notificationsListCmd.Flags().IntVar(&notificationsLimit, "limit", store.DefaultRecentLimit, "Page size")
	notificationsListCmd.Flags().IntVar(&notificationsOffset, "offset", 0, "Page offset (with --all)")
	notificationsWatchCmd.Flags().StringVar(&watchStyle, "style", "", "Glamour style (default: follows the terminal)")

	notificationsCmd.AddCommand(notificationsListCmd, notificationsReadCmd, notificationsWatchCmd)
	rootCmd.AddCommand(notificationsCmd)
}

func (a *deskApp) notificationStore(push store.PushChannel) *store.NotificationStore {
	return store.NewNotificationStore(a.client, push, a.errs.Load, a.notifier)
}

func runNotificationsList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	feed := a.notificationStore(nil)
	title := "Unread notifications"
	if notificationsAll {
		res, err := feed.FetchRecent(ctx, notificationsLimit, notificationsOffset)
		if err != nil {
			return errReported
		}
		title = fmt.Sprintf("Notifications %d-%d of %d", notificationsOffset+1, notificationsOffset+len(res.Notifications), max(res.Total, res.Count))
	} else {
		if err := feed.FetchUnread(ctx, notificationsLimit); err != nil {
			return errReported
		}
	}

	items := feed.All()
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No notifications.")
		return nil
	}
	fmt.Fprintln(a.out, notificationTable(title, items).View(ui.DefaultStyles()))
	return nil
}

func notificationTable(title string, items []types.Notification) *ui.SimpleTable {
	table := ui.NewSimpleTable(title, "ID", "", "Title", "Type", "When")
	for _, n := range items {
		mark := ""
		if !n.IsRead {
			mark = "●"
		}
		table.AddRow(strconv.FormatInt(n.ID, 10), mark, n.Title, n.Type, format.Ago(n.CreatedAt))
	}
	return table
}

func runNotificationsRead(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args))
	for _, s := range args {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid notification id %q", s)
		}
		ids = append(ids, id)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	feed := a.notificationStore(nil)
	failed := 0
	for _, id := range ids {
		if err := feed.MarkAsRead(ctx, id); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d notifications not marked", errReported, failed, len(ids))
	}
	return nil
}

func runNotificationsWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.token() == "" {
		return fmt.Errorf("%w; run \"desk login\" first", stream.ErrNoToken)
	}

	ctx, cancel := interactiveContext(cmd)
	defer cancel()

	push := stream.New(a.cfg.API.BaseURL, a.tokens, stream.WithReconnectDelay(a.cfg.GetReconnectDelay()))
	feed := a.notificationStore(push)

	unsubscribe := push.OnMessage(func(ev types.StreamEvent) {
		n, ok := ev.Notification()
		if !ok {
			return
		}
		fmt.Fprintln(a.out, ui.RenderNotification(n, watchStyle, 80))
	})
	defer unsubscribe()

	if err := feed.Init(ctx); err != nil {
		logger.Warn("Notification feed not loaded", zap.Error(err))
	}
	defer feed.Close()

	fmt.Fprintf(a.errOut, "Watching notifications (%d unread). Press Ctrl+C to stop.\n", feed.UnreadCount())
	<-ctx.Done()
	return nil
}
