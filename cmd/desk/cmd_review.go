package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reviewdesk/cmd/desk/ui"
	"reviewdesk/internal/config"
	"reviewdesk/internal/dashboard"
	"reviewdesk/internal/notify"
	"reviewdesk/internal/store"
	"reviewdesk/internal/stream"
	"reviewdesk/internal/types"
)

var (
	reviewClaimCount int
	reviewTheme      string
)

// reviewCmd opens the interactive console
var reviewCmd = &cobra.Command{
	Use:   "review [kind]",
	Short: "Open the interactive review console",
	Long: `Opens the review console for one queue kind (default: video queue of
review.video_pool). The console lists your tasks, claims and returns them,
shows the queue dashboard, follows the notification feed and copies the last
trace id with ` + "`y`" + ` or Ctrl+T.

The workspace config is watched; theme and log level changes apply live.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().IntVarP(&reviewClaimCount, "count", "n", 0, "Default claim size (default: review.claim_count)")
	reviewCmd.Flags().StringVar(&reviewTheme, "theme", "", "Console theme: dark or light (default: ui.theme)")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	status := ui.NewStatusNotifier()
	a, err := buildApp(cmd, status)
	if err != nil {
		return err
	}
	defer a.Close()

	kindName := "video-" + a.cfg.Review.VideoPool
	if len(args) == 1 {
		kindName = args[0]
	}
	k, client, err := a.kindClient(kindName)
	if err != nil {
		return err
	}

	ctx, cancel := interactiveContext(cmd)
	defer cancel()

	var push *stream.Client
	var pushChannel store.PushChannel
	if a.cfg.Stream.Enabled {
		push = stream.New(a.cfg.API.BaseURL, a.tokens,
			stream.WithReconnectDelay(a.cfg.GetReconnectDelay()),
			stream.WithNotifier(status))
		pushChannel = push
	}
	feed := store.NewNotificationStore(a.client, pushChannel, a.errs.Load, status)
	if err := feed.Init(ctx); err != nil {
		logger.Warn("Notification feed not loaded", zap.Error(err))
	}
	defer feed.Close()

	var subscribe func(changed func()) func()
	if push != nil {
		subscribe = func(changed func()) func() {
			return push.OnMessage(func(types.StreamEvent) { changed() })
		}
	}

	var (
		applyMu sync.Mutex
		apply   func(*config.Config)
	)
	watcher, err := config.NewWatcher(a.cfgPath,
		func(cfg *config.Config) {
			applyMu.Lock()
			fn := apply
			applyMu.Unlock()
			if fn != nil {
				fn(cfg)
			}
		},
		func(err error) {
			notify.Warning(status, fmt.Sprintf("Config reload failed: %v", err))
		})
	if err != nil {
		logger.Warn("Config watcher disabled", zap.Error(err))
	} else {
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("Config watcher disabled", zap.Error(err))
		}
		defer watcher.Stop()
	}
	reload := func(fn func(*config.Config)) {
		applyMu.Lock()
		apply = fn
		applyMu.Unlock()
	}

	count := reviewClaimCount
	if count == 0 {
		count = a.cfg.Review.ClaimCount
	}
	theme := reviewTheme
	if theme == "" {
		theme = a.cfg.UI.Theme
	}
	username := ""
	if u := a.users.User(); u != nil {
		username = u.Username
	}

	deps := ui.Deps{
		Kind:          k.Name,
		Tasks:         client,
		Stats:         a.statsFunc(k),
		Dashboard:     dashboard.ForKind(k.Name),
		ClaimCount:    count,
		Notifications: feed,
		Usage:         a.usage,
		Recorder:      a.recorder,
		Errors:        a.errs,
		Status:        status,
		Theme:         theme,
		User:          username,
	}
	logger.Debug("Starting review console", zap.String("kind", k.Name))
	return ui.Run(ctx, deps, subscribe, reload)
}
