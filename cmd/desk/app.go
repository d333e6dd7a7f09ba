package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reviewdesk/internal/api"
	"reviewdesk/internal/apierr"
	"reviewdesk/internal/config"
	"reviewdesk/internal/logging"
	"reviewdesk/internal/notify"
	"reviewdesk/internal/session"
	"reviewdesk/internal/store"
	"reviewdesk/internal/trace"
	"reviewdesk/internal/usage"
	"reviewdesk/internal/workflow"
)

// deskApp is the wired client shared by every command.
type deskApp struct {
	cfg     *config.Config
	cfgPath string

	out      io.Writer
	errOut   io.Writer
	notifier notify.Notifier

	sessions *session.Store
	recorder *trace.Recorder
	usage    *usage.Tracker
	tokens   api.TokenSource
	client   *api.Client
	users    *store.UserStore
	errs     apierr.Handlers
	kinds    *workflow.Registry
}

// newApp wires the client with a console notifier on the command's stderr.
func newApp(cmd *cobra.Command) (*deskApp, error) {
	return buildApp(cmd, notify.NewConsole(cmd.ErrOrStderr()))
}

func buildApp(cmd *cobra.Command, n notify.Notifier) (*deskApp, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgPath, err)
	}

	if err := logging.Initialize(cfg.Logging.Options(workspaceDir(), verbose)); err != nil {
		logger.Warn("Failed to initialize file logging", zap.Error(err))
	}

	sessions, err := session.Open(inWorkspace(cfg.Session.DatabasePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	a := &deskApp{
		cfg:      cfg,
		cfgPath:  cfgPath,
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		notifier: n,
		sessions: sessions,
		recorder: trace.NewRecorder(trace.WithPersister(sessions)),
		kinds:    workflow.DefaultRegistry(),
	}

	if cfg.Usage.Enabled {
		tracker, err := usage.NewTracker(inWorkspace(cfg.Usage.Path))
		if err != nil {
			logger.Warn("Usage tracking disabled", zap.Error(err))
		} else {
			a.usage = tracker
		}
	}

	a.tokens = sessions
	if cfg.API.Token != "" {
		a.tokens = api.NewStaticToken(cfg.API.Token)
	}

	opts := []api.ClientOption{
		api.WithTimeout(cfg.GetRequestTimeout()),
		api.WithTokenSource(a.tokens),
		api.WithPageURL(cfg.API.PageURL),
		api.WithNotifier(n),
		api.WithRecorder(a.recorder),
		api.WithUnauthorizedHandler(a.onUnauthorized),
	}
	if a.usage != nil {
		opts = append(opts, api.WithObserver(a.usage))
	}
	a.client = api.NewClient(cfg.API.BaseURL, opts...)
	a.users = store.NewUserStore(a.client, sessions)
	a.errs = apierr.NewHandlers(n, a.recorder)

	logger.Debug("desk wired",
		zap.String("config", cfgPath),
		zap.String("api", cfg.API.BaseURL),
		zap.Bool("usage", a.usage != nil))
	return a, nil
}

// onUnauthorized runs after the client cleared a rejected token.
func (a *deskApp) onUnauthorized() {
	a.users.Forget()
	notify.Warning(a.notifier, `Run "desk login" to sign in again.`)
}

// token is the bearer token for callers outside the api client.
func (a *deskApp) token() string {
	if a.tokens == nil {
		return ""
	}
	return a.tokens.Token()
}

// fail reports err through h and returns the sentinel main keys on.
func (a *deskApp) fail(h *apierr.Handler, err error, opts ...apierr.Option) error {
	std := h.Handle(err, opts...)
	if std.Canceled() {
		return fmt.Errorf("%w: canceled", errReported)
	}
	return fmt.Errorf("%w: %s", errReported, std.Message)
}

func (a *deskApp) Close() {
	if a.usage != nil {
		if err := a.usage.Close(); err != nil {
			logger.Warn("Failed to flush usage", zap.Error(err))
		}
	}
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			logger.Warn("Failed to close session store", zap.Error(err))
		}
	}
	logging.CloseAll()
}
