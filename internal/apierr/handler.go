package apierr

import (
	"reviewdesk/internal/logging"
	"reviewdesk/internal/notify"
	"reviewdesk/internal/trace"
)

// Default messages of the predefined handlers.
const (
	ClaimFailedMessage  = "Failed to claim tasks, please try again later"
	SubmitFailedMessage = "Failed to submit review, please try again later"
	ReturnFailedMessage = "Failed to return tasks, please try again later"
	LoadFailedMessage   = "Failed to load data, please refresh and retry"
)

// Options control how a failure is reported.
type Options struct {
	DefaultMessage string
	ShowMessage    bool
	LogError       bool
}

// DefaultOptions shows and logs with the generic default message.
func DefaultOptions() Options {
	return Options{DefaultMessage: DefaultMessage, ShowMessage: true, LogError: true}
}

// Option overrides one field of a handler's defaults for a single call.
type Option func(*Options)

// WithMessage overrides the default message.
func WithMessage(msg string) Option {
	return func(o *Options) { o.DefaultMessage = msg }
}

// Silent suppresses display, for flows that retry quietly.
func Silent() Option {
	return func(o *Options) { o.ShowMessage = false }
}

// NoLog suppresses logging of the raw cause.
func NoLog() Option {
	return func(o *Options) { o.LogError = false }
}

// Handler normalizes failures and reports them.
type Handler struct {
	defaults Options
	notifier notify.Notifier
	recorder *trace.Recorder
}

// NewHandler builds a handler around fixed defaults.
func NewHandler(n notify.Notifier, r *trace.Recorder, defaults Options) *Handler {
	if n == nil {
		n = notify.Discard
	}
	if r == nil {
		r = trace.NewRecorder()
	}
	if defaults.DefaultMessage == "" {
		defaults.DefaultMessage = DefaultMessage
	}
	return &Handler{defaults: defaults, notifier: n, recorder: r}
}

// Handle normalizes v, then logs and displays it according to the handler's
// options. The normalized error is returned whatever the options say.
// Cancellation is neither logged nor displayed.
func (h *Handler) Handle(v any, overrides ...Option) StandardError {
	opts := h.defaults
	for _, o := range overrides {
		o(&opts)
	}

	if Classify(v) == KindCancel {
		return StandardError{Message: "", Original: v}
	}

	std := Normalize(v, opts.DefaultMessage)
	if std.Message == "" {
		std.Message = opts.DefaultMessage
	}

	if opts.LogError {
		logging.Get(logging.CategoryAPI).Error("%s: %v (trace=%s)", std.Message, v, traceOf(v))
	}
	if opts.ShowMessage {
		err, _ := v.(error)
		notify.Error(h.notifier, h.recorder.BuildMessage(std.Message, err))
	}
	return std
}

func traceOf(v any) string {
	err, _ := v.(error)
	if id := trace.ResolveFromError(err); id != "" {
		return id
	}
	return "unknown"
}

// Handlers bundles the purpose-specific handlers the review flows use.
type Handlers struct {
	Claim  *Handler
	Submit *Handler
	Return *Handler
	Load   *Handler
}

// NewHandlers builds the claim, submit, return and load handlers.
func NewHandlers(n notify.Notifier, r *trace.Recorder) Handlers {
	mk := func(msg string) *Handler {
		opts := DefaultOptions()
		opts.DefaultMessage = msg
		return NewHandler(n, r, opts)
	}
	return Handlers{
		Claim:  mk(ClaimFailedMessage),
		Submit: mk(SubmitFailedMessage),
		Return: mk(ReturnFailedMessage),
		Load:   mk(LoadFailedMessage),
	}
}

// Guard runs fn and routes any error through h. On failure it returns the
// zero value and false; onError, if set, receives the normalized error.
func Guard[T any](h *Handler, fn func() (T, error), onError func(StandardError), opts ...Option) (T, bool) {
	out, err := fn()
	if err == nil {
		return out, true
	}
	std := h.Handle(err, opts...)
	if onError != nil {
		onError(std)
	}
	var zero T
	return zero, false
}
