package trace

import (
	"sync"
	"time"

	"reviewdesk/internal/logging"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// HotkeyLabel is shown in trace-annotated messages.
// Terminals cannot tell ctrl+shift+c from ctrl+c, so the copy key is ctrl+t.
const HotkeyLabel = "Ctrl+T"

// Persister keeps the last trace across process runs so a later
// "desk trace copy" can find an id recorded by an earlier command.
type Persister interface {
	SaveTrace(id string, at time.Time) error
	LoadTrace() (id string, at time.Time, err error)
}

// Recorder remembers the last resolved trace id. Construct one at startup and
// pass it to every component that displays errors.
type Recorder struct {
	mu        sync.RWMutex
	lastID    string
	lastAt    time.Time
	now       func() time.Time
	persister Persister

	hotkeyOnce sync.Once
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithPersister loads the last trace from p and saves every new one to it.
func WithPersister(p Persister) Option {
	return func(r *Recorder) { r.persister = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates the process-scoped trace recorder.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.persister != nil {
		id, at, err := r.persister.LoadTrace()
		if err != nil {
			logging.Get(logging.CategoryTrace).Warn("failed to load last trace: %v", err)
		} else if id != "" {
			r.lastID, r.lastAt = id, at
		}
	}
	return r
}

// Record stores id as the last known trace. Empty ids are ignored.
func (r *Recorder) Record(id string, at time.Time) {
	if id == "" {
		return
	}
	r.mu.Lock()
	r.lastID, r.lastAt = id, at
	r.mu.Unlock()

	logging.Get(logging.CategoryTrace).Debug("recorded trace %s", id)
	if r.persister != nil {
		if err := r.persister.SaveTrace(id, at); err != nil {
			logging.Get(logging.CategoryTrace).Warn("failed to persist trace %s: %v", id, err)
		}
	}
}

// Last returns the last recorded trace.
func (r *Recorder) Last() (id string, at time.Time, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastID, r.lastAt, r.lastID != ""
}

// BuildMessage appends the trace id resolved from err to message and records
// it as the last trace when one was found.
func (r *Recorder) BuildMessage(message string, err error) string {
	now := r.now()
	id := ResolveFromError(err)
	r.Record(id, now)
	return Annotate(message, id, now)
}

// CopyLevel says how a copy result should be displayed.
type CopyLevel int

const (
	CopySuccess CopyLevel = iota
	CopyWarning
	CopyFailed
)

// CopyResult is the outcome of a clipboard copy.
type CopyResult struct {
	Level   CopyLevel
	Message string
	TraceID string
}

// Copy puts the last trace id on the clipboard.
func (r *Recorder) Copy() CopyResult {
	id, at, ok := r.Last()
	if !ok {
		return CopyResult{Level: CopyWarning, Message: "No TraceID to copy yet"}
	}
	if err := clipboardWriteAll(id); err != nil {
		logging.Get(logging.CategoryTrace).Error("clipboard write failed: %v", err)
		return CopyResult{Level: CopyFailed, Message: "Failed to copy TraceID", TraceID: id}
	}
	msg := "TraceID copied"
	if !at.IsZero() {
		msg += " (" + formatTime(at) + ")"
	}
	return CopyResult{Level: CopySuccess, Message: msg, TraceID: id}
}

// HotkeyBinding is the console key that triggers Copy.
var HotkeyBinding = key.NewBinding(
	key.WithKeys("ctrl+t"),
	key.WithHelp("ctrl+t", "copy trace id"),
)

// InstallHotkey hands the copy binding and handler to register. It runs at
// most once per Recorder; later calls report false and do nothing.
func (r *Recorder) InstallHotkey(register func(key.Binding, func() CopyResult)) bool {
	installed := false
	r.hotkeyOnce.Do(func() {
		register(HotkeyBinding, r.Copy)
		installed = true
	})
	return installed
}
