package trace

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCarrier struct {
	body    string
	respHdr http.Header
	reqHdr  http.Header
	localID string
}

func (f *fakeCarrier) Error() string               { return "request failed" }
func (f *fakeCarrier) BodyTraceID() string         { return f.body }
func (f *fakeCarrier) ResponseHeader() http.Header { return f.respHdr }
func (f *fakeCarrier) RequestHeader() http.Header  { return f.reqHdr }
func (f *fakeCarrier) LocalTraceID() string        { return f.localID }

func hdr(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func TestNewID_UUID(t *testing.T) {
	id := NewID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewID())
}

func TestNewID_Fallback(t *testing.T) {
	old := newUUID
	newUUID = func() (uuid.UUID, error) { return uuid.Nil, errors.New("no entropy") }
	defer func() { newUUID = old }()

	id := NewID()
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-z]+-[0-9a-z]{8}$`), id)
}

func TestResolveFromError_Order(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), ""},
		{
			"body wins",
			&fakeCarrier{body: "body-id", respHdr: hdr(HeaderTraceID, "resp"), reqHdr: hdr(HeaderTraceID, "req"), localID: "local"},
			"body-id",
		},
		{
			"response trace header",
			&fakeCarrier{respHdr: hdr(HeaderTraceID, "resp"), reqHdr: hdr(HeaderTraceID, "req"), localID: "local"},
			"resp",
		},
		{
			"response request-id header",
			&fakeCarrier{respHdr: hdr(HeaderRequestID, "resp-req"), reqHdr: hdr(HeaderTraceID, "req")},
			"resp-req",
		},
		{
			"request header",
			&fakeCarrier{respHdr: http.Header{}, reqHdr: hdr(HeaderTraceID, "req"), localID: "local"},
			"req",
		},
		{"local id", &fakeCarrier{localID: "local"}, "local"},
		{"nothing", &fakeCarrier{}, ""},
		{
			"wrapped carrier",
			fmt.Errorf("claim tasks: %w", &fakeCarrier{body: "wrapped"}),
			"wrapped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveFromError(tt.err))
		})
	}
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 4, 15, 4, 5, 0, time.Local)
}

func TestBuildMessage_RecordsOnlyKnownIDs(t *testing.T) {
	r := NewRecorder(WithClock(fixedClock))

	msg := r.BuildMessage("Failed to load data", errors.New("boom"))
	assert.Equal(t, "Failed to load data | TraceID: unknown | Time: 2026-03-04 15:04:05 | Hotkey: Ctrl+T", msg)
	_, _, ok := r.Last()
	assert.False(t, ok, "unknown ids must not be recorded")

	msg = r.BuildMessage("Failed to claim", &fakeCarrier{body: "abc-123"})
	assert.True(t, strings.Contains(msg, "TraceID: abc-123"))

	id, at, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "abc-123", id)
	assert.Equal(t, fixedClock(), at)
}

func TestCopy(t *testing.T) {
	var copied string
	old := clipboardWriteAll
	clipboardWriteAll = func(s string) error { copied = s; return nil }
	defer func() { clipboardWriteAll = old }()

	r := NewRecorder(WithClock(fixedClock))

	res := r.Copy()
	assert.Equal(t, CopyWarning, res.Level)
	assert.Empty(t, copied)

	r.Record("trace-9", fixedClock())
	res = r.Copy()
	assert.Equal(t, CopySuccess, res.Level)
	assert.Equal(t, "trace-9", copied)
	assert.Equal(t, "TraceID copied (2026-03-04 15:04:05)", res.Message)

	clipboardWriteAll = func(string) error { return errors.New("no display") }
	res = r.Copy()
	assert.Equal(t, CopyFailed, res.Level)
}

func TestInstallHotkey_OnlyOnce(t *testing.T) {
	r := NewRecorder()
	calls := 0
	register := func(b key.Binding, handler func() CopyResult) {
		calls++
		assert.Equal(t, []string{"ctrl+t"}, b.Keys())
		assert.NotNil(t, handler)
	}

	assert.True(t, r.InstallHotkey(register))
	assert.False(t, r.InstallHotkey(register))
	assert.Equal(t, 1, calls)
}

type memPersister struct {
	id string
	at time.Time
}

func (m *memPersister) SaveTrace(id string, at time.Time) error { m.id, m.at = id, at; return nil }
func (m *memPersister) LoadTrace() (string, time.Time, error)   { return m.id, m.at, nil }

func TestRecorder_Persister(t *testing.T) {
	p := &memPersister{}
	NewRecorder(WithPersister(p)).Record("persisted", fixedClock())

	id, at, ok := NewRecorder(WithPersister(p)).Last()
	require.True(t, ok)
	assert.Equal(t, "persisted", id)
	assert.Equal(t, fixedClock(), at)
}
