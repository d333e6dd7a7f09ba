package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewdesk/internal/api"
	"reviewdesk/internal/notify"
	"reviewdesk/internal/trace"
)

func withBody(status int, body *api.ErrorBody) *api.Error {
	return &api.Error{
		Request:  api.RequestInfo{Method: "POST", Path: "/tasks/claim", Header: http.Header{}, TraceID: "local-id"},
		Response: &api.Response{Status: status, Header: http.Header{}, Body: body},
	}
}

func transport(code, message string) *api.Error {
	return &api.Error{
		Request: api.RequestInfo{Method: "GET", Path: "/tasks/my", TraceID: "local-id"},
		Code:    code,
		Message: message,
	}
}

func TestIsAPIError(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"body", withBody(500, &api.ErrorBody{Error: "x"}), true},
		{"empty object body", withBody(500, &api.ErrorBody{}), true},
		{"raw body", withBody(502, &api.ErrorBody{Raw: []byte("<html>")}), true},
		{"wrapped", fmt.Errorf("claim: %w", withBody(400, &api.ErrorBody{})), true},
		{"nil", nil, false},
		{"string", "boom", false},
		{"number", 42, false},
		{"bare error", errors.New("boom"), false},
		{"no response", transport(api.CodeNetwork, api.NetworkErrorMessage), false},
		{"nil body", withBody(500, nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAPIError(tt.v))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want Kind
	}{
		{"sentinel string", "cancel", KindCancel},
		{"sentinel error", ErrCanceled, KindCancel},
		{"context canceled", fmt.Errorf("wrap: %w", context.Canceled), KindCancel},
		{"api", withBody(400, &api.ErrorBody{Error: "bad"}), KindAPI},
		{"network code", transport(api.CodeNetwork, "whatever"), KindNetwork},
		{"network message", errors.New("Network Error"), KindNetwork},
		{"timeout code prefers network", transport(api.CodeTimeout, "timeout of 600000ms exceeded"), KindNetwork},
		{"timeout message", errors.New("read tcp: i/o timeout"), KindTimeout},
		{"generic", errors.New("boom"), KindGeneric},
		{"string", "something broke", KindString},
		{"unknown", struct{}{}, KindUnknown},
		{"nil", nil, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.v), "got %s", Classify(tt.v))
		})
	}
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name string
		v    any
		def  string
		want string
	}{
		{"cancel", "cancel", "x", ""},
		{"api error field", withBody(400, &api.ErrorBody{Error: "Task already claimed", Message: "ignored"}), "", "Task already claimed"},
		{"api message field", withBody(400, &api.ErrorBody{Message: "Bad input"}), "", "Bad input"},
		{"api no text", withBody(400, &api.ErrorBody{}), "custom", "custom"},
		{"network", transport(api.CodeNetwork, api.NetworkErrorMessage), "", NetworkMessage},
		{"timeout", errors.New("timeout while reading"), "", TimeoutMessage},
		{"generic", errors.New("disk full"), "", "disk full"},
		{"generic empty", errors.New(""), "custom", "custom"},
		{"string", "plain text", "", "plain text"},
		{"unknown with default", 3.14, "custom", "custom"},
		{"unknown fallback", map[string]int{}, "", DefaultMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMessage(tt.v, tt.def))
		})
	}
}

func TestNormalize_CopiesCodeAndDetails(t *testing.T) {
	details := map[string]any{"task_id": float64(7)}
	err := withBody(409, &api.ErrorBody{Error: "conflict", Code: "TASK_TAKEN", Details: details})

	got := Normalize(err, "")
	want := StandardError{Message: "conflict", Code: "TASK_TAKEN", Details: details}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(StandardError{}, "Original")); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}
	assert.Same(t, err, got.Original)
	assert.ErrorIs(t, got, err)
}

func TestNormalize_AlwaysHasMessage(t *testing.T) {
	for _, v := range []any{nil, 1, errors.New("x"), "y", struct{}{}} {
		assert.NotEmpty(t, Normalize(v, "").Message, "%v", v)
	}
}

func newTestHandler(opts Options) (*Handler, *notify.Recorder) {
	n := &notify.Recorder{}
	return NewHandler(n, trace.NewRecorder(), opts), n
}

func TestHandle_CancelIsSilent(t *testing.T) {
	h, n := newTestHandler(DefaultOptions())

	got := h.Handle("cancel")
	assert.Equal(t, "", got.Message)
	assert.True(t, got.Canceled())
	assert.Empty(t, n.Messages())
}

func TestHandle_DisplaysTraceAnnotatedMessage(t *testing.T) {
	h, n := newTestHandler(DefaultOptions())

	got := h.Handle(withBody(400, &api.ErrorBody{Error: "Invalid review", TraceID: "body-trace"}))
	assert.Equal(t, "Invalid review", got.Message)

	msgs := n.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, notify.LevelError, msgs[0].Level)
	assert.True(t, strings.HasPrefix(msgs[0].Text, "Invalid review | TraceID: body-trace | Time: "), msgs[0].Text)
}

func TestHandle_Overrides(t *testing.T) {
	h, n := newTestHandler(DefaultOptions())

	got := h.Handle(42, WithMessage("Could not refresh"), Silent(), NoLog())
	assert.Equal(t, "Could not refresh", got.Message)
	assert.Empty(t, n.Messages(), "silent calls still return the error but show nothing")
}

func TestHandle_EmptyStringGetsDefault(t *testing.T) {
	h, _ := newTestHandler(Options{DefaultMessage: "fallback", ShowMessage: false})
	assert.Equal(t, "fallback", h.Handle("").Message)
}

func TestPredefinedHandlers(t *testing.T) {
	n := &notify.Recorder{}
	hs := NewHandlers(n, trace.NewRecorder())

	tests := []struct {
		name string
		h    *Handler
		want string
	}{
		{"claim", hs.Claim, ClaimFailedMessage},
		{"submit", hs.Submit, SubmitFailedMessage},
		{"return", hs.Return, ReturnFailedMessage},
		{"load", hs.Load, LoadFailedMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n.Reset()
			got := tt.h.Handle(struct{ x int }{1})
			assert.Equal(t, tt.want, got.Message)
			msgs := n.Messages()
			require.Len(t, msgs, 1)
			assert.True(t, strings.HasPrefix(msgs[0].Text, tt.want+" | TraceID: unknown"), msgs[0].Text)
		})
	}
}

func TestGuard(t *testing.T) {
	h, n := newTestHandler(DefaultOptions())

	v, ok := Guard(h, func() (int, error) { return 7, nil }, nil)
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	var seen StandardError
	v, ok = Guard(h, func() (int, error) { return 7, errors.New("boom") }, func(e StandardError) { seen = e })
	assert.False(t, ok)
	assert.Zero(t, v)
	assert.Equal(t, "boom", seen.Message)
	assert.Len(t, n.Messages(), 1)
}
