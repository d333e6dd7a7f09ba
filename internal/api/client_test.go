package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewdesk/internal/notify"
	"reviewdesk/internal/trace"
)

type observed struct {
	method, path string
	status       int
	err          error
}

type fakeObserver struct {
	mu    sync.Mutex
	calls []observed
}

func (f *fakeObserver) ObserveRequest(method, path string, status int, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, observed{method, path, status, err})
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...ClientOption) (*Client, *notify.Recorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	n := &notify.Recorder{}
	opts = append([]ClientOption{WithNotifier(n)}, opts...)
	return NewClient(srv.URL+"/api", opts...), n
}

func TestDo_AttachesHeaders(t *testing.T) {
	var got http.Header
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"tags":[{"id":1,"name":"spam"}]}`))
	}, WithTokenSource(NewStaticToken("tok")), WithPageURL("desk://review"))

	tags, err := c.Tags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "spam", tags[0].Name)

	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
	assert.Equal(t, "desk://review", got.Get("X-Page-Url"))
	assert.NotEmpty(t, got.Get(trace.HeaderTraceID))
}

func TestDo_NoTokenNoAuthorization(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.Get(context.Background(), "/ping", nil))
}

func TestDo_FreshTraceIDPerRequest(t *testing.T) {
	var ids []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get(trace.HeaderTraceID))
	})
	ctx := context.Background()
	require.NoError(t, c.Get(ctx, "/a", nil))
	require.NoError(t, c.Get(ctx, "/b", nil))
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestDo_Unauthorized(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"Invalid or expired token", MsgSessionExpired},
		{"Token has been revoked", MsgSessionRevoked},
		{"token is blacklisted", MsgSessionRevoked},
		{"Logged in from another device", MsgSessionReplaced},
	}

	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			tokens := NewStaticToken("tok")
			kicked := 0
			c, n := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(trace.HeaderTraceID, "srv-trace")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"` + tt.server + `"}`))
			}, WithTokenSource(tokens), WithUnauthorizedHandler(func() { kicked++ }))

			err := c.Get(context.Background(), "/auth/profile", nil)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode())
			assert.Empty(t, tokens.Token())
			assert.Equal(t, 1, kicked)

			msgs := n.Messages()
			require.Len(t, msgs, 1)
			assert.Equal(t, notify.LevelError, msgs[0].Level)
			assert.True(t, strings.HasPrefix(msgs[0].Text, tt.want+" | TraceID: srv-trace"), msgs[0].Text)
		})
	}
}

func TestDo_Forbidden(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"single", `{"error":"forbidden","required_permission":"tasks:claim"}`, "Permission denied: requires tasks:claim"},
		{"any of", `{"error":"forbidden","required_permissions":["a","b"]}`, "Permission denied: requires one of a or b"},
		{"no body", ``, "Permission denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := NewStaticToken("tok")
			c, n := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(tt.body))
			}, WithTokenSource(tokens))

			err := c.Post(context.Background(), "/tasks/claim", map[string]int{"count": 1}, nil)
			require.Error(t, err)
			assert.Equal(t, "tok", tokens.Token(), "403 must not clear credentials")

			msgs := n.Messages()
			require.Len(t, msgs, 1)
			assert.True(t, strings.HasPrefix(msgs[0].Text, tt.want+" | TraceID: "), msgs[0].Text)
		})
	}
}

func TestDo_RateLimited(t *testing.T) {
	c, n := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited","retry_after":"30s"}`))
	})

	require.Error(t, c.Get(context.Background(), "/tasks/my", nil))
	msgs := n.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Too many requests, please retry after 30s")
}

func TestDo_ServerErrorIsNotDisplayed(t *testing.T) {
	c, n := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"db down","code":5001,"trace_id":"body-trace"}`))
	})

	err := c.Get(context.Background(), "/tasks/my", nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Empty(t, n.Messages())

	require.NotNil(t, apiErr.Response.Body)
	assert.Equal(t, "db down", apiErr.Response.Body.Error)
	assert.Equal(t, FlexString("5001"), apiErr.Response.Body.Code)
	assert.Equal(t, "body-trace", trace.ResolveFromError(err))
	assert.Contains(t, err.Error(), "GET /tasks/my: HTTP 500: db down")
}

func TestDo_ErrorBodies(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantNil bool
		wantRaw bool
	}{
		{"empty", "", true, false},
		{"null", "null", true, false},
		{"html", "<html>bad gateway</html>", false, true},
		{"json", `{"message":"nope"}`, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte(tt.body))
			})
			var apiErr *Error
			require.ErrorAs(t, c.Get(context.Background(), "/x", nil), &apiErr)

			if tt.wantNil {
				assert.Nil(t, apiErr.Response.Body)
				return
			}
			require.NotNil(t, apiErr.Response.Body)
			if tt.wantRaw {
				assert.Equal(t, tt.body, string(apiErr.Response.Body.Raw))
			} else {
				assert.Equal(t, "nope", apiErr.Response.Body.ServerMessage())
			}
		})
	}
}

func TestDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	obs := &fakeObserver{}
	c := NewClient(base, WithObserver(obs))
	err := c.Get(context.Background(), "/tags?x=1", nil)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Nil(t, apiErr.Response)
	assert.Equal(t, CodeNetwork, apiErr.Code)
	assert.Equal(t, NetworkErrorMessage, apiErr.Message)
	assert.NotEmpty(t, trace.ResolveFromError(err), "local trace id is the last resort")

	require.Len(t, obs.calls, 1)
	assert.Equal(t, "/tags", obs.calls[0].path)
	assert.Equal(t, 0, obs.calls[0].status)
}

func TestDo_Timeout(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	err := c.Get(context.Background(), "/slow", nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeTimeout, apiErr.Code)
	assert.Equal(t, "timeout of 50ms exceeded", apiErr.Message)
}

func TestDo_Canceled(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Get(ctx, "/tags", nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeCanceled, apiErr.Code)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDo_DecodeFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	var out map[string]any
	err := c.Get(context.Background(), "/x", &out)
	require.Error(t, err)
	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr))
}

func TestFlexString(t *testing.T) {
	var b ErrorBody
	require.NoError(t, json.Unmarshal([]byte(`{"code":"E1","retry_after":60}`), &b))
	assert.Equal(t, FlexString("E1"), b.Code)
	assert.Equal(t, FlexString("60"), b.RetryAfter)
}
