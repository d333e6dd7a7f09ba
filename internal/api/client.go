// Package api is the HTTP client adapter for the review backend. It attaches
// credentials and trace headers, decodes successful bodies, and turns failures
// into *Error values after running the 401/403/429 side effects.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"reviewdesk/internal/logging"
	"reviewdesk/internal/notify"
	"reviewdesk/internal/trace"
)

// DefaultTimeout tolerates slow bulk operations on the backend.
const DefaultTimeout = 10 * time.Minute

// TokenSource supplies and clears the bearer token.
type TokenSource interface {
	Token() string
	Clear() error
}

// StaticToken is a TokenSource backed by a fixed value, used when the token
// comes from the environment rather than the session store.
type StaticToken struct {
	mu    sync.RWMutex
	token string
}

// NewStaticToken creates a StaticToken.
func NewStaticToken(token string) *StaticToken { return &StaticToken{token: token} }

// Token implements TokenSource.
func (s *StaticToken) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Clear implements TokenSource.
func (s *StaticToken) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}

// Observer is told about every completed request.
type Observer interface {
	ObserveRequest(method, path string, status int, elapsed time.Duration, err error)
}

// Client talks to the review backend.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	timeout        time.Duration
	tokens         TokenSource
	pageURL        string
	notifier       notify.Notifier
	recorder       *trace.Recorder
	onUnauthorized func()
	observer       Observer
	newTraceID     func() string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithTokenSource sets where the bearer token comes from.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) { c.tokens = ts }
}

// WithPageURL sets the X-Page-Url header value.
func WithPageURL(u string) ClientOption {
	return func(c *Client) { c.pageURL = u }
}

// WithNotifier sets where 401/403/429 messages are displayed.
func WithNotifier(n notify.Notifier) ClientOption {
	return func(c *Client) { c.notifier = n }
}

// WithRecorder sets the trace recorder used to annotate messages.
func WithRecorder(r *trace.Recorder) ClientOption {
	return func(c *Client) { c.recorder = r }
}

// WithUnauthorizedHandler is called after credentials are cleared on a 401.
func WithUnauthorizedHandler(fn func()) ClientOption {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithObserver registers a request observer.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a client for the API rooted at baseURL (e.g. http://host/api).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    DefaultTimeout,
		notifier:   notify.Discard,
		newTraceID: trace.NewID,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.timeout > 0 {
		c.httpClient.Timeout = c.timeout
	}
	if c.recorder == nil {
		c.recorder = trace.NewRecorder()
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

// Token returns the current bearer token, or "".
func (c *Client) Token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// Recorder returns the trace recorder.
func (c *Client) Recorder() *trace.Recorder { return c.recorder }

// Get issues a GET and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Do sends one request. On success the body is decoded into out (if non-nil).
// On failure the returned error is an *Error, except for local marshal/decode
// problems which are plain wrapped errors.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	traceID := c.newTraceID()
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.pageURL != "" {
		req.Header.Set("X-Page-Url", c.pageURL)
	}
	req.Header.Set(trace.HeaderTraceID, traceID)

	reqInfo := RequestInfo{
		Method:  method,
		Path:    path,
		Header:  req.Header.Clone(),
		TraceID: traceID,
	}
	log := logging.WithRequestID(logging.CategoryAPI, traceID)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErr := c.transportError(reqInfo, err)
		log.Warn("%s %s failed after %v: %s", method, path, time.Since(start), apiErr.Message)
		c.observe(method, path, 0, start, apiErr)
		return apiErr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr := c.transportError(reqInfo, err)
		c.observe(method, path, resp.StatusCode, start, apiErr)
		return apiErr
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Debug("%s %s -> %d in %v", method, path, resp.StatusCode, time.Since(start))
		c.observe(method, path, resp.StatusCode, start, nil)
		if out == nil || len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
		return nil
	}

	apiErr := &Error{
		Request: reqInfo,
		Response: &Response{
			Status: resp.StatusCode,
			Header: resp.Header.Clone(),
			Body:   parseErrorBody(raw),
		},
	}
	log.WithField("status", resp.StatusCode).Warn("%s %s failed: %s", method, path, apiErr.Error())
	c.observe(method, path, resp.StatusCode, start, apiErr)
	c.handleFailure(apiErr)
	return apiErr
}

func (c *Client) observe(method, path string, status int, start time.Time, err error) {
	if c.observer == nil {
		return
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	c.observer.ObserveRequest(method, path, status, time.Since(start), err)
}

func (c *Client) transportError(req RequestInfo, err error) *Error {
	e := &Error{Request: req, Err: err}

	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		e.Code, e.Message = CodeCanceled, "canceled"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		e.Code, e.Message = CodeTimeout, timeoutMessage(c.timeout.Milliseconds())
	default:
		e.Code, e.Message = CodeNetwork, NetworkErrorMessage
	}
	return e
}

// handleFailure runs the status-specific side effects before the error is
// returned to the caller.
func (c *Client) handleFailure(e *Error) {
	body := e.Response.Body
	var msg string

	switch e.Response.Status {
	case http.StatusUnauthorized:
		if c.tokens != nil {
			if err := c.tokens.Clear(); err != nil {
				logging.APIError("failed to clear credentials: %v", err)
			}
		}
		msg = unauthorizedMessage(body.ServerMessage())
		notify.Error(c.notifier, c.recorder.BuildMessage(msg, e))
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return
	case http.StatusForbidden:
		msg = permissionMessage(body)
	case http.StatusTooManyRequests:
		msg = rateLimitMessage(body)
	default:
		return
	}
	notify.Error(c.notifier, c.recorder.BuildMessage(msg, e))
}

// Messages shown for 401 responses.
const (
	MsgSessionRevoked  = "Your session was revoked, please log in again"
	MsgSessionReplaced = "You were logged out because your account signed in elsewhere"
	MsgSessionExpired  = "Session expired, please log in again"
)

func unauthorizedMessage(server string) string {
	s := strings.ToLower(server)
	switch {
	case strings.Contains(s, "revoked"), strings.Contains(s, "blacklist"):
		return MsgSessionRevoked
	case strings.Contains(s, "another"), strings.Contains(s, "elsewhere"), strings.Contains(s, "kicked"):
		return MsgSessionReplaced
	default:
		return MsgSessionExpired
	}
}

func permissionMessage(body *ErrorBody) string {
	if body != nil {
		if body.RequiredPermission != "" {
			return "Permission denied: requires " + body.RequiredPermission
		}
		if len(body.RequiredPermissions) > 0 {
			return "Permission denied: requires one of " + strings.Join(body.RequiredPermissions, " or ")
		}
		if s := body.ServerMessage(); s != "" {
			return "Permission denied: " + s
		}
	}
	return "Permission denied"
}

func rateLimitMessage(body *ErrorBody) string {
	if body != nil && body.RetryAfter != "" {
		return "Too many requests, please retry after " + string(body.RetryAfter)
	}
	return "Too many requests, please try again later"
}
