// Package stream keeps the notification push channel open. It reads the
// backend's text/event-stream endpoint, decodes each event and fans it out
// to subscribers. A dropped connection is retried after a fixed delay until
// Disconnect is called.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"reviewdesk/internal/logging"
	"reviewdesk/internal/notify"
	"reviewdesk/internal/types"
)

// DefaultReconnectDelay is the fixed wait between connection attempts.
const DefaultReconnectDelay = 30 * time.Second

// ErrNoToken is returned by Connect when nobody is signed in.
var ErrNoToken = errors.New("no authentication token found")

// TokenSource supplies the bearer token used in the stream URL.
type TokenSource interface {
	Token() string
}

// Handler receives every decoded event.
type Handler func(types.StreamEvent)

// Client is the push channel client.
type Client struct {
	baseURL        string
	tokens         TokenSource
	httpClient     *http.Client
	reconnectDelay time.Duration
	notifier       notify.Notifier

	mu          sync.RWMutex
	handlers    map[int]Handler
	nextHandler int
	connected   bool
	lastErr     error
	cancel      context.CancelFunc
	done        chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithReconnectDelay overrides the 30s reconnect delay.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) { c.reconnectDelay = d }
}

// WithHTTPClient replaces the http.Client. It should not set a Timeout,
// since the stream stays open indefinitely.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithNotifier pops up each delivered notification.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// New creates a push channel client for the API rooted at baseURL.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		tokens:         tokens,
		httpClient:     &http.Client{},
		reconnectDelay: DefaultReconnectDelay,
		handlers:       make(map[int]Handler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnMessage registers h and returns a func that removes it.
func (c *Client) OnMessage(h Handler) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextHandler
	c.nextHandler++
	c.handlers[id] = h
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers, id)
			c.mu.Unlock()
		})
	}
}

// Connected reports whether the stream is currently open.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Err returns the last connection error, if any.
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Connect starts the connection loop in the background. A running loop is
// stopped first. It returns ErrNoToken without starting when no token is
// stored. The loop ends when ctx is done or Disconnect is called.
func (c *Client) Connect(ctx context.Context) error {
	c.Disconnect()

	if c.tokens == nil || c.tokens.Token() == "" {
		c.setState(false, ErrNoToken)
		return ErrNoToken
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.lastErr = nil
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.run(loopCtx)
	}()
	return nil
}

// Disconnect stops the loop and waits for it to exit.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	c.mu.Lock()
	c.connected = false
	c.lastErr = nil
	c.mu.Unlock()
	logging.Stream("Notification stream closed")
}

func (c *Client) run(ctx context.Context) {
	for {
		err := c.connectOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrNoToken) {
			c.setState(false, err)
			logging.StreamWarn("Stopping notification stream: %v", err)
			return
		}
		if err == nil {
			err = io.EOF
		}
		c.setState(false, err)
		logging.StreamWarn("Notification stream lost (%v), reconnecting in %v", err, c.reconnectDelay)

		timer := time.NewTimer(c.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		logging.StreamDebug("Attempting to reconnect notification stream")
	}
}

func (c *Client) streamURL(token string) string {
	return c.baseURL + "/notifications/stream?token=" + url.QueryEscape(token)
}

// connectOnce opens one connection and reads it until it ends.
func (c *Client) connectOnce(ctx context.Context) error {
	token := c.tokens.Token()
	if token == "" {
		return ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.streamURL(token), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to notification stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notification stream returned status %d", resp.StatusCode)
	}

	c.setState(true, nil)
	logging.Stream("Notification stream connected")
	return c.readLoop(resp.Body)
}

func (c *Client) setState(connected bool, err error) {
	c.mu.Lock()
	c.connected = connected
	c.lastErr = err
	c.mu.Unlock()
}

// readLoop parses the event stream. Only data lines matter; event, id and
// retry fields are ignored since the backend puts the type in the payload.
func (c *Client) readLoop(body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var data bytes.Buffer

	flush := func() {
		if data.Len() == 0 {
			return
		}
		payload := bytes.TrimSuffix(data.Bytes(), []byte("\n"))
		c.dispatch(payload)
		data.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			flush()
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			data.WriteString(strings.TrimPrefix(rest, " "))
			data.WriteByte('\n')
		}
	}
	flush()
	return scanner.Err()
}

func (c *Client) dispatch(payload []byte) {
	var ev types.StreamEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		logging.StreamWarn("Failed to parse stream event: %v. Data: %s", err, payload)
		return
	}

	switch ev.Type {
	case types.EventNotification:
		if n, ok := ev.Notification(); ok && c.notifier != nil {
			c.notifier.Notify(levelFor(n.Type), n.Title+": "+n.Content)
		}
	case types.EventHeartbeat:
		logging.StreamDebug("heartbeat")
	case types.EventConnection:
		logging.StreamDebug("connection confirmed")
	}

	c.mu.RLock()
	ids := make([]int, 0, len(c.handlers))
	for id := range c.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, c.handlers[id])
	}
	c.mu.RUnlock()

	for _, h := range handlers {
		callHandler(h, ev)
	}
}

func callHandler(h Handler, ev types.StreamEvent) {
	defer func() {
		if r := recover(); r != nil {
			logging.StreamError("Stream handler panicked on %s event: %v", ev.Type, r)
		}
	}()
	h(ev)
}

func levelFor(kind string) notify.Level {
	switch kind {
	case types.NotificationError:
		return notify.LevelError
	case types.NotificationWarning:
		return notify.LevelWarning
	case types.NotificationSuccess:
		return notify.LevelSuccess
	default:
		return notify.LevelInfo
	}
}
