package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"reviewdesk/internal/notify"
	"reviewdesk/internal/types"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

var leakOpts = []goleak.Option{
	goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
	goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
}

func writeEvent(w http.ResponseWriter, payload string) {
	fmt.Fprintf(w, "data: %s\n\n", payload)
	w.(http.Flusher).Flush()
}

func TestConnect_NoToken(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts...)

	c := New("http://127.0.0.1:1/api", staticToken(""))
	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
	assert.ErrorIs(t, c.Err(), ErrNoToken)
	assert.False(t, c.Connected())
}

func TestConnect_DeliversEvents(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts...)

	var gotToken atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken.Store(r.URL.Query().Get("token"))
		assert.Equal(t, "/api/notifications/stream", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keepalive\n\n")
		writeEvent(w, `{"type":"connection","data":{"message":"connected"}}`)
		writeEvent(w, `not json`)
		writeEvent(w, `{"type":"notification","data":{"id":7,"title":"Queue paused","content":"Back at 5pm","type":"warning","is_read":false}}`)
		<-r.Context().Done()
	}))
	defer srv.Close()

	n := &notify.Recorder{}
	c := New(srv.URL+"/api", staticToken("a b+c"), WithNotifier(n))

	events := make(chan types.StreamEvent, 8)
	c.OnMessage(func(types.StreamEvent) { panic("handler bug") })
	c.OnMessage(func(ev types.StreamEvent) { events <- ev })
	unsub := c.OnMessage(func(types.StreamEvent) { t.Error("unsubscribed handler called") })
	unsub()
	unsub()

	require.NoError(t, c.Connect(context.Background()))

	var got []types.StreamEvent
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	assert.Equal(t, types.EventConnection, got[0].Type)
	require.Equal(t, types.EventNotification, got[1].Type)
	notif, ok := got[1].Notification()
	require.True(t, ok)
	assert.Equal(t, int64(7), notif.ID)

	assert.True(t, c.Connected())
	assert.Equal(t, "a b+c", gotToken.Load())
	assert.Equal(t, []notify.Message{{Level: notify.LevelWarning, Text: "Queue paused: Back at 5pm"}}, n.Messages())

	c.Disconnect()
	assert.False(t, c.Connected())
}

func TestReconnectsAfterDrop(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts...)

	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if conns.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeEvent(w, `{"type":"heartbeat","data":null}`)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("tok"), WithReconnectDelay(10*time.Millisecond))
	beats := make(chan struct{}, 4)
	c.OnMessage(func(ev types.StreamEvent) {
		if ev.Type == types.EventHeartbeat {
			beats <- struct{}{}
		}
	})

	require.NoError(t, c.Connect(context.Background()))
	select {
	case <-beats:
	case <-time.After(5 * time.Second):
		t.Fatal("no heartbeat after reconnect")
	}
	assert.GreaterOrEqual(t, conns.Load(), int32(2))

	c.Disconnect()
}

func TestContextCancelStopsLoop(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts...)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(srv.URL, staticToken("tok"), WithReconnectDelay(time.Hour))
	require.NoError(t, c.Connect(ctx))

	require.Eventually(t, func() bool { return c.Err() != nil }, 5*time.Second, 5*time.Millisecond)
	assert.Contains(t, c.Err().Error(), "status 502")

	cancel()
	c.Disconnect()
}

func TestReadLoop_MultiLineData(t *testing.T) {
	c := New("http://unused", staticToken("tok"))
	var got []types.StreamEvent
	c.OnMessage(func(ev types.StreamEvent) { got = append(got, ev) })

	body := strings.Join([]string{
		"event: message",
		"id: 1",
		`data: {"type":`,
		`data: "heartbeat"}`,
		"",
		`data:{"type":"connection"}`,
	}, "\n")
	require.NoError(t, c.readLoop(strings.NewReader(body)))

	require.Len(t, got, 2)
	assert.Equal(t, types.EventHeartbeat, got[0].Type)
	assert.Equal(t, types.EventConnection, got[1].Type)
}
