// Package trace correlates client requests with server-side logs.
//
// Every outbound request carries a freshly generated X-Trace-Id. When a request
// fails, the id the server echoed (or the one we sent) is resolved from the
// error, appended to the message shown to the reviewer, and remembered so it can
// be copied to the clipboard for a support ticket.
package trace

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Header names carrying correlation ids.
const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"
)

// newUUID is swapped in tests to exercise the fallback generator.
var newUUID = uuid.NewRandom

// NewID returns a random UUID, or a base36 timestamp plus random suffix when
// the system random source is unavailable.
func NewID() string {
	id, err := newUUID()
	if err == nil {
		return id.String()
	}
	return fallbackID(time.Now())
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func fallbackID(now time.Time) string {
	suffix := make([]byte, 8)
	for i := range suffix {
		suffix[i] = base36[rand.Intn(len(base36))]
	}
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + string(suffix)
}

// Carrier exposes the correlation data attached to a failed request.
// *api.Error implements it.
type Carrier interface {
	// BodyTraceID is the trace_id field of the decoded error body, if any.
	BodyTraceID() string
	// ResponseHeader is nil when no response was received.
	ResponseHeader() http.Header
	// RequestHeader is the header set sent with the request.
	RequestHeader() http.Header
	// LocalTraceID is the id generated when the request was built.
	LocalTraceID() string
}

// ResolveFromError finds the most authoritative trace id for err.
// The server's body field wins, then response headers, then the request
// headers, then the locally generated id. Returns "" when none is known.
func ResolveFromError(err error) string {
	if err == nil {
		return ""
	}
	var c Carrier
	if !errors.As(err, &c) {
		return ""
	}
	if id := c.BodyTraceID(); id != "" {
		return id
	}
	if id := headerTraceID(c.ResponseHeader()); id != "" {
		return id
	}
	if id := headerTraceID(c.RequestHeader()); id != "" {
		return id
	}
	return c.LocalTraceID()
}

func headerTraceID(h http.Header) string {
	if h == nil {
		return ""
	}
	if v := h.Get(HeaderTraceID); v != "" {
		return v
	}
	return h.Get(HeaderRequestID)
}

// TimeLayout formats trace timestamps in local time.
const TimeLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) string {
	return t.Local().Format(TimeLayout)
}

// Annotate appends trace details to a human message.
func Annotate(message, traceID string, at time.Time) string {
	if traceID == "" {
		traceID = "unknown"
	}
	return fmt.Sprintf("%s | TraceID: %s | Time: %s | Hotkey: %s", message, traceID, formatTime(at), HotkeyLabel)
}
