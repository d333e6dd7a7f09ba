package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"reviewdesk/internal/trace"
)

// Transport error codes, matching the codes the backend's web client saw.
const (
	CodeTimeout  = "ECONNABORTED"
	CodeNetwork  = "ERR_NETWORK"
	CodeCanceled = "ERR_CANCELED"
)

// NetworkErrorMessage is the message attached to connection failures.
const NetworkErrorMessage = "Network Error"

// FlexString decodes a JSON string or number into its text form.
// The backend sends error codes and retry hints as either.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

// ErrorBody is the JSON error payload returned by the backend.
type ErrorBody struct {
	Error               string         `json:"error,omitempty"`
	Message             string         `json:"message,omitempty"`
	Code                FlexString     `json:"code,omitempty"`
	Details             map[string]any `json:"details,omitempty"`
	ErrorType           string         `json:"error_type,omitempty"`
	ErrorDescription    string         `json:"error_description,omitempty"`
	TraceID             string         `json:"trace_id,omitempty"`
	HTTPStatus          int            `json:"http_status,omitempty"`
	RetryAfter          FlexString     `json:"retry_after,omitempty"`
	RequiredPermission  string         `json:"required_permission,omitempty"`
	RequiredPermissions []string       `json:"required_permissions,omitempty"`

	// Raw holds the undecoded body when it was not a JSON object.
	Raw []byte `json:"-"`
}

// ServerMessage returns the error field, falling back to message.
func (b *ErrorBody) ServerMessage() string {
	if b == nil {
		return ""
	}
	if b.Error != "" {
		return b.Error
	}
	return b.Message
}

// parseErrorBody decodes a failure body. Empty and null bodies yield nil;
// anything else yields a body, possibly with only Raw set.
func parseErrorBody(raw []byte) *ErrorBody {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	var body ErrorBody
	if trimmed[0] != '{' || json.Unmarshal(trimmed, &body) != nil {
		return &ErrorBody{Raw: raw}
	}
	return &body
}

// Response is the part of a failed HTTP exchange kept for classification.
type Response struct {
	Status int
	Header http.Header
	// Body is nil when the server sent no body.
	Body *ErrorBody
}

// RequestInfo is the outbound side of a failed exchange.
type RequestInfo struct {
	Method  string
	Path    string
	Header  http.Header
	TraceID string
}

// Error is returned for every failed request: HTTP error statuses and
// transport failures alike. Response is nil when no response was received.
type Error struct {
	Request  RequestInfo
	Response *Response

	// Code and Message describe transport failures.
	Code    string
	Message string

	Err error
}

func (e *Error) Error() string {
	op := e.Request.Method + " " + e.Request.Path
	if e.Response != nil {
		text := e.Response.Body.ServerMessage()
		if text == "" {
			text = http.StatusText(e.Response.Status)
		}
		return fmt.Sprintf("%s: HTTP %d: %s", op, e.Response.Status, text)
	}
	return fmt.Sprintf("%s: %s", op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status, or 0 when no response was received.
func (e *Error) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.Status
}

// BodyTraceID implements trace.Carrier.
func (e *Error) BodyTraceID() string {
	if e.Response == nil || e.Response.Body == nil {
		return ""
	}
	return e.Response.Body.TraceID
}

// ResponseHeader implements trace.Carrier.
func (e *Error) ResponseHeader() http.Header {
	if e.Response == nil {
		return nil
	}
	return e.Response.Header
}

// RequestHeader implements trace.Carrier.
func (e *Error) RequestHeader() http.Header { return e.Request.Header }

// LocalTraceID implements trace.Carrier.
func (e *Error) LocalTraceID() string { return e.Request.TraceID }

var _ trace.Carrier = (*Error)(nil)

func timeoutMessage(ms int64) string {
	return "timeout of " + strconv.FormatInt(ms, 10) + "ms exceeded"
}
