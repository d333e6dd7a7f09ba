// Package apierr normalizes any failure value into a StandardError with a
// user-facing message.
//
// Classification tries each rule in a fixed order and the first match wins:
//
//	cancel   the "cancel" sentinel, ErrCanceled, or a canceled context
//	api      an *api.Error carrying a response body
//	network  transport code ECONNABORTED or ERR_NETWORK, or message "Network Error"
//	timeout  transport code ECONNABORTED, or a message containing "timeout"
//	generic  any other error
//	string   a plain string
//	unknown  anything else
//
// Network is tested before timeout, so a transport timeout (ECONNABORTED)
// reports as a network failure.
package apierr

import (
	"context"
	"errors"
	"strings"

	"reviewdesk/internal/api"
)

// Kind is the classification of a failure value.
type Kind int

const (
	KindUnknown Kind = iota
	KindCancel
	KindAPI
	KindNetwork
	KindTimeout
	KindGeneric
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindCancel:
		return "cancel"
	case KindAPI:
		return "api"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindGeneric:
		return "generic"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// CancelSentinel is the string value that denotes a user abort.
const CancelSentinel = "cancel"

// ErrCanceled denotes a user-initiated abort, e.g. a declined confirmation.
var ErrCanceled = errors.New(CancelSentinel)

// Fixed messages.
const (
	DefaultMessage = "Operation failed, please try again later"
	NetworkMessage = "Network connection failed, please check your network and retry"
	TimeoutMessage = "Request timed out, please try again later"
)

// Classify returns the kind of v.
func Classify(v any) Kind {
	if isCancel(v) {
		return KindCancel
	}
	if IsAPIError(v) {
		return KindAPI
	}
	if IsNetworkError(v) {
		return KindNetwork
	}
	if IsTimeoutError(v) {
		return KindTimeout
	}
	switch v.(type) {
	case error:
		return KindGeneric
	case string:
		return KindString
	}
	return KindUnknown
}

func isCancel(v any) bool {
	switch x := v.(type) {
	case string:
		return x == CancelSentinel
	case error:
		return errors.Is(x, ErrCanceled) || errors.Is(x, context.Canceled)
	}
	return false
}

func asAPIError(v any) (*api.Error, bool) {
	err, ok := v.(error)
	if !ok || err == nil {
		return nil, false
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return nil, false
	}
	return apiErr, true
}

// IsAPIError reports whether v is a failed request that carried a response body.
func IsAPIError(v any) bool {
	apiErr, ok := asAPIError(v)
	return ok && apiErr.Response != nil && apiErr.Response.Body != nil
}

// transportSignature returns the code and bare message of a failure, without
// the request prefix *api.Error adds to Error().
func transportSignature(v any) (code, message string, ok bool) {
	if apiErr, isAPI := asAPIError(v); isAPI {
		return apiErr.Code, apiErr.Message, true
	}
	if err, isErr := v.(error); isErr && err != nil {
		return "", err.Error(), true
	}
	return "", "", false
}

// IsNetworkError reports whether v is a connection failure.
func IsNetworkError(v any) bool {
	code, msg, ok := transportSignature(v)
	if !ok {
		return false
	}
	return code == api.CodeTimeout || code == api.CodeNetwork || msg == api.NetworkErrorMessage
}

// IsTimeoutError reports whether v is a request timeout.
func IsTimeoutError(v any) bool {
	code, msg, ok := transportSignature(v)
	if !ok {
		return false
	}
	return code == api.CodeTimeout || strings.Contains(msg, "timeout")
}

// ExtractMessage returns the user-facing message for v. An empty
// defaultMessage means DefaultMessage.
func ExtractMessage(v any, defaultMessage string) string {
	if defaultMessage == "" {
		defaultMessage = DefaultMessage
	}

	switch Classify(v) {
	case KindCancel:
		return ""
	case KindAPI:
		apiErr, _ := asAPIError(v)
		if msg := apiErr.Response.Body.ServerMessage(); msg != "" {
			return msg
		}
		return defaultMessage
	case KindNetwork:
		return NetworkMessage
	case KindTimeout:
		return TimeoutMessage
	case KindGeneric:
		if _, msg, _ := transportSignature(v); msg != "" {
			return msg
		}
		return defaultMessage
	case KindString:
		return v.(string)
	default:
		return defaultMessage
	}
}

// StandardError is the normalized form of any failure. Message is always
// set except for cancellation, where it is empty.
type StandardError struct {
	Message  string
	Code     string
	Details  map[string]any
	Original any
}

func (e StandardError) Error() string { return e.Message }

// Unwrap exposes the original error, if it was one.
func (e StandardError) Unwrap() error {
	err, _ := e.Original.(error)
	return err
}

// Canceled reports whether e represents a user abort.
func (e StandardError) Canceled() bool { return isCancel(e.Original) }

// Normalize converts v to a StandardError. Code and Details are copied from
// API error bodies.
func Normalize(v any, defaultMessage string) StandardError {
	out := StandardError{
		Message:  ExtractMessage(v, defaultMessage),
		Original: v,
	}
	if IsAPIError(v) {
		apiErr, _ := asAPIError(v)
		body := apiErr.Response.Body
		out.Code = string(body.Code)
		out.Details = body.Details
	}
	return out
}
