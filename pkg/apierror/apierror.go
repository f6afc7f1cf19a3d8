// Package apierror defines the error taxonomy shared by every component of
// the client. All failures that cross a package boundary are represented as
// *Error values so callers can branch on Kind with errors.As.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for propagation policy decisions.
type Kind int

const (
	// KindUnknown is the zero value and never constructed deliberately.
	KindUnknown Kind = iota
	// KindValidation covers locally rejected input and 4xx rejections that
	// carry a field-level payload. Validation failures block submission.
	KindValidation
	// KindAuth covers 401 responses. Observing one forces the session back
	// to anonymous; it is never retried silently.
	KindAuth
	// KindNotFound covers 404-class responses. The endpoint resolver treats
	// it as "try the next candidate"; everywhere else it surfaces as-is.
	KindNotFound
	// KindConflict covers 409 responses, e.g. a duplicate national id.
	KindConflict
	// KindServer covers 5xx responses.
	KindServer
	// KindNetwork means no response was received at all.
	KindNetwork
	// KindTimeout means the bounded wait for a response elapsed. Distinct
	// from KindNetwork so the two can be reported differently.
	KindTimeout
	// KindUnavailable means every candidate path for a logical resource
	// returned 404; the resource is unusable for the rest of the session.
	KindUnavailable
	// KindPersistence means the token pair could not be written; the login
	// must be retried.
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// FieldError reports a problem with a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the concrete error type carried across component boundaries.
type Error struct {
	Kind Kind
	// Op describes the failed operation, e.g. "GET /students/".
	Op string
	// Status is the HTTP status when the failure came from a response.
	Status int
	// Payload holds the raw response body when one was received.
	Payload json.RawMessage
	// Fields lists field-level problems for validation failures.
	Fields []FieldError
	// Err is the wrapped cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind wrapping cause.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Validation builds a local validation failure that never reached the network.
func Validation(op string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Op: op, Fields: fields}
}

// FromStatus maps an HTTP response outcome to an Error. It is only called
// for statuses >= 400.
func FromStatus(op string, status int, payload []byte) *Error {
	e := &Error{Op: op, Status: status, Payload: payload}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindAuth
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status == http.StatusConflict:
		e.Kind = KindConflict
	case status >= 500:
		e.Kind = KindServer
	default:
		e.Kind = KindValidation
	}
	return e
}

// KindOf extracts the Kind from err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool { return Is(err, KindAuth) }

// IsNotFound reports whether err is a 404-class failure.
func IsNotFound(err error) bool { return Is(err, KindNotFound) }

// IsUnavailable reports whether err means every candidate path was exhausted.
func IsUnavailable(err error) bool { return Is(err, KindUnavailable) }

// Retryable reports whether the failure is transient from the session's point
// of view: the session and caches stay intact and the user may simply retry.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindServer, KindNetwork, KindTimeout:
		return true
	default:
		return false
	}
}
