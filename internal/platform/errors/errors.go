// Package errors provides a structured error type with wrapping and metadata
package errors

// Always import the project errors package as perr (platform/errors)

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode defines supported error codes used across services
// Values are stable for wire compatibility; add sparingly
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodePanic is for panics recovered by middleware
	ErrorCodePanic

	// ErrorCodeUnavailable is for transient errors where retry may succeed
	ErrorCodeUnavailable

	// ErrorCodeTooManyRequests is for rate limiting
	ErrorCodeTooManyRequests

	// ErrorCodeUnauthorized is for inbound auth failures
	ErrorCodeUnauthorized

	// ErrorCodeValidation is for validation failures (input data)
	ErrorCodeValidation

	// ErrorCodeJSON is for JSON parsing errors
	ErrorCodeJSON

	// ErrorCodeNotFound is for missing resources
	ErrorCodeNotFound

	// ErrorCodeDB is for general database errors
	ErrorCodeDB

	// ErrorCodeInvalidRequest is a bad or missing media reference, never retried
	ErrorCodeInvalidRequest

	// ErrorCodeUnresolvableSource means no resolution strategy produced a source
	ErrorCodeUnresolvableSource

	// ErrorCodeAuthentication is a provider credential failure, fatal
	ErrorCodeAuthentication

	// ErrorCodeProviderRejectedSource means the provider refused the media, fatal
	ErrorCodeProviderRejectedSource

	// ErrorCodeTransientProvider is a network or 5xx failure talking to a provider
	ErrorCodeTransientProvider

	// ErrorCodePollTimeout means a job did not reach a terminal state in time
	ErrorCodePollTimeout

	// ErrorCodeProviderJobFailed means the provider reported the job failed
	ErrorCodeProviderJobFailed

	// ErrorCodeCacheUnavailable is internal only, downgraded to a miss
	ErrorCodeCacheUnavailable
)

var kinds = map[ErrorCode]string{
	ErrorCodeUnknown:                "internal",
	ErrorCodePanic:                  "panic",
	ErrorCodeUnavailable:            "unavailable",
	ErrorCodeTooManyRequests:        "too_many_requests",
	ErrorCodeUnauthorized:           "unauthorized",
	ErrorCodeValidation:             "validation",
	ErrorCodeJSON:                   "json",
	ErrorCodeNotFound:               "not_found",
	ErrorCodeDB:                     "db",
	ErrorCodeInvalidRequest:         "invalid_request",
	ErrorCodeUnresolvableSource:     "unresolvable_source",
	ErrorCodeAuthentication:         "authentication",
	ErrorCodeProviderRejectedSource: "provider_rejected_source",
	ErrorCodeTransientProvider:      "transient_provider",
	ErrorCodePollTimeout:            "poll_timeout",
	ErrorCodeProviderJobFailed:      "provider_job_failed",
	ErrorCodeCacheUnavailable:       "cache_unavailable",
}

// Kind returns the stable snake_case name used on the wire
func (c ErrorCode) Kind() string {
	if k, ok := kinds[c]; ok {
		return k
	}
	return "internal"
}

// String implements fmt.Stringer
func (c ErrorCode) String() string { return c.Kind() }

// HTTPStatusCode turns an ErrorCode into an http status code
func HTTPStatusCode(c ErrorCode) int {
	switch c {
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeValidation, ErrorCodeJSON, ErrorCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrorCodeUnresolvableSource, ErrorCodeProviderRejectedSource:
		return http.StatusUnprocessableEntity
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeTooManyRequests:
		return http.StatusTooManyRequests
	case ErrorCodeUnavailable, ErrorCodeTransientProvider:
		return http.StatusServiceUnavailable
	case ErrorCodeAuthentication, ErrorCodeProviderJobFailed:
		return http.StatusBadGateway
	case ErrorCodePollTimeout:
		return http.StatusGatewayTimeout
	case ErrorCodeDB, ErrorCodePanic, ErrorCodeUnknown, ErrorCodeCacheUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrNotFound is a sentinel not found error for convenience
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error is the structured error type with wrapping and metadata
// msg is human/developer facing; code is machine facing
// field is optional (for validation); op is the stage that failed
// details is optional structured context safe to show callers
type Error struct {
	orig    error
	msg     string
	code    ErrorCode
	field   string
	op      string
	details any
}

// Wire is the JSON-serializable form returned by the API
type Wire struct {
	Kind    string    `json:"kind"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Stage   string    `json:"stage,omitempty"`
	Details any       `json:"details,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// Op returns the operation label, if set
func (e *Error) Op() string { return e.op }

// Details returns attached structured details, if any
func (e *Error) Details() any { return e.details }

// Message returns the message without the wrapped cause
func (e *Error) Message() string { return e.msg }

// ToWire converts an *Error to a Wire payload
// the wrapped cause is left out so upstream bodies and secrets never reach callers
func (e *Error) ToWire() Wire {
	return Wire{
		Kind:    e.code.Kind(),
		Code:    e.code,
		Message: e.msg,
		Field:   e.field,
		Stage:   e.op,
		Details: e.details,
	}
}

// WireFrom converts any error into a Wire payload with best-effort mapping
// If err is nil, returns the zero-value Wire (no error)
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return e.ToWire()
	}
	return Wire{Kind: ErrorCodeUnknown.Kind(), Code: ErrorCodeUnknown, Message: "internal error"}
}

// Root returns the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// HTTPStatus returns the mapped HTTP status for any error
func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Mutators (copy-on-write)

// WithField attaches a field to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithField(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return err
}

// WithOp attaches an operation label to an *Error (copy-on-write)
// an existing label is kept so the innermost stage wins
func WithOp(err error, op string) error {
	if e, ok := As(err); ok {
		if e.op != "" {
			return err
		}
		c := *e
		c.op = op
		return &c
	}
	return err
}

// WithDetails attaches structured details to an *Error (copy-on-write)
func WithDetails(err error, details any) error {
	if e, ok := As(err); ok {
		c := *e
		c.details = details
		return &c
	}
	return err
}

// Constructors

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// WrapIf wraps only when err != nil (helper for 1-liners)
func WrapIf(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, msg)
}

// Sugar

// NotFoundf returns a not found error
func NotFoundf(format string, a ...any) error { return Newf(ErrorCodeNotFound, format, a...) }

// JSONErrf returns a JSON error
func JSONErrf(format string, a ...any) error { return Newf(ErrorCodeJSON, format, a...) }

// PanicErrf returns a panic error
func PanicErrf(format string, a ...any) error { return Newf(ErrorCodePanic, format, a...) }

// Unavailablef returns an unavailable error
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }

// Internalf returns a generic internal error
func Internalf(format string, a ...any) error { return Newf(ErrorCodeUnknown, format, a...) }

// InvalidRequestf returns an invalid request error
func InvalidRequestf(format string, a ...any) error {
	return Newf(ErrorCodeInvalidRequest, format, a...)
}

// Unresolvable returns an unresolvable source error carrying per strategy details
func Unresolvable(details any, format string, a ...any) error {
	return &Error{code: ErrorCodeUnresolvableSource, msg: fmt.Sprintf(format, a...), details: details}
}

// Authenticationf returns a provider authentication error
func Authenticationf(format string, a ...any) error {
	return Newf(ErrorCodeAuthentication, format, a...)
}

// Rejectedf returns a provider rejected source error
func Rejectedf(format string, a ...any) error {
	return Newf(ErrorCodeProviderRejectedSource, format, a...)
}

// Transientf returns a transient provider error
func Transientf(format string, a ...any) error {
	return Newf(ErrorCodeTransientProvider, format, a...)
}

// PollTimeoutf returns a poll timeout error
func PollTimeoutf(format string, a ...any) error { return Newf(ErrorCodePollTimeout, format, a...) }

// JobFailedf returns a provider job failed error
func JobFailedf(format string, a ...any) error { return Newf(ErrorCodeProviderJobFailed, format, a...) }

// HTTP bundles status + wire in one shot (nice for handlers)
func HTTP(err error) (int, Wire) {
	if err == nil {
		return http.StatusOK, Wire{}
	}
	return HTTPStatus(err), WireFrom(err)
}

// Retry semantics

// IsTransient reports whether err is worth retrying against a provider
// context cancellation is never transient
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch CodeOf(err) {
	case ErrorCodeTransientProvider, ErrorCodeUnavailable, ErrorCodeTooManyRequests:
		return true
	}
	return false
}

// Retryable reports whether the error is retryable. Delegates to backend-specific logic.
func Retryable(err error) bool { return IsTransient(err) || IsRetryable(err) }
