// Package errors defines the structured error returned by every public SDK
// operation.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an SDK failure so callers can branch without string matching.
type Kind string

const (
	KindTransport       Kind = "transport"
	KindTimeout         Kind = "timeout"
	KindExecutionFailed Kind = "execution_failed"
	KindConfig          Kind = "config"
	KindValidation      Kind = "validation"
	KindCanceled        Kind = "canceled"
)

// Sentinels for errors.Is. Matching is by Kind only.
var (
	ErrTransport       = &Error{Kind: KindTransport}
	ErrTimeout         = &Error{Kind: KindTimeout}
	ErrExecutionFailed = &Error{Kind: KindExecutionFailed}
	ErrConfig          = &Error{Kind: KindConfig}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrCanceled        = &Error{Kind: KindCanceled}
)

// Error carries the failure kind, an optional HTTP status code (0 when absent)
// and an optional details payload such as a decoded API error body or the last
// workflow run snapshot.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Details    any
	Err        error
}

// New creates an error without an underlying cause.
func New(kind Kind, message string, statusCode int, details any) *Error {
	return &Error{Kind: kind, Message: message, StatusCode: statusCode, Details: details}
}

// Wrap creates an error of the given kind around cause. An empty message
// falls back to the cause's text.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// WithStatus returns a copy carrying the status code.
func (e *Error) WithStatus(code int) *Error {
	cp := *e
	cp.StatusCode = code
	return &cp
}

// WithDetails returns a copy carrying the details payload.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// Error renders "message (status code: N) (details: <json>)", omitting the
// parts that are absent.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(e.text())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status code: %d)", e.StatusCode)
	}
	if e.Details != nil {
		if raw, err := json.Marshal(e.Details); err == nil {
			fmt.Fprintf(&b, " (details: %s)", raw)
		} else {
			fmt.Fprintf(&b, " (details: %v)", e.Details)
		}
	}
	return b.String()
}

func (e *Error) text() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind) + " error"
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error with the same Kind, which makes the package sentinels
// usable with errors.Is.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when none.
func KindOf(err error) Kind {
	var sdkErr *Error
	if errors.As(err, &sdkErr) && sdkErr != nil {
		return sdkErr.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// StatusCodeOf returns the status code of the first *Error in err's chain.
func StatusCodeOf(err error) int {
	var sdkErr *Error
	if errors.As(err, &sdkErr) && sdkErr != nil {
		return sdkErr.StatusCode
	}
	return 0
}
