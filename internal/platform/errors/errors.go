// Package errors provides a structured error type with wrapping and metadata
package errors

// Always import the project errors package as perr (platform/errors)

import (
	stderrs "errors"
	"fmt"
)

// ErrorCode classifies every way a resolution can terminate
// Values are stable for wire compatibility; add sparingly
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodePanic is for panics recovered by middleware
	ErrorCodePanic

	// ErrorCodeInvalidURL is for inputs that do not parse as absolute web URIs
	ErrorCodeInvalidURL

	// ErrorCodePolicyOrigin is for origin domains rejected before probing
	ErrorCodePolicyOrigin

	// ErrorCodePolicyDestination is for final domains missing from the whitelist
	ErrorCodePolicyDestination

	// ErrorCodeNetwork is for outbound HEAD/GET timeouts and connection failures
	ErrorCodeNetwork

	// ErrorCodeHTMLParse is for bodies that cannot be parsed as HTML
	ErrorCodeHTMLParse

	// ErrorCodeUpstreamStatus is for upstream replies with status >= 400
	ErrorCodeUpstreamStatus

	// ErrorCodeContentType is for missing or non-HTML content types
	ErrorCodeContentType

	// ErrorCodeContentTooLarge is for bodies beyond the configured maximum
	ErrorCodeContentTooLarge

	// ErrorCodeFetchDisabled is for requests where content fetching is off
	ErrorCodeFetchDisabled

	// ErrorCodeNoCanonical is the soft outcome of a page without canonical metadata
	ErrorCodeNoCanonical
)

// Error is the structured error type with wrapping and metadata
// msg is human/developer facing; code is machine facing
// op is an optional operation tag; orig is the wrapped cause
type Error struct {
	orig error
	msg  string
	code ErrorCode
	op   string
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

// Op returns the operation label, if set
func (e *Error) Op() string { return e.op }

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

// Soft reports whether err is a successful resolution outcome rather than
// a failure; absence of canonical metadata is the only such case
func Soft(err error) bool { return IsCode(err, ErrorCodeNoCanonical) }

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// WithOp attaches an operation label to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithOp(err error, op string) error {
	if e, ok := As(err); ok {
		c := *e
		c.op = op
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

// Sugar

// InvalidURLf returns an invalid input URL error
func InvalidURLf(format string, a ...any) error { return Newf(ErrorCodeInvalidURL, format, a...) }

// Networkf returns a network error
func Networkf(format string, a ...any) error { return Newf(ErrorCodeNetwork, format, a...) }

// PanicErrf returns a panic error
func PanicErrf(format string, a ...any) error { return Newf(ErrorCodePanic, format, a...) }
