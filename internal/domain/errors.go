package domain

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Kind classifies failures produced by the gateway, the weather pipeline and
// request validation. The HTTP layer maps each kind to exactly one status.
type Kind string

const (
	KindUnknown       Kind = ""
	KindNotConfigured Kind = "not_configured"
	KindValidation    Kind = "validation"
	KindMissingInput  Kind = "missing_input"
	KindInvalidCity   Kind = "invalid_city"
	KindInvalidFacts  Kind = "invalid_facts"
	KindEmptyResult   Kind = "empty_result"
	KindNoImage       Kind = "no_image"
	KindUpstream      Kind = "upstream"
	KindTimeout       Kind = "timeout"
)

var (
	ErrNotConfigured = &Error{Kind: KindNotConfigured, Message: "GEMINI_API_KEY not configured"}
	ErrEmptyResult   = &Error{Kind: KindEmptyResult, Message: "No image generated from Gemini API"}
)

// Error carries a Kind alongside a client-safe message and the optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two *Error values by kind so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Errorf builds a kinded error without a wrapped cause.
func Errorf(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err. Deadline and network timeouts are reported as
// KindTimeout when the error is unclassified or an upstream failure.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	kind := KindUnknown
	var de *Error
	if errors.As(err, &de) {
		kind = de.Kind
	}
	if (kind == KindUnknown || kind == KindUpstream) && isTimeout(err) {
		return KindTimeout
	}
	return kind
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	// gateways in front of Gemini sometimes only report it in the message body
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
