// Package capturerr defines the error taxonomy shared by every stage of the
// capture pipeline: tracker, capture, change detection, extraction, and
// ingestion all classify failures into one of a small set of kinds so the
// router can decide whether to retry, suppress, or surface a failure.
package capturerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide how to react without
// string-matching error messages.
type Kind int

const (
	// KindTransientIO covers failures expected to succeed on retry: a
	// subprocess that momentarily failed to start, a socket write that hit
	// EAGAIN, a flaky OCR call.
	KindTransientIO Kind = iota
	// KindTimeout covers an operation that exceeded its deadline.
	KindTimeout
	// KindNoContent covers a window or extraction that legitimately has
	// nothing to offer (empty document, blank tab).
	KindNoContent
	// KindMalformedInput covers a payload that failed to parse or violated
	// a wire contract (bad JSON, oversized frame, non-UTF8 text).
	KindMalformedInput
	// KindPermissionDenied covers OS-level permission failures: missing
	// Accessibility or Screen Recording entitlements.
	KindPermissionDenied
	// KindFatal covers failures that should stop the daemon rather than be
	// retried: a corrupt database, an unreadable config file.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransientIO:
		return "transient_io"
	case KindTimeout:
		return "timeout"
	case KindNoContent:
		return "no_content"
	case KindMalformedInput:
		return "malformed_input"
	case KindPermissionDenied:
		return "permission_denied"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a classified, wrapped error carrying the stage that produced it.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error for the given stage.
func New(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// Wrap classifies an arbitrary error under stage with a formatted message,
// following the package's "stage: detail: %w" convention.
func Wrap(kind Kind, stage, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err (or any error it wraps) is a *Error of kind k.
func Is(err error, k Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == k
	}
	return false
}

// Retryable reports whether the error's kind is conventionally worth a
// single soft retry (TransientIO only — Timeout and PermissionDenied get a
// cooldown instead, per the router's circuit breaker).
func Retryable(err error) bool {
	return Is(err, KindTransientIO)
}
