package guild

import (
	"errors"
	"fmt"
)

// Kind classifies a guild operation failure.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindPermissionDenied   Kind = "permission_denied"
	KindPreconditionFailed Kind = "precondition_failed"
	KindConflict           Kind = "conflict"
)

// Error is a structured domain failure: a stable kind plus a
// human-readable reason the caller can surface directly.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Reason
}

// NotFoundf builds a KindNotFound error.
func NotFoundf(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Reason: fmt.Sprintf(format, args...)}
}

// Deniedf builds a KindPermissionDenied error.
func Deniedf(format string, args ...interface{}) error {
	return &Error{Kind: KindPermissionDenied, Reason: fmt.Sprintf(format, args...)}
}

// Failedf builds a KindPreconditionFailed error.
func Failedf(format string, args ...interface{}) error {
	return &Error{Kind: KindPreconditionFailed, Reason: fmt.Sprintf(format, args...)}
}

// Conflictf builds a KindConflict error.
func Conflictf(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Reason: fmt.Sprintf(format, args...)}
}

// KindOf returns the error's kind, or the empty string for non-domain errors.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// IsConflict reports whether err is a concurrent-write conflict.
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}
