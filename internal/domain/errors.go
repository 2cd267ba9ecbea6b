package domain

import (
	"errors"
	"fmt"
)

// ─── Error Taxonomy ─────────────────────────────────────────────────────────
// Domain errors are values. No operation partially commits: on any error
// the pre-operation state is preserved exactly.

// Kind classifies a domain error for callers and the transport layer.
type Kind int

const (
	// KindValidation — unknown action type, out-of-range day, stale timestamp.
	KindValidation Kind = iota + 1
	// KindStateConflict — duplicate day completion, already joined, challenge full.
	KindStateConflict
	// KindNotFound — unknown user, challenge, or certificate.
	KindNotFound
	// KindPermission — operation on a challenge the caller never joined,
	// or a certificate requested before completion.
	KindPermission
	// KindConcurrency — per-key lock contention. Retryable.
	KindConcurrency
	// KindInfrastructure — persistence I/O failure. Retryable, never swallowed.
	KindInfrastructure
)

// String returns the taxonomy name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state_conflict"
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission"
	case KindConcurrency:
		return "concurrency"
	case KindInfrastructure:
		return "infrastructure"
	}
	return "unknown"
}

// Error is a classified domain error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf builds a validation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Conflictf builds a state-conflict error.
func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindStateConflict, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Permissionf builds a permission error.
func Permissionf(format string, args ...any) *Error {
	return &Error{Kind: KindPermission, Msg: fmt.Sprintf(format, args...)}
}

// Concurrencyf builds a concurrency error.
func Concurrencyf(format string, args ...any) *Error {
	return &Error{Kind: KindConcurrency, Msg: fmt.Sprintf(format, args...)}
}

// Infra wraps a persistence failure.
func Infra(msg string, err error) *Error {
	return &Error{Kind: KindInfrastructure, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or 0 for non-domain errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

// IsRetryable reports whether the caller may safely retry.
func IsRetryable(err error) bool {
	k := KindOf(err)
	return k == KindConcurrency || k == KindInfrastructure
}
