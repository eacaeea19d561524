// Package errors implements the retrieval engine's error taxonomy: a small
// set of kinds rather than per-call custom types, so callers can branch on
// the Kind with this package's Is, or with errors.Is against an *Error
// carrying that Kind.
package errors

import (
	goerrors "errors"
	"fmt"
)

// Kind names one error family. BudgetExceeded and CacheMiss are never
// wrapped as errors; both are normal, recorded outcomes rather than
// failures, but the constants exist so callers that log transitions can
// label them consistently.
type Kind string

const (
	KindInputValidation Kind = "input_validation"
	KindEmbedding       Kind = "embedding"
	KindVectorStore     Kind = "vector_store"
	KindStorage         Kind = "storage"
	KindBudgetExceeded  Kind = "budget_exceeded"
	KindCacheMiss       Kind = "cache_miss"
	KindCacheCorruption Kind = "cache_corruption"
	KindGateFailure     Kind = "gate_failure"
)

// Error wraps an underlying cause with a Kind, the operation that failed,
// and whether retrying the same operation might succeed.
type Error struct {
	Kind      Kind
	Op        string
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &Error{Kind: KindStorage}) match any *Error of the
// same Kind, whatever its Op and Err. For a bare Kind, use the package-level
// Is(err, k).
func (e *Error) Is(target error) bool {
	var k *Error
	if goerrors.As(target, &k) {
		return e.Kind == k.Kind
	}
	return false
}

// New constructs an *Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Retryable marks an *Error as retryable in place and returns it, for
// fluent construction: errors.Retryable(errors.New(...)).
func Retryable(e *Error) *Error {
	e.Retryable = true
	return e
}

// Is reports whether err is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if !goerrors.As(err, &e) {
		return false
	}
	return e.Kind == k
}

// IsRetryable reports whether err is an *Error explicitly marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	if !goerrors.As(err, &e) {
		return false
	}
	return e.Retryable
}
