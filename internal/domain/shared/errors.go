package shared

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind classifies a failure for retry and accounting decisions.
type Kind int

const (
	// KindUnknown is the zero value; treated as permanent.
	KindUnknown Kind = iota
	// KindTransient covers network timeouts, 5xx, 429 and optimistic conflicts.
	KindTransient
	// KindValidation covers bad input and schema violations on our side.
	KindValidation
	// KindIntegrity covers unique constraint and foreign key violations.
	KindIntegrity
	// KindAuth covers authentication/authorization failures; fatal for a run.
	KindAuth
	// KindSchemaDrift covers responses that no longer match the expected shape.
	KindSchemaDrift
	// KindLockHeld means another holder owns the distributed lock.
	KindLockHeld
	// KindCancelled is cooperative cancellation; never counted as failure.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	case KindIntegrity:
		return "integrity"
	case KindAuth:
		return "auth"
	case KindSchemaDrift:
		return "schema_drift"
	case KindLockHeld:
		return "lock_held"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ClassifiedError carries a failure kind alongside the underlying cause and,
// for remote failures, the raw payload for diagnostics.
type ClassifiedError struct {
	Kind    Kind
	Op      string
	Message string
	Payload string
	Err     error
	// RetryAfter is a server-supplied wait interval on throttled responses;
	// zero when the server did not provide one.
	RetryAfter time.Duration
}

func (e *ClassifiedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

func newClassified(kind Kind, op, message string, err error) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Op: op, Message: message, Err: err}
}

// NewTransientError marks a failure as retryable.
func NewTransientError(op, message string, err error) *ClassifiedError {
	return newClassified(KindTransient, op, message, err)
}

// NewValidationError marks a failure as permanent bad input.
func NewValidationError(op, message string) *ClassifiedError {
	return newClassified(KindValidation, op, message, nil)
}

// NewIntegrityError marks a constraint violation.
func NewIntegrityError(op, message string, err error) *ClassifiedError {
	return newClassified(KindIntegrity, op, message, err)
}

// NewAuthError marks an authentication failure; callers must abort the run.
func NewAuthError(op, message string) *ClassifiedError {
	return newClassified(KindAuth, op, message, nil)
}

// NewSchemaDriftError marks an unexpected response shape; payload is kept for logging.
func NewSchemaDriftError(op, message, payload string) *ClassifiedError {
	e := newClassified(KindSchemaDrift, op, message, nil)
	e.Payload = payload
	return e
}

// NewLockHeldError signals that another holder owns the named lock.
func NewLockHeldError(name, holder string) *ClassifiedError {
	return newClassified(KindLockHeld, "lock", fmt.Sprintf("%s held by %s", name, holder), nil)
}

// Classify returns the failure kind of err, unwrapping as needed.
// Context cancellation maps to KindCancelled; anything unrecognized is KindUnknown.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindUnknown
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return Classify(err) == KindTransient
}

// IsCancelled reports whether err is cooperative cancellation.
func IsCancelled(err error) bool {
	return Classify(err) == KindCancelled
}
