// Package apperr defines the typed error kinds returned across the core.
// Every authorization, validation and state failure carries a Kind so the
// transport layer can translate it without string matching.
package apperr

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type Kind int

const (
	Internal Kind = iota
	Forbidden
	InvalidTransition
	Validation
	EscalationDenied
	ExpiredOrExhausted
	Conflict
	NotFound
	Unavailable
)

var kindNames = map[Kind]string{
	Internal:           "internal",
	Forbidden:          "forbidden",
	InvalidTransition:  "invalid_transition",
	Validation:         "validation_error",
	EscalationDenied:   "escalation_denied",
	ExpiredOrExhausted: "expired_or_exhausted",
	Conflict:           "conflict",
	NotFound:           "not_found",
	Unavailable:        "unavailable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the concrete error type. Message is safe to show to end users.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether the caller may retry. Only Unavailable is.
func Retryable(err error) bool {
	return Is(err, Unavailable)
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// FromStore classifies an error returned by the backing store. Deadlines and
// cancellations become Unavailable, missing rows become NotFound, anything
// already typed passes through.
func FromStore(err error, what string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Wrap(Unavailable, "store unavailable, retry later", err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(NotFound, what+" not found", err)
	default:
		return Wrap(Internal, "loading "+what, err)
	}
}
