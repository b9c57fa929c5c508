// Package fault defines the error taxonomy surfaced by lifecycle operations.
// Every failure a caller sees is one of four kinds, each carrying a short
// human-readable reason suitable for direct display.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindNotFound: a referenced task, instance, activity or definition is
	// absent or already terminal.
	KindNotFound Kind = iota + 1

	// KindForbidden: the actor lacks authority for the requested mutation.
	KindForbidden

	// KindConflict: a concurrent-claim race was lost.
	KindConflict

	// KindBusiness: a domain rule was violated.
	KindBusiness
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindBusiness:
		return "business"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Reason is user-facing; Cause, if set, is the
// underlying error and takes part in errors.Is/errors.As chains.
type Error struct {
	Kind   Kind
	Reason string
	Cause  error
}

var _ error = (*Error)(nil)

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NotFound(reason string) error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

func Forbidden(reason string) error {
	return &Error{Kind: KindForbidden, Reason: reason}
}

func Conflict(reason string) error {
	return &Error{Kind: KindConflict, Reason: reason}
}

func Business(reason string) error {
	return &Error{Kind: KindBusiness, Reason: reason}
}

// Wrap classifies an underlying error. A nil err yields nil.
func Wrap(kind Kind, reason string, err error) error {
	if err == nil {
		return nil
	}

	return &Error{Kind: kind, Reason: reason, Cause: err}
}

// FromEngine maps an error returned by the execution engine onto the taxonomy.
// Errors that are already classified pass through unchanged; everything else
// is wrapped as Business, the catch-all for engine-internal failures.
func FromEngine(reason string, err error) error {
	if err == nil {
		return nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		return err
	}

	return &Error{Kind: KindBusiness, Reason: reason, Cause: err}
}

// KindOf returns the kind of err, or 0 if err carries no classification.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}

	return 0
}

func IsNotFound(err error) bool  { return KindOf(err) == KindNotFound }
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }
func IsConflict(err error) bool  { return KindOf(err) == KindConflict }
func IsBusiness(err error) bool  { return KindOf(err) == KindBusiness }
