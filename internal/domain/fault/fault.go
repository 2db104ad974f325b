// Package fault defines the closed failure taxonomy shared by all domain
// services. Callers branch on the machine-readable Kind, never on message
// text; the HTTP layer maps kinds to status codes in exactly one place.
package fault

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind classifies a domain failure.
type Kind uint8

const (
	// KindInternal is the zero kind: an unexpected failure with no
	// business meaning. Errors that are not *Error report this kind.
	KindInternal Kind = iota
	// KindValidation marks missing or malformed input.
	KindValidation
	// KindNotFound marks an absent entity.
	KindNotFound
	// KindConflict marks a uniqueness or cross-entity rule violation,
	// such as the cart vendor lock or a duplicate shipping lane.
	KindConflict
	// KindAuthorization marks an actor that is not permitted to act.
	KindAuthorization
	// KindInvalidState marks an operation that is illegal in the entity's
	// current state: an illegal status transition, a wallet payment from a
	// zero balance, a vendor with no registered city.
	KindInvalidState
)

// String returns the stable wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAuthorization:
		return "authorization"
	case KindInvalidState:
		return "invalid_state"
	default:
		return "internal"
	}
}

// Error is a domain failure carrying a Kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality, so errors.Is(err, &Error{Kind: k}) holds for
// any fault of kind k regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// New creates a fault of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(err error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation creates a KindValidation fault.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

// NotFound creates a KindNotFound fault.
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

// Conflict creates a KindConflict fault.
func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

// Authorization creates a KindAuthorization fault.
func Authorization(format string, args ...any) *Error {
	return New(KindAuthorization, format, args...)
}

// InvalidState creates a KindInvalidState fault.
func InvalidState(format string, args ...any) *Error {
	return New(KindInvalidState, format, args...)
}

// Internal wraps an unexpected failure.
func Internal(err error, format string, args ...any) *Error {
	return Wrap(err, KindInternal, format, args...)
}

// KindOf extracts the Kind from err. Errors outside the taxonomy report
// KindInternal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
