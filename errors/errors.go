package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which registry operation the error occurred in
type Phase string

const (
	PhaseAllocate Phase = "allocate" // id allocation
	PhaseCreate   Phase = "create"   // entry creation
	PhaseClone    Phase = "clone"    // handle cloning
	PhaseAccess   Phase = "access"   // payload guard acquisition
	PhaseDrop     Phase = "drop"     // handle release
	PhaseClose    Phase = "close"    // registry shutdown
)

// Kind categorizes the error
type Kind string

const (
	// KindExhausted signals the id space is used up. Recoverable:
	// the caller may retry after dropping handles.
	KindExhausted Kind = "exhausted"

	// KindInvariant signals a reference-count or ownership bug, such as
	// accessing an id that is no longer live. Never recoverable.
	KindInvariant Kind = "invariant_violation"

	KindNotFound     Kind = "not_found"
	KindClosed       Kind = "closed"
	KindInvalidInput Kind = "invalid_input"
)

// Error is the structured error type used throughout the registry
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Id     uint32
	HasId  bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.HasId {
		fmt.Fprintf(&b, " id=%d", e.Id)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsFatal reports whether err is an invariant violation. Fatal errors
// indicate a programming bug in handle lifetime management and must not
// be retried.
func IsFatal(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindInvariant
}

// IsExhausted reports whether err is an id-space exhaustion error.
func IsExhausted(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindExhausted
}

// Convenience constructors for common error patterns

// Exhausted creates an id-space exhaustion error
func Exhausted(phase Phase, capacity uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindExhausted,
		Detail: fmt.Sprintf("id space exhausted (capacity %d)", capacity),
	}
}

// Invariant creates an invariant-violation error for the given id
func Invariant(phase Phase, id uint32, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvariant,
		Id:     id,
		HasId:  true,
		Detail: detail,
	}
}

// Closed creates an error for operations on a closed registry
func Closed(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: "registry closed",
	}
}

// NotFound creates a not-found error for the given id
func NotFound(phase Phase, id uint32) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindNotFound,
		Id:    id,
		HasId: true,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with registry context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
