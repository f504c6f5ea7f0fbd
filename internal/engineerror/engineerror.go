// Package engineerror defines the small set of error kinds the engine
// produces at its boundaries. A single wrapping type lets transport code
// dispatch on kind with errors.As instead of string-matching an ad-hoc
// {code,message} pair.
package engineerror

import "fmt"

// Kind is one of the error categories the spec names. Kinds are stable
// wire identifiers; do not renumber.
type Kind string

const (
	Unauthenticated Kind = "unauthenticated"
	Unauthorized    Kind = "unauthorized"
	RateLimited     Kind = "rate-limited"
	InvalidArgument Kind = "invalid-argument"
	IllegalAction   Kind = "illegal-action"
	TableFull       Kind = "table-full"
	TableNotFound   Kind = "table-not-found"
	NotInHand       Kind = "not-in-hand"
	AlreadySeated   Kind = "already-seated"
	Internal        Kind = "internal"
)

// Error is the engine's single error type: a kind plus an optional
// wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around an existing cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error,
// defaulting to Internal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if ok := As(err, &e); ok {
		return e.Kind
	}
	return Internal
}

// As is a thin errors.As wrapper kept local so callers don't need to
// import both packages for the common case.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
