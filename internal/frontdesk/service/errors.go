package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrDuplicateVisitor = errors.New("duplicate visitor")
	ErrNotFound         = errors.New("not found")
	ErrNoPriorVisit     = fmt.Errorf("%w: no prior visit", ErrNotFound)
	ErrNotSignedIn      = fmt.Errorf("%w: not signed in", ErrNotFound)
	ErrBanned           = errors.New("visitor is banned")
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrForbidden        = errors.New("forbidden")
)

const (
	msgBanned          = "This visitor is banned and cannot log in."
	msgInvalidEntry    = "Invalid or future entry time provided."
	msgVisitorNotFound = "Visitor not found."
)

// Error carries a user-facing message alongside one of the sentinels above.
// errors.Is matches the sentinel.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Message returns the user-facing text carried by err, or "" if it has none.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}

func duplicateError(first, last string) *Error {
	return newError(ErrDuplicateVisitor,
		"A visitor named %s %s already exists. Please use the search to sign them in.", first, last)
}
