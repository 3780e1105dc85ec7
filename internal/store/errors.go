package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by mutations when no task has the given id.
	ErrNotFound = errors.New("task not found")
	// ErrUnavailable matches any *Error (the backend could not be reached).
	ErrUnavailable = errors.New("task store unavailable")
	// ErrTextRequired is returned when a task would have empty text.
	ErrTextRequired = errors.New("task text required")
)

// InvalidDateError reports a date that is not a YYYY-MM-DD calendar date.
type InvalidDateError struct {
	Date string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q (want YYYY-MM-DD)", e.Date)
}

// Error is a transport or backend failure. errors.Is(err, ErrUnavailable) is true for it.
type Error struct {
	Backend string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s store: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrUnavailable }

// Unavailable wraps err as a backend failure unless it already is a domain error.
func Unavailable(backend, op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrTextRequired) {
		return err
	}
	var ide *InvalidDateError
	if errors.As(err, &ide) {
		return err
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Backend: backend, Op: op, Err: err}
}
