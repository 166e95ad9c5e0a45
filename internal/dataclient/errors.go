package dataclient

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport covers requests that could not be made or completed,
	// including non-2xx answers.
	ErrTransport = errors.New("transport error")
	// ErrMalformedResponse covers bodies that are not the expected JSON.
	ErrMalformedResponse = errors.New("malformed response")
)

// Error is returned by every Client call that fails.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// KindOf returns ErrTransport, ErrMalformedResponse or nil.
func KindOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMalformedResponse):
		return ErrMalformedResponse
	case errors.Is(err, ErrTransport):
		return ErrTransport
	default:
		return nil
	}
}

func transportErr(op string, err error) error {
	return &Error{Op: op, Kind: ErrTransport, Err: err}
}

func malformedErr(op string, err error) error {
	return &Error{Op: op, Kind: ErrMalformedResponse, Err: err}
}
