package booking

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no booking starts at the requested time.
var ErrNotFound = errors.New("booking not found")

// ParseError is a tool argument that could not be turned into a request.
type ParseError struct {
	Op    string
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s %q: %v", e.Op, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	errMissing     = errors.New("required argument missing")
	errNotString   = errors.New("expected a string")
	errBadDate     = errors.New("unrecognised date format")
	errNeedsTime   = errors.New("a time of day is required")
	errUnknownTool = errors.New("unknown operation")
)
