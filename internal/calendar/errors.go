package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// GatewayError is a failed call to the remote calendar. StatusCode is zero
// when no response was received.
type GatewayError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error

	// permanent marks answers that will not change on retry.
	permanent bool
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("calendar %s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("calendar %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Transient reports whether repeating the call may succeed.
func (e *GatewayError) Transient() bool {
	switch {
	case e.permanent:
		return false
	case errors.Is(e.Err, context.Canceled), errors.Is(e.Err, context.DeadlineExceeded):
		return false
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == http.StatusRequestTimeout:
		return true
	default:
		return e.StatusCode >= 500
	}
}

// newGatewayError wraps err, lifting status and body out of a googleapi.Error.
func newGatewayError(op string, err error) error {
	if err == nil {
		return nil
	}
	ge := &GatewayError{Op: op, Err: err}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		ge.StatusCode = apiErr.Code
		ge.Body = apiErr.Body
		if ge.Body == "" {
			ge.Body = apiErr.Message
		}
	}
	return ge
}

// badResponse reports a response that was received but cannot be used.
func badResponse(op string, err error) error {
	return &GatewayError{Op: op, Err: err, permanent: true}
}

// IsNotFound reports whether err means the event does not exist (any more).
func IsNotFound(err error) bool {
	var ge *GatewayError
	if !errors.As(err, &ge) {
		return false
	}
	return ge.StatusCode == http.StatusNotFound || ge.StatusCode == http.StatusGone
}

// IsTransient reports whether err is a GatewayError worth retrying.
func IsTransient(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Transient()
}
