package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the credential is missing, invalid or expired.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the principal may not use the endpoint, typically an
	// account still pending approval or disapproved.
	ErrForbidden = errors.New("forbidden")
)

// Error is a failed round trip. Status is zero when no response arrived.
type Error struct {
	Method    string
	Path      string
	Status    int
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: request failed", e.Method, e.Path)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient failure: a timeout, a
// network error or a 5xx.
func IsRetryable(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Retryable
}

// Message returns the server-provided message of err, if any.
func Message(err error) string {
	var re *Error
	if errors.As(err, &re) {
		return re.Message
	}
	return ""
}

// StatusCode returns the HTTP status of err, or zero.
func StatusCode(err error) int {
	var re *Error
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}
