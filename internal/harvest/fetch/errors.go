package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a failed upstream request.
type Error struct {
	URL string
	// Status is the HTTP status, or 0 when no response arrived.
	Status    int
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("GET %s -> %d", e.URL, e.Status)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// statusError classifies a non-200 response. Rate limiting and server errors
// are worth retrying; anything else is final.
func statusError(url string, status int) *Error {
	return &Error{
		URL:       url,
		Status:    status,
		Retryable: status == http.StatusTooManyRequests || status >= http.StatusInternalServerError,
	}
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Status == http.StatusNotFound
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}
