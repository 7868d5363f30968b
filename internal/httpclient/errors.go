package httpclient

import (
	"errors"
	"fmt"
	"time"
)

// ErrCanceled is returned when the call was canceled by Cancel or by the
// caller's context.
var ErrCanceled = errors.New("request canceled")

// TimeoutError reports an attempt aborted at its deadline. Timeouts are
// not retried.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request aborted: timeout after %s", e.Timeout)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// NetworkError reports a transport failure.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
