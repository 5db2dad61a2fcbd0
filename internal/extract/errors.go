package extract

import (
	"fmt"
	"time"
)

// TransportError is a network-level failure (DNS, connection, timeout)
// before any HTTP status was received. Retryable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// AuthError means the upstream rejected the credential. Fatal to the run,
// never retried.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth rejected (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// ThrottledError is an upstream rate-limit response. Retryable after the
// server-indicated delay, when one was given.
type ThrottledError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, truncate(e.Message, 200))
}

// UpstreamError is any other unexpected upstream response: a non-2xx
// status outside the auth/throttle cases, or a 200 whose body could not
// be used. Not retried by default.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, truncate(e.Message, 200))
}

// ParseError means no usable JSON could be located in the model's
// response text. Raw preserves the full response for diagnosis.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no purchase order json in response: %v (raw: %s)", e.Err, truncate(e.Raw, 200))
	}
	return fmt.Sprintf("no purchase order json in response (raw: %s)", truncate(e.Raw, 200))
}

func (e *ParseError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
