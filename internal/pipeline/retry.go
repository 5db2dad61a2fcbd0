package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/poextract/internal/extract"
	"github.com/dgallion1/poextract/internal/raster"
)

const maxBackoff = 30 * time.Second

// IsRetryable reports whether an upstream error is worth retrying:
// transport failures and throttling are, everything else is not.
func IsRetryable(err error) bool {
	var transport *extract.TransportError
	if errors.As(err, &transport) {
		return true
	}
	var throttled *extract.ThrottledError
	return errors.As(err, &throttled)
}

// Delay picks the wait before the next attempt. Throttling honors the
// server-indicated delay when one was given; otherwise exponential
// backoff with jitter, capped at maxBackoff. attempt is 0-indexed.
func Delay(err error, attempt uint, base time.Duration) time.Duration {
	var throttled *extract.ThrottledError
	if errors.As(err, &throttled) && throttled.RetryAfter > 0 {
		return throttled.RetryAfter
	}
	if base <= 0 {
		base = time.Second
	}
	backoff := base << attempt
	if backoff > maxBackoff || backoff <= 0 {
		backoff = maxBackoff
	}
	jitter := time.Duration(rand.Int64N(int64(backoff)/2 + 1))
	return backoff + jitter
}

// ErrorKind maps a pipeline error onto the failure taxonomy surfaced to
// callers.
func ErrorKind(err error) string {
	var decode *raster.DecodeError
	if errors.As(err, &decode) {
		return FailDocumentDecode
	}
	var auth *extract.AuthError
	if errors.As(err, &auth) {
		return FailAuth
	}
	var throttled *extract.ThrottledError
	if errors.As(err, &throttled) {
		return FailThrottled
	}
	var transport *extract.TransportError
	if errors.As(err, &transport) {
		return FailTransport
	}
	var upstream *extract.UpstreamError
	if errors.As(err, &upstream) {
		return FailUpstream
	}
	var parse *extract.ParseError
	if errors.As(err, &parse) {
		return FailParse
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FailCanceled
	}
	if errors.Is(err, extract.ErrNoPages) {
		return FailRequestBuild
	}
	return FailUpstream
}
