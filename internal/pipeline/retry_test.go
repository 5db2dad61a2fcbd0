package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dgallion1/poextract/internal/extract"
	"github.com/dgallion1/poextract/internal/raster"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport", &extract.TransportError{Err: errors.New("timeout")}, true},
		{"throttled", &extract.ThrottledError{RetryAfter: time.Second}, true},
		{"wrapped transport", fmt.Errorf("call: %w", &extract.TransportError{Err: errors.New("reset")}), true},
		{"auth", &extract.AuthError{StatusCode: 401}, false},
		{"upstream", &extract.UpstreamError{StatusCode: 500}, false},
		{"parse", &extract.ParseError{Raw: "x"}, false},
		{"decode", &raster.DecodeError{Reason: "bad"}, false},
		{"plain", errors.New("nope"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryable(tc.err); got != tc.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestDelay_HonorsRetryAfter(t *testing.T) {
	err := &extract.ThrottledError{RetryAfter: 9 * time.Second}
	if got := Delay(err, 0, time.Second); got != 9*time.Second {
		t.Errorf("Delay = %v, want server-indicated 9s", got)
	}
}

func TestDelay_ExponentialWithJitter(t *testing.T) {
	err := &extract.TransportError{Err: errors.New("timeout")}
	base := time.Second
	for attempt := uint(0); attempt < 4; attempt++ {
		d := Delay(err, attempt, base)
		min := base << attempt
		max := min + min/2
		if d < min || d > max {
			t.Errorf("attempt %d: delay %v outside [%v, %v]", attempt, d, min, max)
		}
	}
}

func TestDelay_Capped(t *testing.T) {
	err := &extract.TransportError{Err: errors.New("timeout")}
	d := Delay(err, 40, time.Second)
	if d > maxBackoff+maxBackoff/2 {
		t.Errorf("delay %v exceeds cap with jitter", d)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&raster.DecodeError{Reason: "not a pdf"}, FailDocumentDecode},
		{&extract.AuthError{StatusCode: 401}, FailAuth},
		{&extract.ThrottledError{}, FailThrottled},
		{&extract.TransportError{Err: errors.New("x")}, FailTransport},
		{&extract.UpstreamError{StatusCode: 503}, FailUpstream},
		{&extract.ParseError{Raw: "prose"}, FailParse},
		{context.Canceled, FailCanceled},
		{context.DeadlineExceeded, FailCanceled},
		{extract.ErrNoPages, FailRequestBuild},
		{errors.New("mystery"), FailUpstream},
	}
	for _, tc := range tests {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
