package extract

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// Call outcomes tracked per sample. "ok" is a usable response; the rest
// mirror the error taxonomy in errors.go.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport"
	OutcomeAuth      = "auth"
	OutcomeThrottled = "throttled"
	OutcomeUpstream  = "upstream"
)

// Outcome classifies the result of one model call for stats purposes.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return OutcomeTransport
	}
	var auth *AuthError
	if errors.As(err, &auth) {
		return OutcomeAuth
	}
	var throttled *ThrottledError
	if errors.As(err, &throttled) {
		return OutcomeThrottled
	}
	return OutcomeUpstream
}

type sample struct {
	timestamp  time.Time
	durationMs int64
	outcome    string
}

// StatsSnapshot is a point-in-time aggregate of model call latencies
// within the rolling window. Outcomes breaks the count down by result
// class, so throttling shows up distinctly from transport flakiness.
type StatsSnapshot struct {
	Count    int            `json:"count"`
	Failures int            `json:"failures"`
	Outcomes map[string]int `json:"outcomes"`
	MinMs    int64          `json:"min_ms"`
	MaxMs    int64          `json:"max_ms"`
	AvgMs    float64        `json:"avg_ms"`
	P50Ms    float64        `json:"p50_ms"`
	P95Ms    float64        `json:"p95_ms"`
	P99Ms    float64        `json:"p99_ms"`
}

// CallStats tracks recent vision-model call latencies and outcomes
// within a rolling window.
type CallStats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewCallStats(maxAge time.Duration) *CallStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &CallStats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
	}
}

func (s *CallStats) Record(durationMs int64, outcome string) {
	if durationMs < 0 {
		durationMs = 0
	}
	if outcome == "" {
		outcome = OutcomeOK
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, sample{
		timestamp:  now,
		durationMs: durationMs,
		outcome:    outcome,
	})
}

func (s *CallStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	if len(s.samples) == 0 {
		return StatsSnapshot{Outcomes: map[string]int{}}
	}

	values := make([]int64, 0, len(s.samples))
	outcomes := make(map[string]int, 4)
	var sum int64
	failures := 0
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		outcomes[sm.outcome]++
		if sm.outcome != OutcomeOK {
			failures++
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return StatsSnapshot{
		Count:    len(values),
		Failures: failures,
		Outcomes: outcomes,
		MinMs:    values[0],
		MaxMs:    values[len(values)-1],
		AvgMs:    float64(sum) / float64(len(values)),
		P50Ms:    percentile(values, 50),
		P95Ms:    percentile(values, 95),
		P99Ms:    percentile(values, 99),
	}
}

func (s *CallStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	writeIdx := 0
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			s.samples[writeIdx] = sm
			writeIdx++
		}
	}
	s.samples = s.samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
