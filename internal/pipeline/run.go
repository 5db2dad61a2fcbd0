package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/poextract/internal/extract"
)

// RunStatus is the state of an extraction run. The progression is
// received -> rasterized -> request_built -> submitted -> succeeded or
// failed; failed is terminal and never re-run automatically.
type RunStatus string

const (
	StatusReceived     RunStatus = "received"
	StatusRasterized   RunStatus = "rasterized"
	StatusRequestBuilt RunStatus = "request_built"
	StatusSubmitted    RunStatus = "submitted"
	StatusSucceeded    RunStatus = "succeeded"
	StatusFailed       RunStatus = "failed"
)

// Failure kinds surfaced to callers. "run failed, no data" and "run
// succeeded, some fields null" are distinct outcomes: the latter is a
// succeeded run whose record carries flagged fields.
const (
	FailDocumentDecode = "document_decode"
	FailRequestBuild   = "request_build"
	FailTransport      = "transport"
	FailAuth           = "auth"
	FailThrottled      = "throttled"
	FailUpstream       = "upstream"
	FailParse          = "parse"
	FailCanceled       = "canceled"
	FailQueueFull      = "queue_full"
)

// Result is the outcome of a run: exactly one of Record or the error
// fields is populated.
type Result struct {
	Record    *extract.PurchaseOrderRecord `json:"record,omitempty"`
	ErrorKind string                       `json:"error_kind,omitempty"`
	Error     string                       `json:"error,omitempty"`
	RawText   string                       `json:"raw_text,omitempty"`
}

// Run tracks one end-to-end extraction of a single document. The
// document bytes live only for the duration of the run.
type Run struct {
	mu sync.Mutex

	ID       string       `json:"run_id"`
	Filename string       `json:"filename"`
	Mode     extract.Mode `json:"mode"`

	Status    RunStatus `json:"status"`
	Phase     string    `json:"phase"`
	PageCount int       `json:"page_count"`
	Attempts  int       `json:"attempts"`

	Result *Result `json:"result,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized, discarded after processing.
	pdfData []byte
}

// NewRun builds a queued run for an uploaded document.
func NewRun(filename string, mode extract.Mode, data []byte) *Run {
	now := time.Now()
	return &Run{
		ID:        ContentHashHex([]byte(fmt.Sprintf("%s-%d-%d", filename, len(data), now.UnixNano())))[:20],
		Filename:  filename,
		Mode:      mode,
		Status:    StatusReceived,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		pdfData:   data,
	}
}

// SetStatus updates run state atomically.
func (r *Run) SetStatus(status RunStatus, phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	r.Phase = phase
	r.UpdatedAt = time.Now()
}

// SetPageCount records how many pages the rasterizer produced.
func (r *Run) SetPageCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.PageCount = n
	r.UpdatedAt = time.Now()
}

// IncrAttempts counts one upstream attempt.
func (r *Run) IncrAttempts() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Attempts++
	r.UpdatedAt = time.Now()
}

// Succeed finishes the run with a record. The document bytes are
// released.
func (r *Run) Succeed(rec *extract.PurchaseOrderRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Result = &Result{Record: rec}
	r.Status = StatusSucceeded
	r.Phase = "done"
	r.pdfData = nil
	r.UpdatedAt = time.Now()
}

// Fail terminates the run with an error kind. rawText carries the
// upstream response for parse failures so the operator can inspect it.
func (r *Run) Fail(kind, msg, rawText string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Result = &Result{ErrorKind: kind, Error: msg, RawText: rawText}
	r.Status = StatusFailed
	r.Phase = kind
	r.pdfData = nil
	r.UpdatedAt = time.Now()
}

// PDFData returns the raw document bytes.
func (r *Run) PDFData() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pdfData
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID        string       `json:"run_id"`
	Filename  string       `json:"filename"`
	Mode      extract.Mode `json:"mode"`
	Status    RunStatus    `json:"status"`
	Phase     string       `json:"phase"`
	PageCount int          `json:"page_count"`
	Attempts  int          `json:"attempts"`
	Result    *Result      `json:"result,omitempty"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RunSnapshot{
		ID:        r.ID,
		Filename:  r.Filename,
		Mode:      r.Mode,
		Status:    r.Status,
		Phase:     r.Phase,
		PageCount: r.PageCount,
		Attempts:  r.Attempts,
		Result:    r.Result,
	}
}

// RunStore is a thread-safe in-memory run registry with TTL eviction.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	return &RunStore{
		runs: make(map[string]*Run),
		ttl:  ttl,
	}
}

func (s *RunStore) Put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// Cleanup removes expired runs.
func (s *RunStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, run := range s.runs {
		if now.Sub(run.UpdatedAt) > s.ttl {
			delete(s.runs, id)
		}
	}
}

// ContentHashHex computes SHA-256 of content and returns the hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
