package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/dgallion1/poextract/internal/extract"
	"github.com/dgallion1/poextract/internal/raster"
)

// Rasterizer is the page-rendering capability the worker needs.
type Rasterizer interface {
	Render(ctx context.Context, pdf []byte) ([]raster.PageImage, error)
}

// Worker executes extraction runs. It holds only read-only
// configuration and shared clients, so concurrent runs stay isolated.
type Worker struct {
	raster Rasterizer
	model  extract.VisionModel
	log    *slog.Logger

	maxRetries int
	baseDelay  time.Duration
}

func NewWorker(r Rasterizer, model extract.VisionModel, log *slog.Logger, maxRetries int, baseDelay time.Duration) *Worker {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Worker{
		raster:     r,
		model:      model,
		log:        log,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Process runs the full extraction for a run: rasterize, build the
// request, call the model (with retries for transport and throttle
// errors only), parse the response. Decode and request-building errors
// abort immediately; a failed run is terminal.
func (w *Worker) Process(ctx context.Context, run *Run) {
	log := w.log.With("run_id", run.ID, "filename", run.Filename, "mode", run.Mode)

	// Rasterize.
	run.SetStatus(StatusReceived, "rasterizing")
	pages, err := w.raster.Render(ctx, run.PDFData())
	if err != nil {
		log.Error("rasterization failed", "error", err)
		run.Fail(ErrorKind(err), err.Error(), "")
		return
	}
	run.SetPageCount(len(pages))
	run.SetStatus(StatusRasterized, "building_request")

	// Build the extraction request.
	req, err := extract.NewRequest(pages, run.Mode)
	if err != nil {
		log.Error("request build failed", "error", err)
		run.Fail(ErrorKind(err), err.Error(), "")
		return
	}
	run.SetStatus(StatusRequestBuilt, "submitting")

	// Submit, retrying transport and throttle failures up to the bound.
	run.SetStatus(StatusSubmitted, "awaiting_model")
	var rawText string
	err = retry.Do(
		func() error {
			run.IncrAttempts()
			var callErr error
			rawText, callErr = w.model.Complete(ctx, req)
			return callErr
		},
		retry.RetryIf(IsRetryable),
		retry.Attempts(uint(w.maxRetries)+1),
		retry.DelayType(func(n uint, err error, _ *retry.Config) time.Duration {
			return Delay(err, n, w.baseDelay)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("retryable model error", "attempt", n+1, "error", err)
		}),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		log.Error("model call failed", "attempts", run.Snapshot().Attempts, "error", err)
		run.Fail(ErrorKind(err), err.Error(), "")
		return
	}

	// Parse. Field-level anomalies degrade to flagged fields inside the
	// record; only an unlocatable payload fails the run, and then the
	// raw text is preserved for diagnosis.
	run.SetStatus(StatusSubmitted, "parsing")
	rec, err := extract.ParseRecord(rawText)
	if err != nil {
		var parseErr *extract.ParseError
		raw := rawText
		if errors.As(err, &parseErr) {
			raw = parseErr.Raw
		}
		log.Error("parse failed", "error", err)
		run.Fail(ErrorKind(err), err.Error(), raw)
		return
	}

	run.Succeed(rec)
	log.Info("extraction complete",
		"pages", len(pages),
		"attempts", run.Snapshot().Attempts,
		"line_items", len(rec.LineItems),
	)
}
