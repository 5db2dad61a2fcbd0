package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/poextract/internal/config"
	"github.com/dgallion1/poextract/internal/extract"
)

// Orchestrator owns the run store and the worker pool. Runs never share
// mutable state with each other; the only shared pieces are the
// read-only configuration and the clients.
type Orchestrator struct {
	runs   *RunStore
	queue  chan *Run
	worker *Worker
	log    *slog.Logger
	cfg    config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewOrchestrator(cfg config.Config, r Rasterizer, model extract.VisionModel, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		runs:   NewRunStore(cfg.RunTTL),
		queue:  make(chan *Run, cfg.MaxQueueSize),
		worker: NewWorker(r, model, log, cfg.MaxRetries, cfg.RetryBaseDelay),
		log:    log,
		cfg:    cfg,
	}
}

// Start launches worker goroutines and the store cleanup loop.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case run, ok := <-o.queue:
					if !ok {
						return
					}
					o.worker.Process(workerCtx, run)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.runs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline. Submissions arriving after
// Stop fail cleanly instead of racing the queue close.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()
	o.wg.Wait()
}

// Submit queues a run for asynchronous processing.
func (o *Orchestrator) Submit(run *Run) error {
	o.runs.Put(run)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		run.Fail(FailCanceled, "service is shutting down", "")
		return fmt.Errorf("service is shutting down")
	}
	select {
	case o.queue <- run:
		return nil
	default:
		run.Fail(FailQueueFull, fmt.Sprintf("run queue is full (%d)", o.cfg.MaxQueueSize), "")
		return fmt.Errorf("run queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// Execute processes a run synchronously on the caller's goroutine. Used
// by one-shot callers that want the result in the response. The run is
// still registered so it can be fetched again before the TTL expires.
func (o *Orchestrator) Execute(ctx context.Context, run *Run) {
	o.runs.Put(run)
	o.worker.Process(ctx, run)
}

// GetRun returns a run by ID, or nil.
func (o *Orchestrator) GetRun(id string) *Run {
	return o.runs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
