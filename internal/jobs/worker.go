package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// JobProcessor runs one pass of a periodic job
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// WorkerOption customizes a Worker
type WorkerOption func(*Worker)

// WithPassTimeout bounds each pass. Zero leaves passes unbounded.
func WithPassTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) { w.passTimeout = d }
}

// WithFinalPass runs one more pass when the worker stops, so work queued
// just before shutdown is not left behind.
func WithFinalPass() WorkerOption {
	return func(w *Worker) { w.finalPass = true }
}

// Worker calls a JobProcessor on a fixed interval until stopped
type Worker struct {
	name        string
	processor   JobProcessor
	interval    time.Duration
	passTimeout time.Duration
	finalPass   bool
	logger      zerolog.Logger

	runs     atomic.Int64
	failures atomic.Int64

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewWorker(name string, processor JobProcessor, interval time.Duration, logger zerolog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		name:      name,
		processor: processor,
		interval:  interval,
		logger:    logger.With().Str("worker", name).Logger(),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start blocks running passes until ctx is done or Stop is called
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneChan)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info().Dur("interval", w.interval).Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("worker stopped: context cancelled")
			w.drain(context.WithoutCancel(ctx))
			return
		case <-w.stopChan:
			w.logger.Info().Msg("worker stopped: stop requested")
			w.drain(ctx)
			return
		case <-ticker.C:
			w.pass(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	if w.finalPass {
		w.pass(ctx)
	}
}

func (w *Worker) pass(ctx context.Context) {
	if w.passTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.passTimeout)
		defer cancel()
	}

	w.runs.Add(1)
	if err := w.processor.ProcessJobs(ctx); err != nil {
		w.failures.Add(1)
		w.logger.Error().Err(err).Int64("failures", w.failures.Load()).Msg("job pass failed")
	}
}

// Stop asks the worker to exit and waits for it. Safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
	w.logger.Info().
		Int64("runs", w.runs.Load()).
		Int64("failures", w.failures.Load()).
		Msg("worker shutdown complete")
}

// Runs returns how many passes have started
func (w *Worker) Runs() int64 { return w.runs.Load() }

// Failures returns how many passes returned an error
func (w *Worker) Failures() int64 { return w.failures.Load() }
