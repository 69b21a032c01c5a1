// Package worker runs the goroutines that normalize queued manifest rows.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/manifest/internal/domain/model"
	"github.com/okian/manifest/pkg/logger"
	"github.com/okian/manifest/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Normalizer turns a raw row into a normalized passenger.
type Normalizer interface {
	Normalize(ctx context.Context, raw model.RawPassenger) (model.Passenger, error)
}

// NormalizerFunc adapts a plain function to Normalizer.
type NormalizerFunc func(raw model.RawPassenger) (model.Passenger, error)

// Normalize calls f(raw).
func (f NormalizerFunc) Normalize(_ context.Context, raw model.RawPassenger) (model.Passenger, error) { //nolint:gocritic // hugeParam: rows are values
	return f(raw)
}

// Sink receives the outcome of every row.
type Sink interface {
	Put(ctx context.Context, p model.Passenger) error
	Reject(ctx context.Context, passengerID int, kind string, cause error) error
}

// Queue defines how workers receive rows.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.RawPassenger
}

// Worker processes rows until its queue is drained or it is stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for normalizing rows.
type InMemoryWorker struct {
	queue      Queue
	normalizer Normalizer
	sink       Sink
	name       string

	processed *atomic.Int64
	rejected  *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, normalizer Normalizer, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      queue,
		normalizer: normalizer,
		sink:       sink,
		name:       "worker",
		processed:  &atomic.Int64{},
		rejected:   &atomic.Int64{},
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get()
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop. It returns when ctx is done, Shutdown is
// called, or the queue channel is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	rows := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case row, ok := <-rows:
			if !ok {
				return
			}
			metrics.RecordDequeue()
			if err := w.process(ctx, row); err != nil {
				w.logger.Error(ctx, "error processing row", logger.Int("passenger_id", row.PassengerID), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker without waiting for the queue to drain.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, row model.RawPassenger) error { //nolint:gocritic // hugeParam: rows are values
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	p, err := w.normalizer.Normalize(ctx, row)
	if err != nil {
		kind := model.ErrorKind(err)
		field := "unknown"
		var nerr *model.NormalizeError
		if errors.As(err, &nerr) {
			field = nerr.Field
		}
		metrics.RecordParseFailure(field, kind)
		w.logger.Warn(ctx, "row rejected",
			logger.Int("passenger_id", row.PassengerID),
			logger.String("kind", kind),
			logger.Error(err),
		)
		rerr := w.sink.Reject(ctx, row.PassengerID, kind, err)
		// Counted after the sink has seen the row so callers polling
		// Rejected observe its effects.
		w.rejected.Add(1)
		if rerr != nil {
			metrics.RecordErrorByComponent("worker", "reject_failed")
			return fmt.Errorf("record rejection: %w", rerr)
		}
		return nil
	}

	metrics.RecordNormalized(float64(time.Since(start).Microseconds()) / 1000)
	if err := w.sink.Put(ctx, p); err != nil {
		metrics.RecordErrorByComponent("worker", "store_failed")
		return fmt.Errorf("store passenger: %w", err)
	}
	w.processed.Add(1)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	processed atomic.Int64
	rejected  atomic.Int64

	logger logger.Logger
}

// NewPool creates a new worker pool. A workerCount below 1 selects a
// default based on the number of CPUs.
func NewPool(workerCount int, queue Queue, normalizer Normalizer, sink Sink, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get()
	}

	for i := range p.workers {
		w := NewInMemoryWorker(queue, normalizer, sink,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
		)
		w.processed = &p.processed
		w.rejected = &p.rejected
		p.workers[i] = w
	}
	p.logger = p.logger.Named("worker-pool")

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of rows stored so far.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Rejected returns the number of rows that failed normalization.
func (p *Pool) Rejected() int64 { return p.rejected.Load() }

// Stop signals every worker to stop immediately and waits for them.
func (p *Pool) Stop(ctx context.Context) {
	for i, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
}

// Shutdown closes the queue, when it supports closing, and waits for the
// workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			p.Stop(shutdownCtx)
			return fmt.Errorf("drain workers: %w", shutdownCtx.Err())
		}
	}
	return nil
}
