// Package service wires the normalization pipeline and exposes the
// operations used by the HTTP API and the process entrypoint.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	rowqueue "github.com/okian/manifest/internal/adapters/mq/queue"
	workerpool "github.com/okian/manifest/internal/adapters/mq/worker"
	repository "github.com/okian/manifest/internal/adapters/repository"
	"github.com/okian/manifest/internal/domain/cabin"
	"github.com/okian/manifest/internal/domain/dedupe"
	"github.com/okian/manifest/internal/domain/model"
	"github.com/okian/manifest/internal/domain/name"
	"github.com/okian/manifest/internal/domain/types"
	"github.com/okian/manifest/pkg/logger"
	"github.com/okian/manifest/pkg/metrics"
)

const enqueueRetryInterval = 5 * time.Millisecond

// ErrNotStarted is returned by operations that need the pipeline running.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the passenger normalizer.
type Service struct {
	mu sync.RWMutex

	store      *repository.ShardedStore
	deduper    dedupe.Deduper
	queue      *rowqueue.InMemoryQueue
	workerPool *workerpool.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	shardCount  int

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of rows waiting for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the passenger id deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the number of store shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   10_000,
		dedupeSize:  50_000,
		shardCount:  16,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.logger.Info(ctx, "starting normalizer service...")

	s.store = repository.NewShardedStore(ctx, repository.WithShardCount(s.shardCount))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = rowqueue.NewInMemoryQueue(rowqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.queue,
		workerpool.NormalizerFunc(model.Normalize), rowSink{ShardedStore: s.store, deduper: s.deduper})
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "normalizer service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("shards", s.shardCount),
	)
	return nil
}

// Stop closes the queue, lets the workers drain it and releases the store.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(ctx, "stopping normalizer service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	_ = s.store.Close()

	s.started = false
	s.logger.Info(ctx, "normalizer service stopped",
		logger.Int("processed", int(s.workerPool.Processed())),
		logger.Int("rejected", int(s.workerPool.Rejected())),
	)
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Enqueue submits a row for asynchronous normalization. A row whose
// passenger id was already seen is reported as a duplicate and skipped,
// unless that earlier row was rejected.
// accepted is false when the row could not be queued; its id is then
// forgotten so the row can be retried.
func (s *Service) Enqueue(ctx context.Context, raw model.RawPassenger) (accepted, duplicate bool) { //nolint:gocritic // hugeParam: rows are values
	if !s.running() {
		return false, false
	}

	key := raw.Key()
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordDuplicate()
		s.logger.Debug(ctx, "duplicate row skipped", logger.Int("passenger_id", raw.PassengerID))
		return true, true
	}

	if !s.queue.Enqueue(ctx, raw) {
		s.deduper.Unrecord(ctx, key)
		return false, false
	}
	return true, false
}

// Ingest enqueues every row and reports what happened to the batch.
func (s *Service) Ingest(ctx context.Context, rows []model.RawPassenger) types.IngestReport {
	report := types.IngestReport{BatchID: uuid.NewString(), Received: len(rows)}
	for i := range rows {
		accepted, duplicate := s.Enqueue(ctx, rows[i])
		switch {
		case duplicate:
			report.Duplicates++
		case accepted:
			report.Accepted++
		default:
			report.Dropped++
		}
	}

	s.logger.Info(ctx, "batch ingested",
		logger.String("batch_id", report.BatchID),
		logger.Int("received", report.Received),
		logger.Int("accepted", report.Accepted),
		logger.Int("duplicates", report.Duplicates),
		logger.Int("dropped", report.Dropped),
	)
	return report
}

// IngestAll enqueues every row, retrying rows the queue cannot take yet
// until ctx is done. Rows still unqueued at that point count as dropped.
func (s *Service) IngestAll(ctx context.Context, rows []model.RawPassenger) (types.IngestReport, error) {
	report := types.IngestReport{BatchID: uuid.NewString(), Received: len(rows)}
	if !s.running() {
		report.Dropped = len(rows)
		return report, ErrNotStarted
	}

	ticker := time.NewTicker(enqueueRetryInterval)
	defer ticker.Stop()

	for i := range rows {
		for {
			accepted, duplicate := s.Enqueue(ctx, rows[i])
			if duplicate {
				report.Duplicates++
				break
			}
			if accepted {
				report.Accepted++
				break
			}
			if !s.running() {
				report.Dropped += len(rows) - i
				return report, ErrNotStarted
			}
			select {
			case <-ctx.Done():
				report.Dropped += len(rows) - i
				return report, ctx.Err()
			case <-ticker.C:
			}
		}
	}

	s.logger.Info(ctx, "rows loaded",
		logger.String("batch_id", report.BatchID),
		logger.Int("received", report.Received),
		logger.Int("accepted", report.Accepted),
		logger.Int("duplicates", report.Duplicates),
	)
	return report, nil
}

// ParseName parses a raw name synchronously.
func (s *Service) ParseName(_ context.Context, raw string) (name.Components, error) {
	c, err := name.Parse(raw)
	if err != nil {
		metrics.RecordParseFailure("name", model.ErrorKind(err))
		return name.Components{}, err
	}
	return c, nil
}

// ParseCabin parses an optional cabin descriptor synchronously.
func (s *Service) ParseCabin(_ context.Context, raw *string) (cabin.Descriptor, error) {
	d, err := cabin.ParseOptional(raw)
	if err != nil {
		metrics.RecordParseFailure("cabin", model.ErrorKind(err))
		return cabin.Descriptor{}, err
	}
	return d, nil
}

// Passenger returns one normalized passenger.
func (s *Service) Passenger(ctx context.Context, passengerID int) (model.Passenger, error) {
	if !s.running() {
		return model.Passenger{}, ErrNotStarted
	}
	p, err := s.store.Get(ctx, passengerID)
	if err != nil {
		return model.Passenger{}, fmt.Errorf("get passenger: %w", err)
	}
	return p, nil
}

// Passengers returns a page of normalized passengers ordered by id.
func (s *Service) Passengers(ctx context.Context, offset, limit int) ([]model.Passenger, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	page, err := s.store.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list passengers: %w", err)
	}
	return page, nil
}

// Rejections returns rows that failed normalization.
func (s *Service) Rejections(ctx context.Context) []types.Rejection {
	if !s.running() {
		return []types.Rejection{}
	}
	return s.store.Rejections(ctx)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if !s.running() {
		return 0
	}
	return s.deduper.Size()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"shardCount":  s.shardCount,
	}

	if s.started {
		ctx := context.Background()
		queueLen := s.queue.Len(ctx)
		passengers := s.store.Count(ctx)
		rejections := len(s.store.Rejections(ctx))

		stats["queueLength"] = queueLen
		stats["passengers"] = passengers
		stats["rejections"] = rejections
		stats["processed"] = s.workerPool.Processed()
		stats["rejected"] = s.workerPool.Rejected()
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateQueue(queueLen, s.queue.Capacity())
		metrics.UpdateStore(passengers, rejections)
	}
	return stats
}
