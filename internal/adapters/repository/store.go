// Package repository holds normalized passengers and rejected rows.
package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/manifest/internal/domain/model"
	"github.com/okian/manifest/internal/domain/types"
	"github.com/okian/manifest/pkg/metrics"
)

const (
	defaultShardCount            = 16
	defaultMetricsUpdateInterval = 5 * time.Second
)

// Store provides read/write access to normalized passengers.
type Store interface {
	// Put stores p, replacing any passenger with the same id.
	Put(ctx context.Context, p model.Passenger) error
	// Get returns the passenger with the given id or ErrNotFound.
	Get(ctx context.Context, passengerID int) (model.Passenger, error)
	// List returns up to limit passengers ordered by id, skipping offset.
	List(ctx context.Context, offset, limit int) ([]model.Passenger, error)
	// Count returns the number of stored passengers.
	Count(ctx context.Context) int

	// Reject records a row that failed normalization.
	Reject(ctx context.Context, passengerID int, kind string, cause error) error
	// Rejections returns every recorded rejection ordered by id.
	Rejections(ctx context.Context) []types.Rejection
}

type shard struct {
	mu         sync.RWMutex
	passengers map[int]model.Passenger
}

// ShardedStore is an in-memory Store that spreads passengers over
// independently locked shards keyed by passenger id.
type ShardedStore struct {
	shards                []*shard
	shardCount            int
	metricsUpdateInterval time.Duration

	count atomic.Int64

	rmu        sync.Mutex
	rejections map[int]types.Rejection

	wg       sync.WaitGroup
	stopChan chan struct{}
}

var _ Store = (*ShardedStore)(nil)

// NewShardedStore constructs a store with configuration options. The
// background metrics updater stops when ctx is done or Close is called.
func NewShardedStore(ctx context.Context, opts ...Option) *ShardedStore {
	s := &ShardedStore{
		shardCount:            defaultShardCount,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		rejections:            make(map[int]types.Rejection),
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{passengers: make(map[int]model.Passenger)}
	}

	s.startMetricsUpdater(ctx)
	return s
}

func (s *ShardedStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.publishMetrics(ctx)
			}
		}
	}()
}

func (s *ShardedStore) publishMetrics(ctx context.Context) {
	s.rmu.Lock()
	rejected := len(s.rejections)
	s.rmu.Unlock()
	metrics.UpdateStore(s.Count(ctx), rejected)
}

// Close stops the background metrics updater.
func (s *ShardedStore) Close() error {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

func (s *ShardedStore) shardFor(passengerID int) *shard {
	i := passengerID % len(s.shards)
	if i < 0 {
		i = -i
	}
	return s.shards[i]
}

// Put implements Store.Put. A stored passenger clears any earlier
// rejection recorded for the same id.
func (s *ShardedStore) Put(ctx context.Context, p model.Passenger) error { //nolint:gocritic // hugeParam: passengers are values
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("put passenger %d: %w", p.PassengerID, err)
	}

	sh := s.shardFor(p.PassengerID)
	sh.mu.Lock()
	_, existed := sh.passengers[p.PassengerID]
	sh.passengers[p.PassengerID] = p
	sh.mu.Unlock()
	if !existed {
		s.count.Add(1)
	}

	s.rmu.Lock()
	delete(s.rejections, p.PassengerID)
	s.rmu.Unlock()
	return nil
}

// Get implements Store.Get.
func (s *ShardedStore) Get(_ context.Context, passengerID int) (model.Passenger, error) {
	sh := s.shardFor(passengerID)
	sh.mu.RLock()
	p, ok := sh.passengers[passengerID]
	sh.mu.RUnlock()
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Passenger{}, fmt.Errorf("passenger %d: %w", passengerID, ErrNotFound)
	}
	return p, nil
}

// List implements Store.List. Passengers are collected from every shard
// and sorted by id, so pages are stable between calls without writes.
func (s *ShardedStore) List(_ context.Context, offset, limit int) ([]model.Passenger, error) {
	if offset < 0 || limit < 0 {
		metrics.RecordErrorByComponent("repository", "invalid_page")
		return nil, fmt.Errorf("offset %d limit %d: %w", offset, limit, ErrInvalidPage)
	}

	all := make([]model.Passenger, 0, s.count.Load())
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, p := range sh.passengers {
			all = append(all, p)
		}
		sh.mu.RUnlock()
	}
	slices.SortFunc(all, func(a, b model.Passenger) int { return cmp.Compare(a.PassengerID, b.PassengerID) })

	if offset >= len(all) {
		return []model.Passenger{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

// Count implements Store.Count.
func (s *ShardedStore) Count(_ context.Context) int {
	return int(s.count.Load())
}

// Reject implements Store.Reject. Rows already stored are left alone.
func (s *ShardedStore) Reject(ctx context.Context, passengerID int, kind string, cause error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("reject passenger %d: %w", passengerID, err)
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	s.rmu.Lock()
	s.rejections[passengerID] = types.Rejection{PassengerID: passengerID, Kind: kind, Error: msg}
	s.rmu.Unlock()
	return nil
}

// Rejections implements Store.Rejections.
func (s *ShardedStore) Rejections(_ context.Context) []types.Rejection {
	s.rmu.Lock()
	out := make([]types.Rejection, 0, len(s.rejections))
	for _, r := range s.rejections {
		out = append(out, r)
	}
	s.rmu.Unlock()

	slices.SortFunc(out, func(a, b types.Rejection) int { return cmp.Compare(a.PassengerID, b.PassengerID) })
	return out
}
