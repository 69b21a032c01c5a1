// Package queue buffers manifest rows between ingestion and the normalization workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/manifest/internal/domain/model"
	"github.com/okian/manifest/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Row is the payload type flowing through the queue.
type Row = model.RawPassenger

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a row. Returns false if the queue is full, closed, or ctx is done.
	Enqueue(ctx context.Context, r Row) bool

	// Dequeue returns the channel rows are delivered on. It is closed by Close.
	Dequeue(ctx context.Context) <-chan Row

	// Len returns the current number of queued rows.
	Len(ctx context.Context) int

	// Close stops accepting rows; queued rows remain readable.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	rows     chan Row
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.rows = make(chan Row, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueue(0, q.capacity)
	return q
}

// Enqueue adds a row to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Row) bool { //nolint:gocritic // hugeParam: rows are passed by value over the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordEnqueueError("closed")
		return false
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordEnqueueError("context_cancelled")
		return false
	}

	select {
	case q.rows <- r:
		metrics.RecordEnqueue()
		metrics.UpdateQueue(len(q.rows), q.capacity)
		return true
	default:
		metrics.RecordEnqueueError("queue_full")
		return false
	}
}

// Dequeue returns the channel rows are delivered on.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Row {
	return q.rows
}

// Len returns the current number of queued rows.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.rows)
	metrics.UpdateQueue(size, q.capacity)
	return size
}

// Capacity returns the configured capacity.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close stops accepting rows and closes the delivery channel once drained.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.rows)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
