package writeback

import (
	"context"
	"sync"

	"github.com/rzpsarthak13/tabular/internal/core"
)

// MemoryQueue implements core.WriteBackQueue using a buffered channel.
// Operations do not survive the process.
type MemoryQueue struct {
	queue  chan *core.WriteOperation
	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue creates a new in-memory write-back queue.
// bufferSize is the maximum number of operations that can be buffered.
func NewMemoryQueue(bufferSize int) *MemoryQueue {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &MemoryQueue{queue: make(chan *core.WriteOperation, bufferSize)}
}

// Enqueue adds a write operation to the queue without blocking.
func (q *MemoryQueue) Enqueue(ctx context.Context, operation *core.WriteOperation) error {
	if err := validateOperation(operation); err != nil {
		return err
	}

	// The read lock is held across the send so Close cannot close the channel under it.
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return core.ErrQueueClosed
	}

	select {
	case q.queue <- operation:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return core.ErrQueueFull
	}
}

// Dequeue retrieves up to batchSize operations in FIFO order. Once the queue
// is closed and empty it returns core.ErrQueueClosed.
func (q *MemoryQueue) Dequeue(ctx context.Context, batchSize int) ([]*core.WriteOperation, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	operations := make([]*core.WriteOperation, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		select {
		case operation, ok := <-q.queue:
			if !ok {
				if len(operations) == 0 {
					return nil, core.ErrQueueClosed
				}
				return operations, nil
			}
			operations = append(operations, operation)
		case <-ctx.Done():
			return operations, ctx.Err()
		default:
			return operations, nil
		}
	}
	return operations, nil
}

// Size returns the current number of operations in the queue.
func (q *MemoryQueue) Size() int {
	return len(q.queue)
}

// Close closes the queue. Buffered operations can still be dequeued.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.queue)
	return nil
}
