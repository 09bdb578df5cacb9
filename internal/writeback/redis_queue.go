package writeback

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/logging"
)

// ListOperations are the Redis list commands the queue is built on.
// kvstore.RedisKVStore implements them.
type ListOperations interface {
	ListPush(ctx context.Context, key string, value []byte) error
	ListPopN(ctx context.Context, key string, count int) ([][]byte, error)
	ListLength(ctx context.Context, key string) (int64, error)
}

// RedisQueue implements core.WriteBackQueue on a single Redis list:
// RPUSH to enqueue, LPOP count to dequeue.
type RedisQueue struct {
	ops    ListOperations
	key    string
	logger *zap.Logger
	closed atomic.Bool
}

// NewRedisQueue creates a queue stored under key.
func NewRedisQueue(ops ListOperations, key string, logger *zap.Logger) *RedisQueue {
	if key == "" {
		key = "tabular:writeback"
	}
	return &RedisQueue{ops: ops, key: key, logger: logging.OrNop(logger)}
}

// Key returns the list key.
func (q *RedisQueue) Key() string { return q.key }

// Enqueue serializes the operation as JSON and appends it to the list.
func (q *RedisQueue) Enqueue(ctx context.Context, operation *core.WriteOperation) error {
	if q.closed.Load() {
		return core.ErrQueueClosed
	}
	if err := validateOperation(operation); err != nil {
		return err
	}

	data, err := encodeOperation(operation)
	if err != nil {
		return err
	}
	if err := q.ops.ListPush(ctx, q.key, data); err != nil {
		return fmt.Errorf("failed to enqueue operation: %w", err)
	}
	return nil
}

// Dequeue pops up to batchSize operations. Undecodable entries are logged and skipped.
func (q *RedisQueue) Dequeue(ctx context.Context, batchSize int) ([]*core.WriteOperation, error) {
	if q.closed.Load() {
		return nil, core.ErrQueueClosed
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	items, err := q.ops.ListPopN(ctx, q.key, batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue operations: %w", err)
	}

	operations := make([]*core.WriteOperation, 0, len(items))
	for _, data := range items {
		op, err := decodeOperation(data)
		if err != nil {
			q.logger.Error("skipping malformed queue entry", zap.String("key", q.key), zap.Error(err))
			continue
		}
		operations = append(operations, op)
	}
	return operations, nil
}

// Size returns the list length, or 0 when Redis cannot be reached.
func (q *RedisQueue) Size() int {
	if q.closed.Load() {
		return 0
	}
	n, err := q.ops.ListLength(context.Background(), q.key)
	if err != nil {
		q.logger.Warn("failed to read queue length", zap.Error(err))
		return 0
	}
	return int(n)
}

// Close marks the queue closed. The list and its Redis connection are left alone.
func (q *RedisQueue) Close() error {
	q.closed.Store(true)
	return nil
}
