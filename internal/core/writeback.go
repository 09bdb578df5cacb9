package core

import (
	"context"
	"time"
)

// WriteOperation is a deferred multi-row insert waiting to be drained into the database.
type WriteOperation struct {
	// Table is the target table; the drainer resolves the model by this name.
	Table string `json:"table"`

	// Rows are the row tuples, already validated against the model's schema.
	Rows [][]any `json:"rows"`

	// Timestamp is when the operation was enqueued.
	Timestamp time.Time `json:"timestamp"`

	// RetryCount tracks how many times this operation has been retried.
	RetryCount int `json:"retry_count"`
}

// WriteBackQueue buffers write operations between InsertAsync and the drainer.
type WriteBackQueue interface {
	// Enqueue adds an operation to the tail of the queue.
	Enqueue(ctx context.Context, operation *WriteOperation) error

	// Dequeue removes up to batchSize operations from the head of the queue.
	// It returns an empty slice when nothing is available.
	Dequeue(ctx context.Context, batchSize int) ([]*WriteOperation, error)

	// Size returns the number of queued operations (approximate for some backends).
	Size() int

	// Close stops the queue and releases resources.
	Close() error
}
