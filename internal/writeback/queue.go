// Package writeback buffers asynchronous inserts and drains them into the
// database at a bounded rate.
package writeback

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/registry"
)

// ErrInvalidOperation is returned when an invalid operation is provided.
var ErrInvalidOperation = errors.New("invalid write operation")

func validateOperation(operation *core.WriteOperation) error {
	if operation == nil {
		return ErrInvalidOperation
	}
	if operation.Table == "" {
		return fmt.Errorf("%w: table name is required", ErrInvalidOperation)
	}
	if len(operation.Rows) == 0 {
		return fmt.Errorf("%w: no rows", ErrInvalidOperation)
	}
	if operation.Timestamp.IsZero() {
		operation.Timestamp = time.Now()
	}
	return nil
}

func encodeOperation(operation *core.WriteOperation) ([]byte, error) {
	data, err := json.Marshal(operation)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal write operation: %w", err)
	}
	return data, nil
}

// decodeOperation keeps numbers as json.Number; the schema converters turn
// them back into column values on insert.
func decodeOperation(data []byte) (*core.WriteOperation, error) {
	var op core.WriteOperation
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&op); err != nil {
		return nil, fmt.Errorf("failed to unmarshal write operation: %w", err)
	}
	return &op, nil
}

// NewQueue builds the queue selected by cfg.QueueType. The redis queue needs
// kv to be a Redis store.
func NewQueue(cfg registry.InternalWriteBackConfig, kv core.KVStore, logger *zap.Logger) (core.WriteBackQueue, error) {
	switch cfg.QueueType {
	case "", "memory":
		return NewMemoryQueue(cfg.QueueBufferSize), nil
	case "redis":
		ops, ok := kv.(ListOperations)
		if !ok {
			return nil, fmt.Errorf("redis queue requires a redis kvstore, got %T", kv)
		}
		return NewRedisQueue(ops, cfg.RedisQueueKey, logger), nil
	case "kafka":
		k := cfg.KafkaConfig
		return NewKafkaQueue(KafkaQueueConfig{
			Brokers:         k.Brokers,
			Topic:           k.Topic,
			GroupID:         k.GroupID,
			BatchSize:       k.BatchSize,
			BatchTimeout:    k.BatchTimeout,
			WriteTimeout:    k.WriteTimeout,
			ReadTimeout:     k.ReadTimeout,
			RequiredAcks:    k.RequiredAcks,
			MaxMessageBytes: k.MaxMessageBytes,
			MinBytes:        k.MinBytes,
			MaxBytes:        k.MaxBytes,
			MaxWait:         k.MaxWait,
			Logger:          logger,
		})
	default:
		return nil, fmt.Errorf("unsupported queue type: %s", cfg.QueueType)
	}
}
