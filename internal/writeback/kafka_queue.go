package writeback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/logging"
)

// operationInsert is the only operation the queue carries today.
const operationInsert = "insert"

// KafkaQueue implements core.WriteBackQueue using Apache Kafka.
// Messages are keyed by table so one table's inserts stay ordered within a partition.
type KafkaQueue struct {
	writer  *kafka.Writer
	reader  *kafka.Reader
	topic   string
	groupID string
	readTTL time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	size   int // approximate: produced minus consumed by this process
}

// KafkaQueueConfig holds configuration for Kafka queue.
type KafkaQueueConfig struct {
	Brokers         []string
	Topic           string
	GroupID         string
	BatchSize       int
	BatchTimeout    time.Duration
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	RequiredAcks    int // 0, 1, or -1 (all)
	MaxMessageBytes int
	MinBytes        int
	MaxBytes        int
	MaxWait         time.Duration
	Logger          *zap.Logger
}

func (c *KafkaQueueConfig) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("at least one Kafka broker is required")
	}
	if c.Topic == "" {
		return fmt.Errorf("Kafka topic is required")
	}
	if c.RequiredAcks < -1 || c.RequiredAcks > 1 {
		return fmt.Errorf("required_acks must be -1, 0 or 1, got: %d", c.RequiredAcks)
	}
	if c.GroupID == "" {
		c.GroupID = "tabular-writeback"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = time.Second
	}
	return nil
}

// NewKafkaQueue creates the producer and the consumer-group reader.
func NewKafkaQueue(config KafkaQueueConfig) (*KafkaQueue, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	logger := logging.OrNop(config.Logger)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    config.BatchSize,
		BatchTimeout: config.BatchTimeout,
		BatchBytes:   int64(config.MaxMessageBytes),
		WriteTimeout: config.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(config.RequiredAcks),
		MaxAttempts:  3,
	}

	// New consumer groups start from the first offset so nothing produced
	// before the first drain is skipped.
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Brokers,
		Topic:       config.Topic,
		GroupID:     config.GroupID,
		MinBytes:    config.MinBytes,
		MaxBytes:    config.MaxBytes,
		MaxWait:     config.MaxWait,
		StartOffset: kafka.FirstOffset,
	})

	logger.Info("kafka queue ready",
		zap.Strings("brokers", config.Brokers),
		zap.String("topic", config.Topic),
		zap.String("group_id", config.GroupID),
		zap.Int("required_acks", config.RequiredAcks),
	)

	return &KafkaQueue{
		writer:  writer,
		reader:  reader,
		topic:   config.Topic,
		groupID: config.GroupID,
		readTTL: config.ReadTimeout,
		logger:  logger,
	}, nil
}

func encodeMessage(operation *core.WriteOperation) (kafka.Message, error) {
	data, err := encodeOperation(operation)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(operation.Table),
		Value: data,
		Time:  operation.Timestamp,
		Headers: []kafka.Header{
			{Key: "operation", Value: []byte(operationInsert)},
			{Key: "table", Value: []byte(operation.Table)},
		},
	}, nil
}

// Enqueue produces the operation synchronously.
func (q *KafkaQueue) Enqueue(ctx context.Context, operation *core.WriteOperation) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return core.ErrQueueClosed
	}
	if err := validateOperation(operation); err != nil {
		return err
	}

	message, err := encodeMessage(operation)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := q.writer.WriteMessages(ctx, message); err != nil {
		q.logger.Error("produce failed",
			zap.String("topic", q.topic),
			zap.String("table", operation.Table),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	q.mu.Lock()
	q.size++
	q.mu.Unlock()

	q.logger.Debug("produced",
		zap.String("table", operation.Table),
		zap.Int("rows", len(operation.Rows)),
		zap.Int("bytes", len(message.Value)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Dequeue fetches up to batchSize messages. Only the first fetch waits up to
// the read timeout; the rest return as soon as the partition is drained.
// Offsets are committed once the message is decoded.
func (q *KafkaQueue) Dequeue(ctx context.Context, batchSize int) ([]*core.WriteOperation, error) {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return nil, core.ErrQueueClosed
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	operations := make([]*core.WriteOperation, 0, batchSize)
	wait := q.readTTL
	for i := 0; i < batchSize; i++ {
		readCtx, cancel := context.WithTimeout(ctx, wait)
		message, err := q.reader.FetchMessage(readCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				break
			}
			q.logger.Error("fetch failed", zap.String("topic", q.topic), zap.Error(err))
			if len(operations) == 0 {
				return nil, fmt.Errorf("failed to read message from Kafka: %w", err)
			}
			break
		}
		wait = 10 * time.Millisecond

		op, err := decodeOperation(message.Value)
		if err != nil {
			q.logger.Error("skipping malformed message",
				zap.Int("partition", message.Partition),
				zap.Int64("offset", message.Offset),
				zap.Error(err),
			)
		} else {
			operations = append(operations, op)
		}

		if err := q.reader.CommitMessages(ctx, message); err != nil {
			q.logger.Warn("offset commit failed",
				zap.Int("partition", message.Partition),
				zap.Int64("offset", message.Offset),
				zap.Error(err),
			)
		}
	}

	if len(operations) > 0 {
		q.mu.Lock()
		q.size -= len(operations)
		if q.size < 0 {
			q.size = 0
		}
		q.mu.Unlock()
		q.logger.Debug("consumed", zap.Int("operations", len(operations)), zap.String("group_id", q.groupID))
	}
	return operations, nil
}

// Size returns an approximate number of operations in the queue.
// Kafka doesn't expose an exact backlog to producers.
func (q *KafkaQueue) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.size
}

// Close closes the producer and the reader.
func (q *KafkaQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	return errors.Join(q.writer.Close(), q.reader.Close())
}
