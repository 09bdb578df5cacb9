package writeback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/logging"
	"github.com/rzpsarthak13/tabular/internal/metrics"
	"github.com/rzpsarthak13/tabular/internal/registry"
)

// Executor applies one drained operation to the database.
type Executor interface {
	ExecuteWriteOperation(ctx context.Context, operation *core.WriteOperation) error
}

// DrainerConfig contains configuration for the drainer.
type DrainerConfig struct {
	// DrainRate is the maximum number of operations executed per second,
	// shared by all workers.
	DrainRate int

	// BatchSize is how many operations a worker dequeues at once.
	BatchSize int

	// Workers is the number of draining goroutines.
	Workers int

	// PollInterval is how long a worker sleeps when the queue is empty.
	PollInterval time.Duration

	// MaxRetries is how many times a failed operation is re-enqueued before it is dropped.
	MaxRetries int

	// RetryBackoffBase is the first retry delay; each retry doubles it up to RetryBackoffMax.
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
}

// DefaultDrainerConfig returns sensible defaults for the drainer.
func DefaultDrainerConfig() DrainerConfig {
	return DrainerConfig{
		DrainRate:        50,
		BatchSize:        10,
		Workers:          1,
		PollInterval:     100 * time.Millisecond,
		MaxRetries:       3,
		RetryBackoffBase: time.Second,
		RetryBackoffMax:  30 * time.Second,
	}
}

// DrainerConfigFrom maps the writeback config section, filling gaps with defaults.
func DrainerConfigFrom(wb registry.InternalWriteBackConfig) DrainerConfig {
	return DrainerConfig{
		DrainRate:        wb.DrainRate,
		BatchSize:        wb.BatchSize,
		Workers:          wb.Workers,
		PollInterval:     wb.PollInterval,
		MaxRetries:       wb.MaxRetries,
		RetryBackoffBase: wb.RetryBackoffBase,
		RetryBackoffMax:  wb.RetryBackoffMax,
	}
}

func (c DrainerConfig) withDefaults() DrainerConfig {
	d := DefaultDrainerConfig()
	if c.DrainRate <= 0 {
		c.DrainRate = d.DrainRate
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoffBase <= 0 {
		c.RetryBackoffBase = d.RetryBackoffBase
	}
	if c.RetryBackoffMax < c.RetryBackoffBase {
		c.RetryBackoffMax = c.RetryBackoffBase
	}
	return c
}

// Drainer moves operations from a WriteBackQueue into the database at a
// controlled rate.
type Drainer struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	queue    core.WriteBackQueue
	executor Executor
	config   DrainerConfig
	limiter  *rate.Limiter
	logger   *zap.Logger

	written atomic.Int64
	dropped atomic.Int64
}

// NewDrainer creates a drainer. It does nothing until Start.
func NewDrainer(queue core.WriteBackQueue, executor Executor, config DrainerConfig, logger *zap.Logger) *Drainer {
	config = config.withDefaults()
	return &Drainer{
		queue:    queue,
		executor: executor,
		config:   config,
		limiter:  rate.NewLimiter(rate.Limit(config.DrainRate), 1),
		logger:   logging.OrNop(logger),
	}
}

// Start launches the workers. Calling Start on a running drainer is a no-op.
func (d *Drainer) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil
	}
	d.running = true

	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.work(ctx, i)
	}

	d.logger.Info("drainer started",
		zap.Int("workers", d.config.Workers),
		zap.Int("drain_rate", d.config.DrainRate),
		zap.Int("batch_size", d.config.BatchSize),
	)
	return nil
}

// Stop cancels the workers and waits for them and any pending retries.
func (d *Drainer) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	cancel := d.cancel
	d.mu.Unlock()

	cancel()
	d.wg.Wait()
	d.logger.Info("drainer stopped", zap.Int64("written", d.written.Load()), zap.Int64("dropped", d.dropped.Load()))
	return nil
}

// IsRunning returns whether the drainer is currently running.
func (d *Drainer) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// QueueSize returns the current size of the write-back queue.
func (d *Drainer) QueueSize() int {
	return d.queue.Size()
}

// Written returns the number of operations applied so far.
func (d *Drainer) Written() int64 { return d.written.Load() }

// Dropped returns the number of operations abandoned after MaxRetries.
func (d *Drainer) Dropped() int64 { return d.dropped.Load() }

// Config returns the effective drainer configuration.
func (d *Drainer) Config() DrainerConfig {
	return d.config
}

func (d *Drainer) work(ctx context.Context, id int) {
	defer d.wg.Done()
	logger := d.logger.With(zap.Int("worker", id))

	for ctx.Err() == nil {
		operations, err := d.queue.Dequeue(ctx, d.config.BatchSize)
		if errors.Is(err, core.ErrQueueClosed) {
			logger.Info("queue closed, worker exiting")
			return
		}
		if err != nil && ctx.Err() == nil {
			logger.Warn("dequeue failed", zap.Error(err))
		}
		metrics.WriteBackQueueDepth.Set(float64(d.queue.Size()))

		if len(operations) == 0 {
			d.sleep(ctx, d.config.PollInterval)
			continue
		}

		for i, op := range operations {
			if err := d.limiter.Wait(ctx); err != nil {
				// Stopped mid-batch: hand the rest back to the queue.
				d.requeue(operations[i:], logger)
				return
			}
			d.process(ctx, op, logger)
		}
	}
}

func (d *Drainer) process(ctx context.Context, op *core.WriteOperation, logger *zap.Logger) {
	start := time.Now()
	err := d.executor.ExecuteWriteOperation(ctx, op)
	if err == nil {
		d.written.Add(1)
		metrics.WriteBackOperations.WithLabelValues(metrics.WriteBackWritten).Inc()
		logger.Debug("operation written",
			zap.String("table", op.Table),
			zap.Int("rows", len(op.Rows)),
			zap.Duration("duration", time.Since(start)),
		)
		return
	}

	if op.RetryCount >= d.config.MaxRetries {
		d.dropped.Add(1)
		metrics.WriteBackOperations.WithLabelValues(metrics.WriteBackDropped).Inc()
		logger.Error("dropping operation after retries",
			zap.String("table", op.Table),
			zap.Int("rows", len(op.Rows)),
			zap.Int("retries", op.RetryCount),
			zap.Error(err),
		)
		return
	}

	retry := *op
	retry.RetryCount++
	delay := d.backoff(op.RetryCount)
	metrics.WriteBackOperations.WithLabelValues(metrics.WriteBackRetried).Inc()
	logger.Warn("operation failed, retrying",
		zap.String("table", op.Table),
		zap.Int("attempt", retry.RetryCount),
		zap.Duration("backoff", delay),
		zap.Error(err),
	)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		// A stop cuts the backoff short; the retry is still enqueued.
		d.sleep(ctx, delay)
		d.requeue([]*core.WriteOperation{&retry}, logger)
	}()
}

// backoff returns RetryBackoffBase * 2^attempt, capped at RetryBackoffMax.
func (d *Drainer) backoff(attempt int) time.Duration {
	delay := d.config.RetryBackoffBase
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= d.config.RetryBackoffMax {
			return d.config.RetryBackoffMax
		}
	}
	return delay
}

func (d *Drainer) requeue(operations []*core.WriteOperation, logger *zap.Logger) {
	for _, op := range operations {
		if err := d.queue.Enqueue(context.Background(), op); err != nil {
			d.dropped.Add(1)
			metrics.WriteBackOperations.WithLabelValues(metrics.WriteBackDropped).Inc()
			logger.Error("failed to requeue operation", zap.String("table", op.Table), zap.Error(err))
		}
	}
}

func (d *Drainer) sleep(ctx context.Context, dur time.Duration) {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
