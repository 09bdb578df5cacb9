// Package model binds a schema, a statement builder and a materializer to one
// database table.
package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/logging"
	"github.com/rzpsarthak13/tabular/internal/materialize"
	"github.com/rzpsarthak13/tabular/internal/metrics"
	"github.com/rzpsarthak13/tabular/internal/query"
	"github.com/rzpsarthak13/tabular/internal/schema"
)

// ErrNoQueue is returned by InsertAsync when the model has no write-back queue.
var ErrNoQueue = errors.New("no write-back queue configured")

// Cache serves read statements from a result cache and is told when a
// table's contents change.
type Cache interface {
	Query(ctx context.Context, table, text string, args []any, load func(context.Context) (core.Rows, error)) (core.Rows, error)
	Invalidate(ctx context.Context, table string) error
}

// Option configures a Model.
type Option func(*options)

type options struct {
	catalog *schema.Catalog
	logger  *zap.Logger
	cache   Cache
	queue   core.WriteBackQueue
}

// WithCatalog overrides the type catalog.
func WithCatalog(c *schema.Catalog) Option { return func(o *options) { o.catalog = c } }

// WithLogger sets the parent logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithCache routes reads through a result cache.
func WithCache(c Cache) Option { return func(o *options) { o.cache = c } }

// WithQueue enables InsertAsync.
func WithQueue(q core.WriteBackQueue) Option { return func(o *options) { o.queue = q } }

// Model is the façade over one table. Its operations are synchronous and a
// model must not build two statements concurrently.
type Model struct {
	db           core.Database
	schema       *schema.Schema
	builder      *query.Builder
	materializer *materialize.Materializer
	cache        Cache
	queue        core.WriteBackQueue
	logger       *zap.Logger
}

// New validates the registration list and returns a model bound to db.
func New(table string, db core.Database, attrs []schema.Attribute, opts ...Option) (*Model, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: nil database", core.ErrConnection)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	base := o.logger
	if base == nil {
		base = logging.Get()
	}

	s, err := schema.New(table, o.catalog, attrs...)
	if err != nil {
		return nil, err
	}

	m := &Model{
		db:           db,
		schema:       s,
		cache:        o.cache,
		queue:        o.queue,
		logger:       base.Named("model").With(zap.String("table", table)),
		materializer: materialize.New(s, base.Named("materializer")),
	}
	m.builder = query.NewBuilder(table, m, base.Named("builder"))
	return m, nil
}

// MustNew is like New but panics on a misconfigured registration list.
func MustNew(table string, db core.Database, attrs []schema.Attribute, opts ...Option) *Model {
	m, err := New(table, db, attrs, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Tablename returns the table name.
func (m *Model) Tablename() string { return m.schema.Table() }

// Schema returns the model's attribute descriptors.
func (m *Model) Schema() *schema.Schema { return m.schema }

// Column returns the storage registered for name.
func (m *Model) Column(name string) (schema.Column, error) {
	i, ok := m.schema.Index(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an attribute of %q", core.ErrColumnNotFound, name, m.Tablename())
	}
	return m.schema.Column(i), nil
}

// Len returns the number of materialized rows.
func (m *Model) Len() int { return m.schema.Rows() }

// Reset discards all materialized rows.
func (m *Model) Reset() { m.schema.Truncate(0) }

// BuildQuery returns the model's builder, ready for Select.
func (m *Model) BuildQuery() *query.Builder { return m.builder }

// Create issues CREATE TABLE.
func (m *Model) Create(ctx context.Context) error {
	return m.builder.RunStatement(ctx, query.CreateTable(m.schema, false))
}

// CreateIfNotExists issues CREATE TABLE IF NOT EXISTS.
func (m *Model) CreateIfNotExists(ctx context.Context) error {
	return m.builder.RunStatement(ctx, query.CreateTable(m.schema, true))
}

// Drop issues DROP TABLE IF EXISTS.
func (m *Model) Drop(ctx context.Context) error {
	return m.builder.RunStatement(ctx, query.DropTable(m.Tablename()))
}

// Exists reports whether the table exists.
func (m *Model) Exists(ctx context.Context) (bool, error) {
	return m.db.TableExists(ctx, m.Tablename())
}

// Describe returns the table layout as the database reports it.
func (m *Model) Describe(ctx context.Context) (*core.TableInfo, error) {
	return m.db.DescribeTable(ctx, m.Tablename())
}

// Insert writes rows in one multi-row statement. Every tuple is checked and
// converted before anything is sent; an empty batch is a no-op.
func (m *Model) Insert(ctx context.Context, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	converted, err := m.prepare(rows)
	if err != nil {
		return err
	}
	return m.builder.RunStatement(ctx, query.Insert(m.schema, converted))
}

// InsertAsync validates rows and hands them to the write-back queue.
func (m *Model) InsertAsync(ctx context.Context, rows [][]any) error {
	if m.queue == nil {
		return ErrNoQueue
	}
	if len(rows) == 0 {
		return nil
	}
	converted, err := m.prepare(rows)
	if err != nil {
		return err
	}
	op := &core.WriteOperation{
		Table:     m.Tablename(),
		Rows:      converted,
		Timestamp: time.Now(),
	}
	if err := m.queue.Enqueue(ctx, op); err != nil {
		return fmt.Errorf("failed to enqueue insert: %w", err)
	}
	metrics.WriteBackOperations.WithLabelValues(metrics.WriteBackEnqueued).Inc()
	metrics.WriteBackQueueDepth.Set(float64(m.queue.Size()))
	m.logger.Debug("insert enqueued", zap.Int("rows", len(rows)))
	return nil
}

func (m *Model) prepare(rows [][]any) ([][]any, error) {
	converted := make([][]any, len(rows))
	for i, row := range rows {
		c, err := m.schema.ConvertRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		converted[i] = c
	}
	return converted, nil
}

// Execute implements query.Executor. Exec statements invalidate cached reads
// of the table; query statements are materialized into the model's columns.
func (m *Model) Execute(ctx context.Context, stmt query.Statement) error {
	if stmt.Kind == query.KindExec {
		return m.exec(ctx, stmt)
	}

	var (
		rows core.Rows
		err  error
	)
	if m.cache != nil {
		rows, err = m.cache.Query(ctx, m.Tablename(), stmt.Text, stmt.Args, func(ctx context.Context) (core.Rows, error) {
			return m.query(ctx, stmt)
		})
	} else {
		rows, err = m.query(ctx, stmt)
	}
	if err != nil {
		return err
	}

	n, err := m.materializer.Materialize(ctx, rows)
	if err != nil {
		return err
	}
	m.logger.Debug("rows materialized", zap.Int("rows", n), zap.Int("total", m.Len()))
	return nil
}

func (m *Model) exec(ctx context.Context, stmt query.Statement) error {
	start := time.Now()
	_, err := m.db.Exec(ctx, stmt.Text, stmt.Args...)
	metrics.ObserveStatement(stmt.Kind.String(), start, err)
	if err != nil {
		return err
	}
	if m.cache != nil {
		if err := m.cache.Invalidate(ctx, m.Tablename()); err != nil {
			m.logger.Warn("failed to invalidate cached reads", zap.Error(err))
		}
	}
	return nil
}

func (m *Model) query(ctx context.Context, stmt query.Statement) (core.Rows, error) {
	start := time.Now()
	rows, err := m.db.Query(ctx, stmt.Text, stmt.Args...)
	metrics.ObserveStatement(stmt.Kind.String(), start, err)
	return rows, err
}
