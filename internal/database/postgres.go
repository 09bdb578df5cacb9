package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/logging"
)

// PostgresOptions configures the connection pool.
type PostgresOptions struct {
	Host              string
	Port              int
	Database          string
	Username          string
	Password          string
	SSLMode           string
	MaxConns          int
	MinConns          int
	ConnMaxLifetime   time.Duration
	ConnMaxIdleTime   time.Duration
	ConnectionTimeout time.Duration
	Logger            *zap.Logger
}

// DSN renders the options as a postgres:// connection URL.
func (o PostgresOptions) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(o.Username, o.Password),
		Host:   net.JoinHostPort(o.Host, strconv.Itoa(o.Port)),
		Path:   "/" + o.Database,
	}
	q := url.Values{}
	if o.SSLMode != "" {
		q.Set("sslmode", o.SSLMode)
	}
	if o.ConnectionTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(o.ConnectionTimeout.Round(time.Second)/time.Second)))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// PostgresDatabase implements the core.Database interface using a pgx pool.
type PostgresDatabase struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	closed atomic.Bool
}

// NewPostgresDatabase opens a pool and pings it within the connection timeout.
func NewPostgresDatabase(ctx context.Context, opts PostgresOptions) (*PostgresDatabase, error) {
	logger := logging.OrNop(opts.Logger)

	cfg, err := pgxpool.ParseConfig(opts.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: invalid connection options: %w", core.ErrConnection, err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		cfg.MinConns = int32(opts.MinConns)
	}
	if opts.ConnMaxLifetime > 0 {
		cfg.MaxConnLifetime = opts.ConnMaxLifetime
	}
	if opts.ConnMaxIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.ConnMaxIdleTime
	}

	timeout := opts.ConnectionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open pool: %w", core.ErrConnection, err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", core.ErrConnection, err)
	}

	logger.Info("connected to postgres",
		zap.String("host", opts.Host),
		zap.Int("port", opts.Port),
		zap.String("database", opts.Database),
		zap.Int32("max_conns", cfg.MaxConns))

	return &PostgresDatabase{pool: pool, logger: logger}, nil
}

// Exec executes a statement that returns no rows.
func (p *PostgresDatabase) Exec(ctx context.Context, query string, args ...any) (core.Result, error) {
	if p.closed.Load() {
		return nil, errClosed
	}
	p.logger.Debug("exec", zap.String("sql", query), zap.Int("args", len(args)))
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		p.logger.Warn("exec failed", zap.String("sql", query), zap.Error(err))
		return nil, classify(err)
	}
	return result(tag.RowsAffected()), nil
}

// Query executes a statement that returns rows.
func (p *PostgresDatabase) Query(ctx context.Context, query string, args ...any) (core.Rows, error) {
	if p.closed.Load() {
		return nil, errClosed
	}
	p.logger.Debug("query", zap.String("sql", query), zap.Int("args", len(args)))
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		p.logger.Warn("query failed", zap.String("sql", query), zap.Error(err))
		return nil, classify(err)
	}
	return newPgxRows(rows), nil
}

// Ping verifies a connection can be acquired.
func (p *PostgresDatabase) Ping(ctx context.Context) error {
	if p.closed.Load() {
		return errClosed
	}
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", core.ErrConnection, err)
	}
	return nil
}

// TableExists looks the table up in the current schema.
func (p *PostgresDatabase) TableExists(ctx context.Context, table string) (bool, error) {
	if p.closed.Load() {
		return false, errClosed
	}
	const q = `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1
	)`
	var exists bool
	if err := p.pool.QueryRow(ctx, q, strings.ToLower(table)).Scan(&exists); err != nil {
		return false, classify(err)
	}
	return exists, nil
}

// DescribeTable returns the column layout of a table in the current schema.
func (p *PostgresDatabase) DescribeTable(ctx context.Context, table string) (*core.TableInfo, error) {
	if p.closed.Load() {
		return nil, errClosed
	}
	const q = `
		SELECT c.column_name,
			c.udt_name,
			c.is_nullable = 'YES',
			EXISTS (
				SELECT 1
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage k
					ON tc.constraint_name = k.constraint_name AND tc.table_schema = k.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = c.table_schema
					AND tc.table_name = c.table_name
					AND k.column_name = c.column_name
			)
		FROM information_schema.columns c
		WHERE c.table_schema = current_schema() AND c.table_name = $1
		ORDER BY c.ordinal_position
	`
	rows, err := p.pool.Query(ctx, q, strings.ToLower(table))
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	info := &core.TableInfo{Name: table}
	for rows.Next() {
		var col core.ColumnInfo
		if err := rows.Scan(&col.Name, &col.DataType, &col.Nullable, &col.PrimaryKey); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		info.Columns = append(info.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	if len(info.Columns) == 0 {
		return nil, fmt.Errorf("%w: table %q does not exist", core.ErrStatement, table)
	}
	return info, nil
}

// Close closes the pool.
func (p *PostgresDatabase) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.pool.Close()
	p.logger.Info("postgres pool closed")
	return nil
}

var errClosed = fmt.Errorf("%w: database is closed", core.ErrConnection)

// classify maps failures to reach or keep a session (dial, auth, timeouts,
// cancellation, server shutdown) to ErrConnection. Everything else, server
// rejections and client-side argument encoding included, is ErrStatement.
func classify(err error) error {
	if isConnectionError(err) {
		return fmt.Errorf("%w: %w", core.ErrConnection, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w: %s (SQLSTATE %s): %w", core.ErrStatement, pgErr.Message, pgErr.Code, err)
	}
	return fmt.Errorf("%w: %w", core.ErrStatement, err)
}

func isConnectionError(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08: connection exception, 28: invalid authorization, 57P: operator intervention.
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "28") || strings.HasPrefix(pgErr.Code, "57P")
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

type result int64

func (r result) RowsAffected() int64 { return int64(r) }

// pgxRows adapts pgx.Rows to core.Rows.
type pgxRows struct {
	rows    pgx.Rows
	columns []string
}

func newPgxRows(rows pgx.Rows) *pgxRows {
	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}
	return &pgxRows{rows: rows, columns: columns}
}

func (r *pgxRows) Columns() []string { return r.columns }

func (r *pgxRows) Next() bool { return r.rows.Next() }

func (r *pgxRows) Values() ([]any, error) { return r.rows.Values() }

func (r *pgxRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return classify(err)
	}
	return nil
}

func (r *pgxRows) Close() error {
	r.rows.Close()
	return nil
}
