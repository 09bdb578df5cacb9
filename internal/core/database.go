package core

import (
	"context"
)

// Database is the external client the model layer executes statements against.
// Implementations must be safe for concurrent use.
type Database interface {
	// Exec runs a statement that returns no rows (DDL, INSERT).
	Exec(ctx context.Context, query string, args ...any) (Result, error)

	// Query runs a statement that returns rows. The caller must close the rows.
	Query(ctx context.Context, query string, args ...any) (Rows, error)

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error

	// TableExists reports whether a table with the given name exists.
	TableExists(ctx context.Context, table string) (bool, error)

	// DescribeTable returns the column layout of an existing table.
	DescribeTable(ctx context.Context, table string) (*TableInfo, error)

	// Close releases all connections.
	Close() error
}

// Rows is a forward-only stream of result rows.
type Rows interface {
	// Columns returns the result column names in positional order.
	Columns() []string

	// Next advances to the next row. It returns false when the stream is
	// exhausted or an error occurred; check Err afterwards.
	Next() bool

	// Values returns the current row's values, positionally matching Columns.
	Values() ([]any, error)

	// Err returns the error, if any, that ended iteration.
	Err() error

	// Close releases the stream. It is safe to call more than once.
	Close() error
}

// Result describes the outcome of an Exec.
type Result interface {
	RowsAffected() int64
}
