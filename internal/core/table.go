package core

import (
	"context"
)

// Table is the part of a model the registry, lifecycle hooks and drainer need.
type Table interface {
	// Tablename returns the table the model maps to.
	Tablename() string

	// CreateIfNotExists creates the table unless it already exists.
	CreateIfNotExists(ctx context.Context) error

	// Insert writes row tuples in one multi-row statement.
	Insert(ctx context.Context, rows [][]any) error
}
