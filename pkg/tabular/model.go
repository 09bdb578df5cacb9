package tabular

import (
	"context"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/database"
	"github.com/rzpsarthak13/tabular/internal/logging"
	"github.com/rzpsarthak13/tabular/internal/model"
	"github.com/rzpsarthak13/tabular/internal/query"
	"github.com/rzpsarthak13/tabular/internal/schema"
)

type (
	// Model is the façade over one table: DDL, inserts, and a fluent
	// statement builder whose reads land in the bound columns.
	Model = model.Model

	// Builder composes SELECT statements for a model.
	Builder = query.Builder

	// Statement is a rendered statement with positional arguments.
	Statement = query.Statement

	// Attribute binds a column name and type to caller-owned storage.
	Attribute = schema.Attribute

	// TypeTag is the abstract type of an attribute.
	TypeTag = schema.TypeTag

	// Column is caller-owned storage for one attribute.
	Column = schema.Column

	IntColumn        = schema.IntColumn
	FloatColumn      = schema.FloatColumn
	StringColumn     = schema.StringColumn
	IntArrayColumn   = schema.IntArrayColumn
	FloatArrayColumn = schema.FloatArrayColumn

	// Database is the connection a model executes against.
	Database = core.Database

	// TableInfo describes an existing table.
	TableInfo = core.TableInfo

	// PostgresOptions configures NewPostgresDatabase.
	PostgresOptions = database.PostgresOptions
)

const (
	Integer      = schema.Integer
	Float        = schema.Float
	String       = schema.String
	IntegerArray = schema.IntegerArray
	FloatArray   = schema.FloatArray
)

// Errors returned by models and clients. Test with errors.Is.
var (
	ErrUnsupportedType   = core.ErrUnsupportedType
	ErrArityMismatch     = core.ErrArityMismatch
	ErrColumnNotFound    = core.ErrColumnNotFound
	ErrConnection        = core.ErrConnection
	ErrStatement         = core.ErrStatement
	ErrInvalidState      = core.ErrInvalidState
	ErrInvalidIdentifier = core.ErrInvalidIdentifier
	ErrInvalidOperator   = core.ErrInvalidOperator
	ErrConversion        = core.ErrConversion
	ErrKeyNotFound       = core.ErrKeyNotFound
	ErrQueueClosed       = core.ErrQueueClosed
	ErrQueueFull         = core.ErrQueueFull
	ErrNoQueue           = model.ErrNoQueue
)

// Attr declares one attribute of a model.
func Attr(name string, tag TypeTag, column Column) Attribute {
	return schema.Attr(name, tag, column)
}

// ParseTypeTag parses "integer", "float", "string", "integer[]" or "float[]".
func ParseTypeTag(s string) (TypeTag, error) {
	return schema.ParseTypeTag(s)
}

// NewModel builds a standalone model on db. Attributes are validated eagerly.
func NewModel(table string, db Database, attrs ...Attribute) (*Model, error) {
	return model.New(table, db, attrs, model.WithLogger(logging.Get()))
}

// MustNewModel is like NewModel but panics on a misconfigured attribute list.
func MustNewModel(table string, db Database, attrs ...Attribute) *Model {
	return model.MustNew(table, db, attrs, model.WithLogger(logging.Get()))
}

// NewPostgresDatabase opens a pgx pool and pings it.
func NewPostgresDatabase(ctx context.Context, opts PostgresOptions) (Database, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Named("postgres")
	}
	return database.NewPostgresDatabase(ctx, opts)
}

// NewMemoryDatabase returns an in-process database that understands the
// statements models emit. It is meant for tests and examples.
func NewMemoryDatabase() Database {
	return database.NewMemoryDatabase(logging.Named("memorydb"))
}
