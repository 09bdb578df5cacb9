package core

import "errors"

var (
	// ErrUnsupportedType is returned when a column type tag has no catalog entry
	// or when the supplied column storage does not match the tag.
	ErrUnsupportedType = errors.New("unsupported column type")

	// ErrArityMismatch is returned when a row tuple does not carry exactly one
	// value per attribute.
	ErrArityMismatch = errors.New("row arity mismatch")

	// ErrColumnNotFound is returned when a result set lacks a column the schema expects.
	ErrColumnNotFound = errors.New("column not found")

	// ErrConnection is returned when the database cannot be reached or is closed.
	ErrConnection = errors.New("database connection error")

	// ErrStatement is returned when the database rejects a statement.
	ErrStatement = errors.New("statement failed")

	// ErrInvalidState is returned when a builder operation is called out of order.
	ErrInvalidState = errors.New("invalid builder state")

	// ErrInvalidIdentifier is returned for table or column names that are not plain SQL identifiers.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidOperator is returned for comparison operators outside the allowed set.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrConversion is returned when a value cannot be converted to a column's storage type.
	ErrConversion = errors.New("value conversion failed")

	// ErrKeyNotFound is returned by KV stores for missing or expired keys.
	ErrKeyNotFound = errors.New("key not found")

	// ErrQueueClosed is returned when enqueueing to or dequeueing from a closed queue.
	ErrQueueClosed = errors.New("write-back queue is closed")

	// ErrQueueFull is returned when a bounded queue cannot accept more operations.
	ErrQueueFull = errors.New("write-back queue is full")
)
