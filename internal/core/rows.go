package core

import "fmt"

// StaticRows replays a fixed result set. It backs the in-process database and
// cached results.
type StaticRows struct {
	columns []string
	rows    [][]any
	pos     int
	closed  bool
	err     error
}

// NewStaticRows returns rows positioned before the first of data.
func NewStaticRows(columns []string, data [][]any) *StaticRows {
	return &StaticRows{columns: columns, rows: data, pos: -1}
}

// FailAfter makes iteration stop with err once n rows have been returned.
func (r *StaticRows) FailAfter(n int, err error) *StaticRows {
	if n < len(r.rows) {
		r.rows = r.rows[:n]
	}
	r.err = err
	return r
}

// Columns implements Rows.
func (r *StaticRows) Columns() []string { return r.columns }

// Next implements Rows.
func (r *StaticRows) Next() bool {
	if r.closed || r.pos+1 >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

// Values implements Rows.
func (r *StaticRows) Values() ([]any, error) {
	if r.closed {
		return nil, fmt.Errorf("rows are closed")
	}
	if r.pos < 0 || r.pos >= len(r.rows) {
		return nil, fmt.Errorf("no current row")
	}
	return r.rows[r.pos], nil
}

// Err implements Rows.
func (r *StaticRows) Err() error { return r.err }

// Close implements Rows.
func (r *StaticRows) Close() error {
	r.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (r *StaticRows) Closed() bool { return r.closed }
