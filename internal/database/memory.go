package database

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/logging"
	"github.com/rzpsarthak13/tabular/internal/schema"
)

type columnKind int

const (
	kindSerial columnKind = iota
	kindInt
	kindFloat
	kindString
)

type memColumn struct {
	name       string
	kind       columnKind
	array      bool
	primaryKey bool
}

func (c memColumn) dataType() string {
	var base string
	switch c.kind {
	case kindSerial, kindInt:
		base = "int4"
	case kindFloat:
		base = "float8"
	default:
		base = "varchar"
	}
	if c.array {
		return "_" + base
	}
	return base
}

func (c memColumn) tag() schema.TypeTag {
	switch {
	case c.kind == kindInt && c.array:
		return schema.IntegerArray
	case c.kind == kindFloat && c.array:
		return schema.FloatArray
	case c.kind == kindFloat:
		return schema.Float
	case c.kind == kindString:
		return schema.String
	default:
		return schema.Integer
	}
}

type memTable struct {
	columns []memColumn
	index   map[string]int
	rows    [][]any
	serial  int64
}

// MemoryDatabase is an in-process core.Database that understands the
// statements tabular generates: CREATE TABLE, DROP TABLE, multi-row INSERT
// and SELECT with AND/OR comparison chains. Values come back typed the way
// pgx decodes them (int4 as int32, arrays as []any).
type MemoryDatabase struct {
	mu      sync.RWMutex
	tables  map[string]*memTable
	history []string
	closed  bool
	logger  *zap.Logger
}

// NewMemoryDatabase returns an empty database.
func NewMemoryDatabase(logger *zap.Logger) *MemoryDatabase {
	return &MemoryDatabase{
		tables: make(map[string]*memTable),
		logger: logging.OrNop(logger),
	}
}

// History returns every statement text received, in order.
func (m *MemoryDatabase) History() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.history))
	copy(out, m.history)
	return out
}

// Exec runs CREATE, DROP or INSERT. A SELECT is evaluated and discarded.
func (m *MemoryDatabase) Exec(ctx context.Context, query string, args ...any) (core.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConnection, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errClosed
	}
	m.history = append(m.history, query)
	m.logger.Debug("exec", zap.String("sql", query), zap.Int("args", len(args)))

	stmt, err := parse(query, args)
	if err != nil {
		return nil, err
	}
	switch st := stmt.(type) {
	case *createStmt:
		return result(0), m.create(st)
	case *dropStmt:
		return result(0), m.drop(st)
	case *insertStmt:
		n, err := m.insert(st)
		return result(n), err
	case *selectStmt:
		_, data, err := m.selectRows(st)
		return result(len(data)), err
	}
	return nil, fmt.Errorf("%w: unsupported statement", core.ErrStatement)
}

// Query evaluates a SELECT. Other statements run as Exec and yield no rows.
func (m *MemoryDatabase) Query(ctx context.Context, query string, args ...any) (core.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConnection, err)
	}
	stmt, parseErr := parse(query, args)
	st, isSelect := stmt.(*selectStmt)
	if parseErr == nil && !isSelect {
		if _, err := m.Exec(ctx, query, args...); err != nil {
			return nil, err
		}
		return core.NewStaticRows(nil, nil), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errClosed
	}
	m.history = append(m.history, query)
	m.logger.Debug("query", zap.String("sql", query), zap.Int("args", len(args)))
	if parseErr != nil {
		return nil, parseErr
	}

	columns, data, err := m.selectRows(st)
	if err != nil {
		return nil, err
	}
	return core.NewStaticRows(columns, data), nil
}

// Ping fails once the database is closed.
func (m *MemoryDatabase) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errClosed
	}
	return ctx.Err()
}

// TableExists implements core.Database.
func (m *MemoryDatabase) TableExists(_ context.Context, table string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, errClosed
	}
	_, ok := m.tables[strings.ToLower(table)]
	return ok, nil
}

// DescribeTable implements core.Database.
func (m *MemoryDatabase) DescribeTable(_ context.Context, table string) (*core.TableInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errClosed
	}
	t, ok := m.tables[strings.ToLower(table)]
	if !ok {
		return nil, fmt.Errorf("%w: table %q does not exist", core.ErrStatement, table)
	}
	info := &core.TableInfo{Name: table, Columns: make([]core.ColumnInfo, len(t.columns))}
	for i, c := range t.columns {
		info.Columns[i] = core.ColumnInfo{
			Name:       c.name,
			DataType:   c.dataType(),
			Nullable:   !c.primaryKey,
			PrimaryKey: c.primaryKey,
		}
	}
	return info, nil
}

// Close marks the database closed. Later calls fail with ErrConnection.
func (m *MemoryDatabase) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryDatabase) create(st *createStmt) error {
	if _, exists := m.tables[st.table]; exists {
		if st.ifNotExists {
			return nil
		}
		return fmt.Errorf("%w: relation %q already exists (SQLSTATE 42P07)", core.ErrStatement, st.table)
	}
	t := &memTable{columns: st.columns, index: make(map[string]int, len(st.columns))}
	for i, c := range st.columns {
		if _, dup := t.index[c.name]; dup {
			return fmt.Errorf("%w: column %q specified more than once", core.ErrStatement, c.name)
		}
		t.index[c.name] = i
	}
	m.tables[st.table] = t
	return nil
}

func (m *MemoryDatabase) drop(st *dropStmt) error {
	if _, exists := m.tables[st.table]; !exists && !st.ifExists {
		return fmt.Errorf("%w: table %q does not exist (SQLSTATE 42P01)", core.ErrStatement, st.table)
	}
	delete(m.tables, st.table)
	return nil
}

func (m *MemoryDatabase) lookup(table string) (*memTable, error) {
	t, ok := m.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: relation %q does not exist (SQLSTATE 42P01)", core.ErrStatement, table)
	}
	return t, nil
}

func (m *MemoryDatabase) insert(st *insertStmt) (int, error) {
	t, err := m.lookup(st.table)
	if err != nil {
		return 0, err
	}
	positions := make([]int, len(st.columns))
	for i, name := range st.columns {
		pos, ok := t.index[name]
		if !ok {
			return 0, fmt.Errorf("%w: column %q of relation %q does not exist", core.ErrStatement, name, st.table)
		}
		positions[i] = pos
	}

	staged := make([][]any, 0, len(st.rows))
	serial := t.serial
	for _, in := range st.rows {
		row := make([]any, len(t.columns))
		for i, v := range in {
			col := t.columns[positions[i]]
			if v == nil {
				continue
			}
			stored, err := store(col, v)
			if err != nil {
				return 0, err
			}
			row[positions[i]] = stored
		}
		for i, col := range t.columns {
			if col.kind == kindSerial && row[i] == nil {
				serial++
				row[i] = serial
			}
		}
		staged = append(staged, row)
	}
	t.serial = serial
	t.rows = append(t.rows, staged...)
	return len(staged), nil
}

// store coerces v to the column's canonical Go type.
func store(col memColumn, v any) (any, error) {
	conv, err := schema.DefaultCatalog().Converter(col.tag())
	if err != nil {
		return nil, err
	}
	out, err := conv(v)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid input for column %q: %w", core.ErrStatement, col.name, err)
	}
	if col.kind == kindSerial {
		return int64(out.(int)), nil
	}
	return out, nil
}

func (m *MemoryDatabase) selectRows(st *selectStmt) ([]string, [][]any, error) {
	t, err := m.lookup(st.table)
	if err != nil {
		return nil, nil, err
	}

	var positions []int
	var columns []string
	if st.columns == nil {
		for i, c := range t.columns {
			positions = append(positions, i)
			columns = append(columns, c.name)
		}
	} else {
		for _, name := range st.columns {
			pos, ok := t.index[name]
			if !ok {
				return nil, nil, fmt.Errorf("%w: column %q does not exist", core.ErrStatement, name)
			}
			positions = append(positions, pos)
			columns = append(columns, name)
		}
	}
	for _, group := range st.where {
		for _, cmp := range group {
			if _, ok := t.index[cmp.column]; !ok {
				return nil, nil, fmt.Errorf("%w: column %q does not exist", core.ErrStatement, cmp.column)
			}
		}
	}

	var data [][]any
	for _, row := range t.rows {
		ok, err := matches(t, row, st.where)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		out := make([]any, len(positions))
		for i, pos := range positions {
			out[i] = decode(row[pos])
		}
		data = append(data, out)
	}
	return columns, data, nil
}

// decode returns a stored value the way pgx hands it back.
func decode(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		return int32(x)
	case int64:
		return int32(x)
	case []int:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = int32(e)
		}
		return out
	case []float64:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	default:
		return v
	}
}

func matches(t *memTable, row []any, where [][]comparison) (bool, error) {
	if len(where) == 0 {
		return true, nil
	}
	for _, group := range where {
		all := true
		for _, cmp := range group {
			ok, err := compare(t.columns[t.index[cmp.column]], row[t.index[cmp.column]], cmp.op, cmp.value)
			if err != nil {
				return false, err
			}
			if !ok {
				all = false
				break
			}
		}
		if all {
			return true, nil
		}
	}
	return false, nil
}

func compare(col memColumn, stored any, op string, operand any) (bool, error) {
	if stored == nil || operand == nil {
		return false, nil
	}

	if op == "LIKE" {
		s, ok := stored.(string)
		if !ok {
			return false, fmt.Errorf("%w: operator does not exist: %s LIKE", core.ErrStatement, col.dataType())
		}
		pattern, err := store(col, operand)
		if err != nil {
			return false, err
		}
		return likePattern(pattern.(string)).MatchString(s), nil
	}

	if col.array {
		rhs, err := store(col, operand)
		if err != nil {
			return false, err
		}
		equal := reflect.DeepEqual(stored, rhs)
		switch op {
		case "=":
			return equal, nil
		case "!=", "<>":
			return !equal, nil
		}
		return false, fmt.Errorf("%w: operator %s is not supported for arrays", core.ErrStatement, op)
	}

	var c int
	if col.kind == kindString {
		rhs, err := store(col, operand)
		if err != nil {
			return false, err
		}
		c = strings.Compare(stored.(string), rhs.(string))
	} else {
		// Numeric columns compare by value, so int columns accept float operands.
		lhs, err := numeric(col, stored)
		if err != nil {
			return false, err
		}
		rhs, err := numeric(col, operand)
		if err != nil {
			return false, err
		}
		c = cmpOrdered(lhs, rhs)
	}

	switch op {
	case "=":
		return c == 0, nil
	case "!=", "<>":
		return c != 0, nil
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, fmt.Errorf("%w: operator %q does not exist", core.ErrStatement, op)
}

func numeric(col memColumn, v any) (float64, error) {
	conv, err := schema.DefaultCatalog().Converter(schema.Float)
	if err != nil {
		return 0, err
	}
	f, err := conv(v)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid input for %s comparison on column %q: %w", core.ErrStatement, col.dataType(), col.name, err)
	}
	return f.(float64), nil
}

func cmpOrdered(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func likePattern(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
