// Package materialize streams result rows into a schema's column storage.
package materialize

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/logging"
	"github.com/rzpsarthak13/tabular/internal/metrics"
	"github.com/rzpsarthak13/tabular/internal/schema"
)

// Materializer appends result rows to the columns of one schema.
type Materializer struct {
	schema *schema.Schema
	logger *zap.Logger
}

// New returns a materializer bound to s.
func New(s *schema.Schema, logger *zap.Logger) *Materializer {
	return &Materializer{schema: s, logger: logging.OrNop(logger)}
}

// Materialize consumes rows and appends every row to the schema's columns.
// Result columns are matched to attributes by name. The read is atomic: on
// any failure every column is truncated back to its length at entry. rows is
// always closed.
func (m *Materializer) Materialize(ctx context.Context, rows core.Rows) (n int, err error) {
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", cerr)
		}
	}()

	columns := rows.Columns()
	positions, err := m.resolve(columns)
	if err != nil {
		return 0, err
	}

	start := m.schema.Rows()
	defer func() {
		if err != nil {
			m.schema.Truncate(start)
			n = 0
			m.logger.Debug("materialization rolled back",
				zap.String("table", m.schema.Table()),
				zap.Int("rows", start),
				zap.Error(err))
		}
	}()

	converted := make([]any, len(positions))
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		values, err := rows.Values()
		if err != nil {
			return 0, fmt.Errorf("read row %d: %w", n, err)
		}
		if len(values) != len(columns) {
			return 0, fmt.Errorf("row %d: %d values for %d columns", n, len(values), len(columns))
		}
		for i, pos := range positions {
			v, err := m.schema.Convert(i, values[pos])
			if err != nil {
				return 0, fmt.Errorf("row %d: %w", n, err)
			}
			converted[i] = v
		}
		m.schema.AppendRow(converted)
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate rows: %w", err)
	}

	metrics.RowsMaterialized.WithLabelValues(m.schema.Table()).Add(float64(n))
	return n, nil
}

// resolve maps every attribute to its position in the result columns.
func (m *Materializer) resolve(columns []string) ([]int, error) {
	byName := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := byName[c]; !dup {
			byName[c] = i
		}
	}
	positions := make([]int, m.schema.NumAttributes())
	for i, name := range m.schema.Names() {
		pos, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q not in result of table %q", core.ErrColumnNotFound, name, m.schema.Table())
		}
		positions[i] = pos
	}
	return positions, nil
}
