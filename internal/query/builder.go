package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/logging"
	"github.com/rzpsarthak13/tabular/internal/schema"
)

// Executor runs a finished statement. The model implements it: exec
// statements go straight to the database, query statements are materialized.
type Executor interface {
	Execute(ctx context.Context, stmt Statement) error
}

type state int

const (
	stateEmpty state = iota
	stateSelecting
	statePredicate
	stateConnective
)

var stateNames = [...]string{"empty", "selecting", "predicate", "connective"}

func (s state) String() string { return stateNames[s] }

// Builder assembles one read statement at a time against a single table.
//
// Chain methods record the first misuse and turn every later call into a
// no-op; the recorded error is returned by Run. Run and RunStatement reset the
// builder whether or not execution succeeds. While a statement is in flight
// every call is rejected with core.ErrInvalidState.
type Builder struct {
	mu     sync.Mutex
	table  string
	exec   Executor
	logger *zap.Logger

	state    state
	buf      strings.Builder
	args     []any
	err      error
	inFlight bool
}

// NewBuilder returns an empty builder for table that hands finished
// statements to exec.
func NewBuilder(table string, exec Executor, logger *zap.Logger) *Builder {
	return &Builder{
		table:  table,
		exec:   exec,
		logger: logging.OrNop(logger),
	}
}

// Select starts the statement. With no columns it selects "*".
func (b *Builder) Select(cols ...string) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.usable() {
		return b
	}
	if b.state != stateEmpty {
		b.fail(fmt.Errorf("%w: select called in %s state", core.ErrInvalidState, b.state))
		return b
	}
	if len(cols) == 0 {
		cols = []string{"*"}
	}
	for _, c := range cols {
		if err := schema.ValidateColumnRef(c); err != nil {
			b.fail(fmt.Errorf("select: %w", err))
			return b
		}
	}
	b.buf.WriteString("SELECT ")
	b.buf.WriteString(strings.Join(cols, ","))
	b.buf.WriteString(" FROM ")
	b.buf.WriteString(b.table)
	b.state = stateSelecting
	return b
}

// Where appends the predicate "lhs op rhs". rhs is always bound as a parameter.
func (b *Builder) Where(lhs, op string, rhs any) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.usable() {
		return b
	}
	if b.state != stateSelecting && b.state != stateConnective {
		b.fail(fmt.Errorf("%w: where called in %s state", core.ErrInvalidState, b.state))
		return b
	}
	if err := schema.ValidateIdentifier(lhs); err != nil {
		b.fail(fmt.Errorf("where: %w", err))
		return b
	}
	canonical, err := schema.NormalizeOperator(op)
	if err != nil {
		b.fail(fmt.Errorf("where: %w", err))
		return b
	}
	if err := checkOperand(rhs); err != nil {
		b.fail(fmt.Errorf("where %s: %w", lhs, err))
		return b
	}

	if b.state == stateSelecting {
		b.buf.WriteString(" WHERE ")
	}
	b.args = append(b.args, rhs)
	b.buf.WriteString(lhs)
	b.buf.WriteByte(' ')
	b.buf.WriteString(canonical)
	b.buf.WriteString(" $")
	b.buf.WriteString(strconv.Itoa(len(b.args)))
	b.state = statePredicate
	return b
}

// WhereEq appends "lhs = rhs".
func (b *Builder) WhereEq(lhs string, rhs any) *Builder { return b.Where(lhs, "=", rhs) }

// WhereGreater appends "lhs > rhs".
func (b *Builder) WhereGreater(lhs string, rhs any) *Builder { return b.Where(lhs, ">", rhs) }

// WhereGreaterEq appends "lhs >= rhs".
func (b *Builder) WhereGreaterEq(lhs string, rhs any) *Builder { return b.Where(lhs, ">=", rhs) }

// WhereLess appends "lhs < rhs".
func (b *Builder) WhereLess(lhs string, rhs any) *Builder { return b.Where(lhs, "<", rhs) }

// WhereLessEq appends "lhs <= rhs".
func (b *Builder) WhereLessEq(lhs string, rhs any) *Builder { return b.Where(lhs, "<=", rhs) }

// And joins the previous predicate with the next one.
func (b *Builder) And() *Builder { return b.connective(" AND ") }

// Or joins the previous predicate with the next one.
func (b *Builder) Or() *Builder { return b.connective(" OR ") }

func (b *Builder) connective(word string) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.usable() {
		return b
	}
	if b.state != statePredicate {
		b.fail(fmt.Errorf("%w: %s called in %s state", core.ErrInvalidState, strings.ToLower(strings.TrimSpace(word)), b.state))
		return b
	}
	b.buf.WriteString(word)
	b.state = stateConnective
	return b
}

// Err returns the recorded chain error, or core.ErrInvalidState while a
// statement is in flight.
func (b *Builder) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight {
		return fmt.Errorf("%w: statement in flight", core.ErrInvalidState)
	}
	return b.err
}

// Statement returns the statement built so far without executing it. A
// runnable statement carries its terminating semicolon.
func (b *Builder) Statement() Statement {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

func (b *Builder) current() Statement {
	text := b.buf.String()
	if b.state == stateSelecting || b.state == statePredicate {
		text += ";"
	}
	args := make([]any, len(b.args))
	copy(args, b.args)
	return Statement{Kind: KindQuery, Text: text, Args: args}
}

// Run terminates the statement and hands it to the executor as a read.
func (b *Builder) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.inFlight {
		b.mu.Unlock()
		return fmt.Errorf("%w: statement in flight", core.ErrInvalidState)
	}
	if b.err != nil {
		err := b.err
		b.reset()
		b.mu.Unlock()
		return err
	}
	if b.state != stateSelecting && b.state != statePredicate {
		st := b.state
		b.reset()
		b.mu.Unlock()
		return fmt.Errorf("%w: run called in %s state", core.ErrInvalidState, st)
	}
	stmt := b.current()
	return b.dispatch(ctx, stmt)
}

// RunStatement discards whatever has been built and executes stmt instead.
func (b *Builder) RunStatement(ctx context.Context, stmt Statement) error {
	b.mu.Lock()
	if b.inFlight {
		b.mu.Unlock()
		return fmt.Errorf("%w: statement in flight", core.ErrInvalidState)
	}
	if stmt.IsZero() {
		b.reset()
		b.mu.Unlock()
		return fmt.Errorf("%w: empty statement", core.ErrInvalidState)
	}
	return b.dispatch(ctx, stmt)
}

// dispatch must be called with b.mu held; it releases the lock for the
// duration of execution.
func (b *Builder) dispatch(ctx context.Context, stmt Statement) error {
	b.reset()
	b.inFlight = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.inFlight = false
		b.mu.Unlock()
	}()

	if ce := b.logger.Check(zap.DebugLevel, "executing statement"); ce != nil {
		fields := []zap.Field{
			zap.String("table", b.table),
			zap.Stringer("kind", stmt.Kind),
			zap.String("sql", stmt.Text),
			zap.Int("args", len(stmt.Args)),
		}
		if logging.Development() {
			fields = append(fields, zap.String("inline", stmt.Inline()))
		}
		ce.Write(fields...)
	}
	return b.exec.Execute(ctx, stmt)
}

func (b *Builder) usable() bool {
	return !b.inFlight && b.err == nil
}

func (b *Builder) fail(err error) {
	b.err = err
	b.logger.Debug("builder call rejected", zap.String("table", b.table), zap.Error(err))
}

func (b *Builder) reset() {
	b.state = stateEmpty
	b.buf.Reset()
	b.args = nil
	b.err = nil
}

func checkOperand(v any) error {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64, string, bool, []int, []float64, []string:
		return nil
	default:
		return fmt.Errorf("%w: cannot bind %T", core.ErrUnsupportedType, v)
	}
}
