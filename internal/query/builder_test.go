package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/tabular/internal/core"
)

type recordingExecutor struct {
	statements []Statement
	err        error
	during     func()
}

func (r *recordingExecutor) Execute(_ context.Context, stmt Statement) error {
	r.statements = append(r.statements, stmt)
	if r.during != nil {
		r.during()
	}
	return r.err
}

func TestSelectColumns(t *testing.T) {
	b := NewBuilder("t", &recordingExecutor{}, nil)
	assert.Equal(t, "SELECT a,b FROM t;", b.Select("a", "b").Statement().Text)

	b = NewBuilder("t", &recordingExecutor{}, nil)
	assert.Equal(t, "SELECT * FROM t;", b.Select().Statement().Text)
}

func TestWhereAndRendering(t *testing.T) {
	exec := &recordingExecutor{}
	b := NewBuilder("person", exec, nil)

	stmt := b.Select("name", "age").WhereEq("age", 30).And().WhereEq("name", "X").Statement()
	assert.Equal(t, "SELECT name,age FROM person WHERE age = $1 AND name = $2;", stmt.Text)
	assert.Equal(t, []any{30, "X"}, stmt.Args)
	assert.Equal(t, "SELECT name,age FROM person WHERE age = 30 AND name = 'X';", stmt.Inline())
	assert.Equal(t, KindQuery, stmt.Kind)
}

func TestOnlyFirstPredicateGetsWhere(t *testing.T) {
	b := NewBuilder("person", &recordingExecutor{}, nil)
	stmt := b.Select("*").
		WhereGreaterEq("age", 18).
		And().WhereLess("age", 65).
		Or().Where("name", "like", "A%").
		Statement()
	assert.Equal(t, "SELECT * FROM person WHERE age >= $1 AND age < $2 OR name LIKE $3;", stmt.Text)
}

func TestRunExecutesAndResets(t *testing.T) {
	exec := &recordingExecutor{}
	b := NewBuilder("person", exec, nil)

	require.NoError(t, b.Select("name").WhereGreater("age", 20).Run(context.Background()))
	require.Len(t, exec.statements, 1)
	assert.Equal(t, "SELECT name FROM person WHERE age > $1;", exec.statements[0].Text)
	assert.Equal(t, KindQuery, exec.statements[0].Kind)

	assert.Equal(t, "", b.Statement().Text)
	assert.Empty(t, b.Statement().Args)

	require.NoError(t, b.Select("age").Run(context.Background()))
	assert.Equal(t, "SELECT age FROM person;", exec.statements[1].Text)
}

func TestRunResetsOnExecutorFailure(t *testing.T) {
	boom := errors.New("boom")
	exec := &recordingExecutor{err: boom}
	b := NewBuilder("person", exec, nil)

	err := b.Select("name").Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "", b.Statement().Text)
}

func TestInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		build func(*Builder) *Builder
	}{
		{"run on empty", func(b *Builder) *Builder { return b }},
		{"where before select", func(b *Builder) *Builder { return b.WhereEq("age", 1) }},
		{"and before predicate", func(b *Builder) *Builder { return b.Select("a").And() }},
		{"dangling connective", func(b *Builder) *Builder { return b.Select("a").WhereEq("a", 1).Or() }},
		{"double select", func(b *Builder) *Builder { return b.Select("a").Select("b") }},
		{"two predicates without connective", func(b *Builder) *Builder { return b.Select("a").WhereEq("a", 1).WhereEq("a", 2) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &recordingExecutor{}
			b := NewBuilder("t", exec, nil)
			err := tt.build(b).Run(ctx)
			assert.ErrorIs(t, err, core.ErrInvalidState)
			assert.Empty(t, exec.statements)
			assert.Equal(t, "", b.Statement().Text)
		})
	}
}

func TestErrorsAreSticky(t *testing.T) {
	exec := &recordingExecutor{}
	b := NewBuilder("t", exec, nil)

	b.Select("a").Where("a", "~", 1).And().WhereEq("b", 2)
	assert.ErrorIs(t, b.Err(), core.ErrInvalidOperator)
	assert.Equal(t, "SELECT a FROM t;", b.Statement().Text)

	err := b.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrInvalidOperator)
	assert.Empty(t, exec.statements)
	assert.NoError(t, b.Err())
}

func TestRejectsUnsafeInput(t *testing.T) {
	b := NewBuilder("t", &recordingExecutor{}, nil)
	assert.ErrorIs(t, b.Select("a; DROP TABLE t").Run(context.Background()), core.ErrInvalidIdentifier)
	assert.ErrorIs(t, b.Select("a").WhereEq("1=1 OR a", 1).Run(context.Background()), core.ErrInvalidIdentifier)
	assert.ErrorIs(t, b.Select("a").WhereEq("a", struct{}{}).Run(context.Background()), core.ErrUnsupportedType)
}

func TestRunStatementOverridesBuffer(t *testing.T) {
	exec := &recordingExecutor{}
	b := NewBuilder("person", exec, nil)
	b.Select("name")

	require.NoError(t, b.RunStatement(context.Background(), DropTable("person")))
	require.Len(t, exec.statements, 1)
	assert.Equal(t, "DROP TABLE IF EXISTS person;", exec.statements[0].Text)
	assert.Equal(t, KindExec, exec.statements[0].Kind)
	assert.Equal(t, "", b.Statement().Text)

	assert.ErrorIs(t, b.RunStatement(context.Background(), Statement{}), core.ErrInvalidState)
}

func TestInFlightBuilderRejectsCalls(t *testing.T) {
	exec := &recordingExecutor{}
	b := NewBuilder("person", exec, nil)

	var nestedRun, nestedErr error
	exec.during = func() {
		nestedErr = b.Err()
		nestedRun = b.Select("name").Run(context.Background())
	}

	require.NoError(t, b.Select("age").Run(context.Background()))
	assert.ErrorIs(t, nestedErr, core.ErrInvalidState)
	assert.ErrorIs(t, nestedRun, core.ErrInvalidState)
	assert.Len(t, exec.statements, 1)
	assert.NoError(t, b.Err())
}
