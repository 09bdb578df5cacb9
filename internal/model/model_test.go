package model

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/database"
	"github.com/rzpsarthak13/tabular/internal/schema"
)

type person struct {
	model *Model
	names *schema.StringColumn
	ages  *schema.IntColumn
}

func newPerson(t *testing.T, db core.Database, opts ...Option) person {
	t.Helper()
	p := person{names: &schema.StringColumn{}, ages: &schema.IntColumn{}}
	m, err := New("person", db, []schema.Attribute{
		schema.Attr("name", schema.String, p.names),
		schema.Attr("age", schema.Integer, p.ages),
	}, opts...)
	require.NoError(t, err)
	p.model = m
	return p
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDatabase(nil)
	p := newPerson(t, db)

	require.NoError(t, p.model.Create(ctx))
	require.NoError(t, p.model.Insert(ctx, [][]any{{"Alice", 30}, {"Bob", 25}}))
	require.NoError(t, p.model.BuildQuery().Select("name", "age").Run(ctx))

	assert.Equal(t, []string{"Alice", "Bob"}, p.names.Values())
	assert.Equal(t, []int{30, 25}, p.ages.Values())
	assert.Equal(t, 2, p.model.Len())

	assert.Equal(t, []string{
		"CREATE TABLE person (id SERIAL PRIMARY KEY, name VARCHAR(255), age int);",
		"INSERT INTO person (name,age) VALUES ($1,$2),($3,$4);",
		"SELECT name,age FROM person;",
	}, db.History())
}

func TestFilteredReadsAccumulate(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDatabase(nil)
	p := newPerson(t, db)
	require.NoError(t, p.model.Create(ctx))
	require.NoError(t, p.model.Insert(ctx, [][]any{{"Alice", 30}, {"Bob", 25}, {"Carol", 41}}))

	require.NoError(t, p.model.BuildQuery().Select("*").WhereGreaterEq("age", 30).And().WhereEq("name", "Carol").Run(ctx))
	assert.Equal(t, []string{"Carol"}, p.names.Values())

	require.NoError(t, p.model.BuildQuery().Select("name", "age").WhereLess("age", 26).Run(ctx))
	assert.Equal(t, []string{"Carol", "Bob"}, p.names.Values())
	assert.Equal(t, p.names.Len(), p.ages.Len())

	p.model.Reset()
	assert.Equal(t, 0, p.model.Len())
}

func TestInsertArityMismatchIssuesNoStatement(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDatabase(nil)
	p := newPerson(t, db)
	require.NoError(t, p.model.Create(ctx))
	before := len(db.History())

	err := p.model.Insert(ctx, [][]any{{"Alice", 30}, {"Bob"}})
	assert.ErrorIs(t, err, core.ErrArityMismatch)

	err = p.model.Insert(ctx, [][]any{{"Alice", "thirty"}})
	assert.ErrorIs(t, err, core.ErrConversion)

	require.NoError(t, p.model.Insert(ctx, nil))
	assert.Len(t, db.History(), before)
}

func TestCreateTwiceFailsWithStatementError(t *testing.T) {
	ctx := context.Background()
	p := newPerson(t, database.NewMemoryDatabase(nil))
	require.NoError(t, p.model.Create(ctx))
	assert.ErrorIs(t, p.model.Create(ctx), core.ErrStatement)
	assert.NoError(t, p.model.CreateIfNotExists(ctx))

	require.NoError(t, p.model.Drop(ctx))
	exists, err := p.model.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClosedDatabaseSurfacesConnectionError(t *testing.T) {
	db := database.NewMemoryDatabase(nil)
	p := newPerson(t, db)
	require.NoError(t, db.Close())
	assert.ErrorIs(t, p.model.Create(context.Background()), core.ErrConnection)
}

func TestSelectingSubsetFailsMaterialization(t *testing.T) {
	ctx := context.Background()
	p := newPerson(t, database.NewMemoryDatabase(nil))
	require.NoError(t, p.model.Create(ctx))
	require.NoError(t, p.model.Insert(ctx, [][]any{{"Alice", 30}}))

	err := p.model.BuildQuery().Select("name").Run(ctx)
	assert.ErrorIs(t, err, core.ErrColumnNotFound)
	assert.Equal(t, 0, p.model.Len())
}

func TestColumnLookup(t *testing.T) {
	p := newPerson(t, database.NewMemoryDatabase(nil))
	col, err := p.model.Column("age")
	require.NoError(t, err)
	assert.Same(t, p.ages, col)

	_, err = p.model.Column("email")
	assert.ErrorIs(t, err, core.ErrColumnNotFound)
	assert.Equal(t, "person", p.model.Tablename())
}

func TestNewRejectsMisconfiguration(t *testing.T) {
	db := database.NewMemoryDatabase(nil)
	_, err := New("person", db, []schema.Attribute{schema.Attr("age", schema.Integer, &schema.StringColumn{})})
	assert.ErrorIs(t, err, core.ErrUnsupportedType)

	_, err = New("person", nil, []schema.Attribute{schema.Attr("age", schema.Integer, nil)})
	assert.Error(t, err)

	assert.Panics(t, func() {
		MustNew("bad name", db, []schema.Attribute{schema.Attr("age", schema.Integer, nil)})
	})
}

type fakeQueue struct {
	mu  sync.Mutex
	ops []*core.WriteOperation
}

func (q *fakeQueue) Enqueue(_ context.Context, op *core.WriteOperation) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = append(q.ops, op)
	return nil
}

func (q *fakeQueue) Dequeue(context.Context, int) ([]*core.WriteOperation, error) { return nil, nil }
func (q *fakeQueue) Size() int                                                   { return len(q.ops) }
func (q *fakeQueue) Close() error                                                { return nil }

func TestInsertAsync(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDatabase(nil)

	p := newPerson(t, db)
	assert.ErrorIs(t, p.model.InsertAsync(ctx, [][]any{{"Alice", 30}}), ErrNoQueue)

	q := &fakeQueue{}
	p = newPerson(t, db, WithQueue(q))
	assert.ErrorIs(t, p.model.InsertAsync(ctx, [][]any{{"Alice"}}), core.ErrArityMismatch)
	require.NoError(t, p.model.InsertAsync(ctx, [][]any{{"Alice", int64(30)}}))

	require.Len(t, q.ops, 1)
	assert.Equal(t, "person", q.ops[0].Table)
	assert.Equal(t, [][]any{{"Alice", 30}}, q.ops[0].Rows)
	assert.Empty(t, db.History())
}

type fakeCache struct {
	loads       int
	invalidated []string
	stored      map[string][][]any
	columns     []string
}

func (c *fakeCache) Query(ctx context.Context, table, text string, args []any, load func(context.Context) (core.Rows, error)) (core.Rows, error) {
	if data, ok := c.stored[text]; ok {
		return core.NewStaticRows(c.columns, data), nil
	}
	c.loads++
	rows, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.columns = rows.Columns()
	var data [][]any
	for rows.Next() {
		v, err := rows.Values()
		if err != nil {
			return nil, err
		}
		data = append(data, v)
	}
	_ = rows.Close()
	c.stored[text] = data
	return core.NewStaticRows(c.columns, data), nil
}

func (c *fakeCache) Invalidate(_ context.Context, table string) error {
	c.invalidated = append(c.invalidated, table)
	c.stored = map[string][][]any{}
	return nil
}

func TestReadsGoThroughCache(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDatabase(nil)
	cache := &fakeCache{stored: map[string][][]any{}}
	p := newPerson(t, db, WithCache(cache))

	require.NoError(t, p.model.Create(ctx))
	require.NoError(t, p.model.Insert(ctx, [][]any{{"Alice", 30}}))
	assert.Equal(t, []string{"person", "person"}, cache.invalidated)

	require.NoError(t, p.model.BuildQuery().Select("name", "age").Run(ctx))
	require.NoError(t, p.model.BuildQuery().Select("name", "age").Run(ctx))
	assert.Equal(t, 1, cache.loads)
	assert.Equal(t, []string{"Alice", "Alice"}, p.names.Values())
}

func TestInsertRejectsIntegerOutsideColumnRange(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDatabase(nil)
	p := newPerson(t, db)
	require.NoError(t, p.model.Create(ctx))

	err := p.model.Insert(ctx, [][]any{{"Alice", 30}, {"big", 3000000000}})
	assert.ErrorIs(t, err, core.ErrConversion)
	assert.Len(t, db.History(), 1)

	require.NoError(t, p.model.Insert(ctx, [][]any{{"Alice", 30}}))
	require.NoError(t, p.model.BuildQuery().Select("*").Run(ctx))
	assert.Equal(t, []int{30}, p.ages.Values())
}
