package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/database"
	"github.com/rzpsarthak13/tabular/internal/kvstore"
	"github.com/rzpsarthak13/tabular/internal/model"
	"github.com/rzpsarthak13/tabular/internal/schema"
)

type yamlProvider string

func (p yamlProvider) GetYAML() ([]byte, error) { return []byte(p), nil }

const testConfig = `
database:
  type: memory
cache:
  enabled: true
  ttl: 1m
writeback:
  enabled: true
  queue_type: memory
  batch_size: 10
  drain_rate: 1000
  workers: 2
  poll_interval: 5ms
  retry_backoff_base: 1ms
  retry_backoff_max: 5ms
tables:
  people:
    auto_create: true
log:
  level: error
`

type people struct {
	model *model.Model
	names *schema.StringColumn
	ages  *schema.IntColumn
}

func newPeople(t *testing.T, c *ClientImpl) people {
	t.Helper()
	p := people{names: &schema.StringColumn{}, ages: &schema.IntColumn{}}
	m, err := c.NewModel(context.Background(), "people",
		schema.Attr("name", schema.String, p.names),
		schema.Attr("age", schema.Integer, p.ages),
	)
	require.NoError(t, err)
	p.model = m
	return p
}

func newClient(t *testing.T) *ClientImpl {
	t.Helper()
	c, err := NewClientImpl(context.Background(), yamlProvider(testConfig))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func countRows(t *testing.T, db core.Database, table string) int {
	t.Helper()
	rows, err := db.Query(context.Background(), "SELECT * FROM "+table+";")
	require.NoError(t, err)
	defer rows.Close()
	n := 0
	for rows.Next() {
		n++
	}
	require.NoError(t, rows.Err())
	return n
}

func TestNewModelAutoCreates(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	p := newPeople(t, c)

	ok, err := p.model.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := c.Model("people")
	require.NoError(t, err)
	assert.Same(t, p.model, got)
	assert.Equal(t, []string{"people"}, c.Tables())

	_, err = c.Model("pets")
	assert.Error(t, err)
}

func TestReadsAreCached(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	p := newPeople(t, c)
	db := c.Database().(*database.MemoryDatabase)
	_, isMemory := c.KVStore().(*kvstore.MemoryKVStore)
	require.True(t, isMemory)

	require.NoError(t, p.model.Insert(ctx, [][]any{{"Alice", 30}, {"Bob", 25}}))

	require.NoError(t, p.model.BuildQuery().Select("name", "age").Run(ctx))
	issued := len(db.History())
	require.NoError(t, p.model.BuildQuery().Select("name", "age").Run(ctx))

	assert.Len(t, db.History(), issued)
	assert.Equal(t, []string{"Alice", "Bob", "Alice", "Bob"}, p.names.Values())
	assert.Equal(t, []int{30, 25, 30, 25}, p.ages.Values())

	// A write invalidates the cached read.
	require.NoError(t, p.model.Insert(ctx, [][]any{{"Carol", 41}}))
	p.model.Reset()
	require.NoError(t, p.model.BuildQuery().Select("name", "age").Run(ctx))
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, p.names.Values())
}

func TestInsertAsyncDrains(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	p := newPeople(t, c)

	require.NoError(t, p.model.InsertAsync(ctx, [][]any{{"Alice", 30}}))
	require.NoError(t, p.model.InsertAsync(ctx, [][]any{{"Bob", 25}, {"Carol", 41}}))
	assert.Equal(t, 2, c.QueueSize())
	assert.Equal(t, 0, countRows(t, c.Database(), "people"))

	require.NoError(t, c.Start(ctx))
	assert.True(t, c.IsRunning())

	require.Eventually(t, func() bool {
		return countRows(t, c.Database(), "people") == 3
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Stop())
	assert.False(t, c.IsRunning())
}

func TestExecuteWriteOperationUnknownTable(t *testing.T) {
	c := newClient(t)
	err := c.ExecuteWriteOperation(context.Background(), &core.WriteOperation{Table: "ghost", Rows: [][]any{{1}}})
	assert.ErrorIs(t, err, core.ErrInvalidState)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	c, err := NewClientImpl(ctx, yamlProvider(testConfig))
	require.NoError(t, err)
	newPeople(t, c)
	lifecycle := c.registry.GetLifecycleManager()
	assert.Equal(t, 1, lifecycle.HookCount())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Empty(t, c.Tables())
	assert.Equal(t, 0, lifecycle.HookCount())

	_, err = c.NewModel(ctx, "people", schema.Attr("name", schema.String, &schema.StringColumn{}))
	assert.ErrorIs(t, err, core.ErrInvalidState)
	assert.ErrorIs(t, c.Start(ctx), core.ErrInvalidState)
	assert.ErrorIs(t, c.Database().Ping(ctx), core.ErrConnection)
}

func TestNewClientImplErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewClientImpl(ctx, nil)
	assert.Error(t, err)

	_, err = NewClientImpl(ctx, yamlProvider("database:\n  type: oracle\n"))
	assert.ErrorContains(t, err, "database.type")

	_, err = NewClientImpl(ctx, yamlProvider(`
database:
  type: postgres
  host: 127.0.0.1
  port: 1
  database: orm
  username: app
  connection_timeout: 200ms
`))
	assert.ErrorIs(t, err, core.ErrConnection)
}

func TestWithoutWriteBack(t *testing.T) {
	ctx := context.Background()
	c, err := NewClientImpl(ctx, yamlProvider("database:\n  type: memory\n"))
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.KVStore())
	require.NoError(t, c.Start(ctx))
	assert.False(t, c.IsRunning())

	p := newPeople(t, c)
	require.NoError(t, p.model.Create(ctx))
	assert.ErrorIs(t, p.model.InsertAsync(ctx, [][]any{{"Alice", 30}}), model.ErrNoQueue)
}
