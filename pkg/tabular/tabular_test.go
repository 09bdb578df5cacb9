package tabular

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestStandaloneModel(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDatabase()
	defer db.Close()

	var names StringColumn
	var ages IntColumn
	people, err := NewModel("people", db,
		Attr("name", String, &names),
		Attr("age", Integer, &ages),
	)
	require.NoError(t, err)

	require.NoError(t, people.Create(ctx))
	require.NoError(t, people.Insert(ctx, [][]any{{"Alice", 30}, {"Bob", 25}}))
	require.NoError(t, people.BuildQuery().Select().WhereGreaterEq("age", 30).Run(ctx))

	assert.Equal(t, []string{"Alice"}, names.Values())
	assert.Equal(t, []int{30}, ages.Values())

	err = people.Insert(ctx, [][]any{{"Carol"}})
	assert.True(t, errors.Is(err, ErrArityMismatch))
}

func TestMustNewModelPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustNewModel("people", NewMemoryDatabase(), Attr("id", Integer, &IntColumn{}))
	})
}

func TestDefaultConfigRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Enabled = true
	cfg.WriteBack.Enabled = true
	cfg.Log.Level = "error"

	data, err := (&configProvider{config: cfg}).GetYAML()
	require.NoError(t, err)

	var back Config
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, 5*time.Minute, back.Cache.TTL)
	assert.Equal(t, "tabular:writeback", back.WriteBack.RedisQueueKey)
	assert.True(t, back.WriteBack.Enabled)
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Cache.Enabled = true
	cfg.WriteBack.Enabled = true
	cfg.WriteBack.DrainRate = 1000
	cfg.WriteBack.PollInterval = 5 * time.Millisecond
	cfg.Tables["scores"] = TableConfig{AutoCreate: true}
	cfg.Log.Level = "error"

	c, err := NewClient(cfg)
	require.NoError(t, err)
	defer c.Close()

	var players StringColumn
	var points FloatArrayColumn
	scores, err := c.NewModel(ctx, "scores",
		Attr("player", String, &players),
		Attr("points", FloatArray, &points),
	)
	require.NoError(t, err)

	require.NoError(t, scores.InsertAsync(ctx, [][]any{{"ana", []float64{1.5, 2}}}))
	require.NoError(t, c.Start(ctx))
	require.Eventually(t, func() bool { return c.QueueSize() == 0 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, c.Stop())

	require.Eventually(t, func() bool {
		scores.Reset()
		return scores.BuildQuery().Select().Run(ctx) == nil && scores.Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"ana"}, players.Values())
	assert.Equal(t, [][]float64{{1.5, 2}}, points.Values())

	assert.Equal(t, []string{"scores"}, c.Tables())
	_, err = c.Model("scores")
	require.NoError(t, err)
}

func TestNewClientNilConfig(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)
}

func TestCacheStoreMissingKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Enabled = true
	cfg.Log.Level = "error"

	c, err := NewClient(cfg)
	require.NoError(t, err)
	defer c.Close()

	kv := c.(*clientWrapper).KVStore()
	require.NotNil(t, kv)
	_, err = kv.Get(context.Background(), "tabular:missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
