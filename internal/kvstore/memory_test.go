package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/tabular/internal/core"
)

func TestMemoryKVStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryKVStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	ok, err = s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryKVStore_ValueIsCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryKVStore()

	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf, 0))
	buf[0] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestMemoryKVStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryKVStore()
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))

	now = now.Add(59 * time.Second)
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, core.ErrKeyNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryKVStore_Incr(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryKVStore()

	n, err := s.Incr(ctx, "epoch")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Incr(ctx, "epoch")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := s.Get(ctx, "epoch")
	require.NoError(t, err)
	assert.Equal(t, "2", string(got))

	require.NoError(t, s.Set(ctx, "blob", []byte("x"), 0))
	_, err = s.Incr(ctx, "blob")
	assert.Error(t, err)
}

func TestMemoryKVStore_Closed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryKVStore()
	require.NoError(t, s.Close())

	_, err := s.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, s.Set(ctx, "k", nil, 0))
	_, err = s.Incr(ctx, "k")
	assert.Error(t, err)
}
