package writeback

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/kvstore"
	"github.com/rzpsarthak13/tabular/internal/registry"
)

func op(table string, rows ...[]any) *core.WriteOperation {
	if len(rows) == 0 {
		rows = [][]any{{"Alice", 30}}
	}
	return &core.WriteOperation{Table: table, Rows: rows}
}

func TestMemoryQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(10)

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(ctx, op("t"+strconv.Itoa(i))))
	}
	assert.Equal(t, 3, q.Size())

	got, err := q.Dequeue(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t0", got[0].Table)
	assert.Equal(t, "t1", got[1].Table)
	assert.False(t, got[0].Timestamp.IsZero())

	got, err = q.Dequeue(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = q.Dequeue(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryQueue_FullAndClosed(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(1)

	require.NoError(t, q.Enqueue(ctx, op("t")))
	assert.ErrorIs(t, q.Enqueue(ctx, op("t")), core.ErrQueueFull)

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Enqueue(ctx, op("t")), core.ErrQueueClosed)

	got, err := q.Dequeue(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = q.Dequeue(ctx, 5)
	assert.ErrorIs(t, err, core.ErrQueueClosed)
}

func TestValidateOperation(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(1)

	assert.ErrorIs(t, q.Enqueue(ctx, nil), ErrInvalidOperation)
	assert.ErrorIs(t, q.Enqueue(ctx, &core.WriteOperation{Rows: [][]any{{1}}}), ErrInvalidOperation)
	assert.ErrorIs(t, q.Enqueue(ctx, &core.WriteOperation{Table: "t"}), ErrInvalidOperation)
}

// fakeLists is an in-memory stand-in for the Redis list commands.
type fakeLists struct {
	mu    sync.Mutex
	lists map[string][][]byte
}

func newFakeLists() *fakeLists { return &fakeLists{lists: map[string][][]byte{}} }

func (f *fakeLists) ListPush(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[key] = append(f.lists[key], value)
	return nil
}

func (f *fakeLists) ListPopN(_ context.Context, key string, count int) ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.lists[key]
	if count > len(l) {
		count = len(l)
	}
	out := l[:count]
	f.lists[key] = l[count:]
	return out, nil
}

func (f *fakeLists) ListLength(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.lists[key])), nil
}

func TestRedisQueue_RoundTrip(t *testing.T) {
	ctx := context.Background()
	lists := newFakeLists()
	q := NewRedisQueue(lists, "", nil)
	assert.Equal(t, "tabular:writeback", q.Key())

	require.NoError(t, q.Enqueue(ctx, op("people", []any{"Alice", 30, []int{1, 2}})))
	require.NoError(t, q.Enqueue(ctx, op("pets")))
	assert.Equal(t, 2, q.Size())

	got, err := q.Dequeue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "people", got[0].Table)
	assert.Equal(t, []any{"Alice", json.Number("30"), []any{json.Number("1"), json.Number("2")}}, got[0].Rows[0])
	assert.Equal(t, 0, q.Size())
}

func TestRedisQueue_SkipsMalformed(t *testing.T) {
	ctx := context.Background()
	lists := newFakeLists()
	q := NewRedisQueue(lists, "wb", nil)

	require.NoError(t, lists.ListPush(ctx, "wb", []byte("not json")))
	require.NoError(t, q.Enqueue(ctx, op("people")))

	got, err := q.Dequeue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "people", got[0].Table)

	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Enqueue(ctx, op("people")), core.ErrQueueClosed)
	_, err = q.Dequeue(ctx, 1)
	assert.ErrorIs(t, err, core.ErrQueueClosed)
}

func TestKafkaMessage(t *testing.T) {
	o := op("people", []any{"Bob", 25})
	o.Timestamp = time.Unix(1_700_000_000, 0)

	msg, err := encodeMessage(o)
	require.NoError(t, err)
	assert.Equal(t, []byte("people"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "operation", msg.Headers[0].Key)
	assert.Equal(t, "insert", string(msg.Headers[0].Value))
	assert.Equal(t, "people", string(msg.Headers[1].Value))

	back, err := decodeOperation(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, "people", back.Table)
	assert.Equal(t, []any{"Bob", json.Number("25")}, back.Rows[0])
	assert.True(t, back.Timestamp.Equal(o.Timestamp))
}

func TestKafkaQueueConfig_Validate(t *testing.T) {
	c := KafkaQueueConfig{Brokers: []string{"localhost:9092"}, Topic: "wb"}
	require.NoError(t, c.validate())
	assert.Equal(t, "tabular-writeback", c.GroupID)
	assert.Equal(t, time.Second, c.ReadTimeout)

	assert.Error(t, (&KafkaQueueConfig{Topic: "wb"}).validate())
	assert.Error(t, (&KafkaQueueConfig{Brokers: []string{"b"}}).validate())
	assert.Error(t, (&KafkaQueueConfig{Brokers: []string{"b"}, Topic: "wb", RequiredAcks: 2}).validate())
}

func TestNewQueue(t *testing.T) {
	q, err := NewQueue(registry.InternalWriteBackConfig{QueueType: "memory", QueueBufferSize: 4}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryQueue{}, q)

	_, err = NewQueue(registry.InternalWriteBackConfig{QueueType: "redis"}, kvstore.NewMemoryKVStore(), nil)
	assert.ErrorContains(t, err, "requires a redis kvstore")

	_, err = NewQueue(registry.InternalWriteBackConfig{QueueType: "sqs"}, nil, nil)
	assert.Error(t, err)

	_, err = NewQueue(registry.InternalWriteBackConfig{QueueType: "kafka"}, nil, nil)
	assert.ErrorContains(t, err, "broker")
}
