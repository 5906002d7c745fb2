package driver

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyValueDB(t *testing.T, kv KeyValueDB) {
	ctx := context.Background()

	require.NoError(t, kv.Ping(ctx))

	_, err := kv.Get(ctx, "learning_paths")
	assert.ErrorIs(t, err, ErrNil)

	require.NoError(t, kv.Set(ctx, "learning_paths", `[{"id":"a"}]`))
	v, err := kv.Get(ctx, "learning_paths")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, v)

	require.NoError(t, kv.Set(ctx, "learning_paths", `[]`))
	v, err = kv.Get(ctx, "learning_paths")
	require.NoError(t, err)
	assert.Equal(t, `[]`, v)

	assert.NoError(t, kv.Close())
}

func TestMemoryKV(t *testing.T) {
	testKeyValueDB(t, NewMemoryKV())
}

func TestRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	testKeyValueDB(t, NewRedisClient(mr.Host(), atoi(t, mr.Port()), "", 0))
}

func TestRedisClientUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	kv := NewRedisClient(mr.Host(), atoi(t, mr.Port()), "", 0)
	defer kv.Close()
	mr.Close()

	_, err := kv.Get(context.Background(), "learning_paths")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNil)
}

func TestGetKeyValueDB(t *testing.T) {
	ctx := context.Background()

	kv, err := GetKeyValueDB(ctx, &KVConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)

	kv, err = GetKeyValueDB(ctx, &KVConfig{Driver: "redis", Host: "127.0.0.1", Port: 6379})
	require.NoError(t, err)
	assert.IsType(t, &RedisClient{}, kv)
	kv.Close()

	_, err = GetKeyValueDB(ctx, &KVConfig{Driver: "etcd"})
	assert.Error(t, err)
}

func atoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
