package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis answers SET/GET from a map inside the client's hook chain, so
// no connection is ever dialled.
type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	args   [][]any
	err    error
}

func newFakeRedisStore(t *testing.T) (*RedisStore, *fakeRedis) {
	t.Helper()
	fake := &fakeRedis{values: make(map[string]string)}
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	rdb.AddHook(fake)
	t.Cleanup(func() { rdb.Close() })
	return &RedisStore{rdb: rdb}, fake
}

func (f *fakeRedis) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (f *fakeRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (f *fakeRedis) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.args = append(f.args, cmd.Args())
		if f.err != nil {
			cmd.SetErr(f.err)
			return f.err
		}

		key, _ := cmd.Args()[1].(string)
		switch c := cmd.(type) {
		case *redis.BoolCmd:
			_, taken := f.values[key]
			if !taken {
				switch v := c.Args()[2].(type) {
				case []byte:
					f.values[key] = string(v)
				case string:
					f.values[key] = v
				}
			}
			c.SetVal(!taken)
		case *redis.StringCmd:
			v, ok := f.values[key]
			if !ok {
				c.SetErr(redis.Nil)
			} else {
				c.SetVal(v)
			}
		}
		return cmd.Err()
	}
}

func TestRedisStoreSaveAndGet(t *testing.T) {
	store, fake := newFakeRedisStore(t)
	p := &Paste{ID: "abcd1234", Content: "hello", Syntax: "go", ExpiresAt: time.Now().Add(10 * time.Minute)}

	require.NoError(t, store.Save(t.Context(), p))

	// SET paste:<id> <json> PX <ms> NX
	args := fake.args[0]
	require.Len(t, args, 6)
	assert.Equal(t, "set", args[0])
	assert.Equal(t, "paste:abcd1234", args[1])
	assert.Equal(t, "px", args[3])
	assert.Equal(t, "nx", args[5])
	ttl, ok := args[4].(int64)
	require.True(t, ok, "ttl is %T", args[4])
	assert.InDelta(t, (10 * time.Minute).Milliseconds(), ttl, 1000)

	got, err := store.Get(t.Context(), "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, "go", got.Syntax)
}

func TestRedisStoreTakenID(t *testing.T) {
	store, _ := newFakeRedisStore(t)
	expires := time.Now().Add(time.Hour)

	require.NoError(t, store.Save(t.Context(), &Paste{ID: "abcd1234", Content: "first", ExpiresAt: expires}))
	require.ErrorIs(t, store.Save(t.Context(), &Paste{ID: "abcd1234", Content: "second", ExpiresAt: expires}), ErrExists)

	got, err := store.Get(t.Context(), "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Content)
}

func TestRedisStoreErrors(t *testing.T) {
	store, fake := newFakeRedisStore(t)

	_, err := store.Get(t.Context(), "missing")
	require.ErrorIs(t, err, ErrNotFound)

	down := errors.New("connection refused")
	fake.err = down
	err = store.Save(t.Context(), &Paste{ID: "abcd1234", ExpiresAt: time.Now().Add(time.Hour)})
	require.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, ErrExists)

	_, err = store.Get(t.Context(), "abcd1234")
	require.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, ErrNotFound)
}
