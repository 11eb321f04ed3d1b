package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (*miniredis.Miniredis, *Cache) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return srv, New(client, "notif_cache:", 5*time.Minute)
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGet_Miss(t *testing.T) {
	_, c := setupCache(t)

	var out payload
	hit, err := c.Get(context.Background(), "absent", &out)

	require.NoError(t, err)
	assert.False(t, hit)
}

func TestSetThenGet(t *testing.T) {
	_, c := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "user:alice:page:0", payload{Name: "alice", Count: 3}))

	var out payload
	hit, err := c.Get(ctx, "user:alice:page:0", &out)

	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "alice", out.Name)
	assert.Equal(t, 3, out.Count)
}

func TestEntriesExpire(t *testing.T) {
	srv, c := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", payload{Name: "x"}))
	srv.FastForward(6 * time.Minute)

	var out payload
	hit, err := c.Get(ctx, "key", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestInvalidateAll_OnlyTouchesPrefix(t *testing.T) {
	srv, c := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "one", payload{}))
	require.NoError(t, c.Set(ctx, "two", payload{}))
	srv.Set("unrelated", "keep")

	require.NoError(t, c.InvalidateAll(ctx))

	var out payload
	hit, err := c.Get(ctx, "one", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	hit, err = c.Get(ctx, "two", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	assert.True(t, srv.Exists("unrelated"))
}
