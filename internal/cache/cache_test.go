package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	IDs []string `json:"ids"`
}

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, time.Minute), mr
}

func TestRedis_MissThenHit(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	var got entry
	ok, err := c.Get(ctx, "s1", "rank:views:10", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "s1", "rank:views:10", entry{IDs: []string{"a", "b"}}))

	ok, err = c.Get(ctx, "s1", "rank:views:10", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got.IDs)
}

func TestRedis_TTL(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "s1", "facets", entry{}))

	assert.Equal(t, time.Minute, mr.TTL("discovery:s1:0:facets"))

	mr.FastForward(2 * time.Minute)
	var got entry
	ok, err := c.Get(ctx, "s1", "facets", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_InvalidateStoreIsScoped(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "s1", "k", entry{IDs: []string{"x"}}))
	require.NoError(t, c.Set(ctx, "s2", "k", entry{IDs: []string{"y"}}))

	require.NoError(t, c.InvalidateStore(ctx, "s1"))
	gen, err := mr.Get("discovery:gen:s1")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	var got entry
	ok, err := c.Get(ctx, "s1", "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Get(ctx, "s2", "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"y"}, got.IDs)
}

func TestRedis_CorruptEntry(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("discovery:s1:0:k", "not-json"))

	var got entry
	ok, err := c.Get(context.Background(), "s1", "k", &got)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestRedis_ServerDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	var got entry
	_, err := c.Get(context.Background(), "s1", "k", &got)
	assert.Error(t, err)
	assert.Error(t, c.Set(context.Background(), "s1", "k", entry{}))
	assert.Error(t, c.InvalidateStore(context.Background(), "s1"))
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	ok, err := c.Get(context.Background(), "s", "k", &entry{})
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.NoError(t, c.Set(context.Background(), "s", "k", entry{}))
	assert.NoError(t, c.InvalidateStore(context.Background(), "s"))
}
