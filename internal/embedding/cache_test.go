package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T, inner Embedder) (*CachedEmbedder, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCachedEmbedder(inner, client, "test-model", time.Hour), mr
}

func TestCachedEmbedder_HitAfterMiss(t *testing.T) {
	inner := &flakyEmbedder{}
	cache, mr := setupCache(t, inner)
	ctx := context.Background()

	first, err := cache.Embed(ctx, []string{"pricing plans"})
	require.NoError(t, err)
	second, err := cache.Embed(ctx, []string{"pricing plans"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Len(t, mr.Keys(), 1)
	assert.Equal(t, time.Hour, mr.TTL(mr.Keys()[0]))
}

func TestCachedEmbedder_BatchBypassesCache(t *testing.T) {
	inner := &flakyEmbedder{}
	cache, mr := setupCache(t, inner)

	_, err := cache.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedder_ErrorsAreNotCached(t *testing.T) {
	inner := &flakyEmbedder{failures: 1}
	cache, mr := setupCache(t, inner)
	ctx := context.Background()

	_, err := cache.Embed(ctx, []string{"hello"})
	assert.ErrorIs(t, err, ErrEmbeddingService)
	assert.Empty(t, mr.Keys())

	_, err = cache.Embed(ctx, []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedder_RedisDownFallsThrough(t *testing.T) {
	inner := &flakyEmbedder{}
	cache, mr := setupCache(t, inner)
	mr.Close()

	vecs, err := cache.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedder_KeyDependsOnModel(t *testing.T) {
	a := &CachedEmbedder{model: "model-a"}
	b := &CachedEmbedder{model: "model-b"}
	assert.NotEqual(t, a.cacheKey("same text"), b.cacheKey("same text"))
}

func TestVectorBytesRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3}
	out, err := bytesToVector(vectorToBytes(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = bytesToVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
