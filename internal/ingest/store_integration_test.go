//go:build integration

package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/ragchat/internal/chunker"
	"github.com/aiox-platform/ragchat/internal/database/dbtest"
)

const dims = 768

func vector(hot int) []float32 {
	v := make([]float32, dims)
	v[hot] = 1
	return v
}

func TestPostgresStore_ReplaceAll(t *testing.T) {
	pool := dbtest.Pool(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()

	first := []EmbeddedChunk{
		{Chunk: chunker.Chunk{DocName: "a.txt", Index: 0, Text: "alpha"}, Embedding: vector(0)},
		{Chunk: chunker.Chunk{DocName: "a.txt", Index: 1, Text: "beta"}, Embedding: vector(1)},
	}
	require.NoError(t, store.ReplaceAll(ctx, first))
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	second := []EmbeddedChunk{
		{Chunk: chunker.Chunk{DocName: "b.txt", Index: 0, Text: "gamma"}, Embedding: vector(2)},
	}
	require.NoError(t, store.ReplaceAll(ctx, second))
	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPostgresStore_FailedReplaceKeepsCorpus(t *testing.T) {
	pool := dbtest.Pool(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()

	require.NoError(t, store.ReplaceAll(ctx, []EmbeddedChunk{
		{Chunk: chunker.Chunk{DocName: "a.txt", Index: 0, Text: "alpha"}, Embedding: vector(0)},
	}))

	// Duplicate (doc_name, idx) violates the unique constraint mid-batch.
	dup := chunker.Chunk{DocName: "b.txt", Index: 0, Text: "x"}
	err := store.ReplaceAll(ctx, []EmbeddedChunk{
		{Chunk: dup, Embedding: vector(1)},
		{Chunk: dup, Embedding: vector(2)},
	})
	require.Error(t, err)

	var doc string
	require.NoError(t, pool.QueryRow(ctx, `SELECT doc_name FROM rag_chunks`).Scan(&doc))
	assert.Equal(t, "a.txt", doc)
}

func TestPostgresStore_LargeCorpusSpansBatches(t *testing.T) {
	pool := dbtest.Pool(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()

	chunks := make([]EmbeddedChunk, insertBatchSize+3)
	for i := range chunks {
		chunks[i] = EmbeddedChunk{
			Chunk:     chunker.Chunk{DocName: "big.txt", Index: i, Text: "t"},
			Embedding: vector(i % dims),
		}
	}
	require.NoError(t, store.ReplaceAll(ctx, chunks))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), n)
}
