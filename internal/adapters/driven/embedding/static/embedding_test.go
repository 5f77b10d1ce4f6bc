package static

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
	assert.Equal(t, "static-64", svc.ModelName())

	svc = NewEmbeddingService(Config{Dimensions: 128})
	assert.Equal(t, 128, svc.Dimensions())

	// Too-small dimensions are raised to the minimum.
	svc = NewEmbeddingService(Config{Dimensions: 2})
	assert.Equal(t, MinDimensions, svc.Dimensions())
}

func TestEmbed_Deterministic(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	ctx := context.Background()

	a, err := svc.Embed(ctx, "write ahead log tuning")
	require.NoError(t, err)
	b, err := svc.Embed(ctx, "write ahead log tuning")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultDimensions)
}

func TestEmbed_BagOfWords(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	ctx := context.Background()

	// Order and casing do not matter, only the term multiset.
	a, err := svc.Embed(ctx, "Checkpoint WAL flush")
	require.NoError(t, err)
	b, err := svc.Embed(ctx, "flush wal checkpoint")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestEmbed_UnitNorm(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	vec, err := svc.Embed(context.Background(), "vectors should come out normalized")
	require.NoError(t, err)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}

func TestEmbed_EmptyText(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	vec, err := svc.Embed(context.Background(), "   ")
	require.NoError(t, err)
	require.Len(t, vec, DefaultDimensions)

	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbedBatch(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	ctx := context.Background()

	texts := []string{"first text", "second text", "third text"}
	batch, err := svc.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	// Batch results match single embeds, in input order.
	for i, text := range texts {
		single, err := svc.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i], "text %d", i)
	}

	empty, err := svc.EmbedBatch(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestPingAndClose(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
