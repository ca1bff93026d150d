package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider_Deterministic(t *testing.T) {
	provider, err := NewLocalProvider("", nil)
	require.NoError(t, err)
	defer provider.Close()

	ctx := context.Background()

	emb1, err := provider.EmbedQuery(ctx, "hello world")
	require.NoError(t, err)
	emb2, err := provider.EmbedQuery(ctx, "hello world")
	require.NoError(t, err)

	assert.Equal(t, emb1.Vector, emb2.Vector)
	assert.Equal(t, LocalDimension, emb1.Dimension)
	assert.Len(t, emb1.Vector, LocalDimension)
}

func TestLocalProvider_DistinctInputsDistinctVectors(t *testing.T) {
	provider, err := NewLocalProvider("", nil)
	require.NoError(t, err)

	ctx := context.Background()

	emb1, err := provider.EmbedQuery(ctx, "alpha")
	require.NoError(t, err)
	emb2, err := provider.EmbedQuery(ctx, "beta")
	require.NoError(t, err)

	assert.NotEqual(t, emb1.Vector, emb2.Vector)
}

func TestLocalProvider_UnitNorm(t *testing.T) {
	provider, err := NewLocalProvider("", nil)
	require.NoError(t, err)

	emb, err := provider.EmbedQuery(context.Background(), "normalize me")
	require.NoError(t, err)

	var sum float64
	for _, v := range emb.Vector {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestLocalProvider_EmptyText(t *testing.T) {
	provider, err := NewLocalProvider("", nil)
	require.NoError(t, err)

	_, err = provider.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestLocalProvider_EmbedPassages(t *testing.T) {
	provider, err := NewLocalProvider("", nil)
	require.NoError(t, err)

	embs, err := provider.EmbedPassages(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, embs, 3)

	for _, emb := range embs {
		assert.Len(t, emb.Vector, LocalDimension)
		assert.Equal(t, ProviderLocal, emb.Provider)
	}
}

func TestValidateBatch(t *testing.T) {
	assert.Error(t, validateBatch(nil))
	assert.Error(t, validateBatch([]string{}))
	assert.Error(t, validateBatch([]string{"ok", ""}))
	assert.NoError(t, validateBatch([]string{"ok"}))
}

func TestFrameText_E5Prefixes(t *testing.T) {
	assert.Equal(t, "query: find me", frameText("local-e5-small", KindQuery, "find me"))
	assert.Equal(t, "passage: body text", frameText("local-e5-small", KindPassage, "body text"))
	assert.Equal(t, "query: x", frameText("multilingual-E5-large", KindQuery, "x"))
}

func TestFrameText_NonE5Unchanged(t *testing.T) {
	assert.Equal(t, "find me", frameText("text-embedding-3-small", KindQuery, "find me"))
	assert.Equal(t, "body text", frameText("jina-embeddings-v3", KindPassage, "body text"))
}

func TestFrameText_QueryAndPassageDiffer(t *testing.T) {
	provider, err := NewLocalProvider("local-e5-small", nil)
	require.NoError(t, err)

	ctx := context.Background()

	q, err := provider.EmbedQuery(ctx, "same text")
	require.NoError(t, err)
	p, err := provider.EmbedPassages(ctx, []string{"same text"})
	require.NoError(t, err)

	assert.NotEqual(t, q.Vector, p[0].Vector)
}

func TestCache_SetGet(t *testing.T) {
	cache := NewCache(10)

	emb := &Embedding{
		Vector:    []float32{1, 2, 3},
		Dimension: 3,
		Provider:  ProviderLocal,
		Model:     DefaultLocalModel,
		Hash:      "abc",
	}
	cache.Set("abc", emb)

	got, ok := cache.Get("abc")
	require.True(t, ok)
	assert.Equal(t, emb.Vector, got.Vector)

	// Mutating the returned copy must not affect the cached value
	got.Vector[0] = 99
	again, ok := cache.Get("abc")
	require.True(t, ok)
	assert.Equal(t, float32(1), again.Vector[0])
}

func TestCache_Miss(t *testing.T) {
	cache := NewCache(10)
	_, ok := cache.Get("nope")
	assert.False(t, ok)
}

func TestCache_Eviction(t *testing.T) {
	cache := NewCache(2)
	cache.Set("a", &Embedding{Hash: "a"})
	cache.Set("b", &Embedding{Hash: "b"})
	cache.Set("c", &Embedding{Hash: "c"})

	assert.Equal(t, 2, cache.Size())
	_, ok := cache.Get("a")
	assert.False(t, ok)
}

func TestLocalProvider_UsesCache(t *testing.T) {
	cache := NewCache(10)
	provider, err := NewLocalProvider("", cache)
	require.NoError(t, err)

	_, err = provider.EmbedQuery(context.Background(), "cached text")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Size())

	_, err = provider.EmbedQuery(context.Background(), "cached text")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Size())
}

func TestNew_SelectsProvider(t *testing.T) {
	emb, err := New(Config{Provider: ProviderLocal})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, emb.Provider())

	emb, err = New(Config{})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, emb.Provider())

	_, err = New(Config{Provider: "bogus"})
	assert.Error(t, err)
}

func TestNewFromEnv_ExplicitLocal(t *testing.T) {
	t.Setenv(EnvProvider, ProviderLocal)
	t.Setenv(EnvJinaAPIKey, "")
	t.Setenv(EnvOpenAIAPIKey, "")

	emb, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, emb.Provider())
}

func TestNewFromEnv_FallsBackToLocal(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvJinaAPIKey, "")
	t.Setenv(EnvOpenAIAPIKey, "")

	emb, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, emb.Provider())
}

func TestComputeHash_Stable(t *testing.T) {
	assert.Equal(t, ComputeHash("x"), ComputeHash("x"))
	assert.NotEqual(t, ComputeHash("x"), ComputeHash("y"))
	assert.Len(t, ComputeHash("x"), 64)
}
