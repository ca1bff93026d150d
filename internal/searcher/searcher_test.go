package searcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragserver/internal/embedder"
	"ragserver/internal/storage"
	"ragserver/pkg/types"
)

// stubEmbedder returns canned vectors so dense rankings are
// deterministic in tests
type stubEmbedder struct {
	vectors map[string][]float32
	fail    bool
}

func (m *stubEmbedder) EmbedQuery(_ context.Context, text string) (*embedder.Embedding, error) {
	if m.fail {
		return nil, errors.New("embedding backend down")
	}
	vec, ok := m.vectors[text]
	if !ok {
		vec = []float32{0, 0, 1}
	}
	return &embedder.Embedding{Vector: vec, Dimension: len(vec), Provider: "stub", Model: "stub"}, nil
}

func (m *stubEmbedder) EmbedPassages(ctx context.Context, texts []string) ([]*embedder.Embedding, error) {
	out := make([]*embedder.Embedding, len(texts))
	for i, text := range texts {
		emb, err := m.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

func (m *stubEmbedder) Dimension() int   { return 3 }
func (m *stubEmbedder) Provider() string { return "stub" }
func (m *stubEmbedder) Model() string    { return "stub" }
func (m *stubEmbedder) Close() error     { return nil }

func newTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedCorpus(t *testing.T, store *storage.SQLiteStorage) {
	t.Helper()
	ctx := context.Background()

	doc := &types.Document{Filename: "corpus.txt", Content: "corpus", Format: types.FormatText}
	require.NoError(t, store.CreateDocument(ctx, doc))

	chunks := []*types.Chunk{
		{DocumentID: doc.ID, Content: "the quick brown fox jumps over the lazy dog", ChunkIndex: 0, Embedding: []float32{1, 0, 0}},
		{DocumentID: doc.ID, Content: "slowly simmer the tomato sauce with garlic", ChunkIndex: 1, Embedding: []float32{0, 1, 0}},
		{DocumentID: doc.ID, Content: "distributed systems require careful consensus design", ChunkIndex: 2, Embedding: []float32{0.7, 0.7, 0}},
	}
	require.NoError(t, store.CreateChunks(ctx, chunks))
}

func newTestSearcher(t *testing.T, store *storage.SQLiteStorage, emb embedder.Embedder) *Searcher {
	t.Helper()
	if emb == nil {
		emb = &stubEmbedder{vectors: map[string][]float32{
			"fox":          {1, 0, 0},
			"tomato sauce": {0, 1, 0},
		}}
	}
	return New(store, emb, Options{CacheSize: 100})
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"hybrid", "dense", "sparse", "trigram", ""} {
		mode, err := ParseMode(valid)
		require.NoError(t, err, valid)
		assert.NotEmpty(t, mode)
	}

	_, err := ParseMode("vector")
	assert.ErrorIs(t, err, types.ErrUnsupportedMode)

	_, err = ParseMode("HYBRID")
	assert.ErrorIs(t, err, types.ErrUnsupportedMode)
}

func TestSearch_HybridMergesStrategies(t *testing.T) {
	store := newTestStore(t)
	seedCorpus(t, store)
	s := newTestSearcher(t, store, nil)

	resp, err := s.Search(context.Background(), Request{Query: "fox", Mode: ModeHybrid, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	assert.Equal(t, ModeHybrid, resp.Mode)
	assert.Equal(t, "the quick brown fox jumps over the lazy dog", resp.Results[0].Content)

	for i, result := range resp.Results {
		assert.Equal(t, i+1, result.Rank)
		assert.Greater(t, result.Score, 0.0)
		assert.Equal(t, "corpus.txt", result.Filename)
	}
}

func TestSearch_HybridUnsetVersusZeroScores(t *testing.T) {
	store := newTestStore(t)
	seedCorpus(t, store)
	s := newTestSearcher(t, store, nil)

	resp, err := s.Search(context.Background(), Request{Query: "fox", Mode: ModeHybrid, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	// The top hit was found by the dense strategy, so its dense score
	// is present. Chunks dense never returned keep a nil pointer, not
	// a zero value.
	top := resp.Results[0]
	require.NotNil(t, top.DenseScore)
	assert.Greater(t, *top.DenseScore, 0.9)

	foundUnset := false
	for _, result := range resp.Results {
		if result.SparseScore == nil || result.TrigramScore == nil || result.DenseScore == nil {
			foundUnset = true
		}
	}
	assert.True(t, foundUnset, "expected at least one candidate missing from some strategy")
}

func TestSearch_FailedStrategyDegrades(t *testing.T) {
	store := newTestStore(t)
	seedCorpus(t, store)
	s := newTestSearcher(t, store, &stubEmbedder{fail: true})

	// Dense fails because the embedder is down; sparse and trigram
	// still produce results
	resp, err := s.Search(context.Background(), Request{Query: "fox", Mode: ModeHybrid, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	assert.Equal(t, 0, resp.DenseCandidates)
	assert.Greater(t, resp.SparseCandidates, 0)
	for _, result := range resp.Results {
		assert.Nil(t, result.DenseScore)
	}
}

// blockingEmbedder holds EmbedQuery until the context expires, so the
// dense strategy never reports in time
type blockingEmbedder struct {
	stubEmbedder
}

func (b *blockingEmbedder) EmbedQuery(ctx context.Context, _ string) (*embedder.Embedding, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSearch_DeadlinedStrategyDegrades(t *testing.T) {
	store := newTestStore(t)
	seedCorpus(t, store)
	s := newTestSearcher(t, store, &blockingEmbedder{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// Dense is still blocked when the deadline hits; sparse and trigram
	// reported long before, so the search degrades instead of failing
	resp, err := s.Search(ctx, Request{Query: "fox", Mode: ModeHybrid, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	assert.Equal(t, 0, resp.DenseCandidates)
	assert.Greater(t, resp.SparseCandidates, 0)
	for _, result := range resp.Results {
		assert.Nil(t, result.DenseScore)
	}
}

func TestSearch_EmptyCorpusIsEmptySuccess(t *testing.T) {
	store := newTestStore(t)
	s := newTestSearcher(t, store, nil)

	resp, err := s.Search(context.Background(), Request{Query: "anything at all", Mode: ModeHybrid, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, resp.TotalResults)
}

func TestSearch_AllStrategiesDownIsEmptySuccess(t *testing.T) {
	store := newTestStore(t)
	s := newTestSearcher(t, store, &stubEmbedder{fail: true})

	// Empty corpus plus failing embedder: nothing succeeds, response
	// is still a success with zero results
	resp, err := s.Search(context.Background(), Request{Query: "anything", Mode: ModeHybrid, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearch_LimitTruncatesFusedResults(t *testing.T) {
	store := newTestStore(t)
	seedCorpus(t, store)
	s := newTestSearcher(t, store, nil)

	resp, err := s.Search(context.Background(), Request{Query: "the", Mode: ModeHybrid, Limit: 1})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(resp.Results), 1)
}

func TestSearch_DenseModePassesNativeScore(t *testing.T) {
	store := newTestStore(t)
	seedCorpus(t, store)
	s := newTestSearcher(t, store, nil)

	resp, err := s.Search(context.Background(), Request{Query: "fox", Mode: ModeDense, Limit: 3})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	top := resp.Results[0]
	require.NotNil(t, top.DenseScore)
	assert.Equal(t, top.Score, *top.DenseScore)
	assert.InDelta(t, 1.0, top.Score, 1e-6)
	assert.Nil(t, top.SparseScore)
	assert.Nil(t, top.TrigramScore)
}

func TestSearch_SparseMode(t *testing.T) {
	store := newTestStore(t)
	seedCorpus(t, store)
	s := newTestSearcher(t, store, nil)

	resp, err := s.Search(context.Background(), Request{Query: "tomato sauce", Mode: ModeSparse, Limit: 3})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	assert.Equal(t, "slowly simmer the tomato sauce with garlic", resp.Results[0].Content)
	require.NotNil(t, resp.Results[0].SparseScore)
	assert.Nil(t, resp.Results[0].DenseScore)
}

func TestSearch_TrigramMode(t *testing.T) {
	store := newTestStore(t)
	seedCorpus(t, store)
	s := newTestSearcher(t, store, nil)

	resp, err := s.Search(context.Background(), Request{Query: "quick brown fox jumps over the lazy", Mode: ModeTrigram, Limit: 3})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "the quick brown fox jumps over the lazy dog", resp.Results[0].Content)
	require.NotNil(t, resp.Results[0].TrigramScore)
}

func TestSearch_DenseModePropagatesEmbedderError(t *testing.T) {
	store := newTestStore(t)
	seedCorpus(t, store)
	s := newTestSearcher(t, store, &stubEmbedder{fail: true})

	_, err := s.Search(context.Background(), Request{Query: "fox", Mode: ModeDense, Limit: 3})
	assert.Error(t, err)
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	store := newTestStore(t)
	s := newTestSearcher(t, store, nil)

	_, err := s.Search(context.Background(), Request{Query: "   ", Mode: ModeHybrid})
	assert.Error(t, err)
}

func TestSearch_UnsupportedMode(t *testing.T) {
	store := newTestStore(t)
	s := newTestSearcher(t, store, nil)

	_, err := s.Search(context.Background(), Request{Query: "fox", Mode: Mode("keyword")})
	assert.ErrorIs(t, err, types.ErrUnsupportedMode)
}

func TestSearch_CacheHit(t *testing.T) {
	store := newTestStore(t)
	seedCorpus(t, store)
	s := newTestSearcher(t, store, nil)

	req := Request{Query: "fox", Mode: ModeHybrid, Limit: 5, UseCache: true, CacheTTL: time.Minute}

	first, err := s.Search(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := s.Search(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	require.Equal(t, len(first.Results), len(second.Results))
	assert.Equal(t, first.Results[0].ChunkID, second.Results[0].ChunkID)
}

func TestSearch_InvalidateCache(t *testing.T) {
	store := newTestStore(t)
	seedCorpus(t, store)
	s := newTestSearcher(t, store, nil)

	req := Request{Query: "fox", Mode: ModeHybrid, Limit: 5, UseCache: true, CacheTTL: time.Minute}

	_, err := s.Search(context.Background(), req)
	require.NoError(t, err)

	s.InvalidateCache()

	resp, err := s.Search(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)
}

func TestSearch_DefaultsApplied(t *testing.T) {
	store := newTestStore(t)
	seedCorpus(t, store)
	s := newTestSearcher(t, store, nil)

	// Zero limit and empty mode fall back to defaults
	resp, err := s.Search(context.Background(), Request{Query: "fox"})
	require.NoError(t, err)
	assert.Equal(t, ModeHybrid, resp.Mode)
	assert.LessOrEqual(t, len(resp.Results), DefaultLimit)
}
