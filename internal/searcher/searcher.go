package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"ragserver/internal/embedder"
	"ragserver/internal/storage"
	"ragserver/pkg/types"
)

// Mode selects which retrieval strategies run
type Mode string

const (
	ModeHybrid  Mode = "hybrid"  // All strategies fused with RRF
	ModeDense   Mode = "dense"   // Vector similarity only
	ModeSparse  Mode = "sparse"  // BM25 lexical search only
	ModeTrigram Mode = "trigram" // Trigram similarity only
)

// ParseMode validates a mode string. Empty input selects hybrid.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeHybrid, "":
		return ModeHybrid, nil
	case ModeDense:
		return ModeDense, nil
	case ModeSparse:
		return ModeSparse, nil
	case ModeTrigram:
		return ModeTrigram, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnsupportedMode, s)
	}
}

// Defaults for request validation
const (
	DefaultLimit           = 5
	MaxLimit               = 100
	DefaultFetchMultiplier = 3
	DefaultTrigramCutoff   = 0.3
	DefaultCacheTTL        = 1 * time.Hour
)

// Options tunes searcher behavior
type Options struct {
	RRFK             float64 // Fusion constant, 60 when zero
	FetchMultiplier  int     // Per-strategy fetch is limit * multiplier
	TrigramThreshold float64 // Minimum trigram similarity
	CacheSize        int     // Query cache entries, 0 disables caching
}

// Request contains parameters for a search operation
type Request struct {
	Query    string
	Limit    int
	Mode     Mode
	UseCache bool
	CacheTTL time.Duration
}

// Response contains search results and metadata
type Response struct {
	Results           []types.SearchResult
	TotalResults      int
	Mode              Mode
	Duration          time.Duration
	CacheHit          bool
	DenseCandidates   int
	SparseCandidates  int
	TrigramCandidates int
}

// cacheEntry represents a cached response with expiration time
type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Searcher coordinates retrieval across the dense, sparse, and trigram
// strategies and fuses their rankings
type Searcher struct {
	storage  storage.Storage
	embedder embedder.Embedder
	opts     Options
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// New creates a Searcher
func New(store storage.Storage, emb embedder.Embedder, opts Options) *Searcher {
	if opts.RRFK <= 0 {
		opts.RRFK = DefaultRRFK
	}
	if opts.FetchMultiplier <= 0 {
		opts.FetchMultiplier = DefaultFetchMultiplier
	}
	if opts.TrigramThreshold <= 0 {
		opts.TrigramThreshold = DefaultTrigramCutoff
	}

	var cache *lru.Cache[[32]byte, *cacheEntry]
	if opts.CacheSize > 0 {
		cache, _ = lru.New[[32]byte, *cacheEntry](opts.CacheSize)
	}

	return &Searcher{
		storage:  store,
		embedder: emb,
		opts:     opts,
		cache:    cache,
	}
}

// Search runs the requested retrieval mode
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}

	if req.UseCache && s.cache != nil {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	var response *Response
	var err error

	switch req.Mode {
	case ModeHybrid:
		response, err = s.hybridSearch(ctx, req)
	case ModeDense:
		response, err = s.denseSearch(ctx, req)
	case ModeSparse:
		response, err = s.sparseSearch(ctx, req)
	case ModeTrigram:
		response, err = s.trigramSearch(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedMode, req.Mode)
	}

	if err != nil {
		return nil, err
	}

	response.Duration = time.Since(startTime)
	response.Mode = req.Mode

	if req.UseCache && s.cache != nil && len(response.Results) > 0 {
		s.storeInCache(req, response)
	}

	return response, nil
}

// strategy names used for the fusion order and logging
const (
	strategyDense   = "dense"
	strategySparse  = "sparse"
	strategyTrigram = "trigram"
)

// strategyResult holds one strategy's candidates from the fan-out
type strategyResult struct {
	name string
	hits []storage.ChunkHit
	err  error
}

// runDense embeds the query and searches by vector similarity
func (s *Searcher) runDense(ctx context.Context, query string, limit int) ([]storage.ChunkHit, error) {
	emb, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.storage.SearchDense(ctx, emb.Vector, limit)
}

func (s *Searcher) runSparse(ctx context.Context, query string, limit int) ([]storage.ChunkHit, error) {
	return s.storage.SearchLexical(ctx, query, limit)
}

func (s *Searcher) runTrigram(ctx context.Context, query string, limit int) ([]storage.ChunkHit, error) {
	return s.storage.SearchTrigram(ctx, query, s.opts.TrigramThreshold, limit)
}

// hybridSearch fans out all strategies concurrently, waits for every
// one of them, and fuses the rankings with RRF. A failed strategy
// degrades to an empty ranking rather than failing the search; with
// every strategy down the response is an empty success.
func (s *Searcher) hybridSearch(ctx context.Context, req Request) (*Response, error) {
	fetchLimit := req.Limit * s.opts.FetchMultiplier

	runners := []struct {
		name string
		run  func(context.Context, string, int) ([]storage.ChunkHit, error)
	}{
		{strategyDense, s.runDense},
		{strategySparse, s.runSparse},
		{strategyTrigram, s.runTrigram},
	}

	resultChan := make(chan strategyResult, len(runners))
	for _, r := range runners {
		go func(name string, run func(context.Context, string, int) ([]storage.ChunkHit, error)) {
			hits, err := run(ctx, req.Query, fetchLimit)
			resultChan <- strategyResult{name: name, hits: hits, err: err}
		}(r.name, r.run)
	}

	// Full join barrier: every strategy reports before fusion. A
	// strategy still outstanding when the context expires degrades to
	// an empty ranking like any other strategy failure, as long as at
	// least one strategy delivered something to fuse.
	byStrategy := make(map[string][]storage.ChunkHit, len(runners))
	received := 0
join:
	for received < len(runners) {
		select {
		case res := <-resultChan:
			received++
			if res.err != nil {
				log.Printf("searcher: %s strategy failed, degrading: %v", res.name, res.err)
				byStrategy[res.name] = nil
			} else {
				byStrategy[res.name] = res.hits
			}
		case <-ctx.Done():
			if received == 0 {
				return nil, ctx.Err()
			}
			log.Printf("searcher: context done with %d of %d strategies reported, degrading the rest: %v",
				received, len(runners), ctx.Err())
			break join
		}
	}

	denseHits := byStrategy[strategyDense]
	sparseHits := byStrategy[strategySparse]
	trigramHits := byStrategy[strategyTrigram]

	// Candidate metadata and per-strategy native scores. A chunk a
	// strategy never returned keeps a nil score pointer; zero means
	// the strategy scored it at zero.
	type candidateMeta struct {
		hit     storage.ChunkHit
		dense   *float64
		sparse  *float64
		trigram *float64
	}
	meta := make(map[string]*candidateMeta)
	record := func(hits []storage.ChunkHit, assign func(*candidateMeta, float64)) Ranking {
		ranking := make(Ranking, 0, len(hits))
		for _, hit := range hits {
			m, ok := meta[hit.ChunkID]
			if !ok {
				m = &candidateMeta{hit: hit}
				meta[hit.ChunkID] = m
			}
			assign(m, hit.Score)
			ranking = append(ranking, hit.ChunkID)
		}
		return ranking
	}

	rankings := []Ranking{
		record(denseHits, func(m *candidateMeta, score float64) { m.dense = &score }),
		record(sparseHits, func(m *candidateMeta, score float64) { m.sparse = &score }),
		record(trigramHits, func(m *candidateMeta, score float64) { m.trigram = &score }),
	}

	fused := ReciprocalRankFusion(rankings, s.opts.RRFK)
	if len(fused) > req.Limit {
		fused = fused[:req.Limit]
	}

	results := make([]types.SearchResult, 0, len(fused))
	for _, fs := range fused {
		m, ok := meta[fs.ChunkID]
		if !ok {
			continue
		}
		results = append(results, types.SearchResult{
			ChunkID:      m.hit.ChunkID,
			DocumentID:   m.hit.DocumentID,
			Filename:     m.hit.Filename,
			ChunkIndex:   m.hit.ChunkIndex,
			Content:      m.hit.Content,
			Rank:         len(results) + 1,
			Score:        fs.Score,
			DenseScore:   m.dense,
			SparseScore:  m.sparse,
			TrigramScore: m.trigram,
		})
	}

	return &Response{
		Results:           results,
		TotalResults:      len(results),
		DenseCandidates:   len(denseHits),
		SparseCandidates:  len(sparseHits),
		TrigramCandidates: len(trigramHits),
	}, nil
}

// denseSearch performs only vector similarity search
func (s *Searcher) denseSearch(ctx context.Context, req Request) (*Response, error) {
	hits, err := s.runDense(ctx, req.Query, req.Limit)
	if err != nil {
		return nil, err
	}
	results := singleStrategyResults(hits, func(r *types.SearchResult, score float64) {
		r.DenseScore = &score
	})
	return &Response{Results: results, TotalResults: len(results), DenseCandidates: len(hits)}, nil
}

// sparseSearch performs only BM25 lexical search
func (s *Searcher) sparseSearch(ctx context.Context, req Request) (*Response, error) {
	hits, err := s.runSparse(ctx, req.Query, req.Limit)
	if err != nil {
		return nil, err
	}
	results := singleStrategyResults(hits, func(r *types.SearchResult, score float64) {
		r.SparseScore = &score
	})
	return &Response{Results: results, TotalResults: len(results), SparseCandidates: len(hits)}, nil
}

// trigramSearch performs only trigram similarity search
func (s *Searcher) trigramSearch(ctx context.Context, req Request) (*Response, error) {
	hits, err := s.runTrigram(ctx, req.Query, req.Limit)
	if err != nil {
		return nil, err
	}
	results := singleStrategyResults(hits, func(r *types.SearchResult, score float64) {
		r.TrigramScore = &score
	})
	return &Response{Results: results, TotalResults: len(results), TrigramCandidates: len(hits)}, nil
}

// singleStrategyResults converts one strategy's hits to results. The
// native score doubles as the overall score in single-strategy modes.
func singleStrategyResults(hits []storage.ChunkHit, setNative func(*types.SearchResult, float64)) []types.SearchResult {
	results := make([]types.SearchResult, 0, len(hits))
	for i, hit := range hits {
		result := types.SearchResult{
			ChunkID:    hit.ChunkID,
			DocumentID: hit.DocumentID,
			Filename:   hit.Filename,
			ChunkIndex: hit.ChunkIndex,
			Content:    hit.Content,
			Rank:       i + 1,
			Score:      hit.Score,
		}
		setNative(&result, hit.Score)
		results = append(results, result)
	}
	return results
}

// validateRequest ensures the search request is valid
func (s *Searcher) validateRequest(req *Request) error {
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}

	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}

	if req.Mode == "" {
		req.Mode = ModeHybrid
	}

	if req.CacheTTL == 0 {
		req.CacheTTL = DefaultCacheTTL
	}

	return nil
}

// checkCache returns a copied cached response, or nil on miss
func (s *Searcher) checkCache(req Request) *Response {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()
		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}

	response := copyResponse(entry.response)
	s.cacheMu.RUnlock()
	return response
}

// storeInCache saves a response copy with expiration
func (s *Searcher) storeInCache(req Request, response *Response) {
	entry := &cacheEntry{
		response:  copyResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops all cached queries. Called after ingestion
// changes the corpus.
func (s *Searcher) InvalidateCache() {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// copyResponse creates a deep copy of a Response so cached entries
// cannot be mutated by callers
func copyResponse(src *Response) *Response {
	if src == nil {
		return nil
	}

	dst := &Response{
		TotalResults:      src.TotalResults,
		Mode:              src.Mode,
		Duration:          src.Duration,
		CacheHit:          src.CacheHit,
		DenseCandidates:   src.DenseCandidates,
		SparseCandidates:  src.SparseCandidates,
		TrigramCandidates: src.TrigramCandidates,
		Results:           make([]types.SearchResult, len(src.Results)),
	}

	for i, result := range src.Results {
		copied := result
		copied.DenseScore = copyScore(result.DenseScore)
		copied.SparseScore = copyScore(result.SparseScore)
		copied.TrigramScore = copyScore(result.TrigramScore)
		dst.Results[i] = copied
	}

	return dst
}

func copyScore(score *float64) *float64 {
	if score == nil {
		return nil
	}
	v := *score
	return &v
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req Request) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(string(req.Mode))
	data.WriteString("|")
	fmt.Fprintf(&data, "%d", req.Limit)
	return sha256.Sum256([]byte(data.String()))
}
