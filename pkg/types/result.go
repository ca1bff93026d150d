package types

// SearchResult represents a single ranked chunk with relevance information.
// The per-method scores are pointers so that "this method never retrieved
// the chunk" (nil) stays distinct from "matched with score zero".
type SearchResult struct {
	ChunkID    string
	DocumentID string
	Filename   string
	ChunkIndex int
	Content    string

	Rank  int     // position in the result set, 1-based
	Score float64 // fused RRF score, or the native score in single-method modes

	DenseScore   *float64
	SparseScore  *float64
	TrigramScore *float64
}

// Validate checks if the search result is well formed
func (sr *SearchResult) Validate() error {
	if sr.ChunkID == "" {
		return ErrInvalidChunkID
	}
	if sr.Rank < 1 {
		return ErrInvalidRank
	}
	if sr.Content == "" {
		return ErrEmptyContent
	}
	return nil
}
