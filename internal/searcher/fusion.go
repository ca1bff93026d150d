package searcher

import "sort"

// DefaultRRFK is the standard Reciprocal Rank Fusion constant
const DefaultRRFK = 60

// Ranking is one strategy's ordered candidate list, best first
type Ranking []string

// FusedScore is a chunk ID with its combined fusion score
type FusedScore struct {
	ChunkID string
	Score   float64
}

// ReciprocalRankFusion merges rankings from multiple retrieval
// strategies into a single scored list. Only rank positions matter;
// the strategies' native scores never enter the formula:
//
//	RRF(d) = sum over rankings of 1/(k + rank(d) + 1)
//
// where rank is the zero-based position of d in a ranking. Chunks
// absent from a ranking contribute nothing for it. The result is
// ordered by descending score; ties carry no defined order.
func ReciprocalRankFusion(rankings []Ranking, k float64) []FusedScore {
	if k <= 0 {
		k = DefaultRRFK
	}

	scores := make(map[string]float64)
	for _, ranking := range rankings {
		for rank, chunkID := range ranking {
			scores[chunkID] += 1.0 / (k + float64(rank) + 1.0)
		}
	}

	fused := make([]FusedScore, 0, len(scores))
	for chunkID, score := range scores {
		fused = append(fused, FusedScore{ChunkID: chunkID, Score: score})
	}

	sort.Slice(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})

	return fused
}
