package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

const hitColumns = `
	c.id as chunk_id,
	c.document_id,
	d.filename,
	c.chunk_index,
	c.content
`

// searchDense performs vector similarity search using cosine similarity
func searchDense(ctx context.Context, q querier, queryVector []float32, limit int) ([]ChunkHit, error) {
	// Use SQL-based search when sqlite-vec is available
	if VectorExtensionAvailable {
		return searchDenseOptimized(ctx, q, queryVector, limit)
	}
	// Fall back to Go-based computation for purego builds
	return searchDenseFallback(ctx, q, queryVector, limit)
}

// searchDenseOptimized uses the sqlite-vec extension for SQL-based
// vector similarity search
func searchDenseOptimized(ctx context.Context, q querier, queryVector []float32, limit int) ([]ChunkHit, error) {
	if limit <= 0 {
		return []ChunkHit{}, nil
	}

	queryVectorBlob := serializeVector(queryVector)

	// vec_distance_cosine returns distance (lower is better); convert
	// to similarity so all strategies score higher-is-better
	query := `
		SELECT ` + hitColumns + `,
			1.0 - vec_distance_cosine(c.embedding, ?) as similarity
		FROM chunks c
		INNER JOIN documents d ON c.document_id = d.id
		WHERE c.embedding IS NOT NULL
		ORDER BY similarity DESC
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, query, queryVectorBlob, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]ChunkHit, 0, limit)
	for rows.Next() {
		var hit ChunkHit
		if err := rows.Scan(&hit.ChunkID, &hit.DocumentID, &hit.Filename, &hit.ChunkIndex, &hit.Content, &hit.Score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, hit)
	}

	return results, rows.Err()
}

// searchDenseFallback computes cosine similarity in Go. Used when the
// sqlite-vec extension is not available (purego builds).
func searchDenseFallback(ctx context.Context, q querier, queryVector []float32, limit int) ([]ChunkHit, error) {
	query := `
		SELECT ` + hitColumns + `,
			c.embedding
		FROM chunks c
		INNER JOIN documents d ON c.document_id = d.id
		WHERE c.embedding IS NOT NULL
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]ChunkHit, 0, 1000)
	for rows.Next() {
		var hit ChunkHit
		var blob []byte
		if err := rows.Scan(&hit.ChunkID, &hit.DocumentID, &hit.Filename, &hit.ChunkIndex, &hit.Content, &blob); err != nil {
			return nil, err
		}

		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}

		hit.Score = cosineSimilarity(queryVector, vector)
		candidates = append(candidates, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortHits(candidates)
	return truncateHits(candidates, limit), nil
}

// searchLexical performs BM25 full-text search using FTS5
func searchLexical(ctx context.Context, q querier, query string, limit int) ([]ChunkHit, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return []ChunkHit{}, nil
	}
	if limit <= 0 {
		return []ChunkHit{}, nil
	}

	sqlQuery := `
		SELECT ` + hitColumns + `,
			bm25(chunks_fts) as score
		FROM chunks_fts
		INNER JOIN chunks c ON c.rowid = chunks_fts.rowid
		INNER JOIN documents d ON c.document_id = d.id
		WHERE chunks_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, sqlQuery, sanitized, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]ChunkHit, 0, limit)
	for rows.Next() {
		var hit ChunkHit
		if err := rows.Scan(&hit.ChunkID, &hit.DocumentID, &hit.Filename, &hit.ChunkIndex, &hit.Content, &hit.Score); err != nil {
			return nil, err
		}

		// BM25 scores from FTS5 are negative, lower is better; map to
		// a positive score in (0, 1] so higher is better
		hit.Score = 1.0 / (1.0 + math.Abs(hit.Score)/50.0)
		results = append(results, hit)
	}

	return results, rows.Err()
}

// searchTrigram scans chunk contents and ranks them by trigram set
// similarity against the query. SQLite has no pg_trgm equivalent, so
// the similarity runs in Go over all rows.
func searchTrigram(ctx context.Context, q querier, query string, threshold float64, limit int) ([]ChunkHit, error) {
	queryTrigrams := trigramSet(query)
	if len(queryTrigrams) == 0 || limit <= 0 {
		return []ChunkHit{}, nil
	}

	sqlQuery := `
		SELECT ` + hitColumns + `
		FROM chunks c
		INNER JOIN documents d ON c.document_id = d.id
	`
	rows, err := q.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]ChunkHit, 0)
	for rows.Next() {
		var hit ChunkHit
		if err := rows.Scan(&hit.ChunkID, &hit.DocumentID, &hit.Filename, &hit.ChunkIndex, &hit.Content); err != nil {
			return nil, err
		}

		similarity := trigramSimilarity(queryTrigrams, trigramSet(hit.Content))
		if similarity < threshold {
			continue
		}

		hit.Score = similarity
		candidates = append(candidates, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortHits(candidates)
	return truncateHits(candidates, limit), nil
}

// Trigram helpers. These follow the pg_trgm conventions: text is
// lowercased and split into words, each word is padded with two
// leading spaces and one trailing space, and similarity is the
// Jaccard coefficient of the two trigram sets.

// trigramSet extracts the set of trigrams from text
func trigramSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range splitWords(strings.ToLower(text)) {
		padded := "  " + word + " "
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			set[string(runes[i:i+3])] = struct{}{}
		}
	}
	return set
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// splitWords extracts alphanumeric word runs from text
func splitWords(text string) []string {
	return wordPattern.FindAllString(text, -1)
}

// trigramSimilarity computes the Jaccard coefficient of two trigram sets
func trigramSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// sortHits sorts hits by score in descending order
func sortHits(hits []ChunkHit) {
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}

// truncateHits returns at most limit hits
func truncateHits(hits []ChunkHit, limit int) []ChunkHit {
	if limit <= 0 || limit > len(hits) {
		limit = len(hits)
	}
	return hits[:limit]
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sanitizeFTSQuery rewrites a raw query as FTS5 phrase terms so user
// input is never parsed as match-expression syntax. FTS5 has no escape
// character; the only way to neutralize operators, wildcards, and
// grouping is to emit every term as a quoted string with embedded
// quotes doubled.
func sanitizeFTSQuery(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}

	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}

// TrigramSimilarity is an exported helper computing pg_trgm style
// similarity between two strings
func TrigramSimilarity(a, b string) float64 {
	return trigramSimilarity(trigramSet(a), trigramSet(b))
}
