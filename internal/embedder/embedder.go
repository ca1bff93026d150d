package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"ragserver/pkg/types"
)

// Environment variables consulted by the factory
const (
	EnvProvider     = "RAGSERVER_EMBEDDING_PROVIDER"
	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// Common errors
var (
	ErrEmptyText     = fmt.Errorf("%w: text cannot be empty", types.ErrModelUnavailable)
	ErrBatchTooLarge = fmt.Errorf("%w: batch size exceeds limit", types.ErrModelUnavailable)
)

// TextKind selects the e5-style framing applied before embedding.
// Queries and passages land in the same vector space but are encoded
// with different textual prefixes; mixing them up silently degrades
// dense retrieval quality.
type TextKind string

const (
	KindQuery   TextKind = "query"
	KindPassage TextKind = "passage"
)

// Embedding is a vector with provenance metadata
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Hash      string // content hash used as the cache key
}

// Embedder generates fixed-dimensionality vectors for queries and
// passages. EmbedPassages accepts a batch so document ingestion can
// amortize per-call overhead.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) (*Embedding, error)
	EmbedPassages(ctx context.Context, texts []string) ([]*Embedding, error)

	// Dimension returns the embedding dimension for this provider
	Dimension() int

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the embedder
	Close() error
}

// frameText applies the asymmetric prefix for e5-family models. Other
// models embed the raw text.
func frameText(model string, kind TextKind, text string) string {
	if !strings.Contains(strings.ToLower(model), "e5") {
		return text
	}
	switch kind {
	case KindQuery:
		return "query: " + text
	default:
		return "passage: " + text
	}
}

// frameTexts applies frameText to a batch
func frameTexts(model string, kind TextKind, texts []string) []string {
	framed := make([]string, len(texts))
	for i, t := range texts {
		framed[i] = frameText(model, kind, t)
	}
	return framed
}

// Cache provides in-memory LRU caching of embeddings by content hash
type Cache struct {
	cache *lru.Cache[string, *Embedding]
}

// NewCache creates a new embedding cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, *Embedding](maxLen)
	if err != nil {
		cache, _ = lru.New[string, *Embedding](10000)
	}
	return &Cache{cache: cache}
}

// Get retrieves a deep copy of an embedding from cache. A copy is
// returned so caller mutations cannot pollute cached values.
func (c *Cache) Get(hash string) (*Embedding, bool) {
	emb, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}

	vectorCopy := make([]float32, len(emb.Vector))
	copy(vectorCopy, emb.Vector)

	return &Embedding{
		Vector:    vectorCopy,
		Dimension: emb.Dimension,
		Provider:  emb.Provider,
		Model:     emb.Model,
		Hash:      emb.Hash,
	}, true
}

// Set stores an embedding, evicting the least recently used on overflow
func (c *Cache) Set(hash string, emb *Embedding) {
	c.cache.Add(hash, emb)
}

// Size returns the current cache size
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}

// ComputeHash computes the SHA-256 cache key for a framed text
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// validateBatch rejects empty batches and empty entries before any
// provider call is made
func validateBatch(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrEmptyText)
	}
	for i, text := range texts {
		if text == "" {
			return fmt.Errorf("%w (index %d)", ErrEmptyText, i)
		}
	}
	return nil
}
