package storage

import (
	"context"

	"ragserver/pkg/types"
)

// Storage defines the interface for persisting and querying documents,
// chunks, and their embeddings
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *types.Document) error
	GetDocument(ctx context.Context, id string) (*types.Document, error)
	GetDocumentByFilename(ctx context.Context, filename string) (*types.Document, error)
	ListDocuments(ctx context.Context) ([]*types.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	DeleteDocumentByFilename(ctx context.Context, filename string) error

	// Chunk operations
	CreateChunks(ctx context.Context, chunks []*types.Chunk) error
	GetChunk(ctx context.Context, chunkID string) (*types.Chunk, error)
	ListChunksByDocument(ctx context.Context, documentID string) ([]*types.Chunk, error)
	CountDocuments(ctx context.Context) (int, error)
	CountChunks(ctx context.Context) (int, error)

	// Search operations. Each returns candidates ordered by descending
	// score, at most limit of them.
	SearchDense(ctx context.Context, vector []float32, limit int) ([]ChunkHit, error)
	SearchLexical(ctx context.Context, query string, limit int) ([]ChunkHit, error)
	SearchTrigram(ctx context.Context, query string, threshold float64, limit int) ([]ChunkHit, error)

	// Status operations
	Status(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// ChunkHit is a single candidate from one retrieval strategy. Score
// semantics depend on the strategy: cosine similarity for dense, a
// normalized BM25 score for lexical, trigram similarity for trigram.
// Higher is always better.
type ChunkHit struct {
	ChunkID    string
	DocumentID string
	Filename   string
	ChunkIndex int
	Content    string
	Score      float64
}

// Status contains statistics about the document store
type Status struct {
	DocumentCount  int
	ChunkCount     int
	DatabaseSizeMB float64
	SchemaVersion  string
	Health         HealthStatus
}

// HealthStatus represents the health of the store
type HealthStatus struct {
	DatabaseAccessible bool
	FTSIndexBuilt      bool
	VectorSearchNative bool
}
