package ingest

import (
	"context"
	"fmt"
	"unicode/utf8"

	"ragserver/internal/chunker"
	"ragserver/internal/embedder"
	"ragserver/internal/extract"
	"ragserver/internal/storage"
	"ragserver/pkg/types"
)

// DefaultMaxFileSize bounds a single upload
const DefaultMaxFileSize = 10 * 1024 * 1024

// Pipeline turns raw uploads into persisted, embedded chunks
type Pipeline struct {
	store       storage.Storage
	embedder    embedder.Embedder
	chunker     *chunker.Chunker
	maxFileSize int64
}

// New creates an ingestion pipeline. maxFileSize <= 0 selects the
// default bound.
func New(store storage.Storage, emb embedder.Embedder, ch *chunker.Chunker, maxFileSize int64) *Pipeline {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Pipeline{
		store:       store,
		embedder:    emb,
		chunker:     ch,
		maxFileSize: maxFileSize,
	}
}

// Ingest validates, extracts, chunks, embeds, and persists a document.
// A document with the same filename is replaced: the delete of the old
// version and the insert of the new one commit in one transaction, so
// readers never observe both or neither. Embedding happens before the
// transaction opens; network calls must not hold the write lock.
func (p *Pipeline) Ingest(ctx context.Context, filename string, raw []byte, format types.Format) (*types.Document, error) {
	if filename == "" {
		return nil, fmt.Errorf("filename cannot be empty")
	}
	if int64(len(raw)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", types.ErrMalformedInput, p.maxFileSize)
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%s: %w", filename, types.ErrInvalidEncoding)
	}

	content := string(raw)
	text, err := extract.Extract(content, format)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}

	pieces := p.chunker.Chunk(text)

	doc := &types.Document{
		Filename:   filename,
		Content:    text,
		Format:     format,
		FileSize:   int64(len(raw)),
		ChunkCount: len(pieces),
	}

	chunks, err := p.embedChunks(ctx, pieces)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", filename, err)
	}

	tx, err := p.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.DeleteDocumentByFilename(ctx, filename); err != nil {
		return nil, fmt.Errorf("replace %s: %w", filename, err)
	}
	if err := tx.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document %s: %w", filename, err)
	}
	for _, chunk := range chunks {
		chunk.DocumentID = doc.ID
	}
	if err := tx.CreateChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("create chunks for %s: %w", filename, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s: %w", filename, err)
	}

	return doc, nil
}

// embedChunks embeds chunk contents in provider-sized batches. A
// document with no chunks (whitespace-only after extraction) embeds
// nothing and returns an empty slice.
func (p *Pipeline) embedChunks(ctx context.Context, pieces []chunker.Piece) ([]*types.Chunk, error) {
	chunks := make([]*types.Chunk, 0, len(pieces))
	if len(pieces) == 0 {
		return chunks, nil
	}

	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		texts[i] = piece.Content
	}

	embeddings := make([]*embedder.Embedding, 0, len(texts))
	for start := 0; start < len(texts); start += embedder.MaxBatchSize {
		end := start + embedder.MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := p.embedder.EmbedPassages(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}

	if len(embeddings) != len(pieces) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(pieces))
	}

	for i, piece := range pieces {
		chunks = append(chunks, &types.Chunk{
			Content:    piece.Content,
			ChunkIndex: piece.ChunkIndex,
			TokenCount: piece.TokenCount,
			Embedding:  embeddings[i].Vector,
		})
	}
	return chunks, nil
}
