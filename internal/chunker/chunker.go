package chunker

import (
	"fmt"

	"ragserver/internal/tokenizer"
)

const (
	// DefaultChunkSize is the default window size in tokens
	DefaultChunkSize = 512

	// DefaultOverlap is the default token overlap between windows
	DefaultOverlap = 50
)

// Piece is one chunk of text produced by the sliding window
type Piece struct {
	Content    string
	ChunkIndex int
	TokenCount int
}

// Chunker splits extracted text into overlapping token windows.
// It is a pure, deterministic mapping from (text, size, overlap,
// tokenizer) to the chunk sequence.
type Chunker struct {
	tok       tokenizer.Tokenizer
	chunkSize int
	overlap   int
}

// New creates a chunker. Overlap must be strictly less than chunkSize:
// a violation would make the window step non-positive and the walk
// would never terminate, so it is rejected here rather than at call
// time.
func New(tok tokenizer.Tokenizer, chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must be >= 0, got %d", overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap (%d) must be less than chunk size (%d)", overlap, chunkSize)
	}
	return &Chunker{tok: tok, chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk tokenizes text and slides a window of chunkSize tokens with
// step chunkSize-overlap. The walk stops once a window reaches the end
// of the token sequence; no fully-overlapping trailing window is
// emitted. Empty or whitespace-only text yields an empty sequence.
func (c *Chunker) Chunk(text string) []Piece {
	tokens := c.tok.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	step := c.chunkSize - c.overlap
	var pieces []Piece

	for start, index := 0, 0; ; start, index = start+step, index+1 {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}

		window := tokens[start:end]
		pieces = append(pieces, Piece{
			Content:    c.tok.Decode(window),
			ChunkIndex: index,
			TokenCount: len(window),
		})

		if end == len(tokens) {
			break
		}
	}

	return pieces
}

// ChunkSize returns the configured window size in tokens
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// Overlap returns the configured token overlap between windows
func (c *Chunker) Overlap() int {
	return c.overlap
}
