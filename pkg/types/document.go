package types

import (
	"fmt"
	"time"
)

// Format identifies how an uploaded payload should be converted to text
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// ParseFormat validates a format tag received at the boundary
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatMarkdown, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Document is the persisted unit of ingested content.
// At most one live document exists per filename; uploading under an
// existing filename replaces the old document and all its chunks.
type Document struct {
	ID         string
	Filename   string
	Content    string // extracted text, not the raw payload
	Format     Format
	FileSize   int64 // bytes of the original payload
	ChunkCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Chunk is the atomic retrievable unit, exclusively owned by its document.
// ChunkIndex values are contiguous starting at 0 in source-text order.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	ChunkIndex int
	TokenCount int
	Embedding  []float32
	CreatedAt  time.Time
}

// Validate checks chunk invariants before persistence
func (c *Chunk) Validate() error {
	if c.Content == "" {
		return ErrEmptyContent
	}
	if c.ChunkIndex < 0 {
		return fmt.Errorf("chunk index must be >= 0, got %d", c.ChunkIndex)
	}
	if c.TokenCount <= 0 {
		return fmt.Errorf("token count must be positive, got %d", c.TokenCount)
	}
	return nil
}
