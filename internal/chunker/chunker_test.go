package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragserver/internal/tokenizer"
)

func newTestChunker(t *testing.T, size, overlap int) *Chunker {
	t.Helper()
	c, err := New(tokenizer.NewWhitespace(), size, overlap)
	require.NoError(t, err)
	return c
}

// words builds a deterministic text of n distinct words
func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestNew_RejectsBadWindow(t *testing.T) {
	tok := tokenizer.NewWhitespace()

	_, err := New(tok, 0, 0)
	assert.Error(t, err)

	_, err = New(tok, 10, -1)
	assert.Error(t, err)

	_, err = New(tok, 10, 10)
	assert.Error(t, err, "overlap equal to chunk size would never terminate")

	_, err = New(tok, 10, 15)
	assert.Error(t, err)

	_, err = New(tok, 10, 9)
	assert.NoError(t, err)
}

func TestChunk_EmptyAndWhitespace(t *testing.T) {
	c := newTestChunker(t, 8, 2)

	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk("   \n\t  "))
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	c := newTestChunker(t, 100, 10)
	text := "only a handful of tokens here"

	pieces := c.Chunk(text)
	require.Len(t, pieces, 1)
	assert.Equal(t, text, pieces[0].Content)
	assert.Equal(t, 0, pieces[0].ChunkIndex)
	assert.Equal(t, 6, pieces[0].TokenCount)
}

func TestChunk_IndexesContiguous(t *testing.T) {
	c := newTestChunker(t, 10, 3)
	pieces := c.Chunk(words(57))

	require.NotEmpty(t, pieces)
	for i, p := range pieces {
		assert.Equal(t, i, p.ChunkIndex, "chunk indexes must be 0..N-1 with no gaps")
		assert.Greater(t, p.TokenCount, 0)
	}
}

func TestChunk_CoversEveryToken(t *testing.T) {
	tok := tokenizer.NewWhitespace()
	c := newTestChunker(t, 10, 3)

	text := words(57)
	total := len(tok.Encode(text))
	pieces := c.Chunk(text)

	seen := make(map[string]bool)
	for _, p := range pieces {
		for _, tk := range tok.Encode(p.Content) {
			seen[strings.TrimSpace(tk)] = true
		}
	}

	for i := 0; i < total; i++ {
		assert.True(t, seen[fmt.Sprintf("w%d", i)], "token w%d must appear in at least one chunk", i)
	}
}

func TestChunk_ZeroOverlapDisjoint(t *testing.T) {
	tok := tokenizer.NewWhitespace()
	c := newTestChunker(t, 5, 0)

	pieces := c.Chunk(words(12))
	require.Len(t, pieces, 3)

	counts := make(map[string]int)
	sum := 0
	for _, p := range pieces {
		toks := tok.Encode(p.Content)
		sum += len(toks)
		for _, tk := range toks {
			counts[strings.TrimSpace(tk)]++
		}
	}

	assert.Equal(t, 12, sum, "zero overlap means every token appears exactly once")
	for w, n := range counts {
		assert.Equal(t, 1, n, "token %s duplicated across disjoint chunks", w)
	}
}

func TestChunk_NoTrailingFullyOverlappingWindow(t *testing.T) {
	// 10 tokens, size 10: one window reaches the end, so exactly one
	// chunk must come out regardless of overlap
	c := newTestChunker(t, 10, 4)
	pieces := c.Chunk(words(10))
	assert.Len(t, pieces, 1)

	// 11 tokens: second window covers the tail
	pieces = c.Chunk(words(11))
	require.Len(t, pieces, 2)
	assert.Equal(t, 10, pieces[0].TokenCount)
	assert.Equal(t, 5, pieces[1].TokenCount)
}

func TestChunk_Deterministic(t *testing.T) {
	c := newTestChunker(t, 7, 2)
	text := words(40)

	a := c.Chunk(text)
	b := c.Chunk(text)
	assert.Equal(t, a, b)
}

func TestChunk_TokenCountMatchesTokenizer(t *testing.T) {
	tok := tokenizer.NewWhitespace()
	c := newTestChunker(t, 6, 2)

	for _, p := range c.Chunk(words(20)) {
		assert.Equal(t, len(tok.Encode(p.Content)), p.TokenCount)
	}
}
