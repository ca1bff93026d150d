package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenizer converts text to and from a token sequence. The chunker
// treats it as a collaborator so the token vocabulary can be swapped to
// match whatever embedding model is active.
type Tokenizer interface {
	// Encode splits text into an ordered token sequence. Empty or
	// whitespace-only input yields zero tokens.
	Encode(text string) []string

	// Decode reconstructs text from a token sequence produced by Encode.
	// Decode(Encode(text)) returns text exactly.
	Decode(tokens []string) string
}

// Whitespace is the default tokenizer: each token is a run of
// non-whitespace characters together with the whitespace that precedes
// it, so decoding is plain concatenation and round-trips losslessly.
type Whitespace struct{}

// NewWhitespace creates the default whitespace tokenizer
func NewWhitespace() *Whitespace {
	return &Whitespace{}
}

func (w *Whitespace) Encode(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var tokens []string
	var current strings.Builder
	inWord := false

	for _, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				tokens = append(tokens, current.String())
				current.Reset()
				inWord = false
			}
			current.WriteRune(r)
			continue
		}
		inWord = true
		current.WriteRune(r)
	}

	if inWord {
		tokens = append(tokens, current.String())
	} else if current.Len() > 0 && len(tokens) > 0 {
		// Trailing whitespace attaches to the last token so decoding
		// reproduces the input byte for byte
		tokens[len(tokens)-1] += current.String()
	}

	return tokens
}

func (w *Whitespace) Decode(tokens []string) string {
	return strings.Join(tokens, "")
}
