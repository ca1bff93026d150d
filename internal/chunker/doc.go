// Package chunker divides extracted document text into overlapping
// token windows for embedding and search.
//
// # Basic Usage
//
//	c, err := chunker.New(tokenizer.NewWhitespace(), 512, 50)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, piece := range c.Chunk(text) {
//	    fmt.Printf("chunk %d: %d tokens\n", piece.ChunkIndex, piece.TokenCount)
//	}
//
// # Windowing
//
// A window of chunkSize tokens advances by chunkSize-overlap tokens per
// step. Text shorter than one window yields a single chunk equal to the
// whole text; overlap 0 yields disjoint chunks. Chunk indexes are
// contiguous from 0 and every input token appears in at least one
// window.
//
// The tokenizer is a collaborator so the vocabulary can track the
// active embedding model; see the tokenizer package.
package chunker
