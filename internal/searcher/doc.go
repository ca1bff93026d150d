// Package searcher runs queries against the chunk store. Hybrid mode
// fans out the dense, sparse, and trigram strategies concurrently and
// merges their rankings with Reciprocal Rank Fusion; single-strategy
// modes pass native scores through. Responses can be cached with an
// LRU cache keyed by query hash.
package searcher
