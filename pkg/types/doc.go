// Package types defines the shared domain types for the document
// retrieval service: documents, chunks, search results, and the error
// taxonomy used across packages.
//
// A Document owns an ordered set of Chunks produced at ingestion time.
// Chunks are what the search layer indexes and returns; SearchResult
// carries a chunk plus its ranking metadata back to callers.
package types
