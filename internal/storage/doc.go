// Package storage persists documents, chunks, and embeddings in SQLite
// and serves the three retrieval strategies: dense vector similarity,
// BM25 full-text search via FTS5, and trigram set similarity. Two build
// modes are supported: a CGO build with the sqlite-vec extension for
// SQL-side vector search, and a pure Go build that computes cosine
// similarity in process.
package storage
