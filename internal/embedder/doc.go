// Package embedder generates dense vector embeddings for queries and
// document passages. It supports the Jina AI and OpenAI embedding APIs
// plus a deterministic local provider for offline use, with LRU caching
// keyed by content hash and exponential backoff on API failures.
package embedder
