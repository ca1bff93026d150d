// Package mcp exposes the document corpus over the Model Context
// Protocol on stdio. Tools cover uploading, searching, listing,
// deleting, and status, backed by the ingest pipeline and the hybrid
// searcher.
package mcp
