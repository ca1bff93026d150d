// Package ingest drives the upload pipeline: encoding validation,
// text extraction, sliding-window chunking, batch embedding, and an
// atomic replace-by-filename write to storage.
package ingest
