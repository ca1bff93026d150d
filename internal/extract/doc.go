// Package extract converts uploaded document payloads into flat text
// for chunking.
//
// Supported formats:
//   - txt: identity transform
//   - md: identity transform (markup is preserved on purpose)
//   - json: recursive collection of string leaf values, space-joined
//
// Extraction failures are terminal for an ingest call; nothing is
// persisted when the payload cannot be converted.
package extract
