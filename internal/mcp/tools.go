package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"ragserver/internal/searcher"
	"ragserver/internal/storage"
	"ragserver/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeDocumentNotFound = -32001 // Document does not exist
	ErrorCodeMalformedInput   = -32002 // Content failed validation or parsing
	ErrorCodeEmptyQuery       = -32004 // Query parameter is empty
)

// handleUploadDocument handles the upload_document tool invocation
func (s *Server) handleUploadDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	filename, ok := args["filename"].(string)
	if !ok || filename == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "filename parameter is required", map[string]interface{}{
			"param":  "filename",
			"reason": "missing or empty",
		})
	}

	content, ok := args["content"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param":  "content",
			"reason": "missing",
		})
	}

	format, err := types.ParseFormat(getStringDefault(args, "format", "txt"))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid format", map[string]interface{}{
			"param":   "format",
			"allowed": []string{"txt", "md", "json"},
		})
	}

	doc, err := s.pipeline.Ingest(ctx, filename, []byte(content), format)
	if err != nil {
		code := ErrorCodeInternalError
		if errors.Is(err, types.ErrInvalidEncoding) || errors.Is(err, types.ErrMalformedInput) {
			code = ErrorCodeMalformedInput
		}
		return nil, newMCPError(code, "upload failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// The corpus changed; cached query results are stale
	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"document_id": doc.ID,
		"filename":    doc.Filename,
		"format":      string(doc.Format),
		"file_size":   doc.FileSize,
		"chunk_count": doc.ChunkCount,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearch handles the search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", s.cfg.TopK)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", searcher.MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	mode, err := searcher.ParseMode(getStringDefault(args, "mode", "hybrid"))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"allowed": []string{"hybrid", "dense", "sparse", "trigram"},
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.Request{
		Query:    query,
		Limit:    limit,
		Mode:     mode,
		UseCache: true,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, len(resp.Results))
	for i, r := range resp.Results {
		entry := map[string]interface{}{
			"chunk_id":    r.ChunkID,
			"document_id": r.DocumentID,
			"filename":    r.Filename,
			"chunk_index": r.ChunkIndex,
			"content":     r.Content,
			"rank":        r.Rank,
			"score":       r.Score,
		}
		// Per-strategy scores appear only when the strategy actually
		// returned the chunk
		if r.DenseScore != nil {
			entry["dense_score"] = *r.DenseScore
		}
		if r.SparseScore != nil {
			entry["sparse_score"] = *r.SparseScore
		}
		if r.TrigramScore != nil {
			entry["trigram_score"] = *r.TrigramScore
		}
		results[i] = entry
	}

	response := map[string]interface{}{
		"results":       results,
		"total_results": resp.TotalResults,
		"mode":          string(resp.Mode),
		"duration_ms":   resp.Duration.Milliseconds(),
		"cache_hit":     resp.CacheHit,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListDocuments handles the list_documents tool invocation
func (s *Server) handleListDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.storage.ListDocuments(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list documents", map[string]interface{}{
			"error": err.Error(),
		})
	}

	entries := make([]map[string]interface{}, len(docs))
	for i, doc := range docs {
		entries[i] = map[string]interface{}{
			"document_id": doc.ID,
			"filename":    doc.Filename,
			"format":      string(doc.Format),
			"file_size":   doc.FileSize,
			"chunk_count": doc.ChunkCount,
			"updated_at":  doc.UpdatedAt.Format(time.RFC3339),
		}
	}

	response := map[string]interface{}{
		"documents": entries,
		"count":     len(entries),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDeleteDocument handles the delete_document tool invocation
func (s *Server) handleDeleteDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	filename, ok := args["filename"].(string)
	if !ok || filename == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "filename parameter is required", map[string]interface{}{
			"param":  "filename",
			"reason": "missing or empty",
		})
	}

	doc, err := s.storage.GetDocumentByFilename(ctx, filename)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeDocumentNotFound, "document not found", map[string]interface{}{
			"filename": filename,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to look up document", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := s.storage.DeleteDocument(ctx, doc.ID); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to delete document", map[string]interface{}{
			"error": err.Error(),
		})
	}

	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"deleted":     true,
		"document_id": doc.ID,
		"filename":    filename,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"statistics": map[string]interface{}{
			"document_count":   status.DocumentCount,
			"chunk_count":      status.ChunkCount,
			"database_size_mb": fmt.Sprintf("%.2f", status.DatabaseSizeMB),
			"schema_version":   status.SchemaVersion,
		},
		"embedding": map[string]interface{}{
			"provider":  s.embedder.Provider(),
			"model":     s.embedder.Model(),
			"dimension": s.embedder.Dimension(),
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"fts_index_built":      status.Health.FTSIndexBuilt,
			"vector_search_native": status.Health.VectorSearchNative,
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
