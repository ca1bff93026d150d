package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragserver/internal/config"
	"ragserver/internal/embedder"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	cfg.EmbeddingProvider = embedder.ProviderLocal
	cfg.ChunkSize = 16
	cfg.ChunkOverlap = 4

	server, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = server.embedder.Close()
		_ = server.storage.Close()
	})
	return server
}

func callTool(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	return decoded
}

func TestNewServer_Components(t *testing.T) {
	server := newTestServer(t)

	assert.NotNil(t, server.mcp)
	assert.NotNil(t, server.storage)
	assert.NotNil(t, server.pipeline)
	assert.NotNil(t, server.searcher)
	assert.NotNil(t, server.embedder)
}

func TestNewServer_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ChunkOverlap = cfg.ChunkSize

	_, err := NewServer(cfg)
	assert.Error(t, err)
}

func TestHandleUploadDocument(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	result, err := server.handleUploadDocument(ctx, callTool(map[string]interface{}{
		"filename": "notes.txt",
		"content":  "hybrid retrieval combines multiple ranking strategies",
	}))
	require.NoError(t, err)

	response := resultText(t, result)
	assert.Equal(t, "notes.txt", response["filename"])
	assert.Equal(t, "txt", response["format"])
	assert.NotEmpty(t, response["document_id"])
	assert.Greater(t, response["chunk_count"], float64(0))
}

func TestHandleUploadDocument_MissingFilename(t *testing.T) {
	server := newTestServer(t)

	_, err := server.handleUploadDocument(context.Background(), callTool(map[string]interface{}{
		"content": "body",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleUploadDocument_MalformedJSON(t *testing.T) {
	server := newTestServer(t)

	_, err := server.handleUploadDocument(context.Background(), callTool(map[string]interface{}{
		"filename": "bad.json",
		"content":  "{broken",
		"format":   "json",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeMalformedInput, mcpErr.Code)
}

func TestHandleUploadDocument_InvalidFormat(t *testing.T) {
	server := newTestServer(t)

	_, err := server.handleUploadDocument(context.Background(), callTool(map[string]interface{}{
		"filename": "doc.pdf",
		"content":  "body",
		"format":   "pdf",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleSearch_EndToEnd(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	_, err := server.handleUploadDocument(ctx, callTool(map[string]interface{}{
		"filename": "animals.txt",
		"content":  "the quick brown fox jumps over the lazy dog",
	}))
	require.NoError(t, err)

	result, err := server.handleSearch(ctx, callTool(map[string]interface{}{
		"query": "quick brown fox",
		"mode":  "sparse",
	}))
	require.NoError(t, err)

	response := resultText(t, result)
	assert.Equal(t, "sparse", response["mode"])

	results, ok := response["results"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, results)

	first, ok := results[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "animals.txt", first["filename"])
	assert.Contains(t, first, "sparse_score")
	assert.NotContains(t, first, "dense_score")
}

func TestHandleSearch_EmptyCorpus(t *testing.T) {
	server := newTestServer(t)

	result, err := server.handleSearch(context.Background(), callTool(map[string]interface{}{
		"query": "anything",
	}))
	require.NoError(t, err)

	response := resultText(t, result)
	assert.Equal(t, float64(0), response["total_results"])
}

func TestHandleSearch_InvalidMode(t *testing.T) {
	server := newTestServer(t)

	_, err := server.handleSearch(context.Background(), callTool(map[string]interface{}{
		"query": "something",
		"mode":  "keyword",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleSearch_EmptyQuery(t *testing.T) {
	server := newTestServer(t)

	_, err := server.handleSearch(context.Background(), callTool(map[string]interface{}{}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)
}

func TestHandleListDocuments(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	for _, name := range []string{"one.txt", "two.txt"} {
		_, err := server.handleUploadDocument(ctx, callTool(map[string]interface{}{
			"filename": name,
			"content":  "shared corpus content",
		}))
		require.NoError(t, err)
	}

	result, err := server.handleListDocuments(ctx, mcp.CallToolRequest{})
	require.NoError(t, err)

	response := resultText(t, result)
	assert.Equal(t, float64(2), response["count"])
}

func TestHandleDeleteDocument(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	_, err := server.handleUploadDocument(ctx, callTool(map[string]interface{}{
		"filename": "doomed.txt",
		"content":  "short lived document",
	}))
	require.NoError(t, err)

	result, err := server.handleDeleteDocument(ctx, callTool(map[string]interface{}{
		"filename": "doomed.txt",
	}))
	require.NoError(t, err)

	response := resultText(t, result)
	assert.Equal(t, true, response["deleted"])

	_, err = server.handleDeleteDocument(ctx, callTool(map[string]interface{}{
		"filename": "doomed.txt",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeDocumentNotFound, mcpErr.Code)
}

func TestHandleGetStatus(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	_, err := server.handleUploadDocument(ctx, callTool(map[string]interface{}{
		"filename": "stats.txt",
		"content":  "document for status counting",
	}))
	require.NoError(t, err)

	result, err := server.handleGetStatus(ctx, mcp.CallToolRequest{})
	require.NoError(t, err)

	response := resultText(t, result)

	stats, ok := response["statistics"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), stats["document_count"])
	assert.Greater(t, stats["chunk_count"], float64(0))

	emb, ok := response["embedding"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "local", emb["provider"])
}

func TestUploadReplacesAndSearchSeesNewContent(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	_, err := server.handleUploadDocument(ctx, callTool(map[string]interface{}{
		"filename": "doc.txt",
		"content":  "original text about volcanoes",
	}))
	require.NoError(t, err)

	_, err = server.handleUploadDocument(ctx, callTool(map[string]interface{}{
		"filename": "doc.txt",
		"content":  "replacement text about glaciers",
	}))
	require.NoError(t, err)

	result, err := server.handleSearch(ctx, callTool(map[string]interface{}{
		"query": "volcanoes",
		"mode":  "sparse",
	}))
	require.NoError(t, err)
	response := resultText(t, result)
	assert.Equal(t, float64(0), response["total_results"])

	result, err = server.handleSearch(ctx, callTool(map[string]interface{}{
		"query": "glaciers",
		"mode":  "sparse",
	}))
	require.NoError(t, err)
	response = resultText(t, result)
	assert.Greater(t, response["total_results"], float64(0))
}
