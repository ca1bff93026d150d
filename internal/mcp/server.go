package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"ragserver/internal/chunker"
	"ragserver/internal/config"
	"ragserver/internal/embedder"
	"ragserver/internal/ingest"
	"ragserver/internal/searcher"
	"ragserver/internal/storage"
	"ragserver/internal/tokenizer"
)

const (
	// ServerName is the MCP server name
	ServerName = "ragserver"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	cfg      *config.Config
	storage  storage.Storage
	embedder embedder.Embedder
	pipeline *ingest.Pipeline
	searcher *searcher.Searcher
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.EmbeddingProvider,
		Model:     cfg.EmbeddingModel,
		CacheSize: 10000,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	ch, err := chunker.New(tokenizer.NewWhitespace(), cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize chunker: %w", err)
	}

	pipeline := ingest.New(store, emb, ch, cfg.MaxFileSize)

	srch := searcher.New(store, emb, searcher.Options{
		RRFK:             cfg.RRFK,
		FetchMultiplier:  cfg.FetchMultiplier,
		TrigramThreshold: cfg.TrigramThreshold,
		CacheSize:        1000,
	})

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		cfg:      cfg,
		storage:  store,
		embedder: emb,
		pipeline: pipeline,
		searcher: srch,
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		_ = s.embedder.Close()
		_ = s.storage.Close()
	}()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(uploadDocumentTool(), s.handleUploadDocument)
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(listDocumentsTool(), s.handleListDocuments)
	s.mcp.AddTool(deleteDocumentTool(), s.handleDeleteDocument)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
