package main

import (
	"fmt"

	"ragserver/internal/chunker"
	"ragserver/internal/config"
	"ragserver/internal/embedder"
	"ragserver/internal/ingest"
	"ragserver/internal/searcher"
	"ragserver/internal/storage"
	"ragserver/internal/tokenizer"
)

// components bundles the pieces every subcommand needs. Close releases
// them in reverse dependency order.
type components struct {
	store    storage.Storage
	embedder embedder.Embedder
	pipeline *ingest.Pipeline
	searcher *searcher.Searcher
}

func openComponents(cfg *config.Config) (*components, error) {
	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.EmbeddingProvider,
		Model:     cfg.EmbeddingModel,
		CacheSize: 10000,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	ch, err := chunker.New(tokenizer.NewWhitespace(), cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		_ = emb.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}

	return &components{
		store:    store,
		embedder: emb,
		pipeline: ingest.New(store, emb, ch, cfg.MaxFileSize),
		searcher: searcher.New(store, emb, searcher.Options{
			RRFK:             cfg.RRFK,
			FetchMultiplier:  cfg.FetchMultiplier,
			TrigramThreshold: cfg.TrigramThreshold,
		}),
	}, nil
}

func (c *components) Close() {
	_ = c.embedder.Close()
	_ = c.store.Close()
}
