package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 512, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, float64(60), cfg.RRFK)
	assert.Equal(t, 3, cfg.FetchMultiplier)
	assert.Equal(t, 0.3, cfg.TrigramThreshold)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := "chunk_size: 128\nchunk_overlap: 16\nrrf_k: 30\ntop_k: 8\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.ChunkSize)
	assert.Equal(t, 16, cfg.ChunkOverlap)
	assert.Equal(t, float64(30), cfg.RRFK)
	assert.Equal(t, 8, cfg.TopK)
	// Untouched keys keep defaults
	assert.Equal(t, 3, cfg.FetchMultiplier)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.ChunkSize)
}

func TestValidate_RejectsOverlapNotLessThanSize(t *testing.T) {
	cfg := Default()
	cfg.ChunkOverlap = cfg.ChunkSize
	assert.Error(t, cfg.Validate())

	cfg.ChunkOverlap = cfg.ChunkSize + 10
	assert.Error(t, cfg.Validate())

	cfg.ChunkOverlap = cfg.ChunkSize - 1
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }},
		{"zero top_k", func(c *Config) { c.TopK = 0 }},
		{"zero rrf_k", func(c *Config) { c.RRFK = 0 }},
		{"zero fetch multiplier", func(c *Config) { c.FetchMultiplier = 0 }},
		{"trigram threshold above 1", func(c *Config) { c.TrigramThreshold = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RAGSERVER_CHUNK_SIZE", "64")
	t.Setenv("RAGSERVER_CHUNK_OVERLAP", "8")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.ChunkSize)
	assert.Equal(t, 8, cfg.ChunkOverlap)
}
