package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all tunable settings for the service
type Config struct {
	// Database
	DBPath string `yaml:"db_path"`

	// Chunking
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	// Search
	TopK             int     `yaml:"top_k"`
	RRFK             float64 `yaml:"rrf_k"`
	FetchMultiplier  int     `yaml:"fetch_multiplier"`
	TrigramThreshold float64 `yaml:"trigram_threshold"`

	// Embedding
	EmbeddingProvider string `yaml:"embedding_provider"`
	EmbeddingModel    string `yaml:"embedding_model"`

	// Upload limits
	MaxFileSize int64 `yaml:"max_file_size"`
}

// Default returns the configuration used when no file or overrides are
// present. The chunking and fusion values mirror the ones the search
// quality was tuned against; they are settings, not constants.
func Default() *Config {
	return &Config{
		DBPath:           defaultDBPath(),
		ChunkSize:        512,
		ChunkOverlap:     50,
		TopK:             5,
		RRFK:             60,
		FetchMultiplier:  3,
		TrigramThreshold: 0.3,
		MaxFileSize:      10 << 20, // 10 MiB
	}
}

func defaultDBPath() string {
	if override := os.Getenv("RAGSERVER_DB_PATH"); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "ragserver.db"
	}
	return filepath.Join(home, ".ragserver", "ragserver.db")
}

// Load reads configuration from path (optional), applies environment
// overrides, and validates the result. An empty path loads defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the config
func applyEnv(cfg *Config) {
	if v := os.Getenv("RAGSERVER_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("RAGSERVER_EMBEDDING_PROVIDER"); v != "" {
		cfg.EmbeddingProvider = v
	}
	if v := os.Getenv("RAGSERVER_EMBEDDING_MODEL"); v != "" {
		cfg.EmbeddingModel = v
	}
	if v := os.Getenv("RAGSERVER_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ChunkSize = n
		}
	}
	if v := os.Getenv("RAGSERVER_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ChunkOverlap = n
		}
	}
	if v := os.Getenv("RAGSERVER_RRF_K"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RRFK = f
		}
	}
}

// Validate rejects configurations that would misbehave at runtime.
// The overlap/size relationship is checked here because the chunker
// assumes it: a non-positive window step would never terminate.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d with chunk_size %d",
			c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.RRFK <= 0 {
		return fmt.Errorf("rrf_k must be positive, got %v", c.RRFK)
	}
	if c.FetchMultiplier <= 0 {
		return fmt.Errorf("fetch_multiplier must be positive, got %d", c.FetchMultiplier)
	}
	if c.TrigramThreshold < 0 || c.TrigramThreshold > 1 {
		return fmt.Errorf("trigram_threshold must be in [0, 1], got %v", c.TrigramThreshold)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize)
	}
	return nil
}
