package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder construction settings
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	CacheSize int
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, cfg.Model, cache)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cache)
	case ProviderLocal, "":
		return NewLocalProvider(cfg.Model, cache)
	default:
		return nil, fmt.Errorf("embedder: unknown provider %q", cfg.Provider)
	}
}

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. RAGSERVER_EMBEDDING_PROVIDER (jina, openai, local)
//  2. Available API keys: JINA_API_KEY, OPENAI_API_KEY
//  3. Local provider as a fallback
func NewFromEnv() (Embedder, error) {
	provider := os.Getenv(EnvProvider)
	jinaKey := os.Getenv(EnvJinaAPIKey)
	openaiKey := os.Getenv(EnvOpenAIAPIKey)

	cache := NewCache(10000)

	if provider != "" {
		switch strings.ToLower(provider) {
		case ProviderJina:
			return NewJinaProvider(jinaKey, "", cache)
		case ProviderOpenAI:
			return NewOpenAIProvider(openaiKey, "", cache)
		case ProviderLocal:
			return NewLocalProvider("", cache)
		default:
			return nil, fmt.Errorf("embedder: unknown provider %q", provider)
		}
	}

	if jinaKey != "" {
		return NewJinaProvider(jinaKey, "", cache)
	}
	if openaiKey != "" {
		return NewOpenAIProvider(openaiKey, "", cache)
	}

	return NewLocalProvider("", cache)
}
