package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultLocalModel  = "local-e5-small"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536
	LocalDimension  = 384

	// Batch limits
	MaxBatchSize = 100

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// httpProvider carries the shared state for API-backed providers
type httpProvider struct {
	name       string
	endpoint   string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
}

// JinaProvider implements Embedder using the Jina AI embeddings API
type JinaProvider struct {
	httpProvider
}

// NewJinaProvider creates a new Jina AI embedder
func NewJinaProvider(apiKey, model string, cache *Cache) (*JinaProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvJinaAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("embedder: %s not set", EnvJinaAPIKey)
	}
	if model == "" {
		model = DefaultJinaModel
	}

	return &JinaProvider{httpProvider{
		name:       ProviderJina,
		endpoint:   "https://api.jina.ai/v1/embeddings",
		apiKey:     apiKey,
		model:      model,
		dimension:  JinaDimension,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
	}}, nil
}

func (j *JinaProvider) EmbedQuery(ctx context.Context, text string) (*Embedding, error) {
	return j.embedOne(ctx, text, KindQuery)
}

func (j *JinaProvider) EmbedPassages(ctx context.Context, texts []string) ([]*Embedding, error) {
	return j.embedBatch(ctx, texts, KindPassage)
}

func (j *JinaProvider) Dimension() int   { return j.dimension }
func (j *JinaProvider) Provider() string { return j.name }
func (j *JinaProvider) Model() string    { return j.model }

func (j *JinaProvider) Close() error {
	j.httpClient.CloseIdleConnections()
	return nil
}

// OpenAIProvider implements Embedder using the OpenAI embeddings API
type OpenAIProvider struct {
	httpProvider
}

// NewOpenAIProvider creates a new OpenAI embedder
func NewOpenAIProvider(apiKey, model string, cache *Cache) (*OpenAIProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("embedder: %s not set", EnvOpenAIAPIKey)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIProvider{httpProvider{
		name:       ProviderOpenAI,
		endpoint:   "https://api.openai.com/v1/embeddings",
		apiKey:     apiKey,
		model:      model,
		dimension:  OpenAIDimension,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
	}}, nil
}

func (o *OpenAIProvider) EmbedQuery(ctx context.Context, text string) (*Embedding, error) {
	return o.embedOne(ctx, text, KindQuery)
}

func (o *OpenAIProvider) EmbedPassages(ctx context.Context, texts []string) ([]*Embedding, error) {
	return o.embedBatch(ctx, texts, KindPassage)
}

func (o *OpenAIProvider) Dimension() int   { return o.dimension }
func (o *OpenAIProvider) Provider() string { return o.name }
func (o *OpenAIProvider) Model() string    { return o.model }

func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// embedOne embeds a single framed text, consulting the cache first
func (p *httpProvider) embedOne(ctx context.Context, text string, kind TextKind) (*Embedding, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	framed := frameText(p.model, kind, text)
	hash := ComputeHash(framed)
	if p.cache != nil {
		if emb, ok := p.cache.Get(hash); ok {
			return emb, nil
		}
	}

	embeddings, err := p.embedFramed(ctx, []string{framed})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedder: %s returned no embeddings", p.name)
	}

	emb := embeddings[0]
	emb.Hash = hash
	if p.cache != nil {
		p.cache.Set(hash, emb)
	}
	return emb, nil
}

// embedBatch frames and embeds a batch of texts
func (p *httpProvider) embedBatch(ctx context.Context, texts []string, kind TextKind) ([]*Embedding, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	framed := frameTexts(p.model, kind, texts)

	embeddings, err := p.embedFramed(ctx, framed)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		for i, emb := range embeddings {
			hash := ComputeHash(framed[i])
			emb.Hash = hash
			p.cache.Set(hash, emb)
		}
	}
	return embeddings, nil
}

// embedFramed calls the provider API with retry and backoff
func (p *httpProvider) embedFramed(ctx context.Context, framed []string) ([]*Embedding, error) {
	config := DefaultRetryConfig()
	embeddings, err := retryWithBackoff(ctx, config, func() ([]*Embedding, error) {
		return p.callAPI(ctx, framed)
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: %s failed after %d retries: %w", p.name, MaxRetries, err)
	}
	return embeddings, nil
}

// callAPI posts the OpenAI-compatible embeddings request both Jina and
// OpenAI accept
func (p *httpProvider) callAPI(ctx context.Context, texts []string) ([]*Embedding, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": p.model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		embeddings[i] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  p.name,
			Model:     apiResp.Model,
		}
	}

	return embeddings, nil
}

// LocalProvider produces deterministic hash-derived vectors. It stands
// in for a real local model in development and tests; the vectors are
// stable per input but carry no semantic signal.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(model string, cache *Cache) (*LocalProvider, error) {
	if model == "" {
		model = DefaultLocalModel
	}
	return &LocalProvider{model: model, cache: cache}, nil
}

func (l *LocalProvider) EmbedQuery(ctx context.Context, text string) (*Embedding, error) {
	return l.embed(ctx, text, KindQuery)
}

func (l *LocalProvider) EmbedPassages(ctx context.Context, texts []string) ([]*Embedding, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(texts))
	for i, text := range texts {
		emb, err := l.embed(ctx, text, KindPassage)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

func (l *LocalProvider) embed(_ context.Context, text string, kind TextKind) (*Embedding, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	framed := frameText(l.model, kind, text)
	hash := ComputeHash(framed)
	if l.cache != nil {
		if emb, ok := l.cache.Get(hash); ok {
			return emb, nil
		}
	}

	// Derive a repeatable pseudo-embedding by chaining SHA-256 blocks
	vector := make([]float32, LocalDimension)
	block := sha256.Sum256([]byte(framed))
	for i := 0; i < LocalDimension; i++ {
		if i > 0 && i%len(block) == 0 {
			block = sha256.Sum256(block[:])
		}
		vector[i] = float32(block[i%len(block)])/255.0 - 0.5
	}

	emb := &Embedding{
		Vector:    normalizeVector(vector),
		Dimension: LocalDimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      hash,
	}

	if l.cache != nil {
		l.cache.Set(hash, emb)
	}
	return emb, nil
}

func (l *LocalProvider) Dimension() int   { return LocalDimension }
func (l *LocalProvider) Provider() string { return ProviderLocal }
func (l *LocalProvider) Model() string    { return l.model }
func (l *LocalProvider) Close() error     { return nil }

// normalizeVector scales a vector to unit length for cosine similarity
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
