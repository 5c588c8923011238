package memento

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIEmbedder generates vector embeddings via the OpenAI API.
// Implements Embedder.
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
}

// OpenAIOption configures an OpenAIEmbedder before its client is built.
type OpenAIOption func(*openAIEmbedderConfig)

type openAIEmbedderConfig struct {
	apiKey    string
	model     string
	dimension int
	baseURL   string
}

// WithOpenAIModel sets the embedding model (default: text-embedding-3-small).
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *openAIEmbedderConfig) { c.model = model }
}

// WithOpenAIDimension sets the output embedding dimension (default: 1536).
func WithOpenAIDimension(dim int) OpenAIOption {
	return func(c *openAIEmbedderConfig) { c.dimension = dim }
}

// WithOpenAIBaseURL sets the API base URL (default: the SDK's own default).
// Useful for Azure OpenAI, proxies, or compatible APIs.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openAIEmbedderConfig) { c.baseURL = url }
}

// NewOpenAIEmbedder creates an embedding provider backed by the real OpenAI
// SDK client (github.com/openai/openai-go/v2), in the same client-construction
// shape the rest of this codebase's LLM provider uses for Anthropic.
func NewOpenAIEmbedder(apiKey string, opts ...OpenAIOption) *OpenAIEmbedder {
	cfg := openAIEmbedderConfig{
		apiKey:    apiKey,
		model:     "text-embedding-3-small",
		dimension: 1536,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(cfg.apiKey)}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &OpenAIEmbedder{
		client:    openai.NewClient(clientOpts...),
		model:     cfg.model,
		dimension: cfg.dimension,
	}
}

// Embed generates a vector for the given text.
// The taskType parameter is accepted for interface compatibility but ignored
// (OpenAI embeddings do not have task-specific modes).
func (e *OpenAIEmbedder) Embed(ctx context.Context, text, taskType string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: openai.Int(int64(e.dimension)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}

	// Convert float64 response to float32 for compact storage
	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimension returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}
