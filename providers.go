package memento

import "context"

// LLMProvider completes a structured-extraction prompt against a fixed JSON
// schema (spec.md §6). Used only by the feature extractor (C2). Built-in:
// anthropicLLM (NewAnthropicLLM). Schema is passed through verbatim; the provider is
// responsible for coercing its output to match it or returning an error.
type LLMProvider interface {
	CompleteStructured(ctx context.Context, prompt string, schema map[string]any) (map[string]any, error)
}

// Embedder generates vector embeddings from text (spec.md §6). Used by the
// enrichment pipeline (C4, on memory write) and the retrieval engine (C5,
// on query). Dimension is fixed per deployment. Built-in: OpenAIEmbedder,
// GeminiEmbedder, OllamaEmbedder — mirrors the teacher's EmbeddingProvider
// (providers.go) one-interface-many-implementations shape.
type Embedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	Dimension() int
}

// VectorFilters narrows a vector-store operation to the partition the spec
// requires be enforced at query time: user, tier, and forgotten state.
type VectorFilters struct {
	User           string
	Tier           Tier
	ForgottenState ForgottenState
}

// VectorMatch is one scored candidate returned from VectorStore.Search.
type VectorMatch struct {
	MemoryID string
	Distance float64
}

// VectorStore is the external vector index (spec.md §6). MUST NOT be called
// for securityTier=Vault memories (enforced by the persistence gateway, not
// by implementations of this interface). Built-in: sqvectVectorStore.
type VectorStore interface {
	Upsert(ctx context.Context, memoryID string, embedding []float32, filters VectorFilters) error
	Search(ctx context.Context, user string, query []float32, filters VectorFilters, k int) ([]VectorMatch, error)
	Delete(ctx context.Context, memoryID string) error
}

// EntityExtractor pulls structured entities out of memory content for the
// heuristic extraction path. Built-in: heuristicExtractor.
type EntityExtractor interface {
	Extract(content string) ExtractedFeatures
}
