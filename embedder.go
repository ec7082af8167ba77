package ragd

import (
	"github.com/teilomillet/ragd/rag"
	"github.com/teilomillet/ragd/rag/providers"
)

// Provider is a configured embedding/completion backend.
type Provider = providers.Provider

// NewProvider creates a provider by registered name. For the "openai"
// provider the config keys are "api_key", "base_url" and "timeout".
func NewProvider(name string, config map[string]interface{}) (Provider, error) {
	return providers.Get(name, config)
}

// EmbeddingService batches texts through a provider with pacing and
// retries.
type EmbeddingService = rag.EmbeddingService

// EmbeddingServiceOption configures an EmbeddingService.
type EmbeddingServiceOption = rag.EmbeddingServiceOption

// NewEmbeddingService creates an embedding service over the provider.
func NewEmbeddingService(embedder providers.Embedder, opts ...EmbeddingServiceOption) *EmbeddingService {
	return rag.NewEmbeddingService(embedder, opts...)
}

// WithBatchSize overrides the per-call batch size.
func WithBatchSize(n int) EmbeddingServiceOption {
	return rag.WithBatchSize(n)
}

// WithRetryPolicy overrides the per-batch retry policy.
func WithRetryPolicy(p rag.RetryPolicy) EmbeddingServiceOption {
	return rag.WithRetryPolicy(p)
}
