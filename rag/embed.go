package rag

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/teilomillet/ragd/rag/providers"
)

// defaultEmbedBatchSize is the number of texts sent per provider call,
// matching the provider's recommended batch limit.
const defaultEmbedBatchSize = 100

// EmbeddingService batches texts through an embedding provider with
// pacing between batches and exponential-backoff retries per batch.
// It guarantees strict pairwise correspondence between inputs and output
// vectors: a mismatch is an error, never a truncation.
type EmbeddingService struct {
	embedder  providers.Embedder
	service   string
	batchSize int
	retry     RetryPolicy
	limiter   *rate.Limiter
}

// EmbeddingServiceOption configures an EmbeddingService.
type EmbeddingServiceOption func(*EmbeddingService)

// WithBatchSize overrides the per-call batch size.
func WithBatchSize(n int) EmbeddingServiceOption {
	return func(s *EmbeddingService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithRetryPolicy overrides the per-batch retry policy.
func WithRetryPolicy(p RetryPolicy) EmbeddingServiceOption {
	return func(s *EmbeddingService) {
		s.retry = p
	}
}

// WithBatchLimiter overrides the pacing limiter applied between batches.
// A nil limiter disables pacing.
func WithBatchLimiter(l *rate.Limiter) EmbeddingServiceOption {
	return func(s *EmbeddingService) {
		s.limiter = l
	}
}

// WithServiceName sets the provider name attached to classified errors.
func WithServiceName(name string) EmbeddingServiceOption {
	return func(s *EmbeddingService) {
		if name != "" {
			s.service = name
		}
	}
}

// NewEmbeddingService creates a service over the given embedder. By
// default batches hold 100 texts, batches are paced at 10 per second and
// each batch retries with the default policy.
func NewEmbeddingService(embedder providers.Embedder, opts ...EmbeddingServiceOption) *EmbeddingService {
	s := &EmbeddingService{
		embedder:  embedder,
		service:   "openai",
		batchSize: defaultEmbedBatchSize,
		retry:     DefaultRetryPolicy(),
		limiter:   rate.NewLimiter(rate.Limit(10), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EmbedBatch embeds texts in input order, one vector per text. Batches
// after the first wait on the pacing limiter; there is no wait after the
// final batch. On exhausted retries the last error propagates and no
// partial results are returned.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		if start > 0 && s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		var batchVectors [][]float32
		err := s.retry.Do(ctx, "embed", func() error {
			var embedErr error
			batchVectors, embedErr = s.embedder.Embed(ctx, model, batch)
			return ClassifyProviderError(s.service, embedErr)
		})
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}

		if len(batchVectors) != len(batch) {
			return nil, fmt.Errorf("embedding batch %d-%d: got %d vectors for %d texts", start, end, len(batchVectors), len(batch))
		}

		vectors = append(vectors, batchVectors...)
	}

	GlobalLogger.Debug("embedded texts", "count", len(texts), "model", model)
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, model, query string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, model, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected one query vector, got %d", len(vectors))
	}
	return vectors[0], nil
}
