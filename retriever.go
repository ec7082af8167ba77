package ragd

import (
	"context"
	"strings"

	"github.com/teilomillet/ragd/rag"
)

// Retriever embeds a query and runs hybrid search against a collection.
type Retriever struct {
	store    VectorStore
	embedder *EmbeddingService

	collection string
	model      string
	topK       int
	alpha      float64
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// RetrieverCollection sets the collection searched.
func RetrieverCollection(name string) RetrieverOption {
	return func(r *Retriever) { r.collection = name }
}

// RetrieverModel sets the query embedding model.
func RetrieverModel(model string) RetrieverOption {
	return func(r *Retriever) { r.model = model }
}

// TopK sets the default number of results.
func TopK(k int) RetrieverOption {
	return func(r *Retriever) { r.topK = k }
}

// Alpha sets the default hybrid blend: 1 is pure vector search, 0 is pure
// keyword search.
func Alpha(a float64) RetrieverOption {
	return func(r *Retriever) { r.alpha = a }
}

// ScoredChunk is a retrieved chunk with its similarity score in [0,1],
// higher is more similar.
type ScoredChunk struct {
	Text    string  `json:"text"`
	Source  string  `json:"source"`
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// NewRetriever creates a Retriever over the given store and embedding
// service. Defaults: 5 results, alpha 0.5.
func NewRetriever(store VectorStore, embedder *EmbeddingService, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		store:      store,
		embedder:   embedder,
		collection: "documents",
		model:      "text-embedding-3-small",
		topK:       5,
		alpha:      0.5,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve embeds the query and returns the topK most relevant chunks
// blended by alpha. Zero topK or negative alpha fall back to the
// configured defaults. A missing collection is a not-found error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, alpha float64) ([]ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, rag.ValidationError("query must not be empty")
	}
	if topK <= 0 {
		topK = r.topK
	}
	if alpha < 0 {
		alpha = r.alpha
	}

	vector, err := r.embedder.EmbedQuery(ctx, r.model, query)
	if err != nil {
		return nil, rag.InternalError("failed to embed query", err)
	}

	hits, err := r.store.HybridQuery(ctx, r.collection, query, vector, alpha, topK)
	if err != nil {
		if IsCollectionNotFound(err) {
			return nil, rag.NotFoundError("collection", r.collection)
		}
		return nil, rag.DatabaseError("hybrid search failed", err)
	}

	chunks := make([]ScoredChunk, len(hits))
	for i, hit := range hits {
		chunks[i] = ScoredChunk{
			Text:    hit.Text,
			Source:  hit.Source,
			ChunkID: hit.ChunkID,
			Score:   rag.SimilarityFromDistance(hit.Distance),
		}
	}
	Debug("retrieved chunks", "query_len", len(query), "results", len(chunks),
		"top_k", topK, "alpha", alpha)
	return chunks, nil
}

// Collection returns the collection this retriever searches.
func (r *Retriever) Collection() string { return r.collection }
