package rag

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCollectionNotFound is returned by VectorStore implementations when a
// named collection does not exist. Callers branch on this sentinel rather
// than inspecting error messages.
var ErrCollectionNotFound = errors.New("collection not found")

// StoredChunk is the tuple persisted per chunk: the chunk text, its source
// label, its chunk_id (string form of the chunk index, scoped to one
// ingestion of one source) and the externally computed vector. Vectors are
// propagated to storage as-is; their length is model-defined and not
// validated here.
type StoredChunk struct {
	Text    string
	Source  string
	ChunkID string
	Vector  []float32
}

// SearchHit is one retrieval result: the stored chunk properties plus the
// provider's distance metadata. Distance follows the store's convention
// (lower is closer); similarity conversion happens at the service layer.
type SearchHit struct {
	Text     string
	Source   string
	ChunkID  string
	Distance float64
}

// CollectionStats summarizes a collection. DocumentCount approximates the
// number of distinct sources; ChunkCount is the number of stored objects.
type CollectionStats struct {
	Name          string
	DocumentCount int64
	ChunkCount    int64
}

// InsertReport accounts for a batch insertion, including partial success
// after the per-object fallback. Failed > 0 with a nil error never
// happens; partial failure is reported, not masked.
type InsertReport struct {
	Inserted int
	Failed   int
}

// VectorStore is the narrow contract this system consumes from a vector
// database. Hybrid fusion of keyword and vector relevance is the store's
// job; results come back in the store's own ranking, best first, and are
// not re-ranked here.
type VectorStore interface {
	// Connect establishes the connection using the configured credentials.
	Connect(ctx context.Context) error
	Close() error
	// Ping is a server liveness probe.
	Ping(ctx context.Context) error

	HasCollection(ctx context.Context, name string) (bool, error)
	// CreateCollection creates the fixed chunk schema (text, source,
	// chunk_id) with a vector field of the given dimension. Vectors are
	// always supplied externally, never computed server-side.
	CreateCollection(ctx context.Context, name string, dimension int) error
	DropCollection(ctx context.Context, name string) error
	// ProbeCollection checks that the named collection exists and answers
	// a minimal query. A failed probe signals the collection is missing
	// or corrupted.
	ProbeCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]string, error)
	CollectionStats(ctx context.Context, name string) (CollectionStats, error)

	// InsertChunks stores the batch with its vectors. Implementations
	// attempt one per-object fallback pass when the batch insert fails
	// and report partial success through the InsertReport.
	InsertChunks(ctx context.Context, collection string, chunks []StoredChunk) (InsertReport, error)

	// HybridQuery blends keyword and vector relevance for the query.
	// alpha is the balance in [0,1]: 0 keyword-only, 1 vector-only.
	// Zero hits is a valid result, not an error.
	HybridQuery(ctx context.Context, collection, queryText string, queryVector []float32, alpha float64, limit int) ([]SearchHit, error)
}

// StoreConfig selects and configures a VectorStore backend.
type StoreConfig struct {
	Type      string // "milvus" or "memory"
	Address   string
	Username  string
	Password  string
	Dimension int
	Timeout   time.Duration
}

// NewVectorStore creates a store for the configured backend type.
func NewVectorStore(cfg StoreConfig) (VectorStore, error) {
	switch cfg.Type {
	case "milvus":
		return newMilvusStore(cfg), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store type: %s", cfg.Type)
	}
}
