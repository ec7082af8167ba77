package ragd

import (
	"github.com/teilomillet/ragd/rag"
)

// VectorStore is the storage backend interface for chunk vectors and
// hybrid queries.
type VectorStore = rag.VectorStore

// StoreConfig selects and configures a vector store backend.
type StoreConfig = rag.StoreConfig

// StoredChunk is a chunk persisted to the vector store.
type StoredChunk = rag.StoredChunk

// SearchHit is a raw store result carrying the provider's distance.
type SearchHit = rag.SearchHit

// CollectionStats summarizes a collection's contents.
type CollectionStats = rag.CollectionStats

// NewVectorStore creates a vector store for the configured backend:
// "milvus" for a Milvus deployment, "memory" for the in-process store.
func NewVectorStore(cfg StoreConfig) (VectorStore, error) {
	return rag.NewVectorStore(cfg)
}

// NewMemoryStore creates the in-process vector store used in tests and
// single-process deployments.
func NewMemoryStore() VectorStore {
	return rag.NewMemoryStore()
}
