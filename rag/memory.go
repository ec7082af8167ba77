package rag

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process VectorStore with real hybrid scoring:
// cosine similarity on the dense side, BM25 on the keyword side, blended
// by alpha. It backs tests and small single-process deployments.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	chunks []StoredChunk
	bm25   *BM25Index
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// Connect is a no-op for the in-memory store.
func (m *MemoryStore) Connect(ctx context.Context) error { return nil }

// Close drops all collections.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = make(map[string]*memoryCollection)
	return nil
}

// Ping always succeeds while the process is alive.
func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) HasCollection(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[name]
	return ok, nil
}

func (m *MemoryStore) CreateCollection(ctx context.Context, name string, dimension int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		m.collections[name] = &memoryCollection{bm25: NewBM25Index()}
	}
	return nil
}

func (m *MemoryStore) DropCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	return nil
}

func (m *MemoryStore) ProbeCollection(ctx context.Context, name string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.collections[name]; !ok {
		return ErrCollectionNotFound
	}
	return nil
}

func (m *MemoryStore) ListCollections(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) CollectionStats(ctx context.Context, name string) (CollectionStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.collections[name]
	if !ok {
		return CollectionStats{}, ErrCollectionNotFound
	}
	sources := make(map[string]struct{})
	for _, c := range coll.chunks {
		if c.Source != "" {
			sources[c.Source] = struct{}{}
		}
	}
	return CollectionStats{
		Name:          name,
		DocumentCount: int64(len(sources)),
		ChunkCount:    int64(len(coll.chunks)),
	}, nil
}

// InsertChunks appends the batch. Concurrent ingestions into the same
// collection are uncoordinated batch appends, matching the last-write-wins
// object semantics of the real store.
func (m *MemoryStore) InsertChunks(ctx context.Context, collection string, chunks []StoredChunk) (InsertReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[collection]
	if !ok {
		return InsertReport{}, ErrCollectionNotFound
	}
	for _, c := range chunks {
		coll.bm25.Add(len(coll.chunks), c.Text)
		coll.chunks = append(coll.chunks, c)
	}
	GlobalLogger.Debug("stored chunks in memory store", "collection", collection, "count", len(chunks))
	return InsertReport{Inserted: len(chunks)}, nil
}

// HybridQuery blends cosine similarity against the query vector with BM25
// keyword relevance. alpha 1 ranks purely by vector similarity, alpha 0
// purely by keyword score. Hits report Distance = 1 - blended score so
// the caller's similarity conversion round-trips.
func (m *MemoryStore) HybridQuery(ctx context.Context, collection, queryText string, queryVector []float32, alpha float64, limit int) ([]SearchHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.collections[collection]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	if len(coll.chunks) == 0 || limit <= 0 {
		return nil, nil
	}
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}

	sparseScores := coll.bm25.Scores(queryText)
	var maxSparse float64
	for _, s := range sparseScores {
		if s > maxSparse {
			maxSparse = s
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	results := make([]scored, 0, len(coll.chunks))
	for i, chunk := range coll.chunks {
		// Cosine similarity mapped from [-1,1] into [0,1] so the two
		// scales blend on equal footing.
		dense := (cosineSimilarity(queryVector, chunk.Vector) + 1) / 2
		sparse := 0.0
		if maxSparse > 0 {
			sparse = sparseScores[i] / maxSparse
		}
		results = append(results, scored{idx: i, score: alpha*dense + (1-alpha)*sparse})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	hits := make([]SearchHit, len(results))
	for i, r := range results {
		chunk := coll.chunks[r.idx]
		distance := 1 - r.score
		if distance < 0 {
			distance = 0
		}
		hits[i] = SearchHit{
			Text:     chunk.Text,
			Source:   chunk.Source,
			ChunkID:  chunk.ChunkID,
			Distance: distance,
		}
	}
	return hits, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
