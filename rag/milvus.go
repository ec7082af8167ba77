package rag

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	fieldPK        = "pk"
	fieldText      = "text"
	fieldSource    = "source"
	fieldChunkID   = "chunk_id"
	fieldEmbedding = "embedding"
	fieldSparse    = "sparse"

	maxTextLength   = 65535
	maxSourceLength = 1024
	maxChunkIDLen   = 64

	hnswM              = 16
	hnswEfConstruction = 256
	hnswEf             = 64
	sparseDropRatio    = 0.0
)

var outputFields = []string{fieldText, fieldSource, fieldChunkID}

// MilvusStore implements VectorStore on a Milvus deployment. Each chunk is
// stored with both a dense embedding and a sparse term-weight vector so
// hybrid queries run as two ANN sub-requests fused server-side. One store
// is shared across request goroutines; the load cache is mutex-guarded.
type MilvusStore struct {
	cfg    StoreConfig
	client client.Client

	mu     sync.Mutex
	loaded map[string]bool
}

func newMilvusStore(cfg StoreConfig) *MilvusStore {
	return &MilvusStore{cfg: cfg, loaded: make(map[string]bool)}
}

func (m *MilvusStore) Connect(ctx context.Context) error {
	c, err := client.NewClient(ctx, client.Config{
		Address:  m.cfg.Address,
		Username: m.cfg.Username,
		Password: m.cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("connect to milvus at %s: %w", m.cfg.Address, err)
	}
	m.client = c
	GlobalLogger.Info("connected to milvus", "address", m.cfg.Address)
	return nil
}

func (m *MilvusStore) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

func (m *MilvusStore) Ping(ctx context.Context) error {
	_, err := m.client.ListCollections(ctx)
	return err
}

func (m *MilvusStore) HasCollection(ctx context.Context, name string) (bool, error) {
	return m.client.HasCollection(ctx, name)
}

func (m *MilvusStore) CreateCollection(ctx context.Context, name string, dimension int) error {
	schema := entity.NewSchema().WithName(name).
		WithDescription("document chunks with dense and sparse vectors").
		WithField(entity.NewField().WithName(fieldPK).
			WithDataType(entity.FieldTypeInt64).WithIsPrimaryKey(true).WithIsAutoID(true)).
		WithField(entity.NewField().WithName(fieldText).
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxTextLength)).
		WithField(entity.NewField().WithName(fieldSource).
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxSourceLength)).
		WithField(entity.NewField().WithName(fieldChunkID).
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxChunkIDLen)).
		WithField(entity.NewField().WithName(fieldEmbedding).
			WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dimension))).
		WithField(entity.NewField().WithName(fieldSparse).
			WithDataType(entity.FieldTypeSparseVector))

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}

	denseIdx, err := entity.NewIndexHNSW(entity.COSINE, hnswM, hnswEfConstruction)
	if err != nil {
		return fmt.Errorf("build hnsw index definition: %w", err)
	}
	if err := m.client.CreateIndex(ctx, name, fieldEmbedding, denseIdx, false); err != nil {
		return fmt.Errorf("create dense index on %s: %w", name, err)
	}

	sparseIdx, err := entity.NewIndexSparseInverted(entity.IP, sparseDropRatio)
	if err != nil {
		return fmt.Errorf("build sparse index definition: %w", err)
	}
	if err := m.client.CreateIndex(ctx, name, fieldSparse, sparseIdx, false); err != nil {
		return fmt.Errorf("create sparse index on %s: %w", name, err)
	}

	if err := m.client.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("load collection %s: %w", name, err)
	}
	m.mu.Lock()
	m.loaded[name] = true
	m.mu.Unlock()
	GlobalLogger.Info("created collection", "name", name, "dimension", dimension)
	return nil
}

func (m *MilvusStore) DropCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	delete(m.loaded, name)
	m.mu.Unlock()
	return m.client.DropCollection(ctx, name)
}

// ProbeCollection verifies the collection exists and its description can be
// fetched. A missing collection maps to ErrCollectionNotFound so callers can
// distinguish "recreate" from "broken connection".
func (m *MilvusStore) ProbeCollection(ctx context.Context, name string) error {
	has, err := m.client.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("probe collection %s: %w", name, err)
	}
	if !has {
		return ErrCollectionNotFound
	}
	if _, err := m.client.DescribeCollection(ctx, name); err != nil {
		return fmt.Errorf("describe collection %s: %w", name, err)
	}
	return nil
}

func (m *MilvusStore) ListCollections(ctx context.Context) ([]string, error) {
	colls, err := m.client.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(colls))
	for _, c := range colls {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MilvusStore) CollectionStats(ctx context.Context, name string) (CollectionStats, error) {
	has, err := m.client.HasCollection(ctx, name)
	if err != nil {
		return CollectionStats{}, err
	}
	if !has {
		return CollectionStats{}, ErrCollectionNotFound
	}

	raw, err := m.client.GetCollectionStatistics(ctx, name)
	if err != nil {
		return CollectionStats{}, fmt.Errorf("collection statistics for %s: %w", name, err)
	}
	var chunkCount int64
	if rc, ok := raw["row_count"]; ok {
		chunkCount, _ = strconv.ParseInt(rc, 10, 64)
	}

	if err := m.ensureLoaded(ctx, name); err != nil {
		return CollectionStats{}, err
	}
	// Every document's first chunk carries chunk_id "0", so counting those
	// rows counts documents.
	rs, err := m.client.Query(ctx, name, nil, fieldChunkID+` == "0"`, []string{fieldSource},
		client.WithLimit(16384))
	if err != nil {
		return CollectionStats{}, fmt.Errorf("count documents in %s: %w", name, err)
	}
	var docCount int64
	if col := rs.GetColumn(fieldSource); col != nil {
		docCount = int64(col.Len())
	}

	return CollectionStats{Name: name, DocumentCount: docCount, ChunkCount: chunkCount}, nil
}

func (m *MilvusStore) InsertChunks(ctx context.Context, collection string, chunks []StoredChunk) (InsertReport, error) {
	if len(chunks) == 0 {
		return InsertReport{}, nil
	}
	err := m.insertBatch(ctx, collection, chunks)
	if err == nil {
		return InsertReport{Inserted: len(chunks)}, m.client.Flush(ctx, collection, false)
	}
	GlobalLogger.Warn("batch insert failed, retrying chunks individually",
		"collection", collection, "error", err)

	var report InsertReport
	var lastErr error
	for i := range chunks {
		if err := m.insertBatch(ctx, collection, chunks[i:i+1]); err != nil {
			report.Failed++
			lastErr = err
			GlobalLogger.Warn("chunk insert failed", "collection", collection,
				"chunk_id", chunks[i].ChunkID, "error", err)
			continue
		}
		report.Inserted++
	}
	if report.Inserted == 0 && lastErr != nil {
		return report, fmt.Errorf("insert into %s: %w", collection, lastErr)
	}
	return report, m.client.Flush(ctx, collection, false)
}

func (m *MilvusStore) insertBatch(ctx context.Context, collection string, chunks []StoredChunk) error {
	texts := make([]string, len(chunks))
	sources := make([]string, len(chunks))
	chunkIDs := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	sparse := make([]entity.SparseEmbedding, len(chunks))

	dim := 0
	for i, c := range chunks {
		texts[i] = truncate(c.Text, maxTextLength)
		sources[i] = truncate(c.Source, maxSourceLength)
		chunkIDs[i] = truncate(c.ChunkID, maxChunkIDLen)
		vectors[i] = c.Vector
		if len(c.Vector) > dim {
			dim = len(c.Vector)
		}
		emb, err := sparseEncode(c.Text)
		if err != nil {
			return fmt.Errorf("encode sparse vector for chunk %s: %w", c.ChunkID, err)
		}
		sparse[i] = emb
	}

	_, err := m.client.Insert(ctx, collection, "",
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnVarChar(fieldSource, sources),
		entity.NewColumnVarChar(fieldChunkID, chunkIDs),
		entity.NewColumnFloatVector(fieldEmbedding, dim, vectors),
		entity.NewColumnSparseVectors(fieldSparse, sparse),
	)
	return err
}

// HybridQuery issues a dense ANN request and a sparse keyword request and
// lets Milvus fuse them with a weighted reranker: alpha on the dense side,
// 1-alpha on the sparse side. Fused scores land in [0,1]; Distance is the
// complement.
func (m *MilvusStore) HybridQuery(ctx context.Context, collection, queryText string, queryVector []float32, alpha float64, limit int) ([]SearchHit, error) {
	has, err := m.client.HasCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, ErrCollectionNotFound
	}
	if err := m.ensureLoaded(ctx, collection); err != nil {
		return nil, err
	}

	denseParam, err := entity.NewIndexHNSWSearchParam(hnswEf)
	if err != nil {
		return nil, fmt.Errorf("build dense search param: %w", err)
	}
	sparseParam, err := entity.NewIndexSparseInvertedSearchParam(sparseDropRatio)
	if err != nil {
		return nil, fmt.Errorf("build sparse search param: %w", err)
	}
	querySparse, err := sparseEncode(queryText)
	if err != nil {
		return nil, fmt.Errorf("encode sparse query vector: %w", err)
	}

	subRequests := []*client.ANNSearchRequest{
		client.NewANNSearchRequest(fieldEmbedding, entity.COSINE, "",
			[]entity.Vector{entity.FloatVector(queryVector)}, denseParam, limit),
		client.NewANNSearchRequest(fieldSparse, entity.IP, "",
			[]entity.Vector{querySparse}, sparseParam, limit),
	}
	reranker := client.NewWeightedReranker([]float64{alpha, 1 - alpha})

	results, err := m.client.HybridSearch(ctx, collection, nil, limit, outputFields, reranker, subRequests)
	if err != nil {
		return nil, fmt.Errorf("hybrid search in %s: %w", collection, err)
	}

	var hits []SearchHit
	for _, rs := range results {
		for i := 0; i < rs.ResultCount; i++ {
			hit := SearchHit{Distance: 1 - float64(rs.Scores[i])}
			if hit.Distance < 0 {
				hit.Distance = 0
			}
			if col := rs.Fields.GetColumn(fieldText); col != nil {
				hit.Text, _ = col.GetAsString(i)
			}
			if col := rs.Fields.GetColumn(fieldSource); col != nil {
				hit.Source, _ = col.GetAsString(i)
			}
			if col := rs.Fields.GetColumn(fieldChunkID); col != nil {
				hit.ChunkID, _ = col.GetAsString(i)
			}
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

// ensureLoaded loads the collection into memory once. The mutex is held
// across the load call so concurrent callers on a cold collection issue a
// single LoadCollection.
func (m *MilvusStore) ensureLoaded(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded[name] {
		return nil
	}
	if err := m.client.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("load collection %s: %w", name, err)
	}
	m.loaded[name] = true
	return nil
}

// sparseEncode hashes each term of the text into a sparse dimension and
// weights it by term frequency. Tokenization matches the BM25 index so the
// keyword side of hybrid search sees the same terms everywhere.
func sparseEncode(text string) (entity.SparseEmbedding, error) {
	counts := make(map[uint32]float32)
	for _, term := range Terms(text) {
		h := fnv.New32a()
		h.Write([]byte(term))
		counts[h.Sum32()]++
	}
	if len(counts) == 0 {
		// Milvus rejects empty sparse vectors; a single zero-weight
		// dimension keeps blank text insertable.
		return entity.NewSliceSparseEmbedding([]uint32{0}, []float32{0})
	}
	positions := make([]uint32, 0, len(counts))
	for p := range counts {
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
	values := make([]float32, len(positions))
	for i, p := range positions {
		values[i] = counts[p]
	}
	return entity.NewSliceSparseEmbedding(positions, values)
}

// truncate cuts s to at most max bytes without splitting a rune, so the
// stored VarChar stays valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
