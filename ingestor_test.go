package ragd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/teilomillet/ragd/rag"
)

type keywordEmbedder struct {
	calls   int
	failErr error
}

func (k *keywordEmbedder) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	k.calls++
	if k.failErr != nil {
		return nil, k.failErr
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func newTestIngestor(t *testing.T, store VectorStore, embedder *keywordEmbedder) *Ingestor {
	t.Helper()
	chunker, err := NewChunker(ChunkSize(10), ChunkOverlap(2))
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	svc := NewEmbeddingService(embedder,
		rag.WithBatchLimiter(nil),
		WithRetryPolicy(noSleepPolicy()),
	)
	ingestor, err := NewIngestor(store, svc,
		IngestorCollection("docs"),
		IngestorDimension(2),
		IngestorChunker(chunker),
	)
	if err != nil {
		t.Fatalf("NewIngestor: %v", err)
	}
	return ingestor
}

func noSleepPolicy() rag.RetryPolicy {
	p := rag.DefaultRetryPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return p
}

func TestIngestTextStoresAllChunks(t *testing.T) {
	store := NewMemoryStore()
	ingestor := newTestIngestor(t, store, &keywordEmbedder{})

	var text string
	for i := 0; i < 6; i++ {
		text += fmt.Sprintf("Sentence number %d has six words. ", i)
	}

	result, err := ingestor.IngestText(context.Background(), text, "doc.txt")
	if err != nil {
		t.Fatalf("IngestText: %v", err)
	}
	if result.ChunksStored == 0 || result.ChunksStored != result.TotalChunks {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Collection != "docs" {
		t.Errorf("unexpected collection %q", result.Collection)
	}

	stats, err := store.CollectionStats(context.Background(), "docs")
	if err != nil {
		t.Fatalf("CollectionStats: %v", err)
	}
	if int(stats.ChunkCount) != result.ChunksStored {
		t.Errorf("store holds %d chunks, result says %d", stats.ChunkCount, result.ChunksStored)
	}
}

func TestIngestTextChunkIDsAreIndexes(t *testing.T) {
	store := NewMemoryStore()
	ingestor := newTestIngestor(t, store, &keywordEmbedder{})

	var text string
	for i := 0; i < 6; i++ {
		text += fmt.Sprintf("Sentence number %d has six words. ", i)
	}
	result, err := ingestor.IngestText(context.Background(), text, "doc.txt")
	if err != nil {
		t.Fatalf("IngestText: %v", err)
	}

	hits, err := store.HybridQuery(context.Background(), "docs", "sentence", []float32{1, 0}, 0.5, result.ChunksStored)
	if err != nil {
		t.Fatalf("HybridQuery: %v", err)
	}
	seen := map[string]bool{}
	for _, h := range hits {
		if _, err := strconv.Atoi(h.ChunkID); err != nil {
			t.Errorf("chunk id %q is not an index", h.ChunkID)
		}
		seen[h.ChunkID] = true
	}
	for i := 0; i < result.ChunksStored; i++ {
		if !seen[strconv.Itoa(i)] {
			t.Errorf("chunk id %d missing", i)
		}
	}
}

func TestIngestTextValidation(t *testing.T) {
	ingestor := newTestIngestor(t, NewMemoryStore(), &keywordEmbedder{})

	for _, text := range []string{"", "   ", "\n\n"} {
		_, err := ingestor.IngestText(context.Background(), text, "x")
		if !IsKind(err, KindValidation) {
			t.Errorf("text %q: expected validation error, got %v", text, err)
		}
	}

	oversized := strings.Repeat("a", rag.MaxTextSize+1)
	_, err := ingestor.IngestText(context.Background(), oversized, "x")
	if !IsKind(err, KindValidation) {
		t.Errorf("oversized text: expected validation error, got %v", err)
	}
}

func TestIngestTextDefaultSource(t *testing.T) {
	store := NewMemoryStore()
	ingestor := newTestIngestor(t, store, &keywordEmbedder{})

	result, err := ingestor.IngestText(context.Background(), "Some text here.", "")
	if err != nil {
		t.Fatalf("IngestText: %v", err)
	}
	if result.Source != "inline" {
		t.Errorf("expected source inline, got %q", result.Source)
	}
}

func TestIngestTextEmbedFailurePropagates(t *testing.T) {
	store := NewMemoryStore()
	embedder := &keywordEmbedder{failErr: fmt.Errorf("provider down")}
	ingestor := newTestIngestor(t, store, embedder)

	_, err := ingestor.IngestText(context.Background(), "Some text here.", "x")
	if err == nil {
		t.Fatal("expected error")
	}
	// The collection is never created when embedding fails.
	if probeErr := store.ProbeCollection(context.Background(), "docs"); probeErr == nil {
		t.Error("collection should not exist")
	}
}

func TestIngestFileReadsDocument(t *testing.T) {
	store := NewMemoryStore()
	ingestor := newTestIngestor(t, store, &keywordEmbedder{})

	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("A file with text. It has sentences."), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	result, err := ingestor.IngestFile(context.Background(), path, "")
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if result.Source != "note.txt" {
		t.Errorf("expected base name source, got %q", result.Source)
	}
	if result.ChunksStored == 0 {
		t.Error("no chunks stored")
	}
}

func TestEnsureCollectionIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ingestor := newTestIngestor(t, store, &keywordEmbedder{})
	ctx := context.Background()

	if err := ingestor.EnsureCollection(ctx); err != nil {
		t.Fatalf("first EnsureCollection: %v", err)
	}
	if _, err := store.InsertChunks(ctx, "docs", []StoredChunk{
		{Text: "keep me", Source: "s", ChunkID: "0", Vector: []float32{1, 0}},
	}); err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}

	// A healthy collection is left untouched.
	if err := ingestor.EnsureCollection(ctx); err != nil {
		t.Fatalf("second EnsureCollection: %v", err)
	}
	stats, err := store.CollectionStats(ctx, "docs")
	if err != nil {
		t.Fatalf("CollectionStats: %v", err)
	}
	if stats.ChunkCount != 1 {
		t.Errorf("existing data lost: %d chunks", stats.ChunkCount)
	}
}

// corruptProbeStore reports a configurable probe failure while delegating
// everything else to the wrapped store.
type corruptProbeStore struct {
	VectorStore
	probeErr error
	drops    int
}

func (s *corruptProbeStore) ProbeCollection(ctx context.Context, name string) error {
	if s.probeErr != nil {
		return s.probeErr
	}
	return s.VectorStore.ProbeCollection(ctx, name)
}

func (s *corruptProbeStore) DropCollection(ctx context.Context, name string) error {
	s.drops++
	return s.VectorStore.DropCollection(ctx, name)
}

func TestEnsureCollectionRecreatesUnhealthy(t *testing.T) {
	store := &corruptProbeStore{VectorStore: NewMemoryStore()}
	ingestor := newTestIngestor(t, store, &keywordEmbedder{})
	ctx := context.Background()

	if _, err := ingestor.IngestText(ctx, "Some text to seed the collection.", "seed.txt"); err != nil {
		t.Fatalf("IngestText: %v", err)
	}

	// A collection that exists but fails its probe is dropped and
	// recreated, losing its data.
	store.probeErr = errors.New("segment checksum mismatch")
	if err := ingestor.EnsureCollection(ctx); err != nil {
		t.Fatalf("EnsureCollection on unhealthy collection: %v", err)
	}
	if store.drops != 1 {
		t.Errorf("expected one drop, got %d", store.drops)
	}
	store.probeErr = nil

	stats, err := store.CollectionStats(ctx, "docs")
	if err != nil {
		t.Fatalf("CollectionStats: %v", err)
	}
	if stats.ChunkCount != 0 {
		t.Errorf("recreated collection should be empty, got %d chunks", stats.ChunkCount)
	}

	// Ingestion works again after the recreate.
	result, err := ingestor.IngestText(ctx, "Fresh text after recovery.", "fresh.txt")
	if err != nil {
		t.Fatalf("IngestText after recreate: %v", err)
	}
	if result.ChunksStored == 0 {
		t.Error("no chunks stored after recreate")
	}
}
