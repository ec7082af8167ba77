package ragd

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/teilomillet/ragd/rag"
)

// Ingestor runs the ingestion pipeline: chunk the text, embed the chunks,
// make sure the collection exists, and store chunk records. Each stage
// fails fast; there is no partial-result recovery beyond what the store
// reports per object.
type Ingestor struct {
	store    VectorStore
	embedder *EmbeddingService
	chunker  Chunker
	parser   *ParserManager

	collection string
	model      string
	dimension  int
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// IngestorCollection sets the target collection name.
func IngestorCollection(name string) IngestorOption {
	return func(in *Ingestor) { in.collection = name }
}

// IngestorModel sets the embedding model.
func IngestorModel(model string) IngestorOption {
	return func(in *Ingestor) { in.model = model }
}

// IngestorDimension sets the embedding dimension used when the collection
// has to be created.
func IngestorDimension(dim int) IngestorOption {
	return func(in *Ingestor) { in.dimension = dim }
}

// IngestorChunker replaces the default chunker.
func IngestorChunker(c Chunker) IngestorOption {
	return func(in *Ingestor) { in.chunker = c }
}

// IngestResult reports what a single ingestion stored.
type IngestResult struct {
	Source       string `json:"source"`
	ChunksStored int    `json:"chunks_stored"`
	ChunksFailed int    `json:"chunks_failed,omitempty"`
	TotalChunks  int    `json:"total_chunks"`
	Collection   string `json:"collection"`
}

// NewIngestor wires an ingestion pipeline over the given store and
// embedding service. The chunker defaults to token-aware chunking for the
// configured embedding model.
func NewIngestor(store VectorStore, embedder *EmbeddingService, opts ...IngestorOption) (*Ingestor, error) {
	in := &Ingestor{
		store:      store,
		embedder:   embedder,
		parser:     NewParserManager(),
		collection: "documents",
		model:      "text-embedding-3-small",
		dimension:  1536,
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.chunker == nil {
		counter, err := NewModelTokenCounter(in.model)
		if err != nil {
			return nil, err
		}
		chunker, err := NewChunker(WithTokenCounter(counter))
		if err != nil {
			return nil, err
		}
		in.chunker = chunker
	}
	return in, nil
}

// IngestText chunks, embeds and stores a document. An empty source is
// recorded as "inline". Returns a classified error when any stage fails.
func (in *Ingestor) IngestText(ctx context.Context, text, source string) (IngestResult, error) {
	if strings.TrimSpace(text) == "" {
		return IngestResult{}, rag.ValidationError("text must not be empty")
	}
	if len(text) > rag.MaxTextSize {
		return IngestResult{}, rag.ValidationError("text size %d exceeds limit of %d bytes", len(text), rag.MaxTextSize)
	}
	if source == "" {
		source = "inline"
	}

	chunks := in.chunker.Chunk(text)
	if len(chunks) == 0 {
		return IngestResult{}, rag.ValidationError("no chunkable content in document")
	}
	Debug("chunked document", "source", source, "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := in.embedder.EmbedBatch(ctx, in.model, texts)
	if err != nil {
		return IngestResult{}, rag.InternalError("failed to embed document", err)
	}
	if len(vectors) != len(chunks) {
		return IngestResult{}, rag.InternalError("embedding count mismatch", nil)
	}

	if err := in.EnsureCollection(ctx); err != nil {
		return IngestResult{}, err
	}

	stored := make([]StoredChunk, len(chunks))
	for i, c := range chunks {
		stored[i] = StoredChunk{
			Text:    c.Text,
			Source:  source,
			ChunkID: strconv.Itoa(c.Index),
			Vector:  vectors[i],
		}
	}
	report, err := in.store.InsertChunks(ctx, in.collection, stored)
	if err != nil {
		return IngestResult{}, rag.DatabaseError("failed to store chunks", err)
	}

	Info("ingested document", "source", source,
		"stored", report.Inserted, "failed", report.Failed, "collection", in.collection)
	return IngestResult{
		Source:       source,
		ChunksStored: report.Inserted,
		ChunksFailed: report.Failed,
		TotalChunks:  len(chunks),
		Collection:   in.collection,
	}, nil
}

// IngestFile parses the file at path and ingests its text. An empty
// source defaults to the file's base name.
func (in *Ingestor) IngestFile(ctx context.Context, path, source string) (IngestResult, error) {
	doc, err := in.parser.Parse(path)
	if err != nil {
		return IngestResult{}, err
	}
	if source == "" {
		source = filepath.Base(path)
	}
	return in.IngestText(ctx, doc.Content, source)
}

// EnsureCollection probes the target collection and creates it when
// missing. A healthy existing collection is left untouched. A collection
// that exists but fails its probe is dropped and recreated; this is
// destructive, with no data migration, so ingestion never stays wedged
// behind a corrupted collection.
func (in *Ingestor) EnsureCollection(ctx context.Context) error {
	err := in.store.ProbeCollection(ctx, in.collection)
	if err == nil {
		return nil
	}
	if !IsCollectionNotFound(err) {
		Warn("collection failed probe, recreating", "name", in.collection, "error", err)
		if dropErr := in.store.DropCollection(ctx, in.collection); dropErr != nil {
			return rag.DatabaseError("failed to drop unhealthy collection", dropErr)
		}
	}
	Info("creating collection", "name", in.collection, "dimension", in.dimension)
	if err := in.store.CreateCollection(ctx, in.collection, in.dimension); err != nil {
		return rag.DatabaseError("failed to create collection", err)
	}
	return nil
}

// Collection returns the target collection name.
func (in *Ingestor) Collection() string { return in.collection }
