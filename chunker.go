// Package ragd provides a high-level interface for ingesting documents,
// retrieving relevant chunks with hybrid search, and generating grounded
// answers, built for retrieval-augmented generation (RAG) pipelines.
package ragd

import (
	"github.com/teilomillet/ragd/rag"
)

// Chunk represents a piece of text with its token count and position
// within the original document.
type Chunk = rag.Chunk

// Chunker defines the interface for text chunking implementations.
// Implementations split text into semantically meaningful chunks while
// preserving context across boundaries.
type Chunker interface {
	// Chunk splits the input text into a slice of Chunks according to the
	// implementation's strategy.
	Chunk(text string) []Chunk
}

// TokenCounter defines the interface for counting tokens in text.
// Implementations range from simple word counting to model-specific
// subword tokenization.
type TokenCounter = rag.TokenCounter

// ChunkerOption is a function type for configuring Chunker instances.
// It follows the functional options pattern for clean and flexible configuration.
type ChunkerOption = rag.TextChunkerOption

// NewChunker creates a new Chunker with the given options.
// By default, it creates a TextChunker with:
//   - Chunk size: 400 tokens
//   - Chunk overlap: 60 tokens
//   - Default word-based token counter
//   - Sentence-boundary splitter
//
// Use the provided option functions to customize these settings.
func NewChunker(options ...ChunkerOption) (Chunker, error) {
	return rag.NewTextChunker(options...)
}

// ChunkSize sets the target size of each chunk in tokens.
func ChunkSize(size int) ChunkerOption {
	return rag.ChunkSize(size)
}

// ChunkOverlap sets the number of tokens carried over between adjacent
// chunks. Overlap at or above the chunk size is clamped to size-1.
func ChunkOverlap(overlap int) ChunkerOption {
	return rag.ChunkOverlap(overlap)
}

// WithTokenCounter sets the token counting implementation.
func WithTokenCounter(counter TokenCounter) ChunkerOption {
	return rag.WithTokenCounter(counter)
}

// NewModelTokenCounter creates a token counter backed by the tokenizer of
// the given model, falling back to a general-purpose encoding for unknown
// model names.
func NewModelTokenCounter(model string) (TokenCounter, error) {
	return rag.NewModelTokenCounter(model)
}

// ChunkText splits text into chunks sized by the given model's tokenizer.
func ChunkText(text, model string, chunkTokens, overlapTokens int) ([]Chunk, error) {
	return rag.ChunkTextForModel(text, model, chunkTokens, overlapTokens)
}
