package rag

import "strings"

// Chunk is a bounded-size text segment produced from a document. Index is
// the chunk's sequence position within its document and doubles as the
// stored chunk_id (string form, scoped to one ingestion of one source).
type Chunk struct {
	// Text contains the actual content of the chunk
	Text string
	// TokenSize is the number of tokens in this chunk
	TokenSize int
	// Index is the order-significant position within the document
	Index int
}

// Chunker defines the interface for text chunking implementations.
type Chunker interface {
	// Chunk splits the input text into an ordered slice of Chunks.
	Chunk(text string) []Chunk
}

// TextChunker packs sentences into chunks bounded by a token budget, with
// token-based overlap carried from the tail of each chunk into the next.
type TextChunker struct {
	// ChunkSize is the token budget per chunk. The bound is soft: a single
	// sentence larger than the budget becomes its own oversized chunk
	// rather than being split further.
	ChunkSize int
	// ChunkOverlap is the number of tokens carried over between adjacent
	// chunks. Must be smaller than ChunkSize; larger values are clamped so
	// the chunker always makes forward progress.
	ChunkOverlap int
	// TokenCounter counts tokens in text segments
	TokenCounter TokenCounter
	// SentenceSplitter splits text into sentences
	SentenceSplitter func(string) []string
}

// TextChunkerOption configures a TextChunker.
type TextChunkerOption func(*TextChunker)

// NewTextChunker creates a TextChunker with the given options. Defaults:
// 400-token chunks, 60-token overlap, whitespace token counting and the
// paragraph-aware sentence splitter.
func NewTextChunker(options ...TextChunkerOption) (*TextChunker, error) {
	tc := &TextChunker{
		ChunkSize:        400,
		ChunkOverlap:     60,
		TokenCounter:     WordTokenCounter{},
		SentenceSplitter: SplitSentences,
	}
	for _, option := range options {
		option(tc)
	}
	if tc.ChunkOverlap >= tc.ChunkSize {
		GlobalLogger.Warn("chunk overlap >= chunk size, clamping", "size", tc.ChunkSize, "overlap", tc.ChunkOverlap)
		tc.ChunkOverlap = tc.ChunkSize - 1
	}
	return tc, nil
}

// Chunk splits text into chunks. Sentences are accumulated greedily; when
// the next sentence would push the buffer past the token budget, the
// buffer is finalized and the next buffer is seeded with whole trailing
// sentences worth up to ChunkOverlap tokens, earliest first. Sentence
// order is never changed and no sentence is dropped.
func (tc *TextChunker) Chunk(text string) []Chunk {
	sentences := tc.SentenceSplitter(text)

	var chunks []Chunk
	var cur []string
	curTokens := 0

	finalize := func() {
		joined := strings.TrimSpace(strings.Join(cur, " "))
		if joined == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Text:      joined,
			TokenSize: curTokens,
			Index:     len(chunks),
		})
	}

	for _, s := range sentences {
		sTokens := tc.TokenCounter.Count(s)

		if len(cur) > 0 && curTokens+sTokens > tc.ChunkSize {
			finalize()

			if tc.ChunkOverlap > 0 {
				// Walk backward through the finalized buffer, collecting
				// whole sentences until one more would exceed the overlap
				// budget. Order is preserved: earliest-first from the tail.
				var overlap []string
				toks := 0
				for i := len(cur) - 1; i >= 0; i-- {
					t := tc.TokenCounter.Count(cur[i])
					if toks+t > tc.ChunkOverlap {
						break
					}
					overlap = append([]string{cur[i]}, overlap...)
					toks += t
				}
				cur = overlap
				curTokens = toks
			} else {
				cur = nil
				curTokens = 0
			}
		}

		cur = append(cur, s)
		curTokens += sTokens
	}

	if len(cur) > 0 {
		finalize()
	}

	return chunks
}

// ChunkStrings is a convenience wrapper returning only the chunk texts.
func (tc *TextChunker) ChunkStrings(text string) []string {
	chunks := tc.Chunk(text)
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// ChunkSize sets the token budget per chunk.
func ChunkSize(size int) TextChunkerOption {
	return func(tc *TextChunker) {
		if size > 0 {
			tc.ChunkSize = size
		}
	}
}

// ChunkOverlap sets the number of tokens carried between adjacent chunks.
func ChunkOverlap(overlap int) TextChunkerOption {
	return func(tc *TextChunker) {
		if overlap >= 0 {
			tc.ChunkOverlap = overlap
		}
	}
}

// WithTokenCounter sets a custom token counter implementation.
func WithTokenCounter(counter TokenCounter) TextChunkerOption {
	return func(tc *TextChunker) {
		tc.TokenCounter = counter
	}
}

// WithSentenceSplitter sets a custom sentence splitter function.
func WithSentenceSplitter(splitter func(string) []string) TextChunkerOption {
	return func(tc *TextChunker) {
		tc.SentenceSplitter = splitter
	}
}

// ChunkTextForModel chunks text using the tokenizer of the given model.
// Unknown model names fall back to the default encoding, so chunking never
// fails on an unseen model identifier.
func ChunkTextForModel(text, model string, chunkTokens, overlapTokens int) ([]Chunk, error) {
	counter, err := NewModelTokenCounter(model)
	if err != nil {
		return nil, err
	}
	tc, err := NewTextChunker(
		ChunkSize(chunkTokens),
		ChunkOverlap(overlapTokens),
		WithTokenCounter(counter),
	)
	if err != nil {
		return nil, err
	}
	return tc.Chunk(text), nil
}
