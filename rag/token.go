package rag

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding is used when a model name has no registered tokenizer.
// Token counts for such models are an approximation, which keeps ingestion
// working for model identifiers tiktoken does not know about.
const fallbackEncoding = "cl100k_base"

// TokenCounter defines the interface for counting tokens in a string.
// This abstraction allows for different tokenization strategies.
type TokenCounter interface {
	// Count returns the number of tokens in the given text according to
	// the implementation's tokenization strategy.
	Count(text string) int
}

var (
	encoderMu    sync.Mutex
	encoderCache = map[string]*tiktoken.Tiktoken{}
)

// TokenizerFor returns the tiktoken encoder for the given model name,
// falling back to cl100k_base when the model is unknown. Encoders are
// cached for the lifetime of the process.
func TokenizerFor(model string) (*tiktoken.Tiktoken, error) {
	encoderMu.Lock()
	defer encoderMu.Unlock()

	if enc, ok := encoderCache[model]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		GlobalLogger.Debug("no tokenizer for model, using fallback encoding", "model", model, "encoding", fallbackEncoding)
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
	}
	encoderCache[model] = enc
	return enc, nil
}

// CountTokens returns the token count of text under the given model's
// tokenizer (or the fallback encoding for unknown models).
func CountTokens(text, model string) (int, error) {
	enc, err := TokenizerFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// ModelTokenCounter counts tokens with the tokenizer of a specific model.
// It implements TokenCounter for use by the chunker.
type ModelTokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewModelTokenCounter creates a TokenCounter bound to the given model's
// encoding.
func NewModelTokenCounter(model string) (*ModelTokenCounter, error) {
	enc, err := TokenizerFor(model)
	if err != nil {
		return nil, err
	}
	return &ModelTokenCounter{enc: enc}, nil
}

// Count returns the exact number of tokens in the text.
func (c *ModelTokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// WordTokenCounter approximates token counts by splitting on whitespace.
// Suitable for tests and cases where exact counts are not critical.
type WordTokenCounter struct{}

// Count returns the number of whitespace-separated words in the text.
func (WordTokenCounter) Count(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			inWord = false
		case !inWord:
			inWord = true
			n++
		}
	}
	return n
}
