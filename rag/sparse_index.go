package rag

import (
	"math"
	"strings"
	"sync"
)

// BM25Parameters holds the parameters for BM25 scoring.
type BM25Parameters struct {
	K1 float64 // term saturation, typically 1.2-2.0
	B  float64 // length normalization, typically 0.75
}

// DefaultBM25Parameters returns the standard parameter choices.
func DefaultBM25Parameters() BM25Parameters {
	return BM25Parameters{K1: 1.5, B: 0.75}
}

// BM25Index scores documents against keyword queries. It backs the
// keyword half of the in-memory hybrid store.
type BM25Index struct {
	mu           sync.RWMutex
	termFreq     map[int]map[string]int
	docFreq      map[string]int
	docLength    map[int]int
	avgDocLength float64
	totalDocs    int
	params       BM25Parameters
	preprocess   func(string) []string
}

// NewBM25Index creates an empty index with default parameters.
func NewBM25Index() *BM25Index {
	return &BM25Index{
		termFreq:   make(map[int]map[string]int),
		docFreq:    make(map[string]int),
		docLength:  make(map[int]int),
		params:     DefaultBM25Parameters(),
		preprocess: Terms,
	}
}

// Terms lowercases text and splits it into whitespace-separated terms.
// Shared with the sparse term-weight encoder so stored and queried terms
// agree.
func Terms(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Add indexes a document under the given id.
func (idx *BM25Index) Add(id int, content string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	terms := idx.preprocess(content)
	termFreq := make(map[string]int)
	for _, term := range terms {
		termFreq[term]++
	}

	idx.termFreq[id] = termFreq
	idx.docLength[id] = len(terms)
	for term := range termFreq {
		idx.docFreq[term]++
	}

	idx.totalDocs++
	var totalLength int
	for _, length := range idx.docLength {
		totalLength += length
	}
	idx.avgDocLength = float64(totalLength) / float64(idx.totalDocs)
}

// Scores returns the BM25 score for every document matching at least one
// query term. Documents with no matching terms are absent from the map.
func (idx *BM25Index) Scores(query string) map[int]float64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	scores := make(map[int]float64)
	for _, term := range idx.preprocess(query) {
		df, exists := idx.docFreq[term]
		if !exists {
			continue
		}
		idf := math.Log(1 + (float64(idx.totalDocs)-float64(df)+0.5)/(float64(df)+0.5))

		for docID, docTerms := range idx.termFreq {
			tf, ok := docTerms[term]
			if !ok {
				continue
			}
			docLen := float64(idx.docLength[docID])
			numerator := float64(tf) * (idx.params.K1 + 1)
			denominator := float64(tf) + idx.params.K1*(1-idx.params.B+idx.params.B*docLen/idx.avgDocLength)
			scores[docID] += idf * numerator / denominator
		}
	}
	return scores
}

// SetParameters updates the BM25 parameters.
func (idx *BM25Index) SetParameters(params BM25Parameters) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.params = params
}
