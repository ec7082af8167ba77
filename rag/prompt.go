package rag

import "strings"

// contextSeparator joins retrieved chunks inside the prompt.
const contextSeparator = "\n\n---\n\n"

// promptPreamble instructs the model to ground its answer in the supplied
// context.
const promptPreamble = "You are a helpful assistant that answers questions based on the provided context.\n" +
	"Use the information from the context to answer the question as completely as possible.\n" +
	"If you cannot find a direct answer in the context, provide the most relevant information available.\n\n"

// NoResultsAnswer is returned when a search produces no hits. Empty
// retrieval is a valid terminal state, not an error.
const NoResultsAnswer = "No relevant documents found for your query."

// BuildPrompt assembles the grounded prompt from the question and the
// retrieved contexts. Contexts are joined in the order given (best first,
// never re-sorted); the output is deterministic for a given input.
func BuildPrompt(question string, contexts []string) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(contexts, contextSeparator))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// SimilarityFromDistance converts a distance reported by the vector store
// into a similarity score, clamped so it is never negative.
func SimilarityFromDistance(distance float64) float64 {
	s := 1 - distance
	if s < 0 {
		return 0
	}
	return s
}
