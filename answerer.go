package ragd

import (
	"context"
	"strings"

	"github.com/teilomillet/ragd/rag"
	"github.com/teilomillet/ragd/rag/providers"
)

// NoResultsAnswer is returned verbatim when retrieval finds nothing, with
// no completion call made.
const NoResultsAnswer = rag.NoResultsAnswer

// Answerer generates grounded answers: retrieve relevant chunks, assemble
// a context-stuffed prompt, and call the completion provider.
type Answerer struct {
	retriever *Retriever
	completer providers.Completer

	service     string
	model       string
	temperature float64
	maxContext  int
	retry       rag.RetryPolicy
}

// AnswererOption configures an Answerer.
type AnswererOption func(*Answerer)

// AnswererModel sets the completion model.
func AnswererModel(model string) AnswererOption {
	return func(a *Answerer) { a.model = model }
}

// Temperature sets the default sampling temperature.
func Temperature(t float64) AnswererOption {
	return func(a *Answerer) { a.temperature = t }
}

// MaxContextChunks caps how many retrieved chunks go into the prompt.
func MaxContextChunks(n int) AnswererOption {
	return func(a *Answerer) {
		if n > 0 {
			a.maxContext = n
		}
	}
}

// AnswererRetryPolicy overrides the completion retry policy.
func AnswererRetryPolicy(p rag.RetryPolicy) AnswererOption {
	return func(a *Answerer) { a.retry = p }
}

// AnswerOptions are per-request overrides. Zero values keep the
// configured defaults; Alpha and Temperature are pointers because zero is
// a meaningful override for both.
type AnswerOptions struct {
	TopK        int
	Alpha       *float64
	MaxContext  int
	Temperature *float64
}

// AnswerResult carries the generated answer together with the prompt and
// chunks that grounded it.
type AnswerResult struct {
	Question string        `json:"question"`
	Answer   string        `json:"answer"`
	Prompt   string        `json:"prompt,omitempty"`
	Chunks   []ScoredChunk `json:"chunks"`
}

// NewAnswerer wires answer generation over a retriever and completion
// provider. Defaults: 6 context chunks, temperature 0.2.
func NewAnswerer(retriever *Retriever, completer providers.Completer, opts ...AnswererOption) *Answerer {
	a := &Answerer{
		retriever:   retriever,
		completer:   completer,
		service:     "openai",
		model:       "gpt-4o-mini",
		temperature: 0.2,
		maxContext:  6,
		retry:       rag.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer retrieves context for the question and generates a grounded
// answer. When retrieval returns nothing the fixed no-results answer is
// returned and the completion provider is never called.
func (a *Answerer) Answer(ctx context.Context, question string, opts AnswerOptions) (AnswerResult, error) {
	if strings.TrimSpace(question) == "" {
		return AnswerResult{}, rag.ValidationError("question must not be empty")
	}

	alpha := -1.0
	if opts.Alpha != nil {
		alpha = *opts.Alpha
	}
	chunks, err := a.retriever.Retrieve(ctx, question, opts.TopK, alpha)
	if err != nil {
		return AnswerResult{}, err
	}
	if len(chunks) == 0 {
		Info("no documents retrieved", "question_len", len(question))
		return AnswerResult{Question: question, Answer: NoResultsAnswer}, nil
	}

	maxContext := a.maxContext
	if opts.MaxContext > 0 {
		maxContext = opts.MaxContext
	}
	contexts := make([]string, 0, maxContext)
	for i, c := range chunks {
		if i >= maxContext {
			break
		}
		contexts = append(contexts, c.Text)
	}
	prompt := rag.BuildPrompt(question, contexts)

	temperature := a.temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	var answer string
	err = a.retry.Do(ctx, "complete", func() error {
		var completeErr error
		answer, completeErr = a.completer.Complete(ctx, a.model, prompt, temperature)
		return rag.ClassifyProviderError(a.service, completeErr)
	})
	if err != nil {
		return AnswerResult{}, rag.InternalError("failed to generate answer", err)
	}

	Info("generated answer", "question_len", len(question),
		"chunks_used", len(contexts), "answer_len", len(answer))
	return AnswerResult{
		Question: question,
		Answer:   answer,
		Prompt:   prompt,
		Chunks:   chunks,
	}, nil
}
