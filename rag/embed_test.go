package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/teilomillet/ragd/rag/providers"
)

// fakeEmbedder records batches and returns one vector per input whose
// first element encodes the input's global order.
type fakeEmbedder struct {
	batches  [][]string
	failures int
	calls    int
	sent     int
}

func (f *fakeEmbedder) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("transient provider failure")
	}
	f.batches = append(f.batches, inputs)
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{float32(f.sent + i)}
	}
	f.sent += len(inputs)
	return out, nil
}

func noSleep() RetryPolicy {
	p := DefaultRetryPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return p
}

func TestEmbedBatchPartitioning(t *testing.T) {
	fe := &fakeEmbedder{}
	svc := NewEmbeddingService(fe, WithBatchSize(100), WithBatchLimiter(nil), WithRetryPolicy(noSleep()))

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = fmt.Sprintf("text %d", i)
	}

	vectors, err := svc.EmbedBatch(context.Background(), "model", texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vectors) != 250 {
		t.Fatalf("expected 250 vectors, got %d", len(vectors))
	}
	if len(fe.batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(fe.batches))
	}
	for i, want := range []int{100, 100, 50} {
		if len(fe.batches[i]) != want {
			t.Errorf("batch %d has %d inputs, want %d", i, len(fe.batches[i]), want)
		}
	}
	// Vectors come back in input order.
	for i, v := range vectors {
		if v[0] != float32(i) {
			t.Fatalf("vector %d out of order: %v", i, v)
		}
	}
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	svc := NewEmbeddingService(&fakeEmbedder{}, WithBatchLimiter(nil))
	vectors, err := svc.EmbedBatch(context.Background(), "model", nil)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vectors != nil {
		t.Errorf("expected nil, got %v", vectors)
	}
}

func TestEmbedBatchRetriesTransientFailure(t *testing.T) {
	fe := &fakeEmbedder{failures: 2}
	svc := NewEmbeddingService(fe, WithBatchLimiter(nil), WithRetryPolicy(noSleep()))

	vectors, err := svc.EmbedBatch(context.Background(), "model", []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if fe.calls != 3 {
		t.Errorf("expected 3 provider calls, got %d", fe.calls)
	}
}

func TestEmbedBatchExhaustedRetriesReturnsNoPartial(t *testing.T) {
	fe := &fakeEmbedder{failures: 100}
	svc := NewEmbeddingService(fe, WithBatchLimiter(nil), WithRetryPolicy(noSleep()))

	vectors, err := svc.EmbedBatch(context.Background(), "model", []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
	if vectors != nil {
		t.Errorf("expected no partial results, got %v", vectors)
	}
}

type countMismatchEmbedder struct{}

func (countMismatchEmbedder) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	return [][]float32{{1}}, nil
}

func TestEmbedBatchCountMismatch(t *testing.T) {
	svc := NewEmbeddingService(countMismatchEmbedder{}, WithBatchLimiter(nil), WithRetryPolicy(noSleep()))

	_, err := svc.EmbedBatch(context.Background(), "model", []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("expected error on vector count mismatch")
	}
}

type authEmbedder struct{ calls int }

func (a *authEmbedder) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	a.calls++
	return nil, &providers.APIError{Service: "OpenAI", StatusCode: 401}
}

func TestEmbedBatchAuthFailureNotRetried(t *testing.T) {
	ae := &authEmbedder{}
	svc := NewEmbeddingService(ae, WithBatchLimiter(nil), WithRetryPolicy(noSleep()))

	_, err := svc.EmbedBatch(context.Background(), "model", []string{"a"})
	if !IsKind(err, KindExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if ReasonOf(err) != ReasonAuth {
		t.Fatalf("expected auth reason, got %v", err)
	}
	if ae.calls != 1 {
		t.Errorf("auth failure retried: %d calls", ae.calls)
	}
}

func TestEmbedQuery(t *testing.T) {
	fe := &fakeEmbedder{}
	svc := NewEmbeddingService(fe, WithBatchLimiter(nil), WithRetryPolicy(noSleep()))

	vector, err := svc.EmbedQuery(context.Background(), "model", "what is this")
	if err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}
	if len(vector) != 1 || vector[0] != 0 {
		t.Errorf("unexpected vector: %v", vector)
	}
}
