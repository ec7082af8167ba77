package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (Provider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewOpenAIProvider(map[string]interface{}{
		"api_key":  "test-key",
		"base_url": srv.URL,
	})
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p, srv
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(map[string]interface{}{}); err == nil {
		t.Fatal("expected error without api_key")
	}
}

func TestEmbedReordersByIndex(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		// Data deliberately out of order; the index field is authoritative.
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 1, "embedding": []float32{2}},
				{"index": 0, "embedding": []float32{1}},
			},
		})
	})

	vectors, err := p.Embed(context.Background(), "text-embedding-3-small", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vectors[0][0] != 1 || vectors[1][0] != 2 {
		t.Errorf("vectors not reordered by index: %v", vectors)
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 0, "embedding": []float32{1}},
			},
		})
	})

	if _, err := p.Embed(context.Background(), "m", []string{"a", "b"}); err == nil {
		t.Fatal("expected error on count mismatch")
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})
	vectors, err := p.Embed(context.Background(), "m", nil)
	if err != nil || vectors != nil {
		t.Errorf("expected nil, nil; got %v, %v", vectors, err)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status  int
		isAuth  bool
		isLimit bool
	}{
		{http.StatusUnauthorized, true, false},
		{http.StatusForbidden, true, false},
		{http.StatusTooManyRequests, false, true},
		{http.StatusInternalServerError, false, false},
	}
	for _, tt := range tests {
		p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
		})

		_, err := p.Embed(context.Background(), "m", []string{"a"})
		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		if IsAuth(err) != tt.isAuth {
			t.Errorf("status %d: IsAuth = %v, want %v", tt.status, IsAuth(err), tt.isAuth)
		}
		if IsRateLimit(err) != tt.isLimit {
			t.Errorf("status %d: IsRateLimit = %v, want %v", tt.status, IsRateLimit(err), tt.isLimit)
		}
	}
}

func TestErrorBodyMessageSurfaced(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"model does not exist"}}`))
	})

	_, err := p.Embed(context.Background(), "m", []string{"a"})
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Message != "model does not exist" {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
}

func TestComplete(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model       string `json:"model"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Temperature != 0.7 {
			t.Errorf("temperature not forwarded: %v", req.Temperature)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("expected one user message, got %v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "the answer"}},
			},
		})
	})

	answer, err := p.Complete(context.Background(), "gpt-4o-mini", "question", 0.7)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if answer != "the answer" {
		t.Errorf("unexpected answer %q", answer)
	}
}

func TestCompleteNoChoices(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	if _, err := p.Complete(context.Background(), "m", "q", 0); err == nil {
		t.Fatal("expected error with no choices")
	}
}

func TestListModels(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"gpt-4o-mini"},{"id":"text-embedding-3-small"}]}`))
	})

	models, err := p.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0] != "gpt-4o-mini" {
		t.Errorf("unexpected models %v", models)
	}
}

func TestRegistry(t *testing.T) {
	names := List()
	found := false
	for _, n := range names {
		if n == "openai" {
			found = true
		}
	}
	if !found {
		t.Errorf("openai not registered: %v", names)
	}

	if _, err := Get("does-not-exist", nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}
