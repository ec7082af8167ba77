package rag

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
)

// loadCountingClient stubs out the SDK client so load bookkeeping can be
// exercised without a running Milvus.
type loadCountingClient struct {
	client.Client
	loads int32
}

func (c *loadCountingClient) LoadCollection(ctx context.Context, collName string, async bool, opts ...client.LoadCollectionOption) error {
	atomic.AddInt32(&c.loads, 1)
	return nil
}

func (c *loadCountingClient) DropCollection(ctx context.Context, collName string, opts ...client.DropCollectionOption) error {
	return nil
}

func TestEnsureLoadedConcurrent(t *testing.T) {
	fake := &loadCountingClient{}
	store := newMilvusStore(StoreConfig{Address: "localhost:19530"})
	store.client = fake

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.ensureLoaded(context.Background(), "docs")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("ensureLoaded: %v", err)
		}
	}
	if got := atomic.LoadInt32(&fake.loads); got != 1 {
		t.Errorf("expected a single load for concurrent callers, got %d", got)
	}
}

func TestEnsureLoadedAfterDrop(t *testing.T) {
	fake := &loadCountingClient{}
	store := newMilvusStore(StoreConfig{Address: "localhost:19530"})
	store.client = fake
	ctx := context.Background()

	if err := store.ensureLoaded(ctx, "docs"); err != nil {
		t.Fatalf("ensureLoaded: %v", err)
	}
	if err := store.DropCollection(ctx, "docs"); err != nil {
		t.Fatalf("DropCollection: %v", err)
	}
	if err := store.ensureLoaded(ctx, "docs"); err != nil {
		t.Fatalf("ensureLoaded: %v", err)
	}
	if got := atomic.LoadInt32(&fake.loads); got != 2 {
		t.Errorf("drop should invalidate the load cache, got %d loads", got)
	}
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short ascii untouched", "hello", 10, "hello"},
		{"ascii cut at limit", "hello world", 5, "hello"},
		{"exact length untouched", "hello", 5, "hello"},
		{"multibyte rune not split", "café", 4, "caf"},
		{"multibyte rune kept when it fits", "café", 5, "café"},
		{"cjk backs up to rune boundary", "日本語", 4, "日"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8 %q", tt.in, tt.max, got)
			}
		})
	}
}

func TestSparseEncode(t *testing.T) {
	emb, err := sparseEncode("cache miss cache")
	if err != nil {
		t.Fatalf("sparseEncode: %v", err)
	}
	if emb.Len() != 2 {
		t.Fatalf("expected 2 distinct terms, got %d", emb.Len())
	}
	var sawDouble bool
	var lastPos uint32
	for i := 0; i < emb.Len(); i++ {
		pos, value, ok := emb.Get(i)
		if !ok {
			t.Fatalf("Get(%d) out of range", i)
		}
		if i > 0 && pos <= lastPos {
			t.Errorf("positions not strictly increasing: %d after %d", pos, lastPos)
		}
		lastPos = pos
		if value == 2 {
			sawDouble = true
		}
	}
	if !sawDouble {
		t.Error("repeated term should carry weight 2")
	}

	blank, err := sparseEncode("   ")
	if err != nil {
		t.Fatalf("sparseEncode blank: %v", err)
	}
	if blank.Len() != 1 {
		t.Errorf("blank text should encode a single placeholder dimension, got %d", blank.Len())
	}
}
