package jobs

import (
	"sync"
	"testing"
)

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker()

	id := tr.Create("report.pdf")
	job, ok := tr.Get(id)
	if !ok {
		t.Fatal("job not found after Create")
	}
	if job.Status != StatusQueued || job.Progress != 0 {
		t.Errorf("unexpected initial state %+v", job)
	}
	if job.Source != "report.pdf" {
		t.Errorf("unexpected source %q", job.Source)
	}

	tr.SetProgress(id, 25)
	job, _ = tr.Get(id)
	if job.Status != StatusProcessing || job.Progress != 25 {
		t.Errorf("unexpected state after progress %+v", job)
	}

	tr.Complete(id, map[string]int{"chunks": 7})
	job, _ = tr.Get(id)
	if job.Status != StatusCompleted || job.Progress != 100 {
		t.Errorf("unexpected state after complete %+v", job)
	}
	if job.Result == nil {
		t.Error("result missing after complete")
	}
}

func TestTrackerFail(t *testing.T) {
	tr := NewTracker()
	id := tr.Create("doc.txt")

	tr.SetProgress(id, 50)
	tr.Fail(id, "embedding failed")
	job, _ := tr.Get(id)
	if job.Status != StatusFailed {
		t.Errorf("expected failed status, got %s", job.Status)
	}
	if job.Error != "embedding failed" {
		t.Errorf("unexpected error %q", job.Error)
	}
	if job.Progress != 50 {
		t.Errorf("failure should keep the last progress checkpoint, got %d", job.Progress)
	}
}

func TestTrackerUnknownID(t *testing.T) {
	tr := NewTracker()
	if _, ok := tr.Get("missing"); ok {
		t.Error("expected miss for unknown id")
	}
	// Updates on unknown ids are silently ignored.
	tr.SetProgress("missing", 10)
	tr.Complete("missing", nil)
	tr.Fail("missing", "x")
}

func TestTrackerUniqueIDs(t *testing.T) {
	tr := NewTracker()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := tr.Create("src")
		if seen[id] {
			t.Fatalf("duplicate job id %s", id)
		}
		seen[id] = true
	}
}

func TestTrackerConcurrentAccess(t *testing.T) {
	tr := NewTracker()
	id := tr.Create("src")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(p int) {
			defer wg.Done()
			tr.SetProgress(id, p)
		}(i * 5)
		go func() {
			defer wg.Done()
			tr.Get(id)
		}()
	}
	wg.Wait()

	if job, ok := tr.Get(id); !ok || job.Status != StatusProcessing {
		t.Errorf("unexpected final state %+v", job)
	}
}
