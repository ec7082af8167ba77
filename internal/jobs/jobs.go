// Package jobs tracks asynchronous ingestion jobs in memory. Jobs live
// for the lifetime of the process; there is no persistence across
// restarts.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is a snapshot of an asynchronous ingestion's progress.
type Job struct {
	ID        string      `json:"job_id"`
	Status    Status      `json:"status"`
	Source    string      `json:"source"`
	Progress  int         `json:"progress"`
	Error     string      `json:"error,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Tracker is a concurrency-safe in-memory job registry.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]*Job)}
}

// Create registers a new queued job and returns its id.
func (t *Tracker) Create(source string) string {
	id := uuid.NewString()
	now := time.Now().UTC()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[id] = &Job{
		ID:        id,
		Status:    StatusQueued,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

// Get returns a copy of the job, or false when the id is unknown.
func (t *Tracker) Get(id string) (Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// SetProgress moves the job to processing at the given progress
// percentage. Unknown ids are ignored.
func (t *Tracker) SetProgress(id string, progress int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return
	}
	job.Status = StatusProcessing
	job.Progress = progress
	job.UpdatedAt = time.Now().UTC()
}

// Complete marks the job completed at full progress with its result.
func (t *Tracker) Complete(id string, result interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return
	}
	job.Status = StatusCompleted
	job.Progress = 100
	job.Result = result
	job.UpdatedAt = time.Now().UTC()
}

// Fail marks the job failed with the error message. Progress keeps its
// last checkpoint so callers can see how far the job got.
func (t *Tracker) Fail(id string, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return
	}
	job.Status = StatusFailed
	job.Error = errMsg
	job.UpdatedAt = time.Now().UTC()
}
