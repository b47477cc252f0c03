package jobs

import (
	"encoding/json"
	"sync"
	"time"
)

// Status represents the lifecycle of a background job.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Progress is a point-in-time snapshot of a running job's position.
type Progress struct {
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
}

// Snapshot is the caller-visible view of a job returned by Poll.
type Snapshot struct {
	JobID    string          `json:"job_id"`
	Status   Status          `json:"status"`
	Progress Progress        `json:"progress"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type entry struct {
	status   Status
	progress Progress
	result   json.RawMessage
	err      string
	created  time.Time
	finished time.Time
}

// Registry is the process-local, non-persistent job bookkeeping map. All
// methods are safe for concurrent use. Terminal results are delivered
// at-most-once: the first Poll that observes a terminal state consumes the
// entry, and later polls report the job as unknown.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	clock   func() time.Time
}

// NewRegistry constructs an empty job registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		clock:   time.Now,
	}
}

// Create inserts a pending entry for jobID, overwriting any previous entry
// with the same identifier.
func (r *Registry) Create(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[jobID] = &entry{status: StatusPending, created: r.clock()}
}

// UpdateProgress records a progress snapshot. Unknown jobs (already consumed
// or never created) are ignored; percent never moves backward.
func (r *Registry) UpdateProgress(jobID, label string, percent float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[jobID]
	if !ok || e.status.Terminal() {
		return
	}
	e.status = StatusRunning
	if percent < e.progress.Percent {
		percent = e.progress.Percent
	}
	e.progress = Progress{Label: label, Percent: percent}
}

// Complete transitions the job to its terminal success state exactly once,
// recording the marshaled result. Later Complete/Fail calls are no-ops.
func (r *Registry) Complete(jobID string, result any) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[jobID]
	if !ok || e.status.Terminal() {
		return nil
	}
	e.status = StatusComplete
	e.result = payload
	e.progress = Progress{Label: e.progress.Label, Percent: 100}
	e.finished = r.clock()
	return nil
}

// Fail transitions the job to its terminal failure state exactly once.
func (r *Registry) Fail(jobID, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[jobID]
	if !ok || e.status.Terminal() {
		return
	}
	e.status = StatusFailed
	e.err = message
	e.finished = r.clock()
}

// Poll returns the current snapshot for jobID. The first observation of a
// terminal state removes the entry from the registry, so the caller must
// persist the result before looking away; repeat polls return ok=false.
func (r *Registry) Poll(jobID string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[jobID]
	if !ok {
		return Snapshot{}, false
	}
	snap := Snapshot{
		JobID:    jobID,
		Status:   e.status,
		Progress: e.progress,
		Result:   e.result,
		Error:    e.err,
	}
	if e.status.Terminal() {
		delete(r.entries, jobID)
	}
	return snap, true
}

// Len reports the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts terminal entries that were never consumed within maxAge
// (abandoned workflows) and returns how many were removed.
func (r *Registry) Sweep(maxAge time.Duration) int {
	cutoff := r.clock().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.entries {
		if e.status.Terminal() && e.finished.Before(cutoff) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}
