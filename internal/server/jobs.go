package server

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/motorsights/epcbook/internal/taxonomy"
)

// JobStatus is the lifecycle state of an extraction job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobExtracting JobStatus = "extracting"
	JobReview     JobStatus = "awaiting_review"
	JobApproved   JobStatus = "approved"
	JobSubmitted  JobStatus = "submitted"
	JobFailed     JobStatus = "failed"
)

// Job tracks one uploaded partbook through extraction, review, and
// submission.
type Job struct {
	ID           string                     `json:"id"`
	Filename     string                     `json:"filename"`
	PartbookType taxonomy.PartbookType      `json:"partbook_type"`
	Status       JobStatus                  `json:"status"`
	Error        string                     `json:"error,omitempty"`
	Stage        string                     `json:"stage,omitempty"`
	Result       *taxonomy.ExtractionResult `json:"result,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`

	// path of the uploaded file on disk, not exposed over the API
	path string
}

// jobStore is an in-memory job table guarded by a mutex. Jobs do not survive
// a server restart; the processed-files tracker provides the durable record.
type jobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*Job)}
}

// create registers a new pending job and returns a snapshot of it.
func (s *jobStore) create(filename, path string, ptype taxonomy.PartbookType) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	job := &Job{
		ID:           uuid.NewString(),
		Filename:     filename,
		PartbookType: ptype,
		Status:       JobPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		path:         path,
	}
	s.jobs[job.ID] = job
	return *job
}

// get returns a snapshot of the job. The stored struct is mutated by the
// background extraction goroutine, so handlers only ever see copies.
func (s *jobStore) get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// update applies fn to the job under the write lock and returns the
// post-update snapshot.
func (s *jobStore) update(id string, fn func(*Job)) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	fn(job)
	job.UpdatedAt = time.Now().UTC()
	return *job, true
}

// list returns a snapshot of all jobs, newest first.
func (s *jobStore) list() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		copied := *j
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
