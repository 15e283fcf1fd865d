package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/graph"
)

// JobStatus represents the state of a document job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusExtracting  JobStatus = "extracting"
	StatusStructuring JobStatus = "structuring"
	StatusPublishing  JobStatus = "publishing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
)

// Job tracks the state of a single document.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status   JobStatus           `json:"status"`
	Phase    string              `json:"phase"`
	Filename string              `json:"filename"`
	DocType  config.DocumentType `json:"doc_type"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	params    config.Parsing
	analytics bool
	fileData  []byte
	result    *graph.Document
	errors    []string
}

// Progress tracks processing progress.
type Progress struct {
	Fragments int      `json:"fragments"`
	Nodes     int      `json:"nodes"`
	Published int      `json:"published"`
	CacheHit  bool     `json:"cache_hit"`
	Errors    []string `json:"errors"`
}

// NewJob creates a queued job with a time-ordered id. An empty docID
// reuses the job id.
func NewJob(filename, docID string, data []byte, params config.Parsing, analytics bool) *Job {
	id := uuid.Must(uuid.NewV7()).String()
	if docID == "" {
		docID = id
	}
	now := time.Now()
	return &Job{
		ID:        id,
		DocID:     docID,
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		DocType:   params.DocumentType,
		CreatedAt: now,
		UpdatedAt: now,
		params:    params,
		analytics: analytics,
		fileData:  data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetFragments records how many fragments extraction produced.
func (j *Job) SetFragments(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Fragments = n
	j.UpdatedAt = time.Now()
}

// SetResult stores the finished graph.
func (j *Job) SetResult(doc *graph.Document, cacheHit bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = doc
	j.Progress.CacheHit = cacheHit
	j.Progress.Nodes = 0
	doc.Root.Walk(func(*graph.Node, int) bool {
		j.Progress.Nodes++
		return true
	})
	j.UpdatedAt = time.Now()
}

// SetPublished records how many nodes were published.
func (j *Job) SetPublished(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Published = n
	j.UpdatedAt = time.Now()
}

// Result returns the finished graph, or nil.
func (j *Job) Result() *graph.Document {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// releaseFileData drops the upload once it is no longer needed.
func (j *Job) releaseFileData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string              `json:"job_id"`
	DocID     string              `json:"doc_id"`
	Status    JobStatus           `json:"status"`
	Phase     string              `json:"phase"`
	Filename  string              `json:"filename"`
	DocType   config.DocumentType `json:"doc_type"`
	Progress  Progress            `json:"progress"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	p := j.Progress
	p.Errors = append([]string{}, j.errors...)
	return JobSnapshot{
		ID:        j.ID,
		DocID:     j.DocID,
		Status:    j.Status,
		Phase:     j.Phase,
		Filename:  j.Filename,
		DocType:   j.DocType,
		Progress:  p,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
