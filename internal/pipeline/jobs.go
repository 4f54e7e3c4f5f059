package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a guideline processing job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusConverting JobStatus = "converting"
	StatusMetadata   JobStatus = "metadata"
	StatusExtracting JobStatus = "extracting"
	StatusCompleted  JobStatus = "completed"
	StatusEmpty      JobStatus = "empty"
	StatusSkipped    JobStatus = "skipped"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusEmpty, StatusSkipped, StatusFailed:
		return true
	}
	return false
}

// Job tracks the processing of one uploaded guideline.
type Job struct {
	mu sync.Mutex

	ID          string `json:"job_id"`
	GuidelineID string `json:"guideline_id"`
	SHA256      string `json:"sha256"`
	Filename    string `json:"filename"`
	Force       bool   `json:"force"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
}

// Progress mirrors the latest pipeline milestone.
type Progress struct {
	Done            int      `json:"done"`
	Total           int      `json:"total"`
	Message         string   `json:"message"`
	Detail          string   `json:"detail,omitempty"`
	Recommendations int      `json:"recommendations"`
	Outcome         Outcome  `json:"outcome,omitempty"`
	Errors          []string `json:"errors"`
}

// NewJob creates a queued job for a stored guideline.
func NewJob(guidelineID, sha, filename string, data []byte, force bool) *Job {
	now := time.Now()
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Job{
		ID:          id.String(),
		GuidelineID: guidelineID,
		SHA256:      sha,
		Filename:    filename,
		Force:       force,
		Status:      StatusQueued,
		Phase:       "queued",
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
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

// Cleanup removes finished jobs idle for longer than the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
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

// ReportProgress is a ProgressFunc that records the latest milestone.
func (j *Job) ReportProgress(done, total int, msg, detail string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Done = done
	j.Progress.Total = total
	j.Progress.Message = msg
	j.Progress.Detail = detail
	j.UpdatedAt = time.Now()
}

// Finish records the run result.
func (j *Job) Finish(res Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Recommendations = res.Count
	j.Progress.Outcome = res.Outcome
	j.errors = append(j.errors, res.SoftFailures...)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	GuidelineID string    `json:"guideline_id"`
	Filename    string    `json:"filename"`
	Force       bool      `json:"force"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	p := j.Progress
	p.Errors = append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:          j.ID,
		GuidelineID: j.GuidelineID,
		Filename:    j.Filename,
		Force:       j.Force,
		Status:      j.Status,
		Phase:       j.Phase,
		Progress:    p,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}
