package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docrank/internal/config"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusLoading    JobStatus = "loading"
	StatusCollecting JobStatus = "collecting"
	StatusScoring    JobStatus = "scoring"
	StatusSelecting  JobStatus = "selecting"
	StatusCompleted  JobStatus = "completed"
	StatusEmpty      JobStatus = "empty"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions follow.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusEmpty || s == StatusFailed
}

// Job tracks one queued analysis.
type Job struct {
	mu sync.Mutex

	ID        string
	Status    JobStatus
	Phase     string
	Persona   string
	Task      string
	InputHash string
	Progress  Progress
	CreatedAt time.Time
	UpdatedAt time.Time

	// Internal: not serialized.
	input  *config.Input
	files  map[string][]byte
	result *Result
	errors []string
}

// Progress counts what the analysis has seen so far.
type Progress struct {
	Documents        int      `json:"documents"`
	DocumentsLoaded  int      `json:"documents_loaded"`
	DocumentsSkipped int      `json:"documents_skipped"`
	Sections         int      `json:"sections"`
	Candidates       int      `json:"candidates"`
	Errors           []string `json:"errors"`
}

// NewJob queues an analysis of in. files holds uploaded documents by
// filename; nil means documents are read from the input directory.
func NewJob(in *config.Input, files map[string][]byte) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Persona:   in.Persona.Role,
		Task:      in.JobToBeDone.Task,
		InputHash: inputHash(in, files),
		Progress:  Progress{Documents: len(in.Documents)},
		CreatedAt: now,
		UpdatedAt: now,
		input:     in,
		files:     files,
	}
}

// Input returns the descriptor the job was created with.
func (j *Job) Input() *config.Input { return j.input }

// Source returns where the job's documents come from.
func (j *Job) Source(inputDir string) Source {
	if j.files != nil {
		return MemorySource{Files: j.files}
	}
	return DirSource{Dir: inputDir}
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

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes jobs idle longer than the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		idle := now.Sub(job.UpdatedAt)
		job.mu.Unlock()
		if idle > s.ttl {
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
func (j *Job) AddError(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, msg)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

func (j *Job) SetDocuments(loaded, skipped int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.DocumentsLoaded = loaded
	j.Progress.DocumentsSkipped = skipped
	j.UpdatedAt = time.Now()
}

func (j *Job) SetCounts(sections, candidates int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Sections = sections
	j.Progress.Candidates = candidates
	j.UpdatedAt = time.Now()
}

// Finish stores the result and moves the job to completed.
func (j *Job) Finish(res *Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Result returns the finished result, or nil.
func (j *Job) Result() *Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Persona   string    `json:"persona"`
	Task      string    `json:"task"`
	InputHash string    `json:"input_hash"`
	Progress  Progress  `json:"progress"`
	Output    *Output   `json:"output,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	progress := j.Progress
	progress.Errors = append([]string{}, j.errors...)
	snap := JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Persona:   j.Persona,
		Task:      j.Task,
		InputHash: j.InputHash,
		Progress:  progress,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.result != nil {
		snap.Output = j.result.Output
	}
	return snap
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

// inputHash fingerprints the persona, task and listed documents, plus any
// uploaded bytes, so identical submissions can be correlated.
func inputHash(in *config.Input, files map[string][]byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00", in.Persona.Role, in.JobToBeDone.Task)
	for _, d := range in.Documents {
		fmt.Fprintf(h, "%s\x00", d.Filename)
		if data, ok := files[d.Filename]; ok {
			fmt.Fprintf(h, "%s\x00", ContentHashHex(data))
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
