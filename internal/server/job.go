package server

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/dotscan/internal/detect"
)

// JobState represents the current state of a detection job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Worker stages reported through job status and stream events
const (
	StageLoading     = "loading"
	StageCalibrating = "calibrating"
	StageDetecting   = "detecting"
	StageExtracting  = "extracting"
	StageDone        = "done"
)

// JobRequest is the body of POST /api/detect. Zero-valued tuning fields
// fall back to the detection defaults.
type JobRequest struct {
	Source        string  `json:"source"`
	Palette       string  `json:"palette,omitempty"`
	AutoPalette   bool    `json:"autoPalette,omitempty"`
	Reference     string  `json:"reference,omitempty"`
	MinRadius     float64 `json:"minRadius,omitempty"`
	MaxRadius     float64 `json:"maxRadius,omitempty"`
	DedupDistance float64 `json:"dedupDistance,omitempty"`
	Sensitivity   string  `json:"sensitivity,omitempty"`
	EnhanceEdges  bool    `json:"enhanceEdges,omitempty"`
	NoRefine      bool    `json:"noRefine,omitempty"`
	Calibrate     bool    `json:"calibrate,omitempty"`
	ExtractMethod string  `json:"extractMethod,omitempty"`
	Workers       int     `json:"workers,omitempty"`
}

// DetectConfig materializes the request's tuning fields over the
// detection defaults.
func (r JobRequest) DetectConfig() detect.Config {
	cfg := detect.DefaultConfig()
	if r.MinRadius > 0 {
		cfg.MinRadius = r.MinRadius
	}
	if r.MaxRadius > 0 {
		cfg.MaxRadius = r.MaxRadius
	}
	if r.DedupDistance > 0 {
		cfg.DedupDistance = r.DedupDistance
	}
	if r.Sensitivity != "" {
		cfg.Sensitivity = detect.NormalizeSensitivity(r.Sensitivity)
	}
	if r.Workers > 0 {
		cfg.Workers = r.Workers
	}
	cfg.EnhanceEdges = r.EnhanceEdges
	cfg.Refine = !r.NoRefine
	return cfg
}

// Job represents one detection request moving through the server
type Job struct {
	ID        string          `json:"id"`
	State     JobState        `json:"state"`
	Stage     string          `json:"stage,omitempty"`
	Request   JobRequest      `json:"request"`
	Circles   []detect.Circle `json:"circles,omitempty"`
	StartTime time.Time       `json:"startTime"`
	EndTime   *time.Time      `json:"endTime,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// JobManager manages the lifecycle of detection jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	cancels     map[string]context.CancelFunc
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		cancels:     make(map[string]context.CancelFunc),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob registers a new pending job for the given request
func (jm *JobManager) CreateJob(req JobRequest) Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Request:   req,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return *job
}

// GetJob returns a snapshot of the job's current state. Handlers read
// the copy without holding the manager lock.
func (jm *JobManager) GetJob(id string) (Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return Job{}, false
	}
	return *job, true
}

// ListJobs returns snapshots of all jobs, newest first
func (jm *JobManager) ListJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.After(jobs[j].StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// StartJob launches the worker for a job with a cancellable context. The
// context is released when the worker returns.
func (jm *JobManager) StartJob(id string) error {
	ctx, cancel := context.WithCancel(context.Background())

	jm.mu.Lock()
	if _, exists := jm.jobs[id]; !exists {
		jm.mu.Unlock()
		cancel()
		return fmt.Errorf("job not found: %s", id)
	}
	jm.cancels[id] = cancel
	jm.mu.Unlock()

	go func() {
		defer jm.releaseCancel(id)
		runJob(ctx, jm, id)
	}()
	return nil
}

// Cancel signals the job's worker to stop. It reports whether a
// cancellable job existed; jobs in a terminal state are left alone.
func (jm *JobManager) Cancel(id string) bool {
	jm.mu.Lock()
	job, exists := jm.jobs[id]
	if !exists || (job.State != StatePending && job.State != StateRunning) {
		jm.mu.Unlock()
		return false
	}
	cancel := jm.cancels[id]
	jm.mu.Unlock()

	if cancel == nil {
		// The worker never started, so nothing will observe a context.
		markJobCancelled(jm, id)
		return true
	}
	cancel()
	return true
}

// CancelAll stops every pending and running job. Used at shutdown.
func (jm *JobManager) CancelAll() {
	jm.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(jm.cancels))
	for _, cancel := range jm.cancels {
		cancels = append(cancels, cancel)
	}
	jm.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// releaseCancel drops the job's cancel func once the worker has returned
func (jm *JobManager) releaseCancel(id string) {
	jm.mu.Lock()
	cancel, exists := jm.cancels[id]
	delete(jm.cancels, id)
	jm.mu.Unlock()

	if exists {
		cancel()
	}
}
