package supervisor

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/idlab-discover/Multi-path-XR/internal/model"
	"github.com/idlab-discover/Multi-path-XR/internal/registry"
)

// Supervisor owns every running/recently-stopped job and keeps C3's stream
// lifecycle in sync with job start/stop (spec.md §4.6).
type Supervisor struct {
	reg     *registry.Registry
	onFrame func(model.Frame)

	mu   sync.Mutex
	jobs map[string]*Job
}

// New constructs a Supervisor. onFrame is invoked from each job's producer
// goroutine for every produced sample; it must not block for long (it
// typically pushes into a C1 ring buffer).
func New(reg *registry.Registry, onFrame func(model.Frame)) *Supervisor {
	return &Supervisor{reg: reg, onFrame: onFrame, jobs: make(map[string]*Job)}
}

// StartJob admits spec.StreamID (or a generated stream_id, if spec.StreamID
// is empty) in C3, creates a job bound to source, and starts its producer.
func (s *Supervisor) StartJob(spec model.JobSpec, source Source) (model.Job, error) {
	jobID := "job-" + uuid.NewString()
	streamID := spec.StreamID
	if streamID == "" {
		streamID = "stream-" + uuid.NewString()
	}

	if err := s.reg.Admit(streamID, jobID); err != nil {
		return model.Job{}, err
	}
	if err := s.reg.Transition(streamID, model.StreamActive); err != nil {
		return model.Job{}, err
	}

	job := newJob(jobID, streamID, spec, source, s.onFrame)
	ctx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel

	s.mu.Lock()
	s.jobs[jobID] = job
	s.mu.Unlock()

	job.start(ctx)
	return job.snapshot(), nil
}

// StopJob transitions jobID to STOPPING, cancels its producer, waits for
// the producer goroutine to exit, and releases its stream back through C3.
func (s *Supervisor) StopJob(jobID string) error {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok {
		return model.NewError(model.ErrNotFound, "job %q not found", jobID)
	}

	job.stop()
	job.waitStopped()
	return s.reg.Release(job.streamID)
}

// StopAllJobs stops every currently tracked job.
func (s *Supervisor) StopAllJobs() error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := s.StopJob(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Get returns a snapshot of jobID's current record.
func (s *Supervisor) Get(jobID string) (model.Job, error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok {
		return model.Job{}, model.NewError(model.ErrNotFound, "job %q not found", jobID)
	}
	return job.snapshot(), nil
}

// List returns a snapshot of every tracked job.
func (s *Supervisor) List() []model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.snapshot())
	}
	return out
}
