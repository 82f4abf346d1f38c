package supervisor

import (
	"sync"
	"testing"
	"time"

	"github.com/idlab-discover/Multi-path-XR/internal/model"
	"github.com/idlab-discover/Multi-path-XR/internal/registry"
)

type countingSource struct {
	mu    sync.Mutex
	count int
}

func (c *countingSource) Next() (model.Points, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return model.Points{Positions: []model.Point3{{X: float32(c.count)}}}, true
}

type exhaustingSource struct {
	remaining int
}

func (e *exhaustingSource) Next() (model.Points, bool) {
	if e.remaining <= 0 {
		return model.Points{}, false
	}
	e.remaining--
	return model.Points{Positions: []model.Point3{{}}}, true
}

func TestStartJobProducesFrames(t *testing.T) {
	reg := registry.New()
	var frames []model.Frame
	var mu sync.Mutex
	sup := New(reg, func(f model.Frame) {
		mu.Lock()
		frames = append(frames, f)
		mu.Unlock()
	})

	spec := model.JobSpec{FPS: 100, PresentationTimeOffsetMS: 100}
	job, err := sup.StartJob(spec, &countingSource{})
	if err != nil {
		t.Fatalf("StartJob: %v", err)
	}
	if job.State != model.JobRunning {
		t.Fatalf("expected RUNNING immediately after start, got %s", job.State)
	}

	time.Sleep(50 * time.Millisecond)
	if err := sup.StopJob(job.JobID); err != nil {
		t.Fatalf("StopJob: %v", err)
	}

	mu.Lock()
	n := len(frames)
	mu.Unlock()
	if n == 0 {
		t.Fatalf("expected at least one produced frame")
	}

	stream, err := reg.Get(job.StreamID)
	if err != nil {
		t.Fatalf("Get stream: %v", err)
	}
	if stream.State != model.StreamStopped {
		t.Fatalf("expected stream STOPPED after StopJob, got %s", stream.State)
	}
}

func TestJobFinishesWhenSourceExhausted(t *testing.T) {
	reg := registry.New()
	sup := New(reg, func(model.Frame) {})

	spec := model.JobSpec{FPS: 200, PresentationTimeOffsetMS: 50}
	job, err := sup.StartJob(spec, &exhaustingSource{remaining: 2})
	if err != nil {
		t.Fatalf("StartJob: %v", err)
	}

	j := sup.jobs[job.JobID]
	j.waitStopped()

	got, err := sup.Get(job.JobID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != model.JobStopped {
		t.Fatalf("expected STOPPED after exhaustion, got %s", got.State)
	}
}

func TestStopAllJobs(t *testing.T) {
	reg := registry.New()
	sup := New(reg, func(model.Frame) {})

	var jobIDs []string
	for i := 0; i < 3; i++ {
		spec := model.JobSpec{FPS: 50, PresentationTimeOffsetMS: 100, StreamID: ""}
		job, err := sup.StartJob(spec, &countingSource{})
		if err != nil {
			t.Fatalf("StartJob: %v", err)
		}
		jobIDs = append(jobIDs, job.JobID)
	}

	if err := sup.StopAllJobs(); err != nil {
		t.Fatalf("StopAllJobs: %v", err)
	}
	for _, id := range jobIDs {
		got, err := sup.Get(id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if got.State != model.JobStopped {
			t.Fatalf("expected job %s STOPPED, got %s", id, got.State)
		}
	}
}
