package supervisor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

// failureWindow and failureThreshold implement the restart policy of
// spec.md §7: two producer-task failures within 10 seconds stop the job
// permanently as STOPPED(Failed) rather than restarting indefinitely.
const (
	failureWindow    = 10 * time.Second
	failureThreshold = 2
)

// Job drives one ticker-based producer task at spec.FPS, feeding every
// produced sample to onFrame (spec.md §4.6).
type Job struct {
	id       string
	streamID string
	spec     model.JobSpec
	source   Source
	onFrame  func(model.Frame)

	mu       sync.Mutex
	state    model.JobState
	failures []time.Time
	frameID  uint64

	cancel context.CancelFunc
	done   chan struct{}
}

func newJob(id, streamID string, spec model.JobSpec, source Source, onFrame func(model.Frame)) *Job {
	return &Job{
		id:       id,
		streamID: streamID,
		spec:     spec,
		source:   source,
		onFrame:  onFrame,
		state:    model.JobPending,
		done:     make(chan struct{}),
	}
}

func (j *Job) setState(s model.JobState) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

func (j *Job) State() model.JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Job) snapshot() model.Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	return model.Job{JobID: j.id, Spec: j.spec, StreamID: j.streamID, State: j.state}
}

// start launches the producer loop under ctx, restarting on panic per the
// failure-window policy.
func (j *Job) start(ctx context.Context) {
	j.setState(model.JobRunning)
	go j.runWithRestart(ctx)
}

func (j *Job) runWithRestart(ctx context.Context) {
	defer close(j.done)
	for {
		failed := j.runOnce(ctx)
		if ctx.Err() != nil {
			j.mu.Lock()
			if j.state != model.JobStoppedFailed {
				j.state = model.JobStopped
			}
			j.mu.Unlock()
			return
		}
		if !failed {
			// Source exhausted without should_loop: a clean finish.
			j.mu.Lock()
			if j.state != model.JobStoppedFailed && j.state != model.JobStopped {
				j.state = model.JobStopped
			}
			j.mu.Unlock()
			return
		}
		if j.recordFailureAndCheckThreshold() {
			j.setState(model.JobStoppedFailed)
			return
		}
		// restart: loop again
	}
}

// runOnce runs the ticker loop until the context is cancelled, the source
// is exhausted (returns false, no failure), or a panic occurs (returns
// true, a failure to be charged against the restart window).
func (j *Job) runOnce(ctx context.Context) (failed bool) {
	defer func() {
		if r := recover(); r != nil {
			failed = true
		}
	}()

	period := time.Second
	if j.spec.FPS > 0 {
		period = time.Duration(float64(time.Second) / j.spec.FPS)
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			pts, ok := j.source.Next()
			if !ok {
				return false
			}
			now := time.Now()
			id := atomic.AddUint64(&j.frameID, 1)
			frame := model.Frame{
				FrameID:    id,
				StreamID:   j.streamID,
				ArrivalTS:  now,
				DeadlineTS: now.Add(time.Duration(j.spec.PresentationTimeOffsetMS) * time.Millisecond),
				Points:     pts,
			}
			j.onFrame(frame)
		}
	}
}

func (j *Job) recordFailureAndCheckThreshold() bool {
	now := time.Now()
	cutoff := now.Add(-failureWindow)

	j.mu.Lock()
	defer j.mu.Unlock()
	kept := j.failures[:0]
	for _, f := range j.failures {
		if f.After(cutoff) {
			kept = append(kept, f)
		}
	}
	j.failures = append(kept, now)
	return len(j.failures) >= failureThreshold
}

// stop requests STOPPING and cancels the producer task. Callers wait on
// done (via waitStopped) to observe the terminal STOPPED/STOPPED(Failed)
// state.
func (j *Job) stop() {
	j.setState(model.JobStopping)
	if j.cancel != nil {
		j.cancel()
	}
}

func (j *Job) waitStopped() {
	<-j.done
}
