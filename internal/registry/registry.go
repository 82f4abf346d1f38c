// Package registry implements the C3 Stream Registry: per-stream settings
// and lifecycle state, with __default__ inheritance semantics (spec.md §4.3).
package registry

import (
	"sync"

	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

// allowedTransitions enumerates the legal StreamState edges of spec.md §4.3.
// Anything not listed here is rejected as InvalidTransition.
var allowedTransitions = map[model.StreamState][]model.StreamState{
	model.StreamIdle:     {model.StreamAdmitted},
	model.StreamAdmitted: {model.StreamActive, model.StreamIdle, model.StreamStopped},
	model.StreamActive:   {model.StreamDraining},
	model.StreamDraining: {model.StreamStopped},
	model.StreamStopped:  {},
}

// Registry holds every known stream, keyed by stream_id. __default__ always
// exists from construction and never transitions out of IDLE.
type Registry struct {
	mu      sync.RWMutex
	streams map[string]*model.Stream
}

// New creates a Registry seeded with the __default__ stream.
func New() *Registry {
	r := &Registry{streams: make(map[string]*model.Stream)}
	r.streams[model.DefaultStreamID] = &model.Stream{
		StreamID: model.DefaultStreamID,
		State:    model.StreamIdle,
		Settings: model.Settings{},
	}
	return r
}

// Get returns a copy of the named stream's record.
func (r *Registry) Get(streamID string) (model.Stream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.streams[streamID]
	if !ok {
		return model.Stream{}, model.NewError(model.ErrNotFound, "stream %q not found", streamID)
	}
	return *s, nil
}

// ResolvedSettings returns streamID's Settings merged onto __default__'s,
// per the inheritance rule of spec.md §6.
func (r *Registry) ResolvedSettings(streamID string) (model.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.streams[model.DefaultStreamID]
	if !ok {
		return model.Settings{}, model.NewError(model.ErrInternal, "__default__ stream missing")
	}
	if streamID == model.DefaultStreamID {
		return def.Settings, nil
	}
	s, ok := r.streams[streamID]
	if !ok {
		return def.Settings, nil
	}
	return def.Settings.Merge(s.Settings), nil
}

// Update applies a partial Settings merge to streamID, creating the stream
// in IDLE state if it does not already exist. Updating __default__ is always
// permitted regardless of its state.
func (r *Registry) Update(streamID string, partial model.Settings) (model.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.streams[streamID]
	if !ok {
		s = &model.Stream{StreamID: streamID, State: model.StreamIdle}
		r.streams[streamID] = s
	}
	s.Settings = s.Settings.Merge(partial)
	return *s, nil
}

// List returns a summary projection of every known stream, each carrying its
// settings merged onto __default__'s (as ResolvedSettings does).
func (r *Registry) List() []model.StreamSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def := r.streams[model.DefaultStreamID]
	out := make([]model.StreamSummary, 0, len(r.streams))
	for _, s := range r.streams {
		settings := s.Settings
		if def != nil && s.StreamID != model.DefaultStreamID {
			settings = def.Settings.Merge(s.Settings)
		}
		out = append(out, model.StreamSummary{
			StreamID:    s.StreamID,
			State:       s.State,
			ActiveJobID: s.ActiveJobID,
			Settings:    settings,
		})
	}
	return out
}

// Transition moves streamID from its current state to next, rejecting the
// move with InvalidTransition if the edge is not in allowedTransitions.
// __default__ may never leave IDLE (spec.md §4.3).
func (r *Registry) Transition(streamID string, next model.StreamState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.streams[streamID]
	if !ok {
		return model.NewError(model.ErrNotFound, "stream %q not found", streamID)
	}
	if streamID == model.DefaultStreamID {
		return model.NewError(model.ErrInvalidTransition, "__default__ never transitions out of IDLE")
	}

	for _, allowed := range allowedTransitions[s.State] {
		if allowed == next {
			s.State = next
			return nil
		}
	}
	return model.NewError(model.ErrInvalidTransition, "stream %q: %s -> %s not allowed", streamID, s.State, next)
}

// Admit transitions streamID to ADMITTED and records the owning job, creating
// the stream if it does not yet exist.
func (r *Registry) Admit(streamID, jobID string) error {
	r.mu.Lock()
	if _, ok := r.streams[streamID]; !ok {
		r.streams[streamID] = &model.Stream{StreamID: streamID, State: model.StreamIdle}
	}
	r.mu.Unlock()

	if err := r.Transition(streamID, model.StreamAdmitted); err != nil {
		return err
	}

	r.mu.Lock()
	r.streams[streamID].ActiveJobID = jobID
	r.mu.Unlock()
	return nil
}

// Release transitions streamID through DRAINING to STOPPED and clears its
// active job, used when a supervisor job ends (spec.md §4.6).
func (r *Registry) Release(streamID string) error {
	r.mu.RLock()
	state := model.StreamStopped
	if s, ok := r.streams[streamID]; ok {
		state = s.State
	}
	r.mu.RUnlock()

	if state == model.StreamActive {
		if err := r.Transition(streamID, model.StreamDraining); err != nil {
			return err
		}
	}
	r.mu.RLock()
	state = r.streams[streamID].State
	r.mu.RUnlock()
	if state == model.StreamDraining {
		if err := r.Transition(streamID, model.StreamStopped); err != nil {
			return err
		}
	}

	r.mu.Lock()
	if s, ok := r.streams[streamID]; ok {
		s.ActiveJobID = ""
	}
	r.mu.Unlock()
	return nil
}
