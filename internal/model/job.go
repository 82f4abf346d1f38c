package model

// JobState is the lifecycle state of a Job.
type JobState string

const (
	JobPending  JobState = "PENDING"
	JobRunning  JobState = "RUNNING"
	JobStopping JobState = "STOPPING"
	JobStopped  JobState = "STOPPED"
	// JobStoppedFailed is entered when the owning producer task fails twice
	// within the 10-second window of spec.md §7.
	JobStoppedFailed JobState = "STOPPED(Failed)"
)

// SourceKind distinguishes dataset playback from procedural generation.
type SourceKind string

const (
	SourceDataset   SourceKind = "dataset"
	SourceGenerator SourceKind = "generator"
)

// GeneratorName names a built-in procedural point-cloud generator.
type GeneratorName string

const (
	GeneratorBasic GeneratorName = "Basic"
	GeneratorCube  GeneratorName = "Cube"
)

// JobSpec is the caller-supplied description of a transmission job.
type JobSpec struct {
	Dataset                 string
	PlyFolder               string
	GeneratorName           GeneratorName
	FPS                     float64
	PresentationTimeOffsetMS uint64
	ShouldLoop              bool
	Priority                uint8
	EgressProtocol          EgressProtocol
	StreamID                string // optional; empty means server-assigned
}

// SourceKind reports whether this spec describes a dataset or a generator.
func (s JobSpec) SourceKind() SourceKind {
	if s.GeneratorName != "" {
		return SourceGenerator
	}
	return SourceDataset
}

// Job is the supervisor's runtime record for one transmission job.
type Job struct {
	JobID    string
	Spec     JobSpec
	StreamID string
	State    JobState
}
