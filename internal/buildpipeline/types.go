package buildpipeline

import "time"

// Stage describes a high-level pipeline step.
type Stage string

const (
	// StageLoad opens the project and its entries.
	StageLoad Stage = "load"
	// StageValidate classifies the previous build.
	StageValidate Stage = "validate"
	// StageSchedule runs the scheduler.
	StageSchedule Stage = "schedule"
	// StagePersist writes the snapshot.
	StagePersist Stage = "persist"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{StageLoad, StageValidate, StageSchedule, StagePersist}

// Status is the state of a unit or a stage in progress events.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	// StatusSkipped marks a unit kept Done from the previous build.
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Event reports progress for a unit (or for the overall pipeline when File
// is empty). Phase is set for schedule events of a unit. Percent is the
// overall completion in [0, 100]; it never decreases within one build.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Phase   string
	Percent float64
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	if t.stages == nil {
		return false
	}
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}

// Total returns the sum over every stage.
func (t Timings) Total() time.Duration {
	return t.Sum(Stages...)
}
