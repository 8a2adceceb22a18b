package buildpipeline

import (
	"sort"
	"time"

	"asbuild/internal/sched"
	"asbuild/internal/unit"
)

// progressTracker turns scheduler callbacks into pipeline events. Units
// spliced during the run are queued the first time they show up, and the
// overall percentage is clamped so it never goes backwards when the
// worklist grows.
type progressTracker struct {
	sink    ProgressSink
	known   map[string]struct{}
	percent float64
}

func newProgressTracker(sink ProgressSink) *progressTracker {
	return &progressTracker{sink: sink, known: make(map[string]struct{})}
}

// queue announces files not seen before with the given status.
func (p *progressTracker) queue(files []string, status Status) {
	if p == nil {
		return
	}
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)
	for _, file := range sorted {
		if _, ok := p.known[file]; ok {
			continue
		}
		p.known[file] = struct{}{}
		p.emit(Event{File: file, Stage: StageSchedule, Status: status})
	}
}

// Progress implements session.Progress.
func (p *progressTracker) Progress(finished, total int) {
	if p == nil || total <= 0 {
		return
	}
	pct := 100 * float64(finished) / float64(total)
	if pct <= p.percent {
		return
	}
	p.percent = pct
	p.emit(Event{Stage: StageSchedule, Status: StatusWorking})
}

func (p *progressTracker) onPhase(ev sched.PhaseEvent) {
	if p == nil {
		return
	}
	p.queue([]string{ev.Unit}, StatusQueued)
	status := StatusWorking
	switch {
	case ev.Failed:
		status = StatusError
	case ev.Phase == unit.PhasePostprocess:
		status = StatusDone
	}
	p.emit(Event{File: ev.Unit, Stage: StageSchedule, Status: status, Phase: ev.Phase.String(), Elapsed: ev.Elapsed})
}

// settle reports the final state of every unit, including units that
// failed through a dependency and never ran a phase.
func (p *progressTracker) settle(res sched.Result) {
	if p == nil {
		return
	}
	p.queue(res.Order, StatusQueued)
	for _, name := range res.Order {
		u := res.Units[name]
		switch {
		case u.Failed():
			p.emit(Event{File: name, Stage: StageSchedule, Status: StatusError, Phase: u.Workflow.Last().String()})
		case u.Done():
			p.emit(Event{File: name, Stage: StageSchedule, Status: StatusDone, Phase: unit.PhaseDone.String()})
		}
	}
}

// finish pins the percentage at 100 for a build that ran to completion.
func (p *progressTracker) finish() {
	if p == nil {
		return
	}
	p.percent = 100
	p.emit(Event{Stage: StageSchedule, Status: StatusDone})
}

// stage reports a pipeline-wide stage transition.
func (p *progressTracker) stage(stage Stage, status Status, err error, elapsed time.Duration) {
	if p == nil {
		return
	}
	p.emit(Event{Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}

func (p *progressTracker) emit(ev Event) {
	if p.sink == nil {
		return
	}
	ev.Percent = p.percent
	p.sink.OnEvent(ev)
}
