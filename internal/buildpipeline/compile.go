package buildpipeline

import (
	"sort"
	"time"

	"asbuild/internal/compiler"
	"asbuild/internal/sched"
	"asbuild/internal/session"
	"asbuild/internal/source"
	"asbuild/internal/symtab"
	"asbuild/internal/unit"
)

// schedule adopts the kept units, adds the entries and runs the scheduler.
// It returns the result and the sorted names of units that ran a phase.
func schedule(sess *session.Session, symbols *symtab.Table, compilers *compiler.Registry,
	kept map[string]*unit.Unit, entries []*source.Source, tracker *progressTracker,
) (sched.Result, []string) {
	start := time.Now()
	s := sched.New(sess, symbols, compilers)

	keptNames := sortedNames(kept)
	for _, name := range keptNames {
		s.Adopt(kept[name])
	}
	var skipped, queued []string
	for _, name := range keptNames {
		if kept[name].Done() {
			skipped = append(skipped, name)
		} else {
			queued = append(queued, name)
		}
	}
	for _, src := range entries {
		s.Add(src)
		queued = append(queued, src.Name)
	}
	tracker.queue(skipped, StatusSkipped)
	tracker.queue(queued, StatusQueued)
	tracker.stage(StageSchedule, StatusWorking, nil, 0)

	ran := make(map[string]struct{})
	s.Observe(func(ev sched.PhaseEvent) {
		ran[ev.Unit] = struct{}{}
		tracker.onPhase(ev)
	})
	res := s.Run()
	tracker.settle(res)

	status := StatusDone
	if res.Status != session.StatusCompleted || len(res.Failed()) > 0 {
		status = StatusError
	} else {
		tracker.finish()
	}
	tracker.stage(StageSchedule, status, nil, time.Since(start))

	out := make([]string, 0, len(ran))
	for name := range ran {
		out = append(out, name)
	}
	sort.Strings(out)
	return res, out
}
