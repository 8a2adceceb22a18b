package sched

import (
	"fmt"
	"strings"

	"asbuild/internal/depgraph"
	"asbuild/internal/diag"
	"asbuild/internal/trace"
	"asbuild/internal/unit"
)

// propagateFailures fails every unit whose next phase waits on a dependency
// that failed before reaching the required phase. Runs to a fixpoint.
func (s *Scheduler) propagateFailures() {
	strict := s.sess.Config.Strict
	for changed := true; changed; {
		changed = false
		for _, name := range s.order {
			u := s.units[name]
			if u.Finished() {
				continue
			}
			for _, r := range requirements(u.Workflow.Next(), strict) {
				if dep := s.failedBlocker(u, r.kind, r.min); dep != nil {
					s.failDependency(u, dep.Name(), firstError(dep))
					changed = true
					break
				}
			}
		}
	}
}

func (s *Scheduler) failDependency(u *unit.Unit, dep string, cause *diag.Diagnostic) {
	rep := diag.MultiReporter{u, s.sess.Reporter()}
	b := diag.ReportError(rep, diag.SchedDependencyFailed, diag.Pos{Source: u.Name()},
		fmt.Sprintf("dependency %s has errors", dep))
	if cause != nil {
		b.WithNote(cause.Primary, "first error in dependency: "+cause.Message)
	}
	b.Emit()
	u.Fail(diag.SchedDependencyFailed)
}

func firstError(u *unit.Unit) *diag.Diagnostic {
	items := u.Diagnostics()
	for i := range items {
		if items[i].Severity >= diag.SevError {
			return &items[i]
		}
	}
	return nil
}

// detectCycles runs the cycle detector over the inheritance graph. Each
// cycle yields one diagnostic on its first member; all members fail.
// Units depending on a cycle fail as dependents. Reports whether any unit
// changed state.
func (s *Scheduler) detectCycles() bool {
	det := depgraph.Detect(s.inherit, func(name string) bool {
		u, ok := s.units[name]
		return !ok || u.Finished()
	})
	changed := false
	for _, c := range det.Cycles {
		s.cycles = append(s.cycles, c)
		first := s.units[c.First()]
		rep := diag.MultiReporter{first, s.sess.Reporter()}
		b := diag.ReportError(rep, diag.SchedCircularInheritance, diag.Pos{Source: first.Name()},
			"circular inheritance: "+strings.Join(c.Members, " -> "))
		for _, m := range c.Members[1:] {
			b.WithNote(diag.Pos{Source: m}, "participates in the cycle")
		}
		b.Emit()
		for _, m := range c.Members {
			s.units[m].Fail(diag.SchedCircularInheritance)
		}
		trace.Point(s.sess.Tracer, trace.ScopeRound, "cycle", strings.Join(c.Members, ","), s.roundSpan)
		changed = true
	}
	for _, name := range det.Dependents {
		u := s.units[name]
		s.failDependency(u, s.cycleBlocker(u), nil)
		changed = true
	}
	return changed
}

// cycleBlocker names the failed inheritance dependency nearest to u.
func (s *Scheduler) cycleBlocker(u *unit.Unit) string {
	var name string
	s.walk(u, unit.Inheritance, func(dep *unit.Unit) bool {
		if dep.Failed() {
			name = dep.Name()
			return false
		}
		return true
	})
	if name == "" {
		return "in an inheritance cycle"
	}
	return name
}

// breakDeadlock is called when nothing is ready but work remains. Cycles are
// reported first; anything still stuck without a cycle fails so the run
// terminates. Reports whether the worklist changed.
func (s *Scheduler) breakDeadlock() bool {
	s.propagateFailures()
	if s.allFinished() {
		return true
	}
	if s.detectCycles() {
		s.propagateFailures()
		return true
	}
	changed := false
	for _, name := range s.order {
		u := s.units[name]
		if u.Finished() {
			continue
		}
		diag.ReportError(diag.MultiReporter{u, s.sess.Reporter()}, diag.SchedInternal, diag.Pos{Source: name},
			fmt.Sprintf("unit cannot advance to %s", u.Workflow.Next())).Emit()
		u.Fail(diag.SchedInternal)
		changed = true
	}
	return changed
}
