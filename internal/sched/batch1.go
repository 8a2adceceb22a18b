package sched

import (
	"fmt"

	"asbuild/internal/depgraph"
	"asbuild/internal/session"
	"asbuild/internal/trace"
	"asbuild/internal/unit"
)

var barrierPhases = [...]unit.Phase{
	unit.PhasePreprocess,
	unit.PhaseParse1,
	unit.PhaseParse2,
	unit.PhaseAnalyze1,
	unit.PhaseAnalyze2,
	unit.PhaseAnalyze3,
	unit.PhaseAnalyze4,
	unit.PhaseResolveType,
	unit.PhaseResolveImports,
	unit.PhaseGenerate,
	unit.PhasePostprocess,
}

// batch1 drives the whole worklist one phase at a time. Whenever a barrier
// splices in new sources the pass restarts from Preprocess so the newcomers
// catch up before anyone moves on.
//
// TODO: restarting recomputes every barrier over the full worklist; a
// worklist-delta pass that only walks the newcomers would avoid the
// quadratic case.
func (s *Scheduler) batch1() session.Status {
	for {
		progressed, restarted := false, false
		for _, p := range barrierPhases {
			if p == unit.PhaseParse2 {
				s.propagateFailures()
				if s.detectCycles() {
					progressed = true
				}
			}
			ran, status, abort := s.barrier(p)
			if abort {
				return status
			}
			if ran > 0 {
				progressed = true
			}
			if s.grew {
				s.grew = false
				restarted = true
				break
			}
		}
		s.propagateFailures()
		if s.allFinished() {
			return session.StatusCompleted
		}
		if !progressed && !restarted && !s.breakDeadlock() {
			return session.StatusCompleted
		}
	}
}

// barrier runs phase p for every unit whose next phase is p and which is
// ready, in inheritance topological order.
func (s *Scheduler) barrier(p unit.Phase) (int, session.Status, bool) {
	s.round++
	span := trace.Begin(s.sess.Tracer, trace.ScopeRound, "barrier:"+p.String(), s.roundSpan)
	parent := s.roundSpan
	s.roundSpan = span.ID()
	defer func() { s.roundSpan = parent }()

	ran := 0
	for _, name := range s.barrierOrder() {
		u := s.units[name]
		if u.Finished() || u.Workflow.Next() != p || !s.ready(u) {
			continue
		}
		s.step(u)
		ran++
		if status, abort := s.aborted(); abort {
			span.End(status.String())
			return ran, status, true
		}
	}
	s.reportProgress()
	span.WithExtra("ran", fmt.Sprint(ran)).End("")
	return ran, session.StatusCompleted, false
}

// barrierOrder is the inheritance order, dependencies first, followed by
// the vertices the sort could not place.
func (s *Scheduler) barrierOrder() []string {
	topo := depgraph.Sort(s.inherit)
	return append(topo.Order, topo.Unsorted...)
}
