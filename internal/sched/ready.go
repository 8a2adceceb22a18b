package sched

import (
	"asbuild/internal/unit"
)

type requirement struct {
	kind unit.DependencyKind
	min  unit.Phase
}

var (
	reqParse2   = []requirement{{unit.Inheritance, unit.PhaseParse2}}
	reqAnalyze2 = []requirement{{unit.Inheritance, unit.PhaseAnalyze2}, {unit.Namespace, unit.PhaseAnalyze1}}
	reqAnalyze3 = []requirement{{unit.Inheritance, unit.PhaseAnalyze3}, {unit.Type, unit.PhaseAnalyze2}}
	reqAnalyze4 = []requirement{{unit.Type, unit.PhaseAnalyze2}}
	reqStrict4  = []requirement{{unit.Type, unit.PhaseAnalyze2}, {unit.Expression, unit.PhaseAnalyze2}}
	reqGenerate = []requirement{{unit.Type, unit.PhaseResolveType}}
)

// requirements lists what every resolved dependency of a kind must have
// reached before a unit may run phase next.
func requirements(next unit.Phase, strict bool) []requirement {
	switch next {
	case unit.PhaseParse2:
		return reqParse2
	case unit.PhaseAnalyze2:
		return reqAnalyze2
	case unit.PhaseAnalyze3:
		return reqAnalyze3
	case unit.PhaseAnalyze4:
		if strict {
			return reqStrict4
		}
		return reqAnalyze4
	case unit.PhaseGenerate:
		return reqGenerate
	}
	return nil
}

// ready reports whether u may run its next phase now.
func (s *Scheduler) ready(u *unit.Unit) bool {
	if u.Finished() {
		return false
	}
	for _, r := range requirements(u.Workflow.Next(), s.sess.Config.Strict) {
		if !u.Refs[r.kind].Empty() {
			return false
		}
		if s.blocker(u, r.kind, r.min) != nil {
			return false
		}
	}
	return true
}

// blocker walks the dependencies of kind k transitively and returns the
// first unit that has not reached min, nil when all have. Passing checks
// are memoized per (kind, phase) until a new edge of kind k appears.
func (s *Scheduler) blocker(u *unit.Unit, k unit.DependencyKind, min unit.Phase) *unit.Unit {
	epoch := s.epochs[k]
	if u.Memo.Passed(k, min, epoch) {
		return nil
	}
	var found *unit.Unit
	s.walk(u, k, func(dep *unit.Unit) bool {
		if !dep.Workflow.Reached(min) {
			found = dep
			return false
		}
		return true
	})
	if found == nil {
		u.Memo.Mark(k, min, epoch)
	}
	return found
}

// failedBlocker returns a failed unit among the transitive dependencies of
// kind k that never reached min. Such a unit blocks u forever.
func (s *Scheduler) failedBlocker(u *unit.Unit, k unit.DependencyKind, min unit.Phase) *unit.Unit {
	var found *unit.Unit
	s.walk(u, k, func(dep *unit.Unit) bool {
		if dep.Failed() && !dep.Workflow.Reached(min) {
			found = dep
			return false
		}
		return true
	})
	return found
}

// walk visits dependencies of kind k depth-first, each at most once, until
// visit returns false.
func (s *Scheduler) walk(u *unit.Unit, k unit.DependencyKind, visit func(*unit.Unit) bool) {
	visited := make(map[string]struct{})
	stack := append([]string(nil), u.Deps(k)...)
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[name]; ok {
			continue
		}
		visited[name] = struct{}{}
		dep, ok := s.units[name]
		if !ok {
			continue
		}
		if !visit(dep) {
			return
		}
		stack = append(stack, dep.Deps(k)...)
	}
}
