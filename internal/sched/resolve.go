package sched

import (
	"errors"
	"fmt"

	"asbuild/internal/diag"
	"asbuild/internal/names"
	"asbuild/internal/symtab"
	"asbuild/internal/unit"
)

// resolve drains the pending queue of kind k. New sources become units and
// graph vertices before u may advance past the current phase.
func (s *Scheduler) resolve(u *unit.Unit, k unit.DependencyKind, rep diag.Reporter) {
	for _, m := range u.Refs[k].Take() {
		res, err := s.symbols.Resolve(m)
		if err != nil {
			s.reportUnresolved(u, k, m, err, rep)
			continue
		}
		src := s.symbols.Lookup(res.QName)
		if src == nil {
			continue
		}
		s.ensureUnit(src, res.QName)
		before := len(u.Deps(k))
		u.Refs[k].Record(m, res)
		if len(u.Deps(k)) != before {
			s.addEdge(u.Name(), res.Source, k)
		}
	}
}

func (s *Scheduler) addEdge(from, to string, k unit.DependencyKind) {
	s.full.AddEdge(from, to)
	if k == unit.Inheritance {
		s.inherit.AddEdge(from, to)
	}
	s.epochs[k]++
}

func (s *Scheduler) reportUnresolved(u *unit.Unit, k unit.DependencyKind, m names.MultiName, err error, rep diag.Reporter) {
	pos := diag.Pos{Source: u.Name()}
	var amb *symtab.AmbiguousError
	switch {
	case errors.As(err, &amb):
		diag.ReportError(rep, diag.SchedAmbiguousReference, pos,
			fmt.Sprintf("%s reference %s is ambiguous", k, m.Local)).
			WithNote(diag.Pos{Source: amb.Candidates[0].Source}, "candidate "+amb.Candidates[0].QName.String()).
			WithNote(diag.Pos{Source: amb.Candidates[1].Source}, "candidate "+amb.Candidates[1].QName.String()).
			Emit()
	case k == unit.Expression:
		// зависимости выражений содержат ложные срабатывания: только предупреждение
		if s.sess.Config.Warnings {
			diag.ReportWarning(rep, diag.SchedUnresolvedExpression, pos,
				fmt.Sprintf("cannot resolve expression reference %s", m)).Emit()
		}
	default:
		diag.ReportError(rep, diag.SchedUnresolvedReference, pos,
			fmt.Sprintf("cannot resolve %s reference %s", k, m)).Emit()
	}
}
