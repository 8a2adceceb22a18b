package sched

import (
	"fmt"
	"time"

	"asbuild/internal/compiler"
	"asbuild/internal/diag"
	"asbuild/internal/symtab"
	"asbuild/internal/trace"
	"asbuild/internal/unit"
)

// step runs exactly one phase of u and everything that has to happen at that
// phase boundary: resolution of the kinds the phase discovered and splicing
// of new sources.
func (s *Scheduler) step(u *unit.Unit) {
	p := u.Workflow.Next()
	start := time.Now()
	span := trace.Begin(s.sess.Tracer, trace.ScopePhase, p.String(), s.roundSpan).WithExtra("unit", u.Name())

	rep := diag.MultiReporter{u, s.sess.Reporter()}
	s.runPhase(u, p, rep)

	if u.Errors() == 0 {
		if err := u.Workflow.Complete(p); err != nil {
			diag.ReportError(rep, diag.SchedInternal, diag.Pos{Source: u.Name()}, err.Error()).Emit()
		} else {
			s.afterPhase(u, p, rep)
		}
	}
	if u.Errors() > 0 {
		u.Fail(firstErrorCode(u))
	} else if p == unit.PhasePostprocess {
		s.markDone(u, rep)
	}

	elapsed := time.Since(start)
	s.sess.Timer.Add(p.String(), elapsed)
	detail := "ok"
	if u.Failed() {
		detail = "failed"
	}
	span.End(detail)
	if s.observer != nil {
		s.observer(PhaseEvent{Unit: u.Name(), Phase: p, Round: s.round, Failed: u.Failed(), Elapsed: elapsed})
	}
}

func (s *Scheduler) runPhase(u *unit.Unit, p unit.Phase, rep diag.Reporter) {
	switch p {
	case unit.PhaseResolveType:
		s.resolve(u, unit.Type, rep)
		return
	case unit.PhaseResolveImports:
		if s.sess.Config.Strict {
			s.resolve(u, unit.Expression, rep)
		}
		return
	case unit.PhaseGenerate:
		s.checkLicense(u, rep)
	}

	c, err := s.compilers.For(u.Source.Mime)
	if err != nil {
		diag.ReportError(rep, diag.DeclUnknownMime, diag.Pos{Source: u.Name()}, err.Error()).Emit()
		return
	}
	compiler.Run(c, p, &compiler.Context{
		Session:  s.sess,
		Symbols:  s.symbols,
		Reporter: rep,
		Unit:     u,
	})
}

func (s *Scheduler) afterPhase(u *unit.Unit, p unit.Phase, rep diag.Reporter) {
	switch p {
	case unit.PhaseParse1:
		s.registerExports(u, rep)
		s.resolve(u, unit.Inheritance, rep)
	case unit.PhaseAnalyze1:
		s.resolve(u, unit.Namespace, rep)
	case unit.PhaseAnalyze2:
		s.resolve(u, unit.Type, rep)
		if s.sess.Config.Strict {
			s.resolve(u, unit.Expression, rep)
		}
	case unit.PhasePostprocess:
		s.resolve(u, unit.Expression, rep)
	}
	s.spliceGenerated(u, rep)
}

func (s *Scheduler) markDone(u *unit.Unit, rep diag.Reporter) {
	if err := u.Workflow.Complete(unit.PhaseDone); err != nil {
		diag.ReportError(rep, diag.SchedInternal, diag.Pos{Source: u.Name()}, err.Error()).Emit()
		u.Fail(diag.SchedInternal)
		return
	}
	if d, err := u.Source.Checksum(); err == nil {
		u.Source.MarkCompiled(d)
	}
}

// registerExports claims the unit's top-level definitions and checks them
// against the name the source was found under.
func (s *Scheduler) registerExports(u *unit.Unit, rep diag.Reporter) {
	pos := diag.Pos{Source: u.Name()}
	for _, def := range u.Exports {
		if !u.Expected.IsZero() && len(u.Exports) == 1 && def.Name != u.Expected {
			diag.ReportError(rep, diag.SchedPackageNameMismatch, pos,
				fmt.Sprintf("%s is expected to define %s but defines %s", u.Name(), u.Expected, def.Name)).Emit()
			continue
		}
		if err := s.symbols.Register(def.Name, u.Source); err != nil {
			diag.ReportError(rep, diag.SchedDuplicateDefinition, pos, err.Error()).Emit()
		}
	}
}

func (s *Scheduler) spliceGenerated(u *unit.Unit, rep diag.Reporter) {
	for _, gen := range u.Generated {
		if _, known := s.units[gen.Name]; known {
			continue
		}
		q := symtab.QNameForPath(gen.Name)
		if err := s.symbols.Register(q, gen); err != nil {
			diag.ReportError(rep, diag.SchedDuplicateDefinition, diag.Pos{Source: u.Name()}, err.Error()).Emit()
			continue
		}
		s.ensureUnit(gen, q)
	}
}

func (s *Scheduler) checkLicense(u *unit.Unit, rep diag.Reporter) {
	if u.Feature == "" {
		return
	}
	if s.sess.License != nil && s.sess.License.Licensed(u.Feature) {
		return
	}
	diag.ReportWarning(rep, diag.SchedLicenseMissing, diag.Pos{Source: u.Name()},
		fmt.Sprintf("feature %q is not licensed; output is generated in trial mode", u.Feature)).Emit()
}

func firstErrorCode(u *unit.Unit) diag.Code {
	for _, d := range u.Diagnostics() {
		if d.Severity >= diag.SevError {
			return d.Code
		}
	}
	return diag.SchedInternal
}
