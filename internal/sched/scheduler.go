// Package sched drives compilation units through their phases. Two
// strategies share the same readiness rule, resolution and failure
// propagation and differ only in the order work is admitted.
package sched

import (
	"fmt"
	"time"

	"asbuild/internal/compiler"
	"asbuild/internal/depgraph"
	"asbuild/internal/diag"
	"asbuild/internal/names"
	"asbuild/internal/session"
	"asbuild/internal/source"
	"asbuild/internal/symtab"
	"asbuild/internal/trace"
	"asbuild/internal/unit"
)

// PhaseEvent describes one executed phase.
type PhaseEvent struct {
	Unit    string
	Phase   unit.Phase
	Round   int
	Failed  bool
	Elapsed time.Duration
}

// PhaseObserver receives an event after every executed phase.
type PhaseObserver func(PhaseEvent)

// Scheduler owns the worklist of one build session. It is not safe for
// concurrent use: phases never run in parallel.
type Scheduler struct {
	sess      *session.Session
	symbols   *symtab.Table
	compilers *compiler.Registry
	observer  PhaseObserver

	units map[string]*unit.Unit
	order []string

	// inherit drives ordering, full records every dependency kind.
	inherit *depgraph.Graph
	full    *depgraph.Graph

	epochs [unit.KindCount]uint64
	grew   bool

	round     int
	roundSpan uint64
	cycles    []depgraph.Cycle
}

// Result is the outcome of Run.
type Result struct {
	Units        map[string]*unit.Unit
	Order        []string
	Status       session.Status
	Strategy     session.Strategy
	Cycles       []depgraph.Cycle
	Inheritance  *depgraph.Graph
	Dependencies *depgraph.Graph
	Rounds       int
}

// Done returns names of units that completed, in worklist order.
func (r Result) Done() []string {
	var out []string
	for _, name := range r.Order {
		if r.Units[name].Done() {
			out = append(out, name)
		}
	}
	return out
}

// Failed returns names of failed units, in worklist order.
func (r Result) Failed() []string {
	var out []string
	for _, name := range r.Order {
		if r.Units[name].Failed() {
			out = append(out, name)
		}
	}
	return out
}

// New creates a scheduler for sess.
func New(sess *session.Session, symbols *symtab.Table, compilers *compiler.Registry) *Scheduler {
	s := &Scheduler{
		sess:      sess,
		symbols:   symbols,
		compilers: compilers,
		units:     make(map[string]*unit.Unit),
		inherit:   depgraph.New(),
		full:      depgraph.New(),
	}
	for k := range s.epochs {
		s.epochs[k] = 1
	}
	return s
}

// Observe installs a phase observer.
func (s *Scheduler) Observe(fn PhaseObserver) {
	s.observer = fn
}

// Add puts src on the worklist as an entry source.
func (s *Scheduler) Add(src *source.Source) *unit.Unit {
	u, _ := s.ensureUnit(src, names.QName{})
	return u
}

// Adopt puts a unit kept from a previous build on the worklist. Its
// exports are claimed again and its recorded dependencies become edges.
// Dependencies must be adopted or added before Run.
func (s *Scheduler) Adopt(u *unit.Unit) {
	name := u.Name()
	if _, ok := s.units[name]; ok {
		return
	}
	s.units[name] = u
	s.order = append(s.order, name)
	s.inherit.AddVertex(name)
	s.full.AddVertex(name)
	if u.Done() {
		for _, def := range u.Exports {
			if err := s.symbols.Register(def.Name, u.Source); err != nil {
				diag.ReportError(diag.MultiReporter{u, s.sess.Reporter()}, diag.SchedDuplicateDefinition,
					diag.Pos{Source: name}, err.Error()).Emit()
			}
		}
	}
	for _, k := range unit.Kinds {
		for _, dep := range u.Deps(k) {
			s.addEdge(name, dep, k)
		}
	}
}

// Unit returns the unit for a source name.
func (s *Scheduler) Unit(name string) (*unit.Unit, bool) {
	u, ok := s.units[name]
	return u, ok
}

// Run schedules until every unit is finished, a deadlock cannot be
// broken, or the session aborts.
func (s *Scheduler) Run() Result {
	strategy := s.pickStrategy()
	span := trace.Begin(s.sess.Tracer, trace.ScopeDriver, "schedule", 0).
		WithExtra("strategy", strategy.String()).
		WithExtra("session", s.sess.ID.String())
	s.roundSpan = span.ID()
	s.grew = false

	var status session.Status
	switch strategy {
	case session.StrategyBatch1:
		status = s.batch1()
	default:
		status = s.batch2()
	}
	s.finish(status)
	span.WithExtra("units", fmt.Sprint(len(s.order))).End(status.String())

	return Result{
		Units:        s.units,
		Order:        s.order,
		Status:       status,
		Strategy:     strategy,
		Cycles:       s.cycles,
		Inheritance:  s.inherit,
		Dependencies: s.full,
		Rounds:       s.round,
	}
}

func (s *Scheduler) pickStrategy() session.Strategy {
	if st := s.sess.Config.Strategy; st != session.StrategyAuto {
		return st
	}
	for _, name := range s.order {
		if s.units[name].HasProgress() {
			return session.StrategyBatch2
		}
	}
	return session.StrategyBatch1
}

func (s *Scheduler) finish(status session.Status) {
	switch status {
	case session.StatusForcedStop:
		diag.NewReportBuilder(s.sess.Reporter(), diag.SevInfo, diag.SchedForcedStop, diag.Pos{}, "build stopped before all units finished").Emit()
	case session.StatusTooManyErrors:
		diag.ReportError(s.sess.Reporter(), diag.SchedTooManyErrors, diag.Pos{},
			fmt.Sprintf("too many errors (limit %d), build aborted", s.sess.Config.MaxErrors)).Emit()
	}
	s.reportProgress()
}

// ensureUnit returns the unit of src, creating it and its graph vertices
// when the source is new to this session.
func (s *Scheduler) ensureUnit(src *source.Source, expected names.QName) (*unit.Unit, bool) {
	if u, ok := s.units[src.Name]; ok {
		return u, false
	}
	u := unit.New(src)
	u.Expected = expected
	s.units[src.Name] = u
	s.order = append(s.order, src.Name)
	s.inherit.AddVertex(src.Name)
	s.full.AddVertex(src.Name)
	s.grew = true
	trace.Point(s.sess.Tracer, trace.ScopeUnit, "splice", src.Name, s.roundSpan)
	return u, true
}

func (s *Scheduler) allFinished() bool {
	for _, name := range s.order {
		if !s.units[name].Finished() {
			return false
		}
	}
	return true
}

func (s *Scheduler) reportProgress() {
	finished := 0
	for _, name := range s.order {
		if s.units[name].Finished() {
			finished++
		}
	}
	s.sess.ReportProgress(finished, len(s.order))
}

func (s *Scheduler) aborted() (session.Status, bool) {
	return s.sess.Abort()
}
