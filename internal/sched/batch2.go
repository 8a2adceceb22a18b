package sched

import (
	"fmt"
	"math"
	"sort"

	"asbuild/internal/session"
	"asbuild/internal/source"
	"asbuild/internal/trace"
	"asbuild/internal/unit"
)

const (
	// BudgetQuantum is the cost allowance per unit of Config.Factor.
	BudgetQuantum = 1024
	// MarkupWeight scales the cost of markup units relative to script.
	MarkupWeight = 4.5

	// tiers 1..8 are admitted without charge
	firstChargedTier = 9
)

type candidate struct {
	u    *unit.Unit
	tier int
	seq  int
	cost float64
}

// tier ranks a ready unit by its next phase; lower runs first.
func tier(u *unit.Unit) int {
	precompiled := source.IsPrecompiled(u.Source.Mime)
	switch u.Workflow.Next() {
	case unit.PhaseResolveType, unit.PhaseResolveImports, unit.PhaseGenerate, unit.PhasePostprocess:
		return 1
	case unit.PhaseAnalyze3:
		return 2
	case unit.PhaseAnalyze4:
		return 3
	case unit.PhaseAnalyze1:
		return 4
	case unit.PhasePreprocess:
		return 5
	case unit.PhaseAnalyze2:
		if precompiled {
			return 6
		}
		return 9
	case unit.PhaseParse2:
		if precompiled {
			return 7
		}
		return 10
	case unit.PhaseParse1:
		if precompiled {
			return 8
		}
		return 11
	}
	return 0
}

// cost is the budget charge of running one phase of u.
func cost(u *unit.Unit) float64 {
	size := math.Max(float64(u.Source.Size()), 1)
	if source.IsMarkup(u.Source.Mime) {
		return size * MarkupWeight
	}
	return size
}

// budget is the per-round allowance for charged tiers.
func (s *Scheduler) budget() float64 {
	return float64(s.sess.Config.Factor) * BudgetQuantum
}

// candidates collects ready units ranked by tier, then worklist order.
func (s *Scheduler) candidates() []candidate {
	var out []candidate
	for i, name := range s.order {
		u := s.units[name]
		if !s.ready(u) {
			continue
		}
		t := tier(u)
		if t == 0 {
			continue
		}
		out = append(out, candidate{u: u, tier: t, seq: i})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].tier != out[j].tier {
			return out[i].tier < out[j].tier
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// admit selects this round's work: every uncharged candidate, then charged
// ones until the budget runs out. At least one charged candidate is
// admitted when nothing else is.
func (s *Scheduler) admit(cands []candidate) []candidate {
	budget := s.budget()
	spent := 0.0
	admitted := make([]candidate, 0, len(cands))
	for _, c := range cands {
		if c.tier < firstChargedTier {
			admitted = append(admitted, c)
			continue
		}
		c.cost = cost(c.u)
		if spent+c.cost > budget && len(admitted) > 0 {
			break
		}
		spent += c.cost
		admitted = append(admitted, c)
	}
	return admitted
}

// batch2 runs rounds of priority-ordered, budget-limited work.
func (s *Scheduler) batch2() session.Status {
	for {
		if status, abort := s.aborted(); abort {
			return status
		}
		s.propagateFailures()
		if s.allFinished() {
			return session.StatusCompleted
		}
		admitted := s.admit(s.candidates())
		if len(admitted) == 0 {
			if !s.breakDeadlock() {
				return session.StatusCompleted
			}
			continue
		}
		if status, abort := s.runRound(admitted); abort {
			return status
		}
	}
}

func (s *Scheduler) runRound(admitted []candidate) (session.Status, bool) {
	s.round++
	span := trace.Begin(s.sess.Tracer, trace.ScopeRound, fmt.Sprintf("round:%d", s.round), s.roundSpan)
	parent := s.roundSpan
	s.roundSpan = span.ID()
	defer func() { s.roundSpan = parent }()

	for _, c := range admitted {
		if c.u.Finished() {
			continue
		}
		s.step(c.u)
		if status, abort := s.aborted(); abort {
			span.End(status.String())
			return status, true
		}
	}
	s.grew = false
	s.reportProgress()
	span.WithExtra("admitted", fmt.Sprint(len(admitted))).End("")
	return session.StatusCompleted, false
}
