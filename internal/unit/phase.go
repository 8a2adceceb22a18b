package unit

import (
	"errors"
	"fmt"
)

// Phase is one stage of the per-unit compilation pipeline. Order matters:
// a phase may complete only after every earlier phase.
type Phase uint8

const (
	PhaseNone Phase = iota
	PhasePreprocess
	PhaseParse1
	PhaseParse2
	PhaseAnalyze1
	PhaseAnalyze2
	PhaseAnalyze3
	PhaseAnalyze4
	PhaseResolveType
	PhaseResolveImports
	PhaseGenerate
	PhasePostprocess
	PhaseDone

	phaseCount
)

// Phases lists every real phase in pipeline order.
var Phases = [...]Phase{
	PhasePreprocess,
	PhaseParse1,
	PhaseParse2,
	PhaseAnalyze1,
	PhaseAnalyze2,
	PhaseAnalyze3,
	PhaseAnalyze4,
	PhaseResolveType,
	PhaseResolveImports,
	PhaseGenerate,
	PhasePostprocess,
	PhaseDone,
}

var phaseNames = [phaseCount]string{
	PhaseNone:           "none",
	PhasePreprocess:     "preprocess",
	PhaseParse1:         "parse1",
	PhaseParse2:         "parse2",
	PhaseAnalyze1:       "analyze1",
	PhaseAnalyze2:       "analyze2",
	PhaseAnalyze3:       "analyze3",
	PhaseAnalyze4:       "analyze4",
	PhaseResolveType:    "resolve-type",
	PhaseResolveImports: "resolve-imports",
	PhaseGenerate:       "generate",
	PhasePostprocess:    "postprocess",
	PhaseDone:           "done",
}

func (p Phase) String() string {
	if p < phaseCount {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Valid reports whether p is a real pipeline phase.
func (p Phase) Valid() bool {
	return p > PhaseNone && p < phaseCount
}

// ErrPhaseOrder is wrapped by Workflow.Complete failures.
var ErrPhaseOrder = errors.New("phase completed out of order")

// Workflow records completed phases. Completion is strictly in order and
// happens at most once per phase; nothing is ever un-completed except by Reset.
type Workflow struct {
	done [phaseCount]bool
	last Phase
}

// Complete marks p as completed.
func (w *Workflow) Complete(p Phase) error {
	if !p.Valid() {
		return fmt.Errorf("%w: invalid phase %s", ErrPhaseOrder, p)
	}
	if w.done[p] {
		return fmt.Errorf("%w: %s already completed", ErrPhaseOrder, p)
	}
	if p != w.last+1 {
		return fmt.Errorf("%w: %s requires %s", ErrPhaseOrder, p, p-1)
	}
	w.done[p] = true
	w.last = p
	return nil
}

// Completed reports whether phase p itself was completed.
func (w *Workflow) Completed(p Phase) bool {
	return p < phaseCount && w.done[p]
}

// Reached reports whether every phase up to and including p is completed.
func (w *Workflow) Reached(p Phase) bool {
	return w.last >= p
}

// Last returns the latest completed phase (PhaseNone when nothing ran).
func (w *Workflow) Last() Phase {
	return w.last
}

// Next returns the first incomplete phase; PhaseDone is its own successor.
func (w *Workflow) Next() Phase {
	if w.last == PhaseDone {
		return PhaseDone
	}
	return w.last + 1
}

// CompletedPhases returns the completed phases in order.
func (w *Workflow) CompletedPhases() []Phase {
	out := make([]Phase, 0, w.last)
	for _, p := range Phases {
		if w.done[p] {
			out = append(out, p)
		}
	}
	return out
}

// Reset clears all completion records.
func (w *Workflow) Reset() {
	*w = Workflow{}
}
