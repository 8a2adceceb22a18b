package sched

import (
	"context"
	"strings"
	"testing"

	"asbuild/internal/compiler"
	"asbuild/internal/frontend/decl"
	"asbuild/internal/names"
	"asbuild/internal/session"
	"asbuild/internal/source"
	"asbuild/internal/symtab"
	"asbuild/internal/unit"
)

func newTestScheduler(t *testing.T, factor int) *Scheduler {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.Factor = factor
	reg := compiler.NewRegistry()
	decl.Register(reg)
	return New(session.New(context.Background(), cfg), symtab.New(), reg)
}

// advance marks every phase before next as completed.
func advance(t *testing.T, u *unit.Unit, next unit.Phase) {
	t.Helper()
	for _, p := range unit.Phases {
		if p >= next {
			return
		}
		if err := u.Workflow.Complete(p); err != nil {
			t.Fatal(err)
		}
	}
}

func sizedSource(name string, size int) *source.Source {
	mime, _ := source.MimeForPath(name)
	return source.New(name, mime, source.KindScript, source.NewBuffer([]byte(strings.Repeat("x", size))))
}

func TestAlmostFinishedUnitAlwaysAdmitted(t *testing.T) {
	s := newTestScheduler(t, 1) // budget 1024
	big1 := s.Add(sizedSource("Big1.as", 5000))
	big2 := s.Add(sizedSource("Big2.as", 5000))
	near := s.Add(sizedSource("Near.as", 100000))
	advance(t, big1, unit.PhaseParse1)
	advance(t, big2, unit.PhaseParse1)
	advance(t, near, unit.PhaseGenerate)

	admitted := s.admit(s.candidates())
	got := make(map[string]int)
	for _, c := range admitted {
		got[c.u.Name()] = c.tier
	}
	if got["Near.as"] != 1 {
		t.Fatalf("unit one step from generate not admitted: %v", got)
	}
	if _, ok := got["Big1.as"]; ok {
		t.Fatalf("charged unit admitted over budget next to free work: %v", got)
	}
}

func TestChargedTiersRespectBudget(t *testing.T) {
	s := newTestScheduler(t, 1)
	for _, name := range []string{"A.as", "B.as", "C.as"} {
		advance(t, s.Add(sizedSource(name, 400)), unit.PhaseParse1)
	}
	admitted := s.admit(s.candidates())
	if len(admitted) != 2 {
		t.Fatalf("admitted %d units, want 2 (800 of 1024)", len(admitted))
	}
	if admitted[0].u.Name() != "A.as" || admitted[1].u.Name() != "B.as" {
		t.Fatalf("admission order: %s %s", admitted[0].u.Name(), admitted[1].u.Name())
	}
}

func TestOversizedChargedUnitStillProgresses(t *testing.T) {
	s := newTestScheduler(t, 1)
	advance(t, s.Add(sizedSource("Huge.as", 1<<20)), unit.PhaseParse1)
	if admitted := s.admit(s.candidates()); len(admitted) != 1 {
		t.Fatalf("admitted = %d, want 1", len(admitted))
	}
}

func TestTierClassification(t *testing.T) {
	s := newTestScheduler(t, 1)
	cases := []struct {
		name string
		next unit.Phase
		want int
	}{
		{"T1.as", unit.PhaseResolveType, 1},
		{"T2.as", unit.PhaseAnalyze3, 2},
		{"T3.as", unit.PhaseAnalyze4, 3},
		{"T4.as", unit.PhaseAnalyze1, 4},
		{"T5.as", unit.PhasePreprocess, 5},
		{"T6.abc", unit.PhaseAnalyze2, 6},
		{"T7.abc", unit.PhaseParse2, 7},
		{"T8.abc", unit.PhaseParse1, 8},
		{"T9.as", unit.PhaseAnalyze2, 9},
		{"T10.mxml", unit.PhaseParse2, 10},
		{"T11.as", unit.PhaseParse1, 11},
	}
	for _, tc := range cases {
		u := s.Add(sizedSource(tc.name, 10))
		advance(t, u, tc.next)
		if got := tier(u); got != tc.want {
			t.Fatalf("%s: tier = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestMarkupCostWeight(t *testing.T) {
	s := newTestScheduler(t, 1)
	script := s.Add(sizedSource("S.as", 100))
	markup := s.Add(sizedSource("M.mxml", 100))
	empty := s.Add(sizedSource("E.as", 0))
	if cost(script) != 100 || cost(markup) != 450 || cost(empty) != 1 {
		t.Fatalf("costs: %v %v %v", cost(script), cost(markup), cost(empty))
	}
}

func qnameRef(local string) names.MultiName {
	return names.NewMultiName(local, "")
}
