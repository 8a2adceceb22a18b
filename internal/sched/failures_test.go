package sched

import (
	"context"
	"testing"

	"asbuild/internal/compiler"
	"asbuild/internal/diag"
	"asbuild/internal/frontend/decl"
	"asbuild/internal/names"
	"asbuild/internal/session"
	"asbuild/internal/symtab"
	"asbuild/internal/unit"
)

func TestFailureIsolatedFromSiblings(t *testing.T) {
	p := newProject(map[string]string{
		"A.as": "class A extends B\n",
		"B.as": "class B\nfield x : \n",
		"C.as": "class C\n",
	})
	for _, st := range strategies {
		t.Run(st.String(), func(t *testing.T) {
			r := p.build(t, []string{"A.as", "C.as"}, withStrategy(st))
			if code := r.result.Units["B.as"].FailCode(); code != diag.DeclSyntax {
				t.Fatalf("B fail code = %v", code)
			}
			if code := r.result.Units["A.as"].FailCode(); code != diag.SchedDependencyFailed {
				t.Fatalf("A fail code = %v", code)
			}
			if !r.result.Units["C.as"].Done() {
				t.Fatal("sibling C blocked by unrelated failure")
			}
		})
	}
}

func TestUnresolvedReferenceKinds(t *testing.T) {
	p := newProject(map[string]string{
		"A.as": "class A extends Missing\n",
		"B.as": "class B\nexpr Missing\n",
		"C.as": "class C\nfield f : Missing\n",
	})
	r := p.build(t, []string{"A.as", "B.as", "C.as"})
	if code := r.result.Units["A.as"].FailCode(); code != diag.SchedUnresolvedReference {
		t.Fatalf("inheritance: %v", code)
	}
	if code := r.result.Units["C.as"].FailCode(); code != diag.SchedUnresolvedReference {
		t.Fatalf("type: %v", code)
	}
	if !r.result.Units["B.as"].Done() {
		t.Fatal("unresolved expression must only warn")
	}
	if r.countCode(diag.SchedUnresolvedExpression) != 1 {
		t.Fatalf("warnings: %s", diag.FormatShort(r.diags, false))
	}
}

func TestAmbiguousReferenceFails(t *testing.T) {
	p := newProject(map[string]string{
		"A.as":       "import x.*\nimport y.*\nclass A\nfield t : Thing\n",
		"x/Thing.as": "package x\nclass Thing\n",
		"y/Thing.as": "package y\nclass Thing\n",
	})
	r := p.build(t, []string{"A.as"})
	if code := r.result.Units["A.as"].FailCode(); code != diag.SchedAmbiguousReference {
		t.Fatalf("fail code = %v\n%s", code, diag.FormatShort(r.diags, true))
	}
	for _, d := range r.diags {
		if d.Code == diag.SchedAmbiguousReference && len(d.Notes) != 2 {
			t.Fatalf("ambiguity must name both candidates: %+v", d)
		}
	}
}

func TestPackageNameMismatch(t *testing.T) {
	p := newProject(map[string]string{
		"A.as":   "import a.B\nclass A extends B\n",
		"a/B.as": "package zzz\nclass B\n",
	})
	r := p.build(t, []string{"A.as"})
	if code := r.result.Units["a/B.as"].FailCode(); code != diag.SchedPackageNameMismatch {
		t.Fatalf("fail code = %v\n%s", code, diag.FormatShort(r.diags, true))
	}
}

func TestTopLevelDefinitionShape(t *testing.T) {
	p := newProject(map[string]string{
		"None.as": "package p\n",
		"Two.as":  "class Two\nfunction also\n",
	})
	r := p.build(t, []string{"None.as", "Two.as"})
	if code := r.result.Units["None.as"].FailCode(); code != diag.SchedNoTopLevelDefinition {
		t.Fatalf("None: %v", code)
	}
	if code := r.result.Units["Two.as"].FailCode(); code != diag.SchedMultipleTopLevelDefinitions {
		t.Fatalf("Two: %v", code)
	}
}

func TestForcedStopKeepsPartialState(t *testing.T) {
	p := newProject(map[string]string{
		"A.as": "class A extends B\n",
		"B.as": "class B\n",
	})
	cfg := session.DefaultConfig()
	sess := session.New(context.Background(), cfg)
	reg := compiler.NewRegistry()
	decl.Register(reg)
	s := New(sess, symtab.New(p.box), reg)
	phases := 0
	s.Observe(func(PhaseEvent) {
		phases++
		if phases == 3 {
			sess.Stop()
		}
	})
	s.Add(p.srcs["A.as"])
	res := s.Run()
	if res.Status != session.StatusForcedStop {
		t.Fatalf("status = %v", res.Status)
	}
	if phases != 3 {
		t.Fatalf("admitted work after stop: %d phases", phases)
	}
	if !res.Units["A.as"].Workflow.Reached(unit.PhaseParse1) {
		t.Fatal("completed phases were discarded")
	}
	if res.Units["A.as"].Failed() {
		t.Fatal("forced stop is not a failure")
	}
}

func TestTooManyErrorsAborts(t *testing.T) {
	p := newProject(map[string]string{
		"A.as": "bogus\n",
		"B.as": "bogus\n",
		"C.as": "class C\n",
	})
	cfg := session.DefaultConfig()
	cfg.MaxErrors = 1
	cfg.Strategy = session.StrategyBatch2
	var got []diag.Diagnostic
	sess := session.New(context.Background(), cfg,
		session.WithReporter(diag.ReporterFunc(func(d diag.Diagnostic) { got = append(got, d) })))
	reg := compiler.NewRegistry()
	decl.Register(reg)
	s := New(sess, symtab.New(p.box), reg)
	for _, name := range []string{"A.as", "B.as", "C.as"} {
		s.Add(p.srcs[name])
	}
	res := s.Run()
	if res.Status != session.StatusTooManyErrors {
		t.Fatalf("status = %v", res.Status)
	}
	if res.Units["B.as"].Failed() {
		t.Fatal("work admitted after the error threshold was hit")
	}
	found := false
	for _, d := range got {
		found = found || d.Code == diag.SchedTooManyErrors
	}
	if !found {
		t.Fatal("missing too-many-errors diagnostic")
	}
}

func TestLicenseCheckedAtGenerate(t *testing.T) {
	p := newProject(map[string]string{"A.as": "class A\nlicense charts\n"})
	r := p.build(t, []string{"A.as"})
	if !r.result.Units["A.as"].Done() || r.countCode(diag.SchedLicenseMissing) != 1 {
		t.Fatalf("license warning missing: %s", diag.FormatShort(r.diags, false))
	}

	sess := session.New(context.Background(), session.DefaultConfig(),
		session.WithLicense(session.LicenseFunc(func(f string) bool { return f == "charts" })))
	reg := compiler.NewRegistry()
	decl.Register(reg)
	s := New(sess, symtab.New(p.box), reg)
	s.Add(p.srcs["A.as"])
	s.Run()
	if sess.Warnings() != 0 {
		t.Fatalf("licensed feature still warned: %d", sess.Warnings())
	}
}

func TestMemoInvalidatedByNewEdge(t *testing.T) {
	s := newTestScheduler(t, 1)
	a := s.Add(sizedSource("A.as", 1))
	b := s.Add(sizedSource("B.as", 1))
	advance(t, a, unit.PhaseAnalyze3)
	advance(t, b, unit.PhaseAnalyze1)
	if s.blocker(a, unit.Type, unit.PhaseAnalyze2) != nil {
		t.Fatal("no deps yet, must pass")
	}
	a.Refs[unit.Type].Record(qnameRef("B"), unit.Resolution{Source: "B.as"})
	s.addEdge("A.as", "B.as", unit.Type)
	if got := s.blocker(a, unit.Type, unit.PhaseAnalyze2); got != b {
		t.Fatalf("stale memo: blocker = %v", got)
	}
}

func TestAdoptReportsClaimedName(t *testing.T) {
	var got []diag.Diagnostic
	sess := session.New(context.Background(), session.DefaultConfig(),
		session.WithReporter(diag.ReporterFunc(func(d diag.Diagnostic) { got = append(got, d) })))
	reg := compiler.NewRegistry()
	decl.Register(reg)
	s := New(sess, symtab.New(), reg)

	kept := func(name string) *unit.Unit {
		u := unit.New(sizedSource(name, 1))
		u.Exports = []names.Definition{{Name: names.QName{Local: "Shared"}}}
		advance(t, u, unit.PhaseDone)
		if err := u.Workflow.Complete(unit.PhaseDone); err != nil {
			t.Fatal(err)
		}
		return u
	}
	first, second := kept("A.as"), kept("B.as")
	s.Adopt(first)
	s.Adopt(second)

	if len(got) != 1 || got[0].Code != diag.SchedDuplicateDefinition || got[0].Primary.Source != "B.as" {
		t.Fatalf("diagnostics = %v", got)
	}
	if first.Errors() != 0 || second.Errors() != 1 {
		t.Fatalf("errors: A=%d B=%d", first.Errors(), second.Errors())
	}
}
