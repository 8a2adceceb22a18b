package sched

import (
	"context"
	"sort"
	"testing"

	"asbuild/internal/compiler"
	"asbuild/internal/diag"
	"asbuild/internal/frontend/decl"
	"asbuild/internal/session"
	"asbuild/internal/source"
	"asbuild/internal/symtab"
	"asbuild/internal/unit"
)

// project is an in-memory set of sources served through a container.
type project struct {
	files map[string]string
	srcs  map[string]*source.Source
	box   *symtab.Container
}

func newProject(files map[string]string) *project {
	p := &project{files: files, srcs: make(map[string]*source.Source), box: symtab.NewContainer()}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		mime, ok := source.MimeForPath(name)
		if !ok {
			continue
		}
		kind := source.KindScript
		switch mime {
		case source.MimeArchived:
			kind = source.KindArchived
		case source.MimeProperties:
			kind = source.KindResource
		}
		src := source.New(name, mime, kind, source.NewBuffer([]byte(files[name])))
		p.srcs[name] = src
		p.box.Add(src)
	}
	return p
}

type run struct {
	result Result
	events []PhaseEvent
	diags  []diag.Diagnostic
	sess   *session.Session
}

type buildOpt func(*session.Config)

func withStrategy(s session.Strategy) buildOpt {
	return func(c *session.Config) { c.Strategy = s }
}

// build schedules entries of p from scratch.
func (p *project) build(t *testing.T, entries []string, opts ...buildOpt) run {
	t.Helper()
	cfg := session.DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	var r run
	sess := session.New(context.Background(), cfg,
		session.WithReporter(diag.ReporterFunc(func(d diag.Diagnostic) { r.diags = append(r.diags, d) })))
	reg := compiler.NewRegistry()
	decl.Register(reg)
	s := New(sess, symtab.New(p.box), reg)
	s.Observe(func(ev PhaseEvent) { r.events = append(r.events, ev) })
	for _, e := range entries {
		src, ok := p.srcs[e]
		if !ok {
			t.Fatalf("unknown entry %s", e)
		}
		s.Add(src)
	}
	r.result = s.Run()
	r.sess = sess
	return r
}

func (r run) countCode(code diag.Code) int {
	n := 0
	for _, d := range r.diags {
		if d.Code == code {
			n++
		}
	}
	return n
}

func (r run) phaseOrder(p unit.Phase) []string {
	var out []string
	for _, ev := range r.events {
		if ev.Phase == p && !ev.Failed {
			out = append(out, ev.Unit)
		}
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
