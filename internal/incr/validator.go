// Package incr decides what a rebuild has to recompile and persists build
// snapshots between processes.
package incr

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"asbuild/internal/compiler"
	"asbuild/internal/names"
	"asbuild/internal/session"
	"asbuild/internal/source"
	"asbuild/internal/symtab"
	"asbuild/internal/trace"
	"asbuild/internal/unit"
)

// Classification is the verdict for one source of the previous build.
type Classification uint8

const (
	Unchanged Classification = iota
	// Stale units were not fully compiled or depend on outdated bundles.
	Stale
	Deleted
	// Updated content with a changed (or unknown) exported signature.
	Updated
	// UpdatedStable content whose exported signature did not change.
	UpdatedStable
	// Affected by a dependency or by a changed name resolution.
	Affected
)

func (c Classification) String() string {
	switch c {
	case Unchanged:
		return "unchanged"
	case Stale:
		return "stale"
	case Deleted:
		return "deleted"
	case Updated:
		return "updated"
	case UpdatedStable:
		return "updated-stable"
	case Affected:
		return "affected"
	}
	return "unknown"
}

// Verdict is a classification plus the reason shown to the user.
type Verdict struct {
	Class  Classification
	Reason string
}

// Invalidates reports whether the unit must be reset.
func (v Verdict) Invalidates() bool {
	return v.Class != Unchanged
}

// Previous is the state a rebuild starts from.
type Previous struct {
	Units   map[string]*unit.Unit
	Entries []string
}

// Report is the outcome of Validate.
type Report struct {
	Verdicts map[string]Verdict
	// Freed lists names exported by deleted sources.
	Freed []names.QName
	// All is set when everything was invalidated at once.
	All bool
	// Conflicts lists kept units whose exported names were already claimed
	// by another source. They are recompiled so the duplicate gets reported.
	Conflicts []string
}

// Invalidated returns the sorted names of units to reset.
func (r *Report) Invalidated() []string {
	var out []string
	for name, v := range r.Verdicts {
		if v.Invalidates() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Count returns how many sources got class c.
func (r *Report) Count(c Classification) int {
	n := 0
	for _, v := range r.Verdicts {
		if v.Class == c {
			n++
		}
	}
	return n
}

// Summary renders one line per invalidated source.
func (r *Report) Summary() string {
	var b strings.Builder
	for _, name := range r.Invalidated() {
		v := r.Verdicts[name]
		fmt.Fprintf(&b, "%s: %s (%s)\n", name, v.Class, v.Reason)
	}
	return b.String()
}

// Apply resets every invalidated unit. Deleted units and generated units of
// invalidated parents leave the map: the former are gone, the latter are
// spliced again when their parent regenerates them.
func (r *Report) Apply(units map[string]*unit.Unit) {
	for _, name := range r.Invalidated() {
		u, ok := units[name]
		if !ok {
			continue
		}
		if r.Verdicts[name].Class == Deleted || u.Source.Kind == source.KindGenerated {
			delete(units, name)
			continue
		}
		u.Reset()
	}
}

// Validator decides which units of a previous build must be recompiled.
type Validator struct {
	cfg     session.Config
	symbols *symtab.Table
	sigs    *compiler.Registry
	tracer  trace.Tracer
}

// NewValidator returns a validator resolving against symbols. The table
// should be fresh: Validate claims the names of kept units in it.
func NewValidator(cfg session.Config, symbols *symtab.Table, sigs *compiler.Registry, tracer trace.Tracer) *Validator {
	if tracer == nil {
		tracer = trace.Nop
	}
	return &Validator{cfg: cfg, symbols: symbols, sigs: sigs, tracer: tracer}
}

// Validate classifies every unit of prev against the current state of its
// source. Steps only ever add to the invalidated set.
func (v *Validator) Validate(prev Previous, entries []string) *Report {
	span := trace.Begin(v.tracer, trace.ScopeDriver, "validate", 0)
	r := &Report{Verdicts: make(map[string]Verdict, len(prev.Units))}
	defer func() {
		span.WithExtra("invalidated", fmt.Sprint(len(r.Invalidated()))).End("")
	}()

	order := make([]string, 0, len(prev.Units))
	for name := range prev.Units {
		order = append(order, name)
		r.Verdicts[name] = Verdict{Class: Unchanged}
	}
	sort.Strings(order)

	// 1
	if v.cfg.ForceRecompile || !sameEntries(prev.Entries, entries) {
		reason := "entry points changed"
		if v.cfg.ForceRecompile {
			reason = "forced recompile"
		}
		for _, name := range order {
			r.Verdicts[name] = Verdict{Class: Stale, Reason: reason}
		}
		r.All = true
		return r
	}

	for _, name := range order {
		u := prev.Units[name]
		// 2: a deleted source is gone whatever state it was left in
		if !u.Source.Exists() {
			r.Verdicts[name] = Verdict{Class: Deleted, Reason: "source deleted"}
			for _, def := range u.Exports {
				r.Freed = append(r.Freed, def.Name)
				v.symbols.Unregister(def.Name)
			}
			continue
		}
		// 3
		if reason := v.stale(u); reason != "" {
			r.Verdicts[name] = Verdict{Class: Stale, Reason: reason}
			continue
		}
		// 4
		if u.Source.IsUpdated() {
			r.Verdicts[name] = v.updated(u)
		}
	}

	g := newReverse(prev.Units, order)

	// 5
	var seeds []string
	for _, name := range order {
		switch r.Verdicts[name].Class {
		case Updated, Deleted:
			for _, dep := range g.any[name] {
				r.mark(dep, "depends on "+name)
				seeds = append(seeds, dep)
			}
			seeds = append(seeds, name)
		}
	}
	g.propagate(r, seeds)
	v.dropGenerated(r, prev.Units, order)

	// 6
	for _, name := range order {
		if r.Verdicts[name].Class != Unchanged {
			continue
		}
		for _, def := range prev.Units[name].Exports {
			if err := v.symbols.Register(def.Name, prev.Units[name].Source); err != nil {
				r.Verdicts[name] = Verdict{Class: Stale, Reason: err.Error()}
				r.Conflicts = append(r.Conflicts, name)
				break
			}
		}
	}
	for {
		var changed []string
		for _, name := range order {
			if r.Verdicts[name].Class != Unchanged {
				continue
			}
			if key, ok := v.meaningChanged(prev.Units[name]); !ok {
				r.mark(name, "multiname meaning changed: "+key)
				changed = append(changed, name)
			}
		}
		if len(changed) == 0 {
			break
		}
		g.propagate(r, changed)
		v.dropGenerated(r, prev.Units, order)
	}
	return r
}

func (v *Validator) stale(u *unit.Unit) string {
	if !u.Done() {
		return "not fully compiled"
	}
	for key, want := range u.Bundles {
		locale, name, _ := strings.Cut(key, "/")
		src, err := v.symbols.ResolveBundle(locale, name)
		if err != nil {
			return "not fully compiled: bundle " + key + " missing"
		}
		if d, err := src.Checksum(); err != nil || d != want {
			return "not fully compiled: bundle " + key + " changed"
		}
	}
	return ""
}

func (v *Validator) updated(u *unit.Unit) Verdict {
	plain := Verdict{Class: Updated, Reason: "content updated"}
	if v.cfg.DisableIncremental || u.Signature.IsZero() || v.cfg.SignatureExcluded(u.Source.Mime) || v.sigs == nil {
		return plain
	}
	d, ok, err := v.sigs.Signature(u.Source)
	if err != nil || !ok {
		return plain
	}
	if d != u.Signature {
		plain.Reason = "exported signature changed"
		return plain
	}
	return Verdict{Class: UpdatedStable, Reason: "content updated, signature stable"}
}

// meaningChanged re-resolves every recorded reference of u. It returns the
// first reference that no longer resolves to the same source.
func (v *Validator) meaningChanged(u *unit.Unit) (string, bool) {
	for _, k := range unit.Kinds {
		hist := u.Refs[k].History()
		for _, key := range u.Refs[k].HistoryKeys() {
			res, err := v.symbols.Resolve(names.ParseKey(key))
			if err != nil || res != hist[key] {
				return names.ParseKey(key).Local, false
			}
		}
	}
	return "", true
}

// dropGenerated invalidates sources generated by invalidated parents.
func (v *Validator) dropGenerated(r *Report, units map[string]*unit.Unit, order []string) {
	for _, name := range order {
		if !r.Verdicts[name].Invalidates() {
			continue
		}
		for _, gen := range units[name].Generated {
			if _, ok := units[gen.Name]; ok {
				r.mark(gen.Name, "generated by "+name)
			}
		}
	}
}

// mark sets Affected unless the source already has a verdict.
func (r *Report) mark(name, reason string) {
	if v, ok := r.Verdicts[name]; ok && v.Invalidates() {
		return
	}
	r.Verdicts[name] = Verdict{Class: Affected, Reason: reason}
}

// reverse holds dependents per source: any kind, and the kinds that
// cascade (inheritance and namespace).
type reverse struct {
	any     map[string][]string
	cascade map[string][]string
}

func newReverse(units map[string]*unit.Unit, order []string) reverse {
	g := reverse{any: make(map[string][]string), cascade: make(map[string][]string)}
	for _, name := range order {
		u := units[name]
		for _, dep := range u.AllDeps() {
			g.any[dep] = append(g.any[dep], name)
		}
		for _, k := range []unit.DependencyKind{unit.Inheritance, unit.Namespace} {
			for _, dep := range u.Deps(k) {
				if dep != name && !slices.Contains(g.cascade[dep], name) {
					g.cascade[dep] = append(g.cascade[dep], name)
				}
			}
		}
	}
	return g
}

// propagate marks everything reachable from seeds over cascading edges.
func (g reverse) propagate(r *Report, seeds []string) {
	queue := append([]string(nil), seeds...)
	seen := make(map[string]struct{}, len(queue))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		for _, dep := range g.cascade[name] {
			r.mark(dep, "depends on "+name)
			queue = append(queue, dep)
		}
	}
}

func sameEntries(a, b []string) bool {
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	return slices.Equal(x, y)
}
