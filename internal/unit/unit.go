// Package unit holds the mutable per-source compilation state.
package unit

import (
	"sort"

	"asbuild/internal/diag"
	"asbuild/internal/names"
	"asbuild/internal/source"
)

// Unit is the compilation state attached to exactly one Source.
// Only the scheduler mutates Workflow, Refs and Memo.
type Unit struct {
	Source   *source.Source
	Workflow Workflow
	Refs     [KindCount]RefSet
	Memo     CheckMemo

	// Expected is the name the source was found under; zero for entries.
	Expected names.QName

	Generated []*source.Source
	Exports   []names.Definition
	Signature source.Digest
	// Bundles maps "locale/name" to the digest of the bundle used at Generate.
	Bundles  map[string]source.Digest
	Artifact []byte

	// Feature names a licensed capability needed to generate this unit.
	Feature string

	// State is owned by the front-end compiler between phases.
	State any

	diags    *diag.Bag
	errors   int
	failed   bool
	failCode diag.Code
}

// New creates an empty unit for src.
func New(src *source.Source) *Unit {
	return &Unit{Source: src, diags: diag.NewBag(0)}
}

// Name returns the source name.
func (u *Unit) Name() string {
	return u.Source.Name
}

// Report implements diag.Reporter: diagnostics land in the unit bag and
// errors bump the monotonic error count.
func (u *Unit) Report(code diag.Code, sev diag.Severity, primary diag.Pos, msg string, notes []diag.Note) {
	if primary.IsZero() {
		primary = diag.Pos{Source: u.Source.Name}
	}
	u.diags.Add(diag.Diagnostic{Severity: sev, Code: code, Message: msg, Primary: primary, Notes: notes})
	if sev >= diag.SevError {
		u.errors++
	}
}

// Diagnostics returns the unit's diagnostics.
func (u *Unit) Diagnostics() []diag.Diagnostic {
	return u.diags.Items()
}

// Errors returns the number of errors reported for this unit.
func (u *Unit) Errors() int {
	return u.errors
}

// Fail moves the unit to the terminal failed state. The first code wins.
func (u *Unit) Fail(code diag.Code) {
	if u.failed {
		return
	}
	u.failed = true
	u.failCode = code
}

// Failed reports whether the unit is excluded from further phases.
func (u *Unit) Failed() bool {
	return u.failed
}

// FailCode returns the reason recorded by Fail.
func (u *Unit) FailCode() diag.Code {
	return u.failCode
}

// Done reports whether the unit completed the whole pipeline.
func (u *Unit) Done() bool {
	return u.Workflow.Reached(PhaseDone)
}

// Finished reports whether the scheduler has nothing left to do for u.
func (u *Unit) Finished() bool {
	return u.failed || u.Done()
}

// HasProgress reports whether any phase has completed.
func (u *Unit) HasProgress() bool {
	return u.Workflow.Last() > PhaseNone
}

// Deps returns the resolved dependency source names of kind k.
func (u *Unit) Deps(k DependencyKind) []string {
	return u.Refs[k].Deps()
}

// AllDeps returns every resolved dependency across kinds, sorted, without
// duplicates and without u itself.
func (u *Unit) AllDeps() []string {
	seen := make(map[string]struct{})
	for k := range u.Refs {
		for _, d := range u.Refs[k].Deps() {
			if d != u.Source.Name {
				seen[d] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Reset returns the unit to its freshly created state. The source keeps its
// identity and expected name but forgets its compiled digest.
func (u *Unit) Reset() {
	src, expected := u.Source, u.Expected
	*u = Unit{Source: src, Expected: expected, diags: diag.NewBag(0)}
	src.ResetCompiled()
}
