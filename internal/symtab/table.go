// Package symtab resolves MultiNames to QNames and QNames to sources.
// One Table lives for one build session.
package symtab

import (
	"errors"
	"fmt"
	"strings"

	"asbuild/internal/names"
	"asbuild/internal/source"
	"asbuild/internal/unit"
)

var (
	// ErrUnresolved is wrapped when no candidate namespace provides the name.
	ErrUnresolved = errors.New("unresolved reference")
	// ErrDuplicate is returned by Register when a name is already claimed.
	ErrDuplicate = errors.New("definition already claimed")
	// ErrNoBundle is wrapped when no provider has the bundle.
	ErrNoBundle = errors.New("resource bundle not found")
)

// AmbiguousError reports a MultiName that matched two distinct candidates.
type AmbiguousError struct {
	Name       names.MultiName
	Candidates [2]unit.Resolution
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous reference %s: %s (%s) and %s (%s)",
		e.Name.Local,
		e.Candidates[0].QName, e.Candidates[0].Source,
		e.Candidates[1].QName, e.Candidates[1].Source)
}

// Stats counts cache behaviour of Resolve.
type Stats struct {
	Hits   int
	Misses int
}

// Table is the session symbol table.
type Table struct {
	providers []Provider
	claims    map[names.QName]*source.Source
	cache     map[string]unit.Resolution
	bundles   map[string]*source.Source
	stats     Stats
}

// New creates a table searching providers in the given precedence:
// explicit list, source path, resource container, archives.
func New(providers ...Provider) *Table {
	ps := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &Table{
		providers: ps,
		claims:    make(map[names.QName]*source.Source),
		cache:     make(map[string]unit.Resolution),
		bundles:   make(map[string]*source.Source),
	}
}

// Lookup returns the source for an exact name. Claims made by compiled
// units win over providers.
func (t *Table) Lookup(q names.QName) *source.Source {
	if src, ok := t.claims[q]; ok {
		return src
	}
	for _, p := range t.providers {
		if src := p.FindSource(q.Namespace, q.Local); src != nil {
			return src
		}
	}
	return nil
}

// Resolve maps m to exactly one definition. All candidate namespaces are
// scanned: a second distinct match is an ambiguity, never a silent pick.
// Only successes are cached.
func (t *Table) Resolve(m names.MultiName) (unit.Resolution, error) {
	key := m.Key()
	if res, ok := t.cache[key]; ok {
		t.stats.Hits++
		return res, nil
	}
	t.stats.Misses++

	var (
		found bool
		first unit.Resolution
	)
	for _, ns := range m.Namespaces {
		q := names.QName{Namespace: ns, Local: m.Local}
		src := t.Lookup(q)
		if src == nil {
			continue
		}
		cand := unit.Resolution{QName: q, Source: src.Name}
		if !found {
			first, found = cand, true
			continue
		}
		if cand != first {
			return unit.Resolution{}, &AmbiguousError{Name: m, Candidates: [2]unit.Resolution{first, cand}}
		}
	}
	if !found {
		return unit.Resolution{}, fmt.Errorf("%w: %s", ErrUnresolved, m)
	}
	if _, claimed := t.claims[first.QName]; !claimed {
		t.claims[first.QName] = t.Lookup(first.QName)
	}
	t.cache[key] = first
	return first, nil
}

// Register claims q for src. A name claimed by a different source is
// never reassigned.
func (t *Table) Register(q names.QName, src *source.Source) error {
	if prev, ok := t.claims[q]; ok && prev.Name != src.Name {
		return fmt.Errorf("%w: %s by %s", ErrDuplicate, q, prev.Name)
	}
	t.claims[q] = src
	return nil
}

// Unregister frees q (its source was deleted) and drops cached
// resolutions pointing at it.
func (t *Table) Unregister(q names.QName) {
	delete(t.claims, q)
	for key, res := range t.cache {
		if res.QName == q {
			delete(t.cache, key)
		}
	}
}

// Claimed returns the source that claimed q, if any.
func (t *Table) Claimed(q names.QName) (*source.Source, bool) {
	src, ok := t.claims[q]
	return src, ok
}

// ResolveBundle finds the bundle name for locale, caching per locale.
func (t *Table) ResolveBundle(locale, name string) (*source.Source, error) {
	key := locale + "/" + name
	if src, ok := t.bundles[key]; ok {
		return src, nil
	}
	for _, p := range t.providers {
		bp, ok := p.(BundleProvider)
		if !ok {
			continue
		}
		if src := bp.FindBundle(locale, name); src != nil {
			t.bundles[key] = src
			return src, nil
		}
	}
	return nil, fmt.Errorf("%w: %s for locale %s", ErrNoBundle, name, locale)
}

// Stats returns cache counters.
func (t *Table) Stats() Stats {
	return t.stats
}

// Describe formats a resolution for diagnostics.
func Describe(res unit.Resolution) string {
	var b strings.Builder
	b.WriteString(res.QName.String())
	b.WriteString(" from ")
	b.WriteString(res.Source)
	return b.String()
}
