package unit

import (
	"sort"

	"asbuild/internal/names"
)

// Resolution is what a MultiName resolved to: a definite name and the source
// providing it.
type Resolution struct {
	QName  names.QName
	Source string
}

// RefSet holds the unresolved references of one kind: a FIFO queue of
// pending names plus the history of resolutions already made.
type RefSet struct {
	pending []names.MultiName
	queued  map[string]struct{}
	history map[string]Resolution
	deps    []string
	depSet  map[string]struct{}
}

// Add queues m unless it is already pending or resolved.
func (r *RefSet) Add(m names.MultiName) bool {
	key := m.Key()
	if _, ok := r.history[key]; ok {
		return false
	}
	if _, ok := r.queued[key]; ok {
		return false
	}
	if r.queued == nil {
		r.queued = make(map[string]struct{})
	}
	r.queued[key] = struct{}{}
	r.pending = append(r.pending, m)
	return true
}

// Pending returns queued names without removing them.
func (r *RefSet) Pending() []names.MultiName {
	return r.pending
}

// Empty reports whether nothing is queued.
func (r *RefSet) Empty() bool {
	return len(r.pending) == 0
}

// Take removes and returns every queued name in FIFO order.
func (r *RefSet) Take() []names.MultiName {
	out := r.pending
	r.pending = nil
	for _, m := range out {
		delete(r.queued, m.Key())
	}
	return out
}

// Record stores a resolution and remembers the providing source as a
// dependency (insertion order, no duplicates).
func (r *RefSet) Record(m names.MultiName, res Resolution) {
	if r.history == nil {
		r.history = make(map[string]Resolution)
		r.depSet = make(map[string]struct{})
	}
	r.history[m.Key()] = res
	if _, ok := r.depSet[res.Source]; !ok {
		r.depSet[res.Source] = struct{}{}
		r.deps = append(r.deps, res.Source)
	}
}

// Lookup returns the recorded resolution of m.
func (r *RefSet) Lookup(m names.MultiName) (Resolution, bool) {
	res, ok := r.history[m.Key()]
	return res, ok
}

// History returns a copy of the resolution history keyed by MultiName.Key.
func (r *RefSet) History() map[string]Resolution {
	out := make(map[string]Resolution, len(r.history))
	for k, v := range r.history {
		out[k] = v
	}
	return out
}

// HistoryKeys returns history keys in sorted order.
func (r *RefSet) HistoryKeys() []string {
	keys := make([]string, 0, len(r.history))
	for k := range r.history {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Deps returns the names of sources this kind resolved to.
func (r *RefSet) Deps() []string {
	return r.deps
}

// Reset empties the set.
func (r *RefSet) Reset() {
	*r = RefSet{}
}
