// Package names defines resolved and unresolved references.
package names

import (
	"strings"
)

// QName is a fully resolved reference: one namespace plus one local name.
type QName struct {
	Namespace string
	Local     string
}

func (q QName) String() string {
	if q.Namespace == "" {
		return q.Local
	}
	return q.Namespace + ":" + q.Local
}

// IsZero reports whether q is the empty name.
func (q QName) IsZero() bool {
	return q.Namespace == "" && q.Local == ""
}

// ParseQName splits "a.b:C" (or "a.b.C") into a QName.
func ParseQName(s string) QName {
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		return QName{Namespace: s[:i], Local: s[i+1:]}
	}
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return QName{Namespace: s[:i], Local: s[i+1:]}
	}
	return QName{Local: s}
}

// MultiName is an unresolved reference: a local name plus the candidate
// namespaces to search, in priority order.
type MultiName struct {
	Namespaces []string
	Local      string
}

// NewMultiName builds a MultiName dropping duplicate namespaces while
// keeping first-seen order.
func NewMultiName(local string, namespaces ...string) MultiName {
	seen := make(map[string]struct{}, len(namespaces))
	out := make([]string, 0, len(namespaces))
	for _, ns := range namespaces {
		if _, dup := seen[ns]; dup {
			continue
		}
		seen[ns] = struct{}{}
		out = append(out, ns)
	}
	return MultiName{Namespaces: out, Local: local}
}

// Key is a stable identity used for caches and history maps. A name with no
// namespaces has no '@', so it never collides with one searched only in
// the default namespace.
func (m MultiName) Key() string {
	if len(m.Namespaces) == 0 {
		return m.Local
	}
	var b strings.Builder
	b.WriteString(m.Local)
	b.WriteByte('@')
	for i, ns := range m.Namespaces {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(ns)
	}
	return b.String()
}

func (m MultiName) String() string {
	return m.Local + " in [" + strings.Join(m.Namespaces, ", ") + "]"
}

// ParseKey is the inverse of Key.
func ParseKey(key string) MultiName {
	local, rest, found := strings.Cut(key, "@")
	if !found {
		return MultiName{Local: local}
	}
	return MultiName{Local: local, Namespaces: strings.Split(rest, "|")}
}
