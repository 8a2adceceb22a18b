package project

import (
	"os"
	"path/filepath"
	"sync"

	"asbuild/internal/names"
	"asbuild/internal/source"
	"asbuild/internal/symtab"
)

// sourceExts are tried in order when looking a definition up on disk.
var sourceExts = []string{".as", ".mxml"}

// SearchPath finds sources under a list of root directories by mapping
// namespace a.b and local C to a/b/C.as or a/b/C.mxml. A file found once
// keeps its *source.Source so identity is stable across lookups.
type SearchPath struct {
	mu    sync.Mutex
	roots []string
	known map[string]*source.Source
}

// NewSearchPath creates a provider over roots, in precedence order.
func NewSearchPath(roots ...string) *SearchPath {
	return &SearchPath{roots: roots, known: make(map[string]*source.Source)}
}

// FindSource implements symtab.Provider.
func (p *SearchPath) FindSource(namespace, local string) *source.Source {
	rel := symtab.PathForQName(names.QName{Namespace: namespace, Local: local})
	for _, root := range p.roots {
		for _, ext := range sourceExts {
			if src := p.open(root, rel+ext); src != nil {
				return src
			}
		}
	}
	return nil
}

// Source returns the source for a path relative to one of the roots.
func (p *SearchPath) Source(rel string) (*source.Source, bool) {
	rel = source.NormalizeName(rel)
	for _, root := range p.roots {
		if src := p.open(root, rel); src != nil {
			return src, true
		}
	}
	return nil, false
}

// Roots returns the search roots.
func (p *SearchPath) Roots() []string {
	return p.roots
}

func (p *SearchPath) open(root, rel string) *source.Source {
	name := source.NormalizeName(rel)
	p.mu.Lock()
	defer p.mu.Unlock()
	if src, ok := p.known[name]; ok {
		if src.Exists() {
			return src
		}
		return nil
	}
	full := filepath.Join(root, filepath.FromSlash(name))
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return nil
	}
	mime, ok := source.MimeForPath(name)
	if !ok {
		return nil
	}
	src := source.New(name, mime, source.KindScript, source.FileContent{Path: full})
	src.Origin = root
	p.known[name] = src
	return src
}
