// Package project turns an asbuild.toml manifest into the source providers
// of a build: the entry list, the source path, resource directories and
// pre-compiled archives.
package project

import (
	"errors"
	"fmt"
	"path/filepath"

	"asbuild/internal/incr"
	"asbuild/internal/source"
	"asbuild/internal/symtab"
)

// ErrMissingEntry is returned when an entry is not found on the source path.
var ErrMissingEntry = errors.New("entry not found on source path")

// Project is an opened manifest with its providers.
type Project struct {
	Manifest  *Manifest
	Key       string
	Paths     *SearchPath
	Resources *Resources
	Archives  []*Archive
}

// Load finds the manifest above startDir and opens it.
func Load(startDir string) (*Project, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	p, err := Open(path)
	return p, true, err
}

// Open parses the manifest at path and opens every archive it lists.
func Open(path string) (*Project, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	p := &Project{Manifest: m, Key: incr.ProjectKey(m.Root, m.Project.Name)}

	roots := make([]string, 0, len(m.Project.SourcePath))
	for _, dir := range m.Project.SourcePath {
		full, err := ResolveDir(m.Root, dir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		roots = append(roots, full)
	}
	p.Paths = NewSearchPath(roots...)

	dirs := make([]string, 0, len(m.Project.Resources))
	for _, dir := range m.Project.Resources {
		full, err := ResolveDir(m.Root, dir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		dirs = append(dirs, full)
	}
	p.Resources = NewResources(dirs...)

	for _, rel := range m.Project.Archives {
		a, err := OpenArchive(filepath.Join(m.Root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, err
		}
		p.Archives = append(p.Archives, a)
	}
	return p, nil
}

// Name returns the project name.
func (p *Project) Name() string {
	return p.Manifest.Project.Name
}

// EntryNames returns the normalized entry names.
func (p *Project) EntryNames() []string {
	out := make([]string, len(p.Manifest.Project.Entries))
	for i, e := range p.Manifest.Project.Entries {
		out[i] = source.NormalizeName(e)
	}
	return out
}

// Entries opens every entry. All missing entries are reported together.
func (p *Project) Entries() ([]*source.Source, error) {
	var (
		out  []*source.Source
		errs []error
	)
	for _, name := range p.EntryNames() {
		src, ok := p.Paths.Source(name)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingEntry, name))
			continue
		}
		out = append(out, src)
	}
	return out, errors.Join(errs...)
}

// Providers lists the lookup providers in precedence order: the explicit
// entries, the source path, resources and archives.
func (p *Project) Providers(entries []*source.Source) []symtab.Provider {
	ps := []symtab.Provider{symtab.NewContainer(entries...), p.Paths, p.Resources}
	for _, a := range p.Archives {
		ps = append(ps, a)
	}
	return ps
}

// Symbols returns a fresh symbol table over the project providers.
func (p *Project) Symbols(entries []*source.Source) *symtab.Table {
	return symtab.New(p.Providers(entries)...)
}

// Find returns the current source for a unit name recorded by an earlier
// build. It implements incr.SourceFinder.
func (p *Project) Find(name string) (*source.Source, bool) {
	if source.Ext(name) == ".abc" {
		q := symtab.QNameForPath(name)
		for _, a := range p.Archives {
			if src := a.FindSource(q.Namespace, q.Local); src != nil && src.Name == name {
				return src, true
			}
		}
		return nil, false
	}
	return p.Paths.Source(name)
}

// WatchDirs returns the directories whose changes affect the build.
func (p *Project) WatchDirs() []string {
	out := append([]string{p.Manifest.Root}, p.Paths.Roots()...)
	out = append(out, p.Resources.dirs...)
	return out
}

// IsArchive reports whether path is one of the project archives.
func (p *Project) IsArchive(path string) bool {
	for _, a := range p.Archives {
		if filepath.Clean(a.Path) == filepath.Clean(path) {
			return true
		}
	}
	return false
}
