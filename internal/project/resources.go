package project

import (
	"os"
	"path/filepath"
	"sync"

	"asbuild/internal/source"
)

// Resources finds locale bundles on disk: <dir>/<locale>/<name>.properties.
type Resources struct {
	mu    sync.Mutex
	dirs  []string
	known map[string]*source.Source
}

// NewResources creates a bundle provider over dirs, in precedence order.
func NewResources(dirs ...string) *Resources {
	return &Resources{dirs: dirs, known: make(map[string]*source.Source)}
}

// FindBundle implements symtab.BundleProvider.
func (r *Resources) FindBundle(locale, name string) *source.Source {
	key := locale + "/" + name
	r.mu.Lock()
	defer r.mu.Unlock()
	if src, ok := r.known[key]; ok && src.Exists() {
		return src
	}
	for _, dir := range r.dirs {
		full := filepath.Join(dir, locale, name+".properties")
		if info, err := os.Stat(full); err != nil || info.IsDir() {
			continue
		}
		src := source.New("locale/"+key+".properties", source.MimeProperties, source.KindResource, source.FileContent{Path: full})
		src.Origin = dir
		r.known[key] = src
		return src
	}
	return nil
}

// FindSource implements symtab.Provider; resources define no units.
func (r *Resources) FindSource(string, string) *source.Source {
	return nil
}
