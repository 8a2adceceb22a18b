package symtab

import (
	"path"
	"strings"
	"sync"

	"asbuild/internal/names"
	"asbuild/internal/source"
)

// Provider finds the source defining (namespace, local).
type Provider interface {
	FindSource(namespace, local string) *source.Source
}

// BundleProvider finds a resource bundle for a locale.
type BundleProvider interface {
	FindBundle(locale, name string) *source.Source
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(namespace, local string) *source.Source

func (f ProviderFunc) FindSource(namespace, local string) *source.Source {
	return f(namespace, local)
}

// QNameForPath derives the name a source path is expected to define:
// "a/b/C.as" defines a.b:C.
func QNameForPath(name string) names.QName {
	name = source.NormalizeName(name)
	dir, file := path.Split(name)
	local := strings.TrimSuffix(file, path.Ext(file))
	ns := strings.ReplaceAll(strings.TrimSuffix(dir, "/"), "/", ".")
	return names.QName{Namespace: ns, Local: local}
}

// PathForQName is the inverse of QNameForPath without the extension.
func PathForQName(q names.QName) string {
	if q.Namespace == "" {
		return q.Local
	}
	return strings.ReplaceAll(q.Namespace, ".", "/") + "/" + q.Local
}

// Container is an in-memory provider keyed by QName. It serves both the
// explicit source list and the resource container of a build.
type Container struct {
	mu      sync.RWMutex
	byName  map[names.QName]*source.Source
	bundles map[string]*source.Source
}

// NewContainer creates a container holding srcs under their path-derived names.
func NewContainer(srcs ...*source.Source) *Container {
	c := &Container{
		byName:  make(map[names.QName]*source.Source),
		bundles: make(map[string]*source.Source),
	}
	for _, s := range srcs {
		c.Add(s)
	}
	return c
}

// Add registers src under its path-derived name. Properties sources are
// registered as bundles "<locale>/<name>" taken from their last two path
// elements.
func (c *Container) Add(src *source.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if src.Mime == source.MimeProperties {
		c.bundles[bundleKeyForPath(src.Name)] = src
		return
	}
	c.byName[QNameForPath(src.Name)] = src
}

// Put registers src under an explicit name.
func (c *Container) Put(q names.QName, src *source.Source) {
	c.mu.Lock()
	c.byName[q] = src
	c.mu.Unlock()
}

// Remove drops the source registered under q.
func (c *Container) Remove(q names.QName) {
	c.mu.Lock()
	delete(c.byName, q)
	c.mu.Unlock()
}

func (c *Container) FindSource(namespace, local string) *source.Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byName[names.QName{Namespace: namespace, Local: local}]
}

func (c *Container) FindBundle(locale, name string) *source.Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bundles[locale+"/"+name]
}

// Sources returns every registered non-bundle source.
func (c *Container) Sources() []*source.Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*source.Source, 0, len(c.byName))
	for _, s := range c.byName {
		out = append(out, s)
	}
	return out
}

func bundleKeyForPath(name string) string {
	name = source.NormalizeName(name)
	dir, file := path.Split(strings.TrimSuffix(name, "/"))
	locale := path.Base(strings.TrimSuffix(dir, "/"))
	return locale + "/" + strings.TrimSuffix(file, path.Ext(file))
}
