package project

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"asbuild/internal/names"
	"asbuild/internal/source"
	"asbuild/internal/symtab"
)

// Archive is a pre-compiled library: a zip whose .abc entries are archived
// units and whose locale/<locale>/<name>.properties entries are bundles.
type Archive struct {
	Path    string
	units   map[names.QName]*source.Source
	bundles map[string]*source.Source
}

// OpenArchive reads every relevant entry of the zip at p into memory.
func OpenArchive(p string) (*Archive, error) {
	r, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", p, err)
	}
	defer func() { _ = r.Close() }()

	a := &Archive{Path: p, units: make(map[names.QName]*source.Source), bundles: make(map[string]*source.Source)}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := source.NormalizeName(f.Name)
		mime, ok := source.MimeForPath(name)
		if !ok || (mime != source.MimeArchived && mime != source.MimeProperties) {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("archive %s: %w", p, err)
		}
		content := source.ArchiveEntryContent{Archive: p, Entry: name, Data: source.Normalize(data), CRC: f.CRC32}
		if mime == source.MimeProperties {
			locale, bundle, ok := bundlePath(name)
			if !ok {
				continue
			}
			src := source.New(name, mime, source.KindResource, content)
			src.Origin = p
			a.bundles[locale+"/"+bundle] = src
			continue
		}
		src := source.New(name, mime, source.KindArchived, content)
		src.Origin = p
		a.units[symtab.QNameForPath(name)] = src
	}
	return a, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	return data, nil
}

// bundlePath splits "locale/en_US/strings.properties".
func bundlePath(name string) (locale, bundle string, ok bool) {
	parts := strings.Split(name, "/")
	if len(parts) != 3 || parts[0] != "locale" {
		return "", "", false
	}
	return parts[1], strings.TrimSuffix(parts[2], path.Ext(parts[2])), true
}

// FindSource implements symtab.Provider.
func (a *Archive) FindSource(namespace, local string) *source.Source {
	return a.units[names.QName{Namespace: namespace, Local: local}]
}

// FindBundle implements symtab.BundleProvider.
func (a *Archive) FindBundle(locale, name string) *source.Source {
	return a.bundles[locale+"/"+name]
}

// Units returns the archived units sorted by name.
func (a *Archive) Units() []*source.Source {
	out := make([]*source.Source, 0, len(a.units))
	for _, src := range a.units {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
