package watch

import (
	"path/filepath"

	"asbuild/internal/project"
	"asbuild/internal/source"
)

// ProjectClassifier classifies paths of p: the manifest and archives are
// structural, known source and resource extensions are plain edits.
func ProjectClassifier(p *project.Project) Classifier {
	manifest := filepath.Clean(p.Manifest.Path)
	return func(path string) (ChangeKind, bool) {
		path = filepath.Clean(path)
		if path == manifest || p.IsArchive(path) {
			return ChangeStructure, true
		}
		if _, ok := source.MimeForPath(path); ok {
			return ChangeSource, true
		}
		return ChangeSource, false
	}
}
