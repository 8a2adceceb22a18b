package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest is a parsed asbuild.toml.
type Manifest struct {
	Path    string
	Root    string
	Project Settings
}

// Settings is the [project] table. Paths are relative to the manifest.
type Settings struct {
	Name       string   `toml:"name"`
	Entries    []string `toml:"entries"`
	SourcePath []string `toml:"source-path"`
	Archives   []string `toml:"archives"`
	Resources  []string `toml:"resources"`
}

var (
	// ErrProjectSectionMissing indicates that [project] is missing.
	ErrProjectSectionMissing = errors.New("missing [project]")
	// ErrNameMissing indicates that [project].name is missing.
	ErrNameMissing = errors.New("missing [project].name")
	// ErrNoEntries indicates that [project].entries is empty.
	ErrNoEntries = errors.New("[project].entries is empty")
)

type manifestFile struct {
	Project Settings `toml:"project"`
}

// LoadManifest parses the [project] section of path. Unknown tables are
// left for the configuration loader.
func LoadManifest(path string) (*Manifest, error) {
	var cfg manifestFile
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("project") {
		return nil, fmt.Errorf("%s: %w", path, ErrProjectSectionMissing)
	}
	if !meta.IsDefined("project", "name") || strings.TrimSpace(cfg.Project.Name) == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrNameMissing)
	}
	if len(cfg.Project.Entries) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoEntries)
	}
	m := &Manifest{Path: path, Root: filepath.Dir(path), Project: cfg.Project}
	m.Project.Name = strings.TrimSpace(m.Project.Name)
	if len(m.Project.SourcePath) == 0 {
		m.Project.SourcePath = []string{"."}
	}
	for _, list := range [][]string{m.Project.SourcePath, m.Project.Resources} {
		for _, dir := range list {
			if _, err := ResolveDir(m.Root, dir); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	return m, nil
}

// ResolveDir resolves a directory relative to root and validates that it
// exists and stays inside root.
func ResolveDir(root, dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", fmt.Errorf("empty directory")
	}
	if filepath.IsAbs(dir) {
		return "", fmt.Errorf("invalid directory %q: must be relative", dir)
	}
	full := filepath.Join(root, filepath.Clean(filepath.FromSlash(dir)))
	if !pathWithin(root, full) {
		return "", fmt.Errorf("invalid directory %q: escapes project root", dir)
	}
	info, err := os.Stat(full)
	if err != nil {
		return "", fmt.Errorf("invalid directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("invalid directory %q: not a directory", dir)
	}
	return full, nil
}

func pathWithin(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
