// Package watch reports project file changes as debounced batches.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"asbuild/internal/trace"
)

// ChangeKind orders changes by how much of the previous build they void.
type ChangeKind int

const (
	// ChangeSource is an edit of a source or resource file.
	ChangeSource ChangeKind = iota
	// ChangeStructure is an edit of the manifest or an archive; the next
	// build must start from scratch.
	ChangeStructure
)

func (k ChangeKind) String() string {
	if k == ChangeStructure {
		return "structure"
	}
	return "source"
}

// ChangeEvent is a batch of file system changes.
type ChangeEvent struct {
	Kind      ChangeKind
	Paths     []string
	Timestamp time.Time
}

// Classifier decides whether a path is relevant and how.
type Classifier func(path string) (ChangeKind, bool)

// flushDelay batches the burst of events a single save produces.
const flushDelay = 50 * time.Millisecond

// FileWatcher watches directory trees.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	dirs     []string
	classify Classifier
	tracer   trace.Tracer
	events   chan ChangeEvent

	mu      sync.Mutex
	watched map[string]struct{}
}

// NewFileWatcher creates a watcher over dirs. Nothing is watched until Start.
func NewFileWatcher(dirs []string, classify Classifier, tracer trace.Tracer) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if tracer == nil {
		tracer = trace.Nop
	}
	return &FileWatcher{
		watcher:  w,
		dirs:     dirs,
		classify: classify,
		tracer:   tracer,
		events:   make(chan ChangeEvent, 16),
		watched:  make(map[string]struct{}),
	}, nil
}

// Start adds every directory below the roots and processes events until ctx
// is done. The events channel is closed then.
func (fw *FileWatcher) Start(ctx context.Context) error {
	for _, dir := range fw.dirs {
		if err := fw.addTree(dir); err != nil {
			_ = fw.watcher.Close()
			return err
		}
	}
	go fw.processEvents(ctx)
	return nil
}

// Events returns the channel of change events.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Watched returns the number of watched directories.
func (fw *FileWatcher) Watched() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return len(fw.watched)
}

func (fw *FileWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// каталог мог исчезнуть между событиями
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		fw.mu.Lock()
		_, seen := fw.watched[path]
		fw.watched[path] = struct{}{}
		fw.mu.Unlock()
		if seen {
			return nil
		}
		if err := fw.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer func() { _ = fw.watcher.Close() }()

	pending := map[ChangeKind][]string{}
	flushTimer := time.NewTimer(flushDelay)
	flushTimer.Stop()

	flush := func() {
		for _, kind := range []ChangeKind{ChangeStructure, ChangeSource} {
			paths := pending[kind]
			if len(paths) == 0 {
				continue
			}
			select {
			case fw.events <- ChangeEvent{Kind: kind, Paths: paths, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
		pending = map[ChangeKind][]string{}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				// новые каталоги тоже надо слушать
				if err := fw.addTree(event.Name); err != nil {
					trace.Point(fw.tracer, trace.ScopeDriver, "watch-error", err.Error(), 0)
				}
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			kind, ok := fw.classify(event.Name)
			if !ok {
				continue
			}
			if !slices.Contains(pending[kind], event.Name) {
				pending[kind] = append(pending[kind], event.Name)
			}
			flushTimer.Reset(flushDelay)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			trace.Point(fw.tracer, trace.ScopeDriver, "watch-error", err.Error(), 0)
		}
	}
}
