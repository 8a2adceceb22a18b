package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestDebouncerMergesBurst(t *testing.T) {
	in := make(chan ChangeEvent)
	d := NewDebouncer(in, 30*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	in <- ChangeEvent{Kind: ChangeSource, Paths: []string{"b.as"}}
	in <- ChangeEvent{Kind: ChangeStructure, Paths: []string{"asbuild.toml"}}
	in <- ChangeEvent{Kind: ChangeSource, Paths: []string{"a.as", "b.as"}}

	select {
	case ev := <-d.Output():
		if ev.Kind != ChangeStructure {
			t.Fatalf("kind = %v", ev.Kind)
		}
		if !slices.Equal(ev.Paths, []string{"a.as", "asbuild.toml", "b.as"}) {
			t.Fatalf("paths = %v", ev.Paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no debounced event")
	}

	close(in)
	if _, ok := <-d.Output(); ok {
		t.Fatal("output not closed after input closed")
	}
}

func TestDebouncerMaxWait(t *testing.T) {
	in := make(chan ChangeEvent)
	d := NewDebouncer(in, time.Hour, 40*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	in <- ChangeEvent{Paths: []string{"a.as"}}
	select {
	case ev := <-d.Output():
		if len(ev.Paths) != 1 {
			t.Fatalf("paths = %v", ev.Paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("max wait did not flush")
	}
}

func TestFileWatcherReportsEdits(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "src")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	classify := func(path string) (ChangeKind, bool) {
		switch filepath.Ext(path) {
		case ".as":
			return ChangeSource, true
		case ".toml":
			return ChangeStructure, true
		}
		return ChangeSource, false
	}
	fw, err := NewFileWatcher([]string{root}, classify, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := fw.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if fw.Watched() != 2 {
		t.Fatalf("watched = %d", fw.Watched())
	}

	if err := os.WriteFile(filepath.Join(sub, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(sub, "A.as")
	if err := os.WriteFile(target, []byte("class A\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-fw.Events():
		if ev.Kind != ChangeSource || !slices.Contains(ev.Paths, target) {
			t.Fatalf("event = %+v", ev)
		}
		for _, p := range ev.Paths {
			if filepath.Ext(p) == ".txt" {
				t.Fatalf("irrelevant path reported: %v", ev.Paths)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change event")
	}

	cancel()
	for range fw.Events() {
	}
}
