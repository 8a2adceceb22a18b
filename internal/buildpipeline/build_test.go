package buildpipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"asbuild/internal/diag"
	"asbuild/internal/incr"
	"asbuild/internal/project"
	"asbuild/internal/session"
)

var writes int

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// mtime resolution of some filesystems is coarse
	writes++
	future := time.Now().Add(time.Duration(writes) * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
}

func newProject(t *testing.T, entries string, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, project.ManifestName), "[project]\nname = \"demo\"\nentries = ["+entries+"]\nsource-path = [\"src\"]\n")
	for name, text := range files {
		writeFile(t, filepath.Join(root, "src", filepath.FromSlash(name)), text)
	}
	return root
}

func openProject(t *testing.T, root string) *project.Project {
	t.Helper()
	p, err := project.Open(filepath.Join(root, project.ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func chainFiles() map[string]string {
	return map[string]string{
		"Main.as": "class Main extends Base\n",
		"Base.as": "class Base\n    body v1\n",
	}
}

func TestBuildPersistsAndRestores(t *testing.T) {
	root := newProject(t, `"Main.as"`, chainFiles())
	store, err := incr.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	build := func() Result {
		t.Helper()
		res, err := Build(context.Background(), &Request{
			Project: openProject(t, root),
			Config:  session.DefaultConfig(),
			Store:   store,
		})
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		return res
	}

	first := build()
	if first.Restored || !slices.Equal(first.Recompiled, []string{"Base.as", "Main.as"}) {
		t.Fatalf("first: restored=%v recompiled=%v", first.Restored, first.Recompiled)
	}
	if !first.Timings.Has(StagePersist) {
		t.Fatal("snapshot was not persisted")
	}

	second := build()
	if !second.Restored || len(second.Recompiled) != 0 {
		t.Fatalf("second: restored=%v recompiled=%v", second.Restored, second.Recompiled)
	}
	if len(second.Sched.Done()) != 2 {
		t.Fatalf("second done = %v", second.Sched.Done())
	}

	writeFile(t, filepath.Join(root, "src", "Base.as"), "class Base\n    body v2\n    more\n")
	third := build()
	if !slices.Equal(third.Recompiled, []string{"Base.as"}) {
		t.Fatalf("third recompiled %v, report:\n%s", third.Recompiled, third.Report.Summary())
	}
}

func TestInProcessPreviousState(t *testing.T) {
	root := newProject(t, `"Main.as"`, chainFiles())
	p := openProject(t, root)
	first, err := Build(context.Background(), &Request{Project: p, Config: session.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Build(context.Background(), &Request{Project: p, Config: session.DefaultConfig(), Previous: first.State})
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Recompiled) != 0 || second.Restored {
		t.Fatalf("recompiled %v", second.Recompiled)
	}

	writeFile(t, filepath.Join(root, "src", "Base.as"), "import lib.*\nclass Base\n")
	third, err := Build(context.Background(), &Request{Project: p, Config: session.DefaultConfig(), Previous: second.State})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(third.Recompiled, []string{"Base.as", "Main.as"}) {
		t.Fatalf("signature change recompiled %v", third.Recompiled)
	}
}

func TestMissingEntryReported(t *testing.T) {
	root := newProject(t, `"Nope.as"`, chainFiles())
	bag := diag.NewBag(10)
	res, err := Build(context.Background(), &Request{
		Project:  openProject(t, root),
		Config:   session.DefaultConfig(),
		Reporter: diag.BagReporter{Bag: bag},
	})
	if !errors.Is(err, project.ErrMissingEntry) {
		t.Fatalf("err = %v", err)
	}
	if res.Errors != 1 || bag.Len() != 1 || bag.Items()[0].Code != diag.ProjMissingEntry {
		t.Fatalf("diagnostics: %v", bag.Items())
	}
}

func TestErrorsFailBuild(t *testing.T) {
	root := newProject(t, `"Main.as"`, map[string]string{"Main.as": "class Main extends Missing\n"})
	res, err := Build(context.Background(), &Request{Project: openProject(t, root), Config: session.DefaultConfig()})
	if !errors.Is(err, ErrBuildFailed) {
		t.Fatalf("err = %v", err)
	}
	if res.Errors == 0 || res.Status != session.StatusCompleted {
		t.Fatalf("errors=%d status=%v", res.Errors, res.Status)
	}
}

func TestProgressEvents(t *testing.T) {
	root := newProject(t, `"Main.as"`, chainFiles())
	p := openProject(t, root)
	sink := &RecordingSink{}
	first, err := Build(context.Background(), &Request{Project: p, Config: session.DefaultConfig(), Progress: sink})
	if err != nil {
		t.Fatal(err)
	}
	events := sink.Events()
	last := 0.0
	for _, ev := range events {
		if ev.Percent < last {
			t.Fatalf("percent went back from %v to %v", last, ev.Percent)
		}
		last = ev.Percent
	}
	if last != 100 {
		t.Fatalf("final percent = %v", last)
	}
	// Base.as is spliced mid-run and must still be announced
	var queuedBase bool
	for _, ev := range events {
		if ev.File == "Base.as" && ev.Status == StatusQueued {
			queuedBase = true
		}
	}
	if !queuedBase {
		t.Fatal("spliced unit was never queued")
	}

	sink = &RecordingSink{}
	if _, err := Build(context.Background(), &Request{Project: p, Config: session.DefaultConfig(), Progress: sink, Previous: first.State}); err != nil {
		t.Fatal(err)
	}
	skipped := 0
	for _, ev := range sink.Events() {
		if ev.Status == StatusSkipped {
			skipped++
		}
	}
	if skipped != 2 {
		t.Fatalf("skipped events = %d", skipped)
	}
}
