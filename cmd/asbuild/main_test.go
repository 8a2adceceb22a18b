package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"asbuild/internal/buildpipeline"
	"asbuild/internal/source"
	"asbuild/internal/unit"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	err := rootCmd.Execute()
	return buf.String(), err
}

func sampleProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"asbuild.toml":    "[project]\nname = \"demo\"\nentries = [\"Main.as\"]\nsource-path = [\"src\"]\n",
		"src/Main.as":     "class Main extends Base\n",
		"src/Base.as":     "class Base\n",
		"src/Unused.mxml": "root Main\n",
	}
	for name, text := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestBuildThenCleanCycle(t *testing.T) {
	root := sampleProject(t)
	cache := t.TempDir()

	out, err := execute(t, "build", "--ui=off", "--cache-dir", cache, root)
	if err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 unit(s), 2 recompiled") {
		t.Fatalf("first build output:\n%s", out)
	}

	out, err = execute(t, "build", "--ui=off", "--cache-dir", cache, root)
	if err != nil {
		t.Fatalf("rebuild: %v\n%s", err, out)
	}
	if !strings.Contains(out, "0 recompiled") || !strings.Contains(out, "restored from snapshot") {
		t.Fatalf("second build output:\n%s", out)
	}

	out, err = execute(t, "clean", "--cache-dir", cache, root)
	if err != nil || !strings.Contains(out, "removed snapshot of demo") {
		t.Fatalf("clean: %v\n%s", err, out)
	}
	entries, err := os.ReadDir(filepath.Join(cache, "snapshots"))
	if err != nil || len(entries) != 0 {
		t.Fatalf("snapshots left: %v %v", entries, err)
	}
}

func TestBuildReportsDiagnostics(t *testing.T) {
	root := sampleProject(t)
	if err := os.WriteFile(filepath.Join(root, "src", "Main.as"), []byte("class Main extends Missing\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "build", "--ui=off", "--no-cache", root)
	if err == nil {
		t.Fatalf("build succeeded:\n%s", out)
	}
	if !strings.Contains(out, "Main.as") || !strings.Contains(out, "ERROR") {
		t.Fatalf("diagnostics not printed:\n%s", out)
	}
}

func TestBuildWithoutManifest(t *testing.T) {
	_, err := execute(t, "build", "--ui=off", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "asbuild.toml") {
		t.Fatalf("err = %v", err)
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "version", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if payload.Tool != "asbuild" || payload.Version == "" {
		t.Fatalf("payload = %+v", payload)
	}
	versionFormat = "pretty"
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "ON": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatal("invalid mode accepted")
	}
}

func TestMarkChangedFlagsKeptUnits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.as")
	if err := os.WriteFile(path, []byte("class A\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	src := source.New("A.as", source.MimeScript, source.KindScript, source.FileContent{Path: path})
	data, err := src.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	src.RestoreCompiled(source.Sum(data))
	other := source.New("B.as", source.MimeScript, source.KindScript, source.NewBuffer([]byte("class B\n")))
	state := &buildpipeline.State{Units: map[string]*unit.Unit{"A.as": unit.New(src), "B.as": unit.New(other)}}

	if src.IsUpdated() {
		t.Fatal("restored source reported as updated")
	}
	markChanged(state, []string{path})
	if !src.IsUpdated() || other.IsUpdated() {
		t.Fatalf("A updated=%v B updated=%v", src.IsUpdated(), other.IsUpdated())
	}
	markChanged(nil, []string{path})
}
