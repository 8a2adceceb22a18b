package incr

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"asbuild/internal/names"
	"asbuild/internal/source"
	"asbuild/internal/unit"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Schema:  SchemaVersion,
		Project: "demo",
		Entries: []string{"A.as"},
		Units: []UnitRecord{{
			Name:     "A.as",
			Mime:     string(source.MimeScript),
			Digest:   source.Sum([]byte("class A\n")),
			Artifact: []byte("unit A\n"),
			Exports:  []ExportRecord{exportRecord(names.Definition{Name: names.QName{Local: "A"}, Owner: names.ClassOwner{Super: "B"}})},
		}},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := st.Get("missing"); ok || err != nil {
		t.Fatalf("missing snapshot: ok=%v err=%v", ok, err)
	}
	if err := st.Put("k", sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	got, ok, err := st.Get("k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Project != "demo" || len(got.Units) != 1 || string(got.Units[0].Artifact) != "unit A\n" {
		t.Fatalf("snapshot = %+v", got)
	}
	def := got.Units[0].Exports[0].definition()
	if o, ok := def.Owner.(names.ClassOwner); !ok || o.Super != "B" {
		t.Fatalf("owner lost: %#v", def.Owner)
	}
	entries, _ := os.ReadDir(filepath.Join(st.Dir(), "snapshots"))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}

	if err := st.Drop("k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := st.Get("k"); ok {
		t.Fatal("dropped snapshot still readable")
	}
	if err := st.DropAll(); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeRejectsTampering(t *testing.T) {
	data, err := sampleSnapshot().Encode()
	if err != nil {
		t.Fatal(err)
	}
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		t.Fatal(err)
	}

	bad := env
	bad.Body = append([]byte(nil), env.Body...)
	bad.Body[len(bad.Body)-1] ^= 0xff
	raw, _ := msgpack.Marshal(&bad)
	if _, err := Decode(raw); !errors.Is(err, ErrChecksum) {
		t.Fatalf("tampered body: %v", err)
	}

	old := env
	old.Schema = SchemaVersion + 1
	raw, _ = msgpack.Marshal(&old)
	if _, err := Decode(raw); !errors.Is(err, ErrSchema) {
		t.Fatalf("foreign schema: %v", err)
	}
}

func TestRestoreMissingSourceLooksDeleted(t *testing.T) {
	units := sampleSnapshot().Restore(func(string) (*source.Source, bool) { return nil, false })
	u := units["A.as"]
	if !u.Done() || u.Source.Exists() {
		t.Fatalf("done=%v exists=%v", u.Done(), u.Source.Exists())
	}
	if !u.Workflow.Reached(unit.PhasePostprocess) || u.Exports[0].Name.Local != "A" {
		t.Fatalf("restored unit = %+v", u)
	}
}

func TestProjectKeyStable(t *testing.T) {
	if ProjectKey("/a", "x") != ProjectKey("/a", "x") || ProjectKey("/a", "x") == ProjectKey("/a", "y") {
		t.Fatal("project key not a function of root and name")
	}
}
