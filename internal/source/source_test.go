package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeNameIsStable(t *testing.T) {
	cases := map[string]string{
		"./src/a/B.as":      "src/a/B.as",
		"src//a/../a/B.as":  "src/a/B.as",
		"src/cafe\u0301.as": "src/caf\u00e9.as",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeStripsBOMAndCRLF(t *testing.T) {
	got := Normalize([]byte("\xEF\xBB\xBFa\r\nb\rc"))
	if string(got) != "a\nb\rc" {
		t.Fatalf("Normalize = %q", got)
	}
}

func TestIsUpdatedTracksBufferContent(t *testing.T) {
	buf := NewBuffer([]byte("class A"))
	src := New("A.as", MimeScript, KindScript, buf)
	if src.IsUpdated() {
		t.Fatal("never compiled source must not report updated")
	}
	d, err := src.Checksum()
	if err != nil {
		t.Fatal(err)
	}
	src.MarkCompiled(d)
	if src.IsUpdated() {
		t.Fatal("fresh compile must not be updated")
	}

	buf.Set([]byte("class A"))
	if src.IsUpdated() {
		t.Fatal("same bytes with a new stamp must not count as updated")
	}
	buf.Set([]byte("class A extends B"))
	if !src.IsUpdated() {
		t.Fatal("changed bytes must count as updated")
	}
}

func TestFileContentChecksum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.as")
	if err := os.WriteFile(path, []byte("class A\r\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	src := New(path, MimeScript, KindScript, FileContent{Path: path})
	d, err := src.Checksum()
	if err != nil {
		t.Fatal(err)
	}
	if d != Sum([]byte("class A\n")) {
		t.Fatalf("checksum must be over normalized content")
	}
	if !src.Exists() {
		t.Fatal("file should exist")
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if src.Exists() {
		t.Fatal("file should be gone")
	}
}

func TestMimeForPath(t *testing.T) {
	if m, ok := MimeForPath("a/B.MXML"); !ok || m != MimeMarkup {
		t.Fatalf("MimeForPath = %q %v", m, ok)
	}
	if _, ok := MimeForPath("a/B.txt"); ok {
		t.Fatal("unexpected mime for .txt")
	}
}
