package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestStringIncludesMetadata(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })

	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })

	Version, GitCommit, BuildDate = "1.2.3-rc1", "abc123def4567890", "2024-01-15"
	if got, want := String(), "asbuild 1.2.3-rc1 (abc123def456) built 2024-01-15"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}

	GitCommit, BuildDate = "", ""
	if got := String(); got != "asbuild 1.2.3-rc1" {
		t.Fatalf("String() = %q", got)
	}
}
