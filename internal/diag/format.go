package diag

import (
	"sort"
	"strings"
)

// FormatShort renders diagnostics one per line in a stable order:
// "<pos>: <SEV> <ID>: <message>". Notes follow indented when includeNotes is set.
// Two runs producing the same diagnostics in different orders format identically.
func FormatShort(diags []Diagnostic, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	sorted := make([]Diagnostic, len(diags))
	copy(sorted, diags)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	var b strings.Builder
	for _, d := range sorted {
		b.WriteString(FormatOne(d))
		b.WriteByte('\n')
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			b.WriteString("    note: ")
			if !n.Pos.IsZero() {
				b.WriteString(n.Pos.String())
				b.WriteString(": ")
			}
			b.WriteString(firstLine(n.Msg))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// FormatOne renders a single diagnostic without notes.
func FormatOne(d Diagnostic) string {
	var b strings.Builder
	if !d.Primary.IsZero() {
		b.WriteString(d.Primary.String())
		b.WriteString(": ")
	}
	b.WriteString(d.Severity.String())
	b.WriteByte(' ')
	b.WriteString(d.Code.ID())
	b.WriteString(": ")
	b.WriteString(firstLine(d.Message))
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
