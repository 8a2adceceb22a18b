package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"asbuild/internal/buildpipeline"
	"asbuild/internal/diag"
	"asbuild/internal/incr"
)

var severityColors = map[diag.Severity]*color.Color{
	diag.SevError:   color.New(color.FgRed, color.Bold),
	diag.SevWarning: color.New(color.FgYellow),
	diag.SevInfo:    color.New(color.FgCyan),
}

// printDiagnostics prints the bag sorted by position. Info diagnostics are
// dropped in quiet mode.
func printDiagnostics(out io.Writer, bag *diag.Bag, useColor, quiet bool) {
	bag.Dedup()
	bag.Sort()
	for _, d := range bag.Items() {
		if quiet && d.Severity == diag.SevInfo {
			continue
		}
		line := diag.FormatOne(d)
		if c, ok := severityColors[d.Severity]; ok && useColor {
			// не трогаем глобальный color.NoColor
			c.EnableColor()
			line = c.Sprint(line)
		}
		fmt.Fprintln(out, line)
		for _, n := range d.Notes {
			if n.Pos.IsZero() {
				fmt.Fprintf(out, "    note: %s\n", n.Msg)
			} else {
				fmt.Fprintf(out, "    note: %s: %s\n", n.Pos, n.Msg)
			}
		}
	}
}

func printSummary(out io.Writer, res buildpipeline.Result) {
	total := len(res.Sched.Order)
	if total == 0 {
		return
	}
	fmt.Fprintf(out, "%d unit(s), %d recompiled", total, len(res.Recompiled))
	if res.Report != nil {
		if n := res.Report.Count(incr.UpdatedStable); n > 0 {
			fmt.Fprintf(out, ", %d with stable signature", n)
		}
	}
	if res.Restored {
		fmt.Fprint(out, ", restored from snapshot")
	}
	fmt.Fprintf(out, "; %d error(s), %d warning(s)\n", res.Errors, res.Warnings)
}
