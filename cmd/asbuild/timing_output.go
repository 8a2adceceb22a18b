package main

import (
	"fmt"
	"io"
	"time"

	"asbuild/internal/buildpipeline"
)

// printStageTimings prints one line per pipeline stage, then the per-phase
// breakdown collected by the scheduler.
func printStageTimings(out io.Writer, res buildpipeline.Result) {
	if out == nil {
		return
	}
	for _, stage := range buildpipeline.Stages {
		if !res.Timings.Has(stage) {
			continue
		}
		fmt.Fprintf(out, "%-9s %8.1f ms\n", stage, toMillis(res.Timings.Duration(stage)))
	}
	fmt.Fprintf(out, "%-9s %8.1f ms\n", "total", toMillis(res.Timings.Total()))
	if res.Timer != nil {
		if summary := res.Timer.Summary(); summary != "" {
			fmt.Fprint(out, summary)
		}
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
