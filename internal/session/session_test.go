package session

import (
	"context"
	"testing"

	"asbuild/internal/diag"
)

func TestAbortOnStopAndCancel(t *testing.T) {
	s := New(context.Background(), DefaultConfig())
	if _, abort := s.Abort(); abort {
		t.Fatal("fresh session aborted")
	}
	s.Stop()
	if st, abort := s.Abort(); !abort || st != StatusForcedStop {
		t.Fatalf("status = %v abort=%v", st, abort)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s2 := New(ctx, DefaultConfig())
	cancel()
	if st, _ := s2.Abort(); st != StatusForcedStop {
		t.Fatalf("parent cancel not observed: %v", st)
	}
}

func TestAbortOnErrorThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxErrors = 2
	var forwarded int
	s := New(context.Background(), cfg, WithReporter(diag.ReporterFunc(func(diag.Diagnostic) { forwarded++ })))
	for range 2 {
		s.Reporter().Report(diag.SchedInternal, diag.SevError, diag.Pos{}, "x", nil)
	}
	if st, abort := s.Abort(); !abort || st != StatusTooManyErrors {
		t.Fatalf("status = %v abort=%v", st, abort)
	}
	if forwarded != 2 {
		t.Fatalf("forwarded = %d", forwarded)
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"": StrategyAuto, "batch1": StrategyBatch1, "priority": StrategyBatch2} {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Fatalf("ParseStrategy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseStrategy("random"); err == nil {
		t.Fatal("expected error")
	}
}

func TestDefaultsApplied(t *testing.T) {
	s := New(context.Background(), Config{})
	if s.Config.MaxErrors != DefaultMaxErrors || s.Config.Factor != DefaultFactor {
		t.Fatalf("defaults not applied: %+v", s.Config)
	}
	if s.ID.String() == "" || s.Tracer == nil || s.Timer == nil {
		t.Fatal("session not fully initialised")
	}
}
