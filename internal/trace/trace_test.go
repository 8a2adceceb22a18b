package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestLevelScopeFiltering(t *testing.T) {
	ring := NewRingTracer(16, LevelPhase)
	s := Begin(ring, ScopeRound, "barrier:parse1", 0)
	Begin(ring, ScopePhase, "parse1", s.ID()).End("")
	s.End("")

	events := ring.Snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (phase scope filtered out)", len(events))
	}
	if events[0].Kind != KindSpanBegin || events[1].Kind != KindSpanEnd {
		t.Fatalf("unexpected kinds: %v %v", events[0].Kind, events[1].Kind)
	}
}

func TestRingWraps(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d"} {
		Point(ring, ScopeUnit, name, "", 0)
	}
	got := ring.Snapshot()
	if len(got) != 3 || got[0].Name != "b" || got[2].Name != "d" {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestStreamChromeEnvelope(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelDebug, FormatChrome)
	Point(st, ScopeDriver, "start", "", 0)
	Point(st, ScopeDriver, "stop", "", 0)
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "{\"traceEvents\":[") || !strings.HasSuffix(out, "]}\n") {
		t.Fatalf("bad envelope: %q", out)
	}
	if strings.Count(out, "\"ph\":\"i\"") != 2 {
		t.Fatalf("expected two instant events: %q", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatal("expected Nop without tracer")
	}
	ring := NewRingTracer(4, LevelDebug)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatal("tracer lost in context")
	}
}

func TestParseHelpers(t *testing.T) {
	if l, err := ParseLevel("detail"); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel: %v %v", l, err)
	}
	if _, err := ParseMode("tape"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if f, err := ParseFormat("chrome"); err != nil || f != FormatChrome {
		t.Fatalf("ParseFormat: %v %v", f, err)
	}
}

func TestRingDumpAndDropped(t *testing.T) {
	ring := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"load", "validate", "schedule"} {
		Point(ring, ScopeDriver, name, "", 0)
	}
	if ring.Dropped() != 1 {
		t.Fatalf("dropped = %d", ring.Dropped())
	}
	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatChrome); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "\"load\"") || !strings.Contains(out, "\"schedule\"") {
		t.Fatalf("dump: %q", out)
	}
	if !strings.HasSuffix(out, "]}\n") {
		t.Fatalf("unterminated dump: %q", out)
	}
}

func TestMultiTracerReachesRing(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiTracer(LevelDebug, NewStreamTracer(&buf, LevelDebug, FormatNDJSON), NewRingTracer(8, LevelDebug))
	Point(multi, ScopeUnit, "resolve", "", 0)
	if err := multi.Close(); err != nil {
		t.Fatal(err)
	}
	ring, ok := Ring(multi)
	if !ok || len(ring.Snapshot()) != 1 {
		t.Fatal("ring not found behind multi tracer")
	}
	if !strings.Contains(buf.String(), "resolve") {
		t.Fatalf("stream missed event: %q", buf.String())
	}
}

func TestHeartbeatCarriesStatus(t *testing.T) {
	// error level filters every scope, heartbeats still pass
	ring := NewRingTracer(64, LevelError)
	if hb := StartHeartbeat(Nop, time.Millisecond); hb != nil {
		t.Fatal("heartbeat started on a disabled tracer")
	}
	hb := StartHeartbeat(ring, time.Millisecond)
	hb.SetStatus("compiling")
	deadline := time.Now().Add(2 * time.Second)
	for {
		events := ring.Snapshot()
		if n := len(events); n > 0 && strings.Contains(events[n-1].Detail, "compiling") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no heartbeat with status")
		}
		time.Sleep(2 * time.Millisecond)
	}
	hb.Stop()
	hb.Stop()
	var nilBeat *Heartbeat
	nilBeat.SetStatus("x")
	nilBeat.Stop()
}
