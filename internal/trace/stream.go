package trace

import (
	"bufio"
	"io"
	"sync"
)

// StreamTracer writes every accepted event as soon as it is emitted.
// Write errors are swallowed: tracing must never fail a build.
type StreamTracer struct {
	mu      sync.Mutex
	out     io.Writer
	buf     *bufio.Writer
	level   Level
	format  Format
	written int
	closed  bool
}

// NewStreamTracer creates a tracer writing to w in format.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	t := &StreamTracer{out: w, buf: bufio.NewWriter(w), level: level, format: format}
	if format == FormatChrome {
		_, _ = t.buf.WriteString("{\"traceEvents\":[\n")
	}
	return t
}

func (t *StreamTracer) Emit(ev *Event) {
	if !accepts(t.level, ev) {
		return
	}
	if ev.Seq == 0 {
		ev.Seq = NextSeq()
	}
	data := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.format == FormatChrome && t.written > 0 {
		_, _ = t.buf.WriteString(",\n")
	}
	_, _ = t.buf.Write(data)
	t.written++
	// сердцебиение должно быть видно сразу
	if ev.Kind == KindHeartbeat || ev.Kind == KindSpanEnd && ev.Scope == ScopeDriver {
		_ = t.buf.Flush()
	}
}

// Flush writes buffered events through.
func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.Flush()
}

// Close terminates the Chrome envelope, flushes and closes the writer when
// it is a closer other than the standard streams.
func (t *StreamTracer) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	if t.format == FormatChrome {
		_, _ = t.buf.WriteString("\n]}\n")
	}
	err := t.buf.Flush()
	t.mu.Unlock()

	if c, ok := t.out.(io.Closer); ok && !isStdStream(t.out) {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (t *StreamTracer) Level() Level { return t.level }

func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }

// accepts applies the level filter; heartbeats always pass.
func accepts(level Level, ev *Event) bool {
	return ev.Kind == KindHeartbeat || level.ShouldEmit(ev.Scope)
}
