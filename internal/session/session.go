// Package session holds the state of one build: diagnostics sink, error
// counter, cancellation and the injected host capabilities. A Session is
// created per build and passed explicitly; there is no package-level state.
package session

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"asbuild/internal/diag"
	"asbuild/internal/observ"
	"asbuild/internal/trace"
)

// Status is the overall outcome of a scheduler run.
type Status uint8

const (
	StatusCompleted Status = iota
	StatusForcedStop
	StatusTooManyErrors
)

func (s Status) String() string {
	switch s {
	case StatusForcedStop:
		return "forced-stop"
	case StatusTooManyErrors:
		return "too-many-errors"
	}
	return "completed"
}

// LicenseChecker is supplied by the host. A nil checker means unlicensed.
type LicenseChecker interface {
	Licensed(feature string) bool
}

// LicenseFunc adapts a function to LicenseChecker.
type LicenseFunc func(feature string) bool

func (f LicenseFunc) Licensed(feature string) bool { return f(feature) }

// Progress receives (finished, total) unit counts.
type Progress interface {
	Progress(finished, total int)
}

// Session is one build.
type Session struct {
	ID      uuid.UUID
	Config  Config
	Tracer  trace.Tracer
	Timer   *observ.Timer
	License LicenseChecker

	ctx      context.Context
	cancel   context.CancelFunc
	counter  *diag.CountingReporter
	progress Progress
	stopped  atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

// WithReporter sets the sink every diagnostic is forwarded to.
func WithReporter(r diag.Reporter) Option {
	return func(s *Session) { s.counter.Next = r }
}

// WithTracer sets the tracer; the context tracer is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(s *Session) { s.Tracer = t }
}

// WithLicense injects the license checker.
func WithLicense(l LicenseChecker) Option {
	return func(s *Session) { s.License = l }
}

// WithProgress sets the progress sink.
func WithProgress(p Progress) Option {
	return func(s *Session) { s.progress = p }
}

// WithTimer sets the timer collecting per-phase durations.
func WithTimer(t *observ.Timer) Option {
	return func(s *Session) { s.Timer = t }
}

// New creates a session bound to ctx.
func New(ctx context.Context, cfg Config, opts ...Option) *Session {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = DefaultMaxErrors
	}
	if cfg.Factor <= 0 {
		cfg.Factor = DefaultFactor
	}
	cctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:      uuid.New(),
		Config:  cfg,
		ctx:     cctx,
		cancel:  cancel,
		counter: &diag.CountingReporter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Tracer == nil {
		s.Tracer = trace.FromContext(ctx)
	}
	if s.Timer == nil {
		s.Timer = observ.NewTimer()
	}
	return s
}

// Context returns the session context; it is cancelled by Stop.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Reporter returns the session-wide sink. Everything sent here is counted.
func (s *Session) Reporter() diag.Reporter {
	return s.counter
}

// Errors returns the number of errors reported in this session.
func (s *Session) Errors() int {
	return s.counter.Errors()
}

// Warnings returns the number of warnings reported in this session.
func (s *Session) Warnings() int {
	return s.counter.Warnings()
}

// Stop requests cancellation. Safe from any goroutine.
func (s *Session) Stop() {
	s.stopped.Store(true)
	s.cancel()
}

// Close releases the session context.
func (s *Session) Close() {
	s.cancel()
}

// Abort reports whether admission of new work must halt, and why.
func (s *Session) Abort() (Status, bool) {
	if s.stopped.Load() || s.ctx.Err() != nil {
		return StatusForcedStop, true
	}
	if s.counter.Errors() >= s.Config.MaxErrors {
		return StatusTooManyErrors, true
	}
	return StatusCompleted, false
}

// ReportProgress forwards unit counts to the progress sink, if any.
func (s *Session) ReportProgress(finished, total int) {
	if s.progress != nil {
		s.progress.Progress(finished, total)
	}
}
