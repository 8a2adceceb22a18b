// Package buildpipeline runs one build of a project: load the entries,
// validate what a previous build left behind, schedule the rest and persist
// a snapshot for the next process.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"asbuild/internal/compiler"
	"asbuild/internal/diag"
	"asbuild/internal/frontend/decl"
	"asbuild/internal/incr"
	"asbuild/internal/observ"
	"asbuild/internal/project"
	"asbuild/internal/sched"
	"asbuild/internal/session"
	"asbuild/internal/trace"
	"asbuild/internal/unit"
)

// ErrBuildFailed is returned when the build reported errors or did not run
// to completion.
var ErrBuildFailed = errors.New("build failed")

// State is what one build hands to the next one in the same process.
type State struct {
	Units   map[string]*unit.Unit
	Entries []string
}

// Request configures one build.
type Request struct {
	Project *project.Project
	Config  session.Config
	// Store persists snapshots between processes; nil disables persistence.
	Store *incr.Store
	// Previous is the state of an earlier build in this process. It wins
	// over the stored snapshot.
	Previous  *State
	Reporter  diag.Reporter
	Tracer    trace.Tracer
	License   session.LicenseChecker
	Progress  ProgressSink
	Compilers *compiler.Registry
}

// Result captures the outcome of a build.
type Result struct {
	Status  session.Status
	Sched   sched.Result
	Report  *incr.Report
	Timings Timings
	Timer   *observ.Timer
	State   *State
	// Recompiled lists units that ran at least one phase.
	Recompiled []string
	// Restored is set when the previous state came from the store.
	Restored bool
	Errors   int
	Warnings int
}

// DefaultCompilers returns a registry with the built-in front-ends.
func DefaultCompilers() *compiler.Registry {
	reg := compiler.NewRegistry()
	decl.Register(reg)
	return reg
}

// Build runs one build.
func Build(ctx context.Context, req *Request) (result Result, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil || req.Project == nil {
		return result, fmt.Errorf("missing build request")
	}
	compilers := req.Compilers
	if compilers == nil {
		compilers = DefaultCompilers()
	}
	timer := observ.NewTimer()
	result.Timer = timer
	tracker := newProgressTracker(req.Progress)

	opts := []session.Option{session.WithTimer(timer), session.WithProgress(tracker)}
	if req.Reporter != nil {
		opts = append(opts, session.WithReporter(req.Reporter))
	}
	if req.Tracer != nil {
		opts = append(opts, session.WithTracer(req.Tracer))
	}
	if req.License != nil {
		opts = append(opts, session.WithLicense(req.License))
	}
	sess := session.New(ctx, req.Config, opts...)
	defer sess.Close()
	defer func() {
		result.Errors = sess.Errors()
		result.Warnings = sess.Warnings()
	}()

	span := trace.Begin(sess.Tracer, trace.ScopeDriver, "build", 0).
		WithExtra("project", req.Project.Name()).
		WithExtra("session", sess.ID.String())
	defer func() { span.End(result.Status.String()) }()

	p := req.Project
	entryNames := p.EntryNames()

	// load
	start := time.Now()
	tracker.stage(StageLoad, StatusWorking, nil, 0)
	entries, err := p.Entries()
	result.Timings.Set(StageLoad, time.Since(start))
	if err != nil {
		for _, name := range entryNames {
			if _, ok := p.Paths.Source(name); !ok {
				diag.ReportError(sess.Reporter(), diag.ProjMissingEntry, diag.Pos{Source: name},
					fmt.Sprintf("entry %s not found on the source path", name)).Emit()
			}
		}
		tracker.stage(StageLoad, StatusError, err, result.Timings.Duration(StageLoad))
		return result, err
	}
	tracker.stage(StageLoad, StatusDone, nil, result.Timings.Duration(StageLoad))

	// validate
	start = time.Now()
	tracker.stage(StageValidate, StatusWorking, nil, 0)
	prev, restored := previousState(req, sess)
	result.Restored = restored
	kept := map[string]*unit.Unit{}
	if prev != nil {
		v := incr.NewValidator(sess.Config, p.Symbols(entries), compilers, sess.Tracer)
		result.Report = v.Validate(incr.Previous{Units: prev.Units, Entries: prev.Entries}, entryNames)
		result.Report.Apply(prev.Units)
		if !result.Report.All {
			kept = prev.Units
		}
	}
	result.Timings.Set(StageValidate, time.Since(start))
	tracker.stage(StageValidate, StatusDone, nil, result.Timings.Duration(StageValidate))

	// schedule
	start = time.Now()
	res, ran := schedule(sess, p.Symbols(entries), compilers, kept, entries, tracker)
	result.Sched = res
	result.Status = res.Status
	result.Recompiled = ran
	result.State = &State{Units: res.Units, Entries: entryNames}
	result.Timings.Set(StageSchedule, time.Since(start))

	// persist
	if req.Store != nil && res.Status == session.StatusCompleted {
		start = time.Now()
		tracker.stage(StagePersist, StatusWorking, nil, 0)
		if err := persist(ctx, req.Store, p, entryNames, res.Units); err != nil {
			// следующая сборка просто начнёт с нуля
			diag.NewReportBuilder(sess.Reporter(), diag.SevWarning, diag.ProjStaleSnapshot, diag.Pos{},
				"snapshot not saved: "+err.Error()).Emit()
			tracker.stage(StagePersist, StatusError, err, time.Since(start))
		} else {
			tracker.stage(StagePersist, StatusDone, nil, time.Since(start))
		}
		result.Timings.Set(StagePersist, time.Since(start))
	}

	switch {
	case res.Status != session.StatusCompleted:
		return result, fmt.Errorf("%w: %s", ErrBuildFailed, res.Status)
	case sess.Errors() > 0:
		return result, fmt.Errorf("%w: %d error(s)", ErrBuildFailed, sess.Errors())
	}
	return result, nil
}

// previousState picks the in-process state or restores the stored snapshot.
// A snapshot that cannot be read is dropped with a warning.
func previousState(req *Request, sess *session.Session) (*State, bool) {
	if req.Previous != nil {
		return req.Previous, false
	}
	if req.Store == nil {
		return nil, false
	}
	snap, ok, err := req.Store.Get(req.Project.Key)
	if err != nil {
		diag.NewReportBuilder(sess.Reporter(), diag.SevWarning, diag.ProjStaleSnapshot, diag.Pos{},
			"previous snapshot ignored: "+err.Error()).Emit()
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &State{Units: snap.Restore(req.Project.Find), Entries: snap.Entries}, true
}

func persist(ctx context.Context, store *incr.Store, p *project.Project, entries []string, units map[string]*unit.Unit) error {
	snap, err := incr.Capture(ctx, p.Name(), entries, units)
	if err != nil {
		return err
	}
	return store.Put(p.Key, snap)
}

func sortedNames(units map[string]*unit.Unit) []string {
	out := make([]string, 0, len(units))
	for name := range units {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

