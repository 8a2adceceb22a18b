// Package prof captures Go runtime profiles of a build run.
package prof

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	rtrace "runtime/trace"
)

// Options names the output files; empty paths disable a profile.
type Options struct {
	CPU     string
	Heap    string
	Runtime string
}

// Profiler owns the open profile files between Start and Stop.
type Profiler struct {
	opts     Options
	cpu      *os.File
	runtime  *os.File
	finished bool
}

// Start enables the requested profiles. On error nothing stays running.
func Start(opts Options) (*Profiler, error) {
	p := &Profiler{opts: opts}
	if opts.CPU != "" {
		f, err := os.Create(opts.CPU)
		if err != nil {
			return nil, fmt.Errorf("cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("cpu profile: %w", err)
		}
		p.cpu = f
	}
	if opts.Runtime != "" {
		f, err := os.Create(opts.Runtime)
		if err == nil {
			if err = rtrace.Start(f); err != nil {
				_ = f.Close()
			}
		}
		if err != nil {
			_ = p.Stop()
			return nil, fmt.Errorf("runtime trace: %w", err)
		}
		p.runtime = f
	}
	return p, nil
}

// Stop ends the running profiles and writes the heap profile. Repeated
// calls return nil.
func (p *Profiler) Stop() error {
	if p == nil || p.finished {
		return nil
	}
	p.finished = true

	var errs []error
	if p.runtime != nil {
		rtrace.Stop()
		errs = append(errs, p.runtime.Close())
	}
	if p.cpu != nil {
		pprof.StopCPUProfile()
		errs = append(errs, p.cpu.Close())
	}
	if p.opts.Heap != "" {
		errs = append(errs, writeHeap(p.opts.Heap))
	}
	return errors.Join(errs...)
}

func writeHeap(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("heap profile: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}
