// Package compiler defines the contract between the scheduler and the
// per-mime front-end compilers that implement the phase bodies.
package compiler

import (
	"fmt"

	"asbuild/internal/diag"
	"asbuild/internal/session"
	"asbuild/internal/source"
	"asbuild/internal/symtab"
	"asbuild/internal/unit"
)

// Context is what a phase function sees. Reporter is bound to the unit:
// errors reported through it stop the unit from advancing.
type Context struct {
	Session  *session.Session
	Symbols  *symtab.Table
	Reporter diag.Reporter
	Unit     *unit.Unit
}

// Config is a shortcut for the session configuration.
func (c *Context) Config() session.Config {
	return c.Session.Config
}

// Compiler implements the phase bodies for one mime type. Every method
// reports its outcome through ctx.Reporter, never through a return value.
// Discovered references go into ctx.Unit.Refs of the matching kind:
// inheritance in Parse1, namespaces in Analyze1, types in Analyze2 (late
// types in Analyze4), expressions from Analyze2 on.
type Compiler interface {
	Preprocess(ctx *Context)
	Parse1(ctx *Context)
	Parse2(ctx *Context)
	Analyze1(ctx *Context)
	Analyze2(ctx *Context)
	Analyze3(ctx *Context)
	Analyze4(ctx *Context)
	Generate(ctx *Context)
	Postprocess(ctx *Context)
}

// SignatureComputer is implemented by compilers able to derive the exported
// signature digest directly from content, without a full compile.
type SignatureComputer interface {
	Signature(src *source.Source) (source.Digest, error)
}

// Run dispatches phase p to c. ResolveType, ResolveImports and Done are
// scheduler steps with no front-end body; Run reports false for them.
func Run(c Compiler, p unit.Phase, ctx *Context) bool {
	switch p {
	case unit.PhasePreprocess:
		c.Preprocess(ctx)
	case unit.PhaseParse1:
		c.Parse1(ctx)
	case unit.PhaseParse2:
		c.Parse2(ctx)
	case unit.PhaseAnalyze1:
		c.Analyze1(ctx)
	case unit.PhaseAnalyze2:
		c.Analyze2(ctx)
	case unit.PhaseAnalyze3:
		c.Analyze3(ctx)
	case unit.PhaseAnalyze4:
		c.Analyze4(ctx)
	case unit.PhaseGenerate:
		c.Generate(ctx)
	case unit.PhasePostprocess:
		c.Postprocess(ctx)
	default:
		return false
	}
	return true
}

// Registry maps mime types to compilers.
type Registry struct {
	byMime map[source.Mime]Compiler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byMime: make(map[source.Mime]Compiler)}
}

// Register installs c for mime, replacing any previous compiler.
func (r *Registry) Register(mime source.Mime, c Compiler) {
	r.byMime[mime] = c
}

// For returns the compiler for mime.
func (r *Registry) For(mime source.Mime) (Compiler, error) {
	c, ok := r.byMime[mime]
	if !ok {
		return nil, fmt.Errorf("no compiler registered for %s", mime)
	}
	return c, nil
}

// Signature recomputes the exported signature of src when its compiler
// supports it. ok is false when no signature can be derived.
func (r *Registry) Signature(src *source.Source) (d source.Digest, ok bool, err error) {
	c, found := r.byMime[src.Mime]
	if !found {
		return source.Digest{}, false, nil
	}
	sc, can := c.(SignatureComputer)
	if !can {
		return source.Digest{}, false, nil
	}
	d, err = sc.Signature(src)
	if err != nil {
		return source.Digest{}, false, err
	}
	return d, true, nil
}
