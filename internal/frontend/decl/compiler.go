// Package decl is the reference front-end: a line-oriented declaration
// language in script, markup and archived flavours. It implements every
// phase of the compiler contract so the scheduler can be driven end to end.
package decl

import (
	"fmt"
	"strings"

	"asbuild/internal/compiler"
	"asbuild/internal/diag"
	"asbuild/internal/names"
	"asbuild/internal/source"
	"asbuild/internal/symtab"
	"asbuild/internal/unit"
)

// Compiler compiles one mime flavour.
type Compiler struct {
	mime source.Mime
}

// New returns the compiler for mime.
func New(mime source.Mime) *Compiler {
	return &Compiler{mime: mime}
}

// Register installs the script, markup and archived compilers.
func Register(reg *compiler.Registry) {
	for _, m := range []source.Mime{source.MimeScript, source.MimeMarkup, source.MimeArchived} {
		reg.Register(m, New(m))
	}
}

// state is kept in unit.State between phases.
type state struct {
	text string
	file *file
	qn   names.QName
}

func (c *Compiler) markup() bool {
	return source.IsMarkup(c.mime)
}

func stateOf(ctx *compiler.Context) *state {
	st, _ := ctx.Unit.State.(*state)
	if st == nil {
		st = &state{}
		ctx.Unit.State = st
	}
	return st
}

func pos(u *unit.Unit, line uint32) diag.Pos {
	return diag.Pos{Source: u.Name(), Line: line}
}

func (c *Compiler) Preprocess(ctx *compiler.Context) {
	data, err := ctx.Unit.Source.Bytes()
	if err != nil {
		diag.ReportError(ctx.Reporter, diag.ProjLoadError, pos(ctx.Unit, 0), err.Error()).Emit()
		return
	}
	stateOf(ctx).text = string(data)
}

func (c *Compiler) Parse1(ctx *compiler.Context) {
	u := ctx.Unit
	st := stateOf(ctx)
	f, errs := parse(st.text, c.markup())
	st.file = f
	for _, e := range errs {
		diag.ReportError(ctx.Reporter, diag.DeclSyntax, pos(u, e.line), e.msg).Emit()
	}
	if len(errs) > 0 {
		return
	}

	if c.markup() {
		if len(f.inherits) == 0 {
			diag.ReportError(ctx.Reporter, diag.DeclEmptyMarkup, pos(u, 0), "markup document declares no root").Emit()
			return
		}
		q := symtab.QNameForPath(u.Name())
		f.pkg, f.kind, f.name, f.defs = q.Namespace, "class", q.Local, 1
	}
	switch {
	case f.defs == 0:
		diag.ReportError(ctx.Reporter, diag.SchedNoTopLevelDefinition, pos(u, 0),
			"source declares no externally visible definition").Emit()
		return
	case f.defs > 1:
		diag.ReportError(ctx.Reporter, diag.SchedMultipleTopLevelDefinitions, pos(u, f.defLine),
			fmt.Sprintf("source declares %d externally visible definitions, expected one", f.defs)).Emit()
		return
	}

	st.qn = names.QName{Namespace: f.pkg, Local: f.name}
	u.Exports = []names.Definition{{Name: st.qn, Owner: owner(f)}}
	u.Signature = signatureOf(f)
	u.Feature = f.feature
	for _, r := range f.inherits {
		u.Refs[unit.Inheritance].Add(multiName(f, r.name))
	}
}

func (c *Compiler) Parse2(ctx *compiler.Context) {
	u := ctx.Unit
	f := stateOf(ctx).file
	for _, g := range f.generates {
		q := names.QName{Namespace: f.pkg, Local: g.name}
		text := fmt.Sprintf("package %s\nclass %s\nexpr %s\n", f.pkg, g.name, f.name)
		if f.pkg == "" {
			text = fmt.Sprintf("class %s\nexpr %s\n", g.name, f.name)
		}
		gen := source.New(symtab.PathForQName(q)+".as", source.MimeScript, source.KindGenerated, source.NewBuffer([]byte(text)))
		gen.Origin = u.Name()
		u.Generated = append(u.Generated, gen)
	}
}

func (c *Compiler) Analyze1(ctx *compiler.Context) {
	f := stateOf(ctx).file
	for _, r := range f.uses {
		ctx.Unit.Refs[unit.Namespace].Add(multiName(f, r.name))
	}
}

func (c *Compiler) Analyze2(ctx *compiler.Context) {
	u := ctx.Unit
	f := stateOf(ctx).file
	for _, m := range f.members {
		if !m.method {
			u.Refs[unit.Type].Add(multiName(f, m.typ))
		}
	}
	for _, r := range f.exprs {
		u.Refs[unit.Expression].Add(multiName(f, r.name))
	}
	if ctx.Config().Strict {
		for _, imp := range f.imports {
			u.Refs[unit.Type].Add(qualified(imp.name))
		}
	}
}

func (c *Compiler) Analyze3(ctx *compiler.Context) {
	for _, e := range stateOf(ctx).file.userErrors {
		diag.ReportError(ctx.Reporter, diag.DeclUserError, pos(ctx.Unit, e.line), e.name).Emit()
	}
}

func (c *Compiler) Analyze4(ctx *compiler.Context) {
	f := stateOf(ctx).file
	for _, m := range f.members {
		if m.method {
			ctx.Unit.Refs[unit.Type].Add(multiName(f, m.typ))
		}
	}
}

func (c *Compiler) Generate(ctx *compiler.Context) {
	u := ctx.Unit
	f := stateOf(ctx).file
	for _, b := range f.bundles {
		for _, locale := range ctx.Config().Locales {
			src, err := ctx.Symbols.ResolveBundle(locale, b.name)
			if err != nil {
				diag.ReportError(ctx.Reporter, diag.SchedUnresolvedBundle, pos(u, b.line), err.Error()).Emit()
				continue
			}
			d, err := src.Checksum()
			if err != nil {
				diag.ReportError(ctx.Reporter, diag.ProjLoadError, pos(u, b.line), err.Error()).Emit()
				continue
			}
			if u.Bundles == nil {
				u.Bundles = make(map[string]source.Digest)
			}
			u.Bundles[locale+"/"+b.name] = d
		}
	}
	u.Artifact = render(u, stateOf(ctx).qn, stateOf(ctx).text)
}

func (c *Compiler) Postprocess(ctx *compiler.Context) {
	// после генерации состояние front-end больше не нужно
	ctx.Unit.State = nil
}

// Signature implements compiler.SignatureComputer.
func (c *Compiler) Signature(src *source.Source) (source.Digest, error) {
	data, err := src.Bytes()
	if err != nil {
		return source.Digest{}, err
	}
	f, errs := parse(string(data), c.markup())
	if len(errs) > 0 {
		return source.Digest{}, fmt.Errorf("%s: %w", src.Name, errs[0])
	}
	return signatureOf(f), nil
}

func owner(f *file) names.Owner {
	switch f.kind {
	case "function":
		return names.FunctionOwner{}
	case "const", "var":
		return names.LibraryOwner{Const: f.kind == "const"}
	}
	o := names.ClassOwner{Interface: f.kind == "interface"}
	for i, r := range f.inherits {
		if i == 0 && !o.Interface {
			o.Super = r.name
			continue
		}
		o.Ifaces = append(o.Ifaces, r.name)
	}
	return o
}

// multiName builds the candidate list for a name used in f: explicit
// imports, own package, wildcard imports, then the unnamed namespace.
// Dotted names are fully qualified.
func multiName(f *file, name string) names.MultiName {
	if strings.Contains(name, ".") {
		return qualified(name)
	}
	nss := make([]string, 0, len(f.wildcards)+3)
	for _, imp := range f.imports {
		q := names.ParseQName(imp.name)
		if q.Local == name {
			nss = append(nss, q.Namespace)
		}
	}
	nss = append(nss, f.pkg)
	nss = append(nss, f.wildcards...)
	nss = append(nss, "")
	return names.NewMultiName(name, nss...)
}

func qualified(name string) names.MultiName {
	q := names.ParseQName(name)
	return names.NewMultiName(q.Local, q.Namespace)
}
