package decl

import (
	"context"
	"strings"
	"testing"

	"asbuild/internal/compiler"
	"asbuild/internal/diag"
	"asbuild/internal/names"
	"asbuild/internal/session"
	"asbuild/internal/source"
	"asbuild/internal/symtab"
	"asbuild/internal/unit"
)

func TestParseClassDeclaration(t *testing.T) {
	text := strings.Join([]string{
		"package a.b",
		"import c.D",
		"import e.*",
		"// comment",
		"class Widget extends Base implements I1, I2",
		"uses namespace ns",
		"public field size : Size",
		"field cache : Cache",
		"method draw : Pen",
		"    body line",
		"expr Helper",
		"license charts",
	}, "\n")
	f, errs := parse(text, false)
	if len(errs) != 0 {
		t.Fatalf("errors: %v", errs)
	}
	if f.pkg != "a.b" || f.kind != "class" || f.name != "Widget" || f.defs != 1 {
		t.Fatalf("header: %+v", f)
	}
	if len(f.inherits) != 3 || f.inherits[0].name != "Base" || f.inherits[2].name != "I2" {
		t.Fatalf("inherits: %+v", f.inherits)
	}
	if len(f.imports) != 1 || len(f.wildcards) != 1 || f.wildcards[0] != "e" {
		t.Fatalf("imports: %+v %+v", f.imports, f.wildcards)
	}
	if len(f.members) != 3 || !f.members[0].public || f.members[1].public || !f.members[2].method {
		t.Fatalf("members: %+v", f.members)
	}
	if f.body != 1 || f.feature != "charts" || len(f.exprs) != 1 || len(f.uses) != 1 {
		t.Fatalf("misc: %+v", f)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		text   string
		markup bool
		want   string
	}{
		{"frobnicate x", false, "unknown directive"},
		{"class", false, "expects a name"},
		{"class A extends B, C", false, "exactly one class"},
		{"interface I implements J", false, "do not implement"},
		{"field x :", false, "expected '<name> : <Type>'"},
		{"public function f", false, "only applies"},
		{"root Base", false, "only valid in markup"},
		{"class A", true, "not allowed in markup"},
		{"package p", true, "from the path"},
		{"uses ns", false, "uses namespace"},
	}
	for _, tc := range cases {
		_, errs := parse(tc.text, tc.markup)
		if len(errs) != 1 || !strings.Contains(errs[0].msg, tc.want) {
			t.Errorf("parse(%q) = %v, want %q", tc.text, errs, tc.want)
		}
	}
}

func TestSignatureIgnoresBody(t *testing.T) {
	c := New(source.MimeScript)
	base := "package p\nclass A extends B\npublic field x : T\n"
	variants := map[string]bool{
		base + "    some body\n":          true,
		base + "field hidden : H\n":        true,
		base + "expr Other\n":              true,
		base + "// note\n":                 true,
		base + "public field y : T\n":      false,
		"package p\nclass A extends C\npublic field x : T\n": false,
		"package q\nclass A extends B\npublic field x : T\n": false,
	}
	want, err := c.Signature(source.NewBufferSource("p/A.as", source.MimeScript, base))
	if err != nil {
		t.Fatal(err)
	}
	for text, stable := range variants {
		got, err := c.Signature(source.NewBufferSource("p/A.as", source.MimeScript, text))
		if err != nil {
			t.Fatal(err)
		}
		if (got == want) != stable {
			t.Errorf("signature stable=%v for %q", got == want, text)
		}
	}
	if _, err := c.Signature(source.NewBufferSource("p/A.as", source.MimeScript, "nonsense here")); err == nil {
		t.Fatal("expected error for unparsable source")
	}
}

type harness struct {
	sess *session.Session
	tab  *symtab.Table
	bag  *diag.Bag
}

func newHarness(cfg session.Config, providers ...symtab.Provider) *harness {
	return &harness{
		sess: session.New(context.Background(), cfg),
		tab:  symtab.New(providers...),
		bag:  diag.NewBag(0),
	}
}

// runTo drives u through phases up to and including last with no
// scheduler involved.
func (h *harness) runTo(t *testing.T, c *Compiler, u *unit.Unit, last unit.Phase) {
	t.Helper()
	ctx := &compiler.Context{
		Session:  h.sess,
		Symbols:  h.tab,
		Reporter: diag.MultiReporter{u, &diag.BagReporter{Bag: h.bag}},
		Unit:     u,
	}
	for _, p := range unit.Phases {
		if p == unit.PhaseNone || p > last {
			continue
		}
		compiler.Run(c, p, ctx)
		if u.Errors() > 0 {
			return
		}
		if err := u.Workflow.Complete(p); err != nil {
			t.Fatal(err)
		}
	}
}

func TestParse1Exports(t *testing.T) {
	h := newHarness(session.DefaultConfig())
	u := unit.New(source.NewBufferSource("p/A.as", source.MimeScript, "package p\ninterface A extends B, C\nlicense x\n"))
	h.runTo(t, New(source.MimeScript), u, unit.PhaseParse1)
	if u.Errors() != 0 {
		t.Fatal(diag.FormatShort(h.bag.Items(), false))
	}
	if len(u.Exports) != 1 || u.Exports[0].Name != (names.QName{Namespace: "p", Local: "A"}) {
		t.Fatalf("exports: %+v", u.Exports)
	}
	o, ok := u.Exports[0].Owner.(names.ClassOwner)
	if !ok || !o.Interface || len(o.Ifaces) != 2 || o.Super != "" {
		t.Fatalf("owner: %#v", u.Exports[0].Owner)
	}
	if got := u.Refs[unit.Inheritance].Pending(); len(got) != 2 {
		t.Fatalf("inheritance refs: %v", got)
	}
	if u.Feature != "x" || u.Signature.IsZero() {
		t.Fatalf("feature %q signature %v", u.Feature, u.Signature)
	}
}

func TestMarkupTakesNameFromPath(t *testing.T) {
	h := newHarness(session.DefaultConfig())
	u := unit.New(source.NewBufferSource("views/Main.mxml", source.MimeMarkup, "root Panel\nfield title : Label\n"))
	h.runTo(t, New(source.MimeMarkup), u, unit.PhaseParse1)
	if u.Errors() != 0 {
		t.Fatal(diag.FormatShort(h.bag.Items(), false))
	}
	if u.Exports[0].Name != (names.QName{Namespace: "views", Local: "Main"}) {
		t.Fatalf("markup name = %v", u.Exports[0].Name)
	}

	empty := unit.New(source.NewBufferSource("views/Empty.mxml", source.MimeMarkup, "field a : B\n"))
	h.runTo(t, New(source.MimeMarkup), empty, unit.PhaseParse1)
	if empty.Errors() != 1 || empty.Diagnostics()[0].Code != diag.DeclEmptyMarkup {
		t.Fatalf("empty markup: %v", empty.Diagnostics())
	}
}

func TestParse2GeneratesSources(t *testing.T) {
	h := newHarness(session.DefaultConfig())
	u := unit.New(source.NewBufferSource("p/A.as", source.MimeScript, "package p\nclass A\ngenerates A_Skin\n"))
	h.runTo(t, New(source.MimeScript), u, unit.PhaseParse2)
	if len(u.Generated) != 1 {
		t.Fatalf("generated: %v", u.Generated)
	}
	gen := u.Generated[0]
	if gen.Name != "p/A_Skin.as" || gen.Kind != source.KindGenerated || gen.Origin != "p/A.as" {
		t.Fatalf("generated source: %+v", gen)
	}
	data, _ := gen.Bytes()
	f, errs := parse(string(data), false)
	if len(errs) != 0 || f.name != "A_Skin" || f.pkg != "p" {
		t.Fatalf("generated text does not parse back: %q %v", data, errs)
	}
}

func TestReferenceDiscoveryPerPhase(t *testing.T) {
	cfg := session.DefaultConfig()
	cfg.Strict = true
	h := newHarness(cfg)
	text := "package p\nimport q.Z\nclass A\nuses namespace ns\nfield f : T\nmethod m : R\nexpr E\nerror boom\n"
	u := unit.New(source.NewBufferSource("p/A.as", source.MimeScript, text))
	c := New(source.MimeScript)

	h.runTo(t, c, u, unit.PhaseAnalyze1)
	if n := len(u.Refs[unit.Namespace].Pending()); n != 1 {
		t.Fatalf("namespace refs after Analyze1: %d", n)
	}
	ctx := &compiler.Context{Session: h.sess, Symbols: h.tab, Reporter: u, Unit: u}
	compiler.Run(c, unit.PhaseAnalyze2, ctx)
	// field type plus the strict import
	if n := len(u.Refs[unit.Type].Pending()); n != 2 {
		t.Fatalf("type refs after Analyze2: %d", n)
	}
	if n := len(u.Refs[unit.Expression].Pending()); n != 1 {
		t.Fatalf("expression refs: %d", n)
	}
	compiler.Run(c, unit.PhaseAnalyze3, ctx)
	if u.Errors() != 1 || u.Diagnostics()[0].Code != diag.DeclUserError {
		t.Fatalf("user error: %v", u.Diagnostics())
	}
	u.Refs[unit.Type].Take()
	compiler.Run(c, unit.PhaseAnalyze4, ctx)
	if got := u.Refs[unit.Type].Pending(); len(got) != 1 || got[0].Local != "R" {
		t.Fatalf("late type refs: %v", got)
	}
}

func TestMultiNameOrder(t *testing.T) {
	f, _ := parse("package own\nimport x.T\nimport w.*\nclass A\n", false)
	m := multiName(f, "T")
	want := []string{"x", "own", "w", ""}
	if strings.Join(m.Namespaces, ",") != strings.Join(want, ",") {
		t.Fatalf("namespaces = %q", m.Namespaces)
	}
	if q := multiName(f, "a.b.C"); len(q.Namespaces) != 1 || q.Namespaces[0] != "a.b" || q.Local != "C" {
		t.Fatalf("qualified = %+v", q)
	}
}

func TestGenerateResolvesBundles(t *testing.T) {
	box := symtab.NewContainer()
	box.Add(source.New("locale/en_US/strings.properties", source.MimeProperties, source.KindResource, source.NewBuffer([]byte("k=v\n"))))
	cfg := session.DefaultConfig()
	cfg.Locales = []string{"en_US", "fr_FR"}
	h := newHarness(cfg, box)
	u := unit.New(source.NewBufferSource("A.as", source.MimeScript, "class A\nbundle strings\n"))
	c := New(source.MimeScript)
	h.runTo(t, c, u, unit.PhaseAnalyze4)
	ctx := &compiler.Context{Session: h.sess, Symbols: h.tab, Reporter: u, Unit: u}
	compiler.Run(c, unit.PhaseGenerate, ctx)
	if _, ok := u.Bundles["en_US/strings"]; !ok {
		t.Fatalf("bundles: %v", u.Bundles)
	}
	if u.Errors() != 1 || u.Diagnostics()[0].Code != diag.SchedUnresolvedBundle {
		t.Fatalf("missing fr_FR bundle must be reported: %v", u.Diagnostics())
	}
	if len(u.Artifact) == 0 || !strings.Contains(string(u.Artifact), "bundle en_US/strings") {
		t.Fatalf("artifact: %s", u.Artifact)
	}
}
