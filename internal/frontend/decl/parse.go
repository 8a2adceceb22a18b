package decl

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// member is a field or method declaration.
type member struct {
	name   string
	typ    string
	public bool
	method bool
	line   uint32
}

// ref is a name used on a given line.
type ref struct {
	name string
	line uint32
}

// file is the parsed form of one declaration source.
type file struct {
	pkg       string
	imports   []ref // fully qualified single-name imports
	wildcards []string

	kind       string // class, interface, function, const, var
	name       string
	defs       int
	defLine    uint32
	inherits   []ref
	uses       []ref
	members    []member
	exprs      []ref
	bundles    []ref
	generates  []ref
	userErrors []ref
	feature    string

	// signature holds the normalized lines of the externally visible shape.
	signature []string
	body      int
}

type syntaxError struct {
	line uint32
	msg  string
}

func (e syntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.line, e.msg)
}

// parse reads the line-oriented declaration language. markup enables the
// `root` directive and forbids top-level definitions.
func parse(text string, markup bool) (*file, []syntaxError) {
	f := &file{}
	var errs []syntaxError
	for i, raw := range strings.Split(text, "\n") {
		line, err := safecast.Conv[uint32](i + 1)
		if err != nil {
			break
		}
		if raw == "" {
			continue
		}
		// тело: строки с отступом не влияют на сигнатуру
		if raw[0] == ' ' || raw[0] == '\t' {
			if strings.TrimSpace(raw) != "" {
				f.body++
			}
			continue
		}
		trimmed := strings.TrimSpace(raw)
		if strings.HasPrefix(trimmed, "//") {
			continue
		}
		fields := strings.Fields(trimmed)
		if msg := f.directive(fields, line, markup); msg != "" {
			errs = append(errs, syntaxError{line: line, msg: msg})
		}
	}
	return f, errs
}

func (f *file) directive(fields []string, line uint32, markup bool) string {
	public := false
	if fields[0] == "public" {
		public = true
		fields = fields[1:]
		if len(fields) == 0 {
			return "dangling 'public'"
		}
	}
	kw, args := fields[0], fields[1:]
	switch kw {
	case "package":
		if len(args) != 1 {
			return "package expects one name"
		}
		if markup {
			return "markup documents take their package from the path"
		}
		f.pkg = args[0]
		f.sign("package", args[0])
	case "import":
		if len(args) != 1 {
			return "import expects one name"
		}
		if ns, ok := strings.CutSuffix(args[0], ".*"); ok {
			f.wildcards = append(f.wildcards, ns)
		} else {
			f.imports = append(f.imports, ref{name: args[0], line: line})
		}
		f.sign("import", args[0])
	case "class", "interface":
		if markup {
			return kw + " is not allowed in markup, use root"
		}
		return f.classDecl(kw, args, line)
	case "function", "const", "var":
		if markup {
			return kw + " is not allowed in markup"
		}
		if len(args) != 1 {
			return kw + " expects one name"
		}
		f.define(kw, args[0], line)
		f.sign(kw, args[0])
	case "root":
		if !markup {
			return "root is only valid in markup"
		}
		if len(args) != 1 {
			return "root expects one name"
		}
		f.inherits = append(f.inherits, ref{name: args[0], line: line})
		f.sign("root", args[0])
	case "uses":
		if len(args) != 2 || args[0] != "namespace" {
			return "expected 'uses namespace <name>'"
		}
		f.uses = append(f.uses, ref{name: args[1], line: line})
		f.sign("uses", args[1])
	case "field", "method":
		m, err := parseMember(args, line)
		if err != "" {
			return err
		}
		m.public = public
		m.method = kw == "method"
		f.members = append(f.members, m)
		if public {
			f.sign(kw, m.name, m.typ)
		}
		return ""
	case "expr":
		if len(args) != 1 {
			return "expr expects one name"
		}
		f.exprs = append(f.exprs, ref{name: args[0], line: line})
	case "bundle":
		if len(args) != 1 {
			return "bundle expects one name"
		}
		f.bundles = append(f.bundles, ref{name: args[0], line: line})
	case "error":
		f.userErrors = append(f.userErrors, ref{name: strings.Join(args, " "), line: line})
	case "generates":
		if len(args) != 1 {
			return "generates expects one name"
		}
		f.generates = append(f.generates, ref{name: args[0], line: line})
		f.sign("generates", args[0])
	case "license":
		if len(args) != 1 {
			return "license expects one feature name"
		}
		f.feature = args[0]
	default:
		return fmt.Sprintf("unknown directive %q", kw)
	}
	if public {
		return "'public' only applies to field and method"
	}
	return ""
}

func (f *file) classDecl(kw string, args []string, line uint32) string {
	if len(args) == 0 {
		return kw + " expects a name"
	}
	f.define(kw, args[0], line)
	rest := args[1:]
	sig := []string{kw, args[0]}
	for len(rest) > 0 {
		switch rest[0] {
		case "extends", "implements":
			clause := rest[0]
			names, n := list(rest[1:])
			if len(names) == 0 {
				return clause + " expects a name"
			}
			if kw == "class" && clause == "extends" && len(names) != 1 {
				return "a class extends exactly one class"
			}
			if kw == "interface" && clause == "implements" {
				return "interfaces extend, they do not implement"
			}
			for _, n := range names {
				f.inherits = append(f.inherits, ref{name: n, line: line})
			}
			sig = append(sig, clause)
			sig = append(sig, names...)
			rest = rest[1+n:]
		default:
			return fmt.Sprintf("unexpected %q in %s declaration", rest[0], kw)
		}
	}
	f.sign(sig...)
	return ""
}

func (f *file) define(kind, name string, line uint32) {
	f.defs++
	if f.defs == 1 {
		f.kind, f.name, f.defLine = kind, name, line
	}
}

func (f *file) sign(parts ...string) {
	f.signature = append(f.signature, strings.Join(parts, " "))
}

// list consumes a comma separated name list ("A, B" or "A,B").
func list(args []string) ([]string, int) {
	var out []string
	used := 0
	for _, a := range args {
		if a == "extends" || a == "implements" {
			break
		}
		used++
		for _, part := range strings.Split(a, ",") {
			if part != "" {
				out = append(out, part)
			}
		}
		if !strings.HasSuffix(a, ",") && used < len(args) && !strings.HasPrefix(args[used], ",") {
			break
		}
	}
	return out, used
}

// parseMember reads "name : Type" or "name:Type".
func parseMember(args []string, line uint32) (member, string) {
	joined := strings.Join(args, " ")
	name, typ, ok := strings.Cut(joined, ":")
	name, typ = strings.TrimSpace(name), strings.TrimSpace(typ)
	if !ok || name == "" || typ == "" || strings.ContainsAny(typ, " \t") {
		return member{}, "expected '<name> : <Type>'"
	}
	return member{name: name, typ: typ, line: line}, ""
}
