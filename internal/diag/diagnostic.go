package diag

import "fmt"

// Pos points at a source by its stable name; Line is 1-based, 0 when unknown.
type Pos struct {
	Source string
	Line   uint32
}

func (p Pos) String() string {
	if p.Line == 0 {
		return p.Source
	}
	return fmt.Sprintf("%s:%d", p.Source, p.Line)
}

// IsZero reports whether the position is not attributable to a source.
func (p Pos) IsZero() bool {
	return p.Source == "" && p.Line == 0
}

type Note struct {
	Pos Pos
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Pos
	Notes    []Note
}

func New(sev Severity, code Code, primary Pos, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary Pos, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(p Pos, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Pos: p, Msg: msg})
	return d
}
