package source

type (
	// Kind classifies how a Source came to exist.
	Kind uint8
	// Mime names the front-end that compiles a Source.
	Mime string
)

const (
	// KindScript is an ordinary project source file or buffer.
	KindScript Kind = iota
	// KindGenerated is synthesized while compiling another unit.
	KindGenerated
	// KindResource backs a resource bundle.
	KindResource
	// KindArchived is an entry of a pre-compiled archive.
	KindArchived
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindGenerated:
		return "generated"
	case KindResource:
		return "resource"
	case KindArchived:
		return "archived"
	}
	return "unknown"
}

const (
	MimeScript     Mime = "text/x-actionscript"
	MimeMarkup     Mime = "text/x-mxml"
	MimeArchived   Mime = "application/x-abc"
	MimeProperties Mime = "text/x-properties"
)

// IsPrecompiled reports whether units of this mime only replay already
// compiled definitions.
func IsPrecompiled(m Mime) bool {
	return m == MimeArchived
}

// IsMarkup reports whether the mime is a markup language (heavier downstream).
func IsMarkup(m Mime) bool {
	return m == MimeMarkup
}

// MimeForPath picks the mime type from a file extension.
func MimeForPath(path string) (Mime, bool) {
	switch Ext(path) {
	case ".as":
		return MimeScript, true
	case ".mxml":
		return MimeMarkup, true
	case ".abc":
		return MimeArchived, true
	case ".properties":
		return MimeProperties, true
	}
	return "", false
}

// Digest - SHA-256 содержимого или сигнатуры
type Digest [32]byte

// IsZero reports whether the digest was never computed.
func (d Digest) IsZero() bool {
	return d == Digest{}
}
