package source

import (
	"fmt"

	"fortio.org/safecast"
)

// Source is the identity and content handle of one compilable unit.
// Name, Mime and Kind never change; the compiled/updated flags do.
type Source struct {
	Name    string
	Mime    Mime
	Kind    Kind
	Content Content

	// Origin describes where the source was found (path root, archive).
	Origin string

	compiledDigest Digest
	compiledStamp  int64
	compiled       bool
	updated        bool
}

// New creates a Source with a normalized name.
func New(name string, mime Mime, kind Kind, content Content) *Source {
	return &Source{
		Name:    NormalizeName(name),
		Mime:    mime,
		Kind:    kind,
		Content: content,
	}
}

// NewBufferSource is a convenience for in-memory script sources.
func NewBufferSource(name string, mime Mime, data string) *Source {
	return New(name, mime, KindScript, NewBuffer([]byte(data)))
}

func (s *Source) String() string {
	return s.Name
}

// Bytes returns current content.
func (s *Source) Bytes() ([]byte, error) {
	if s.Content == nil {
		return nil, fmt.Errorf("source %s has no content", s.Name)
	}
	return s.Content.Bytes()
}

// Checksum computes the digest of the current content.
func (s *Source) Checksum() (Digest, error) {
	data, err := s.Bytes()
	if err != nil {
		return Digest{}, err
	}
	return Sum(data), nil
}

// Size returns the content length in bytes, 0 when unreadable.
func (s *Source) Size() uint32 {
	data, err := s.Bytes()
	if err != nil {
		return 0
	}
	n, err := safecast.Conv[uint32](len(data))
	if err != nil {
		return ^uint32(0)
	}
	return n
}

// Exists reports whether the backing content is still present.
func (s *Source) Exists() bool {
	return s.Content != nil && s.Content.Exists()
}

// MarkCompiled records the content digest the compiled state corresponds to.
func (s *Source) MarkCompiled(d Digest) {
	s.compiledDigest = d
	s.compiled = true
	s.updated = false
	if s.Content != nil {
		s.compiledStamp = s.Content.Stamp()
	}
}

// RestoreCompiled records a digest persisted by an earlier process. The
// stamp is unknown, so the next IsUpdated compares digests.
func (s *Source) RestoreCompiled(d Digest) {
	s.compiledDigest = d
	s.compiled = true
	s.updated = false
	s.compiledStamp = -1
}

// ResetCompiled forgets the compiled state.
func (s *Source) ResetCompiled() {
	s.compiled = false
	s.compiledDigest = Digest{}
	s.compiledStamp = 0
}

// SetUpdated forces the updated flag (editor notifications).
func (s *Source) SetUpdated() {
	s.updated = true
}

// IsUpdated reports whether content changed since MarkCompiled. The stamp is
// checked first; the digest decides when stamps differ.
func (s *Source) IsUpdated() bool {
	if s.updated {
		return true
	}
	if !s.compiled || s.Content == nil {
		return false
	}
	if s.Content.Stamp() == s.compiledStamp {
		return false
	}
	d, err := s.Checksum()
	if err != nil {
		return true
	}
	return d != s.compiledDigest
}
