package incr

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"asbuild/internal/names"
	"asbuild/internal/source"
	"asbuild/internal/unit"
)

// SchemaVersion must be bumped whenever Snapshot changes shape.
const SchemaVersion uint16 = 1

var (
	// ErrSchema means the snapshot was written by a different schema.
	ErrSchema = errors.New("snapshot schema mismatch")
	// ErrChecksum means the snapshot body does not match its checksum.
	ErrChecksum = errors.New("snapshot checksum mismatch")
)

// Snapshot is the persisted outcome of a build: enough to rebuild the
// previous units and feed them to the Validator.
type Snapshot struct {
	Schema  uint16
	Project string
	Entries []string
	Units   []UnitRecord
}

// UnitRecord is one Done unit.
type UnitRecord struct {
	Name     string
	Mime     string
	Kind     uint8
	Origin   string
	Expected string
	// Content is kept for generated sources only; others are re-read.
	Content   []byte
	Digest    source.Digest
	Signature source.Digest
	Exports   []ExportRecord
	History   [unit.KindCount][]RefRecord
	Generated []string
	Bundles   map[string]source.Digest
	Artifact  []byte
	Feature   string
}

// ExportRecord flattens the owner union of a definition.
type ExportRecord struct {
	Name      string
	Owner     uint8
	Interface bool
	Super     string
	Ifaces    []string
	Params    int
	Const     bool
}

// RefRecord is one resolved reference.
type RefRecord struct {
	Key    string
	QName  string
	Source string
}

type envelope struct {
	Schema uint16
	Sum    [sha256.Size]byte
	Body   []byte
}

// Encode serializes s inside a checksum-tagged envelope.
func (s *Snapshot) Encode() ([]byte, error) {
	body, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return msgpack.Marshal(&envelope{Schema: SchemaVersion, Sum: sha256.Sum256(body), Body: body})
}

// Decode is the inverse of Encode. Schema and checksum mismatches are
// reported with ErrSchema and ErrChecksum.
func Decode(data []byte) (*Snapshot, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchema, env.Schema, SchemaVersion)
	}
	if sha256.Sum256(env.Body) != env.Sum {
		return nil, ErrChecksum
	}
	var s Snapshot
	if err := msgpack.Unmarshal(env.Body, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot body: %w", err)
	}
	if s.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: body %d", ErrSchema, s.Schema)
	}
	return &s, nil
}

// Capture records every Done unit. Content digests are computed in
// parallel; units themselves are only read.
func Capture(ctx context.Context, project string, entries []string, units map[string]*unit.Unit) (*Snapshot, error) {
	var done []*unit.Unit
	for _, u := range units {
		if u.Done() {
			done = append(done, u)
		}
	}
	sort.Slice(done, func(i, j int) bool { return done[i].Name() < done[j].Name() })

	records := make([]UnitRecord, len(done))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, u := range done {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := record(u)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Snapshot{
		Schema:  SchemaVersion,
		Project: project,
		Entries: append([]string(nil), entries...),
		Units:   records,
	}, nil
}

func record(u *unit.Unit) (UnitRecord, error) {
	src := u.Source
	data, err := src.Bytes()
	if err != nil {
		return UnitRecord{}, fmt.Errorf("snapshot %s: %w", src.Name, err)
	}
	rec := UnitRecord{
		Name:      src.Name,
		Mime:      string(src.Mime),
		Kind:      uint8(src.Kind),
		Origin:    src.Origin,
		Digest:    source.Sum(data),
		Signature: u.Signature,
		Bundles:   u.Bundles,
		Artifact:  u.Artifact,
		Feature:   u.Feature,
	}
	if !u.Expected.IsZero() {
		rec.Expected = u.Expected.String()
	}
	if src.Kind == source.KindGenerated {
		rec.Content = data
	}
	for _, def := range u.Exports {
		rec.Exports = append(rec.Exports, exportRecord(def))
	}
	for _, k := range unit.Kinds {
		hist := u.Refs[k].History()
		for _, key := range u.Refs[k].HistoryKeys() {
			res := hist[key]
			rec.History[k] = append(rec.History[k], RefRecord{Key: key, QName: res.QName.String(), Source: res.Source})
		}
	}
	for _, gen := range u.Generated {
		rec.Generated = append(rec.Generated, gen.Name)
	}
	return rec, nil
}

func exportRecord(def names.Definition) ExportRecord {
	rec := ExportRecord{Name: def.Name.String()}
	switch o := def.Owner.(type) {
	case names.ClassOwner:
		rec.Owner = uint8(names.OwnerClass)
		rec.Interface, rec.Super, rec.Ifaces = o.Interface, o.Super, o.Ifaces
	case names.FunctionOwner:
		rec.Owner = uint8(names.OwnerFunction)
		rec.Params = o.Params
	case names.LibraryOwner:
		rec.Owner = uint8(names.OwnerLibrary)
		rec.Const = o.Const
	}
	return rec
}

func (rec ExportRecord) definition() names.Definition {
	def := names.Definition{Name: names.ParseQName(rec.Name)}
	switch names.OwnerKind(rec.Owner) {
	case names.OwnerClass:
		def.Owner = names.ClassOwner{Interface: rec.Interface, Super: rec.Super, Ifaces: rec.Ifaces}
	case names.OwnerFunction:
		def.Owner = names.FunctionOwner{Params: rec.Params}
	case names.OwnerLibrary:
		def.Owner = names.LibraryOwner{Const: rec.Const}
	}
	return def
}

// SourceFinder returns the current source for a name, if it still exists.
type SourceFinder func(name string) (*source.Source, bool)

// Restore rebuilds the recorded units as Done. Sources are taken from find;
// a source that is gone gets a content-less stand-in so the Validator sees
// it as deleted. Front-end state is not restored.
func (s *Snapshot) Restore(find SourceFinder) map[string]*unit.Unit {
	units := make(map[string]*unit.Unit, len(s.Units))
	srcs := make(map[string]*source.Source, len(s.Units))
	for _, rec := range s.Units {
		srcs[rec.Name] = rec.source(find)
	}
	for _, rec := range s.Units {
		src := srcs[rec.Name]
		u := unit.New(src)
		for _, p := range unit.Phases {
			if p == unit.PhaseNone {
				continue
			}
			// последовательность фаз полная, ошибок быть не может
			_ = u.Workflow.Complete(p)
		}
		if rec.Expected != "" {
			u.Expected = names.ParseQName(rec.Expected)
		}
		u.Signature = rec.Signature
		u.Bundles = rec.Bundles
		u.Artifact = rec.Artifact
		u.Feature = rec.Feature
		for _, e := range rec.Exports {
			u.Exports = append(u.Exports, e.definition())
		}
		for _, k := range unit.Kinds {
			for _, ref := range rec.History[k] {
				u.Refs[k].Record(names.ParseKey(ref.Key), unit.Resolution{QName: names.ParseQName(ref.QName), Source: ref.Source})
			}
		}
		for _, name := range rec.Generated {
			if gen, ok := srcs[name]; ok {
				u.Generated = append(u.Generated, gen)
			}
		}
		src.RestoreCompiled(rec.Digest)
		units[rec.Name] = u
	}
	return units
}

func (rec UnitRecord) source(find SourceFinder) *source.Source {
	mime, kind := source.Mime(rec.Mime), source.Kind(rec.Kind)
	if kind == source.KindGenerated {
		src := source.New(rec.Name, mime, kind, source.NewBuffer(rec.Content))
		src.Origin = rec.Origin
		return src
	}
	if find != nil {
		if src, ok := find(rec.Name); ok {
			return src
		}
	}
	src := source.New(rec.Name, mime, kind, nil)
	src.Origin = rec.Origin
	return src
}
