package trace

import "time"

// Kind is what an event marks.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	// KindHeartbeat is periodic and bypasses level filtering.
	KindHeartbeat
)

var kindNames = map[Kind]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Scope is the granularity of an event; larger values are finer.
type Scope uint8

const (
	// ScopeDriver covers a whole build and its stages.
	ScopeDriver Scope = iota + 1
	// ScopeRound is one scheduler round: a barrier in batch1, an admission
	// round in batch2.
	ScopeRound
	// ScopePhase is one phase run for one unit.
	ScopePhase
	// ScopeUnit covers resolution and splicing inside a phase.
	ScopeUnit
)

var scopeNames = map[Scope]string{
	ScopeDriver: "driver",
	ScopeRound:  "round",
	ScopePhase:  "phase",
	ScopeUnit:   "unit",
}

func (s Scope) String() string {
	if n, ok := scopeNames[s]; ok {
		return n
	}
	return "unknown"
}

// Event is one trace record. Seq orders events across goroutines; SpanID
// and ParentID are zero for points outside any span.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	GID      uint64
	Name     string // "round", "parse1", "resolve:flash.display:Sprite"
	Detail   string
	Extra    map[string]string
}
