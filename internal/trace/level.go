package trace

import (
	"fmt"
	"strings"
)

// Level controls how fine-grained the emitted events are.
type Level uint8

const (
	LevelOff Level = iota
	// LevelError keeps the ring for a dump after a failed build; no scope
	// passes the filter, only heartbeats.
	LevelError
	LevelPhase  // build stages and scheduler rounds
	LevelDetail // plus one span per unit phase
	LevelDebug  // plus name resolution and splicing
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel accepts a level name in any case.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// ShouldEmit reports whether events of scope pass at level l.
func (l Level) ShouldEmit(scope Scope) bool {
	// Scope растёт с детализацией: Driver < Round < Phase < Unit
	switch l {
	case LevelPhase:
		return scope <= ScopeRound
	case LevelDetail:
		return scope <= ScopePhase
	case LevelDebug:
		return true
	}
	return false
}
