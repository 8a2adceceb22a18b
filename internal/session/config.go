package session

import (
	"fmt"
	"slices"
	"strings"

	"asbuild/internal/source"
)

// Strategy selects the scheduling algorithm.
type Strategy uint8

const (
	StrategyAuto Strategy = iota
	StrategyBatch1
	StrategyBatch2
)

func (s Strategy) String() string {
	switch s {
	case StrategyBatch1:
		return "batch1"
	case StrategyBatch2:
		return "batch2"
	}
	return "auto"
}

// ParseStrategy converts a flag value to Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return StrategyAuto, nil
	case "batch1", "barrier":
		return StrategyBatch1, nil
	case "batch2", "priority":
		return StrategyBatch2, nil
	}
	return StrategyAuto, fmt.Errorf("invalid strategy: %q (expected: auto|batch1|batch2)", s)
}

const (
	DefaultMaxErrors = 100
	DefaultFactor    = 16
)

// Config is the build configuration visible to the scheduler and front-ends.
type Config struct {
	Strict             bool
	Warnings           bool
	Factor             int
	DisableIncremental bool
	MaxErrors          int
	Strategy           Strategy
	Locales            []string
	ForceRecompile     bool
	// SignatureExcludedMimes never get signature comparison.
	SignatureExcludedMimes []source.Mime
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Warnings:               true,
		Factor:                 DefaultFactor,
		MaxErrors:              DefaultMaxErrors,
		Locales:                []string{"en_US"},
		SignatureExcludedMimes: []source.Mime{source.MimeMarkup},
	}
}

// SignatureExcluded reports whether m skips signature comparison.
func (c Config) SignatureExcluded(m source.Mime) bool {
	return slices.Contains(c.SignatureExcludedMimes, m)
}
