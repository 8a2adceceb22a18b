// Package trace records what a build session does over time: stages,
// scheduler rounds, unit phases and resolution steps.
//
// A Tracer is attached to the build context with WithTracer and fetched
// with FromContext, which falls back to Nop. Events are kept in a ring
// (RingTracer), written as they happen (StreamTracer) or both; the CLI
// dumps the ring to stderr when a build fails.
//
//	asbuild build --trace=build.json --trace-level=detail
//
// Levels select scopes: LevelPhase keeps ScopeDriver and ScopeRound,
// LevelDetail adds ScopePhase, LevelDebug adds ScopeUnit. Heartbeats pass
// every level except LevelOff and carry the status last set by the build,
// which makes a stuck phase visible in a live stream.
//
//	span := trace.Begin(t, trace.ScopeRound, "round", parent)
//	defer span.End("")
package trace
