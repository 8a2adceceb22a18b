// Package diag defines the diagnostic model shared by the scheduler and the
// front-ends it drives.
//
// # Purpose
//
//   - Provide deterministic data structures for findings produced while units
//     advance through their phases.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to storage or formatting.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary – Pos naming the originating Source (and line when known).
//   - Notes – optional secondary positions/messages for additional context.
//
// # Emitting diagnostics
//
// Phase functions report through a diag.Reporter. Each compilation unit owns a
// Bag; the scheduler wraps it with a CountingReporter so the build session can
// enforce its error threshold. No Go error crosses the scheduler boundary to
// signal a compile problem: outcome is read from error counts.
package diag
