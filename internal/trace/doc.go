// Package trace provides a tracing subsystem for the diagcheck harness.
//
// The trace package records run phases, per-fixture processing and external
// tool invocations to help diagnose slow corpora and hung tools.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	diagcheck run --trace=- --trace-level=phase
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - NopTracer: Zero-overhead no-op tracer when disabled
//   - StreamTracer: Immediate write to output (file/stderr)
//   - RingTracer: Circular buffer for crash dumps
//   - MultiTracer: Combines multiple tracers
//
// # Levels
//
// Tracing verbosity is controlled by levels:
//
//   - LevelOff: No tracing
//   - LevelError: Only crash dumps
//   - LevelPhase: Run phase boundaries (discover, scan, check, report)
//   - LevelDetail: Per-fixture events
//   - LevelDebug: Everything including tool subprocess detail
//
// # Scopes
//
// Events are categorized by scope:
//
//   - ScopeDriver: Top-level CLI operations
//   - ScopePhase: Run phases (discover, scan, check, report)
//   - ScopeFile: Per-fixture processing
//   - ScopeTool: External tool invocations
//
// # Context Propagation
//
// Tracers are propagated through the run via context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePhase, "check", parentID)
//	defer span.End("")
package trace
