// Package diag defines the diagnostic model shared by tool adapters, the
// matcher, and the report formatters.
//
// # Purpose
//
//   - Provide deterministic, serialisable data structures that capture both
//     the diagnostics external tools emit and the findings the checker
//     derives from them.
//   - Offer light-weight utilities (Reporter, Bag) that let adapters emit
//     diagnostics without coupling to concrete storage or formatting layers.
//   - Centralise the category taxonomy fixtures are annotated in, together
//     with the per-tool code tables that project tool output onto it.
//
// # Scope
//
// Package diag does not invoke tools, scan fixtures, or render output.
// Invocation lives in internal/toolchain, expectation scanning in
// internal/expect, matching in internal/match, and rendering in
// internal/diagfmt.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – the tool's own identifier ("E0308", "reportArgumentType") or a
//     CHK/TOOL code for findings the checker produces itself (codes.go).
//   - Category – the taxonomy bucket used for matching (category.go).
//   - Message – the tool's text, whitespace-sanitised for single-line output.
//   - Primary – byte span in the fixture, anchored via internal/source.
//   - Notes – secondary locations (rustc children, pyright related spans).
//
// Bag stores diagnostics with a hard cap so a pathological tool run cannot
// balloon memory; Sort and Dedup give reports and golden files a stable
// order. FormatGolden renders the single-line form tests diff against.
package diag
