// Package match pairs the expectations scanned out of a fixture with the
// diagnostics an external tool actually reported, and turns the difference
// into checker findings.
//
// The pairing is a greedy best-match over (expectation, diagnostic) edges.
// An edge exists when the diagnostic's category and anchor line satisfy the
// expectation under the configured mode; closer lines, exact severities and
// tagged categories win over looser pairings. Whatever remains unpaired
// becomes a finding: CHK0001 for an expectation the tool never answered,
// CHK0002 for a diagnostic no marker asked for, CHK0003 for a pairing with
// the wrong severity.
//
// A file fails exactly when matching produced an error-level finding.
package match
