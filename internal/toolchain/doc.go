// Package toolchain invokes the external front ends fixtures are checked
// against and parses their diagnostics into the common model.
//
// Each Adapter owns one tool: rustc (JSON error format), the Go toolchain
// (go vet over a synthesized throwaway module), and pyright (--outputjson).
// A fixture is always handed to the tool as a file path; its bytes are never
// rewritten. A non-zero tool exit with parseable diagnostics is the normal
// outcome for a corpus of deliberately broken files, so Check treats it as
// success. Errors are reserved for invocation-level failures: the binary is
// missing, the run timed out, or the output cannot be parsed.
package toolchain
