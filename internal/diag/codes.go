package diag

import (
	"regexp"
	"sort"
	"strings"
)

// Code identifies a diagnostic class. Actual diagnostics carry the code the
// external tool reported ("E0308", "unused_variables", "reportArgumentType");
// findings produced by the checker itself use the CHK/TOOL namespaces below.
// Go type-check output has no codes, so its diagnostics keep Code empty and
// are classified by message.
type Code string

// Checker findings.
const (
	// CodeMissing: an expectation had no matching actual diagnostic.
	CodeMissing Code = "CHK0001"
	// CodeUnexpected: the tool produced a diagnostic no expectation covers.
	CodeUnexpected Code = "CHK0002"
	// CodeSeverityMismatch: category matched but the actual severity is weaker.
	CodeSeverityMismatch Code = "CHK0003"
	// CodeNoExpectations: the fixture carries no expectation comments at all.
	CodeNoExpectations Code = "CHK0004"
	// CodeBadExpectation: an expectation marker could not be parsed.
	CodeBadExpectation Code = "CHK0005"
)

// Tool invocation findings.
const (
	// CodeToolMissing: the external tool binary was not found.
	CodeToolMissing Code = "TOOL0001"
	// CodeToolFailed: the tool terminated abnormally (signal, internal error).
	CodeToolFailed Code = "TOOL0002"
	// CodeToolOutput: the tool produced output the adapter cannot parse.
	CodeToolOutput Code = "TOOL0003"
	// CodeToolTimeout: the tool exceeded the per-file time budget.
	CodeToolTimeout Code = "TOOL0004"
)

// Observability entries, informational only.
const (
	// CodeTimings: phase timing payload attached to a run.
	CodeTimings Code = "OBS0001"
)

// I/O findings.
const (
	// CodeLoadFailed: a discovered fixture could not be read.
	CodeLoadFailed Code = "IO0001"
)

// ID returns the stable string form.
func (c Code) ID() string {
	return string(c)
}

func (c Code) String() string {
	return string(c)
}

// IsChecker reports whether the code belongs to the checker's own namespaces
// rather than to an external tool.
func (c Code) IsChecker() bool {
	s := string(c)
	return strings.HasPrefix(s, "CHK") || strings.HasPrefix(s, "TOOL") ||
		strings.HasPrefix(s, "OBS") || strings.HasPrefix(s, "IO")
}

// Category resolves the code against the per-tool tables. Codes unknown to
// every table give CatOther.
func (c Code) Category() Category {
	if cat, ok := rustcCategories[string(c)]; ok {
		return cat
	}
	if cat, ok := pyrightCategories[string(c)]; ok {
		return cat
	}
	return CatOther
}

// rustcCategories maps rustc error codes and lint names onto the fixture
// taxonomy. Lint-level findings come through the same code field as E-codes.
var rustcCategories = map[string]Category{
	// hard errors
	"E0004": CatNonExhaustive, // non-exhaustive patterns
	"E0106": CatLifetime,      // missing lifetime specifier
	"E0277": CatTypeMismatch,  // trait bound not satisfied
	"E0308": CatTypeMismatch,  // mismatched types
	"E0382": CatMove,          // use of moved value
	"E0384": CatOther,         // reassignment of immutable
	"E0412": CatUnresolved,    // cannot find type
	"E0425": CatUnresolved,    // cannot find value
	"E0433": CatUnresolved,    // failed to resolve path
	"E0499": CatBorrow,        // second mutable borrow
	"E0502": CatBorrow,        // mutable borrow while immutably borrowed
	"E0505": CatMove,          // move out of borrowed value
	"E0596": CatBorrow,        // cannot borrow as mutable
	"E0621": CatLifetime,      // explicit lifetime required

	// lints
	"dead_code":            CatUnused,
	"unreachable_code":     CatUnreachable,
	"unreachable_patterns": CatUnreachable,
	"unused_imports":       CatUnused,
	"unused_mut":           CatUnused,
	"unused_variables":     CatUnused,
}

// pyrightCategories maps pyright rule names onto the fixture taxonomy.
var pyrightCategories = map[string]Category{
	"reportArgumentType":         CatTypeMismatch,
	"reportAssignmentType":       CatTypeMismatch,
	"reportAttributeAccessIssue": CatUnresolved,
	"reportCallIssue":            CatTypeMismatch,
	"reportGeneralTypeIssues":    CatTypeMismatch,
	"reportIndexIssue":           CatTypeMismatch,
	"reportMissingImports":       CatUnresolved,
	"reportOperatorIssue":        CatTypeMismatch,
	"reportRedeclaration":        CatOther,
	"reportReturnType":           CatTypeMismatch,
	"reportUndefinedVariable":    CatUnresolved,
	"reportUnreachable":          CatUnreachable,
	"reportUnusedExpression":     CatUnused,
	"reportUnusedImport":         CatUnused,
	"reportUnusedVariable":       CatUnused,
}

// Go type-check diagnostics carry no code, only prose. The classifier keys
// off stable phrases of go/types and cmd/vet output.
var (
	goUnresolvedRe   = regexp.MustCompile(`^undefined:|undeclared name|not declared by package`)
	goUnusedRe       = regexp.MustCompile(`declared and not used|imported and not used`)
	goTypeMismatchRe = regexp.MustCompile(`cannot use .* as .*|incompatible type|cannot convert|mismatched types|does not match|invalid operation:`)
	goUnreachableRe  = regexp.MustCompile(`^unreachable code$`)
)

func classifyGoMessage(msg string) Category {
	switch {
	case goUnresolvedRe.MatchString(msg):
		return CatUnresolved
	case goUnusedRe.MatchString(msg):
		return CatUnused
	case goUnreachableRe.MatchString(msg):
		return CatUnreachable
	case goTypeMismatchRe.MatchString(msg):
		return CatTypeMismatch
	}
	return CatOther
}

// Classify resolves a tool diagnostic to its category. The code takes
// precedence; tools without codes fall back to message classification.
func Classify(tool string, code Code, msg string) Category {
	if tool == "go" || code == "" {
		if cat := classifyByMessage(tool, msg); cat != CatOther {
			return cat
		}
	}
	if code != "" {
		if cat := code.Category(); cat != CatOther {
			return cat
		}
	}
	return classifyByMessage(tool, msg)
}

func classifyByMessage(tool, msg string) Category {
	if tool == "go" {
		return classifyGoMessage(msg)
	}
	// синтаксические ошибки rustc приходят без E-кода, их ловит
	// текстовая эвристика
	return InferCategory(msg)
}

// KnownToolCodes returns the documented code -> category pairs for a tool,
// sorted by code. Used by the explain command.
func KnownToolCodes(tool string) []CodeCategory {
	var table map[string]Category
	switch tool {
	case "rustc":
		table = rustcCategories
	case "pyright":
		table = pyrightCategories
	default:
		return nil
	}
	out := make([]CodeCategory, 0, len(table))
	for code, cat := range table {
		out = append(out, CodeCategory{Code: Code(code), Category: cat})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// CodeCategory pairs a tool code with its taxonomy bucket.
type CodeCategory struct {
	Code     Code
	Category Category
}
