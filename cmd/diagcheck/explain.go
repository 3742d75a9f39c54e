package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"diagcheck/internal/diag"
)

// categoryDoc describes one taxonomy bucket for humans.
type categoryDoc struct {
	Category diag.Category
	Summary  string
	Marker   string // example marker as it would appear in a fixture
	Detail   string
}

// codeDoc describes one checker finding code.
type codeDoc struct {
	Code    diag.Code
	Summary string
}

var categoryDocs = []categoryDoc{
	{
		Category: diag.CatOther,
		Summary:  "fallback bucket for unclassifiable diagnostics",
		Marker:   "// error: something went wrong",
		Detail: `Markers whose hint resists classification land here, and so do tool
diagnostics with no known code. An "other" marker matches a diagnostic
of any category (at a small scoring penalty), so it is the right choice
when the exact class does not matter or keeps changing between tool
versions.`,
	},
	{
		Category: diag.CatSyntax,
		Summary:  "the file does not parse",
		Marker:   "// error(syntax): expected one of `,` or `}`",
		Detail: `Parse errors. rustc reports these without an E-code, go/types calls
them syntax errors, pyright flags them as general errors. Note that a
syntax error usually suppresses every later diagnostic in the file, so
keep syntax fixtures to a single seeded mistake.`,
	},
	{
		Category: diag.CatTypeMismatch,
		Summary:  "a value has the wrong type",
		Marker:   `// type error: expected i32, found String`,
		Detail: `The bread-and-butter category: assignments, arguments and returns of
the wrong type, unsatisfied trait bounds, bad operators. The shorthand
"type error:" is equivalent to "error(type-mismatch):".`,
	},
	{
		Category: diag.CatUnresolved,
		Summary:  "a name does not exist in scope",
		Marker:   "// error(unresolved): cannot find value `speling`",
		Detail: `Undefined variables, unknown functions, failed imports and missing
modules. All three tools are reliable here, which makes unresolved
fixtures the best smoke test for adapter wiring.`,
	},
	{
		Category: diag.CatBorrow,
		Summary:  "a borrow conflicts with another borrow",
		Marker:   "// error(borrow): cannot borrow `v` as mutable more than once",
		Detail: `rustc-specific: E0499, E0502, E0596 and friends. The other front ends
never produce this category, so borrow fixtures belong under the rust
root only.`,
	},
	{
		Category: diag.CatMove,
		Summary:  "a value is used after being moved",
		Marker:   "// error(use-after-move): borrow of moved value `s`",
		Detail: `rustc-specific: E0382 and E0505. Hints mentioning moved values infer
this category automatically; the explicit tag is only needed when the
hint text avoids the word "moved".`,
	},
	{
		Category: diag.CatLifetime,
		Summary:  "a reference outlives its referent",
		Marker:   "// error(lifetime): missing lifetime specifier",
		Detail:   `rustc-specific: E0106, E0621 and other lifetime complaints.`,
	},
	{
		Category: diag.CatNonExhaustive,
		Summary:  "a match does not cover every case",
		Marker:   "// error(non-exhaustive): pattern `None` not covered",
		Detail: `rustc's E0004. Useful for keeping enum fixtures honest: adding a
variant upstream flips these fixtures red.`,
	},
	{
		Category: diag.CatUnused,
		Summary:  "something is declared but never used",
		Marker:   "// warning(unused): unused variable `x`",
		Detail: `Usually a warning, not an error: rustc lints (unused_variables,
dead_code), go's "declared and not used" (an error there!) and
pyright's reportUnusedVariable. Severity follows the tool, so the
same category appears as "warning:" in rust fixtures and "error:"
in go ones.`,
	},
	{
		Category: diag.CatUnreachable,
		Summary:  "code can never execute",
		Marker:   "// warning(unreachable): unreachable statement",
		Detail:   `Code after return/panic. A lint in rustc, a vet error in go.`,
	},
}

// checkerCodeDocs explains the checker's own finding codes, the ones that
// show up in reports next to tool codes.
var checkerCodeDocs = []codeDoc{
	{diag.CodeMissing, "a marker expected a diagnostic the tool did not report"},
	{diag.CodeUnexpected, "the tool reported a diagnostic no marker covers"},
	{diag.CodeSeverityMismatch, "marker said error, tool only warned"},
	{diag.CodeNoExpectations, "fixture has no markers at all (require_expectations)"},
	{diag.CodeBadExpectation, "marker could not be parsed (empty hint, unknown tag)"},
	{diag.CodeToolMissing, "the front end binary was not found"},
	{diag.CodeToolFailed, "the front end crashed or terminated abnormally"},
	{diag.CodeToolOutput, "the front end produced output the adapter cannot parse"},
	{diag.CodeToolTimeout, "the front end exceeded the per-file time budget"},
	{diag.CodeTimings, "informational phase timing payload"},
	{diag.CodeLoadFailed, "a discovered fixture could not be read"},
}

var explainCmd = &cobra.Command{
	Use:   "explain [category|code]",
	Short: "Describe the expectation taxonomy and finding codes",
	Long: `Explain documents the vocabulary of a report.

Without arguments it lists every expectation category with an example
marker. Given a category name it prints the full story including the
tool codes that map onto it. Given a code (CHK0001, E0382,
reportUndefinedVariable, ...) it explains that code.

Examples:
  diagcheck explain
  diagcheck explain use-after-move
  diagcheck explain CHK0003
  diagcheck explain E0502`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExplain,
}

func runExplain(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		printTaxonomy(out)
		return nil
	}

	arg := strings.TrimSpace(args[0])

	// Сначала коды: у категорий и кодов непересекающиеся имена
	if doc, ok := lookupCheckerCode(arg); ok {
		fmt.Fprintf(out, "%s  %s\n", doc.Code, doc.Summary)
		return nil
	}
	if cc, tool, ok := lookupToolCode(arg); ok {
		fmt.Fprintf(out, "%s  (%s)  maps to category %q\n", cc.Code, tool, cc.Category)
		fmt.Fprintf(out, "\nFixtures annotate the category, not the code:\n")
		fmt.Fprintf(out, "    %s\n", docForCategory(cc.Category).Marker)
		return nil
	}

	cat, err := diag.ParseCategory(arg)
	if err != nil {
		return fmt.Errorf("%q is neither a category nor a known code", arg)
	}
	printCategory(out, cat)
	return nil
}

func printTaxonomy(out io.Writer) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Expectation categories")
	fmt.Fprintln(out, strings.Repeat("=", 22))
	fmt.Fprintln(out)
	for _, doc := range categoryDocs {
		fmt.Fprintf(out, "%-15s %s\n", doc.Category, doc.Summary)
		fmt.Fprintf(out, "%-15s e.g. %s\n", "", doc.Marker)
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, "Checker finding codes")
	fmt.Fprintln(out, strings.Repeat("=", 21))
	fmt.Fprintln(out)
	for _, doc := range checkerCodeDocs {
		fmt.Fprintf(out, "%-10s %s\n", doc.Code, doc.Summary)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Use `diagcheck explain <category>` for details and tool code tables.")
}

func printCategory(out io.Writer, cat diag.Category) {
	doc := docForCategory(cat)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s: %s\n", doc.Category, doc.Summary)
	fmt.Fprintln(out, strings.Repeat("-", 60))
	fmt.Fprintln(out)
	fmt.Fprintln(out, doc.Detail)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Example marker:\n    %s\n", doc.Marker)

	for _, tool := range []string{"rustc", "pyright"} {
		var rows []diag.CodeCategory
		for _, cc := range diag.KnownToolCodes(tool) {
			if cc.Category == cat {
				rows = append(rows, cc)
			}
		}
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%s codes in this category:\n", tool)
		for _, cc := range rows {
			fmt.Fprintf(out, "    %s\n", cc.Code)
		}
	}
	fmt.Fprintln(out)
}

func docForCategory(cat diag.Category) categoryDoc {
	for _, doc := range categoryDocs {
		if doc.Category == cat {
			return doc
		}
	}
	// ParseCategory не выдаёт категорий вне таблицы
	return categoryDocs[0]
}

func lookupCheckerCode(arg string) (codeDoc, bool) {
	needle := strings.ToUpper(arg)
	for _, doc := range checkerCodeDocs {
		if string(doc.Code) == needle {
			return doc, true
		}
	}
	return codeDoc{}, false
}

func lookupToolCode(arg string) (diag.CodeCategory, string, bool) {
	for _, tool := range []string{"rustc", "pyright"} {
		for _, cc := range diag.KnownToolCodes(tool) {
			if string(cc.Code) == arg {
				return cc, tool, true
			}
		}
	}
	return diag.CodeCategory{}, "", false
}
