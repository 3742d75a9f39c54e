package diagfmt

import (
	"encoding/json"
	"io"

	"diagcheck/internal/diag"
	"diagcheck/internal/runner"
	"diagcheck/internal/source"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifInvocation struct {
	ExecutionSuccessful bool     `json:"executionSuccessful"`
	ExitCode            int      `json:"exitCode"`
	Arguments           []string `json:"arguments,omitempty"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   uint32 `json:"startLine"`
	StartColumn uint32 `json:"startColumn,omitempty"`
	EndLine     uint32 `json:"endLine,omitempty"`
	EndColumn   uint32 `json:"endColumn,omitempty"`
}

// sarifRules enumerates the checker's own finding codes with the stable
// descriptions SARIF consumers index by.
var sarifRules = []sarifRule{
	{ID: diag.CodeMissing.ID(), ShortDescription: sarifMessage{Text: "expected diagnostic was not reported"}},
	{ID: diag.CodeUnexpected.ID(), ShortDescription: sarifMessage{Text: "tool reported a diagnostic no expectation covers"}},
	{ID: diag.CodeSeverityMismatch.ID(), ShortDescription: sarifMessage{Text: "expected severity is stronger than the reported one"}},
	{ID: diag.CodeNoExpectations.ID(), ShortDescription: sarifMessage{Text: "fixture carries no expectation comments"}},
	{ID: diag.CodeBadExpectation.ID(), ShortDescription: sarifMessage{Text: "expectation marker could not be parsed"}},
	{ID: diag.CodeToolMissing.ID(), ShortDescription: sarifMessage{Text: "tool binary was not found"}},
	{ID: diag.CodeToolFailed.ID(), ShortDescription: sarifMessage{Text: "tool terminated abnormally"}},
	{ID: diag.CodeToolOutput.ID(), ShortDescription: sarifMessage{Text: "tool output could not be parsed"}},
	{ID: diag.CodeToolTimeout.ID(), ShortDescription: sarifMessage{Text: "tool exceeded the per-file time budget"}},
	{ID: diag.CodeLoadFailed.ID(), ShortDescription: sarifMessage{Text: "fixture could not be read"}},
}

func sarifLevel(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	default:
		return "note"
	}
}

// Sarif renders the run report in SARIF 2.1.0: one result per checker
// finding, rules for the CHK/TOOL/IO namespaces, and an invocation entry
// carrying the run verdict.
func Sarif(w io.Writer, rep *runner.Report, meta SarifRunMeta) error {
	results := make([]sarifResult, 0, 16)
	for i := range rep.Results {
		r := &rep.Results[i]
		for j := range r.Findings {
			results = append(results, sarifFinding(rep.FileSet, r.Path, &r.Findings[j]))
		}
	}

	exitCode := 0
	if !rep.Summary.Ok() {
		exitCode = 1
	}

	log := sarifLog{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:    meta.ToolName,
				Version: meta.ToolVersion,
				Rules:   sarifRules,
			}},
			Invocations: []sarifInvocation{{
				ExecutionSuccessful: rep.Summary.Ok(),
				ExitCode:            exitCode,
				Arguments:           meta.InvocationArgs,
			}},
			Results: results,
		}},
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(log)
}

func sarifFinding(fs *source.FileSet, relPath string, d *diag.Diagnostic) sarifResult {
	ruleID := d.Code.ID()
	if ruleID == "" {
		ruleID = d.Category.String()
	}

	res := sarifResult{
		RuleID:  ruleID,
		Level:   sarifLevel(d.Severity),
		Message: sarifMessage{Text: d.Message},
	}

	loc := sarifLocation{PhysicalLocation: sarifPhysicalLocation{
		ArtifactLocation: sarifArtifactLocation{URI: relPath},
	}}
	if d.Primary.Start != 0 || d.Primary.End != 0 {
		start, end := fs.Resolve(d.Primary)
		loc.PhysicalLocation.Region = &sarifRegion{
			StartLine:   start.Line,
			StartColumn: start.Col,
			EndLine:     end.Line,
			EndColumn:   end.Col,
		}
	}
	res.Locations = []sarifLocation{loc}
	return res
}
