package version

import "github.com/fatih/color"

// Build metadata for the diagcheck CLI. The plain variables can be
// overridden at build time via -ldflags; Version is assembled from them so
// the colored rendering survives an override.

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)

	// Major, Minor and Patch hold the semantic version components.
	Major = "0"
	Minor = "1"
	Patch = "0"

	// Pre is the pre-release suffix, without the dash.
	Pre = "dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is the subject line of the commit, when recorded.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// String renders the plain semantic version, e.g. "0.1.0-dev".
func String() string {
	v := Major + "." + Minor + "." + Patch
	if Pre != "" {
		v += "-" + Pre
	}
	return v
}

// Colored renders the version with each component tinted. Honors the
// global color.NoColor switch, so piped output stays clean.
func Colored() string {
	v := majorColor.Sprint(Major) + "." + minorColor.Sprint(Minor) + "." + patchColor.Sprint(Patch)
	if Pre != "" {
		v += "-" + Pre
	}
	return v
}
