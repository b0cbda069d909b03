package diagnostics

// Reporter accumulates diagnostics during one analysis pass. Per spec.md
// §7: "Semantic errors during a pass are collected; the pass continues
// where possible (per-statement boundary), then reports all accumulated
// errors together." Lexical/syntactic errors bypass Reporter entirely and
// abort immediately (the parser returns a plain error instead).
// Preprocessor errors are reported here as PreprocessError and also abort
// analysis, since the visitor returns the error as well.
//
// Grounded on the teacher's analysis.ErrorReporterImpl
// (internal/transpiler/analysis/errors.go): Report/HasErrors/All, renamed
// to spec.md's Diagnostic shape.
type Reporter struct {
	diags []Diagnostic
}

func NewReporter() *Reporter { return &Reporter{} }

func (r *Reporter) Report(d Diagnostic) { r.diags = append(r.diags, d) }

func (r *Reporter) HasErrors() bool {
	for _, d := range r.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (r *Reporter) All() []Diagnostic { return r.diags }

// HighestSeverityExitCode reflects spec.md §7's "exit code reflects the
// highest severity reached": 1 if any error was reported, 0 otherwise.
// The distinct toolchain-failure exit code (2) is assigned by the CLI,
// which is the only layer that knows whether the failure came from here
// or from the external C toolchain.
func (r *Reporter) HighestSeverityExitCode() int {
	if r.HasErrors() {
		return 1
	}
	return 0
}

// RenderAll renders every collected diagnostic as spec.md §7's one-line
// text format, one per line.
func (r *Reporter) RenderAll() string {
	var out string
	for i, d := range r.diags {
		if i > 0 {
			out += "\n"
		}
		out += d.RenderText()
	}
	return out
}
