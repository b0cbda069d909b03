// Package diagnostics implements the compiler's structured error/warning
// catalog (spec.md §7): a closed set of error kinds, a text/template
// message catalog keyed by kind, and a position-aware Diagnostic value
// that renders either as the one-line text format spec.md §7 mandates
// (`<file>:<line>:<col>: <kind>: <message>`) or as JSON for tooling.
//
// Grounded on the teacher's diagnostics package (codes.go/catalog.go/
// diagnostic.go): same Code/Catalog/Diagnostic split, generalized from the
// teacher's ad-hoc Vex-specific codes to spec.md §7's closed error-kind
// enumeration.
package diagnostics

// Code is one of spec.md §7's closed error kinds.
type Code string

const (
	CodeLexError                Code = "LexError"
	CodeParseError              Code = "ParseError"
	CodeUndeclaredSymbol        Code = "UndeclaredSymbol"
	CodeRedeclared              Code = "Redeclared"
	CodeTypeMismatch            Code = "TypeMismatch"
	CodeNotAssignable           Code = "NotAssignable"
	CodeTypeCouldNotBeInferred  Code = "TypeCouldNotBeInferred"
	CodeInvalidAnnotation       Code = "InvalidAnnotation"
	CodeUseAfterMove            Code = "UseAfterMove"
	CodeGenericCycle            Code = "GenericCycle"
	CodePreprocessError         Code = "PreprocessError"
	CodeEmitError               Code = "EmitError"
	CodeToolchainError          Code = "ToolchainError"
)
