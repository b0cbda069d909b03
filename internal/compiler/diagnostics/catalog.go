package diagnostics

import (
	"bytes"
	"text/template"
)

// Catalog maps each Code to a canonical message template, rendered with
// the Diagnostic as dot. Grounded on the teacher's catalog.go.
var Catalog = map[Code]*template.Template{
	CodeLexError:               mustParse("{{index .Params \"Detail\"}}"),
	CodeParseError:             mustParse("{{index .Params \"Detail\"}}"),
	CodeUndeclaredSymbol:       mustParse("undeclared symbol '{{index .Params \"Name\"}}'"),
	CodeRedeclared:             mustParse("'{{index .Params \"Name\"}}' is already declared in this scope"),
	CodeTypeMismatch:           mustParse("type mismatch: expected {{index .Params \"Expected\"}}, got {{index .Params \"Got\"}}"),
	CodeNotAssignable:          mustParse("{{index .Params \"Got\"}} is not assignable to {{index .Params \"Expected\"}}"),
	CodeTypeCouldNotBeInferred: mustParse("type of '{{index .Params \"Name\"}}' could not be inferred"),
	CodeInvalidAnnotation:      mustParse("invalid annotation '{{index .Params \"Name\"}}'"),
	CodeUseAfterMove:           mustParse("'{{index .Params \"Name\"}}' was moved and cannot be read again"),
	CodeGenericCycle:           mustParse("circular generic instantiation of '{{index .Params \"Name\"}}' ({{index .Params \"Key\"}})"),
	CodePreprocessError:        mustParse("{{index .Params \"Detail\"}}"),
	CodeEmitError:              mustParse("{{index .Params \"Detail\"}}"),
	CodeToolchainError:         mustParse("{{index .Params \"Detail\"}}"),
}

func mustParse(t string) *template.Template {
	return template.Must(template.New("").Parse(t))
}

func renderFromCatalog(d Diagnostic) string {
	tmpl, ok := Catalog[d.Code]
	if !ok {
		return ""
	}
	var buf bytes.Buffer
	_ = tmpl.Execute(&buf, d)
	return buf.String()
}
