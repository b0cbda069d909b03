package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vexlang/vxc/internal/compiler/token"
)

// Severity distinguishes a fatal error from a collected warning.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a structured compiler diagnostic: every error kind in
// spec.md §7 "carries a source span and optional chained cause."
type Diagnostic struct {
	Code     Code           `json:"code"`
	Severity Severity       `json:"severity"`
	Span     token.Span     `json:"span"`
	Message  string         `json:"message"`
	Params   map[string]any `json:"params,omitempty"`
	Cause    *Diagnostic    `json:"cause,omitempty"`
}

// New constructs a Diagnostic at span with params rendered through the
// Catalog.
func New(code Code, span token.Span, params map[string]any) Diagnostic {
	if params == nil {
		params = make(map[string]any)
	}
	return Diagnostic{Code: code, Severity: SeverityError, Span: span, Params: params}
}

// WithCause chains an underlying diagnostic, per spec.md §7's "optional
// secondary span for the cause."
func (d Diagnostic) WithCause(cause Diagnostic) Diagnostic {
	d.Cause = &cause
	return d
}

// WithMessage overrides the catalog-rendered message.
func (d Diagnostic) WithMessage(msg string) Diagnostic {
	d.Message = msg
	return d
}

func (d Diagnostic) renderMessage() string {
	if strings.TrimSpace(d.Message) != "" {
		return d.Message
	}
	return renderFromCatalog(d)
}

// RenderText produces spec.md §7's one-line format:
//
//	<file>:<line>:<col>: <kind>: <message>
//
// optionally followed by an indented secondary line for the cause.
func (d Diagnostic) RenderText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s: %s", d.Span, d.Code, d.renderMessage())
	if d.Cause != nil {
		b.WriteString("\n\t")
		b.WriteString(d.Cause.RenderText())
	}
	return b.String()
}

// RenderJSON renders a machine-readable representation with the catalog
// message filled in.
func (d Diagnostic) RenderJSON() ([]byte, error) {
	if strings.TrimSpace(d.Message) == "" {
		d.Message = d.renderMessage()
	}
	return json.Marshal(d)
}

func (d Diagnostic) Error() string { return d.RenderText() }
