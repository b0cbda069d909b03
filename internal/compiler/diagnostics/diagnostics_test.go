package diagnostics

import (
	"strings"
	"testing"

	"github.com/vexlang/vxc/internal/compiler/token"
)

func TestRenderTextFormat(t *testing.T) {
	d := New(CodeUndeclaredSymbol, token.Span{File: "a.vx", Start: token.Pos{Line: 3, Column: 5}}, map[string]any{"Name": "foo"})
	text := d.RenderText()
	if !strings.Contains(text, "a.vx:3:5") || !strings.Contains(text, "UndeclaredSymbol") || !strings.Contains(text, "foo") {
		t.Fatalf("unexpected rendering: %s", text)
	}
}

func TestRenderTextWithCause(t *testing.T) {
	cause := New(CodeTypeMismatch, token.Span{File: "a.vx"}, map[string]any{"Expected": "int32", "Got": "bool"})
	d := New(CodePreprocessError, token.Span{File: "a.vx"}, map[string]any{"Detail": "eval failed"}).WithCause(cause)
	text := d.RenderText()
	if !strings.Contains(text, "eval failed") || !strings.Contains(text, "TypeMismatch") {
		t.Fatalf("expected chained cause in rendering, got %s", text)
	}
}

func TestReporterCollectsAndExitCode(t *testing.T) {
	r := NewReporter()
	if r.HighestSeverityExitCode() != 0 {
		t.Fatal("expected exit code 0 with no diagnostics")
	}
	r.Report(New(CodeRedeclared, token.Span{}, map[string]any{"Name": "x"}))
	if r.HighestSeverityExitCode() != 1 {
		t.Fatal("expected exit code 1 once an error diagnostic is reported")
	}
	if len(r.All()) != 1 {
		t.Fatalf("expected 1 collected diagnostic, got %d", len(r.All()))
	}
}
