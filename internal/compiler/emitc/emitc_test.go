package emitc

import (
	"strings"
	"testing"

	"github.com/vexlang/vxc/internal/compiler/analysis"
	"github.com/vexlang/vxc/internal/compiler/context"
	"github.com/vexlang/vxc/internal/compiler/parser"
	"github.com/vexlang/vxc/internal/compiler/types"
)

func compileProgram(t *testing.T, src string) string {
	t.Helper()
	p := parser.New("test.vx")
	tree, err := p.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	ctx := context.New()
	a := analysis.New(ctx, tree, p)
	if err := a.Run(); err != nil {
		t.Fatalf("analysis error: %v", err)
	}
	return New(ctx, tree).Program()
}

func TestEmptyProgramReturnsZeroFromMain(t *testing.T) {
	out := compileProgram(t, "")
	if !strings.Contains(out, "int main(void) {") || !strings.Contains(out, "return 0;") {
		t.Fatalf("expected a zero-returning main, got:\n%s", out)
	}
}

func TestReturnArithmeticLowersToCExpression(t *testing.T) {
	out := compileProgram(t, "return 1+2")
	if !strings.Contains(out, "(1 + 2)") {
		t.Fatalf("expected infix C arithmetic in output, got:\n%s", out)
	}
}

func TestHexLiteralLowersToCHexLiteral(t *testing.T) {
	out := compileProgram(t, "return 0x10")
	if !strings.Contains(out, "0x10") {
		t.Fatalf("expected the hex literal preserved in C syntax, got:\n%s", out)
	}
}

func TestLocalDeclarationEmitsTypedCDeclaration(t *testing.T) {
	out := compileProgram(t, "local x = 1\nreturn x")
	if !strings.Contains(out, "int64_t x = 1;") {
		t.Fatalf("expected a typed int64_t declaration, got:\n%s", out)
	}
}

func TestTypeToCMapsPrimitivesToFixedWidthCTypes(t *testing.T) {
	if got := TypeToC(types.Primitive(types.I64)); got != "int64_t" {
		t.Fatalf("expected int64_t, got %s", got)
	}
	if got := TypeToC(types.Primitive(types.Bool)); got != "bool" {
		t.Fatalf("expected bool, got %s", got)
	}
}
