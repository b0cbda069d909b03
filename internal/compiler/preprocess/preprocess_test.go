package preprocess

import (
	"testing"

	"github.com/vexlang/vxc/internal/compiler/context"
)

func TestLocalDeclareThenEvalExpr(t *testing.T) {
	ctx := context.New()
	env := NewEnv(ctx, ctx.Root)
	if err := env.ExecBlock("local n=3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := env.EvalExpr("n*n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(int64) != 9 {
		t.Fatalf("expected 9, got %v", v)
	}
}

func TestValueToSourceTextForInt(t *testing.T) {
	if got := valueToSourceText(int64(9)); got != "9" {
		t.Fatalf("expected '9', got %q", got)
	}
}

func TestAfterAnalyzeHookReexecutesAgainstSameEnv(t *testing.T) {
	ctx := context.New()
	env := NewEnv(ctx, ctx.Root)
	if err := env.ExecBlock("local n=2; after_analyze(function() n = n*10 end)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ctx.RunAfterAnalyzeHooks(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := env.Lookup("n")
	if !ok || v.(int64) != 20 {
		t.Fatalf("expected hook to mutate n to 20, got %v", v)
	}
}

func TestUndeclaredVariableErrors(t *testing.T) {
	ctx := context.New()
	env := NewEnv(ctx, ctx.Root)
	if _, err := env.EvalExpr("missing"); err == nil {
		t.Fatal("expected an error referencing an undeclared preprocessor variable")
	}
}

func TestAssignmentToUndeclaredErrors(t *testing.T) {
	ctx := context.New()
	env := NewEnv(ctx, ctx.Root)
	if err := env.ExecBlock("x = 1"); err == nil {
		t.Fatal("expected an error assigning to an undeclared preprocessor variable")
	}
}
