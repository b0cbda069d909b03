package analysis

import (
	"testing"

	"github.com/vexlang/vxc/internal/compiler/ast"
	"github.com/vexlang/vxc/internal/compiler/context"
	"github.com/vexlang/vxc/internal/compiler/parser"
	"github.com/vexlang/vxc/internal/compiler/token"
	"github.com/vexlang/vxc/internal/compiler/types"
)

func analyzeSource(t *testing.T, src string) (*Analyzer, *ast.Tree) {
	t.Helper()
	p := parser.New("test.vx")
	tree, err := p.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	ctx := context.New()
	a := New(ctx, tree, p)
	if err := a.Run(); err != nil {
		t.Fatalf("analysis error: %v", err)
	}
	return a, tree
}

func TestReturnArithmeticIsTypedInt(t *testing.T) {
	a, tree := analyzeSource(t, "return 1+2")
	root := tree.Node(tree.Root)
	if root.Tag != ast.TagBlock {
		t.Fatalf("expected Block root, got %s", root.Tag)
	}
	if len(root.Children) != 1 {
		t.Fatalf("expected one statement, got %d", len(root.Children))
	}
	retNode := tree.Node(root.Children[0])
	if retNode.Tag != ast.TagReturn || len(retNode.Children) != 1 {
		t.Fatalf("expected a single-value Return, got %+v", retNode)
	}
	ty, ok := a.typeOf(retNode.Children[0])
	if !ok {
		t.Fatal("expected the return expression to be typed")
	}
	pt, ok := ty.(*types.PrimitiveType)
	if !ok || pt.Kind != types.I64 {
		t.Fatalf("expected int64, got %v", ty)
	}
}

func TestLocalDeclarationIsVisibleAndTyped(t *testing.T) {
	a, tree := analyzeSource(t, "local x = 1\nreturn x")
	root := tree.Node(tree.Root)
	if len(root.Children) != 2 {
		t.Fatalf("expected two statements, got %d", len(root.Children))
	}
	varDecl := tree.Node(root.Children[0])
	if varDecl.Tag != ast.TagVarDecl {
		t.Fatalf("expected VarDecl, got %s", varDecl.Tag)
	}
	if _, ok := a.Ctx.Root.Resolve("x"); !ok {
		t.Fatal("expected x to be declared in the root scope")
	}
	ty, ok := a.typeOf(root.Children[0])
	pt, isPrim := ty.(*types.PrimitiveType)
	if !ok || !isPrim || pt.Kind != types.I64 {
		t.Fatalf("expected x to be typed int64, got %v", ty)
	}
}

func TestUndeclaredSymbolReportsDiagnostic(t *testing.T) {
	p := parser.New("test.vx")
	tree, err := p.Parse([]byte("return missing"))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	ctx := context.New()
	a := New(ctx, tree, p)
	_ = a.Run()
	if !ctx.Diagnostics.HasErrors() {
		t.Fatal("expected an undeclared-symbol diagnostic")
	}
}

func TestScopeForkDoesNotLeakIntoParent(t *testing.T) {
	a, tree := analyzeSource(t, "do\n  local y = 1\nend")
	root := tree.Node(tree.Root)
	doNode := tree.Node(root.Children[0])
	if doNode.Tag != ast.TagDo {
		t.Fatalf("expected Do, got %s", doNode.Tag)
	}
	if _, ok := a.Ctx.Root.Resolve("y"); ok {
		t.Fatal("expected y, declared inside do ... end, not to be visible from the root scope")
	}
}

func TestPreprocessBlockDeclaresAndExprSplicesValue(t *testing.T) {
	src := "##[[local n=3]]\nreturn #[n]#*#[n]#"
	_, tree := analyzeSource(t, src)
	root := tree.Node(tree.Root)
	if len(root.Children) != 1 {
		t.Fatalf("expected one statement after splicing, got %d", len(root.Children))
	}
	retNode := tree.Node(root.Children[0])
	if retNode.Tag != ast.TagReturn {
		t.Fatalf("expected Return, got %s", retNode.Tag)
	}
	mulNode := tree.Node(retNode.Children[0])
	if mulNode.Tag != ast.TagBinaryOp || mulNode.Text != "*" {
		t.Fatalf("expected the spliced n*n to parse as a BinaryOp, got %+v", mulNode)
	}
	left := tree.Node(mulNode.Children[0])
	if left.Tag != ast.TagNumber || left.NumberLit == nil || left.NumberLit.Int != "3" {
		t.Fatalf("expected the preprocessor splice to render literal 3, got %+v", left)
	}
}

func TestAfterAnalyzeHookRunsOnceTraversalCompletes(t *testing.T) {
	p := parser.New("test.vx")
	tree, err := p.Parse([]byte("##[[local n=1\nafter_analyze(function() n = n*5 end)]]"))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	ctx := context.New()
	a := New(ctx, tree, p)
	if err := a.Run(); err != nil {
		t.Fatalf("analysis error: %v", err)
	}
	v, ok := a.Env.Lookup("n")
	if !ok || v.(int64) != 5 {
		t.Fatalf("expected after_analyze hook to have run, n=%v", v)
	}
}

func TestNodeSpanSurvivesSplice(t *testing.T) {
	tree := ast.NewTree()
	n := tree.New(ast.TagPreprocessExpr, token.Span{File: "x.vx"})
	if err := tree.Splice(n, ast.TagNumber, token.Span{File: "x.vx"}, nil); err != nil {
		t.Fatalf("unexpected splice error: %v", err)
	}
	if tree.Node(n).Span.File != "x.vx" {
		t.Fatal("expected span to be explicitly carried through splice")
	}
}
