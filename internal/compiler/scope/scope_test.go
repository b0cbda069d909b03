package scope

import "testing"

func TestDeclareRedeclared(t *testing.T) {
	s := New(KindBlock)
	if err := s.Declare(&Symbol{Name: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := s.Declare(&Symbol{Name: "x"})
	if err == nil {
		t.Fatal("expected redeclaration error")
	}
	if _, ok := err.(*ErrRedeclared); !ok {
		t.Fatalf("expected ErrRedeclared, got %T", err)
	}
}

func TestDeclareOverridableCImport(t *testing.T) {
	s := New(KindRoot)
	first := &Symbol{Name: "printf", CImport: true, Annotations: []string{"cimport", "nodecl"}}
	if err := s.Declare(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := &Symbol{Name: "printf", CImport: true, Annotations: []string{"cimport", "nodecl"}}
	if err := s.Declare(second); err != nil {
		t.Fatalf("expected overridable redeclaration to succeed: %v", err)
	}
}

func TestResolveWalksParents(t *testing.T) {
	root := New(KindRoot)
	_ = root.Declare(&Symbol{Name: "global"})
	child := root.Fork(KindBlock)
	_ = child.Declare(&Symbol{Name: "local"})

	if _, ok := child.Resolve("global"); !ok {
		t.Fatal("expected to resolve global from child scope")
	}
	if _, ok := root.Resolve("local"); ok {
		t.Fatal("did not expect root to resolve a child-only symbol")
	}
}

func TestOrderedSymbolsDeclarationOrder(t *testing.T) {
	s := New(KindBlock)
	names := []string{"a", "b", "c"}
	for _, n := range names {
		_ = s.Declare(&Symbol{Name: n})
	}
	ordered := s.OrderedSymbols()
	for i, sym := range ordered {
		if sym.Name != names[i] {
			t.Fatalf("expected declaration order %v, got position %d = %s", names, i, sym.Name)
		}
	}
	reversed := s.ReverseOrderedSymbols()
	for i, sym := range reversed {
		if sym.Name != names[len(names)-1-i] {
			t.Fatalf("expected reverse declaration order")
		}
	}
}

func TestEnclosingLoopStopsAtFunctionBoundary(t *testing.T) {
	root := New(KindRoot)
	loop := root.Fork(KindLoop)
	fn := loop.Fork(KindFunction)
	block := fn.Fork(KindBlock)

	if _, ok := loop.EnclosingLoop(); !ok {
		t.Fatal("loop scope should find itself")
	}
	if _, ok := block.EnclosingLoop(); ok {
		t.Fatal("a block inside a function inside a loop must not see the outer loop")
	}
}
