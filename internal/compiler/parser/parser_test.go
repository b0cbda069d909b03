package parser

import (
	"testing"

	"github.com/vexlang/vxc/internal/compiler/ast"
	"github.com/vexlang/vxc/internal/compiler/token"
)

func TestParseEmptyProgramYieldsBlockRoot(t *testing.T) {
	p := New("empty.vx")
	tree, err := p.Parse([]byte(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Node(tree.Root).Tag != ast.TagBlock {
		t.Fatalf("expected root tag Block, got %s", tree.Node(tree.Root).Tag)
	}
}

func TestParseReturnArithmetic(t *testing.T) {
	p := New("ret.vx")
	tree, err := p.Parse([]byte("return 1+2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := tree.Node(tree.Root)
	if len(root.Children) != 1 {
		t.Fatalf("expected one statement, got %d", len(root.Children))
	}
	ret := tree.Node(root.Children[0])
	if ret.Tag != ast.TagReturn {
		t.Fatalf("expected Return statement, got %s", ret.Tag)
	}
}

func TestDecodeNumberHex(t *testing.T) {
	n, err := decodeNumber("0x10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Base != token.Base16 || n.Int != "10" {
		t.Fatalf("expected base16 '10', got base=%v int=%q", n.Base, n.Int)
	}
}

func TestDecodeNumberFloatWithExponent(t *testing.T) {
	n, err := decodeNumber("1.5e10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Int != "1" || n.Frac != "5" || n.Exp != "10" {
		t.Fatalf("unexpected decode: int=%q frac=%q exp=%q", n.Int, n.Frac, n.Exp)
	}
}

func TestDecodeStringEscapes(t *testing.T) {
	s, err := decodeString(`"a\nb"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Value != "a\nb" {
		t.Fatalf("expected decoded newline escape, got %q", s.Value)
	}
}

func TestCloneIsIndependentGrammar(t *testing.T) {
	p := New("a.vx")
	clone := p.Clone()
	clone.AddKeyword("widget")
	if p.Registry.IsKeyword("widget") {
		t.Fatal("cloning must not let a grammar mutation leak back to the original parser")
	}
}
