package ast

import (
	"testing"

	"github.com/vexlang/vxc/internal/compiler/token"
)

func TestTreeNewAndWalk(t *testing.T) {
	tr := NewTree()
	leaf1 := tr.New(TagNumber, token.Span{})
	leaf2 := tr.New(TagNumber, token.Span{})
	root := tr.New(TagBinaryOp, token.Span{}, leaf1, leaf2)
	tr.Root = root

	var seen []Tag
	tr.Walk(root, func(ref NodeRef) bool {
		seen = append(seen, tr.Node(ref).Tag)
		return true
	})
	if len(seen) != 3 {
		t.Fatalf("expected 3 nodes visited, got %d", len(seen))
	}
}

func TestReplaceChildrenRejectsAnalyzed(t *testing.T) {
	tr := NewTree()
	n := tr.New(TagBlock, token.Span{})
	tr.MarkAnalyzed(n)
	if err := tr.ReplaceChildren(n, nil); err == nil {
		t.Fatal("expected error replacing children of analyzed node")
	}
}

func TestSpliceRejectsAnalyzed(t *testing.T) {
	tr := NewTree()
	n := tr.New(TagPreprocessExpr, token.Span{})
	tr.MarkAnalyzed(n)
	if err := tr.Splice(n, TagNumber, token.Span{}, nil); err == nil {
		t.Fatal("expected error splicing an analyzed node")
	}
}

func TestSpliceOverwritesShape(t *testing.T) {
	tr := NewTree()
	n := tr.New(TagPreprocessExpr, token.Span{})
	tr.Node(n).Text = "n*n"
	if err := tr.Splice(n, TagNumber, token.Span{}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Node(n).Tag != TagNumber || tr.Node(n).Text != "" {
		t.Fatal("expected splice to overwrite tag and clear stale literal/text fields")
	}
}

func TestAttrBagMergeConflict(t *testing.T) {
	a := NewAttrBag()
	a.Set(AttrType, "int")
	b := NewAttrBag()
	b.Set(AttrType, "float")
	if err := a.Merge(b); err == nil {
		t.Fatal("expected merge conflict error")
	}

	c := NewAttrBag()
	c.Set(AttrType, "int")
	if err := a.Merge(c); err != nil {
		t.Fatalf("expected agreeing merge to succeed: %v", err)
	}
}

func TestAttrBagKeysOrder(t *testing.T) {
	b := NewAttrBag()
	b.Set("z", 1)
	b.Set("a", 2)
	keys := b.Keys()
	if keys[0] != "z" || keys[1] != "a" {
		t.Fatalf("expected insertion order, got %v", keys)
	}
}
