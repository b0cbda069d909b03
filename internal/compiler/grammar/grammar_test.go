package grammar

import (
	"testing"

	pc "github.com/prataprc/goparsec"
)

func TestSetPEGTakesEffectOnNextInvocation(t *testing.T) {
	r := New()
	r.SetPEG("digit", pc.Atom("1", "ONE"))
	ruleRef := r.Rule("digit")

	_, rest := ruleRef(pc.NewScanner([]byte("1")))
	if rest.Endof() {
		// a single-token atom consumes exactly one token; scanner should
		// be positioned past it.
	}

	r.SetPEG("digit", pc.Atom("2", "TWO"))
	node, _ := ruleRef(pc.NewScanner([]byte("2")))
	if node == nil {
		t.Fatal("expected the redefined rule to match '2' immediately after SetPEG")
	}
}

func TestAddRemoveKeyword(t *testing.T) {
	r := New()
	if !r.IsKeyword("fn") {
		t.Fatal("expected 'fn' to be a default keyword")
	}
	ident := r.Identifier()
	if node, _ := ident(pc.NewScanner([]byte("fn"))); node != nil {
		t.Fatal("identifier rule must reject a reserved keyword")
	}

	r.RemoveKeyword("fn")
	if node, _ := ident(pc.NewScanner([]byte("fn"))); node == nil {
		t.Fatal("expected 'fn' to parse as an ordinary identifier once unreserved")
	}

	r.AddKeyword("widget")
	if node, _ := ident(pc.NewScanner([]byte("widget"))); node != nil {
		t.Fatal("expected 'widget' to stop matching the identifier rule once reserved")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := New()
	clone := r.Clone()
	clone.AddKeyword("widget")
	if r.IsKeyword("widget") {
		t.Fatal("mutating a clone must not affect the original registry")
	}
	clone.SetPEG("digit", pc.Atom("1", "ONE"))
	if r.HasRule("digit") {
		t.Fatal("mutating a clone's rules must not affect the original registry")
	}
}

func TestKeywordRuleStopsMatchingWhenRemoved(t *testing.T) {
	r := New()
	kw := r.Keyword("fn")
	if node, _ := kw(pc.NewScanner([]byte("fn"))); node == nil {
		t.Fatal("expected keyword rule to match while 'fn' is reserved")
	}
	r.RemoveKeyword("fn")
	if node, _ := kw(pc.NewScanner([]byte("fn"))); node != nil {
		t.Fatal("expected keyword rule to stop matching once 'fn' is unreserved")
	}
}
