package types

import "testing"

func TestPolyFunctionLookupMiss(t *testing.T) {
	pft := NewPolyFunctionType("id")
	if _, ok := pft.Lookup("i32"); ok {
		t.Fatal("expected no eval for a key that was never added")
	}
}

func TestPolyFunctionLookupFirstRegisteredWins(t *testing.T) {
	pft := NewPolyFunctionType("id")
	first := &Eval{Key: "i32", CName: "id_spec_1"}
	second := &Eval{Key: "i32", CName: "id_spec_2"}
	pft.AddEval(first)
	pft.AddEval(second)

	got, ok := pft.Lookup("i32")
	if !ok {
		t.Fatal("expected a match for key i32")
	}
	if got != first {
		t.Fatalf("expected the first-registered eval (%s) to win, got %s", first.CName, got.CName)
	}
}

func TestPolyFunctionLookupDistinguishesKeys(t *testing.T) {
	pft := NewPolyFunctionType("id")
	i32Eval := &Eval{Key: "i32", CName: "id_spec_i32"}
	f64Eval := &Eval{Key: "f64", CName: "id_spec_f64"}
	pft.AddEval(i32Eval)
	pft.AddEval(f64Eval)

	got, ok := pft.Lookup("f64")
	if !ok || got != f64Eval {
		t.Fatal("expected f64 key to resolve to its own eval, independent of registration order")
	}
}

func TestPolyFunctionCodenameStableAcrossEvals(t *testing.T) {
	pft := NewPolyFunctionType("id")
	want := pft.Codename()
	pft.AddEval(&Eval{Key: "i32"})
	if pft.Codename() != want {
		t.Fatal("a poly function's own codename must not change as evals accumulate")
	}
}
