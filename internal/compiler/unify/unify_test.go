package unify

import "testing"

func TestUnifyVarBindsToConcrete(t *testing.T) {
	v := &TVar{ID: 1}
	c := &TConst{Name: "int32"}
	s, err := Unify(v, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s[1] != Type(c) {
		t.Fatalf("expected variable 1 bound to int32, got %v", s[1])
	}
}

func TestUnifyOccursCheckFails(t *testing.T) {
	v := &TVar{ID: 1}
	arr := &TArray{Elem: v}
	if _, err := Unify(v, arr); err == nil {
		t.Fatal("expected occurs-check failure for t1 = []t1")
	}
}

func TestUnifyFunctionArityMismatch(t *testing.T) {
	f1 := &TFunc{Params: []Type{&TConst{Name: "int32"}}, Result: &TConst{Name: "bool"}}
	f2 := &TFunc{Params: []Type{&TConst{Name: "int32"}, &TConst{Name: "int32"}}, Result: &TConst{Name: "bool"}}
	if _, err := Unify(f1, f2); err == nil {
		t.Fatal("expected arity mismatch error")
	}
}

func TestGeneralizeInstantiateRoundTrip(t *testing.T) {
	v := &TVar{ID: 1}
	fn := &TFunc{Params: []Type{v}, Result: v}
	sch := Generalize(Env{}, fn)
	if len(sch.Quantified) != 1 {
		t.Fatalf("expected one quantified variable, got %d", len(sch.Quantified))
	}
	next := 100
	fresh := func() int { next++; return next }
	inst := Instantiate(sch, fresh)
	instFn := inst.(*TFunc)
	if instFn.Params[0] != instFn.Result {
		t.Fatal("instantiation must substitute the same fresh variable for every occurrence")
	}
	if _, ok := instFn.Params[0].(*TVar); !ok {
		t.Fatal("expected instantiation to produce a fresh type variable")
	}
}

func TestGeneralizeExcludesEnvFreeVars(t *testing.T) {
	v := &TVar{ID: 1}
	env := Env{"x": {Quantified: nil, Body: v}}
	sch := Generalize(env, v)
	if len(sch.Quantified) != 0 {
		t.Fatal("a variable free in the environment must not be generalized")
	}
}
