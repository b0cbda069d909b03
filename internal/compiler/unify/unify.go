// Package unify implements a small Hindley-Milner substitution/unification
// core used to infer `auto` parameter types and to drive polymorphic
// function specialization and generic instantiation (spec.md §4.3).
//
// This is a near-direct generalization of the teacher's
// internal/transpiler/analysis package (typesys.go, unify.go, schemes.go):
// the teacher already builds exactly this engine to infer `fn (x: auto)`
// bodies, so the spec's "substitute argument types into the type
// signature... push a fresh scope, re-analyze the body with the
// substituted types" rule reuses it verbatim rather than reinventing
// unification.
package unify

import "fmt"

// Var is a unification type variable, identified by a process-unique ID.
type Var struct {
	ID int
}

// Type is the small inference-time type algebra unify operates over. The
// analyzer translates between this and types.Type at the boundary of a
// `fn (x: auto)` specialization or a generic instantiation.
type Type interface {
	apply(s Subst) Type
	freeVars() map[int]struct{}
	String() string
}

// Subst maps variable IDs to types.
type Subst map[int]Type

func (s Subst) compose(other Subst) Subst {
	out := make(Subst, len(other)+len(s))
	for k, v := range other {
		out[k] = v.apply(s)
	}
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Apply exposes composition/application to callers outside the package.
func (s Subst) Apply(t Type) Type { return t.apply(s) }

type TVar struct{ ID int }

func (t *TVar) apply(s Subst) Type {
	if rep, ok := s[t.ID]; ok {
		return rep
	}
	return t
}
func (t *TVar) freeVars() map[int]struct{} { return map[int]struct{}{t.ID: {}} }
func (t *TVar) String() string             { return fmt.Sprintf("t%d", t.ID) }

// TConst is a named concrete type (a primitive name or a record/union/enum
// codename).
type TConst struct{ Name string }

func (t *TConst) apply(Subst) Type             { return t }
func (t *TConst) freeVars() map[int]struct{}   { return map[int]struct{}{} }
func (t *TConst) String() string               { return t.Name }

// TFunc is a function type arg1 -> arg2 -> ... -> result.
type TFunc struct {
	Params []Type
	Result Type
}

func (t *TFunc) apply(s Subst) Type {
	ps := make([]Type, len(t.Params))
	for i, p := range t.Params {
		ps[i] = p.apply(s)
	}
	return &TFunc{Params: ps, Result: t.Result.apply(s)}
}
func (t *TFunc) freeVars() map[int]struct{} {
	out := make(map[int]struct{})
	for _, p := range t.Params {
		for id := range p.freeVars() {
			out[id] = struct{}{}
		}
	}
	for id := range t.Result.freeVars() {
		out[id] = struct{}{}
	}
	return out
}
func (t *TFunc) String() string { return "func" }

// TArray is a homogeneous array/span.
type TArray struct{ Elem Type }

func (t *TArray) apply(s Subst) Type           { return &TArray{Elem: t.Elem.apply(s)} }
func (t *TArray) freeVars() map[int]struct{}   { return t.Elem.freeVars() }
func (t *TArray) String() string               { return "[]" + t.Elem.String() }

// Unify performs unification with occurs-check, returning the substitution
// that makes a and b equal.
func Unify(a, b Type) (Subst, error) {
	switch ta := a.(type) {
	case *TVar:
		return bindVar(ta, b)
	case *TConst:
		switch tb := b.(type) {
		case *TVar:
			return bindVar(tb, a)
		case *TConst:
			if ta.Name == tb.Name {
				return Subst{}, nil
			}
			if numericFamily(ta.Name, tb.Name) {
				return Subst{}, nil
			}
			return nil, fmt.Errorf("cannot unify %s with %s", ta.Name, tb.Name)
		default:
			return nil, fmt.Errorf("cannot unify %T with %T", a, b)
		}
	case *TFunc:
		tb, ok := b.(*TFunc)
		if !ok {
			if v, ok := b.(*TVar); ok {
				return bindVar(v, a)
			}
			return nil, fmt.Errorf("cannot unify %T with %T", a, b)
		}
		if len(ta.Params) != len(tb.Params) {
			return nil, fmt.Errorf("function arity mismatch")
		}
		s := Subst{}
		for i := range ta.Params {
			si, err := Unify(ta.Params[i].apply(s), tb.Params[i].apply(s))
			if err != nil {
				return nil, err
			}
			s = s.compose(si)
		}
		sr, err := Unify(ta.Result.apply(s), tb.Result.apply(s))
		if err != nil {
			return nil, err
		}
		return s.compose(sr), nil
	case *TArray:
		tb, ok := b.(*TArray)
		if !ok {
			if v, ok := b.(*TVar); ok {
				return bindVar(v, a)
			}
			return nil, fmt.Errorf("cannot unify %T with %T", a, b)
		}
		return Unify(ta.Elem, tb.Elem)
	}
	if v, ok := b.(*TVar); ok {
		return Unify(v, a)
	}
	return nil, fmt.Errorf("cannot unify %T with %T", a, b)
}

func numericFamily(a, b string) bool {
	isNum := func(n string) bool { return n == "int" || n == "float" }
	return (a == "number" && isNum(b)) || (b == "number" && isNum(a))
}

func bindVar(v *TVar, t Type) (Subst, error) {
	if tv, ok := t.(*TVar); ok && tv.ID == v.ID {
		return Subst{}, nil
	}
	if occurs(v.ID, t) {
		return nil, fmt.Errorf("occur-check failed: t%d occurs in %s", v.ID, t)
	}
	return Subst{v.ID: t}, nil
}

func occurs(id int, t Type) bool {
	_, ok := t.freeVars()[id]
	return ok
}

// Scheme is a polymorphic type quantified over a set of variables
// (ForAll vars. Type).
type Scheme struct {
	Quantified []int
	Body       Type
}

// Env maps names to schemes.
type Env map[string]*Scheme

// Generalize quantifies the variables of t that are not free in env.
func Generalize(env Env, t Type) *Scheme {
	freeInT := t.freeVars()
	freeInEnv := make(map[int]struct{})
	for _, sch := range env {
		bodyFree := sch.Body.freeVars()
		for _, q := range sch.Quantified {
			delete(bodyFree, q)
		}
		for id := range bodyFree {
			freeInEnv[id] = struct{}{}
		}
	}
	var vars []int
	for id := range freeInT {
		if _, ok := freeInEnv[id]; !ok {
			vars = append(vars, id)
		}
	}
	return &Scheme{Quantified: vars, Body: t}
}

// Instantiate replaces a scheme's quantified variables with fresh ones.
func Instantiate(sch *Scheme, fresh func() int) Type {
	subst := Subst{}
	for _, id := range sch.Quantified {
		subst[id] = &TVar{ID: fresh()}
	}
	return sch.Body.apply(subst)
}
