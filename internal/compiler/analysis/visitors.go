package analysis

import (
	"fmt"
	"strconv"

	"github.com/vexlang/vxc/internal/compiler/ast"
	"github.com/vexlang/vxc/internal/compiler/diagnostics"
	"github.com/vexlang/vxc/internal/compiler/preprocess"
	"github.com/vexlang/vxc/internal/compiler/scope"
	"github.com/vexlang/vxc/internal/compiler/token"
	"github.com/vexlang/vxc/internal/compiler/types"
)

// ---- Literals ----

func visitNumber(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	kind := types.I64
	if n.NumberLit != nil && n.NumberLit.HasFraction() {
		kind = types.F64
	}
	a.setType(ref, types.Primitive(kind))
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

func visitString(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	a.setType(ref, types.Primitive(types.VexString))
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

func visitBoolean(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	a.setType(ref, types.Primitive(types.Bool))
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

func visitNil(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	a.setType(ref, &types.NilType{})
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

// ---- Identifiers ----

func visitId(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	sym, ok := sc.Resolve(n.Text)
	if !ok {
		// The name may be a forward reference (a mutually recursive
		// function, a later `local`) that a later pass will resolve once
		// its own declaration has run — defer rather than fail outright,
		// and let reportStuck raise CodeUndeclaredSymbol if it never
		// resolves by the fixed point (spec.md §4.5).
		return a.markPending(ref, sc)
	}
	if moved, _ := n.Attr.Get(ast.AttrMoved); moved == true {
		a.Ctx.Diagnostics.Report(diagnostics.New(diagnostics.CodeUseAfterMove, n.Span,
			map[string]any{"Name": n.Text}))
	}
	if t, ok := sym.Type.(types.Type); ok {
		a.setType(ref, t)
	}
	n.Attr.Set(ast.AttrSymbol, sym)
	n.Attr.Set(ast.AttrLValue, true)
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

// visitIdDecl types an `IdDecl` node (a `name: Type` or `name` binder) from
// its own explicit type annotation, walking the parsed type-expression
// subtree with evalTypeExpr; callers needing the inferred type of an
// un-annotated declaration resolve it from the initializer instead
// (visitVarDecl).
func visitIdDecl(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	if len(n.Children) == 0 {
		a.Tree.MarkAnalyzed(ref)
		return true, nil
	}
	t, ok, err := a.evalTypeExpr(n.Children[0], sc)
	if err != nil {
		return true, err
	}
	if !ok {
		return a.markPending(ref, sc)
	}
	a.setType(ref, t)
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

func visitParen(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	done, err := a.visitChildren(n.Children, sc)
	if err != nil || !done {
		return done, err
	}
	if len(n.Children) == 1 {
		if t, ok := a.typeOf(n.Children[0]); ok {
			a.setType(ref, t)
		}
	}
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

// ---- Operators ----

func visitUnaryOp(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	done, err := a.visitChildren(n.Children, sc)
	if err != nil || !done {
		return done, err
	}
	operandType, ok := a.typeOf(n.Children[0])
	if !ok {
		return a.markPending(ref, sc)
	}
	switch n.Text {
	case "not":
		a.setType(ref, types.Primitive(types.Bool))
	case "-":
		a.setType(ref, operandType)
	case "#":
		a.setType(ref, types.Primitive(types.I64))
	default:
		a.setType(ref, operandType)
	}
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

func visitBinaryOp(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	done, err := a.visitChildren(n.Children, sc)
	if err != nil || !done {
		return done, err
	}
	lt, lok := a.typeOf(n.Children[0])
	rt, rok := a.typeOf(n.Children[1])
	if !lok || !rok {
		return a.markPending(ref, sc)
	}
	switch n.Text {
	case "..":
		a.setType(ref, types.Primitive(types.VexString))
	case "and", "or":
		// spec.md §4.1 "Binary and/or with non-boolean operands": when
		// both operands are bool this is ordinary boolean logic; otherwise
		// the expression selects whichever operand the language's
		// truthiness rule picks, which the emitter lowers to a temporary
		// assigned the left operand then conditionally overwritten — so
		// the expression's static type is approximated as the left
		// operand's type (the temporary's declared type at emission).
		if isBoolPrimitive(lt) && isBoolPrimitive(rt) {
			a.setType(ref, types.Primitive(types.Bool))
		} else {
			a.setType(ref, lt)
		}
	default:
		result, err := types.BinaryArithResult(binaryArithOp(n.Text), lt, rt)
		if err != nil {
			a.Ctx.Diagnostics.Report(diagnostics.New(diagnostics.CodeTypeMismatch, n.Span,
				map[string]any{"Expected": lt.String(), "Got": rt.String()}))
			return true, fmt.Errorf("type mismatch in binary %q at %s: %w", n.Text, n.Span, err)
		}
		a.setType(ref, result)
	}
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

// binaryArithOp translates the grammar's spelling of a comparison/logical
// operator into the one types.BinaryArithResult expects (spec.md §4.1's
// Lua-descended `~=` for not-equal maps to the conventional `!=`); every
// other operator already matches.
func binaryArithOp(op string) string {
	if op == "~=" {
		return "!="
	}
	return op
}

func isBoolPrimitive(t types.Type) bool {
	p, ok := t.(*types.PrimitiveType)
	return ok && p.Kind == types.Bool
}

// ---- Declarations / assignment ----

// visitVarDecl handles `local x = expr` / `global x: T = expr` forms: the
// first child is the IdDecl list (here simplified to a single IdDecl per
// node, with multi-binding handled by repeated VarDecl children sharing a
// span), the remaining children are initializer expressions.
func visitVarDecl(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	if len(n.Children) < 1 {
		a.Tree.MarkAnalyzed(ref)
		return true, nil
	}
	declRef := n.Children[0]
	done, err := a.visit(declRef, sc)
	if err != nil || !done {
		return done, err
	}
	var initType types.Type
	if len(n.Children) > 1 {
		done, err := a.visitChildren(n.Children[1:], sc)
		if err != nil || !done {
			return done, err
		}
		initType, _ = a.typeOf(n.Children[1])
	}
	declNode := a.Tree.Node(declRef)
	name := declNode.Text
	if name == "" {
		a.Tree.MarkAnalyzed(ref)
		return true, nil
	}
	var declType types.Type
	if t, ok := a.typeOf(declRef); ok {
		declType = t
	} else {
		declType = initType
	}
	if declType == nil {
		return a.markPending(ref, sc)
	}
	sym := &scope.Symbol{Name: name, Type: declType, DefiningNode: ref}
	if err := sc.Declare(sym); err != nil {
		a.Ctx.Diagnostics.Report(diagnostics.New(diagnostics.CodeRedeclared, n.Span,
			map[string]any{"Name": name}))
		return true, err
	}
	if rt, ok := declType.(*types.RecordType); ok && rt.HasDestroy() {
		n.Attr.Set(ast.AttrScopeDestroy, true)
	}
	a.setType(ref, declType)
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

// visitAssign handles `lhs = rhs`, flagging the rhs identifier (if it is
// a bare identifier of a non-trivial type) as moved-from per spec.md
// §4.5's move/copy discipline: a record-typed rvalue identifier is moved
// unless annotated otherwise, and any later read raises UseAfterMove.
func visitAssign(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	if len(n.Children) != 2 {
		a.Tree.MarkAnalyzed(ref)
		return true, nil
	}
	lhs, rhs := n.Children[0], n.Children[1]
	done, err := a.visitChildren(n.Children, sc)
	if err != nil || !done {
		return done, err
	}
	lt, lok := a.typeOf(lhs)
	rt, rok := a.typeOf(rhs)
	if lok && rok {
		if !types.AssignableFrom(lt, rt, literalValue(a.Tree.Node(rhs))) {
			a.Ctx.Diagnostics.Report(diagnostics.New(diagnostics.CodeNotAssignable, n.Span,
				map[string]any{"Got": rt.String(), "Expected": lt.String()}))
			return true, fmt.Errorf("cannot assign %s to %s at %s", rt, lt, n.Span)
		}
	}
	if rhsNode := a.Tree.Node(rhs); rhsNode.Tag == ast.TagId {
		if rt, ok := a.typeOf(rhs); ok {
			if rec, ok := rt.(*types.RecordType); ok && rec.Meta.Copy == nil {
				rhsNode.Attr.Set(ast.AttrMoved, true)
			}
		}
	}
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

// literalValue returns n's integer literal value when n is a Number node
// without a fraction, for types.AssignableFrom's "integer literal that
// fits in target" rule; nil otherwise.
func literalValue(n *ast.Node) *int64 {
	if n.Tag != ast.TagNumber || n.NumberLit == nil || n.NumberLit.HasFraction() {
		return nil
	}
	base := 10
	switch n.NumberLit.Base {
	case token.Base16:
		base = 16
	case token.Base8:
		base = 8
	case token.Base2:
		base = 2
	}
	v, err := strconv.ParseInt(n.NumberLit.Int, base, 64)
	if err != nil {
		return nil
	}
	if n.NumberLit.Negative {
		v = -v
	}
	return &v
}

// ---- Statement sequencing / scope ----

func visitBlockSameScope(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	done, err := a.visitChildren(n.Children, sc)
	if err != nil || !done {
		return done, err
	}
	// A visited Preprocess statement is left as an empty Block; drop it so
	// it contributes no node to the enclosing block.
	kept := make([]ast.NodeRef, 0, len(n.Children))
	for _, c := range n.Children {
		if cn := a.Tree.Node(c); cn.Tag == ast.TagBlock && len(cn.Children) == 0 {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) != len(n.Children) {
		if err := a.Tree.ReplaceChildren(ref, kept); err != nil {
			return true, err
		}
	}
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

// withChildScope runs body with a freshly forked child scope, stashing it
// on ref's own AttrScope attribute so the emitter can later recover the
// exact scope it must unwind (defer blocks, destructor-eligible locals) at
// that construct's exit (spec.md §4.6).
func withChildScope(a *Analyzer, ref ast.NodeRef, parent *scope.Scope, kind scope.Kind, body func(*scope.Scope) (bool, error)) (bool, error) {
	child := parent.Fork(kind)
	a.Tree.Node(ref).Attr.Set(ast.AttrScope, child)
	return body(child)
}

func visitDo(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	return withChildScope(a, ref, sc, scope.KindBlock, func(inner *scope.Scope) (bool, error) {
		done, err := a.visitChildren(n.Children, inner)
		if err != nil || !done {
			return done, err
		}
		a.Tree.MarkAnalyzed(ref)
		return true, nil
	})
}

func visitIf(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	allDone := true
	for _, c := range n.Children {
		done, err := withChildScope(a, c, sc, scope.KindBlock, func(inner *scope.Scope) (bool, error) {
			return a.visit(c, inner)
		})
		if err != nil {
			return false, err
		}
		if !done {
			allDone = false
		}
	}
	if allDone {
		a.Tree.MarkAnalyzed(ref)
	}
	return allDone, nil
}

func visitWhile(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	return withChildScope(a, ref, sc, scope.KindLoop, func(inner *scope.Scope) (bool, error) {
		done, err := a.visitChildren(n.Children, inner)
		if err != nil || !done {
			return done, err
		}
		a.Tree.MarkAnalyzed(ref)
		return true, nil
	})
}

func visitRepeat(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	return withChildScope(a, ref, sc, scope.KindLoop, func(inner *scope.Scope) (bool, error) {
		// repeat/until's condition can see the body's locals, so it is
		// analyzed in the same child scope as the body (spec.md §4.2).
		done, err := a.visitChildren(n.Children, inner)
		if err != nil || !done {
			return done, err
		}
		a.Tree.MarkAnalyzed(ref)
		return true, nil
	})
}

// visitForNum handles `for i = start, limit[, step] do ... end`. The loop
// variable is the first Id/IdDecl child; range-bound expressions are
// analyzed in the enclosing scope (they cannot see the loop variable),
// the body Block in a fresh loop scope with the loop variable bound to
// the integer range type (spec.md §9 Open Question (a): the loop
// variable is an ordinary first-declared/last-destroyed loop-scope
// binding, nothing bespoke).
func visitForNum(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	var declRef ast.NodeRef = ast.NilRef
	var rangeRefs, bodyRefs []ast.NodeRef
	for _, c := range n.Children {
		switch a.Tree.Node(c).Tag {
		case ast.TagId, ast.TagIdDecl:
			if declRef == ast.NilRef {
				declRef = c
				continue
			}
			rangeRefs = append(rangeRefs, c)
		case ast.TagBlock:
			bodyRefs = append(bodyRefs, c)
		default:
			rangeRefs = append(rangeRefs, c)
		}
	}
	done, err := a.visitChildren(rangeRefs, sc)
	if err != nil || !done {
		return done, err
	}
	inner := sc.Fork(scope.KindLoop)
	for _, b := range bodyRefs {
		a.Tree.Node(b).Attr.Set(ast.AttrScope, inner)
	}
	if declRef != ast.NilRef {
		declNode := a.Tree.Node(declRef)
		if declNode.Text != "" {
			sym := &scope.Symbol{Name: declNode.Text, Type: types.Primitive(types.I64), DefiningNode: declRef}
			if err := inner.Declare(sym); err != nil {
				a.Ctx.Diagnostics.Report(diagnostics.New(diagnostics.CodeRedeclared, declNode.Span,
					map[string]any{"Name": declNode.Text}))
				return true, err
			}
		}
	}
	done, err = a.visitChildren(bodyRefs, inner)
	if err != nil || !done {
		return done, err
	}
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

// visitForIn handles `for ... in iterExpr do ... end`. The grammar's bare
// iteration-variable idents (spec.md §9 Open Question (a)) do not survive
// as bindable IdDecl/Id nodes, the same pre-existing limitation ForNum's
// loop variable already carries — so, like ForNum, the body is analyzed in
// a fresh loop scope without a bound per-iteration name; destructor
// coverage for the iterated expression's own value is unaffected, since
// that lives in the enclosing scope, not the loop scope.
func visitForIn(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	var iterRefs, bodyRefs []ast.NodeRef
	for _, c := range n.Children {
		if a.Tree.Node(c).Tag == ast.TagBlock {
			bodyRefs = append(bodyRefs, c)
		} else {
			iterRefs = append(iterRefs, c)
		}
	}
	done, err := a.visitChildren(iterRefs, sc)
	if err != nil || !done {
		return done, err
	}
	inner := sc.Fork(scope.KindLoop)
	for _, b := range bodyRefs {
		a.Tree.Node(b).Attr.Set(ast.AttrScope, inner)
	}
	done, err = a.visitChildren(bodyRefs, inner)
	if err != nil || !done {
		return done, err
	}
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

func visitReturn(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	done, err := a.visitChildren(n.Children, sc)
	if err != nil || !done {
		return done, err
	}
	if fn, ok := sc.EnclosingFunction(); ok {
		fn.HasReturn = true
	}
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

func visitBreak(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	if _, ok := sc.EnclosingLoop(); !ok {
		n := a.Tree.Node(ref)
		return true, fmt.Errorf("break outside a loop at %s", n.Span)
	}
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

func visitContinue(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	if _, ok := sc.EnclosingLoop(); !ok {
		n := a.Tree.Node(ref)
		return true, fmt.Errorf("continue outside a loop at %s", n.Span)
	}
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

// ---- Functions / calls ----

// visitFunction types an anonymous function literal's own FunctionType from
// its parameter declarations and declared return types, then analyzes its
// body in a fresh function scope seeded with those parameters.
//
// A function with one or more `auto`-typed parameters (spec.md §8's
// `local function f(x: auto) return x+x end`) is polymorphic: its body
// cannot be typed once and for all, since `x`'s real type is only known at
// each call site. For that case visitFunction stops after building a
// PolyFunctionType shell recording the template node and its own
// definition scope, and leaves the body unanalyzed — visitCall drives
// per-call-site specialization (polyfunc.go) the first time each distinct
// argument-type combination is seen, caching the result on the
// PolyFunctionType's Evals.
func visitFunction(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	return withChildScope(a, ref, sc, scope.KindFunction, func(fnScope *scope.Scope) (bool, error) {
		var argTypes []types.Type
		var paramNames []string
		hasAuto := false
		for _, c := range n.Children {
			cn := a.Tree.Node(c)
			if cn.Tag != ast.TagIdDecl {
				continue
			}
			done, err := a.visit(c, fnScope)
			if err != nil || !done {
				return done, err
			}
			pt, ok := a.typeOf(c)
			if !ok {
				pt = &types.AnyType{}
			}
			if _, isAuto := pt.(*types.AutoType); isAuto {
				hasAuto = true
				paramNames = append(paramNames, cn.Text)
			}
			argTypes = append(argTypes, pt)
			if cn.Text != "" {
				fnScope.Declare(&scope.Symbol{Name: cn.Text, Type: pt, DefiningNode: c})
			}
		}
		if hasAuto {
			pft := types.NewPolyFunctionType(n.Span.String())
			pft.ParamNames = paramNames
			pft.TemplateNode = ref
			pft.DefScope = sc
			a.setType(ref, pft)
			a.Tree.MarkAnalyzed(ref)
			return true, nil
		}
		allDone := true
		for _, c := range n.Children {
			if a.Tree.Node(c).Tag == ast.TagIdDecl {
				continue
			}
			done, err := a.visit(c, fnScope)
			if err != nil {
				return false, err
			}
			if !done {
				allDone = false
			}
		}
		if !allDone {
			return false, nil
		}
		ft := &types.FunctionType{ArgTypes: argTypes, RetTypes: returnTypes(a, n.Children)}
		fnScope.FuncType = ft
		a.setType(ref, ft)
		a.Tree.MarkAnalyzed(ref)
		return true, nil
	})
}

// returnTypes scans refs and their non-function descendants for Return
// statements, producing a function's own return-type list from the first
// Return found. Differently-typed return statements within one function
// are not reconciled — the grammar's multi-return-value form collapses
// under the same repeated-production limitation typeexpr.go's evalFuncType
// documents, so only the first Return's operand types are trusted.
func returnTypes(a *Analyzer, refs []ast.NodeRef) []types.Type {
	var found []types.Type
	var walk func(ast.NodeRef)
	walk = func(ref ast.NodeRef) {
		if ref == ast.NilRef || found != nil {
			return
		}
		n := a.Tree.Node(ref)
		if n.Tag == ast.TagFunction || n.Tag == ast.TagFuncDef {
			return
		}
		if n.Tag == ast.TagReturn {
			for _, c := range n.Children {
				if t, ok := a.typeOf(c); ok {
					found = append(found, t)
				}
			}
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range refs {
		walk(r)
	}
	return found
}

func visitFuncDef(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	if len(n.Children) < 1 {
		a.Tree.MarkAnalyzed(ref)
		return true, nil
	}
	nameRef := n.Children[0]
	nameNode := a.Tree.Node(nameRef)
	fnLit := n.Children[len(n.Children)-1]
	done, err := a.visit(fnLit, sc)
	if err != nil || !done {
		return done, err
	}
	ft, ok := a.typeOf(fnLit)
	if !ok {
		return a.markPending(ref, sc)
	}
	if nameNode.Text != "" {
		if pft, isPoly := ft.(*types.PolyFunctionType); isPoly {
			pft.Name = nameNode.Text
		}
		if _, exists := sc.ResolveLocal(nameNode.Text); !exists {
			sc.Declare(&scope.Symbol{Name: nameNode.Text, Type: ft, DefiningNode: ref})
		}
	}
	a.setType(ref, ft)
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

// visitCall types a call expression from its callee's function type.
// A callee typed as *types.PolyFunctionType (an `auto`-parameter function,
// spec.md §8) is resolved per call site: specializeCall unifies the auto
// parameters against this call's concrete argument types, reusing a cached
// specialization when the argument-type key has been seen before and
// otherwise cloning/re-analyzing the template body (spec.md §4.3). The
// call node records which specialization it resolved to via
// ast.AttrPolyEvalKey so the emitter can call the right C function without
// repeating unification.
func visitCall(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	done, err := a.visitChildren(n.Children, sc)
	if err != nil || !done {
		return done, err
	}
	if len(n.Children) == 0 {
		a.Tree.MarkAnalyzed(ref)
		return true, nil
	}
	calleeType, ok := a.typeOf(n.Children[0])
	if !ok {
		return a.markPending(ref, sc)
	}
	if pft, isPoly := calleeType.(*types.PolyFunctionType); isPoly {
		eval, ok, err := a.specializeCall(pft, n.Children[1:])
		if err != nil {
			return true, err
		}
		if !ok {
			return a.markPending(ref, sc)
		}
		n.Attr.Set(ast.AttrPolyEvalKey, eval.Key)
		if len(eval.SpecializedType.RetTypes) == 1 {
			a.setType(ref, eval.SpecializedType.RetTypes[0])
		} else if len(eval.SpecializedType.RetTypes) == 0 {
			a.setType(ref, &types.NilType{})
		}
		a.Tree.MarkAnalyzed(ref)
		return true, nil
	}
	if fn, ok := calleeType.(*types.FunctionType); ok {
		if len(fn.RetTypes) == 1 {
			a.setType(ref, fn.RetTypes[0])
		} else if len(fn.RetTypes) == 0 {
			a.setType(ref, &types.NilType{})
		}
	}
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

// visitDefer handles a `defer ... end` block: its statements are analyzed
// immediately (spec.md §4.6's defer body can reference anything visible at
// the defer site), but its execution is deferred to its enclosing scope's
// exit — so rather than emitting anything at its own position, it registers
// itself on sc.DeferBlocks for emitScopeExit to run in reverse order.
func visitDefer(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	done, err := a.visitChildren(n.Children, sc)
	if err != nil || !done {
		return done, err
	}
	sc.DeferBlocks = append(sc.DeferBlocks, ref)
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

// ---- Preprocessor nodes ----

// visitPreprocess runs a `##[[ ... ]]`/`## ...` statement block against
// the shared preprocess.Env, then splices zero AST nodes in its place —
// a preprocessor statement block has no expression value and contributes
// no syntax of its own (spec.md §4.4).
func visitPreprocess(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	if err := a.Env.ExecBlock(n.Text); err != nil {
		a.Ctx.Diagnostics.Report(diagnostics.New(diagnostics.CodePreprocessError, n.Span,
			map[string]any{"Detail": err.Error()}))
		return true, err
	}
	if err := a.Tree.Splice(ref, ast.TagBlock, n.Span, nil); err != nil {
		return true, err
	}
	a.Tree.MarkAnalyzed(ref)
	return true, nil
}

// visitPreprocessExpr evaluates a `#[ ... ]#` expression and splices the
// re-parsed result fragment in, continuing analysis on it immediately
// (spec.md §4.4's push-down discipline), rather than waiting for a later
// pass to discover the freshly spliced node.
func visitPreprocessExpr(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	v, err := a.Env.EvalExpr(n.Text)
	if err != nil {
		a.Ctx.Diagnostics.Report(diagnostics.New(diagnostics.CodePreprocessError, n.Span,
			map[string]any{"Detail": err.Error()}))
		return true, err
	}
	return a.spliceEvaluated(ref, v, sc)
}

// visitPreprocessName evaluates a `#|...|#` name-splice and splices in a
// bare identifier node carrying the rendered text (spec.md §4.4).
func visitPreprocessName(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	name, err := a.Env.EvalName(n.Text)
	if err != nil {
		a.Ctx.Diagnostics.Report(diagnostics.New(diagnostics.CodePreprocessError, n.Span,
			map[string]any{"Detail": err.Error()}))
		return true, err
	}
	if err := a.Tree.Splice(ref, ast.TagId, n.Span, nil); err != nil {
		return true, err
	}
	a.Tree.Node(ref).Text = name
	return a.visit(ref, sc)
}

// spliceEvaluated renders v back to source text, re-parses it as an
// expression with the analyzer's grammar (picking up any mutation the
// preprocessor itself installed), and grafts the result into ref's
// position in the tree, then analyzes the graft immediately.
func (a *Analyzer) spliceEvaluated(ref ast.NodeRef, v preprocess.Value, sc *scope.Scope) (bool, error) {
	text := preprocess.RenderValue(v)
	fragTree, fragRoot, err := a.Parser.ParseExpr([]byte(text))
	if err != nil {
		n := a.Tree.Node(ref)
		a.Ctx.Diagnostics.Report(diagnostics.New(diagnostics.CodePreprocessError, n.Span,
			map[string]any{"Detail": err.Error()}))
		return true, err
	}
	adopted := a.Tree.Adopt(fragTree, fragRoot)
	adoptedNode := a.Tree.Node(adopted)
	if err := a.Tree.Splice(ref, adoptedNode.Tag, adoptedNode.Span, adoptedNode.Children); err != nil {
		return true, err
	}
	graft := a.Tree.Node(ref)
	graft.NumberLit = adoptedNode.NumberLit
	graft.StringLit = adoptedNode.StringLit
	graft.Text = adoptedNode.Text
	return a.visit(ref, sc)
}
