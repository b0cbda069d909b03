package emitc

import (
	"fmt"

	"github.com/vexlang/vxc/internal/compiler/ast"
	"github.com/vexlang/vxc/internal/compiler/scope"
	"github.com/vexlang/vxc/internal/compiler/types"
)

// emitScopeExit unwinds sc at the point its owning construct (a block,
// loop body, or function body) falls off the end: each of sc's own defer
// blocks runs first, in reverse registration order (spec.md §4.6's "defer
// runs last-registered-first, like a destructor stack"), then each
// destructor-eligible local still live in sc is destroyed, in reverse
// declaration order. Guarded by sc.AlreadyDestroyed so a scope whose body
// exits through more than one EmitStatement path (an early return nested
// inside an if, say) never unwinds twice.
//
// There is no mechanism anywhere in this module that lowers a record's own
// `__destroy` metafield body to a concrete C function — the type system
// only records that a record type has one (RecordType.HasDestroy) — so the
// destructor called here is named by convention, `<codename>_destroy`,
// taking the local's address; a future metafield-lowering pass would need
// to actually emit a matching function under that exact name.
func (e *Emitter) emitScopeExit(sc *scope.Scope) {
	if sc == nil || sc.AlreadyDestroyed {
		return
	}
	sc.AlreadyDestroyed = true
	for i := len(sc.DeferBlocks) - 1; i >= 0; i-- {
		deferNode := e.Tree.Node(sc.DeferBlocks[i])
		e.writeIndented("{\n")
		e.increaseIndent()
		for _, c := range deferNode.Children {
			e.EmitStatement(e.Tree.Node(c), sc)
		}
		e.decreaseIndent()
		e.writeIndented("}\n")
	}
	for _, sym := range sc.ReverseOrderedSymbols() {
		if sym.DefiningNode == ast.NilRef {
			continue
		}
		defNode := e.Tree.Node(sym.DefiningNode)
		if _, ok := defNode.Attr.Get(ast.AttrScopeDestroy); !ok {
			continue
		}
		rt, ok := sym.Type.(*types.RecordType)
		if !ok {
			continue
		}
		e.writeIndented(fmt.Sprintf("%s_destroy(&%s);\n", rt.Codename(), cIdent(sym.Name)))
	}
}

// scopeOf recovers the *scope.Scope a construct node forked for its own
// body, stashed there by the analyzer's withChildScope/visitForNum/
// visitForIn, falling back to fallback (the scope the caller was already
// carrying) when the node never forked one of its own.
func scopeOf(n *ast.Node, fallback *scope.Scope) *scope.Scope {
	v, ok := n.Attr.Get(ast.AttrScope)
	if !ok {
		return fallback
	}
	sc, ok := v.(*scope.Scope)
	if !ok {
		return fallback
	}
	return sc
}
