// Package analysis implements the fixed-point traverser spec.md §4.5
// describes: a single visitor per AST tag, dispatched through a dense
// table indexed by ast.Tag, pushing/popping scope on every node that
// introduces one, requeuing nodes that cannot yet be typed, and running
// preprocessor nodes in source order with push-down re-analysis of the
// fragments they splice in.
//
// Grounded on the teacher's AnalyzerImpl (internal/transpiler/analysis/
// analyzer.go): same "one pass, consult a type environment, collect
// errors" shape, generalized from the teacher's Lisp-shaped single
// dispatch (`visitList` switching on head symbol) to a dense per-Tag
// table, and from the teacher's single fixed environment to the
// fixed-point requeue loop spec.md §4.5 requires for forward references.
package analysis

import (
	"fmt"

	"github.com/vexlang/vxc/internal/compiler/ast"
	"github.com/vexlang/vxc/internal/compiler/context"
	"github.com/vexlang/vxc/internal/compiler/diagnostics"
	"github.com/vexlang/vxc/internal/compiler/parser"
	"github.com/vexlang/vxc/internal/compiler/preprocess"
	"github.com/vexlang/vxc/internal/compiler/scope"
	"github.com/vexlang/vxc/internal/compiler/types"
)

// Analyzer walks one parsed Tree to a fixed point.
type Analyzer struct {
	Ctx    *context.Context
	Tree   *ast.Tree
	Parser *parser.Parser
	Env    *preprocess.Env

	pending []pendingEntry
}

// pendingEntry pairs a not-yet-typed node with the lexical scope it must be
// re-visited in: a node deferred from deep inside a function/block/loop
// scope has to resume in that same scope on retry, not at the tree root
// (spec.md §4.5 — forward references inside nested scopes).
type pendingEntry struct {
	Ref   ast.NodeRef
	Scope *scope.Scope
}

// New builds an Analyzer over tree, sharing ctx's type registry/root
// scope and p's grammar (so preprocessor grammar mutations affect
// re-entrant parses of spliced fragments).
func New(ctx *context.Context, tree *ast.Tree, p *parser.Parser) *Analyzer {
	return &Analyzer{
		Ctx:    ctx,
		Tree:   tree,
		Parser: p,
		Env:    preprocess.NewEnv(ctx, ctx.Root),
	}
}

// visitor receives the analyzer, the node being visited, and the lexical
// scope it is visited in; it returns true once the node's type has been
// fully decided, or false to mark it pending for the next pass (spec.md
// §4.5).
type visitor func(a *Analyzer, ref ast.NodeRef, sc *scope.Scope) (done bool, err error)

var visitors map[ast.Tag]visitor

func init() {
	visitors = map[ast.Tag]visitor{
		ast.TagNumber:         visitNumber,
		ast.TagString:         visitString,
		ast.TagBoolean:        visitBoolean,
		ast.TagNil:            visitNil,
		ast.TagId:             visitId,
		ast.TagIdDecl:         visitIdDecl,
		ast.TagParen:          visitParen,
		ast.TagUnaryOp:        visitUnaryOp,
		ast.TagBinaryOp:       visitBinaryOp,
		ast.TagVarDecl:        visitVarDecl,
		ast.TagAssign:         visitAssign,
		ast.TagBlock:          visitBlockSameScope,
		ast.TagDo:             visitDo,
		ast.TagDefer:          visitDefer,
		ast.TagIf:             visitIf,
		ast.TagWhile:          visitWhile,
		ast.TagRepeat:         visitRepeat,
		ast.TagForNum:         visitForNum,
		ast.TagForIn:          visitForIn,
		ast.TagReturn:         visitReturn,
		ast.TagBreak:          visitBreak,
		ast.TagContinue:       visitContinue,
		ast.TagFunction:       visitFunction,
		ast.TagFuncDef:        visitFuncDef,
		ast.TagCall:           visitCall,
		ast.TagPreprocess:     visitPreprocess,
		ast.TagPreprocessExpr: visitPreprocessExpr,
		ast.TagPreprocessName: visitPreprocessName,
	}
}

// maxPasses bounds the fixed-point loop; exceeding it without the pending
// set shrinking is the "no progress" case spec.md §4.5 resolves to
// TypeCouldNotBeInferred.
const maxPasses = 1000

// Run traverses Tree from its root to a fixed point and then drains the
// after_analyze hook queue (spec.md §5: "Hooks registered via
// after_analyze run once, in registration order, after the root
// traversal terminates").
func (a *Analyzer) Run() error {
	a.pending = []pendingEntry{{Ref: a.Tree.Root, Scope: a.Ctx.Root}}
	for pass := 0; len(a.pending) > 0; pass++ {
		if pass >= maxPasses {
			return a.reportStuck()
		}
		next := a.pending[:0]
		progressed := false
		for _, pe := range a.pending {
			done, err := a.visit(pe.Ref, pe.Scope)
			if err != nil {
				return err
			}
			if done {
				progressed = true
			} else {
				next = append(next, pe)
			}
		}
		a.pending = next
		if !progressed && len(a.pending) > 0 {
			return a.reportStuck()
		}
	}
	return a.Ctx.RunAfterAnalyzeHooks()
}

func (a *Analyzer) reportStuck() error {
	for _, pe := range a.pending {
		n := a.Tree.Node(pe.Ref)
		code := diagnostics.CodeTypeCouldNotBeInferred
		if n.Tag == ast.TagId {
			code = diagnostics.CodeUndeclaredSymbol
		}
		a.Ctx.Diagnostics.Report(diagnostics.New(code, n.Span,
			map[string]any{"Name": stuckName(n)}))
	}
	return fmt.Errorf("analysis did not reach a fixed point: %d node(s) could not be typed", len(a.pending))
}

// stuckName is the diagnostic's {{.Name}} substitution: an unresolved
// identifier reports its own text, everything else its tag.
func stuckName(n *ast.Node) string {
	if n.Tag == ast.TagId && n.Text != "" {
		return n.Text
	}
	return n.Tag.String()
}

// visit dispatches ref's tag through the visitor table. A tag with no
// registered visitor is treated as already-typed structure (the type
// productions — RecordType, ArrayType, ... — are consulted directly by
// visitVarDecl/visitFunction rather than through the dense dispatch,
// since they never carry a runtime value of their own).
func (a *Analyzer) visit(ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	n := a.Tree.Node(ref)
	v, ok := visitors[n.Tag]
	if !ok {
		return true, nil
	}
	return v(a, ref, sc)
}

// enqueue schedules ref for (re)visiting, in sc, in this or the next pass.
func (a *Analyzer) enqueue(ref ast.NodeRef, sc *scope.Scope) {
	a.pending = append(a.pending, pendingEntry{Ref: ref, Scope: sc})
}

// markPending flags ref as not-yet-typed and schedules it for retry in sc,
// its own lexical scope, rather than the tree root.
func (a *Analyzer) markPending(ref ast.NodeRef, sc *scope.Scope) (bool, error) {
	a.Tree.Node(ref).Attr.Set(ast.AttrPending, true)
	a.enqueue(ref, sc)
	return false, nil
}

func (a *Analyzer) setType(ref ast.NodeRef, t types.Type) {
	a.Tree.Node(ref).Attr.Set(ast.AttrType, t)
}

func (a *Analyzer) typeOf(ref ast.NodeRef) (types.Type, bool) {
	v, ok := a.Tree.Node(ref).Attr.Get(ast.AttrType)
	if !ok {
		return nil, false
	}
	t, ok := v.(types.Type)
	return t, ok
}

func (a *Analyzer) visitChildren(refs []ast.NodeRef, sc *scope.Scope) (bool, error) {
	allDone := true
	for _, c := range refs {
		done, err := a.visit(c, sc)
		if err != nil {
			return false, err
		}
		if !done {
			allDone = false
		}
	}
	return allDone, nil
}
