// Package emitc lowers an analyzed ast.Tree into C source (spec.md §4.6).
//
// Grounded on the teacher's CodeGenerator (internal/transpiler/codegen.go):
// same overall shape — an indent-tracked strings.Builder, a family of
// Emit* methods keyed to an AST construct, and a convertOperator table —
// generalized from the teacher's Lisp-to-Go prefix/infix rewriting to a
// typed AST-to-C lowering, and from the teacher's single buffer to the
// declarations/definitions split spec.md §4.6 requires (a forward-
// declared record type can be referenced by a function defined earlier
// in the source).
package emitc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vexlang/vxc/internal/compiler/ast"
	"github.com/vexlang/vxc/internal/compiler/context"
	"github.com/vexlang/vxc/internal/compiler/scope"
	"github.com/vexlang/vxc/internal/compiler/token"
	"github.com/vexlang/vxc/internal/compiler/types"
)

// Emitter lowers one analyzed Tree into C, writing declarations into
// Ctx.Declarations/Ctx.Definitions and the executable body of top-level
// statements into its own buffer (wrapped into `main` by Program).
type Emitter struct {
	Ctx    *context.Context
	Tree   *ast.Tree
	buf    strings.Builder
	indent int

	seenTypes map[string]bool // codename -> declared, for dependency-ordered type emission
}

func New(ctx *context.Context, tree *ast.Tree) *Emitter {
	return &Emitter{Ctx: ctx, Tree: tree, seenTypes: make(map[string]bool)}
}

func (e *Emitter) writeIndented(line string) {
	e.buf.WriteString(strings.Repeat("  ", e.indent))
	e.buf.WriteString(line)
}

func (e *Emitter) increaseIndent() { e.indent++ }
func (e *Emitter) decreaseIndent() {
	if e.indent > 0 {
		e.indent--
	}
}

// Program emits the full translation unit: a fixed prelude, the
// dependency-ordered type declarations and function definitions
// accumulated on Ctx, and a `main` wrapping the top-level Block's
// statements, returning 0 unless a `return` statement inside main
// supplies another value (spec.md §8's "empty program yields a `main`
// that returns 0").
func (e *Emitter) Program() string {
	e.EmitBlock(e.Tree.Node(e.Tree.Root), e.Ctx.Root)
	e.emitScopeExit(e.Ctx.Root)

	var out strings.Builder
	out.WriteString("#include <stdint.h>\n#include <stdbool.h>\n#include <stddef.h>\n\n")
	for _, d := range e.Ctx.Declarations {
		out.WriteString(d)
		out.WriteString("\n")
	}
	for _, d := range e.Ctx.Definitions {
		out.WriteString(d)
		out.WriteString("\n")
	}
	out.WriteString("int main(void) {\n")
	out.WriteString(e.buf.String())
	out.WriteString("  return 0;\n}\n")
	return out.String()
}

// ---- Statements ----

func (e *Emitter) EmitBlock(n *ast.Node, sc *scope.Scope) {
	for _, c := range n.Children {
		e.EmitStatement(e.Tree.Node(c), sc)
	}
}

func (e *Emitter) EmitStatement(n *ast.Node, sc *scope.Scope) {
	switch n.Tag {
	case ast.TagVarDecl:
		e.emitVarDecl(n, sc)
	case ast.TagAssign:
		e.emitAssign(n, sc)
	case ast.TagReturn:
		e.emitReturn(n, sc)
	case ast.TagIf:
		e.emitIf(n, sc)
	case ast.TagWhile:
		e.emitWhile(n, sc)
	case ast.TagRepeat:
		e.emitRepeat(n, sc)
	case ast.TagForNum:
		e.emitForNum(n, sc)
	case ast.TagForIn:
		e.emitForIn(n, sc)
	case ast.TagDo:
		if len(n.Children) == 0 {
			return
		}
		inner := scopeOf(n, sc)
		e.writeIndented("{\n")
		e.increaseIndent()
		e.EmitBlock(e.Tree.Node(n.Children[0]), inner)
		e.emitScopeExit(inner)
		e.decreaseIndent()
		e.writeIndented("}\n")
	case ast.TagDefer:
		// Nothing to do at this statement's own position: visitDefer
		// registered it on its enclosing scope's DeferBlocks, and
		// emitScopeExit runs its body when that scope unwinds.
	case ast.TagBreak:
		e.writeIndented("break;\n")
	case ast.TagContinue:
		e.writeIndented("continue;\n")
	case ast.TagFuncDef:
		e.emitFuncDef(n, sc)
	default:
		// A bare expression statement (Suffixed/Call/Expr reached the
		// statement position directly): evaluate and discard.
		e.writeIndented(fmt.Sprintf("(void)(%s);\n", e.EmitExpr(n)))
	}
}

func (e *Emitter) emitVarDecl(n *ast.Node, sc *scope.Scope) {
	if len(n.Children) == 0 {
		return
	}
	declNode := e.Tree.Node(n.Children[0])
	cType := "void*"
	if t, ok := typeOf(n); ok {
		cType = TypeToC(t)
	}
	if len(n.Children) > 1 {
		init := e.EmitExpr(e.Tree.Node(n.Children[1]))
		e.writeIndented(fmt.Sprintf("%s %s = %s;\n", cType, cIdent(declNode.Text), init))
	} else {
		e.writeIndented(fmt.Sprintf("%s %s;\n", cType, cIdent(declNode.Text)))
	}
}

func (e *Emitter) emitAssign(n *ast.Node, sc *scope.Scope) {
	if len(n.Children) != 2 {
		return
	}
	lhs := e.EmitExpr(e.Tree.Node(n.Children[0]))
	rhs := e.EmitExpr(e.Tree.Node(n.Children[1]))
	e.writeIndented(fmt.Sprintf("%s = %s;\n", lhs, rhs))
}

func (e *Emitter) emitReturn(n *ast.Node, sc *scope.Scope) {
	switch len(n.Children) {
	case 0:
		e.writeIndented("return;\n")
	case 1:
		e.writeIndented(fmt.Sprintf("return %s;\n", e.EmitExpr(e.Tree.Node(n.Children[0]))))
	default:
		// Multiple-return: the analyzer records no aggregate type for
		// these; here an anonymous struct with one void* field per value
		// is built positionally.
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			parts[i] = e.EmitExpr(e.Tree.Node(c))
		}
		e.writeIndented(fmt.Sprintf("return (struct { %s } ){ %s };\n", retFieldsList(len(n.Children)), strings.Join(parts, ", ")))
	}
}

func retFieldsList(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("void* r%d;", i)
	}
	return strings.Join(parts, " ")
}

func (e *Emitter) emitIf(n *ast.Node, sc *scope.Scope) {
	if len(n.Children) < 2 {
		return
	}
	cond := e.EmitExpr(e.Tree.Node(n.Children[0]))
	e.writeIndented(fmt.Sprintf("if (%s) {\n", cond))
	e.increaseIndent()
	e.EmitBlock(e.Tree.Node(n.Children[1]), sc)
	e.decreaseIndent()
	rest := n.Children[2:]
	// Remaining children alternate Expr,Block pairs for each `elseif`,
	// with one trailing lone Block for a final `else`.
	for len(rest) >= 2 {
		e.writeIndented(fmt.Sprintf("} else if (%s) {\n", e.EmitExpr(e.Tree.Node(rest[0]))))
		e.increaseIndent()
		e.EmitBlock(e.Tree.Node(rest[1]), sc)
		e.decreaseIndent()
		rest = rest[2:]
	}
	if len(rest) == 1 {
		e.writeIndented("} else {\n")
		e.increaseIndent()
		e.EmitBlock(e.Tree.Node(rest[0]), sc)
		e.decreaseIndent()
	}
	e.writeIndented("}\n")
}

func (e *Emitter) emitWhile(n *ast.Node, sc *scope.Scope) {
	if len(n.Children) < 2 {
		return
	}
	cond := e.EmitExpr(e.Tree.Node(n.Children[0]))
	inner := scopeOf(n, sc)
	e.writeIndented(fmt.Sprintf("while (%s) {\n", cond))
	e.increaseIndent()
	e.emitLoopBody(n.Children[1:], inner)
	e.emitScopeExit(inner)
	e.decreaseIndent()
	e.writeIndented("}\n")
}

func (e *Emitter) emitRepeat(n *ast.Node, sc *scope.Scope) {
	if len(n.Children) < 1 {
		return
	}
	cond := e.Tree.Node(n.Children[len(n.Children)-1])
	inner := scopeOf(n, sc)
	e.writeIndented("do {\n")
	e.increaseIndent()
	e.emitLoopBody(n.Children[:len(n.Children)-1], inner)
	e.decreaseIndent()
	e.writeIndented(fmt.Sprintf("} while (!(%s));\n", e.EmitExpr(cond)))
	e.emitScopeExit(inner)
}

// emitLoopBody emits each of refs, descending into a single wrapped Block
// child with EmitBlock rather than EmitStatement — the grammar nests a
// loop's body in one Block child rather than splicing its statements
// directly into the loop construct's own children (the same shape the
// now-fixed Do case uses), so treating a Block child as a bare statement
// would silently discard it through EmitStatement's default case.
func (e *Emitter) emitLoopBody(refs []ast.NodeRef, sc *scope.Scope) {
	for _, c := range refs {
		cn := e.Tree.Node(c)
		if cn.Tag == ast.TagBlock {
			e.EmitBlock(cn, sc)
			continue
		}
		e.EmitStatement(cn, sc)
	}
}

func (e *Emitter) emitForNum(n *ast.Node, sc *scope.Scope) {
	var declRef ast.NodeRef = ast.NilRef
	var rangeRefs, bodyRefs []ast.NodeRef
	for _, c := range n.Children {
		switch e.Tree.Node(c).Tag {
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
	name := "i"
	if declRef != ast.NilRef {
		name = cIdent(e.Tree.Node(declRef).Text)
	}
	start := "0"
	limit := "0"
	step := "1"
	if len(rangeRefs) > 0 {
		start = e.EmitExpr(e.Tree.Node(rangeRefs[0]))
	}
	if len(rangeRefs) > 1 {
		limit = e.EmitExpr(e.Tree.Node(rangeRefs[1]))
	}
	if len(rangeRefs) > 2 {
		step = e.EmitExpr(e.Tree.Node(rangeRefs[2]))
	}
	inner := scopeOf(bodyFirst(e.Tree, bodyRefs), sc)
	e.writeIndented(fmt.Sprintf("for (int64_t %s = %s; %s <= %s; %s += %s) {\n", name, start, name, limit, name, step))
	e.increaseIndent()
	for _, b := range bodyRefs {
		e.EmitBlock(e.Tree.Node(b), inner)
	}
	e.emitScopeExit(inner)
	e.decreaseIndent()
	e.writeIndented("}\n")
}

// bodyFirst returns the first body node (the one visitForNum/visitForIn
// stashed their forked loop scope on), or an empty node when there is
// none, for scopeOf to recover that scope from.
func bodyFirst(tree *ast.Tree, refs []ast.NodeRef) *ast.Node {
	if len(refs) == 0 {
		return &ast.Node{}
	}
	return tree.Node(refs[0])
}

// emitForIn handles `for ... in iterExpr do ... end`, lowering to a
// counted C for-loop over the iterated array's length. Per spec.md §9
// Open Question (a) (and the same parser limitation visitForIn documents)
// the per-iteration binding name is not recoverable, so the loop index
// itself has no Vex-visible counterpart; a body that reads the iterated
// element would need that binding wired through once the parser captures
// it.
func (e *Emitter) emitForIn(n *ast.Node, sc *scope.Scope) {
	var iterRefs, bodyRefs []ast.NodeRef
	for _, c := range n.Children {
		if e.Tree.Node(c).Tag == ast.TagBlock {
			bodyRefs = append(bodyRefs, c)
		} else {
			iterRefs = append(iterRefs, c)
		}
	}
	if len(iterRefs) == 0 {
		return
	}
	iterExpr := e.EmitExpr(e.Tree.Node(iterRefs[0]))
	bound := fmt.Sprintf("(%s).len", iterExpr)
	if t, ok := typeOf(e.Tree.Node(iterRefs[0])); ok {
		if at, ok := t.(*types.ArrayType); ok && at.Length >= 0 {
			bound = strconv.Itoa(at.Length)
		}
	}
	idx := e.Ctx.GenSym("__vex_i")
	inner := scopeOf(bodyFirst(e.Tree, bodyRefs), sc)
	e.writeIndented(fmt.Sprintf("for (size_t %s = 0; %s < %s; %s++) {\n", idx, idx, bound, idx))
	e.increaseIndent()
	for _, b := range bodyRefs {
		e.EmitBlock(e.Tree.Node(b), inner)
	}
	e.emitScopeExit(inner)
	e.decreaseIndent()
	e.writeIndented("}\n")
}

// emitFuncDef appends a C function definition to Ctx.Definitions (rather
// than writing into the statement buffer — spec.md §4.6: "function
// definitions are process-wide, not nested inside main").
func (e *Emitter) emitFuncDef(n *ast.Node, sc *scope.Scope) {
	if len(n.Children) < 2 {
		return
	}
	nameNode := e.Tree.Node(n.Children[0])
	fnLit := e.Tree.Node(n.Children[len(n.Children)-1])

	if ft, ok := typeOf(fnLit); ok {
		if pft, isPoly := ft.(*types.PolyFunctionType); isPoly {
			// A polymorphic function has no single C function of its own —
			// each distinct argument-type combination specializeCall saw
			// got its own cloned, fully-typed body (spec.md §4.3), cached
			// as an Eval; emit one top-level C function per Eval, named by
			// its own CName rather than the declared Vex name, since two
			// Evals of the same PolyFunctionType would otherwise collide.
			for _, eval := range pft.Evals {
				cloneRef, ok := eval.SpecializedFuncNode.(ast.NodeRef)
				if !ok {
					continue
				}
				e.emitFuncBody(eval.CName, e.Tree.Node(cloneRef), eval.SpecializedType, sc)
			}
			return
		}
	}
	e.emitFuncBody(cIdent(nameNode.Text), fnLit, nil, sc)
}

// emitFuncBody lowers one concrete function literal — the plain function's
// own literal, or one polymorphic specialization's cloned literal — into a
// top-level C function definition named cName. ft, when non-nil, overrides
// the return type lookup (a specialization's FunctionType is not attached
// to its clone's own AttrType the way a plain function's is).
func (e *Emitter) emitFuncBody(cName string, fnLit *ast.Node, ft *types.FunctionType, sc *scope.Scope) {
	var params []string
	var bodyRef ast.NodeRef = ast.NilRef
	for _, c := range fnLit.Children {
		cn := e.Tree.Node(c)
		if cn.Tag == ast.TagIdDecl {
			ptype := "void*"
			if t, ok := typeOf(cn); ok {
				ptype = TypeToC(t)
			}
			params = append(params, fmt.Sprintf("%s %s", ptype, cIdent(cn.Text)))
			continue
		}
		if cn.Tag == ast.TagBlock {
			bodyRef = c
		}
	}
	if ft == nil {
		if t, ok := typeOf(fnLit); ok {
			ft, _ = t.(*types.FunctionType)
		}
	}
	retType := "void"
	if ft != nil && len(ft.RetTypes) == 1 {
		retType = TypeToC(ft.RetTypes[0])
	}
	inner := scopeOf(fnLit, sc)
	sub := &Emitter{Ctx: e.Ctx, Tree: e.Tree, seenTypes: e.seenTypes}
	if bodyRef != ast.NilRef {
		sub.EmitBlock(e.Tree.Node(bodyRef), inner)
		sub.emitScopeExit(inner)
	}
	var def strings.Builder
	fmt.Fprintf(&def, "%s %s(%s) {\n%s}\n", retType, cName, strings.Join(params, ", "), sub.buf.String())
	e.Ctx.Definitions = append(e.Ctx.Definitions, def.String())
}

// ---- Expressions ----

func (e *Emitter) EmitExpr(n *ast.Node) string {
	switch n.Tag {
	case ast.TagNumber:
		return numberLiteral(n)
	case ast.TagString:
		return strconv.Quote(n.StringLit.Value)
	case ast.TagBoolean:
		if n.Text == "true" {
			return "true"
		}
		return "false"
	case ast.TagNil:
		return "NULL"
	case ast.TagId:
		return cIdent(n.Text)
	case ast.TagParen:
		if len(n.Children) == 1 {
			return "(" + e.EmitExpr(e.Tree.Node(n.Children[0])) + ")"
		}
		return "(0)"
	case ast.TagUnaryOp:
		if len(n.Children) != 1 {
			return "0"
		}
		return fmt.Sprintf("(%s%s)", unaryOperator(n.Text), e.EmitExpr(e.Tree.Node(n.Children[0])))
	case ast.TagBinaryOp:
		return e.emitBinaryOp(n)
	case ast.TagCall:
		return e.emitCall(n)
	default:
		return "0"
	}
}

func numberLiteral(n *ast.Node) string {
	if n.NumberLit == nil {
		return "0"
	}
	num := n.NumberLit
	var sb strings.Builder
	if num.Negative {
		sb.WriteByte('-')
	}
	switch num.Base {
	case token.Base16:
		sb.WriteString("0x")
	case token.Base8:
		sb.WriteByte('0')
	case token.Base2:
		// C has no standard binary-literal syntax before C23; render the
		// decoded decimal value instead of a non-portable 0b prefix.
		if v, err := strconv.ParseInt(num.Int, 2, 64); err == nil {
			sb.WriteString(strconv.FormatInt(v, 10))
		} else {
			sb.WriteString(num.Int)
		}
	}
	if num.Base != token.Base2 {
		sb.WriteString(num.Int)
	}
	if num.Frac != "" {
		sb.WriteByte('.')
		sb.WriteString(num.Frac)
	}
	if num.Exp != "" {
		sb.WriteByte('e')
		sb.WriteString(num.Exp)
	}
	return sb.String()
}

// emitBinaryOp lowers non-boolean `and`/`or` via a temporary and an if,
// per spec.md §4.6 ("`and`/`or` on non-bool operands cannot lower to C's
// short-circuit `&&`/`||`, which always yields `int`"); the bool/bool
// case lowers directly since C's `&&`/`||` already do the right thing.
func (e *Emitter) emitBinaryOp(n *ast.Node) string {
	if len(n.Children) != 2 {
		return "0"
	}
	l := e.EmitExpr(e.Tree.Node(n.Children[0]))
	r := e.EmitExpr(e.Tree.Node(n.Children[1]))
	switch n.Text {
	case "and":
		if isBoolType(n.Children[0], e.Tree) && isBoolType(n.Children[1], e.Tree) {
			return fmt.Sprintf("(%s && %s)", l, r)
		}
		tmp := e.Ctx.GenSym("nlt_")
		e.writeIndented(fmt.Sprintf("__auto_type %s = %s;\n", tmp, l))
		e.writeIndented(fmt.Sprintf("if (%s) { %s = %s; }\n", tmp, tmp, r))
		return tmp
	case "or":
		if isBoolType(n.Children[0], e.Tree) && isBoolType(n.Children[1], e.Tree) {
			return fmt.Sprintf("(%s || %s)", l, r)
		}
		tmp := e.Ctx.GenSym("nlt_")
		e.writeIndented(fmt.Sprintf("__auto_type %s = %s;\n", tmp, l))
		e.writeIndented(fmt.Sprintf("if (!%s) { %s = %s; }\n", tmp, tmp, r))
		return tmp
	case "..":
		e.Ctx.RequireHelper("nelua_string_concat", stringConcatHelper)
		return fmt.Sprintf("nelua_string_concat(%s, %s)", l, r)
	default:
		return fmt.Sprintf("(%s %s %s)", l, binaryOperator(n.Text), r)
	}
}

// emitCall lowers a call expression. When the callee resolved to a
// *types.PolyFunctionType (spec.md §8's `auto`-parameter functions), the
// call node carries ast.AttrPolyEvalKey recording which specialization the
// analyzer unified it against — that Eval's own CName is the C function to
// call, since a polymorphic function has no single C function of its own
// (see emitFuncDef).
func (e *Emitter) emitCall(n *ast.Node) string {
	if len(n.Children) == 0 {
		return "0"
	}
	calleeNode := e.Tree.Node(n.Children[0])
	args := make([]string, 0, len(n.Children)-1)
	for _, c := range n.Children[1:] {
		args = append(args, e.EmitExpr(e.Tree.Node(c)))
	}
	if calleeType, ok := typeOf(calleeNode); ok {
		if pft, isPoly := calleeType.(*types.PolyFunctionType); isPoly {
			if keyAny, ok := n.Attr.Get(ast.AttrPolyEvalKey); ok {
				if key, ok := keyAny.(string); ok {
					if eval, ok := pft.Lookup(key); ok {
						return fmt.Sprintf("%s(%s)", eval.CName, strings.Join(args, ", "))
					}
				}
			}
		}
	}
	callee := e.EmitExpr(calleeNode)
	return fmt.Sprintf("%s(%s)", callee, strings.Join(args, ", "))
}

// ---- Operator/identifier rendering ----

func unaryOperator(op string) string {
	switch op {
	case "not":
		return "!"
	case "#":
		return "" // length-of is rendered through a helper call, not a C unary op
	default:
		return op
	}
}

func binaryOperator(op string) string {
	switch op {
	case "~=":
		return "!="
	case "<<|":
		return "<<"
	case "|>>":
		return ">>"
	default:
		return op
	}
}

// cIdent sanitizes a Vex identifier into a legal C identifier, avoiding
// collisions with C keywords by suffixing them.
func cIdent(name string) string {
	if name == "" {
		return "_"
	}
	if cKeywords[name] {
		return name + "_"
	}
	return name
}

var cKeywords = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extern": true, "float": true, "for": true, "goto": true,
	"if": true, "int": true, "long": true, "register": true, "return": true,
	"short": true, "signed": true, "sizeof": true, "static": true, "struct": true,
	"switch": true, "typedef": true, "union": true, "unsigned": true, "void": true,
	"volatile": true, "while": true,
}

// ---- Attribute helpers ----

func typeOf(n *ast.Node) (types.Type, bool) {
	v, ok := n.Attr.Get(ast.AttrType)
	if !ok {
		return nil, false
	}
	t, ok := v.(types.Type)
	return t, ok
}

func isBoolType(ref ast.NodeRef, tree *ast.Tree) bool {
	t, ok := typeOf(tree.Node(ref))
	if !ok {
		return false
	}
	pt, ok := t.(*types.PrimitiveType)
	return ok && pt.Kind == types.Bool
}

const stringConcatHelper = `vex_string_t nelua_string_concat(vex_string_t a, vex_string_t b);
`

// ---- Type declaration ordering ----

// DeclareType renders seen into Ctx.Declarations in dependency order
// (record/union fields declared before the aggregate that embeds them),
// skipping anything already rendered. Call once per distinct top-level
// type encountered while lowering VarDecl/FuncDef nodes.
func DeclareType(ctx *context.Context, seen map[string]bool, t types.Type) {
	declareTypeRec(ctx, seen, t, map[string]bool{})
}

func declareTypeRec(ctx *context.Context, seen map[string]bool, t types.Type, inProgress map[string]bool) {
	if t == nil || seen[t.Codename()] || inProgress[t.Codename()] {
		return
	}
	switch rt := t.(type) {
	case *types.RecordType:
		inProgress[rt.Codename()] = true
		fields := rt.Fields
		for _, f := range fields {
			if _, isPtr := f.Type.(*types.PointerType); isPtr {
				continue // a pointer field never forces the pointee to be declared first
			}
			declareTypeRec(ctx, seen, f.Type, inProgress)
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "typedef struct %s {\n", rt.Codename())
		for _, f := range fields {
			fmt.Fprintf(&sb, "  %s %s;\n", TypeToC(f.Type), cIdent(f.Name))
		}
		fmt.Fprintf(&sb, "} %s;\n", rt.Codename())
		ctx.Declarations = append(ctx.Declarations, sb.String())
		seen[rt.Codename()] = true
	case *types.ArrayType:
		declareTypeRec(ctx, seen, rt.Elem, inProgress)
		var sb strings.Builder
		if rt.Length >= 0 {
			fmt.Fprintf(&sb, "typedef struct %s { %s items[%d]; } %s;\n", rt.Codename(), TypeToC(rt.Elem), rt.Length, rt.Codename())
		} else {
			fmt.Fprintf(&sb, "typedef struct %s { %s* items; size_t len; } %s;\n", rt.Codename(), TypeToC(rt.Elem), rt.Codename())
		}
		ctx.Declarations = append(ctx.Declarations, sb.String())
		seen[rt.Codename()] = true
	case *types.EnumType:
		var sb strings.Builder
		fmt.Fprintf(&sb, "typedef %s %s;\n", TypeToC(rt.Subtype), rt.Codename())
		for _, f := range rt.Fields {
			fmt.Fprintf(&sb, "#define %s_%s ((%s)%d)\n", rt.Codename(), cIdent(f.Name), rt.Codename(), f.Value)
		}
		ctx.Declarations = append(ctx.Declarations, sb.String())
		seen[rt.Codename()] = true
	case *types.UnionType:
		var sb strings.Builder
		fmt.Fprintf(&sb, "typedef union %s {\n", rt.Codename())
		for i, v := range rt.Variants {
			declareTypeRec(ctx, seen, v, inProgress)
			fmt.Fprintf(&sb, "  %s v%d;\n", TypeToC(v), i)
		}
		fmt.Fprintf(&sb, "} %s;\n", rt.Codename())
		ctx.Declarations = append(ctx.Declarations, sb.String())
		seen[rt.Codename()] = true
	case *types.FunctionType:
		var sb strings.Builder
		argList := make([]string, len(rt.ArgTypes))
		for i, a := range rt.ArgTypes {
			declareTypeRec(ctx, seen, a, inProgress)
			argList[i] = TypeToC(a)
		}
		ret := "void"
		if len(rt.RetTypes) == 1 {
			declareTypeRec(ctx, seen, rt.RetTypes[0], inProgress)
			ret = TypeToC(rt.RetTypes[0])
		}
		fmt.Fprintf(&sb, "typedef %s (*%s)(%s);\n", ret, rt.Codename(), strings.Join(argList, ", "))
		ctx.Declarations = append(ctx.Declarations, sb.String())
		seen[rt.Codename()] = true
	case *types.PolyFunctionType:
		// A polymorphic function has no single C type of its own — every
		// call site is resolved to a concrete Eval's FunctionType at the
		// call, per spec.md §4.3 — so it has nothing to declare here.
		seen[rt.Codename()] = true
	}
}

// TypeToC renders t as a C type-name expression.
func TypeToC(t types.Type) string {
	if t == nil {
		return "void*"
	}
	switch v := t.(type) {
	case *types.PrimitiveType:
		return primitiveToC(v)
	case *types.PointerType:
		return TypeToC(v.Elem) + "*"
	case *types.GenericPointerType:
		return "void*"
	case *types.AnyType:
		return "void*"
	case *types.NilType:
		return "void*"
	case *types.OptionalType:
		return TypeToC(v.Elem) // nullability is represented by the element's own pointerness/sentinel, not a wrapper
	case *types.RecordType, *types.ArrayType, *types.EnumType, *types.UnionType, *types.FunctionType:
		return t.Codename()
	case *types.PolyFunctionType:
		return "void*"
	default:
		return "void*"
	}
}

func primitiveToC(p *types.PrimitiveType) string {
	switch p.Kind {
	case types.I8:
		return "int8_t"
	case types.I16:
		return "int16_t"
	case types.I32:
		return "int32_t"
	case types.I64:
		return "int64_t"
	case types.Isize:
		return "intptr_t"
	case types.U8:
		return "uint8_t"
	case types.U16:
		return "uint16_t"
	case types.U32:
		return "uint32_t"
	case types.U64:
		return "uint64_t"
	case types.Usize:
		return "size_t"
	case types.F32:
		return "float"
	case types.F64:
		return "double"
	case types.FLong:
		return "long double"
	case types.Bool:
		return "bool"
	case types.Char:
		return "char"
	case types.Cstring:
		return "const char*"
	case types.VexString:
		return "vex_string_t"
	case types.Niltype:
		return "void*"
	default:
		return "void*"
	}
}
