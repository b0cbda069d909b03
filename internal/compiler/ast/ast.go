// Package ast implements the tagged, arena-owned abstract syntax tree.
//
// Nodes are stored by value in a Tree's arena and referenced by index
// (NodeRef) rather than by pointer, so that cyclic references — a record
// type's field referring back to the record, a pointer type to its
// not-yet-defined pointee — never require an owning pointer cycle (see
// spec.md §9, "Cyclic AST/type references").
//
// Grounded on the teacher's VexAST/ASTVisitor split
// (internal/transpiler/ast/ast.go): a thin root-holding wrapper plus a
// visitor interface, generalized from ANTLR's antlr.Tree to a tagged
// variant with an attribute bag, since the spec's AST must support
// preprocessor-driven subtree replacement that ANTLR's generated context
// types cannot express.
package ast

import (
	"fmt"

	"github.com/vexlang/vxc/internal/compiler/token"
)

// Tag is the closed set of AST node tags named in spec.md §6. Grammar
// extensions installed by the preprocessor must produce nodes of one of
// these existing tags — no new tags are ever minted at runtime.
type Tag int

const (
	TagInvalid Tag = iota
	TagNumber
	TagString
	TagBoolean
	TagNil
	TagVarargs
	TagId
	TagIdDecl
	TagParen
	TagType
	TagTypeInstance
	TagFuncType
	TagRecordType
	TagRecordFieldType
	TagUnionType
	TagUnionFieldType
	TagEnumType
	TagEnumFieldType
	TagArrayType
	TagPointerType
	TagOptionalType
	TagGenericType
	TagDotIndex
	TagColonIndex
	TagArrayIndex
	TagTable
	TagPair
	TagAnnotation
	TagPragmaCall
	TagFunction
	TagCall
	TagCallMethod
	TagBlock
	TagReturn
	TagIf
	TagDo
	TagDefer
	TagWhile
	TagRepeat
	TagForNum
	TagForIn
	TagBreak
	TagContinue
	TagLabel
	TagGoto
	TagVarDecl
	TagAssign
	TagFuncDef
	TagUnaryOp
	TagBinaryOp
	TagSwitch
	TagPreprocess
	TagPreprocessExpr
	TagPreprocessName
	tagSentinel
)

var tagNames = [...]string{
	"Invalid", "Number", "String", "Boolean", "Nil", "Varargs", "Id", "IdDecl",
	"Paren", "Type", "TypeInstance", "FuncType", "RecordType", "RecordFieldType",
	"UnionType", "UnionFieldType", "EnumType", "EnumFieldType", "ArrayType",
	"PointerType", "OptionalType", "GenericType", "DotIndex", "ColonIndex",
	"ArrayIndex", "Table", "Pair", "Annotation", "PragmaCall", "Function",
	"Call", "CallMethod", "Block", "Return", "If", "Do", "Defer", "While",
	"Repeat", "ForNum", "ForIn", "Break", "Continue", "Label", "Goto",
	"VarDecl", "Assign", "FuncDef", "UnaryOp", "BinaryOp", "Switch",
	"Preprocess", "PreprocessExpr", "PreprocessName",
}

func (t Tag) String() string {
	if t >= 0 && int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("Tag(%d)", int(t))
}

// NodeRef is an index into a Tree's arena. NilRef (-1) marks the absence
// of a node; the zero value refers to the arena's first node.
type NodeRef int

const NilRef NodeRef = -1

// AttrBag is an ordered, language-neutral key/value record. Merging two
// bags requires agreement on any overlapping key (spec.md §3).
type AttrBag struct {
	keys   []string
	values map[string]any
}

func NewAttrBag() AttrBag {
	return AttrBag{values: make(map[string]any)}
}

func (b *AttrBag) Get(key string) (any, bool) {
	if b.values == nil {
		return nil, false
	}
	v, ok := b.values[key]
	return v, ok
}

func (b *AttrBag) Set(key string, value any) {
	if b.values == nil {
		b.values = make(map[string]any)
	}
	if _, exists := b.values[key]; !exists {
		b.keys = append(b.keys, key)
	}
	b.values[key] = value
}

// Keys returns attribute keys in insertion order.
func (b *AttrBag) Keys() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// Merge combines other into b, failing if a shared key disagrees.
func (b *AttrBag) Merge(other AttrBag) error {
	for _, k := range other.keys {
		ov := other.values[k]
		if existing, ok := b.values[k]; ok {
			if !attrEqual(existing, ov) {
				return fmt.Errorf("attribute bag merge conflict on key %q", k)
			}
			continue
		}
		b.Set(k, ov)
	}
	return nil
}

func attrEqual(a, b any) bool {
	return fmt.Sprintf("%#v", a) == fmt.Sprintf("%#v", b)
}

// Well-known attribute keys. Using string constants rather than a closed
// enum keeps the bag "language-neutral" per spec.md §3, at the cost of
// typo-safety the callers in this module avoid by only ever using these
// constants.
const (
	AttrType        = "type"
	AttrSymbol      = "symbol"
	AttrConstValue  = "constvalue"
	AttrLValue      = "lvalue"
	AttrComptime    = "comptime"
	AttrSideEffect  = "sideeffect"
	AttrMoved       = "moved"
	AttrMayMove     = "maymove"
	AttrCheckCast   = "checkcast"
	AttrScopeDestroy = "scopedestroy"
	AttrPending     = "pending"
	AttrAnalyzed    = "analyzed"
	// AttrScope holds the *scope.Scope (as any, to avoid an import cycle)
	// a block/loop/function-introducing node forked for its own body, so
	// the emitter can recover the exact scope whose locals/defer blocks
	// it must unwind at scope exit (spec.md §4.6).
	AttrScope = "scope"
	// AttrPolyEvalKey holds the substituted-argument-type key a Call node
	// resolved against its callee's PolyFunctionType, letting the emitter
	// find the matching Eval without repeating unification.
	AttrPolyEvalKey = "polyevalkey"
)

// Node is one AST node. Children are kept as an ordered slice of refs into
// the owning Tree's arena.
type Node struct {
	Tag      Tag
	Children []NodeRef
	Attr     AttrBag
	Span     token.Span

	// Literal payloads, populated only for the matching Tag.
	NumberLit *token.Number
	StringLit *token.String
	Text      string // identifier text, operator text, label name, ...
}

// SourceSpan implements diagnostics.Spanner, letting callers pass a *Node
// directly to diagnostics.Tracef.
func (n *Node) SourceSpan() token.Span { return n.Span }

// analyzed reports whether the analyzer has frozen this node's tag/arity.
func (n *Node) analyzed() bool {
	_, ok := n.Attr.Get(AttrAnalyzed)
	return ok
}

// Tree owns the node arena for one parsed unit.
type Tree struct {
	nodes []Node
	Root  NodeRef
}

func NewTree() *Tree {
	return &Tree{Root: NilRef}
}

// New appends a fresh node to the arena and returns its ref.
func (t *Tree) New(tag Tag, span token.Span, children ...NodeRef) NodeRef {
	t.nodes = append(t.nodes, Node{Tag: tag, Span: span, Children: children, Attr: NewAttrBag()})
	return NodeRef(len(t.nodes) - 1)
}

// Node dereferences a ref. Panics on NilRef, matching the arena's invariant
// that every live ref in Children/Root points at a constructed node.
func (t *Tree) Node(ref NodeRef) *Node {
	return &t.nodes[ref]
}

// ReplaceChildren installs new children for ref, failing if ref is already
// analyzed (spec.md §3: "once the analyzer marks a node analyzed, its tag
// and child arity are fixed").
func (t *Tree) ReplaceChildren(ref NodeRef, children []NodeRef) error {
	n := t.Node(ref)
	if n.analyzed() {
		return fmt.Errorf("cannot replace children of analyzed node %s at %s", n.Tag, n.Span)
	}
	n.Children = children
	return nil
}

// Splice overwrites ref's tag, children, and literal payload in place —
// used by the analyzer to replace a Preprocess/PreprocessExpr/
// PreprocessName node with the freshly parsed fragment its metalanguage
// text produced (spec.md §4.4). Fails if ref is already analyzed, same as
// ReplaceChildren.
func (t *Tree) Splice(ref NodeRef, tag Tag, span token.Span, children []NodeRef) error {
	n := t.Node(ref)
	if n.analyzed() {
		return fmt.Errorf("cannot splice analyzed node %s at %s", n.Tag, n.Span)
	}
	n.Tag = tag
	n.Span = span
	n.Children = children
	n.NumberLit = nil
	n.StringLit = nil
	n.Text = ""
	return nil
}

// Adopt deep-copies the subtree rooted at ref in src into t's own arena,
// returning the ref of the copy. Used to merge a freshly re-parsed
// preprocessor fragment (its own standalone Tree) into the Tree being
// analyzed, since NodeRef is only meaningful within the arena that
// produced it.
func (t *Tree) Adopt(src *Tree, ref NodeRef) NodeRef {
	if ref == NilRef {
		return NilRef
	}
	n := src.Node(ref)
	children := make([]NodeRef, len(n.Children))
	for i, c := range n.Children {
		children[i] = t.Adopt(src, c)
	}
	newRef := t.New(n.Tag, n.Span, children...)
	copy := t.Node(newRef)
	copy.NumberLit = n.NumberLit
	copy.StringLit = n.StringLit
	copy.Text = n.Text
	return newRef
}

// MarkAnalyzed freezes a node's tag/arity.
func (t *Tree) MarkAnalyzed(ref NodeRef) {
	t.Node(ref).Attr.Set(AttrAnalyzed, true)
}

// Walk performs a depth-first pre-order traversal, calling visit for every
// node reachable from root. Returning false from visit stops descent into
// that node's children (but continues the traversal at the next sibling).
func (t *Tree) Walk(root NodeRef, visit func(NodeRef) bool) {
	if root == NilRef {
		return
	}
	if !visit(root) {
		return
	}
	for _, c := range t.Node(root).Children {
		t.Walk(c, visit)
	}
}

// Parent builds a child->parent index by one full walk. Used sparingly —
// only the emitter's scope-exit logic and the preprocessor's "current AST
// path" need upward navigation.
func (t *Tree) Parent(root NodeRef) map[NodeRef]NodeRef {
	parents := make(map[NodeRef]NodeRef)
	t.Walk(root, func(ref NodeRef) bool {
		for _, c := range t.Node(ref).Children {
			parents[c] = ref
		}
		return true
	})
	return parents
}
