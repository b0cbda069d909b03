// Package scope implements the scope tree and symbol table (spec.md §4.2).
//
// Generalized from the teacher's analysis.SymbolTableImpl — a flat stack of
// scope maps addressed by an integer level — into an actual tree, because
// fixed-point re-analysis (spec.md §4.5) can have sibling function/record
// scopes simultaneously live, which a single current-scope stack cannot
// represent. The ordered per-scope symbol list is kept, using
// github.com/wk8/go-ordered-map/v2 instead of the teacher's
// map+insertion-order-via-external-slice pattern, because the GC-root
// registration hook (spec.md §4.2) needs exactly that iteration order and
// an ordered map gives it without a second bookkeeping slice.
package scope

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/vexlang/vxc/internal/compiler/ast"
)

// Kind is the scope kind (spec.md §3).
type Kind int

const (
	KindRoot Kind = iota
	KindBlock
	KindLoop
	KindFunction
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindBlock:
		return "block"
	case KindLoop:
		return "loop"
	case KindFunction:
		return "function"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// StorageClass is a symbol's storage class (spec.md §3).
type StorageClass int

const (
	StorageLocal StorageClass = iota
	StorageGlobal
	StorageStatic
	StorageComptime
)

// Symbol is a unique, owned declaration-site record (spec.md §3).
type Symbol struct {
	Name        string
	Type        any // *types.Type, kept as any to avoid an import cycle
	Storage     StorageClass
	Annotations []string
	DefiningNode ast.NodeRef
	OriginScope  *Scope
	CImport      bool
	Nickname     string // for type symbols: the user-facing alias
}

// HasAnnotation reports whether the symbol carries the named annotation.
func (s *Symbol) HasAnnotation(name string) bool {
	for _, a := range s.Annotations {
		if a == name {
			return true
		}
	}
	return false
}

// Scope is one lexical naming region and destruction unit.
type Scope struct {
	Kind   Kind
	Parent *Scope
	Children []*Scope

	Symbols *orderedmap.OrderedMap[string, *Symbol]
	Labels  map[string]*Symbol

	// Loop scopes.
	BreakTargets []ast.NodeRef

	// Function scopes.
	FuncType   any // *types.FunctionType
	HasReturn  bool

	// Emitter bookkeeping (spec.md §4.6).
	AlreadyDestroyed bool
	DeferBlocks      []ast.NodeRef
}

// New creates a root scope.
func New(kind Kind) *Scope {
	return &Scope{
		Kind:    kind,
		Symbols: orderedmap.New[string, *Symbol](),
		Labels:  make(map[string]*Symbol),
	}
}

// ErrRedeclared is returned by Declare when name already exists in the same
// scope and is not overridable (annotation "nodecl" on a cimport symbol).
type ErrRedeclared struct {
	Name string
}

func (e *ErrRedeclared) Error() string {
	return fmt.Sprintf("'%s' is already declared in this scope", e.Name)
}

// Fork creates a child scope of the given kind and links it into the tree.
func (s *Scope) Fork(kind Kind) *Scope {
	child := New(kind)
	child.Parent = s
	s.Children = append(s.Children, child)
	return child
}

// Declare adds sym to this scope under sym.Name. Fails with ErrRedeclared
// unless the existing symbol is a cimport symbol carrying the "nodecl"
// annotation, in which case redeclaration is allowed and silently replaces
// it (spec.md §4.2).
func (s *Scope) Declare(sym *Symbol) error {
	if existing, ok := s.Symbols.Get(sym.Name); ok {
		if !(existing.CImport && existing.HasAnnotation("nodecl")) {
			return &ErrRedeclared{Name: sym.Name}
		}
	}
	sym.OriginScope = s
	s.Symbols.Set(sym.Name, sym)
	return nil
}

// Resolve walks from this scope up through parents looking for name.
func (s *Scope) Resolve(name string) (*Symbol, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if sym, ok := cur.Symbols.Get(name); ok {
			return sym, true
		}
	}
	return nil, false
}

// ResolveLocal looks up name only in this scope, without walking parents.
func (s *Scope) ResolveLocal(name string) (*Symbol, bool) {
	return s.Symbols.Get(name)
}

// EnclosingFunction returns the nearest ancestor function scope, if any.
func (s *Scope) EnclosingFunction() (*Scope, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Kind == KindFunction {
			return cur, true
		}
	}
	return nil, false
}

// EnclosingLoop returns the nearest ancestor loop scope, if any.
func (s *Scope) EnclosingLoop() (*Scope, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Kind == KindLoop {
			return cur, true
		}
		if cur.Kind == KindFunction {
			// a loop in an enclosing function does not bind break/continue
			// across a function boundary.
			return nil, false
		}
	}
	return nil, false
}

// OrderedSymbols returns this scope's own symbols in declaration order —
// the order the GC-root registration hook and the emitter's reverse-order
// destructor walk both depend on.
func (s *Scope) OrderedSymbols() []*Symbol {
	out := make([]*Symbol, 0, s.Symbols.Len())
	for pair := s.Symbols.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// ReverseOrderedSymbols returns this scope's own symbols in reverse
// declaration order — the order destructor calls are emitted in.
func (s *Scope) ReverseOrderedSymbols() []*Symbol {
	fwd := s.OrderedSymbols()
	out := make([]*Symbol, len(fwd))
	for i, sym := range fwd {
		out[len(fwd)-1-i] = sym
	}
	return out
}
