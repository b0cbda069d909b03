// Package types implements the Vex-lineage type lattice (spec.md §4.3):
// primitives, pointers, arrays, records/unions/enums, functions,
// polymorphic functions, generics, optionals, and "any" — plus the
// assignability/coercion lattice and numeric-arithmetic promotion rules.
//
// Grounded on the teacher's VexType family (internal/transpiler/types.go:
// PrimitiveType, ListType, MapType, FunctionType, GenericType, UnknownType,
// TypeUtils), generalized with the additional kinds spec.md §3 names and
// with identity-based (codename) equality for user-declared record/union/
// enum types instead of the teacher's purely structural equality, since
// spec.md §3 requires "type equality is structural for primitives/
// pointers/arrays/functions, and identity-based (by codename) for
// user-declared records, unions, enums."
package types

import (
	"fmt"
	"strings"

	"github.com/dolthub/swiss"
	"github.com/google/uuid"
)

// Type is the common interface every type-lattice member implements.
type Type interface {
	// String is the Vex-surface rendering of the type.
	String() string
	// Codename is the stable C identifier this type lowers to.
	Codename() string
	fmt.Stringer
}

// Registry interns non-primitive types by codename (spec.md §3 invariant:
// "type equality is ... identity-based (by codename)"). Backed by
// github.com/dolthub/swiss (grounded in the mna-nenuphar language-compiler
// reference file) for O(1) average lookup on a long-lived, write-heavy map
// that every analyzer visit consults.
type Registry struct {
	byCodename *swiss.Map[string, Type]
}

func NewRegistry() *Registry {
	return &Registry{byCodename: swiss.NewMap[string, Type](64)}
}

// Intern registers t under its codename if not already present, returning
// the canonical instance for that codename either way.
func (r *Registry) Intern(t Type) Type {
	if existing, ok := r.byCodename.Get(t.Codename()); ok {
		return existing
	}
	r.byCodename.Put(t.Codename(), t)
	return t
}

func (r *Registry) Lookup(codename string) (Type, bool) {
	return r.byCodename.Get(codename)
}

// NewCodename mints a fresh anonymous codename (for generic instantiations,
// closures, and anonymous records), grounded on the same google/uuid usage
// seen in the odvcencio-mane and funvibe-funxy pack references.
func NewCodename(prefix string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", prefix, strings.ReplaceAll(id.String(), "-", ""))
}

// ---- Primitives ----

type PrimitiveKind int

const (
	I8 PrimitiveKind = iota
	I16
	I32
	I64
	Isize
	U8
	U16
	U32
	U64
	Usize
	F32
	F64
	FLong
	Bool
	Char
	Cstring
	VexString
	Niltype
)

var primitiveNames = map[PrimitiveKind]string{
	I8: "int8", I16: "int16", I32: "int32", I64: "int64", Isize: "isize",
	U8: "uint8", U16: "uint16", U32: "uint32", U64: "uint64", Usize: "usize",
	F32: "float32", F64: "float64", FLong: "longfloat",
	Bool: "boolean", Char: "char", Cstring: "cstring", VexString: "string",
	Niltype: "niltype",
}

var primitiveByName = func() map[string]PrimitiveKind {
	m := make(map[string]PrimitiveKind, len(primitiveNames))
	for k, v := range primitiveNames {
		m[v] = k
	}
	return m
}()

// PrimitiveByName resolves a primitive's Vex-surface keyword (e.g.
// "int64", "boolean") to its PrimitiveType, for the analyzer's
// type-expression evaluator (spec.md §4.3).
func PrimitiveByName(name string) (*PrimitiveType, bool) {
	k, ok := primitiveByName[name]
	if !ok {
		return nil, false
	}
	return Primitive(k), true
}

// PrimitiveType is a fixed-width built-in scalar.
type PrimitiveType struct {
	Kind PrimitiveKind
}

func Primitive(k PrimitiveKind) *PrimitiveType { return &PrimitiveType{Kind: k} }

func (p *PrimitiveType) String() string   { return primitiveNames[p.Kind] }
func (p *PrimitiveType) Codename() string { return primitiveNames[p.Kind] }

func (p *PrimitiveType) IsInteger() bool {
	switch p.Kind {
	case I8, I16, I32, I64, Isize, U8, U16, U32, U64, Usize:
		return true
	}
	return false
}

func (p *PrimitiveType) IsUnsigned() bool {
	switch p.Kind {
	case U8, U16, U32, U64, Usize:
		return true
	}
	return false
}

func (p *PrimitiveType) IsFloat() bool {
	switch p.Kind {
	case F32, F64, FLong:
		return true
	}
	return false
}

// bitWidth orders integer kinds by width for "smaller common integer"
// promotion (spec.md §4.3's numeric arithmetic rule). Size-dependent kinds
// (isize/usize) are treated as 64-bit for promotion purposes.
var bitWidth = map[PrimitiveKind]int{
	I8: 8, U8: 8, I16: 16, U16: 16, I32: 32, U32: 32,
	I64: 64, U64: 64, Isize: 64, Usize: 64,
}

// AnyType represents the top type (spec.md §4.3).
type AnyType struct{}

func (a *AnyType) String() string   { return "any" }
func (a *AnyType) Codename() string { return "nlany" }

// NilType is the type of the literal nil (as opposed to a nil pointer
// value, which has a concrete pointer type).
type NilType struct{}

func (n *NilType) String() string   { return "niltype" }
func (n *NilType) Codename() string { return "nlniltype" }

// ComptimeType tags compile-time-only values (preprocessor results that
// never reach the emitter, e.g. a type value itself).
type ComptimeType struct{ Inner Type }

func (c *ComptimeType) String() string   { return "comptime(" + c.Inner.String() + ")" }
func (c *ComptimeType) Codename() string { return "comptime_" + c.Inner.Codename() }

// TypeType is "the type of types" — the result of evaluating a type
// expression at compile time.
type TypeType struct{}

func (t *TypeType) String() string   { return "type" }
func (t *TypeType) Codename() string { return "nltype" }

// AutoType marks a parameter declared `auto` (spec.md §4.3): a placeholder
// resolved per call site by polymorphic-function specialization, never
// itself reaching the emitter.
type AutoType struct{}

func (a *AutoType) String() string   { return "auto" }
func (a *AutoType) Codename() string { return "nlauto" }

// ---- Pointer ----

// PointerType may legally point to a not-yet-defined record; the emitter
// resolves declaration ordering (spec.md §3).
type PointerType struct {
	Elem Type
}

func Pointer(elem Type) *PointerType { return &PointerType{Elem: elem} }

func (p *PointerType) String() string   { return "*" + p.Elem.String() }
func (p *PointerType) Codename() string { return "ptr_" + p.Elem.Codename() }

// GenericPointer is the untyped `*` used in assignability (spec.md §4.3).
type GenericPointerType struct{}

func (g *GenericPointerType) String() string   { return "*void" }
func (g *GenericPointerType) Codename() string { return "ptr_void" }

// ---- Array ----

type ArrayType struct {
	Elem   Type
	Length int // -1 for an unsized/span-like array
}

func Array(elem Type, length int) *ArrayType { return &ArrayType{Elem: elem, Length: length} }

func (a *ArrayType) String() string {
	if a.Length < 0 {
		return "[]" + a.Elem.String()
	}
	return fmt.Sprintf("[%d]%s", a.Length, a.Elem.String())
}
func (a *ArrayType) Codename() string {
	if a.Length < 0 {
		return "arr_" + a.Elem.Codename()
	}
	return fmt.Sprintf("arr%d_%s", a.Length, a.Elem.Codename())
}

// ---- Optional ----

type OptionalType struct {
	Elem Type
}

func Optional(elem Type) *OptionalType { return &OptionalType{Elem: elem} }

func (o *OptionalType) String() string   { return o.Elem.String() + "?" }
func (o *OptionalType) Codename() string { return "opt_" + o.Elem.Codename() }

// ---- Record / Union / Enum ----

// Field is an ordered record/union field.
type Field struct {
	Name string
	Type Type
}

// Metafields recognized on record/union/enum types (spec.md §4.3).
type Metafields struct {
	GC      *FunctionType
	Copy    *FunctionType
	Destroy *FunctionType
	Convert *FunctionType // accepts the source type, returns this type
	Index   *FunctionType
	Call    *FunctionType
	Eq      *FunctionType
	Lt      *FunctionType
	Le      *FunctionType
	// Arithmetic operators keyed by operator text, e.g. "+", "-".
	Arith map[string]*FunctionType
}

// RecordType is a struct-like aggregate, identity-compared by codename.
type RecordType struct {
	Name       string
	CodenameV  string
	Fields     []Field
	Meta       Metafields
	Packed     bool
	Aligned    int // 0 means unspecified
}

func NewRecordType(name string) *RecordType {
	return &RecordType{Name: name, CodenameV: NewCodename("record_" + sanitize(name))}
}

func (r *RecordType) String() string   { return r.Name }
func (r *RecordType) Codename() string { return r.CodenameV }

func (r *RecordType) FieldByName(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (r *RecordType) HasDestroy() bool {
	if r.Meta.Destroy != nil {
		return true
	}
	for _, f := range r.Fields {
		if rt, ok := unwrapToRecord(f.Type); ok && rt.HasDestroy() {
			return true
		}
	}
	return false
}

func unwrapToRecord(t Type) (*RecordType, bool) {
	if rt, ok := t.(*RecordType); ok {
		return rt, true
	}
	if arr, ok := t.(*ArrayType); ok {
		return unwrapToRecord(arr.Elem)
	}
	return nil, false
}

// UnionType is a tagged or untagged variant over member types.
type UnionType struct {
	Name      string
	CodenameV string
	Variants  []Type
	Meta      Metafields
}

func NewUnionType(name string) *UnionType {
	return &UnionType{Name: name, CodenameV: NewCodename("union_" + sanitize(name))}
}

func (u *UnionType) String() string   { return u.Name }
func (u *UnionType) Codename() string { return u.CodenameV }

// EnumType wraps an integer subtype with named constants.
type EnumType struct {
	Name      string
	CodenameV string
	Subtype   *PrimitiveType
	Fields    []EnumField
}

type EnumField struct {
	Name  string
	Value int64
}

func NewEnumType(name string, subtype *PrimitiveType) *EnumType {
	return &EnumType{Name: name, CodenameV: NewCodename("enum_" + sanitize(name)), Subtype: subtype}
}

func (e *EnumType) String() string   { return e.Name }
func (e *EnumType) Codename() string { return e.CodenameV }

func sanitize(name string) string {
	if name == "" {
		return "anon"
	}
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// ---- Function ----

type FunctionType struct {
	ArgTypes  []Type
	RetTypes  []Type
	Variadic  bool
}

func (f *FunctionType) String() string {
	parts := make([]string, len(f.ArgTypes))
	for i, a := range f.ArgTypes {
		parts[i] = a.String()
	}
	args := strings.Join(parts, ", ")
	if f.Variadic {
		if args != "" {
			args += ", "
		}
		args += "..."
	}
	rets := make([]string, len(f.RetTypes))
	for i, r := range f.RetTypes {
		rets[i] = r.String()
	}
	return fmt.Sprintf("(%s): (%s)", args, strings.Join(rets, ", "))
}

func (f *FunctionType) Codename() string {
	parts := make([]string, len(f.ArgTypes))
	for i, a := range f.ArgTypes {
		parts[i] = a.Codename()
	}
	return "fn_" + strings.Join(parts, "_")
}

// ---- Polymorphic function ----

// Eval is one specialization of a polymorphic function for a specific
// argument-type key (spec.md §3's "Poly-function eval").
type Eval struct {
	Key          string // stable string over the substituted argument types
	SpecializedFuncNode any // ast.NodeRef, kept as any to avoid an import cycle
	SpecializedType *FunctionType
	CName string // the C identifier this specialization lowers to
}

// PolyFunctionType holds an ordered list of evals. Lookup is first by
// exact key, then by creating a new eval (spec.md §4.3); the caller (the
// analyzer) is responsible for actually building a new Eval and appending
// it via AddEval, since only it can re-run analysis on the cloned body.
type PolyFunctionType struct {
	Name       string
	CodenameV  string
	ParamNames []string // parameters declared `auto` or otherwise generic
	Evals      []*Eval

	// TemplateNode (an ast.NodeRef) and DefScope (a *scope.Scope) are kept
	// as any to avoid an import cycle; visitCall clones TemplateNode and
	// re-analyzes it forked from DefScope to produce each new Eval.
	TemplateNode any
	DefScope     any
}

func NewPolyFunctionType(name string) *PolyFunctionType {
	return &PolyFunctionType{Name: name, CodenameV: NewCodename("poly_" + sanitize(name))}
}

func (p *PolyFunctionType) String() string   { return p.Name }
func (p *PolyFunctionType) Codename() string { return p.CodenameV }

// Lookup returns an existing eval for key if present. First-registered
// evals are returned before later ones on any ambiguity, resolving
// spec.md §9 Open Question (c).
func (p *PolyFunctionType) Lookup(key string) (*Eval, bool) {
	for _, e := range p.Evals {
		if e.Key == key {
			return e, true
		}
	}
	return nil, false
}

// AddEval appends a new eval, preserving registration order.
func (p *PolyFunctionType) AddEval(e *Eval) {
	p.Evals = append(p.Evals, e)
}

// ---- Generic ----

// GenericType is not itself a concrete type (spec.md §4.3): invoking it
// with explicit arguments materializes and caches a concrete type via a
// Materializer supplied by the analyzer.
type GenericType struct {
	Name      string
	Params    []string
	instances map[string]Type
	inProgress map[string]bool
}

func NewGenericType(name string, params []string) *GenericType {
	return &GenericType{Name: name, Params: params, instances: make(map[string]Type), inProgress: make(map[string]bool)}
}

func (g *GenericType) String() string   { return g.Name }
func (g *GenericType) Codename() string { return "generic_" + sanitize(g.Name) }

// ErrGenericCycle is raised when materializing a generic requires
// materializing itself with the same arguments (spec.md §4.3).
type ErrGenericCycle struct {
	Name string
	Key  string
}

func (e *ErrGenericCycle) Error() string {
	return fmt.Sprintf("generic type %q is circularly defined for arguments %q", e.Name, e.Key)
}

// Materialize returns the cached concrete type for key, or calls build to
// construct (and cache) one. Detects self-referential materialization.
func (g *GenericType) Materialize(key string, build func() (Type, error)) (Type, error) {
	if t, ok := g.instances[key]; ok {
		return t, nil
	}
	if g.inProgress[key] {
		return nil, &ErrGenericCycle{Name: g.Name, Key: key}
	}
	g.inProgress[key] = true
	defer delete(g.inProgress, key)
	t, err := build()
	if err != nil {
		return nil, err
	}
	g.instances[key] = t
	return t, nil
}
