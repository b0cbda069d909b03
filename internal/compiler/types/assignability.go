package types

import "fmt"

// Equal implements spec.md §3's equality invariant: structural for
// primitives/pointers/arrays/functions, identity-(codename)-based for
// record/union/enum. Grounded on the teacher's per-type Equals methods
// (internal/transpiler/types.go), generalized to the full lattice.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch at := a.(type) {
	case *PrimitiveType:
		bt, ok := b.(*PrimitiveType)
		return ok && at.Kind == bt.Kind
	case *AnyType:
		_, ok := b.(*AnyType)
		return ok
	case *NilType:
		_, ok := b.(*NilType)
		return ok
	case *PointerType:
		bt, ok := b.(*PointerType)
		return ok && Equal(at.Elem, bt.Elem)
	case *GenericPointerType:
		_, ok := b.(*GenericPointerType)
		return ok
	case *ArrayType:
		bt, ok := b.(*ArrayType)
		return ok && at.Length == bt.Length && Equal(at.Elem, bt.Elem)
	case *OptionalType:
		bt, ok := b.(*OptionalType)
		return ok && Equal(at.Elem, bt.Elem)
	case *FunctionType:
		bt, ok := b.(*FunctionType)
		if !ok || len(at.ArgTypes) != len(bt.ArgTypes) || len(at.RetTypes) != len(bt.RetTypes) || at.Variadic != bt.Variadic {
			return false
		}
		for i := range at.ArgTypes {
			if !Equal(at.ArgTypes[i], bt.ArgTypes[i]) {
				return false
			}
		}
		for i := range at.RetTypes {
			if !Equal(at.RetTypes[i], bt.RetTypes[i]) {
				return false
			}
		}
		return true
	case *RecordType:
		bt, ok := b.(*RecordType)
		return ok && at.CodenameV == bt.CodenameV
	case *UnionType:
		bt, ok := b.(*UnionType)
		return ok && at.CodenameV == bt.CodenameV
	case *EnumType:
		bt, ok := b.(*EnumType)
		return ok && at.CodenameV == bt.CodenameV
	case *PolyFunctionType:
		bt, ok := b.(*PolyFunctionType)
		return ok && at.CodenameV == bt.CodenameV
	case *GenericType:
		bt, ok := b.(*GenericType)
		return ok && at.Name == bt.Name
	default:
		return a.Codename() == b.Codename()
	}
}

// FitsInInteger reports whether an integer literal value fits target's
// range (spec.md §4.3, "S is an integer literal that fits in T").
func FitsInInteger(value int64, target *PrimitiveType) bool {
	if !target.IsInteger() {
		return false
	}
	w := bitWidth[target.Kind]
	if target.IsUnsigned() {
		if value < 0 {
			return false
		}
		if w >= 64 {
			return true
		}
		return value < (int64(1) << w)
	}
	if w >= 64 {
		return true
	}
	max := int64(1)<<(w-1) - 1
	min := -(int64(1) << (w - 1))
	return value >= min && value <= max
}

// AssignableFrom implements spec.md §4.3's assignability relation. literal,
// if non-nil, is the source integer literal value used for the
// fits-in-target rule.
func AssignableFrom(target, source Type, literal *int64) bool {
	if Equal(target, source) {
		return true
	}
	if _, ok := target.(*AnyType); ok {
		return true
	}
	// pointer rules
	if tp, ok := target.(*PointerType); ok {
		if _, ok := target.(*GenericPointerType); ok {
			return true
		}
		if sp, ok := source.(*PointerType); ok {
			return Equal(tp.Elem, sp.Elem) || isSubtypeRecord(tp.Elem, sp.Elem) || isSubtypeRecord(sp.Elem, tp.Elem)
		}
		if _, ok := source.(*NilType); ok {
			return true
		}
		return false
	}
	if _, ok := target.(*GenericPointerType); ok {
		_, ok := source.(*PointerType)
		return ok
	}
	// integer literal fits
	if lit := literal; lit != nil {
		if tp, ok := target.(*PrimitiveType); ok && tp.IsInteger() {
			if FitsInInteger(*lit, tp) {
				return true
			}
		}
	}
	// record literal: each field individually assignable
	if tr, ok := target.(*RecordType); ok {
		if sr, ok := source.(*RecordType); ok && sr.Name == "" {
			// anonymous record literal: fields must align by name and be
			// individually assignable.
			if len(sr.Fields) != len(tr.Fields) {
				return false
			}
			for _, tf := range tr.Fields {
				sf, ok := sr.FieldByName(tf.Name)
				if !ok || !AssignableFrom(tf.Type, sf.Type, nil) {
					return false
				}
			}
			return true
		}
	}
	// niltype -> optional(U)
	if _, ok := source.(*NilType); ok {
		if _, ok := target.(*OptionalType); ok {
			return true
		}
	}
	// __convert metafield
	if tr, ok := targetMetafields(target); ok && tr.Convert != nil {
		if len(tr.Convert.ArgTypes) == 1 && AssignableFrom(tr.Convert.ArgTypes[0], source, literal) {
			return true
		}
	}
	return false
}

func targetMetafields(t Type) (Metafields, bool) {
	switch tt := t.(type) {
	case *RecordType:
		return tt.Meta, true
	case *UnionType:
		return tt.Meta, true
	}
	return Metafields{}, false
}

// isSubtypeRecord is a nominal subtype relation between pointee record
// types (embeds-first-field style subtyping): a is a subtype of b when a's
// first field has type b. Records with no fields are never subtypes.
func isSubtypeRecord(a, b Type) bool {
	ar, aok := a.(*RecordType)
	br, bok := b.(*RecordType)
	if !aok || !bok || len(ar.Fields) == 0 {
		return false
	}
	return Equal(ar.Fields[0].Type, br)
}

// DescribeMismatch renders a human-readable explanation for a failed
// assignability check, used by diagnostics.
func DescribeMismatch(target, source Type) string {
	return fmt.Sprintf("cannot assign %s to %s", source.String(), target.String())
}
