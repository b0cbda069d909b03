package types

import "fmt"

// BinaryArithResult implements spec.md §4.3's numeric-arithmetic rule:
//
//   - two integers yield the smaller common integer that contains both
//     (signed wins ties, only becoming unsigned when both operands are
//     unsigned);
//   - mixed integer/float yields the float;
//   - shift operators yield the left operand's type;
//   - comparisons yield boolean;
//   - bitwise operators require integer operands;
//   - `/` promotes to the default float; `//` and `%` stay integer when
//     both operands are integer.
//
// Grounded on the teacher's TypeUtils.UnifyTypes numeric-family handling
// (internal/transpiler/types.go and analysis/unify.go's "number" family),
// generalized from a single "number" constant to the full signed/unsigned/
// float width lattice spec.md names.
func BinaryArithResult(op string, left, right Type) (Type, error) {
	switch op {
	case "<", ">", "<=", ">=", "==", "!=":
		return Primitive(Bool), nil
	case "and", "or":
		if !isBool(left) || !isBool(right) {
			return nil, fmt.Errorf("%s expects bool arguments", op)
		}
		return Primitive(Bool), nil
	case "<<", ">>":
		lp, ok := left.(*PrimitiveType)
		if !ok || !lp.IsInteger() {
			return nil, fmt.Errorf("shift expects an integer left operand")
		}
		rp, ok := right.(*PrimitiveType)
		if !ok || !rp.IsInteger() {
			return nil, fmt.Errorf("shift expects an integer right operand")
		}
		return left, nil
	case "&", "|", "~", "<<|", "|>>":
		lp, lok := left.(*PrimitiveType)
		rp, rok := right.(*PrimitiveType)
		if !lok || !rok || !lp.IsInteger() || !rp.IsInteger() {
			return nil, fmt.Errorf("%s expects integer operands", op)
		}
		return promoteInt(lp, rp), nil
	case "/":
		if !isNumeric(left) || !isNumeric(right) {
			return nil, fmt.Errorf("%s expects number arguments", op)
		}
		return Primitive(F64), nil
	case "//", "%":
		lp, lok := left.(*PrimitiveType)
		rp, rok := right.(*PrimitiveType)
		if lok && rok && lp.IsInteger() && rp.IsInteger() {
			return promoteInt(lp, rp), nil
		}
		if isNumeric(left) && isNumeric(right) {
			return Primitive(F64), nil
		}
		return nil, fmt.Errorf("%s expects number arguments", op)
	case "+", "-", "*", "^":
		if !isNumeric(left) || !isNumeric(right) {
			return nil, fmt.Errorf("%s expects number arguments", op)
		}
		lp, lok := left.(*PrimitiveType)
		rp, rok := right.(*PrimitiveType)
		if lok && rok {
			if lp.IsFloat() || rp.IsFloat() {
				return widerFloat(lp, rp), nil
			}
			return promoteInt(lp, rp), nil
		}
		return Primitive(F64), nil
	default:
		return nil, fmt.Errorf("unknown binary operator %q", op)
	}
}

func isNumeric(t Type) bool {
	p, ok := t.(*PrimitiveType)
	return ok && (p.IsInteger() || p.IsFloat())
}

func isBool(t Type) bool {
	p, ok := t.(*PrimitiveType)
	return ok && p.Kind == Bool
}

func widerFloat(a, b *PrimitiveType) *PrimitiveType {
	order := map[PrimitiveKind]int{F32: 0, F64: 1, FLong: 2}
	af, aok := order[a.Kind]
	bf, bok := order[b.Kind]
	if !aok {
		af = 1 // non-float operand promotes to float64 baseline
	}
	if !bok {
		bf = 1
	}
	if af >= bf {
		if aok {
			return a
		}
		return Primitive(F64)
	}
	if bok {
		return b
	}
	return Primitive(F64)
}

// promoteInt picks "the smaller common integer that contains both" operands
// — i.e. the wider of the two widths, preferring signed on a tie, and only
// choosing unsigned when both operands are unsigned.
func promoteInt(a, b *PrimitiveType) *PrimitiveType {
	aw, bw := bitWidth[a.Kind], bitWidth[b.Kind]
	width := aw
	if bw > width {
		width = bw
	}
	bothUnsigned := a.IsUnsigned() && b.IsUnsigned()
	return primitiveForWidth(width, bothUnsigned)
}

func primitiveForWidth(width int, unsigned bool) *PrimitiveType {
	if unsigned {
		switch {
		case width <= 8:
			return Primitive(U8)
		case width <= 16:
			return Primitive(U16)
		case width <= 32:
			return Primitive(U32)
		default:
			return Primitive(U64)
		}
	}
	switch {
	case width <= 8:
		return Primitive(I8)
	case width <= 16:
		return Primitive(I16)
	case width <= 32:
		return Primitive(I32)
	default:
		return Primitive(I64)
	}
}
