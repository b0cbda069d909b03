package types

import "testing"

func TestRegistryInterns(t *testing.T) {
	reg := NewRegistry()
	r1 := NewRecordType("Point")
	r1.CodenameV = "record_Point"
	r2 := &RecordType{Name: "Point", CodenameV: "record_Point"}

	got1 := reg.Intern(r1)
	got2 := reg.Intern(r2)
	if got1 != got2 {
		t.Fatal("expected interning to return the same instance for the same codename")
	}
}

func TestEqualIdentityForRecords(t *testing.T) {
	a := &RecordType{Name: "Point", CodenameV: "record_Point_1"}
	b := &RecordType{Name: "Point", CodenameV: "record_Point_2"}
	if Equal(a, b) {
		t.Fatal("records with different codenames must not be equal even with the same shape")
	}
	c := &RecordType{Name: "Point", CodenameV: "record_Point_1"}
	if !Equal(a, c) {
		t.Fatal("records with the same codename must be equal")
	}
}

func TestEqualStructuralForPrimitivesAndArrays(t *testing.T) {
	a := Array(Primitive(I32), 4)
	b := Array(Primitive(I32), 4)
	if !Equal(a, b) {
		t.Fatal("arrays of equal element type and length must be structurally equal")
	}
	c := Array(Primitive(I32), 5)
	if Equal(a, c) {
		t.Fatal("arrays of different length must not be equal")
	}
}

func TestAssignableFromAny(t *testing.T) {
	if !AssignableFrom(&AnyType{}, Primitive(I32), nil) {
		t.Fatal("any must accept everything")
	}
}

func TestAssignableFromIntegerLiteralFits(t *testing.T) {
	v := int64(200)
	if AssignableFrom(Primitive(I8), Primitive(I32), &v) {
		t.Fatal("200 does not fit in int8")
	}
	if !AssignableFrom(Primitive(I32), Primitive(I32), &v) {
		t.Fatal("same type must always be assignable")
	}
	v2 := int64(100)
	if !AssignableFrom(Primitive(I8), Primitive(I32), &v2) {
		t.Fatal("100 fits in int8 and should be assignable via the literal-fits rule")
	}
}

func TestAssignableNilToOptional(t *testing.T) {
	opt := Optional(Primitive(I32))
	if !AssignableFrom(opt, &NilType{}, nil) {
		t.Fatal("niltype must be assignable to optional(U)")
	}
}

func TestBinaryArithPromotesToWiderInteger(t *testing.T) {
	res, err := BinaryArithResult("+", Primitive(I8), Primitive(I32))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.(*PrimitiveType).Kind != I32 {
		t.Fatalf("expected promotion to int32, got %s", res)
	}
}

func TestBinaryArithMixedIntFloatYieldsFloat(t *testing.T) {
	res, err := BinaryArithResult("+", Primitive(I32), Primitive(F32))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.(*PrimitiveType).IsFloat() {
		t.Fatalf("expected float result, got %s", res)
	}
}

func TestBinaryArithDivisionAlwaysFloat(t *testing.T) {
	res, err := BinaryArithResult("/", Primitive(I32), Primitive(I32))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.(*PrimitiveType).Kind != F64 {
		t.Fatalf("expected float64 for '/', got %s", res)
	}
}

func TestBinaryArithIntegerDivisionStaysInteger(t *testing.T) {
	res, err := BinaryArithResult("//", Primitive(I32), Primitive(I32))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.(*PrimitiveType).Kind != I32 {
		t.Fatalf("expected int32 for '//' on two ints, got %s", res)
	}
}

func TestBinaryArithBitwiseRequiresInteger(t *testing.T) {
	if _, err := BinaryArithResult("&", Primitive(F32), Primitive(I32)); err == nil {
		t.Fatal("expected error for bitwise op with a float operand")
	}
}

func TestBinaryArithShiftYieldsLeftOperandType(t *testing.T) {
	res, err := BinaryArithResult("<<", Primitive(I8), Primitive(I32))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.(*PrimitiveType).Kind != I8 {
		t.Fatalf("expected shift to yield left operand's type int8, got %s", res)
	}
}

func TestPromoteIntUnsignedOnlyWhenBothUnsigned(t *testing.T) {
	res := promoteInt(Primitive(U8), Primitive(I8))
	if res.IsUnsigned() {
		t.Fatal("mixed signed/unsigned of equal width must prefer signed")
	}
}

func TestGenericMaterializeCachesAndDetectsCycle(t *testing.T) {
	g := NewGenericType("List", []string{"T"})
	calls := 0
	build := func() (Type, error) {
		calls++
		return Array(Primitive(I32), -1), nil
	}
	t1, err := g.Materialize("int32", build)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t2, err := g.Materialize("int32", build)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if t1 != t2 || calls != 1 {
		t.Fatalf("expected materialization to be cached, calls=%d", calls)
	}

	var cycleErr error
	_, err = g.Materialize("self", func() (Type, error) {
		_, cycleErr = g.Materialize("self", build)
		return nil, cycleErr
	})
	if cycleErr == nil {
		t.Fatal("expected a generic cycle error")
	}
	if _, ok := cycleErr.(*ErrGenericCycle); !ok {
		t.Fatalf("expected ErrGenericCycle, got %T", cycleErr)
	}
}

func TestPolyFunctionLookupFirstRegisteredWins(t *testing.T) {
	pf := NewPolyFunctionType("f")
	e1 := &Eval{Key: "int32"}
	e2 := &Eval{Key: "int32"}
	pf.AddEval(e1)
	pf.AddEval(e2)
	got, ok := pf.Lookup("int32")
	if !ok || got != e1 {
		t.Fatal("expected lookup to return the first-registered eval")
	}
}
