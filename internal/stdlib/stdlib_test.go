package stdlib

import (
	"testing"

	"optex/internal/primitive"
)

func TestLen(t *testing.T) {
	fn, ok := Std().Lookup("len")
	if !ok {
		t.Fatal("len not registered")
	}
	it := primitive.FlattenPrimitiveArray([]primitive.Primitive{primitive.Number(1), primitive.Number(2)})
	got, err := fn.Call([]primitive.Primitive{it})
	if err != nil {
		t.Fatal(err)
	}
	if got != primitive.PositiveInteger(2) {
		t.Fatalf("got %v", got)
	}
}

func TestRange(t *testing.T) {
	fn, _ := Std().Lookup("range")
	got, err := fn.Call([]primitive.Primitive{primitive.Integer(3)})
	if err != nil {
		t.Fatal(err)
	}
	it := got.(primitive.Iterable)
	if it.Len() != 3 || it.Values[0] != primitive.Integer(0) {
		t.Fatalf("got %v", it)
	}
}

func TestEnumerate(t *testing.T) {
	fn, _ := Std().Lookup("enumerate")
	it := primitive.FlattenPrimitiveArray([]primitive.Primitive{primitive.String("a"), primitive.String("b")})
	got, err := fn.Call([]primitive.Primitive{it})
	if err != nil {
		t.Fatal(err)
	}
	out := got.(primitive.Iterable)
	pair := out.Values[1].(primitive.Tuple)
	if pair[0] != primitive.PositiveInteger(1) || pair[1] != primitive.String("b") {
		t.Fatalf("got %v", pair)
	}
}

func TestZipShortestLength(t *testing.T) {
	fn, _ := Std().Lookup("zip")
	a := primitive.FlattenPrimitiveArray([]primitive.Primitive{primitive.Number(1), primitive.Number(2), primitive.Number(3)})
	b := primitive.FlattenPrimitiveArray([]primitive.Primitive{primitive.String("x"), primitive.String("y")})
	got, err := fn.Call([]primitive.Primitive{a, b})
	if err != nil {
		t.Fatal(err)
	}
	out := got.(primitive.Iterable)
	if out.Len() != 2 {
		t.Fatalf("expected zip truncated to shortest input, got len %d", out.Len())
	}
}

func TestDifferenceUnionIntersection(t *testing.T) {
	a := primitive.FlattenPrimitiveArray([]primitive.Primitive{primitive.Number(1), primitive.Number(2), primitive.Number(3)})
	b := primitive.FlattenPrimitiveArray([]primitive.Primitive{primitive.Number(2), primitive.Number(3), primitive.Number(4)})

	diff, _ := Std().Lookup("difference")
	d, err := diff.Call([]primitive.Primitive{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if d.(primitive.Iterable).Len() != 1 {
		t.Fatalf("expected difference of len 1, got %v", d)
	}

	inter, _ := Std().Lookup("intersection")
	i, err := inter.Call([]primitive.Primitive{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if i.(primitive.Iterable).Len() != 2 {
		t.Fatalf("expected intersection of len 2, got %v", i)
	}

	un, _ := Std().Lookup("union")
	u, err := un.Call([]primitive.Primitive{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if u.(primitive.Iterable).Len() != 4 {
		t.Fatalf("expected union of len 4, got %v", u)
	}
}

func TestNeighEdgesUnknownNode(t *testing.T) {
	fn, _ := Std().Lookup("neigh_edges")
	g := primitive.NewGraph(nil)
	if _, err := fn.Call([]primitive.Primitive{g, primitive.String("missing")}); err == nil {
		t.Fatal("expected error for unknown node")
	}
}

func TestIsReserved(t *testing.T) {
	if !Std().IsReserved("len") {
		t.Fatal("expected len to be reserved")
	}
	if Std().IsReserved("not_a_builtin") {
		t.Fatal("unexpected reservation")
	}
}
