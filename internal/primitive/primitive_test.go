package primitive

import "testing"

func TestApplyBinaryNumericLattice(t *testing.T) {
	cases := []struct {
		name     string
		lhs, rhs Primitive
		op       BinOp
		want     Primitive
	}{
		{"pos+pos=pos", PositiveInteger(1), PositiveInteger(2), OpAdd, PositiveInteger(3)},
		{"pos+int=int", PositiveInteger(1), Integer(-2), OpAdd, Integer(-1)},
		{"int+number=number", Integer(1), Number(0.5), OpAdd, Number(1.5)},
		{"div always number", PositiveInteger(4), PositiveInteger(2), OpDiv, Number(2)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ApplyBinary(c.op, c.lhs, c.rhs)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Kind().Tag != c.want.Kind().Tag {
				t.Fatalf("kind mismatch: got %s want %s", got.Kind(), c.want.Kind())
			}
			gv, _ := AsNumber(got)
			wv, _ := AsNumber(c.want)
			if gv != wv {
				t.Fatalf("value mismatch: got %v want %v", gv, wv)
			}
		})
	}
}

func TestApplyBinaryUndefinedFails(t *testing.T) {
	_, err := ApplyBinary(OpAdd, Undefined{}, Number(1))
	if err == nil {
		t.Fatal("expected error using Undefined operand")
	}
}

func TestApplyBinaryStringConcat(t *testing.T) {
	got, err := ApplyBinary(OpAdd, String("a"), String("b"))
	if err != nil {
		t.Fatal(err)
	}
	if got.(String) != "ab" {
		t.Fatalf("got %v", got)
	}
}

func TestApplyBinaryIncompatible(t *testing.T) {
	if _, err := ApplyBinary(OpAdd, String("a"), Number(1)); err == nil {
		t.Fatal("expected error")
	}
	if _, err := ApplyBinary(OpMul, String("a"), String("b")); err == nil {
		t.Fatal("expected error")
	}
}

func TestSpreadEdge(t *testing.T) {
	w := 2.5
	e := NewGraphEdge("a", "b", &w)
	vs, err := Spread(e)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 3 || vs[0] != String("a") || vs[1] != Number(2.5) || vs[2] != String("b") {
		t.Fatalf("unexpected spread: %v", vs)
	}
}

func TestSpreadEdgeDefaultWeight(t *testing.T) {
	e := NewGraphEdge("a", "b", nil)
	vs, err := Spread(e)
	if err != nil {
		t.Fatal(err)
	}
	if vs[1] != Number(1) {
		t.Fatalf("expected default weight 1, got %v", vs[1])
	}
}

func TestSpreadUnspreadable(t *testing.T) {
	if _, err := Spread(Number(1)); err == nil {
		t.Fatal("expected error")
	}
}

func TestFlattenPrimitiveArrayHomogeneous(t *testing.T) {
	it := FlattenPrimitiveArray([]Primitive{Number(1), Number(2), Number(3)})
	if it.Anys {
		t.Fatal("expected homogeneous iterable")
	}
	if it.ElemKind.Tag != KindNumber {
		t.Fatalf("got %s", it.ElemKind)
	}
}

func TestFlattenPrimitiveArrayMixed(t *testing.T) {
	it := FlattenPrimitiveArray([]Primitive{Number(1), String("x")})
	if !it.Anys {
		t.Fatal("expected Anys fallback")
	}
}

func TestReadNested(t *testing.T) {
	inner := Iterable{ElemKind: Simple(KindNumber), Values: []Primitive{Number(10), Number(20)}}
	outer := Iterable{ElemKind: inner.Kind(), Values: []Primitive{inner}}
	got, err := Read(outer, []int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if got != Number(20) {
		t.Fatalf("got %v", got)
	}
}

func TestReadOutOfBounds(t *testing.T) {
	it := Iterable{Values: []Primitive{Number(1)}}
	if _, err := Read(it, []int{5}); err == nil {
		t.Fatal("expected out of bounds error")
	}
}

func TestGraphNeighborEdges(t *testing.T) {
	e1 := NewGraphEdge("a", "b", nil)
	w := 3.0
	e2 := NewGraphEdge("a", "c", &w)
	node := NewGraphNode("a", []GraphEdge{e1, e2})
	g := NewGraph([]GraphNode{node})
	edges, err := g.NeighborEdges("a")
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}
	if _, err := g.NeighborEdges("missing"); err == nil {
		t.Fatal("expected error for missing node")
	}
}
