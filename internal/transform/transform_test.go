package transform

import (
	"testing"

	"optex/internal/errors"
	"optex/internal/il"
	"optex/internal/model"
	"optex/internal/parser"
	"optex/internal/primitive"
)

func mustTransform(t *testing.T, src string) *model.Model {
	t.Helper()
	pm, err := parser.Parse(src, "t.optex")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	m, err := Transform(pm)
	if err != nil {
		t.Fatalf("transform error: %v", err)
	}
	return m
}

func TestImplicitMultiplicationEquivalence(t *testing.T) {
	a := mustTransform(t, "min 2x\ns.t.\nx <= 1\ndefine\nx as NonNegativeReal\n")
	b := mustTransform(t, "min 2*x\ns.t.\nx <= 1\ndefine\nx as NonNegativeReal\n")
	c := mustTransform(t, "min (2)(x)\ns.t.\nx <= 1\ndefine\nx as NonNegativeReal\n")
	if a.Objective.Exp.String() != b.Objective.Exp.String() || b.Objective.Exp.String() != c.Objective.Exp.String() {
		t.Fatalf("expected equivalent objectives, got %q / %q / %q", a.Objective.Exp, b.Objective.Exp, c.Objective.Exp)
	}
}

func TestCompoundVariableFlattening(t *testing.T) {
	src := "min x_{1+2}_{true}\ns.t.\nx_{1+2}_{true} <= 1\ndefine\nx_{1+2}_{true} as NonNegativeReal\n"
	m := mustTransform(t, src)
	if _, ok := m.Domains["x_3_T"]; !ok {
		t.Fatalf("expected flattened name x_3_T in domains, got %v", m.Order)
	}
}

func TestCompoundVariableFlatteningWithGraphNode(t *testing.T) {
	ctx := NewContext()
	ctx.define("A", primitive.NewGraphNode("a", nil))
	name, err := ctx.flattenName("x", []il.PreExp{
		il.NewBinaryOperation(errors.Span{}, il.OpAdd, il.NewPrimitiveLit(errors.Span{}, il.LitNumber(1)), il.NewPrimitiveLit(errors.Span{}, il.LitNumber(2))),
		il.NewPrimitiveLit(errors.Span{}, il.LitBool(true)),
		il.NewVariable(errors.Span{}, "A"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if name != "x_3_T_a" {
		t.Fatalf("expected x_3_T_a, got %q", name)
	}
}

func TestConstraintAutoNaming(t *testing.T) {
	m := mustTransform(t, "min x\ns.t.\nx <= 1\nx >= 0\ndefine\nx as NonNegativeReal\n")
	if m.Constraints[0].Name != "_c0" || m.Constraints[1].Name != "_c1" {
		t.Fatalf("expected auto-generated constraint names, got %q %q", m.Constraints[0].Name, m.Constraints[1].Name)
	}
}

func TestNamedConstraintOverridesAutoName(t *testing.T) {
	m := mustTransform(t, "min x\ns.t.\ncap: x <= 1\ndefine\nx as NonNegativeReal\n")
	if m.Constraints[0].Name != "cap" {
		t.Fatalf("expected name 'cap', got %q", m.Constraints[0].Name)
	}
}

func TestIterationOrderSumNested(t *testing.T) {
	src := "min sum(i in [1,2], j in [10,20]) { i + j }\ns.t.\nx <= 1\ndefine\nx as NonNegativeReal\n"
	m := mustTransform(t, src)
	// (1+10)+(1+20)+(2+10)+(2+20) = 11+21+12+22 = 66, folded to a single number.
	if m.Objective.Exp.String() != "66" {
		t.Fatalf("expected folded sum 66, got %s", m.Objective.Exp)
	}
}

func TestDistributiveFlattening(t *testing.T) {
	m := mustTransform(t, "min (x + 2) * 3\ns.t.\nx <= 1\ndefine\nx as NonNegativeReal\n")
	// (x+2)*3 -> x*3 + 2*3 -> (x*3 + 6)
	want := "((x * 3) + 6)"
	if m.Objective.Exp.String() != want {
		t.Fatalf("expected %q, got %q", want, m.Objective.Exp.String())
	}
}

func TestGroundModelCompleteness(t *testing.T) {
	m := mustTransform(t, "min x + y\ns.t.\nx + y <= 10\ndefine\nx, y as NonNegativeReal\n")
	for _, name := range m.Order {
		dv := m.Domains[name]
		if dv.UsageCount == 0 {
			t.Fatalf("expected %q to be used", name)
		}
	}
}
