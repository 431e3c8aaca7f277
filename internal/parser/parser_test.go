package parser

import (
	"testing"

	"optex/internal/il"
)

func mustParse(t *testing.T, src string) *il.PreModel {
	t.Helper()
	m, err := Parse(src, "test.optex")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return m
}

func TestParseSimpleObjective(t *testing.T) {
	src := "min 2x + 3y\ns.t.\nx + y <= 10\n"
	m := mustParse(t, src)
	if m.Objective.Kind != il.ObjMin {
		t.Fatalf("expected min objective")
	}
	bin, ok := m.Objective.Exp.(*il.BinaryOperation)
	if !ok || bin.Op != il.OpAdd {
		t.Fatalf("expected top-level add, got %#v", m.Objective.Exp)
	}
	if len(m.Constraints) != 1 {
		t.Fatalf("expected 1 constraint, got %d", len(m.Constraints))
	}
}

func TestImplicitMultiplication(t *testing.T) {
	m := mustParse(t, "min 2x\ns.t.\nx <= 1\n")
	bin, ok := m.Objective.Exp.(*il.BinaryOperation)
	if !ok || bin.Op != il.OpMul {
		t.Fatalf("expected implicit multiplication, got %#v", m.Objective.Exp)
	}
	if _, ok := bin.Lhs.(*il.PrimitiveLit); !ok {
		t.Fatalf("expected numeric lhs")
	}
	if v, ok := bin.Rhs.(*il.Variable); !ok || v.Name != "x" {
		t.Fatalf("expected variable rhs, got %#v", bin.Rhs)
	}
}

func TestParseCompoundVariableAndFor(t *testing.T) {
	src := "min sum(i in 1) { x_{i} }\ns.t.\nx_1 <= 1 for i in 1\n"
	m := mustParse(t, src)
	scoped, ok := m.Objective.Exp.(*il.BlockScopedFunction)
	if !ok || scoped.FnKind != il.BlockSum {
		t.Fatalf("expected scoped sum, got %#v", m.Objective.Exp)
	}
	cv, ok := scoped.Body.(*il.CompoundVariable)
	if !ok || cv.Name != "x" {
		t.Fatalf("expected compound variable body, got %#v", scoped.Body)
	}
	if len(m.Constraints[0].Iters) != 1 {
		t.Fatalf("expected constraint-level for clause")
	}
}

func TestParseWhereAndDefine(t *testing.T) {
	src := "solve\ns.t.\nx <= k\nwhere\nlet k = 5\ndefine\nx as NonNegativeReal\n"
	m := mustParse(t, src)
	if m.Objective.Kind != il.ObjSatisfy {
		t.Fatalf("expected satisfy objective")
	}
	if len(m.Constants) != 1 || m.Constants[0].Name != "k" {
		t.Fatalf("expected constant k, got %#v", m.Constants)
	}
	if len(m.Domains) != 1 || m.Domains[0].Type.Kind != il.VarNonNegativeReal {
		t.Fatalf("expected NonNegativeReal domain, got %#v", m.Domains)
	}
}

func TestParseAbsAndParens(t *testing.T) {
	m := mustParse(t, "min |x - y| + (x + 1)\ns.t.\nx <= 1\n")
	bin, ok := m.Objective.Exp.(*il.BinaryOperation)
	if !ok || bin.Op != il.OpAdd {
		t.Fatalf("expected add at top level")
	}
	if _, ok := bin.Lhs.(*il.Abs); !ok {
		t.Fatalf("expected Abs on lhs, got %#v", bin.Lhs)
	}
}

func TestParseNamedConstraint(t *testing.T) {
	src := "min x\ns.t.\ncap: x <= 10\n"
	m := mustParse(t, src)
	if m.Constraints[0].Name == nil {
		t.Fatalf("expected a named constraint")
	}
}
