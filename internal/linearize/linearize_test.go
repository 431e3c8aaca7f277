package linearize

import (
	"testing"

	"optex/internal/model"
	"optex/internal/parser"
	"optex/internal/transform"
)

func mustLinearize(t *testing.T, src string) *model.LinearModel {
	t.Helper()
	pm, err := parser.Parse(src, "t.optex")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	m, err := transform.Transform(pm)
	if err != nil {
		t.Fatalf("transform error: %v", err)
	}
	lm, err := Linearize(m)
	if err != nil {
		t.Fatalf("linearize error: %v", err)
	}
	return lm
}

func idx(lm *model.LinearModel, name string) int {
	for i, n := range lm.Variables {
		if n == name {
			return i
		}
	}
	return -1
}

func TestLinearizeSimpleObjectiveAndConstraint(t *testing.T) {
	lm := mustLinearize(t, "min 2x + 3y\ns.t.\nx + y <= 10\ndefine\nx, y as NonNegativeReal\n")
	xi, yi := idx(lm, "x"), idx(lm, "y")
	if xi < 0 || yi < 0 {
		t.Fatalf("expected x and y in %v", lm.Variables)
	}
	if lm.ObjectiveCoeffs[xi] != 2 || lm.ObjectiveCoeffs[yi] != 3 {
		t.Fatalf("unexpected objective coeffs %v", lm.ObjectiveCoeffs)
	}
	if len(lm.Constraints) != 1 {
		t.Fatalf("expected 1 constraint, got %d", len(lm.Constraints))
	}
	c := lm.Constraints[0]
	if c.Coeffs[xi] != 1 || c.Coeffs[yi] != 1 || c.Rhs != 10 || c.Comparison != model.CmpLessOrEqual {
		t.Fatalf("unexpected constraint %+v", c)
	}
}

func TestLinearizeDistributedConstant(t *testing.T) {
	// (x + 2) * 3 <= 9  ->  3x <= 3
	lm := mustLinearize(t, "min x\ns.t.\n(x + 2) * 3 <= 9\ndefine\nx as NonNegativeReal\n")
	xi := idx(lm, "x")
	c := lm.Constraints[0]
	if c.Coeffs[xi] != 3 || c.Rhs != 3 {
		t.Fatalf("expected 3x <= 3, got coeffs=%v rhs=%v", c.Coeffs, c.Rhs)
	}
}

func TestLinearizeNonLinearProductRejected(t *testing.T) {
	pm, err := parser.Parse("min x\ns.t.\nx * y <= 1\ndefine\nx, y as NonNegativeReal\n", "t.optex")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	m, err := transform.Transform(pm)
	if err != nil {
		t.Fatalf("transform error: %v", err)
	}
	if _, err := Linearize(m); err == nil {
		t.Fatal("expected non-linear expression error")
	}
}

func TestLinearizeMinIntroducesAuxAndConstraints(t *testing.T) {
	lm := mustLinearize(t, "min x\ns.t.\nmin{x, y} <= 5\ndefine\nx, y as NonNegativeReal\n")
	auxIdx := idx(lm, "$min_0")
	if auxIdx < 0 {
		t.Fatalf("expected $min_0 aux variable in %v", lm.Variables)
	}
	if _, ok := lm.Domains["$min_0"]; !ok {
		t.Fatalf("expected $min_0 declared in domains")
	}
	// original row plus one def constraint per child (2 children).
	if len(lm.Constraints) != 3 {
		t.Fatalf("expected 3 constraints (1 original + 2 aux defs), got %d: %+v", len(lm.Constraints), lm.Constraints)
	}
}

func TestLinearizeAbsUnimplemented(t *testing.T) {
	pm, err := parser.Parse("min |x|\ns.t.\nx <= 1\ndefine\nx as NonNegativeReal\n", "t.optex")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	m, err := transform.Transform(pm)
	if err != nil {
		t.Fatalf("transform error: %v", err)
	}
	if _, err := Linearize(m); err == nil {
		t.Fatal("expected unimplemented abs error")
	}
}
