package standardize

import (
	"testing"

	"optex/internal/linearize"
	"optex/internal/model"
	"optex/internal/parser"
	"optex/internal/transform"
)

func mustStandardize(t *testing.T, src string) *model.StandardLinearModel {
	t.Helper()
	pm, err := parser.Parse(src, "t.optex")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	m, err := transform.Transform(pm)
	if err != nil {
		t.Fatalf("transform error: %v", err)
	}
	lm, err := linearize.Linearize(m)
	if err != nil {
		t.Fatalf("linearize error: %v", err)
	}
	slm, err := Standardize(lm)
	if err != nil {
		t.Fatalf("standardize error: %v", err)
	}
	return slm
}

func idx(slm *model.StandardLinearModel, name string) int {
	for i, n := range slm.Variables {
		if n == name {
			return i
		}
	}
	return -1
}

func TestStandardizeLessOrEqualGetsSlack(t *testing.T) {
	slm := mustStandardize(t, "min x\ns.t.\nx <= 10\ndefine\nx as NonNegativeReal\n")
	si := idx(slm, "$su_0")
	if si < 0 {
		t.Fatalf("expected $su_0 in %v", slm.Variables)
	}
	c := slm.Constraints[0]
	if c.Comparison != model.CmpEqual || c.Coeffs[si] != 1 || c.Rhs != 10 {
		t.Fatalf("unexpected row %+v", c)
	}
}

func TestStandardizeGreaterOrEqualGetsSurplus(t *testing.T) {
	slm := mustStandardize(t, "min x\ns.t.\nx >= 5\ndefine\nx as NonNegativeReal\n")
	si := idx(slm, "$sl_0")
	if si < 0 {
		t.Fatalf("expected $sl_0 in %v", slm.Variables)
	}
	c := slm.Constraints[0]
	if c.Coeffs[si] != -1 || c.Rhs != 5 {
		t.Fatalf("unexpected row %+v", c)
	}
}

func TestStandardizeNegativeRhsFlipsRow(t *testing.T) {
	// x - 10 >= 0  =>  x >= 10 after linearization's constant move; force a
	// negative rhs by writing the constraint the other way around.
	slm := mustStandardize(t, "min x\ns.t.\n-x <= -5\ndefine\nx as NonNegativeReal\n")
	c := slm.Constraints[0]
	if c.Rhs < 0 {
		t.Fatalf("expected rhs to be flipped nonnegative, got %g", c.Rhs)
	}
}

func TestStandardizeMaxFlipsObjective(t *testing.T) {
	slm := mustStandardize(t, "max 2x\ns.t.\nx <= 10\ndefine\nx as NonNegativeReal\n")
	if !slm.FlipObjective {
		t.Fatal("expected FlipObjective true for a max problem")
	}
	xi := idx(slm, "x")
	if slm.ObjectiveCoeffs[xi] != -2 {
		t.Fatalf("expected negated objective coefficient, got %g", slm.ObjectiveCoeffs[xi])
	}
}

func TestStandardizeStrictComparisonRejected(t *testing.T) {
	pm, err := parser.Parse("min x\ns.t.\nx < 10\ndefine\nx as NonNegativeReal\n", "t.optex")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	m, err := transform.Transform(pm)
	if err != nil {
		t.Fatalf("transform error: %v", err)
	}
	lm, err := linearize.Linearize(m)
	if err != nil {
		t.Fatalf("linearize error: %v", err)
	}
	if _, err := Standardize(lm); err == nil {
		t.Fatal("expected strict comparison to be rejected")
	}
}
