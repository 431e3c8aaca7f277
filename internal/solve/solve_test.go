package solve

import (
	"math"
	"testing"

	"optex/internal/optctx"
	"optex/internal/parser"
	"optex/internal/transform"
)

func mustSolve(t *testing.T, src string) *Solution {
	t.Helper()
	pm, err := parser.Parse(src, "t.optex")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	m, err := transform.Transform(pm)
	if err != nil {
		t.Fatalf("transform error: %v", err)
	}
	ctx := optctx.New(optctx.DefaultConfig())
	sol, err := Solve(ctx, m)
	if err != nil {
		t.Fatalf("solve error: %v", err)
	}
	return sol
}

func value(t *testing.T, sol *Solution, name string) float64 {
	t.Helper()
	v, ok := sol.Value(name)
	if !ok {
		t.Fatalf("no value for %s in %+v", name, sol.Assignments)
	}
	return v
}

func TestSolveSimpleMaximization(t *testing.T) {
	sol := mustSolve(t, "max 2x + 3y\ns.t.\nx + y <= 4\nx <= 2\ndefine\nx, y as NonNegativeReal\n")
	if math.Abs(sol.Objective-12) > 1e-6 {
		t.Fatalf("expected objective 12, got %v", sol.Objective)
	}
	if math.Abs(value(t, sol, "x")-0) > 1e-6 || math.Abs(value(t, sol, "y")-4) > 1e-6 {
		t.Fatalf("expected x=0,y=4, got %+v", sol.Assignments)
	}
}

func TestSolveGreaterOrEqualMinimization(t *testing.T) {
	sol := mustSolve(t, "min x + y\ns.t.\nx + 2y >= 4\n3x + y >= 6\ndefine\nx, y as NonNegativeReal\n")
	if math.Abs(sol.Objective-2.8) > 1e-6 {
		t.Fatalf("expected objective 2.8, got %v", sol.Objective)
	}
}

func TestSolveBooleanDomainBoundedToZeroOrOneRelaxation(t *testing.T) {
	// Without an integer requirement a Boolean still seeds an upper bound of
	// 1, so a pure-LP-shaped request against it never exceeds that bound.
	sol := mustSolve(t, "max x\ns.t.\nx <= 10\ndefine\nx as Boolean\n")
	if math.Abs(sol.Objective-1) > 1e-6 {
		t.Fatalf("expected objective 1, got %v", sol.Objective)
	}
	if math.Abs(value(t, sol, "x")-1) > 1e-6 {
		t.Fatalf("expected x=1, got %+v", sol.Assignments)
	}
}

func TestSolveIntegerRangeBranchesToWholeNumber(t *testing.T) {
	sol := mustSolve(t, "max x\ns.t.\n2x <= 7\ndefine\nx as IntegerRange(0, 10)\n")
	if math.Abs(sol.Objective-3) > 1e-6 {
		t.Fatalf("expected objective 3, got %v", sol.Objective)
	}
	if math.Abs(value(t, sol, "x")-3) > 1e-6 {
		t.Fatalf("expected x=3, got %+v", sol.Assignments)
	}
}

func TestSolveInfeasibleReturnsError(t *testing.T) {
	pm, err := parser.Parse("min x\ns.t.\nx >= 5\nx <= 1\ndefine\nx as NonNegativeReal\n", "t.optex")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	m, err := transform.Transform(pm)
	if err != nil {
		t.Fatalf("transform error: %v", err)
	}
	ctx := optctx.New(optctx.DefaultConfig())
	if _, err := Solve(ctx, m); err == nil {
		t.Fatalf("expected an infeasibility error")
	}
}
