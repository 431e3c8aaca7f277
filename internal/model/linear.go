package model

import (
	"fmt"
	"sort"
	"strings"
)

// LinearConstraint is one row after linearization: a sparse coefficient map
// materialized into a dense vector (padded to len(Variables) by the owning
// LinearModel), a comparison, and a right-hand side.
type LinearConstraint struct {
	Coeffs     []float64
	Comparison Comparison
	Rhs        float64
}

// LinearModel is the linearizer's output: every constraint is now
// Σ cᵢ·xᵢ ⋈ rhs, with no nested multiplication and no min/max/abs. Every
// constraint's Coeffs is padded to len(Variables).
type LinearModel struct {
	ObjectiveCoeffs []float64
	ObjectiveKind   ObjectiveKind
	ObjectiveOffset float64
	Constraints     []LinearConstraint
	Variables       []string // deterministic sorted order
	Domains         map[string]*DomainVariable
}

func (lm *LinearModel) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("vars=%v\n", lm.Variables))
	sb.WriteString(fmt.Sprintf("objective(%v): %v + %g\n", lm.ObjectiveKind, lm.ObjectiveCoeffs, lm.ObjectiveOffset))
	cs := make([]LinearConstraint, len(lm.Constraints))
	copy(cs, lm.Constraints)
	for _, c := range cs {
		sb.WriteString(fmt.Sprintf("%v %s %g\n", c.Coeffs, c.Comparison.String(), c.Rhs))
	}
	return sb.String()
}

// StandardLinearModel is a LinearModel in equality-form standard form: every
// comparison is equality, every rhs is nonnegative, and the objective is
// always a minimization (FlipObjective records whether the caller must
// negate the optimum to recover the original objective value).
type StandardLinearModel struct {
	ObjectiveCoeffs []float64
	ObjectiveOffset float64
	FlipObjective   bool
	Constraints     []LinearConstraint // Comparison is always CmpEqual
	Variables       []string
	Domains         map[string]*DomainVariable
}

// SortedVariableNames returns a sorted copy of names, useful where a caller
// needs to guarantee it isn't aliasing the model's own slice.
func SortedVariableNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	return out
}

// Tableau is the dense canonical simplex tableau: c, A, b with the current
// basis recorded by column index per row.
type Tableau struct {
	C               []float64   // reduced-cost objective row, length len(Variables)
	A               [][]float64 // len(Constraints) x len(Variables)
	B               []float64   // length len(Constraints), always >= 0
	Basis           []int       // len(Constraints); Basis[i] is the variable column basic in row i
	ObjectiveCoeffs []float64   // original (unreduced) standardized objective, for value extraction
	ValueOffset     float64
	Variables       []string
	FlipObjective   bool
}

// Value evaluates the original objective at the tableau's current basic
// feasible solution: nonbasic variables are zero, basic variables take B.
func (t *Tableau) Value() float64 {
	v := 0.0
	for i, j := range t.Basis {
		v += t.ObjectiveCoeffs[j] * t.B[i]
	}
	return v
}

// Assignment returns the current value of every variable, basic or not.
func (t *Tableau) Assignment() map[string]float64 {
	out := make(map[string]float64, len(t.Variables))
	for _, name := range t.Variables {
		out[name] = 0
	}
	for i, j := range t.Basis {
		out[t.Variables[j]] = t.B[i]
	}
	return out
}
