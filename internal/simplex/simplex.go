// Package simplex builds the canonical tableau from a standardized linear
// model and runs the two-phase simplex method to optimality.
package simplex

import (
	"math"

	"optex/internal/errors"
	"optex/internal/model"
)

const (
	DefaultEpsilon       = 1e-9
	DefaultMaxIterations = 10000
)

// Sentinel errors returned by Build/Solve; callers compare against these
// directly (they're always the same *errors.Error value, so == and the
// standard library's errors.Is both work).
var (
	ErrInfeasible     = errors.New(errors.KindSolver, errors.Span{}, "infeasible: no assignment satisfies every constraint")
	ErrUnbounded      = errors.New(errors.KindSolver, errors.Span{}, "unbounded: the objective improves without limit")
	ErrIterationLimit = errors.New(errors.KindSolver, errors.Span{}, "iteration limit reached before reaching optimality")
	ErrInvalidBasis   = errors.New(errors.KindSolver, errors.Span{}, "invalid basis: an artificial variable remained basic after phase one")
)

// Options configures the epsilon tolerance and iteration bound shared by
// tableau construction (phase one) and the main simplex loop.
type Options struct {
	Epsilon       float64
	MaxIterations int
}

func DefaultOptions() Options {
	return Options{Epsilon: DefaultEpsilon, MaxIterations: DefaultMaxIterations}
}

// Build constructs the initial canonical tableau for slm: a direct basis if
// one exists, otherwise the result of a phase-one artificial-variable run.
func Build(slm *model.StandardLinearModel, opts Options) (*model.Tableau, error) {
	m := len(slm.Constraints)
	A := make([][]float64, m)
	b := make([]float64, m)
	for i, c := range slm.Constraints {
		A[i] = append([]float64(nil), c.Coeffs...)
		b[i] = c.Rhs
	}
	c := append([]float64(nil), slm.ObjectiveCoeffs...)

	if basis, ok := directBasis(A, opts.Epsilon); ok {
		canonicalizeObjective(A, b, c, basis, opts.Epsilon)
		return &model.Tableau{
			C: c, A: A, B: b, Basis: basis,
			ObjectiveCoeffs: slm.ObjectiveCoeffs,
			Variables:       slm.Variables,
			FlipObjective:   slm.FlipObjective,
			ValueOffset:     slm.ObjectiveOffset,
		}, nil
	}
	return phaseOne(slm, A, b, c, opts)
}

// directBasis looks for a column per row with exactly one nonzero entry,
// that entry strictly positive — the tableau's free initial basis.
func directBasis(A [][]float64, eps float64) ([]int, bool) {
	m := len(A)
	if m == 0 {
		return nil, true
	}
	n := len(A[0])
	basis := make([]int, m)
	for i := range basis {
		basis[i] = -1
	}
	for j := 0; j < n; j++ {
		row, count := -1, 0
		for i := 0; i < m; i++ {
			if math.Abs(A[i][j]) > eps {
				count++
				row = i
			}
		}
		if count == 1 && A[row][j] > eps && basis[row] == -1 {
			basis[row] = j
		}
	}
	for _, col := range basis {
		if col == -1 {
			return nil, false
		}
	}
	return basis, true
}

// canonicalizeObjective normalizes each basis row by its pivot entry, then
// zeroes the objective row's basis-column entries by subtracting a multiple
// of each basis row — the canonical-tableau invariant.
func canonicalizeObjective(A [][]float64, b, c []float64, basis []int, eps float64) {
	for i, j := range basis {
		pivot := A[i][j]
		if math.Abs(pivot-1) > eps {
			for k := range A[i] {
				A[i][k] /= pivot
			}
			b[i] /= pivot
		}
	}
	for i, j := range basis {
		factor := c[j]
		if math.Abs(factor) > eps {
			for k := range c {
				c[k] -= factor * A[i][k]
			}
		}
	}
}

// phaseOne appends one artificial variable per row, minimizes their sum, and
// on success drops the artificials to resume with the real objective.
func phaseOne(slm *model.StandardLinearModel, A [][]float64, b, origC []float64, opts Options) (*model.Tableau, error) {
	m := len(A)
	n := len(origC)

	aug := make([][]float64, m)
	for i := range A {
		row := make([]float64, n+m)
		copy(row, A[i])
		row[n+i] = 1
		aug[i] = row
	}
	basis := make([]int, m)
	for i := range basis {
		basis[i] = n + i
	}
	phaseC := make([]float64, n+m)
	for i := n; i < n+m; i++ {
		phaseC[i] = 1
	}
	bb := append([]float64(nil), b...)
	canonicalizeObjective(aug, bb, phaseC, basis, opts.Epsilon)

	t := &model.Tableau{C: phaseC, A: aug, B: bb, Basis: basis}
	if err := run(t, opts); err != nil {
		return nil, err
	}

	value := 0.0
	for i, j := range t.Basis {
		if j >= n {
			value += t.B[i]
		}
	}
	if value > opts.Epsilon {
		return nil, ErrInfeasible
	}

	// Any artificial still basic is sitting at zero; try to pivot it out
	// against a real column in its own row before declaring the basis bad.
	for i, j := range t.Basis {
		if j < n {
			continue
		}
		swapped := false
		for k := 0; k < n; k++ {
			if math.Abs(t.A[i][k]) > opts.Epsilon {
				pivot(t, i, k, opts.Epsilon)
				t.Basis[i] = k
				swapped = true
				break
			}
		}
		if !swapped {
			return nil, ErrInvalidBasis
		}
	}

	finalA := make([][]float64, m)
	for i := range t.A {
		finalA[i] = append([]float64(nil), t.A[i][:n]...)
	}
	c2 := append([]float64(nil), origC...)
	canonicalizeObjective(finalA, t.B, c2, t.Basis, opts.Epsilon)

	return &model.Tableau{
		C: c2, A: finalA, B: t.B, Basis: t.Basis,
		ObjectiveCoeffs: slm.ObjectiveCoeffs,
		Variables:       slm.Variables,
		FlipObjective:   slm.FlipObjective,
		ValueOffset:     slm.ObjectiveOffset,
	}, nil
}

// Solve runs the simplex method to optimality on an already-canonical
// tableau, using Bland's rule throughout for anti-cycling.
func Solve(t *model.Tableau, opts Options) error {
	return run(t, opts)
}

func run(t *model.Tableau, opts Options) error {
	for iter := 0; iter < opts.MaxIterations; iter++ {
		enter := -1
		for j, cj := range t.C {
			if cj < -opts.Epsilon {
				enter = j
				break
			}
		}
		if enter == -1 {
			return nil
		}

		leave, ratio := -1, math.Inf(1)
		for i := range t.A {
			a := t.A[i][enter]
			if a > opts.Epsilon {
				r := t.B[i] / a
				if r < ratio-opts.Epsilon || (math.Abs(r-ratio) <= opts.Epsilon && (leave == -1 || t.Basis[i] < t.Basis[leave])) {
					ratio = r
					leave = i
				}
			}
		}
		if leave == -1 {
			return ErrUnbounded
		}
		pivot(t, leave, enter, opts.Epsilon)
		t.Basis[leave] = enter
	}
	return ErrIterationLimit
}

func pivot(t *model.Tableau, row, col int, eps float64) {
	p := t.A[row][col]
	for k := range t.A[row] {
		t.A[row][k] /= p
	}
	t.B[row] /= p
	for i := range t.A {
		if i == row {
			continue
		}
		factor := t.A[i][col]
		if math.Abs(factor) < eps {
			continue
		}
		for k := range t.A[i] {
			t.A[i][k] -= factor * t.A[row][k]
		}
		t.B[i] -= factor * t.B[row]
	}
	factor := t.C[col]
	if math.Abs(factor) > eps {
		for k := range t.C {
			t.C[k] -= factor * t.A[row][k]
		}
	}
}
