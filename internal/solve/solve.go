// Package solve is the solver boundary: it defines LPSolver and
// IntegerSolver, the default in-process backends Solve dispatches to, and
// wraps every error that crosses the boundary with github.com/pkg/errors so
// a caller can still recover the originating simplex/linearize/standardize
// error via errors.Cause.
package solve

import (
	"math"

	pkgerrors "github.com/pkg/errors"

	"optex/internal/linearize"
	"optex/internal/model"
	"optex/internal/optctx"
	"optex/internal/simplex"
	"optex/internal/standardize"
)

// Solve runs linearize -> standardize -> tableau against m and dispatches to
// IntegerSolver when any declared variable is integral (Integer,
// IntegerRange or Boolean), or to LPSolver otherwise.
func Solve(ctx *optctx.Context, m *model.Model) (*Solution, error) {
	lm, err := linearize.Linearize(m)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "linearize")
	}
	seedDomainBounds(lm)

	if hasIntegerDomain(lm) {
		ctx.Stage("solve", "backend", "integer", "variables", len(lm.Variables))
		return IntegerSolver{NodeLimit: ctx.Config.BranchAndBoundNodeLimit}.Solve(ctx, lm, m.Order)
	}
	ctx.Stage("solve", "backend", "lp", "variables", len(lm.Variables))
	return LPSolver{}.Solve(ctx, lm, m.Order)
}

func hasIntegerDomain(lm *model.LinearModel) bool {
	for _, dv := range lm.Domains {
		if dv.Type.IsIntegral() {
			return true
		}
	}
	return false
}

// seedDomainBounds materializes each variable's declared Min/Max as explicit
// LinearModel rows. Neither the linearizer nor the standardizer encodes a
// domain's bounds (the simplex formulation assumes plain x >= 0 throughout);
// Boolean and bounded IntegerRange domains are meaningless without this, so
// the solve boundary adds it here rather than loosening the linearizer or
// standardizer.
func seedDomainBounds(lm *model.LinearModel) {
	for idx, name := range lm.Variables {
		dv := lm.Domains[name]
		if dv == nil {
			continue
		}
		if dv.Type.Kind == model.VarBoolean {
			lm.Constraints = append(lm.Constraints, boundRow(len(lm.Variables), idx, model.CmpLessOrEqual, 1))
			continue
		}
		if !math.IsInf(dv.Type.Max, 1) {
			lm.Constraints = append(lm.Constraints, boundRow(len(lm.Variables), idx, model.CmpLessOrEqual, dv.Type.Max))
		}
		if dv.Type.Min > 0 {
			lm.Constraints = append(lm.Constraints, boundRow(len(lm.Variables), idx, model.CmpGreaterOrEqual, dv.Type.Min))
		}
	}
}

func boundRow(width, idx int, cmp model.Comparison, rhs float64) model.LinearConstraint {
	coeffs := make([]float64, width)
	coeffs[idx] = 1
	return model.LinearConstraint{Coeffs: coeffs, Comparison: cmp, Rhs: rhs}
}

// LPSolver wraps internal/simplex directly: standardize, build a canonical
// tableau, solve to optimality.
type LPSolver struct{}

func (LPSolver) Solve(ctx *optctx.Context, lm *model.LinearModel, userVars []string) (*Solution, error) {
	slm, err := standardize.Standardize(lm)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "standardize")
	}
	opts := simplexOptions(ctx)
	tab, err := simplex.Build(slm, opts)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "simplex build")
	}
	if err := simplex.Solve(tab, opts); err != nil {
		return nil, pkgerrors.Wrap(err, "simplex solve")
	}
	return newSolution(tab, userVars), nil
}

func simplexOptions(ctx *optctx.Context) simplex.Options {
	opts := simplex.DefaultOptions()
	if ctx.Config.Epsilon > 0 {
		opts.Epsilon = ctx.Config.Epsilon
	}
	if ctx.Config.SimplexIterationLimit > 0 {
		opts.MaxIterations = ctx.Config.SimplexIterationLimit
	}
	return opts
}
