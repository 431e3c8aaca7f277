package solve

import (
	"math"

	pkgerrors "github.com/pkg/errors"

	"optex/internal/model"
	"optex/internal/optctx"
	"optex/internal/simplex"
	"optex/internal/standardize"
)

// IntegerSolver is a branch-and-bound driver over the LP relaxation. It
// covers pure-binary, mixed-binary and bounded IntegerRange models alike: a
// deployment wanting a real CDCL engine or a commercial MILP solver plugs
// in behind the same interface; both are bounded-domain integer searches
// over the identical relaxation, so one driver serves both.
type IntegerSolver struct {
	// NodeLimit bounds the number of branch-and-bound nodes explored. Zero
	// means unbounded.
	NodeLimit int
}

type incumbent struct {
	sol *Solution
	val float64
}

func (s IntegerSolver) Solve(ctx *optctx.Context, lm *model.LinearModel, userVars []string) (*Solution, error) {
	integral := integralIndices(lm)
	opts := simplexOptions(ctx)
	maximize := lm.ObjectiveKind == model.ObjMax

	var best *incumbent
	stack := []*model.LinearModel{lm}
	nodes := 0

	for len(stack) > 0 {
		nodes++
		if s.NodeLimit > 0 && nodes > s.NodeLimit {
			ctx.Stage("branch-and-bound", "status", "node-limit", "nodes", nodes)
			break
		}
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		slm, err := standardize.Standardize(cur)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "standardize")
		}
		tab, err := simplex.Build(slm, opts)
		if err != nil {
			if err == simplex.ErrInfeasible {
				continue
			}
			return nil, pkgerrors.Wrap(err, "simplex build")
		}
		if err := simplex.Solve(tab, opts); err != nil {
			if err == simplex.ErrUnbounded {
				return nil, pkgerrors.Wrap(err, "simplex solve")
			}
			continue
		}

		val := objectiveValue(tab)
		if best != nil {
			if maximize && val <= best.val+opts.Epsilon {
				continue
			}
			if !maximize && val >= best.val-opts.Epsilon {
				continue
			}
		}

		assignment := tab.Assignment()
		branchVar, frac, ok := firstFractional(cur, assignment, integral, opts.Epsilon)
		if !ok {
			best = &incumbent{sol: newSolution(tab, userVars), val: val}
			continue
		}

		floor := math.Floor(frac)
		stack = append(stack,
			boundedCopy(cur, branchVar, model.CmpLessOrEqual, floor),
			boundedCopy(cur, branchVar, model.CmpGreaterOrEqual, floor+1),
		)
	}

	ctx.Stage("branch-and-bound", "status", "done", "nodes", nodes)
	if best == nil {
		return nil, pkgerrors.Wrap(simplex.ErrInfeasible, "branch-and-bound")
	}
	return best.sol, nil
}

func integralIndices(lm *model.LinearModel) map[int]bool {
	out := make(map[int]bool)
	for i, name := range lm.Variables {
		if dv := lm.Domains[name]; dv != nil && dv.Type.IsIntegral() {
			out[i] = true
		}
	}
	return out
}

// firstFractional returns the name and current value of the lowest-index
// integral-domain variable whose assignment isn't within eps of a whole
// number, so branching order is deterministic.
func firstFractional(lm *model.LinearModel, assignment map[string]float64, integral map[int]bool, eps float64) (string, float64, bool) {
	for i, name := range lm.Variables {
		if !integral[i] {
			continue
		}
		v := assignment[name]
		frac := v - math.Floor(v)
		if frac > eps && frac < 1-eps {
			return name, v, true
		}
	}
	return "", 0, false
}

// boundedCopy returns a branch-and-bound child node: lm's constraints plus
// one new bound row on the named variable. Variables/Domains/ObjectiveCoeffs
// are read-only across branches and shared rather than copied.
func boundedCopy(lm *model.LinearModel, name string, cmp model.Comparison, rhs float64) *model.LinearModel {
	idx := -1
	for i, n := range lm.Variables {
		if n == name {
			idx = i
			break
		}
	}
	constraints := append([]model.LinearConstraint(nil), lm.Constraints...)
	constraints = append(constraints, boundRow(len(lm.Variables), idx, cmp, rhs))
	return &model.LinearModel{
		ObjectiveCoeffs: lm.ObjectiveCoeffs,
		ObjectiveKind:   lm.ObjectiveKind,
		ObjectiveOffset: lm.ObjectiveOffset,
		Constraints:     constraints,
		Variables:       lm.Variables,
		Domains:         lm.Domains,
	}
}
