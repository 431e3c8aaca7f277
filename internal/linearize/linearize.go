// Package linearize rewrites a ground model.Model into a model.LinearModel:
// every constraint and the objective become a dense coefficient vector plus
// a constant, with min/max reductions replaced by fresh auxiliary variables
// and their defining inequalities.
package linearize

import (
	"fmt"
	"math"
	"sort"

	"optex/internal/errors"
	"optex/internal/model"
)

// lctx is the per-expression linearization accumulator: a sparse coefficient
// map plus the constant term left over after folding every Number node.
type lctx struct {
	coeff map[string]float64
	rhs   float64
}

func zero() lctx { return lctx{coeff: make(map[string]float64)} }

func isConstant(c lctx) bool { return len(c.coeff) == 0 }

func add(a, b lctx) lctx {
	out := zero()
	for k, v := range a.coeff {
		out.coeff[k] += v
	}
	for k, v := range b.coeff {
		out.coeff[k] += v
	}
	out.rhs = a.rhs + b.rhs
	return out
}

func sub(a, b lctx) lctx {
	out := zero()
	for k, v := range a.coeff {
		out.coeff[k] += v
	}
	for k, v := range b.coeff {
		out.coeff[k] -= v
	}
	out.rhs = a.rhs - b.rhs
	return out
}

func scale(a lctx, s float64) lctx {
	out := zero()
	for k, v := range a.coeff {
		out.coeff[k] = v * s
	}
	out.rhs = a.rhs * s
	return out
}

// linearizer carries the FIFO worklist of constraints (original rows plus
// the auxiliary rows min/max reductions append as they're discovered) and
// the monotonically-growing domain map.
type linearizer struct {
	domains    map[string]*model.DomainVariable
	order      []string
	worklist   []model.Constraint
	minCounter int
	maxCounter int
}

func nonLinear(e model.Exp) error {
	return errors.New(errors.KindLinearize, errors.Span{}, "non-linear expression: %s", e.String())
}

func unimplemented(e model.Exp) error {
	return errors.New(errors.KindLinearize, errors.Span{}, "unimplemented expression (abs is not linearizable): %s", e.String())
}

// Linearize runs the linearization pass described above on a ground model,
// producing dense objective/constraint coefficient vectors over the sorted
// union of every declared domain variable, including auxiliaries introduced
// for min/max.
func Linearize(m *model.Model) (*model.LinearModel, error) {
	lz := &linearizer{domains: make(map[string]*model.DomainVariable)}
	for name, dv := range m.Domains {
		lz.domains[name] = dv
	}
	lz.order = append([]string(nil), m.Order...)
	lz.worklist = append([]model.Constraint(nil), m.Constraints...)

	objCtx, err := lz.linearizeExp(m.Objective.Exp)
	if err != nil {
		return nil, err
	}

	type rawRow struct {
		coeff map[string]float64
		cmp   model.Comparison
		rhs   float64
	}
	var rows []rawRow

	for i := 0; i < len(lz.worklist); i++ {
		c := lz.worklist[i]
		lCtx, err := lz.linearizeExp(c.Lhs)
		if err != nil {
			return nil, err
		}
		rCtx, err := lz.linearizeExp(c.Rhs)
		if err != nil {
			return nil, err
		}
		merged := sub(lCtx, rCtx)
		rows = append(rows, rawRow{coeff: merged.coeff, cmp: c.Comparison, rhs: -merged.rhs})
	}

	names := make([]string, 0, len(lz.domains))
	for n := range lz.domains {
		names = append(names, n)
	}
	sort.Strings(names)
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}

	toVec := func(coeff map[string]float64) []float64 {
		v := make([]float64, len(names))
		for k, c := range coeff {
			if i, ok := index[k]; ok {
				v[i] = c
			}
		}
		return v
	}

	lm := &model.LinearModel{
		ObjectiveCoeffs: toVec(objCtx.coeff),
		ObjectiveKind:   m.Objective.Kind,
		ObjectiveOffset: objCtx.rhs,
		Variables:       names,
		Domains:         lz.domains,
	}
	for _, r := range rows {
		lm.Constraints = append(lm.Constraints, model.LinearConstraint{
			Coeffs:     toVec(r.coeff),
			Comparison: r.cmp,
			Rhs:        r.rhs,
		})
	}
	return lm, nil
}

func (lz *linearizer) declareAux(name string) {
	if _, ok := lz.domains[name]; ok {
		return
	}
	lz.domains[name] = &model.DomainVariable{
		Type: model.VariableType{Kind: model.VarReal, Min: math.Inf(-1), Max: math.Inf(1)},
	}
	lz.order = append(lz.order, name)
}

func (lz *linearizer) linearizeExp(e model.Exp) (lctx, error) {
	switch n := e.(type) {
	case model.Number:
		return lctx{coeff: make(map[string]float64), rhs: float64(n)}, nil

	case model.Variable:
		return lctx{coeff: map[string]float64{string(n): 1}}, nil

	case model.UnaryNeg:
		c, err := lz.linearizeExp(n.Exp)
		if err != nil {
			return lctx{}, err
		}
		return scale(c, -1), nil

	case model.BinaryOp:
		l, err := lz.linearizeExp(n.Lhs)
		if err != nil {
			return lctx{}, err
		}
		r, err := lz.linearizeExp(n.Rhs)
		if err != nil {
			return lctx{}, err
		}
		switch n.Op {
		case model.OpAdd:
			return add(l, r), nil
		case model.OpSub:
			return sub(l, r), nil
		case model.OpMul:
			switch {
			case isConstant(l):
				return scale(r, l.rhs), nil
			case isConstant(r):
				return scale(l, r.rhs), nil
			default:
				return lctx{}, nonLinear(e)
			}
		case model.OpDiv:
			if !isConstant(r) {
				return lctx{}, nonLinear(e)
			}
			return scale(l, 1/r.rhs), nil
		default:
			return lctx{}, fmt.Errorf("linearize: unknown binop %v", n.Op)
		}

	case model.Min:
		return lz.linearizeReduce(n.Children, false)

	case model.Max:
		return lz.linearizeReduce(n.Children, true)

	case model.Abs:
		return lctx{}, unimplemented(e)

	default:
		return lctx{}, fmt.Errorf("linearize: unhandled exp %T", e)
	}
}

func (lz *linearizer) linearizeReduce(children []model.Exp, isMax bool) (lctx, error) {
	var auxName string
	cmp := model.CmpLessOrEqual
	if isMax {
		auxName = fmt.Sprintf("$max_%d", lz.maxCounter)
		lz.maxCounter++
		cmp = model.CmpGreaterOrEqual
	} else {
		auxName = fmt.Sprintf("$min_%d", lz.minCounter)
		lz.minCounter++
	}
	lz.declareAux(auxName)
	for i, child := range children {
		lz.worklist = append(lz.worklist, model.Constraint{
			Name:       fmt.Sprintf("%s_def%d", auxName, i),
			Lhs:        model.Variable(auxName),
			Comparison: cmp,
			Rhs:        child,
		})
	}
	return lctx{coeff: map[string]float64{auxName: 1}}, nil
}
