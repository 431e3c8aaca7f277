// Package standardize turns a model.LinearModel into equality-form standard
// form: every row becomes Σcᵢxᵢ = rhs with rhs ≥ 0, ready for canonical
// tableau construction.
package standardize

import (
	"fmt"
	"math"

	"optex/internal/errors"
	"optex/internal/model"
)

type rawRow struct {
	coeffs []float64
	extra  map[string]float64 // slack/surplus column name -> coefficient
	rhs    float64
}

// Standardize inserts slack/surplus variables for <=/>= rows, rejects strict
// comparisons, flips negative-rhs rows, and negates the objective (recording
// FlipObjective) when the original direction was max.
func Standardize(lm *model.LinearModel) (*model.StandardLinearModel, error) {
	variables := append([]string(nil), lm.Variables...)
	domains := make(map[string]*model.DomainVariable, len(lm.Domains))
	for k, v := range lm.Domains {
		domains[k] = v
	}

	declareSlack := func(name string) {
		domains[name] = &model.DomainVariable{Type: model.VariableType{Kind: model.VarNonNegativeReal, Min: 0, Max: math.Inf(1)}}
		variables = append(variables, name)
	}

	var rows []rawRow
	suCount, slCount := 0, 0
	for _, c := range lm.Constraints {
		row := rawRow{coeffs: append([]float64(nil), c.Coeffs...), rhs: c.Rhs}
		switch c.Comparison {
		case model.CmpEqual:
			// already an equality row
		case model.CmpLessOrEqual:
			name := fmt.Sprintf("$su_%d", suCount)
			suCount++
			declareSlack(name)
			row.extra = map[string]float64{name: 1}
		case model.CmpGreaterOrEqual:
			name := fmt.Sprintf("$sl_%d", slCount)
			slCount++
			declareSlack(name)
			row.extra = map[string]float64{name: -1}
		default:
			return nil, errors.New(errors.KindStandardize, errors.Span{}, "strict comparison %s is not supported at standardization", c.Comparison.String())
		}
		rows = append(rows, row)
	}

	for i, r := range rows {
		if r.rhs < 0 {
			for j := range r.coeffs {
				rows[i].coeffs[j] = -r.coeffs[j]
			}
			for k, v := range r.extra {
				rows[i].extra[k] = -v
			}
			rows[i].rhs = -r.rhs
		}
	}

	n := len(variables)
	index := make(map[string]int, n)
	for i, v := range variables {
		index[v] = i
	}

	constraints := make([]model.LinearConstraint, len(rows))
	for i, r := range rows {
		vec := make([]float64, n)
		copy(vec, r.coeffs)
		for name, coeff := range r.extra {
			vec[index[name]] = coeff
		}
		constraints[i] = model.LinearConstraint{Coeffs: vec, Comparison: model.CmpEqual, Rhs: r.rhs}
	}

	objCoeffs := make([]float64, n)
	copy(objCoeffs, lm.ObjectiveCoeffs)
	offset := lm.ObjectiveOffset
	flip := false
	if lm.ObjectiveKind == model.ObjMax {
		for i := range objCoeffs {
			objCoeffs[i] = -objCoeffs[i]
		}
		offset = -offset
		flip = true
	}

	return &model.StandardLinearModel{
		ObjectiveCoeffs: objCoeffs,
		ObjectiveOffset: offset,
		FlipObjective:   flip,
		Constraints:     constraints,
		Variables:       variables,
		Domains:         domains,
	}, nil
}
