package solve

import (
	"sort"

	"optex/internal/model"
)

// Assignment is one {name, value} pair of the solution output.
type Assignment struct {
	Name  string
	Value float64
}

// Solution is the result of a successful solve: every declared decision
// variable's value, sorted by name, plus the objective with the original
// offset re-added and the sign flipped back if it had been negated for
// standardization.
type Solution struct {
	Assignments []Assignment
	Objective   float64
}

func (s *Solution) Value(name string) (float64, bool) {
	for _, a := range s.Assignments {
		if a.Name == name {
			return a.Value, true
		}
	}
	return 0, false
}

// objectiveValue recovers the original objective from a solved tableau:
// the basic solution's value against the tableau's own (unreduced)
// objective coefficients, plus the linearizer's offset, negated back if the
// standardizer flipped it for a maximization.
func objectiveValue(tab *model.Tableau) float64 {
	v := tab.Value() + tab.ValueOffset
	if tab.FlipObjective {
		return -v
	}
	return v
}

func newSolution(tab *model.Tableau, userVars []string) *Solution {
	full := tab.Assignment()
	out := make([]Assignment, 0, len(userVars))
	for _, name := range userVars {
		out = append(out, Assignment{Name: name, Value: full[name]})
	}
	// userVars comes in model.Model.Order (insertion order); the solution
	// output is defined to be sorted by name regardless.
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return &Solution{Assignments: out, Objective: objectiveValue(tab)}
}
