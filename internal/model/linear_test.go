package model

import (
	"testing"

	"github.com/kr/pretty"
)

func TestTableauValueUsesRetainedObjectiveCoeffs(t *testing.T) {
	// A tiny already-canonical tableau: basis column 1 (y) holds value 4,
	// objective coefficients {x:2, y:3}, offset 0 -> value 12.
	tab := &Tableau{
		C:               []float64{0, 0},
		A:               [][]float64{{1, 1}},
		B:               []float64{4},
		Basis:           []int{1},
		ObjectiveCoeffs: []float64{2, 3},
		Variables:       []string{"x", "y"},
	}
	if got := tab.Value(); got != 12 {
		t.Fatalf("expected value 12, got %v", got)
	}
}

func TestTableauAssignmentDefaultsNonbasicToZero(t *testing.T) {
	tab := &Tableau{
		C:         []float64{0, 0},
		A:         [][]float64{{1, 1}},
		B:         []float64{4},
		Basis:     []int{1},
		Variables: []string{"x", "y"},
	}
	want := map[string]float64{"x": 0, "y": 4}
	got := tab.Assignment()
	for name, v := range want {
		if got[name] != v {
			t.Fatalf("assignment mismatch:\n%# v", pretty.Formatter(got))
		}
	}
}

func TestSortedVariableNamesOrdersLexically(t *testing.T) {
	names := SortedVariableNames([]string{"y", "x", "$min_0", "a"})
	want := []string{"$min_0", "a", "x", "y"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("sorted names mismatch, want %v got %v:\n%# v", want, names, pretty.Formatter(names))
		}
	}
}
