package store

import (
	"testing"
	"time"

	"optex/internal/solve"
)

func TestOpenEmptyDSNDisablesPersistence(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Fatalf("expected a nil store for an empty dsn")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close on nil store should be a no-op, got: %v", err)
	}
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	if _, err := Open("redis://localhost:6379"); err == nil {
		t.Fatalf("expected an error for an unsupported scheme")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, err := Open("sqlite::memory:")
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	defer s.Close()

	sol := &solve.Solution{
		Assignments: []solve.Assignment{{Name: "x", Value: 4}, {Name: "y", Value: 0}},
		Objective:   12,
	}
	src := "max 2x + 3y\ns.t.\nx + y <= 4\ndefine\nx, y as NonNegativeReal\n"
	hash := SourceHash(src)

	run := Run{
		SourceHash: hash,
		Source:     src,
		ModelPrint: "max 2x + 3y s.t. x + y <= 4",
		Solution:   sol,
		SolveTime:  250 * time.Microsecond,
		RecordedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := s.Save(run); err != nil {
		t.Fatalf("save error: %v", err)
	}

	got, ok, err := s.Load(hash)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if !ok {
		t.Fatalf("expected a stored run for hash %s", hash)
	}
	if got.Source != src {
		t.Fatalf("source mismatch: got %q", got.Source)
	}
	if got.Solution.Objective != sol.Objective {
		t.Fatalf("objective mismatch: got %v, want %v", got.Solution.Objective, sol.Objective)
	}
	if len(got.Solution.Assignments) != len(sol.Assignments) {
		t.Fatalf("assignment count mismatch: got %d, want %d", len(got.Solution.Assignments), len(sol.Assignments))
	}
}

func TestLoadMissingHashReturnsFalse(t *testing.T) {
	s, err := Open("sqlite::memory:")
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	defer s.Close()

	_, ok, err := s.Load("deadbeef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected no run for an unknown hash")
	}
}
