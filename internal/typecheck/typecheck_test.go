package typecheck

import (
	"testing"

	"optex/internal/parser"
)

func checkSource(t *testing.T, src string) error {
	t.Helper()
	pm, err := parser.Parse(src, "t.optex")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return New().Check(pm)
}

func TestCheckSimpleValid(t *testing.T) {
	src := "min 2x + y\ns.t.\nx + y <= 10\ndefine\nx, y as NonNegativeReal\n"
	if err := checkSource(t, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckUndeclaredVariable(t *testing.T) {
	src := "min x\ns.t.\nx <= 1\n"
	if err := checkSource(t, src); err == nil {
		t.Fatal("expected undeclared-variable error")
	}
}

func TestCheckStringArithmeticRejected(t *testing.T) {
	src := "solve\ns.t.\nx <= 1\nwhere\nlet x = \"a\" - \"b\"\n"
	if err := checkSource(t, src); err == nil {
		t.Fatal("expected error for unsupported string operator")
	}
}

func TestCheckIterPattern(t *testing.T) {
	src := "min sum(i in range(3)) { x_{i} }\ns.t.\nx_0 <= 1\ndefine\nx_i as NonNegativeReal for i in range(3)\n"
	if err := checkSource(t, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckDuplicateDomainKindMismatch(t *testing.T) {
	src := "solve\ns.t.\nx <= 1\ndefine\nx as NonNegativeReal\nx as Boolean\n"
	if err := checkSource(t, src); err == nil {
		t.Fatal("expected AlreadyDeclaredDomainVariable-style error")
	}
}
