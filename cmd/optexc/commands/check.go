package commands

import (
	"fmt"
	"os"

	"optex/internal/parser"
	"optex/internal/typecheck"
)

// CheckCommand runs parsing and type checking only: no solve, no store.
func CheckCommand(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: optexc check <file>")
		return ExitCompileError
	}
	file := args[0]

	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "optexc: %v\n", err)
		return ExitInternalError
	}

	pm, err := parser.Parse(string(src), file)
	if err != nil {
		printErr(err)
		return ExitCompileError
	}
	if err := typecheck.New().Check(pm); err != nil {
		printErr(err)
		return ExitCompileError
	}

	fmt.Println("ok")
	return ExitOK
}
