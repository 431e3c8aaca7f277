// cmd/optexc/main.go
package main

import (
	"fmt"
	"os"

	"optex/cmd/optexc/commands"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the dispatcher's testable core: main() is just run wired to
// os.Args/os.Exit, and the testscript harness re-exercises the same
// function as a registered in-process command.
func run(args []string) int {
	if len(args) == 0 {
		showUsage()
		return 1
	}

	switch args[0] {
	case "solve":
		return commands.SolveCommand(args[1:])
	case "check":
		return commands.CheckCommand(args[1:])
	case "--help", "-h", "help":
		showUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "optexc: unknown command %q\n", args[0])
		showUsage()
		return 1
	}
}

func showUsage() {
	fmt.Println(`optexc - compile and solve optex models

Usage:
  optexc solve <file> [--store dsn] [--iteration-limit n] [--node-limit n]
  optexc check <file>

solve runs the full pipeline and prints the solution table.
check runs parsing and type checking only.`)
}
