// Package commands implements optexc's subcommands.
package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	pkgerrors "github.com/pkg/errors"

	"optex/internal/optctx"
	"optex/internal/parser"
	"optex/internal/simplex"
	"optex/internal/solve"
	"optex/internal/store"
	"optex/internal/transform"
)

// Exit codes: 0 for a found optimum or feasible satisfaction, distinct
// small integers for everything else.
const (
	ExitOK             = 0
	ExitCompileError   = 1
	ExitInfeasible     = 2
	ExitUnbounded      = 3
	ExitIterationLimit = 4
	ExitInternalError  = 5
)

type solveFlags struct {
	file            string
	storeDSN        string
	iterationLimit  int
	nodeLimit       int
}

func parseSolveFlags(args []string) (solveFlags, error) {
	var f solveFlags
	for i := 0; i < len(args); i++ {
		switch a := args[i]; {
		case a == "--store":
			i++
			if i >= len(args) {
				return f, fmt.Errorf("--store requires a dsn argument")
			}
			f.storeDSN = args[i]
		case a == "--iteration-limit":
			i++
			if i >= len(args) {
				return f, fmt.Errorf("--iteration-limit requires a number")
			}
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return f, fmt.Errorf("--iteration-limit: %w", err)
			}
			f.iterationLimit = n
		case a == "--node-limit":
			i++
			if i >= len(args) {
				return f, fmt.Errorf("--node-limit requires a number")
			}
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return f, fmt.Errorf("--node-limit: %w", err)
			}
			f.nodeLimit = n
		case f.file == "":
			f.file = a
		default:
			return f, fmt.Errorf("unexpected argument %q", a)
		}
	}
	if f.file == "" {
		return f, fmt.Errorf("usage: optexc solve <file> [--store dsn] [--iteration-limit n] [--node-limit n]")
	}
	return f, nil
}

// SolveCommand runs the full pipeline against a file and prints either the
// solution table or a formatted error, returning the process exit code.
func SolveCommand(args []string) int {
	f, err := parseSolveFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitCompileError
	}

	src, err := os.ReadFile(f.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "optexc: %v\n", err)
		return ExitInternalError
	}

	st, err := store.Open(f.storeDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "optexc: %v\n", err)
		return ExitInternalError
	}
	defer st.Close()

	cfg := optctx.DefaultConfig()
	cfg.StoreDSN = f.storeDSN
	if f.iterationLimit > 0 {
		cfg.SimplexIterationLimit = f.iterationLimit
	}
	cfg.BranchAndBoundNodeLimit = f.nodeLimit
	ctx := optctx.New(cfg)

	pm, err := parser.Parse(string(src), f.file)
	if err != nil {
		printErr(err)
		return ExitCompileError
	}
	m, err := transform.Transform(pm)
	if err != nil {
		printErr(err)
		return ExitCompileError
	}

	started := time.Now()
	sol, err := solve.Solve(ctx, m)
	elapsed := time.Since(started)
	if err != nil {
		return printSolveErr(err)
	}

	printSolution(sol, elapsed)

	if st != nil {
		hash := store.SourceHash(string(src))
		run := store.Run{
			SourceHash: hash,
			Source:     string(src),
			ModelPrint: m.String(),
			Solution:   sol,
			SolveTime:  elapsed,
			RecordedAt: time.Now(),
		}
		if err := st.Save(run); err != nil {
			fmt.Fprintf(os.Stderr, "optexc: store: %v\n", err)
		}
	}
	return ExitOK
}

func colorize() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func printSolution(sol *solve.Solution, elapsed time.Duration) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	if !colorize() {
		bold.DisableColor()
		green.DisableColor()
	}
	for _, a := range sol.Assignments {
		fmt.Printf("%s = %s\n", a.Name, humanize.FtoaWithDigits(a.Value, 6))
	}
	green.Printf("objective = %s", humanize.FtoaWithDigits(sol.Objective, 6))
	fmt.Printf("  (%s)\n", elapsed)
}

func printErr(err error) {
	red := color.New(color.FgRed)
	if !colorize() {
		red.DisableColor()
	}
	red.Fprintln(os.Stderr, err.Error())
}

// printSolveErr unwraps a solve.Solve error (wrapped with pkg/errors at the
// solver boundary) back to the simplex sentinel it originated from, and
// picks the matching exit code.
func printSolveErr(err error) int {
	printErr(err)
	cause := pkgerrors.Cause(err)
	switch {
	case errors.Is(cause, simplex.ErrInfeasible):
		return ExitInfeasible
	case errors.Is(cause, simplex.ErrUnbounded):
		return ExitUnbounded
	case errors.Is(cause, simplex.ErrIterationLimit):
		return ExitIterationLimit
	default:
		return ExitCompileError
	}
}
