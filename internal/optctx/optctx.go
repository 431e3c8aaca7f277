// Package optctx carries the run-scoped configuration and structured logger
// that the solve stage (internal/solve) receives for its limits and logging.
package optctx

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Config holds the knobs every stage needs but none of them should hardcode:
// the simplex iteration bound and epsilon, the store DSN (empty disables
// persistence), and the branch-and-bound node limit used by the integer
// solver.
type Config struct {
	SimplexIterationLimit  int
	Epsilon                float64
	StoreDSN               string
	BranchAndBoundNodeLimit int
}

// DefaultConfig: iteration limit 10000, epsilon 1e-9. Persistence is off
// and branch-and-bound is unbounded until a caller opts in.
func DefaultConfig() Config {
	return Config{
		SimplexIterationLimit:  10000,
		Epsilon:                1e-9,
		BranchAndBoundNodeLimit: 0,
	}
}

// Context bundles a Config, a structured logger, and a request-scoped id
// across a single compile-and-solve run. It does not embed context.Context
// (the pipeline is synchronous with no cancellation points) but carries its
// own RequestID for log correlation instead.
type Context struct {
	Config    Config
	RequestID string
	logger    *slog.Logger
}

// New starts a run context with a fresh request id and a logger writing to
// stderr, one line per pipeline stage transition.
func New(cfg Config) *Context {
	id := uuid.NewString()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("request_id", id)
	return &Context{Config: cfg, RequestID: id, logger: logger}
}

// WithLogger overrides the destination logger, e.g. so tests can capture
// output or a CLI can swap in a quieter handler.
func (c *Context) WithLogger(l *slog.Logger) *Context {
	c.logger = l
	return c
}

func (c *Context) Logger() *slog.Logger { return c.logger }

// Stage logs a single pipeline-stage transition. Never pass the modeling
// source text itself here — spans in internal/errors carry that; the log
// line only ever names the stage and a few scalar facts about it.
func (c *Context) Stage(name string, args ...any) {
	c.logger.Info("stage", append([]any{"stage", name}, args...)...)
}
