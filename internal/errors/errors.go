// Package errors implements the span-carrying error values used across every
// pipeline stage: parsing, type checking, transformation, linearization,
// standardization, canonicalization and solving.
package errors

import (
	"fmt"
	"strings"
)

// Kind is the taxonomy of a pipeline error, one bucket per stage.
type Kind string

const (
	KindParse        Kind = "Parse"
	KindType         Kind = "Type"
	KindTransform    Kind = "Transform"
	KindLinearize    Kind = "Linearize"
	KindStandardize  Kind = "Standardize"
	KindCanonicalize Kind = "Canonicalize"
	KindSolver       Kind = "Solver"
)

// Span locates a range of source text.
type Span struct {
	File        string
	Line        int
	Column      int
	EndLine     int
	EndColumn   int
	Source      string // the literal source text the span covers, for display
}

func (s Span) String() string {
	if s.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// Error is the single error type returned by every stage. It carries the
// kind-tagged message, the span where it originated, and a trace of enclosing
// spans accumulated by AddSpan as the error propagates up through recursive
// calls (set resolver frames, nested expressions, constraint iteration).
type Error struct {
	Kind    Kind
	Message string
	Origin  Span
	Trace   []Span
}

func New(kind Kind, span Span, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Origin:  span,
	}
}

// AddSpan appends an enclosing span to the trace and returns the same error,
// so call sites can write `return errors.AddSpan(err, span)` while recursing
// back out of a nested expression or iteration.
func AddSpan(err *Error, span Span) *Error {
	if err == nil {
		return nil
	}
	err.Trace = append(err.Trace, span)
	return err
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Kind, e.Message))
	if loc := e.Origin.String(); loc != "" {
		sb.WriteString(fmt.Sprintf("\n\tat %s", loc))
		if e.Origin.Source != "" {
			sb.WriteString(fmt.Sprintf(" %q", e.Origin.Source))
		}
	}
	for _, frame := range e.Trace {
		if loc := frame.String(); loc != "" {
			sb.WriteString(fmt.Sprintf("\n\tat %s", loc))
			if frame.Source != "" {
				sb.WriteString(fmt.Sprintf(" %q", frame.Source))
			}
		}
	}
	return sb.String()
}

// Is reports whether err is an *Error of the given kind, for callers that
// only care about the stage a failure came from (e.g. the CLI's exit code
// taxonomy).
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
