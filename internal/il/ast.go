// Package il defines the intermediate language: the tree of pre-expressions,
// quantified blocks, iterable-sets, compound-variable references,
// addressable accesses, and constraint/objective/domain declarations that
// the parser produces and the type checker and transformer consume.
package il

import "optex/internal/errors"

// PreExp is a node in the IL expression tree. Every concrete variant carries
// a source span for diagnostics.
type PreExp interface {
	Span() errors.Span
}

type base struct {
	span errors.Span
}

func (b base) Span() errors.Span { return b.span }

// PrimitiveLit is a literal value written directly in source: a number,
// string, boolean, or array literal (already folded to a homogeneous or
// Anys iterable by the parser) or a graph literal.
type PrimitiveLit struct {
	base
	Value LitValue
}

// LitValue mirrors primitive.Primitive but lives in the IL so the parser
// does not need to depend on internal/primitive's iterable machinery for
// literal construction; the transformer converts LitValue to
// primitive.Primitive when it lowers a PrimitiveLit.
type LitValue interface{ isLitValue() }

type LitNumber float64

func (LitNumber) isLitValue() {}

type LitBool bool

func (LitBool) isLitValue() {}

type LitString string

func (LitString) isLitValue() {}

type LitArray []PreExp

func (LitArray) isLitValue() {}

type LitGraphNode struct {
	Name  string
	Edges []LitGraphEdge
}

type LitGraphEdge struct {
	To     string
	Weight *float64
}

type LitGraph struct {
	Nodes []LitGraphNode
}

func (LitGraph) isLitValue() {}

func NewPrimitiveLit(span errors.Span, v LitValue) *PrimitiveLit {
	return &PrimitiveLit{base: base{span}, Value: v}
}

// Abs is |exp|.
type Abs struct {
	base
	Exp PreExp
}

func NewAbs(span errors.Span, exp PreExp) *Abs { return &Abs{base{span}, exp} }

// BlockFunctionKind is the reduction applied by a BlockFunction/
// BlockScopedFunction.
type BlockFunctionKind int

const (
	BlockSum BlockFunctionKind = iota
	BlockProd
	BlockMin
	BlockMax
	BlockAvg
)

// BlockFunction is the non-scoped form: {min|max|avg}(e1, e2, ...).
type BlockFunction struct {
	base
	FnKind BlockFunctionKind
	Exps   []PreExp
}

func NewBlockFunction(span errors.Span, kind BlockFunctionKind, exps []PreExp) *BlockFunction {
	return &BlockFunction{base{span}, kind, exps}
}

// BlockScopedFunction is the quantified form: sum(i in A, j in B) { body }.
type BlockScopedFunction struct {
	base
	FnKind BlockFunctionKind
	Iters  []IterableSet
	Body   PreExp
}

func NewBlockScopedFunction(span errors.Span, kind BlockFunctionKind, iters []IterableSet, body PreExp) *BlockScopedFunction {
	return &BlockScopedFunction{base{span}, kind, iters, body}
}

// Variable is a bare name reference.
type Variable struct {
	base
	Name string
}

func NewVariable(span errors.Span, name string) *Variable { return &Variable{base{span}, name} }

// CompoundVariable is x_{e1}_{e2}... — a variable whose ground name is
// formed by flattening the index expressions at transform time.
type CompoundVariable struct {
	base
	Name    string
	Indexes []PreExp
}

func NewCompoundVariable(span errors.Span, name string, indexes []PreExp) *CompoundVariable {
	return &CompoundVariable{base{span}, name, indexes}
}

// AddressableAccess is a[i][j]... indexing into an iterable primitive.
type AddressableAccess struct {
	base
	Name    string
	Indexes []PreExp
}

func NewAddressableAccess(span errors.Span, name string, indexes []PreExp) *AddressableAccess {
	return &AddressableAccess{base{span}, name, indexes}
}

// FunctionCall is name(args...), dispatched against the builtin/user
// function table.
type FunctionCall struct {
	base
	Name string
	Args []PreExp
}

func NewFunctionCall(span errors.Span, name string, args []PreExp) *FunctionCall {
	return &FunctionCall{base{span}, name, args}
}

type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
)

// BinaryOperation is lhs op rhs.
type BinaryOperation struct {
	base
	Op       BinOp
	Lhs, Rhs PreExp
}

func NewBinaryOperation(span errors.Span, op BinOp, lhs, rhs PreExp) *BinaryOperation {
	return &BinaryOperation{base{span}, op, lhs, rhs}
}

type UnOp int

const (
	OpNeg UnOp = iota
)

// UnaryOperation is currently only negation.
type UnaryOperation struct {
	base
	Op  UnOp
	Exp PreExp
}

func NewUnaryOperation(span errors.Span, op UnOp, exp PreExp) *UnaryOperation {
	return &UnaryOperation{base{span}, op, exp}
}

// Pattern is either a single bound name or an ordered tuple of names, used
// both by IterableSet and destructuring assignment.
type Pattern struct {
	Names []string // len == 1 for a single name, >1 for a tuple pattern
}

func SinglePattern(name string) Pattern { return Pattern{Names: []string{name}} }

func TuplePattern(names ...string) Pattern { return Pattern{Names: names} }

func (p Pattern) IsTuple() bool { return len(p.Names) > 1 }

// IterableSet is a `pattern in iterator-expression` clause, used by `for`
// suffixes on constraints/domains and by scoped block-functions.
type IterableSet struct {
	Pattern  Pattern
	Iterator PreExp
	Span     errors.Span
}

func NewIterableSet(span errors.Span, pattern Pattern, iterator PreExp) IterableSet {
	return IterableSet{Pattern: pattern, Iterator: iterator, Span: span}
}

// Comparison is the relational operator of a constraint.
type Comparison int

const (
	CmpLessOrEqual Comparison = iota
	CmpLess
	CmpEqual
	CmpGreater
	CmpGreaterOrEqual
)

func (c Comparison) String() string {
	switch c {
	case CmpLessOrEqual:
		return "<="
	case CmpLess:
		return "<"
	case CmpEqual:
		return "="
	case CmpGreater:
		return ">"
	case CmpGreaterOrEqual:
		return ">="
	default:
		return "?"
	}
}

// VariableKind is a pre-type, evaluated to a concrete domain.VariableType at
// transform time once its Min/Max expressions are folded.
type VariableKind int

const (
	VarReal VariableKind = iota
	VarNonNegativeReal
	VarInteger
	VarIntegerRange
	VarBoolean
)

// PreVariableType pairs a VariableKind with its (optional) IL bound
// expressions.
type PreVariableType struct {
	Kind VariableKind
	Min  PreExp // nil when the kind has no bound, e.g. Boolean
	Max  PreExp
}

// DomainRef is one (possibly compound) variable reference inside a domain
// declaration's name list.
type DomainRef struct {
	Name    string
	Indexes []PreExp // empty for a plain variable
	Span    errors.Span
}

// DomainDecl declares the type of one or more (possibly compound, possibly
// iterated) variable references.
type DomainDecl struct {
	Refs  []DomainRef
	Type  PreVariableType
	Iters []IterableSet // empty when the declaration has no `for`
	Span  errors.Span
}

// ConstantDecl is `let NAME = exp`, evaluated in declaration order at
// transform time; later constants may refer to earlier ones.
type ConstantDecl struct {
	Name string
	Exp  PreExp
	Span errors.Span
}

// ObjectiveKind is the optimization direction, or Satisfy for a pure
// feasibility problem (`solve`).
type ObjectiveKind int

const (
	ObjMin ObjectiveKind = iota
	ObjMax
	ObjSatisfy
)

// Objective pairs a direction with its IL expression (zero value for
// Satisfy).
type Objective struct {
	Kind ObjectiveKind
	Exp  PreExp
	Span errors.Span
}

// PreConstraint is one constraint clause, optionally named and optionally
// iterated.
type PreConstraint struct {
	Name       PreExp // nil for an auto-generated name
	Lhs        PreExp
	Comparison Comparison
	Rhs        PreExp
	Iters      []IterableSet
	Span       errors.Span
}

// PreModel is the whole parsed (but not yet type-checked or transformed)
// problem.
type PreModel struct {
	Objective   Objective
	Constraints []PreConstraint
	Constants   []ConstantDecl
	Domains     []DomainDecl
}
