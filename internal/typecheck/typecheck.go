// Package typecheck walks the il tree before transformation, inferring the
// PrimitiveKind of every expression, checking operator/call compatibility,
// and validating iterator-pattern destructuring. State is a LIFO stack of
// scopes (never the call stack) plus a static-domain map for names declared
// in the `define` section without iteration, mirroring the transformer's own
// frame-stack discipline so the two passes agree on what "in scope" means.
package typecheck

import (
	"optex/internal/errors"
	"optex/internal/il"
	"optex/internal/primitive"
	"optex/internal/stdlib"
)

type scope map[string]primitive.Kind

// Checker holds the scope stack, the static-domain map, and a token-to-type
// map populated as a side effect for tooling (e.g. an editor hover).
type Checker struct {
	scopes  []scope
	domains map[string]primitive.Kind
	std     stdlib.Table
	Types   map[errors.Span]primitive.Kind
}

func New() *Checker {
	return &Checker{
		scopes:  []scope{{}},
		domains: map[string]primitive.Kind{},
		std:     stdlib.Std(),
		Types:   map[errors.Span]primitive.Kind{},
	}
}

func (c *Checker) push() { c.scopes = append(c.scopes, scope{}) }

func (c *Checker) pop() { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *Checker) define(name string, k primitive.Kind) {
	c.scopes[len(c.scopes)-1][name] = k
}

func (c *Checker) lookup(name string) (primitive.Kind, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if k, ok := c.scopes[i][name]; ok {
			return k, true
		}
	}
	k, ok := c.domains[name]
	return k, ok
}

func (c *Checker) record(span errors.Span, k primitive.Kind) primitive.Kind {
	c.Types[span] = k
	return k
}

func typeErr(span errors.Span, format string, args ...interface{}) error {
	return errors.New(errors.KindType, span, format, args...)
}

// Check type-checks a whole parsed problem: constants (in declaration
// order, each visible to the ones that follow), domain declarations, every
// constraint, and the objective.
func (c *Checker) Check(pm *il.PreModel) error {
	seen := map[string]bool{}
	for _, cd := range pm.Constants {
		if c.std.IsReserved(cd.Name) {
			return typeErr(cd.Span, "%q is reserved and cannot be used as a constant name", cd.Name)
		}
		k, err := c.CheckExp(cd.Exp)
		if err != nil {
			return err
		}
		c.define(cd.Name, k)
		seen[cd.Name] = true
	}

	for _, dd := range pm.Domains {
		if err := c.checkDomainDecl(dd); err != nil {
			return err
		}
	}

	if pm.Objective.Kind != il.ObjSatisfy {
		if _, err := c.checkNumeric(pm.Objective.Exp); err != nil {
			return err
		}
	}

	for i := range pm.Constraints {
		if err := c.checkConstraint(&pm.Constraints[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkConstraint(cn *il.PreConstraint) error {
	if cn.Name != nil {
		if _, err := c.CheckExp(cn.Name); err != nil {
			return err
		}
	}
	if len(cn.Iters) > 0 {
		c.push()
		defer c.pop()
		if err := c.checkIters(cn.Iters); err != nil {
			return err
		}
	}
	lk, err := c.CheckExp(cn.Lhs)
	if err != nil {
		return err
	}
	rk, err := c.CheckExp(cn.Rhs)
	if err != nil {
		return err
	}
	if !isNumericOrAny(lk) || !isNumericOrAny(rk) {
		return typeErr(cn.Span, "constraint sides must be numeric, got %s and %s", lk, rk)
	}
	return nil
}

func (c *Checker) checkDomainDecl(dd il.DomainDecl) error {
	kind, err := c.variableKind(dd.Type)
	if err != nil {
		return err
	}
	if len(dd.Iters) > 0 {
		c.push()
		defer c.pop()
		if err := c.checkIters(dd.Iters); err != nil {
			return err
		}
		for _, ref := range dd.Refs {
			for _, idx := range ref.Indexes {
				if _, err := c.CheckExp(idx); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, ref := range dd.Refs {
		for _, idx := range ref.Indexes {
			if _, err := c.CheckExp(idx); err != nil {
				return err
			}
		}
		if len(ref.Indexes) == 0 {
			if existing, ok := c.domains[ref.Name]; ok && existing.Tag != kind.Tag {
				return typeErr(ref.Span, "%q already declared with a different domain kind (%s vs %s)", ref.Name, existing, kind)
			}
			c.domains[ref.Name] = kind
		}
	}
	return nil
}

func (c *Checker) variableKind(t il.PreVariableType) (primitive.Kind, error) {
	if t.Min != nil {
		if _, err := c.checkNumeric(t.Min); err != nil {
			return primitive.Kind{}, err
		}
	}
	if t.Max != nil {
		if _, err := c.checkNumeric(t.Max); err != nil {
			return primitive.Kind{}, err
		}
	}
	switch t.Kind {
	case il.VarBoolean:
		return primitive.Simple(primitive.KindBoolean), nil
	case il.VarInteger, il.VarIntegerRange:
		return primitive.Simple(primitive.KindInteger), nil
	default:
		return primitive.Simple(primitive.KindNumber), nil
	}
}

func (c *Checker) checkIters(iters []il.IterableSet) error {
	for _, it := range iters {
		k, err := c.CheckExp(it.Iterator)
		if err != nil {
			return err
		}
		if k.Tag != primitive.KindIterable {
			return typeErr(it.Span, "'for' expects an iterable, got %s", k)
		}
		elem := primitive.Simple(primitive.KindAny)
		if k.Elem != nil {
			elem = *k.Elem
		}
		if it.Pattern.IsTuple() {
			if elem.Tag == primitive.KindTuple {
				if len(elem.Tuple) != len(it.Pattern.Names) {
					return typeErr(it.Span, "pattern of arity %d cannot destructure a tuple of arity %d", len(it.Pattern.Names), len(elem.Tuple))
				}
				for i, name := range it.Pattern.Names {
					c.define(name, elem.Tuple[i])
				}
			} else if elem.Tag == primitive.KindGraphEdge {
				if len(it.Pattern.Names) != 3 {
					return typeErr(it.Span, "edge destructuring requires exactly 3 names, got %d", len(it.Pattern.Names))
				}
				c.define(it.Pattern.Names[0], primitive.Simple(primitive.KindString))
				c.define(it.Pattern.Names[1], primitive.Simple(primitive.KindNumber))
				c.define(it.Pattern.Names[2], primitive.Simple(primitive.KindString))
			} else {
				return typeErr(it.Span, "%s is not spreadable into a %d-name pattern", elem, len(it.Pattern.Names))
			}
		} else {
			c.define(it.Pattern.Names[0], elem)
		}
	}
	return nil
}

func (c *Checker) checkNumeric(e il.PreExp) (primitive.Kind, error) {
	k, err := c.CheckExp(e)
	if err != nil {
		return primitive.Kind{}, err
	}
	if !isNumericOrAny(k) {
		return primitive.Kind{}, typeErr(e.Span(), "expected a numeric expression, got %s", k)
	}
	return k, nil
}

func isNumericOrAny(k primitive.Kind) bool {
	return k.IsNumeric() || k.Tag == primitive.KindAny
}

// CheckExp infers and records the kind of any IL expression.
func (c *Checker) CheckExp(e il.PreExp) (primitive.Kind, error) {
	switch n := e.(type) {
	case *il.PrimitiveLit:
		return c.checkLit(n)
	case *il.Abs:
		if _, err := c.checkNumeric(n.Exp); err != nil {
			return primitive.Kind{}, err
		}
		return c.record(n.Span(), primitive.Simple(primitive.KindNumber)), nil
	case *il.BlockFunction:
		for _, sub := range n.Exps {
			if _, err := c.checkNumeric(sub); err != nil {
				return primitive.Kind{}, err
			}
		}
		return c.record(n.Span(), primitive.Simple(primitive.KindNumber)), nil
	case *il.BlockScopedFunction:
		c.push()
		defer c.pop()
		if err := c.checkIters(n.Iters); err != nil {
			return primitive.Kind{}, err
		}
		if _, err := c.checkNumeric(n.Body); err != nil {
			return primitive.Kind{}, err
		}
		return c.record(n.Span(), primitive.Simple(primitive.KindNumber)), nil
	case *il.Variable:
		if k, ok := c.lookup(n.Name); ok {
			return c.record(n.Span(), k), nil
		}
		return primitive.Kind{}, typeErr(n.Span(), "undeclared variable %q", n.Name)
	case *il.CompoundVariable:
		for _, idx := range n.Indexes {
			k, err := c.CheckExp(idx)
			if err != nil {
				return primitive.Kind{}, err
			}
			if !isFlattenable(k) {
				return primitive.Kind{}, typeErr(idx.Span(), "index expression of kind %s cannot be flattened into a variable name", k)
			}
		}
		return c.record(n.Span(), primitive.Simple(primitive.KindNumber)), nil
	case *il.AddressableAccess:
		base, ok := c.lookup(n.Name)
		if !ok {
			return primitive.Kind{}, typeErr(n.Span(), "undeclared variable %q", n.Name)
		}
		cur := base
		for _, idx := range n.Indexes {
			ik, err := c.CheckExp(idx)
			if err != nil {
				return primitive.Kind{}, err
			}
			if ik.Tag != primitive.KindInteger && ik.Tag != primitive.KindPositiveInteger {
				return primitive.Kind{}, typeErr(idx.Span(), "index must be an integer, got %s", ik)
			}
			if cur.Tag != primitive.KindIterable {
				return primitive.Kind{}, typeErr(n.Span(), "cannot index into %s", cur)
			}
			if cur.Elem != nil {
				cur = *cur.Elem
			} else {
				cur = primitive.Simple(primitive.KindAny)
			}
		}
		return c.record(n.Span(), cur), nil
	case *il.FunctionCall:
		argKinds := make([]primitive.Kind, len(n.Args))
		for i, a := range n.Args {
			k, err := c.CheckExp(a)
			if err != nil {
				return primitive.Kind{}, err
			}
			argKinds[i] = k
		}
		fn, ok := c.std.Lookup(n.Name)
		if !ok {
			return primitive.Kind{}, typeErr(n.Span(), "unknown function %q", n.Name)
		}
		ret, err := fn.TypeCheck(argKinds)
		if err != nil {
			return primitive.Kind{}, typeErr(n.Span(), "%s", err)
		}
		return c.record(n.Span(), ret), nil
	case *il.BinaryOperation:
		lk, err := c.CheckExp(n.Lhs)
		if err != nil {
			return primitive.Kind{}, err
		}
		rk, err := c.CheckExp(n.Rhs)
		if err != nil {
			return primitive.Kind{}, err
		}
		k, err := binResultKind(n.Op, lk, rk)
		if err != nil {
			return primitive.Kind{}, typeErr(n.Span(), "%s", err)
		}
		return c.record(n.Span(), k), nil
	case *il.UnaryOperation:
		k, err := c.CheckExp(n.Exp)
		if err != nil {
			return primitive.Kind{}, err
		}
		if !isNumericOrAny(k) {
			return primitive.Kind{}, typeErr(n.Span(), "unary '-' requires a numeric operand, got %s", k)
		}
		return c.record(n.Span(), k), nil
	default:
		return primitive.Kind{}, typeErr(e.Span(), "unsupported expression node")
	}
}

func (c *Checker) checkLit(n *il.PrimitiveLit) (primitive.Kind, error) {
	switch v := n.Value.(type) {
	case il.LitNumber:
		// A literal with no fractional part reads as the narrowest numeric
		// kind (PositiveInteger/Integer) so it satisfies integer-typed
		// builtin parameters like range()'s bounds; this mirrors the
		// PositiveInteger <= Integer <= Number widening lattice applied at
		// the lexical boundary instead of only at arithmetic time.
		f := float64(v)
		switch {
		case f == float64(int64(f)) && f >= 0:
			return c.record(n.Span(), primitive.Simple(primitive.KindPositiveInteger)), nil
		case f == float64(int64(f)):
			return c.record(n.Span(), primitive.Simple(primitive.KindInteger)), nil
		default:
			return c.record(n.Span(), primitive.Simple(primitive.KindNumber)), nil
		}
	case il.LitBool:
		return c.record(n.Span(), primitive.Simple(primitive.KindBoolean)), nil
	case il.LitString:
		return c.record(n.Span(), primitive.Simple(primitive.KindString)), nil
	case il.LitArray:
		var elem primitive.Kind
		mixed := len(v) == 0
		for i, sub := range v {
			k, err := c.CheckExp(sub)
			if err != nil {
				return primitive.Kind{}, err
			}
			if i == 0 {
				elem = k
			} else if elem.Tag != k.Tag {
				mixed = true
			}
		}
		if mixed {
			return c.record(n.Span(), primitive.Iterable(primitive.Simple(primitive.KindAny))), nil
		}
		return c.record(n.Span(), primitive.Iterable(elem)), nil
	case il.LitGraph:
		return c.record(n.Span(), primitive.Simple(primitive.KindGraph)), nil
	default:
		return primitive.Kind{}, typeErr(n.Span(), "unsupported literal")
	}
}

func isFlattenable(k primitive.Kind) bool {
	switch k.Tag {
	case primitive.KindNumber, primitive.KindInteger, primitive.KindPositiveInteger,
		primitive.KindBoolean, primitive.KindString, primitive.KindGraphNode, primitive.KindAny:
		return true
	default:
		return false
	}
}

func binResultKind(op il.BinOp, lhs, rhs primitive.Kind) (primitive.Kind, error) {
	if lhs.Tag == primitive.KindString && rhs.Tag == primitive.KindString && op == il.OpAdd {
		return primitive.Simple(primitive.KindString), nil
	}
	if !isNumericOrAny(lhs) || !isNumericOrAny(rhs) {
		return primitive.Kind{}, &primitive.OperatorError{Op: opName(op), Lhs: lhs, Rhs: &rhs, Reason: "operands must both be numeric"}
	}
	if op == il.OpDiv {
		return primitive.Simple(primitive.KindNumber), nil
	}
	if lhs.Tag == primitive.KindAny || rhs.Tag == primitive.KindAny {
		return primitive.Simple(primitive.KindNumber), nil
	}
	return primitive.Simple(widerRank(lhs.Tag, rhs.Tag)), nil
}

func rank(t primitive.KindTag) int {
	switch t {
	case primitive.KindPositiveInteger:
		return 0
	case primitive.KindInteger:
		return 1
	default:
		return 2
	}
}

func widerRank(a, b primitive.KindTag) primitive.KindTag {
	ra, rb := rank(a), rank(b)
	r := ra
	if rb > ra {
		r = rb
	}
	switch r {
	case 0:
		return primitive.KindPositiveInteger
	case 1:
		return primitive.KindInteger
	default:
		return primitive.KindNumber
	}
}

type opName il.BinOp

func (o opName) String() string {
	switch il.BinOp(o) {
	case il.OpAdd:
		return "+"
	case il.OpSub:
		return "-"
	case il.OpMul:
		return "*"
	case il.OpDiv:
		return "/"
	default:
		return "?"
	}
}
