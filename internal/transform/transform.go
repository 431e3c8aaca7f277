// Package transform lowers a type-checked il.PreModel into a ground
// model.Model: every sum/prod/min/max/avg quantifier expanded, every
// compound-variable name flattened, every constant folded. State lives in a
// Context carrying an explicit LIFO frame stack (never the Go call stack)
// plus the domain map being built up, mirroring the source system's
// TransformerContext.
package transform

import (
	"fmt"
	"math"
	"strings"

	"optex/internal/errors"
	"optex/internal/il"
	"optex/internal/model"
	"optex/internal/primitive"
	"optex/internal/stdlib"
)

// Context is the transformer's mutable state: the frame stack of bound
// names (constants and iteration variables), the model under construction,
// and the running ground-constraint counter used for auto-generated names.
type Context struct {
	frames            []map[string]primitive.Primitive
	Model             *model.Model
	std               stdlib.Table
	constraintCounter int
}

// NewContext returns a fresh transformer context seeded with the anchor
// "standard constants" frame — currently empty, but kept as its own frame so
// future process-wide constants have a home without disturbing frame depth
// bookkeeping.
func NewContext() *Context {
	return &Context{
		frames: []map[string]primitive.Primitive{makeStdConstants()},
		Model:  model.NewModel(),
		std:    stdlib.Std(),
	}
}

func makeStdConstants() map[string]primitive.Primitive {
	return map[string]primitive.Primitive{}
}

func (c *Context) pushFrame() { c.frames = append(c.frames, map[string]primitive.Primitive{}) }

func (c *Context) popFrame() { c.frames = c.frames[:len(c.frames)-1] }

func (c *Context) define(name string, v primitive.Primitive) {
	c.frames[len(c.frames)-1][name] = v
}

func (c *Context) value(name string) (primitive.Primitive, bool) {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if v, ok := c.frames[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

func xerr(kind errors.Kind, span errors.Span, format string, args ...interface{}) error {
	return errors.New(kind, span, format, args...)
}

// Transform runs the full IL to ground-Model lowering.
func Transform(pm *il.PreModel) (*model.Model, error) {
	ctx := NewContext()

	for _, cd := range pm.Constants {
		if ctx.std.IsReserved(cd.Name) {
			return nil, xerr(errors.KindTransform, cd.Span, "%q is reserved and cannot be used as a constant name", cd.Name)
		}
		v, err := ctx.evalExp(cd.Exp)
		if err != nil {
			return nil, err
		}
		ctx.define(cd.Name, v)
	}

	for _, dd := range pm.Domains {
		if err := ctx.transformDomainDecl(dd); err != nil {
			return nil, err
		}
	}

	ctx.Model.Objective.Kind = pm.Objective.Kind
	if pm.Objective.Kind == il.ObjSatisfy {
		ctx.Model.Objective.Exp = model.Number(0)
	} else {
		e, err := ctx.lowerExp(pm.Objective.Exp)
		if err != nil {
			return nil, err
		}
		ctx.Model.Objective.Exp = Simplify(e)
	}

	for i := range pm.Constraints {
		if err := ctx.transformConstraint(&pm.Constraints[i]); err != nil {
			return nil, err
		}
	}

	return ctx.Model, nil
}

// --- resolve: the recursive set resolver shared by scoped block-functions,
// iterated constraints, and iterated domain declarations. ---

func (c *Context) resolve(iters []il.IterableSet, k int, leaf func() error) error {
	if k == len(iters) {
		return leaf()
	}
	it := iters[k]
	iterable, err := c.evalIterable(it.Iterator)
	if err != nil {
		return err
	}
	c.pushFrame()
	defer c.popFrame()
	for _, elem := range iterable.Values {
		if err := c.bindPattern(it.Pattern, elem, it.Span); err != nil {
			return err
		}
		if err := c.resolve(iters, k+1, leaf); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) bindPattern(pattern il.Pattern, elem primitive.Primitive, span errors.Span) error {
	if !pattern.IsTuple() {
		c.define(pattern.Names[0], elem)
		return nil
	}
	parts, err := primitive.Spread(elem)
	if err != nil {
		return xerr(errors.KindTransform, span, "%s", err)
	}
	if len(parts) != len(pattern.Names) {
		return xerr(errors.KindTransform, span, "pattern of arity %d cannot destructure a value of arity %d", len(pattern.Names), len(parts))
	}
	for i, name := range pattern.Names {
		c.define(name, parts[i])
	}
	return nil
}

func (c *Context) evalIterable(e il.PreExp) (primitive.Iterable, error) {
	v, err := c.evalExp(e)
	if err != nil {
		return primitive.Iterable{}, err
	}
	it, ok := v.(primitive.Iterable)
	if !ok {
		return primitive.Iterable{}, xerr(errors.KindTransform, e.Span(), "expected an iterable, got %s", v.Kind())
	}
	return it, nil
}

// --- domain declarations ---

func (c *Context) transformDomainDecl(dd il.DomainDecl) error {
	return c.resolve(dd.Iters, 0, func() error {
		for _, ref := range dd.Refs {
			name, err := c.flattenName(ref.Name, ref.Indexes)
			if err != nil {
				return err
			}
			vt, err := c.evalVariableType(dd.Type)
			if err != nil {
				return err
			}
			if existing, ok := c.Model.Domains[name]; ok {
				if existing.Type.Kind != vt.Kind {
					return xerr(errors.KindTransform, dd.Span, "%q already declared with a different domain kind", name)
				}
				continue
			}
			c.Model.Declare(name, vt, dd.Span)
		}
		return nil
	})
}

func (c *Context) evalVariableType(t il.PreVariableType) (model.VariableType, error) {
	vt := model.VariableType{Kind: t.Kind}
	if t.Kind == il.VarBoolean {
		return vt, nil
	}
	if t.Min != nil {
		v, err := c.evalExp(t.Min)
		if err != nil {
			return model.VariableType{}, err
		}
		n, err := primitive.AsNumber(v)
		if err != nil {
			return model.VariableType{}, xerr(errors.KindTransform, t.Min.Span(), "%s", err)
		}
		vt.Min = n
	} else if t.Kind == il.VarNonNegativeReal {
		vt.Min = 0
	} else {
		vt.Min = math.Inf(-1)
	}
	if t.Max != nil {
		v, err := c.evalExp(t.Max)
		if err != nil {
			return model.VariableType{}, err
		}
		n, err := primitive.AsNumber(v)
		if err != nil {
			return model.VariableType{}, xerr(errors.KindTransform, t.Max.Span(), "%s", err)
		}
		vt.Max = n
	} else {
		vt.Max = math.Inf(1)
	}
	return vt, nil
}

// flattenName computes the ground name of a (possibly compound) variable
// reference: the base name, with each index expression evaluated and
// formatted per primitive.FormatForName, joined by "_".
func (c *Context) flattenName(base string, indexes []il.PreExp) (string, error) {
	if len(indexes) == 0 {
		return base, nil
	}
	parts := make([]string, 0, len(indexes)+1)
	parts = append(parts, base)
	for _, idx := range indexes {
		v, err := c.evalExp(idx)
		if err != nil {
			return "", err
		}
		s, err := primitive.FormatForName(v)
		if err != nil {
			return "", xerr(errors.KindTransform, idx.Span(), "%s", err)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "_"), nil
}

// --- constraints ---

func (c *Context) transformConstraint(pc *il.PreConstraint) error {
	return c.resolve(pc.Iters, 0, func() error {
		lhs, err := c.lowerExp(pc.Lhs)
		if err != nil {
			return err
		}
		rhs, err := c.lowerExp(pc.Rhs)
		if err != nil {
			return err
		}
		name, err := c.constraintName(pc)
		if err != nil {
			return err
		}
		c.Model.Constraints = append(c.Model.Constraints, model.Constraint{
			Name:       name,
			Lhs:        Simplify(lhs),
			Comparison: pc.Comparison,
			Rhs:        Simplify(rhs),
		})
		return nil
	})
}

func (c *Context) constraintName(pc *il.PreConstraint) (string, error) {
	if pc.Name != nil {
		switch n := pc.Name.(type) {
		case *il.Variable:
			return n.Name, nil
		case *il.CompoundVariable:
			return c.flattenName(n.Name, n.Indexes)
		}
		v, err := c.evalExp(pc.Name)
		if err != nil {
			return "", err
		}
		s, err := primitive.FormatForName(v)
		if err != nil {
			return "", xerr(errors.KindTransform, pc.Name.Span(), "%s", err)
		}
		return s, nil
	}
	name := fmt.Sprintf("_c%d", c.constraintCounter)
	c.constraintCounter++
	return name, nil
}

// --- full constant evaluation (evalExp) ---

func (c *Context) evalExp(e il.PreExp) (primitive.Primitive, error) {
	switch n := e.(type) {
	case *il.PrimitiveLit:
		return c.evalLit(n)
	case *il.Abs:
		v, err := c.evalExp(n.Exp)
		if err != nil {
			return nil, err
		}
		f, err := primitive.AsNumber(v)
		if err != nil {
			return nil, xerr(errors.KindTransform, n.Span(), "%s", err)
		}
		return primitive.Number(math.Abs(f)), nil
	case *il.BlockFunction:
		vals := make([]float64, len(n.Exps))
		for i, sub := range n.Exps {
			v, err := c.evalExp(sub)
			if err != nil {
				return nil, err
			}
			f, err := primitive.AsNumber(v)
			if err != nil {
				return nil, xerr(errors.KindTransform, sub.Span(), "%s", err)
			}
			vals[i] = f
		}
		return primitive.Number(reduceFloats(n.FnKind, vals)), nil
	case *il.BlockScopedFunction:
		var vals []float64
		err := c.resolve(n.Iters, 0, func() error {
			v, err := c.evalExp(n.Body)
			if err != nil {
				return err
			}
			f, err := primitive.AsNumber(v)
			if err != nil {
				return xerr(errors.KindTransform, n.Body.Span(), "%s", err)
			}
			vals = append(vals, f)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return primitive.Number(reduceFloats(n.FnKind, vals)), nil
	case *il.Variable:
		v, ok := c.value(n.Name)
		if !ok {
			return nil, xerr(errors.KindTransform, n.Span(), "undeclared variable %q", n.Name)
		}
		return v, nil
	case *il.CompoundVariable:
		name, err := c.flattenName(n.Name, n.Indexes)
		if err != nil {
			return nil, err
		}
		v, ok := c.value(name)
		if !ok {
			return nil, xerr(errors.KindTransform, n.Span(), "undeclared variable %q", name)
		}
		return v, nil
	case *il.AddressableAccess:
		base, ok := c.value(n.Name)
		if !ok {
			return nil, xerr(errors.KindTransform, n.Span(), "undeclared variable %q", n.Name)
		}
		indices := make([]int, len(n.Indexes))
		for i, idx := range n.Indexes {
			v, err := c.evalExp(idx)
			if err != nil {
				return nil, err
			}
			u, err := primitive.AsUsize(v)
			if err != nil {
				return nil, xerr(errors.KindTransform, idx.Span(), "%s", err)
			}
			indices[i] = u
		}
		out, err := primitive.Read(base, indices)
		if err != nil {
			return nil, xerr(errors.KindTransform, n.Span(), "%s", err)
		}
		return out, nil
	case *il.FunctionCall:
		fn, ok := c.std.Lookup(n.Name)
		if !ok {
			return nil, xerr(errors.KindTransform, n.Span(), "NonExistentFunction: %q", n.Name)
		}
		args := make([]primitive.Primitive, len(n.Args))
		for i, a := range n.Args {
			v, err := c.evalExp(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		out, err := fn.Call(args)
		if err != nil {
			return nil, xerr(errors.KindTransform, n.Span(), "%s", err)
		}
		return out, nil
	case *il.BinaryOperation:
		l, err := c.evalExp(n.Lhs)
		if err != nil {
			return nil, err
		}
		r, err := c.evalExp(n.Rhs)
		if err != nil {
			return nil, err
		}
		out, err := primitive.ApplyBinary(toPrimBinOp(n.Op), l, r)
		if err != nil {
			return nil, xerr(errors.KindTransform, n.Span(), "%s", err)
		}
		return out, nil
	case *il.UnaryOperation:
		v, err := c.evalExp(n.Exp)
		if err != nil {
			return nil, err
		}
		out, err := primitive.ApplyUnary(primitive.OpNeg, v)
		if err != nil {
			return nil, xerr(errors.KindTransform, n.Span(), "%s", err)
		}
		return out, nil
	default:
		return nil, xerr(errors.KindTransform, e.Span(), "unsupported expression node")
	}
}

func (c *Context) evalLit(n *il.PrimitiveLit) (primitive.Primitive, error) {
	switch v := n.Value.(type) {
	case il.LitNumber:
		f := float64(v)
		if f == float64(int64(f)) && f >= 0 {
			return primitive.PositiveInteger(f), nil
		}
		if f == float64(int64(f)) {
			return primitive.Integer(f), nil
		}
		return primitive.Number(f), nil
	case il.LitBool:
		return primitive.Boolean(v), nil
	case il.LitString:
		return primitive.String(v), nil
	case il.LitArray:
		vals := make([]primitive.Primitive, len(v))
		for i, sub := range v {
			pv, err := c.evalExp(sub)
			if err != nil {
				return nil, err
			}
			vals[i] = pv
		}
		return primitive.FlattenPrimitiveArray(vals), nil
	case il.LitGraph:
		nodes := make([]primitive.GraphNode, len(v.Nodes))
		for i, ln := range v.Nodes {
			edges := make([]primitive.GraphEdge, len(ln.Edges))
			for j, le := range ln.Edges {
				edges[j] = primitive.NewGraphEdge(ln.Name, le.To, le.Weight)
			}
			nodes[i] = primitive.NewGraphNode(ln.Name, edges)
		}
		return primitive.NewGraph(nodes), nil
	default:
		return nil, xerr(errors.KindTransform, n.Span(), "unsupported literal")
	}
}

func toPrimBinOp(op il.BinOp) primitive.BinOp {
	switch op {
	case il.OpAdd:
		return primitive.OpAdd
	case il.OpSub:
		return primitive.OpSub
	case il.OpMul:
		return primitive.OpMul
	default:
		return primitive.OpDiv
	}
}

func reduceFloats(kind il.BlockFunctionKind, vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	switch kind {
	case il.BlockSum:
		s := 0.0
		for _, v := range vals {
			s += v
		}
		return s
	case il.BlockProd:
		p := 1.0
		for _, v := range vals {
			p *= v
		}
		return p
	case il.BlockMin:
		m := vals[0]
		for _, v := range vals[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case il.BlockMax:
		m := vals[0]
		for _, v := range vals[1:] {
			if v > m {
				m = v
			}
		}
		return m
	default: // BlockAvg
		s := 0.0
		for _, v := range vals {
			s += v
		}
		return s / float64(len(vals))
	}
}

// --- ground-algebra lowering (lowerExp) ---

// lowerExp lowers an IL expression to a model.Exp, folding any subtree that
// evaluates to a concrete primitive (a constant, a fully-indexed access, a
// function call over known values) to model.Number, and leaving references
// to domain variables symbolic.
func (c *Context) lowerExp(e il.PreExp) (model.Exp, error) {
	switch n := e.(type) {
	case *il.PrimitiveLit:
		v, err := c.evalLit(n)
		if err != nil {
			return nil, err
		}
		f, err := primitive.AsNumber(v)
		if err != nil {
			return nil, xerr(errors.KindTransform, n.Span(), "%s", err)
		}
		return model.Number(f), nil
	case *il.Abs:
		child, err := c.lowerExp(n.Exp)
		if err != nil {
			return nil, err
		}
		return model.Abs{Exp: child}, nil
	case *il.BlockFunction:
		children := make([]model.Exp, len(n.Exps))
		for i, sub := range n.Exps {
			ch, err := c.lowerExp(sub)
			if err != nil {
				return nil, err
			}
			children[i] = ch
		}
		return reduceExps(n.FnKind, children), nil
	case *il.BlockScopedFunction:
		var children []model.Exp
		err := c.resolve(n.Iters, 0, func() error {
			ch, err := c.lowerExp(n.Body)
			if err != nil {
				return err
			}
			children = append(children, ch)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return reduceExps(n.FnKind, children), nil
	case *il.Variable:
		if v, ok := c.value(n.Name); ok {
			f, err := primitive.AsNumber(v)
			if err != nil {
				return nil, xerr(errors.KindTransform, n.Span(), "%s", err)
			}
			return model.Number(f), nil
		}
		if _, ok := c.Model.Domains[n.Name]; !ok {
			return nil, xerr(errors.KindTransform, n.Span(), "variable %q has no domain declaration", n.Name)
		}
		c.Model.MarkUsed(n.Name)
		return model.Variable(n.Name), nil
	case *il.CompoundVariable:
		name, err := c.flattenName(n.Name, n.Indexes)
		if err != nil {
			return nil, err
		}
		if _, ok := c.Model.Domains[name]; !ok {
			return nil, xerr(errors.KindTransform, n.Span(), "variable %q has no domain declaration", name)
		}
		c.Model.MarkUsed(name)
		return model.Variable(name), nil
	case *il.AddressableAccess:
		v, err := c.evalExp(n)
		if err != nil {
			return nil, err
		}
		f, err := primitive.AsNumber(v)
		if err != nil {
			return nil, xerr(errors.KindTransform, n.Span(), "%s", err)
		}
		return model.Number(f), nil
	case *il.FunctionCall:
		v, err := c.evalExp(n)
		if err != nil {
			return nil, err
		}
		f, err := primitive.AsNumber(v)
		if err != nil {
			return nil, xerr(errors.KindTransform, n.Span(), "%s", err)
		}
		return model.Number(f), nil
	case *il.BinaryOperation:
		lhs, err := c.lowerExp(n.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := c.lowerExp(n.Rhs)
		if err != nil {
			return nil, err
		}
		return Simplify(model.BinaryOp{Op: n.Op, Lhs: lhs, Rhs: rhs}), nil
	case *il.UnaryOperation:
		ch, err := c.lowerExp(n.Exp)
		if err != nil {
			return nil, err
		}
		return Simplify(model.UnaryNeg{Exp: ch}), nil
	default:
		return nil, xerr(errors.KindTransform, e.Span(), "unsupported expression node")
	}
}

func reduceExps(kind il.BlockFunctionKind, children []model.Exp) model.Exp {
	if len(children) == 0 {
		return model.Number(0)
	}
	switch kind {
	case il.BlockSum:
		acc := children[0]
		for _, ch := range children[1:] {
			acc = Simplify(model.BinaryOp{Op: model.OpAdd, Lhs: acc, Rhs: ch})
		}
		return acc
	case il.BlockProd:
		acc := children[0]
		for _, ch := range children[1:] {
			acc = Simplify(model.BinaryOp{Op: model.OpMul, Lhs: acc, Rhs: ch})
		}
		return acc
	case il.BlockMin:
		return Simplify(model.Min{Children: children})
	case il.BlockMax:
		return Simplify(model.Max{Children: children})
	default: // BlockAvg
		sum := children[0]
		for _, ch := range children[1:] {
			sum = Simplify(model.BinaryOp{Op: model.OpAdd, Lhs: sum, Rhs: ch})
		}
		return Simplify(model.BinaryOp{Op: model.OpDiv, Lhs: sum, Rhs: model.Number(float64(len(children)))})
	}
}
