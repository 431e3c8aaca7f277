package transform

import "optex/internal/model"

// Simplify applies the transformer's algebraic simplification and
// distributive/sign-pull flattening rules exhaustively: children are
// simplified first, then rewrite rules are applied at this node, and if a
// rule changed the node's shape the result is simplified again (a
// distributive step can expose a fresh constant fold, etc).
func Simplify(e model.Exp) model.Exp {
	e = simplifyChildren(e)
	rewritten := rewriteOnce(e)
	if rewritten.String() != e.String() {
		return Simplify(rewritten)
	}
	return rewritten
}

func simplifyChildren(e model.Exp) model.Exp {
	switch n := e.(type) {
	case model.BinaryOp:
		return model.BinaryOp{Op: n.Op, Lhs: Simplify(n.Lhs), Rhs: Simplify(n.Rhs)}
	case model.UnaryNeg:
		return model.UnaryNeg{Exp: Simplify(n.Exp)}
	case model.Abs:
		return model.Abs{Exp: Simplify(n.Exp)}
	case model.Min:
		children := make([]model.Exp, len(n.Children))
		for i, ch := range n.Children {
			children[i] = Simplify(ch)
		}
		return model.Min{Children: children}
	case model.Max:
		children := make([]model.Exp, len(n.Children))
		for i, ch := range n.Children {
			children[i] = Simplify(ch)
		}
		return model.Max{Children: children}
	default:
		return e
	}
}

func rewriteOnce(e model.Exp) model.Exp {
	switch n := e.(type) {
	case model.BinaryOp:
		return rewriteBinOp(n)
	case model.UnaryNeg:
		if nv, ok := n.Exp.(model.Number); ok {
			return model.Number(-float64(nv))
		}
		return n
	case model.Min:
		if vals, ok := allNumbers(n.Children); ok {
			m := vals[0]
			for _, v := range vals[1:] {
				if v < m {
					m = v
				}
			}
			return model.Number(m)
		}
		return n
	case model.Max:
		if vals, ok := allNumbers(n.Children); ok {
			m := vals[0]
			for _, v := range vals[1:] {
				if v > m {
					m = v
				}
			}
			return model.Number(m)
		}
		return n
	default:
		return e
	}
}

func allNumbers(es []model.Exp) ([]float64, bool) {
	vals := make([]float64, len(es))
	for i, e := range es {
		n, ok := e.(model.Number)
		if !ok {
			return nil, false
		}
		vals[i] = float64(n)
	}
	return vals, true
}

func isZero(e model.Exp) bool { n, ok := e.(model.Number); return ok && float64(n) == 0 }
func isOne(e model.Exp) bool  { n, ok := e.(model.Number); return ok && float64(n) == 1 }

func applyNumOp(op model.BinOp, a, b float64) float64 {
	switch op {
	case model.OpAdd:
		return a + b
	case model.OpSub:
		return a - b
	case model.OpMul:
		return a * b
	default:
		return a / b
	}
}

func rewriteBinOp(n model.BinaryOp) model.Exp {
	l, r := n.Lhs, n.Rhs

	if ln, ok := l.(model.Number); ok {
		if rn, ok2 := r.(model.Number); ok2 {
			if !(n.Op == model.OpDiv && float64(rn) == 0) {
				return model.Number(applyNumOp(n.Op, float64(ln), float64(rn)))
			}
		}
	}

	switch n.Op {
	case model.OpAdd:
		if isZero(l) {
			return r
		}
		if isZero(r) {
			return l
		}
	case model.OpSub:
		if isZero(r) {
			return l
		}
	case model.OpMul:
		if isZero(l) || isZero(r) {
			return model.Number(0)
		}
		if isOne(l) {
			return r
		}
		if isOne(r) {
			return l
		}
	case model.OpDiv:
		if isZero(l) {
			return model.Number(0)
		}
		if isOne(r) {
			return l
		}
	}

	// Associativity: k1 op (k2 op inner) with equal ops, both constants.
	if n.Op == model.OpAdd || n.Op == model.OpMul {
		if ln, ok := l.(model.Number); ok {
			if inner, ok := r.(model.BinaryOp); ok && inner.Op == n.Op {
				if innerNum, ok := inner.Lhs.(model.Number); ok {
					return model.BinaryOp{Op: n.Op, Lhs: model.Number(applyNumOp(n.Op, float64(ln), float64(innerNum))), Rhs: inner.Rhs}
				}
				if innerNum, ok := inner.Rhs.(model.Number); ok {
					return model.BinaryOp{Op: n.Op, Lhs: model.Number(applyNumOp(n.Op, float64(ln), float64(innerNum))), Rhs: inner.Lhs}
				}
			}
		}
	}

	if n.Op == model.OpMul {
		if lb, ok := l.(model.BinaryOp); ok && (lb.Op == model.OpAdd || lb.Op == model.OpSub) {
			return model.BinaryOp{Op: lb.Op,
				Lhs: model.BinaryOp{Op: model.OpMul, Lhs: lb.Lhs, Rhs: r},
				Rhs: model.BinaryOp{Op: model.OpMul, Lhs: lb.Rhs, Rhs: r}}
		}
		if rb, ok := r.(model.BinaryOp); ok && (rb.Op == model.OpAdd || rb.Op == model.OpSub) {
			return model.BinaryOp{Op: rb.Op,
				Lhs: model.BinaryOp{Op: model.OpMul, Lhs: l, Rhs: rb.Lhs},
				Rhs: model.BinaryOp{Op: model.OpMul, Lhs: l, Rhs: rb.Rhs}}
		}
		if ln, ok := l.(model.UnaryNeg); ok {
			return model.UnaryNeg{Exp: model.BinaryOp{Op: model.OpMul, Lhs: ln.Exp, Rhs: r}}
		}
		if rn, ok := r.(model.UnaryNeg); ok {
			return model.UnaryNeg{Exp: model.BinaryOp{Op: model.OpMul, Lhs: l, Rhs: rn.Exp}}
		}
	}

	if n.Op == model.OpDiv {
		if lb, ok := l.(model.BinaryOp); ok && (lb.Op == model.OpAdd || lb.Op == model.OpSub) {
			return model.BinaryOp{Op: lb.Op,
				Lhs: model.BinaryOp{Op: model.OpDiv, Lhs: lb.Lhs, Rhs: r},
				Rhs: model.BinaryOp{Op: model.OpDiv, Lhs: lb.Rhs, Rhs: r}}
		}
	}

	return model.BinaryOp{Op: n.Op, Lhs: l, Rhs: r}
}
