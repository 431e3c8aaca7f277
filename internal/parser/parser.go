// Package parser turns a lexer.Token stream into an il.PreModel: precedence,
// implicit multiplication, comment stripping (done by the lexer) and
// compound-variable braces. This is a hand-written recursive-descent
// parser rather than a generated one.
package parser

import (
	"fmt"
	"strconv"

	"optex/internal/errors"
	"optex/internal/il"
	"optex/internal/lexer"
)

type Parser struct {
	tokens  []lexer.Token
	current int
	file    string
}

func New(tokens []lexer.Token, file string) *Parser {
	return &Parser{tokens: tokens, file: file}
}

func Parse(source, file string) (*il.PreModel, error) {
	toks := lexer.NewScanner(source).ScanTokens()
	p := New(toks, file)
	return p.ParseProblem()
}

// --- token stream helpers ---

func (p *Parser) peek() lexer.Token { return p.tokens[p.current] }

func (p *Parser) previous() lexer.Token { return p.tokens[p.current-1] }

func (p *Parser) isAtEnd() bool { return p.peek().Type == lexer.TokEOF }

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) check(t lexer.TokenType) bool {
	return !p.isAtEnd() && p.peek().Type == t
}

func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) skipNewlines() {
	for p.check(lexer.TokNewline) {
		p.advance()
	}
}

func (p *Parser) span(tok lexer.Token) errors.Span {
	return errors.Span{File: p.file, Line: tok.Line, Column: tok.Column, Source: tok.Lexeme}
}

func (p *Parser) errAt(tok lexer.Token, format string, args ...interface{}) error {
	return errors.New(errors.KindParse, p.span(tok), format, args...)
}

func (p *Parser) consume(t lexer.TokenType, msg string) (lexer.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return lexer.Token{}, p.errAt(p.peek(), "expected %s: %s (found %q)", t, msg, p.peek().Lexeme)
}

// --- top level ---

func (p *Parser) ParseProblem() (*il.PreModel, error) {
	p.skipNewlines()
	obj, err := p.parseObjective()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if _, err := p.consume(lexer.TokSubjectTo, "'s.t.' or 'subject to'"); err != nil {
		return nil, err
	}
	p.skipNewlines()

	var constraints []il.PreConstraint
	for !p.isAtEnd() && !p.check(lexer.TokWhere) && !p.check(lexer.TokDefine) {
		c, err := p.parseConstraint()
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, c)
		p.skipNewlines()
	}

	var constants []il.ConstantDecl
	if p.match(lexer.TokWhere) {
		p.skipNewlines()
		for !p.isAtEnd() && !p.check(lexer.TokDefine) {
			cd, err := p.parseConstantDecl()
			if err != nil {
				return nil, err
			}
			constants = append(constants, cd)
			p.skipNewlines()
		}
	}

	var domains []il.DomainDecl
	if p.match(lexer.TokDefine) {
		p.skipNewlines()
		for !p.isAtEnd() {
			dd, err := p.parseDomainDecl()
			if err != nil {
				return nil, err
			}
			domains = append(domains, dd)
			p.skipNewlines()
		}
	}

	return &il.PreModel{Objective: obj, Constraints: constraints, Constants: constants, Domains: domains}, nil
}

func (p *Parser) parseObjective() (il.Objective, error) {
	tok := p.peek()
	switch {
	case p.match(lexer.TokMin):
		exp, err := p.parseExpr()
		if err != nil {
			return il.Objective{}, err
		}
		return il.Objective{Kind: il.ObjMin, Exp: exp, Span: p.span(tok)}, nil
	case p.match(lexer.TokMax):
		exp, err := p.parseExpr()
		if err != nil {
			return il.Objective{}, err
		}
		return il.Objective{Kind: il.ObjMax, Exp: exp, Span: p.span(tok)}, nil
	case p.match(lexer.TokSolve):
		return il.Objective{Kind: il.ObjSatisfy, Span: p.span(tok)}, nil
	default:
		return il.Objective{}, p.errAt(tok, "expected 'min', 'max' or 'solve'")
	}
}

func (p *Parser) parseConstraint() (il.PreConstraint, error) {
	start := p.peek()
	var name il.PreExp
	// name ":" lookahead: an identifier/string immediately followed by ':'.
	if p.check(lexer.TokIdent) || p.check(lexer.TokString) {
		save := p.current
		nameExp, err := p.parsePrimary()
		if err == nil && p.check(lexer.TokColon) {
			p.advance()
			name = nameExp
		} else {
			p.current = save
		}
	}
	lhs, err := p.parseExpr()
	if err != nil {
		return il.PreConstraint{}, err
	}
	cmp, err := p.parseComparison()
	if err != nil {
		return il.PreConstraint{}, err
	}
	rhs, err := p.parseExpr()
	if err != nil {
		return il.PreConstraint{}, err
	}
	var iters []il.IterableSet
	if p.match(lexer.TokFor) {
		iters, err = p.parseIterList()
		if err != nil {
			return il.PreConstraint{}, err
		}
	}
	return il.PreConstraint{Name: name, Lhs: lhs, Comparison: cmp, Rhs: rhs, Iters: iters, Span: p.span(start)}, nil
}

func (p *Parser) parseComparison() (il.Comparison, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.TokLe:
		p.advance()
		return il.CmpLessOrEqual, nil
	case lexer.TokLt:
		p.advance()
		return il.CmpLess, nil
	case lexer.TokEq:
		p.advance()
		return il.CmpEqual, nil
	case lexer.TokGt:
		p.advance()
		return il.CmpGreater, nil
	case lexer.TokGe:
		p.advance()
		return il.CmpGreaterOrEqual, nil
	default:
		return 0, p.errAt(tok, "expected a comparison operator")
	}
}

func (p *Parser) parseConstantDecl() (il.ConstantDecl, error) {
	letTok, err := p.consume(lexer.TokLet, "'let'")
	if err != nil {
		return il.ConstantDecl{}, err
	}
	nameTok, err := p.consume(lexer.TokIdent, "constant name")
	if err != nil {
		return il.ConstantDecl{}, err
	}
	if _, err := p.consume(lexer.TokEq, "'='"); err != nil {
		return il.ConstantDecl{}, err
	}
	exp, err := p.parseExpr()
	if err != nil {
		return il.ConstantDecl{}, err
	}
	return il.ConstantDecl{Name: nameTok.Lexeme, Exp: exp, Span: p.span(letTok)}, nil
}

func (p *Parser) parseDomainDecl() (il.DomainDecl, error) {
	start := p.peek()
	var refs []il.DomainRef
	for {
		ref, err := p.parseDomainRef()
		if err != nil {
			return il.DomainDecl{}, err
		}
		refs = append(refs, ref)
		if !p.match(lexer.TokComma) {
			break
		}
	}
	if _, err := p.consume(lexer.TokAs, "'as'"); err != nil {
		return il.DomainDecl{}, err
	}
	typ, err := p.parseVariableType()
	if err != nil {
		return il.DomainDecl{}, err
	}
	var iters []il.IterableSet
	if p.match(lexer.TokFor) {
		iters, err = p.parseIterList()
		if err != nil {
			return il.DomainDecl{}, err
		}
	}
	return il.DomainDecl{Refs: refs, Type: typ, Iters: iters, Span: p.span(start)}, nil
}

func (p *Parser) parseDomainRef() (il.DomainRef, error) {
	tok, err := p.consume(lexer.TokIdent, "variable name")
	if err != nil {
		return il.DomainRef{}, err
	}
	var indexes []il.PreExp
	if p.check(lexer.TokUnderscore) {
		indexes, err = p.parseCompoundIndexes()
		if err != nil {
			return il.DomainRef{}, err
		}
	}
	return il.DomainRef{Name: tok.Lexeme, Indexes: indexes, Span: p.span(tok)}, nil
}

func (p *Parser) parseVariableType() (il.PreVariableType, error) {
	tok, err := p.consume(lexer.TokIdent, "a type name")
	if err != nil {
		return il.PreVariableType{}, err
	}
	var kind il.VariableKind
	switch tok.Lexeme {
	case "Real":
		kind = il.VarReal
	case "NonNegativeReal":
		kind = il.VarNonNegativeReal
	case "Integer":
		kind = il.VarInteger
	case "IntegerRange":
		kind = il.VarIntegerRange
	case "Boolean":
		kind = il.VarBoolean
	default:
		return il.PreVariableType{}, p.errAt(tok, "unknown variable type %q", tok.Lexeme)
	}
	if kind == il.VarBoolean {
		return il.PreVariableType{Kind: kind}, nil
	}
	if !p.check(lexer.TokLParen) {
		if kind == il.VarIntegerRange {
			return il.PreVariableType{}, p.errAt(p.peek(), "IntegerRange requires explicit (min, max) bounds")
		}
		return il.PreVariableType{Kind: kind}, nil
	}
	p.advance()
	min, err := p.parseExpr()
	if err != nil {
		return il.PreVariableType{}, err
	}
	if _, err := p.consume(lexer.TokComma, "','"); err != nil {
		return il.PreVariableType{}, err
	}
	max, err := p.parseExpr()
	if err != nil {
		return il.PreVariableType{}, err
	}
	if _, err := p.consume(lexer.TokRParen, "')'"); err != nil {
		return il.PreVariableType{}, err
	}
	return il.PreVariableType{Kind: kind, Min: min, Max: max}, nil
}

func (p *Parser) parseIterList() ([]il.IterableSet, error) {
	var iters []il.IterableSet
	for {
		it, err := p.parseIter()
		if err != nil {
			return nil, err
		}
		iters = append(iters, it)
		if !p.match(lexer.TokComma) {
			break
		}
	}
	return iters, nil
}

func (p *Parser) parseIter() (il.IterableSet, error) {
	start := p.peek()
	pattern, err := p.parsePattern()
	if err != nil {
		return il.IterableSet{}, err
	}
	if _, err := p.consume(lexer.TokIn, "'in'"); err != nil {
		return il.IterableSet{}, err
	}
	iterExp, err := p.parseExpr()
	if err != nil {
		return il.IterableSet{}, err
	}
	return il.NewIterableSet(p.span(start), pattern, iterExp), nil
}

func (p *Parser) parsePattern() (il.Pattern, error) {
	if p.match(lexer.TokLParen) {
		var names []string
		for {
			tok, err := p.consume(lexer.TokIdent, "pattern name")
			if err != nil {
				return il.Pattern{}, err
			}
			names = append(names, tok.Lexeme)
			if !p.match(lexer.TokComma) {
				break
			}
		}
		if _, err := p.consume(lexer.TokRParen, "')'"); err != nil {
			return il.Pattern{}, err
		}
		return il.TuplePattern(names...), nil
	}
	tok, err := p.consume(lexer.TokIdent, "pattern name")
	if err != nil {
		return il.Pattern{}, err
	}
	return il.SinglePattern(tok.Lexeme), nil
}

// --- expressions ---

func (p *Parser) parseExpr() (il.PreExp, error) { return p.parseAdditive() }

func (p *Parser) parseAdditive() (il.PreExp, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.TokPlus) || p.check(lexer.TokMinus) {
		opTok := p.advance()
		op := il.OpAdd
		if opTok.Type == lexer.TokMinus {
			op = il.OpSub
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = il.NewBinaryOperation(p.span(opTok), op, left, right)
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (il.PreExp, error) {
	left, leftIsAtomic, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if p.check(lexer.TokStar) || p.check(lexer.TokSlash) {
			opTok := p.advance()
			op := il.OpMul
			if opTok.Type == lexer.TokSlash {
				op = il.OpDiv
			}
			right, _, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = il.NewBinaryOperation(p.span(opTok), op, left, right)
			leftIsAtomic = false
			continue
		}
		// Implicit multiplication: a number or parenthesized/abs group
		// immediately followed by a variable/call/parenthesized/abs
		// group reads as multiplication.
		if leftIsAtomic && p.startsMultiplicand() {
			tok := p.peek()
			right, _, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = il.NewBinaryOperation(p.span(tok), il.OpMul, left, right)
			continue
		}
		break
	}
	return left, nil
}

func (p *Parser) startsMultiplicand() bool {
	switch p.peek().Type {
	case lexer.TokIdent, lexer.TokLParen, lexer.TokPipe, lexer.TokMin, lexer.TokMax, lexer.TokAvg, lexer.TokSum, lexer.TokProd:
		return true
	default:
		return false
	}
}

func (p *Parser) parseUnary() (il.PreExp, bool, error) {
	if p.check(lexer.TokMinus) {
		tok := p.advance()
		exp, _, err := p.parseUnary()
		if err != nil {
			return nil, false, err
		}
		return il.NewUnaryOperation(p.span(tok), il.OpNeg, exp), false, nil
	}
	return p.parsePrimaryAtomic()
}

// parsePrimaryAtomic parses a primary and reports whether it is a "numeric
// atom" for the purposes of the implicit-multiplication rule: a bare number
// literal, or a parenthesized/abs group.
func (p *Parser) parsePrimaryAtomic() (il.PreExp, bool, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.TokNumber:
		exp, err := p.parsePrimary()
		return exp, true, err
	case lexer.TokLParen:
		exp, err := p.parsePrimary()
		return exp, true, err
	case lexer.TokPipe:
		exp, err := p.parsePrimary()
		return exp, true, err
	default:
		exp, err := p.parsePrimary()
		return exp, false, err
	}
}

func (p *Parser) parsePrimary() (il.PreExp, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.TokNumber:
		p.advance()
		v, _ := strconv.ParseFloat(tok.Lexeme, 64)
		return il.NewPrimitiveLit(p.span(tok), il.LitNumber(v)), nil
	case lexer.TokString:
		p.advance()
		return il.NewPrimitiveLit(p.span(tok), il.LitString(tok.Lexeme)), nil
	case lexer.TokTrue:
		p.advance()
		return il.NewPrimitiveLit(p.span(tok), il.LitBool(true)), nil
	case lexer.TokFalse:
		p.advance()
		return il.NewPrimitiveLit(p.span(tok), il.LitBool(false)), nil
	case lexer.TokLParen:
		p.advance()
		exp, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.TokRParen, "')'"); err != nil {
			return nil, err
		}
		return exp, nil
	case lexer.TokPipe:
		p.advance()
		exp, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.TokPipe, "'|'"); err != nil {
			return nil, err
		}
		return il.NewAbs(p.span(tok), exp), nil
	case lexer.TokLBrack:
		return p.parseArrayLiteral()
	case lexer.TokGraph:
		return p.parseGraphLiteral()
	case lexer.TokMin, lexer.TokMax, lexer.TokAvg, lexer.TokSum, lexer.TokProd:
		return p.parseBlockOrScoped()
	case lexer.TokIdent:
		return p.parseIdentLed()
	default:
		return nil, p.errAt(tok, "unexpected token %q", tok.Lexeme)
	}
}

func (p *Parser) parseArrayLiteral() (il.PreExp, error) {
	start := p.advance() // '['
	var elems []il.PreExp
	if !p.check(lexer.TokRBrack) {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	if _, err := p.consume(lexer.TokRBrack, "']'"); err != nil {
		return nil, err
	}
	return il.NewPrimitiveLit(p.span(start), il.LitArray(elems)), nil
}

func (p *Parser) parseGraphLiteral() (il.PreExp, error) {
	start := p.advance() // 'Graph'
	if _, err := p.consume(lexer.TokLBrace, "'{'"); err != nil {
		return nil, err
	}
	var nodes []il.LitGraphNode
	for !p.check(lexer.TokRBrace) {
		nameTok, err := p.consume(lexer.TokIdent, "node name")
		if err != nil {
			return nil, err
		}
		node := il.LitGraphNode{Name: nameTok.Lexeme}
		if p.match(lexer.TokMinus) {
			if _, err := p.consume(lexer.TokGt, "'->'"); err != nil {
				return nil, err
			}
			if _, err := p.consume(lexer.TokLBrack, "'[' before edge list"); err != nil {
				return nil, err
			}
			for !p.check(lexer.TokRBrack) {
				toTok, err := p.consume(lexer.TokIdent, "edge target")
				if err != nil {
					return nil, err
				}
				edge := il.LitGraphEdge{To: toTok.Lexeme}
				if p.match(lexer.TokColon) {
					neg := p.match(lexer.TokMinus)
					wTok, err := p.consume(lexer.TokNumber, "edge weight")
					if err != nil {
						return nil, err
					}
					w, _ := strconv.ParseFloat(wTok.Lexeme, 64)
					if neg {
						w = -w
					}
					edge.Weight = &w
				}
				node.Edges = append(node.Edges, edge)
				if !p.match(lexer.TokComma) {
					break
				}
			}
			if _, err := p.consume(lexer.TokRBrack, "']' after edge list"); err != nil {
				return nil, err
			}
		}
		nodes = append(nodes, node)
		if !p.match(lexer.TokComma) {
			break
		}
	}
	if _, err := p.consume(lexer.TokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return il.NewPrimitiveLit(p.span(start), il.LitGraph{Nodes: nodes}), nil
}

func (p *Parser) parseBlockOrScoped() (il.PreExp, error) {
	tok := p.advance()
	var kind il.BlockFunctionKind
	switch tok.Type {
	case lexer.TokSum:
		kind = il.BlockSum
	case lexer.TokProd:
		kind = il.BlockProd
	case lexer.TokMin:
		kind = il.BlockMin
	case lexer.TokMax:
		kind = il.BlockMax
	case lexer.TokAvg:
		kind = il.BlockAvg
	}
	if p.check(lexer.TokLBrace) {
		// non-scoped block function: {min|max|avg}(e1, e2, ...) written
		// with braces: { e1, e2, ... }
		p.advance()
		var exps []il.PreExp
		for !p.check(lexer.TokRBrace) {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			exps = append(exps, e)
			if !p.match(lexer.TokComma) {
				break
			}
		}
		if _, err := p.consume(lexer.TokRBrace, "'}'"); err != nil {
			return nil, err
		}
		return il.NewBlockFunction(p.span(tok), kind, exps), nil
	}
	if _, err := p.consume(lexer.TokLParen, "'(' after quantifier"); err != nil {
		return nil, err
	}
	iters, err := p.parseIterList()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokRParen, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokLBrace, "'{'"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return il.NewBlockScopedFunction(p.span(tok), kind, iters, body), nil
}

// parseIdentLed handles everything that starts with a bare identifier:
// plain variables, compound variables (x_i, x_{expr}), addressable access
// (a[i][j]), and function calls (name(args...)).
func (p *Parser) parseIdentLed() (il.PreExp, error) {
	tok := p.advance()
	name := tok.Lexeme

	if p.check(lexer.TokLParen) {
		p.advance()
		var args []il.PreExp
		if !p.check(lexer.TokRParen) {
			for {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if !p.match(lexer.TokComma) {
					break
				}
			}
		}
		if _, err := p.consume(lexer.TokRParen, "')'"); err != nil {
			return nil, err
		}
		return il.NewFunctionCall(p.span(tok), name, args), nil
	}

	if p.check(lexer.TokUnderscore) {
		indexes, err := p.parseCompoundIndexes()
		if err != nil {
			return nil, err
		}
		return il.NewCompoundVariable(p.span(tok), name, indexes), nil
	}

	if p.check(lexer.TokLBrack) {
		var indexes []il.PreExp
		for p.match(lexer.TokLBrack) {
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(lexer.TokRBrack, "']'"); err != nil {
				return nil, err
			}
			indexes = append(indexes, idx)
		}
		return il.NewAddressableAccess(p.span(tok), name, indexes), nil
	}

	return il.NewVariable(p.span(tok), name), nil
}

// parseCompoundIndexes parses one or more `_NAME`, `_NUMBER` or `_{expr}`
// suffixes after an identifier that has already been consumed.
func (p *Parser) parseCompoundIndexes() ([]il.PreExp, error) {
	var indexes []il.PreExp
	for p.match(lexer.TokUnderscore) {
		if p.match(lexer.TokLBrace) {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(lexer.TokRBrace, "'}'"); err != nil {
				return nil, err
			}
			indexes = append(indexes, e)
			continue
		}
		tok := p.peek()
		switch tok.Type {
		case lexer.TokNumber:
			p.advance()
			v, _ := strconv.ParseFloat(tok.Lexeme, 64)
			indexes = append(indexes, il.NewPrimitiveLit(p.span(tok), il.LitNumber(v)))
		case lexer.TokIdent:
			p.advance()
			indexes = append(indexes, il.NewVariable(p.span(tok), tok.Lexeme))
		default:
			return nil, p.errAt(tok, "expected a compound-variable index")
		}
	}
	if len(indexes) == 0 {
		return nil, fmt.Errorf("internal: parseCompoundIndexes called with no leading '_'")
	}
	return indexes, nil
}
