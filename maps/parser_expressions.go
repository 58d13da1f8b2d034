package maps

import (
	"strconv"
)

const (
	lowestPrec = iota
	precOr
	precAnd
	precEquality
	precComparison
	precRange
	precSum
	precProduct
	precPrefix
	precPower
	precCall
)

var precedences = map[TokenType]int{
	tokenOr:       precOr,
	tokenAnd:      precAnd,
	tokenEQ:       precEquality,
	tokenNotEQ:    precEquality,
	tokenLT:       precComparison,
	tokenLTE:      precComparison,
	tokenGT:       precComparison,
	tokenGTE:      precComparison,
	tokenRange:    precRange,
	tokenPlus:     precSum,
	tokenMinus:    precSum,
	tokenConcat:   precSum,
	tokenAsterisk: precProduct,
	tokenSlash:    precProduct,
	tokenPercent:  precProduct,
	tokenCaret:    precPower,
	tokenLParen:   precCall,
	tokenLBracket: precCall,
}

func (p *parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return lowestPrec
}

func (p *parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return lowestPrec
}

func (p *parser) parseExpression(precedence int) Expression {
	if p.failed() {
		return nil
	}
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxNestingDepth {
		p.addParseError(p.curToken, "expression nested too deeply", nil)
		return nil
	}
	prefix := p.prefixFns[p.curToken.Type]
	if prefix == nil {
		p.errorUnexpected(p.curToken)
		return nil
	}

	left := prefix()
	if left == nil {
		return nil
	}

	for !p.peekEndsExpression() && precedence < p.peekPrecedence() {
		infix := p.infixFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
		if left == nil {
			return nil
		}
	}

	return left
}

func (p *parser) parseIdentifier() Expression {
	return &Identifier{Name: p.curToken.Literal, spanned: p.tokenSpan(p.curToken)}
}

func (p *parser) parseIntegerLiteral() Expression {
	value, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		p.addParseError(p.curToken, "invalid integer literal", nil)
		return nil
	}
	return &IntegerLiteral{Value: value, spanned: p.tokenSpan(p.curToken)}
}

func (p *parser) parseFloatLiteral() Expression {
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.addParseError(p.curToken, "invalid float literal", nil)
		return nil
	}
	return &FloatLiteral{Value: value, spanned: p.tokenSpan(p.curToken)}
}

func (p *parser) parseStringLiteral() Expression {
	return &StringLiteral{Value: p.curToken.Literal, spanned: p.tokenSpan(p.curToken)}
}

func (p *parser) parseBooleanLiteral() Expression {
	return &BoolLiteral{Value: p.curToken.Type == tokenTrue, spanned: p.tokenSpan(p.curToken)}
}

func (p *parser) parseGroupedExpression() Expression {
	start := p.curToken.Pos
	if p.peekToken.Type == tokenRParen {
		p.nextToken()
		return &UnitLiteral{spanned: p.spanFrom(start)}
	}

	p.nesting++
	defer func() { p.nesting-- }()

	p.nextToken()
	expr := p.parseExpression(lowestPrec)
	if expr == nil {
		return nil
	}
	if !p.expectPeek(tokenRParen) {
		return nil
	}
	return expr
}

func (p *parser) parseListLiteral() Expression {
	start := p.curToken.Pos
	p.nesting++
	defer func() { p.nesting-- }()

	elements, ok := p.parseExpressionList(tokenRBracket)
	if !ok {
		return nil
	}
	return &ListLiteral{Elements: elements, spanned: p.spanFrom(start)}
}

// parseExpressionList reads comma separated expressions up to end. A
// trailing comma is allowed.
func (p *parser) parseExpressionList(end TokenType) ([]Expression, bool) {
	list := []Expression{}
	if p.peekToken.Type == end {
		p.nextToken()
		return list, true
	}

	p.nextToken()
	first := p.parseExpression(lowestPrec)
	if first == nil {
		return nil, false
	}
	list = append(list, first)

	for p.peekToken.Type == tokenComma {
		p.nextToken()
		if p.peekToken.Type == end {
			break
		}
		p.nextToken()
		item := p.parseExpression(lowestPrec)
		if item == nil {
			return nil, false
		}
		list = append(list, item)
	}

	if !p.expectPeek(end) {
		return nil, false
	}
	return list, true
}

func (p *parser) parseBlockExpression() Expression {
	start := p.curToken.Pos
	saved := p.nesting
	p.nesting = 0
	defer func() { p.nesting = saved }()

	p.nextToken()
	p.skipSemicolons()
	stmts := p.parseStatementList(tokenRBrace)
	if p.failed() {
		return nil
	}
	if p.curToken.Type != tokenRBrace {
		p.errorExpected(p.curToken, "'}'")
		return nil
	}
	return &BlockExpr{Statements: stmts, spanned: p.spanFrom(start)}
}

func (p *parser) parsePrefixExpression() Expression {
	start := p.curToken.Pos
	operator := p.curToken.Type
	p.nextToken()
	right := p.parseExpression(precPrefix)
	if right == nil {
		return nil
	}
	return &UnaryExpr{Operator: operator, Right: right, spanned: p.spanFrom(start)}
}

func (p *parser) parseLambdaExpression() Expression {
	start := p.curToken.Pos
	var params []string
	seen := make(map[string]bool)
	for p.peekToken.Type == tokenIdent {
		p.nextToken()
		name := p.curToken.Literal
		if seen[name] {
			p.addParseError(p.curToken, "duplicate parameter "+name, []string{"parameter name"})
			return nil
		}
		seen[name] = true
		params = append(params, name)
	}

	impure := false
	switch p.peekToken.Type {
	case tokenArrow:
	case tokenFatArrow:
		impure = true
	default:
		p.errorExpected(p.peekToken, "parameter name, '->' or '=>'")
		return nil
	}
	p.nextToken()
	p.nextToken()

	body := p.parseExpression(lowestPrec)
	if body == nil {
		return nil
	}
	if params == nil {
		params = []string{}
	}
	return &LambdaExpr{Params: params, Body: body, Impure: impure, spanned: p.spanFrom(start)}
}

func (p *parser) parseIfExpression() Expression {
	start := p.curToken.Pos
	p.nextToken()
	condition := p.parseExpression(lowestPrec)
	if condition == nil {
		return nil
	}

	var consequent Expression
	switch p.peekToken.Type {
	case tokenThen:
		p.nextToken()
		p.nextToken()
		consequent = p.parseExpression(lowestPrec)
	case tokenLBrace:
		p.nextToken()
		consequent = p.parseBlockExpression()
	default:
		p.errorExpected(p.peekToken, "'then' or '{'")
		return nil
	}
	if consequent == nil {
		return nil
	}

	var alternate Expression
	if p.peekToken.Type == tokenElse {
		p.nextToken()
		p.nextToken()
		alternate = p.parseExpression(lowestPrec)
		if alternate == nil {
			return nil
		}
	}

	return &IfExpr{Condition: condition, Consequent: consequent, Alternate: alternate, spanned: p.spanFrom(start)}
}

func (p *parser) parseInfixExpression(left Expression) Expression {
	operator := p.curToken.Type
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &BinaryExpr{Operator: operator, Left: left, Right: right, spanned: p.spanFrom(left.Pos())}
}

// parsePowerExpression binds to the right: 2^3^2 is 2^(3^2).
func (p *parser) parsePowerExpression(left Expression) Expression {
	p.nextToken()
	right := p.parseExpression(precPower - 1)
	if right == nil {
		return nil
	}
	return &BinaryExpr{Operator: tokenCaret, Left: left, Right: right, spanned: p.spanFrom(left.Pos())}
}

func (p *parser) parseLogicalExpression(left Expression) Expression {
	operator := p.curToken.Type
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &LogicalExpr{Operator: operator, Left: left, Right: right, spanned: p.spanFrom(left.Pos())}
}

func (p *parser) parseRangeExpression(left Expression) Expression {
	p.nextToken()
	right := p.parseExpression(precRange)
	if right == nil {
		return nil
	}
	return &RangeExpr{Start: left, End: right, spanned: p.spanFrom(left.Pos())}
}

func (p *parser) parseCallExpression(callee Expression) Expression {
	p.nesting++
	defer func() { p.nesting-- }()

	args, ok := p.parseExpressionList(tokenRParen)
	if !ok {
		return nil
	}
	return &CallExpr{Callee: callee, Args: args, spanned: p.spanFrom(callee.Pos())}
}

func (p *parser) parseIndexExpression(object Expression) Expression {
	p.nesting++
	defer func() { p.nesting-- }()

	p.nextToken()
	index := p.parseExpression(lowestPrec)
	if index == nil {
		return nil
	}
	if !p.expectPeek(tokenRBracket) {
		return nil
	}
	return &IndexExpr{Object: object, Index: index, spanned: p.spanFrom(object.Pos())}
}
