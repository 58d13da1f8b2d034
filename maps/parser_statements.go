package maps

import (
	"fmt"
	"slices"
	"strings"
)

func (p *parser) parseStatement() Statement {
	switch p.curToken.Type {
	case tokenLet:
		return p.parseLetStatement()
	case tokenReturn:
		return p.parseReturnStatement()
	case tokenWhile:
		return p.parseWhileStatement()
	case tokenFor:
		return p.parseForStatement()
	case tokenBreak:
		return &BreakStmt{spanned: p.tokenSpan(p.curToken)}
	case tokenContinue:
		return &ContinueStmt{spanned: p.tokenSpan(p.curToken)}
	case tokenPragma:
		return p.parsePragmaStatement()
	default:
		return p.parseExpressionOrAssignStatement()
	}
}

func (p *parser) tokenSpan(tok Token) spanned {
	return spanned{span: Span{Start: tok.Pos, End: tok.End}}
}

func (p *parser) spanFrom(start Position) spanned {
	return spanned{span: Span{Start: start, End: p.curToken.End}}
}

func (p *parser) parseLetStatement() Statement {
	start := p.curToken.Pos
	if !p.expectPeek(tokenIdent) {
		return nil
	}
	name := p.curToken.Literal

	var params []string
	for p.peekToken.Type == tokenIdent {
		p.nextToken()
		if slices.Contains(params, p.curToken.Literal) {
			p.addParseError(p.curToken, "duplicate parameter "+p.curToken.Literal, []string{"parameter name"})
			return nil
		}
		params = append(params, p.curToken.Literal)
	}

	if params != nil {
		lambdaStart := p.curToken.Pos
		if !p.expectPeek(tokenAssign) {
			return nil
		}
		p.nextToken()
		body := p.parseExpression(lowestPrec)
		if body == nil {
			return nil
		}
		lambda := &LambdaExpr{Name: name, Params: params, Body: body, spanned: p.spanFrom(lambdaStart)}
		return &LetStmt{Name: name, Value: lambda, spanned: p.spanFrom(start)}
	}

	if p.peekToken.Type != tokenAssign {
		if !p.peekEndsStatement(tokenRBrace) {
			p.errorExpected(p.peekToken, "'=' or parameter name")
			return nil
		}
		return &LetStmt{Name: name, spanned: p.spanFrom(start)}
	}

	p.nextToken()
	p.nextToken()
	value := p.parseExpression(lowestPrec)
	if value == nil {
		return nil
	}
	if lambda, ok := value.(*LambdaExpr); ok && lambda.Name == "" {
		lambda.Name = name
	}
	return &LetStmt{Name: name, Value: value, spanned: p.spanFrom(start)}
}

func (p *parser) parseReturnStatement() Statement {
	start := p.curToken.Pos
	if p.peekEndsStatement(tokenRBrace) {
		return &ReturnStmt{spanned: p.spanFrom(start)}
	}
	p.nextToken()
	value := p.parseExpression(lowestPrec)
	if value == nil {
		return nil
	}
	return &ReturnStmt{Value: value, spanned: p.spanFrom(start)}
}

func (p *parser) parseWhileStatement() Statement {
	start := p.curToken.Pos
	p.nextToken()
	condition := p.parseExpression(lowestPrec)
	if condition == nil {
		return nil
	}
	body := p.parseLoopBody()
	if body == nil {
		return nil
	}
	return &WhileStmt{Condition: condition, Body: body, spanned: p.spanFrom(start)}
}

func (p *parser) parseForStatement() Statement {
	start := p.curToken.Pos
	if !p.expectPeek(tokenIdent) {
		return nil
	}
	iterator := p.curToken.Literal
	if !p.expectPeek(tokenIn) {
		return nil
	}
	p.nextToken()
	iterable := p.parseExpression(lowestPrec)
	if iterable == nil {
		return nil
	}
	body := p.parseLoopBody()
	if body == nil {
		return nil
	}
	return &ForStmt{Iterator: iterator, Iterable: iterable, Body: body, spanned: p.spanFrom(start)}
}

// parseLoopBody accepts `{ ... }` or `do <statement>`.
func (p *parser) parseLoopBody() *BlockExpr {
	switch p.peekToken.Type {
	case tokenLBrace:
		p.nextToken()
		block, _ := p.parseBlockExpression().(*BlockExpr)
		return block
	case tokenDo:
		p.nextToken()
		start := p.curToken.Pos
		p.nextToken()
		stmt := p.parseStatement()
		if stmt == nil {
			return nil
		}
		return &BlockExpr{Statements: []Statement{stmt}, spanned: p.spanFrom(start)}
	default:
		p.errorExpected(p.peekToken, "'{' or 'do'")
		return nil
	}
}

func (p *parser) parsePragmaStatement() Statement {
	text := p.curToken.Literal
	name, args, _ := strings.Cut(text, " ")
	args = strings.TrimSpace(args)
	switch name {
	case "":
		p.addParseError(p.curToken, "empty pragma", []string{"pragma name"})
		return nil
	case "enable", "disable":
		if !isPragmaFlag(args) {
			p.addParseError(p.curToken, fmt.Sprintf("unknown pragma flag %q", args), PragmaFlags())
			return nil
		}
	case "version":
	default:
		p.addParseError(p.curToken, "invalid pragma declaration", []string{"enable", "disable", "version"})
		return nil
	}
	return &PragmaStmt{Name: name, Args: args, spanned: p.tokenSpan(p.curToken)}
}

func (p *parser) parseExpressionOrAssignStatement() Statement {
	start := p.curToken.Pos
	expr := p.parseExpression(lowestPrec)
	if expr == nil {
		return nil
	}

	if p.peekToken.Type == tokenAssign {
		if !isAssignable(expr) {
			p.addParseError(p.peekToken, "invalid assignment target", []string{"identifier", "index expression"})
			return nil
		}
		p.nextToken()
		p.nextToken()
		value := p.parseExpression(lowestPrec)
		if value == nil {
			return nil
		}
		if ident, ok := expr.(*Identifier); ok {
			if lambda, ok := value.(*LambdaExpr); ok && lambda.Name == "" {
				lambda.Name = ident.Name
			}
		}
		return &AssignStmt{Target: expr, Value: value, spanned: p.spanFrom(start)}
	}

	return &ExprStmt{Expr: expr, spanned: p.spanFrom(start)}
}

func isAssignable(expr Expression) bool {
	switch expr.(type) {
	case *Identifier, *IndexExpr:
		return true
	default:
		return false
	}
}
