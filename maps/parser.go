package maps

import (
	"log/slog"
)

type (
	prefixParseFn func() Expression
	infixParseFn  func(Expression) Expression
)

type parser struct {
	l *lexer

	curToken  Token
	peekToken Token

	errors []error

	// nesting counts open parens and brackets; newlines inside them do
	// not end an expression.
	nesting int
	// depth counts active parseExpression calls.
	depth int

	prefixFns map[TokenType]prefixParseFn
	infixFns  map[TokenType]infixParseFn

	trace *slog.Logger
}

// MaxNestingDepth bounds how deeply expressions may nest, both when parsing
// and within one call frame when evaluating.
const MaxNestingDepth = 10000

// ParseOption customises a single Parse call.
type ParseOption func(*parser)

// WithTokenTrace logs every token the parser consumes at debug level.
func WithTokenTrace(logger *slog.Logger) ParseOption {
	return func(p *parser) {
		p.trace = logger
	}
}

// Parse turns source into a Program. It returns either a program or exactly
// one error, which is a *LexError or a *ParseError describing the first
// failure.
func Parse(source string, opts ...ParseOption) (*Program, error) {
	p := newParser(source, opts...)
	program := p.parseProgram()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return program, nil
}

func newParser(input string, opts ...ParseOption) *parser {
	l := newLexer(input)
	p := &parser{l: l}
	for _, opt := range opts {
		opt(p)
	}

	p.prefixFns = make(map[TokenType]prefixParseFn)
	p.infixFns = make(map[TokenType]infixParseFn)

	p.registerPrefix(tokenIdent, p.parseIdentifier)
	p.registerPrefix(tokenInt, p.parseIntegerLiteral)
	p.registerPrefix(tokenFloat, p.parseFloatLiteral)
	p.registerPrefix(tokenString, p.parseStringLiteral)
	p.registerPrefix(tokenTrue, p.parseBooleanLiteral)
	p.registerPrefix(tokenFalse, p.parseBooleanLiteral)
	p.registerPrefix(tokenLParen, p.parseGroupedExpression)
	p.registerPrefix(tokenLBracket, p.parseListLiteral)
	p.registerPrefix(tokenLBrace, p.parseBlockExpression)
	p.registerPrefix(tokenBang, p.parsePrefixExpression)
	p.registerPrefix(tokenMinus, p.parsePrefixExpression)
	p.registerPrefix(tokenBackslash, p.parseLambdaExpression)
	p.registerPrefix(tokenIf, p.parseIfExpression)

	for _, tt := range []TokenType{
		tokenPlus, tokenMinus, tokenAsterisk, tokenSlash, tokenPercent, tokenConcat,
		tokenEQ, tokenNotEQ, tokenLT, tokenLTE, tokenGT, tokenGTE,
	} {
		p.infixFns[tt] = p.parseInfixExpression
	}
	p.infixFns[tokenCaret] = p.parsePowerExpression
	p.infixFns[tokenAnd] = p.parseLogicalExpression
	p.infixFns[tokenOr] = p.parseLogicalExpression
	p.infixFns[tokenRange] = p.parseRangeExpression
	p.infixFns[tokenLParen] = p.parseCallExpression
	p.infixFns[tokenLBracket] = p.parseIndexExpression

	p.nextToken()
	p.nextToken()

	return p
}

func (p *parser) registerPrefix(tt TokenType, fn prefixParseFn) {
	p.prefixFns[tt] = fn
}

func (p *parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
	if p.peekToken.Type == tokenIllegal && len(p.l.errors) > 0 {
		p.errors = append(p.errors, p.l.errors[len(p.l.errors)-1])
	}
	if p.trace != nil && p.curToken.Type != "" {
		p.trace.Debug("token",
			"type", string(p.curToken.Type),
			"literal", p.curToken.Literal,
			"line", p.curToken.Pos.Line,
			"column", p.curToken.Pos.Column,
		)
	}
}

func (p *parser) failed() bool {
	return len(p.errors) > 0
}

func (p *parser) expectPeek(tt TokenType) bool {
	if p.peekToken.Type == tt {
		p.nextToken()
		return true
	}
	p.errorExpected(p.peekToken, tokenLabel(tt))
	return false
}

// peekEndsExpression reports whether the lookahead token cannot continue the
// current expression.
func (p *parser) peekEndsExpression() bool {
	if p.peekToken.Type == tokenEOF {
		return true
	}
	return p.peekToken.NewlineBefore && p.nesting == 0
}

func (p *parser) peekEndsStatement(closer TokenType) bool {
	switch p.peekToken.Type {
	case tokenEOF, tokenSemicolon:
		return true
	case closer:
		return closer != ""
	}
	return p.peekToken.NewlineBefore
}

func (p *parser) skipSemicolons() {
	for p.curToken.Type == tokenSemicolon {
		p.nextToken()
	}
}

func (p *parser) parseProgram() *Program {
	program := &Program{Source: p.l.input}
	p.skipSemicolons()
	program.Statements = p.parseStatementList("")
	return program
}

// parseStatementList reads statements until closer (or EOF when closer is
// empty). curToken is left on the closer.
func (p *parser) parseStatementList(closer TokenType) []Statement {
	stmts := []Statement{}
	for !p.failed() && p.curToken.Type != tokenEOF && (closer == "" || p.curToken.Type != closer) {
		stmt := p.parseStatement()
		if stmt == nil || p.failed() {
			return stmts
		}
		stmts = append(stmts, stmt)
		if !p.peekEndsStatement(closer) {
			p.errorExpected(p.peekToken, "end of statement")
			return stmts
		}
		p.nextToken()
		p.skipSemicolons()
	}
	return stmts
}
