package maps

import (
	"fmt"
	"strings"
)

func (p *parser) errorExpected(tok Token, expected string) {
	p.addParseError(tok, fmt.Sprintf("expected %s, got %s", expected, describeToken(tok)), []string{expected})
}

func (p *parser) errorUnexpected(tok Token) {
	p.addParseError(tok, fmt.Sprintf("unexpected %s", describeToken(tok)), []string{"expression"})
}

func (p *parser) addParseError(tok Token, msg string, expected []string) {
	if tok.Type == tokenIllegal {
		// the lexer already recorded why this token is malformed
		return
	}
	p.errors = append(p.errors, &ParseError{
		Message:    msg,
		Expected:   expected,
		Actual:     describeToken(tok),
		Span:       Span{Start: tok.Pos, End: tok.End},
		Incomplete: tok.Type == tokenEOF,
		source:     p.l.input,
	})
}

func describeToken(tok Token) string {
	switch tok.Type {
	case tokenIdent:
		return fmt.Sprintf("identifier %q", tok.Literal)
	case tokenInt, tokenFloat:
		return fmt.Sprintf("number %s", tok.Literal)
	case tokenString:
		return "string literal"
	case tokenAnd, tokenOr, tokenBang:
		return fmt.Sprintf("%q", tok.Literal)
	}
	return tokenLabel(tok.Type)
}

func tokenLabel(tt TokenType) string {
	switch tt {
	case tokenIllegal:
		return "invalid token"
	case tokenEOF:
		return "end of input"
	case tokenIdent:
		return "identifier"
	case tokenInt:
		return "integer"
	case tokenFloat:
		return "float"
	case tokenString:
		return "string"
	case tokenPragma:
		return "pragma"
	case tokenLet, tokenIf, tokenThen, tokenElse, tokenWhile, tokenDo, tokenFor, tokenIn,
		tokenReturn, tokenBreak, tokenContinue, tokenTrue, tokenFalse:
		return fmt.Sprintf("'%s'", strings.ToLower(string(tt)))
	default:
		return fmt.Sprintf("'%s'", string(tt))
	}
}
