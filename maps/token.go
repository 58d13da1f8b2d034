package maps

import (
	"maps"
	"slices"
)

// TokenType identifies the lexical category of a token.
type TokenType string

const (
	tokenIllegal TokenType = "ILLEGAL"
	tokenEOF     TokenType = "EOF"

	tokenIdent  TokenType = "IDENT"
	tokenInt    TokenType = "INT"
	tokenFloat  TokenType = "FLOAT"
	tokenString TokenType = "STRING"
	tokenPragma TokenType = "PRAGMA"

	tokenAssign    TokenType = "="
	tokenPlus      TokenType = "+"
	tokenConcat    TokenType = "++"
	tokenMinus     TokenType = "-"
	tokenBang      TokenType = "!"
	tokenAsterisk  TokenType = "*"
	tokenSlash     TokenType = "/"
	tokenPercent   TokenType = "%"
	tokenCaret     TokenType = "^"
	tokenLT        TokenType = "<"
	tokenGT        TokenType = ">"
	tokenLTE       TokenType = "<="
	tokenGTE       TokenType = ">="
	tokenEQ        TokenType = "=="
	tokenNotEQ     TokenType = "!="
	tokenAnd       TokenType = "&&"
	tokenOr        TokenType = "||"
	tokenRange     TokenType = ".."
	tokenArrow     TokenType = "->"
	tokenFatArrow  TokenType = "=>"
	tokenBackslash TokenType = "\\"

	tokenComma     TokenType = ","
	tokenSemicolon TokenType = ";"
	tokenLParen    TokenType = "("
	tokenRParen    TokenType = ")"
	tokenLBrace    TokenType = "{"
	tokenRBrace    TokenType = "}"
	tokenLBracket  TokenType = "["
	tokenRBracket  TokenType = "]"

	tokenLet      TokenType = "LET"
	tokenIf       TokenType = "IF"
	tokenThen     TokenType = "THEN"
	tokenElse     TokenType = "ELSE"
	tokenWhile    TokenType = "WHILE"
	tokenDo       TokenType = "DO"
	tokenFor      TokenType = "FOR"
	tokenIn       TokenType = "IN"
	tokenReturn   TokenType = "RETURN"
	tokenBreak    TokenType = "BREAK"
	tokenContinue TokenType = "CONTINUE"
	tokenTrue     TokenType = "TRUE"
	tokenFalse    TokenType = "FALSE"
)

// Token captures lexical information for the parser.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
	End     Position
	// NewlineBefore reports whether a line break separated this token from
	// the previous one.
	NewlineBefore bool
}

// Position identifies a location in the source text. Line and Column are
// 1-based; Offset is the 0-based byte offset.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Span covers the half-open source range [Start, End).
type Span struct {
	Start Position
	End   Position
}

var keywords = map[string]TokenType{
	"let":      tokenLet,
	"if":       tokenIf,
	"then":     tokenThen,
	"else":     tokenElse,
	"while":    tokenWhile,
	"do":       tokenDo,
	"for":      tokenFor,
	"in":       tokenIn,
	"return":   tokenReturn,
	"break":    tokenBreak,
	"continue": tokenContinue,
	"true":     tokenTrue,
	"false":    tokenFalse,
	"and":      tokenAnd,
	"or":       tokenOr,
	"not":      tokenBang,
}

func lookupIdent(ident string) TokenType {
	if tt, ok := keywords[ident]; ok {
		return tt
	}
	return tokenIdent
}

// IsKeyword reports whether word is reserved.
func IsKeyword(word string) bool {
	_, ok := keywords[word]
	return ok
}

// Keywords lists the reserved words, sorted.
func Keywords() []string {
	return slices.Sorted(maps.Keys(keywords))
}
