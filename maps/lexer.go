package maps

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type lexer struct {
	input string

	offset int
	width  int

	line   int
	column int

	ch rune

	sawNewline bool
	errors     []*LexError
}

func newLexer(input string) *lexer {
	return newLexerAt(input, 0)
}

// newLexerAt starts lexing input at the given byte offset. Line and column
// numbering stays relative to the whole input.
func newLexerAt(input string, offset int) *lexer {
	l := &lexer{input: input, line: 1, column: 0}
	if offset > 0 && offset <= len(input) {
		prefix := input[:offset]
		l.line += strings.Count(prefix, "\n")
		if idx := strings.LastIndexByte(prefix, '\n'); idx >= 0 {
			l.column = utf8.RuneCountInString(prefix[idx+1:])
		} else {
			l.column = utf8.RuneCountInString(prefix)
		}
		l.offset = offset
	}
	l.readRune()
	return l
}

func (l *lexer) readRune() {
	if l.offset >= len(l.input) {
		if l.width > 0 || l.ch != 0 {
			l.column++
		}
		l.width = 0
		l.ch = 0
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.offset:])
	l.width = w
	l.offset += w

	if l.ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}

	l.ch = r
}

func (l *lexer) peekRune() rune {
	if l.offset >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.offset:])
	return r
}

func (l *lexer) peekRuneN(n int) rune {
	idx := l.offset
	for i := 0; ; i++ {
		if idx >= len(l.input) {
			return 0
		}
		r, w := utf8.DecodeRuneInString(l.input[idx:])
		if i == n {
			return r
		}
		idx += w
	}
}

func (l *lexer) currentOffset() int {
	return l.offset - l.width
}

func (l *lexer) position() Position {
	return Position{Line: l.line, Column: l.column, Offset: l.currentOffset()}
}

// NextToken returns the next token; after the end of input it keeps
// returning EOF.
func (l *lexer) NextToken() Token {
	tok := l.scan()
	tok.End = l.position()
	return tok
}

func (l *lexer) scan() Token {
	l.sawNewline = false
	if tok, ok := l.skipWhitespaceAndComments(); !ok {
		return tok
	}

	tok := Token{Pos: l.position(), NewlineBefore: l.sawNewline}

	switch l.ch {
	case 0:
		tok.Type = tokenEOF
		return tok
	case '+':
		if l.peekRune() == '+' {
			return l.twoRune(tok, tokenConcat)
		}
		return l.oneRune(tok, tokenPlus)
	case '-':
		if l.peekRune() == '>' {
			return l.twoRune(tok, tokenArrow)
		}
		return l.oneRune(tok, tokenMinus)
	case '*':
		return l.oneRune(tok, tokenAsterisk)
	case '/':
		return l.oneRune(tok, tokenSlash)
	case '%':
		return l.oneRune(tok, tokenPercent)
	case '^':
		return l.oneRune(tok, tokenCaret)
	case '\\':
		return l.oneRune(tok, tokenBackslash)
	case '(':
		return l.oneRune(tok, tokenLParen)
	case ')':
		return l.oneRune(tok, tokenRParen)
	case '{':
		return l.oneRune(tok, tokenLBrace)
	case '}':
		return l.oneRune(tok, tokenRBrace)
	case '[':
		return l.oneRune(tok, tokenLBracket)
	case ']':
		return l.oneRune(tok, tokenRBracket)
	case ',':
		return l.oneRune(tok, tokenComma)
	case ';':
		return l.oneRune(tok, tokenSemicolon)
	case '.':
		if l.peekRune() == '.' {
			return l.twoRune(tok, tokenRange)
		}
		return l.illegal(tok, fmt.Sprintf("unexpected character %q", l.ch), false)
	case '!':
		if l.peekRune() == '=' {
			return l.twoRune(tok, tokenNotEQ)
		}
		return l.oneRune(tok, tokenBang)
	case '=':
		switch l.peekRune() {
		case '=':
			return l.twoRune(tok, tokenEQ)
		case '>':
			return l.twoRune(tok, tokenFatArrow)
		default:
			return l.oneRune(tok, tokenAssign)
		}
	case '>':
		if l.peekRune() == '=' {
			return l.twoRune(tok, tokenGTE)
		}
		return l.oneRune(tok, tokenGT)
	case '<':
		if l.peekRune() == '=' {
			return l.twoRune(tok, tokenLTE)
		}
		return l.oneRune(tok, tokenLT)
	case '&':
		if l.peekRune() == '&' {
			return l.twoRune(tok, tokenAnd)
		}
		return l.illegal(tok, "unexpected character '&' (did you mean '&&'?)", false)
	case '|':
		if l.peekRune() == '|' {
			return l.twoRune(tok, tokenOr)
		}
		return l.illegal(tok, "unexpected character '|' (did you mean '||'?)", false)
	case '#':
		tok.Type = tokenPragma
		tok.Literal = l.readPragma()
		return tok
	case '"':
		literal, msg := l.readString()
		if msg != "" {
			return l.illegal(tok, msg, l.ch == 0)
		}
		tok.Type = tokenString
		tok.Literal = literal
		return tok
	}

	switch {
	case isIdentifierStart(l.ch):
		literal := l.readIdentifier()
		tok.Type = lookupIdent(literal)
		tok.Literal = literal
		return tok
	case isDigit(l.ch):
		literal, isFloat, msg := l.readNumber()
		if msg != "" {
			return l.illegal(tok, msg, false)
		}
		tok.Literal = literal
		if isFloat {
			tok.Type = tokenFloat
		} else {
			tok.Type = tokenInt
		}
		return tok
	default:
		return l.illegal(tok, fmt.Sprintf("unexpected character %q", l.ch), false)
	}
}

func (l *lexer) oneRune(tok Token, tt TokenType) Token {
	tok.Type = tt
	tok.Literal = string(l.ch)
	l.readRune()
	return tok
}

func (l *lexer) twoRune(tok Token, tt TokenType) Token {
	first := l.ch
	l.readRune()
	tok.Type = tt
	tok.Literal = string(first) + string(l.ch)
	l.readRune()
	return tok
}

func (l *lexer) illegal(tok Token, msg string, incomplete bool) Token {
	if tok.Pos.Offset == l.currentOffset() && l.ch != 0 {
		l.readRune()
	}
	tok.Type = tokenIllegal
	tok.Literal = msg
	l.errors = append(l.errors, &LexError{
		Message:    msg,
		Span:       Span{Start: tok.Pos, End: l.position()},
		Incomplete: incomplete,
		source:     l.input,
	})
	return tok
}

// skipWhitespaceAndComments returns ok=false together with an ILLEGAL token
// when a block comment runs off the end of the input.
func (l *lexer) skipWhitespaceAndComments() (Token, bool) {
	for {
		switch {
		case l.ch == '\n':
			l.sawNewline = true
			l.readRune()
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readRune()
		case l.ch == '/' && l.peekRune() == '/':
			for l.ch != 0 && l.ch != '\n' {
				l.readRune()
			}
		case l.ch == '/' && l.peekRune() == '*':
			start := Token{Pos: l.position(), NewlineBefore: l.sawNewline}
			l.readRune()
			l.readRune()
			for !(l.ch == '*' && l.peekRune() == '/') {
				if l.ch == 0 {
					return l.illegal(start, "unterminated block comment", true), false
				}
				if l.ch == '\n' {
					l.sawNewline = true
				}
				l.readRune()
			}
			l.readRune()
			l.readRune()
		default:
			return Token{}, true
		}
	}
}

func (l *lexer) readPragma() string {
	l.readRune()
	start := l.currentOffset()
	for l.ch != 0 && l.ch != '\n' {
		l.readRune()
	}
	end := l.currentOffset()
	if l.ch == 0 {
		end = len(l.input)
	}
	return strings.TrimSpace(l.input[start:end])
}

func (l *lexer) readIdentifier() string {
	start := l.currentOffset()
	for isIdentifierRune(l.peekRune()) {
		l.readRune()
	}
	literal := l.input[start:l.offset]
	l.readRune()
	return literal
}

func (l *lexer) readNumber() (string, bool, string) {
	var sb strings.Builder
	hasDot := false

	sb.WriteRune(l.ch)
	for {
		r := l.peekRune()
		switch {
		case r == '_' && isDigit(l.ch) && isDigit(l.peekRuneN(1)):
			l.readRune()
		case r == '.' && !hasDot && isDigit(l.peekRuneN(1)):
			hasDot = true
			l.readRune()
			sb.WriteRune('.')
		case isDigit(r):
			l.readRune()
			sb.WriteRune(r)
		case isIdentifierStart(r):
			l.readRune()
			for isIdentifierRune(l.peekRune()) {
				l.readRune()
			}
			l.readRune()
			return "", false, "malformed number literal"
		default:
			l.readRune()
			return sb.String(), hasDot, ""
		}
	}
}

func (l *lexer) readString() (string, string) {
	var sb strings.Builder

	for {
		l.readRune()
		switch l.ch {
		case 0:
			return "", "unterminated string literal"
		case '"':
			l.readRune()
			return sb.String(), ""
		case '\\':
			next := l.peekRune()
			switch next {
			case '"', '\\':
				l.readRune()
				sb.WriteRune(next)
			case 'n':
				l.readRune()
				sb.WriteByte('\n')
			case 't':
				l.readRune()
				sb.WriteByte('\t')
			case 'r':
				l.readRune()
				sb.WriteByte('\r')
			case '0':
				l.readRune()
				sb.WriteByte(0)
			case 0:
				return "", "unterminated string literal"
			default:
				l.readRune()
				return "", fmt.Sprintf("invalid escape sequence \\%c", next)
			}
		default:
			sb.WriteRune(l.ch)
		}
	}
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

func isIdentifierStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentifierRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '\''
}

// Tokenize lexes the whole source. It stops at the first malformed token and
// returns the tokens read so far together with the LexError.
func Tokenize(source string) ([]Token, error) {
	l := newLexer(source)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == tokenIllegal {
			return tokens, l.errors[len(l.errors)-1]
		}
		tokens = append(tokens, tok)
		if tok.Type == tokenEOF {
			return tokens, nil
		}
	}
}
