package maps

import (
	"strconv"
	"strings"
)

// Format renders a node back to source. Every compound expression is
// parenthesised, so the output re-parses to the same tree.
func Format(node Node) string {
	var b strings.Builder
	f := formatter{b: &b}
	f.node(node)
	return b.String()
}

type formatter struct {
	b *strings.Builder
}

func (f formatter) write(parts ...string) {
	for _, part := range parts {
		f.b.WriteString(part)
	}
}

func (f formatter) node(node Node) {
	switch n := node.(type) {
	case *Program:
		for i, stmt := range n.Statements {
			if i > 0 {
				f.write("\n")
			}
			f.node(stmt)
		}
	case Statement:
		f.statement(n)
	case Expression:
		f.expr(n)
	}
}

func (f formatter) statement(stmt Statement) {
	switch s := stmt.(type) {
	case *LetStmt:
		f.write("let ", s.Name)
		if s.Value != nil {
			f.write(" = ")
			f.expr(s.Value)
		}
	case *AssignStmt:
		f.expr(s.Target)
		f.write(" = ")
		f.expr(s.Value)
	case *ExprStmt:
		f.expr(s.Expr)
	case *ReturnStmt:
		f.write("return")
		if s.Value != nil {
			f.write(" ")
			f.expr(s.Value)
		}
	case *WhileStmt:
		f.write("while ")
		f.expr(s.Condition)
		f.write(" ")
		f.expr(s.Body)
	case *ForStmt:
		f.write("for ", s.Iterator, " in ")
		f.expr(s.Iterable)
		f.write(" ")
		f.expr(s.Body)
	case *BreakStmt:
		f.write("break")
	case *ContinueStmt:
		f.write("continue")
	case *PragmaStmt:
		f.write("#", s.Name)
		if s.Args != "" {
			f.write(" ", s.Args)
		}
	}
}

func (f formatter) expr(expr Expression) {
	switch e := expr.(type) {
	case *Identifier:
		f.write(e.Name)
	case *IntegerLiteral:
		f.write(strconv.FormatInt(e.Value, 10))
	case *FloatLiteral:
		f.write(formatFloat(e.Value))
	case *StringLiteral:
		f.write(quoteString(e.Value))
	case *BoolLiteral:
		f.write(strconv.FormatBool(e.Value))
	case *UnitLiteral:
		f.write("()")
	case *ListLiteral:
		f.write("[")
		f.exprList(e.Elements)
		f.write("]")
	case *UnaryExpr:
		f.write("(", string(e.Operator))
		f.expr(e.Right)
		f.write(")")
	case *BinaryExpr:
		f.binary(string(e.Operator), e.Left, e.Right)
	case *LogicalExpr:
		f.binary(string(e.Operator), e.Left, e.Right)
	case *RangeExpr:
		f.binary("..", e.Start, e.End)
	case *CallExpr:
		f.expr(e.Callee)
		f.write("(")
		f.exprList(e.Args)
		f.write(")")
	case *IndexExpr:
		f.expr(e.Object)
		f.write("[")
		f.expr(e.Index)
		f.write("]")
	case *IfExpr:
		f.write("(if ")
		f.expr(e.Condition)
		f.write(" then ")
		f.expr(e.Consequent)
		if e.Alternate != nil {
			f.write(" else ")
			f.expr(e.Alternate)
		}
		f.write(")")
	case *BlockExpr:
		if len(e.Statements) == 0 {
			f.write("{}")
			return
		}
		f.write("{ ")
		for i, stmt := range e.Statements {
			if i > 0 {
				f.write("; ")
			}
			f.statement(stmt)
		}
		f.write(" }")
	case *LambdaExpr:
		f.write("(\\")
		for _, param := range e.Params {
			f.write(param, " ")
		}
		if e.Impure {
			f.write("=> ")
		} else {
			f.write("-> ")
		}
		f.expr(e.Body)
		f.write(")")
	}
}

func (f formatter) binary(op string, left, right Expression) {
	f.write("(")
	f.expr(left)
	f.write(" ", op, " ")
	f.expr(right)
	f.write(")")
}

func (f formatter) exprList(list []Expression) {
	for i, item := range list {
		if i > 0 {
			f.write(", ")
		}
		f.expr(item)
	}
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if strings.ContainsAny(s, ".IN") {
		return s
	}
	return s + ".0"
}

// quoteString produces a literal the lexer reads back as s.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
