package maps

type Node interface {
	Pos() Position
	Span() Span
}

type Statement interface {
	Node
	stmtNode()
}

type Expression interface {
	Node
	exprNode()
}

type spanned struct {
	span Span
}

func (s spanned) Pos() Position { return s.span.Start }
func (s spanned) Span() Span    { return s.span }

// Program is one parse result. Source is kept for code frames.
type Program struct {
	Statements []Statement
	Source     string
}

func (p *Program) Pos() Position {
	if len(p.Statements) == 0 {
		return Position{Line: 1, Column: 1}
	}
	return p.Statements[0].Pos()
}

func (p *Program) Span() Span {
	if len(p.Statements) == 0 {
		return Span{Start: p.Pos(), End: p.Pos()}
	}
	return Span{Start: p.Statements[0].Span().Start, End: p.Statements[len(p.Statements)-1].Span().End}
}

// Units splits the program into one program per top-level statement. The
// statements are shared, not copied.
func (p *Program) Units() []*Program {
	units := make([]*Program, len(p.Statements))
	for i, stmt := range p.Statements {
		units[i] = &Program{Statements: []Statement{stmt}, Source: p.Source}
	}
	return units
}

type LetStmt struct {
	Name  string
	Value Expression
	spanned
}

func (s *LetStmt) stmtNode() {}

// AssignStmt targets an *Identifier or an *IndexExpr.
type AssignStmt struct {
	Target Expression
	Value  Expression
	spanned
}

func (s *AssignStmt) stmtNode() {}

type ExprStmt struct {
	Expr Expression
	spanned
}

func (s *ExprStmt) stmtNode() {}

type ReturnStmt struct {
	Value Expression
	spanned
}

func (s *ReturnStmt) stmtNode() {}

type WhileStmt struct {
	Condition Expression
	Body      *BlockExpr
	spanned
}

func (s *WhileStmt) stmtNode() {}

type ForStmt struct {
	Iterator string
	Iterable Expression
	Body     *BlockExpr
	spanned
}

func (s *ForStmt) stmtNode() {}

type BreakStmt struct {
	spanned
}

func (s *BreakStmt) stmtNode() {}

type ContinueStmt struct {
	spanned
}

func (s *ContinueStmt) stmtNode() {}

// PragmaStmt is a `#name args` line.
type PragmaStmt struct {
	Name string
	Args string
	spanned
}

func (s *PragmaStmt) stmtNode() {}

type Identifier struct {
	Name string
	spanned
}

func (e *Identifier) exprNode() {}

type IntegerLiteral struct {
	Value int64
	spanned
}

func (e *IntegerLiteral) exprNode() {}

type FloatLiteral struct {
	Value float64
	spanned
}

func (e *FloatLiteral) exprNode() {}

type StringLiteral struct {
	Value string
	spanned
}

func (e *StringLiteral) exprNode() {}

type BoolLiteral struct {
	Value bool
	spanned
}

func (e *BoolLiteral) exprNode() {}

type UnitLiteral struct {
	spanned
}

func (e *UnitLiteral) exprNode() {}

type ListLiteral struct {
	Elements []Expression
	spanned
}

func (e *ListLiteral) exprNode() {}

type UnaryExpr struct {
	Operator TokenType
	Right    Expression
	spanned
}

func (e *UnaryExpr) exprNode() {}

type BinaryExpr struct {
	Operator TokenType
	Left     Expression
	Right    Expression
	spanned
}

func (e *BinaryExpr) exprNode() {}

// LogicalExpr is a short-circuiting && or ||.
type LogicalExpr struct {
	Operator TokenType
	Left     Expression
	Right    Expression
	spanned
}

func (e *LogicalExpr) exprNode() {}

type RangeExpr struct {
	Start Expression
	End   Expression
	spanned
}

func (e *RangeExpr) exprNode() {}

type CallExpr struct {
	Callee Expression
	Args   []Expression
	spanned
}

func (e *CallExpr) exprNode() {}

type IndexExpr struct {
	Object Expression
	Index  Expression
	spanned
}

func (e *IndexExpr) exprNode() {}

// IfExpr has a nil Alternate when no else branch was written.
type IfExpr struct {
	Condition  Expression
	Consequent Expression
	Alternate  Expression
	spanned
}

func (e *IfExpr) exprNode() {}

type BlockExpr struct {
	Statements []Statement
	spanned
}

func (e *BlockExpr) exprNode() {}

type LambdaExpr struct {
	Name   string
	Params []string
	Body   Expression
	Impure bool
	spanned
}

func (e *LambdaExpr) exprNode() {}
