package maps

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Execution is the state of one Eval call.
type Execution struct {
	engine       *Engine
	ctx          context.Context
	source       string
	quota        int
	recursionCap int
	steps        int
	callStack    []callFrame
	loopDepth    int
	pos          Position
	stdout       io.Writer
	warnings     []Diagnostic
	pragmas      *PragmaStore
	// unit numbers the code being run for pragma lookups. Inside a call it
	// is the unit that created the function.
	unit int
	// depth counts nested expressions within the current call frame.
	depth int
}

type callFrame struct {
	Function string
	Pos      Position
}

// Stdout is where print writes.
func (exec *Execution) Stdout() io.Writer { return exec.stdout }

// Context is the context Eval was called with.
func (exec *Execution) Context() context.Context { return exec.ctx }

// step is the cooperative checkpoint: it enforces the step quota and
// observes cancellation.
func (exec *Execution) step(pos Position) error {
	exec.steps++
	exec.pos = pos
	if exec.quota > 0 && exec.steps > exec.quota {
		return fmt.Errorf("%w (%d)", errStepQuotaExceeded, exec.quota)
	}
	select {
	case <-exec.ctx.Done():
		return exec.ctx.Err()
	default:
	}
	return nil
}

func (exec *Execution) errorAt(pos Position, kind string, format string, args ...any) error {
	return exec.newRuntimeError(kind, fmt.Sprintf(format, args...), pos)
}

func (exec *Execution) newRuntimeError(kind string, message string, pos Position) error {
	frames := make([]StackFrame, 0, len(exec.callStack)+1)
	if len(exec.callStack) > 0 {
		current := exec.callStack[len(exec.callStack)-1]
		frames = append(frames, StackFrame{Function: current.Function, Pos: pos})
		for i := len(exec.callStack) - 1; i >= 0; i-- {
			frames = append(frames, StackFrame(exec.callStack[i]))
		}
	} else {
		frames = append(frames, StackFrame{Function: "<unit>", Pos: pos})
	}
	return &RuntimeError{
		Type:      kind,
		Message:   message,
		Pos:       pos,
		CodeFrame: formatCodeFrame(exec.source, pos),
		Frames:    frames,
	}
}

// wrapError attaches a position to errors raised by value helpers and
// builtins. Control signals pass through untouched.
func (exec *Execution) wrapError(err error, pos Position) error {
	if err == nil {
		return nil
	}
	if isControlSignal(err) {
		return err
	}
	var rtErr *RuntimeError
	if errors.As(err, &rtErr) {
		return err
	}
	return exec.newRuntimeError(classifyRuntimeErrorType(err), err.Error(), pos)
}

func isControlSignal(err error) bool {
	var ret *returnSignal
	return isCancellation(err) ||
		errors.Is(err, errStepQuotaExceeded) ||
		errors.Is(err, errLoopBreak) ||
		errors.Is(err, errLoopContinue) ||
		errors.As(err, &ret)
}

// finishError converts whatever escaped the top level into a reportable
// error.
func (exec *Execution) finishError(err error) error {
	var ret *returnSignal
	switch {
	case isCancellation(err):
		return &CancelledError{Pos: exec.pos, Cause: err}
	case errors.Is(err, errStepQuotaExceeded):
		return exec.newRuntimeError(ErrKindStepQuota, err.Error(), exec.pos)
	case errors.As(err, &ret):
		return exec.newRuntimeError(ErrKindRuntime, "return used outside of a function", exec.pos)
	case errors.Is(err, errLoopBreak), errors.Is(err, errLoopContinue):
		return exec.newRuntimeError(ErrKindRuntime, "loop control used outside of a loop", exec.pos)
	}
	return exec.wrapError(err, exec.pos)
}

func (exec *Execution) warn(pos Position, format string, args ...any) {
	exec.warnings = append(exec.warnings, Diagnostic{
		Severity: SeverityWarning,
		Kind:     DiagPragma,
		Code:     DiagPragma,
		Message:  fmt.Sprintf(format, args...),
		Span:     Span{Start: pos, End: pos},
	})
}

func (exec *Execution) pushFrame(function string, pos Position) error {
	if exec.recursionCap > 0 && len(exec.callStack) >= exec.recursionCap {
		return exec.errorAt(pos, ErrKindRecursion, "recursion depth exceeded (limit %d)", exec.recursionCap)
	}
	exec.callStack = append(exec.callStack, callFrame{Function: function, Pos: pos})
	return nil
}

func (exec *Execution) popFrame() {
	if len(exec.callStack) == 0 {
		return
	}
	exec.callStack = exec.callStack[:len(exec.callStack)-1]
}

func (exec *Execution) evalStatements(stmts []Statement, env *Env) (Value, error) {
	result := NewUnit()
	for _, stmt := range stmts {
		if err := exec.step(stmt.Pos()); err != nil {
			return NewUnit(), err
		}
		val, err := exec.evalStatement(stmt, env)
		if err != nil {
			return NewUnit(), err
		}
		result = val
	}
	return result, nil
}

// evalTopLevel runs a unit's statements. While top-level evaluation is
// disabled only definitions and pragmas run.
func (exec *Execution) evalTopLevel(stmts []Statement, env *Env) (Value, error) {
	result := NewUnit()
	for _, stmt := range stmts {
		switch stmt.(type) {
		case *LetStmt, *PragmaStmt:
		default:
			if !exec.flagEnabled(FlagTopLevelEvaluation, stmt.Pos()) {
				exec.engine.config.Logger.Debug("top-level statement skipped", "line", stmt.Pos().Line)
				continue
			}
		}
		if err := exec.step(stmt.Pos()); err != nil {
			return NewUnit(), err
		}
		val, err := exec.evalStatement(stmt, env)
		if err != nil {
			return NewUnit(), err
		}
		result = val
	}
	return result, nil
}

func (exec *Execution) evalStatement(stmt Statement, env *Env) (Value, error) {
	switch s := stmt.(type) {
	case *ExprStmt:
		return exec.evalExpression(s.Expr, env)
	case *LetStmt:
		val := NewUnit()
		if s.Value != nil {
			var err error
			val, err = exec.evalExpression(s.Value, env)
			if err != nil {
				return NewUnit(), err
			}
		}
		env.Define(s.Name, val)
		return NewUnit(), nil
	case *AssignStmt:
		return NewUnit(), exec.assign(s, env)
	case *ReturnStmt:
		if len(exec.callStack) == 0 {
			return NewUnit(), exec.errorAt(s.Pos(), ErrKindRuntime, "return used outside of a function")
		}
		val := NewUnit()
		if s.Value != nil {
			var err error
			val, err = exec.evalExpression(s.Value, env)
			if err != nil {
				return NewUnit(), err
			}
		}
		return NewUnit(), &returnSignal{value: val}
	case *WhileStmt:
		return exec.evalWhileStatement(s, env)
	case *ForStmt:
		return exec.evalForStatement(s, env)
	case *BreakStmt:
		if exec.loopDepth == 0 {
			return NewUnit(), exec.errorAt(s.Pos(), ErrKindRuntime, "break used outside of a loop")
		}
		return NewUnit(), errLoopBreak
	case *ContinueStmt:
		if exec.loopDepth == 0 {
			return NewUnit(), exec.errorAt(s.Pos(), ErrKindRuntime, "continue used outside of a loop")
		}
		return NewUnit(), errLoopContinue
	case *PragmaStmt:
		return NewUnit(), exec.evalPragma(s)
	default:
		return NewUnit(), exec.errorAt(stmt.Pos(), ErrKindRuntime, "unsupported statement")
	}
}

func (exec *Execution) assign(s *AssignStmt, env *Env) error {
	switch t := s.Target.(type) {
	case *Identifier:
		val, err := exec.evalExpression(s.Value, env)
		if err != nil {
			return err
		}
		if owner := env.owner(t.Name); owner != nil && owner.Global() && !exec.flagEnabled(FlagMutableGlobals, s.Pos()) {
			return exec.errorAt(s.Pos(), ErrKindImmutable,
				"cannot assign to global variable %s (enable with #enable %s)", t.Name, FlagMutableGlobals)
		}
		env.Assign(t.Name, val)
		return nil
	case *IndexExpr:
		obj, err := exec.evalExpression(t.Object, env)
		if err != nil {
			return err
		}
		idx, err := exec.evalExpression(t.Index, env)
		if err != nil {
			return err
		}
		val, err := exec.evalExpression(s.Value, env)
		if err != nil {
			return err
		}
		if obj.Kind() != KindList {
			return exec.errorAt(t.Object.Pos(), ErrKindTypeMismatch, "cannot assign into %s", obj.Kind())
		}
		i, err := listIndex(idx, len(obj.List()))
		if err != nil {
			return exec.wrapError(err, t.Index.Pos())
		}
		obj.List()[i] = val
		return nil
	default:
		return exec.errorAt(s.Pos(), ErrKindRuntime, "invalid assignment target")
	}
}

func (exec *Execution) evalExpression(expr Expression, env *Env) (Value, error) {
	if err := exec.step(expr.Pos()); err != nil {
		return NewUnit(), err
	}
	exec.depth++
	defer func() { exec.depth-- }()
	if exec.depth > MaxNestingDepth {
		return NewUnit(), exec.errorAt(expr.Pos(), ErrKindRuntime, "expression nested too deeply (limit %d)", MaxNestingDepth)
	}
	switch e := expr.(type) {
	case *Identifier:
		val, ok := env.Get(e.Name)
		if !ok {
			return NewUnit(), exec.errorAt(e.Pos(), ErrKindUnbound, "unbound identifier %s", e.Name)
		}
		return val, nil
	case *IntegerLiteral:
		return NewInt(e.Value), nil
	case *FloatLiteral:
		return NewFloat(e.Value), nil
	case *StringLiteral:
		return NewString(e.Value), nil
	case *BoolLiteral:
		return NewBool(e.Value), nil
	case *UnitLiteral:
		return NewUnit(), nil
	case *ListLiteral:
		items := make([]Value, len(e.Elements))
		for i, el := range e.Elements {
			val, err := exec.evalExpression(el, env)
			if err != nil {
				return NewUnit(), err
			}
			items[i] = val
		}
		return NewList(items), nil
	case *UnaryExpr:
		return exec.evalUnaryExpr(e, env)
	case *BinaryExpr:
		return exec.evalBinaryExpr(e, env)
	case *LogicalExpr:
		return exec.evalLogicalExpr(e, env)
	case *RangeExpr:
		return exec.evalRangeExpr(e, env)
	case *IndexExpr:
		return exec.evalIndexExpr(e, env)
	case *CallExpr:
		return exec.evalCallExpr(e, env)
	case *IfExpr:
		return exec.evalIfExpr(e, env)
	case *BlockExpr:
		return exec.evalStatements(e.Statements, newEnv(env))
	case *LambdaExpr:
		return NewFunction(&Function{
			Name:   e.Name,
			Params: e.Params,
			Body:   e.Body,
			Env:    env,
			Impure: e.Impure,
			Pos:    e.Pos(),
			unit:   exec.unit,
		}), nil
	default:
		return NewUnit(), exec.errorAt(expr.Pos(), ErrKindRuntime, "unsupported expression")
	}
}
