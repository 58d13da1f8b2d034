package maps

import "errors"

func (exec *Execution) evalWhileStatement(stmt *WhileStmt, env *Env) (Value, error) {
	exec.loopDepth++
	defer func() {
		exec.loopDepth--
	}()

	for {
		if err := exec.step(stmt.Pos()); err != nil {
			return NewUnit(), err
		}
		cond, err := exec.evalExpression(stmt.Condition, env)
		if err != nil {
			return NewUnit(), err
		}
		if cond.Kind() != KindBool {
			return NewUnit(), exec.errorAt(stmt.Condition.Pos(), ErrKindTypeMismatch, "loop condition must be bool, got %s", cond.Kind())
		}
		if !cond.Bool() {
			return NewUnit(), nil
		}
		if _, err := exec.evalExpression(stmt.Body, env); err != nil {
			if errors.Is(err, errLoopBreak) {
				return NewUnit(), nil
			}
			if errors.Is(err, errLoopContinue) {
				continue
			}
			return NewUnit(), err
		}
	}
}

// evalForStatement binds the iterator in a fresh scope per iteration, so
// closures created in the body each see their own value.
func (exec *Execution) evalForStatement(stmt *ForStmt, env *Env) (Value, error) {
	exec.loopDepth++
	defer func() {
		exec.loopDepth--
	}()

	iterable, err := exec.evalExpression(stmt.Iterable, env)
	if err != nil {
		return NewUnit(), err
	}

	var items []Value
	switch iterable.Kind() {
	case KindList:
		items = append([]Value(nil), iterable.List()...)
	case KindString:
		for _, r := range iterable.String() {
			items = append(items, NewString(string(r)))
		}
	case KindInt:
		if iterable.Int() > 0 {
			list, err := inclusiveRange(0, iterable.Int()-1)
			if err != nil {
				return NewUnit(), exec.wrapError(err, stmt.Iterable.Pos())
			}
			items = list.List()
		}
	default:
		return NewUnit(), exec.errorAt(stmt.Iterable.Pos(), ErrKindTypeMismatch, "cannot iterate over %s", iterable.Kind())
	}

	for _, item := range items {
		if err := exec.step(stmt.Pos()); err != nil {
			return NewUnit(), err
		}
		iterEnv := newEnv(env)
		iterEnv.Define(stmt.Iterator, item)
		if _, err := exec.evalExpression(stmt.Body, iterEnv); err != nil {
			if errors.Is(err, errLoopBreak) {
				return NewUnit(), nil
			}
			if errors.Is(err, errLoopContinue) {
				continue
			}
			return NewUnit(), err
		}
	}
	return NewUnit(), nil
}
