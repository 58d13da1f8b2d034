package maps

import (
	"errors"
	"fmt"
)

func (exec *Execution) evalCallExpr(expr *CallExpr, env *Env) (Value, error) {
	callee, err := exec.evalExpression(expr.Callee, env)
	if err != nil {
		return NewUnit(), err
	}
	args := make([]Value, len(expr.Args))
	for i, arg := range expr.Args {
		val, err := exec.evalExpression(arg, env)
		if err != nil {
			return NewUnit(), err
		}
		args[i] = val
	}
	return exec.callValue(callee, args, expr.Pos())
}

// Call invokes a function or builtin value. Builtins use it to call back
// into user code.
func (exec *Execution) Call(callee Value, args []Value) (Value, error) {
	return exec.callValue(callee, args, exec.pos)
}

func (exec *Execution) callValue(callee Value, args []Value, pos Position) (Value, error) {
	switch callee.Kind() {
	case KindFunction:
		return exec.callFunction(callee.Function(), args, pos)
	case KindBuiltin:
		builtin := callee.Builtin()
		if builtin.Arity >= 0 && len(args) != builtin.Arity {
			return NewUnit(), exec.wrapError(arityError(builtin.Name, fmt.Sprint(builtin.Arity), len(args)), pos)
		}
		exec.pos = pos
		result, err := builtin.Fn(exec, args)
		if err != nil {
			return NewUnit(), exec.wrapError(err, pos)
		}
		return result, nil
	default:
		return NewUnit(), exec.errorAt(pos, ErrKindTypeMismatch, "cannot call %s", callee.Kind())
	}
}

func (exec *Execution) callFunction(fn *Function, args []Value, pos Position) (Value, error) {
	name := fn.Name
	if name == "" {
		name = "<lambda>"
	}
	if len(args) != len(fn.Params) {
		return NewUnit(), exec.errorAt(pos, ErrKindArity, "%s expects %d argument(s), got %d", name, len(fn.Params), len(args))
	}

	callEnv := newEnv(fn.Env)
	for i, param := range fn.Params {
		callEnv.Define(param, args[i])
	}

	if err := exec.pushFrame(name, pos); err != nil {
		return NewUnit(), err
	}
	savedLoopDepth, savedDepth, savedUnit := exec.loopDepth, exec.depth, exec.unit
	exec.loopDepth, exec.depth = 0, 0
	if fn.unit != 0 {
		exec.unit = fn.unit
	}
	val, err := exec.evalExpression(fn.Body, callEnv)
	exec.loopDepth, exec.depth, exec.unit = savedLoopDepth, savedDepth, savedUnit
	exec.popFrame()

	if err != nil {
		var ret *returnSignal
		if errors.As(err, &ret) {
			return ret.value, nil
		}
		return NewUnit(), err
	}
	return val, nil
}
