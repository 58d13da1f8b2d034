package maps

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func registerStandardBuiltins(e *Engine) {
	e.RegisterBuiltin("print", -1, builtinPrint)
	e.RegisterBuiltin("println", -1, builtinPrintln)
	e.RegisterBuiltin("len", 1, builtinLen)
	e.RegisterBuiltin("str", 1, builtinStr)
	e.RegisterBuiltin("int", 1, builtinInt)
	e.RegisterBuiltin("float", 1, builtinFloat)
	e.RegisterBuiltin("type_of", 1, builtinTypeOf)
	e.RegisterBuiltin("push", 2, builtinPush)
	e.RegisterBuiltin("head", 1, builtinHead)
	e.RegisterBuiltin("tail", 1, builtinTail)
	e.RegisterBuiltin("range", -1, builtinRange)
	e.RegisterBuiltin("assert", -1, builtinAssert)
	e.RegisterBuiltin("abs", 1, builtinAbs)
	e.RegisterBuiltin("sqrt", 1, builtinSqrt)
	e.RegisterBuiltin("map", 2, builtinMap)
	e.RegisterBuiltin("filter", 2, builtinFilter)
	e.RegisterBuiltin("fold", 3, builtinFold)
}

func joinArgs(args []Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	return strings.Join(parts, " ")
}

func builtinPrint(exec *Execution, args []Value) (Value, error) {
	if _, err := writeOutput(exec, joinArgs(args)); err != nil {
		return NewUnit(), err
	}
	return NewUnit(), nil
}

func builtinPrintln(exec *Execution, args []Value) (Value, error) {
	if _, err := writeOutput(exec, joinArgs(args)+"\n"); err != nil {
		return NewUnit(), err
	}
	return NewUnit(), nil
}

func writeOutput(exec *Execution, s string) (int, error) {
	n, err := fmt.Fprint(exec.stdout, s)
	if err != nil {
		return n, fmt.Errorf("print: %w", err)
	}
	return n, nil
}

func builtinLen(exec *Execution, args []Value) (Value, error) {
	switch args[0].Kind() {
	case KindList:
		return NewInt(int64(len(args[0].List()))), nil
	case KindString:
		return NewInt(int64(len([]rune(args[0].String())))), nil
	default:
		return NewUnit(), typeError("len expects list or string, got %s", args[0].Kind())
	}
}

func builtinStr(exec *Execution, args []Value) (Value, error) {
	return NewString(args[0].String()), nil
}

func builtinInt(exec *Execution, args []Value) (Value, error) {
	arg := args[0]
	switch arg.Kind() {
	case KindInt:
		return arg, nil
	case KindFloat:
		f := arg.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
			return NewUnit(), domainError("int: %s is out of range", arg.Inspect())
		}
		return NewInt(int64(f)), nil
	case KindBool:
		if arg.Bool() {
			return NewInt(1), nil
		}
		return NewInt(0), nil
	case KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(arg.String()), 10, 64)
		if err != nil {
			return NewUnit(), domainError("int: cannot parse %s", arg.Inspect())
		}
		return NewInt(n), nil
	default:
		return NewUnit(), typeError("int expects a number, bool or string, got %s", arg.Kind())
	}
}

func builtinFloat(exec *Execution, args []Value) (Value, error) {
	arg := args[0]
	switch arg.Kind() {
	case KindInt, KindFloat:
		return NewFloat(arg.Float()), nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(arg.String()), 64)
		if err != nil {
			return NewUnit(), domainError("float: cannot parse %s", arg.Inspect())
		}
		return NewFloat(f), nil
	default:
		return NewUnit(), typeError("float expects a number or string, got %s", arg.Kind())
	}
}

func builtinTypeOf(exec *Execution, args []Value) (Value, error) {
	return NewString(args[0].Kind().String()), nil
}

func builtinPush(exec *Execution, args []Value) (Value, error) {
	if args[0].Kind() != KindList {
		return NewUnit(), typeError("push expects a list, got %s", args[0].Kind())
	}
	src := args[0].List()
	items := make([]Value, len(src), len(src)+1)
	copy(items, src)
	return NewList(append(items, args[1])), nil
}

func builtinHead(exec *Execution, args []Value) (Value, error) {
	if args[0].Kind() != KindList {
		return NewUnit(), typeError("head expects a list, got %s", args[0].Kind())
	}
	items := args[0].List()
	if len(items) == 0 {
		return NewUnit(), indexError("head of empty list")
	}
	return items[0], nil
}

func builtinTail(exec *Execution, args []Value) (Value, error) {
	if args[0].Kind() != KindList {
		return NewUnit(), typeError("tail expects a list, got %s", args[0].Kind())
	}
	items := args[0].List()
	if len(items) == 0 {
		return NewUnit(), indexError("tail of empty list")
	}
	return NewList(append([]Value(nil), items[1:]...)), nil
}

// builtinRange is half-open: range(3) is [0, 1, 2], range(2, 4) is [2, 3].
func builtinRange(exec *Execution, args []Value) (Value, error) {
	var lo, hi int64
	switch len(args) {
	case 1:
		if args[0].Kind() != KindInt {
			return NewUnit(), typeError("range expects int bounds, got %s", args[0].Kind())
		}
		hi = args[0].Int()
	case 2:
		if args[0].Kind() != KindInt || args[1].Kind() != KindInt {
			return NewUnit(), typeError("range expects int bounds, got %s and %s", args[0].Kind(), args[1].Kind())
		}
		lo, hi = args[0].Int(), args[1].Int()
	default:
		return NewUnit(), arityError("range", "1 or 2", len(args))
	}
	if hi <= lo {
		return NewList([]Value{}), nil
	}
	return inclusiveRange(lo, hi-1)
}

func builtinAssert(exec *Execution, args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return NewUnit(), arityError("assert", "1 or 2", len(args))
	}
	if args[0].Kind() != KindBool {
		return NewUnit(), typeError("assert expects a bool condition, got %s", args[0].Kind())
	}
	if args[0].Bool() {
		return NewUnit(), nil
	}
	msg := "assertion failed"
	if len(args) == 2 {
		msg = "assertion failed: " + args[1].String()
	}
	return NewUnit(), &kindedError{kind: ErrKindAssertion, msg: msg}
}

func builtinAbs(exec *Execution, args []Value) (Value, error) {
	switch args[0].Kind() {
	case KindInt:
		n := args[0].Int()
		if n < 0 {
			n = -n
		}
		return NewInt(n), nil
	case KindFloat:
		return NewFloat(math.Abs(args[0].Float())), nil
	default:
		return NewUnit(), typeError("abs expects a number, got %s", args[0].Kind())
	}
}

func builtinSqrt(exec *Execution, args []Value) (Value, error) {
	if !args[0].isNumeric() {
		return NewUnit(), typeError("sqrt expects a number, got %s", args[0].Kind())
	}
	if args[0].Float() < 0 {
		return NewUnit(), domainError("sqrt of negative number %s", args[0].Inspect())
	}
	return NewFloat(math.Sqrt(args[0].Float())), nil
}

func builtinMap(exec *Execution, args []Value) (Value, error) {
	if args[1].Kind() != KindList {
		return NewUnit(), typeError("map expects a list, got %s", args[1].Kind())
	}
	src := args[1].List()
	out := make([]Value, len(src))
	for i, item := range src {
		val, err := exec.Call(args[0], []Value{item})
		if err != nil {
			return NewUnit(), err
		}
		out[i] = val
	}
	return NewList(out), nil
}

func builtinFilter(exec *Execution, args []Value) (Value, error) {
	if args[1].Kind() != KindList {
		return NewUnit(), typeError("filter expects a list, got %s", args[1].Kind())
	}
	out := []Value{}
	for _, item := range args[1].List() {
		keep, err := exec.Call(args[0], []Value{item})
		if err != nil {
			return NewUnit(), err
		}
		if keep.Kind() != KindBool {
			return NewUnit(), typeError("filter predicate must return bool, got %s", keep.Kind())
		}
		if keep.Bool() {
			out = append(out, item)
		}
	}
	return NewList(out), nil
}

func builtinFold(exec *Execution, args []Value) (Value, error) {
	if args[2].Kind() != KindList {
		return NewUnit(), typeError("fold expects a list, got %s", args[2].Kind())
	}
	acc := args[1]
	for _, item := range args[2].List() {
		val, err := exec.Call(args[0], []Value{acc, item})
		if err != nil {
			return NewUnit(), err
		}
		acc = val
	}
	return acc, nil
}
