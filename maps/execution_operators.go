package maps

import (
	"cmp"
	"math"
	"strings"
)

// maxRangeLength bounds the list a range expression may materialise.
const maxRangeLength = 1 << 24

func (exec *Execution) evalUnaryExpr(e *UnaryExpr, env *Env) (Value, error) {
	right, err := exec.evalExpression(e.Right, env)
	if err != nil {
		return NewUnit(), err
	}
	switch e.Operator {
	case tokenMinus:
		switch right.Kind() {
		case KindInt:
			return NewInt(-right.Int()), nil
		case KindFloat:
			return NewFloat(-right.Float()), nil
		default:
			return NewUnit(), exec.errorAt(e.Pos(), ErrKindTypeMismatch, "cannot negate %s", right.Kind())
		}
	case tokenBang:
		if right.Kind() != KindBool {
			return NewUnit(), exec.errorAt(e.Pos(), ErrKindTypeMismatch, "'not' expects bool, got %s", right.Kind())
		}
		return NewBool(!right.Bool()), nil
	default:
		return NewUnit(), exec.errorAt(e.Pos(), ErrKindRuntime, "unsupported unary operator %s", e.Operator)
	}
}

func (exec *Execution) evalBinaryExpr(expr *BinaryExpr, env *Env) (Value, error) {
	left, err := exec.evalExpression(expr.Left, env)
	if err != nil {
		return NewUnit(), err
	}
	right, err := exec.evalExpression(expr.Right, env)
	if err != nil {
		return NewUnit(), err
	}

	var result Value
	switch expr.Operator {
	case tokenPlus:
		result, err = addValues(left, right)
	case tokenMinus:
		result, err = arithmetic("-", left, right, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })
	case tokenAsterisk:
		result, err = arithmetic("*", left, right, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b })
	case tokenSlash:
		result, err = divideValues(left, right)
	case tokenPercent:
		result, err = moduloValues(left, right)
	case tokenCaret:
		result, err = powerValues(left, right)
	case tokenConcat:
		result, err = concatValues(left, right)
	case tokenEQ:
		return NewBool(left.Equal(right)), nil
	case tokenNotEQ:
		return NewBool(!left.Equal(right)), nil
	case tokenLT:
		result, err = compareValues("<", left, right, func(c int) bool { return c < 0 })
	case tokenLTE:
		result, err = compareValues("<=", left, right, func(c int) bool { return c <= 0 })
	case tokenGT:
		result, err = compareValues(">", left, right, func(c int) bool { return c > 0 })
	case tokenGTE:
		result, err = compareValues(">=", left, right, func(c int) bool { return c >= 0 })
	default:
		return NewUnit(), exec.errorAt(expr.Pos(), ErrKindRuntime, "unsupported operator %s", expr.Operator)
	}

	if err != nil {
		return NewUnit(), exec.wrapError(err, expr.Pos())
	}
	return result, nil
}

// evalLogicalExpr never evaluates the right operand when the left one
// decides the result.
func (exec *Execution) evalLogicalExpr(expr *LogicalExpr, env *Env) (Value, error) {
	left, err := exec.evalExpression(expr.Left, env)
	if err != nil {
		return NewUnit(), err
	}
	if left.Kind() != KindBool {
		return NewUnit(), exec.errorAt(expr.Left.Pos(), ErrKindTypeMismatch, "'%s' expects bool operands, got %s", expr.Operator, left.Kind())
	}
	if expr.Operator == tokenAnd && !left.Bool() {
		return NewBool(false), nil
	}
	if expr.Operator == tokenOr && left.Bool() {
		return NewBool(true), nil
	}
	right, err := exec.evalExpression(expr.Right, env)
	if err != nil {
		return NewUnit(), err
	}
	if right.Kind() != KindBool {
		return NewUnit(), exec.errorAt(expr.Right.Pos(), ErrKindTypeMismatch, "'%s' expects bool operands, got %s", expr.Operator, right.Kind())
	}
	return right, nil
}

func (exec *Execution) evalRangeExpr(expr *RangeExpr, env *Env) (Value, error) {
	start, err := exec.evalExpression(expr.Start, env)
	if err != nil {
		return NewUnit(), err
	}
	end, err := exec.evalExpression(expr.End, env)
	if err != nil {
		return NewUnit(), err
	}
	if start.Kind() != KindInt || end.Kind() != KindInt {
		return NewUnit(), exec.errorAt(expr.Pos(), ErrKindTypeMismatch, "range bounds must be int, got %s and %s", start.Kind(), end.Kind())
	}
	list, err := inclusiveRange(start.Int(), end.Int())
	if err != nil {
		return NewUnit(), exec.wrapError(err, expr.Pos())
	}
	return list, nil
}

// inclusiveRange counts up or down from a to b, both ends included.
func inclusiveRange(a, b int64) (Value, error) {
	step := int64(1)
	n := b - a
	if b < a {
		step = -1
		n = a - b
	}
	if n < 0 || n >= maxRangeLength {
		return NewUnit(), domainError("range %d..%d is too large", a, b)
	}
	items := make([]Value, 0, n+1)
	for i := a; ; i += step {
		items = append(items, NewInt(i))
		if i == b {
			break
		}
	}
	return NewList(items), nil
}

func (exec *Execution) evalIndexExpr(e *IndexExpr, env *Env) (Value, error) {
	obj, err := exec.evalExpression(e.Object, env)
	if err != nil {
		return NewUnit(), err
	}
	idx, err := exec.evalExpression(e.Index, env)
	if err != nil {
		return NewUnit(), err
	}
	switch obj.Kind() {
	case KindList:
		items := obj.List()
		i, err := listIndex(idx, len(items))
		if err != nil {
			return NewUnit(), exec.wrapError(err, e.Index.Pos())
		}
		return items[i], nil
	case KindString:
		runes := []rune(obj.String())
		i, err := listIndex(idx, len(runes))
		if err != nil {
			return NewUnit(), exec.wrapError(err, e.Index.Pos())
		}
		return NewString(string(runes[i])), nil
	default:
		return NewUnit(), exec.errorAt(e.Object.Pos(), ErrKindTypeMismatch, "cannot index %s", obj.Kind())
	}
}

func listIndex(idx Value, length int) (int, error) {
	if idx.Kind() != KindInt {
		return 0, typeError("index must be int, got %s", idx.Kind())
	}
	i := idx.Int()
	if i < 0 || i >= int64(length) {
		return 0, indexError("index %d out of range for length %d", i, length)
	}
	return int(i), nil
}

func (exec *Execution) evalIfExpr(e *IfExpr, env *Env) (Value, error) {
	cond, err := exec.evalExpression(e.Condition, env)
	if err != nil {
		return NewUnit(), err
	}
	if cond.Kind() != KindBool {
		return NewUnit(), exec.errorAt(e.Condition.Pos(), ErrKindTypeMismatch, "condition must be bool, got %s", cond.Kind())
	}
	if cond.Bool() {
		return exec.evalExpression(e.Consequent, env)
	}
	if e.Alternate != nil {
		return exec.evalExpression(e.Alternate, env)
	}
	return NewUnit(), nil
}

func operandError(op string, left, right Value) error {
	return typeError("cannot apply '%s' to %s and %s", op, left.Kind(), right.Kind())
}

func arithmetic(op string, left, right Value, ints func(a, b int64) int64, floats func(a, b float64) float64) (Value, error) {
	if !left.isNumeric() || !right.isNumeric() {
		return NewUnit(), operandError(op, left, right)
	}
	if left.Kind() == KindInt && right.Kind() == KindInt {
		return NewInt(ints(left.Int(), right.Int())), nil
	}
	return NewFloat(floats(left.Float(), right.Float())), nil
}

func addValues(left, right Value) (Value, error) {
	if left.Kind() == KindString && right.Kind() == KindString {
		return NewString(left.String() + right.String()), nil
	}
	return arithmetic("+", left, right, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b })
}

func divideValues(left, right Value) (Value, error) {
	if !left.isNumeric() || !right.isNumeric() {
		return NewUnit(), operandError("/", left, right)
	}
	if right.Float() == 0 {
		return NewUnit(), domainError("division by zero")
	}
	if left.Kind() == KindInt && right.Kind() == KindInt {
		if left.Int() == math.MinInt64 && right.Int() == -1 {
			return NewUnit(), domainError("integer overflow in division")
		}
		return NewInt(left.Int() / right.Int()), nil
	}
	return NewFloat(left.Float() / right.Float()), nil
}

func moduloValues(left, right Value) (Value, error) {
	if !left.isNumeric() || !right.isNumeric() {
		return NewUnit(), operandError("%", left, right)
	}
	if right.Float() == 0 {
		return NewUnit(), domainError("modulo by zero")
	}
	if left.Kind() == KindInt && right.Kind() == KindInt {
		if right.Int() == -1 {
			return NewInt(0), nil
		}
		return NewInt(left.Int() % right.Int()), nil
	}
	return NewFloat(math.Mod(left.Float(), right.Float())), nil
}

func powerValues(left, right Value) (Value, error) {
	if !left.isNumeric() || !right.isNumeric() {
		return NewUnit(), operandError("^", left, right)
	}
	if left.Kind() == KindInt && right.Kind() == KindInt && right.Int() >= 0 {
		base, exp := left.Int(), right.Int()
		result := int64(1)
		for exp > 0 {
			if exp&1 == 1 {
				result *= base
			}
			base *= base
			exp >>= 1
		}
		return NewInt(result), nil
	}
	if left.Float() == 0 && right.Float() < 0 {
		return NewUnit(), domainError("zero raised to a negative power")
	}
	result := math.Pow(left.Float(), right.Float())
	if math.IsNaN(result) {
		return NewUnit(), domainError("%s ^ %s is undefined", left.Inspect(), right.Inspect())
	}
	return NewFloat(result), nil
}

func concatValues(left, right Value) (Value, error) {
	switch {
	case left.Kind() == KindString && right.Kind() == KindString:
		return NewString(left.String() + right.String()), nil
	case left.Kind() == KindList && right.Kind() == KindList:
		a, b := left.List(), right.List()
		items := make([]Value, 0, len(a)+len(b))
		items = append(items, a...)
		items = append(items, b...)
		return NewList(items), nil
	default:
		return NewUnit(), operandError("++", left, right)
	}
}

func compareValues(op string, left, right Value, accept func(int) bool) (Value, error) {
	switch {
	case left.isNumeric() && right.isNumeric():
		if left.Kind() == KindInt && right.Kind() == KindInt {
			return NewBool(accept(cmp.Compare(left.Int(), right.Int()))), nil
		}
		a, b := left.Float(), right.Float()
		if math.IsNaN(a) || math.IsNaN(b) {
			return NewBool(false), nil
		}
		return NewBool(accept(cmp.Compare(a, b))), nil
	case left.Kind() == KindString && right.Kind() == KindString:
		return NewBool(accept(strings.Compare(left.String(), right.String()))), nil
	default:
		return NewUnit(), operandError(op, left, right)
	}
}
