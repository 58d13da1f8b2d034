package maps

type ValueKind int

const (
	KindUnit ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindFunction
	KindBuiltin
)

func (k ValueKind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindFunction:
		return "function"
	case KindBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// Value is an immutable handle to a runtime value. Lists share their backing
// slice, so index assignment is visible through every alias.
type Value struct {
	kind ValueKind
	data any
}

// Function is a closure: a lambda together with the environment it was
// created in.
type Function struct {
	Name   string
	Params []string
	Body   Expression
	Env    *Env
	Impure bool
	Pos    Position
	// unit is where the lambda was evaluated, for pragma lookups.
	unit int
}

// BuiltinFunc implements a host function. Errors returned from it are
// reported at the call site.
type BuiltinFunc func(exec *Execution, args []Value) (Value, error)

type Builtin struct {
	Name string
	// Arity is the exact argument count, or -1 for variadic builtins.
	Arity int
	Fn    BuiltinFunc
}

func NewUnit() Value              { return Value{kind: KindUnit} }
func NewBool(b bool) Value        { return Value{kind: KindBool, data: b} }
func NewInt(i int64) Value        { return Value{kind: KindInt, data: i} }
func NewFloat(f float64) Value    { return Value{kind: KindFloat, data: f} }
func NewString(s string) Value    { return Value{kind: KindString, data: s} }
func NewList(items []Value) Value { return Value{kind: KindList, data: items} }

func NewFunction(fn *Function) Value {
	return Value{kind: KindFunction, data: fn}
}

func NewBuiltin(name string, arity int, fn BuiltinFunc) Value {
	return Value{kind: KindBuiltin, data: &Builtin{Name: name, Arity: arity, Fn: fn}}
}
