package maps

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func evalSource(t *testing.T, engine *Engine, env *Env, source string) (Value, error) {
	t.Helper()
	program, err := Parse(source)
	if err != nil {
		t.Fatalf("parse %q: %v", source, err)
	}
	result, err := engine.Eval(context.Background(), program, env)
	return result.Value, err
}

func mustEval(t *testing.T, source string) Value {
	t.Helper()
	engine := MustNewEngine(Config{})
	val, err := evalSource(t, engine, engine.NewRootEnv(), source)
	if err != nil {
		t.Fatalf("eval %q: %v", source, err)
	}
	return val
}

func requireRuntimeError(t *testing.T, err error, kind string) *RuntimeError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error", kind)
	}
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected RuntimeError, got %T (%v)", err, err)
	}
	if rtErr.Type != kind {
		t.Fatalf("expected %s, got %s: %s", kind, rtErr.Type, rtErr.Message)
	}
	return rtErr
}

func TestEvalExpressions(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"1 + 2 * 3", "7"},
		{"7 / 2", "3"},
		{"7.0 / 2", "3.5"},
		{"2.0 * 3", "6.0"},
		{"10 % 3", "1"},
		{"2 ^ 10", "1024"},
		{"2 ^ -1", "0.5"},
		{"-(3 - 5)", "2"},
		{`"ab" ++ "cd"`, `"abcd"`},
		{`"ab" + "cd"`, `"abcd"`},
		{"[1] ++ [2, 3]", "[1, 2, 3]"},
		{"1..3", "[1, 2, 3]"},
		{"3..1", "[3, 2, 1]"},
		{"1 == 1.0", "true"},
		{"[1, [2]] == [1, [2]]", "true"},
		{`"a" < "b"`, "true"},
		{"not (1 > 2)", "true"},
		{`if 1 < 2 then "y" else "n"`, `"y"`},
		{"if false then 1", "()"},
		{"{ let a = 2; a * a }", "4"},
		{"[10, 20, 30][1]", "20"},
		{`"héllo"[1]`, `"é"`},
		{`len("héllo")`, "5"},
		{"map(\\x -> x * 2, [1, 2])", "[2, 4]"},
		{"filter(\\x -> x % 2 == 0, range(6))", "[0, 2, 4]"},
		{"fold(\\a b -> a + b, 0, 1..4)", "10"},
		{"type_of(1.5)", `"float"`},
		{`int("42") + int(2.9)`, "44"},
		{"str([1, \"a\"])", `"[1, \"a\"]"`},
		{"head(tail([1, 2, 3]))", "2"},
		{"abs(-4)", "4"},
		{"sqrt(16)", "4.0"},
		{"let sq = \\x -> x * x", "()"},
		{"let sq = \\x -> x * x\nsq", "<function sq/1>"},
		{"\\a b -> a", "<function lambda/2>"},
		{"len", "<builtin len>"},
		{"()", "()"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if got := mustEval(t, tt.source).Inspect(); got != tt.want {
				t.Fatalf("eval %q = %s, want %s", tt.source, got, tt.want)
			}
		})
	}
}

func TestEvalRuntimeErrorKinds(t *testing.T) {
	tests := []struct {
		source string
		kind   string
	}{
		{"x + 1", ErrKindUnbound},
		{`1 + "a"`, ErrKindTypeMismatch},
		{"(\\x -> x)(1, 2)", ErrKindArity},
		{"len(1, 2)", ErrKindArity},
		{"1 / 0", ErrKindDomain},
		{"1 % 0", ErrKindDomain},
		{"sqrt(-1)", ErrKindDomain},
		{"[1][5]", ErrKindIndex},
		{"head([])", ErrKindIndex},
		{"if 1 then 2 else 3", ErrKindTypeMismatch},
		{"1 and true", ErrKindTypeMismatch},
		{"5(1)", ErrKindTypeMismatch},
		{`assert(false, "boom")`, ErrKindAssertion},
		{"break", ErrKindRuntime},
		{"return 1", ErrKindRuntime},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			engine := MustNewEngine(Config{})
			_, err := evalSource(t, engine, engine.NewRootEnv(), tt.source)
			requireRuntimeError(t, err, tt.kind)
		})
	}
}

func TestRuntimeErrorCarriesPositionAndFrames(t *testing.T) {
	engine := MustNewEngine(Config{})
	source := "let inner x = x / 0\nlet outer x = inner(x)\nouter(1)"
	_, err := evalSource(t, engine, engine.NewRootEnv(), source)
	rtErr := requireRuntimeError(t, err, ErrKindDomain)
	if rtErr.Pos.Line != 1 {
		t.Fatalf("expected error on line 1, got %+v", rtErr.Pos)
	}
	if len(rtErr.Frames) < 3 || rtErr.Frames[0].Function != "inner" || rtErr.Frames[2].Function != "outer" {
		t.Fatalf("unexpected frames %+v", rtErr.Frames)
	}
	msg := err.Error()
	if !strings.Contains(msg, "division by zero") || !strings.Contains(msg, "at outer") {
		t.Fatalf("unexpected rendering %q", msg)
	}
	if !strings.Contains(rtErr.CodeFrame, "line 1, column") {
		t.Fatalf("expected code frame, got %q", rtErr.CodeFrame)
	}
}

func TestShortCircuitSkipsRightOperand(t *testing.T) {
	source := `
#enable mutable global variables
let calls = 0
let bump = \ -> { calls = calls + 1; true }
false and bump()
true or bump()
false && bump()
true || bump()
calls`
	if got := mustEval(t, source).Inspect(); got != "0" {
		t.Fatalf("expected right operands to be skipped, calls = %s", got)
	}

	source = `
#enable mutable global variables
let calls = 0
let bump = \ -> { calls = calls + 1; true }
true and bump()
false or bump()
calls`
	if got := mustEval(t, source).Inspect(); got != "2" {
		t.Fatalf("expected right operands to run, calls = %s", got)
	}
}

func TestOperandsEvaluateLeftToRight(t *testing.T) {
	source := `
#enable mutable global variables
let log = []
let note = \x -> { log = push(log, x); x }
note(1) + note(2) * note(3)
note(4)(note(5))
log`
	engine := MustNewEngine(Config{})
	_, err := evalSource(t, engine, engine.NewRootEnv(), source)
	rtErr := requireRuntimeError(t, err, ErrKindTypeMismatch)
	if !strings.Contains(rtErr.Message, "cannot call int") {
		t.Fatalf("unexpected message %q", rtErr.Message)
	}

	source = `
#enable mutable global variables
let log = []
let note = \x -> { log = push(log, x); x }
note(1) + note(2) * note(3)
[note(4), note(5)]
log`
	if got := mustEval(t, source).Inspect(); got != "[1, 2, 3, 4, 5]" {
		t.Fatalf("unexpected evaluation order %s", got)
	}
}

func TestClosuresCaptureDefiningScope(t *testing.T) {
	source := `
let make_counter = \ -> {
  let n = 0
  \ -> { n = n + 1; n }
}
let c = make_counter()
let d = make_counter()
c()
c()
d()
[c(), d()]`
	if got := mustEval(t, source).Inspect(); got != "[3, 2]" {
		t.Fatalf("expected independent counters, got %s", got)
	}
}

func TestScopingIsLexical(t *testing.T) {
	source := `
let x = 1
let f = \ -> x
let g = \x -> f()
g(99)`
	if got := mustEval(t, source).Inspect(); got != "1" {
		t.Fatalf("expected lexical scoping, got %s", got)
	}
}

func TestClosureSeesLaterRebinding(t *testing.T) {
	source := `
#enable mutable global variables
let base = 1
let add = \x -> x + base
base = 10
add(1)`
	if got := mustEval(t, source).Inspect(); got != "11" {
		t.Fatalf("expected closure to observe reassignment, got %s", got)
	}
}

func TestRecursiveFunctions(t *testing.T) {
	source := `
let fact n = if n <= 1 then 1 else n * fact(n - 1)
let fib n = if n < 2 then n else fib(n - 1) + fib(n - 2)
[fact(10), fib(15)]`
	if got := mustEval(t, source).Inspect(); got != "[3628800, 610]" {
		t.Fatalf("unexpected result %s", got)
	}
}

func TestEnvironmentPersistsAcrossEvals(t *testing.T) {
	engine := MustNewEngine(Config{})
	env := engine.NewRootEnv()
	if _, err := evalSource(t, engine, env, "let a = 1\nlet f x = x + a"); err != nil {
		t.Fatalf("eval: %v", err)
	}
	val, err := evalSource(t, engine, env, "f(41)")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if val.Inspect() != "42" {
		t.Fatalf("expected 42, got %s", val.Inspect())
	}

	_, err = evalSource(t, engine, engine.NewRootEnv(), "a")
	requireRuntimeError(t, err, ErrKindUnbound)
}

func TestFailedUnitKeepsEarlierMutations(t *testing.T) {
	engine := MustNewEngine(Config{})
	env := engine.NewRootEnv()
	_, err := evalSource(t, engine, env, "#enable mutable global variables\nlet a = 1\na = 2\nmissing\na = 3")
	requireRuntimeError(t, err, ErrKindUnbound)

	val, err := evalSource(t, engine, env, "a")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if val.Inspect() != "2" {
		t.Fatalf("expected partial mutation to persist, got %s", val.Inspect())
	}
}

func TestUserBindingsShadowBuiltins(t *testing.T) {
	engine := MustNewEngine(Config{})
	env := engine.NewRootEnv()
	val, err := evalSource(t, engine, env, "let len = 5\nlen")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if val.Inspect() != "5" {
		t.Fatalf("expected shadowed binding, got %s", val.Inspect())
	}
	val, err = evalSource(t, engine, engine.NewRootEnv(), "len([1, 2])")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if val.Inspect() != "2" {
		t.Fatalf("expected builtin in a fresh env, got %s", val.Inspect())
	}
	if names := env.Names(); len(names) != 1 || names[0] != "len" {
		t.Fatalf("root scope should only hold user bindings, got %v", names)
	}
}

func TestIndexAssignmentMutatesList(t *testing.T) {
	source := `
let xs = [1, 2]
let alias = xs
xs[0] = 9
alias`
	if got := mustEval(t, source).Inspect(); got != "[9, 2]" {
		t.Fatalf("unexpected list %s", got)
	}

	engine := MustNewEngine(Config{})
	_, err := evalSource(t, engine, engine.NewRootEnv(), "let xs = [1]\nxs[3] = 0")
	requireRuntimeError(t, err, ErrKindIndex)
}

func TestLoops(t *testing.T) {
	source := `
#enable mutable global variables
let i = 0
let total = 0
while true {
  i = i + 1
  if i > 5 { break }
  if i % 2 == 0 { continue }
  total = total + i
}
total`
	if got := mustEval(t, source).Inspect(); got != "9" {
		t.Fatalf("unexpected while total %s", got)
	}

	source = `
#enable mutable global variables
let fs = []
for i in 1..3 { fs = push(fs, \ -> i) }
map(\f -> f(), fs)`
	if got := mustEval(t, source).Inspect(); got != "[1, 2, 3]" {
		t.Fatalf("expected per-iteration bindings, got %s", got)
	}

	source = `
#enable mutable global variables
let out = ""
for c in "abc" do out = c ++ out
for n in 3 do out = out ++ str(n)
out`
	if got := mustEval(t, source).Inspect(); got != `"cba012"` {
		t.Fatalf("unexpected string loop result %s", got)
	}
}

func TestReturnLeavesFunctionEarly(t *testing.T) {
	source := `
let first_even xs = {
  for x in xs { if x % 2 == 0 { return x } }
  -1
}
[first_even([1, 3, 4, 5]), first_even([1])]`
	if got := mustEval(t, source).Inspect(); got != "[4, -1]" {
		t.Fatalf("unexpected result %s", got)
	}
}

func TestBreakInsideFunctionDoesNotEscapeLoop(t *testing.T) {
	source := `
let stop = \ -> { break }
while true { stop() }`
	engine := MustNewEngine(Config{})
	_, err := evalSource(t, engine, engine.NewRootEnv(), source)
	rtErr := requireRuntimeError(t, err, ErrKindRuntime)
	if !strings.Contains(rtErr.Message, "break used outside of a loop") {
		t.Fatalf("unexpected message %q", rtErr.Message)
	}
}

func TestPrintWritesToConfiguredStdout(t *testing.T) {
	var out bytes.Buffer
	engine := MustNewEngine(Config{Stdout: &out})
	val, err := evalSource(t, engine, engine.NewRootEnv(), "println(\"a\", 1, [true])\nprint(\"b\")")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !val.IsUnit() {
		t.Fatalf("print should return unit, got %s", val.Inspect())
	}
	if out.String() != "a 1 [true]\nb" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRegisterBuiltin(t *testing.T) {
	engine := MustNewEngine(Config{})
	engine.RegisterBuiltin("twice", 1, func(exec *Execution, args []Value) (Value, error) {
		return exec.Call(args[0], []Value{NewInt(2)})
	})
	val, err := evalSource(t, engine, engine.NewRootEnv(), "twice(\\n -> n * 21)")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if val.Inspect() != "42" {
		t.Fatalf("expected 42, got %s", val.Inspect())
	}
}

func TestNewEngineRejectsNegativeLimits(t *testing.T) {
	if _, err := NewEngine(Config{StepQuota: -1}); err == nil {
		t.Fatalf("expected error for negative step quota")
	}
	if _, err := NewEngine(Config{RecursionLimit: -1}); err == nil {
		t.Fatalf("expected error for negative recursion limit")
	}
	engine := MustNewEngine(Config{})
	if engine.Config().RecursionLimit != DefaultRecursionLimit {
		t.Fatalf("expected default recursion limit, got %d", engine.Config().RecursionLimit)
	}
	if !strings.Contains(engine.ConfigSummary(), "steps=unlimited") {
		t.Fatalf("unexpected summary %q", engine.ConfigSummary())
	}
}

func TestSelfReferentialList(t *testing.T) {
	engine := MustNewEngine(Config{})
	env := engine.NewRootEnv()
	val, err := evalSource(t, engine, env, "let xs = [0, 1]\nxs[0] = xs\nxs")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if got := val.Inspect(); got != "[[...], 1]" {
		t.Fatalf("unexpected rendering %s", got)
	}

	tests := []struct {
		source string
		want   string
	}{
		{"xs == xs", "true"},
		{"let ys = [0, 1]\nys[0] = ys\nxs == ys", "true"},
		{"let zs = [0, 2]\nzs[0] = zs\nxs == zs", "false"},
		{"str(xs)", `"[[...], 1]"`},
		{"[xs, xs]", "[[[...], 1], [[...], 1]]"},
	}
	for _, tt := range tests {
		val, err := evalSource(t, engine, env, tt.source)
		if err != nil {
			t.Fatalf("%q: %v", tt.source, err)
		}
		if got := val.Inspect(); got != tt.want {
			t.Fatalf("%q = %s, want %s", tt.source, got, tt.want)
		}
	}
}
