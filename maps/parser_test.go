package maps

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func mustParse(t *testing.T, source string) *Program {
	t.Helper()
	program, err := Parse(source)
	if err != nil {
		t.Fatalf("parse %q: %v", source, err)
	}
	return program
}

func TestParseFormatsWithPrecedence(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"2 ^ 3 ^ 2", "(2 ^ (3 ^ 2))"},
		{"-2 ^ 2", "(-(2 ^ 2))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"a and b or c", "((a && b) || c)"},
		{"a || b && c", "(a || (b && c))"},
		{"not a == b", "((!a) == b)"},
		{"1 < 2 == true", "((1 < 2) == true)"},
		{"1..n + 1", "(1 .. (n + 1))"},
		{`"a" ++ "b" ++ "c"`, `(("a" ++ "b") ++ "c")`},
		{"f(1, 2)[0]", "f(1, 2)[0]"},
		{"f()", "f()"},
		{"[]", "[]"},
		{"[1, [2, 3],]", "[1, [2, 3]]"},
		{"()", "()"},
		{"1.5", "1.5"},
		{"2.0", "2.0"},
		{`"tab\there\n"`, `"tab\there\n"`},
		{"let f x y = x + y", `let f = (\x y -> (x + y))`},
		{"let g = \\ => 1", `let g = (\=> 1)`},
		{"let nothing", "let nothing"},
		{`\x -> \y -> x + y`, `(\x -> (\y -> (x + y)))`},
		{"if x then 1 else 2", "(if x then 1 else 2)"},
		{"if x { 1 }", "(if x then { 1 })"},
		{"xs[0] = 5", "xs[0] = 5"},
		{"x = x + 1", "x = (x + 1)"},
		{"while i < 3 do i = i + 1", "while (i < 3) { i = (i + 1) }"},
		{"for x in xs { print(x) }", "for x in xs { print(x) }"},
		{"while true {}", "while true {}"},
		{"{ let a = 1; a }", "{ let a = 1; a }"},
		{"#version >= 0.1", "#version >= 0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got := Format(mustParse(t, tt.source))
			if got != tt.want {
				t.Fatalf("Format(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}

func TestParseNewlinesSeparateStatements(t *testing.T) {
	tests := []struct {
		source string
		want   []string
	}{
		{"1 +\n2", []string{"(1 + 2)"}},
		{"1\n- 2", []string{"1", "(-2)"}},
		{"f\n(1)", []string{"f", "1"}},
		{"(1\n+ 2)", []string{"(1 + 2)"}},
		{"[1,\n 2]", []string{"[1, 2]"}},
		{"let a = 1; let b = 2", []string{"let a = 1", "let b = 2"}},
		{"\n\n;;x;\n", []string{"x"}},
		{"{\n  let x = 1\n  x + 1\n}", []string{"{ let x = 1; (x + 1) }"}},
		{"if c {\n  1\n}\nelse {\n  2\n}", []string{"(if c then { 1 } else { 2 })"}},
	}

	for _, tt := range tests {
		program := mustParse(t, tt.source)
		if len(program.Statements) != len(tt.want) {
			t.Fatalf("%q: expected %d statements, got %d (%s)", tt.source, len(tt.want), len(program.Statements), Format(program))
		}
		for i, stmt := range program.Statements {
			if got := Format(stmt); got != tt.want[i] {
				t.Fatalf("%q: statement %d = %q, want %q", tt.source, i, got, tt.want[i])
			}
		}
	}
}

func TestParseIsDeterministicAndRoundTrips(t *testing.T) {
	sources := []string{
		"let fib n = if n < 2 then n else fib(n - 1) + fib(n - 2)\nfib(10)",
		"let xs = [1, 2, 3]\nfor x in xs { if x % 2 == 0 { continue }; println(x) }",
		`let greet = \name -> "hi " ++ name` + "\n" + `greet("you")`,
		"let total = fold(\\a b -> a + b, 0, 1..10)\n-total ^ 2",
		"let f = \\ => { print(\"x\"); return 1 }",
	}
	for _, source := range sources {
		first := Format(mustParse(t, source))
		second := Format(mustParse(t, source))
		if first != second {
			t.Fatalf("parse of %q is not deterministic:\n%s\n%s", source, first, second)
		}
		again := Format(mustParse(t, first))
		if again != first {
			t.Fatalf("formatted output does not round-trip:\n%s\n%s", first, again)
		}
	}
}

func TestParseReturnsProgramOrError(t *testing.T) {
	sources := []string{"", "1", "let", "let x = ", "1 +", "((", "x = = 1", "@", "let f x x = 1", "\\x x -> 1"}
	for _, source := range sources {
		program, err := Parse(source)
		if (program == nil) == (err == nil) {
			t.Fatalf("Parse(%q) returned program=%v err=%v", source, program != nil, err)
		}
	}
}

func TestParseEmptyInput(t *testing.T) {
	program := mustParse(t, "  // only a comment\n")
	if len(program.Statements) != 0 {
		t.Fatalf("expected no statements, got %d", len(program.Statements))
	}
}

func TestParseErrorReportsExpectedAndActual(t *testing.T) {
	_, err := Parse("let = 1")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T (%v)", err, err)
	}
	if parseErr.Incomplete {
		t.Fatalf("error in the middle of input must not be incomplete")
	}
	if !strings.Contains(parseErr.Message, "expected identifier, got '='") {
		t.Fatalf("unexpected message %q", parseErr.Message)
	}
	if len(parseErr.Expected) != 1 || parseErr.Expected[0] != "identifier" {
		t.Fatalf("unexpected expected set %v", parseErr.Expected)
	}
	if parseErr.Span.Start.Line != 1 || parseErr.Span.Start.Column != 5 {
		t.Fatalf("unexpected span %+v", parseErr.Span)
	}
	if !strings.Contains(err.Error(), "parse error at 1:5") {
		t.Fatalf("unexpected rendering %q", err.Error())
	}
}

func TestParseTrailingTokensAreAnError(t *testing.T) {
	_, err := Parse("1 2")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T (%v)", err, err)
	}
	if parseErr.Incomplete {
		t.Fatalf("trailing token should not be incomplete")
	}
	if !strings.Contains(parseErr.Message, "expected end of statement") {
		t.Fatalf("unexpected message %q", parseErr.Message)
	}
}

func TestParseIncompleteInput(t *testing.T) {
	incomplete := []string{
		"if x {",
		"let f x =",
		"f(1,",
		"1 +",
		"[1, 2",
		"while true {\n  print(1)",
		`"abc`,
		"/* open",
		"\\x ->",
	}
	for _, source := range incomplete {
		_, err := Parse(source)
		if err == nil {
			t.Fatalf("expected error for %q", source)
		}
		if !IsIncomplete(err) {
			t.Fatalf("expected %q to be incomplete, got %v", source, err)
		}
	}

	complete := []string{"1 2", "let = 1", "1 @ 2", "}"}
	for _, source := range complete {
		_, err := Parse(source)
		if err == nil {
			t.Fatalf("expected error for %q", source)
		}
		if IsIncomplete(err) {
			t.Fatalf("expected %q to be a definite error", source)
		}
	}
}

func TestParseRejectsInvalidAssignmentTarget(t *testing.T) {
	_, err := Parse("f(1) = 2")
	if err == nil || !strings.Contains(err.Error(), "invalid assignment target") {
		t.Fatalf("expected invalid assignment target, got %v", err)
	}
}

func TestParseNamesLetBoundLambdas(t *testing.T) {
	program := mustParse(t, "let inc = \\x -> x + 1")
	let := program.Statements[0].(*LetStmt)
	lambda, ok := let.Value.(*LambdaExpr)
	if !ok {
		t.Fatalf("expected lambda, got %T", let.Value)
	}
	if lambda.Name != "inc" {
		t.Fatalf("expected lambda named inc, got %q", lambda.Name)
	}
}

func TestProgramUnits(t *testing.T) {
	program := mustParse(t, "let a = 1\na + 1\nprint(a)")
	units := program.Units()
	if len(units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(units))
	}
	if units[1].Pos().Line != 2 {
		t.Fatalf("unexpected unit position %+v", units[1].Pos())
	}
	if units[2].Source != program.Source {
		t.Fatalf("units should keep the full source for code frames")
	}
}

func TestParseTokenTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if _, err := Parse("let x = 1", WithTokenTrace(logger)); err != nil {
		t.Fatalf("parse: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "literal=let") || !strings.Contains(out, "type=INT") {
		t.Fatalf("expected token trace, got %q", out)
	}
}
