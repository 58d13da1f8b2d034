package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mapsc-lang/mapsc/maps"
)

type testSession struct {
	*Session
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestSession(t *testing.T, opts Options) testSession {
	t.Helper()
	var stdout, stderr bytes.Buffer
	opts.Stdout = &stdout
	opts.Stderr = &stderr
	if opts.Mode == ModeInteractive && opts.HistoryPath == "" {
		opts.NoHistory = true
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return testSession{Session: s, stdout: &stdout, stderr: &stderr}
}

func feed(t *testing.T, s testSession, line string) *Unit {
	t.Helper()
	unit, err := s.Feed(context.Background(), line)
	if err != nil {
		t.Fatalf("feed %q: %v", line, err)
	}
	return unit
}

func TestSessionPersistsBindingsAcrossUnits(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive})
	if unit := feed(t, s, "x = 1"); unit == nil || unit.Failed() {
		t.Fatalf("expected assignment to succeed, got %+v", unit)
	}
	unit := feed(t, s, "x + 1")
	if unit.Failed() || unit.Value.Inspect() != "2" {
		t.Fatalf("expected 2, got %s (%v)", unit.Value.Inspect(), unit.Diagnostics)
	}

	fresh := newTestSession(t, Options{Mode: ModeInteractive})
	unit = feed(t, fresh, "x + 1")
	diag := unit.FirstError()
	if diag == nil || diag.Code != maps.ErrKindUnbound {
		t.Fatalf("expected unbound identifier in a fresh session, got %+v", unit.Diagnostics)
	}
}

func TestQuitOnErrorStopsAfterFailingUnit(t *testing.T) {
	source := "let a = 1\nmissing\nlet c = 3"

	s := newTestSession(t, Options{QuitOnError: true})
	units, err := s.RunBatch(context.Background(), "three.maps", source)
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected to stop after the second unit, ran %d", len(units))
	}
	if s.State() != Terminated {
		t.Fatalf("expected terminated session, got %s", s.State())
	}
	if _, ok := s.Env().Get("c"); ok {
		t.Fatalf("third unit must not run")
	}

	s = newTestSession(t, Options{})
	units, err = s.RunBatch(context.Background(), "three.maps", source)
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("expected all three units to run, ran %d", len(units))
	}
	if !units[1].Failed() || units[2].Failed() {
		t.Fatalf("expected only the second unit to fail")
	}
	if _, ok := s.Env().Get("c"); !ok {
		t.Fatalf("expected third unit to define c")
	}
	if !s.Failed() {
		t.Fatalf("session should report the failure")
	}
}

func TestQuitOnErrorInteractive(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive, QuitOnError: true})
	feed(t, s, "let a = 1")
	feed(t, s, "1 / 0")
	if s.State() != Terminated {
		t.Fatalf("expected terminated session, got %s", s.State())
	}
	if _, err := s.Feed(context.Background(), "a"); !errors.Is(err, ErrTerminated) {
		t.Fatalf("expected ErrTerminated, got %v", err)
	}
}

func TestSessionAccumulatesIncompleteUnits(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive})
	if unit := feed(t, s, "let add x y = {"); unit != nil {
		t.Fatalf("expected no unit for an open block")
	}
	if !s.Pending() || s.State() != AwaitingInput {
		t.Fatalf("expected pending input, state %s", s.State())
	}
	if s.Prompt() != DefaultContinuationPrompt {
		t.Fatalf("expected continuation prompt, got %q", s.Prompt())
	}
	if unit := feed(t, s, "  x + y"); unit != nil {
		t.Fatalf("block is still open")
	}
	unit := feed(t, s, "}")
	if unit == nil || unit.Failed() {
		t.Fatalf("expected complete unit, got %+v", unit)
	}
	if unit.Line != 1 || !strings.Contains(unit.Source, "x + y") {
		t.Fatalf("unexpected unit record %+v", unit)
	}
	if s.Pending() || s.Prompt() != DefaultPrompt {
		t.Fatalf("expected primary prompt after the unit completed")
	}

	unit = feed(t, s, "add(2, 3)")
	if unit.Value.Inspect() != "5" {
		t.Fatalf("expected 5, got %s", unit.Value.Inspect())
	}
}

func TestSessionDefiniteParseErrorIsReportedImmediately(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive})
	unit := feed(t, s, "let = 1")
	if unit == nil {
		t.Fatalf("a definite parse error should not wait for more input")
	}
	if diag := unit.FirstError(); diag == nil || diag.Kind != maps.DiagParse {
		t.Fatalf("expected parse diagnostic, got %+v", unit.Diagnostics)
	}
	if !strings.Contains(s.stderr.String(), "error[ParseError] 1:5") {
		t.Fatalf("unexpected stderr %q", s.stderr.String())
	}
	if s.State() != AwaitingInput {
		t.Fatalf("session should continue, state %s", s.State())
	}
}

func TestFlushReportsUnfinishedInput(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive})
	feed(t, s, "if true {")
	unit, err := s.Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if unit == nil || !unit.Failed() {
		t.Fatalf("expected failed unit for unfinished input")
	}
	if s.Pending() {
		t.Fatalf("flush should clear pending input")
	}
}

func TestEchoAndQuiet(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive})
	feed(t, s, "1 + 1")
	feed(t, s, "let y = 3")
	feed(t, s, `print("a")`)
	feed(t, s, `{ print("b"); 7 }`)
	if got := s.stdout.String(); got != "2\nab\n7\n" {
		t.Fatalf("unexpected stdout %q", got)
	}

	quiet := newTestSession(t, Options{Mode: ModeInteractive, Quiet: true})
	feed(t, quiet, "1 + 1")
	feed(t, quiet, `println("still printed")`)
	if got := quiet.stdout.String(); got != "still printed\n" {
		t.Fatalf("quiet should only suppress echo, got %q", got)
	}
}

func TestBatchModeDoesNotEcho(t *testing.T) {
	s := newTestSession(t, Options{})
	units, err := s.RunBatch(context.Background(), "echo.maps", "1 + 1\nprintln(\"out\")")
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if s.stdout.String() != "out\n" {
		t.Fatalf("unexpected stdout %q", s.stdout.String())
	}
	if units[0].Value.Inspect() != "2" || units[1].Output != "out\n" {
		t.Fatalf("unexpected unit records %+v %+v", units[0], units[1])
	}
}

func TestBatchDiagnosticsUseFilePositions(t *testing.T) {
	s := newTestSession(t, Options{})
	units, err := s.RunBatch(context.Background(), "pos.maps", "let a = 1\n\nnope")
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	last := units[len(units)-1]
	if last.Line != 3 || last.Source != "nope" {
		t.Fatalf("unexpected unit %+v", last)
	}
	diag := last.FirstError()
	if diag == nil || diag.Span.Start.Line != 3 {
		t.Fatalf("expected diagnostic on line 3, got %+v", last.Diagnostics)
	}
	if !strings.Contains(s.stderr.String(), "pos.maps: error[UnboundIdentifier] 3:1: unbound identifier nope") {
		t.Fatalf("unexpected stderr %q", s.stderr.String())
	}
	if _, err := s.RunBatch(context.Background(), "again.maps", "1"); !errors.Is(err, ErrTerminated) {
		t.Fatalf("batch session should terminate at end of file, got %v", err)
	}
}

func TestBatchParseErrorFailsWholeFile(t *testing.T) {
	s := newTestSession(t, Options{})
	units, err := s.RunBatch(context.Background(), "bad.maps", "let a = 1\nlet = 2")
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if len(units) != 1 || !units[0].Failed() {
		t.Fatalf("expected a single failed unit, got %d", len(units))
	}
	if _, ok := s.Env().Get("a"); ok {
		t.Fatalf("nothing should run when the file does not parse")
	}
}

func TestFailedUnitRetainsMutationsUnlessTransactional(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive})
	feed(t, s, "#enable mutable global variables")
	feed(t, s, "let a = 1")
	if unit := feed(t, s, "a = 2; nope"); !unit.Failed() {
		t.Fatalf("expected failure")
	}
	if unit := feed(t, s, "a"); unit.Value.Inspect() != "2" {
		t.Fatalf("expected partial mutation kept, got %s", unit.Value.Inspect())
	}

	tx := newTestSession(t, Options{Mode: ModeInteractive, Transactional: true})
	feed(t, tx, "#enable mutable global variables")
	feed(t, tx, "let a = 1")
	unit := feed(t, tx, "a = 2; let b = 3; nope")
	if !unit.Failed() || len(unit.Defined) != 0 {
		t.Fatalf("expected failed unit with no delta, got %+v", unit)
	}
	if unit := feed(t, tx, "a"); unit.Value.Inspect() != "1" {
		t.Fatalf("expected rollback, got %s", unit.Value.Inspect())
	}
	if _, ok := tx.Env().Get("b"); ok {
		t.Fatalf("expected b rolled back")
	}
}

func TestNonPersistentSessions(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive, NonPersistent: true})
	feed(t, s, "let a = 1")
	unit := feed(t, s, "a")
	if diag := unit.FirstError(); diag == nil || diag.Code != maps.ErrKindUnbound {
		t.Fatalf("expected unbound identifier, got %+v", unit.Diagnostics)
	}
}

func TestUnitRecordsEnvironmentDelta(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive})
	feed(t, s, "#enable mutable global variables")
	unit := feed(t, s, "let b = 2; let a = 1")
	if strings.Join(unit.Defined, ",") != "a,b" {
		t.Fatalf("unexpected delta %v", unit.Defined)
	}
	if unit := feed(t, s, "a = 1"); len(unit.Defined) != 0 {
		t.Fatalf("rebinding to an equal value is not a change, got %v", unit.Defined)
	}
	if unit := feed(t, s, "a = 5"); strings.Join(unit.Defined, ",") != "a" {
		t.Fatalf("unexpected delta %v", unit.Defined)
	}
	if unit := feed(t, s, "{ let local = 1; local }"); len(unit.Defined) != 0 {
		t.Fatalf("block bindings are not root bindings, got %v", unit.Defined)
	}
}

func TestUnitTimeoutCancels(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive, Timeout: 20 * time.Millisecond})
	unit := feed(t, s, "while true {}")
	diag := unit.FirstError()
	if diag == nil || diag.Kind != maps.DiagCancelled {
		t.Fatalf("expected cancelled diagnostic, got %+v", unit.Diagnostics)
	}
	if s.State() != AwaitingInput {
		t.Fatalf("a cancelled unit should not end the session, state %s", s.State())
	}
	if unit := feed(t, s, "1"); unit.Failed() {
		t.Fatalf("session should keep working after a cancelled unit")
	}
}

func TestWarningsDoNotFailUnits(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive, QuitOnError: true})
	unit := feed(t, s, "#enable top-level evaluation")
	if unit.Failed() || len(unit.Diagnostics) != 1 {
		t.Fatalf("expected a single warning, got %+v", unit.Diagnostics)
	}
	if s.State() == Terminated {
		t.Fatalf("warnings must not trigger quit-on-error")
	}
	if !strings.Contains(s.stderr.String(), "warning[Pragma]") {
		t.Fatalf("unexpected stderr %q", s.stderr.String())
	}
}

func TestRunWithPlainReader(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive, NoPrompt: true})
	in := strings.NewReader("let x = 2\nlet f n = {\n  n * x\n}\nf(3)\n:q\nx\n")
	if err := s.Run(context.Background(), NewPlainReader(in, s.stdout)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := s.stdout.String(); got != "6\n" {
		t.Fatalf("unexpected stdout %q", got)
	}
	if len(s.Units()) != 3 {
		t.Fatalf("expected 3 units before :q, got %d", len(s.Units()))
	}
	if s.State() != Terminated {
		t.Fatalf("expected terminated, got %s", s.State())
	}
}

func TestRunPrintsPromptsAndHandlesEOF(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive})
	in := strings.NewReader("if true {\n1\n}\n40 + 2")
	if err := s.Run(context.Background(), NewPlainReader(in, s.stdout)); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := DefaultPrompt + DefaultContinuationPrompt + DefaultContinuationPrompt + "1\n" + DefaultPrompt + "42\n" + DefaultPrompt
	if got := s.stdout.String(); got != want {
		t.Fatalf("unexpected transcript:\n%q\nwant\n%q", got, want)
	}
}

func TestCommentOnlyInputIsNotAUnit(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive})
	if unit := feed(t, s, "// just a note"); unit != nil {
		t.Fatalf("comment-only line should not produce a unit")
	}
	if s.Pending() {
		t.Fatalf("comment-only line should not stay pending")
	}
	feed(t, s, "/* open")
	if !s.Pending() {
		t.Fatalf("unterminated block comment should wait for more input")
	}
	if unit := feed(t, s, "close */"); unit != nil || s.Pending() {
		t.Fatalf("closed block comment should be dropped")
	}
	if len(s.Units()) != 0 {
		t.Fatalf("expected no units, got %d", len(s.Units()))
	}
}

func TestSelfReferentialListInSession(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive})
	feed(t, s, "let xs = [0]")
	unit := feed(t, s, "xs[0] = xs")
	if unit.Failed() || strings.Join(unit.Defined, ",") != "xs" {
		t.Fatalf("unexpected unit %+v", unit)
	}
	if unit := feed(t, s, "xs"); unit.Value.Inspect() != "[[...]]" {
		t.Fatalf("unexpected rendering %s", unit.Value.Inspect())
	}
	feed(t, s, ":vars")
	if !strings.Contains(s.stdout.String(), "xs = [[...]]\n") {
		t.Fatalf("unexpected stdout %q", s.stdout.String())
	}
}

func TestUnitDeltaSeesInPlaceMutation(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive})
	feed(t, s, "let xs = [0, [1]]")
	steps := []struct {
		input string
		want  string
	}{
		{"xs[0] = 5", "xs"},
		{"let inner = xs[1]", "inner"},
		{"inner[0] = 2", "inner,xs"},
		{"xs[0] = 5", ""},
		{"let poke l = { l[0] = 7 }", "poke"},
		{"poke(inner)", "inner,xs"},
	}
	for _, step := range steps {
		unit := feed(t, s, step.input)
		if unit.Failed() {
			t.Fatalf("%q failed: %+v", step.input, unit.Diagnostics)
		}
		if got := strings.Join(unit.Defined, ","); got != step.want {
			t.Fatalf("%q: delta = %q, want %q", step.input, got, step.want)
		}
	}
}

func TestTransactionalRestoresListContents(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive, Transactional: true})
	feed(t, s, "let xs = [1, [2]]")
	feed(t, s, "let alias = xs")
	unit := feed(t, s, "xs[0] = 9; xs[1][0] = 8; nope")
	if !unit.Failed() || len(unit.Defined) != 0 {
		t.Fatalf("expected failed unit with no delta, got %+v", unit)
	}
	if unit := feed(t, s, "alias"); unit.Value.Inspect() != "[1, [2]]" {
		t.Fatalf("expected list contents rolled back, got %s", unit.Value.Inspect())
	}
}

func TestCommandsRunWhileUnitPending(t *testing.T) {
	s := newTestSession(t, Options{Mode: ModeInteractive})
	feed(t, s, `let s = "unterminated`)
	if !s.Pending() {
		t.Fatalf("expected pending input")
	}
	feed(t, s, ":vars")
	if !s.Pending() || !strings.Contains(s.stdout.String(), "no bindings") {
		t.Fatalf("a command should run and keep pending input, stdout %q", s.stdout.String())
	}
	feed(t, s, ":discard")
	if s.Pending() || !strings.Contains(s.stdout.String(), "pending input discarded") {
		t.Fatalf("expected :discard to drop pending input")
	}
	if unit := feed(t, s, "1 + 1"); unit == nil || unit.Value.Inspect() != "2" {
		t.Fatalf("expected a fresh unit after :discard, got %+v", unit)
	}

	feed(t, s, "/* open comment")
	feed(t, s, ":q")
	if s.State() != Terminated {
		t.Fatalf(":q should end the session even with pending input, state %s", s.State())
	}
}
