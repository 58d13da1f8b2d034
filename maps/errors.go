package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// LexError reports a malformed token.
type LexError struct {
	Message string
	Span    Span
	// Incomplete is set when the input ended inside a string literal or a
	// block comment; more input could still make it valid.
	Incomplete bool
	source     string
}

func (e *LexError) Error() string {
	head := fmt.Sprintf("lex error at %d:%d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Message)
	return withCodeFrame(head, e.source, e.Span.Start)
}

// ParseError reports the first structural failure in a unit. Expected lists
// what the parser would have accepted; Actual describes the token found.
type ParseError struct {
	Message  string
	Expected []string
	Actual   string
	Span     Span
	// Incomplete is set when the failure happened at the end of the input,
	// e.g. an unclosed block or a dangling operator.
	Incomplete bool
	source     string
}

func (e *ParseError) Error() string {
	head := fmt.Sprintf("parse error at %d:%d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Message)
	return withCodeFrame(head, e.source, e.Span.Start)
}

// IsIncomplete reports whether err is a lex or parse failure caused only by
// the input ending too early.
func IsIncomplete(err error) bool {
	var lexErr *LexError
	if errors.As(err, &lexErr) {
		return lexErr.Incomplete
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Incomplete
	}
	return false
}

// Runtime error kinds.
const (
	ErrKindRuntime        = "RuntimeError"
	ErrKindUnbound        = "UnboundIdentifier"
	ErrKindTypeMismatch   = "TypeMismatch"
	ErrKindArity          = "ArityMismatch"
	ErrKindDomain         = "DomainError"
	ErrKindIndex          = "IndexError"
	ErrKindRecursion      = "RecursionLimit"
	ErrKindStepQuota      = "StepQuota"
	ErrKindAssertion      = "AssertionError"
	ErrKindPragma         = "PragmaError"
	ErrKindImmutable      = "ImmutableGlobal"
	runtimeErrorFrameHead = 8
	runtimeErrorFrameTail = 8
)

type StackFrame struct {
	Function string
	Pos      Position
}

// RuntimeError halts the current unit. Type holds one of the ErrKind
// constants.
type RuntimeError struct {
	Type      string
	Message   string
	Pos       Position
	CodeFrame string
	Frames    []StackFrame
}

func (re *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(re.Message)
	if re.CodeFrame != "" {
		b.WriteString("\n")
		b.WriteString(re.CodeFrame)
	}
	renderFrame := func(frame StackFrame) {
		if frame.Pos.Line > 0 && frame.Pos.Column > 0 {
			fmt.Fprintf(&b, "\n  at %s (%d:%d)", frame.Function, frame.Pos.Line, frame.Pos.Column)
		} else if frame.Pos.Line > 0 {
			fmt.Fprintf(&b, "\n  at %s (line %d)", frame.Function, frame.Pos.Line)
		} else {
			fmt.Fprintf(&b, "\n  at %s", frame.Function)
		}
	}

	if len(re.Frames) <= runtimeErrorFrameHead+runtimeErrorFrameTail {
		for _, frame := range re.Frames {
			renderFrame(frame)
		}
		return b.String()
	}

	for _, frame := range re.Frames[:runtimeErrorFrameHead] {
		renderFrame(frame)
	}
	omitted := len(re.Frames) - (runtimeErrorFrameHead + runtimeErrorFrameTail)
	fmt.Fprintf(&b, "\n  ... %d frames omitted ...", omitted)
	for _, frame := range re.Frames[len(re.Frames)-runtimeErrorFrameTail:] {
		renderFrame(frame)
	}

	return b.String()
}

// CancelledError is returned when the context passed to Eval is done before
// the unit finishes.
type CancelledError struct {
	Pos   Position
	Cause error
}

func (e *CancelledError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("evaluation cancelled at %d:%d: %v", e.Pos.Line, e.Pos.Column, e.Cause)
	}
	return fmt.Sprintf("evaluation cancelled: %v", e.Cause)
}

func (e *CancelledError) Unwrap() error { return e.Cause }

// kindedError is what builtins and value helpers return; wrapError turns it
// into a RuntimeError at the call site.
type kindedError struct {
	kind string
	msg  string
}

func (e *kindedError) Error() string { return e.msg }

func typeError(format string, args ...any) error {
	return &kindedError{kind: ErrKindTypeMismatch, msg: fmt.Sprintf(format, args...)}
}

func domainError(format string, args ...any) error {
	return &kindedError{kind: ErrKindDomain, msg: fmt.Sprintf(format, args...)}
}

func indexError(format string, args ...any) error {
	return &kindedError{kind: ErrKindIndex, msg: fmt.Sprintf(format, args...)}
}

func arityError(name string, want string, got int) error {
	return &kindedError{kind: ErrKindArity, msg: fmt.Sprintf("%s expects %s argument(s), got %d", name, want, got)}
}

func classifyRuntimeErrorType(err error) string {
	var kinded *kindedError
	if errors.As(err, &kinded) {
		return kinded.kind
	}
	return ErrKindRuntime
}

var (
	errLoopBreak         = errors.New("loop break")
	errLoopContinue      = errors.New("loop continue")
	errStepQuotaExceeded = errors.New("step quota exceeded")
)

// returnSignal unwinds to the nearest enclosing call.
type returnSignal struct {
	value Value
}

func (r *returnSignal) Error() string { return "return" }

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
