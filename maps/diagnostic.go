package maps

import (
	"errors"
	"fmt"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	default:
		return "error"
	}
}

// Diagnostic kinds.
const (
	DiagLex          = "LexError"
	DiagParse        = "ParseError"
	DiagRuntime      = "RuntimeError"
	DiagCancelled    = "Cancelled"
	DiagVerification = "VerificationFailure"
	DiagPragma       = "Pragma"
)

// Diagnostic is the data form of every failure the pipeline reports. Code
// narrows Kind for runtime errors (TypeMismatch, ArityMismatch, ...).
type Diagnostic struct {
	Severity Severity
	Kind     string
	Code     string
	Message  string
	Span     Span
	// Detail is the full rendering including code frame and stack.
	Detail string
}

func (d Diagnostic) String() string {
	label := d.Kind
	if d.Code != "" && d.Code != d.Kind {
		label = d.Code
	}
	if d.Span.Start.Line > 0 {
		return fmt.Sprintf("%s[%s] %d:%d: %s", d.Severity, label, d.Span.Start.Line, d.Span.Start.Column, d.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", d.Severity, label, d.Message)
}

// IsError reports whether the diagnostic has error severity.
func (d Diagnostic) IsError() bool { return d.Severity == SeverityError }

// DiagnosticFrom converts a pipeline error into a Diagnostic. Errors of an
// unknown type become runtime diagnostics without a span.
func DiagnosticFrom(err error) Diagnostic {
	var (
		lexErr    *LexError
		parseErr  *ParseError
		rtErr     *RuntimeError
		cancelErr *CancelledError
	)
	switch {
	case errors.As(err, &lexErr):
		return Diagnostic{Kind: DiagLex, Code: DiagLex, Message: lexErr.Message, Span: lexErr.Span, Detail: lexErr.Error()}
	case errors.As(err, &parseErr):
		return Diagnostic{Kind: DiagParse, Code: DiagParse, Message: parseErr.Message, Span: parseErr.Span, Detail: parseErr.Error()}
	case errors.As(err, &rtErr):
		return Diagnostic{
			Kind:    DiagRuntime,
			Code:    rtErr.Type,
			Message: rtErr.Message,
			Span:    Span{Start: rtErr.Pos, End: rtErr.Pos},
			Detail:  rtErr.Error(),
		}
	case errors.As(err, &cancelErr):
		return Diagnostic{
			Kind:    DiagCancelled,
			Code:    DiagCancelled,
			Message: cancelErr.Error(),
			Span:    Span{Start: cancelErr.Pos, End: cancelErr.Pos},
			Detail:  cancelErr.Error(),
		}
	default:
		return Diagnostic{Kind: DiagRuntime, Code: ErrKindRuntime, Message: err.Error(), Detail: err.Error()}
	}
}
