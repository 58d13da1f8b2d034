package session

import (
	"bytes"
	"io"
	"time"

	"github.com/mapsc-lang/mapsc/maps"
)

// Unit is the record of one evaluated top-level chunk of input.
type Unit struct {
	Index int
	// Line is where the unit starts in its file or transcript.
	Line    int
	Source  string
	Program *maps.Program
	Value   maps.Value
	// Output is what the unit printed.
	Output      string
	Diagnostics []maps.Diagnostic
	// Defined lists root bindings the unit added or changed, sorted.
	Defined []string
	// Skipped is set when evaluation was toggled off and the unit was only
	// parsed.
	Skipped  bool
	Duration time.Duration
}

// Failed reports whether the unit produced an error-severity diagnostic.
func (u *Unit) Failed() bool {
	return u.FirstError() != nil
}

// FirstError returns the first error-severity diagnostic, or nil.
func (u *Unit) FirstError() *maps.Diagnostic {
	for i := range u.Diagnostics {
		if u.Diagnostics[i].IsError() {
			return &u.Diagnostics[i]
		}
	}
	return nil
}

// captureWriter forwards program output and keeps a copy of what the
// current unit printed.
type captureWriter struct {
	out io.Writer
	buf *bytes.Buffer
}

func (w *captureWriter) Write(p []byte) (int, error) {
	if w.buf != nil {
		w.buf.Write(p)
	}
	return w.out.Write(p)
}

func (w *captureWriter) begin() {
	w.buf = &bytes.Buffer{}
}

func (w *captureWriter) end() string {
	if w.buf == nil {
		return ""
	}
	out := w.buf.String()
	w.buf = nil
	return out
}
