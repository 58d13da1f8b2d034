package verify

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/mapsc-lang/mapsc/maps"
)

// Failure is a mismatch between what a corpus file expects and what the
// session produced.
type Failure struct {
	Path     string `yaml:"path"`
	Line     int    `yaml:"line,omitempty"`
	Message  string `yaml:"message"`
	Expected string `yaml:"expected,omitempty"`
	Actual   string `yaml:"actual,omitempty"`
	// Diff is a line diff of expected against actual stdout.
	Diff string `yaml:"diff,omitempty"`
}

func (f *Failure) Error() string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", f.Path, f.Line, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Path, f.Message)
}

// Diagnostic converts the failure to the common diagnostic form.
func (f *Failure) Diagnostic() maps.Diagnostic {
	pos := maps.Position{Line: f.Line, Column: 1}
	if f.Line == 0 {
		pos = maps.Position{}
	}
	return maps.Diagnostic{
		Severity: maps.SeverityError,
		Kind:     maps.DiagVerification,
		Code:     maps.DiagVerification,
		Message:  f.Message,
		Span:     maps.Span{Start: pos, End: pos},
		Detail:   f.Error(),
	}
}

// lineDiff renders a line-oriented diff, prefixing removed lines with "-",
// added lines with "+" and common lines with a space.
func lineDiff(expected, actual string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(expected, actual)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				out.WriteString("\n")
			}
		}
	}
	return out.String()
}
