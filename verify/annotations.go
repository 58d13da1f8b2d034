package verify

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mapsc-lang/mapsc/session"
)

// AnnotationKind names the inline expectation forms.
type AnnotationKind int

const (
	AnnotValue AnnotationKind = iota
	AnnotError
	AnnotOutput
	AnnotDefines
)

var annotationMarkers = []struct {
	marker string
	kind   AnnotationKind
}{
	{"// =>", AnnotValue},
	{"// error:", AnnotError},
	{"// out:", AnnotOutput},
	{"// defines:", AnnotDefines},
}

func (k AnnotationKind) String() string {
	switch k {
	case AnnotValue:
		return "value"
	case AnnotError:
		return "error"
	case AnnotOutput:
		return "out"
	case AnnotDefines:
		return "defines"
	default:
		return "unknown"
	}
}

// Annotation is one inline expectation comment.
type Annotation struct {
	Kind AnnotationKind
	Line int
	Text string
}

// ParseAnnotations scans source for expectation comments. Markers inside
// string literals are not distinguished from real comments.
func ParseAnnotations(source string) []Annotation {
	var out []Annotation
	for i, line := range strings.Split(source, "\n") {
		for _, m := range annotationMarkers {
			idx := strings.Index(line, m.marker)
			if idx < 0 {
				continue
			}
			text := line[idx+len(m.marker):]
			if m.kind == AnnotOutput {
				// a single separating space is not part of the expected text
				text = strings.TrimSuffix(strings.TrimPrefix(text, " "), "\r")
			} else {
				text = strings.TrimSpace(text)
			}
			out = append(out, Annotation{Kind: m.kind, Line: i + 1, Text: text})
			break
		}
	}
	return out
}

// attach groups annotations by the unit starting at or before their line.
// Annotations that precede every unit are returned separately.
func attach(annotations []Annotation, units []*session.Unit) (map[int][]Annotation, []Annotation) {
	byUnit := make(map[int][]Annotation)
	var orphans []Annotation
	for _, a := range annotations {
		owner := -1
		for i, u := range units {
			if u.Line <= a.Line && (owner < 0 || u.Line >= units[owner].Line) {
				owner = i
			}
		}
		if owner < 0 {
			orphans = append(orphans, a)
			continue
		}
		byUnit[owner] = append(byUnit[owner], a)
	}
	return byUnit, orphans
}

// checkUnit compares one unit against its annotations. expectFailure allows
// an unannotated failure.
func checkUnit(path string, u *session.Unit, annotations []Annotation, expectFailure bool) []*Failure {
	var (
		failures []*Failure
		outputs  []string
		wantErr  bool
	)
	fail := func(line int, expected, actual, format string, args ...any) {
		failures = append(failures, &Failure{
			Path:     path,
			Line:     line,
			Expected: expected,
			Actual:   actual,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	first := u.FirstError()
	for _, a := range annotations {
		switch a.Kind {
		case AnnotValue:
			if first != nil {
				fail(a.Line, a.Text, first.String(), "expected value %s, unit failed", a.Text)
				continue
			}
			if got := u.Value.Inspect(); got != a.Text {
				fail(a.Line, a.Text, got, "expected value %s, got %s", a.Text, got)
			}
		case AnnotError:
			wantErr = true
			kind, substr, _ := strings.Cut(a.Text, ":")
			kind, substr = strings.TrimSpace(kind), strings.TrimSpace(substr)
			if first == nil {
				fail(a.Line, a.Text, u.Value.Inspect(), "expected %s error, unit succeeded", kind)
				continue
			}
			if first.Kind != kind && first.Code != kind {
				fail(a.Line, kind, first.Code, "expected %s error, got %s", kind, first.String())
				continue
			}
			if substr != "" && !strings.Contains(first.Message, substr) {
				fail(a.Line, substr, first.Message, "error message %q does not contain %q", first.Message, substr)
			}
		case AnnotOutput:
			outputs = append(outputs, a.Text)
		case AnnotDefines:
			var want []string
			for name := range strings.SplitSeq(a.Text, ",") {
				if name = strings.TrimSpace(name); name != "" {
					want = append(want, name)
				}
			}
			slices.Sort(want)
			if !slices.Equal(want, u.Defined) {
				fail(a.Line, strings.Join(want, ", "), strings.Join(u.Defined, ", "), "expected definitions [%s], got [%s]",
					strings.Join(want, ", "), strings.Join(u.Defined, ", "))
			}
		}
	}

	if len(outputs) > 0 {
		want := strings.Join(outputs, "\n")
		got := strings.TrimSuffix(u.Output, "\n")
		if want != got {
			fail(u.Line, want, got, "unexpected output")
		}
	}

	if first != nil && !wantErr && !expectFailure && len(failures) == 0 {
		fail(u.Line, "", first.String(), "unexpected %s", first.String())
	}
	return failures
}
