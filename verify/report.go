package verify

import (
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// UnitResult is the verdict for one unit.
type UnitResult struct {
	Line     int        `yaml:"line"`
	Source   string     `yaml:"source"`
	Passed   bool       `yaml:"passed"`
	Failures []*Failure `yaml:"failures,omitempty"`
}

// FileResult is the verdict for one corpus file. Failures holds problems not
// tied to a single unit; Error is set when the file could not be run.
type FileResult struct {
	Path       string        `yaml:"path"`
	Skipped    bool          `yaml:"skipped,omitempty"`
	SkipReason string        `yaml:"skip_reason,omitempty"`
	Error      string        `yaml:"error,omitempty"`
	Units      []UnitResult  `yaml:"units,omitempty"`
	Failures   []*Failure    `yaml:"failures,omitempty"`
	Duration   time.Duration `yaml:"-"`
}

// Passed counts the units that met their expectations.
func (r FileResult) Passed() int {
	n := 0
	for _, u := range r.Units {
		if u.Passed {
			n++
		}
	}
	return n
}

// Failed counts the units that did not.
func (r FileResult) Failed() int {
	return len(r.Units) - r.Passed()
}

// OK reports whether the file passed. Skipped files pass.
func (r FileResult) OK() bool {
	return r.Error == "" && len(r.Failures) == 0 && r.Failed() == 0
}

// AllFailures returns the file-level and unit-level failures in line order.
func (r FileResult) AllFailures() []*Failure {
	var out []*Failure
	for _, u := range r.Units {
		out = append(out, u.Failures...)
	}
	return append(out, r.Failures...)
}

// Report aggregates file results.
type Report struct {
	Files []FileResult `yaml:"files"`
	Total Totals       `yaml:"total"`
}

type Totals struct {
	Files        int `yaml:"files"`
	FailedFiles  int `yaml:"failed_files"`
	SkippedFiles int `yaml:"skipped_files"`
	Passed       int `yaml:"passed"`
	Failed       int `yaml:"failed"`
}

func NewReport(files []FileResult) *Report {
	r := &Report{Files: files}
	r.Total.Files = len(files)
	for _, f := range files {
		r.Total.Passed += f.Passed()
		r.Total.Failed += f.Failed()
		if f.Skipped {
			r.Total.SkippedFiles++
		}
		if !f.OK() {
			r.Total.FailedFiles++
		}
	}
	return r
}

// OK reports whether every file passed.
func (r *Report) OK() bool {
	return r.Total.FailedFiles == 0
}

// WriteText writes a human summary. verbose lists passing files too.
func (r *Report) WriteText(w io.Writer, verbose bool) error {
	var b strings.Builder
	for _, f := range r.Files {
		switch {
		case f.Skipped:
			if verbose {
				fmt.Fprintf(&b, "SKIP %s (%s)\n", f.Path, f.SkipReason)
			}
		case f.Error != "":
			fmt.Fprintf(&b, "ERROR %s: %s\n", f.Path, f.Error)
		case f.OK():
			if verbose {
				fmt.Fprintf(&b, "ok   %s (%d units)\n", f.Path, len(f.Units))
			}
		default:
			fmt.Fprintf(&b, "FAIL %s (%d/%d units passed)\n", f.Path, f.Passed(), len(f.Units))
			for _, failure := range f.AllFailures() {
				fmt.Fprintf(&b, "  %s\n", failure.Error())
				if failure.Diff != "" {
					for line := range strings.SplitSeq(strings.TrimSuffix(failure.Diff, "\n"), "\n") {
						fmt.Fprintf(&b, "    %s\n", line)
					}
				} else if failure.Expected != "" || failure.Actual != "" {
					fmt.Fprintf(&b, "    expected: %s\n    actual:   %s\n", failure.Expected, failure.Actual)
				}
			}
		}
	}
	fmt.Fprintf(&b, "%d files, %d failed, %d skipped; %d units passed, %d failed\n",
		r.Total.Files, r.Total.FailedFiles, r.Total.SkippedFiles, r.Total.Passed, r.Total.Failed)
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteYAML writes the full report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

// Write dispatches on format, "text" or "yaml".
func (r *Report) Write(w io.Writer, format string, verbose bool) error {
	switch format {
	case "", "text":
		return r.WriteText(w, verbose)
	case "yaml":
		return r.WriteYAML(w)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}
