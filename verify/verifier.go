// Package verify checks a corpus of .maps programs and .mapsci transcripts
// against the expectations written next to them.
package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mapsc-lang/mapsc/session"
)

const (
	ExtProgram    = ".maps"
	ExtTranscript = ".mapsci"
)

// Options configures a Verifier.
type Options struct {
	// Jobs bounds how many files run at once. Zero means GOMAXPROCS.
	Jobs           int
	RecursionLimit int
	StepQuota      int
	// Timeout bounds each unit.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Verifier runs corpus files, each in its own session.
type Verifier struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options) *Verifier {
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Verifier{opts: opts, logger: logger}
}

// CollectFiles expands directories into the corpus files below them. Files
// named explicitly are kept whatever their extension. The result is in
// argument order, with directory contents sorted.
func CollectFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("collect: %w", err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		var found []string
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsCorpusFile(p) {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", path, err)
		}
		slices.Sort(found)
		files = append(files, found...)
	}
	return files, nil
}

// IsCorpusFile reports whether path has a corpus extension.
func IsCorpusFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ExtProgram || ext == ExtTranscript
}

// Run verifies every file under paths on a bounded pool of workers. The
// report lists files in input order.
func (v *Verifier) Run(ctx context.Context, paths []string) (*Report, error) {
	files, err := CollectFiles(paths)
	if err != nil {
		return nil, err
	}

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.opts.Jobs)
	for i, path := range files {
		g.Go(func() error {
			results[i] = v.VerifyFile(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return NewReport(results), fmt.Errorf("verify: %w", err)
	}
	return NewReport(results), nil
}

// VerifyFile reads path and its sidecar and checks the file.
func (v *Verifier) VerifyFile(ctx context.Context, path string) FileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Error: err.Error()}
	}
	sc, err := LoadSidecar(path)
	if err != nil {
		return FileResult{Path: path, Error: err.Error()}
	}
	return v.VerifySource(ctx, path, string(data), sc)
}

// VerifySource checks source as if it were the file at path. Transcripts are
// recognised by the .mapsci extension; anything else runs as a batch
// program.
func (v *Verifier) VerifySource(ctx context.Context, path, source string, sc Sidecar) FileResult {
	res := FileResult{Path: path}
	if reason := sc.skipReason(); reason != "" {
		res.Skipped = true
		res.SkipReason = reason
		return res
	}

	start := time.Now()
	var stdout bytes.Buffer
	opts := session.Options{
		Mode:           session.ModeBatch,
		QuitOnError:    sc.QuitOnError,
		RecursionLimit: v.opts.RecursionLimit,
		StepQuota:      v.opts.StepQuota,
		Timeout:        v.opts.Timeout,
		Stdout:         &stdout,
		Stderr:         io.Discard,
		Logger:         v.logger.With("file", path),
	}
	transcript := filepath.Ext(path) == ExtTranscript
	if transcript {
		opts.Mode = session.ModeInteractive
		opts.NoHistory = true
		opts.NoPrompt = true
	}

	s, err := session.New(opts)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer s.Close()

	if transcript {
		err = runTranscript(ctx, s, source)
	} else {
		_, err = s.RunBatch(ctx, path, source)
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}

	units := s.Units()
	byUnit, orphans := attach(ParseAnnotations(source), units)
	for _, a := range orphans {
		res.Failures = append(res.Failures, &Failure{
			Path:    path,
			Line:    a.Line,
			Message: fmt.Sprintf("%s expectation does not follow any unit", a.Kind),
		})
	}

	expectFailure := sc.Exit == 1
	anyFailed := false
	for i, u := range units {
		failures := checkUnit(path, u, byUnit[i], expectFailure)
		anyFailed = anyFailed || u.Failed()
		res.Units = append(res.Units, UnitResult{
			Line:     u.Line,
			Source:   firstLine(u.Source),
			Passed:   len(failures) == 0,
			Failures: failures,
		})
	}
	if expectFailure && !anyFailed {
		res.Failures = append(res.Failures, &Failure{
			Path:     path,
			Message:  "expected the file to fail, every unit succeeded",
			Expected: "exit 1",
			Actual:   "exit 0",
		})
	}
	if sc.Stdout != nil && *sc.Stdout != stdout.String() {
		res.Failures = append(res.Failures, &Failure{
			Path:     path,
			Message:  "stdout does not match",
			Expected: *sc.Stdout,
			Actual:   stdout.String(),
			Diff:     lineDiff(*sc.Stdout, stdout.String()),
		})
	}

	res.Duration = time.Since(start)
	v.logger.Debug("file verified", "file", path, "units", len(units), "ok", res.OK())
	return res
}

func runTranscript(ctx context.Context, s *session.Session, source string) error {
	for line := range strings.SplitSeq(strings.TrimSuffix(source, "\n"), "\n") {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := s.Feed(ctx, strings.TrimSuffix(line, "\r")); err != nil {
			if errors.Is(err, session.ErrTerminated) {
				return nil
			}
			return err
		}
	}
	if _, err := s.Flush(ctx); err != nil && !errors.Is(err, session.ErrTerminated) {
		return err
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
