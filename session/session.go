package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mapsc-lang/mapsc/maps"
)

// ErrTerminated is returned when input is fed to a finished session.
var ErrTerminated = errors.New("session: terminated")

// Session sequences units through the parser and evaluator and keeps the
// root environment between them. A Session is not safe for concurrent use.
type Session struct {
	id      uuid.UUID
	opts    Options
	engine  *maps.Engine
	env     *maps.Env
	state   State
	history History
	capture *captureWriter
	logger  *slog.Logger
	styles  styles

	// pending holds the lines of a unit that does not parse yet.
	pending     []string
	pendingLine int
	lineNo      int
	file        string

	units       []*Unit
	evalEnabled bool
}

func New(opts Options, extra ...Option) (*Session, error) {
	opts.applyDefaults()

	s := &Session{
		id:          uuid.New(),
		opts:        opts,
		state:       Idle,
		evalEnabled: true,
		styles:      newStyles(opts.Color),
	}
	s.logger = opts.Logger.With("session", s.id.String())
	s.capture = &captureWriter{out: opts.Stdout}

	cfg := opts.engineConfig(s.capture)
	cfg.Logger = s.logger
	engine, err := maps.NewEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	s.engine = engine
	s.env = engine.NewRootEnv()

	for _, opt := range extra {
		opt(s)
	}

	switch {
	case opts.NoHistory || opts.Mode == ModeBatch:
		s.history = NopHistory{}
	case s.history == nil:
		h, err := OpenHistory(opts.HistoryPath, s.id.String())
		if err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
		s.history = h
	}

	s.logger.Debug("session started", "mode", opts.Mode.String(), "engine", engine.ConfigSummary())
	return s, nil
}

func (s *Session) ID() string             { return s.id.String() }
func (s *Session) State() State           { return s.state }
func (s *Session) Env() *maps.Env         { return s.env }
func (s *Session) Engine() *maps.Engine   { return s.engine }
func (s *Session) History() History       { return s.history }
func (s *Session) Options() Options       { return s.opts }
func (s *Session) Units() []*Unit         { return slices.Clone(s.units) }
func (s *Session) Pending() bool          { return len(s.pending) > 0 }
func (s *Session) Terminated() bool       { return s.state == Terminated }
func (s *Session) SetEvalEnabled(on bool) { s.evalEnabled = on }
func (s *Session) EvalEnabled() bool      { return s.evalEnabled }

// Failed reports whether any unit so far failed.
func (s *Session) Failed() bool {
	return slices.ContainsFunc(s.units, (*Unit).Failed)
}

// Prompt is what an interactive reader should show before the next line.
func (s *Session) Prompt() string {
	if s.opts.NoPrompt {
		return ""
	}
	if s.Pending() {
		return s.opts.ContinuationPrompt
	}
	return s.opts.Prompt
}

// Close releases the history store and terminates the session.
func (s *Session) Close() error {
	s.state = Terminated
	if s.history == nil {
		return nil
	}
	return s.history.Close()
}

// Feed hands one input line to the session. It returns the evaluated unit
// once the accumulated lines form a complete unit, and nil while more input
// is needed or when the line was blank or a REPL command.
func (s *Session) Feed(ctx context.Context, line string) (*Unit, error) {
	if s.state == Terminated {
		return nil, ErrTerminated
	}
	s.lineNo++

	trimmed := strings.TrimSpace(line)
	if len(s.pending) == 0 && trimmed == "" {
		s.state = AwaitingInput
		return nil, nil
	}
	s.record(line)
	// no expression starts with ':', so a command line never continues a
	// pending unit; the pending lines are kept
	if strings.HasPrefix(trimmed, ":") {
		s.runCommand(ctx, trimmed)
		if s.state != Terminated {
			s.state = AwaitingInput
		}
		return nil, nil
	}
	if len(s.pending) == 0 {
		s.pendingLine = s.lineNo
	}

	s.pending = append(s.pending, line)
	source := strings.Join(s.pending, "\n")
	program, err := maps.Parse(source)
	if err != nil && maps.IsIncomplete(err) {
		s.state = AwaitingInput
		return nil, nil
	}
	s.pending = nil
	if err == nil && len(program.Statements) == 0 {
		// comment-only input
		s.state = AwaitingInput
		return nil, nil
	}
	return s.evaluate(ctx, source, s.pendingLine, program, err), nil
}

// Flush evaluates whatever is still pending, reporting it as a parse error.
// It is called at end of input.
func (s *Session) Flush(ctx context.Context) (*Unit, error) {
	if s.state == Terminated {
		return nil, ErrTerminated
	}
	if len(s.pending) == 0 {
		return nil, nil
	}
	source := strings.Join(s.pending, "\n")
	s.pending = nil
	program, err := maps.Parse(source)
	return s.evaluate(ctx, source, s.pendingLine, program, err), nil
}

// Discard drops a partially entered unit.
func (s *Session) Discard() {
	s.pending = nil
	if s.state != Terminated {
		s.state = AwaitingInput
	}
}

// RunBatch parses a whole file and evaluates each top-level statement as a
// unit. The session terminates at the end of the file, or at the first
// failure under QuitOnError.
func (s *Session) RunBatch(ctx context.Context, name string, source string) ([]*Unit, error) {
	if s.state == Terminated {
		return nil, ErrTerminated
	}
	s.state = AwaitingInput
	s.file = name
	defer func() {
		s.state = Terminated
	}()

	program, err := maps.Parse(source)
	if err != nil {
		return []*Unit{s.evaluate(ctx, source, 1, nil, err)}, nil
	}

	var units []*Unit
	for _, unitProgram := range program.Units() {
		if ctx.Err() != nil {
			break
		}
		span := unitProgram.Span()
		text := source[span.Start.Offset:span.End.Offset]
		units = append(units, s.evaluate(ctx, text, span.Start.Line, unitProgram, nil))
		if s.state == Terminated {
			break
		}
	}
	return units, nil
}

func (s *Session) record(line string) {
	if err := s.history.Append(line); err != nil {
		s.logger.Warn("history append failed", "error", err)
	}
}

func (s *Session) evaluate(ctx context.Context, source string, line int, program *maps.Program, parseErr error) *Unit {
	s.state = Evaluating
	unit := &Unit{
		Index:   len(s.units),
		Line:    line,
		Source:  source,
		Program: program,
		Value:   maps.NewUnit(),
	}

	start := time.Now()
	switch {
	case parseErr != nil:
		unit.Diagnostics = append(unit.Diagnostics, maps.DiagnosticFrom(parseErr))
	case !s.evalEnabled:
		unit.Skipped = true
	default:
		s.run(ctx, unit)
	}
	unit.Duration = time.Since(start)
	s.units = append(s.units, unit)

	s.state = Reporting
	s.report(unit)
	s.logger.Debug("unit finished",
		"index", unit.Index,
		"line", unit.Line,
		"failed", unit.Failed(),
		"duration", unit.Duration,
	)

	if s.opts.QuitOnError && unit.Failed() {
		s.state = Terminated
	} else {
		s.state = AwaitingInput
	}
	return unit
}

func (s *Session) run(ctx context.Context, unit *Unit) {
	env := s.env
	if s.opts.NonPersistent {
		env = s.engine.NewRootEnv()
	}
	before := env.Snapshot()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	s.capture.begin()
	result, err := s.engine.Eval(ctx, unit.Program, env)
	unit.Output = s.capture.end()

	unit.Value = result.Value
	unit.Diagnostics = append(unit.Diagnostics, result.Warnings...)
	if err != nil {
		unit.Diagnostics = append(unit.Diagnostics, maps.DiagnosticFrom(err))
		if s.opts.Transactional {
			env.Restore(before)
		}
	}
	unit.Defined = before.Changed(env)
}
