package session

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mapsc-lang/mapsc/maps"
)

const (
	DefaultPrompt             = "mapsci> "
	DefaultContinuationPrompt = "   ...> "
)

// Options configures a Session. The zero value is a persistent batch session
// that echoes nothing and keeps going after errors.
type Options struct {
	Mode Mode
	// Quiet suppresses echoing unit values. Program output and diagnostics
	// are still written.
	Quiet       bool
	NoHistory   bool
	QuitOnError bool
	// NonPersistent evaluates every unit in a fresh root environment.
	NonPersistent bool
	// Transactional discards the root environment changes of a unit that
	// failed.
	Transactional bool
	// NoPrompt disables prompts, for driving the shell from a script.
	NoPrompt           bool
	Prompt             string
	ContinuationPrompt string
	HistoryPath        string

	RecursionLimit int
	StepQuota      int
	// Timeout bounds the evaluation of a single unit. Zero means no bound.
	Timeout time.Duration

	Stdout io.Writer
	Stderr io.Writer
	// Color styles diagnostics with ANSI colors.
	Color  bool
	Logger *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.Prompt == "" {
		o.Prompt = DefaultPrompt
	}
	if o.ContinuationPrompt == "" {
		o.ContinuationPrompt = DefaultContinuationPrompt
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

func (o Options) engineConfig(stdout io.Writer) maps.Config {
	return maps.Config{
		StepQuota:      o.StepQuota,
		RecursionLimit: o.RecursionLimit,
		Stdout:         stdout,
		Logger:         o.Logger,
	}
}

// Option adjusts a Session after its Options are applied.
type Option func(*Session)

// WithHistory replaces the history store chosen from Options.
func WithHistory(h History) Option {
	return func(s *Session) {
		s.history = h
	}
}

// WithBuiltin registers an extra host function on the session's engine.
func WithBuiltin(name string, arity int, fn maps.BuiltinFunc) Option {
	return func(s *Session) {
		s.engine.RegisterBuiltin(name, arity, fn)
	}
}

// DefaultHistoryPath is $XDG_DATA_HOME/mapsc/mapsci_history, falling back to
// ~/.local/share.
func DefaultHistoryPath() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		base = os.Getenv("XDG_DATA_DIR")
	}
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "mapsc", "mapsci_history")
}
