package maps

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"

	"github.com/Masterminds/semver/v3"
)

// LanguageVersion is checked by the #version pragma.
const LanguageVersion = "0.4.0"

// DefaultRecursionLimit bounds the call depth when Config leaves it unset.
const DefaultRecursionLimit = 10000

// Config controls evaluation bounds and host wiring.
type Config struct {
	// StepQuota caps evaluation steps per Eval call. Zero means unlimited.
	StepQuota      int
	RecursionLimit int
	Stdout         io.Writer
	Logger         *slog.Logger
}

// Engine evaluates Maps programs. It holds no per-program state and may be
// shared by sessions running on different goroutines as long as no builtins
// are registered concurrently.
type Engine struct {
	config   Config
	builtins map[string]Value
	version  *semver.Version
}

// Result is what one Eval call produced. Warnings are reported even when Eval
// also returns an error.
type Result struct {
	Value    Value
	Warnings []Diagnostic
}

// NewEngine constructs an Engine with defaults applied and the standard
// builtins registered.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.StepQuota < 0 {
		return nil, fmt.Errorf("maps: step quota must not be negative, got %d", cfg.StepQuota)
	}
	if cfg.RecursionLimit < 0 {
		return nil, fmt.Errorf("maps: recursion limit must not be negative, got %d", cfg.RecursionLimit)
	}
	if cfg.RecursionLimit == 0 {
		cfg.RecursionLimit = DefaultRecursionLimit
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	engine := &Engine{
		config:   cfg,
		builtins: make(map[string]Value),
		version:  semver.MustParse(LanguageVersion),
	}
	registerStandardBuiltins(engine)
	return engine, nil
}

// MustNewEngine constructs an Engine or panics if the config is invalid.
func MustNewEngine(cfg Config) *Engine {
	engine, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return engine
}

// RegisterBuiltin registers a host function visible in every new root
// environment. arity -1 accepts any number of arguments.
func (e *Engine) RegisterBuiltin(name string, arity int, fn BuiltinFunc) {
	e.builtins[name] = NewBuiltin(name, arity, fn)
}

// Builtins returns a copy of the registered builtin map.
func (e *Engine) Builtins() map[string]Value {
	return maps.Clone(e.builtins)
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// NewRootEnv returns an empty top-level scope whose parent holds the
// builtins. User definitions shadow builtins without replacing them.
func (e *Engine) NewRootEnv() *Env {
	prelude := newEnv(nil)
	maps.Copy(prelude.values, e.builtins)
	root := newEnv(prelude)
	root.pragmas = NewPragmaStore()
	return root
}

// Eval runs the program's statements in env, mutating it, and returns the
// value of the last statement. Mutations made before a failure are kept.
// The error is a *RuntimeError or a *CancelledError.
func (e *Engine) Eval(ctx context.Context, program *Program, env *Env) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	exec := &Execution{
		engine:       e,
		ctx:          ctx,
		source:       program.Source,
		quota:        e.config.StepQuota,
		recursionCap: e.config.RecursionLimit,
		stdout:       e.config.Stdout,
		pos:          program.Pos(),
		pragmas:      env.Pragmas(),
	}
	exec.unit = exec.pragmas.begin()

	val, err := exec.evalTopLevel(program.Statements, env)
	result := Result{Value: val, Warnings: exec.warnings}
	if err != nil {
		result.Value = NewUnit()
		err = exec.finishError(err)
		e.config.Logger.Debug("unit failed", "error", err, "steps", exec.steps)
		return result, err
	}
	e.config.Logger.Debug("unit evaluated", "kind", val.Kind().String(), "steps", exec.steps)
	return result, nil
}

// ConfigSummary provides a human-readable description of the evaluation
// limits.
func (e *Engine) ConfigSummary() string {
	quota := "unlimited"
	if e.config.StepQuota > 0 {
		quota = fmt.Sprint(e.config.StepQuota)
	}
	return fmt.Sprintf("version=%s steps=%s recursion=%d", LanguageVersion, quota, e.config.RecursionLimit)
}
