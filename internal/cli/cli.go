// Package cli holds setup shared by the mapsc executables.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/mapsc-lang/mapsc/internal/config"
	"github.com/mapsc-lang/mapsc/internal/logging"
)

// ErrFailed is returned by a command whose diagnostics were already printed.
// main exits with status 1 without printing it again.
var ErrFailed = errors.New("failed")

// Env is what every command needs after flag parsing.
type Env struct {
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger
}

// Setup loads the configuration and builds the logger. verbose forces debug
// logging.
func Setup(configPath string, verbose bool, stderr io.Writer) (*Env, error) {
	cfg, path, err := config.Resolve(configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(stderr, level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	if path != "" {
		logger.Debug("config loaded", "path", path)
	}
	return &Env{Config: cfg, ConfigPath: path, Logger: logger}, nil
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ColorEnabled applies a color mode of auto, always or never to w.
func ColorEnabled(mode string, w any) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return os.Getenv("NO_COLOR") == "" && IsTerminal(w)
	}
}

// Exit maps a command error to a process status, printing it unless it is
// ErrFailed.
func Exit(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	if !errors.Is(err, ErrFailed) {
		fmt.Fprintln(stderr, "error:", err)
	}
	return 1
}
