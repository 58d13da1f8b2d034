// Package config loads the mapsc tool configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvVar names the environment variable that points at a config file.
const EnvVar = "MAPSC_CONFIG"

// Config holds settings shared by the mapsc executables. Command-line flags
// override every field.
type Config struct {
	Log    LogConfig    `toml:"log"`
	Engine EngineConfig `toml:"engine"`
	REPL   REPLConfig   `toml:"repl"`
	Verify VerifyConfig `toml:"verify"`
}

type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level"`
	// Format is text or json.
	Format string `toml:"format"`
}

type EngineConfig struct {
	RecursionLimit int `toml:"recursion_limit"`
	// StepQuota of zero means unlimited.
	StepQuota int      `toml:"step_quota"`
	Timeout   Duration `toml:"timeout"`
}

type REPLConfig struct {
	// HistoryFile is expanded with os.ExpandEnv. Empty selects the default
	// location.
	HistoryFile        string `toml:"history_file"`
	NoHistory          bool   `toml:"no_history"`
	Prompt             string `toml:"prompt"`
	ContinuationPrompt string `toml:"continuation_prompt"`
	Transactional      bool   `toml:"transactional"`
	// Color is "auto", "always" or "never".
	Color string `toml:"color"`
}

type VerifyConfig struct {
	// Jobs of zero uses one worker per CPU.
	Jobs   int    `toml:"jobs"`
	Format string `toml:"format"`
}

// Duration wraps time.Duration for TOML strings like "1500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the TOML file at path.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %s", path, undecoded[0])
	}
	cfg.applyDefaults()
	cfg.REPL.HistoryFile = os.ExpandEnv(cfg.REPL.HistoryFile)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Resolve finds and loads the configuration. An explicit path must exist;
// otherwise $MAPSC_CONFIG, ./mapsc.toml and
// $XDG_CONFIG_HOME/mapsc/config.toml are tried in turn. It returns the path
// used, or "" with the defaults when nothing was found.
func Resolve(explicit string) (*Config, string, error) {
	if explicit != "" {
		cfg, err := Load(explicit)
		return cfg, explicit, err
	}
	if env := os.Getenv(EnvVar); env != "" {
		cfg, err := Load(env)
		return cfg, env, err
	}
	for _, candidate := range searchPaths() {
		if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		cfg, err := Load(candidate)
		return cfg, candidate, err
	}
	return Default(), "", nil
}

func searchPaths() []string {
	paths := []string{"mapsc.toml"}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		if home, err := os.UserHomeDir(); err == nil {
			base = filepath.Join(home, ".config")
		}
	}
	if base != "" {
		paths = append(paths, filepath.Join(base, "mapsc", "config.toml"))
	}
	return paths
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.REPL.Color == "" {
		c.REPL.Color = "auto"
	}
	if c.Verify.Format == "" {
		c.Verify.Format = "text"
	}
}

// Validate rejects values no executable can use.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	switch c.REPL.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("repl.color must be auto, always or never, got %q", c.REPL.Color)
	}
	switch c.Verify.Format {
	case "text", "yaml":
	default:
		return fmt.Errorf("verify.format must be text or yaml, got %q", c.Verify.Format)
	}
	if c.Engine.RecursionLimit < 0 || c.Engine.StepQuota < 0 || c.Verify.Jobs < 0 {
		return errors.New("engine limits and verify.jobs must not be negative")
	}
	if c.Engine.Timeout.Duration < 0 {
		return errors.New("engine.timeout must not be negative")
	}
	return nil
}
