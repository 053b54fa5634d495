// Package config loads the simulator's settings from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/seiqhcdro/internal/ode"
)

// Environment variables consulted by Load.
const (
	EnvConfig = "SEIQHCDRO_CONFIG"
	EnvDB     = "SEIQHCDRO_DB"
)

// Config is the on-disk settings file.
type Config struct {
	DBPath    string       `yaml:"db_path" validate:"required"`
	LogLevel  string       `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string       `yaml:"log_format" validate:"oneof=text json"`
	Solver    SolverConfig `yaml:"solver"`
	Server    ServerConfig `yaml:"server"`
	Workers   int          `yaml:"workers" validate:"gte=1,lte=256"`
}

// SolverConfig tunes the stiff integrator.
type SolverConfig struct {
	RTol     float64 `yaml:"rtol" validate:"gt=0,lt=1"`
	ATol     float64 `yaml:"atol" validate:"gt=0"`
	MaxStep  float64 `yaml:"max_step" validate:"gte=0"`
	MaxSteps int     `yaml:"max_steps" validate:"gte=0"`
}

// ServerConfig configures the HTTP host.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// Default returns the settings used when no file exists.
func Default() *Config {
	home, _ := os.UserHomeDir()
	opts := ode.DefaultOptions()
	return &Config{
		DBPath:    filepath.Join(home, ".seiqhcdro", "runs.db"),
		LogLevel:  "info",
		LogFormat: "text",
		Solver: SolverConfig{
			RTol:     opts.RTol,
			ATol:     opts.ATol,
			MaxSteps: opts.MaxSteps,
		},
		Server:  ServerConfig{Addr: ":8080"},
		Workers: 4,
	}
}

// Path returns the config file location: $SEIQHCDRO_CONFIG when set,
// otherwise ~/.seiqhcdro/config.yaml.
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".seiqhcdro", "config.yaml")
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults. $SEIQHCDRO_DB overrides the database path.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if env := os.Getenv(EnvDB); env != "" {
		cfg.DBPath = env
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// SolverOptions converts the solver section for ode.Solve.
func (c *Config) SolverOptions() ode.Options {
	return ode.Options{
		RTol:     c.Solver.RTol,
		ATol:     c.Solver.ATol,
		MaxStep:  c.Solver.MaxStep,
		MaxSteps: c.Solver.MaxSteps,
	}
}

// Level parses LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Logger builds a structured logger writing to w in the configured format.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
