// Package config loads marla's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	marla "github.com/traherom/marla-sub003"
)

type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Operations OperationsConfig `yaml:"operations"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

type EngineConfig struct {
	Path            string        `yaml:"path" validate:"required"`
	Args            []string      `yaml:"args,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	PlotDir         string        `yaml:"plot_dir,omitempty"`
	PlotWidth       int           `yaml:"plot_width" validate:"gte=0"`
	PlotHeight      int           `yaml:"plot_height" validate:"gte=0"`
	Debug           string        `yaml:"debug" validate:"omitempty,oneof=off commands output full"`
	Repos           string        `yaml:"repos" validate:"required,url"`
}

type OperationsConfig struct {
	Primary string   `yaml:"primary" validate:"required"`
	User    []string `yaml:"user,omitempty"`
	// Watch reloads the operations when a file changes while serving.
	Watch bool `yaml:"watch"`
}

type ServerConfig struct {
	Addr        string        `yaml:"addr" validate:"required,hostname_port"`
	StopTimeout time.Duration `yaml:"stop_timeout" validate:"gt=0"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type TelemetryConfig struct {
	// TraceStdout prints finished spans to stderr.
	TraceStdout bool `yaml:"trace_stdout"`
}

var validate = validator.New()

func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Path:            "R",
			ShutdownTimeout: marla.DefaultShutdownTimeout,
			PlotWidth:       640,
			PlotHeight:      480,
			Debug:           "off",
			Repos:           marla.DefaultRepos,
		},
		Operations: OperationsConfig{
			Primary: "ops.xml",
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8420",
			StopTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file at path over the defaults. A missing file is
// created holding the defaults. Relative operation paths are resolved
// against the file's directory.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	cfg.Operations.Primary = resolve(dir, cfg.Operations.Primary)
	for i, u := range cfg.Operations.User {
		cfg.Operations.User[i] = resolve(dir, u)
	}
	return cfg, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Validate() error {
	return validate.Struct(c)
}

// EngineOptions turns the engine section into connection options.
// Debug output goes to w.
func (c *Config) EngineOptions(w io.Writer, log *slog.Logger) ([]marla.ConnOption, error) {
	e := c.Engine
	mode, err := marla.ParseRecordMode(e.Debug)
	if err != nil {
		return nil, err
	}
	opts := []marla.ConnOption{
		marla.WithShutdownTimeout(e.ShutdownTimeout),
		marla.WithPlotSize(e.PlotWidth, e.PlotHeight),
		marla.WithRepos(e.Repos),
		marla.WithDebug(mode, w),
		marla.WithLogger(log),
	}
	if len(e.Args) > 0 {
		opts = append(opts, marla.WithArgs(e.Args...))
	}
	if e.PlotDir != "" {
		opts = append(opts, marla.WithPlotDir(e.PlotDir))
	}
	return opts, nil
}

// Logger builds the handler named by the logging section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	ho := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, ho))
	}
	return slog.New(slog.NewTextHandler(w, ho))
}
