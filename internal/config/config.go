// Package config loads youth.yaml.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable consulted when no -config flag is given.
const EnvVar = "YOUTH_CONFIG"

type Config struct {
	Log     LogConfig     `yaml:"log"`
	REPL    REPLConfig    `yaml:"repl"`
	History HistoryConfig `yaml:"history"`
	Serve   ServeConfig   `yaml:"serve"`
	Test    TestConfig    `yaml:"test"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type REPLConfig struct {
	Prompt         string `yaml:"prompt"`
	ContinuePrompt string `yaml:"continue_prompt"`
	HistoryFile    string `yaml:"history_file"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
}

type ServeConfig struct {
	Addr           string `yaml:"addr"`
	MaxSourceBytes int    `yaml:"max_source_bytes"`
}

type TestConfig struct {
	Parallel int    `yaml:"parallel"`
	Format   string `yaml:"format"`
	FailFast bool   `yaml:"fail_fast"`
}

// Drivers lists the history store backends.
var Drivers = []string{"sqlite", "postgres", "mysql", "sqlserver"}

// Formats lists the script test report formats.
var Formats = []string{"text", "json", "junit"}

func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		REPL: REPLConfig{
			Prompt:         "youth> ",
			ContinuePrompt: "...... ",
			HistoryFile:    "~/.youth_history",
		},
		History: HistoryConfig{Driver: "sqlite", DSN: "youth_history.db"},
		Serve:   ServeConfig{Addr: "127.0.0.1:8787", MaxSourceBytes: 64 << 10},
		Test:    TestConfig{Parallel: 4, Format: "text"},
	}
}

// Path picks the config file: the flag value, then $YOUTH_CONFIG.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvVar)
}

// Load reads path over the defaults. An empty path or a missing file yields
// the defaults; unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Errorf("log.level: %v", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	if !slices.Contains(Drivers, c.History.Driver) {
		return errors.Errorf("history.driver: unknown driver %q (want one of %s)", c.History.Driver, strings.Join(Drivers, ", "))
	}
	if c.History.Enabled && c.History.DSN == "" {
		return errors.New("history.dsn: required when history is enabled")
	}
	if c.Serve.MaxSourceBytes <= 0 {
		return errors.Errorf("serve.max_source_bytes: must be positive, got %d", c.Serve.MaxSourceBytes)
	}
	if c.Test.Parallel < 1 {
		return errors.Errorf("test.parallel: must be at least 1, got %d", c.Test.Parallel)
	}
	if !slices.Contains(Formats, c.Test.Format) {
		return errors.Errorf("test.format: unknown format %q", c.Test.Format)
	}
	return nil
}

// NewLogger builds the process logger described by the log section.
func (c *Config) NewLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	if level, err := logrus.ParseLevel(c.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	if c.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return logger
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func (c *Config) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return string(out)
}
