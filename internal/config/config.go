// Package config loads the kassa configuration file.
//
// The file is YAML. Missing keys take defaults; unknown keys are an error.
// The raw document is checked against the #Config schema before it is
// decoded. Remote credentials may be supplied through the environment so
// they stay out of the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kassa/internal/schema"
)

// Environment variables that override remote credentials.
const (
	EnvRemoteAPIKey = "KASSA_REMOTE_API_KEY"
	EnvRemoteDSN    = "KASSA_REMOTE_DSN"
)

// Remote kinds.
const (
	RemoteNone     = "none"
	RemoteREST     = "rest"
	RemotePostgres = "postgres"
)

// Config is the whole configuration file.
type Config struct {
	// Database is the path of the SQLite file. Default: "kassa.db".
	Database string `yaml:"database"`

	// Timezone is the IANA zone that defines the business date.
	// Empty means the system local zone.
	Timezone string `yaml:"timezone"`

	// LogLevel is one of debug, info, warn, error. Default: "info".
	LogLevel string `yaml:"log_level"`

	Receipt Receipt `yaml:"receipt"`
	Viewer  Viewer  `yaml:"viewer"`
	Remote  Remote  `yaml:"remote"`
}

// Receipt configures receipt links and QR images.
type Receipt struct {
	Origin   string `yaml:"origin"`
	QRSize   int    `yaml:"qr_size"`
	QRMargin int    `yaml:"qr_margin"`
}

// Viewer configures the receipt viewer HTTP server.
type Viewer struct {
	Addr string `yaml:"addr"`
}

// Remote configures the best-effort cloud mirror.
type Remote struct {
	Kind    string `yaml:"kind"`
	URL     string `yaml:"url"`
	APIKey  string `yaml:"api_key"`
	DSN     string `yaml:"dsn"`
	Timeout string `yaml:"timeout"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("config loaded", "path", path, "remote", cfg.Remote.Kind)
	return cfg, nil
}

// LoadOrDefault loads path, or returns Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	if err := schema.ValidateYAML(schema.Config, data); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database == "" {
		cfg.Database = "kassa.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Receipt.Origin == "" {
		cfg.Receipt.Origin = "http://localhost:8080"
	}
	if cfg.Receipt.QRSize == 0 {
		cfg.Receipt.QRSize = 300
	}
	if cfg.Receipt.QRMargin == 0 {
		cfg.Receipt.QRMargin = 2
	}
	if cfg.Viewer.Addr == "" {
		cfg.Viewer.Addr = ":8080"
	}
	if cfg.Remote.Kind == "" {
		cfg.Remote.Kind = RemoteNone
	}
	if cfg.Remote.Timeout == "" {
		cfg.Remote.Timeout = "3s"
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvRemoteAPIKey); v != "" {
		cfg.Remote.APIKey = v
	}
	if v := os.Getenv(EnvRemoteDSN); v != "" {
		cfg.Remote.DSN = v
	}
}

// validate checks rules that span several keys.
func validate(cfg *Config) error {
	if _, err := cfg.Location(); err != nil {
		return err
	}
	if _, err := cfg.Remote.DeliveryTimeout(); err != nil {
		return err
	}
	switch cfg.Remote.Kind {
	case RemoteREST:
		if cfg.Remote.URL == "" {
			return errors.New("remote.url is required for kind rest")
		}
	case RemotePostgres:
		if cfg.Remote.DSN == "" {
			return fmt.Errorf("remote.dsn or %s is required for kind postgres", EnvRemoteDSN)
		}
	}
	return nil
}

// Location resolves Timezone. An empty zone is time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// DeliveryTimeout parses Timeout.
func (r Remote) DeliveryTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return 0, fmt.Errorf("remote.timeout %q: %w", r.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("remote.timeout %q: must be positive", r.Timeout)
	}
	return d, nil
}
