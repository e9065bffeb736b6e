package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/sashakarcz/passify/internal/generator"
	"gopkg.in/yaml.v3"
)

// History backends
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config represents the complete server configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	History       HistoryConfig       `yaml:"history"`
	Database      DatabaseConfig      `yaml:"database"`
	Generator     GeneratorConfig     `yaml:"generator"`
	Session       SessionConfig       `yaml:"session"`
	Archive       ArchiveConfig       `yaml:"archive"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Listen       string        `yaml:"listen"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// HistoryConfig selects and sizes the password history backend
type HistoryConfig struct {
	Backend    string `yaml:"backend"` // file, postgres
	File       string `yaml:"file"`
	MaxEntries int    `yaml:"max_entries"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Connection     string `yaml:"connection"`
	MaxConnections int32  `yaml:"max_connections"`
	MinConnections int32  `yaml:"min_connections"`
}

// GeneratorConfig holds the settings a new session starts with
type GeneratorConfig struct {
	Defaults *generator.Settings `yaml:"defaults,omitempty"`
}

// SessionConfig holds per-visitor settings storage options
type SessionConfig struct {
	CookieName    string        `yaml:"cookie_name"`
	TTL           time.Duration `yaml:"ttl"`
	MaxSessions   int           `yaml:"max_sessions"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	SecureCookie  bool          `yaml:"secure_cookie"`
}

// ArchiveConfig holds git archive settings
type ArchiveConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Path        string        `yaml:"path,omitempty"`
	Remote      string        `yaml:"remote,omitempty"`
	Branch      string        `yaml:"branch,omitempty"`
	Interval    time.Duration `yaml:"interval,omitempty"`
	FileName    string        `yaml:"file_name,omitempty"`
	AuthorName  string        `yaml:"author_name,omitempty"`
	AuthorEmail string        `yaml:"author_email,omitempty"`
	Auth        ArchiveAuth   `yaml:"auth,omitempty"`
}

// ArchiveAuth holds credentials for pushing to the archive remote
type ArchiveAuth struct {
	Username string `yaml:"username,omitempty"`
	Token    string `yaml:"token,omitempty"`
}

// ObservabilityConfig holds monitoring and logging settings
type ObservabilityConfig struct {
	MetricsEnabled *bool   `yaml:"metrics_enabled,omitempty"`
	MetricsPath    string  `yaml:"metrics_path"`
	LogLevel       string  `yaml:"log_level"`
	LogFormat      string  `yaml:"log_format"`
	WebAuth        WebAuth `yaml:"web_auth"`
}

// WebAuth holds web UI authentication settings
type WebAuth struct {
	Enabled      bool   `yaml:"enabled"`
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
}

// Load reads and parses a YAML configuration file. An empty path returns
// the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a validated configuration with every default applied
func Default() (*Config, error) {
	var cfg Config
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// MetricsOn reports whether the metrics endpoint is served
func (c *Config) MetricsOn() bool {
	return c.Observability.MetricsEnabled == nil || *c.Observability.MetricsEnabled
}

// DefaultSettings returns the generator settings for new sessions
func (c *Config) DefaultSettings() generator.Settings {
	if c.Generator.Defaults == nil {
		return generator.DefaultSettings()
	}
	return *c.Generator.Defaults
}

// setDefaults sets default values for optional fields
func (c *Config) setDefaults() {
	// Server defaults
	if c.Server.Listen == "" {
		c.Server.Listen = ":5001"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}

	// History defaults
	if c.History.Backend == "" {
		c.History.Backend = BackendFile
	}
	if c.History.File == "" {
		c.History.File = filepath.Join(os.TempDir(), "history.txt")
	}
	if c.History.MaxEntries == 0 {
		c.History.MaxEntries = 100
	}

	// Database defaults
	if c.Database.MaxConnections == 0 {
		c.Database.MaxConnections = 10
	}
	if c.Database.MinConnections == 0 {
		c.Database.MinConnections = 1
	}

	// Session defaults
	if c.Session.CookieName == "" {
		c.Session.CookieName = "passify_session"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Session.MaxSessions == 0 {
		c.Session.MaxSessions = 10000
	}
	if c.Session.SweepInterval == 0 {
		c.Session.SweepInterval = 5 * time.Minute
	}

	// Archive defaults
	if c.Archive.Enabled {
		if c.Archive.Path == "" {
			c.Archive.Path = filepath.Join(os.TempDir(), "passify-archive")
		}
		if c.Archive.Branch == "" {
			c.Archive.Branch = "main"
		}
		if c.Archive.Interval == 0 {
			c.Archive.Interval = 10 * time.Minute
		}
		if c.Archive.FileName == "" {
			c.Archive.FileName = "password_history.txt"
		}
		if c.Archive.AuthorName == "" {
			c.Archive.AuthorName = "passify"
		}
		if c.Archive.AuthorEmail == "" {
			c.Archive.AuthorEmail = "passify@localhost"
		}
		if c.Archive.Auth.Token != "" && c.Archive.Auth.Username == "" {
			c.Archive.Auth.Username = "git"
		}
	}

	// Observability defaults
	if c.Observability.MetricsPath == "" {
		c.Observability.MetricsPath = "/metrics"
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
	if c.Observability.LogFormat == "" {
		c.Observability.LogFormat = "json"
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	// Validate server config
	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		return fmt.Errorf("server.listen %q is not a host:port address: %w", c.Server.Listen, err)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}

	// Validate history config
	switch c.History.Backend {
	case BackendFile:
		if c.History.File == "" {
			return fmt.Errorf("history.file is required for the file backend")
		}
	case BackendPostgres:
		if c.Database.Connection == "" {
			return fmt.Errorf("database.connection is required for the postgres backend")
		}
	default:
		return fmt.Errorf("history.backend must be one of: %s, %s", BackendFile, BackendPostgres)
	}
	if c.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must not be negative")
	}

	// Validate database config
	if c.Database.MaxConnections < c.Database.MinConnections {
		return fmt.Errorf("max_connections must be >= min_connections")
	}

	// Validate generator defaults
	if c.Generator.Defaults != nil {
		if err := c.Generator.Defaults.Validate(); err != nil {
			return fmt.Errorf("generator.defaults: %w", err)
		}
	}

	// Validate session config
	if c.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must not be negative")
	}
	if c.Session.MaxSessions < 0 {
		return fmt.Errorf("session.max_sessions must not be negative")
	}

	// Validate archive config
	if c.Archive.Enabled {
		if c.Archive.Interval < time.Second {
			return fmt.Errorf("archive.interval must be at least 1s")
		}
		if filepath.Base(c.Archive.FileName) != c.Archive.FileName {
			return fmt.Errorf("archive.file_name must be a bare file name")
		}
	}

	// Validate observability config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Observability.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Observability.LogFormat] {
		return fmt.Errorf("log_format must be one of: json, text")
	}

	if c.Observability.WebAuth.Enabled {
		if c.Observability.WebAuth.Username == "" {
			return fmt.Errorf("web_auth.username is required when web_auth is enabled")
		}
		if c.Observability.WebAuth.PasswordHash == "" {
			return fmt.Errorf("web_auth.password_hash is required when web_auth is enabled")
		}
	}

	return nil
}
