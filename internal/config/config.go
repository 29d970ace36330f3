// Package config provides configuration loading and defaults for the
// opennebula-mcp server.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted by ApplyEnvOverrides.
const (
	EnvConfigPath = "ONE_MCP_CONFIG_PATH"
	EnvAuthToken  = "ONE_MCP_AUTH_TOKEN"
	EnvAllowWrite = "ONE_MCP_ALLOW_WRITE"
	EnvTransport  = "ONE_MCP_TRANSPORT"
	EnvLogLevel   = "LOG_LEVEL"
	EnvSSHKey     = "ONE_MCP_SSH_KEY"
)

// Transports accepted by server.transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ServerConfig holds transport and authentication settings.
type ServerConfig struct {
	Transport string `yaml:"transport"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// AccessConfig gates mutating tools.
type AccessConfig struct {
	AllowWrite bool `yaml:"allow_write"`
}

// CLIConfig controls how OpenNebula commands are run.
type CLIConfig struct {
	// Timeout is the per-command limit in seconds.
	Timeout int `yaml:"timeout"`
}

// SSHConfig configures execute_command.
type SSHConfig struct {
	User                  string `yaml:"user"`
	Port                  int    `yaml:"port"`
	KeyPath               string `yaml:"key_path"`
	KnownHostsPath        string `yaml:"known_hosts_path"`
	InsecureIgnoreHostKey bool   `yaml:"insecure_ignore_host_key"`
	// Timeout is the dial timeout in seconds.
	Timeout int `yaml:"timeout"`
}

// ToolFilter holds allowlist and denylist patterns for tool names.
type ToolFilter struct {
	Allowlist []string `yaml:"allowlist"`
	Denylist  []string `yaml:"denylist"`
}

// SafetyConfig groups confirmation and tool filtering.
type SafetyConfig struct {
	RequireConfirmation bool       `yaml:"require_confirmation"`
	Tools               ToolFilter `yaml:"tools"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	File      bool   `yaml:"file"`
	Dir       string `yaml:"dir"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// AuditConfig controls audit logging behaviour.
type AuditConfig struct {
	Enabled   bool   `yaml:"enabled"`
	LogPath   string `yaml:"log_path"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// MetricsConfig controls the Prometheus endpoint in HTTP mode.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Access  AccessConfig  `yaml:"access"`
	CLI     CLIConfig     `yaml:"cli"`
	SSH     SSHConfig     `yaml:"ssh"`
	Safety  SafetyConfig  `yaml:"safety"`
	Logging LoggingConfig `yaml:"logging"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoadConfig reads a YAML configuration file over the defaults. Keys absent
// from the file keep their default values. On error, nil is returned.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a new Config populated with default values. Writes
// are disabled and stdio is the transport.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport: TransportStdio,
			Port:      8080,
		},
		CLI: CLIConfig{Timeout: 120},
		SSH: SSHConfig{
			User:    "root",
			Port:    22,
			Timeout: 15,
		},
		Logging: LoggingConfig{
			Format:    "console",
			Dir:       "logs",
			MaxSizeMB: 100,
		},
		Audit: AuditConfig{
			LogPath:   "audit.log",
			MaxSizeMB: 100,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("invalid server.transport %q: want %s or %s", c.Server.Transport, TransportStdio, TransportHTTP)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.CLI.Timeout < 0 {
		return fmt.Errorf("invalid cli.timeout %d", c.CLI.Timeout)
	}
	return nil
}

// CommandTimeout is cli.timeout as a duration.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CLI.Timeout) * time.Second
}

// SSHTimeout is ssh.timeout as a duration.
func (c *Config) SSHTimeout() time.Duration {
	return time.Duration(c.SSH.Timeout) * time.Second
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// replacing variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnvOverrides updates cfg in place from the environment. Empty values
// are ignored, as is an ONE_MCP_ALLOW_WRITE value that is not a boolean.
func ApplyEnvOverrides(cfg *Config) {
	if token := os.Getenv(EnvAuthToken); token != "" {
		cfg.Server.AuthToken = token
	}
	if v := os.Getenv(EnvAllowWrite); v != "" {
		if allow, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.Access.AllowWrite = allow
		}
	}
	if transport := os.Getenv(EnvTransport); transport != "" {
		cfg.Server.Transport = strings.ToLower(transport)
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Logging.Level = level
	}
	if key := os.Getenv(EnvSSHKey); key != "" {
		cfg.SSH.KeyPath = key
	}
}

// EnsureAuthToken generates a random auth token and sets it on cfg if
// cfg.Server.AuthToken is empty. It returns the token (existing or generated).
func EnsureAuthToken(cfg *Config) (string, error) {
	if cfg.Server.AuthToken != "" {
		return cfg.Server.AuthToken, nil
	}
	token, err := GenerateRandomToken()
	if err != nil {
		return "", fmt.Errorf("generate auth token: %w", err)
	}
	cfg.Server.AuthToken = token
	return token, nil
}

// GenerateRandomToken returns a 32-character hex-encoded cryptographically
// random token string.
func GenerateRandomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read: %w", err)
	}
	return hex.EncodeToString(b), nil
}
