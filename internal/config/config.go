// Package config loads the driver configuration from a YAML file with
// ${VAR} environment expansion and defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL           = "https://slack.com/api/"
	DefaultListenAddr        = ":8080"
	DefaultWebhookPath       = "/slack"
	DefaultHeartbeatInterval = "120s"

	DefaultLogLevel        = "info"
	DefaultLogMaxSize      = 100 // MB
	DefaultLogMaxBackups   = 5
	DefaultLogMaxAge       = 30 // days
	DefaultLogCompress     = true
	DefaultLogEnableStdout = true
)

// Config is the full configuration surface.
type Config struct {
	Slack   SlackConfig   `yaml:"slack"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// SlackConfig is the driver configuration: the bot token and an optional
// API-compatible backend root.
type SlackConfig struct {
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`

	// HeartbeatInterval is how often the listen command checks the realtime
	// connection. "0" disables the heartbeat.
	HeartbeatInterval string `yaml:"heartbeat_interval"`
}

// ServerConfig configures the webhook HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level        string `yaml:"level"`
	File         string `yaml:"file"`
	MaxSize      int    `yaml:"max_size"`
	MaxBackups   int    `yaml:"max_backups"`
	MaxAge       int    `yaml:"max_age"`
	Compress     bool   `yaml:"compress"`
	EnableStdout bool   `yaml:"enable_stdout"`
}

// Load reads the configuration file, expands environment variables and
// applies defaults.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded, err := expandEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// expandEnv replaces ${VAR_NAME} patterns with environment variable values.
func expandEnv(input string) (string, error) {
	var missingVars []string

	result := os.Expand(input, func(key string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		missingVars = append(missingVars, key)
		return ""
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing required environment variables: %s",
			strings.Join(missingVars, ", "))
	}

	return result, nil
}

func validate(config *Config) error {
	if config.Slack.BaseURL == "" {
		config.Slack.BaseURL = DefaultBaseURL
	}
	if config.Slack.HeartbeatInterval == "" {
		config.Slack.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if _, err := config.Heartbeat(); err != nil {
		return fmt.Errorf("invalid heartbeat_interval: %w", err)
	}

	if config.Server.Addr == "" {
		config.Server.Addr = DefaultListenAddr
	}
	if config.Server.Path == "" {
		config.Server.Path = DefaultWebhookPath
	}
	if !strings.HasPrefix(config.Server.Path, "/") {
		return fmt.Errorf("server.path must start with /")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = DefaultLogLevel
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = DefaultLogMaxSize
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = DefaultLogMaxAge
	}
	if !config.Logging.Compress {
		config.Logging.Compress = DefaultLogCompress
	}
	if !config.Logging.EnableStdout {
		config.Logging.EnableStdout = DefaultLogEnableStdout
	}

	return nil
}

// Heartbeat parses the heartbeat interval. Zero disables the heartbeat.
func (c *Config) Heartbeat() (time.Duration, error) {
	raw := c.Slack.HeartbeatInterval
	if raw == "" || raw == "0" {
		return 0, nil
	}
	interval, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if interval < 0 {
		return 0, fmt.Errorf("heartbeat_interval must not be negative")
	}
	return interval, nil
}
