// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Auth    AuthConfig    `yaml:"auth"`
	YouTube YouTubeConfig `yaml:"youtube"`
	Player  PlayerConfig  `yaml:"player"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// StoreConfig represents row-store collaborator configuration.
type StoreConfig struct {
	URL    string `yaml:"url" validate:"required,url"`
	APIKey string `yaml:"api_key" validate:"required"`
}

// AuthConfig represents identity provider configuration.
type AuthConfig struct {
	URL    string `yaml:"url" validate:"required,url"`
	APIKey string `yaml:"api_key" validate:"required"`
}

// YouTubeConfig represents catalog API configuration.
type YouTubeConfig struct {
	BaseURL    string  `yaml:"base_url" default:"https://www.googleapis.com/youtube/v3/"`
	RatePerSec float64 `yaml:"rate_per_sec" default:"5" validate:"gt=0"`
}

// PlayerConfig represents widget session configuration.
type PlayerConfig struct {
	MaxInitRetries int `yaml:"max_init_retries" default:"3" validate:"gte=0,lte=10"`
	RetryDelayMs   int `yaml:"retry_delay_ms" default:"1000" validate:"gte=0,lte=30000"`
	ReadyTimeoutMs int `yaml:"ready_timeout_ms" default:"15000" validate:"gte=1000"`
}

// RetryDelay returns the widget load retry delay.
func (p PlayerConfig) RetryDelay() time.Duration {
	return time.Duration(p.RetryDelayMs) * time.Millisecond
}

// ReadyTimeout returns the widget ready-signal timeout.
func (p PlayerConfig) ReadyTimeout() time.Duration {
	return time.Duration(p.ReadyTimeoutMs) * time.Millisecond
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for secrets.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("BANDBOX_STORE_KEY"); v != "" {
		c.Store.APIKey = v
	}
	if v := os.Getenv("BANDBOX_AUTH_KEY"); v != "" {
		c.Auth.APIKey = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	return nil
}
