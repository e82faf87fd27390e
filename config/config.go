package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the monitor settings loaded from YAML. The Telegram bot
// token is deliberately not part of the file; it always comes from the
// DAYPASS_TG_TOKEN environment variable.
type Config struct {
	API struct {
		Endpoint string  `yaml:"endpoint"`
		Secret   string  `yaml:"secret"`
		Timeout  int     `yaml:"timeout_seconds"`
		RateRPS  float64 `yaml:"rate_rps"`
	} `yaml:"api"`

	Monitor struct {
		InitialDelaySeconds int `yaml:"initial_delay_seconds"`
		IntervalHours       int `yaml:"interval_hours"`
		MaxDays             int `yaml:"max_days"`
	} `yaml:"monitor"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetDefaultConfig returns a default configuration
func GetDefaultConfig() *Config {
	cfg := &Config{}
	cfg.API.Timeout = 30
	cfg.API.RateRPS = 1
	cfg.Monitor.InitialDelaySeconds = 5
	cfg.Monitor.IntervalHours = 24
	cfg.Monitor.MaxDays = 90
	cfg.Log.Level = "info"
	return cfg
}

func (c *Config) validate() error {
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout_seconds must be positive, got %d", c.API.Timeout)
	}
	if c.API.RateRPS <= 0 {
		return fmt.Errorf("api.rate_rps must be positive, got %g", c.API.RateRPS)
	}
	if c.Monitor.InitialDelaySeconds <= 0 {
		return fmt.Errorf("monitor.initial_delay_seconds must be positive, got %d", c.Monitor.InitialDelaySeconds)
	}
	if c.Monitor.IntervalHours <= 0 {
		return fmt.Errorf("monitor.interval_hours must be positive, got %d", c.Monitor.IntervalHours)
	}
	if c.Monitor.MaxDays <= 0 {
		return fmt.Errorf("monitor.max_days must be positive, got %d", c.Monitor.MaxDays)
	}
	return nil
}

// Timeout returns the API timeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.Timeout) * time.Second
}

// InitialDelay returns the delay before a subscription's first check
func (c *Config) InitialDelay() time.Duration {
	return time.Duration(c.Monitor.InitialDelaySeconds) * time.Second
}

// Interval returns the period between scheduled checks
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Monitor.IntervalHours) * time.Hour
}
