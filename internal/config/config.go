package config

import "github.com/kelseyhightower/envconfig"

// Config contains all service configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	Scheduler SchedulerConfig
	RateLimit RateLimitConfig
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// DatabaseConfig contains persistence store settings
type DatabaseConfig struct {
	Path string `envconfig:"DB_PATH" default:"tabwell.db"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// SchedulerConfig contains mutation queue settings
type SchedulerConfig struct {
	QueueSize int `envconfig:"SCHED_QUEUE_SIZE" default:"64"`
}

// RateLimitConfig contains HTTP rate limiting settings
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Port: "8000", Host: "0.0.0.0"},
		Database:  DatabaseConfig{Path: "tabwell.db"},
		Logging:   LoggingConfig{Level: "info", Development: false},
		Scheduler: SchedulerConfig{QueueSize: 64},
		RateLimit: RateLimitConfig{RequestsPerSecond: 100, Burst: 200, Enabled: true},
	}
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault reads configuration from the environment, falling back to
// defaults when processing fails.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}
