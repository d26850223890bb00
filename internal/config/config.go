//nolint:tagliatelle // superior snake-case yo.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// BoundsBackendMemory keeps boundaries in process memory.
	BoundsBackendMemory = "memory"
	// BoundsBackendRedis keeps boundaries in Redis.
	BoundsBackendRedis = "redis"

	// FailOpen lets requests through when the rate limiter is unavailable.
	FailOpen = "fail_open"
	// FailClosed rejects requests when the rate limiter is unavailable.
	FailClosed = "fail_closed"
)

// Config represents the complete application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Recording    RecordingConfig    `yaml:"recording"`
	Navigation   NavigationConfig   `yaml:"navigation"`
	Bounds       BoundsConfig       `yaml:"bounds"`
	Redis        RedisConfig        `yaml:"redis"`
	Sessions     SessionsConfig     `yaml:"sessions"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
}

// RecordingConfig describes the recording played back by every session.
type RecordingConfig struct {
	Path       string `yaml:"path"`        // JSON-lines file or directory of them
	TopicStats bool   `yaml:"topic_stats"` // Expose per-topic message statistics
}

// NavigationConfig tunes previous/next navigation.
type NavigationConfig struct {
	TargetMessagesInWindow int           `yaml:"target_messages_in_window"`
	WindowCount            int           `yaml:"window_count"`
	ScanTimeout            time.Duration `yaml:"scan_timeout"` // 0 = no deadline
	SupersedeInFlight      bool          `yaml:"supersede_in_flight"`
}

// BoundsConfig holds boundary cache configuration.
type BoundsConfig struct {
	Backend      string        `yaml:"backend"`       // "memory" or "redis"
	TTL          time.Duration `yaml:"ttl"`           // Redis TTL per topic entry (0 = no expiration)
	MergeRetries int           `yaml:"merge_retries"` // Optimistic transaction attempts per merge
}

// RedisConfig holds Redis client configuration.
type RedisConfig struct {
	Address      string        `yaml:"address"`
	Password     string        `yaml:"password"` //nolint:gosec // Config field, not a hardcoded secret.
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

// SessionsConfig controls navigation session lifetime.
type SessionsConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxSessions   int           `yaml:"max_sessions"` // 0 = unlimited
}

// RateLimitingConfig holds rate limiting configuration.
type RateLimitingConfig struct {
	Enabled     bool            `yaml:"enabled"`
	FailureMode string          `yaml:"failure_mode"` // "fail_open" or "fail_closed"
	ExemptIPs   []string        `yaml:"exempt_ips"`   // IPs or CIDR ranges
	Rules       []RateLimitRule `yaml:"rules"`
}

// RateLimitRule defines a single rate limit rule.
type RateLimitRule struct {
	Name        string        `yaml:"name"`
	Method      string        `yaml:"method"`       // Empty matches every method
	PathPattern string        `yaml:"path_pattern"` // Regex pattern
	Limit       int           `yaml:"limit"`        // Max requests
	Window      time.Duration `yaml:"window"`       // Time window
}

// Default returns a configuration with every optional field at its default.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			LogLevel:        "info",
		},
		Recording: RecordingConfig{
			TopicStats: true,
		},
		Navigation: NavigationConfig{
			TargetMessagesInWindow: 10,
			WindowCount:            4,
			SupersedeInFlight:      true,
		},
		Bounds: BoundsConfig{
			Backend: BoundsBackendMemory,
		},
		Sessions: SessionsConfig{
			IdleTimeout:   30 * time.Minute,
			SweepInterval: time.Minute,
		},
	}
}

// Load loads configuration from a YAML file. Fields absent from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML over the defaults
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive")
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	if c.Recording.Path == "" {
		return fmt.Errorf("recording.path is required")
	}

	if err := c.Navigation.Validate(); err != nil {
		return fmt.Errorf("navigation: %w", err)
	}

	if err := c.Bounds.Validate(); err != nil {
		return fmt.Errorf("bounds: %w", err)
	}

	if err := c.Sessions.Validate(); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}

	// Redis is only infrastructure for the features that use it
	if c.RequiresRedis() {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address is required")
		}

		if c.Redis.DialTimeout <= 0 {
			c.Redis.DialTimeout = 5 * time.Second
		}

		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be positive")
		}
	}

	// Validate rate limiting config
	if c.RateLimiting.Enabled {
		if err := c.validateRateLimiting(); err != nil {
			return fmt.Errorf("rate_limiting: %w", err)
		}
	}

	return nil
}

// RequiresRedis reports whether any configured feature needs a Redis client.
func (c *Config) RequiresRedis() bool {
	return c.Bounds.Backend == BoundsBackendRedis || c.RateLimiting.Enabled
}

// Validate validates the navigation settings and sets defaults.
func (c *NavigationConfig) Validate() error {
	if c.TargetMessagesInWindow == 0 {
		c.TargetMessagesInWindow = 10
	}

	if c.WindowCount == 0 {
		c.WindowCount = 4
	}

	if c.TargetMessagesInWindow < 0 {
		return fmt.Errorf("target_messages_in_window must be positive, got %d", c.TargetMessagesInWindow)
	}

	if c.WindowCount < 0 {
		return fmt.Errorf("window_count must be positive, got %d", c.WindowCount)
	}

	if c.ScanTimeout < 0 {
		return fmt.Errorf("scan_timeout cannot be negative")
	}

	return nil
}

// Validate validates the boundary cache settings and sets defaults.
func (c *BoundsConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = BoundsBackendMemory
	}

	if c.Backend != BoundsBackendMemory && c.Backend != BoundsBackendRedis {
		return fmt.Errorf("backend must be '%s' or '%s', got %q", BoundsBackendMemory, BoundsBackendRedis, c.Backend)
	}

	if c.TTL < 0 {
		return fmt.Errorf("ttl cannot be negative")
	}

	if c.MergeRetries < 0 {
		return fmt.Errorf("merge_retries cannot be negative")
	}

	return nil
}

// Validate validates the session settings and sets defaults.
func (c *SessionsConfig) Validate() error {
	if c.SweepInterval == 0 {
		c.SweepInterval = time.Minute
	}

	if c.SweepInterval < 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}

	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout cannot be negative")
	}

	if c.MaxSessions < 0 {
		return fmt.Errorf("max_sessions cannot be negative")
	}

	return nil
}

func (c *Config) validateRateLimiting() error {
	if c.RateLimiting.FailureMode == "" {
		c.RateLimiting.FailureMode = FailOpen
	}

	if c.RateLimiting.FailureMode != FailOpen && c.RateLimiting.FailureMode != FailClosed {
		return fmt.Errorf("failure_mode must be '%s' or '%s'", FailOpen, FailClosed)
	}

	if len(c.RateLimiting.Rules) == 0 {
		return fmt.Errorf("rules must have at least one rule")
	}

	for i, rule := range c.RateLimiting.Rules {
		if rule.Name == "" {
			return fmt.Errorf("rules[%d].name is required", i)
		}

		if rule.PathPattern == "" {
			return fmt.Errorf("rules[%d].path_pattern is required", i)
		}

		if rule.Limit <= 0 {
			return fmt.Errorf("rules[%d].limit must be positive", i)
		}

		if rule.Window <= 0 {
			return fmt.Errorf("rules[%d].window must be positive", i)
		}

		if _, err := regexp.Compile(rule.PathPattern); err != nil {
			return fmt.Errorf("rules[%d].path_pattern invalid regex: %w", i, err)
		}
	}

	for i, entry := range c.RateLimiting.ExemptIPs {
		if _, err := ParsePrefix(entry); err != nil {
			return fmt.Errorf("exempt_ips[%d] invalid IP or CIDR: %s", i, entry)
		}
	}

	return nil
}

// ParsePrefix parses a CIDR range or a single IP, which becomes a full-length
// prefix.
func ParsePrefix(s string) (netip.Prefix, error) {
	if prefix, err := netip.ParsePrefix(s); err == nil {
		return prefix.Masked(), nil
	}

	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}

	return netip.PrefixFrom(addr, addr.BitLen()), nil
}
