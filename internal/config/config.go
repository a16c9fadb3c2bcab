// Package config provides configuration management for the items API server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultProbePort       = 9090
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultServiceName     = "items-api"
	DefaultCORSOrigins     = "*"
	DefaultRateLimitRPS    = 0
	DefaultRateLimitBurst  = 20
	DefaultRedisDB         = 0
	DefaultCacheTTL        = 5 * time.Minute
	DefaultMaxBodyBytes    = 1 << 20
	DefaultEnvFile         = ".env"
)

// Environment variable names.
const (
	EnvServerPort      = "APP_SERVER_PORT"
	EnvProbePort       = "APP_PROBE_PORT"
	EnvLogLevel        = "APP_LOG_LEVEL"
	EnvShutdownTimeout = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled  = "APP_METRICS_ENABLED"
	EnvServiceName     = "APP_SERVICE_NAME"
	EnvCORSOrigins     = "APP_CORS_ALLOWED_ORIGINS"
	EnvRateLimitRPS    = "APP_RATE_LIMIT_RPS"
	EnvRateLimitBurst  = "APP_RATE_LIMIT_BURST"
	EnvRedisAddr       = "APP_REDIS_ADDR"
	EnvRedisPassword   = "APP_REDIS_PASSWORD" //nolint:gosec // env var name, not a credential
	EnvRedisDB         = "APP_REDIS_DB"
	EnvCacheTTL        = "APP_CACHE_TTL"
	EnvMaxBodyBytes    = "APP_MAX_BODY_BYTES"
	EnvEnvFile         = "APP_ENV_FILE"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	ProbePort       int // 0 disables the probe server.
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
	ServiceName     string
	CORSOrigins     []string
	MaxBodyBytes    int64

	// Per-client rate limiting; RateLimitRPS 0 disables it.
	RateLimitRPS   float64
	RateLimitBurst int

	// Redis item cache; empty RedisAddr disables it.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidProbePort       = errors.New("probe port must be between 0 and 65535")
	ErrProbePortConflict      = errors.New("probe port must differ from server port when probe port is not 0")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrEmptyServiceName       = errors.New("service name must not be empty")
	ErrInvalidRateLimit       = errors.New("rate limit must not be negative")
	ErrInvalidRateLimitBurst  = errors.New("rate limit burst must be positive when rate limiting is enabled")
	ErrInvalidRedisDB         = errors.New("redis db must not be negative")
	ErrInvalidCacheTTL        = errors.New("cache TTL must be positive when redis is enabled")
	ErrInvalidMaxBodyBytes    = errors.New("max body bytes must be positive")
)

// Load reads configuration from a dotenv file and environment variables.
// Variables already present in the environment win over the dotenv file,
// and both win over defaults.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := Default()

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration populated with default values.
func Default() *Config {
	return &Config{
		ServerPort:      DefaultServerPort,
		ProbePort:       DefaultProbePort,
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  DefaultMetricsEnabled,
		ServiceName:     DefaultServiceName,
		CORSOrigins:     splitList(DefaultCORSOrigins),
		MaxBodyBytes:    DefaultMaxBodyBytes,
		RateLimitRPS:    DefaultRateLimitRPS,
		RateLimitBurst:  DefaultRateLimitBurst,
		RedisDB:         DefaultRedisDB,
		CacheTTL:        DefaultCacheTTL,
	}
}

// loadEnvFile loads the dotenv file named by APP_ENV_FILE.
// A missing default file is not an error; a missing explicit file is.
func loadEnvFile() error {
	path, explicit := os.LookupEnv(EnvEnvFile)
	if !explicit || path == "" {
		path = DefaultEnvFile
		explicit = false
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}

	return nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	if err := c.loadRateLimitEnv(); err != nil {
		return err
	}

	if err := c.loadCacheEnv(); err != nil {
		return err
	}

	return nil
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if err := envInt(EnvServerPort, &c.ServerPort); err != nil {
		return err
	}

	if err := envInt(EnvProbePort, &c.ProbePort); err != nil {
		return err
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = strings.ToLower(val)
	}

	if err := envDuration(EnvShutdownTimeout, &c.ShutdownTimeout); err != nil {
		return err
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	if val, ok := os.LookupEnv(EnvServiceName); ok {
		c.ServiceName = strings.TrimSpace(val)
	}

	if val := os.Getenv(EnvCORSOrigins); val != "" {
		c.CORSOrigins = splitList(val)
	}

	if val := os.Getenv(EnvMaxBodyBytes); val != "" {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMaxBodyBytes, err)
		}
		c.MaxBodyBytes = n
	}

	return nil
}

// loadRateLimitEnv loads rate limiting environment variables.
func (c *Config) loadRateLimitEnv() error {
	if val := os.Getenv(EnvRateLimitRPS); val != "" {
		rps, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvRateLimitRPS, err)
		}
		c.RateLimitRPS = rps
	}

	return envInt(EnvRateLimitBurst, &c.RateLimitBurst)
}

// loadCacheEnv loads Redis cache environment variables.
func (c *Config) loadCacheEnv() error {
	if val := os.Getenv(EnvRedisAddr); val != "" {
		c.RedisAddr = val
	}

	if val := os.Getenv(EnvRedisPassword); val != "" {
		c.RedisPassword = val
	}

	if err := envInt(EnvRedisDB, &c.RedisDB); err != nil {
		return err
	}

	return envDuration(EnvCacheTTL, &c.CacheTTL)
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateRateLimit(); err != nil {
		return err
	}

	return c.validateCache()
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	if c.ProbePort < 0 || c.ProbePort > 65535 {
		return ErrInvalidProbePort
	}

	if c.ProbePort != 0 && c.ProbePort == c.ServerPort {
		return ErrProbePortConflict
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if c.ServiceName == "" {
		return ErrEmptyServiceName
	}

	if c.MaxBodyBytes <= 0 {
		return ErrInvalidMaxBodyBytes
	}

	return nil
}

// validateRateLimit validates rate limiting configuration.
func (c *Config) validateRateLimit() error {
	if c.RateLimitRPS < 0 {
		return ErrInvalidRateLimit
	}

	if c.RateLimitEnabled() && c.RateLimitBurst < 1 {
		return ErrInvalidRateLimitBurst
	}

	return nil
}

// validateCache validates Redis cache configuration.
func (c *Config) validateCache() error {
	if c.RedisDB < 0 {
		return ErrInvalidRedisDB
	}

	if c.CacheEnabled() && c.CacheTTL <= 0 {
		return ErrInvalidCacheTTL
	}

	return nil
}

// RateLimitEnabled reports whether per-client rate limiting is on.
func (c *Config) RateLimitEnabled() bool {
	return c.RateLimitRPS > 0
}

// CacheEnabled reports whether the Redis item cache is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// ProbeAddress returns the probe server address in host:port format.
func (c *Config) ProbeAddress() string {
	return fmt.Sprintf(":%d", c.ProbePort)
}

func envInt(name string, dst *int) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = n
	return nil
}

func envDuration(name string, dst *time.Duration) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = d
	return nil
}

// splitList splits a comma separated list, dropping empty entries.
func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
