// Package config provides configuration management for the Lysbox presign service.
// Configuration can be loaded from YAML files and environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Signing   SigningConfig   `mapstructure:"signing"`
	Templates TemplateConfig  `mapstructure:"templates"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
}

// Addr returns the listen address in host:port format.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IdentityConfig holds settings for the external identity provider.
type IdentityConfig struct {
	// BaseURL is the identity provider root, e.g. "https://auth.lysbox.app".
	BaseURL string `mapstructure:"base_url"`

	// PublicKey is the provider's public API key, sent as the apikey header.
	PublicKey string `mapstructure:"public_key"`

	// VerifyTimeout bounds the token verification round-trip.
	VerifyTimeout time.Duration `mapstructure:"verify_timeout"`
}

// StorageConfig holds the S3-compatible signing identity.
// All four values are required to issue presigned URLs; absence of any one
// fails every presign request with a configuration error.
type StorageConfig struct {
	// Endpoint is the storage endpoint URL, e.g. "https://acct.r2.cloudflarestorage.com".
	Endpoint string `mapstructure:"endpoint"`

	// Bucket is the target bucket name.
	Bucket string `mapstructure:"bucket"`

	// AccessKeyID is the public half of the signing identity.
	AccessKeyID string `mapstructure:"access_key_id"`

	// SecretAccessKey is the long-lived secret. Never logged.
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// Validate checks that the storage signing identity is complete.
func (c StorageConfig) Validate() error {
	switch {
	case c.Endpoint == "":
		return fmt.Errorf("storage.endpoint is required")
	case c.Bucket == "":
		return fmt.Errorf("storage.bucket is required")
	case c.AccessKeyID == "":
		return fmt.Errorf("storage.access_key_id is required")
	case c.SecretAccessKey == "":
		return fmt.Errorf("storage.secret_access_key is required")
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Host == "" {
		return fmt.Errorf("storage.endpoint is not a valid URL: %q", c.Endpoint)
	}

	return nil
}

// SigningConfig holds SigV4 signing scope settings.
type SigningConfig struct {
	// Region is the signing region. The storage provider accepts the
	// wildcard region "auto".
	Region string `mapstructure:"region"`

	// Service is the signing service name, normally "s3".
	Service string `mapstructure:"service"`

	// DefaultExpiry is applied when a request does not choose an expiry.
	DefaultExpiry time.Duration `mapstructure:"default_expiry"`

	// MaxExpiry caps the requested expiry window.
	MaxExpiry time.Duration `mapstructure:"max_expiry"`
}

// TemplateConfig holds path template resolution settings.
type TemplateConfig struct {
	// Strict rejects templates containing placeholder tokens other than
	// the supported ones instead of passing them through verbatim.
	Strict bool `mapstructure:"strict"`

	// EnforceCallerPrefix rejects resolved keys that do not start under
	// the calling user's own namespace prefix.
	EnforceCallerPrefix bool `mapstructure:"enforce_caller_prefix"`
}

// RedisConfig holds Redis connection settings for the rate limiter backend.
type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Enabled     bool          `mapstructure:"enabled"`
}

// Addr returns the Redis address in host:port format.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled determines if metrics collection is active.
	Enabled bool `mapstructure:"enabled"`

	// Port is the port for the metrics HTTP server.
	Port int `mapstructure:"port"`

	// Path is the URL path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	// Enabled determines if rate limiting is active.
	Enabled bool `mapstructure:"enabled"`

	// Backend selects the limiter implementation: "memory" or "redis".
	Backend string `mapstructure:"backend"`

	// RequestsPerSecond is the rate of token refill per client.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// BurstSize is the maximum number of tokens (burst capacity).
	BurstSize int `mapstructure:"burst_size"`
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values.
// Environment variables are prefixed with LYSBOX_ and use _ as separator.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Environment variable configuration
	v.SetEnvPrefix("LYSBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file configuration
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/lysbox-presign")
	}

	// Read config file (optional - environment variables can be used instead)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is acceptable - use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8085)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_size", 1*1024*1024) // 1MB

	// Identity provider defaults
	v.SetDefault("identity.base_url", "")
	v.SetDefault("identity.public_key", "")
	v.SetDefault("identity.verify_timeout", 5*time.Second)

	// Storage defaults (all must be provided per deployment)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")

	// Signing defaults
	v.SetDefault("signing.region", "auto")
	v.SetDefault("signing.service", "s3")
	v.SetDefault("signing.default_expiry", 15*time.Minute)
	v.SetDefault("signing.max_expiry", 1*time.Hour)

	// Template defaults
	v.SetDefault("templates.strict", true)
	v.SetDefault("templates.enforce_caller_prefix", false)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9091)
	v.SetDefault("metrics.path", "/metrics")

	// Rate limiting defaults
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst_size", 100)
}

// Validate checks the configuration for required values and valid ranges.
// The storage signing identity is deliberately not validated here: its
// absence is surfaced per request as a configuration error so a
// misconfigured deployment answers with 500s instead of refusing to start.
func (c *Config) Validate() error {
	// Validate server configuration
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	// Validate signing configuration
	if c.Signing.Region == "" {
		return fmt.Errorf("signing.region is required")
	}
	if c.Signing.Service == "" {
		return fmt.Errorf("signing.service is required")
	}
	if c.Signing.MaxExpiry <= 0 || c.Signing.MaxExpiry > 1*time.Hour {
		return fmt.Errorf("signing.max_expiry must be between 1s and 1h")
	}
	if c.Signing.DefaultExpiry <= 0 || c.Signing.DefaultExpiry > c.Signing.MaxExpiry {
		return fmt.Errorf("signing.default_expiry must be between 1s and signing.max_expiry")
	}

	// Validate rate limiter configuration
	validBackends := map[string]bool{"memory": true, "redis": true}
	if c.RateLimit.Enabled && !validBackends[c.RateLimit.Backend] {
		return fmt.Errorf("rate_limit.backend must be 'memory' or 'redis'")
	}

	// Validate logging configuration
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, fatal, panic")
	}

	return nil
}

// MustLoad loads configuration or panics on error.
// Useful for main function initialization.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
