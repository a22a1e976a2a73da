// Package config loads the settings of the secapi command from an optional
// YAML file, an optional .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/sec-api-client/pkg/client"
	"github.com/Sternrassler/sec-api-client/pkg/logging"
)

// Config holds application configuration
type Config struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`

	// Workers is the default fan-out size for report retrieval
	Workers        int           `yaml:"workers"`
	SectionTimeout time.Duration `yaml:"section_timeout"`

	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	Retry  RetryConfig  `yaml:"retry"`
	Redis  RedisConfig  `yaml:"redis"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
}

// RetryConfig mirrors client.RetryConfig with YAML names.
type RetryConfig struct {
	MaxRetries        int           `yaml:"max_retries"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	Jitter            bool          `yaml:"jitter"`
}

// RedisConfig enables the response cache when URL is set.
type RedisConfig struct {
	// URL is either redis://host:port/db or a bare host:port
	URL      string        `yaml:"url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// ServerConfig configures `secapi serve`.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	retry := client.DefaultRetryConfig()
	return &Config{
		BaseURL:           client.DefaultBaseURL,
		UserAgent:         client.DefaultUserAgent,
		Timeout:           client.DefaultTimeout,
		Workers:           1,
		RequestsPerSecond: 10,
		Burst:             10,
		Retry: RetryConfig{
			MaxRetries:        retry.MaxRetries,
			InitialBackoff:    retry.InitialBackoff,
			MaxBackoff:        retry.MaxBackoff,
			BackoffMultiplier: retry.BackoffMultiplier,
			Jitter:            retry.Jitter,
		},
		Redis: RedisConfig{
			CacheTTL: 24 * time.Hour,
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
		Server: ServerConfig{
			Port:           8080,
			RequestTimeout: 5 * time.Minute,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then environment variables. A .env file in the
// working directory is loaded into the environment first when present.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error

	c.APIKey = getEnv(client.APIKeyEnvVar, c.APIKey)
	c.BaseURL = getEnv("SECAPIO_BASE_URL", c.BaseURL)
	c.UserAgent = getEnv("SECAPIO_USER_AGENT", c.UserAgent)
	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	var err error
	if c.Timeout, err = getEnvAsDuration("SECAPIO_TIMEOUT", c.Timeout); err != nil {
		errs = append(errs, err)
	}
	if c.Workers, err = getEnvAsInt("SECAPIO_WORKERS", c.Workers); err != nil {
		errs = append(errs, err)
	}
	if c.RequestsPerSecond, err = getEnvAsFloat("SECAPIO_RPS", c.RequestsPerSecond); err != nil {
		errs = append(errs, err)
	}
	if c.Redis.CacheTTL, err = getEnvAsDuration("SECAPIO_CACHE_TTL", c.Redis.CacheTTL); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Pretty, err = getEnvAsBool("LOG_PRETTY", c.Log.Pretty); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Port, err = getEnvAsInt("PORT", c.Server.Port); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Validate checks that the configuration is valid. The API key is not
// required here; commands that call the API fail on a missing key.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0 (got %v)", c.Timeout)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1 (got %d)", c.Workers)
	}
	if c.SectionTimeout < 0 {
		return fmt.Errorf("section_timeout must be >= 0 (got %v)", c.SectionTimeout)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be >= 0 (got %v)", c.RequestsPerSecond)
	}
	if c.Redis.CacheTTL < 0 {
		return fmt.Errorf("redis.cache_ttl must be >= 0 (got %v)", c.Redis.CacheTTL)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535 (got %d)", c.Server.Port)
	}
	if err := c.ClientRetryConfig().Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	return nil
}

// ClientRetryConfig converts the retry section for the client.
func (c *Config) ClientRetryConfig() client.RetryConfig {
	return client.RetryConfig{
		MaxRetries:        c.Retry.MaxRetries,
		InitialBackoff:    c.Retry.InitialBackoff,
		MaxBackoff:        c.Retry.MaxBackoff,
		BackoffMultiplier: c.Retry.BackoffMultiplier,
		Jitter:            c.Retry.Jitter,
	}
}

// ClientConfig builds the sec-api.io client configuration. redisClient may
// be nil.
func (c *Config) ClientConfig(redisClient *redis.Client) client.Config {
	return client.Config{
		APIKey:            c.APIKey,
		BaseURL:           c.BaseURL,
		UserAgent:         c.UserAgent,
		Timeout:           c.Timeout,
		Retry:             c.ClientRetryConfig(),
		Redis:             redisClient,
		CacheTTL:          c.Redis.CacheTTL,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
	}
}

// LoggingConfig returns the logger settings writing to stderr.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// RedisOptions parses Redis.URL. It returns nil when no Redis is configured.
func (c *Config) RedisOptions() (*redis.Options, error) {
	raw := strings.TrimSpace(c.Redis.URL)
	if raw == "" {
		return nil, nil
	}
	if !strings.Contains(raw, "://") {
		return &redis.Options{Addr: raw}, nil
	}
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return opts, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: invalid number %q", key, value)
	}
	return f, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return b, nil
}

// getEnvAsDuration accepts Go durations ("30s") and plain seconds ("30").
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return d, nil
}
