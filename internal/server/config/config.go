package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable pointing at an optional YAML file.
const FileEnv = "CANOPY_CONFIG"

type Config struct {
	Port              string        `yaml:"port"`
	BaseURL           string        `yaml:"base_url"`
	DefaultExpiry     time.Duration `yaml:"default_expiry"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	RateLimitRPS      float64       `yaml:"rate_limit_rps"`
	RateLimitBurst    int           `yaml:"rate_limit_burst"`
	MaxArchiveSize    int64         `yaml:"max_archive_size"`
	MaxArchiveEntries int           `yaml:"max_archive_entries"`
	MaxNamespaces     int           `yaml:"max_namespaces"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:              "8080",
		BaseURL:           "http://localhost:8080",
		DefaultExpiry:     24 * time.Hour,
		CleanupInterval:   1 * time.Hour,
		RateLimitRPS:      10,
		RateLimitBurst:    20,
		MaxArchiveSize:    32 * 1024 * 1024, // 32MB
		MaxArchiveEntries: 10000,
		MaxNamespaces:     1000,
	}
}

// Load layers configuration: defaults, then the YAML file named by
// CANOPY_CONFIG, then environment variables. A .env file in the working
// directory is loaded first and never overrides variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.BaseURL = getEnv("BASE_URL", c.BaseURL)
	c.DefaultExpiry = getEnvDuration("DEFAULT_EXPIRY_HOURS", c.DefaultExpiry)
	c.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL_HOURS", c.CleanupInterval)
	c.RateLimitRPS = getEnvFloat64("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst)
	c.MaxArchiveSize = getEnvInt64("MAX_ARCHIVE_SIZE", c.MaxArchiveSize)
	c.MaxArchiveEntries = getEnvInt("MAX_ARCHIVE_ENTRIES", c.MaxArchiveEntries)
	c.MaxNamespaces = getEnvInt("MAX_NAMESPACES", c.MaxNamespaces)
}

// Validate rejects empty and non-positive settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port must not be empty"))
	}
	if c.DefaultExpiry <= 0 {
		errs = append(errs, fmt.Errorf("default_expiry must be positive, got %s", c.DefaultExpiry))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("cleanup_interval must be positive, got %s", c.CleanupInterval))
	}
	if c.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit_rps must be positive, got %g", c.RateLimitRPS))
	}
	if c.RateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit_burst must be positive, got %d", c.RateLimitBurst))
	}
	if c.MaxArchiveSize <= 0 {
		errs = append(errs, fmt.Errorf("max_archive_size must be positive, got %d", c.MaxArchiveSize))
	}
	if c.MaxArchiveEntries <= 0 {
		errs = append(errs, fmt.Errorf("max_archive_entries must be positive, got %d", c.MaxArchiveEntries))
	}
	if c.MaxNamespaces <= 0 {
		errs = append(errs, fmt.Errorf("max_namespaces must be positive, got %d", c.MaxNamespaces))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat64(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration reads a duration given in (fractional) hours.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if hours, err := strconv.ParseFloat(val, 64); err == nil {
			return time.Duration(hours * float64(time.Hour))
		}
	}
	return fallback
}
