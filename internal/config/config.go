// Package config loads application configuration from command-line flags,
// environment variables, a .env file and defaults, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Store  StoreConfig
	API    APIConfig
	Feed   FeedConfig
	UI     UIConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	// DataDir holds the local store, the log file and theme.json.
	DataDir string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
	File  string
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	RedisAddr     string // Optional; local store when empty
	RedisPassword string
	RedisDB       int
	// LikesStrategy is "list" or "index".
	LikesStrategy string
}

// APIConfig configures the verse API client.
type APIConfig struct {
	BaseURL        string
	Edition        string
	Translation    string
	RequestTimeout time.Duration
	RateLimit      float64 // requests per second, 0 disables
}

// FeedConfig sizes feed batches.
type FeedConfig struct {
	InitialBatch int
	BatchSize    int
	Prefetch     int
}

// UIConfig holds presentation settings.
type UIConfig struct {
	StartPath string
	Theme     Theme
}

// Load reads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("quran-go", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFile := fs.String("log-file", "", "Log file (default: {data-dir}/quran-go.log)")
	dataDir := fs.String("data-dir", "", "Directory for local state")

	redisAddr := fs.String("redis-addr", "", "Redis address; local store when empty")
	redisPassword := fs.String("redis-password", "", "Redis password")
	redisDB := fs.String("redis-db", "", "Redis database (default: 0)")
	likesStrategy := fs.String("likes-strategy", "", "How likes are loaded: list or index (default: list)")

	apiURL := fs.String("api-url", "", "Verse API base URL")
	edition := fs.String("edition", "", "Primary text edition (default: quran-uthmani)")
	translation := fs.String("translation", "", "Translation edition (default: en.asad)")
	requestTimeout := fs.String("request-timeout", "", "Per-request timeout (default: 15s)")
	rateLimit := fs.String("rate-limit", "", "API requests per second, 0 for unlimited (default: 5)")

	initialBatch := fs.String("initial-batch", "", "Verses loaded on open (default: 10)")
	batchSize := fs.String("batch-size", "", "Verses loaded per batch (default: 5)")
	prefetch := fs.String("prefetch", "", "Distance from the end that triggers a batch (default: 2)")

	startPath := fs.String("path", "", "Start location, e.g. / or /chapter/36")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Existing environment variables win over the file.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "QURAN_ENV", "development"),
			DataDir:     getConfigValue(*dataDir, "QURAN_DATA_DIR", ""),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			File:  getConfigValue(*logFile, "LOG_FILE", ""),
		},
		Store: StoreConfig{
			RedisAddr:     getConfigValue(*redisAddr, "REDIS_ADDR", ""),
			RedisPassword: getConfigValue(*redisPassword, "REDIS_PASSWORD", ""),
			RedisDB:       getIntConfigValue(*redisDB, "REDIS_DB", 0),
			LikesStrategy: getConfigValue(*likesStrategy, "LIKES_STRATEGY", "list"),
		},
		API: APIConfig{
			BaseURL:     getConfigValue(*apiURL, "QURAN_API_URL", "https://api.alquran.cloud/v1"),
			Edition:     getConfigValue(*edition, "QURAN_EDITION", "quran-uthmani"),
			Translation: getConfigValue(*translation, "QURAN_TRANSLATION", "en.asad"),
			RateLimit:   getFloatConfigValue(*rateLimit, "QURAN_RATE_LIMIT", 5),
		},
		Feed: FeedConfig{
			InitialBatch: getIntConfigValue(*initialBatch, "FEED_INITIAL_BATCH", 10),
			BatchSize:    getIntConfigValue(*batchSize, "FEED_BATCH_SIZE", 5),
			Prefetch:     getIntConfigValue(*prefetch, "FEED_PREFETCH", 2),
		},
		UI: UIConfig{
			StartPath: getConfigValue(*startPath, "QURAN_START_PATH", "/"),
		},
	}

	timeoutStr := getConfigValue(*requestTimeout, "QURAN_REQUEST_TIMEOUT", "15s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid request timeout %q: %w", timeoutStr, err)
	}
	cfg.API.RequestTimeout = timeout

	if err := cfg.expandDataDir(); err != nil {
		return nil, fmt.Errorf("invalid data dir: %w", err)
	}
	if cfg.Logger.File == "" {
		cfg.Logger.File = filepath.Join(cfg.App.DataDir, "quran-go.log")
	}

	cfg.UI.Theme = LoadTheme(cfg.App.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// BadgerPath is the local store directory.
func (c *Config) BadgerPath() string {
	return filepath.Join(c.App.DataDir, "store")
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.App.DataDir == "" {
		return errors.New("data dir cannot be empty after expansion")
	}

	if c.Store.LikesStrategy != "list" && c.Store.LikesStrategy != "index" {
		return fmt.Errorf("invalid likes strategy: %s (must be list or index)", c.Store.LikesStrategy)
	}

	if c.API.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.API.RequestTimeout)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative, got %g", c.API.RateLimit)
	}

	if c.Feed.InitialBatch <= 0 || c.Feed.BatchSize <= 0 || c.Feed.Prefetch <= 0 {
		return fmt.Errorf("feed sizes must be positive (initial %d, batch %d, prefetch %d)",
			c.Feed.InitialBatch, c.Feed.BatchSize, c.Feed.Prefetch)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is used as is.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataDir defaults to {user config dir}/quran-go.
func (c *Config) expandDataDir() error {
	var defaultPath string
	if c.App.DataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("failed to get config directory: %w", err)
		}
		defaultPath = filepath.Join(base, "quran-go")
	}

	expanded, err := expandPath(c.App.DataDir, defaultPath)
	if err != nil {
		return err
	}
	c.App.DataDir = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
// Unparseable values fall back to the default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strings.TrimSpace(strValue), 64)
	if err != nil {
		return defaultValue
	}
	return result
}
