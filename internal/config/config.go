package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	Mongo   MongoConfig   `json:"mongo"   envPrefix:"KONECT_"`
	Server  ServerConfig  `json:"server"  envPrefix:"KONECT_"`
	Query   QueryConfig   `json:"query"   envPrefix:"KONECT_"`
	Logging LoggingConfig `json:"logging" envPrefix:"KONECT_"`
}

// MongoConfig represents the backing store connection configuration
type MongoConfig struct {
	URI            string `json:"uri"             env:"MONGO_URI"             envDefault:"mongodb://localhost:27017"`
	Database       string `json:"database"        env:"MONGO_DB"              envDefault:"konect"`
	ConnectTimeout string `json:"connect_timeout" env:"MONGO_CONNECT_TIMEOUT" envDefault:"10s"`
	QueryTimeout   string `json:"query_timeout"   env:"MONGO_QUERY_TIMEOUT"   envDefault:"30s"`
}

// ServerConfig represents the HTTP API configuration
type ServerConfig struct {
	Addr            string `json:"addr"             env:"SERVER_ADDR"      envDefault:"0.0.0.0:3000"`
	ShutdownTimeout string `json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// QueryConfig represents query shaping defaults and bounds
type QueryConfig struct {
	DefaultLimit int64 `json:"default_limit" env:"QUERY_DEFAULT_LIMIT" envDefault:"100"`
	MaxLimit     int64 `json:"max_limit"     env:"QUERY_MAX_LIMIT"     envDefault:"1000"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stderr"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   envDefault:"~/.config/konect-query-gateway/logs/gateway.log"`
}

// DefaultConfig returns a configuration populated with the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "konect",
			ConnectTimeout: "10s",
			QueryTimeout:   "30s",
		},
		Server: ServerConfig{
			Addr:            "0.0.0.0:3000",
			ShutdownTimeout: "5s",
		},
		Query: QueryConfig{
			DefaultLimit: 100,
			MaxLimit:     1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
			File:   "~/.config/konect-query-gateway/logs/gateway.log",
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := &Config{}

	// Load from config file if it exists
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply environment variable overrides using env library (also sets defaults)
	if err := env.ParseWithOptions(config, env.Options{
		Prefix: "KONECT_",
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	// Apply command-line flag overrides
	if flagOverrides != nil {
		applyFlagOverrides(config, flagOverrides)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "mongo-uri":
			if str, ok := value.(string); ok && str != "" {
				config.Mongo.URI = str
			}
		case "mongo-db":
			if str, ok := value.(string); ok && str != "" {
				config.Mongo.Database = str
			}
		case "addr":
			if str, ok := value.(string); ok && str != "" {
				config.Server.Addr = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		}
	}
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	if !strings.HasPrefix(config.Mongo.URI, "mongodb://") &&
		!strings.HasPrefix(config.Mongo.URI, "mongodb+srv://") {
		return fmt.Errorf("invalid mongo uri: %s", config.Mongo.URI)
	}

	if config.Mongo.Database == "" {
		return fmt.Errorf("mongo database name is required")
	}

	if _, err := time.ParseDuration(config.Mongo.ConnectTimeout); err != nil {
		return fmt.Errorf("invalid mongo connect timeout: %s", config.Mongo.ConnectTimeout)
	}

	if _, err := time.ParseDuration(config.Mongo.QueryTimeout); err != nil {
		return fmt.Errorf("invalid mongo query timeout: %s", config.Mongo.QueryTimeout)
	}

	if _, err := time.ParseDuration(config.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid server shutdown timeout: %s", config.Server.ShutdownTimeout)
	}

	if config.Query.DefaultLimit <= 0 {
		return fmt.Errorf("query default limit must be positive: %d", config.Query.DefaultLimit)
	}

	if config.Query.MaxLimit < config.Query.DefaultLimit {
		return fmt.Errorf(
			"query max limit (%d) must be >= default limit (%d)",
			config.Query.MaxLimit, config.Query.DefaultLimit,
		)
	}

	return nil
}

// QueryTimeoutDuration returns the parsed store query timeout
func (c *Config) QueryTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Mongo.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}

	return d
}

// ConnectTimeoutDuration returns the parsed store connect timeout
func (c *Config) ConnectTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Mongo.ConnectTimeout)
	if err != nil {
		return 10 * time.Second
	}

	return d
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("KONECT_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "konect-query-gateway", "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Logging.File = expandPath(c.Logging.File)
}
