package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "konect", cfg.Mongo.Database)
	assert.Equal(t, "30s", cfg.Mongo.QueryTimeout)
	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Addr)
	assert.Equal(t, int64(100), cfg.Query.DefaultLimit)
	assert.Equal(t, int64(1000), cfg.Query.MaxLimit)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadConfigFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	testConfig := map[string]interface{}{
		"mongo": map[string]interface{}{
			"uri":           "mongodb://db.internal:27017",
			"database":      "konect_staging",
			"query_timeout": "60s",
		},
		"logging": map[string]interface{}{
			"level":  "debug",
			"format": "json",
		},
	}

	data, err := json.MarshalIndent(testConfig, "", "  ")
	require.NoError(t, err)

	err = os.WriteFile(configPath, data, 0600)
	require.NoError(t, err)

	config := DefaultConfig()
	err = loadConfigFromFile(config, configPath)
	require.NoError(t, err)

	assert.Equal(t, "mongodb://db.internal:27017", config.Mongo.URI)
	assert.Equal(t, "konect_staging", config.Mongo.Database)
	assert.Equal(t, "60s", config.Mongo.QueryTimeout)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)

	// Untouched sections keep their defaults
	assert.Equal(t, "0.0.0.0:3000", config.Server.Addr)
	assert.Equal(t, int64(100), config.Query.DefaultLimit)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("KONECT_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("KONECT_MONGO_URI", "mongodb://env-host:27017")
	t.Setenv("KONECT_QUERY_DEFAULT_LIMIT", "25")
	t.Setenv("KONECT_LOG_LEVEL", "warn")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://env-host:27017", cfg.Mongo.URI)
	assert.Equal(t, int64(25), cfg.Query.DefaultLimit)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestFlagOverrides(t *testing.T) {
	t.Setenv("KONECT_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := LoadConfigWithOverrides(map[string]interface{}{
		"mongo-uri": "mongodb://flag-host:27017",
		"mongo-db":  "flagdb",
		"addr":      "127.0.0.1:9000",
		"log-level": "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "mongodb://flag-host:27017", cfg.Mongo.URI)
	assert.Equal(t, "flagdb", cfg.Mongo.Database)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(_ *Config) {},
			wantErr: "",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: "invalid log level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid log format",
		},
		{
			name:    "bad mongo uri",
			mutate:  func(c *Config) { c.Mongo.URI = "postgres://nope" },
			wantErr: "invalid mongo uri",
		},
		{
			name:    "missing database",
			mutate:  func(c *Config) { c.Mongo.Database = "" },
			wantErr: "database name is required",
		},
		{
			name:    "bad query timeout",
			mutate:  func(c *Config) { c.Mongo.QueryTimeout = "soon" },
			wantErr: "invalid mongo query timeout",
		},
		{
			name:    "zero default limit",
			mutate:  func(c *Config) { c.Query.DefaultLimit = 0 },
			wantErr: "default limit must be positive",
		},
		{
			name: "max below default",
			mutate: func(c *Config) {
				c.Query.DefaultLimit = 100
				c.Query.MaxLimit = 50
			},
			wantErr: "must be >= default limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestQueryTimeoutDuration(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "30s", cfg.Mongo.QueryTimeout)
	assert.Equal(t, float64(30), cfg.QueryTimeoutDuration().Seconds())

	cfg.Mongo.QueryTimeout = "garbage"
	assert.Equal(t, float64(30), cfg.QueryTimeoutDuration().Seconds())
}
