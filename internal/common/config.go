// Package common provides shared utilities for the KI7MT flare lab tools.
package common

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds common configuration for all applications.
type Config struct {
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	DataDir            string
	OutputDir          string
	CacheDir           string
	HEKURL             string
	HTTPTimeout        time.Duration
	LogLevel           string
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	dataDir := getEnv("FLARE_DATA_DIR", ".")
	return &Config{
		ClickHouseHost:     getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort:     getEnvInt("CLICKHOUSE_PORT", 9000),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "flare"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		DataDir:            dataDir,
		OutputDir:          getEnv("FLARE_OUTPUT_DIR", filepath.Join(dataDir, "flare_lists_csv")),
		CacheDir:           getEnv("FLARE_CACHE_DIR", filepath.Join(dataDir, "archive_cache")),
		HEKURL:             getEnv("HEK_URL", "https://www.lmsal.com/hek/her"),
		HTTPTimeout:        time.Duration(getEnvInt("FLARE_HTTP_TIMEOUT", 120)) * time.Second,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

// ClickHouseAddr returns host:port for the native protocol.
func (c *Config) ClickHouseAddr() string {
	return c.ClickHouseHost + ":" + strconv.Itoa(c.ClickHousePort)
}

// StatsDir returns the directory that receives tables and figures from flare-stats.
func (c *Config) StatsDir() string {
	return filepath.Join(c.DataDir, "stats_out")
}

// InstrumentInfoDir returns the directory holding instrument lifetime tables.
func (c *Config) InstrumentInfoDir() string {
	return filepath.Join(c.DataDir, "instrument_info")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
