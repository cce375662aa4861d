// Package config contains everything related to configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath         string
	SharedStorePath      string
	SignalPath           string
	EntitiesPath         string
	ReportPath           string
	MetricsAddr          string
	LogLevel             string
	LogFormat            string
	BackstopInterval     time.Duration
	SnapshotPollInterval time.Duration
	PhantomWindow        time.Duration
	CascadeWindow        time.Duration
	WatchpointMinutes    int
	MaxWatchpoints       int
	LearningGoalMinutes  int
	Notifications        bool
}

// Default values
const (
	defaultBackstopInterval     = 5 * time.Minute
	defaultSnapshotPollInterval = time.Minute
	defaultPhantomWindow        = 30 * time.Second
	defaultCascadeWindow        = 30 * time.Second
	defaultWatchpointMinutes    = 60
	defaultMaxWatchpoints       = 300
	defaultLearningGoalMinutes  = 30
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	envPaths := getEnvPaths()
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	dataDir := getDefaultDataDir()

	cfg := &Config{
		DatabasePath:         getEnvString("DATABASE_PATH", filepath.Join(dataDir, "ledger.db")),
		SharedStorePath:      getEnvString("SHARED_STORE_PATH", filepath.Join(dataDir, "group", "counters.db")),
		SignalPath:           getEnvString("SIGNAL_PATH", filepath.Join(dataDir, "group", "usage.signal")),
		EntitiesPath:         getEnvString("ENTITIES_PATH", filepath.Join(dataDir, "entities.json")),
		ReportPath:           getEnvString("REPORT_PATH", filepath.Join(dataDir, "group", "report.json")),
		MetricsAddr:          getEnvString("METRICS_ADDR", ""),
		LogLevel:             getEnvString("LOG_LEVEL", "info"),
		LogFormat:            getEnvString("LOG_FORMAT", "text"),
		BackstopInterval:     getEnvDuration("BACKSTOP_INTERVAL", defaultBackstopInterval),
		SnapshotPollInterval: getEnvDuration("SNAPSHOT_POLL_INTERVAL", defaultSnapshotPollInterval),
		PhantomWindow:        getEnvDuration("PHANTOM_WINDOW", defaultPhantomWindow),
		CascadeWindow:        getEnvDuration("CASCADE_WINDOW", defaultCascadeWindow),
		WatchpointMinutes:    getEnvInt("WATCHPOINT_MINUTES", defaultWatchpointMinutes),
		MaxWatchpoints:       getEnvInt("MAX_WATCHPOINTS", defaultMaxWatchpoints),
		LearningGoalMinutes:  getEnvInt("LEARNING_GOAL_MINUTES", defaultLearningGoalMinutes),
		Notifications:        getEnvBool("NOTIFICATIONS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure every directory we write into exists
	for _, p := range []string{cfg.DatabasePath, cfg.SharedStorePath, cfg.SignalPath, cfg.EntitiesPath, cfg.ReportPath} {
		if err := ensureDir(filepath.Dir(p)); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks that the configured values are usable.
func (c *Config) Validate() error {
	if c.BackstopInterval <= 0 {
		return fmt.Errorf("BACKSTOP_INTERVAL must be positive, got %s", c.BackstopInterval)
	}
	if c.SnapshotPollInterval <= 0 {
		return fmt.Errorf("SNAPSHOT_POLL_INTERVAL must be positive, got %s", c.SnapshotPollInterval)
	}
	if c.PhantomWindow < 0 || c.CascadeWindow < 0 {
		return fmt.Errorf("PHANTOM_WINDOW and CASCADE_WINDOW must not be negative")
	}
	if c.WatchpointMinutes <= 0 {
		return fmt.Errorf("WATCHPOINT_MINUTES must be positive, got %d", c.WatchpointMinutes)
	}
	if c.MaxWatchpoints <= 0 {
		return fmt.Errorf("MAX_WATCHPOINTS must be positive, got %d", c.MaxWatchpoints)
	}
	if c.LearningGoalMinutes < 0 {
		return fmt.Errorf("LEARNING_GOAL_MINUTES must not be negative, got %d", c.LearningGoalMinutes)
	}
	return nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "rewardgate", ".env"),
			filepath.Join(home, ".rewardgate", ".env"),
		)
	}

	return paths
}

// getDefaultDataDir returns the directory holding the database and the
// shared group container files.
func getDefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "rewardgate")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
