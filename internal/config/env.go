package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Settings holds runtime options read from the environment.
type Settings struct {
	StatePath  string
	StateDir   string
	Catalog    string
	LogLevel   string
	LogFile    string
	Addr       string
	QuotaBytes int
	IdleTTL    time.Duration
}

// LoadDotEnv loads the given .env files (default ".env") into the process environment.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// FromEnv reads Settings, falling back to defaults for unset variables.
func FromEnv() Settings {
	return Settings{
		StatePath:  GetOrDefault("HACKTERM_STATE", "./hackterm-state/terminal.json"),
		StateDir:   GetOrDefault("HACKTERM_STATE_DIR", "./hackterm-state/terminals"),
		Catalog:    GetOrDefault("HACKTERM_CATALOG", ""),
		LogLevel:   GetOrDefault("HACKTERM_LOG_LEVEL", "info"),
		LogFile:    GetOrDefault("HACKTERM_LOG_FILE", ""),
		Addr:       GetOrDefault("HACKTERM_ADDR", ":8080"),
		QuotaBytes: GetIntOrDefault("HACKTERM_QUOTA_BYTES", 5*1024*1024),
		IdleTTL:    GetDurationOrDefault("HACKTERM_IDLE_TTL", 30*time.Minute),
	}
}

// GetOrDefault returns the environment variable value or the default if not set.
func GetOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetIntOrDefault returns the environment variable as an int or the default.
func GetIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logrus.WithField("key", key).Warnf("Invalid integer %q, using default %d", value, defaultValue)
		return defaultValue
	}
	return n
}

// GetDurationOrDefault returns the environment variable as a duration or the default.
func GetDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logrus.WithField("key", key).Warnf("Invalid duration %q, using default %v", value, defaultValue)
		return defaultValue
	}
	return d
}
