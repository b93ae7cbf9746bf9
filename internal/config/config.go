package config

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/dshills/FolioDB/internal/errors"
	"github.com/dshills/FolioDB/internal/log"
)

// Environment variable names recognized by FromEnv and as overrides on
// top of a loaded config file. FromEnv also loads a .env file from the
// working directory when present; Load reads the process environment only.
const (
	EnvLogLevel   = "FOLIODB_LOG_LEVEL"
	EnvSyncWrites = "FOLIODB_SYNC_WRITES"
	EnvNoLock     = "FOLIODB_NO_LOCK"
)

// Config holds the tunable behavior of a database instance.
type Config struct {
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `json:"log_level"`

	// SyncWrites forces a file sync after every mutating operation. The
	// on-disk format promises no crash durability either way; this only
	// narrows the window.
	SyncWrites bool `json:"sync_writes"`

	// NoLock disables the single-writer lock file. Callers that set it
	// must serialize access externally.
	NoLock bool `json:"no_lock"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
	}
}

// Load reads a JSON configuration file and applies environment overrides.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.NotAccessibleError(path, err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.InvalidConfigf("cannot parse config file %q: %v", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv returns the default configuration with environment overrides
// applied. A .env file in the working directory is loaded first if present.
func FromEnv() (Config, error) {
	_ = godotenv.Load()
	cfg := Default()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvSyncWrites); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SyncWrites = b
		}
	}
	if v := os.Getenv(EnvNoLock); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.NoLock = b
		}
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
