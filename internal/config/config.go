package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dukerupert/memotime/internal/database"
)

// Config holds everything the service reads at startup.
type Config struct {
	Port      int
	DBDriver  string
	DBDSN     string
	LogLevel  string
	LogFormat string
	// RateLimit is requests per minute per client IP; 0 disables it.
	RateLimit int
}

func Default() Config {
	return Config{
		Port:      8080,
		DBDriver:  "sqlite",
		DBDSN:     "memotime.db",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads the given .env files (default ".env") into the process
// environment without overriding variables already set, then builds a
// Config from the environment. Missing .env files are ignored.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv overlays MEMOTIME_* variables onto the defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv("MEMOTIME_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MEMOTIME_PORT %q", v)
		}
		cfg.Port = port
	}
	if v := getenv("MEMOTIME_DB_DRIVER"); v != "" {
		cfg.DBDriver = v
	}
	if v := getenv("MEMOTIME_DB_DSN"); v != "" {
		cfg.DBDSN = v
	}
	if v := getenv("MEMOTIME_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("MEMOTIME_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := getenv("MEMOTIME_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MEMOTIME_RATE_LIMIT %q", v)
		}
		cfg.RateLimit = n
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if _, err := database.ParseDialect(c.DBDriver); err != nil {
		return err
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return errors.New("database DSN required")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %d", c.RateLimit)
	}
	return nil
}

func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func (c Config) Database() database.Config {
	return database.Config{Driver: c.DBDriver, DSN: c.DBDSN}
}
