package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knowledge-engine/quizbank/internal/extract"
	"github.com/knowledge-engine/quizbank/internal/strategy"
)

// Config holds the configuration for the quiz-bank service
type Config struct {
	Extract ExtractConfig
	Output  OutputConfig
	Fetch   FetchConfig
	Server  ServerConfig
	Log     LogConfig
	Sources []Source
}

// ExtractConfig holds the pipeline configuration
type ExtractConfig struct {
	Strategy    strategy.Strategy
	ProfilePath string
	Workers     int
	Timestamp   time.Time
}

// OutputConfig selects where catalogs are persisted
type OutputConfig struct {
	Dir        string
	Format     string
	SQLitePath string
}

// FetchConfig holds remote source download settings
type FetchConfig struct {
	Timeout     time.Duration
	UserAgent   string
	MaxBytes    int64
	RobotsCheck bool
	HostDelay   time.Duration
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Addr      string
	CacheSize int
	// SourceDir confines the local paths an extract request may name.
	SourceDir string
	// AllowRemote lets extract requests name http(s) sources.
	AllowRemote bool
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// Output formats.
const (
	FormatJSON   = "json"
	FormatSQLite = "sqlite"
)

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	s, err := strategy.Preset(GetStringEnv("QUIZ_STRATEGY", strategy.DefaultName))
	if err != nil {
		return nil, err
	}
	ts, err := GetTimeEnv("QUIZ_TIMESTAMP", extract.DefaultTimestamp)
	if err != nil {
		return nil, err
	}
	outputDir := GetStringEnv("OUTPUT_DIR", "./data")

	cfg := &Config{
		Extract: ExtractConfig{
			Strategy:    s,
			ProfilePath: GetStringEnv("QUIZ_PROFILE", ""),
			Workers:     GetIntEnv("QUIZ_WORKERS", 4),
			Timestamp:   ts,
		},
		Output: OutputConfig{
			Dir:        outputDir,
			Format:     strings.ToLower(GetStringEnv("OUTPUT_FORMAT", FormatJSON)),
			SQLitePath: GetStringEnv("SQLITE_PATH", outputDir+"/questions.db"),
		},
		Fetch: FetchConfig{
			Timeout:     GetDurationEnv("FETCH_TIMEOUT", 30*time.Second),
			UserAgent:   GetStringEnv("FETCH_USER_AGENT", "quizbank/1.0"),
			MaxBytes:    int64(GetIntEnv("FETCH_MAX_BYTES", 32<<20)),
			RobotsCheck: GetBoolEnv("FETCH_ROBOTS_CHECK", true),
			HostDelay:   GetDurationEnv("FETCH_HOST_DELAY", time.Second),
		},
		Server: ServerConfig{
			Addr:        GetStringEnv("SERVER_ADDR", ":8080"),
			CacheSize:   GetIntEnv("SEARCH_CACHE_SIZE", 256),
			SourceDir:   GetStringEnv("SOURCE_DIR", "./sources"),
			AllowRemote: GetBoolEnv("SERVER_ALLOW_REMOTE", false),
		},
		Log: LogConfig{
			Level:  GetStringEnv("LOG_LEVEL", "info"),
			Format: GetStringEnv("LOG_FORMAT", "text"),
		},
		Sources: DefaultSources(),
	}

	if cfg.Extract.ProfilePath != "" {
		p, err := LoadFile(cfg.Extract.ProfilePath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Apply(p); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be defaulted
func (c *Config) Validate() error {
	if err := c.Extract.Strategy.Validate(); err != nil {
		return fmt.Errorf("strategy %s: %w", c.Extract.Strategy.Name, err)
	}
	if c.Extract.Workers <= 0 {
		return fmt.Errorf("QUIZ_WORKERS must be positive, got %d", c.Extract.Workers)
	}
	if c.Output.Format != FormatJSON && c.Output.Format != FormatSQLite {
		return fmt.Errorf("unsupported OUTPUT_FORMAT %q", c.Output.Format)
	}
	return nil
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetTimeEnv parses an RFC 3339 time; "now" yields the current time.
func GetTimeEnv(key string, defaultValue time.Time) (time.Time, error) {
	value := os.Getenv(key)
	switch value {
	case "":
		return defaultValue, nil
	case "now":
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return t, nil
}
