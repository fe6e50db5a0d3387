package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/quizbank/internal/config"
	"github.com/knowledge-engine/quizbank/internal/extract"
	"github.com/knowledge-engine/quizbank/internal/strategy"
)

var envKeys = []string{
	"QUIZ_STRATEGY", "QUIZ_PROFILE", "QUIZ_WORKERS", "QUIZ_TIMESTAMP",
	"OUTPUT_DIR", "OUTPUT_FORMAT", "SQLITE_PATH",
	"FETCH_TIMEOUT", "FETCH_USER_AGENT", "FETCH_MAX_BYTES", "FETCH_ROBOTS_CHECK", "FETCH_HOST_DELAY",
	"SERVER_ADDR", "SEARCH_CACHE_SIZE", "SOURCE_DIR", "SERVER_ALLOW_REMOTE", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnvVars(t *testing.T) {
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

const profileYAML = `
strategy: marker
workers: 2
overrides:
  similarity: 0.95
  keyword_cap: 4
sources:
  - path: banks/leaders.docx
    category: 班组长
  - path: https://example.com/managers.html
`

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaultConfig(t *testing.T) {
	clearEnvVars(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, strategy.Default(), cfg.Extract.Strategy)
	assert.Equal(t, 4, cfg.Extract.Workers)
	assert.Equal(t, extract.DefaultTimestamp, cfg.Extract.Timestamp)
	assert.Equal(t, "./data", cfg.Output.Dir)
	assert.Equal(t, config.FormatJSON, cfg.Output.Format)
	assert.Equal(t, "./data/questions.db", cfg.Output.SQLitePath)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.True(t, cfg.Fetch.RobotsCheck)
	assert.Equal(t, time.Second, cfg.Fetch.HostDelay)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "./sources", cfg.Server.SourceDir)
	assert.False(t, cfg.Server.AllowRemote)
	assert.Equal(t, "info", cfg.Log.Level)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, 10000, cfg.Sources[1].StartID)
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnvVars(t)
	envVars := map[string]string{
		"QUIZ_STRATEGY":      "boundary",
		"QUIZ_WORKERS":       "8",
		"QUIZ_TIMESTAMP":     "2025-06-12T00:00:00Z",
		"OUTPUT_DIR":         "/tmp/out",
		"OUTPUT_FORMAT":      "SQLite",
		"FETCH_TIMEOUT":      "5s",
		"FETCH_ROBOTS_CHECK": "false",
		"FETCH_HOST_DELAY":   "250ms",
		"SEARCH_CACHE_SIZE":  "32",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, strategy.Boundary, cfg.Extract.Strategy.Name)
	assert.Equal(t, 8, cfg.Extract.Workers)
	assert.Equal(t, time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC), cfg.Extract.Timestamp)
	assert.Equal(t, config.FormatSQLite, cfg.Output.Format)
	assert.Equal(t, "/tmp/out/questions.db", cfg.Output.SQLitePath)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.False(t, cfg.Fetch.RobotsCheck)
	assert.Equal(t, 250*time.Millisecond, cfg.Fetch.HostDelay)
	assert.Equal(t, 32, cfg.Server.CacheSize)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("QUIZ_STRATEGY", "fuzzy")
	_, err := config.Load()
	assert.ErrorIs(t, err, strategy.ErrUnknownPreset)

	clearEnvVars(t)
	t.Setenv("OUTPUT_FORMAT", "xml")
	_, err = config.Load()
	assert.Error(t, err)

	clearEnvVars(t)
	t.Setenv("QUIZ_TIMESTAMP", "yesterday")
	_, err = config.Load()
	assert.Error(t, err)
}

func TestLoadWithProfile(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("QUIZ_PROFILE", writeProfile(t, profileYAML))

	cfg, err := config.Load()
	require.NoError(t, err)

	s := cfg.Extract.Strategy
	assert.Equal(t, strategy.Marker, s.Name)
	assert.InDelta(t, 0.95, s.Similarity, 1e-9)
	assert.Equal(t, 4, s.KeywordCap)
	assert.Equal(t, 30, s.FingerprintLen)
	assert.Equal(t, 2, cfg.Extract.Workers)
	assert.Equal(t, []config.Source{
		{Path: "banks/leaders.docx", Category: "班组长", StartID: 1},
		{Path: "https://example.com/managers.html", Category: "category-2", StartID: 10000},
	}, cfg.Sources)
}

func TestSelectStrategyKeepsProfileOverrides(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("QUIZ_PROFILE", writeProfile(t, profileYAML))
	cfg, err := config.Load()
	require.NoError(t, err)

	require.NoError(t, cfg.SelectStrategy(strategy.Boundary))

	s := cfg.Extract.Strategy
	assert.Equal(t, strategy.Boundary, s.Name)
	assert.Equal(t, 4, s.KeywordCap)
	assert.InDelta(t, 0.95, s.Similarity, 1e-9)
	assert.Equal(t, 100, s.FingerprintLen)

	assert.ErrorIs(t, cfg.SelectStrategy("fuzzy"), strategy.ErrUnknownPreset)
}

func TestSelectStrategyWithoutProfile(t *testing.T) {
	clearEnvVars(t)
	cfg, err := config.Load()
	require.NoError(t, err)

	require.NoError(t, cfg.SelectStrategy(strategy.Marker))
	marker, err := strategy.Preset(strategy.Marker)
	require.NoError(t, err)
	assert.Equal(t, marker, cfg.Extract.Strategy)
}

func TestProfileOverridesMustValidate(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("QUIZ_PROFILE", writeProfile(t, "overrides:\n  max_segment: 0\n"))

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.LoadFile(writeProfile(t, "sources: [unclosed"))
	assert.Error(t, err)
}
