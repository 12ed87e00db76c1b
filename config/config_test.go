package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsnip/heuristics"
)

// isolateEnv removes every key LoadConfig reads and restores it afterwards
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.LogDir)
	assert.Equal(t, "ChatGPT-4o", cfg.DefaultAssistantName)
	assert.Equal(t, int64(1<<20), cfg.MaxInputBytes)
	assert.Equal(t, heuristics.DefaultThresholds(), cfg.Thresholds)
	assert.Equal(t, ":8787", cfg.Addr())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigWithoutFiles(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	t.Setenv(EnvHeuristicsFile, filepath.Join(dir, "missing.yaml"))

	cfg, err := LoadConfig(filepath.Join(dir, ".env"))
	require.NoError(t, err)

	assert.False(t, cfg.EnvFileLoaded)
	assert.False(t, cfg.HeuristicsLoaded)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, heuristics.DefaultThresholds(), cfg.Thresholds)
}

func TestLoadConfigEnvFileAndOverrides(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", `# chatsnip settings
PORT=9000
LOG_LEVEL=debug   # verbose while testing
LOG_FORMAT=text
DEFAULT_ASSISTANT_NAME="Claude 3 Opus"
MAX_INPUT_BYTES=2048
not a pair
`)
	t.Setenv(EnvHeuristicsFile, filepath.Join(dir, "none.yaml"))
	t.Setenv(EnvPort, "9100")

	cfg, err := LoadConfig(envPath)
	require.NoError(t, err)

	assert.True(t, cfg.EnvFileLoaded)
	assert.Equal(t, "9100", cfg.Port, "process environment wins over .env")
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "Claude 3 Opus", cfg.DefaultAssistantName)
	assert.Equal(t, int64(2048), cfg.MaxInputBytes)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{EnvPort, "http"},
		{EnvPort, "70000"},
		{EnvLogLevel, "loud"},
		{EnvLogFormat, "xml"},
		{EnvMaxInputBytes, "lots"},
		{EnvMaxInputBytes, "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			isolateEnv(t)
			dir := t.TempDir()
			t.Setenv(EnvHeuristicsFile, filepath.Join(dir, "none.yaml"))
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig(filepath.Join(dir, ".env"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoadConfigHeuristicsFile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "heuristics.yaml", `thresholds:
  shortMessage: 80
  longMessage: 200
extraSpeakerLabels:
  - Copilot
  - "  "
  - Le Chat
`)
	t.Setenv(EnvHeuristicsFile, path)

	cfg, err := LoadConfig(filepath.Join(dir, ".env"))
	require.NoError(t, err)

	assert.True(t, cfg.HeuristicsLoaded)
	assert.Equal(t, heuristics.Thresholds{ShortMessage: 80, LongMessage: 200, MinContent: heuristics.DefaultMinContent}, cfg.Thresholds)
	assert.Equal(t, []string{"Copilot", "Le Chat"}, cfg.ExtraSpeakerLabels)
}

func TestLoadHeuristics(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		h, found, err := LoadHeuristics(filepath.Join(dir, "nope.yaml"))
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, heuristics.DefaultThresholds(), h.Thresholds)
	})

	t.Run("empty path", func(t *testing.T) {
		_, found, err := LoadHeuristics("")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("empty file", func(t *testing.T) {
		h, found, err := LoadHeuristics(writeFile(t, dir, "empty.yaml", ""))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, heuristics.DefaultThresholds(), h.Thresholds)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, _, err := LoadHeuristics(writeFile(t, dir, "typo.yaml", "threshold:\n  shortMessage: 10\n"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, _, err := LoadHeuristics(writeFile(t, dir, "bad.yaml", "thresholds: [1, 2"))
		assert.Error(t, err)
	})
}

func TestLoadConfigRejectsInvalidHeuristics(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	t.Setenv(EnvHeuristicsFile, writeFile(t, dir, "heuristics.yaml", "thresholds:\n  shortMessage: -5\n"))

	_, err := LoadConfig(filepath.Join(dir, ".env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shortMessage")
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "A=1\n\n# comment\nB = two # trailing\nC='quoted'\nD=\n")

	vars, err := loadEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "two", "C": "quoted", "D": ""}, vars)

	vars, err = loadEnvFile(filepath.Join(dir, "absent"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotNil(t, vars)
}
