package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestObservabilityLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	obs, err := NewObservabilityLogger(Options{Level: INFO, Output: &buf})
	require.NoError(t, err)

	obs.Info(ComponentHTTPServer, CategoryRequest, "req-1", "hello", map[string]interface{}{"path": "/v1/classify"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "chatsnip", entry["service"])
	assert.Equal(t, ComponentHTTPServer, entry["component"])
	assert.Equal(t, CategoryRequest, entry["category"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "/v1/classify", entry["path"])
	assert.Contains(t, entry, "timestamp")
}

func TestObservabilityLoggerOmitsEmptyRequestID(t *testing.T) {
	var buf bytes.Buffer
	obs, err := NewObservabilityLogger(Options{Output: &buf})
	require.NoError(t, err)

	obs.Warn(ComponentConfig, CategoryWarning, "", "no heuristics file", nil)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0], "request_id")
	assert.Equal(t, "warning", entries[0]["level"])
}

func TestObservabilityLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	obs, err := NewObservabilityLogger(Options{Level: WARN, Output: &buf})
	require.NoError(t, err)

	obs.Debug(ComponentClassifier, CategoryClassification, "r", "debug", nil)
	obs.Info(ComponentClassifier, CategoryClassification, "r", "info", nil)
	obs.Error(ComponentClassifier, CategoryError, "r", "boom", nil)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0]["message"])
}

func TestObservabilityLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	obs, err := NewObservabilityLogger(Options{Format: FormatText, Output: &buf})
	require.NoError(t, err)

	obs.Info(ComponentCLI, CategorySuccess, "", "converted", nil)

	out := buf.String()
	assert.Contains(t, out, `msg=converted`)
	assert.Contains(t, out, `component=cli`)
	assert.False(t, json.Valid([]byte(strings.TrimSpace(out))))
}

func TestObservabilityLoggerWritesToDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	obs, err := NewObservabilityLogger(Options{Dir: dir})
	require.NoError(t, err)

	obs.Info(ComponentCLI, CategorySuccess, "", "to file", nil)
	require.NoError(t, obs.Close())

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"to file"`)
}

func TestDomainHelpers(t *testing.T) {
	var buf bytes.Buffer
	obs, err := NewObservabilityLogger(Options{Output: &buf})
	require.NoError(t, err)

	obs.ClassificationDecision("req-2", "explicit_prefix", 2, false, nil)
	obs.RenderCompleted("req-2", "markdown", 2, 120, map[string]interface{}{"assistant_name": "GPT-4"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)

	assert.Equal(t, ComponentClassifier, entries[0]["component"])
	assert.Equal(t, "explicit_prefix", entries[0]["strategy"])
	assert.Equal(t, float64(2), entries[0]["messages_count"])
	assert.Equal(t, false, entries[0]["fell_back"])

	assert.Equal(t, ComponentRenderer, entries[1]["component"])
	assert.Equal(t, CategoryRender, entries[1]["category"])
	assert.Equal(t, "markdown", entries[1]["format"])
	assert.Equal(t, float64(120), entries[1]["output_bytes"])
	assert.Equal(t, "GPT-4", entries[1]["assistant_name"])
}

func TestLogFuncLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	quiet, err := NewObservabilityLogger(Options{Level: INFO, Output: &buf})
	require.NoError(t, err)
	quiet.LogFunc()(ComponentClassifier, CategoryClassification, "r", "Strategy matched", nil)
	assert.Empty(t, buf.String())

	verbose, err := NewObservabilityLogger(Options{Level: DEBUG, Output: &buf})
	require.NoError(t, err)
	verbose.LogFunc()(ComponentClassifier, CategoryClassification, "r", "Strategy matched", map[string]interface{}{"strategy": "said_pattern"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "said_pattern", entries[0]["strategy"])
	assert.Equal(t, "debug", entries[0]["level"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"DEBUG":   DEBUG,
		"debug":   DEBUG,
		"INFO":    INFO,
		" warn ":  WARN,
		"WARNING": WARN,
		"error":   ERROR,
		"bogus":   INFO,
		"":        INFO,
	}
	for input, want := range tests {
		assert.Equal(t, want, ParseLevel(input), input)
	}

	assert.True(t, IsValidLevel("warn"))
	assert.False(t, IsValidLevel("verbose"))
	assert.Equal(t, "ERROR", ERROR.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatText, ParseFormat("TEXT"))
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatJSON, ParseFormat(""))
}
