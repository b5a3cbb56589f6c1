package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/archlens/archlens/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONToConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: INFO, Format: FormatJSON, Console: &buf})
	require.NoError(t, err)

	logger.Slog().Debug("hidden")
	logger.Slog().Info("loaded", "classes", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "loaded", entry["msg"])
	assert.Equal(t, float64(3), entry["classes"])
}

func TestNewLogger_AutoFormatOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Format: FormatAuto, Console: &buf})
	require.NoError(t, err)

	logger.Slog().Info("hello")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), "non-terminal output is JSON")
}

func TestLogrusSharesSinks(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: WARN, Format: FormatText, Console: &buf})
	require.NoError(t, err)

	lr := logger.Logrus()
	lr.Info("hidden")
	lr.Warn("careful")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "careful")
}

func TestNewLogger_FileOutputAndRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "archlens.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), 64), 0o644))

	var console bytes.Buffer
	logger, err := NewLogger(Config{OutputFile: path, MaxSize: 32, Format: FormatText, Console: &console})
	require.NoError(t, err)
	logger.Slog().Info("after rotation")
	require.NoError(t, logger.Close())

	rotated, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Len(t, rotated, 64)

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(current), "after rotation")
	assert.Contains(t, console.String(), "after rotation")
}

func TestFromSettings(t *testing.T) {
	cfg := FromSettings(config.LoggingConfig{Level: "WARN", Format: "JSON", File: "/tmp/x.log"}, false)
	assert.Equal(t, WARN, cfg.Level)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.Equal(t, "/tmp/x.log", cfg.OutputFile)

	debug := FromSettings(config.LoggingConfig{Level: "error"}, true)
	assert.Equal(t, DEBUG, debug.Level)
	assert.True(t, debug.AddSource)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DEBUG,
		"info":    INFO,
		"warning": WARN,
		"ERROR":   ERROR,
		"":        INFO,
		"verbose": INFO,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
