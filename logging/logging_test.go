package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected zapcore.Level
	}{
		{name: "debug level", input: "debug", expected: zapcore.DebugLevel},
		{name: "info level", input: "info", expected: zapcore.InfoLevel},
		{name: "warn level", input: "warn", expected: zapcore.WarnLevel},
		{name: "warning level", input: "warning", expected: zapcore.WarnLevel},
		{name: "error level", input: "error", expected: zapcore.ErrorLevel},
		{name: "uppercase DEBUG", input: "DEBUG", expected: zapcore.DebugLevel},
		{name: "padded", input: " warn ", expected: zapcore.WarnLevel},
		{name: "empty string defaults to info", input: "", expected: zapcore.InfoLevel},
		{name: "unknown level defaults to info", input: "verbose", expected: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestNewWritesRotatedFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.File = filepath.Join(t.TempDir(), "logs", "winequality.log")

	logger, level := New(cfg)
	require.NotNil(t, logger)
	assert.Equal(t, zapcore.DebugLevel, level.Level())

	logger.Debug("model loaded")
	_ = logger.Sync()

	payload, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "model loaded")
}

func TestAtomicLevelChangesAtRuntime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = "console"
	cfg.File = filepath.Join(t.TempDir(), "app.log")

	logger, level := New(cfg)
	logger.Debug("hidden")
	level.SetLevel(zapcore.DebugLevel)
	logger.Debug("visible")
	_ = logger.Sync()

	payload, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "hidden")
	assert.Contains(t, string(payload), "visible")
}
