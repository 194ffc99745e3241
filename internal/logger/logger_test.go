package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("create logger with console output", func(t *testing.T) {
		cfg := Config{
			Level:   "info",
			Console: true,
			Pretty:  false,
		}

		logger, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)
		logger.Close()
	})

	t.Run("create logger with file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "test.log")

		cfg := Config{
			Level:   "debug",
			File:    logFile,
			MaxSize: 10,
		}

		logger, err := New(cfg)
		require.NoError(t, err)

		logger.Info().Str("component", "test").Msg("hello")
		require.NoError(t, logger.Close())

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "hello")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		logger, err := New(Config{Level: "loud", Console: true})
		require.NoError(t, err)
		logger.Close()
	})
}

func TestLogger_RedactsSecretsInOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")

	logger, err := New(Config{
		Level:     "debug",
		File:      logFile,
		MaxSize:   10,
		Redaction: true,
	})
	require.NoError(t, err)

	logger.Info().Str("key", "sk-ant-REDACTED").Msg("configured")
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[REDACTED]")
	assert.NotContains(t, string(content), "sk-ant-api03")
}
