package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Mr-Dark-debug/fastline/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, Level("debug"))
	assert.Equal(t, zerolog.WarnLevel, Level("warn"))
	assert.Equal(t, zerolog.ErrorLevel, Level("error"))
	assert.Equal(t, zerolog.InfoLevel, Level("info"))
	assert.Equal(t, zerolog.InfoLevel, Level("bogus"))
	assert.Equal(t, zerolog.InfoLevel, Level(""))
}

func TestNewJSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	var buf bytes.Buffer
	logger := Component(New(config.LoggingConfig{Level: "info", Format: "json"}, &buf), "store")
	logger.Debug().Msg("hidden")
	logger.Info().Str("id", "abc").Msg("fast started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "fast started", entry["message"])
	assert.Equal(t, "store", entry["component"])
	assert.Equal(t, "abc", entry["id"])
	assert.Contains(t, entry, "time")
}

func TestNewText(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "debug", Format: "text"}, &buf)
	logger.Debug().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestNewFile(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	path := filepath.Join(t.TempDir(), "logs", "tui.log")
	logger, closer, err := NewFile(config.LoggingConfig{Level: "info", Format: "text", File: path})
	require.NoError(t, err)
	logger.Info().Msg("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(bytes.TrimSpace(data)))
	assert.Contains(t, string(data), "to file")
}
