package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
}

func TestLogDbOperation(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Output: &buf})

	LogDbOperation(l, "put", 5*time.Millisecond, 3, nil)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "maestro", entry["service"])
	assert.Equal(t, "database", entry["component"])
	assert.Equal(t, "put", entry["operation"])
	assert.Equal(t, 3.0, entry["record_count"])
}

func TestLogDbOperationError(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "error", Output: &buf})

	LogDbOperation(l, "delete", time.Millisecond, 0, nil)
	assert.Zero(t, buf.Len(), "debug entries are filtered at error level")

	LogDbOperation(l, "delete", time.Millisecond, 0, errors.New("disk full"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "disk full", entry["error"])
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New(Config{Output: &buf}), "mcp")
	l.Info().Msg("ready")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "mcp", entry["component"])
	assert.Equal(t, "ready", entry["message"])
}
