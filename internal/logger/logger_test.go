package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestNew_ProductionUsesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Environment: "production", Level: slog.LevelInfo})

	log.Info("cellar loaded", "count", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "cellar loaded", line["msg"])
	assert.EqualValues(t, 3, line["count"])
}

func TestPrettyHandler(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Environment: "development", Level: slog.LevelInfo})

	log.With("op", "search").WithGroup("gemini").Warn("quota exceeded", "model", "flash")
	log.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "WRN")
	assert.Contains(t, out, "quota exceeded")
	assert.Contains(t, out, "op=search")
	assert.Contains(t, out, "gemini.model=flash")
	assert.NotContains(t, out, "hidden")
}
