package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-transcoder/internal/config"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.Logging{Level: "info", Format: "json"}, &buf)

	logger.Named("engine").Info("engine initialized", "memory_mib", 512)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "engine initialized", line["@message"])
	assert.Equal(t, "media-transcoder.engine", line["@module"])
	assert.EqualValues(t, 512, line["memory_mib"])
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.Logging{Level: "warn", Format: "console"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.False(t, strings.Contains(out, "\x1b["), "non-terminal output is not colorized")
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.Logging{Level: "chatty"}, &buf)

	assert.True(t, logger.IsInfo())
	assert.False(t, logger.IsDebug())
}
