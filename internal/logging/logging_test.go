package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New("production", &buf), "walker")

	logger.Info().Str("username", "alice").Msg("walk started")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "walker", line["component"])
	assert.Equal(t, "alice", line["username"])
	assert.Equal(t, "walk started", line["message"])
}

func TestNew_ProductionSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New("production", &buf)

	logger.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestNew_DevelopmentUsesConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := New("development", &buf)

	logger.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}
