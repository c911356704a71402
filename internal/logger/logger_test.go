package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "chatty"})
	require.Error(t, err)
}

func TestLogger_WritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", Writer: &buf, Component: "engine"})
	require.NoError(t, err)

	log.WithFields(map[string]any{"template": "tpl"}).Info("compiled")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "tpl", entry["template"])
	assert.Equal(t, "compiled", entry["message"])
}

func TestLogger_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "info", Writer: &buf})
	require.NoError(t, err)

	log.Debug("hidden")
	assert.Zero(t, buf.Len())
}

func TestLogger_NilIsSafe(t *testing.T) {
	var log *Logger
	log.Info("ignored")
	log.Error(nil, "ignored")
	assert.Nil(t, log.WithComponent("x"))
}
