package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gunline/firecontrol/internal/dispatcher"
)

var _ dispatcher.Logger = (*DispatcherLogger)(nil)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestDispatcherLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	dl.Debug("event dispatched", "command", ":SHOT:", "count", 2)
	dl.Info("handler registered", "command", ":HIT:")
	dl.Error("handler failed", "error", errors.New("boom"), "duration", 15*time.Millisecond)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)

	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, "event dispatched", lines[0]["message"])
	assert.Equal(t, ":SHOT:", lines[0]["command"])
	assert.Equal(t, float64(2), lines[0]["count"])

	assert.Equal(t, "info", lines[1]["level"])
	assert.Equal(t, "error", lines[2]["level"])
	assert.Equal(t, "boom", lines[2]["error"])
	assert.Equal(t, "15ms", lines[2]["duration"])
}

func TestDispatcherLogger_OddAndNonStringKeys(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Info("odd", "k1", "v1", 42, "ignored", "dangling")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "v1", lines[0]["k1"])
	assert.NotContains(t, lines[0], "dangling")
}

func TestNewZerolog(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, "WARN", "influx")
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
	assert.Equal(t, "influx", lines[0]["component"])
	assert.Contains(t, lines[0], "time")

	buf.Reset()
	NewZerolog(&buf, "bogus", "db").Debug().Msg("hidden")
	assert.Empty(t, buf.String())
}
