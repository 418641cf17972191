package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := output
	output = &buf
	t.Cleanup(func() {
		output = prev
		Initialize("info", false, "")
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestInitialize(t *testing.T) {
	t.Run("json records carry service and component", func(t *testing.T) {
		buf := captureOutput(t)
		Initialize("debug", true, "sawatantra-api")

		Component("poker").Debug("vote recorded", "votes", 3)

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "sawatantra-api", rec["service"])
		assert.Equal(t, "poker", rec["component"])
		assert.Equal(t, "vote recorded", rec["msg"])
		assert.EqualValues(t, 3, rec["votes"])
		assert.Contains(t, rec, "source")
	})

	t.Run("level filters records", func(t *testing.T) {
		buf := captureOutput(t)
		Initialize("warn", false, "")

		Log.Info("hidden")
		Log.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
		assert.NotContains(t, buf.String(), "service=")
	})
}
