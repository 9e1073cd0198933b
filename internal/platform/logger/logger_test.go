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
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("json format writes parseable records", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Options{Level: "info", Format: "json", Output: &buf})
		log.Info("request completed", "endpoint", "usage")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "request completed", rec["msg"])
		assert.Equal(t, "usage", rec["endpoint"])
	})

	t.Run("level filters lower records", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Options{Level: "warn", Output: &buf})
		log.Info("hidden")
		assert.Empty(t, buf.String())
		log.Warn("shown")
		assert.Contains(t, buf.String(), "shown")
	})
}
