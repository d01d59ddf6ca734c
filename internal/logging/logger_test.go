package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Production_JSONHandler(t *testing.T) {
	logger := NewLogger("production", "")
	require.NotNil(t, logger)

	handler := logger.Handler()
	_, ok := handler.(*slog.JSONHandler)
	assert.True(t, ok, "production logger should use JSONHandler, got %T", handler)
}

func TestNewLogger_Development_TextHandler(t *testing.T) {
	logger := NewLogger("development", "")
	require.NotNil(t, logger)

	handler := logger.Handler()
	_, ok := handler.(*slog.TextHandler)
	assert.True(t, ok, "development logger should use TextHandler, got %T", handler)
}

func TestNewLogger_UnknownEnv_TextHandler(t *testing.T) {
	logger := NewLogger("staging", "")
	_, ok := logger.Handler().(*slog.TextHandler)
	assert.True(t, ok)
}

func TestNewLogger_Production_InfoLevel(t *testing.T) {
	logger := NewLogger("production", "")
	ctx := context.Background()
	assert.True(t, logger.Handler().Enabled(ctx, slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(ctx, slog.LevelDebug))
}

func TestNewLogger_Development_DebugLevel(t *testing.T) {
	logger := NewLogger("development", "")
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestNewLogger_ExplicitLevelOverridesDefault(t *testing.T) {
	ctx := context.Background()

	dev := NewLogger("development", "warn")
	assert.False(t, dev.Handler().Enabled(ctx, slog.LevelInfo))
	assert.True(t, dev.Handler().Enabled(ctx, slog.LevelWarn))

	prod := NewLogger("production", "debug")
	assert.True(t, prod.Handler().Enabled(ctx, slog.LevelDebug))
}

func TestNewLogger_WritesJSONInProduction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "production", "")
	logger.Info("discovery finished", slog.Int("posts", 3))

	assert.Contains(t, buf.String(), `"msg":"discovery finished"`)
	assert.Contains(t, buf.String(), `"posts":3`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}
