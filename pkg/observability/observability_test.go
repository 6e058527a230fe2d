package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	// An inert provider still hands out usable instruments and absorbs
	// record calls without panicking.
	assert.NotNil(t, p.Tracer())
	assert.NotNil(t, p.Meter())
	p.RecordRequest(context.Background())
	p.RecordError(context.Background(), assert.AnError)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "canopy-gateway", cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.False(t, cfg.Insecure)
}

func TestNewLogger_Levels(t *testing.T) {
	cases := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		logger := NewLogger(in)
		assert.True(t, logger.Enabled(context.Background(), want), "level %s", in)
		if want > slog.LevelDebug {
			assert.False(t, logger.Enabled(context.Background(), want-1), "level %s lower bound", in)
		}
	}
}
