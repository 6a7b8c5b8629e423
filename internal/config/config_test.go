package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("AGENT_MAX_ITERATIONS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gemini-2.0-flash-exp", cfg.LLM.Model)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.WindowDuration)
	assert.Equal(t, 5, cfg.Agent.MaxIterations, "unparseable values fall back")
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("AGENT_MAX_ITERATIONS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGENT_MAX_ITERATIONS")
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"trace": LevelTrace,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}
