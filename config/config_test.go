package config

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("REACTIVEGRAPH_LOG_LEVEL", "debug")
	t.Setenv("REACTIVEGRAPH_LOG_FORMAT", "console")
	t.Setenv("REACTIVEGRAPH_MAX_PROPAGATION_DEPTH", "-1")
	t.Setenv("REACTIVEGRAPH_SHARDS", "4")
	t.Setenv("REACTIVEGRAPH_METRICS", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Config{
		LogLevel:            "debug",
		LogFormat:           "console",
		MaxPropagationDepth: -1,
		Shards:              4,
		Metrics:             true,
	}, cfg)
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"not a number", "REACTIVEGRAPH_SHARDS", "many"},
		{"zero shards", "REACTIVEGRAPH_SHARDS", "0"},
		{"zero depth", "REACTIVEGRAPH_MAX_PROPAGATION_DEPTH", "0"},
		{"level", "REACTIVEGRAPH_LOG_LEVEL", "loud"},
		{"format", "REACTIVEGRAPH_LOG_FORMAT", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestConfigLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.LogLevel = "warn"

	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), `"key":"value"`)
}
