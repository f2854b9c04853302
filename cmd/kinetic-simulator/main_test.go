package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_Defaults(t *testing.T) {
	t.Setenv("KINETIC_CONFIG", "")
	t.Setenv("KINETIC_LOG_LEVEL", "")

	cfg, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultConfigPath, cfg.ConfigPath)
	assert.False(t, cfg.ConfigRequired)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.NoError(t, validateFlags(cfg))
}

func TestParseFlags_ExplicitConfigIsRequired(t *testing.T) {
	t.Setenv("KINETIC_CONFIG", "")

	cfg, err := parseFlags([]string{"--config", "custom.json", "--log-format", "text"})
	require.NoError(t, err)
	assert.Equal(t, "custom.json", cfg.ConfigPath)
	assert.True(t, cfg.ConfigRequired)
	assert.Equal(t, "text", cfg.LogFormat)

	t.Setenv("KINETIC_CONFIG", "from-env.yaml")
	t.Setenv("KINETIC_SHUTDOWN_TIMEOUT", "3s")
	cfg, err = parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env.yaml", cfg.ConfigPath)
	assert.True(t, cfg.ConfigRequired)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestValidateFlags(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CLIConfig
		wantErr bool
	}{
		{"valid", CLIConfig{LogLevel: "debug", LogFormat: "text", ShutdownTimeout: time.Second}, false},
		{"bad level", CLIConfig{LogLevel: "trace", LogFormat: "json", ShutdownTimeout: time.Second}, true},
		{"bad format", CLIConfig{LogLevel: "info", LogFormat: "xml", ShutdownTimeout: time.Second}, true},
		{"bad timeout", CLIConfig{LogLevel: "info", LogFormat: "json"}, true},
		{"version skips checks", CLIConfig{ShowVersion: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFlags(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, "warn", "json")

	logger.Info("dropped")
	logger.Warn("kept", "component", "test")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, appName, entry["service"])
	assert.Equal(t, Version, entry["version"])
	assert.Contains(t, entry, "pid")
}
