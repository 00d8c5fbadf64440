package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigbag/bpnp/internal/config"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	log.Info().Str("type", "AUD").Msg("message received")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"type":"AUD"`)
	assert.Contains(t, out, `"app":"bpnp"`)
	assert.Contains(t, out, `"message":"message received"`)
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LoggingConfig{Level: "debug", Format: "console"}, &buf)
	require.NoError(t, err)

	log.Debug().Str("sender", "ROBOT").Msg("frame sent")
	assert.Contains(t, buf.String(), "frame sent")
	assert.Contains(t, buf.String(), "sender=")
	assert.Contains(t, buf.String(), "ROBOT")
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bpnp.log")
	var buf bytes.Buffer
	log, err := New(config.LoggingConfig{
		Level:  "warn",
		Format: "json",
		File:   config.LumberjackConfig{Filename: path, MaxSizeMB: 1},
	}, &buf)
	require.NoError(t, err)

	log.Warn().Msg("checksum mismatch")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "checksum mismatch")
	assert.Contains(t, buf.String(), "checksum mismatch")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"off", zerolog.Disabled},
	}

	for _, tc := range tests {
		level, err := parseLevel(tc.input)
		if err != nil {
			t.Fatalf("parseLevel(%q) error = %v", tc.input, err)
		}
		if level != tc.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.input, level, tc.expected)
		}
	}

	if _, err := parseLevel("loud"); err == nil {
		t.Error("parseLevel(\"loud\") expected error, got nil")
	}
}
