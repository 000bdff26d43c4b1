package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faultlens.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig_IsValid(t *testing.T) {
	config := NewDefaultConfig()

	require.NoError(t, ValidateConfig(config))
	assert.Equal(t, 5, config.Frames.MaxFrames)
	assert.Equal(t, "jpg", config.Frames.Format)
	assert.Equal(t, 10.0, config.Frames.FallbackDuration)
	assert.Equal(t, LLMProviderClaude, config.LLM.DefaultProvider)
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	base := writeConfig(t, `
[frames]
max_frames = 8
format = "png"

[llm]
default_provider = "gemini"
`)
	override := writeConfig(t, `
[frames]
max_frames = 3
`)

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 3, config.Frames.MaxFrames)
	assert.Equal(t, "png", config.Frames.Format)
	assert.Equal(t, LLMProviderGemini, config.LLM.DefaultProvider)
	// Untouched sections keep defaults
	assert.Equal(t, "ffmpeg", config.Tools.FFmpeg)
}

func TestLoadFromFiles_Errors(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadFromFiles(writeConfig(t, "[frames\nmax_frames = "))
	assert.Error(t, err)
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("FAULTLENS_FRAMES_MAX_FRAMES", "12")
	t.Setenv("FAULTLENS_FRAMES_INTERVAL", "2.5")
	t.Setenv("FAULTLENS_LLM_PROVIDER", "OFFLINE")
	t.Setenv("FAULTLENS_LLM_ENABLED", "false")
	t.Setenv("FAULTLENS_LOG_OUTPUT", "stdout, file")
	t.Setenv("ANTHROPIC_API_KEY", "sdk-key")
	t.Setenv("FAULTLENS_CLAUDE_API_KEY", "explicit-key")

	config, err := LoadFromFiles(writeConfig(t, "[frames]\nmax_frames = 4\n"))
	require.NoError(t, err)

	assert.Equal(t, 12, config.Frames.MaxFrames)
	assert.Equal(t, 2.5, config.Frames.Interval)
	assert.Equal(t, LLMProviderOffline, config.LLM.DefaultProvider)
	assert.False(t, config.LLM.Enabled)
	assert.Equal(t, []string{"stdout", "file"}, config.Logging.Output)
	assert.Equal(t, "explicit-key", config.Claude.APIKey)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, "", "")
	assert.Equal(t, "info", config.Logging.Level)

	ApplyFlagOverrides(config, "debug", "/tmp/out")
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "/tmp/out", config.Output.Dir)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown frame format", func(c *Config) { c.Frames.Format = "tiff" }},
		{"zero max frames", func(c *Config) { c.Frames.MaxFrames = 0 }},
		{"negative interval", func(c *Config) { c.Frames.Interval = -1 }},
		{"unknown provider", func(c *Config) { c.LLM.DefaultProvider = "llama" }},
		{"missing output dir", func(c *Config) { c.Output.Dir = "" }},
		{"bad duration", func(c *Config) { c.Claude.Timeout = "two minutes" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			assert.Error(t, ValidateConfig(config))
		})
	}
}

func TestParseDurationOr(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Duration
	}{
		{"", 5 * time.Second},
		{"250ms", 250 * time.Millisecond},
		{"2m", 2 * time.Minute},
		{"soon", 5 * time.Second},
		{"-1s", 5 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseDurationOr(tt.value, 5*time.Second), tt.value)
	}
}

func TestResolveAPIKey(t *testing.T) {
	key, err := ResolveAPIKey("claude api_key", "  sk-test  ")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)

	_, err = ResolveAPIKey("claude api_key", " ")
	assert.ErrorContains(t, err, "claude api_key")
}
