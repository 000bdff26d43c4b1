package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig `toml:"logging"`
	Frames      FramesConfig  `toml:"frames"`
	Tools       ToolsConfig   `toml:"tools"`
	Capture     CaptureConfig `toml:"capture"`
	Prompt      PromptConfig  `toml:"prompt"`
	LLM         LLMConfig     `toml:"llm"`
	Claude      ClaudeConfig  `toml:"claude"`
	Gemini      GeminiConfig  `toml:"gemini"`
	Storage     StorageConfig `toml:"storage"`
	Output      OutputConfig  `toml:"output"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error fatal"` // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`                                                  // "stdout", "file"
	Dir        string   `toml:"dir"`                                                     // Directory for log and crash files
	TimeFormat string   `toml:"time_format"`
}

// FramesConfig controls video key-frame extraction
type FramesConfig struct {
	MaxFrames         int     `toml:"max_frames" validate:"gte=1,lte=100"`
	Interval          float64 `toml:"interval" validate:"gte=0"` // Seconds between frames; 0 selects key moments
	OutputDir         string  `toml:"output_dir" validate:"required"`
	Format            string  `toml:"format" validate:"oneof=jpg jpeg png bmp webp"`
	ToolTimeout       string  `toml:"tool_timeout"` // Per external invocation, e.g. "10s"
	FallbackDuration  float64 `toml:"fallback_duration" validate:"gt=0"`
	NativePlaceholder bool    `toml:"native_placeholder"` // Render placeholders in-process before falling back to text
	HashFrames        bool    `toml:"hash_frames"`        // Compute perceptual hash and checksum per frame
}

// ToolsConfig names the external binaries used by the frame pipeline
type ToolsConfig struct {
	FFmpeg      string `toml:"ffmpeg"`
	Avconv      string `toml:"avconv"`
	FFprobe     string `toml:"ffprobe"`
	ImageMagick string `toml:"imagemagick"`
}

// CaptureConfig controls browser artifact capture
type CaptureConfig struct {
	Screenshot        bool   `toml:"screenshot"`
	ScreenshotQuality int    `toml:"screenshot_quality" validate:"gte=0,lte=100"`
	DOM               bool   `toml:"dom"`
	MaxNetworkEntries int    `toml:"max_network_entries" validate:"gte=0"`
	MaxConsoleEntries int    `toml:"max_console_entries" validate:"gte=0"`
	Timeout           string `toml:"timeout"`
}

// PromptConfig controls how much context is placed in the model prompt
type PromptConfig struct {
	MaxDOMChars          int `toml:"max_dom_chars" validate:"gte=0"`
	MaxNetworkEntries    int `toml:"max_network_entries" validate:"gte=0"`
	MaxConsoleEntries    int `toml:"max_console_entries" validate:"gte=0"`
	SourceContextLines   int `toml:"source_context_lines" validate:"gte=0"`
	SimilarFrameDistance int `toml:"similar_frame_distance" validate:"gte=0,lte=64"` // 0 keeps every frame
	MaxImages            int `toml:"max_images" validate:"gte=0"`
}

// LLM provider names
const (
	LLMProviderClaude  = "claude"
	LLMProviderGemini  = "gemini"
	LLMProviderOffline = "offline"
)

// LLMConfig selects the default provider
type LLMConfig struct {
	DefaultProvider string `toml:"default_provider" validate:"oneof=claude gemini offline"`
	Model           string `toml:"model"` // Optional override, may carry a provider prefix ("claude/...")
	Enabled         bool   `toml:"enabled"`
}

// ClaudeConfig contains Anthropic Claude settings
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"` // Minimum delay between requests
	Temperature float32 `toml:"temperature"`
}

// GeminiConfig contains Google Gemini settings
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
	Disabled       bool   `toml:"disabled"`         // Skip history persistence entirely
}

// OutputConfig controls where enrichment bundles are written
type OutputConfig struct {
	Dir string `toml:"dir" validate:"required"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			Dir:        "./logs",
			TimeFormat: "15:04:05",
		},
		Frames: FramesConfig{
			MaxFrames:         5,
			Interval:          0,
			OutputDir:         "./temp/video-frames",
			Format:            "jpg",
			ToolTimeout:       "10s",
			FallbackDuration:  10.0,
			NativePlaceholder: true,
			HashFrames:        true,
		},
		Tools: ToolsConfig{
			FFmpeg:      "ffmpeg",
			Avconv:      "avconv",
			FFprobe:     "ffprobe",
			ImageMagick: "convert",
		},
		Capture: CaptureConfig{
			Screenshot:        true,
			ScreenshotQuality: 90,
			DOM:               true,
			MaxNetworkEntries: 500,
			MaxConsoleEntries: 200,
			Timeout:           "15s",
		},
		Prompt: PromptConfig{
			MaxDOMChars:          20000,
			MaxNetworkEntries:    40,
			MaxConsoleEntries:    30,
			SourceContextLines:   15,
			SimilarFrameDistance: 4,
			MaxImages:            8,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
			Enabled:         true,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   4096,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.2,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Timeout:     "2m",
			RateLimit:   "4s", // 15 RPM free tier
			Temperature: 0.2,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/faultlens",
			},
		},
		Output: OutputConfig{
			Dir: "./test-results/faultlens",
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files. CLI overrides are applied separately by ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FAULTLENS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Logging
	if level := os.Getenv("FAULTLENS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("FAULTLENS_LOG_OUTPUT"); output != "" {
		config.Logging.Output = splitList(output)
	}
	if dir := os.Getenv("FAULTLENS_LOG_DIR"); dir != "" {
		config.Logging.Dir = dir
	}

	// Frames
	if maxFrames := os.Getenv("FAULTLENS_FRAMES_MAX_FRAMES"); maxFrames != "" {
		if n, err := strconv.Atoi(maxFrames); err == nil {
			config.Frames.MaxFrames = n
		}
	}
	if interval := os.Getenv("FAULTLENS_FRAMES_INTERVAL"); interval != "" {
		if f, err := strconv.ParseFloat(interval, 64); err == nil {
			config.Frames.Interval = f
		}
	}
	if outputDir := os.Getenv("FAULTLENS_FRAMES_OUTPUT_DIR"); outputDir != "" {
		config.Frames.OutputDir = outputDir
	}
	if format := os.Getenv("FAULTLENS_FRAMES_FORMAT"); format != "" {
		config.Frames.Format = format
	}
	if timeout := os.Getenv("FAULTLENS_FRAMES_TOOL_TIMEOUT"); timeout != "" {
		config.Frames.ToolTimeout = timeout
	}

	// Tools
	if ffmpeg := os.Getenv("FAULTLENS_FFMPEG"); ffmpeg != "" {
		config.Tools.FFmpeg = ffmpeg
	}
	if avconv := os.Getenv("FAULTLENS_AVCONV"); avconv != "" {
		config.Tools.Avconv = avconv
	}
	if ffprobe := os.Getenv("FAULTLENS_FFPROBE"); ffprobe != "" {
		config.Tools.FFprobe = ffprobe
	}
	if magick := os.Getenv("FAULTLENS_IMAGEMAGICK"); magick != "" {
		config.Tools.ImageMagick = magick
	}

	// LLM
	if provider := os.Getenv("FAULTLENS_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = strings.ToLower(provider)
	}
	if model := os.Getenv("FAULTLENS_LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if enabled := os.Getenv("FAULTLENS_LLM_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.LLM.Enabled = b
		}
	}

	// Claude (ANTHROPIC_API_KEY is the SDK convention, FAULTLENS_CLAUDE_API_KEY wins)
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("FAULTLENS_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("FAULTLENS_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// Gemini
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("FAULTLENS_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("FAULTLENS_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}

	// Storage and output
	if badgerPath := os.Getenv("FAULTLENS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if outputDir := os.Getenv("FAULTLENS_OUTPUT_DIR"); outputDir != "" {
		config.Output.Dir = outputDir
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority).
// Empty values leave the config untouched.
func ApplyFlagOverrides(config *Config, logLevel string, outputDir string) {
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
	if outputDir != "" {
		config.Output.Dir = outputDir
	}
}

// ValidateConfig checks struct constraints and parses duration strings
func ValidateConfig(config *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"frames.tool_timeout": config.Frames.ToolTimeout,
		"capture.timeout":     config.Capture.Timeout,
		"claude.timeout":      config.Claude.Timeout,
		"claude.rate_limit":   config.Claude.RateLimit,
		"gemini.timeout":      config.Gemini.Timeout,
		"gemini.rate_limit":   config.Gemini.RateLimit,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s '%s': %w", name, value, err)
		}
	}

	return nil
}

// ParseDurationOr parses value, returning fallback when empty or invalid
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ResolveAPIKey returns the configured key or an error naming where to set it
func ResolveAPIKey(name string, configValue string) (string, error) {
	key := strings.TrimSpace(configValue)
	if key == "" {
		return "", fmt.Errorf("%s is not configured", name)
	}
	return key, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
