package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the effective settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("faultlens", GetVersion())

	logger.Debug().
		Str("environment", config.Environment).
		Str("llm_provider", config.LLM.DefaultProvider).
		Str("frames_dir", config.Frames.OutputDir).
		Str("output_dir", config.Output.Dir).
		Msg("Configuration loaded")
}
