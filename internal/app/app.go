package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/faultlens/internal/common"
	"github.com/ternarybob/faultlens/internal/interfaces"
	"github.com/ternarybob/faultlens/internal/services/enrich"
	"github.com/ternarybob/faultlens/internal/services/frames"
	"github.com/ternarybob/faultlens/internal/services/llm"
	"github.com/ternarybob/faultlens/internal/services/prompt"
	"github.com/ternarybob/faultlens/internal/services/toolrunner"
	"github.com/ternarybob/faultlens/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Frame pipeline
	Runner    interfaces.ToolRunner
	Probe     *frames.Probe
	Extractor *frames.Extractor

	// Enrichment
	PromptBuilder *prompt.Builder
	Analyzer      interfaces.FailureAnalyzer
	Storage       interfaces.EnrichmentStorage
	Enricher      *enrich.Service
}

// New wires every service from configuration
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.initServices()

	logger.Debug().
		Str("llm_mode", string(app.Analyzer.GetMode())).
		Bool("history", !cfg.Storage.Badger.Disabled).
		Msg("Application initialized")

	return app, nil
}

func (a *App) initStorage() error {
	store, err := storage.NewEnrichmentStorage(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.Storage = store
	return nil
}

func (a *App) initServices() {
	cfg := a.Config

	a.Runner = toolrunner.NewRunner(a.Logger)

	toolTimeout := common.ParseDurationOr(cfg.Frames.ToolTimeout, 10*time.Second)
	a.Probe = frames.NewProbe(a.Runner, cfg.Tools.FFprobe, cfg.Tools.FFmpeg, toolTimeout, cfg.Frames.FallbackDuration, a.Logger)
	a.Extractor = frames.NewDefaultExtractor(a.Runner, cfg.Frames, cfg.Tools, a.Logger)

	a.PromptBuilder = prompt.NewBuilder(cfg.Prompt, a.Logger)
	a.Analyzer = llm.NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, a.Logger)

	a.Enricher = enrich.NewService(
		a.Extractor,
		a.PromptBuilder,
		a.Analyzer,
		a.Storage,
		cfg.Frames,
		cfg.Output.Dir,
		a.Logger,
	)
}

// Close releases provider clients and the history store
func (a *App) Close() error {
	if a.Analyzer != nil {
		if err := a.Analyzer.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close analyzer")
		}
	}

	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	return nil
}
