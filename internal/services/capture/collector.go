package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/faultlens/internal/common"
	"github.com/ternarybob/faultlens/internal/interfaces"
	"github.com/ternarybob/faultlens/internal/models"
)

// Collector snapshots the page held by a chromedp browser context
type Collector struct {
	browserCtx context.Context
	recorder   *NetworkRecorder
	config     common.CaptureConfig
	logger     arbor.ILogger
}

var _ interfaces.ArtifactCollector = (*Collector)(nil)

// NewCollector creates a collector. recorder may be nil when no network
// history is wanted.
func NewCollector(browserCtx context.Context, recorder *NetworkRecorder, config common.CaptureConfig, logger arbor.ILogger) *Collector {
	return &Collector{
		browserCtx: browserCtx,
		recorder:   recorder,
		config:     config,
		logger:     logger,
	}
}

// Capture gathers URL, title, DOM, screenshot and recorded network/console
// history. Every step is best-effort; failures are listed in Errors.
func (c *Collector) Capture(ctx context.Context) *models.PageArtifacts {
	artifacts := &models.PageArtifacts{CapturedAt: time.Now()}

	timeout := common.ParseDurationOr(c.config.Timeout, 15*time.Second)
	runCtx, cancel := context.WithTimeout(c.browserCtx, timeout)
	defer cancel()

	// Stop early if the caller gives up
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, chromedp.Location(&artifacts.URL), chromedp.Title(&artifacts.Title)); err != nil {
		c.recordError(artifacts, "location", err)
	}

	if c.config.DOM {
		if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &artifacts.DOM, chromedp.ByQuery)); err != nil {
			c.recordError(artifacts, "dom", err)
		}
	}

	if c.config.Screenshot {
		var shot []byte
		if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&shot, c.config.ScreenshotQuality)); err != nil {
			c.recordError(artifacts, "screenshot", err)
		} else {
			artifacts.Screenshot = shot
		}
	}

	if c.recorder != nil {
		artifacts.Network = c.recorder.Requests()
		artifacts.Console = c.recorder.Console()
	}

	c.logger.Debug().
		Str("url", artifacts.URL).
		Int("dom_length", len(artifacts.DOM)).
		Int("screenshot_bytes", len(artifacts.Screenshot)).
		Int("network", len(artifacts.Network)).
		Int("console", len(artifacts.Console)).
		Int("errors", len(artifacts.Errors)).
		Msg("Page artifacts captured")

	return artifacts
}

func (c *Collector) recordError(artifacts *models.PageArtifacts, step string, err error) {
	c.logger.Warn().Err(err).Str("step", step).Msg("Artifact capture step failed")
	artifacts.Errors = append(artifacts.Errors, fmt.Sprintf("%s: %v", step, err))
}
