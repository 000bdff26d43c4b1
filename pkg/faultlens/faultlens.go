// Package faultlens attaches failure enrichment to Go browser tests.
//
// A Client is created once per test binary and attached to each chromedp
// browser context. When a test fails, the attached session captures the
// page, extracts frames from the test video, asks the configured model for
// an analysis and logs where the enrichment bundle was written.
//
//	func TestCheckout(t *testing.T) {
//		ctx, cancel := chromedp.NewContext(allocCtx)
//		t.Cleanup(cancel)
//		lens.Attach(t, ctx, faultlens.Options{VideoPath: recorder.Path})
//		...
//	}
//
// The browser context must still be alive when cleanups run, so cancel it
// with t.Cleanup registered before Attach rather than with defer.
package faultlens

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/faultlens/internal/app"
	"github.com/ternarybob/faultlens/internal/common"
	"github.com/ternarybob/faultlens/internal/models"
	"github.com/ternarybob/faultlens/internal/services/capture"
)

// Failure describes a failed test for direct enrichment
type Failure = models.FailureContext

// Artifacts is page state captured at failure time
type Artifacts = models.PageArtifacts

// Result is the persisted outcome of one enrichment
type Result = models.EnrichmentRecord

// Options tune one attached test
type Options struct {
	// VideoPath returns the recorded video for the test. It is called at
	// failure time because recorders usually finalize the file on stop.
	VideoPath func() string

	// Describe returns the failure message. Defaults to a generic message
	// since testing.TB does not expose the logged error text.
	Describe func() string

	// Labels are copied into the failure context and prompt
	Labels map[string]string

	// Timeout bounds capture plus enrichment. Defaults to 3 minutes.
	Timeout time.Duration
}

// Client owns the enrichment pipeline for a test binary
type Client struct {
	app    *app.App
	config *common.Config
	logger arbor.ILogger
}

// New loads configuration (defaults, then each file, then FAULTLENS_* env)
// and builds a client.
func New(configPaths ...string) (*Client, error) {
	config, err := common.LoadFromFiles(configPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := common.ValidateConfig(config); err != nil {
		return nil, err
	}
	return NewWithConfig(config, common.InitLogger(config))
}

// NewWithConfig builds a client from an already resolved configuration
func NewWithConfig(config *common.Config, logger arbor.ILogger) (*Client, error) {
	application, err := app.New(config, logger)
	if err != nil {
		return nil, err
	}
	return &Client{app: application, config: config, logger: logger}, nil
}

// Enrich runs the pipeline for a failure captured by the caller. artifacts may be nil.
func (c *Client) Enrich(ctx context.Context, failure *Failure, artifacts *Artifacts) (*Result, error) {
	return c.app.Enricher.Enrich(ctx, failure, artifacts)
}

// Close releases the history store and provider clients
func (c *Client) Close() error {
	return c.app.Close()
}

// Session is one attached test
type Session struct {
	client    *Client
	t         TestingT
	options   Options
	collector *capture.Collector
	testFile  string
	testLine  int
	started   time.Time
	result    *Result
}

// TestingT is the subset of testing.TB a session needs
type TestingT interface {
	Name() string
	Failed() bool
	Logf(format string, args ...any)
	Cleanup(func())
	Helper()
}

// Attach starts network and console recording on browserCtx and registers a
// cleanup that enriches the test if it failed. browserCtx may be nil when no
// browser is involved; only the error and video are used then.
func (c *Client) Attach(t TestingT, browserCtx context.Context, options Options) *Session {
	t.Helper()

	s := &Session{
		client:  c,
		t:       t,
		options: options,
		started: time.Now(),
	}
	if _, file, line, ok := runtime.Caller(1); ok {
		s.testFile = file
		s.testLine = line
	}

	if browserCtx != nil {
		recorder := capture.NewNetworkRecorder(c.config.Capture.MaxNetworkEntries, c.config.Capture.MaxConsoleEntries, c.logger)
		if err := recorder.Start(browserCtx); err != nil {
			t.Logf("faultlens: network recording unavailable: %v", err)
			recorder = nil
		}
		s.collector = capture.NewCollector(browserCtx, recorder, c.config.Capture, c.logger)
	}

	t.Cleanup(s.finish)
	return s
}

// Result returns the enrichment produced for a failed test, nil otherwise.
// Only meaningful after the test's cleanups have run.
func (s *Session) Result() *Result {
	return s.result
}

func (s *Session) finish() {
	if !s.t.Failed() {
		return
	}

	timeout := s.options.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var artifacts *Artifacts
	if s.collector != nil {
		artifacts = s.collector.Capture(ctx)
	}

	failure := &Failure{
		TestName:     s.t.Name(),
		TestFile:     s.testFile,
		TestLine:     s.testLine,
		ErrorMessage: "test failed",
		Duration:     time.Since(s.started),
		Labels:       s.options.Labels,
		FailedAt:     time.Now(),
	}
	if s.options.Describe != nil {
		failure.ErrorMessage = s.options.Describe()
	}
	if s.options.VideoPath != nil {
		failure.VideoPath = s.options.VideoPath()
	}

	result, err := s.client.Enrich(ctx, failure, artifacts)
	if err != nil {
		s.t.Logf("faultlens: enrichment failed: %v", err)
		return
	}
	s.result = result

	if result.AnalysisError != "" {
		s.t.Logf("faultlens: bundle %s (analysis unavailable: %s)", result.BundleDir, result.AnalysisError)
		return
	}
	s.t.Logf("faultlens: bundle %s (%s %s, %d frames)", result.BundleDir, result.Provider, result.Model, len(result.Frames))
}
