package frames

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/faultlens/internal/interfaces"
)

// DefaultFallbackDuration is assumed when no tool can report the video length
const DefaultFallbackDuration = 10.0

// Probe determines video length with ffprobe, then by scraping the
// transcoder's input banner, then by assuming a fixed fallback.
type Probe struct {
	runner   interfaces.ToolRunner
	ffprobe  string
	ffmpeg   string
	timeout  time.Duration
	fallback float64
	logger   arbor.ILogger
}

// NewProbe creates a duration probe using the named binaries
func NewProbe(runner interfaces.ToolRunner, ffprobe, ffmpeg string, timeout time.Duration, fallback float64, logger arbor.ILogger) *Probe {
	if fallback <= 0 {
		fallback = DefaultFallbackDuration
	}
	return &Probe{
		runner:   runner,
		ffprobe:  ffprobe,
		ffmpeg:   ffmpeg,
		timeout:  timeout,
		fallback: fallback,
		logger:   logger,
	}
}

var _ interfaces.DurationProbe = (*Probe)(nil)

// Duration returns the video length in seconds. It never fails; estimated is
// true when the fallback value was used.
func (p *Probe) Duration(ctx context.Context, videoPath string) (float64, bool) {
	seconds, err := p.probeMetadata(ctx, videoPath)
	if err == nil {
		return seconds, false
	}
	p.logger.Debug().Err(err).Str("video", videoPath).Msg("Metadata probe failed, trying transcoder output")

	seconds, err = p.probeTranscoderBanner(ctx, videoPath)
	if err == nil {
		return seconds, false
	}
	p.logger.Debug().Err(err).Str("video", videoPath).Msg("Transcoder duration scrape failed")

	p.logger.Warn().
		Str("video", videoPath).
		Float64("fallback_seconds", p.fallback).
		Msg("Could not determine video duration, using fallback")
	return p.fallback, true
}

func (p *Probe) probeMetadata(ctx context.Context, videoPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	}
	out, err := p.runner.Run(ctx, p.ffprobe, args, p.timeout)
	if err != nil {
		return 0, err
	}

	value := strings.TrimSpace(string(out.Stdout))
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable duration %q: %w", value, err)
	}
	if !validDuration(seconds) {
		return 0, fmt.Errorf("invalid duration %v", seconds)
	}
	return seconds, nil
}

// probeTranscoderBanner runs "ffmpeg -i <video>" without an output. ffmpeg exits
// non-zero in that mode, so the exit status is ignored and stderr is scraped.
func (p *Probe) probeTranscoderBanner(ctx context.Context, videoPath string) (float64, error) {
	out, err := p.runner.Run(ctx, p.ffmpeg, []string{"-i", videoPath}, p.timeout)
	if out == nil {
		if err == nil {
			err = fmt.Errorf("%s produced no output", p.ffmpeg)
		}
		return 0, err
	}

	seconds, ok := parseTranscoderDuration(string(out.Stderr) + string(out.Stdout))
	if !ok {
		return 0, fmt.Errorf("no duration in %s output", p.ffmpeg)
	}
	if !validDuration(seconds) {
		return 0, fmt.Errorf("invalid duration %v", seconds)
	}
	return seconds, nil
}

func validDuration(seconds float64) bool {
	return seconds > 0 && !math.IsNaN(seconds) && !math.IsInf(seconds, 0)
}
