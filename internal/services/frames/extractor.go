package frames

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/faultlens/internal/common"
	"github.com/ternarybob/faultlens/internal/interfaces"
	"github.com/ternarybob/faultlens/internal/models"
)

// defaultSinglePosition replaces negative or NaN single-frame positions
const defaultSinglePosition = 1.0

var supportedVideoExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".webm": true,
	".mkv":  true,
}

// Options are the defaults applied to requests that leave fields unset
type Options struct {
	OutputDir  string
	Format     string
	MaxFrames  int
	HashFrames bool
}

// Extractor pulls frames from test videos using an ordered chain of grabbers
// and falls back to placeholders so that every planned position still
// yields a frame whenever the output directory is writable.
type Extractor struct {
	probe        interfaces.DurationProbe
	grabbers     []FrameGrabber
	placeholders []PlaceholderRenderer
	options      Options
	logger       arbor.ILogger
}

var _ interfaces.FrameExtractor = (*Extractor)(nil)

// NewExtractor creates an extractor from explicit strategies
func NewExtractor(probe interfaces.DurationProbe, grabbers []FrameGrabber, placeholders []PlaceholderRenderer, options Options, logger arbor.ILogger) *Extractor {
	return &Extractor{
		probe:        probe,
		grabbers:     grabbers,
		placeholders: placeholders,
		options:      options,
		logger:       logger,
	}
}

// NewDefaultExtractor wires the ffmpeg, avconv and ImageMagick chain from configuration
func NewDefaultExtractor(runner interfaces.ToolRunner, frames common.FramesConfig, tools common.ToolsConfig, logger arbor.ILogger) *Extractor {
	timeout := common.ParseDurationOr(frames.ToolTimeout, 10*time.Second)

	grabbers := []FrameGrabber{
		NewTranscoderGrabber(ToolFFmpeg, tools.FFmpeg, runner, timeout),
		NewTranscoderGrabber(ToolAvconv, tools.Avconv, runner, timeout),
		NewMagickGrabber(tools.ImageMagick, runner, timeout),
	}

	placeholders := []PlaceholderRenderer{NewMagickPlaceholder(tools.ImageMagick, runner, timeout)}
	if frames.NativePlaceholder {
		placeholders = append(placeholders, NativePlaceholder{})
	}
	placeholders = append(placeholders, TextPlaceholder{})

	probe := NewProbe(runner, tools.FFprobe, tools.FFmpeg, timeout, frames.FallbackDuration, logger)

	return NewExtractor(probe, grabbers, placeholders, Options{
		OutputDir:  frames.OutputDir,
		Format:     frames.Format,
		MaxFrames:  frames.MaxFrames,
		HashFrames: frames.HashFrames,
	}, logger)
}

// ExtractKeyFrames extracts up to req.MaxFrames frames. Positions are processed
// one at a time in ascending order. A position whose real and placeholder
// strategies all fail is dropped and counted.
func (e *Extractor) ExtractKeyFrames(ctx context.Context, req models.ExtractionRequest) (result *models.ExtractionResult) {
	result = &models.ExtractionResult{Frames: []models.VideoFrame{}, Planned: []float64{}}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("video", req.VideoPath).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Frame extraction aborted")
			result = &models.ExtractionResult{
				Frames:  []models.VideoFrame{},
				Planned: []float64{},
				Reason:  models.AbsenceInternal,
				Detail:  fmt.Sprintf("%v", r),
			}
		}
	}()

	req = req.WithDefaults(e.options.OutputDir, e.options.Format, e.options.MaxFrames)
	req.Format = e.resolveFormat(req.Format)

	if reason, detail := checkSource(req.VideoPath); reason != models.AbsenceNone {
		e.logger.Warn().Str("video", req.VideoPath).Str("reason", string(reason)).Msg(detail)
		result.Reason, result.Detail = reason, detail
		return result
	}
	e.warnOnExtension(req.VideoPath)

	duration, estimated := e.probe.Duration(ctx, req.VideoPath)
	result.Duration, result.Estimated = duration, estimated

	positions := PlanPositions(duration, req.MaxFrames, req.Interval)
	result.Planned = positions

	if err := os.MkdirAll(req.OutputDirectory, 0755); err != nil {
		e.logger.Warn().Err(err).Str("dir", req.OutputDirectory).Msg("Cannot create frame output directory")
		result.Reason, result.Detail = models.AbsenceOutputDir, err.Error()
		return result
	}

	e.logger.Debug().
		Str("video", req.VideoPath).
		Float64("duration", duration).
		Bool("estimated", estimated).
		Int("positions", len(positions)).
		Msg("Extracting key frames")

	for i, position := range positions {
		if err := ctx.Err(); err != nil {
			result.Dropped += len(positions) - i
			result.Detail = err.Error()
			break
		}

		name := fmt.Sprintf("frame-%d-%d.%s", i, positionMillis(position), req.Format)
		frame, ok := e.extractAt(ctx, req.VideoPath, position, filepath.Join(req.OutputDirectory, name), req.Format)
		if !ok {
			result.Dropped++
			continue
		}
		result.Frames = append(result.Frames, *frame)
	}

	switch {
	case len(result.Frames) == 0 && len(positions) > 0:
		result.Reason = models.AbsenceNoFrames
	case result.Dropped > 0:
		result.Reason = models.AbsencePartial
	}

	e.logger.Info().
		Str("video", filepath.Base(req.VideoPath)).
		Int("frames", len(result.Frames)).
		Int("dropped", result.Dropped).
		Msg("Key frame extraction complete")

	return result
}

// ExtractFrameAtPosition extracts one frame. Negative or NaN positions become
// 1.0s; positions past the end clamp to half a second before it.
func (e *Extractor) ExtractFrameAtPosition(ctx context.Context, videoPath string, position float64, outputDir string, format string) (result *models.FrameResult) {
	result = &models.FrameResult{Position: position}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("video", videoPath).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Single frame extraction aborted")
			result = &models.FrameResult{Position: position, Reason: models.AbsenceInternal, Detail: fmt.Sprintf("%v", r)}
		}
	}()

	req := models.ExtractionRequest{VideoPath: videoPath, OutputDirectory: outputDir, Format: format}.
		WithDefaults(e.options.OutputDir, e.options.Format, 1)
	req.Format = e.resolveFormat(req.Format)

	if reason, detail := checkSource(videoPath); reason != models.AbsenceNone {
		e.logger.Warn().Str("video", videoPath).Str("reason", string(reason)).Msg(detail)
		result.Reason, result.Detail = reason, detail
		return result
	}
	e.warnOnExtension(videoPath)

	if math.IsNaN(position) || math.IsInf(position, -1) || position < 0 {
		position = defaultSinglePosition
	}

	duration, _ := e.probe.Duration(ctx, videoPath)
	result.Duration = duration
	if position > duration {
		position = math.Max(0, duration-edgeOffset)
	}
	result.Position = position

	if err := os.MkdirAll(req.OutputDirectory, 0755); err != nil {
		e.logger.Warn().Err(err).Str("dir", req.OutputDirectory).Msg("Cannot create frame output directory")
		result.Reason, result.Detail = models.AbsenceOutputDir, err.Error()
		return result
	}

	name := fmt.Sprintf("frame-%d.%s", positionMillis(position), req.Format)
	frame, ok := e.extractAt(ctx, videoPath, position, filepath.Join(req.OutputDirectory, name), req.Format)
	if !ok {
		result.Reason = models.AbsenceNoFrames
		return result
	}
	result.Frame = frame
	return result
}

// extractAt runs the grabber chain, then the placeholder chain, for one position
func (e *Extractor) extractAt(ctx context.Context, videoPath string, position float64, outputPath string, format string) (*models.VideoFrame, bool) {
	tool := ""
	for _, grabber := range e.grabbers {
		if err := grabber.Grab(ctx, videoPath, position, outputPath); err != nil {
			e.logger.Debug().Err(err).Str("tool", grabber.Name()).Msg("Frame grab failed")
			continue
		}
		tool = grabber.Name()
		break
	}

	// A tool that exits cleanly without writing anything is not retried with
	// the next tool; the position goes straight to a placeholder.
	if tool != "" && !hasContent(outputPath) {
		e.logger.Warn().
			Str("tool", tool).
			Str("output", outputPath).
			Msg("Tool reported success but produced no output")
		tool = ""
	}

	placeholder := false
	if tool == "" {
		tool = e.renderPlaceholder(ctx, outputPath, position)
		if tool == "" {
			e.logger.Warn().Float64("position", position).Msg("All frame strategies failed, dropping position")
			return nil, false
		}
		placeholder = true
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		e.logger.Warn().Err(err).Str("output", outputPath).Msg("Failed to read extracted frame")
		return nil, false
	}

	frame := &models.VideoFrame{
		SourcePath:    outputPath,
		Position:      position,
		EncodedImage:  base64.StdEncoding.EncodeToString(data),
		MimeType:      models.MimeTypeForFormat(format),
		IsPlaceholder: placeholder,
		Tool:          tool,
	}

	if e.options.HashFrames {
		frame.Checksum = Checksum(data)
		if !placeholder {
			if hash, err := PerceptualHash(data); err == nil {
				frame.PerceptualHash = hash
			} else {
				e.logger.Trace().Err(err).Str("output", outputPath).Msg("Perceptual hash skipped")
			}
		}
	}

	return frame, true
}

func (e *Extractor) renderPlaceholder(ctx context.Context, outputPath string, position float64) string {
	for _, renderer := range e.placeholders {
		if err := renderer.Render(ctx, outputPath, position); err != nil {
			e.logger.Debug().Err(err).Str("renderer", renderer.Name()).Msg("Placeholder failed")
			continue
		}
		if !hasContent(outputPath) {
			continue
		}
		return renderer.Name()
	}
	return ""
}

// resolveFormat keeps supported formats and replaces anything else with the
// configured default. The format becomes the file extension, so it must never
// carry a path.
func (e *Extractor) resolveFormat(format string) string {
	if models.IsSupportedFrameFormat(format) {
		return format
	}

	fallback := strings.TrimPrefix(strings.ToLower(e.options.Format), ".")
	if !models.IsSupportedFrameFormat(fallback) {
		fallback = models.DefaultFrameFormat
	}
	e.logger.Warn().
		Str("format", format).
		Str("fallback", fallback).
		Msg("Unsupported frame format, using default")
	return fallback
}

func (e *Extractor) warnOnExtension(videoPath string) {
	ext := strings.ToLower(filepath.Ext(videoPath))
	if !supportedVideoExtensions[ext] {
		e.logger.Warn().Str("video", videoPath).Str("extension", ext).Msg("Unrecognised video extension, attempting extraction anyway")
	}
}

// checkSource validates the video without invoking any external tool
func checkSource(videoPath string) (models.AbsenceReason, string) {
	info, err := os.Stat(videoPath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.AbsenceSourceMissing, "video file does not exist"
		}
		return models.AbsenceSourceMissing, fmt.Sprintf("cannot stat video: %v", err)
	}
	if info.IsDir() {
		return models.AbsenceSourceMissing, "video path is a directory"
	}
	if info.Size() == 0 {
		return models.AbsenceSourceEmpty, "video file is empty"
	}
	return models.AbsenceNone, ""
}

func hasContent(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}
