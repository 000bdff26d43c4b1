package frames

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ternarybob/faultlens/internal/interfaces"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Strategy names recorded on each frame
const (
	ToolFFmpeg      = "ffmpeg"
	ToolAvconv      = "avconv"
	ToolImageMagick = "imagemagick"
)

// FrameGrabber writes a single still image for position into outputPath
type FrameGrabber interface {
	Name() string
	Grab(ctx context.Context, videoPath string, position float64, outputPath string) error
}

// TranscoderGrabber seeks with an ffmpeg-compatible command line. avconv
// accepts the same arguments, so both share this implementation.
type TranscoderGrabber struct {
	name    string
	binary  string
	runner  interfaces.ToolRunner
	timeout time.Duration
}

// NewTranscoderGrabber creates a grabber that invokes binary
func NewTranscoderGrabber(name, binary string, runner interfaces.ToolRunner, timeout time.Duration) *TranscoderGrabber {
	return &TranscoderGrabber{name: name, binary: binary, runner: runner, timeout: timeout}
}

func (g *TranscoderGrabber) Name() string { return g.name }

// Args builds: -ss <timestamp> -i <video> -q:v 2 -vframes 1 <output> -y
// (ffmpeg-go sorts output options by key)
func (g *TranscoderGrabber) Args(videoPath string, position float64, outputPath string) []string {
	return ffmpeg.Input(videoPath, ffmpeg.KwArgs{"ss": FormatTimestamp(position)}).
		Output(outputPath, ffmpeg.KwArgs{"vframes": 1, "q:v": 2}).
		OverWriteOutput().
		GetArgs()
}

func (g *TranscoderGrabber) Grab(ctx context.Context, videoPath string, position float64, outputPath string) error {
	if _, err := g.runner.Run(ctx, g.binary, g.Args(videoPath, position, outputPath), g.timeout); err != nil {
		return fmt.Errorf("%s grab at %.3fs: %w", g.name, position, err)
	}
	return nil
}

// MagickGrabber asks ImageMagick for the frame at floor(position) of the
// video's frame sequence. The index is a frame number, not a time, so the
// result is only an approximation of the requested moment.
type MagickGrabber struct {
	binary  string
	runner  interfaces.ToolRunner
	timeout time.Duration
}

// NewMagickGrabber creates an ImageMagick grabber
func NewMagickGrabber(binary string, runner interfaces.ToolRunner, timeout time.Duration) *MagickGrabber {
	return &MagickGrabber{binary: binary, runner: runner, timeout: timeout}
}

func (g *MagickGrabber) Name() string { return ToolImageMagick }

func (g *MagickGrabber) Args(videoPath string, position float64, outputPath string) []string {
	index := int(math.Floor(math.Max(0, position)))
	return []string{fmt.Sprintf("%s[%d]", videoPath, index), outputPath}
}

func (g *MagickGrabber) Grab(ctx context.Context, videoPath string, position float64, outputPath string) error {
	if _, err := g.runner.Run(ctx, g.binary, g.Args(videoPath, position, outputPath), g.timeout); err != nil {
		return fmt.Errorf("imagemagick grab at %.3fs: %w", position, err)
	}
	return nil
}
