package interfaces

import (
	"context"

	"github.com/ternarybob/faultlens/internal/models"
)

// DurationProbe determines the length of a video in seconds.
// Implementations never fail: when the length cannot be determined they
// return a fallback value and estimated=true.
type DurationProbe interface {
	Duration(ctx context.Context, videoPath string) (seconds float64, estimated bool)
}

// FrameExtractor pulls still frames out of a recorded test video.
// Neither method returns an error; the result carries the reason for any
// missing frames.
type FrameExtractor interface {
	ExtractKeyFrames(ctx context.Context, req models.ExtractionRequest) *models.ExtractionResult
	ExtractFrameAtPosition(ctx context.Context, videoPath string, position float64, outputDir string, format string) *models.FrameResult
}
