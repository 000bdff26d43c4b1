package frames

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/faultlens/internal/interfaces"
)

func TestProbe_Duration(t *testing.T) {
	tests := []struct {
		name              string
		ffprobe           toolHandler
		ffmpeg            toolHandler
		expected          float64
		expectedEstimated bool
	}{
		{
			name:     "metadata probe",
			ffprobe:  stdout("12.345000\n"),
			expected: 12.345,
		},
		{
			name:    "transcoder banner when probe unavailable",
			ffprobe: nil,
			ffmpeg: func(args []string) (*interfaces.ToolOutput, error) {
				return &interfaces.ToolOutput{
					Stderr:   []byte("  Duration: 00:00:07.25, start: 0.000000, bitrate: 300 kb/s\nAt least one output file must be specified\n"),
					ExitCode: 1,
				}, fmt.Errorf("ffmpeg failed: exit status 1")
			},
			expected: 7.25,
		},
		{
			name:    "unparseable probe output falls through",
			ffprobe: stdout("N/A\n"),
			ffmpeg: func(args []string) (*interfaces.ToolOutput, error) {
				return &interfaces.ToolOutput{Stderr: []byte("Duration: 00:02:00.00,")}, nil
			},
			expected: 120,
		},
		{
			name:              "zero duration uses fallback",
			ffprobe:           stdout("0.000000"),
			expected:          10,
			expectedEstimated: true,
		},
		{
			name:              "no tools uses fallback",
			expected:          10,
			expectedEstimated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newFakeRunner()
			if tt.ffprobe != nil {
				runner.handlers["ffprobe"] = tt.ffprobe
			}
			if tt.ffmpeg != nil {
				runner.handlers["ffmpeg"] = tt.ffmpeg
			}

			probe := NewProbe(runner, "ffprobe", "ffmpeg", time.Second, 0, arbor.NewLogger())
			seconds, estimated := probe.Duration(context.Background(), "/videos/test.webm")

			assert.InDelta(t, tt.expected, seconds, 1e-9)
			assert.Equal(t, tt.expectedEstimated, estimated)
		})
	}
}

func TestTranscoderGrabber_Args(t *testing.T) {
	grabber := NewTranscoderGrabber(ToolFFmpeg, "ffmpeg", newFakeRunner(), time.Second)
	args := grabber.Args("/videos/test.webm", 2.5, "/tmp/frames/frame-1-2500.jpg")

	assert.Equal(t, "00:00:02.500", argAfter(args, "-ss"))
	assert.Equal(t, "/videos/test.webm", argAfter(args, "-i"))
	assert.Equal(t, "1", argAfter(args, "-vframes"))
	assert.Equal(t, "2", argAfter(args, "-q:v"))
	assert.Contains(t, args, "/tmp/frames/frame-1-2500.jpg")
	assert.Contains(t, args, "-y")
	// Seek before the input so ffmpeg skips decoding up to the position
	assert.Less(t, indexOf(args, "-ss"), indexOf(args, "-i"))
}

func TestMagickGrabber_Args(t *testing.T) {
	grabber := NewMagickGrabber("convert", newFakeRunner(), time.Second)
	assert.Equal(t,
		[]string{"/videos/test.webm[7]", "/tmp/out.png"},
		grabber.Args("/videos/test.webm", 7.9, "/tmp/out.png"))
}
