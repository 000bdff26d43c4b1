package frames

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanPositions(t *testing.T) {
	tests := []struct {
		name      string
		duration  float64
		maxFrames int
		interval  float64
		expected  []float64
	}{
		{
			name:      "key moments for five frames",
			duration:  10,
			maxFrames: 5,
			expected:  []float64{0.5, 2.5, 5, 7.5, 9.5},
		},
		{
			name:      "key moments for three frames",
			duration:  10,
			maxFrames: 3,
			expected:  []float64{0.5, 5, 9.5},
		},
		{
			name:      "single frame takes the first sorted anchor",
			duration:  10,
			maxFrames: 1,
			expected:  []float64{0.5},
		},
		{
			name:      "extra frames spread evenly",
			duration:  12,
			maxFrames: 7,
			expected:  []float64{0.5, 3, 4, 6, 8, 9, 11.5},
		},
		{
			name:      "zero length video keeps duplicates",
			duration:  0,
			maxFrames: 5,
			expected:  []float64{0, 0, 0, 0, 0},
		},
		{
			name:      "video shorter than the edge offset",
			duration:  0.3,
			maxFrames: 5,
			expected:  []float64{0, 0.075, 0.15, 0.225, 0.3},
		},
		{
			name:      "interval stops before duration",
			duration:  5,
			maxFrames: 10,
			interval:  2,
			expected:  []float64{0, 2, 4},
		},
		{
			name:      "interval capped by max frames",
			duration:  60,
			maxFrames: 3,
			interval:  5,
			expected:  []float64{0, 5, 10},
		},
		{
			name:      "zero max frames",
			duration:  10,
			maxFrames: 0,
			expected:  []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			positions := PlanPositions(tt.duration, tt.maxFrames, tt.interval)
			assert.Len(t, positions, len(tt.expected))
			assert.InDeltaSlice(t, tt.expected, positions, 1e-9)
			assert.LessOrEqual(t, len(positions), max(tt.maxFrames, 0))
			for _, position := range positions {
				assert.LessOrEqual(t, position, max(tt.duration, 0))
			}
		})
	}
}

func TestPlanPositions_Deterministic(t *testing.T) {
	first := PlanPositions(37.2, 9, 0)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, PlanPositions(37.2, 9, 0))
	}
	assert.IsNonDecreasing(t, first)
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{0, "00:00:00.000"},
		{0.5, "00:00:00.500"},
		{2.5, "00:00:02.500"},
		{3725.125, "01:02:05.125"},
		{-4, "00:00:00.000"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatTimestamp(tt.seconds))
		})
	}
}

func TestParseTranscoderDuration(t *testing.T) {
	output := `Input #0, matroska,webm, from 'test.webm':
  Duration: 00:01:02.50, start: 0.000000, bitrate: 812 kb/s
  Stream #0:0: Video: vp8, yuv420p`

	seconds, ok := parseTranscoderDuration(output)
	assert.True(t, ok)
	assert.InDelta(t, 62.5, seconds, 1e-9)

	_, ok = parseTranscoderDuration("Duration: N/A, bitrate: N/A")
	assert.False(t, ok)
}
