package frames

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// FormatTimestamp renders seconds as an ffmpeg seek position, HH:MM:SS.mmm
func FormatTimestamp(seconds float64) string {
	totalMilliseconds := positionMillis(seconds)
	hours := totalMilliseconds / (1000 * 60 * 60)
	minutes := (totalMilliseconds / (1000 * 60)) % 60
	secs := (totalMilliseconds / 1000) % 60
	milliseconds := totalMilliseconds % 1000

	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, milliseconds)
}

// positionMillis converts a position to whole milliseconds; negatives and NaN become 0
func positionMillis(seconds float64) int64 {
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	return int64(math.Round(seconds * 1000))
}

// transcoderDurationRegex matches the "Duration: 00:01:02.50" line ffmpeg prints for its input
var transcoderDurationRegex = regexp.MustCompile(`Duration:\s*(\d+):(\d{1,2}):(\d{1,2}(?:\.\d+)?)`)

// parseTranscoderDuration extracts H*3600+M*60+S from verbose transcoder output
func parseTranscoderDuration(output string) (float64, bool) {
	matches := transcoderDurationRegex.FindStringSubmatch(output)
	if len(matches) != 4 {
		return 0, false
	}

	hours, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(matches[2])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(matches[3], 64)
	if err != nil {
		return 0, false
	}

	return float64(hours*3600+minutes*60) + seconds, true
}
