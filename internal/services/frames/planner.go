package frames

import (
	"math"
	"sort"
)

// edgeOffset keeps key moments half a second away from the (often black) first and last frames
const edgeOffset = 0.5

// PlanPositions chooses the timeline positions to sample, at most maxFrames of them.
//
// With interval > 0 positions are 0, interval, 2*interval, ... while below duration.
// Otherwise key moments are used: 0.5s, duration-0.5s, then 50%, 75% and 25% of the
// duration as maxFrames allows, with any remainder spread evenly across the video.
// Both anchors stay within [0, duration], so no position exceeds the duration.
// The result is sorted ascending. Positions are not de-duplicated, so a zero-length
// video yields several positions at 0.
func PlanPositions(duration float64, maxFrames int, interval float64) []float64 {
	if maxFrames <= 0 {
		return []float64{}
	}
	if math.IsNaN(duration) || duration < 0 {
		duration = 0
	}

	if interval > 0 {
		positions := make([]float64, 0, maxFrames)
		for i := 0; len(positions) < maxFrames; i++ {
			position := float64(i) * interval
			if position >= duration {
				break
			}
			positions = append(positions, position)
		}
		return positions
	}

	positions := []float64{math.Min(edgeOffset, duration), math.Max(0, duration-edgeOffset)}
	if maxFrames >= 3 {
		positions = append(positions, duration/2)
	}
	if maxFrames >= 4 {
		positions = append(positions, duration*0.75)
	}
	if maxFrames >= 5 {
		positions = append(positions, duration*0.25)
	}
	if maxFrames > 5 {
		remaining := maxFrames - 5
		for k := 1; k <= remaining; k++ {
			positions = append(positions, float64(k)/float64(remaining+1)*duration)
		}
	}

	sort.Float64s(positions)
	if len(positions) > maxFrames {
		positions = positions[:maxFrames]
	}
	return positions
}
