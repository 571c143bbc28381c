// Package eyes describes the idle blink animation shared by the frontends.
package eyes

import (
	"math"
	"strings"
)

// Openness returns how far the eyes are open in frame index of a cycle of
// count frames: 1 on frame 0, closing towards the middle of the cycle.
func Openness(index, count int) float64 {
	if count <= 1 {
		return 1
	}
	return math.Abs(math.Cos(math.Pi * float64(index%count) / float64(count)))
}

const (
	textRows  = 5
	textWidth = 9
	textGap   = 6
)

// Text draws a pair of eyes with the given openness as terminal art.
func Text(openness float64) string {
	open := int(math.Round(openness * textRows))
	top := (textRows - open) / 2

	lines := make([]string, textRows)
	for r := range lines {
		var eye string
		switch {
		case open == 0 && r == textRows/2:
			eye = strings.Repeat("━", textWidth)
		case r >= top && r < top+open && r == textRows/2:
			eye = strings.Repeat("█", 3) + strings.Repeat(" ", 3) + strings.Repeat("█", 3)
		case r >= top && r < top+open:
			eye = strings.Repeat("█", textWidth)
		default:
			eye = strings.Repeat(" ", textWidth)
		}
		lines[r] = eye + strings.Repeat(" ", textGap) + eye
	}
	return strings.Join(lines, "\n")
}

// TextFrames renders a full cycle of count frames.
func TextFrames(count int) []string {
	frames := make([]string, count)
	for i := range frames {
		frames[i] = Text(Openness(i, count))
	}
	return frames
}
