package eyes

import (
	"math"
	"strings"
	"testing"
)

func TestOpenness(t *testing.T) {
	tests := []struct {
		index, count int
		want         float64
	}{
		{0, 4, 1},
		{2, 4, 0},
		{1, 4, math.Sqrt2 / 2},
		{3, 4, math.Sqrt2 / 2},
		{4, 4, 1},
		{0, 1, 1},
	}
	for _, tt := range tests {
		if got := Openness(tt.index, tt.count); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Openness(%d, %d) = %f, want %f", tt.index, tt.count, got, tt.want)
		}
	}
}

func TestText(t *testing.T) {
	open := Text(1)
	if strings.Contains(open, "━") {
		t.Errorf("open eyes drawn closed:\n%s", open)
	}
	if n := strings.Count(open, "\n"); n != textRows-1 {
		t.Errorf("open eyes have %d lines", n+1)
	}

	closed := Text(0)
	if strings.Contains(closed, "█") || !strings.Contains(closed, "━") {
		t.Errorf("closed eyes drawn open:\n%s", closed)
	}
}

func TestTextFrames(t *testing.T) {
	frames := TextFrames(5)
	if len(frames) != 5 {
		t.Fatalf("%d frames, want 5", len(frames))
	}
	if frames[0] == frames[2] {
		t.Error("blink frames identical to open frame")
	}
}
