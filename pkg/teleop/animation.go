package teleop

import "fmt"

// AnimationClock cycles through idle animation frames, moving to the next
// frame once every duration ticks.
type AnimationClock struct {
	duration int
	frames   int
	counter  int
	index    int
}

func NewAnimationClock(duration, frames int) (*AnimationClock, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("animation: duration must be positive, got %d", duration)
	}
	if frames <= 0 {
		return nil, fmt.Errorf("animation: frame count must be positive, got %d", frames)
	}
	return &AnimationClock{duration: duration, frames: frames}, nil
}

// Advance counts one tick and returns the current frame index.
func (c *AnimationClock) Advance() int {
	c.counter++
	if c.counter == c.duration {
		c.counter = 0
		c.index = (c.index + 1) % c.frames
	}
	return c.index
}

// Frame returns the current frame index.
func (c *AnimationClock) Frame() int {
	return c.index
}

// Frames returns the number of frames in the cycle.
func (c *AnimationClock) Frames() int {
	return c.frames
}
