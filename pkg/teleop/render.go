package teleop

// FrameSink is a Renderer that hands frames to another goroutine, keeping only
// the newest frame when the reader falls behind.
type FrameSink struct {
	ch chan Frame
}

func NewFrameSink() *FrameSink {
	return &FrameSink{ch: make(chan Frame, 1)}
}

// Frames returns a channel that receives rendered frames.
func (s *FrameSink) Frames() <-chan Frame {
	return s.ch
}

func (s *FrameSink) Render(f Frame) {
	select {
	case s.ch <- f:
	default:
		// Drop old frame if channel full, replace with new
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- f:
		default:
		}
	}
}
