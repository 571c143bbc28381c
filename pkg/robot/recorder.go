package robot

import (
	"context"
	"fmt"
)

// Command is one recorded servo position command.
type Command struct {
	Controller int
	Local      int
	Position   int
}

// Recorder is a servo commander that keeps every command in memory instead of
// talking to hardware. It backs dry runs and tests.
type Recorder struct {
	controllers int
	commands    []Command
	last        map[ChannelAddress]int

	// MaxHistory bounds the commands kept by Commands; 0 keeps all.
	MaxHistory int

	// Fail, when set, is consulted before recording; a non-nil result is
	// returned as the dispatch error and the command is not recorded.
	Fail func(Command) error
}

// NewRecorder creates a recorder accepting the given number of controllers.
func NewRecorder(controllers int) *Recorder {
	return &Recorder{
		controllers: controllers,
		last:        make(map[ChannelAddress]int),
	}
}

func (r *Recorder) SetServoPos(_ context.Context, controller, local, position int) error {
	addr, err := NewChannelAddress(controller, local, r.controllers)
	if err != nil {
		return err
	}
	if !ValidPosition(position) {
		return fmt.Errorf("position %d: %w", position, ErrPositionOutOfRange)
	}
	cmd := Command{Controller: controller, Local: local, Position: position}
	if r.Fail != nil {
		if err := r.Fail(cmd); err != nil {
			return err
		}
	}
	r.commands = append(r.commands, cmd)
	if r.MaxHistory > 0 && len(r.commands) > r.MaxHistory {
		r.commands = r.commands[len(r.commands)-r.MaxHistory:]
	}
	r.last[addr] = position
	return nil
}

// Commands returns all recorded commands in issue order.
func (r *Recorder) Commands() []Command {
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Last returns the most recent position commanded to a channel.
func (r *Recorder) Last(addr ChannelAddress) (int, bool) {
	pos, ok := r.last[addr]
	return pos, ok
}
