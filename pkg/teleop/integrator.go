package teleop

import (
	"context"
	"fmt"

	"github.com/gwillem/pibremote/pkg/robot"
)

// ServoCommander is the hardware command primitive.
type ServoCommander interface {
	SetServoPos(ctx context.Context, controller, local, position int) error
}

// Torquer is implemented by commanders that can switch servo torque.
type Torquer interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// Update is the result of integrating one channel in one tick.
type Update struct {
	Channel  robot.ChannelAddress
	Position int
	Err      error // dispatch error, if any
}

// Integrator owns the commanded position of every channel and turns intent
// into position commands.
type Integrator struct {
	controllers int
	speed       int
	inversion   []int
	positions   []int
}

// NewIntegrator creates an integrator with every channel at position 0.
func NewIntegrator(layout robot.Layout) (*Integrator, error) {
	inversion, err := layout.InversionTable()
	if err != nil {
		return nil, err
	}
	return &Integrator{
		controllers: layout.Controllers,
		speed:       layout.ServoSpeed,
		inversion:   inversion,
		positions:   make([]int, layout.ChannelCount()),
	}, nil
}

// Seed sets the stored position of a channel without dispatching.
func (in *Integrator) Seed(addr robot.ChannelAddress, position int) error {
	if _, err := robot.NewChannelAddress(addr.Controller, addr.Local, in.controllers); err != nil {
		return err
	}
	if !robot.ValidPosition(position) {
		return fmt.Errorf("seed %s = %d: %w", addr, position, robot.ErrPositionOutOfRange)
	}
	in.positions[addr.Flat()] = position
	return nil
}

// Position returns the stored position of a channel.
func (in *Integrator) Position(addr robot.ChannelAddress) int {
	return in.positions[addr.Flat()]
}

// Positions returns a copy of all stored positions by flat index.
func (in *Integrator) Positions() []int {
	out := make([]int, len(in.positions))
	copy(out, in.positions)
	return out
}

// Integrate applies one tick of intent. Every channel with nonzero intent is
// recomputed and clamped; a channel whose position changed is stored and
// dispatched exactly once. A channel held at a bound sends nothing. The buffer
// is cleared afterwards. Dispatch errors are reported in the returned updates
// and never roll back the stored position.
func (in *Integrator) Integrate(ctx context.Context, buf *IntentBuffer, cmd ServoCommander) []Update {
	if !buf.Active() {
		return nil
	}
	var updates []Update
	for flat := 0; flat < buf.Len() && flat < len(in.positions); flat++ {
		addr := robot.ChannelAddress{
			Controller: flat / robot.ChannelsPerController,
			Local:      flat % robot.ChannelsPerController,
		}
		intent := buf.Get(addr)
		if intent == 0 {
			continue
		}
		next := robot.ClampPosition(in.positions[flat] + in.speed*in.inversion[flat]*intent)
		if next == in.positions[flat] {
			continue
		}
		in.positions[flat] = next

		u := Update{Channel: addr, Position: next}
		if cmd != nil {
			u.Err = cmd.SetServoPos(ctx, addr.Controller, addr.Local, next)
		}
		updates = append(updates, u)
	}
	buf.Clear()
	return updates
}
