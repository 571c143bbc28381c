// Package robot provides abstractions for the servos of the pib arm and hand.
package robot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ChannelsPerController is the number of servo channels on one controller.
const ChannelsPerController = 10

// Commanded positions are hundredths of a degree around the servo center.
const (
	MinPosition = -9000
	MaxPosition = 9000
)

var (
	ErrUnknownController  = errors.New("unknown controller")
	ErrChannelOutOfRange  = errors.New("channel out of range")
	ErrPositionOutOfRange = errors.New("position out of range")
)

// ChannelAddress identifies one servo by controller index and local channel.
type ChannelAddress struct {
	Controller int
	Local      int
}

// NewChannelAddress validates a (controller, local) pair against the number
// of configured controllers.
func NewChannelAddress(controller, local, controllers int) (ChannelAddress, error) {
	if controller < 0 || controller >= controllers {
		return ChannelAddress{}, fmt.Errorf("controller %d of %d: %w", controller, controllers, ErrUnknownController)
	}
	if local < 0 || local >= ChannelsPerController {
		return ChannelAddress{}, fmt.Errorf("local channel %d: %w", local, ErrChannelOutOfRange)
	}
	return ChannelAddress{Controller: controller, Local: local}, nil
}

// AddressFromFlat converts a flat index (controller*10 + local) to an address.
func AddressFromFlat(flat, controllers int) (ChannelAddress, error) {
	if flat < 0 || flat >= controllers*ChannelsPerController {
		return ChannelAddress{}, fmt.Errorf("flat channel %d of %d: %w", flat, controllers*ChannelsPerController, ErrChannelOutOfRange)
	}
	return ChannelAddress{
		Controller: flat / ChannelsPerController,
		Local:      flat % ChannelsPerController,
	}, nil
}

// ParseChannelAddress parses the "controller/local" form used in config files.
func ParseChannelAddress(s string, controllers int) (ChannelAddress, error) {
	c, l, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return ChannelAddress{}, fmt.Errorf("parse channel %q: want controller/local", s)
	}
	controller, err := strconv.Atoi(c)
	if err != nil {
		return ChannelAddress{}, fmt.Errorf("parse channel %q: %w", s, err)
	}
	local, err := strconv.Atoi(l)
	if err != nil {
		return ChannelAddress{}, fmt.Errorf("parse channel %q: %w", s, err)
	}
	return NewChannelAddress(controller, local, controllers)
}

// Flat returns the flat channel index.
func (a ChannelAddress) Flat() int {
	return a.Controller*ChannelsPerController + a.Local
}

func (a ChannelAddress) String() string {
	return fmt.Sprintf("%d/%d", a.Controller, a.Local)
}

// ClampPosition saturates p to [MinPosition, MaxPosition].
func ClampPosition(p int) int {
	if p > MaxPosition {
		return MaxPosition
	}
	if p < MinPosition {
		return MinPosition
	}
	return p
}

// ValidPosition reports whether p is within the commandable range.
func ValidPosition(p int) bool {
	return p >= MinPosition && p <= MaxPosition
}
