package robot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// BusBaudRate is the baud rate of the servo controller buses.
const BusBaudRate = 1_000_000

// Rig drives the servos of every controller over one feetech bus each.
type Rig struct {
	controllers []*controller
}

type controller struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
}

// OpenBus opens a servo bus on the given serial port.
func OpenBus(port string) (*feetech.Bus, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: BusBaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus %s: %w", port, err)
	}
	return bus, nil
}

// NewRig connects to every configured controller. Any failure closes the
// buses opened so far.
func NewRig(cfgs []ControllerConfig) (*Rig, error) {
	rig := &Rig{}
	for i, cfg := range cfgs {
		if cfg.Port == "" {
			rig.Close()
			return nil, fmt.Errorf("controller %d: no port configured", i)
		}
		bus, err := OpenBus(cfg.Port)
		if err != nil {
			rig.Close()
			return nil, fmt.Errorf("controller %d: %w", i, err)
		}

		cal := cfg.Calibration
		if len(cal) == 0 {
			cal = DefaultCalibration()
		}
		rig.controllers = append(rig.controllers, &controller{
			bus:         bus,
			group:       feetech.NewServoGroupByIDs(bus, cal.ServoIDs()...),
			calibration: cal,
		})
	}
	return rig, nil
}

// Close closes every controller bus.
func (r *Rig) Close() error {
	var errs []error
	for i, c := range r.controllers {
		if err := c.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("controller %d: %w", i, err))
		}
	}
	r.controllers = nil
	return errors.Join(errs...)
}

// Enable enables torque on all servos.
func (r *Rig) Enable(ctx context.Context) error {
	var errs []error
	for i, c := range r.controllers {
		if err := c.group.EnableAll(ctx); err != nil {
			errs = append(errs, fmt.Errorf("controller %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Disable disables torque on all servos.
func (r *Rig) Disable(ctx context.Context) error {
	var errs []error
	for i, c := range r.controllers {
		if err := c.group.DisableAll(ctx); err != nil {
			errs = append(errs, fmt.Errorf("controller %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// SetServoPos commands one servo to a position in [MinPosition, MaxPosition].
func (r *Rig) SetServoPos(ctx context.Context, controllerIdx, local, position int) error {
	if controllerIdx < 0 || controllerIdx >= len(r.controllers) {
		return fmt.Errorf("controller %d: %w", controllerIdx, ErrUnknownController)
	}
	if !ValidPosition(position) {
		return fmt.Errorf("position %d: %w", position, ErrPositionOutOfRange)
	}
	c := r.controllers[controllerIdx]
	cal, ok := c.calibration[local]
	if !ok {
		return fmt.Errorf("channel %d/%d not calibrated: %w", controllerIdx, local, ErrChannelOutOfRange)
	}

	raw := feetech.PositionMap{cal.ID: cal.Denormalize(position)}
	if err := c.group.SetPositions(ctx, raw); err != nil {
		return fmt.Errorf("write position %d/%d: %w", controllerIdx, local, err)
	}
	return nil
}
