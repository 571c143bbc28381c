package robot

import "sort"

// Feetech STS servos report 12-bit positions.
const (
	RawMin = 0
	RawMax = 4095
)

// ServoCalibration maps one servo's raw step range onto the commanded range.
type ServoCalibration struct {
	ID       int `json:"id" yaml:"id"`
	RangeMin int `json:"range_min" yaml:"range_min"`
	RangeMax int `json:"range_max" yaml:"range_max"`
}

// Calibration holds calibration data for one controller, keyed by local channel.
type Calibration map[int]ServoCalibration

// DefaultCalibration assumes servo ID local+1 and the full raw range for every
// channel of a controller.
func DefaultCalibration() Calibration {
	cal := make(Calibration, ChannelsPerController)
	for local := 0; local < ChannelsPerController; local++ {
		cal[local] = ServoCalibration{ID: local + 1, RangeMin: RawMin, RangeMax: RawMax}
	}
	return cal
}

// Normalize converts a raw servo position to a commanded position in
// [MinPosition, MaxPosition].
func (c ServoCalibration) Normalize(raw int) int {
	rangeSize := c.RangeMax - c.RangeMin
	if rangeSize == 0 {
		return 0
	}
	span := MaxPosition - MinPosition
	return ClampPosition((raw-c.RangeMin)*span/rangeSize + MinPosition)
}

// Denormalize converts a commanded position to a raw servo position.
func (c ServoCalibration) Denormalize(pos int) int {
	rangeSize := c.RangeMax - c.RangeMin
	span := MaxPosition - MinPosition
	return (ClampPosition(pos)-MinPosition)*rangeSize/span + c.RangeMin
}

// Locals returns the calibrated local channels in ascending order.
func (c Calibration) Locals() []int {
	locals := make([]int, 0, len(c))
	for local := range c {
		locals = append(locals, local)
	}
	sort.Ints(locals)
	return locals
}

// ServoIDs returns the servo IDs in local channel order.
func (c Calibration) ServoIDs() []int {
	ids := make([]int, 0, len(c))
	for _, local := range c.Locals() {
		ids = append(ids, c[local].ID)
	}
	return ids
}

// ByID returns the local channel and calibration for a given servo ID.
func (c Calibration) ByID(id int) (int, ServoCalibration, bool) {
	for local, sc := range c {
		if sc.ID == id {
			return local, sc, true
		}
	}
	return 0, ServoCalibration{}, false
}
