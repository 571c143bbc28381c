package robot

import (
	"fmt"
	"sort"
)

// Layout holds the tunables that differ between robot builds.
type Layout struct {
	Name             string  `json:"name,omitempty" yaml:"name,omitempty"`
	Controllers      int     `json:"controllers" yaml:"controllers"`
	ServoSpeed       int     `json:"servo_speed" yaml:"servo_speed"`
	FingerSpeedScale int     `json:"finger_speed_scale" yaml:"finger_speed_scale"`
	BlinkDuration    int     `json:"blink_duration" yaml:"blink_duration"`
	FrameCount       int     `json:"frame_count" yaml:"frame_count"`
	FrameMillis      int     `json:"frame_ms,omitempty" yaml:"frame_ms,omitempty"` // animation frame period when the loop is paced
	Inversion        [][]int `json:"inversion,omitempty" yaml:"inversion,omitempty"` // one row of ±1 per controller
}

const (
	PresetPib    = "pib"
	PresetLegacy = "legacy"
)

// BlinkDuration counts ticks of an unthrottled loop; a paced loop uses
// FrameMillis instead.
const defaultFrameMillis = 500

// PibLayout is the three-bricklet pib build.
func PibLayout() Layout {
	inv := uniformInversion(3)
	inv[0][3] = -1
	return Layout{
		Name:             PresetPib,
		Controllers:      3,
		ServoSpeed:       200,
		FingerSpeedScale: 3,
		BlinkDuration:    10000,
		FrameCount:       4,
		FrameMillis:      defaultFrameMillis,
		Inversion:        inv,
	}
}

// LegacyLayout is the earlier build with slower servos and five eye frames.
func LegacyLayout() Layout {
	return Layout{
		Name:             PresetLegacy,
		Controllers:      3,
		ServoSpeed:       10,
		FingerSpeedScale: 3,
		BlinkDuration:    10000,
		FrameCount:       5,
		FrameMillis:      defaultFrameMillis,
		Inversion:        uniformInversion(3),
	}
}

var presets = map[string]func() Layout{
	PresetPib:    PibLayout,
	PresetLegacy: LegacyLayout,
}

// LayoutPreset returns the named preset.
func LayoutPreset(name string) (Layout, error) {
	fn, ok := presets[name]
	if !ok {
		return Layout{}, fmt.Errorf("unknown layout preset %q (have %v)", name, PresetNames())
	}
	return fn(), nil
}

// PresetNames lists the known preset names in order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func uniformInversion(controllers int) [][]int {
	inv := make([][]int, controllers)
	for i := range inv {
		row := make([]int, ChannelsPerController)
		for j := range row {
			row[j] = 1
		}
		inv[i] = row
	}
	return inv
}

// ChannelCount returns the total number of servo channels.
func (l Layout) ChannelCount() int {
	return l.Controllers * ChannelsPerController
}

// Validate checks the layout for values the control loop cannot run with.
func (l Layout) Validate() error {
	if l.Controllers <= 0 {
		return fmt.Errorf("layout: controllers must be positive, got %d", l.Controllers)
	}
	if l.ServoSpeed <= 0 || l.ServoSpeed > MaxPosition-MinPosition {
		return fmt.Errorf("layout: servo_speed must be in 1..%d, got %d", MaxPosition-MinPosition, l.ServoSpeed)
	}
	if l.FingerSpeedScale <= 0 {
		return fmt.Errorf("layout: finger_speed_scale must be positive, got %d", l.FingerSpeedScale)
	}
	if l.BlinkDuration <= 0 {
		return fmt.Errorf("layout: blink_duration must be positive, got %d", l.BlinkDuration)
	}
	if l.FrameCount <= 0 {
		return fmt.Errorf("layout: frame_count must be positive, got %d", l.FrameCount)
	}
	if l.FrameMillis < 0 {
		return fmt.Errorf("layout: frame_ms must not be negative, got %d", l.FrameMillis)
	}
	if l.Inversion == nil {
		return nil
	}
	if len(l.Inversion) != l.Controllers {
		return fmt.Errorf("layout: inversion has %d rows, want %d", len(l.Inversion), l.Controllers)
	}
	for i, row := range l.Inversion {
		if len(row) != ChannelsPerController {
			return fmt.Errorf("layout: inversion row %d has %d entries, want %d", i, len(row), ChannelsPerController)
		}
		for j, v := range row {
			if v != 1 && v != -1 {
				return fmt.Errorf("layout: inversion %d/%d is %d, want 1 or -1", i, j, v)
			}
		}
	}
	return nil
}

// InversionTable returns the ±1 sign for every flat channel. A layout without
// an inversion table is treated as all +1.
func (l Layout) InversionTable() ([]int, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	table := make([]int, l.ChannelCount())
	for flat := range table {
		table[flat] = 1
		if l.Inversion != nil {
			table[flat] = l.Inversion[flat/ChannelsPerController][flat%ChannelsPerController]
		}
	}
	return table, nil
}

// PacedAt returns the layout for a loop running at hz ticks per second: the
// blink duration becomes FrameMillis worth of ticks. An unpaced loop (hz 0) or
// a layout without FrameMillis keeps BlinkDuration as configured.
func (l Layout) PacedAt(hz int) Layout {
	if hz <= 0 || l.FrameMillis <= 0 {
		return l
	}
	l.BlinkDuration = max(1, l.FrameMillis*hz/1000)
	return l
}
