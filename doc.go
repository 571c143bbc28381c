// Package pibremote provides keyboard teleoperation for the pib robot arm and
// hand.
//
// Held keys push servo channels at a fixed speed per tick. Positions are
// clamped to ±9000 (hundredths of a degree) and sent to the feetech servo
// controllers every tick a channel moves, while an idle blink animation runs
// alongside.
//
// # Installation
//
//	go install github.com/gwillem/pibremote/cmd/pibremote@latest
//
// # Usage
//
// First, run setup to detect and calibrate the servo controllers:
//
//	pibremote setup
//
// Then start teleoperation in the terminal or in a window:
//
//	pibremote teleoperate
//	pibremote window --assets assets/pibEyes
//
// Without hardware, --dry-run keeps the commands in memory:
//
//	pibremote teleoperate --dry-run
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/pibremote: CLI with setup, scan, teleoperate and window commands
//   - pkg/robot: Channel addressing, layouts, calibration, configuration and the servo rig
//   - pkg/teleop: Key bindings, intent buffer, integrator, animation clock and control loop
//   - pkg/window: Desktop window frontend with key state and eye frames
//   - pkg/eyes: Blink animation shared by the frontends
package pibremote
