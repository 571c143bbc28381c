package main

import (
	"fmt"

	"github.com/gwillem/pibremote/pkg/robot"
	"github.com/gwillem/pibremote/pkg/teleop"
)

// RunOptions are shared by the commands that start the control loop.
type RunOptions struct {
	Preset string `long:"preset" description:"Override the layout preset (pib, legacy)"`
	DryRun bool   `long:"dry-run" description:"Do not open serial ports; keep commands in memory"`
	Stats  bool   `long:"stats" description:"Log the tick rate once per second"`
}

// dryRunHistory bounds the commands a dry run keeps.
const dryRunHistory = 1024

// session is everything a control loop needs, loaded from the config file.
type session struct {
	cfg       *robot.Config
	layout    robot.Layout
	keymap    *teleop.KeyMap
	pose      []robot.PoseEntry
	commander teleop.ServoCommander
	rig       *robot.Rig
}

func openSession(path string, ro RunOptions) (*session, error) {
	var cfg *robot.Config
	switch {
	case robot.ConfigExists(path):
		var err error
		if cfg, err = robot.LoadConfigFrom(path); err != nil {
			return nil, err
		}
	case ro.DryRun:
		cfg = robot.DefaultConfig()
	default:
		return nil, fmt.Errorf("no configuration found at %s; run 'pibremote setup' first", path)
	}

	if ro.Preset != "" {
		cfg.Preset = ro.Preset
		cfg.Layout = nil
	}
	layout, err := cfg.ResolveLayout()
	if err != nil {
		return nil, err
	}
	keymap, err := teleop.KeyMapFor(cfg, layout)
	if err != nil {
		return nil, fmt.Errorf("key bindings: %w", err)
	}
	pose, err := cfg.Pose(layout.Controllers)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, layout: layout, keymap: keymap, pose: pose}
	if ro.DryRun {
		rec := robot.NewRecorder(layout.Controllers)
		rec.MaxHistory = dryRunHistory
		s.commander = rec
		return s, nil
	}

	if len(cfg.Controllers) != layout.Controllers {
		return nil, fmt.Errorf("%s configures %d controllers, layout %q needs %d; run 'pibremote setup'",
			path, len(cfg.Controllers), layout.Name, layout.Controllers)
	}
	rig, err := robot.NewRig(cfg.Controllers)
	if err != nil {
		return nil, fmt.Errorf("connect servos: %w", err)
	}
	s.rig = rig
	s.commander = rig
	return s, nil
}

// controller builds the control loop. hz paces Start (0 runs unthrottled);
// tickRate is how often the loop actually steps and sets the blink speed.
func (s *session) controller(input teleop.InputSource, r teleop.Renderer, hz, tickRate int, stats bool) (*teleop.Controller, error) {
	return teleop.NewController(teleop.Config{
		Layout:      s.layout.PacedAt(tickRate),
		KeyMap:      s.keymap,
		Commander:   s.commander,
		Input:       input,
		Renderer:    r,
		Hz:          hz,
		StartupPose: s.pose,
		Stats:       stats,
	})
}

func (s *session) Close() error {
	if s.rig == nil {
		return nil
	}
	return s.rig.Close()
}
