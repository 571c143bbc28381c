package robot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

const DefaultConfigFile = "pib.json"

// Config holds the robot configuration
type Config struct {
	Preset      string             `json:"preset,omitempty" yaml:"preset,omitempty"`
	Layout      *Layout            `json:"layout,omitempty" yaml:"layout,omitempty"`
	Controllers []ControllerConfig `json:"controllers" yaml:"controllers"`
	StartupPose map[string]int     `json:"startup_pose,omitempty" yaml:"startup_pose,omitempty"`
	Bindings    []BindingConfig    `json:"bindings,omitempty" yaml:"bindings,omitempty"`
	Assets      string             `json:"assets,omitempty" yaml:"assets,omitempty"`
}

// ControllerConfig holds configuration for a single servo controller
type ControllerConfig struct {
	Port        string      `json:"port" yaml:"port"`
	Calibration Calibration `json:"calibration,omitempty" yaml:"calibration,omitempty"`
}

// BindingConfig overrides one key of the default key bindings.
type BindingConfig struct {
	Key     string         `json:"key" yaml:"key"`
	Label   string         `json:"label,omitempty" yaml:"label,omitempty"`
	Effects []EffectConfig `json:"effects" yaml:"effects"`
}

// EffectConfig is one channel driven by a key.
type EffectConfig struct {
	Channel    string `json:"channel" yaml:"channel"`
	Multiplier int    `json:"multiplier" yaml:"multiplier"`
}

// IsCalibrated returns true if the controller has calibration data
func (c *ControllerConfig) IsCalibrated() bool {
	return len(c.Calibration) > 0
}

// DefaultConfig returns a configuration for the pib preset without ports.
func DefaultConfig() *Config {
	layout := PibLayout()
	controllers := make([]ControllerConfig, layout.Controllers)
	for i := range controllers {
		controllers[i].Calibration = DefaultCalibration()
	}
	return &Config{
		Preset:      PresetPib,
		Controllers: controllers,
		StartupPose: map[string]int{
			"0/8": -4500,
			"2/8": -4500,
		},
		Assets: "assets/pibEyes",
	}
}

// ResolveLayout returns the explicit layout if set, otherwise the preset.
func (c *Config) ResolveLayout() (Layout, error) {
	var layout Layout
	if c.Layout != nil {
		layout = *c.Layout
	} else {
		name := c.Preset
		if name == "" {
			name = PresetPib
		}
		var err error
		if layout, err = LayoutPreset(name); err != nil {
			return Layout{}, err
		}
	}
	if err := layout.Validate(); err != nil {
		return Layout{}, err
	}
	return layout, nil
}

// Pose parses the startup pose into addresses, sorted by flat index.
func (c *Config) Pose(controllers int) ([]PoseEntry, error) {
	pose := make([]PoseEntry, 0, len(c.StartupPose))
	for s, pos := range c.StartupPose {
		addr, err := ParseChannelAddress(s, controllers)
		if err != nil {
			return nil, fmt.Errorf("startup pose: %w", err)
		}
		if !ValidPosition(pos) {
			return nil, fmt.Errorf("startup pose %s = %d: %w", addr, pos, ErrPositionOutOfRange)
		}
		pose = append(pose, PoseEntry{Channel: addr, Position: pos})
	}
	sort.Slice(pose, func(i, j int) bool { return pose[i].Channel.Flat() < pose[j].Channel.Flat() })
	return pose, nil
}

// PoseEntry is one channel of the startup pose.
type PoseEntry struct {
	Channel  ChannelAddress
	Position int
}

// LoadConfigFrom loads configuration from a specific file. Files ending in
// .yaml or .yml are decoded as YAML, everything else as JSON.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the given config file exists
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
