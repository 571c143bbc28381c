package teleop

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/gwillem/pibremote/pkg/robot"
)

func defaultKeyMap(t *testing.T) *KeyMap {
	t.Helper()
	bindings, err := DefaultBindings(testLayout())
	if err != nil {
		t.Fatalf("DefaultBindings: %v", err)
	}
	km, err := NewKeyMap(bindings)
	if err != nil {
		t.Fatalf("NewKeyMap: %v", err)
	}
	return km
}

func TestDefaultBindings_Pairs(t *testing.T) {
	km := defaultKeyMap(t)

	pairs := [][2]Key{{"e", "q"}, {"s", "w"}, {"d", "a"}, {"i", "k"}, {"l", "j"}, {"p", "o"}, {"h", "u"}}
	for _, p := range pairs {
		plus, minus := km.Effects(p[0]), km.Effects(p[1])
		if len(plus) == 0 || len(plus) != len(minus) {
			t.Fatalf("%s/%s: %d vs %d effects", p[0], p[1], len(plus), len(minus))
		}
		for i := range plus {
			if plus[i].Channel != minus[i].Channel {
				t.Errorf("%s/%s effect %d: channels %s vs %s", p[0], p[1], i, plus[i].Channel, minus[i].Channel)
			}
			if plus[i].Multiplier != -minus[i].Multiplier {
				t.Errorf("%s/%s effect %d: multipliers %d vs %d", p[0], p[1], i, plus[i].Multiplier, minus[i].Multiplier)
			}
		}
	}
}

func TestDefaultBindings_OpenHand(t *testing.T) {
	km := defaultKeyMap(t)
	effects := km.Effects("p")
	if len(effects) != 4 {
		t.Fatalf("open hand drives %d channels, want 4", len(effects))
	}
	for _, e := range effects {
		if e.Multiplier != 3 {
			t.Errorf("%s multiplier = %d, want 3", e.Channel, e.Multiplier)
		}
	}
	if n := len(km.Effects("h")); n != 2 {
		t.Errorf("thumb drives %d channels, want 2", n)
	}
}

func TestKeyMap_Unbound(t *testing.T) {
	km := defaultKeyMap(t)
	if effects := km.Effects("z"); len(effects) != 0 {
		t.Errorf("unbound key has effects %v", effects)
	}
}

func TestKeyMap_Channels(t *testing.T) {
	km := defaultKeyMap(t)
	channels := km.Channels()
	if len(channels) != 11 {
		t.Fatalf("%d bound channels, want 11", len(channels))
	}
	for i := 1; i < len(channels); i++ {
		if channels[i-1].Flat() >= channels[i].Flat() {
			t.Errorf("channels not sorted: %v", channels)
		}
	}
}

func TestNewKeyMap_Rejects(t *testing.T) {
	ch := robot.ChannelAddress{Controller: 0, Local: 1}
	tests := []struct {
		name     string
		bindings []Binding
	}{
		{"duplicate", []Binding{
			{Key: "a", Effects: []Effect{{Channel: ch, Multiplier: 1}}},
			{Key: "a", Effects: []Effect{{Channel: ch, Multiplier: -1}}},
		}},
		{"empty key", []Binding{{Effects: []Effect{{Channel: ch, Multiplier: 1}}}}},
		{"no effects", []Binding{{Key: "a"}}},
		{"zero multiplier", []Binding{{Key: "a", Effects: []Effect{{Channel: ch}}}}},
		{"huge multiplier", []Binding{{Key: "a", Effects: []Effect{{Channel: ch, Multiplier: math.MaxInt}}}}},
		{"huge negative multiplier", []Binding{{Key: "a", Effects: []Effect{{Channel: ch, Multiplier: -MaxMultiplier - 1}}}}},
	}
	for _, tt := range tests {
		if _, err := NewKeyMap(tt.bindings); err == nil {
			t.Errorf("%s: NewKeyMap returned nil error", tt.name)
		}
	}
}

func TestKeyMap_MultiplierBound(t *testing.T) {
	ctx := context.Background()
	ch := robot.ChannelAddress{Controller: 0, Local: 9}
	km, err := NewKeyMap([]Binding{
		{Key: "a", Effects: []Effect{{Channel: ch, Multiplier: -MaxMultiplier}}},
		{Key: "d", Effects: []Effect{{Channel: ch, Multiplier: MaxMultiplier}}},
	})
	if err != nil {
		t.Fatalf("NewKeyMap rejected ±%d: %v", MaxMultiplier, err)
	}

	// The largest multiplier at the largest speed saturates without wrapping.
	layout := testLayout()
	layout.ServoSpeed = robot.MaxPosition - robot.MinPosition
	in := newTestIntegrator(t, layout)
	buf := NewIntentBuffer(layout.ChannelCount())
	buf.Apply(km.Effects("d"))
	in.Integrate(ctx, buf, nil)
	if got := in.Position(ch); got != robot.MaxPosition {
		t.Errorf("after d position = %d, want %d", got, robot.MaxPosition)
	}
	buf.Apply(km.Effects("a"))
	in.Integrate(ctx, buf, nil)
	if got := in.Position(ch); got != robot.MinPosition {
		t.Errorf("after a position = %d, want %d", got, robot.MinPosition)
	}

	cfg := robot.DefaultConfig()
	cfg.Bindings = []robot.BindingConfig{
		{Key: "z", Effects: []robot.EffectConfig{{Channel: "0/9", Multiplier: math.MaxInt}}},
	}
	if _, err := KeyMapFor(cfg, testLayout()); err == nil {
		t.Error("KeyMapFor accepted a configured multiplier beyond the bound")
	}
}

func TestDefaultBindings_NeedsTwoControllers(t *testing.T) {
	layout := testLayout()
	layout.Controllers = 1
	if _, err := DefaultBindings(layout); err == nil {
		t.Error("DefaultBindings accepted a single controller")
	}
}

func TestBindingsFromConfig(t *testing.T) {
	cfgs := []robot.BindingConfig{
		{Key: "X", Label: "wave", Effects: []robot.EffectConfig{
			{Channel: "2/0", Multiplier: 2},
			{Channel: "2/1", Multiplier: -2},
		}},
	}
	bindings, err := BindingsFromConfig(cfgs, 3)
	if err != nil {
		t.Fatal(err)
	}
	km, err := NewKeyMap(bindings)
	if err != nil {
		t.Fatal(err)
	}
	effects := km.Effects("x")
	if len(effects) != 2 || effects[1].Channel != (robot.ChannelAddress{Controller: 2, Local: 1}) {
		t.Errorf("effects = %+v", effects)
	}

	cfgs[0].Effects[0].Channel = "3/0"
	if _, err := BindingsFromConfig(cfgs, 3); !errors.Is(err, robot.ErrUnknownController) {
		t.Errorf("error = %v, want ErrUnknownController", err)
	}
}

func TestKeyMapFor(t *testing.T) {
	cfg := robot.DefaultConfig()
	km, err := KeyMapFor(cfg, testLayout())
	if err != nil {
		t.Fatal(err)
	}
	if len(km.Keys()) != 14 {
		t.Errorf("default key map has %d keys, want 14", len(km.Keys()))
	}

	cfg.Bindings = []robot.BindingConfig{{Key: "z", Effects: []robot.EffectConfig{{Channel: "0/0", Multiplier: 1}}}}
	km, err = KeyMapFor(cfg, testLayout())
	if err != nil {
		t.Fatal(err)
	}
	if keys := km.Keys(); len(keys) != 1 || keys[0] != "z" {
		t.Errorf("configured keys = %v", keys)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]Key{"E": "e", " q ": "q", "space": "space", "Up": "Up"}
	for in, want := range tests {
		if got := NormalizeKey(in); got != want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}
