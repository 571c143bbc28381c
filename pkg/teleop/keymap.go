package teleop

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gwillem/pibremote/pkg/robot"
)

// Key is a normalized key name: a lower-case letter or digit, or one of the
// named keys such as "space" or "up".
type Key string

// NormalizeKey lower-cases single-character key names.
func NormalizeKey(s string) Key {
	s = strings.TrimSpace(s)
	if len([]rune(s)) == 1 {
		s = strings.ToLower(s)
	}
	return Key(s)
}

// MaxMultiplier bounds the magnitude of a binding multiplier. One tick at this
// multiplier already crosses the whole position range.
const MaxMultiplier = 2 * robot.MaxPosition

// Effect is one channel driven by a held key.
type Effect struct {
	Channel    robot.ChannelAddress
	Multiplier int
}

// Binding ties a key to the channels it drives.
type Binding struct {
	Key     Key
	Label   string
	Effects []Effect
}

// KeyMap is the immutable key binding table.
type KeyMap struct {
	bindings map[Key]Binding
	order    []Key
}

// NewKeyMap builds a key map. Every key may appear once; a key that needs to
// drive several channels lists all of them as effects of one binding.
func NewKeyMap(bindings []Binding) (*KeyMap, error) {
	m := &KeyMap{bindings: make(map[Key]Binding, len(bindings))}
	for _, b := range bindings {
		if b.Key == "" {
			return nil, fmt.Errorf("binding %q: empty key", b.Label)
		}
		if _, dup := m.bindings[b.Key]; dup {
			return nil, fmt.Errorf("key %q bound twice", b.Key)
		}
		if len(b.Effects) == 0 {
			return nil, fmt.Errorf("key %q has no effects", b.Key)
		}
		for _, e := range b.Effects {
			if e.Multiplier == 0 {
				return nil, fmt.Errorf("key %q: zero multiplier for channel %s", b.Key, e.Channel)
			}
			if e.Multiplier > MaxMultiplier || e.Multiplier < -MaxMultiplier {
				return nil, fmt.Errorf("key %q: multiplier %d for channel %s exceeds ±%d",
					b.Key, e.Multiplier, e.Channel, MaxMultiplier)
			}
		}
		effects := make([]Effect, len(b.Effects))
		copy(effects, b.Effects)
		b.Effects = effects
		m.bindings[b.Key] = b
		m.order = append(m.order, b.Key)
	}
	return m, nil
}

// Effects returns the effects of a key. An unbound key has none.
func (m *KeyMap) Effects(k Key) []Effect {
	return m.bindings[k].Effects
}

// Bindings returns the bindings in declaration order.
func (m *KeyMap) Bindings() []Binding {
	out := make([]Binding, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.bindings[k])
	}
	return out
}

// Keys returns the bound keys in declaration order.
func (m *KeyMap) Keys() []Key {
	out := make([]Key, len(m.order))
	copy(out, m.order)
	return out
}

// Channels returns every channel driven by some key, ordered by flat index.
func (m *KeyMap) Channels() []robot.ChannelAddress {
	seen := make(map[robot.ChannelAddress]bool)
	var out []robot.ChannelAddress
	for _, b := range m.bindings {
		for _, e := range b.Effects {
			if !seen[e.Channel] {
				seen[e.Channel] = true
				out = append(out, e.Channel)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Flat() < out[j].Flat() })
	return out
}

// DefaultBindings returns the pib key layout: one key pair per joint, with the
// hand keys fanning out to several finger channels at the finger speed scale.
func DefaultBindings(layout robot.Layout) ([]Binding, error) {
	if layout.Controllers < 2 {
		return nil, fmt.Errorf("default bindings need 2 controllers, layout has %d", layout.Controllers)
	}
	fs := layout.FingerSpeedScale
	ch := func(c, l int) robot.ChannelAddress { return robot.ChannelAddress{Controller: c, Local: l} }
	single := func(key, label string, addr robot.ChannelAddress, m int) Binding {
		return Binding{Key: Key(key), Label: label, Effects: []Effect{{Channel: addr, Multiplier: m}}}
	}
	fanout := func(key, label string, m int, addrs ...robot.ChannelAddress) Binding {
		b := Binding{Key: Key(key), Label: label}
		for _, a := range addrs {
			b.Effects = append(b.Effects, Effect{Channel: a, Multiplier: m})
		}
		return b
	}
	fingers := []robot.ChannelAddress{ch(0, 2), ch(0, 3), ch(0, 4), ch(0, 5)}
	thumb := []robot.ChannelAddress{ch(0, 0), ch(0, 1)}

	return []Binding{
		single("e", "shoulder rotate +", ch(1, 0), 1),
		single("q", "shoulder rotate -", ch(1, 0), -1),
		single("s", "shoulder lift +", ch(1, 1), 1),
		single("w", "shoulder lift -", ch(1, 1), -1),
		single("d", "upper arm +", ch(0, 9), 1),
		single("a", "upper arm -", ch(0, 9), -1),
		single("i", "elbow +", ch(0, 8), 1),
		single("k", "elbow -", ch(0, 8), -1),
		single("l", "wrist rotate +", ch(0, 7), 1),
		single("j", "wrist rotate -", ch(0, 7), -1),
		fanout("p", "open hand", fs, fingers...),
		fanout("o", "close hand", -fs, fingers...),
		fanout("h", "open thumb", fs, thumb...),
		fanout("u", "close thumb", -fs, thumb...),
	}, nil
}

// BindingsFromConfig converts configured bindings, validating every channel
// against the layout.
func BindingsFromConfig(cfgs []robot.BindingConfig, controllers int) ([]Binding, error) {
	bindings := make([]Binding, 0, len(cfgs))
	for _, bc := range cfgs {
		b := Binding{Key: NormalizeKey(bc.Key), Label: bc.Label}
		for _, ec := range bc.Effects {
			addr, err := robot.ParseChannelAddress(ec.Channel, controllers)
			if err != nil {
				return nil, fmt.Errorf("binding %q: %w", bc.Key, err)
			}
			b.Effects = append(b.Effects, Effect{Channel: addr, Multiplier: ec.Multiplier})
		}
		bindings = append(bindings, b)
	}
	return bindings, nil
}

// KeyMapFor builds the key map for a configuration: configured bindings
// replace the defaults when present.
func KeyMapFor(cfg *robot.Config, layout robot.Layout) (*KeyMap, error) {
	if len(cfg.Bindings) > 0 {
		bindings, err := BindingsFromConfig(cfg.Bindings, layout.Controllers)
		if err != nil {
			return nil, err
		}
		return NewKeyMap(bindings)
	}
	bindings, err := DefaultBindings(layout)
	if err != nil {
		return nil, err
	}
	return NewKeyMap(bindings)
}
