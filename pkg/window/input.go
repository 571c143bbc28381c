package window

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/gwillem/pibremote/pkg/teleop"
)

var namedKeys = map[teleop.Key]ebiten.Key{
	"space":     ebiten.KeySpace,
	"up":        ebiten.KeyArrowUp,
	"down":      ebiten.KeyArrowDown,
	"left":      ebiten.KeyArrowLeft,
	"right":     ebiten.KeyArrowRight,
	"enter":     ebiten.KeyEnter,
	"tab":       ebiten.KeyTab,
	"backspace": ebiten.KeyBackspace,
	",":         ebiten.KeyComma,
	".":         ebiten.KeyPeriod,
	";":         ebiten.KeySemicolon,
	"/":         ebiten.KeySlash,
	"-":         ebiten.KeyMinus,
	"=":         ebiten.KeyEqual,
}

// keyFor maps a key name to the ebiten key code.
func keyFor(k teleop.Key) (ebiten.Key, bool) {
	if r := []rune(string(k)); len(r) == 1 {
		switch {
		case r[0] >= 'a' && r[0] <= 'z':
			return ebiten.KeyA + ebiten.Key(r[0]-'a'), true
		case r[0] >= '0' && r[0] <= '9':
			return ebiten.KeyDigit0 + ebiten.Key(r[0]-'0'), true
		}
	}
	key, ok := namedKeys[k]
	return key, ok
}

// KeySource reports press and release edges of the bound keys. Escape and
// closing the window request a quit.
type KeySource struct {
	keys  []teleop.Key
	codes []ebiten.Key
}

// NewKeySource watches every key of the key map.
func NewKeySource(km *teleop.KeyMap) (*KeySource, error) {
	s := &KeySource{}
	for _, k := range km.Keys() {
		code, ok := keyFor(k)
		if !ok {
			return nil, fmt.Errorf("key %q has no window key code", k)
		}
		if code == ebiten.KeyEscape {
			return nil, fmt.Errorf("key %q is reserved for quit", k)
		}
		s.keys = append(s.keys, k)
		s.codes = append(s.codes, code)
	}
	return s, nil
}

func (s *KeySource) Poll() []teleop.Event {
	var events []teleop.Event
	for i, code := range s.codes {
		switch {
		case inpututil.IsKeyJustPressed(code):
			events = append(events, teleop.Event{Kind: teleop.KeyDown, Key: s.keys[i]})
		case inpututil.IsKeyJustReleased(code):
			events = append(events, teleop.Event{Kind: teleop.KeyUp, Key: s.keys[i]})
		}
	}
	if ebiten.IsWindowBeingClosed() || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		events = append(events, teleop.Event{Kind: teleop.Quit})
	}
	return events
}
