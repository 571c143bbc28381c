package teleop

import (
	"sort"
	"sync/atomic"
)

// EventKind discriminates input events.
type EventKind uint8

const (
	KeyDown EventKind = iota + 1
	KeyUp
	KeyTap // press and release in one, for sources without key-up events
	Quit
)

// Event is one input record.
type Event struct {
	Kind EventKind
	Key  Key
}

// InputSource yields all events queued since the previous call. Poll must not
// block.
type InputSource interface {
	Poll() []Event
}

// Keyboard tracks which keys are down at integration time. A key pressed and
// released within one polling pass still counts as down for that tick.
type Keyboard struct {
	held   map[Key]bool
	tapped map[Key]bool
}

func NewKeyboard() *Keyboard {
	return &Keyboard{
		held:   make(map[Key]bool),
		tapped: make(map[Key]bool),
	}
}

// Apply records one key event. Quit events are ignored here.
func (k *Keyboard) Apply(ev Event) {
	switch ev.Kind {
	case KeyDown:
		k.held[ev.Key] = true
		k.tapped[ev.Key] = true
	case KeyUp:
		delete(k.held, ev.Key)
	case KeyTap:
		k.tapped[ev.Key] = true
	}
}

// Down returns the keys down this tick in sorted order.
func (k *Keyboard) Down() []Key {
	keys := make([]Key, 0, len(k.held)+len(k.tapped))
	for key := range k.tapped {
		keys = append(keys, key)
	}
	for key := range k.held {
		if !k.tapped[key] {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// EndTick forgets taps from the finished tick.
func (k *Keyboard) EndTick() {
	clear(k.tapped)
}

// EventQueue is an InputSource fed by another goroutine, such as a terminal UI.
// Key events beyond the queue capacity are dropped; a quit request is never lost.
type EventQueue struct {
	ch   chan Event
	quit atomic.Bool
}

func NewEventQueue(size int) *EventQueue {
	if size <= 0 {
		size = 64
	}
	return &EventQueue{ch: make(chan Event, size)}
}

// Push enqueues an event without blocking. It reports false when the event was
// dropped.
func (q *EventQueue) Push(ev Event) bool {
	if ev.Kind == Quit {
		q.quit.Store(true)
		return true
	}
	select {
	case q.ch <- ev:
		return true
	default:
		return false
	}
}

// Tap enqueues a key press that is released after one tick.
func (q *EventQueue) Tap(k Key) bool {
	return q.Push(Event{Kind: KeyTap, Key: k})
}

// Poll drains the queue.
func (q *EventQueue) Poll() []Event {
	var events []Event
	for {
		select {
		case ev := <-q.ch:
			events = append(events, ev)
		default:
			if q.quit.Swap(false) {
				events = append(events, Event{Kind: Quit})
			}
			return events
		}
	}
}
