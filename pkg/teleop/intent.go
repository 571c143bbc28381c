package teleop

import "github.com/gwillem/pibremote/pkg/robot"

// IntentBuffer holds the signed velocity intent of every channel for the
// current tick. Slots are indexed by flat channel and reset after integration.
type IntentBuffer struct {
	slots []int
}

func NewIntentBuffer(channels int) *IntentBuffer {
	return &IntentBuffer{slots: make([]int, channels)}
}

// Len returns the number of channel slots.
func (b *IntentBuffer) Len() int {
	return len(b.slots)
}

// Set overwrites the intent of one channel.
func (b *IntentBuffer) Set(addr robot.ChannelAddress, multiplier int) {
	b.slots[addr.Flat()] = multiplier
}

// Get returns the intent of one channel.
func (b *IntentBuffer) Get(addr robot.ChannelAddress) int {
	return b.slots[addr.Flat()]
}

// Apply writes every effect into its slot; the last write to a slot wins.
func (b *IntentBuffer) Apply(effects []Effect) {
	for _, e := range effects {
		b.Set(e.Channel, e.Multiplier)
	}
}

// Active reports whether any slot holds nonzero intent.
func (b *IntentBuffer) Active() bool {
	for _, v := range b.slots {
		if v != 0 {
			return true
		}
	}
	return false
}

// Clear resets every slot to zero.
func (b *IntentBuffer) Clear() {
	clear(b.slots)
}
