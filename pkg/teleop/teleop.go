// Package teleop provides keyboard teleoperation of the pib servos.
package teleop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/pibremote/pkg/robot"
)

// Frame is what the controller hands to the renderer after every tick.
type Frame struct {
	Tick      uint64
	Index     int   // idle animation frame
	Positions []int // commanded positions by flat channel
	Updates   []Update
	Stopping  bool // quit was requested during this tick
}

// Renderer draws a finished tick.
type Renderer interface {
	Render(Frame)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(Frame)

func (f RenderFunc) Render(fr Frame) { f(fr) }

// Controller runs the teleoperation control loop.
type Controller struct {
	layout    robot.Layout
	keymap    *KeyMap
	commander ServoCommander
	input     InputSource
	renderer  Renderer
	hz        int
	pose      []robot.PoseEntry
	stats     bool

	keyboard   *Keyboard
	intent     *IntentBuffer
	integrator *Integrator
	clock      *AnimationClock
	tick       uint64
	quit       bool

	statTicks int
	statStart time.Time

	mu      sync.Mutex
	running bool
	logCh   chan string
}

// Config holds configuration for the controller.
type Config struct {
	Layout      robot.Layout
	KeyMap      *KeyMap
	Commander   ServoCommander
	Input       InputSource
	Renderer    Renderer // optional
	Hz          int      // ticks per second for Start; 0 runs unthrottled
	StartupPose []robot.PoseEntry
	Stats       bool // log the tick rate once per second
}

// NewController creates a new teleoperation controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Commander == nil {
		return nil, fmt.Errorf("no servo commander")
	}
	if cfg.Input == nil {
		return nil, fmt.Errorf("no input source")
	}
	if cfg.KeyMap == nil {
		return nil, fmt.Errorf("no key map")
	}

	integrator, err := NewIntegrator(cfg.Layout)
	if err != nil {
		return nil, fmt.Errorf("create integrator: %w", err)
	}
	for _, addr := range cfg.KeyMap.Channels() {
		if _, err := robot.NewChannelAddress(addr.Controller, addr.Local, cfg.Layout.Controllers); err != nil {
			return nil, fmt.Errorf("key map: %w", err)
		}
	}
	for _, p := range cfg.StartupPose {
		if err := integrator.Seed(p.Channel, p.Position); err != nil {
			return nil, fmt.Errorf("startup pose: %w", err)
		}
	}
	clock, err := NewAnimationClock(cfg.Layout.BlinkDuration, cfg.Layout.FrameCount)
	if err != nil {
		return nil, err
	}

	renderer := cfg.Renderer
	if renderer == nil {
		renderer = RenderFunc(func(Frame) {})
	}
	if cfg.Hz < 0 {
		cfg.Hz = 0
	}

	return &Controller{
		layout:     cfg.Layout,
		keymap:     cfg.KeyMap,
		commander:  cfg.Commander,
		input:      cfg.Input,
		renderer:   renderer,
		hz:         cfg.Hz,
		pose:       cfg.StartupPose,
		stats:      cfg.Stats,
		keyboard:   NewKeyboard(),
		intent:     NewIntentBuffer(cfg.Layout.ChannelCount()),
		integrator: integrator,
		clock:      clock,
		logCh:      make(chan string, 10),
	}, nil
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Layout returns the layout the controller runs with.
func (c *Controller) Layout() robot.Layout {
	return c.layout
}

// KeyMap returns the key bindings in use.
func (c *Controller) KeyMap() *KeyMap {
	return c.keymap
}

// Position returns the commanded position of a channel.
func (c *Controller) Position(addr robot.ChannelAddress) int {
	return c.integrator.Position(addr)
}

// AnimationFrame returns the current idle animation frame.
func (c *Controller) AnimationFrame() int {
	return c.clock.Frame()
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start runs the control loop until a quit event arrives or ctx is done.
// It returns nil after a quit and ctx.Err() after cancellation.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.Begin(ctx); err != nil {
		return err
	}
	defer c.Shutdown()

	var tick <-chan time.Time
	if c.hz > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(c.hz))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if !c.Step(ctx) {
			return nil
		}
	}
}

// Begin prepares the servos: torque on, startup pose dispatched. Frontends
// that own their own frame loop call Begin, then Step once per frame, then
// Shutdown.
func (c *Controller) Begin(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	// A restart begins with no quit pending and no keys down.
	c.quit = false
	c.keyboard = NewKeyboard()
	c.intent.Clear()

	if t, ok := c.commander.(Torquer); ok {
		if err := t.Enable(ctx); err != nil {
			c.log("Warning: failed to enable servos: %v", err)
		} else {
			c.log("Servos: torque enabled")
		}
	}

	for _, p := range c.pose {
		if err := c.commander.SetServoPos(ctx, p.Channel.Controller, p.Channel.Local, p.Position); err != nil {
			c.log("Startup pose %s: %v", p.Channel, err)
		}
	}

	c.statStart = time.Now()
	c.log("Teleoperation started (%s layout, speed %d)", c.layout.Name, c.layout.ServoSpeed)
	return nil
}

// Step runs one tick: poll input, integrate and dispatch, advance the
// animation, render. It reports false once a quit has been requested; the
// tick that saw the quit still completes.
func (c *Controller) Step(ctx context.Context) bool {
	for _, ev := range c.input.Poll() {
		if ev.Kind == Quit {
			c.quit = true
			continue
		}
		c.keyboard.Apply(ev)
	}
	for _, k := range c.keyboard.Down() {
		c.intent.Apply(c.keymap.Effects(k))
	}
	c.keyboard.EndTick()

	updates := c.integrator.Integrate(ctx, c.intent, c.commander)
	for _, u := range updates {
		if u.Err != nil {
			c.log("Write error %s -> %d: %v", u.Channel, u.Position, u.Err)
		}
	}

	index := c.clock.Advance()
	c.tick++

	c.renderer.Render(Frame{
		Tick:      c.tick,
		Index:     index,
		Positions: c.integrator.Positions(),
		Updates:   updates,
		Stopping:  c.quit,
	})

	if c.stats {
		c.countTick()
	}
	return !c.quit
}

func (c *Controller) countTick() {
	c.statTicks++
	if elapsed := time.Since(c.statStart); elapsed >= time.Second {
		c.log("%d ticks/s", int(float64(c.statTicks)/elapsed.Seconds()))
		c.statTicks = 0
		c.statStart = time.Now()
	}
}

// Shutdown switches servo torque off and marks the controller stopped.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if t, ok := c.commander.(Torquer); ok {
		if err := t.Disable(context.Background()); err != nil {
			c.log("Warning: failed to disable servos: %v", err)
		} else {
			c.log("Servos: torque disabled")
		}
	}
	c.log("Teleoperation stopped")
}
