package teleop

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gwillem/pibremote/pkg/robot"
)

// scriptedInput returns one batch of events per poll, then nothing.
type scriptedInput struct {
	ticks [][]Event
	polls int
}

func (s *scriptedInput) Poll() []Event {
	s.polls++
	if len(s.ticks) == 0 {
		return nil
	}
	batch := s.ticks[0]
	s.ticks = s.ticks[1:]
	return batch
}

type torqueRecorder struct {
	*robot.Recorder
	enabled, disabled int
}

func (t *torqueRecorder) Enable(context.Context) error  { t.enabled++; return nil }
func (t *torqueRecorder) Disable(context.Context) error { t.disabled++; return nil }

func newTestController(t *testing.T, input InputSource, cmd ServoCommander, r Renderer) *Controller {
	t.Helper()
	ctrl, err := NewController(Config{
		Layout:    testLayout(),
		KeyMap:    defaultKeyMap(t),
		Commander: cmd,
		Input:     input,
		Renderer:  r,
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return ctrl
}

func drainLogs(c *Controller) []string {
	var logs []string
	for {
		select {
		case l := <-c.Logs():
			logs = append(logs, l)
		default:
			return logs
		}
	}
}

func TestController_HeldKeyMovesWhileHeld(t *testing.T) {
	ctx := context.Background()
	input := &scriptedInput{ticks: [][]Event{
		{{Kind: KeyDown, Key: "d"}},
		nil,
		{{Kind: KeyUp, Key: "d"}},
		nil,
	}}
	rec := robot.NewRecorder(3)
	ctrl := newTestController(t, input, rec, nil)
	upperArm := robot.ChannelAddress{Controller: 0, Local: 9}

	for i := 0; i < 4; i++ {
		if !ctrl.Step(ctx) {
			t.Fatalf("step %d requested stop", i)
		}
	}
	if got := ctrl.Position(upperArm); got != 400 {
		t.Errorf("position = %d, want 400 after two held ticks", got)
	}
	if n := len(rec.Commands()); n != 2 {
		t.Errorf("%d commands dispatched, want 2", n)
	}
}

func TestController_TapMovesOneTick(t *testing.T) {
	ctx := context.Background()
	queue := NewEventQueue(8)
	rec := robot.NewRecorder(3)
	ctrl := newTestController(t, queue, rec, nil)
	elbow := robot.ChannelAddress{Controller: 0, Local: 8}

	queue.Tap("i")
	ctrl.Step(ctx)
	ctrl.Step(ctx)
	if got := ctrl.Position(elbow); got != 200 {
		t.Errorf("position = %d, want 200", got)
	}
}

func TestController_OpenHand(t *testing.T) {
	ctx := context.Background()
	input := &scriptedInput{ticks: [][]Event{{{Kind: KeyTap, Key: "p"}}}}
	rec := robot.NewRecorder(3)
	var frames []Frame
	ctrl := newTestController(t, input, rec, RenderFunc(func(f Frame) { frames = append(frames, f) }))

	ctrl.Step(ctx)

	if len(frames) != 1 || len(frames[0].Updates) != 4 {
		t.Fatalf("frames = %+v", frames)
	}
	for _, u := range frames[0].Updates {
		delta := u.Position
		if delta < 0 {
			delta = -delta
		}
		if delta != 600 {
			t.Errorf("%s moved %d, want magnitude 600", u.Channel, u.Position)
		}
	}
	// 0/3 is mounted mirrored.
	if got := ctrl.Position(robot.ChannelAddress{Controller: 0, Local: 3}); got != -600 {
		t.Errorf("mirrored finger at %d, want -600", got)
	}
}

func TestController_UnboundKey(t *testing.T) {
	ctx := context.Background()
	input := &scriptedInput{ticks: [][]Event{{{Kind: KeyDown, Key: "z"}}}}
	rec := robot.NewRecorder(3)
	ctrl := newTestController(t, input, rec, nil)

	ctrl.Step(ctx)
	if ctrl.intent.Active() {
		t.Error("unbound key produced intent")
	}
	if n := len(rec.Commands()); n != 0 {
		t.Errorf("unbound key dispatched %d commands", n)
	}
}

func TestController_QuitFinishesTick(t *testing.T) {
	ctx := context.Background()
	input := &scriptedInput{ticks: [][]Event{{{Kind: KeyTap, Key: "e"}, {Kind: Quit}}}}
	rec := robot.NewRecorder(3)
	var last Frame
	renders := 0
	ctrl := newTestController(t, input, rec, RenderFunc(func(f Frame) { last = f; renders++ }))

	if ctrl.Step(ctx) {
		t.Fatal("Step did not report quit")
	}
	if renders != 1 || !last.Stopping {
		t.Errorf("renders = %d, last = %+v", renders, last)
	}
	if got := ctrl.Position(robot.ChannelAddress{Controller: 1, Local: 0}); got != 200 {
		t.Errorf("quit tick did not integrate: position %d", got)
	}
	if last.Tick != 1 || ctrl.AnimationFrame() != 0 {
		t.Errorf("tick = %d, frame = %d", last.Tick, ctrl.AnimationFrame())
	}
}

func TestController_AnimationAdvancesWithoutInput(t *testing.T) {
	ctx := context.Background()
	layout := testLayout()
	layout.BlinkDuration = 2
	ctrl, err := NewController(Config{
		Layout:    layout,
		KeyMap:    defaultKeyMap(t),
		Commander: robot.NewRecorder(3),
		Input:     &scriptedInput{},
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		ctrl.Step(ctx)
	}
	if got := ctrl.AnimationFrame(); got != 2 {
		t.Errorf("frame = %d, want 2", got)
	}
}

func TestController_StartStopsOnQuit(t *testing.T) {
	input := &scriptedInput{ticks: [][]Event{nil, {{Kind: Quit}}}}
	rec := &torqueRecorder{Recorder: robot.NewRecorder(3)}
	ctrl, err := NewController(Config{
		Layout:      testLayout(),
		KeyMap:      defaultKeyMap(t),
		Commander:   rec,
		Input:       input,
		StartupPose: []robot.PoseEntry{{Channel: robot.ChannelAddress{Controller: 0, Local: 8}, Position: -4500}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start returned %v", err)
	}
	if input.polls != 2 {
		t.Errorf("polled %d times, want 2", input.polls)
	}
	if rec.enabled != 1 || rec.disabled != 1 {
		t.Errorf("torque enabled %d, disabled %d", rec.enabled, rec.disabled)
	}
	cmds := rec.Commands()
	if len(cmds) != 1 || cmds[0] != (robot.Command{Controller: 0, Local: 8, Position: -4500}) {
		t.Errorf("startup commands = %+v", cmds)
	}
	if got := ctrl.Position(robot.ChannelAddress{Controller: 0, Local: 8}); got != -4500 {
		t.Errorf("startup pose not seeded: %d", got)
	}
}

func TestController_StartCancelled(t *testing.T) {
	ctrl, err := NewController(Config{
		Layout:    testLayout(),
		KeyMap:    defaultKeyMap(t),
		Commander: robot.NewRecorder(3),
		Input:     &scriptedInput{},
		Hz:        200,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := ctrl.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Start returned %v, want deadline exceeded", err)
	}
}

func TestController_DispatchErrorLogged(t *testing.T) {
	ctx := context.Background()
	input := &scriptedInput{ticks: [][]Event{{{Kind: KeyTap, Key: "l"}}}}
	rec := robot.NewRecorder(3)
	rec.Fail = func(robot.Command) error { return errors.New("bus timeout") }
	ctrl := newTestController(t, input, rec, nil)

	if !ctrl.Step(ctx) {
		t.Fatal("dispatch error stopped the loop")
	}
	logs := drainLogs(ctrl)
	if len(logs) != 1 || !strings.Contains(logs[0], "0/7") || !strings.Contains(logs[0], "bus timeout") {
		t.Errorf("logs = %q", logs)
	}
	if got := ctrl.Position(robot.ChannelAddress{Controller: 0, Local: 7}); got != 200 {
		t.Errorf("position = %d, want 200", got)
	}
}

func TestNewController_Validation(t *testing.T) {
	km := defaultKeyMap(t)

	if _, err := NewController(Config{Layout: testLayout(), KeyMap: km, Input: &scriptedInput{}}); err == nil {
		t.Error("accepted missing commander")
	}
	if _, err := NewController(Config{Layout: testLayout(), KeyMap: km, Commander: robot.NewRecorder(3)}); err == nil {
		t.Error("accepted missing input")
	}

	small := testLayout()
	small.Controllers = 1
	small.Inversion = nil
	if _, err := NewController(Config{Layout: small, KeyMap: km, Commander: robot.NewRecorder(1), Input: &scriptedInput{}}); !errors.Is(err, robot.ErrUnknownController) {
		t.Errorf("key map beyond layout error = %v", err)
	}
}

func TestController_BeginTwice(t *testing.T) {
	ctrl := newTestController(t, &scriptedInput{}, robot.NewRecorder(3), nil)
	if err := ctrl.Begin(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Begin(context.Background()); err == nil {
		t.Error("second Begin succeeded")
	}
	ctrl.Shutdown()
	if err := ctrl.Begin(context.Background()); err != nil {
		t.Errorf("Begin after Shutdown: %v", err)
	}
}

func TestController_RestartAfterQuit(t *testing.T) {
	input := &scriptedInput{ticks: [][]Event{
		{{Kind: KeyDown, Key: "d"}, {Kind: Quit}},
		nil,
		nil,
		{{Kind: Quit}},
	}}
	ctrl := newTestController(t, input, robot.NewRecorder(3), nil)
	upperArm := robot.ChannelAddress{Controller: 0, Local: 9}

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if input.polls != 1 || ctrl.Position(upperArm) != 200 {
		t.Fatalf("first run: polls %d, position %d", input.polls, ctrl.Position(upperArm))
	}

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if input.polls != 4 {
		t.Errorf("second run stopped after %d polls, want 4", input.polls)
	}
	if got := ctrl.Position(upperArm); got != 200 {
		t.Errorf("key held before the restart kept moving: position %d", got)
	}
}

func TestFrameSink_KeepsNewest(t *testing.T) {
	sink := NewFrameSink()
	sink.Render(Frame{Tick: 1})
	sink.Render(Frame{Tick: 2})
	sink.Render(Frame{Tick: 3})

	f := <-sink.Frames()
	if f.Tick != 3 {
		t.Errorf("got tick %d, want 3", f.Tick)
	}
	select {
	case f := <-sink.Frames():
		t.Errorf("unexpected extra frame %d", f.Tick)
	default:
	}
}
