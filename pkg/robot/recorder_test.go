package robot

import (
	"context"
	"errors"
	"testing"
)

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	rec := NewRecorder(3)

	if err := rec.SetServoPos(ctx, 0, 8, -4500); err != nil {
		t.Fatal(err)
	}
	if err := rec.SetServoPos(ctx, 0, 8, -4300); err != nil {
		t.Fatal(err)
	}
	if err := rec.SetServoPos(ctx, 3, 0, 0); !errors.Is(err, ErrUnknownController) {
		t.Errorf("controller 3 error = %v", err)
	}
	if err := rec.SetServoPos(ctx, 0, 0, 9001); !errors.Is(err, ErrPositionOutOfRange) {
		t.Errorf("9001 error = %v", err)
	}

	if got := len(rec.Commands()); got != 2 {
		t.Fatalf("recorded %d commands, want 2", got)
	}
	if pos, ok := rec.Last(ChannelAddress{0, 8}); !ok || pos != -4300 {
		t.Errorf("Last(0/8) = %d, %v", pos, ok)
	}

	boom := errors.New("bus timeout")
	rec.Fail = func(Command) error { return boom }
	if err := rec.SetServoPos(ctx, 1, 1, 100); !errors.Is(err, boom) {
		t.Errorf("Fail hook error = %v", err)
	}
	if _, ok := rec.Last(ChannelAddress{1, 1}); ok {
		t.Error("failed command was recorded")
	}

	rec.Fail = nil
	rec.MaxHistory = 3
	for i := 0; i < 5; i++ {
		if err := rec.SetServoPos(ctx, 2, 2, i*100); err != nil {
			t.Fatal(err)
		}
	}
	cmds := rec.Commands()
	if len(cmds) != 3 || cmds[0].Position != 200 || cmds[2].Position != 400 {
		t.Errorf("bounded history = %+v", cmds)
	}
}
