// Package window runs the control loop inside a desktop window. Key state is
// read from the window system each frame and the idle eye animation fills the
// window.
package window

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/gwillem/pibremote/pkg/eyes"
	"github.com/gwillem/pibremote/pkg/teleop"
)

// Options configure the window.
type Options struct {
	Title      string
	Width      int
	Height     int
	Resizable  bool
	Fullscreen bool
	Icon       string // optional PNG path
	TPS        int    // ticks per second; 0 syncs with the display refresh
}

// Game is the ebiten game driving the controller one tick per Update.
type Game struct {
	ctrl   *teleop.Controller
	ctx    context.Context
	frames []*ebiten.Image
	frame  int
}

// NewGame creates a game that draws the given animation frames.
func NewGame(frames []*ebiten.Image) *Game {
	return &Game{frames: frames}
}

// Render records the animation frame to draw next.
func (g *Game) Render(f teleop.Frame) {
	g.frame = f.Index
}

func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	if !g.ctrl.Step(g.ctx) {
		return ebiten.Termination
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if len(g.frames) == 0 {
		return
	}
	img := g.frames[g.frame%len(g.frames)]

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	iw, ih := img.Bounds().Dx(), img.Bounds().Dy()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(sw)/float64(iw), float64(sh)/float64(ih))
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(img, op)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// Run opens the window and runs ctrl until the window is closed, Escape is
// pressed or ctx is done. The game must be the controller's renderer.
func Run(ctx context.Context, ctrl *teleop.Controller, game *Game, opts Options) error {
	ebiten.SetWindowTitle(opts.Title)
	ebiten.SetWindowSize(opts.Width, opts.Height)
	if opts.Resizable {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	}
	ebiten.SetFullscreen(opts.Fullscreen)
	ebiten.SetWindowClosingHandled(true)
	if opts.TPS > 0 {
		ebiten.SetTPS(opts.TPS)
	} else {
		ebiten.SetTPS(ebiten.SyncWithFPS)
	}

	if opts.Icon != "" {
		_, icon, err := ebitenutil.NewImageFromFile(opts.Icon)
		if err != nil {
			return fmt.Errorf("load icon: %w", err)
		}
		ebiten.SetWindowIcon([]image.Image{icon})
	}

	if err := ctrl.Begin(ctx); err != nil {
		return err
	}
	defer ctrl.Shutdown()

	game.ctrl = ctrl
	game.ctx = ctx
	game.frame = ctrl.AnimationFrame()
	if err := ebiten.RunGame(game); err != nil {
		return fmt.Errorf("run window: %w", err)
	}
	return nil
}

// FrameName returns the file name of animation frame i (0-based).
func FrameName(i int) string {
	return fmt.Sprintf("eyes%02d.png", i+1)
}

// LoadFrames loads count frames named eyes01.png, eyes02.png, ... from dir.
func LoadFrames(dir string, count int) ([]*ebiten.Image, error) {
	frames := make([]*ebiten.Image, 0, count)
	for i := 0; i < count; i++ {
		path := filepath.Join(dir, FrameName(i))
		img, _, err := ebitenutil.NewImageFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load frame %s: %w", path, err)
		}
		frames = append(frames, img)
	}
	return frames, nil
}

// FramesAvailable reports whether dir holds all count frames.
func FramesAvailable(dir string, count int) bool {
	if dir == "" {
		return false
	}
	for i := 0; i < count; i++ {
		if _, err := os.Stat(filepath.Join(dir, FrameName(i))); err != nil {
			return false
		}
	}
	return true
}

var (
	background = color.RGBA{0x10, 0x10, 0x18, 0xff}
	iris       = color.RGBA{0x4f, 0xc3, 0xf7, 0xff}
	pupil      = color.RGBA{0x05, 0x05, 0x10, 0xff}
)

// DrawFrames draws count blink frames of the given size without image assets.
func DrawFrames(width, height, count int) []*ebiten.Image {
	frames := make([]*ebiten.Image, count)
	for i := range frames {
		img := ebiten.NewImage(width, height)
		img.Fill(background)
		drawEyes(img, eyes.Openness(i, count))
		frames[i] = img
	}
	return frames
}

func drawEyes(img *ebiten.Image, openness float64) {
	w, h := float32(img.Bounds().Dx()), float32(img.Bounds().Dy())
	r := h / 5
	cy := h / 2
	for _, cx := range []float32{w / 3, 2 * w / 3} {
		vector.DrawFilledCircle(img, cx, cy, r, iris, true)
		vector.DrawFilledCircle(img, cx, cy, r/2.5, pupil, true)

		// Lids close from top and bottom towards the center line.
		lid := r * float32(1-openness)
		vector.DrawFilledRect(img, cx-r-1, cy-r-1, 2*r+2, lid+1, background, false)
		vector.DrawFilledRect(img, cx-r-1, cy+r-lid, 2*r+2, lid+1, background, false)
	}
}
