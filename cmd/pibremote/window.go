package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gwillem/pibremote/pkg/window"
)

type WindowCommand struct {
	Hz         int    `long:"hz" default:"60" description:"Control loop frequency (0 follows the display refresh)"`
	Assets     string `long:"assets" description:"Directory with the eye animation frames (default from config)"`
	Icon       string `long:"icon" description:"Window icon (PNG)"`
	Width      int    `long:"width" default:"800" description:"Window width"`
	Height     int    `long:"height" default:"500" description:"Window height"`
	Fullscreen bool   `long:"fullscreen" description:"Start in fullscreen"`
	RunOptions
}

// displayHz is the refresh rate assumed when ebiten syncs with the display.
const displayHz = 60

// tickRate returns how often ebiten calls Update.
func (c *WindowCommand) tickRate() int {
	if c.Hz > 0 {
		return c.Hz
	}
	return displayHz
}

func (c *WindowCommand) Execute(args []string) error {
	s, err := openSession(opts.Config, c.RunOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	assets := c.Assets
	if assets == "" {
		assets = s.cfg.Assets
	}
	count := s.layout.FrameCount
	var game *window.Game
	if window.FramesAvailable(assets, count) {
		frames, err := window.LoadFrames(assets, count)
		if err != nil {
			return err
		}
		game = window.NewGame(frames)
	} else {
		fmt.Printf("No eye frames in %q, drawing them instead\n", assets)
		game = window.NewGame(window.DrawFrames(c.Width, c.Height, count))
	}

	keys, err := window.NewKeySource(s.keymap)
	if err != nil {
		return err
	}

	// ebiten paces Update, so the controller itself runs unthrottled.
	ctrl, err := s.controller(keys, game, 0, c.tickRate(), c.Stats)
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Print controller logs to the terminal
	go func() {
		for msg := range ctrl.Logs() {
			fmt.Println(msg)
		}
	}()

	err = window.Run(ctx, ctrl, game, window.Options{
		Title:      "pib remote",
		Width:      c.Width,
		Height:     c.Height,
		Resizable:  true,
		Fullscreen: c.Fullscreen,
		Icon:       c.Icon,
		TPS:        c.Hz,
	})
	if err != nil {
		return err
	}
	reportDryRun(s)
	return nil
}
