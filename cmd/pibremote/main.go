package main

import (
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/pibremote/pkg/robot"
)

type Options struct {
	Config string `short:"c" long:"config" env:"PIB_CONFIG" description:"Configuration file (.json, .yaml or .yml)"`

	Setup       SetupCommand       `command:"setup" description:"Scan for servo controllers and calibrate them"`
	Scan        ScanCommand        `command:"scan" description:"List serial ports and the servos found on them"`
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Drive the servos from the keyboard in the terminal"`
	Window      WindowCommand      `command:"window" description:"Drive the servos from the keyboard in a window with the eye animation"`
}

var opts Options
var parser = newParser(&opts)

func newParser(o *Options) *flags.Parser {
	p := flags.NewParser(o, flags.Default)
	p.LongDescription = "pibremote - keyboard teleoperation for the pib robot arm and hand"
	p.FindOptionByLongName("config").Default = []string{robot.DefaultConfigFile}
	return p
}

func main() {
	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
