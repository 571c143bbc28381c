package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/pibremote/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var errSetupAborted = errors.New("setup aborted")

type SetupCommand struct {
	Preset          string `long:"preset" description:"Layout preset to configure (pib, legacy)"`
	SkipCalibration bool   `long:"skip-calibration" description:"Keep the full servo range instead of recording it"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("pib Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━"))
	fmt.Println()

	// Keep pose, bindings and assets of an existing configuration
	config := robot.DefaultConfig()
	if robot.ConfigExists(opts.Config) {
		var err error
		if config, err = robot.LoadConfigFrom(opts.Config); err != nil {
			return err
		}
	}
	if c.Preset != "" {
		config.Preset = c.Preset
		config.Layout = nil
	}
	layout, err := config.ResolveLayout()
	if err != nil {
		return err
	}

	// Step 1: Scan for controllers
	ports, err := assignControllers(layout.Controllers)
	if err != nil {
		return err
	}
	config.Controllers = make([]robot.ControllerConfig, layout.Controllers)
	for i, port := range ports {
		config.Controllers[i].Port = port
		config.Controllers[i].Calibration = robot.DefaultCalibration()
	}

	// Step 2: Calibrate each controller
	if !c.SkipCalibration {
		for i := range config.Controllers {
			fmt.Println()
			fmt.Println(subHeaderStyle.Render(fmt.Sprintf("━━━ Calibrating Controller %d ━━━", i)))
			fmt.Println()
			cal, err := calibrateController(config.Controllers[i].Port, i)
			if err != nil {
				return fmt.Errorf("calibrate controller %d: %w", i, err)
			}
			config.Controllers[i].Calibration = cal

			// Save after every controller
			if err := config.SaveTo(opts.Config); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
		}
	}

	if err := config.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start teleoperation with: " + headerStyle.Render("pibremote teleoperate"))

	return nil
}

// assignControllers finds the servo controllers and asks the user which
// controller index each one is. It returns the port of every index.
func assignControllers(count int) ([]string, error) {
	fmt.Println("Scanning for servo controllers...")
	fmt.Println()

	found := findControllers()
	if len(found) < count {
		for _, c := range found {
			c.bus.Close()
		}
		fmt.Println("Make sure every controller is connected and powered on.")
		return nil, fmt.Errorf("found %d controller(s), need %d", len(found), count)
	}

	fmt.Printf("Found %d controller(s). Let's identify them...\n\n", len(found))

	ports := make([]string, count)
	assigned := 0
	for i, c := range found {
		if assigned == count {
			c.bus.Close()
			continue
		}
		index, err := identifyWithWiggle(c, ports)
		if err != nil {
			for _, rest := range found[i+1:] {
				rest.bus.Close()
			}
			return nil, err
		}
		if index >= 0 {
			ports[index] = c.port
			assigned++
		}
	}

	fmt.Println()
	if assigned < count {
		fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━"))
		for i, port := range ports {
			if port == "" {
				fmt.Printf("Controller %d not identified.\n", i)
			}
		}
		return nil, fmt.Errorf("all %d controllers are required", count)
	}

	// Display results
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Controllers identified:"))
	for i, port := range ports {
		fmt.Printf("  Controller %d: %s\n", i, port)
	}
	return ports, nil
}

type controllerInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

// findControllers scans every serial port for servos with IDs 1 to
// ChannelsPerController. The returned buses are open.
func findControllers() []controllerInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var found []controllerInfo
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		bus, err := robot.OpenBus(port)
		if err != nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		servos, err := bus.Scan(ctx, 1, robot.ChannelsPerController)
		cancel()

		if err != nil || len(servos) == 0 {
			bus.Close()
			continue
		}

		sort.Slice(servos, func(i, j int) bool { return servos[i].ID < servos[j].ID })
		fmt.Printf("  Found %d servo(s) on %s\n", len(servos), port)
		found = append(found, controllerInfo{
			port:   port,
			servos: servos,
			bus:    bus,
		})
	}

	return found
}

// identifyWithWiggle moves the lowest servo of a controller and asks which
// controller index it is. It returns -1 when the user skips the controller.
func identifyWithWiggle(c controllerInfo, ports []string) (int, error) {
	defer c.bus.Close()

	ctx := context.Background()
	first := c.servos[0]
	servo := feetech.NewServo(c.bus, first.ID, first.Model)

	if originalPos, err := servo.Position(ctx); err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
	} else if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
	} else {
		fmt.Printf("\n  Wiggling servo %d on %s...\n", first.ID, c.port)

		// Wiggle: single gentle, slow movement
		wiggleAmount := 30
		moveTimeMs := 500
		servo.SetPositionWithTime(ctx, originalPos+wiggleAmount, moveTimeMs)
		time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
		servo.SetPositionWithTime(ctx, originalPos-wiggleAmount, moveTimeMs)
		time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)

		// Return to original position
		servo.SetPositionWithTime(ctx, originalPos, moveTimeMs)
		time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)

		servo.Disable(ctx)
	}

	// Offer only the indexes still unassigned
	var options []huh.Option[int]
	for i, port := range ports {
		if port == "" {
			options = append(options, huh.NewOption(fmt.Sprintf("Controller %d", i), i))
		}
	}
	options = append(options, huh.NewOption("Skip this controller", -1))

	var index int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title(fmt.Sprintf("Which controller is on %s?", c.port)).
				Description(fmt.Sprintf("%d servo(s); servo %d just wiggled", len(c.servos), first.ID)).
				Options(options...).
				Value(&index),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Println()
		return -1, errSetupAborted
	}
	return index, nil
}

// calibrateController records the range of motion of every servo on a
// controller while the user moves the joints by hand.
func calibrateController(port string, index int) (robot.Calibration, error) {
	fmt.Printf("Calibrating controller %d on %s\n", index, port)
	fmt.Println()

	bus, err := robot.OpenBus(port)
	if err != nil {
		return nil, err
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	found, err := bus.Scan(ctx, 1, robot.ChannelsPerController)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", port, err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no servos on %s", port)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })

	// Disable all servos so user can move the joints freely
	servos := make([]*feetech.Servo, len(found))
	ids := make([]int, len(found))
	for i, s := range found {
		servos[i] = feetech.NewServo(bus, s.ID, s.Model)
		ids[i] = s.ID
		servos[i].Disable(context.Background())
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move each joint to its minimum AND maximum positions.")
	fmt.Println()

	model := newCalibrationModel(ids, servos)
	model.readPositions()
	p := tea.NewProgram(model)
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("run calibration: %w", err)
	}

	cm := finalModel.(calibrationModel)
	if cm.aborted {
		return nil, errSetupAborted
	}
	cal := cm.calibration()
	fmt.Printf("Controller %d calibrated (%d servos).\n", index, len(cal))
	return cal, nil
}

// Calibration TUI model
type calibrationModel struct {
	ids          []int
	servos       []*feetech.Servo
	curPositions map[int]int
	minPositions map[int]int
	maxPositions map[int]int
	quitting     bool
	aborted      bool
}

type tickMsg time.Time

func newCalibrationModel(ids []int, servos []*feetech.Servo) calibrationModel {
	return calibrationModel{
		ids:          ids,
		servos:       servos,
		curPositions: make(map[int]int),
		minPositions: make(map[int]int),
		maxPositions: make(map[int]int),
	}
}

// readPositions samples every servo and widens the recorded ranges.
func (m calibrationModel) readPositions() {
	ctx := context.Background()
	for i, id := range m.ids {
		pos, err := m.servos[i].Position(ctx)
		if err != nil {
			continue
		}
		m.record(id, pos)
	}
}

func (m calibrationModel) record(id, pos int) {
	m.curPositions[id] = pos
	if lo, ok := m.minPositions[id]; !ok || pos < lo {
		m.minPositions[id] = pos
	}
	if hi, ok := m.maxPositions[id]; !ok || pos > hi {
		m.maxPositions[id] = pos
	}
}

// calibration builds the calibration of the recorded servos. Servo ID n is
// channel n-1; a servo that never moved keeps the full raw range.
func (m calibrationModel) calibration() robot.Calibration {
	cal := make(robot.Calibration)
	for _, id := range m.ids {
		sc := robot.ServoCalibration{ID: id, RangeMin: robot.RawMin, RangeMax: robot.RawMax}
		lo, okMin := m.minPositions[id]
		hi, okMax := m.maxPositions[id]
		if okMin && okMax && hi > lo {
			sc.RangeMin, sc.RangeMax = lo, hi
		}
		cal[id-1] = sc
	}
	return cal
}

// commanded returns the current position of a servo in commanded units under
// the given calibration.
func (m calibrationModel) commanded(cal robot.Calibration, id int) (int, bool) {
	raw, ok := m.curPositions[id]
	if !ok {
		return 0, false
	}
	_, sc, ok := cal.ByID(id)
	if !ok {
		return 0, false
	}
	return sc.Normalize(raw), true
}

func (m calibrationModel) Init() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q":
			m.quitting = true
			return m, tea.Quit
		case "ctrl+c":
			m.quitting = true
			m.aborted = true
			return m, tea.Quit
		}

	case tickMsg:
		m.readPositions()
		return m, tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
			return tickMsg(t)
		})
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	// Table styles
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableServoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	cal := m.calibration()
	rows := make([][]string, 0, len(m.ids))
	ranges := make([]int, 0, len(m.ids))
	for _, id := range m.ids {
		rangeSize := m.maxPositions[id] - m.minPositions[id]
		ranges = append(ranges, rangeSize)
		position := "-"
		if pos, ok := m.commanded(cal, id); ok {
			position = fmt.Sprintf("%+d", pos)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", id-1),
			fmt.Sprintf("%d", id),
			fmt.Sprintf("%d", m.curPositions[id]),
			position,
			fmt.Sprintf("%d", m.minPositions[id]),
			fmt.Sprintf("%d", m.maxPositions[id]),
			fmt.Sprintf("%d", rangeSize),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Channel", "Servo", "Raw", "Position", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0, 1:
				return tableServoStyle
			case 2, 3:
				return tableCurrentStyle
			case 6:
				if row >= 0 && row < len(ranges) && ranges[row] > 500 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done, ctrl+c to abort"))

	return sb.String()
}
