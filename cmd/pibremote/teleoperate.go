package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/pibremote/pkg/eyes"
	"github.com/gwillem/pibremote/pkg/robot"
	"github.com/gwillem/pibremote/pkg/teleop"
)

type TeleoperateCommand struct {
	Hz int `long:"hz" default:"60" description:"Control loop frequency"`
	RunOptions
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	panelHeight  = 7 // eyes and key help boxes
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Channel colors, cycled over the bound channels
var channelColors = []string{"196", "208", "226", "46", "51", "201", "99", "214", "118", "33"}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	eyesStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).
			Foreground(lipgloss.Color("51")).Padding(0, 2)
	helpStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	keyStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
)

type teleopModel struct {
	ctrl          *teleop.Controller
	queue         *teleop.EventQueue
	sink          *teleop.FrameSink
	chart         *streamlinechart.Model
	channels      []robot.ChannelAddress // charted channels
	eyeFrames     []string
	frame         int
	width         int      // terminal width
	height        int      // terminal height
	logs          []string // last N log messages
	quitting      bool
	lastPositions []int // previous positions to detect movement
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// hasMovement checks if any charted channel moved since the last frame
func (m *teleopModel) hasMovement(positions []int) bool {
	if m.lastPositions == nil {
		return true // first reading, consider it movement
	}
	for _, ch := range m.channels {
		if positions[ch.Flat()] != m.lastPositions[ch.Flat()] {
			return true
		}
	}
	return false
}

// Messages from the controller
type frameMsg teleop.Frame
type logMsg string
type stoppedMsg struct{}

func waitForFrame(sink *teleop.FrameSink) tea.Cmd {
	return func() tea.Msg {
		return frameMsg(<-sink.Frames())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *teleopModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 16 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - panelHeight - footerHeight - borderSize
	if height < 8 {
		height = 8
	}
	return width, height
}

func (m *teleopModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialTeleopModel(ctrl *teleop.Controller, queue *teleop.EventQueue, sink *teleop.FrameSink) teleopModel {
	chart := streamlinechart.New(80, 16,
		streamlinechart.WithYRange(robot.MinPosition, robot.MaxPosition),
	)

	channels := ctrl.KeyMap().Channels()
	for i, ch := range channels {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(channelColors[i%len(channelColors)]))
		chart.SetDataSetStyles(ch.String(), runes.ThinLineStyle, style)
	}

	return teleopModel{
		ctrl:      ctrl,
		queue:     queue,
		sink:      sink,
		chart:     &chart,
		channels:  channels,
		eyeFrames: eyes.TextFrames(ctrl.Layout().FrameCount),
		frame:     ctrl.AnimationFrame(),
	}
}

func (m teleopModel) Init() tea.Cmd {
	return tea.Batch(
		waitForFrame(m.sink),
		waitForLog(m.ctrl),
	)
}

// keyName maps a terminal key press to a key map name.
func keyName(msg tea.KeyMsg) teleop.Key {
	if msg.Type == tea.KeySpace {
		return "space"
	}
	return teleop.NormalizeKey(msg.String())
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			// The loop finishes its tick and reports back with stoppedMsg.
			m.quitting = true
			m.queue.Push(teleop.Event{Kind: teleop.Quit})
			return m, nil
		}
		// Terminals report presses only; key repeat keeps a held key tapping.
		if k := keyName(msg); len(m.ctrl.KeyMap().Effects(k)) > 0 {
			m.queue.Tap(k)
		}

	case frameMsg:
		frame := teleop.Frame(msg)
		m.frame = frame.Index
		if m.hasMovement(frame.Positions) {
			for _, ch := range m.channels {
				m.chart.PushDataSet(ch.String(), float64(frame.Positions[ch.Flat()]))
			}
			m.chart.DrawAll()
			m.lastPositions = frame.Positions
		}
		return m, waitForFrame(m.sink)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)

	case stoppedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	// Header
	layout := m.ctrl.Layout()
	sb.WriteString(titleStyle.Render("pib Teleoperate"))
	sb.WriteString(fmt.Sprintf(" - %d Hz, %s layout", m.ctrl.Hz(), layout.Name))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(m.renderLegend())
	sb.WriteString("\n")

	// Eyes and key help
	eyeArt := ""
	if len(m.eyeFrames) > 0 {
		eyeArt = m.eyeFrames[m.frame%len(m.eyeFrames)]
	}
	eyeBox := eyesStyle.Render(eyeArt)
	helpWidth := m.width - lipgloss.Width(eyeBox) - 4
	if helpWidth < 20 {
		helpWidth = 20
	}
	helpBox := helpStyle.Width(helpWidth).Height(panelHeight - 2).Render(m.renderKeys())
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, eyeBox, " ", helpBox))
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'esc' or 'ctrl+c' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m teleopModel) renderLegend() string {
	var items []string
	for i, ch := range m.channels {
		color := channelColors[i%len(channelColors)]
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
		item := colorStyle.Render("━━") + " " + ch.String()
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

func (m teleopModel) renderKeys() string {
	var items []string
	for _, b := range m.ctrl.KeyMap().Bindings() {
		label := b.Label
		if label == "" {
			label = b.Effects[0].Channel.String()
		}
		items = append(items, keyStyle.Render(string(b.Key))+" "+label)
	}
	return strings.Join(items, "   ")
}

func (c *TeleoperateCommand) Execute(args []string) error {
	s, err := openSession(opts.Config, c.RunOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	queue := teleop.NewEventQueue(0)
	sink := teleop.NewFrameSink()
	ctrl, err := s.controller(queue, sink, c.Hz, c.Hz, c.Stats)
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}

	p := tea.NewProgram(initialTeleopModel(ctrl, queue, sink), tea.WithAltScreen())

	// Start controller in background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		err := ctrl.Start(ctx)
		p.Send(stoppedMsg{})
		done <- err
	}()

	_, runErr := p.Run()
	cancel()
	loopErr := <-done

	if runErr != nil {
		return fmt.Errorf("run terminal UI: %w", runErr)
	}
	if loopErr != nil && !errors.Is(loopErr, context.Canceled) {
		return loopErr
	}
	reportDryRun(s)
	return nil
}

// reportDryRun prints the final commanded positions of a dry run.
func reportDryRun(s *session) {
	rec, ok := s.commander.(*robot.Recorder)
	if !ok {
		return
	}
	fmt.Printf("Dry run: %d commands kept\n", len(rec.Commands()))
	for flat := 0; flat < s.layout.ChannelCount(); flat++ {
		addr, err := robot.AddressFromFlat(flat, s.layout.Controllers)
		if err != nil {
			continue
		}
		if pos, ok := rec.Last(addr); ok {
			fmt.Printf("  %s = %d\n", addr, pos)
		}
	}
}
