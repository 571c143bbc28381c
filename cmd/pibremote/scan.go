package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/pibremote/pkg/robot"
)

type ScanCommand struct{}

func (c *ScanCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("pib Port Scanner"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━"))
	fmt.Println()

	found := findControllers()
	for _, c := range found {
		c.bus.Close()
	}
	fmt.Println()

	if len(found) == 0 {
		fmt.Println("No servo controllers found.")
		fmt.Println("Make sure your controllers are connected and powered on.")
		return nil
	}

	var cfg *robot.Config
	if robot.ConfigExists(opts.Config) {
		cfg, _ = robot.LoadConfigFrom(opts.Config)
	}

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	rows := make([][]string, 0, len(found))
	for _, c := range found {
		rows = append(rows, scanRow(c, cfg))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Port", "Controller", "Calibrated", "Servos", "IDs").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
	fmt.Println(t.Render())
	return nil
}

// scanRow describes one found controller, marking the controller index and
// calibration state when cfg configures its port.
func scanRow(c controllerInfo, cfg *robot.Config) []string {
	ids := make([]string, len(c.servos))
	for i, s := range c.servos {
		ids[i] = strconv.Itoa(s.ID)
	}
	index, calibrated := "-", "-"
	if cfg != nil {
		for i := range cfg.Controllers {
			cc := &cfg.Controllers[i]
			if cc.Port != c.port {
				continue
			}
			index = strconv.Itoa(i)
			calibrated = "no"
			if cc.IsCalibrated() {
				calibrated = "yes"
			}
			break
		}
	}
	return []string{c.port, index, calibrated, strconv.Itoa(len(c.servos)), strings.Join(ids, " ")}
}
