package cmd

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/tiletrace/tracer/device"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List available compute devices.
func ListDevices(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	devices := device.SelectDevices(device.AllDevices, ctx.String("match"))

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"#", "Name", "Type", "Workers"})
	for index, dev := range devices {
		table.Append([]string{
			fmt.Sprintf("%02d", index),
			dev.Name,
			dev.Type.String(),
			fmt.Sprintf("%d", dev.Workers),
		})
	}
	table.Render()

	logger.Noticef("system provides %d device(s):\n%s", len(devices), buf.String())
	return nil
}
