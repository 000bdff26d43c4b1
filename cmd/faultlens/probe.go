package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/faultlens/internal/app"
)

var probeCmd = &cobra.Command{
	Use:   "probe <video>",
	Short: "Report video duration and which extraction tools are installed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, application *app.App) error {
			seconds, estimated := application.Probe.Duration(ctx, args[0])
			note := ""
			if estimated {
				note = " (fallback, duration could not be determined)"
			}
			fmt.Printf("duration: %.3fs%s\n", seconds, note)

			tools := application.Config.Tools
			for _, name := range []string{tools.FFprobe, tools.FFmpeg, tools.Avconv, tools.ImageMagick} {
				status := "missing"
				if application.Runner.Available(name) {
					status = "available"
				}
				fmt.Printf("%-10s %s\n", name, status)
			}
			return nil
		})
	},
}
