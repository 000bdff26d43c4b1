package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/faultlens/internal/app"
	"github.com/ternarybob/faultlens/internal/models"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <failure.yaml|failure.json>",
	Short: "Enrich a failure bundle written by a test run",
	Long: `Reads a failure bundle (test name, error, optional video, DOM and screenshot files),
extracts video frames, asks the configured model for an analysis and writes the
enrichment bundle to the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, err := models.LoadFailureBundle(args[0])
		if err != nil {
			return err
		}

		return withApp(func(ctx context.Context, application *app.App) error {
			record, err := application.Enricher.Enrich(ctx, &bundle.Failure, &bundle.Artifacts)
			if err != nil {
				return err
			}

			fmt.Printf("record:  %s\nbundle:  %s\nframes:  %d\n", record.ID, record.BundleDir, len(record.Frames))
			if record.AnalysisError != "" {
				fmt.Printf("analysis unavailable: %s\n", record.AnalysisError)
				return nil
			}
			fmt.Printf("\n%s\n", record.Analysis)
			return nil
		})
	},
}
