package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ternarybob/faultlens/internal/app"
	"github.com/ternarybob/faultlens/internal/interfaces"
	"github.com/ternarybob/faultlens/internal/models"
	"github.com/ternarybob/faultlens/internal/services/enrich"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent enrichments",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the analysis for one enrichment",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var (
	historyTest  string
	historyLimit int
	historyJSON  bool
	showDelete   bool
)

func init() {
	historyCmd.Flags().StringVar(&historyTest, "test", "", "Only show enrichments for this test name")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum records to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print records as JSON")

	showCmd.Flags().BoolVar(&showDelete, "delete", false, "Delete the record from history after printing")
}

func runHistory(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, application *app.App) error {
		var (
			records []*models.EnrichmentRecord
			err     error
		)
		if historyTest != "" {
			records, err = application.Storage.ListByTest(ctx, historyTest, historyLimit)
		} else {
			records, err = application.Storage.List(ctx, historyLimit)
		}
		if err != nil {
			return err
		}

		if historyJSON {
			return printJSON(records)
		}
		if len(records) == 0 {
			fmt.Println("no enrichments recorded")
			return nil
		}
		for _, r := range records {
			status := r.Provider
			if r.AnalysisError != "" {
				status = "unanalysed"
			}
			fmt.Printf("%s  %s  %-40s %-10s frames=%d\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.TestName, status, len(r.Frames))
		}
		return nil
	})
}

func runShow(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, application *app.App) error {
		record, err := application.Storage.Get(ctx, args[0])
		if err != nil {
			return err
		}

		// Prefer the rendered bundle file; fall back to the stored text if it was cleaned up
		analysis, readErr := os.ReadFile(filepath.Join(record.BundleDir, enrich.AnalysisFile))
		if readErr == nil {
			fmt.Print(string(analysis))
		} else {
			fmt.Printf("# %s\n\n%s\n", record.TestName, record.Analysis)
		}

		if showDelete {
			if err := application.Storage.Delete(ctx, record.ID); err != nil && !errors.Is(err, interfaces.ErrRecordNotFound) {
				return err
			}
			logger.Info().Str("id", record.ID).Msg("Enrichment record deleted")
		}
		return nil
	})
}
