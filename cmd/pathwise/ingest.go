package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var ingestLimit int

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest the external course catalog",
	Long:  `Fetches courses from the configured catalog endpoint, extracts skill tags and writes courses plus embeddings to the database.`,
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().IntVar(&ingestLimit, "limit", 0, "Maximum courses to ingest (defaults to COURSERA_LIMIT)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	result, err := app.ingest.Run(ctx, ingestLimit)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("fetched=%d stored=%d indexed=%d skipped=%d failures=%d\n",
		result.Fetched, result.Stored, result.Indexed, result.Skipped, result.Failures)
	return nil
}
