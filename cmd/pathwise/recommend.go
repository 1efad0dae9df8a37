package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Quang-To/Pathwise/internal/observability"
)

var (
	recommendUser    string
	recommendForce   bool
	recommendVerbose bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Run the recommendation pipeline for one user",
	Long:  `Computes (or returns the cached) minimal course set for a user and prints it as JSON.`,
	RunE:  runRecommend,
}

func init() {
	recommendCmd.Flags().StringVarP(&recommendUser, "user", "u", "", "User ID to recommend for")
	recommendCmd.Flags().BoolVar(&recommendForce, "force", false, "Bypass the cached recommendation")
	recommendCmd.Flags().BoolVarP(&recommendVerbose, "verbose", "v", false, "Print formatted result with skill coverage")
	_ = recommendCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	rec, err := app.engine.Recommend(ctx, recommendUser, recommendForce)
	if err != nil {
		return fmt.Errorf("recommendation failed: %w", err)
	}

	if recommendVerbose {
		printer := observability.NewPrinter(os.Stdout)
		printer.PrintRecommendation(rec)

		skillMap, err := app.engine.SkillsMapping(ctx, recommendUser)
		if err != nil {
			return fmt.Errorf("failed to read skill mapping: %w", err)
		}
		printer.PrintSkillMap(skillMap)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
