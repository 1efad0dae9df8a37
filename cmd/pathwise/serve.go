package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Quang-To/Pathwise/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server exposing the recommendation, dashboard, feedback and ingestion endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to PORT env or 8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	app, err := buildApp(context.Background())
	if err != nil {
		return err
	}
	defer app.close()

	port := app.cfg.Port
	if servePort != 0 {
		port = servePort
	}

	srv, err := server.New(port, server.Services{
		Recommender: app.engine,
		Dashboards:  app.dashboard,
		Feedback:    app.feedback,
		Ingestor:    app.ingest,
		Users:       app.database,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start()
}
