package main

import (
	"context"
	"fmt"
	"log"

	"github.com/Quang-To/Pathwise/internal/config"
	"github.com/Quang-To/Pathwise/internal/dashboard"
	"github.com/Quang-To/Pathwise/internal/db"
	"github.com/Quang-To/Pathwise/internal/embedding"
	"github.com/Quang-To/Pathwise/internal/feedback"
	"github.com/Quang-To/Pathwise/internal/ingestion"
	"github.com/Quang-To/Pathwise/internal/llm"
	"github.com/Quang-To/Pathwise/internal/recommend"
	"github.com/Quang-To/Pathwise/internal/setcover"
	"github.com/Quang-To/Pathwise/internal/skillgap"
	"github.com/Quang-To/Pathwise/internal/vectorindex"
)

// app bundles the wired services and everything that needs closing.
type app struct {
	cfg       *config.Config
	database  *db.DB
	engine    *recommend.Engine
	dashboard *dashboard.Service
	feedback  *feedback.Service
	ingest    *ingestion.Service
	closers   []func() error
}

// buildApp connects the database and Gemini credentials and wires the
// full pipeline.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &app{cfg: cfg, database: database}
	a.closers = append(a.closers, func() error { database.Close(); return nil })

	generators, err := a.generatorClients(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	embedders, fallback, err := a.embedderClients(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	pool := embedding.NewPool(embedders, cfg.Embedding)
	if fallback != nil {
		pool = pool.WithFallback(fallback)
	}

	a.engine = recommend.NewEngine(
		database,
		skillgap.New(generators),
		pool,
		vectorindex.New(database.Pool()),
		setcover.NewExact(),
		cfg.Recommendation,
	)
	a.dashboard = dashboard.New(database, a.engine)
	a.feedback = feedback.New(database)
	a.ingest = ingestion.NewService(
		ingestion.NewClient(cfg.Coursera.URI, cfg.Coursera.Limit, cfg.Coursera.MaxRetries),
		database,
		pool,
	)
	return a, nil
}

// generatorClients builds one Gemini client per generation credential.
func (a *app) generatorClients(ctx context.Context) ([]llm.Generator, error) {
	var generators []llm.Generator
	for _, key := range a.cfg.GenerateAPIKeys {
		client, err := llm.NewGeminiClient(ctx, key, llm.WithGenerateModel(a.cfg.GenerateModel))
		if err != nil {
			return nil, fmt.Errorf("failed to create generation client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		generators = append(generators, client)
	}
	if len(generators) == 0 {
		return nil, fmt.Errorf("no generation credentials configured (GEN_API_KEYS)")
	}
	return generators, nil
}

// embedderClients builds the embedding pool clients plus an optional
// fallback drawn from the generation credentials.
func (a *app) embedderClients(ctx context.Context) ([]llm.Embedder, llm.Embedder, error) {
	var embedders []llm.Embedder
	for _, key := range a.cfg.EmbedAPIKeys {
		client, err := llm.NewGeminiClient(ctx, key, llm.WithEmbedModel(a.cfg.EmbedModel))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create embedding client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		embedders = append(embedders, client)
	}
	if len(embedders) == 0 {
		return nil, nil, fmt.Errorf("no embedding credentials configured (EM_API_KEYS)")
	}

	var fallback llm.Embedder
	if len(a.cfg.GenerateAPIKeys) > 0 {
		client, err := llm.NewGeminiClient(ctx, a.cfg.GenerateAPIKeys[0], llm.WithEmbedModel(a.cfg.EmbedModel))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create fallback embedding client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		fallback = client
	}
	return embedders, fallback, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("close error: %v", err)
		}
	}
}
