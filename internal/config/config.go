// Package config provides environment-backed configuration for the Pathwise service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the full service configuration. All values come from the
// environment (optionally via a .env file loaded by the CLI entry point).
type Config struct {
	// Server
	Port        int
	DatabaseURL string

	// Credentials, tried in order. Generation and embedding use separate pools.
	GenerateAPIKeys []string
	EmbedAPIKeys    []string

	// Model names
	GenerateModel string
	EmbedModel    string

	// Recommendation thresholds
	Recommendation RecommendationConfig

	// Embedding pipeline knobs
	Embedding EmbeddingConfig

	// Catalog ingestion
	Coursera CourseraConfig
}

// RecommendationConfig controls the threshold-relaxation search.
type RecommendationConfig struct {
	UpperThreshold float64
	LowerThreshold float64
	StepThreshold  float64
	TopK           int
}

// EmbeddingConfig controls the batched embedding pipeline.
type EmbeddingConfig struct {
	BatchSize  int
	MaxWorkers int
	MaxRetries int
	RetryBase  time.Duration
	RetryMax   time.Duration
	OutputDim  int
}

// CourseraConfig controls the external course catalog fetch.
type CourseraConfig struct {
	URI        string
	Limit      int
	MaxRetries int
}

// Load builds a Config from environment variables, applying defaults for
// anything unset. It returns an error only for values that are present but
// unparseable or out of range.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            8000,
		GenerateAPIKeys: splitKeys(os.Getenv("GEN_API_KEYS")),
		EmbedAPIKeys:    splitKeys(os.Getenv("EM_API_KEYS")),
		GenerateModel:   envOr("GEMINI_GENERATE_MODEL", "gemini-1.5-flash"),
		EmbedModel:      envOr("GEMINI_EMBED_MODEL", "text-embedding-004"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		Recommendation: RecommendationConfig{
			UpperThreshold: 0.95,
			LowerThreshold: 0.75,
			StepThreshold:  0.05,
			TopK:           10000,
		},
		Embedding: EmbeddingConfig{
			BatchSize:  32,
			MaxWorkers: 4,
			MaxRetries: 5,
			RetryBase:  2 * time.Second,
			RetryMax:   60 * time.Second,
			OutputDim:  768,
		},
		Coursera: CourseraConfig{
			URI:        os.Getenv("COURSERA_URI"),
			Limit:      100,
			MaxRetries: 3,
		},
	}

	var err error
	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return nil, err
	}
	if cfg.Recommendation.UpperThreshold, err = envFloat("UPPER_THRESHOLD", cfg.Recommendation.UpperThreshold); err != nil {
		return nil, err
	}
	if cfg.Recommendation.LowerThreshold, err = envFloat("LOWER_THRESHOLD", cfg.Recommendation.LowerThreshold); err != nil {
		return nil, err
	}
	if cfg.Recommendation.StepThreshold, err = envFloat("STEP_THRESHOLD", cfg.Recommendation.StepThreshold); err != nil {
		return nil, err
	}
	if cfg.Embedding.BatchSize, err = envInt("EMBED_BATCH_SIZE", cfg.Embedding.BatchSize); err != nil {
		return nil, err
	}
	if cfg.Embedding.MaxWorkers, err = envInt("EMBED_MAX_WORKERS", cfg.Embedding.MaxWorkers); err != nil {
		return nil, err
	}
	if cfg.Embedding.MaxRetries, err = envInt("EMBED_MAX_RETRIES", cfg.Embedding.MaxRetries); err != nil {
		return nil, err
	}
	if cfg.Embedding.RetryBase, err = envDuration("EMBED_RETRY_BASE", cfg.Embedding.RetryBase); err != nil {
		return nil, err
	}
	if cfg.Embedding.RetryMax, err = envDuration("EMBED_RETRY_MAX", cfg.Embedding.RetryMax); err != nil {
		return nil, err
	}
	if cfg.Embedding.OutputDim, err = envInt("EMBED_OUTPUT_DIM", cfg.Embedding.OutputDim); err != nil {
		return nil, err
	}
	if cfg.Coursera.Limit, err = envInt("COURSERA_LIMIT", cfg.Coursera.Limit); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges. Credential lists may be empty here; the
// components that need them fail with a descriptive error at call time.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: PORT out of range: %d", c.Port)
	}
	r := c.Recommendation
	if r.UpperThreshold < r.LowerThreshold {
		return fmt.Errorf("config error: UPPER_THRESHOLD (%.2f) below LOWER_THRESHOLD (%.2f)", r.UpperThreshold, r.LowerThreshold)
	}
	if r.StepThreshold <= 0 {
		return fmt.Errorf("config error: STEP_THRESHOLD must be positive, got %.2f", r.StepThreshold)
	}
	if c.Embedding.BatchSize < 1 {
		return fmt.Errorf("config error: EMBED_BATCH_SIZE must be at least 1, got %d", c.Embedding.BatchSize)
	}
	if c.Embedding.MaxWorkers < 1 {
		return fmt.Errorf("config error: EMBED_MAX_WORKERS must be at least 1, got %d", c.Embedding.MaxWorkers)
	}
	if c.Embedding.MaxRetries < 1 {
		return fmt.Errorf("config error: EMBED_MAX_RETRIES must be at least 1, got %d", c.Embedding.MaxRetries)
	}
	return nil
}

// splitKeys parses a comma-separated credential list, dropping empties.
func splitKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return n, nil
}

func envDuration(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return d, nil
}

func envFloat(name string, def float64) (float64, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return f, nil
}
