package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 0.95, cfg.Recommendation.UpperThreshold)
	assert.Equal(t, 0.75, cfg.Recommendation.LowerThreshold)
	assert.Equal(t, 0.05, cfg.Recommendation.StepThreshold)
	assert.Equal(t, 32, cfg.Embedding.BatchSize)
	assert.Equal(t, 4, cfg.Embedding.MaxWorkers)
	assert.Equal(t, 768, cfg.Embedding.OutputDim)
	assert.Equal(t, "gemini-1.5-flash", cfg.GenerateModel)
	assert.Equal(t, "text-embedding-004", cfg.EmbedModel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("UPPER_THRESHOLD", "0.9")
	t.Setenv("LOWER_THRESHOLD", "0.7")
	t.Setenv("EMBED_BATCH_SIZE", "8")
	t.Setenv("EMBED_RETRY_BASE", "500ms")
	t.Setenv("EMBED_RETRY_MAX", "10s")
	t.Setenv("GEN_API_KEYS", "key-a, key-b,")
	t.Setenv("EM_API_KEYS", "key-c")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 0.9, cfg.Recommendation.UpperThreshold)
	assert.Equal(t, 8, cfg.Embedding.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Embedding.RetryBase)
	assert.Equal(t, 10*time.Second, cfg.Embedding.RetryMax)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.GenerateAPIKeys)
	assert.Equal(t, []string{"key-c"}, cfg.EmbedAPIKeys)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("EMBED_BATCH_SIZE", "not-a-number")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_ThresholdOrdering(t *testing.T) {
	t.Setenv("UPPER_THRESHOLD", "0.5")
	t.Setenv("LOWER_THRESHOLD", "0.8")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPPER_THRESHOLD")
}

func TestValidate_StepMustBePositive(t *testing.T) {
	t.Setenv("STEP_THRESHOLD", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestSplitKeys(t *testing.T) {
	assert.Nil(t, splitKeys(""))
	assert.Equal(t, []string{"a"}, splitKeys("a"))
	assert.Equal(t, []string{"a", "b"}, splitKeys(" a , b , "))
}
