package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quang-To/Pathwise/internal/config"
	"github.com/Quang-To/Pathwise/internal/llm"
)

// fakeEmbedder is a scriptable llm.Embedder. Each input text "x" embeds to
// the vector [len(x)] so tests can verify ordering.
type fakeEmbedder struct {
	mu       sync.Mutex
	calls    int
	delays   map[int]time.Duration // call number -> artificial delay
	err      error                 // returned on every call when set
	errUntil int                   // fail the first errUntil calls, then succeed
	empty    bool                  // return empty vectors instead of real ones
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	delay := f.delays[call]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.errUntil > 0 && call < f.errUntil {
		return nil, errors.New("googleapi: Error 429: quota exceeded")
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.empty {
			out[i] = nil
		} else {
			out[i] = []float32{float32(len(t))}
		}
	}
	return out, nil
}

func (f *fakeEmbedder) Close() error { return nil }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig() config.EmbeddingConfig {
	return config.EmbeddingConfig{
		BatchSize:  2,
		MaxWorkers: 4,
		MaxRetries: 3,
		RetryBase:  time.Millisecond,
		RetryMax:   5 * time.Millisecond,
		OutputDim:  768,
	}
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestEmbed_OrderPreservedAcrossParallelBatches(t *testing.T) {
	// First batch is the slowest, so completion order differs from input order.
	backend := &fakeEmbedder{delays: map[int]time.Duration{0: 50 * time.Millisecond}}
	pool := NewPool([]llm.Embedder{backend}, testConfig())
	pool.sleep = noSleep

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := pool.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, text := range texts {
		require.Len(t, vectors[i], 1, "vector %d", i)
		assert.Equal(t, float32(len(text)), vectors[i][0], "vector %d out of order", i)
	}
}

func TestEmbed_QuotaErrorsDegradeToEmptyVectors(t *testing.T) {
	backend := &fakeEmbedder{err: errors.New("429 rate limit")}
	cfg := testConfig()
	pool := NewPool([]llm.Embedder{backend}, cfg)
	pool.sleep = noSleep

	texts := []string{"go", "sql", "python"}
	vectors, err := pool.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, v := range vectors {
		assert.Empty(t, v, "vector %d should be empty", i)
	}

	// 3 texts with batch size 2 is two batches, each retried MaxRetries times.
	assert.Equal(t, 2*cfg.MaxRetries, backend.callCount())
}

func TestEmbed_NonRetryableErrorAbortsBatchImmediately(t *testing.T) {
	backend := &fakeEmbedder{err: errors.New("invalid argument")}
	pool := NewPool([]llm.Embedder{backend}, testConfig())
	pool.sleep = noSleep

	vectors, err := pool.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Empty(t, vectors[0])
	assert.Empty(t, vectors[1])
	assert.Equal(t, 1, backend.callCount(), "non-retryable errors must not be retried")
}

func TestEmbed_RetryThenSucceed(t *testing.T) {
	backend := &fakeEmbedder{errUntil: 2}
	pool := NewPool([]llm.Embedder{backend}, testConfig())
	pool.sleep = noSleep

	vectors, err := pool.Embed(context.Background(), []string{"ab"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, Vector{2}, vectors[0])
	assert.Equal(t, 3, backend.callCount())
}

func TestEmbed_RoundRobinAcrossClients(t *testing.T) {
	first := &fakeEmbedder{}
	second := &fakeEmbedder{}
	pool := NewPool([]llm.Embedder{first, second}, testConfig())
	pool.sleep = noSleep

	// 5 texts, batch size 2: batches 0 and 2 go to first, batch 1 to second.
	_, err := pool.Embed(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Equal(t, 2, first.callCount())
	assert.Equal(t, 1, second.callCount())
}

func TestEmbed_FallbackClientUsedWhenPrimaryEmpty(t *testing.T) {
	primary := &fakeEmbedder{empty: true}
	fallback := &fakeEmbedder{}
	pool := NewPool([]llm.Embedder{primary}, testConfig()).WithFallback(fallback)
	pool.sleep = noSleep

	vectors, err := pool.Embed(context.Background(), []string{"go"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, Vector{2}, vectors[0])
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, fallback.callCount())
}

func TestEmbed_FallbackNotConsultedWhenPrimarySucceeds(t *testing.T) {
	primary := &fakeEmbedder{}
	fallback := &fakeEmbedder{}
	pool := NewPool([]llm.Embedder{primary}, testConfig()).WithFallback(fallback)
	pool.sleep = noSleep

	_, err := pool.Embed(context.Background(), []string{"go"})
	require.NoError(t, err)
	assert.Equal(t, 0, fallback.callCount())
}

func TestEmbed_NoInput(t *testing.T) {
	pool := NewPool([]llm.Embedder{&fakeEmbedder{}}, testConfig())
	vectors, err := pool.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbed_NoClients(t *testing.T) {
	pool := NewPool(nil, testConfig())
	vectors, err := pool.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Empty(t, vectors[0])
}

func TestChunk(t *testing.T) {
	batches := chunk([]string{"a", "b", "c", "d", "e"}, 2)
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"a", "b"}, batches[0])
	assert.Equal(t, []string{"e"}, batches[2])
}

func TestBackoff_CappedAtRetryMax(t *testing.T) {
	pool := NewPool(nil, testConfig())
	for attempt := 0; attempt < 10; attempt++ {
		wait := pool.backoff(attempt)
		assert.LessOrEqual(t, wait, testConfig().RetryMax, fmt.Sprintf("attempt %d", attempt))
	}
}
