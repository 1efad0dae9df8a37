// Package embedding provides a credential-pooled, batched embedding pipeline.
//
// Input texts are chunked into batches, batches are spread round-robin over a
// pool of backend clients (one per credential) and executed by a bounded
// worker pool. Rate-limited calls are retried with exponential backoff and
// jitter; a batch that exhausts its retries degrades to empty vectors instead
// of failing the whole call. Results are reassembled in input order.
package embedding

import (
	"context"
	"log"
	"math"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Quang-To/Pathwise/internal/config"
	"github.com/Quang-To/Pathwise/internal/llm"
)

// Vector is a fixed-dimension embedding. A zero-length Vector means the
// embedding failed for that input.
type Vector []float32

// Pool distributes embedding batches over multiple backend clients.
type Pool struct {
	clients  []llm.Embedder
	fallback llm.Embedder // optional; tried when a batch comes back all-empty
	cfg      config.EmbeddingConfig

	// sleep is swapped out in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPool creates a pool over the given clients. Batch i is assigned to
// client i % len(clients).
func NewPool(clients []llm.Embedder, cfg config.EmbeddingConfig) *Pool {
	return &Pool{
		clients: clients,
		cfg:     cfg,
		sleep:   sleepCtx,
	}
}

// WithFallback sets a secondary client consulted when a batch returns only
// empty vectors from its primary. Used by the gap-embedding step.
func (p *Pool) WithFallback(client llm.Embedder) *Pool {
	p.fallback = client
	return p
}

// Embed returns one vector per input text, in input order, regardless of the
// completion order of the underlying batches. It never fails the whole call
// on backend errors: failed batches contribute empty vectors.
func (p *Pool) Embed(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(p.clients) == 0 {
		log.Printf("[embedding] no clients configured, returning empty vectors")
		return emptyVectors(len(texts)), nil
	}

	batches := chunk(texts, p.cfg.BatchSize)
	results := make([][]Vector, len(batches))

	var g errgroup.Group
	g.SetLimit(p.cfg.MaxWorkers)
	for i, batch := range batches {
		client := p.clients[i%len(p.clients)]
		g.Go(func() error {
			vectors := p.embedBatch(ctx, client, batch)
			if p.fallback != nil && allEmpty(vectors) {
				log.Printf("[embedding] batch %d empty from primary, using fallback client", i)
				vectors = p.embedBatch(ctx, p.fallback, batch)
			}
			results[i] = vectors
			return nil
		})
	}
	// Workers never return errors; Wait only synchronizes.
	_ = g.Wait()

	// Reassemble by batch index, not completion order.
	out := make([]Vector, 0, len(texts))
	for _, vectors := range results {
		out = append(out, vectors...)
	}
	return out, nil
}

// embedBatch runs one batch against one client under the retry policy.
func (p *Pool) embedBatch(ctx context.Context, client llm.Embedder, texts []string) []Vector {
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		// Spread requests out to avoid bursts against the backend.
		if err := p.sleep(ctx, preJitter()); err != nil {
			return emptyVectors(len(texts))
		}

		raw, err := client.EmbedBatch(ctx, texts)
		if err == nil {
			vectors := make([]Vector, len(texts))
			for i := range texts {
				if i < len(raw) {
					vectors[i] = Vector(raw[i])
				}
			}
			return vectors
		}

		if !llm.IsQuotaError(err) {
			log.Printf("[embedding] non-retryable error: %v", err)
			break
		}

		wait := p.backoff(attempt)
		log.Printf("[embedding] rate limited (attempt %d/%d), retrying in %s", attempt+1, p.cfg.MaxRetries, wait)
		if err := p.sleep(ctx, wait); err != nil {
			break
		}
	}
	return emptyVectors(len(texts))
}

// backoff computes the exponential delay with multiplicative jitter, capped
// at RetryMax.
func (p *Pool) backoff(attempt int) time.Duration {
	base := float64(p.cfg.RetryBase) * math.Pow(2, float64(attempt))
	jittered := base * (0.8 + 0.4*rand.Float64())
	if capped := float64(p.cfg.RetryMax); jittered > capped {
		jittered = capped
	}
	return time.Duration(jittered)
}

// preJitter is the small random delay inserted before every backend call.
func preJitter() time.Duration {
	return time.Duration(300+rand.Intn(300)) * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func chunk(texts []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var batches [][]string
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, texts[start:end])
	}
	return batches
}

func emptyVectors(n int) []Vector {
	vectors := make([]Vector, n)
	for i := range vectors {
		vectors[i] = Vector{}
	}
	return vectors
}

func allEmpty(vectors []Vector) bool {
	for _, v := range vectors {
		if len(v) > 0 {
			return false
		}
	}
	return true
}
