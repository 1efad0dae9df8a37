// Package vectorindex runs cosine similarity searches over the course
// embedding table.
package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/Quang-To/Pathwise/internal/types"
)

// Index queries course embeddings stored in Postgres with pgvector.
type Index struct {
	pool *pgxpool.Pool
}

// New creates an Index over an existing connection pool.
func New(pool *pgxpool.Pool) *Index {
	return &Index{pool: pool}
}

// Search returns the courses most similar to vector, best first, keeping
// only hits with similarity at or above threshold. Similarity is cosine,
// rounded to 4 decimal places for reproducibility.
func (ix *Index) Search(ctx context.Context, vector []float32, threshold float64, topK int) ([]types.CandidateCourse, error) {
	if len(vector) == 0 {
		return nil, nil
	}

	rows, err := ix.pool.Query(ctx,
		`SELECT course_id, name, COALESCE(description, ''), skills::text, COALESCE(level, ''),
		        COALESCE(feedback::text, '[]'), 1 - (embedding <=> $1) AS similarity
		 FROM course_embeddings
		 WHERE 1 - (embedding <=> $1) >= $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		pgvector.NewVector(vector), threshold, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search course embeddings: %w", err)
	}
	defer rows.Close()

	var candidates []types.CandidateCourse
	for rows.Next() {
		var (
			c         types.CandidateCourse
			skillsRaw string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &skillsRaw, &c.Level, &c.Feedback, &c.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search hit: %w", err)
		}
		c.Skills = DecodeSkills(skillsRaw)
		c.Similarity = roundSimilarity(c.Similarity)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search hits: %w", err)
	}
	return candidates, nil
}

// DecodeSkills parses a stored skills payload. Catalog ingestion has written
// skills both as a real JSON list and as a string-encoded list over time;
// both forms decode, and malformed entries are skipped rather than failing
// the candidate.
func DecodeSkills(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	// Real JSON list.
	var skills []string
	if err := json.Unmarshal([]byte(raw), &skills); err == nil {
		return trimSkills(skills)
	}

	// JSON string wrapping an encoded list, e.g. "\"['a', 'b']\"".
	var wrapped string
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil {
		raw = wrapped
	}

	// String-encoded list: ['a', 'b'] or ["a", "b"].
	if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		inner := raw[1 : len(raw)-1]
		var out []string
		for _, part := range strings.Split(inner, ",") {
			if skill := strings.Trim(strings.TrimSpace(part), `'" `); skill != "" {
				out = append(out, skill)
			}
		}
		return out
	}

	return nil
}

func trimSkills(skills []string) []string {
	out := skills[:0]
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func roundSimilarity(s float64) float64 {
	return math.Round(s*10000) / 10000
}
