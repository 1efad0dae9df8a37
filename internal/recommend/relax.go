package recommend

import (
	"context"
	"log"

	"github.com/Quang-To/Pathwise/internal/embedding"
	"github.com/Quang-To/Pathwise/internal/types"
)

// gatherCandidates runs a relaxed similarity search for every skill and
// returns the candidate courses keyed by the original skill text. Skills
// whose embedding failed, or that find nothing even at the lower bound, map
// to an empty candidate list.
func (e *Engine) gatherCandidates(ctx context.Context, skills []string, vectors []embedding.Vector) map[string][]types.CandidateCourse {
	out := make(map[string][]types.CandidateCourse, len(skills))
	for i, skill := range skills {
		if i >= len(vectors) || len(vectors[i]) == 0 {
			log.Printf("[recommend] skill %q has no embedding, skipping search", skill)
			out[skill] = nil
			continue
		}
		out[skill] = e.relaxedSearch(ctx, skill, vectors[i])
	}
	return out
}

// relaxedSearch probes the index from the upper threshold downward in fixed
// steps until candidates appear or the lower bound is passed. The walk is
// strictly linear so results stay monotonic in the threshold.
func (e *Engine) relaxedSearch(ctx context.Context, skill string, vector embedding.Vector) []types.CandidateCourse {
	for threshold := e.cfg.UpperThreshold; threshold >= e.cfg.LowerThreshold-1e-9; threshold -= e.cfg.StepThreshold {
		candidates, err := e.searcher.Search(ctx, vector, threshold, e.cfg.TopK)
		if err != nil {
			log.Printf("[recommend] search failed for %q at threshold %.2f: %v", skill, threshold, err)
			return nil
		}
		if len(candidates) > 0 {
			return candidates
		}
	}
	log.Printf("[recommend] no courses found for %q down to threshold %.2f", skill, e.cfg.LowerThreshold)
	return nil
}
