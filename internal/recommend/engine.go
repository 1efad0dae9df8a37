// Package recommend orchestrates the skill-gap recommendation pipeline:
// cache check, skill synthesis, gap embedding, threshold-relaxed candidate
// search, minimum-cover optimization and persistence.
package recommend

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/Quang-To/Pathwise/internal/config"
	"github.com/Quang-To/Pathwise/internal/db"
	"github.com/Quang-To/Pathwise/internal/embedding"
	"github.com/Quang-To/Pathwise/internal/setcover"
	"github.com/Quang-To/Pathwise/internal/types"
)

// Store is the persistence surface the engine needs: employee profiles and
// the per-user recommendation cache.
type Store interface {
	GetEmployee(ctx context.Context, userID string) (*db.Employee, error)
	GetRecommendation(ctx context.Context, userID string) (*db.StoredRecommendation, error)
	UpsertRecommendation(ctx context.Context, userID string, courses []string, skillMap map[string][]string) error
}

// SkillMapper produces the missing-skill list for a role transition.
type SkillMapper interface {
	MapSkills(ctx context.Context, currentRole, targetRole string, existingSkills, knownMissing []string) []string
}

// GapEmbedder vectorizes skill texts, one vector per input, empty on failure.
type GapEmbedder interface {
	Embed(ctx context.Context, texts []string) ([]embedding.Vector, error)
}

// Searcher runs a similarity query against the course index.
type Searcher interface {
	Search(ctx context.Context, vector []float32, threshold float64, topK int) ([]types.CandidateCourse, error)
}

// Engine is the recommendation orchestrator.
//
// Concurrent recomputation for the same user is not serialized here: the
// cache check and the final upsert are separate statements, matching the
// upstream behavior. Callers that need serialization hold their own
// per-user lock.
type Engine struct {
	store    Store
	mapper   SkillMapper
	embedder GapEmbedder
	searcher Searcher
	solver   setcover.Solver
	cfg      config.RecommendationConfig
}

// NewEngine wires the pipeline components together.
func NewEngine(store Store, mapper SkillMapper, embedder GapEmbedder, searcher Searcher, solver setcover.Solver, cfg config.RecommendationConfig) *Engine {
	return &Engine{
		store:    store,
		mapper:   mapper,
		embedder: embedder,
		searcher: searcher,
		solver:   solver,
		cfg:      cfg,
	}
}

// Recommend returns the minimal course set closing the user's skill gap.
// With forceUpdate false a fresh cached result is returned verbatim with no
// service calls; with forceUpdate true the full pipeline runs and the cache
// is overwritten. On internal failure the returned recommendation is empty
// (never nil) and the error describes the failure for the transport layer.
func (e *Engine) Recommend(ctx context.Context, userID string, forceUpdate bool) (*types.CourseRecommendation, error) {
	empty := &types.CourseRecommendation{Courses: []string{}}

	if !forceUpdate {
		cached, err := e.store.GetRecommendation(ctx, userID)
		if err != nil {
			log.Printf("[recommend] cache read failed for %s: %v", userID, err)
		} else if cached != nil {
			return &types.CourseRecommendation{Courses: cached.Courses}, nil
		}
	}

	profile := e.loadProfile(ctx, userID)

	skills := e.mapper.MapSkills(ctx, profile.CurrentRole, profile.TargetRole, profile.ExistingSkills, profile.SkillGaps)
	if len(skills) == 0 {
		log.Printf("[recommend] no skill gaps synthesized for %s", userID)
		return empty, nil
	}

	vectors, err := e.embedder.Embed(ctx, embeddingTexts(skills, profile.TargetRole))
	if err != nil {
		return empty, fmt.Errorf("failed to embed skill gaps for %s: %w", userID, err)
	}

	skillToCandidates := e.gatherCandidates(ctx, skills, vectors)
	selection := e.solver.Solve(skillToCandidates)
	courseNames := selectedNames(selection, skillToCandidates)

	if err := e.store.UpsertRecommendation(ctx, userID, courseNames, selection.SkillToCourseMap); err != nil {
		return &types.CourseRecommendation{Courses: courseNames}, fmt.Errorf("failed to persist recommendation for %s: %w", userID, err)
	}

	return &types.CourseRecommendation{Courses: courseNames}, nil
}

// SkillsMapping returns the last computed skill-to-course map without
// recomputation. An empty map is returned when nothing is cached.
func (e *Engine) SkillsMapping(ctx context.Context, userID string) (map[string][]string, error) {
	cached, err := e.store.GetRecommendation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read skill mapping for %s: %w", userID, err)
	}
	if cached == nil || cached.SkillMap == nil {
		return map[string][]string{}, nil
	}
	return cached.SkillMap, nil
}

// loadProfile reads and parses the employee profile, defaulting every field
// to empty rather than failing on missing data.
func (e *Engine) loadProfile(ctx context.Context, userID string) Profile {
	employee, err := e.store.GetEmployee(ctx, userID)
	if err != nil {
		log.Printf("[recommend] profile read failed for %s: %v", userID, err)
		return Profile{UserID: userID}
	}
	if employee == nil {
		log.Printf("[recommend] no profile found for user %s", userID)
		return Profile{UserID: userID}
	}
	return ParseProfile(employee)
}

// embeddingTexts normalizes skills for embedding. With a known target role
// the skill is framed as a "Skills:" statement, matching the stored course
// embeddings.
func embeddingTexts(skills []string, targetRole string) []string {
	texts := make([]string, 0, len(skills))
	for _, skill := range skills {
		s := strings.ToLower(strings.TrimSpace(skill))
		if targetRole != "" {
			s = "Skills: " + s
		}
		texts = append(texts, s)
	}
	return texts
}

// selectedNames resolves the selection's course ids to names in id order.
func selectedNames(selection types.CourseSelection, skillToCandidates map[string][]types.CandidateCourse) []string {
	nameByID := make(map[string]string)
	for _, candidates := range skillToCandidates {
		for _, c := range candidates {
			nameByID[c.ID] = c.Name
		}
	}

	ids := append([]string(nil), selection.SelectedCourseIDs...)
	sort.Strings(ids)
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := nameByID[id]; ok {
			names = append(names, name)
		}
	}
	return names
}
