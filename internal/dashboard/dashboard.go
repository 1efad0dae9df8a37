// Package dashboard assembles the per-user learning view: the stated
// career goals plus the most recent course recommendation.
package dashboard

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Quang-To/Pathwise/internal/db"
	"github.com/Quang-To/Pathwise/internal/types"
)

// Store is the read/write surface the dashboard needs.
type Store interface {
	GetEmployee(ctx context.Context, userID string) (*db.Employee, error)
	GetRecommendation(ctx context.Context, userID string) (*db.StoredRecommendation, error)
	GetCourseIDsByName(ctx context.Context, names []string) ([]string, error)
	UpdateAspiration(ctx context.Context, userID, aspiration string) (bool, error)
}

// Recommender computes a recommendation when no cached one exists.
type Recommender interface {
	Recommend(ctx context.Context, userID string, forceUpdate bool) (*types.CourseRecommendation, error)
}

// Service serves learning goals and dashboards.
type Service struct {
	store       Store
	recommender Recommender
}

func New(store Store, recommender Recommender) *Service {
	return &Service{store: store, recommender: recommender}
}

// Dashboard returns the user's goals, recommended course names and their
// resolved course ids. A recommendation-cache miss computes a fresh
// recommendation instead of returning an empty section; a missing profile
// row yields empty sections rather than an error.
func (s *Service) Dashboard(ctx context.Context, userID string) (*types.LearningDashboard, error) {
	out := &types.LearningDashboard{
		UserID:             userID,
		LearningGoals:      []string{},
		RecommendedCourses: []string{},
		CourseIDs:          []string{},
	}

	employee, err := s.store.GetEmployee(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for %s: %w", userID, err)
	}
	if employee != nil {
		out.LearningGoals = splitGoals(employee.Aspiration)
	}

	courses, err := s.recommendedCourses(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return out, nil
	}
	out.RecommendedCourses = courses

	ids, err := s.store.GetCourseIDsByName(ctx, courses)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve course ids for %s: %w", userID, err)
	}
	out.CourseIDs = ids
	return out, nil
}

// recommendedCourses serves the cached recommendation, computing a fresh one
// on a miss. Recompute failures degrade to an empty section so the goals
// part of the dashboard still renders.
func (s *Service) recommendedCourses(ctx context.Context, userID string) ([]string, error) {
	cached, err := s.store.GetRecommendation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recommendation for %s: %w", userID, err)
	}
	if cached != nil && len(cached.Courses) > 0 {
		return cached.Courses, nil
	}

	rec, err := s.recommender.Recommend(ctx, userID, false)
	if err != nil {
		log.Printf("[dashboard] failed to compute recommendation for %s: %v", userID, err)
	}
	if rec == nil {
		return nil, nil
	}
	return rec.Courses, nil
}

// SetGoal updates the user's career aspiration. The false return means no
// profile row existed to update.
func (s *Service) SetGoal(ctx context.Context, userID, goal string) (bool, error) {
	updated, err := s.store.UpdateAspiration(ctx, userID, goal)
	if err != nil {
		return false, fmt.Errorf("failed to set goal for %s: %w", userID, err)
	}
	return updated, nil
}

// splitGoals breaks a comma-separated aspiration into individual goals.
func splitGoals(aspiration string) []string {
	parts := strings.FieldsFunc(aspiration, func(r rune) bool { return r == ',' })
	goals := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			goals = append(goals, p)
		}
	}
	return goals
}
