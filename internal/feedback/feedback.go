// Package feedback appends user feedback to catalog courses. A user may
// only comment on courses that appear in their own recommendation.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/Quang-To/Pathwise/internal/db"
	"github.com/Quang-To/Pathwise/internal/types"
)

// ErrNotRecommended is returned when the target course is not part of the
// caller's recommendation.
var ErrNotRecommended = errors.New("course is not in the user's recommendation")

// ErrCourseNotFound is returned when the course id resolves to nothing.
var ErrCourseNotFound = errors.New("course not found")

// Store is the persistence surface feedback needs.
type Store interface {
	GetRecommendation(ctx context.Context, userID string) (*db.StoredRecommendation, error)
	GetCourse(ctx context.Context, id string) (*db.Course, error)
	GetCourseIDsByName(ctx context.Context, names []string) ([]string, error)
	UpdateCourseFeedback(ctx context.Context, courseID, feedbackJSON string) error
}

// Service records course feedback.
type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// Submit appends one feedback entry to the course's feedback list after
// verifying the course belongs to the user's recommended set.
func (s *Service) Submit(ctx context.Context, userID, courseID, text string) error {
	allowed, err := s.permitted(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrNotRecommended
	}

	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return fmt.Errorf("failed to load course %s: %w", courseID, err)
	}
	if course == nil {
		return ErrCourseNotFound
	}

	entries := decodeEntries(course.Feedback)
	entries = append(entries, types.FeedbackEntry{UserID: userID, Feedback: text})

	encoded, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode feedback for course %s: %w", courseID, err)
	}
	return s.store.UpdateCourseFeedback(ctx, courseID, string(encoded))
}

// permitted reports whether courseID is among the user's recommended
// courses, resolved by name against the catalog.
func (s *Service) permitted(ctx context.Context, userID, courseID string) (bool, error) {
	cached, err := s.store.GetRecommendation(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load recommendation for %s: %w", userID, err)
	}
	if cached == nil || len(cached.Courses) == 0 {
		return false, nil
	}

	ids, err := s.store.GetCourseIDsByName(ctx, cached.Courses)
	if err != nil {
		return false, fmt.Errorf("failed to resolve recommended course ids: %w", err)
	}
	for _, id := range ids {
		if id == courseID {
			return true, nil
		}
	}
	return false, nil
}

// decodeEntries parses the stored feedback blob, tolerating empty or
// malformed data.
func decodeEntries(raw string) []types.FeedbackEntry {
	if raw == "" || raw == "[]" {
		return nil
	}
	var entries []types.FeedbackEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		log.Printf("[feedback] discarding malformed feedback blob: %v", err)
		return nil
	}
	return entries
}
