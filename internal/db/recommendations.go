package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetRecommendation fetches the cached recommendation for a user. Returns
// nil (no error) when no cached entry exists.
func (db *DB) GetRecommendation(ctx context.Context, userID string) (*StoredRecommendation, error) {
	var (
		rec          = StoredRecommendation{UserID: userID}
		coursesRaw   []byte
		skillMapRaw  []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT courses, course_skill, computed_at
		 FROM employee_courses WHERE employee_id = $1`,
		userID,
	).Scan(&coursesRaw, &skillMapRaw, &rec.ComputedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recommendation for %s: %w", userID, err)
	}

	if err := json.Unmarshal(coursesRaw, &rec.Courses); err != nil {
		return nil, fmt.Errorf("failed to decode cached courses for %s: %w", userID, err)
	}
	if len(skillMapRaw) > 0 {
		if err := json.Unmarshal(skillMapRaw, &rec.SkillMap); err != nil {
			return nil, fmt.Errorf("failed to decode cached skill map for %s: %w", userID, err)
		}
	}
	return &rec, nil
}

// UpsertRecommendation stores a recommendation result keyed by user id,
// overwriting any prior cached entry.
func (db *DB) UpsertRecommendation(ctx context.Context, userID string, courses []string, skillMap map[string][]string) error {
	coursesJSON, err := json.Marshal(courses)
	if err != nil {
		return fmt.Errorf("failed to marshal courses: %w", err)
	}
	skillMapJSON, err := json.Marshal(skillMap)
	if err != nil {
		return fmt.Errorf("failed to marshal skill map: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO employee_courses (employee_id, courses, course_skill, computed_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (employee_id) DO UPDATE SET courses = $2, course_skill = $3, computed_at = NOW()`,
		userID, coursesJSON, skillMapJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert recommendation for %s: %w", userID, err)
	}
	return nil
}
