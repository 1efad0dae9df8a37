package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// UpsertCourse inserts or updates a catalog entry keyed by course id.
func (db *DB) UpsertCourse(ctx context.Context, course *Course) error {
	skillsJSON, err := json.Marshal(course.Skills)
	if err != nil {
		return fmt.Errorf("failed to marshal skills for course %s: %w", course.ID, err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO courses (id, name, description, slug, language, level, skills, feedback, uri)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE(NULLIF($8, ''), '[]'), $9)
		 ON CONFLICT (id) DO UPDATE SET
		   name = $2, description = $3, slug = $4, language = $5, level = $6, skills = $7, uri = $9`,
		course.ID, course.Name, course.Description, course.Slug, course.Language,
		course.Level, skillsJSON, course.Feedback, course.URI,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert course %s: %w", course.ID, err)
	}
	return nil
}

// GetCourse fetches one catalog entry. Returns nil when absent.
func (db *DB) GetCourse(ctx context.Context, id string) (*Course, error) {
	var (
		c         Course
		skillsRaw []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(description, ''), COALESCE(slug, ''), COALESCE(language, ''),
		        COALESCE(level, ''), skills, COALESCE(feedback::text, '[]'), COALESCE(uri, '')
		 FROM courses WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.Slug, &c.Language, &c.Level, &skillsRaw, &c.Feedback, &c.URI)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get course %s: %w", id, err)
	}
	if len(skillsRaw) > 0 {
		// Malformed skills data is tolerated; the entry just has no skills.
		_ = json.Unmarshal(skillsRaw, &c.Skills)
	}
	return &c, nil
}

// GetCourseIDsByName resolves course names to catalog ids, preserving input
// order. Unknown names resolve to the empty string.
func (db *DB) GetCourseIDsByName(ctx context.Context, names []string) ([]string, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, name FROM courses WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, fmt.Errorf("failed to query course ids: %w", err)
	}
	defer rows.Close()

	nameToID := make(map[string]string, len(names))
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan course row: %w", err)
		}
		nameToID[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read course rows: %w", err)
	}

	ids := make([]string, len(names))
	for i, name := range names {
		ids[i] = nameToID[name]
	}
	return ids, nil
}

// UpdateCourseFeedback replaces the JSON feedback blob of a course.
func (db *DB) UpdateCourseFeedback(ctx context.Context, courseID, feedbackJSON string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE courses SET feedback = $1 WHERE id = $2`,
		feedbackJSON, courseID,
	)
	if err != nil {
		return fmt.Errorf("failed to update feedback for course %s: %w", courseID, err)
	}
	return nil
}

// UpsertCourseEmbedding writes a course's skill embedding together with the
// payload fields the similarity search returns.
func (db *DB) UpsertCourseEmbedding(ctx context.Context, course *Course, vector []float32) error {
	skillsJSON, err := json.Marshal(course.Skills)
	if err != nil {
		return fmt.Errorf("failed to marshal skills for course %s: %w", course.ID, err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO course_embeddings (course_id, name, description, skills, level, feedback, embedding)
		 VALUES ($1, $2, $3, $4, $5, COALESCE(NULLIF($6, ''), '[]'), $7)
		 ON CONFLICT (course_id) DO UPDATE SET
		   name = $2, description = $3, skills = $4, level = $5, embedding = $7`,
		course.ID, course.Name, course.Description, skillsJSON, course.Level,
		course.Feedback, pgvector.NewVector(vector),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding for course %s: %w", course.ID, err)
	}
	return nil
}
