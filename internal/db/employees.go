package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetEmployee fetches an employee profile by user id. Returns nil (no error)
// when the employee does not exist.
func (db *DB) GetEmployee(ctx context.Context, userID string) (*Employee, error) {
	var e Employee
	err := db.pool.QueryRow(ctx,
		`SELECT user_id, COALESCE(aspiration, ''), COALESCE(current_skill, ''), COALESCE(skill_gap, '')
		 FROM employees WHERE user_id = $1`,
		userID,
	).Scan(&e.UserID, &e.Aspiration, &e.CurrentSkill, &e.SkillGap)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get employee %s: %w", userID, err)
	}
	return &e, nil
}

// UpdateAspiration sets the employee's target role. Returns pgx.ErrNoRows
// semantics via a boolean: false when no such employee exists.
func (db *DB) UpdateAspiration(ctx context.Context, userID, aspiration string) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE employees SET aspiration = $1 WHERE user_id = $2`,
		aspiration, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update aspiration for %s: %w", userID, err)
	}
	return tag.RowsAffected() > 0, nil
}
