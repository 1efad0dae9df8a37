package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetUserByUsername fetches an account by username for login. Returns nil
// when the username is unknown.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := db.pool.QueryRow(ctx,
		`SELECT user_id, username, COALESCE(full_name, ''), COALESCE(email, ''), password_hash, is_active
		 FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.PasswordHash, &u.IsActive)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user %s: %w", username, err)
	}
	return &u, nil
}

// GetUserRole resolves the role name assigned to a user through the
// user_roles join table. Returns "" when no role is assigned.
func (db *DB) GetUserRole(ctx context.Context, userID string) (string, error) {
	var role string
	err := db.pool.QueryRow(ctx,
		`SELECT r.role_name
		 FROM user_roles ur
		 JOIN roles r ON r.role_id = ur.role_id
		 WHERE ur.user_id = $1`,
		userID,
	).Scan(&role)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to get role for user %s: %w", userID, err)
	}
	return role, nil
}
