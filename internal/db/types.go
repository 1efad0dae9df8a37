package db

import (
	"time"

	"github.com/google/uuid"
)

// Employee is a row of the employee profile table. The free-text columns
// mirror the upstream HR feed: CurrentSkill holds "role, skill, skill, ..."
// and SkillGap holds a comma-separated list.
type Employee struct {
	UserID       string
	Aspiration   string
	CurrentSkill string
	SkillGap     string
}

// Course is a catalog entry. Skills and Feedback are stored as JSON.
type Course struct {
	ID          string
	Name        string
	Description string
	Slug        string
	Language    string
	Level       string
	Skills      []string
	Feedback    string
	URI         string
}

// StoredRecommendation is the cached result of a recommendation run.
type StoredRecommendation struct {
	UserID     string
	Courses    []string
	SkillMap   map[string][]string
	ComputedAt time.Time
}

// User is an account in the access-control tables.
type User struct {
	ID           uuid.UUID
	Username     string
	FullName     string
	Email        string
	PasswordHash string
	IsActive     bool
}
