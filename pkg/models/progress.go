package models

import "time"

// UserProgress tracks which entries of a list a user has mastered.
// LearnedEntryIDs only ever grows.
type UserProgress struct {
	UserID          string    `json:"user_id" db:"user_id"`
	ListID          string    `json:"list_id" db:"list_id"`
	LearnedEntryIDs []string  `json:"learned_entry_ids" db:"-"`
	LastStudiedAt   time.Time `json:"last_studied_at" db:"last_studied_at"`
}

// LearnerSummary totals mastered entries for one user across all lists
type LearnerSummary struct {
	UserID        string    `json:"user_id" db:"user_id"`
	LearnedCount  int       `json:"learned_count" db:"learned_count"`
	ListCount     int       `json:"list_count" db:"list_count"`
	LastStudiedAt time.Time `json:"last_studied_at" db:"last_studied_at"`
}
