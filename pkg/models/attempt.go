package models

import "time"

// QuizMode is the only attempt mode produced today
const QuizMode = "quiz"

// AttemptRecord is the immutable outcome of one completed quiz session
type AttemptRecord struct {
	ID               string    `json:"id" db:"id"`
	UserID           string    `json:"user_id" db:"user_id"`
	ListID           string    `json:"list_id" db:"list_id"`
	ListTitle        string    `json:"list_title" db:"list_title"`
	Mode             string    `json:"mode" db:"mode"`
	CorrectCount     int       `json:"correct_count" db:"correct_count"`
	TotalCount       int       `json:"total_count" db:"total_count"`
	MasteredEntryIDs []string  `json:"mastered_entry_ids" db:"-"`
	CompletedAt      time.Time `json:"completed_at" db:"completed_at"`
}
