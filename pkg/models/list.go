package models

import "time"

// CatalogList is a named group of vocabulary entries imported together
type CatalogList struct {
	ID         string    `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	EntryCount int       `json:"entry_count" db:"entry_count"`
	IsPriority bool      `json:"is_priority" db:"is_priority"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
