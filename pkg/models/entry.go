package models

// CatalogEntry is one term/definition pair at a position within its list
type CatalogEntry struct {
	ID             string `json:"id" db:"id"`
	ListID         string `json:"list_id" db:"list_id"`
	SequenceNumber int    `json:"sequence_number" db:"sequence_number"`
	Term           string `json:"term" db:"term"`
	Definition     string `json:"definition" db:"definition"`
	SearchKey      string `json:"search_key" db:"search_key"`
}
