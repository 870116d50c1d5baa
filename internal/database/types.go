package database

import (
	"errors"
	"strings"
)

// MaxBatchOps is the ceiling of writes accepted in one atomic batch
const MaxBatchOps = 500

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("not found")
	// ErrBatchTooLarge is returned when a batch exceeds MaxBatchOps
	ErrBatchTooLarge = errors.New("batch exceeds operation limit")
)

// Document paths of the logical store namespace.

func ListPath(listID string) string { return "catalog/lists/" + listID }

func EntryPath(entryID string) string { return "catalog/entries/" + entryID }

func ProgressPath(userID, listID string) string {
	return strings.Join([]string{"users", userID, "progress", listID}, "/")
}

func HistoryPath(userID, attemptID string) string {
	return strings.Join([]string{"users", userID, "history", attemptID}, "/")
}
