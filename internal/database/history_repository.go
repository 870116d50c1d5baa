package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/example/wordace/pkg/models"
)

// HistoryRepository handles database operations for attempt history
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new repository instance
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// attemptRow is the stored form of an attempt; mastered ids are kept as JSON
type attemptRow struct {
	models.AttemptRecord
	MasteredJSON string `db:"mastered_entry_ids"`
}

// Append stores a new attempt under a fresh auto id and returns that id.
// Records are never updated after they are written.
func (r *HistoryRepository) Append(ctx context.Context, userID string, record models.AttemptRecord) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate attempt id: %w", err)
	}
	if record.CompletedAt.IsZero() {
		record.CompletedAt = time.Now()
	}
	if record.Mode == "" {
		record.Mode = models.QuizMode
	}
	mastered := record.MasteredEntryIDs
	if mastered == nil {
		mastered = []string{}
	}
	masteredJSON, err := json.Marshal(mastered)
	if err != nil {
		return "", fmt.Errorf("failed to encode mastered entries: %w", err)
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO attempt_history (
			id, user_id, list_id, list_title, mode,
			correct_count, total_count, mastered_entry_ids, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		id,
		userID,
		record.ListID,
		record.ListTitle,
		record.Mode,
		record.CorrectCount,
		record.TotalCount,
		string(masteredJSON),
		record.CompletedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to append %s: %w", HistoryPath(userID, id), err)
	}
	return id, nil
}

// ByUser returns the user's attempts, newest first. A limit of zero or less
// returns everything.
func (r *HistoryRepository) ByUser(ctx context.Context, userID string, limit int) ([]models.AttemptRecord, error) {
	query := `
		SELECT id, user_id, list_id, list_title, mode,
		       correct_count, total_count, mastered_entry_ids, completed_at
		FROM attempt_history
		WHERE user_id = ?
		ORDER BY completed_at DESC, id
	`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []attemptRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get attempt history: %w", err)
	}

	records := make([]models.AttemptRecord, 0, len(rows))
	for _, row := range rows {
		record := row.AttemptRecord
		if err := json.Unmarshal([]byte(row.MasteredJSON), &record.MasteredEntryIDs); err != nil {
			return nil, fmt.Errorf("failed to decode mastered entries of %s: %w", HistoryPath(userID, record.ID), err)
		}
		records = append(records, record)
	}
	return records, nil
}
