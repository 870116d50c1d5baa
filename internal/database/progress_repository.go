package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/example/wordace/pkg/models"
)

// ProgressRepository handles database operations for user progress
type ProgressRepository struct {
	db *DB
}

// NewProgressRepository creates a new repository instance
func NewProgressRepository(db *DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// MergeLearned records a study session for (userID, listID): the last studied
// time is overwritten and ids are added to the learned set. Ids already present
// are left untouched, so repeating the call changes nothing but the timestamp.
func (r *ProgressRepository) MergeLearned(ctx context.Context, userID, listID string, ids []string, at time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	at = at.UTC()
	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO user_progress (user_id, list_id, last_studied_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, list_id) DO UPDATE SET last_studied_at = excluded.last_studied_at
	`), userID, listID, at)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", ProgressPath(userID, listID), err)
	}

	if len(ids) > 0 {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
			INSERT INTO learned_entries (user_id, list_id, entry_id, learned_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id, list_id, entry_id) DO NOTHING
		`))
		if err != nil {
			return fmt.Errorf("failed to prepare learned entry write: %w", err)
		}
		defer stmt.Close()

		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, userID, listID, id, at); err != nil {
				return fmt.Errorf("failed to add %s to %s: %w", id, ProgressPath(userID, listID), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get returns progress for a specific user and list
func (r *ProgressRepository) Get(ctx context.Context, userID, listID string) (*models.UserProgress, error) {
	var progress models.UserProgress
	err := r.db.GetContext(ctx, &progress, r.db.Rebind(`
		SELECT user_id, list_id, last_studied_at
		FROM user_progress
		WHERE user_id = ? AND list_id = ?
	`), userID, listID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", ProgressPath(userID, listID), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}

	ids, err := r.learnedIDs(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	progress.LearnedEntryIDs = ids
	return &progress, nil
}

// ByUser returns progress for every list the user has studied, most recent first
func (r *ProgressRepository) ByUser(ctx context.Context, userID string) ([]models.UserProgress, error) {
	var progress []models.UserProgress
	err := r.db.SelectContext(ctx, &progress, r.db.Rebind(`
		SELECT user_id, list_id, last_studied_at
		FROM user_progress
		WHERE user_id = ?
		ORDER BY last_studied_at DESC, list_id
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}

	var rows []struct {
		ListID  string `db:"list_id"`
		EntryID string `db:"entry_id"`
	}
	err = r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT list_id, entry_id
		FROM learned_entries
		WHERE user_id = ?
		ORDER BY list_id, learned_at, entry_id
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get learned entries: %w", err)
	}

	byList := make(map[string][]string)
	for _, row := range rows {
		byList[row.ListID] = append(byList[row.ListID], row.EntryID)
	}
	for i := range progress {
		progress[i].LearnedEntryIDs = byList[progress[i].ListID]
		if progress[i].LearnedEntryIDs == nil {
			progress[i].LearnedEntryIDs = []string{}
		}
	}
	return progress, nil
}

// Learners returns mastery totals for every user with progress, most recently
// active first
func (r *ProgressRepository) Learners(ctx context.Context) ([]models.LearnerSummary, error) {
	var studied []struct {
		UserID        string    `db:"user_id"`
		LastStudiedAt time.Time `db:"last_studied_at"`
	}
	if err := r.db.SelectContext(ctx, &studied, `SELECT user_id, last_studied_at FROM user_progress`); err != nil {
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}

	var learned []struct {
		UserID string `db:"user_id"`
		Count  int    `db:"learned_count"`
	}
	err := r.db.SelectContext(ctx, &learned, `
		SELECT user_id, COUNT(*) AS learned_count
		FROM learned_entries
		GROUP BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count learned entries: %w", err)
	}

	// Timestamps are compared here rather than with MAX() because SQLite
	// returns untyped aggregates as strings.
	summaries := make(map[string]*models.LearnerSummary)
	for _, row := range studied {
		s, ok := summaries[row.UserID]
		if !ok {
			s = &models.LearnerSummary{UserID: row.UserID}
			summaries[row.UserID] = s
		}
		s.ListCount++
		if row.LastStudiedAt.After(s.LastStudiedAt) {
			s.LastStudiedAt = row.LastStudiedAt
		}
	}
	for _, row := range learned {
		if s, ok := summaries[row.UserID]; ok {
			s.LearnedCount = row.Count
		}
	}

	result := make([]models.LearnerSummary, 0, len(summaries))
	for _, s := range summaries {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].LastStudiedAt.Equal(result[j].LastStudiedAt) {
			return result[i].LastStudiedAt.After(result[j].LastStudiedAt)
		}
		return result[i].UserID < result[j].UserID
	})
	return result, nil
}

func (r *ProgressRepository) learnedIDs(ctx context.Context, userID, listID string) ([]string, error) {
	ids := []string{}
	err := r.db.SelectContext(ctx, &ids, r.db.Rebind(`
		SELECT entry_id
		FROM learned_entries
		WHERE user_id = ? AND list_id = ?
		ORDER BY learned_at, entry_id
	`), userID, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to get learned entries: %w", err)
	}
	return ids, nil
}
