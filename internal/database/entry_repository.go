package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/wordace/pkg/models"
)

// EntryRepository handles database operations for catalog entries
type EntryRepository struct {
	db *DB
}

// NewEntryRepository creates a new repository instance
func NewEntryRepository(db *DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// CommitEntries writes all entries in one transaction. Either every entry is
// written or none is. Existing entries with the same ID are overwritten.
func (r *EntryRepository) CommitEntries(ctx context.Context, entries []models.CatalogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if len(entries) > MaxBatchOps {
		return fmt.Errorf("%d writes: %w", len(entries), ErrBatchTooLarge)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO catalog_entries (id, list_id, sequence_number, term, definition, search_key)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			list_id         = excluded.list_id,
			sequence_number = excluded.sequence_number,
			term            = excluded.term,
			definition      = excluded.definition,
			search_key      = excluded.search_key
	`))
	if err != nil {
		return fmt.Errorf("failed to prepare entry write: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID, e.ListID, e.SequenceNumber, e.Term, e.Definition, e.SearchKey); err != nil {
			return fmt.Errorf("failed to write %s: %w", EntryPath(e.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ByList returns the entries of a list ordered by sequence number
func (r *EntryRepository) ByList(ctx context.Context, listID string) ([]models.CatalogEntry, error) {
	var entries []models.CatalogEntry
	query := r.db.Rebind(`
		SELECT id, list_id, sequence_number, term, definition, search_key
		FROM catalog_entries
		WHERE list_id = ?
		ORDER BY sequence_number, id
	`)
	if err := r.db.SelectContext(ctx, &entries, query, listID); err != nil {
		return nil, fmt.Errorf("failed to get entries by list: %w", err)
	}
	return entries, nil
}

// Get returns an entry by ID
func (r *EntryRepository) Get(ctx context.Context, id string) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	query := r.db.Rebind(`
		SELECT id, list_id, sequence_number, term, definition, search_key
		FROM catalog_entries
		WHERE id = ?
	`)
	err := r.db.GetContext(ctx, &entry, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", EntryPath(id), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return &entry, nil
}

// Search finds entries whose search key starts with prefix
func (r *EntryRepository) Search(ctx context.Context, prefix string, limit int) ([]models.CatalogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []models.CatalogEntry
	query := r.db.Rebind(`
		SELECT id, list_id, sequence_number, term, definition, search_key
		FROM catalog_entries
		WHERE search_key >= ? AND search_key < ?
		ORDER BY search_key, id
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &entries, query, prefix, prefix+"\uffff", limit); err != nil {
		return nil, fmt.Errorf("failed to search entries: %w", err)
	}
	return entries, nil
}
