package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/wordace/pkg/models"
)

// ListRepository handles database operations for catalog lists
type ListRepository struct {
	db *DB
}

// NewListRepository creates a new repository instance
func NewListRepository(db *DB) *ListRepository {
	return &ListRepository{db: db}
}

// Upsert writes list metadata, overwriting the same fields of an existing list
func (r *ListRepository) Upsert(ctx context.Context, list models.CatalogList) error {
	query := r.db.Rebind(`
		INSERT INTO catalog_lists (id, title, entry_count, is_priority, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title       = excluded.title,
			entry_count = excluded.entry_count,
			is_priority = excluded.is_priority,
			updated_at  = excluded.updated_at
	`)
	_, err := r.db.ExecContext(ctx, query, list.ID, list.Title, list.EntryCount, list.IsPriority, list.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", ListPath(list.ID), err)
	}
	return nil
}

// Get returns a list by ID
func (r *ListRepository) Get(ctx context.Context, id string) (*models.CatalogList, error) {
	var list models.CatalogList
	query := r.db.Rebind(`SELECT id, title, entry_count, is_priority, updated_at FROM catalog_lists WHERE id = ?`)
	err := r.db.GetContext(ctx, &list, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", ListPath(id), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	return &list, nil
}

// All returns every list, priority lists first
func (r *ListRepository) All(ctx context.Context) ([]models.CatalogList, error) {
	var lists []models.CatalogList
	err := r.db.SelectContext(ctx, &lists, `
		SELECT id, title, entry_count, is_priority, updated_at
		FROM catalog_lists
		ORDER BY is_priority DESC, title
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get lists: %w", err)
	}
	return lists, nil
}
