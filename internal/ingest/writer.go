// Package ingest writes grouped catalog data to the store in bounded batches.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/example/wordace/pkg/models"
)

const (
	// MaxBatchSize keeps every chunk well under the store's 500 write ceiling.
	MaxBatchSize = 450
	// DefaultThrottle is the pause after each committed chunk.
	DefaultThrottle = 10 * time.Millisecond
	// MinThrottle is the shortest pause a writer accepts; chunks are never back to back.
	MinThrottle = time.Millisecond
)

// EntryCommitter atomically writes one chunk of entries
type EntryCommitter interface {
	CommitEntries(ctx context.Context, entries []models.CatalogEntry) error
}

// BatchCommitError reports a chunk that could not be committed. Chunks before
// Start are committed; nothing from Start onwards was written for ListID.
type BatchCommitError struct {
	ListID string
	Start  int
	End    int
	Err    error
}

func (e *BatchCommitError) Error() string {
	return fmt.Sprintf("failed to commit chunk [%d,%d) of %s: %v", e.Start, e.End, e.ListID, e.Err)
}

func (e *BatchCommitError) Unwrap() error { return e.Err }

// ChunkFunc is called after each chunk is committed and the throttle has elapsed
type ChunkFunc func(start, end int)

// Writer splits entry sets into chunks and commits them one by one
type Writer struct {
	committer EntryCommitter
	batchSize int
	throttle  time.Duration
	pause     func(ctx context.Context, d time.Duration) error
}

// NewWriter creates a writer. batchSize is clamped to 1..MaxBatchSize and
// throttle is raised to at least MinThrottle.
func NewWriter(committer EntryCommitter, batchSize int, throttle time.Duration) *Writer {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	if throttle < MinThrottle {
		throttle = MinThrottle
	}
	return &Writer{
		committer: committer,
		batchSize: batchSize,
		throttle:  throttle,
		pause:     sleep,
	}
}

// BatchSize returns the effective chunk size
func (w *Writer) BatchSize() int { return w.batchSize }

// Write commits the entries of one list in order. On a failed commit the
// remaining chunks are skipped and a *BatchCommitError is returned.
// Cancelling ctx stops before the next chunk; committed chunks stay.
func (w *Writer) Write(ctx context.Context, listID string, entries []models.CatalogEntry, done ChunkFunc) error {
	for start := 0; start < len(entries); start += w.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + w.batchSize
		if end > len(entries) {
			end = len(entries)
		}

		if err := w.committer.CommitEntries(ctx, entries[start:end]); err != nil {
			return &BatchCommitError{ListID: listID, Start: start, End: end, Err: err}
		}

		pauseErr := w.pause(ctx, w.throttle)
		if done != nil {
			done(start, end)
		}
		if pauseErr != nil {
			return pauseErr
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
