package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/wordace/internal/logger"
	"github.com/example/wordace/internal/quiz"
	"github.com/example/wordace/pkg/models"
)

// ProgressStore unions mastered ids into a user's progress on one list
type ProgressStore interface {
	MergeLearned(ctx context.Context, userID, listID string, ids []string, at time.Time) error
}

// HistoryStore appends immutable attempt records
type HistoryStore interface {
	Append(ctx context.Context, userID string, record models.AttemptRecord) (string, error)
}

// PersistenceError reports which of the two completion writes failed.
// A nil field means that write succeeded.
type PersistenceError struct {
	Progress error
	History  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist quiz result: %v", errors.Join(e.Progress, e.History))
}

func (e *PersistenceError) Unwrap() []error {
	var errs []error
	for _, err := range []error{e.Progress, e.History} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Merger writes quiz outcomes to progress and history
type Merger struct {
	progress ProgressStore
	history  HistoryStore
	log      *logger.Logger
	now      func() time.Time
}

// NewMerger creates a merger
func NewMerger(progress ProgressStore, history HistoryStore, log *logger.Logger) *Merger {
	if log == nil {
		log = logger.Nop()
	}
	return &Merger{
		progress: progress,
		history:  history,
		log:      log.With("component", "progress"),
		now:      time.Now,
	}
}

// Complete records a finished quiz. The progress merge and the history append
// are attempted independently; neither is undone when the other fails.
// It returns the id of the appended attempt when that write succeeded.
func (m *Merger) Complete(ctx context.Context, userID string, outcome quiz.Outcome) (string, error) {
	at := outcome.CompletedAt
	if at.IsZero() {
		at = m.now()
	}
	mastered := NewIDSet(outcome.MasteredIDs...).IDs()

	var perr PersistenceError
	if err := m.progress.MergeLearned(ctx, userID, outcome.ListID, mastered, at); err != nil {
		perr.Progress = err
		m.log.Error("progress merge failed", "user_id", userID, "list_id", outcome.ListID, "error", err)
	}

	attemptID, err := m.history.Append(ctx, userID, models.AttemptRecord{
		UserID:           userID,
		ListID:           outcome.ListID,
		ListTitle:        outcome.ListTitle,
		Mode:             models.QuizMode,
		CorrectCount:     outcome.Correct,
		TotalCount:       outcome.Total,
		MasteredEntryIDs: mastered,
		CompletedAt:      at,
	})
	if err != nil {
		perr.History = err
		m.log.Error("history append failed", "user_id", userID, "list_id", outcome.ListID, "error", err)
	}

	if perr.Progress != nil || perr.History != nil {
		return attemptID, &perr
	}
	m.log.Info("quiz recorded", "user_id", userID, "list_id", outcome.ListID,
		"correct", outcome.Correct, "total", outcome.Total, "attempt_id", attemptID)
	return attemptID, nil
}
