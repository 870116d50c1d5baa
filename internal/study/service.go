// Package study serves learners: catalog browsing, quizzes, example
// sentences and progress.
package study

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/example/wordace/internal/ai"
	"github.com/example/wordace/internal/logger"
	"github.com/example/wordace/internal/progress"
	"github.com/example/wordace/internal/quiz"
	"github.com/example/wordace/internal/session"
	"github.com/example/wordace/pkg/models"
)

// ErrForbidden is returned when a user touches another user's session
var ErrForbidden = errors.New("session belongs to another user")

type ListReader interface {
	Get(ctx context.Context, id string) (*models.CatalogList, error)
	All(ctx context.Context) ([]models.CatalogList, error)
}

type EntryReader interface {
	Get(ctx context.Context, id string) (*models.CatalogEntry, error)
	ByList(ctx context.Context, listID string) ([]models.CatalogEntry, error)
	Search(ctx context.Context, prefix string, limit int) ([]models.CatalogEntry, error)
}

type ProgressReader interface {
	ByUser(ctx context.Context, userID string) ([]models.UserProgress, error)
	Learners(ctx context.Context) ([]models.LearnerSummary, error)
}

type HistoryReader interface {
	ByUser(ctx context.Context, userID string, limit int) ([]models.AttemptRecord, error)
}

// Recorder persists completed quizzes
type Recorder interface {
	Complete(ctx context.Context, userID string, outcome quiz.Outcome) (string, error)
}

// Deps groups the collaborators of a Service
type Deps struct {
	Lists     ListReader
	Entries   EntryReader
	Progress  ProgressReader
	History   HistoryReader
	Sessions  session.Store
	Recorder  Recorder
	Generator ai.Generator // nil disables example sentences
	Log       *logger.Logger
}

// Service implements the learner workflows
type Service struct {
	deps      Deps
	log       *logger.Logger
	questions int

	mu  sync.Mutex // guards rng
	rng *rand.Rand
	now func() time.Time
}

// NewService creates a study service. questions is the default quiz length.
func NewService(deps Deps, questions int) *Service {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	if questions <= 0 {
		questions = quiz.DefaultQuestions
	}
	return &Service{
		deps:      deps,
		log:       log.With("component", "study"),
		questions: questions,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

// ListSummary is a catalog list with one learner's mastery of it
type ListSummary struct {
	models.CatalogList
	Learned        int `json:"learned"`
	MasteryPercent int `json:"mastery_percent"`
}

// Lists returns the catalog, priority lists first. userID may be empty.
func (s *Service) Lists(ctx context.Context, userID string) ([]ListSummary, error) {
	lists, err := s.deps.Lists.All(ctx)
	if err != nil {
		return nil, err
	}
	learned, err := s.learnedByList(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]ListSummary, 0, len(lists))
	for _, l := range lists {
		n := learned[l.ID]
		out = append(out, ListSummary{
			CatalogList:    l,
			Learned:        n,
			MasteryPercent: progress.MasteryPercent(n, l.EntryCount),
		})
	}
	return out, nil
}

// List returns one catalog list
func (s *Service) List(ctx context.Context, listID string) (*models.CatalogList, error) {
	return s.deps.Lists.Get(ctx, listID)
}

// Entries returns the entries of a list in sequence order
func (s *Service) Entries(ctx context.Context, listID string) ([]models.CatalogEntry, error) {
	if _, err := s.deps.Lists.Get(ctx, listID); err != nil {
		return nil, err
	}
	return s.deps.Entries.ByList(ctx, listID)
}

// Search finds entries whose term starts with prefix, case-insensitively
func (s *Service) Search(ctx context.Context, prefix string, limit int) ([]models.CatalogEntry, error) {
	return s.deps.Entries.Search(ctx, strings.ToLower(strings.TrimSpace(prefix)), limit)
}

// ListProgress is a learner's progress on one list
type ListProgress struct {
	models.UserProgress
	Title          string `json:"title"`
	EntryCount     int    `json:"entry_count"`
	MasteryPercent int    `json:"mastery_percent"`
}

// Progress returns the learner's progress on every list they studied
func (s *Service) Progress(ctx context.Context, userID string) ([]ListProgress, error) {
	studied, err := s.deps.Progress.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	lists, err := s.deps.Lists.All(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.CatalogList, len(lists))
	for _, l := range lists {
		byID[l.ID] = l
	}

	out := make([]ListProgress, 0, len(studied))
	for _, p := range studied {
		l := byID[p.ListID]
		out = append(out, ListProgress{
			UserProgress:   p,
			Title:          l.Title,
			EntryCount:     l.EntryCount,
			MasteryPercent: progress.MasteryPercent(len(p.LearnedEntryIDs), l.EntryCount),
		})
	}
	return out, nil
}

// History returns the learner's attempts, newest first
func (s *Service) History(ctx context.Context, userID string, limit int) ([]models.AttemptRecord, error) {
	return s.deps.History.ByUser(ctx, userID, limit)
}

// Learners returns mastery totals of every learner
func (s *Service) Learners(ctx context.Context) ([]models.LearnerSummary, error) {
	return s.deps.Progress.Learners(ctx)
}

func (s *Service) learnedByList(ctx context.Context, userID string) (map[string]int, error) {
	learned := make(map[string]int)
	if userID == "" {
		return learned, nil
	}
	studied, err := s.deps.Progress.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, p := range studied {
		learned[p.ListID] = len(p.LearnedEntryIDs)
	}
	return learned, nil
}
