package study

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/wordace/internal/database"
	"github.com/example/wordace/internal/progress"
	"github.com/example/wordace/internal/quiz"
	"github.com/example/wordace/internal/session"
	"github.com/example/wordace/pkg/models"
)

type countingGenerator struct {
	calls int32
	err   error
}

func (g *countingGenerator) Complete(_ context.Context, term, _ string) (string, error) {
	atomic.AddInt32(&g.calls, 1)
	if g.err != nil {
		return "", g.err
	}
	return "I like " + term + ".", nil
}

type brokenHistory struct{}

func (brokenHistory) Append(context.Context, string, models.AttemptRecord) (string, error) {
	return "", errors.New("history offline")
}

type fixture struct {
	svc      *Service
	db       *database.DB
	progress *database.ProgressRepository
	history  *database.HistoryRepository
	gen      *countingGenerator
}

func newFixture(t *testing.T, sizes map[string]int) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.DriverSQLite, filepath.Join(t.TempDir(), "study.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	lists := database.NewListRepository(db)
	entries := database.NewEntryRepository(db)
	for listID, n := range sizes {
		if err := lists.Upsert(ctx, models.CatalogList{ID: listID, Title: "Title " + listID, EntryCount: n, UpdatedAt: time.Now()}); err != nil {
			t.Fatal(err)
		}
		var batch []models.CatalogEntry
		for i := 1; i <= n; i++ {
			batch = append(batch, models.CatalogEntry{
				ID: fmt.Sprintf("%s_%d", listID, i), ListID: listID, SequenceNumber: i,
				Term: fmt.Sprintf("w%d", i), Definition: fmt.Sprintf("m%d", i), SearchKey: fmt.Sprintf("w%d", i),
			})
		}
		if err := entries.CommitEntries(ctx, batch); err != nil {
			t.Fatal(err)
		}
	}

	f := &fixture{
		db:       db,
		progress: database.NewProgressRepository(db),
		history:  database.NewHistoryRepository(db),
		gen:      &countingGenerator{},
	}
	f.svc = NewService(Deps{
		Lists:     lists,
		Entries:   entries,
		Progress:  f.progress,
		History:   f.history,
		Sessions:  session.NewMemoryStore(time.Hour),
		Recorder:  progress.NewMerger(f.progress, f.history, nil),
		Generator: f.gen,
	}, 10)
	return f
}

// play answers every question, correctly when correct(i) is true
func play(t *testing.T, svc *Service, sess *quiz.Session, correct func(i int) bool) *AnswerResult {
	t.Helper()
	var last *AnswerResult
	for i, q := range sess.Questions {
		option := q.Target.ID
		if !correct(i) {
			for _, o := range q.Options {
				if o.ID != q.Target.ID {
					option = o.ID
					break
				}
			}
		}
		res, err := svc.Answer(context.Background(), sess.ID, sess.UserID, i, option)
		if err != nil {
			t.Fatalf("Answer(%d): %v", i, err)
		}
		last = res
	}
	return last
}

func TestQuizRecordsProgressAndHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int{"alpha": 12})

	sess, err := f.svc.StartQuiz(ctx, "u1", "alpha", 0)
	if err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}
	if len(sess.Questions) != 10 || sess.State != quiz.StateReady {
		t.Fatalf("session = %d questions, state %s", len(sess.Questions), sess.State)
	}

	last := play(t, f.svc, sess, func(i int) bool { return i < 7 })
	if !last.Complete || last.Score != 7 || last.Percent != 70 || last.AttemptID == "" || last.PersistError != "" {
		t.Fatalf("last = %+v", last)
	}

	p, err := f.progress.Get(ctx, "u1", "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.LearnedEntryIDs) != 7 {
		t.Errorf("learned = %v", p.LearnedEntryIDs)
	}

	history, err := f.svc.History(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].CorrectCount != 7 || history[0].TotalCount != 10 || history[0].ListTitle != "Title alpha" {
		t.Errorf("history = %+v", history)
	}

	stored, err := f.svc.Session(ctx, sess.ID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Persisted || stored.State != quiz.StateComplete {
		t.Errorf("stored session = state %s persisted %v", stored.State, stored.Persisted)
	}

	if _, err := f.svc.Answer(ctx, sess.ID, "u1", 9, sess.Questions[9].Target.ID); !errors.Is(err, quiz.ErrSessionComplete) {
		t.Errorf("answer after completion: %v", err)
	}
}

func TestLearnedSetOnlyGrows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int{"alpha": 4})

	first, err := f.svc.StartQuiz(ctx, "u1", "alpha", 4)
	if err != nil {
		t.Fatal(err)
	}
	play(t, f.svc, first, func(int) bool { return true })

	second, err := f.svc.StartQuiz(ctx, "u1", "alpha", 4)
	if err != nil {
		t.Fatal(err)
	}
	res := play(t, f.svc, second, func(int) bool { return false })
	if res.Score != 0 || res.AttemptID == "" {
		t.Errorf("zero score attempt = %+v", res)
	}

	lists, err := f.svc.Lists(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(lists) != 1 || lists[0].Learned != 4 || lists[0].MasteryPercent != 100 {
		t.Errorf("lists = %+v", lists)
	}

	history, err := f.svc.History(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Errorf("history = %d records", len(history))
	}
}

func TestStartQuizTooSmall(t *testing.T) {
	f := newFixture(t, map[string]int{"tiny": 3})
	_, err := f.svc.StartQuiz(context.Background(), "u1", "tiny", 0)
	var insufficient *quiz.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientDataError", err)
	}
	if _, err := f.progress.Get(context.Background(), "u1", "tiny"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("progress touched: %v", err)
	}
}

func TestStartQuizUnknownList(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.svc.StartQuiz(context.Background(), "u1", "ghost", 0); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestSessionOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int{"alpha": 5})
	sess, err := f.svc.StartQuiz(ctx, "u1", "alpha", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Session(ctx, sess.ID, "u2"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Session by other user: %v", err)
	}
	if _, err := f.svc.Answer(ctx, sess.ID, "u2", 0, sess.Questions[0].Target.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Answer by other user: %v", err)
	}
	if _, err := f.svc.Session(ctx, "missing", "u1"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("missing session: %v", err)
	}
}

func TestPersistFailureKeepsScore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int{"alpha": 4})
	f.svc.deps.Recorder = progress.NewMerger(f.progress, brokenHistory{}, nil)

	sess, err := f.svc.StartQuiz(ctx, "u1", "alpha", 0)
	if err != nil {
		t.Fatal(err)
	}
	res := play(t, f.svc, sess, func(int) bool { return true })
	if res.Score != 4 || res.PersistError == "" {
		t.Errorf("result = %+v", res)
	}
	p, err := f.progress.Get(ctx, "u1", "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.LearnedEntryIDs) != 4 {
		t.Errorf("progress lost with history failure: %v", p.LearnedEntryIDs)
	}
}

func TestExampleCachedPerSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int{"alpha": 4})
	sess, err := f.svc.StartQuiz(ctx, "u1", "alpha", 0)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		got, err := f.svc.Example(ctx, "alpha_2", sess.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got != "I like w2." {
			t.Errorf("example = %q", got)
		}
	}
	if n := atomic.LoadInt32(&f.gen.calls); n != 1 {
		t.Errorf("generator called %d times", n)
	}

	if _, err := f.svc.Example(ctx, "alpha_99", ""); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("unknown entry: %v", err)
	}
}

func TestExampleFailureIsEmpty(t *testing.T) {
	f := newFixture(t, map[string]int{"alpha": 4})
	f.gen.err = errors.New("offline")
	got, err := f.svc.Example(context.Background(), "alpha_1", "")
	if err != nil || got != "" {
		t.Errorf("Example = %q, %v", got, err)
	}
}

func TestProgressAndLearners(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int{"alpha": 4, "beta": 8})
	sess, err := f.svc.StartQuiz(ctx, "u1", "beta", 4)
	if err != nil {
		t.Fatal(err)
	}
	play(t, f.svc, sess, func(i int) bool { return i%2 == 0 })

	got, err := f.svc.Progress(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ListID != "beta" || got[0].MasteryPercent != 25 || got[0].Title != "Title beta" {
		t.Errorf("progress = %+v", got)
	}

	learners, err := f.svc.Learners(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(learners) != 1 || learners[0].LearnedCount != 2 {
		t.Errorf("learners = %+v", learners)
	}
}
