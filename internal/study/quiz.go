package study

import (
	"context"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/example/wordace/internal/ai"
	"github.com/example/wordace/internal/progress"
	"github.com/example/wordace/internal/quiz"
)

// AnswerResult is the outcome of one answer as seen by the learner. When the
// quiz completes, AttemptID or PersistError tell whether it was recorded.
type AnswerResult struct {
	quiz.Result
	Total        int    `json:"total"`
	Percent      int    `json:"percent,omitempty"`
	AttemptID    string `json:"attempt_id,omitempty"`
	PersistError string `json:"persist_error,omitempty"`
}

// StartQuiz builds a quiz over listID for userID and stores the session.
// questions <= 0 selects the configured default.
func (s *Service) StartQuiz(ctx context.Context, userID, listID string, questions int) (*quiz.Session, error) {
	list, err := s.deps.Lists.Get(ctx, listID)
	if err != nil {
		return nil, err
	}
	entries, err := s.deps.Entries.ByList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if questions <= 0 {
		questions = s.questions
	}

	s.mu.Lock()
	set, err := quiz.Generate(entries, quiz.Options{Questions: questions, Rand: s.rng})
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	sess, err := quiz.NewSession(id, userID, *list, set, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.deps.Sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.log.Debug("quiz started", "session_id", id, "user_id", userID, "list_id", listID, "questions", len(set))
	return sess, nil
}

// Session returns a stored session owned by userID
func (s *Service) Session(ctx context.Context, sessionID, userID string) (*quiz.Session, error) {
	sess, err := s.deps.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrForbidden
	}
	return sess, nil
}

// Answer submits optionID for question index. The answer that completes the
// quiz also records it; a recording failure is reported in the result, never
// by discarding the score.
func (s *Service) Answer(ctx context.Context, sessionID, userID string, index int, optionID string) (*AnswerResult, error) {
	var res quiz.Result
	sess, err := s.deps.Sessions.Update(ctx, sessionID, func(sess *quiz.Session) error {
		if sess.UserID != userID {
			return ErrForbidden
		}
		var err error
		res, err = sess.Answer(index, optionID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	out := &AnswerResult{Result: res, Total: len(sess.Questions)}
	if !res.Complete {
		return out, nil
	}
	out.Percent = sess.Percent()

	outcome, err := sess.Outcome()
	if err != nil {
		return nil, err
	}
	attemptID, err := s.deps.Recorder.Complete(ctx, userID, outcome)
	out.AttemptID = attemptID
	if err != nil {
		var perr *progress.PersistenceError
		if !errors.As(err, &perr) {
			s.log.Error("quiz completion failed", "session_id", sessionID, "error", err)
		}
		out.PersistError = err.Error()
		return out, nil
	}

	if _, err := s.deps.Sessions.Update(ctx, sessionID, func(sess *quiz.Session) error {
		sess.Persisted = true
		return nil
	}); err != nil {
		s.log.Warn("failed to mark session persisted", "session_id", sessionID, "error", err)
	}
	return out, nil
}

// Example returns an example sentence for entryID, or "" when none can be
// generated. With a sessionID the sentence is generated at most once per
// session and entry.
func (s *Service) Example(ctx context.Context, entryID, sessionID string) (string, error) {
	entry, err := s.deps.Entries.Get(ctx, entryID)
	if err != nil {
		return "", err
	}
	if s.deps.Generator == nil {
		return "", nil
	}

	if sessionID != "" {
		sess, err := s.deps.Sessions.Get(ctx, sessionID)
		if err != nil {
			return "", err
		}
		if cached, ok := sess.CachedExample(entryID); ok {
			return cached, nil
		}
	}

	sentence := ai.ExampleOrNone(ctx, s.deps.Generator, entry.Term, entry.Definition)
	if sentence == "" {
		s.log.Debug("no example sentence", "entry_id", entryID)
		return "", nil
	}

	if sessionID != "" {
		if _, err := s.deps.Sessions.Update(ctx, sessionID, func(sess *quiz.Session) error {
			sess.CacheExample(entryID, sentence)
			return nil
		}); err != nil {
			s.log.Warn("failed to cache example", "session_id", sessionID, "error", err)
		}
	}
	return sentence, nil
}
