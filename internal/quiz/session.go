package quiz

import (
	"errors"
	"time"

	"github.com/example/wordace/pkg/models"
)

// State is the position of a session in its lifecycle
type State string

const (
	StateLoading   State = "loading"
	StateReady     State = "ready"
	StateAnswering State = "answering"
	StateScored    State = "scored"
	StateComplete  State = "complete"
)

var (
	ErrNoQuestions       = errors.New("quiz has no questions")
	ErrAlreadyAnswered   = errors.New("question already answered")
	ErrSessionComplete   = errors.New("quiz session is complete")
	ErrSessionIncomplete = errors.New("quiz session is not complete")
	ErrUnknownOption     = errors.New("option does not belong to the question")
	ErrUnknownQuestion   = errors.New("question does not exist")
)

// AnswerRecord is the learner's choice for one question
type AnswerRecord struct {
	Question int    `json:"question"`
	OptionID string `json:"option_id"`
	Correct  bool   `json:"correct"`
}

// Result describes the effect of a single answer
type Result struct {
	Correct  bool   `json:"correct"`
	TargetID string `json:"target_id"`
	Score    int    `json:"score"`
	Complete bool   `json:"complete"`
}

// Outcome is the final result of a completed session
type Outcome struct {
	ListID      string    `json:"list_id"`
	ListTitle   string    `json:"list_title"`
	MasteredIDs []string  `json:"mastered_ids"`
	Correct     int       `json:"correct"`
	Total       int       `json:"total"`
	CompletedAt time.Time `json:"completed_at"`
}

// Session is one learner's pass through a question set. The exported fields
// make it storable as JSON; mutate it only through its methods.
type Session struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	List        models.CatalogList `json:"list"`
	State       State              `json:"state"`
	Questions   []Question         `json:"questions"`
	Current     int                `json:"current"`
	Score       int                `json:"score"`
	Mastered    []string           `json:"mastered"`
	Answers     []AnswerRecord     `json:"answers"`
	Examples    map[string]string  `json:"examples,omitempty"`
	Persisted   bool               `json:"persisted"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt time.Time          `json:"completed_at"`
}

// NewSession starts a session over questions. It is Ready as soon as it
// holds at least one question.
func NewSession(id, userID string, list models.CatalogList, questions []Question, now time.Time) (*Session, error) {
	s := &Session{
		ID:        id,
		UserID:    userID,
		List:      list,
		State:     StateLoading,
		Mastered:  []string{},
		Answers:   []AnswerRecord{},
		CreatedAt: now,
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	s.Questions = questions
	s.State = StateReady
	return s, nil
}

// CurrentQuestion returns the question awaiting an answer
func (s *Session) CurrentQuestion() (Question, bool) {
	if s.State == StateComplete || s.Current >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.Current], true
}

// Answer records optionID as the answer to question index. Each question can
// be answered once, in order. An unknown option leaves the question open.
func (s *Session) Answer(index int, optionID string, now time.Time) (Result, error) {
	if s.State == StateComplete {
		return Result{}, ErrSessionComplete
	}
	if index < 0 || index >= len(s.Questions) {
		return Result{}, ErrUnknownQuestion
	}
	if index < s.Current {
		return Result{}, ErrAlreadyAnswered
	}
	if index > s.Current {
		return Result{}, ErrUnknownQuestion
	}

	q := s.Questions[index]
	if !hasOption(q, optionID) {
		return Result{}, ErrUnknownOption
	}

	s.State = StateAnswering
	correct := optionID == q.Target.ID
	if correct {
		s.Score++
		s.Mastered = append(s.Mastered, q.Target.ID)
	}
	s.Answers = append(s.Answers, AnswerRecord{Question: index, OptionID: optionID, Correct: correct})
	s.State = StateScored
	s.Current++

	if s.Current == len(s.Questions) {
		s.State = StateComplete
		s.CompletedAt = now
	}

	return Result{
		Correct:  correct,
		TargetID: q.Target.ID,
		Score:    s.Score,
		Complete: s.State == StateComplete,
	}, nil
}

// Outcome returns the final result once the session is complete
func (s *Session) Outcome() (Outcome, error) {
	if s.State != StateComplete {
		return Outcome{}, ErrSessionIncomplete
	}
	return Outcome{
		ListID:      s.List.ID,
		ListTitle:   s.List.Title,
		MasteredIDs: append([]string{}, s.Mastered...),
		Correct:     s.Score,
		Total:       len(s.Questions),
		CompletedAt: s.CompletedAt,
	}, nil
}

// Percent is the score as a rounded percentage of the questions presented
func (s *Session) Percent() int {
	if len(s.Questions) == 0 {
		return 0
	}
	return (s.Score*200 + len(s.Questions)) / (len(s.Questions) * 2)
}

// CachedExample returns a previously generated example sentence for entryID
func (s *Session) CachedExample(entryID string) (string, bool) {
	sentence, ok := s.Examples[entryID]
	return sentence, ok
}

// CacheExample remembers an example sentence for entryID
func (s *Session) CacheExample(entryID, sentence string) {
	if s.Examples == nil {
		s.Examples = make(map[string]string)
	}
	s.Examples[entryID] = sentence
}

func hasOption(q Question, optionID string) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}
