package api

import (
	"github.com/example/wordace/internal/quiz"
)

// OptionView is one answer choice; it never reveals which one is right
type OptionView struct {
	ID         string `json:"id"`
	Definition string `json:"definition"`
}

// QuestionView is the question awaiting an answer
type QuestionView struct {
	Index   int          `json:"index"`
	Term    string       `json:"term"`
	Options []OptionView `json:"options"`
}

// SessionView is the learner-facing state of a quiz session
type SessionView struct {
	ID        string              `json:"id"`
	ListID    string              `json:"list_id"`
	ListTitle string              `json:"list_title"`
	State     quiz.State          `json:"state"`
	Score     int                 `json:"score"`
	Total     int                 `json:"total"`
	Question  *QuestionView       `json:"question,omitempty"`
	Answers   []quiz.AnswerRecord `json:"answers"`
}

type startQuizRequest struct {
	ListID    string `json:"list_id"`
	Questions int    `json:"questions"`
}

type answerRequest struct {
	Question int    `json:"question"`
	OptionID string `json:"option_id"`
}

type exampleResponse struct {
	EntryID  string `json:"entry_id"`
	Sentence string `json:"sentence"`
}

func newSessionView(s *quiz.Session) SessionView {
	view := SessionView{
		ID:        s.ID,
		ListID:    s.List.ID,
		ListTitle: s.List.Title,
		State:     s.State,
		Score:     s.Score,
		Total:     len(s.Questions),
		Answers:   s.Answers,
	}
	if q, ok := s.CurrentQuestion(); ok {
		qv := &QuestionView{Index: s.Current, Term: q.Target.Term}
		for _, o := range q.Options {
			qv.Options = append(qv.Options, OptionView{ID: o.ID, Definition: o.Definition})
		}
		view.Question = qv
	}
	return view
}
