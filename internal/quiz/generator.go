// Package quiz builds multiple-choice quizzes from catalog entries and tracks
// a learner's way through one.
package quiz

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/example/wordace/pkg/models"
)

const (
	DefaultQuestions   = 10
	DefaultDistractors = 3
)

// InsufficientDataError is returned when a list is too small for a single
// well-formed question. No question is generated.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("not enough entries for a quiz: have %d, need at least %d", e.Have, e.Need)
}

// Question asks for the definition of Target. Options holds the target and
// its distractors in presentation order.
type Question struct {
	Target  models.CatalogEntry   `json:"target"`
	Options []models.CatalogEntry `json:"options"`
}

// Options tune quiz generation. Zero values select the defaults.
type Options struct {
	Questions   int
	Distractors int
	Rand        *rand.Rand
}

// Generate draws up to opts.Questions distinct targets from entries and gives
// each one opts.Distractors distinct wrong options from the rest of the list.
func Generate(entries []models.CatalogEntry, opts Options) ([]Question, error) {
	if opts.Questions <= 0 {
		opts.Questions = DefaultQuestions
	}
	if opts.Distractors <= 0 {
		opts.Distractors = DefaultDistractors
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	n := len(entries)
	if need := opts.Distractors + 1; n < need {
		return nil, &InsufficientDataError{Have: n, Need: need}
	}

	count := opts.Questions
	if count > n {
		count = n
	}

	targets := rng.Perm(n)[:count]
	pool := make([]int, 0, n-1)
	questions := make([]Question, 0, count)

	for _, t := range targets {
		pool = pool[:0]
		for i := 0; i < n; i++ {
			if i != t {
				pool = append(pool, i)
			}
		}
		rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})

		picked := append(append([]int(nil), pool[:opts.Distractors]...), t)
		rng.Shuffle(len(picked), func(i, j int) {
			picked[i], picked[j] = picked[j], picked[i]
		})

		options := make([]models.CatalogEntry, len(picked))
		for i, idx := range picked {
			options[i] = entries[idx]
		}
		questions = append(questions, Question{Target: entries[t], Options: options})
	}
	return questions, nil
}
