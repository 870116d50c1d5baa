// Package session keeps in-progress quiz sessions between requests.
package session

import (
	"context"
	"errors"

	"github.com/example/wordace/internal/quiz"
)

// ErrNotFound is returned for unknown or expired sessions
var ErrNotFound = errors.New("session not found")

// UpdateFunc mutates a session inside Store.Update. Returning an error
// discards the mutation.
type UpdateFunc func(s *quiz.Session) error

// Store holds quiz sessions for a limited time
type Store interface {
	Save(ctx context.Context, s *quiz.Session) error
	Get(ctx context.Context, id string) (*quiz.Session, error)
	// Update applies fn to the stored session and writes the result back
	// atomically with respect to other Update calls on the same id.
	Update(ctx context.Context, id string, fn UpdateFunc) (*quiz.Session, error)
	Delete(ctx context.Context, id string) error
}
