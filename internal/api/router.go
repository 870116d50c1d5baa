package api

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// adminToken guards the /admin routes; empty disables them.
func NewRouter(h *Handler, adminToken string) chi.Router {
	r := chi.NewRouter()

	// Catalog.
	r.Get("/lists", h.ListLists)
	r.Get("/lists/{listID}", h.GetList)
	r.Get("/lists/{listID}/entries", h.ListEntries)
	r.Get("/entries", h.SearchEntries)
	r.Get("/entries/{entryID}/example", h.GetExample)

	// Learner.
	r.Route("/users/{userID}", func(r chi.Router) {
		r.Post("/quizzes", h.StartQuiz)
		r.Get("/quizzes/{sessionID}", h.GetQuiz)
		r.Post("/quizzes/{sessionID}/answers", h.AnswerQuiz)
		r.Get("/progress", h.GetProgress)
		r.Get("/history", h.GetHistory)
	})

	// Admin.
	r.Route("/admin", func(r chi.Router) {
		r.Use(AdminMiddleware(adminToken))
		r.Post("/imports", h.Import)
		r.Get("/learners", h.ListLearners)
	})

	return r
}
