package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/wordace/internal/catalog"
	"github.com/example/wordace/internal/database"
	"github.com/example/wordace/internal/ingest"
	"github.com/example/wordace/internal/quiz"
	"github.com/example/wordace/internal/session"
	"github.com/example/wordace/internal/study"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var (
		insufficient *quiz.InsufficientDataError
		empty        *catalog.EmptyInputError
		commit       *ingest.BatchCommitError
	)
	switch {
	case errors.Is(err, database.ErrNotFound), errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, study.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, quiz.ErrAlreadyAnswered), errors.Is(err, quiz.ErrSessionComplete):
		return http.StatusConflict
	case errors.Is(err, quiz.ErrUnknownOption), errors.Is(err, quiz.ErrUnknownQuestion):
		return http.StatusBadRequest
	case errors.As(err, &insufficient), errors.As(err, &empty):
		return http.StatusUnprocessableEntity
	case errors.As(err, &commit):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
